// Package sheet converts link tables to and from xlsx workbooks.
//
// A workbook holds a single sheet whose first row is the header
// id | url | title | description | tags | created_at | updated_at.
// Tags are flattened with ", ".
package sheet

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

const (
	// SheetName is the name of the sheet written by Encode.
	SheetName = "links"
	// TimeLayout is how timestamps are stored in cells.
	TimeLayout = "2006-01-02 15:04:05"
	// TagSeparator joins tags in the tags column.
	TagSeparator = ", "
	// ContentType is the MIME type of encoded workbooks.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Columns is the header row, in order.
var Columns = []string{"id", "url", "title", "description", "tags", "created_at", "updated_at"}

// Encode writes table into a new xlsx workbook.
func Encode(table domain.Table) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, l := range table {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to address row %d: %w", i+2, err)
		}
		row := []interface{}{
			l.ID,
			l.URL,
			l.Title,
			l.Description,
			strings.Join(l.Tags, TagSeparator),
			formatTime(l.CreatedAt),
			formatTime(l.UpdatedAt),
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row for %s: %w", l.URL, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reads the first sheet of an xlsx workbook into a table. Columns are
// located by header name, so extra or reordered columns are tolerated. Rows
// without a url are skipped, and later rows with an already seen url are dropped.
func Decode(data []byte) (domain.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return domain.Table{}, nil
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return domain.Table{}, nil
	}

	col := make(map[string]int, len(Columns))
	for i, name := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := col["url"]; !ok {
		return nil, fmt.Errorf("workbook has no url column")
	}

	// Cells are trimmed like Table.Save trims input, so a saved link decodes
	// to the same url, title and description.
	get := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	table := make(domain.Table, 0, len(rows)-1)
	seen := make(map[string]struct{}, len(rows)-1)
	for n, row := range rows[1:] {
		url := get(row, "url")
		if url == "" {
			continue
		}
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}

		id, err := parseID(get(row, "id"))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n+2, err)
		}
		created, err := parseTime(get(row, "created_at"))
		if err != nil {
			return nil, fmt.Errorf("row %d: created_at: %w", n+2, err)
		}
		updated, err := parseTime(get(row, "updated_at"))
		if err != nil {
			return nil, fmt.Errorf("row %d: updated_at: %w", n+2, err)
		}

		in := domain.LinkInput{
			URL:         url,
			Title:       get(row, "title"),
			Description: get(row, "description"),
			Tags:        ParseTags(get(row, "tags")),
		}.Normalize()
		table = append(table, domain.Link{
			ID:          id,
			URL:         in.URL,
			Title:       in.Title,
			Description: in.Description,
			Tags:        in.Tags,
			CreatedAt:   created,
			UpdatedAt:   updated,
		})
	}

	assignMissingIDs(table)
	return table, nil
}

// ParseTags splits a flattened tags cell. It also understands the list
// literal form "['a', 'b']" found in older files.
func ParseTags(cell string) []string {
	cell = strings.TrimSpace(cell)
	if !strings.HasPrefix(cell, "[") || !strings.HasSuffix(cell, "]") {
		return domain.NormalizeTags([]string{cell})
	}

	parts := strings.Split(cell[1:len(cell)-1], ",")
	for i, p := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(p), `'"`)
	}
	return domain.NormalizeTags(parts)
}

func parseID(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	// Spreadsheet tools sometimes store integers as floats.
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f), nil
	}
	return 0, fmt.Errorf("invalid id %q", s)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{TimeLayout, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

// assignMissingIDs gives rows without an id the next free ids, keeping the
// table's id uniqueness.
func assignMissingIDs(table domain.Table) {
	maxID := 0
	for _, l := range table {
		if l.ID > maxID {
			maxID = l.ID
		}
	}
	for i := range table {
		if table[i].ID == 0 {
			maxID++
			table[i].ID = maxID
		}
	}
}
