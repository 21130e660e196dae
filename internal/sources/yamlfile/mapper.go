package yamlfile

import (
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

// Mapper converts decoded YAML into save inputs. Validation is left to the
// table, so bad entries are reported per link at import time.
type Mapper struct{}

func NewMapper() *Mapper {
	return &Mapper{}
}

func (m *Mapper) MapEntries(entries []Entry) ([]domain.LinkInput, error) {
	out := make([]domain.LinkInput, 0, len(entries))
	for _, e := range entries {
		out = append(out, domain.LinkInput{
			URL:         strings.TrimSpace(e.URL),
			Title:       e.Title,
			Description: e.Description,
			Tags:        domain.NormalizeTags(e.Tags),
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no links found in import file")
	}
	return out, nil
}

// MapHomepage turns every bookmark into a link titled with its name and
// tagged with its lowercased category.
func (m *Mapper) MapHomepage(config HomepageConfig) ([]domain.LinkInput, error) {
	out := make([]domain.LinkInput, 0)

	for _, category := range config {
		for categoryName, bookmarks := range category {
			tag := strings.ToLower(strings.TrimSpace(categoryName))
			for _, bookmark := range bookmarks {
				for name, entries := range bookmark {
					if len(entries) == 0 || entries[0].Href == "" {
						continue
					}
					entry := entries[0]
					title := name
					if title == "" {
						title = entry.Abbr
					}
					out = append(out, domain.LinkInput{
						URL:         strings.TrimSpace(entry.Href),
						Title:       title,
						Description: entry.Description,
						Tags:        domain.NormalizeTags([]string{tag}),
					})
				}
			}
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no valid bookmarks found in import file")
	}
	return out, nil
}
