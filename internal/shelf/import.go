package shelf

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

// ImportReport counts what a bulk import did.
type ImportReport struct {
	Saved   int
	Updated int
	Skipped []error
}

// Import upserts inputs into the drive file of a durable identity and writes
// it back once. Invalid inputs are skipped and reported.
func (s *Service) Import(ctx context.Context, id domain.Identity, inputs []domain.LinkInput) (ImportReport, error) {
	var report ImportReport
	if !id.Durable() {
		return report, fmt.Errorf("cannot import into %s mode", id.Mode)
	}

	unlock := s.fileLocks.Lock(id.FileName())
	defer unlock()

	table, err := s.readTable(ctx, id)
	if err != nil {
		return report, err
	}

	now := s.clock.Now()
	for _, in := range inputs {
		next, action, err := table.Save(in, now)
		if err != nil {
			report.Skipped = append(report.Skipped, fmt.Errorf("%s: %w", in.URL, err))
			continue
		}
		table = next
		if action == domain.ActionSaved {
			report.Saved++
		} else {
			report.Updated++
		}
	}

	if report.Saved+report.Updated == 0 {
		return report, nil
	}
	if err := s.writeTable(ctx, id, table); err != nil {
		return report, fmt.Errorf("failed to write %s: %w", id.FileName(), err)
	}

	s.log.Info("links imported",
		logger.String("file", id.FileName()),
		logger.Int("saved", report.Saved),
		logger.Int("updated", report.Updated),
		logger.Int("skipped", len(report.Skipped)))
	return report, nil
}

// ExportIdentity returns the raw drive file of a durable identity.
func (s *Service) ExportIdentity(ctx context.Context, id domain.Identity) ([]byte, error) {
	if !id.Durable() {
		return nil, fmt.Errorf("%s mode has no drive file", id.Mode)
	}
	unlock := s.fileLocks.Lock(id.FileName())
	defer unlock()
	return s.drive.Get(ctx, id.FileName())
}
