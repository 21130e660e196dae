package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/shelf"
	"github.com/MrSnakeDoc/shelf/internal/sources/yamlfile"
)

// DefaultSeedInterval is how often the seed file is checked for changes
const DefaultSeedInterval = 5 * time.Minute

// Importer upserts links into a durable collection
type Importer interface {
	Import(ctx context.Context, id domain.Identity, inputs []domain.LinkInput) (shelf.ImportReport, error)
}

// SeedImporter keeps the owner collection in sync with a YAML seed file.
// The file is imported on start and again whenever its mtime changes.
type SeedImporter struct {
	path     string
	loader   *yamlfile.Loader
	importer Importer
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}

	lastMod time.Time
}

// NewSeedImporter creates a new seed importer
func NewSeedImporter(path string, importer Importer, log logger.Logger, interval time.Duration) *SeedImporter {
	if interval <= 0 {
		interval = DefaultSeedInterval
	}
	return &SeedImporter{
		path:     path,
		loader:   yamlfile.NewLoader(path),
		importer: importer,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start imports the file once, then watches it in the background
func (si *SeedImporter) Start(ctx context.Context) error {
	if _, err := si.Reload(ctx); err != nil {
		return fmt.Errorf("initial seed import failed: %w", err)
	}

	ticker := time.NewTicker(si.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := si.Reload(ctx); err != nil {
					si.logger.Error("failed to import seed file",
						logger.String("file", si.path),
						logger.Error(err))
				}
			case <-si.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the importer
func (si *SeedImporter) Stop() {
	close(si.stopCh)
}

// Reload imports the file if it changed since the last successful import.
// It reports whether an import ran.
func (si *SeedImporter) Reload(ctx context.Context) (bool, error) {
	st, err := os.Stat(si.path)
	if err != nil {
		return false, fmt.Errorf("failed to stat seed file: %w", err)
	}
	if !si.lastMod.IsZero() && st.ModTime().Equal(si.lastMod) {
		si.logger.Debug("seed file unchanged", logger.String("file", si.path))
		return false, nil
	}

	inputs, err := si.loader.Load()
	if err != nil {
		return false, err
	}

	report, err := si.importer.Import(ctx, domain.Identity{Mode: domain.ModeOwner}, inputs)
	if err != nil {
		return false, err
	}
	si.lastMod = st.ModTime()

	si.logger.Info("seed file imported",
		logger.String("file", si.path),
		logger.Int("saved", report.Saved),
		logger.Int("updated", report.Updated),
		logger.Int("skipped", len(report.Skipped)))
	for _, e := range report.Skipped {
		si.logger.Warn("seed entry skipped", logger.Error(e))
	}
	return true, nil
}
