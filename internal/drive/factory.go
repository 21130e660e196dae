package drive

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/shelf/internal/config"
)

// NewFromConfig creates the Drive selected by cfg.Type.
func NewFromConfig(ctx context.Context, cfg config.DriveConfig) (Drive, error) {
	switch cfg.Type {
	case "memory":
		return NewMemory(), nil
	case "filesystem":
		if cfg.Root == "" {
			return nil, fmt.Errorf("filesystem drive requires a root directory")
		}
		return NewFileSystem(cfg.Root)
	case "s3":
		return NewS3(ctx, S3Options{
			Bucket:    cfg.S3Bucket,
			Prefix:    cfg.S3Prefix,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	default:
		return nil, fmt.Errorf("unknown drive type: %s", cfg.Type)
	}
}
