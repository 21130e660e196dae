package drive

import (
	"context"
	"testing"

	"github.com/MrSnakeDoc/shelf/internal/config"
)

func TestNewFromConfig(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		cfg      config.DriveConfig
		wantKind string
		wantErr  bool
	}{
		{name: "memory", cfg: config.DriveConfig{Type: "memory"}, wantKind: "memory"},
		{name: "filesystem", cfg: config.DriveConfig{Type: "filesystem", Root: t.TempDir()}, wantKind: "filesystem"},
		{name: "filesystem without root", cfg: config.DriveConfig{Type: "filesystem"}, wantErr: true},
		{name: "s3 without bucket", cfg: config.DriveConfig{Type: "s3"}, wantErr: true},
		{name: "unknown", cfg: config.DriveConfig{Type: "ftp"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewFromConfig(ctx, tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NewFromConfig() = %v, want error", d)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewFromConfig() error = %v", err)
			}
			if d.Kind() != tt.wantKind {
				t.Errorf("Kind() = %q, want %q", d.Kind(), tt.wantKind)
			}
		})
	}
}
