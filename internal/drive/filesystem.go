package drive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileSystem stores each file directly under a root directory.
type FileSystem struct {
	root string
}

// NewFileSystem creates the root directory if needed.
func NewFileSystem(root string) (*FileSystem, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create drive root: %w", err)
	}
	return &FileSystem{root: root}, nil
}

func (d *FileSystem) Get(_ context.Context, name string) ([]byte, error) {
	path, err := d.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// Put writes through a temp file in the same directory and renames it over
// the destination, so readers never see a partial workbook.
func (d *FileSystem) Put(_ context.Context, name string, data []byte) error {
	path, err := d.path(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(d.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

func (d *FileSystem) Ping(context.Context) error {
	info, err := os.Stat(d.root)
	if err != nil {
		return fmt.Errorf("drive root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("drive root is not a directory: %s", d.root)
	}
	return nil
}

func (d *FileSystem) Kind() string { return "filesystem" }

// path maps a file name to a path inside root and rejects anything that
// would escape it.
func (d *FileSystem) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid drive file name %q", name)
	}
	return filepath.Join(d.root, name), nil
}

var _ Drive = (*FileSystem)(nil)
