// Package drive stores the durable spreadsheet files of owner and guest
// identities. Files are read whole and rewritten whole.
package drive

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no file exists under the name.
var ErrNotFound = errors.New("drive file not found")

// Drive is a flat namespace of named blobs.
type Drive interface {
	// Get returns the full content of name, or ErrNotFound.
	Get(ctx context.Context, name string) ([]byte, error)

	// Put replaces the content of name.
	Put(ctx context.Context, name string, data []byte) error

	// Ping verifies the backend is reachable and configured.
	Ping(ctx context.Context) error

	// Kind names the backend, for logs and the infra endpoint.
	Kind() string
}
