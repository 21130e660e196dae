// Package session keeps the per-visitor state: which identity passed the gate
// and the working copy of its links.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

// ErrNotFound means the id is unknown or the session expired.
var ErrNotFound = errors.New("session not found")

// Session is one visitor context. Links is the working table: for durable
// identities it mirrors the drive file, for public ones it is the only copy.
// Unsynced is set while Links holds changes whose drive write failed.
type Session struct {
	ID         string          `json:"id"`
	Identity   domain.Identity `json:"identity"`
	Links      domain.Table    `json:"links"`
	Unsynced   bool            `json:"unsynced,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	LastSeenAt time.Time       `json:"last_seen_at"`
}

// Clone returns a deep copy so stores never share tables with callers.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Links = s.Links.Clone()
	return &cp
}

// Store persists sessions. Save refreshes the idle lifetime.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Kind() string
}

// Counter is implemented by stores that can report how many sessions are live.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// IDGenerator produces session ids.
type IDGenerator interface {
	NewID() string
}

// UUIDs generates random v4 uuids.
type UUIDs struct{}

func (UUIDs) NewID() string { return uuid.NewString() }
