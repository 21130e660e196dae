// Package redis stores sessions as JSON values with a sliding TTL.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/session"
)

// DefaultSessionTTL is used when the store is created with a zero TTL
const DefaultSessionTTL = 24 * time.Hour

// Store handles Redis operations for sessions
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore creates a new Redis session store
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Store{
		client: client,
		ttl:    ttl,
	}
}

// Save stores a session and resets its expiry
func (s *Store) Save(ctx context.Context, sess *session.Session) error {
	if sess == nil || sess.ID == "" {
		return fmt.Errorf("session without id")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.client.Set(ctx, SessionKey(sess.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID
func (s *Store) Get(ctx context.Context, id string) (*session.Session, error) {
	data, err := s.client.Get(ctx, SessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s: %w", id, session.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var sess session.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if sess.Links == nil {
		sess.Links = domain.Table{}
	}

	return &sess, nil
}

// Delete removes a session, missing keys are not an error
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, SessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Kind() string { return "redis" }

// Count returns the number of live sessions. Redis expires keys itself, so
// every key left under the prefix is live.
func (s *Store) Count(ctx context.Context) (int, error) {
	count := 0
	iter := s.client.Scan(ctx, 0, KeyPrefixSession+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}

var (
	_ session.Store   = (*Store)(nil)
	_ session.Counter = (*Store)(nil)
)
