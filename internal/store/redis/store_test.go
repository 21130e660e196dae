package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/session"
)

func newTestStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, ttl), mr
}

func TestStoreSaveGet(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t, time.Hour)

	created := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	in := &session.Session{
		ID:       "abc",
		Identity: domain.Identity{Mode: domain.ModeOwner},
		Links: domain.Table{
			{ID: 1, URL: "https://go.dev", Title: "Go", Tags: []string{"lang"}, CreatedAt: created, UpdatedAt: created},
		},
		CreatedAt:  created,
		LastSeenAt: created,
	}
	if err := store.Save(ctx, in); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if !mr.Exists(SessionKey("abc")) {
		t.Fatalf("key %s not written", SessionKey("abc"))
	}
	if ttl := mr.TTL(SessionKey("abc")); ttl != time.Hour {
		t.Errorf("TTL = %v, want 1h", ttl)
	}

	got, err := store.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Identity != in.Identity || len(got.Links) != 1 || got.Links[0].URL != "https://go.dev" {
		t.Errorf("Get() = %+v, want %+v", got, in)
	}
	if !got.Links[0].CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", got.Links[0].CreatedAt, created)
	}
}

func TestStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t, time.Minute)

	if err := store.Save(ctx, &session.Session{ID: "x", Identity: domain.Public()}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, err := store.Get(ctx, "x"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("Get() after ttl error = %v, want session.ErrNotFound", err)
	}
}

func TestStoreEmptyLinksDecodeNonNil(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, time.Hour)

	_ = store.Save(ctx, &session.Session{ID: "p", Identity: domain.Public()})
	got, err := store.Get(ctx, "p")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Links == nil {
		t.Error("Links = nil, want empty table")
	}
}

func TestStoreDeleteAndCount(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, time.Hour)

	for _, id := range []string{"a", "b", "c"} {
		if err := store.Save(ctx, &session.Session{ID: id, Identity: domain.Public()}); err != nil {
			t.Fatalf("Save(%s) error = %v", id, err)
		}
	}
	if err := store.Delete(ctx, "b"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(ctx, "never-existed"); err != nil {
		t.Errorf("Delete(missing) error = %v", err)
	}

	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
	if err := store.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}
