package drive

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryGetPut(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.Get(ctx, "owner_links.xlsx"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() on empty drive error = %v, want ErrNotFound", err)
	}

	data := []byte("hello")
	if err := m.Put(ctx, "owner_links.xlsx", data); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	data[0] = 'j'

	got, err := m.Get(ctx, "owner_links.xlsx")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("Get() = %q, want %q (caller buffer must not alias)", got, "hello")
	}
}

func TestMemoryFailPut(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	boom := errors.New("boom")

	m.SetFailPut(boom)
	if err := m.Put(ctx, "a.xlsx", []byte("x")); !errors.Is(err, boom) {
		t.Fatalf("Put() error = %v, want %v", err, boom)
	}
	if _, err := m.Get(ctx, "a.xlsx"); !errors.Is(err, ErrNotFound) {
		t.Errorf("failed Put stored data")
	}

	m.SetFailPut(nil)
	if err := m.Put(ctx, "a.xlsx", []byte("x")); err != nil {
		t.Errorf("Put() after reset error = %v", err)
	}
}
