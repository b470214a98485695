package kvstore

import (
	"context"
	"errors"
	"testing"
)

func TestInMemoryStoreRoundTrip(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
	}

	if err := s.Set(ctx, "k", []byte("v1")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "v1" {
		t.Fatalf("Get() = %q, want %q", got, "v1")
	}

	if err := s.Set(ctx, "k", []byte("v2")); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}
	got, _ = s.Get(ctx, "k")
	if string(got) != "v2" {
		t.Fatalf("Get() after overwrite = %q, want %q", got, "v2")
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() after delete error = %v, want ErrNotFound", err)
	}
	// Deleting an absent key is a no-op.
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() twice error = %v", err)
	}
}

func TestInMemoryStoreCopiesValues(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	src := []byte("original")
	if err := s.Set(ctx, "k", src); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	src[0] = 'X'

	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "original" {
		t.Fatalf("Get() = %q, stored value should not alias caller slice", got)
	}
	got[0] = 'Y'
	again, _ := s.Get(ctx, "k")
	if string(again) != "original" {
		t.Fatalf("Get() = %q, returned value should not alias stored slice", again)
	}
}

func TestFactoryDefaultsToInMemory(t *testing.T) {
	s, err := NewStore(context.Background(), "  ")
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	defer s.Close()
	if _, ok := s.(*InMemoryStore); !ok {
		t.Fatalf("NewStore() without DATABASE_URL = %T, want *InMemoryStore", s)
	}
}
