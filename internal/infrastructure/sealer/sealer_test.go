package sealer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"marquee/internal/adapters/db/memory"
	domain "marquee/internal/domain/session"
)

func TestStore_SealsValues(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	s, err := New(backend, "correct horse")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := s.Set(ctx, "accessToken", "tok-123"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	raw, _, _ := backend.Get(ctx, "accessToken")
	if !strings.HasPrefix(raw, prefix) {
		t.Errorf("Expected sealed value with prefix %q, got %q", prefix, raw)
	}
	if strings.Contains(raw, "tok-123") {
		t.Error("Expected plaintext not to appear in the backend")
	}

	got, ok, err := s.Get(ctx, "accessToken")
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	if got != "tok-123" {
		t.Errorf("Expected 'tok-123', got '%s'", got)
	}
}

func TestStore_ValueBoundToKey(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	s, _ := New(backend, "secret")

	_ = s.Set(ctx, "accessToken", "tok")
	raw, _, _ := backend.Get(ctx, "accessToken")
	_ = backend.Set(ctx, "refreshToken", raw)

	_, _, err := s.Get(ctx, "refreshToken")
	if !errors.Is(err, domain.ErrStorageParse) {
		t.Errorf("Expected ErrStorageParse, got %v", err)
	}
}

func TestStore_WrongSecret(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	a, _ := New(backend, "one")
	b, _ := New(backend, "two")

	_ = a.Set(ctx, "user", `{"id":"1"}`)
	if _, _, err := b.Get(ctx, "user"); !errors.Is(err, domain.ErrStorageParse) {
		t.Errorf("Expected ErrStorageParse with the wrong secret, got %v", err)
	}
}

func TestStore_PlaintextPassthrough(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	_ = backend.Set(ctx, "user", `{"id":"1"}`)
	s, _ := New(backend, "secret")

	got, ok, err := s.Get(ctx, "user")
	if err != nil || !ok || got != `{"id":"1"}` {
		t.Errorf("Expected plaintext passthrough, got %q ok=%v err=%v", got, ok, err)
	}
	if _, ok, _ := s.Get(ctx, "missing"); ok {
		t.Error("Expected missing key to report ok=false")
	}
}

func TestNew_EmptySecret(t *testing.T) {
	if _, err := New(memory.NewStore(), ""); err == nil {
		t.Error("Expected error for empty secret")
	}
}
