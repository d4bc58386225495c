package memory

import (
	"context"
	"testing"
)

func TestStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	if _, ok, err := s.Get(ctx, "user"); ok || err != nil {
		t.Errorf("Expected missing key, got ok=%v err=%v", ok, err)
	}
	_ = s.Set(ctx, "user", "ada")
	_ = s.Set(ctx, "accessToken", "tok")

	v, ok, err := s.Get(ctx, "user")
	if err != nil || !ok || v != "ada" {
		t.Errorf("Expected 'ada', got %q ok=%v err=%v", v, ok, err)
	}

	if err := s.Delete(ctx, "user", "accessToken", "absent"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "accessToken"); ok {
		t.Error("Expected accessToken to be deleted")
	}
}
