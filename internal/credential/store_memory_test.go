package credential

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_UpsertAndFind(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	c := Credential{
		UserID:       "user-1",
		Provider:     "googletasks",
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		Expiry:       time.Now().Add(time.Hour),
		Scopes:       []string{"https://www.googleapis.com/auth/tasks"},
	}

	saved, err := store.Upsert(ctx, c)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if saved.CreatedAt.IsZero() || saved.UpdatedAt.IsZero() {
		t.Error("Upsert() should stamp timestamps")
	}

	got, ok, err := store.Find(ctx, "user-1", "googletasks")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if !ok || got.AccessToken != "at-1" {
		t.Errorf("Find() = %+v ok=%v", got, ok)
	}
}

func TestMemoryStore_UpsertReplacesInPlace(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	first, err := store.Upsert(ctx, Credential{UserID: "u", Provider: "p", AccessToken: "old"})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	second, err := store.Upsert(ctx, Credential{UserID: "u", Provider: "p", AccessToken: "new"})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Error("Upsert() should preserve the original creation time")
	}

	got, ok, _ := store.Find(ctx, "u", "p")
	if !ok || got.AccessToken != "new" {
		t.Errorf("Find() = %+v, want replaced token", got)
	}
}

func TestMemoryStore_UpsertValidates(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Upsert(context.Background(), Credential{Provider: "p"}); err == nil {
		t.Error("expected error for missing user ID")
	}
	if _, err := store.Upsert(context.Background(), Credential{UserID: "u"}); err == nil {
		t.Error("expected error for missing provider")
	}
}

func TestMemoryStore_PairUniqueness(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, _ = store.Upsert(ctx, Credential{UserID: "u", Provider: "googletasks", AccessToken: "g"})
	_, _ = store.Upsert(ctx, Credential{UserID: "u", Provider: "mstodo", AccessToken: "m"})

	g, ok, _ := store.Find(ctx, "u", "googletasks")
	if !ok || g.AccessToken != "g" {
		t.Error("googletasks credential lost")
	}
	m, ok, _ := store.Find(ctx, "u", "mstodo")
	if !ok || m.AccessToken != "m" {
		t.Error("mstodo credential lost")
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, _ = store.Upsert(ctx, Credential{UserID: "u", Provider: "p", AccessToken: "x"})

	ok, err := store.Delete(ctx, "u", "p")
	if err != nil || !ok {
		t.Fatalf("Delete() = %v, %v", ok, err)
	}
	if _, found, _ := store.Find(ctx, "u", "p"); found {
		t.Error("credential should be gone")
	}
	if ok, _ := store.Delete(ctx, "u", "p"); ok {
		t.Error("second delete should report not found")
	}
}
