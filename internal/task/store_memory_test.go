package task

import (
	"context"
	"testing"
)

func TestMemoryStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	tk := New("user-1", "buy milk", "2 liters")
	created, err := store.Create(ctx, tk)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID == "" {
		t.Fatal("created task has no ID")
	}

	got, ok, err := store.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Fatal("Get() did not find the task")
	}
	if got.Name != "buy milk" || got.Description != "2 liters" {
		t.Errorf("Get() = %+v, fields do not match", got)
	}
}

func TestMemoryStore_CreateRejectsDuplicateID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	tk := New("user-1", "a", "")
	if _, err := store.Create(ctx, tk); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := store.Create(ctx, tk); err == nil {
		t.Error("expected error for duplicate ID")
	}
}

func TestMemoryStore_CreateRejectsDuplicateLink(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	a := New("user-1", "a", "")
	a.Link = &ProviderLink{Provider: "mstodo", TaskID: "r-1"}
	if _, err := store.Create(ctx, a); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	b := New("user-1", "b", "")
	b.Link = &ProviderLink{Provider: "mstodo", TaskID: "r-1"}
	if _, err := store.Create(ctx, b); err == nil {
		t.Error("expected error for duplicate provider link")
	}

	// Same remote ID under a different user is fine.
	c := New("user-2", "c", "")
	c.Link = &ProviderLink{Provider: "mstodo", TaskID: "r-1"}
	if _, err := store.Create(ctx, c); err != nil {
		t.Errorf("Create() for other user error = %v", err)
	}
}

func TestMemoryStore_FindByProviderLink(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	tk := New("user-1", "linked", "")
	tk.Link = &ProviderLink{Provider: "googletasks", TaskID: "g-42"}
	if _, err := store.Create(ctx, tk); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, ok, err := store.FindByProviderLink(ctx, "user-1", "googletasks", "g-42")
	if err != nil {
		t.Fatalf("FindByProviderLink() error = %v", err)
	}
	if !ok || got.ID != tk.ID {
		t.Errorf("FindByProviderLink() = %+v ok=%v, want task %s", got, ok, tk.ID)
	}

	if _, ok, _ := store.FindByProviderLink(ctx, "user-1", "mstodo", "g-42"); ok {
		t.Error("lookup with wrong provider should miss")
	}
	if _, ok, _ := store.FindByProviderLink(ctx, "user-2", "googletasks", "g-42"); ok {
		t.Error("lookup with wrong user should miss")
	}
}

func TestMemoryStore_ClearProviderLinks(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	linked := New("user-1", "linked", "keep me")
	linked.Link = &ProviderLink{Provider: "googletasks", TaskID: "g-1"}
	other := New("user-1", "other provider", "")
	other.Link = &ProviderLink{Provider: "mstodo", TaskID: "m-1"}
	plain := New("user-1", "plain", "")

	for _, tk := range []Task{linked, other, plain} {
		if _, err := store.Create(ctx, tk); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	cleared, err := store.ClearProviderLinks(ctx, "user-1", "googletasks")
	if err != nil {
		t.Fatalf("ClearProviderLinks() error = %v", err)
	}
	if cleared != 1 {
		t.Errorf("cleared = %d, want 1", cleared)
	}

	// The task survives with its content, only the link is gone.
	got, ok, _ := store.Get(ctx, linked.ID)
	if !ok {
		t.Fatal("linked task was deleted by disconnect")
	}
	if got.Link != nil {
		t.Error("link should be cleared")
	}
	if got.Name != "linked" || got.Description != "keep me" {
		t.Error("task content should survive disconnect")
	}

	// The other provider's link is untouched.
	got, _, _ = store.Get(ctx, other.ID)
	if got.Link == nil || got.Link.Provider != "mstodo" {
		t.Error("other provider's link should be untouched")
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	tk := New("user-1", "temp", "")
	if _, err := store.Create(ctx, tk); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	ok, err := store.Delete(ctx, tk.ID)
	if err != nil || !ok {
		t.Fatalf("Delete() = %v, %v", ok, err)
	}
	ok, err = store.Delete(ctx, tk.ID)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if ok {
		t.Error("second delete should report not found")
	}
}

func TestMemoryStore_ListByUserOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for _, name := range []string{"a", "b", "c"} {
		tk := New("user-1", name, "")
		if _, err := store.Create(ctx, tk); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	if _, err := store.Create(ctx, New("user-2", "z", "")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := store.ListByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ListByUser() returned %d tasks, want 3", len(got))
	}
}
