package task

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRoller_CompleteRecurring(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	roller := NewRoller(store, nil)

	tk := New("user-1", "weekly review", "go through the backlog")
	tk.Recurrence = RecurrenceWeekly
	tk.DueDate = date(2024, time.January, 1)
	if _, err := store.Create(ctx, tk); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	live, snapshot, err := roller.Complete(ctx, tk.ID)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	// The live task advanced and is still active.
	if live.Completed {
		t.Error("live task should not be completed after rollover")
	}
	if live.CompletedAt != nil {
		t.Error("live task should have no completion timestamp")
	}
	if live.DueDate == nil || !live.DueDate.Equal(*date(2024, time.January, 8)) {
		t.Errorf("live due date = %v, want 2024-01-08", live.DueDate)
	}
	if live.ID != tk.ID {
		t.Errorf("live task ID changed: got %s, want %s", live.ID, tk.ID)
	}

	// The snapshot is a separate terminal record with the old due date.
	if snapshot == nil {
		t.Fatal("expected a terminal snapshot")
	}
	if snapshot.ID == tk.ID {
		t.Error("snapshot must have its own identity")
	}
	if !snapshot.Completed || snapshot.CompletedAt == nil {
		t.Error("snapshot should be completed with a timestamp")
	}
	if snapshot.DueDate == nil || !snapshot.DueDate.Equal(*date(2024, time.January, 1)) {
		t.Errorf("snapshot due date = %v, want 2024-01-01", snapshot.DueDate)
	}
	if snapshot.Recurrence != RecurrenceWeekly {
		t.Errorf("snapshot recurrence = %q, want weekly (preserved for display)", snapshot.Recurrence)
	}

	// Both records are persisted.
	all, err := store.ListByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 tasks after rollover, got %d", len(all))
	}
}

func TestRoller_CompleteRecurringWithoutDueDate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	roller := NewRoller(store, nil)

	tk := New("user-1", "stretch", "")
	tk.Recurrence = RecurrenceDaily
	if _, err := store.Create(ctx, tk); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	live, snapshot, err := roller.Complete(ctx, tk.ID)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if snapshot == nil {
		t.Fatal("expected a terminal snapshot even without a due date")
	}
	if live.DueDate != nil {
		t.Errorf("due date should stay unset, got %v", live.DueDate)
	}
	if live.Completed {
		t.Error("live task should remain active")
	}
}

func TestRoller_CompleteRecurringDropsLinkFromSnapshot(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	roller := NewRoller(store, nil)

	tk := New("user-1", "sync me", "")
	tk.Recurrence = RecurrenceMonthly
	tk.DueDate = date(2024, time.May, 1)
	tk.Link = &ProviderLink{Provider: "googletasks", TaskID: "remote-1"}
	if _, err := store.Create(ctx, tk); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	live, snapshot, err := roller.Complete(ctx, tk.ID)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if snapshot.Link != nil {
		t.Error("snapshot must not inherit the provider link")
	}
	if live.Link == nil || live.Link.TaskID != "remote-1" {
		t.Error("live task should keep its provider link")
	}
}

func TestRoller_CompleteNonRecurring(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	roller := NewRoller(store, nil)

	tk := New("user-1", "file taxes", "")
	if _, err := store.Create(ctx, tk); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	done, snapshot, err := roller.Complete(ctx, tk.ID)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if snapshot != nil {
		t.Error("non-recurring completion must not create a snapshot")
	}
	if !done.Completed || done.CompletedAt == nil {
		t.Error("task should be completed with a timestamp")
	}

	// Completing again is a no-op.
	again, snapshot, err := roller.Complete(ctx, tk.ID)
	if err != nil {
		t.Fatalf("second Complete() error = %v", err)
	}
	if snapshot != nil {
		t.Error("repeat completion must not create a snapshot")
	}
	if !again.CompletedAt.Equal(*done.CompletedAt) {
		t.Error("repeat completion must not move the timestamp")
	}

	all, _ := store.ListByUser(ctx, "user-1")
	if len(all) != 1 {
		t.Fatalf("expected 1 task, got %d", len(all))
	}
}

func TestRoller_Uncomplete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	roller := NewRoller(store, nil)

	tk := New("user-1", "one-off", "")
	tk.Completed = true
	now := time.Now()
	tk.CompletedAt = &now
	if _, err := store.Create(ctx, tk); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	active, err := roller.Uncomplete(ctx, tk.ID)
	if err != nil {
		t.Fatalf("Uncomplete() error = %v", err)
	}
	if active.Completed || active.CompletedAt != nil {
		t.Error("task should be active again")
	}
}

func TestRoller_UncompleteRecurringRejected(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	roller := NewRoller(store, nil)

	tk := New("user-1", "recurring", "")
	tk.Recurrence = RecurrenceDaily
	if _, err := store.Create(ctx, tk); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := roller.Uncomplete(ctx, tk.ID); !errors.Is(err, ErrUncompleteRecurring) {
		t.Errorf("Uncomplete() error = %v, want ErrUncompleteRecurring", err)
	}
}

func TestRoller_CompleteMissingTask(t *testing.T) {
	roller := NewRoller(NewMemoryStore(), nil)
	if _, _, err := roller.Complete(context.Background(), "missing"); err == nil {
		t.Error("expected error for missing task")
	}
}
