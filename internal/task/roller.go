package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ErrUncompleteRecurring is returned when a caller tries to un-complete a
// recurring task. Completing a recurring task leaves the live task active
// by construction, so there is nothing to un-complete; only the terminal
// snapshot carries completed=true and snapshots are immutable history.
var ErrUncompleteRecurring = errors.New("recurring tasks cannot be un-completed")

// Roller applies completion transitions to tasks. For recurring tasks it
// snapshots the finished occurrence into history and advances the live task
// to its next due date; for non-recurring tasks completion is a flag plus a
// timestamp.
type Roller struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewRoller creates a Roller over the given store. A nil logger falls back
// to slog.Default().
func NewRoller(store Store, logger *slog.Logger) *Roller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Roller{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Complete marks the task done. For a recurring task it returns the advanced
// live task plus the terminal snapshot that was written to history; for a
// non-recurring task the snapshot is nil. Completing an already-completed
// non-recurring task is a no-op.
func (r *Roller) Complete(ctx context.Context, taskID string) (Task, *Task, error) {
	t, ok, err := r.store.Get(ctx, taskID)
	if err != nil {
		return Task{}, nil, fmt.Errorf("failed to load task %s: %w", taskID, err)
	}
	if !ok {
		return Task{}, nil, fmt.Errorf("task not found: %s", taskID)
	}

	now := r.now()

	if !t.IsRecurring() {
		if t.Completed {
			return t, nil, nil
		}
		t.Completed = true
		t.CompletedAt = &now
		t.UpdatedAt = now
		updated, err := r.store.Update(ctx, t)
		if err != nil {
			return Task{}, nil, fmt.Errorf("failed to complete task %s: %w", taskID, err)
		}
		return updated, nil, nil
	}

	// Recurring: the finished occurrence becomes a separate terminal record
	// and the live task rolls forward. The live task is never left completed.
	snapshot := t
	snapshot.ID = uuid.NewString()
	snapshot.Completed = true
	snapshot.CompletedAt = &now
	snapshot.Link = nil // history records are local-only
	snapshot.CreatedAt = now
	snapshot.UpdatedAt = now

	created, err := r.store.Create(ctx, snapshot)
	if err != nil {
		return Task{}, nil, fmt.Errorf("failed to snapshot occurrence of task %s: %w", taskID, err)
	}

	t.Completed = false
	t.CompletedAt = nil
	// Advance only when both the due date and the recurrence are set;
	// otherwise the due date stays as it was.
	if next := NextDueDate(t.DueDate, t.Recurrence); next != nil {
		t.DueDate = next
	}
	t.UpdatedAt = now

	live, err := r.store.Update(ctx, t)
	if err != nil {
		return Task{}, nil, fmt.Errorf("failed to advance task %s: %w", taskID, err)
	}

	r.logger.Info("rolled recurring task forward",
		"task_id", live.ID,
		"recurrence", string(live.Recurrence),
		"snapshot_id", created.ID)

	return live, &created, nil
}

// Uncomplete transitions a completed non-recurring task back to active.
func (r *Roller) Uncomplete(ctx context.Context, taskID string) (Task, error) {
	t, ok, err := r.store.Get(ctx, taskID)
	if err != nil {
		return Task{}, fmt.Errorf("failed to load task %s: %w", taskID, err)
	}
	if !ok {
		return Task{}, fmt.Errorf("task not found: %s", taskID)
	}
	if t.IsRecurring() {
		return Task{}, ErrUncompleteRecurring
	}
	if !t.Completed {
		return t, nil
	}

	t.Completed = false
	t.CompletedAt = nil
	t.UpdatedAt = r.now()

	return r.store.Update(ctx, t)
}
