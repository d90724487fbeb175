package googletasks

import (
	"time"

	tasksapi "google.golang.org/api/tasks/v1"

	"github.com/teemow/tasksync/internal/provider"
	"github.com/teemow/tasksync/internal/task"
)

const (
	statusNeedsAction = "needsAction"
	statusCompleted   = "completed"
)

// toRemote converts a Google Tasks task into the neutral remote envelope.
func toRemote(t *tasksapi.Task) provider.RemoteTask {
	if t == nil {
		return provider.RemoteTask{}
	}

	rt := provider.RemoteTask{
		ID:          t.Id,
		Title:       t.Title,
		Notes:       t.Notes,
		NotesFormat: "text",
		Completed:   t.Status == statusCompleted,
	}

	// Google Tasks due dates are RFC3339 timestamps whose time portion is
	// not meaningful; only the calendar date is kept.
	if t.Due != "" {
		if due, err := time.Parse(time.RFC3339, t.Due); err == nil {
			day := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
			rt.Due = &day
		}
	}

	if t.Completed != nil && *t.Completed != "" {
		if completed, err := time.Parse(time.RFC3339, *t.Completed); err == nil {
			rt.CompletedAt = &completed
		}
	}

	for _, link := range t.Links {
		rt.Attachments = append(rt.Attachments, task.AttachmentMeta{
			Name:      link.Description,
			OriginURL: link.Link,
		})
	}

	return rt
}

// ToCanonical maps a remote task onto the canonical mutable fields.
func (a *Adapter) ToCanonical(rt provider.RemoteTask) task.Fields {
	name := rt.Title
	if !rt.HasTitle() {
		name = provider.DefaultTaskName
	}

	f := task.Fields{
		Name:        name,
		Description: rt.Notes,
		DueDate:     rt.Due,
		Completed:   rt.Completed,
		Attachments: rt.Attachments,
	}
	if rt.Completed {
		f.CompletedAt = rt.CompletedAt
	}
	return f
}

// fromFields converts canonical fields into the Google Tasks wire shape.
func fromFields(f task.Fields) *tasksapi.Task {
	t := &tasksapi.Task{
		Title:  f.Name,
		Notes:  f.Description,
		Status: statusNeedsAction,
	}

	if f.DueDate != nil {
		t.Due = f.DueDate.Format(time.RFC3339)
	}

	if f.Completed {
		t.Status = statusCompleted
		completedAt := time.Now()
		if f.CompletedAt != nil {
			completedAt = *f.CompletedAt
		}
		s := completedAt.Format(time.RFC3339)
		t.Completed = &s
	}

	return t
}
