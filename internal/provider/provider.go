package provider

import (
	"context"
	"time"

	"github.com/teemow/tasksync/internal/task"
)

// Provider keys. These are the values stored in credentials and provider
// links; adapters report one of them from Name().
const (
	GoogleTasks   = "googletasks"
	MicrosoftTodo = "mstodo"
)

// DefaultTaskName is the sentinel name used when a remote task arrives with
// no usable title. Title-less tasks are normally excluded from sync before
// transformation, so this only shows up when an adapter is used directly.
const DefaultTaskName = "Untitled task"

// Known reports whether p is a supported provider key.
func Known(p string) bool {
	return p == GoogleTasks || p == MicrosoftTodo
}

// RemoteTask is the transient envelope for one provider task as it came off
// the wire. It is never persisted; the adapter's ToCanonical transform turns
// it into task.Fields before anything touches the local store.
type RemoteTask struct {
	ID          string
	Title       string
	Notes       string
	NotesFormat string // "text" or "html"; html is stripped by ToCanonical
	Due         *time.Time
	Completed   bool
	CompletedAt *time.Time
	Attachments []task.AttachmentMeta
}

// HasTitle reports whether the remote task carries a non-blank title.
// Title-less remote tasks are excluded from sync entirely, which keeps
// blank garbage entries out of the local list.
func (rt RemoteTask) HasTitle() bool {
	for _, r := range rt.Title {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return true
		}
	}
	return false
}

// ListOptions controls remote task enumeration.
type ListOptions struct {
	// IncludeCompleted asks the provider to return completed tasks too.
	IncludeCompleted bool
}

// Adapter is the capability set shared by all provider variants. An adapter
// is a pure translation and transport layer: it never touches the local
// store. All operations are scoped to one user via the access token.
type Adapter interface {
	// Name returns the provider key (e.g. GoogleTasks).
	Name() string

	// ListTasks enumerates the user's remote tasks, transparently following
	// continuation tokens until exhausted, and invokes fn for each one. The
	// walk stops early when fn or the transport returns an error. A fresh
	// call always restarts from the first page.
	ListTasks(ctx context.Context, accessToken string, opts ListOptions, fn func(RemoteTask) error) error

	// ToCanonical maps a remote task onto the canonical mutable fields,
	// stripping provider markup and defaulting a missing title.
	ToCanonical(rt RemoteTask) task.Fields

	// Create creates a remote task and returns the provider's task ID.
	Create(ctx context.Context, accessToken string, fields task.Fields) (string, error)

	// Update overwrites a remote task by its provider task ID.
	Update(ctx context.Context, accessToken, providerTaskID string, fields task.Fields) error

	// Delete removes a remote task by its provider task ID.
	Delete(ctx context.Context, accessToken, providerTaskID string) error
}
