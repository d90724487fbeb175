package task

import (
	"time"

	"github.com/google/uuid"
)

// Task is the canonical, provider-agnostic task representation that all
// sync logic operates on. Tasks are owned by the local store; remote tasks
// are always translated into this shape before they touch persistence.
type Task struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
	Completed   bool            `json:"completed"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Recurrence  Recurrence      `json:"recurrence"`
	Link        *ProviderLink   `json:"link,omitempty"`
	Attachments []AttachmentMeta `json:"attachments,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ProviderLink ties a local task to one remote task in one provider.
// A task carries at most one link; a linked task is considered owned
// upstream for that provider, so pull-sync may overwrite its content.
type ProviderLink struct {
	Provider string `json:"provider"`
	TaskID   string `json:"task_id"`
}

// AttachmentMeta describes a remote attachment without storing its content.
type AttachmentMeta struct {
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	OriginURL string `json:"origin_url,omitempty"`
}

// Fields is the mutable projection of a task that pull-sync overwrites and
// provider adapters produce from their native representations.
type Fields struct {
	Name        string
	Description string
	DueDate     *time.Time
	Completed   bool
	CompletedAt *time.Time
	Attachments []AttachmentMeta
}

// New creates an unlinked, incomplete task for the given user.
func New(userID, name, description string) Task {
	now := time.Now()
	return Task{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        name,
		Description: description,
		Recurrence:  RecurrenceNone,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsLinked reports whether the task carries a provider link for the given
// provider. An empty provider matches any link.
func (t *Task) IsLinked(provider string) bool {
	if t.Link == nil {
		return false
	}
	return provider == "" || t.Link.Provider == provider
}

// RemoteEqual reports whether the mutable fields already match a remote
// value, i.e. ApplyRemote would change nothing but UpdatedAt.
func (t *Task) RemoteEqual(f Fields) bool {
	return t.Name == f.Name &&
		t.Description == f.Description &&
		t.Completed == f.Completed &&
		timesEqual(t.DueDate, f.DueDate) &&
		timesEqual(t.CompletedAt, f.CompletedAt) &&
		attachmentsEqual(t.Attachments, f.Attachments)
}

func timesEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func attachmentsEqual(a, b []AttachmentMeta) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ApplyRemote overwrites the mutable fields from a remote value. The
// attachment list is replaced wholesale, never partially edited.
func (t *Task) ApplyRemote(f Fields) {
	t.Name = f.Name
	t.Description = f.Description
	t.DueDate = f.DueDate
	t.Completed = f.Completed
	t.CompletedAt = f.CompletedAt
	t.Attachments = f.Attachments
	t.UpdatedAt = time.Now()
}

// ClearLink drops the provider link, leaving the task content intact.
func (t *Task) ClearLink() {
	t.Link = nil
	t.UpdatedAt = time.Now()
}
