package mstodo

import (
	"html"
	"strings"
	"time"

	"github.com/teemow/tasksync/internal/provider"
	"github.com/teemow/tasksync/internal/task"
)

const (
	statusNotStarted = "notStarted"
	statusCompleted  = "completed"

	contentTypeText = "text"
	contentTypeHTML = "html"
)

// graphDateTimeLayout is the fractional-second layout Graph emits inside
// dateTimeTimeZone values. There is no zone suffix; the zone travels in the
// separate timeZone field.
const graphDateTimeLayout = "2006-01-02T15:04:05.9999999"

// todoTask is the Graph todoTask resource, reduced to the fields the
// adapter reads and writes.
type todoTask struct {
	ID                string         `json:"id,omitempty"`
	Title             string         `json:"title,omitempty"`
	Body              *itemBody      `json:"body,omitempty"`
	Status            string         `json:"status,omitempty"`
	DueDateTime       *dateTimeZone  `json:"dueDateTime,omitempty"`
	CompletedDateTime *dateTimeZone  `json:"completedDateTime,omitempty"`
	LinkedResources   []linkedSource `json:"linkedResources,omitempty"`
}

type itemBody struct {
	Content     string `json:"content"`
	ContentType string `json:"contentType"`
}

type dateTimeZone struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type linkedSource struct {
	DisplayName string `json:"displayName,omitempty"`
	WebURL      string `json:"webUrl,omitempty"`
}

// todoList is the Graph todoTaskList resource.
type todoList struct {
	ID                string `json:"id"`
	WellknownListName string `json:"wellknownListName"`
}

type listPage struct {
	Value    []todoList `json:"value"`
	NextLink string     `json:"@odata.nextLink"`
}

type taskPage struct {
	Value    []todoTask `json:"value"`
	NextLink string     `json:"@odata.nextLink"`
}

// parseGraphTime parses a dateTimeTimeZone value. Graph omits the zone
// suffix from the timestamp, so the layout has no offset; anything but UTC
// in the timeZone field is resolved through the IANA database and falls
// back to UTC when unknown.
func parseGraphTime(v *dateTimeZone) *time.Time {
	if v == nil || v.DateTime == "" {
		return nil
	}

	loc := time.UTC
	if v.TimeZone != "" && v.TimeZone != "UTC" {
		if l, err := time.LoadLocation(v.TimeZone); err == nil {
			loc = l
		}
	}

	parsed, err := time.ParseInLocation(graphDateTimeLayout, v.DateTime, loc)
	if err != nil {
		// Some clients write full RFC3339 into the field.
		parsed, err = time.Parse(time.RFC3339, v.DateTime)
		if err != nil {
			return nil
		}
	}

	utc := parsed.UTC()
	return &utc
}

func graphTime(t time.Time) *dateTimeZone {
	return &dateTimeZone{
		DateTime: t.UTC().Format(graphDateTimeLayout),
		TimeZone: "UTC",
	}
}

// toRemote converts a Graph todoTask into the neutral remote envelope.
func toRemote(gt todoTask) provider.RemoteTask {
	rt := provider.RemoteTask{
		ID:          gt.ID,
		Title:       gt.Title,
		NotesFormat: contentTypeText,
		Completed:   gt.Status == statusCompleted,
		Due:         parseGraphTime(gt.DueDateTime),
		CompletedAt: parseGraphTime(gt.CompletedDateTime),
	}

	if gt.Body != nil {
		rt.Notes = gt.Body.Content
		if strings.EqualFold(gt.Body.ContentType, contentTypeHTML) {
			rt.NotesFormat = contentTypeHTML
		}
	}

	for _, res := range gt.LinkedResources {
		rt.Attachments = append(rt.Attachments, task.AttachmentMeta{
			Name:      res.DisplayName,
			OriginURL: res.WebURL,
		})
	}

	return rt
}

// ToCanonical maps a remote task onto the canonical mutable fields. HTML
// task bodies are flattened to plain text before storage.
func (a *Adapter) ToCanonical(rt provider.RemoteTask) task.Fields {
	name := rt.Title
	if !rt.HasTitle() {
		name = provider.DefaultTaskName
	}

	notes := rt.Notes
	if rt.NotesFormat == contentTypeHTML {
		notes = stripHTML(notes)
	}

	f := task.Fields{
		Name:        name,
		Description: notes,
		DueDate:     rt.Due,
		Completed:   rt.Completed,
		Attachments: rt.Attachments,
	}
	if rt.Completed {
		f.CompletedAt = rt.CompletedAt
	}
	return f
}

// fromFields converts canonical fields into the Graph wire shape.
func fromFields(f task.Fields) todoTask {
	gt := todoTask{
		Title:  f.Name,
		Status: statusNotStarted,
		Body: &itemBody{
			Content:     f.Description,
			ContentType: contentTypeText,
		},
	}

	if f.DueDate != nil {
		gt.DueDateTime = graphTime(*f.DueDate)
	}

	if f.Completed {
		gt.Status = statusCompleted
		completedAt := time.Now()
		if f.CompletedAt != nil {
			completedAt = *f.CompletedAt
		}
		gt.CompletedDateTime = graphTime(completedAt)
	}

	return gt
}

// stripHTML reduces an HTML fragment to its text content. Block-level
// closers become newlines so paragraph structure survives; entities are
// unescaped afterwards.
func stripHTML(s string) string {
	if !strings.ContainsRune(s, '<') {
		return html.UnescapeString(s)
	}

	var b strings.Builder
	b.Grow(len(s))

	inTag := false
	tag := strings.Builder{}
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
			tag.Reset()
		case r == '>' && inTag:
			inTag = false
			if blockTag(tag.String()) {
				b.WriteByte('\n')
			}
		case inTag:
			tag.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}

	return strings.TrimSpace(html.UnescapeString(b.String()))
}

// blockTag reports whether a raw tag body names an element whose boundary
// should translate to a line break.
func blockTag(raw string) bool {
	raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "/"))
	raw = strings.TrimPrefix(raw, "/")
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return false
	}
	switch strings.ToLower(fields[0]) {
	case "br", "p", "div", "li", "tr":
		return true
	}
	return false
}
