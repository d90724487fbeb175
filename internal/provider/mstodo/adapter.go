package mstodo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/teemow/tasksync/internal/provider"
	"github.com/teemow/tasksync/internal/task"
)

const (
	wellknownDefaultList = "defaultList"
	pageSize             = 100
)

// Adapter implements provider.Adapter against the Microsoft Graph To Do
// API. All operations target the user's default task list, which is
// resolved per call from the wellknownListName marker.
type Adapter struct {
	client *client
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithHTTPClient replaces the HTTP client used for Graph requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(a *Adapter) {
		a.client.httpClient = httpClient
	}
}

// WithBaseURL points the adapter at an alternate Graph endpoint.
func WithBaseURL(baseURL string) Option {
	return func(a *Adapter) {
		a.client = newClient(a.client.httpClient, baseURL)
	}
}

func NewAdapter(opts ...Option) *Adapter {
	a := &Adapter{client: newClient(nil, "")}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the provider key this adapter serves.
func (a *Adapter) Name() string {
	return provider.MicrosoftTodo
}

// defaultListID resolves the user's default To Do list, walking list pages
// until the wellknown marker is found. The first list is used as a fallback
// for accounts that never report the marker.
func (a *Adapter) defaultListID(ctx context.Context, accessToken string) (string, error) {
	const op = "lists"

	next := "/me/todo/lists"
	first := ""
	for next != "" {
		var page listPage
		if err := a.client.do(ctx, op, http.MethodGet, next, accessToken, nil, &page); err != nil {
			return "", err
		}
		for _, list := range page.Value {
			if first == "" {
				first = list.ID
			}
			if list.WellknownListName == wellknownDefaultList {
				return list.ID, nil
			}
		}
		next = page.NextLink
	}

	if first == "" {
		return "", &provider.Error{
			Provider: provider.MicrosoftTodo,
			Op:       op,
			Err:      fmt.Errorf("account has no task lists"),
		}
	}
	return first, nil
}

// ListTasks walks every task in the default list and hands each one to fn.
// Continuation links are followed transparently; a non-nil error from fn
// stops the walk and is returned unchanged.
func (a *Adapter) ListTasks(ctx context.Context, accessToken string, opts provider.ListOptions, fn func(provider.RemoteTask) error) error {
	const op = "tasks.list"

	listID, err := a.defaultListID(ctx, accessToken)
	if err != nil {
		return err
	}

	query := url.Values{}
	query.Set("$top", fmt.Sprint(pageSize))
	if !opts.IncludeCompleted {
		query.Set("$filter", "status ne 'completed'")
	}

	next := fmt.Sprintf("/me/todo/lists/%s/tasks?%s", url.PathEscape(listID), query.Encode())
	for next != "" {
		var page taskPage
		if err := a.client.do(ctx, op, http.MethodGet, next, accessToken, nil, &page); err != nil {
			return err
		}
		for _, gt := range page.Value {
			if err := fn(toRemote(gt)); err != nil {
				return err
			}
		}
		next = page.NextLink
	}

	return nil
}

// Create inserts a task into the default list and returns its remote ID.
func (a *Adapter) Create(ctx context.Context, accessToken string, f task.Fields) (string, error) {
	const op = "tasks.create"

	listID, err := a.defaultListID(ctx, accessToken)
	if err != nil {
		return "", err
	}

	var created todoTask
	path := fmt.Sprintf("/me/todo/lists/%s/tasks", url.PathEscape(listID))
	if err := a.client.do(ctx, op, http.MethodPost, path, accessToken, fromFields(f), &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// Update patches an existing task in the default list.
func (a *Adapter) Update(ctx context.Context, accessToken, taskID string, f task.Fields) error {
	const op = "tasks.update"

	listID, err := a.defaultListID(ctx, accessToken)
	if err != nil {
		return err
	}

	path := fmt.Sprintf("/me/todo/lists/%s/tasks/%s", url.PathEscape(listID), url.PathEscape(taskID))
	return a.client.do(ctx, op, http.MethodPatch, path, accessToken, fromFields(f), nil)
}

// Delete removes a task from the default list.
func (a *Adapter) Delete(ctx context.Context, accessToken, taskID string) error {
	const op = "tasks.delete"

	listID, err := a.defaultListID(ctx, accessToken)
	if err != nil {
		return err
	}

	path := fmt.Sprintf("/me/todo/lists/%s/tasks/%s", url.PathEscape(listID), url.PathEscape(taskID))
	return a.client.do(ctx, op, http.MethodDelete, path, accessToken, nil, nil)
}
