package googletasks

import (
	"context"
	"errors"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasksapi "google.golang.org/api/tasks/v1"

	"github.com/teemow/tasksync/internal/provider"
	"github.com/teemow/tasksync/internal/task"
)

const (
	// defaultTaskList is the special alias for the user's default list.
	defaultTaskList = "@default"

	// pageSize is the number of tasks requested per page.
	pageSize = 100
)

// Adapter implements provider.Adapter against the Google Tasks API.
// All operations run against the user's default task list.
type Adapter struct {
	// extraOpts lets tests point the service at a fake endpoint.
	extraOpts []option.ClientOption
}

// NewAdapter creates a Google Tasks adapter. The given client options are
// appended when building the API service, which tests use to inject an
// endpoint override.
func NewAdapter(opts ...option.ClientOption) *Adapter {
	return &Adapter{extraOpts: opts}
}

// Name returns the provider key.
func (a *Adapter) Name() string {
	return provider.GoogleTasks
}

// service builds a Tasks API service authenticated with the access token.
func (a *Adapter) service(ctx context.Context, accessToken string) (*tasksapi.Service, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, a.extraOpts...)

	svc, err := tasksapi.NewService(ctx, opts...)
	if err != nil {
		return nil, &provider.Error{Provider: provider.GoogleTasks, Op: "init", Err: err}
	}
	return svc, nil
}

// ListTasks walks the default list page by page, following NextPageToken
// until exhausted, and hands each task to fn.
func (a *Adapter) ListTasks(ctx context.Context, accessToken string, opts provider.ListOptions, fn func(provider.RemoteTask) error) error {
	svc, err := a.service(ctx, accessToken)
	if err != nil {
		return err
	}

	pageToken := ""
	for {
		call := svc.Tasks.List(defaultTaskList).
			MaxResults(pageSize).
			ShowDeleted(false).
			ShowCompleted(opts.IncludeCompleted).
			ShowHidden(opts.IncludeCompleted).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return a.wrapErr("list", err)
		}

		for _, t := range resp.Items {
			if err := fn(toRemote(t)); err != nil {
				return err
			}
		}

		if resp.NextPageToken == "" {
			return nil
		}
		pageToken = resp.NextPageToken
	}
}

// Create inserts a task into the default list and returns its Google ID.
func (a *Adapter) Create(ctx context.Context, accessToken string, fields task.Fields) (string, error) {
	svc, err := a.service(ctx, accessToken)
	if err != nil {
		return "", err
	}

	created, err := svc.Tasks.Insert(defaultTaskList, fromFields(fields)).Context(ctx).Do()
	if err != nil {
		return "", a.wrapErr("create", err)
	}
	return created.Id, nil
}

// Update overwrites a task in the default list.
func (a *Adapter) Update(ctx context.Context, accessToken, providerTaskID string, fields task.Fields) error {
	svc, err := a.service(ctx, accessToken)
	if err != nil {
		return err
	}

	body := fromFields(fields)
	body.Id = providerTaskID
	if _, err := svc.Tasks.Update(defaultTaskList, providerTaskID, body).Context(ctx).Do(); err != nil {
		return a.wrapErr("update", err)
	}
	return nil
}

// Delete removes a task from the default list.
func (a *Adapter) Delete(ctx context.Context, accessToken, providerTaskID string) error {
	svc, err := a.service(ctx, accessToken)
	if err != nil {
		return err
	}

	if err := svc.Tasks.Delete(defaultTaskList, providerTaskID).Context(ctx).Do(); err != nil {
		return a.wrapErr("delete", err)
	}
	return nil
}

// wrapErr converts API failures into *provider.Error, preserving the HTTP
// status when Google answered with one.
func (a *Adapter) wrapErr(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &provider.Error{Provider: provider.GoogleTasks, Op: op, StatusCode: gerr.Code, Err: err}
	}
	return &provider.Error{Provider: provider.GoogleTasks, Op: op, Err: err}
}
