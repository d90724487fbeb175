package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/teemow/tasksync/internal/credential"
	"github.com/teemow/tasksync/internal/oauth"
	"github.com/teemow/tasksync/internal/provider"
	"github.com/teemow/tasksync/internal/task"
)

// fakeAdapter implements provider.Adapter over a fixed slice of remote
// tasks and records the mutations pushed at it.
type fakeAdapter struct {
	name    string
	remote  []provider.RemoteTask
	listErr error

	created []task.Fields
	updated map[string]task.Fields
	deleted []string

	createErr error
	updateErr error
	deleteErr error
	nextID    string
}

func newFakeAdapter(name string, remote ...provider.RemoteTask) *fakeAdapter {
	return &fakeAdapter{
		name:    name,
		remote:  remote,
		updated: make(map[string]task.Fields),
		nextID:  "remote-new",
	}
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) ListTasks(_ context.Context, _ string, _ provider.ListOptions, fn func(provider.RemoteTask) error) error {
	for _, rt := range f.remote {
		if err := fn(rt); err != nil {
			return err
		}
	}
	return f.listErr
}

func (f *fakeAdapter) ToCanonical(rt provider.RemoteTask) task.Fields {
	name := rt.Title
	if !rt.HasTitle() {
		name = provider.DefaultTaskName
	}
	return task.Fields{
		Name:        name,
		Description: rt.Notes,
		DueDate:     rt.Due,
		Completed:   rt.Completed,
		CompletedAt: rt.CompletedAt,
		Attachments: rt.Attachments,
	}
}

func (f *fakeAdapter) Create(_ context.Context, _ string, fields task.Fields) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, fields)
	return f.nextID, nil
}

func (f *fakeAdapter) Update(_ context.Context, _ string, id string, fields task.Fields) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated[id] = fields
	return nil
}

func (f *fakeAdapter) Delete(_ context.Context, _ string, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

// staticTokens satisfies TokenSource without ever refreshing.
type staticTokens struct {
	token string
	err   error
}

func (s staticTokens) ValidAccessToken(context.Context, credential.Credential, func(credential.Credential) error) (string, error) {
	return s.token, s.err
}

func connectedEngine(t *testing.T, adapter *fakeAdapter) (*Engine, task.Store) {
	t.Helper()

	creds := credential.NewMemoryStore()
	tasks := task.NewMemoryStore()

	_, err := creds.Upsert(context.Background(), credential.Credential{
		UserID:      "u-1",
		Provider:    adapter.name,
		AccessToken: "tok",
		Expiry:      time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("seeding credential: %v", err)
	}

	e := NewEngine(creds, tasks, nil)
	e.Register(adapter, staticTokens{token: "tok"})
	return e, tasks
}

func TestReconcile_NotConnected(t *testing.T) {
	adapter := newFakeAdapter("fake")
	e := NewEngine(credential.NewMemoryStore(), task.NewMemoryStore(), nil)
	e.Register(adapter, staticTokens{token: "tok"})

	_, err := e.Reconcile(context.Background(), "u-1", "fake")
	if !IsNotConnected(err) {
		t.Fatalf("Reconcile() error = %v, want NotConnectedError", err)
	}
}

func TestReconcile_EmptyAccessTokenIsNotConnected(t *testing.T) {
	creds := credential.NewMemoryStore()
	_, _ = creds.Upsert(context.Background(), credential.Credential{
		UserID:   "u-1",
		Provider: "fake",
	})

	e := NewEngine(creds, task.NewMemoryStore(), nil)
	e.Register(newFakeAdapter("fake"), staticTokens{token: "tok"})

	_, err := e.Reconcile(context.Background(), "u-1", "fake")
	if !IsNotConnected(err) {
		t.Fatalf("Reconcile() error = %v, want NotConnectedError", err)
	}
}

func TestReconcile_UnknownProvider(t *testing.T) {
	e := NewEngine(credential.NewMemoryStore(), task.NewMemoryStore(), nil)

	_, err := e.Reconcile(context.Background(), "u-1", "nope")
	if !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("Reconcile() error = %v, want ErrUnknownProvider", err)
	}
}

func TestReconcile_ReauthRequiredPropagates(t *testing.T) {
	creds := credential.NewMemoryStore()
	_, _ = creds.Upsert(context.Background(), credential.Credential{
		UserID:      "u-1",
		Provider:    "fake",
		AccessToken: "stale",
	})

	e := NewEngine(creds, task.NewMemoryStore(), nil)
	e.Register(newFakeAdapter("fake"), staticTokens{err: &oauth.ReauthRequiredError{Provider: "fake", Reason: "refresh rejected"}})

	_, err := e.Reconcile(context.Background(), "u-1", "fake")
	var reauth *oauth.ReauthRequiredError
	if !errors.As(err, &reauth) {
		t.Fatalf("Reconcile() error = %v, want ReauthRequiredError", err)
	}
}

func TestReconcile_CreatesAndUpdates(t *testing.T) {
	due := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	adapter := newFakeAdapter("fake",
		provider.RemoteTask{ID: "r-1", Title: "Buy milk", Due: &due},
		provider.RemoteTask{ID: "r-2", Title: "Water plants"},
	)
	e, tasks := connectedEngine(t, adapter)

	res, err := e.Reconcile(context.Background(), "u-1", "fake")
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if res.Created != 2 || res.Updated != 0 || res.Errors != 0 || !res.Success {
		t.Fatalf("first pass result = %+v", res)
	}

	// Remote content changed on one task; only that one counts as updated,
	// the untouched one needs no write.
	adapter.remote[0].Title = "Buy oat milk"

	res, err = e.Reconcile(context.Background(), "u-1", "fake")
	if err != nil {
		t.Fatalf("second Reconcile() error = %v", err)
	}
	if res.Created != 0 || res.Updated != 1 || res.Skipped != 1 {
		t.Fatalf("second pass result = %+v, want 0 created, 1 updated, 1 skipped", res)
	}

	got, found, err := tasks.FindByProviderLink(context.Background(), "u-1", "fake", "r-1")
	if err != nil || !found {
		t.Fatalf("FindByProviderLink() = %v, %v", found, err)
	}
	if got.Name != "Buy oat milk" {
		t.Errorf("remote change did not win: Name = %q", got.Name)
	}

	all, _ := tasks.ListByUser(context.Background(), "u-1")
	if len(all) != 2 {
		t.Errorf("store holds %d tasks after two passes, want 2", len(all))
	}
}

func TestReconcile_RepeatPassIsIdempotent(t *testing.T) {
	due := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	done := time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)
	adapter := newFakeAdapter("fake",
		provider.RemoteTask{ID: "r-1", Title: "Buy milk", Notes: "2%", Due: &due},
		provider.RemoteTask{ID: "r-2", Title: "Water plants", Completed: true, CompletedAt: &done},
	)
	e, tasks := connectedEngine(t, adapter)

	if _, err := e.Reconcile(context.Background(), "u-1", "fake"); err != nil {
		t.Fatalf("first Reconcile() error = %v", err)
	}

	res, err := e.Reconcile(context.Background(), "u-1", "fake")
	if err != nil {
		t.Fatalf("second Reconcile() error = %v", err)
	}
	if res.Created != 0 || res.Updated != 0 {
		t.Fatalf("pass over unchanged remote set = %+v, want 0 created and 0 updated", res)
	}
	if res.Skipped != 2 || !res.Success {
		t.Errorf("result = %+v, want 2 unchanged items and success", res)
	}

	all, _ := tasks.ListByUser(context.Background(), "u-1")
	if len(all) != 2 {
		t.Errorf("store holds %d tasks after two passes, want 2", len(all))
	}
}

func TestReconcile_SkipsTitleless(t *testing.T) {
	adapter := newFakeAdapter("fake",
		provider.RemoteTask{ID: "r-1", Title: "Real"},
		provider.RemoteTask{ID: "r-2", Title: "   "},
		provider.RemoteTask{ID: "r-3"},
	)
	e, tasks := connectedEngine(t, adapter)

	res, err := e.Reconcile(context.Background(), "u-1", "fake")
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if res.Created != 1 || res.Skipped != 2 {
		t.Fatalf("result = %+v, want 1 created and 2 skipped", res)
	}

	all, _ := tasks.ListByUser(context.Background(), "u-1")
	if len(all) != 1 {
		t.Errorf("title-less tasks must not reach the store: %d tasks", len(all))
	}
}

func TestReconcile_ListingFailureAbortsWithPartialResult(t *testing.T) {
	adapter := newFakeAdapter("fake",
		provider.RemoteTask{ID: "r-1", Title: "First"},
	)
	adapter.listErr = &provider.Error{Provider: "fake", Op: "tasks.list", StatusCode: 500, Err: errors.New("boom")}
	e, tasks := connectedEngine(t, adapter)

	res, err := e.Reconcile(context.Background(), "u-1", "fake")
	if err == nil {
		t.Fatal("Reconcile() should surface the listing failure")
	}
	if res == nil || res.Created != 1 {
		t.Fatalf("partial result = %+v, want the committed upsert counted", res)
	}

	// The upsert committed before the failure stands.
	_, found, _ := tasks.FindByProviderLink(context.Background(), "u-1", "fake", "r-1")
	if !found {
		t.Error("committed upsert was lost")
	}
}

func TestReconcile_DeadlineReturnsPartialResult(t *testing.T) {
	adapter := newFakeAdapter("fake",
		provider.RemoteTask{ID: "r-1", Title: "First"},
		provider.RemoteTask{ID: "r-2", Title: "Second"},
	)
	e, _ := connectedEngine(t, adapter)

	// An already-expired context: the pass stops at the first item and
	// hands back whatever was committed before the cutoff.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := e.Reconcile(ctx, "u-1", "fake")
	if err != nil {
		t.Fatalf("Reconcile() error = %v, want partial result with nil error", err)
	}
	if res.Success {
		t.Error("a deadline-cut pass must not report success")
	}
	if res.Err == "" {
		t.Error("expected an error summary on the partial result")
	}
	if res.Created != 0 {
		t.Errorf("Created = %d, want 0 with an already-cancelled context", res.Created)
	}
}

func TestReconcile_PerItemFailuresDoNotAbort(t *testing.T) {
	adapter := newFakeAdapter("fake",
		provider.RemoteTask{ID: "r-1", Title: "First"},
		provider.RemoteTask{ID: "r-2", Title: "Second"},
	)
	creds := credential.NewMemoryStore()
	_, _ = creds.Upsert(context.Background(), credential.Credential{
		UserID:      "u-1",
		Provider:    "fake",
		AccessToken: "tok",
		Expiry:      time.Now().Add(time.Hour),
	})

	store := &failingStore{Store: task.NewMemoryStore(), failCreateID: "r-1"}
	e := NewEngine(creds, store, nil)
	e.Register(adapter, staticTokens{token: "tok"})

	res, err := e.Reconcile(context.Background(), "u-1", "fake")
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if res.Errors != 1 || res.Created != 1 {
		t.Fatalf("result = %+v, want 1 error and 1 created", res)
	}
	if res.Success {
		t.Error("a pass with item failures must not report success")
	}
	if res.Err == "" {
		t.Error("expected an error summary")
	}
}

func TestReconcile_SecondCallerGetsSyncInProgress(t *testing.T) {
	adapter := newFakeAdapter("fake")
	e, _ := connectedEngine(t, adapter)

	if !e.inflight.TryAcquire("u-1", "fake") {
		t.Fatal("could not seed the in-flight lock")
	}
	defer e.inflight.Release("u-1", "fake")

	_, err := e.Reconcile(context.Background(), "u-1", "fake")
	if !errors.Is(err, ErrSyncInProgress) {
		t.Fatalf("Reconcile() error = %v, want ErrSyncInProgress", err)
	}

	// A different pair is unaffected.
	if _, err := e.Reconcile(context.Background(), "u-2", "fake"); !IsNotConnected(err) {
		t.Errorf("other user should reach the credential check, got %v", err)
	}
}

// failingStore wraps a task store and fails Create for one remote ID.
type failingStore struct {
	task.Store
	failCreateID string
}

func (s *failingStore) Create(ctx context.Context, t task.Task) (task.Task, error) {
	if t.Link != nil && t.Link.TaskID == s.failCreateID {
		return task.Task{}, errors.New("storage unavailable")
	}
	return s.Store.Create(ctx, t)
}
