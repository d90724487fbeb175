package sync

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/teemow/tasksync/internal/credential"
	"github.com/teemow/tasksync/internal/instrumentation"
	"github.com/teemow/tasksync/internal/logging"
	"github.com/teemow/tasksync/internal/oauth"
	"github.com/teemow/tasksync/internal/provider"
	"github.com/teemow/tasksync/internal/task"
)

// TokenSource hands out an access token that is valid for the near future,
// refreshing and persisting the credential when needed. *oauth.Manager
// satisfies this.
type TokenSource interface {
	ValidAccessToken(ctx context.Context, cred credential.Credential, onRefreshed func(credential.Credential) error) (string, error)
}

// MetricsRecorder receives the engine's measurements. Implementations must
// be safe for concurrent use.
type MetricsRecorder interface {
	RecordSyncPass(ctx context.Context, provider, status, userHash string, duration time.Duration)
	RecordTaskOutcome(ctx context.Context, provider, outcome string)
	RecordPushBack(ctx context.Context, provider, operation, status string)
	RecordProviderOperation(ctx context.Context, provider, operation, status string, duration time.Duration)
	RecordOAuthTokenRefresh(ctx context.Context, provider, result string)
	IncrementActiveSyncPasses(ctx context.Context)
	DecrementActiveSyncPasses(ctx context.Context)
}

type nopMetrics struct{}

func (nopMetrics) RecordSyncPass(context.Context, string, string, string, time.Duration) {}
func (nopMetrics) RecordTaskOutcome(context.Context, string, string)                     {}
func (nopMetrics) RecordPushBack(context.Context, string, string, string)                {}
func (nopMetrics) RecordProviderOperation(context.Context, string, string, string, time.Duration) {
}
func (nopMetrics) RecordOAuthTokenRefresh(context.Context, string, string) {}
func (nopMetrics) IncrementActiveSyncPasses(context.Context)               {}
func (nopMetrics) DecrementActiveSyncPasses(context.Context)               {}

type registration struct {
	adapter provider.Adapter
	tokens  TokenSource
}

// Engine reconciles remote task collections into the local store and pushes
// local mutations back out. One engine serves all registered providers; at
// most one reconciliation pass runs per (user, provider) pair at a time.
type Engine struct {
	creds    credential.Store
	tasks    task.Store
	regs     map[string]registration
	logger   *slog.Logger
	metrics  MetricsRecorder
	inflight *pairLock
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics attaches a metrics recorder to the engine.
func WithMetrics(m MetricsRecorder) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// NewEngine creates a sync engine over the given stores. Providers are
// attached with Register. A nil logger falls back to slog.Default().
func NewEngine(creds credential.Store, tasks task.Store, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		creds:    creds,
		tasks:    tasks,
		regs:     make(map[string]registration),
		logger:   logger,
		metrics:  nopMetrics{},
		inflight: newPairLock(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register attaches a provider adapter and its token source to the engine.
// The adapter's Name() is the provider key.
func (e *Engine) Register(adapter provider.Adapter, tokens TokenSource) {
	e.regs[adapter.Name()] = registration{adapter: adapter, tokens: tokens}
}

// Providers returns the provider keys the engine can sync.
func (e *Engine) Providers() []string {
	keys := make([]string, 0, len(e.regs))
	for k := range e.regs {
		keys = append(keys, k)
	}
	return keys
}

// Reconcile pulls the user's remote task collection for one provider into
// the local store. Remote content always wins on linked tasks; unlinked
// remote tasks become new linked local tasks. A linked task whose content
// already matches the remote value is left untouched, so a repeat pass over
// an unchanged collection reports zero creates and updates. Per-item
// failures are counted and the pass continues; token and listing failures
// abort it. When the context expires mid-pass the accumulated partial
// result is returned and already committed upserts stand.
func (e *Engine) Reconcile(ctx context.Context, userID, providerName string) (*Result, error) {
	reg, ok := e.regs[providerName]
	if !ok {
		return nil, ErrUnknownProvider
	}

	if !e.inflight.TryAcquire(userID, providerName) {
		return nil, ErrSyncInProgress
	}
	defer e.inflight.Release(userID, providerName)

	e.metrics.IncrementActiveSyncPasses(ctx)
	defer e.metrics.DecrementActiveSyncPasses(ctx)

	userHash := logging.AnonymizeUser(userID)
	ctx, span := instrumentation.StartSyncSpan(ctx, providerName,
		instrumentation.NewSpanAttributeBuilder().WithUserHash(userHash).Build()...)
	defer span.End()

	started := time.Now()
	log := e.logger.With(
		logging.Operation("sync.reconcile"),
		logging.Provider(providerName),
		logging.UserHash(userID))

	accessToken, err := e.accessToken(ctx, userID, providerName, reg)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		e.metrics.RecordSyncPass(ctx, providerName, logging.StatusError, userHash, time.Since(started))
		return nil, err
	}

	res := &Result{Provider: providerName}
	listStarted := time.Now()
	listCtx, listSpan := instrumentation.StartProviderSpan(ctx, providerName, instrumentation.OperationList)
	walkErr := reg.adapter.ListTasks(listCtx, accessToken, provider.ListOptions{IncludeCompleted: true}, func(rt provider.RemoteTask) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !rt.HasTitle() {
			res.Skipped++
			return nil
		}

		outcome, err := e.upsert(ctx, userID, providerName, reg.adapter, rt)
		if err != nil {
			res.Errors++
			e.metrics.RecordTaskOutcome(ctx, providerName, "error")
			log.Warn("failed to reconcile remote task",
				logging.TaskID(rt.ID),
				logging.Err(err))
			return nil
		}

		switch outcome.op {
		case opCreated:
			res.Created++
		case opUpdated:
			res.Updated++
		case opUnchanged:
			res.Skipped++
		}
		res.Tasks = append(res.Tasks, outcome.task)
		e.metrics.RecordTaskOutcome(ctx, providerName, outcome.op)
		return nil
	})
	listStatus := logging.StatusSuccess
	if walkErr != nil {
		listStatus = logging.StatusError
		instrumentation.SetSpanError(listSpan, walkErr)
	} else {
		instrumentation.SetSpanSuccess(listSpan)
	}
	listSpan.End()
	e.metrics.RecordProviderOperation(ctx, providerName, instrumentation.OperationList, listStatus, time.Since(listStarted))

	if walkErr != nil && !isContextErr(walkErr) {
		// Listing itself failed; whatever reconciled before the failure
		// is already committed, so hand the partial result back too.
		res.finish(started, walkErr)
		instrumentation.SetSpanError(span, walkErr)
		e.metrics.RecordSyncPass(ctx, providerName, logging.StatusError, userHash, res.Duration)
		log.Error("remote listing failed", logging.Err(walkErr))
		return res, walkErr
	}

	if isContextErr(walkErr) {
		instrumentation.AddSpanEvent(span, "pass cut short by context expiry")
		res.finish(started, walkErr)
	} else {
		res.finish(started, nil)
	}

	status := logging.StatusSuccess
	if res.Success {
		instrumentation.SetSpanSuccess(span)
	} else {
		status = logging.StatusError
		instrumentation.SetSpanError(span, errors.New(res.Err))
	}
	e.metrics.RecordSyncPass(ctx, providerName, status, userHash, res.Duration)

	log.Info("reconciliation pass finished",
		"created", res.Created,
		"updated", res.Updated,
		"skipped", res.Skipped,
		"errors", res.Errors,
		logging.Duration(res.Duration),
		logging.Status(status))

	return res, nil
}

const (
	opCreated   = "created"
	opUpdated   = "updated"
	opUnchanged = "unchanged"
)

type upsertOutcome struct {
	op   string
	task task.Task
}

// upsert reconciles one remote task by its (user, provider, remote ID)
// compound key. A linked task already matching the remote content is not
// rewritten; repeat passes stay idempotent that way.
func (e *Engine) upsert(ctx context.Context, userID, providerName string, adapter provider.Adapter, rt provider.RemoteTask) (upsertOutcome, error) {
	fields := adapter.ToCanonical(rt)

	existing, found, err := e.tasks.FindByProviderLink(ctx, userID, providerName, rt.ID)
	if err != nil {
		return upsertOutcome{}, err
	}

	if found {
		if existing.RemoteEqual(fields) {
			return upsertOutcome{op: opUnchanged, task: existing}, nil
		}
		existing.ApplyRemote(fields)
		updated, err := e.tasks.Update(ctx, existing)
		if err != nil {
			return upsertOutcome{}, err
		}
		return upsertOutcome{op: opUpdated, task: updated}, nil
	}

	t := task.New(userID, fields.Name, fields.Description)
	t.Link = &task.ProviderLink{Provider: providerName, TaskID: rt.ID}
	t.ApplyRemote(fields)

	created, err := e.tasks.Create(ctx, t)
	if err != nil {
		return upsertOutcome{}, err
	}
	return upsertOutcome{op: opCreated, task: created}, nil
}

// accessToken resolves a near-future-valid access token for the pair,
// failing fast with NotConnectedError when no usable credential exists.
// Refreshed credentials are persisted before the token is used.
func (e *Engine) accessToken(ctx context.Context, userID, providerName string, reg registration) (string, error) {
	cred, found, err := e.creds.Find(ctx, userID, providerName)
	if err != nil {
		return "", err
	}
	if !found || cred.AccessToken == "" {
		return "", &NotConnectedError{UserID: userID, Provider: providerName}
	}

	tok, err := reg.tokens.ValidAccessToken(ctx, cred, func(updated credential.Credential) error {
		if _, err := e.creds.Upsert(ctx, updated); err != nil {
			return err
		}
		e.metrics.RecordOAuthTokenRefresh(ctx, providerName, logging.StatusSuccess)
		return nil
	})
	if err != nil {
		var reauth *oauth.ReauthRequiredError
		if errors.As(err, &reauth) {
			e.metrics.RecordOAuthTokenRefresh(ctx, providerName, "failure")
		}
		return "", err
	}
	return tok, nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
