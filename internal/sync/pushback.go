package sync

import (
	"context"
	"time"

	"github.com/teemow/tasksync/internal/instrumentation"
	"github.com/teemow/tasksync/internal/logging"
	"github.com/teemow/tasksync/internal/provider"
	"github.com/teemow/tasksync/internal/task"
)

// PushLocalChange mirrors a local create or update out to a provider. An
// unlinked task is created remotely and the new link is persisted; a linked
// task is updated in place. Push-back is best effort: callers log the
// returned error and keep their local mutation either way.
func (e *Engine) PushLocalChange(ctx context.Context, providerName string, t task.Task) (task.Task, error) {
	if t.IsLinked("") && t.Link.Provider != providerName {
		// Linked to another provider; that link owns the remote copy.
		return t, nil
	}

	reg, ok := e.regs[providerName]
	if !ok {
		return t, ErrUnknownProvider
	}

	accessToken, err := e.accessToken(ctx, t.UserID, providerName, reg)
	if err != nil {
		e.metrics.RecordPushBack(ctx, providerName, "change", logging.StatusError)
		return t, err
	}

	fields := taskFields(t)

	if t.IsLinked(providerName) {
		err := e.callProvider(ctx, providerName, instrumentation.OperationUpdate, func(ctx context.Context) error {
			return reg.adapter.Update(ctx, accessToken, t.Link.TaskID, fields)
		})
		if err != nil {
			e.metrics.RecordPushBack(ctx, providerName, "change", logging.StatusError)
			e.logger.Warn("failed to push local change",
				logging.Provider(providerName),
				logging.TaskID(t.ID),
				logging.Err(err))
			return t, err
		}
		e.metrics.RecordPushBack(ctx, providerName, "change", logging.StatusSuccess)
		return t, nil
	}

	var remoteID string
	err = e.callProvider(ctx, providerName, instrumentation.OperationCreate, func(ctx context.Context) error {
		var err error
		remoteID, err = reg.adapter.Create(ctx, accessToken, fields)
		return err
	})
	if err != nil {
		e.metrics.RecordPushBack(ctx, providerName, "change", logging.StatusError)
		e.logger.Warn("failed to push local create",
			logging.Provider(providerName),
			logging.TaskID(t.ID),
			logging.Err(err))
		return t, err
	}

	t.Link = &task.ProviderLink{Provider: providerName, TaskID: remoteID}
	updated, err := e.tasks.Update(ctx, t)
	if err != nil {
		// The remote copy exists but the link was lost; the next
		// reconciliation pass will re-link it by compound key.
		e.metrics.RecordPushBack(ctx, providerName, "change", logging.StatusError)
		return t, err
	}

	e.metrics.RecordPushBack(ctx, providerName, "change", logging.StatusSuccess)
	return updated, nil
}

// PushLocalDeletion removes the remote copy of a deleted local task. A
// remote "not found" counts as success: the copy is gone either way.
func (e *Engine) PushLocalDeletion(ctx context.Context, t task.Task) error {
	if !t.IsLinked("") {
		return nil
	}
	providerName := t.Link.Provider

	reg, ok := e.regs[providerName]
	if !ok {
		return ErrUnknownProvider
	}

	accessToken, err := e.accessToken(ctx, t.UserID, providerName, reg)
	if err != nil {
		e.metrics.RecordPushBack(ctx, providerName, "delete", logging.StatusError)
		return err
	}

	err = e.callProvider(ctx, providerName, instrumentation.OperationDelete, func(ctx context.Context) error {
		return reg.adapter.Delete(ctx, accessToken, t.Link.TaskID)
	})
	if err != nil {
		if provider.IsNotFound(err) {
			e.metrics.RecordPushBack(ctx, providerName, "delete", logging.StatusSuccess)
			return nil
		}
		e.metrics.RecordPushBack(ctx, providerName, "delete", logging.StatusError)
		e.logger.Warn("failed to push local deletion",
			logging.Provider(providerName),
			logging.TaskID(t.ID),
			logging.Err(err))
		return err
	}

	e.metrics.RecordPushBack(ctx, providerName, "delete", logging.StatusSuccess)
	return nil
}

// callProvider runs one provider API call inside a client span and records
// its duration and status. The status reflects the raw API outcome; callers
// decide what an error means for their own operation (a remote 404 on
// delete still counts as a successful push-back, for example).
func (e *Engine) callProvider(ctx context.Context, providerName, operation string, fn func(ctx context.Context) error) error {
	opCtx, span := instrumentation.StartProviderSpan(ctx, providerName, operation)
	defer span.End()

	started := time.Now()
	err := fn(opCtx)

	status := logging.StatusSuccess
	if err != nil {
		status = logging.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	e.metrics.RecordProviderOperation(ctx, providerName, operation, status, time.Since(started))
	return err
}

// taskFields projects a task onto its mutable fields for the wire.
func taskFields(t task.Task) task.Fields {
	return task.Fields{
		Name:        t.Name,
		Description: t.Description,
		DueDate:     t.DueDate,
		Completed:   t.Completed,
		CompletedAt: t.CompletedAt,
		Attachments: t.Attachments,
	}
}
