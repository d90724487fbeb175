package task

import "context"

// Store is the persistence boundary for canonical tasks. Implementations
// must treat (UserID, Link.Provider, Link.TaskID) as a unique compound key
// so reconciliation converges regardless of item order.
type Store interface {
	Create(ctx context.Context, t Task) (Task, error)
	Get(ctx context.Context, id string) (Task, bool, error)
	Update(ctx context.Context, t Task) (Task, error)
	Delete(ctx context.Context, id string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]Task, error)

	// FindByProviderLink looks up the task carrying the given provider link.
	FindByProviderLink(ctx context.Context, userID, provider, providerTaskID string) (Task, bool, error)

	// ClearProviderLinks removes the link from every task of the user that
	// points at the given provider and returns how many were unlinked.
	// Tasks themselves are never deleted by this call.
	ClearProviderLinks(ctx context.Context, userID, provider string) (int, error)
}
