package credential

import (
	"context"
	"time"
)

// Credential holds the OAuth tokens granted by one provider for one user.
// There is at most one credential per (user, provider) pair; refresh and
// re-consent update the record in place.
type Credential struct {
	UserID       string    `json:"user_id"`
	Provider     string    `json:"provider"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	Expiry       time.Time `json:"expiry"`
	Scopes       []string  `json:"scopes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store is the persistence boundary for credentials. Deleting a credential
// must never delete the tasks linked to its provider; callers clear provider
// links separately.
type Store interface {
	Find(ctx context.Context, userID, provider string) (Credential, bool, error)
	Upsert(ctx context.Context, c Credential) (Credential, error)
	Delete(ctx context.Context, userID, provider string) (bool, error)
}
