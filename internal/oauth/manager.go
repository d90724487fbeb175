package oauth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/tasksync/internal/credential"
	"github.com/teemow/tasksync/internal/logging"
)

// RefreshWindow is how close to expiry an access token may get before the
// manager refreshes it proactively.
const RefreshWindow = 5 * time.Minute

// Config holds the OAuth client settings for one provider.
type Config struct {
	// Provider is the provider key this manager serves (e.g. "googletasks").
	Provider string

	ClientID     string
	ClientSecret string
	Endpoint     oauth2.Endpoint
	Scopes       []string

	// StateTTL overrides the default CSRF state lifetime. Zero means
	// DefaultStateTTL.
	StateTTL time.Duration
}

// Manager issues authorization URLs, exchanges authorization codes and keeps
// access tokens fresh for one provider. It never persists anything itself;
// refreshed credentials are handed back through a callback so the caller can
// store them.
type Manager struct {
	provider string
	conf     *oauth2.Config
	states   *StateStore
	logger   *slog.Logger
	now      func() time.Time
}

// NewManager creates a token manager for one provider. A nil logger falls
// back to slog.Default().
func NewManager(cfg Config, logger *slog.Logger) (*Manager, error) {
	if cfg.Provider == "" {
		return nil, fmt.Errorf("provider cannot be empty")
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("client ID and secret are required for provider %s", cfg.Provider)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		provider: cfg.Provider,
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     cfg.Endpoint,
			Scopes:       cfg.Scopes,
		},
		states: NewStateStore(cfg.StateTTL),
		logger: logger,
		now:    time.Now,
	}, nil
}

// Provider returns the provider key this manager serves.
func (m *Manager) Provider() string {
	return m.provider
}

// BuildAuthorizationURL returns the provider consent URL carrying a fresh
// CSRF state bound to the user, plus the state itself.
func (m *Manager) BuildAuthorizationURL(userID, redirectURI string) (string, string, error) {
	state, err := m.states.Issue(userID)
	if err != nil {
		return "", "", err
	}

	conf := m.redirectConfig(redirectURI)
	// Offline access so the provider issues a refresh token on first consent.
	url := conf.AuthCodeURL(state, oauth2.AccessTypeOffline)

	return url, state, nil
}

// ConsumeState validates and invalidates a CSRF state, returning the user it
// was issued for. States are single-use and expire after the configured TTL.
func (m *Manager) ConsumeState(state string) (string, bool) {
	return m.states.Consume(state)
}

// ExchangeCode performs the one-shot authorization code exchange and returns
// a credential for the provider. The caller fills in the user ID before
// persisting it.
func (m *Manager) ExchangeCode(ctx context.Context, code, redirectURI string) (credential.Credential, error) {
	conf := m.redirectConfig(redirectURI)

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return credential.Credential{}, &AuthExchangeError{Provider: m.provider, Err: err}
	}

	m.logger.Info("exchanged authorization code",
		logging.Provider(m.provider),
		"expiry", tok.Expiry)

	return credential.Credential{
		Provider:     m.provider,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
		Scopes:       m.conf.Scopes,
	}, nil
}

// ValidAccessToken returns an access token that is good for at least
// RefreshWindow. When the stored token expires sooner it is refreshed via
// the refresh token and onRefreshed is invoked with the updated credential
// so the caller can persist it. The previous refresh token is retained when
// the provider does not rotate it.
func (m *Manager) ValidAccessToken(ctx context.Context, cred credential.Credential, onRefreshed func(credential.Credential) error) (string, error) {
	if cred.Expiry.After(m.now().Add(RefreshWindow)) {
		return cred.AccessToken, nil
	}

	if cred.RefreshToken == "" {
		return "", &ReauthRequiredError{Provider: m.provider, Reason: "no refresh token available"}
	}

	ts := m.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken})
	tok, err := ts.Token()
	if err != nil {
		return "", &ReauthRequiredError{Provider: m.provider, Reason: "token refresh rejected", Err: err}
	}

	cred.AccessToken = tok.AccessToken
	cred.Expiry = tok.Expiry
	if tok.RefreshToken != "" {
		cred.RefreshToken = tok.RefreshToken
	}

	if onRefreshed != nil {
		if err := onRefreshed(cred); err != nil {
			return "", fmt.Errorf("failed to persist refreshed credential: %w", err)
		}
	}

	m.logger.Debug("refreshed access token",
		logging.Provider(m.provider),
		logging.UserHash(cred.UserID),
		"expiry", cred.Expiry)

	return cred.AccessToken, nil
}

// redirectConfig returns a copy of the OAuth config bound to a redirect URI.
func (m *Manager) redirectConfig(redirectURI string) *oauth2.Config {
	conf := *m.conf
	conf.RedirectURL = redirectURI
	return &conf
}
