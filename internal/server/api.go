package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/teemow/tasksync/internal/credential"
	"github.com/teemow/tasksync/internal/instrumentation"
	"github.com/teemow/tasksync/internal/logging"
	"github.com/teemow/tasksync/internal/oauth"
	"github.com/teemow/tasksync/internal/sync"
	"github.com/teemow/tasksync/internal/task"
)

// Connection status values reported by the status endpoint.
const (
	StatusConnected    = "connected"
	StatusNotConnected = "not_connected"
	StatusReauthNeeded = "reauth_required"
)

// API is the HTTP boundary of the service: the OAuth connect/callback flow,
// sync triggering, disconnect and status per provider.
type API struct {
	engine   *sync.Engine
	managers map[string]*oauth.Manager
	creds    credential.Store
	tasks    task.Store

	metrics *instrumentation.Metrics
	audit   *instrumentation.AuditLogger
	logger  *slog.Logger

	// baseURL is the public URL the OAuth redirect URIs are built from.
	baseURL string
	// successURL is where the browser lands after a completed consent flow.
	// Empty means the callback answers with JSON instead of redirecting.
	successURL string
}

// APIConfig wires the API handlers to their dependencies.
type APIConfig struct {
	Engine     *sync.Engine
	Managers   []*oauth.Manager
	Creds      credential.Store
	Tasks      task.Store
	Metrics    *instrumentation.Metrics
	Audit      *instrumentation.AuditLogger
	Logger     *slog.Logger
	BaseURL    string
	SuccessURL string
}

// NewAPI creates the HTTP API. BaseURL is required because the OAuth
// callback URI is derived from it.
func NewAPI(cfg APIConfig) (*API, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("sync engine is required")
	}
	if cfg.Creds == nil || cfg.Tasks == nil {
		return nil, fmt.Errorf("credential and task stores are required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if err := validateHTTPSRequirement(cfg.BaseURL); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Audit == nil {
		cfg.Audit = instrumentation.NewAuditLogger(cfg.Logger)
	}

	managers := make(map[string]*oauth.Manager, len(cfg.Managers))
	for _, m := range cfg.Managers {
		managers[m.Provider()] = m
	}

	return &API{
		engine:     cfg.Engine,
		managers:   managers,
		creds:      cfg.Creds,
		tasks:      cfg.Tasks,
		metrics:    cfg.Metrics,
		audit:      cfg.Audit,
		logger:     cfg.Logger,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		successURL: cfg.SuccessURL,
	}, nil
}

// Register mounts all API routes on the mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.Handle("GET /api/providers/{provider}/connect", a.instrument("/api/providers/{provider}/connect", a.handleConnect))
	mux.Handle("GET /api/providers/{provider}/callback", a.instrument("/api/providers/{provider}/callback", a.handleCallback))
	mux.Handle("POST /api/providers/{provider}/sync", a.instrument("/api/providers/{provider}/sync", a.handleSync))
	mux.Handle("DELETE /api/providers/{provider}", a.instrument("/api/providers/{provider}", a.handleDisconnect))
	mux.Handle("GET /api/providers/{provider}/status", a.instrument("/api/providers/{provider}/status", a.handleStatus))
}

// RedirectURI returns the OAuth callback URI registered with the provider.
func (a *API) RedirectURI(provider string) string {
	return a.baseURL + "/api/providers/" + provider + "/callback"
}

// handleConnect starts the consent flow and hands the authorization URL to
// the caller.
func (a *API) handleConnect(w http.ResponseWriter, r *http.Request) {
	providerName := r.PathValue("provider")
	m, ok := a.managers[providerName]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_provider", "no such provider: "+providerName)
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing_user_id", "user_id query parameter is required")
		return
	}

	authURL, state, err := m.BuildAuthorizationURL(userID, a.RedirectURI(providerName))
	if err != nil {
		a.logger.Error("failed to build authorization URL",
			logging.Provider(providerName),
			logging.Err(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "could not start authorization")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"authorization_url": authURL,
		"state":             state,
	})
}

// handleCallback finishes the consent flow: validates the CSRF state,
// exchanges the code and persists the credential.
func (a *API) handleCallback(w http.ResponseWriter, r *http.Request) {
	providerName := r.PathValue("provider")
	m, ok := a.managers[providerName]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_provider", "no such provider: "+providerName)
		return
	}

	ev := instrumentation.NewLifecycleEvent(instrumentation.ActionCallback).WithProvider(providerName)

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		a.recordAuth(r, providerName, instrumentation.OAuthResultFailure)
		a.audit.LogEvent(ev.CompleteWithError(errors.New(errParam)))
		writeError(w, http.StatusBadRequest, "consent_denied", errParam)
		return
	}

	state := r.URL.Query().Get("state")
	userID, ok := m.ConsumeState(state)
	if !ok {
		a.recordAuth(r, providerName, instrumentation.OAuthResultFailure)
		a.audit.LogEvent(ev.CompleteWithError(errors.New("invalid or expired state")))
		writeError(w, http.StatusBadRequest, "invalid_state", "state is invalid, expired or already used")
		return
	}
	ev.WithUser(userID)

	code := r.URL.Query().Get("code")
	cred, err := m.ExchangeCode(r.Context(), code, a.RedirectURI(providerName))
	if err != nil {
		a.recordAuth(r, providerName, instrumentation.OAuthResultFailure)
		a.audit.LogEvent(ev.CompleteWithError(err))
		a.logger.Error("authorization code exchange failed",
			logging.Provider(providerName),
			logging.UserHash(userID),
			logging.Err(err))
		writeError(w, http.StatusBadGateway, "auth_exchange_failed", "could not exchange authorization code")
		return
	}

	cred.UserID = userID
	if _, err := a.creds.Upsert(r.Context(), cred); err != nil {
		a.audit.LogEvent(ev.CompleteWithError(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "could not store credential")
		return
	}

	a.recordAuth(r, providerName, instrumentation.OAuthResultSuccess)
	a.audit.LogEvent(ev.CompleteSuccess())

	if a.successURL != "" {
		http.Redirect(w, r, a.successURL, http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"provider":  providerName,
		"connected": true,
	})
}

// handleSync triggers one reconciliation pass for the pair.
func (a *API) handleSync(w http.ResponseWriter, r *http.Request) {
	providerName := r.PathValue("provider")

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing_user_id", "user_id query parameter is required")
		return
	}

	ev := instrumentation.NewLifecycleEvent(instrumentation.ActionSync).
		WithUser(userID).
		WithProvider(providerName).
		WithSpanContext(r.Context())

	res, err := a.engine.Reconcile(r.Context(), userID, providerName)
	if err != nil {
		a.audit.LogEvent(ev.CompleteWithError(err))

		var reauth *oauth.ReauthRequiredError
		switch {
		case errors.Is(err, sync.ErrUnknownProvider):
			writeError(w, http.StatusNotFound, "unknown_provider", "no such provider: "+providerName)
		case errors.Is(err, sync.ErrSyncInProgress):
			writeError(w, http.StatusConflict, "sync_in_progress", "a pass for this user and provider is already running")
		case sync.IsNotConnected(err):
			writeError(w, http.StatusUnauthorized, StatusNotConnected, "connect the provider before syncing")
		case errors.As(err, &reauth):
			writeError(w, http.StatusUnauthorized, StatusReauthNeeded, "stored credential is no longer usable, reconnect the provider")
		default:
			a.logger.Error("reconciliation pass failed",
				logging.Provider(providerName),
				logging.UserHash(userID),
				logging.Err(err))
			writeError(w, http.StatusBadGateway, "sync_failed", err.Error())
		}
		return
	}

	a.audit.LogEvent(ev.WithSyncCounts(res.Created, res.Updated, res.Errors).Complete(res.Success, nil))
	writeJSON(w, http.StatusOK, res)
}

// handleDisconnect clears provider links and deletes the credential. Tasks
// survive a disconnect; only their links go away.
func (a *API) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	providerName := r.PathValue("provider")

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing_user_id", "user_id query parameter is required")
		return
	}

	ev := instrumentation.NewLifecycleEvent(instrumentation.ActionDisconnect).
		WithUser(userID).
		WithProvider(providerName)

	unlinked, err := a.tasks.ClearProviderLinks(r.Context(), userID, providerName)
	if err != nil {
		a.audit.LogEvent(ev.CompleteWithError(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "could not unlink tasks")
		return
	}

	deleted, err := a.creds.Delete(r.Context(), userID, providerName)
	if err != nil {
		a.audit.LogEvent(ev.CompleteWithError(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "could not delete credential")
		return
	}

	a.audit.LogEvent(ev.CompleteSuccess())
	a.logger.Info("provider disconnected",
		logging.Provider(providerName),
		logging.UserHash(userID),
		"unlinked_tasks", unlinked,
		"credential_deleted", deleted)

	writeJSON(w, http.StatusOK, map[string]any{
		"provider":       providerName,
		"disconnected":   deleted,
		"unlinked_tasks": unlinked,
	})
}

// handleStatus reports whether the pair is usable for sync.
func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	providerName := r.PathValue("provider")

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing_user_id", "user_id query parameter is required")
		return
	}

	cred, found, err := a.creds.Find(r.Context(), userID, providerName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "could not read credential")
		return
	}

	status := StatusConnected
	switch {
	case !found || cred.AccessToken == "":
		status = StatusNotConnected
	case cred.RefreshToken == "" && !cred.Expiry.After(time.Now()):
		// Expired with nothing to refresh from: only re-consent helps.
		status = StatusReauthNeeded
	}

	body := map[string]any{
		"provider": providerName,
		"status":   status,
	}
	if found && status != StatusNotConnected {
		body["expiry"] = cred.Expiry
	}
	writeJSON(w, http.StatusOK, body)
}

// instrument wraps a handler with a server span and HTTP request metrics,
// both keyed by route pattern to keep label cardinality bounded.
func (a *API) instrument(route string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := instrumentation.StartSpan(r.Context(), r.Method+" "+route)
		defer span.End()
		r = r.WithContext(ctx)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		h(rec, r)

		if rec.status >= http.StatusInternalServerError {
			instrumentation.SetSpanError(span, fmt.Errorf("http %d", rec.status))
		}
		if a.metrics != nil {
			a.metrics.RecordHTTPRequest(ctx, r.Method, route, rec.status, time.Since(start))
		}
	})
}

func (a *API) recordAuth(r *http.Request, provider, result string) {
	if a.metrics != nil {
		a.metrics.RecordOAuthAuth(r.Context(), provider, result)
	}
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}
