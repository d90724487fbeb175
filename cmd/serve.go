package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"

	"github.com/teemow/tasksync/internal/credential"
	"github.com/teemow/tasksync/internal/instrumentation"
	"github.com/teemow/tasksync/internal/oauth"
	"github.com/teemow/tasksync/internal/provider"
	"github.com/teemow/tasksync/internal/provider/googletasks"
	"github.com/teemow/tasksync/internal/provider/mstodo"
	"github.com/teemow/tasksync/internal/server"
	"github.com/teemow/tasksync/internal/sync"
	"github.com/teemow/tasksync/internal/task"
)

// Default OAuth scopes per provider. Overridable via flags for deployments
// with narrower consent requirements.
var (
	defaultGoogleScopes    = []string{"https://www.googleapis.com/auth/tasks"}
	defaultMicrosoftScopes = []string{"offline_access", "Tasks.ReadWrite"}
)

// ProviderCredentials holds one provider's OAuth client settings.
type ProviderCredentials struct {
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

func newServeCmd() *cobra.Command {
	var (
		debugMode  bool
		httpAddr   string
		baseURL    string
		successURL string
		// Provider OAuth clients
		googleClientID        string
		googleClientSecret    string
		googleScopes          string
		microsoftClientID     string
		microsoftClientSecret string
		microsoftScopes       string
		microsoftTenant       string
		// Metrics server configuration
		metricsEnabled bool
		metricsAddr    string
		// Audit logging
		auditIncludePII bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the sync service",
		Long: `Start the task synchronization service with its HTTP API.

The service exposes per-provider endpoints under /api/providers/{provider}
for connecting accounts via OAuth, triggering reconciliation passes,
checking connection status and disconnecting.

OAuth Configuration:
  Base URL (required for deployed instances):
    --base-url https://your-domain.com OR TASKSYNC_BASE_URL env var
    Auto-detected for localhost (development only)

  Provider clients:
    --google-client-id and --google-client-secret flags
    OR GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars
    --microsoft-client-id and --microsoft-client-secret flags
    OR MS_CLIENT_ID and MS_CLIENT_SECRET env vars

  A provider without a configured client is simply not served.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Environment fallbacks for everything not set via flags.
			if googleClientID == "" {
				googleClientID = os.Getenv("GOOGLE_CLIENT_ID")
			}
			if googleClientSecret == "" {
				googleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
			}
			if microsoftClientID == "" {
				microsoftClientID = os.Getenv("MS_CLIENT_ID")
			}
			if microsoftClientSecret == "" {
				microsoftClientSecret = os.Getenv("MS_CLIENT_SECRET")
			}
			if baseURL == "" {
				baseURL = os.Getenv("TASKSYNC_BASE_URL")
			}
			if successURL == "" {
				successURL = os.Getenv("TASKSYNC_SUCCESS_URL")
			}
			if !cmd.Flags().Changed("metrics-addr") {
				if addr := os.Getenv("METRICS_ADDR"); addr != "" {
					metricsAddr = addr
				}
			}
			if !cmd.Flags().Changed("metrics-enabled") {
				if os.Getenv("METRICS_ENABLED") == "false" {
					metricsEnabled = false
				}
			}
			if !auditIncludePII && os.Getenv("AUDIT_LOGGING_INCLUDE_PII") == "true" {
				auditIncludePII = true
			}

			googleCreds := ProviderCredentials{
				ClientID:     googleClientID,
				ClientSecret: googleClientSecret,
				Scopes:       scopesOrDefault(googleScopes, defaultGoogleScopes),
			}
			microsoftCreds := ProviderCredentials{
				ClientID:     microsoftClientID,
				ClientSecret: microsoftClientSecret,
				Scopes:       scopesOrDefault(microsoftScopes, defaultMicrosoftScopes),
			}

			return runServe(serveConfig{
				Debug:           debugMode,
				HTTPAddr:        httpAddr,
				BaseURL:         baseURL,
				SuccessURL:      successURL,
				Google:          googleCreds,
				Microsoft:       microsoftCreds,
				MicrosoftTenant: microsoftTenant,
				Metrics:         MetricsConfig{Enabled: metricsEnabled, Addr: metricsAddr},
				AuditIncludePII: auditIncludePII,
			})
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "HTTP server address")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Public base URL for OAuth redirect URIs. Required for deployed instances. Can also use TASKSYNC_BASE_URL env var. Example: https://tasksync.example.com")
	cmd.Flags().StringVar(&successURL, "success-url", "", "URL the browser is redirected to after a completed OAuth flow. Can also use TASKSYNC_SUCCESS_URL env var.")

	cmd.Flags().StringVar(&googleClientID, "google-client-id", "", "Google OAuth Client ID. Can also use GOOGLE_CLIENT_ID env var.")
	cmd.Flags().StringVar(&googleClientSecret, "google-client-secret", "", "Google OAuth Client Secret. Can also use GOOGLE_CLIENT_SECRET env var.")
	cmd.Flags().StringVar(&googleScopes, "google-scopes", "", "Comma-separated OAuth scopes for Google (default: Tasks read/write)")
	cmd.Flags().StringVar(&microsoftClientID, "microsoft-client-id", "", "Microsoft OAuth Client ID. Can also use MS_CLIENT_ID env var.")
	cmd.Flags().StringVar(&microsoftClientSecret, "microsoft-client-secret", "", "Microsoft OAuth Client Secret. Can also use MS_CLIENT_SECRET env var.")
	cmd.Flags().StringVar(&microsoftScopes, "microsoft-scopes", "", "Comma-separated OAuth scopes for Microsoft (default: offline_access, Tasks.ReadWrite)")
	cmd.Flags().StringVar(&microsoftTenant, "microsoft-tenant", "common", "Microsoft Entra tenant for the OAuth endpoints")

	// Metrics server flags
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "Metrics server address. Can also use METRICS_ADDR env var.")

	cmd.Flags().BoolVar(&auditIncludePII, "audit-include-pii", false, "Include full user identifiers in audit logs. Can also use AUDIT_LOGGING_INCLUDE_PII env var.")

	return cmd
}

type serveConfig struct {
	Debug           bool
	HTTPAddr        string
	BaseURL         string
	SuccessURL      string
	Google          ProviderCredentials
	Microsoft       ProviderCredentials
	MicrosoftTenant string
	Metrics         MetricsConfig
	AuditIncludePII bool
}

func runServe(cfg serveConfig) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	// Auto-detect a localhost base URL for development
	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("http://%s", cfg.HTTPAddr)
		if strings.HasPrefix(cfg.HTTPAddr, ":") {
			cfg.BaseURL = fmt.Sprintf("http://localhost%s", cfg.HTTPAddr)
		}
		logger.Info("no base URL configured, using auto-detected", "base_url", cfg.BaseURL)
	}

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instrConfig.AuditLogging.IncludePII = cfg.AuditIncludePII

	instrProvider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := instrProvider.Shutdown(shutdownCtx); err != nil {
			logger.Error("error during instrumentation shutdown", "error", err)
		}
	}()

	// Start metrics server if enabled
	var metricsServer *server.MetricsServer
	if cfg.Metrics.Enabled && instrProvider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.Metrics.Addr,
			Enabled:                 true,
			InstrumentationProvider: instrProvider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		// Use ready channel to confirm metrics server started successfully
		metricsReady := make(chan struct{})
		metricsErr := make(chan error, 1)
		go func() {
			if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && err != http.ErrServerClosed {
				metricsErr <- err
			}
			close(metricsErr)
		}()

		select {
		case <-metricsReady:
			logger.Info("metrics server started", "addr", metricsServer.Addr())
		case err := <-metricsErr:
			return fmt.Errorf("metrics server failed to start: %w", err)
		case <-time.After(5 * time.Second):
			return fmt.Errorf("metrics server startup timed out")
		}

		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("error during metrics server shutdown", "error", err)
			}
		}()
	}

	creds := credential.NewMemoryStore()
	tasks := task.NewMemoryStore()

	engine := sync.NewEngine(creds, tasks, logger, sync.WithMetrics(instrProvider.Metrics()))

	var managers []*oauth.Manager

	if cfg.Google.ClientID != "" && cfg.Google.ClientSecret != "" {
		m, err := oauth.NewManager(oauth.Config{
			Provider:     provider.GoogleTasks,
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       cfg.Google.Scopes,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to configure Google OAuth: %w", err)
		}
		managers = append(managers, m)
		engine.Register(googletasks.NewAdapter(), m)
	}

	if cfg.Microsoft.ClientID != "" && cfg.Microsoft.ClientSecret != "" {
		m, err := oauth.NewManager(oauth.Config{
			Provider:     provider.MicrosoftTodo,
			ClientID:     cfg.Microsoft.ClientID,
			ClientSecret: cfg.Microsoft.ClientSecret,
			Endpoint:     microsoft.AzureADEndpoint(cfg.MicrosoftTenant),
			Scopes:       cfg.Microsoft.Scopes,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to configure Microsoft OAuth: %w", err)
		}
		managers = append(managers, m)
		engine.Register(mstodo.NewAdapter(), m)
	}

	if len(managers) == 0 {
		return fmt.Errorf("no provider configured: set Google or Microsoft OAuth client credentials")
	}

	audit := instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging)

	api, err := server.NewAPI(server.APIConfig{
		Engine:     engine,
		Managers:   managers,
		Creds:      creds,
		Tasks:      tasks,
		Metrics:    instrProvider.Metrics(),
		Audit:      audit,
		Logger:     logger,
		BaseURL:    cfg.BaseURL,
		SuccessURL: cfg.SuccessURL,
	})
	if err != nil {
		return fmt.Errorf("failed to create API: %w", err)
	}

	srv := server.NewServer(cfg.HTTPAddr, api, server.NewHealthChecker(), logger)

	logger.Info("tasksync service starting",
		"addr", cfg.HTTPAddr,
		"base_url", cfg.BaseURL,
		"providers", engine.Providers())

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := srv.Start(); err != nil {
			serverDone <- err
		}
	}()

	select {
	case <-shutdownCtx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(stopCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}

// scopesOrDefault parses a comma-separated scope override, falling back to
// the provider defaults.
func scopesOrDefault(override string, def []string) []string {
	if parsed := parseCommaSeparatedList(override); parsed != nil {
		return parsed
	}
	return def
}

// parseCommaSeparatedList parses a comma-separated string into a slice,
// trimming whitespace from each element and filtering out empty strings.
// Returns nil if the input is empty or contains only whitespace/commas.
func parseCommaSeparatedList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
