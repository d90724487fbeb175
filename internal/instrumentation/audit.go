package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Audit actions covering the credential and sync lifecycle.
const (
	ActionConnect      = "connect"
	ActionCallback     = "callback"
	ActionTokenRefresh = "token_refresh"
	ActionDisconnect   = "disconnect"
	ActionSync         = "sync"
	ActionPushBack     = "pushback"
)

// LifecycleEvent captures one credential or sync lifecycle action for audit
// logging. It provides the trail for every connect, token refresh, sync
// pass, push-back and disconnect.
//
// # Privacy Considerations
//
// The UserID field may be an email address and is treated as PII. When
// logging, consider:
//   - Using UserDomain() to get only the domain for metrics/general logs
//   - Only logging the full identifier in audit-specific log streams
//   - Ensuring audit logs have appropriate access controls
type LifecycleEvent struct {
	// Action is one of the Action* constants.
	Action string

	// User and provider identity
	UserID   string
	Provider string

	// Execution details
	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	// Sync pass counters, set for ActionSync only.
	Created int
	Updated int
	Errors  int

	// Tracing context
	TraceID string
	SpanID  string
}

// UserDomain returns the domain portion of the user identifier for
// lower-cardinality logging.
func (ev *LifecycleEvent) UserDomain() string {
	return ExtractUserDomain(ev.UserID)
}

// Status returns "success" or "error" based on the Success field.
func (ev *LifecycleEvent) Status() string {
	if ev.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns slog attributes for structured logging.
// This provides a consistent set of fields for all lifecycle event logs.
//
// # Cardinality
//
// This function uses cardinality-controlled values (user_domain)
// for metrics-compatible logging. For full audit logging, use LogAuditAttrs.
func (ev *LifecycleEvent) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("action", ev.Action),
		slog.String("provider", ev.Provider),
		slog.String("user_domain", ev.UserDomain()),
		slog.Duration("duration", ev.Duration),
		slog.Bool("success", ev.Success),
	}

	// Add optional fields only if present
	if ev.Action == ActionSync {
		attrs = append(attrs,
			slog.Int("created", ev.Created),
			slog.Int("updated", ev.Updated),
			slog.Int("errors", ev.Errors))
	}
	if ev.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ev.TraceID))
	}
	if ev.Error != "" {
		attrs = append(attrs, slog.String("error", ev.Error))
	}

	return attrs
}

// LogAuditAttrs returns slog attributes for full audit logging.
// This includes the full user identifier for compliance/audit purposes.
//
// # Security Warning
//
// This method includes PII. Ensure audit logs are:
//   - Stored securely with appropriate access controls
//   - Not exposed to general monitoring dashboards
//   - Retained according to compliance requirements
func (ev *LifecycleEvent) LogAuditAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("action", ev.Action),
		slog.String("provider", ev.Provider),
		slog.String("user", ev.UserID),
		slog.Duration("duration", ev.Duration),
		slog.Bool("success", ev.Success),
	}

	if ev.Action == ActionSync {
		attrs = append(attrs,
			slog.Int("created", ev.Created),
			slog.Int("updated", ev.Updated),
			slog.Int("errors", ev.Errors))
	}
	if ev.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ev.TraceID))
	}
	if ev.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ev.SpanID))
	}
	if ev.Error != "" {
		attrs = append(attrs, slog.String("error", ev.Error))
	}

	return attrs
}

// NewLifecycleEvent creates a new LifecycleEvent with timing started.
// Call Complete() when the action finishes.
func NewLifecycleEvent(action string) *LifecycleEvent {
	return &LifecycleEvent{
		Action:    action,
		StartTime: time.Now(),
	}
}

// WithUser sets the user identity.
func (ev *LifecycleEvent) WithUser(userID string) *LifecycleEvent {
	ev.UserID = userID
	return ev
}

// WithProvider sets the provider key.
func (ev *LifecycleEvent) WithProvider(provider string) *LifecycleEvent {
	ev.Provider = provider
	return ev
}

// WithSyncCounts sets the reconciliation counters for a sync event.
func (ev *LifecycleEvent) WithSyncCounts(created, updated, errs int) *LifecycleEvent {
	ev.Created = created
	ev.Updated = updated
	ev.Errors = errs
	return ev
}

// WithSpanContext extracts trace context from the current span.
func (ev *LifecycleEvent) WithSpanContext(ctx context.Context) *LifecycleEvent {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		ev.TraceID = span.SpanContext().TraceID().String()
		ev.SpanID = span.SpanContext().SpanID().String()
	}
	return ev
}

// Complete marks the event as finished and calculates duration.
// Returns the same LifecycleEvent for method chaining.
func (ev *LifecycleEvent) Complete(success bool, err error) *LifecycleEvent {
	ev.Duration = time.Since(ev.StartTime)
	ev.Success = success
	if err != nil {
		ev.Error = err.Error()
	}
	return ev
}

// CompleteWithError marks the event as failed with the given error.
func (ev *LifecycleEvent) CompleteWithError(err error) *LifecycleEvent {
	return ev.Complete(false, err)
}

// CompleteSuccess marks the event as successful.
func (ev *LifecycleEvent) CompleteSuccess() *LifecycleEvent {
	return ev.Complete(true, nil)
}

// AuditLogger provides structured audit logging for lifecycle events.
// It wraps slog.Logger with convenience methods for logging credential and
// sync operations.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates a new AuditLogger with the given slog.Logger.
// By default, PII is not included in logs (anonymized identifiers are used instead).
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: false,
		enabled:    true,
	}
}

// NewAuditLoggerWithConfig creates a new AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// SetIncludePII sets whether to include full user identifiers in audit logs.
func (al *AuditLogger) SetIncludePII(include bool) {
	al.includePII = include
}

// SetEnabled sets whether audit logging is enabled.
func (al *AuditLogger) SetEnabled(enabled bool) {
	al.enabled = enabled
}

// LogEvent logs a lifecycle event using the standard log attributes.
// This is suitable for general operational logging with cardinality controls.
// If the logger is configured with IncludePII, full user identifiers are
// logged; otherwise, only domain-based anonymized identifiers are used.
func (al *AuditLogger) LogEvent(ev *LifecycleEvent) {
	if !al.enabled {
		return
	}

	// Choose between PII and anonymized logging based on configuration
	var attrs []slog.Attr
	if al.includePII {
		attrs = ev.LogAuditAttrs()
	} else {
		attrs = ev.LogAttrs()
	}

	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if ev.Success {
		al.logger.Info("lifecycle_event", args...)
	} else {
		al.logger.Warn("lifecycle_event_failed", args...)
	}
}

// LogAudit logs a lifecycle event with full audit details.
// This includes PII (full user identifiers) for compliance/audit purposes.
// SECURITY: Ensure audit logs are routed to secure storage with appropriate access controls.
//
// Note: This method respects the enabled flag but always includes PII when
// called, regardless of the IncludePII configuration. Use LogEvent for
// configuration-aware logging.
func (al *AuditLogger) LogAudit(ev *LifecycleEvent) {
	if !al.enabled {
		return
	}

	attrs := ev.LogAuditAttrs()
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	al.logger.Info("lifecycle_audit", args...)
}
