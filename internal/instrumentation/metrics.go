package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys - using constants for consistency and DRY
const (
	// Common attributes (reused across metrics)
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrProvider  = "provider"
	attrResult    = "result"
	attrOutcome   = "outcome"
	attrUserHash  = "user_hash"
)

// Metrics provides methods for recording observability metrics.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Sync engine metrics
	syncPassesTotal      metric.Int64Counter
	syncPassDuration     metric.Float64Histogram
	tasksReconciledTotal metric.Int64Counter
	activeSyncPasses     metric.Int64UpDownCounter

	// Provider API metrics
	providerAPIOperationsTotal   metric.Int64Counter
	providerAPIOperationDuration metric.Float64Histogram

	// OAuth metrics
	oauthAuthTotal         metric.Int64Counter
	oauthTokenRefreshTotal metric.Int64Counter

	// Push-back metrics
	pushBackTotal metric.Int64Counter

	// Configuration
	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	// HTTP Metrics
	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	// Sync Engine Metrics
	m.syncPassesTotal, err = meter.Int64Counter(
		"sync_passes_total",
		metric.WithDescription("Total number of reconciliation passes"),
		metric.WithUnit("{pass}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync_passes_total counter: %w", err)
	}

	m.syncPassDuration, err = meter.Float64Histogram(
		"sync_pass_duration_seconds",
		metric.WithDescription("Reconciliation pass duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync_pass_duration_seconds histogram: %w", err)
	}

	m.tasksReconciledTotal, err = meter.Int64Counter(
		"sync_tasks_reconciled_total",
		metric.WithDescription("Total number of remote tasks reconciled by outcome"),
		metric.WithUnit("{task}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync_tasks_reconciled_total counter: %w", err)
	}

	m.activeSyncPasses, err = meter.Int64UpDownCounter(
		"active_sync_passes",
		metric.WithDescription("Number of reconciliation passes currently in flight"),
		metric.WithUnit("{pass}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active_sync_passes gauge: %w", err)
	}

	// Provider API Metrics
	m.providerAPIOperationsTotal, err = meter.Int64Counter(
		"provider_api_operations_total",
		metric.WithDescription("Total number of provider API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider_api_operations_total counter: %w", err)
	}

	m.providerAPIOperationDuration, err = meter.Float64Histogram(
		"provider_api_operation_duration_seconds",
		metric.WithDescription("Provider API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider_api_operation_duration_seconds histogram: %w", err)
	}

	// OAuth Metrics
	m.oauthAuthTotal, err = meter.Int64Counter(
		"oauth_auth_total",
		metric.WithDescription("Total number of OAuth authorization flows"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_auth_total counter: %w", err)
	}

	m.oauthTokenRefreshTotal, err = meter.Int64Counter(
		"oauth_token_refresh_total",
		metric.WithDescription("Total number of OAuth token refresh attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_token_refresh_total counter: %w", err)
	}

	// Push-Back Metrics
	m.pushBackTotal, err = meter.Int64Counter(
		"pushback_attempts_total",
		metric.WithDescription("Total number of local-mutation push-back attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pushback_attempts_total counter: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordSyncPass records one finished reconciliation pass. The anonymized
// user label is only attached when detailedLabels is enabled, to keep
// cardinality bounded by default.
//
// Parameters:
//   - provider: Provider key (googletasks, mstodo)
//   - status: Result status ("success" or "error")
//   - userHash: Anonymized user identity (may be empty)
//   - duration: Wall time of the pass
func (m *Metrics) RecordSyncPass(ctx context.Context, provider, status, userHash string, duration time.Duration) {
	if m.syncPassesTotal == nil || m.syncPassDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrProvider, provider),
		attribute.String(attrStatus, status),
	}

	// Only add high-cardinality labels if explicitly enabled
	if m.detailedLabels && userHash != "" {
		attrs = append(attrs, attribute.String(attrUserHash, userHash))
	}

	m.syncPassesTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.syncPassDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordTaskOutcome records one reconciled remote task.
// Outcome should be one of: "created", "updated", "unchanged", "error"
func (m *Metrics) RecordTaskOutcome(ctx context.Context, provider, outcome string) {
	if m.tasksReconciledTotal == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrProvider, provider),
		attribute.String(attrOutcome, outcome),
	}

	m.tasksReconciledTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPushBack records one push-back attempt.
//
// Parameters:
//   - provider: Provider key
//   - operation: "change" or "delete"
//   - status: Result status ("success" or "error")
func (m *Metrics) RecordPushBack(ctx context.Context, provider, operation, status string) {
	if m.pushBackTotal == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrProvider, provider),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.pushBackTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordProviderOperation records a provider API operation with provider,
// operation, status, and duration.
//
// Parameters:
//   - provider: Provider key (googletasks, mstodo)
//   - operation: Operation type (list, create, update, delete)
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the operation
func (m *Metrics) RecordProviderOperation(ctx context.Context, provider, operation, status string, duration time.Duration) {
	if m.providerAPIOperationsTotal == nil || m.providerAPIOperationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrProvider, provider),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.providerAPIOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.providerAPIOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordOAuthAuth records a completed authorization flow for a provider.
// Result should be one of: "success", "failure"
func (m *Metrics) RecordOAuthAuth(ctx context.Context, provider, result string) {
	if m.oauthAuthTotal == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrProvider, provider),
		attribute.String(attrResult, result),
	}

	m.oauthAuthTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordOAuthTokenRefresh records an OAuth token refresh attempt with result.
// Result should be one of: "success", "failure", "expired"
func (m *Metrics) RecordOAuthTokenRefresh(ctx context.Context, provider, result string) {
	if m.oauthTokenRefreshTotal == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrProvider, provider),
		attribute.String(attrResult, result),
	}

	m.oauthTokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// IncrementActiveSyncPasses increments the in-flight pass counter.
func (m *Metrics) IncrementActiveSyncPasses(ctx context.Context) {
	if m.activeSyncPasses == nil {
		return // Instrumentation not initialized
	}

	m.activeSyncPasses.Add(ctx, 1)
}

// DecrementActiveSyncPasses decrements the in-flight pass counter.
func (m *Metrics) DecrementActiveSyncPasses(ctx context.Context) {
	if m.activeSyncPasses == nil {
		return // Instrumentation not initialized
	}

	m.activeSyncPasses.Add(ctx, -1)
}
