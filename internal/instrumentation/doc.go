// Package instrumentation provides comprehensive OpenTelemetry instrumentation
// for the tasksync service.
//
// This package enables production-grade observability through:
//   - OpenTelemetry metrics for HTTP requests, OAuth operations, sync passes
//     and provider API calls
//   - Distributed tracing for reconciliation passes and provider API calls
//   - Prometheus metrics export via /metrics endpoint on dedicated port
//   - OTLP export support for modern observability platforms
//
// # Metrics
//
// The package exposes the following metric categories:
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Sync Engine Metrics:
//   - sync_passes_total: Counter of reconciliation passes by provider and status
//   - sync_pass_duration_seconds: Histogram of reconciliation pass durations
//   - sync_tasks_reconciled_total: Counter of reconciled tasks by provider and outcome
//   - active_sync_passes: Gauge of passes currently in flight
//   - pushback_attempts_total: Counter of push-back attempts by provider, operation, status
//
// Provider API Metrics:
//   - provider_api_operations_total: Counter of provider API operations by provider, operation, status
//   - provider_api_operation_duration_seconds: Histogram of provider API operation durations
//
// OAuth Authentication Metrics:
//   - oauth_auth_total: Counter of authorization flows by provider and result
//   - oauth_token_refresh_total: Counter of token refresh attempts by provider and result
//
// # Tracing
//
// Distributed tracing spans are created for:
//   - HTTP request handling
//   - Reconciliation passes (sync.<provider>)
//   - Provider API calls (provider.<provider>.<operation>)
//   - OAuth token operations
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: tasksync)
//
// # Example Usage
//
//	// Initialize instrumentation
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.Config{
//		ServiceName:    "tasksync",
//		ServiceVersion: "0.1.0",
//		Enabled:        true,
//	})
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	// Get metrics recorder
//	recorder := provider.Metrics()
//
//	// Record an HTTP request
//	recorder.RecordHTTPRequest(ctx, "POST", "/api/providers/googletasks/sync", 200, time.Since(start))
//
//	// Record a reconciliation pass
//	recorder.RecordSyncPass(ctx, "googletasks", "success", userHash, time.Since(start))
//
//	// Record a provider API operation
//	recorder.RecordProviderOperation(ctx, "mstodo", "list", "success", time.Since(start))
package instrumentation
