// Package server provides the HTTP surface of the tasksync service.
//
// The main server hosts the provider API under /api/providers/{provider}:
//
//   - GET  /connect   starts the OAuth consent flow and returns the
//     authorization URL plus the CSRF state
//   - GET  /callback  finishes the flow: validates the state, exchanges the
//     authorization code and stores the credential
//   - POST /sync      runs one reconciliation pass and returns its result
//   - DELETE          disconnects the provider: clears task links and
//     deletes the credential
//   - GET  /status    reports connected, not_connected or reauth_required
//
// Health endpoints for Kubernetes probes are served on the same listener
// (/healthz, /readyz, /healthz/detailed). Prometheus metrics are isolated
// on a dedicated MetricsServer so operational data never shares a port
// with user-facing traffic.
//
// Error responses are JSON objects with stable "error" codes: sync
// conflicts map to 409, missing connections and unusable credentials to
// 401, unknown providers to 404.
package server
