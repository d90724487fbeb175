// Package logging provides structured logging utilities for tasksync.
//
// This package centralizes logging patterns to ensure consistent, structured
// logging throughout the codebase using the standard library's slog package.
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithProvider(slog.Default(), "googletasks")
//	logger.Info("reconciliation finished",
//	    logging.Status(logging.StatusSuccess))
//
// Sanitize sensitive data before logging:
//
//	logger.Info("token refreshed",
//	    logging.UserHash(userID))
//
// # Security Considerations
//
// User identifiers are hashed before logging so log entries can be
// correlated without exposing who they belong to, and tokens are never
// logged directly (SanitizeToken reports only the length).
package logging
