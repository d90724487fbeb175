// Package cmd implements the command-line interface for tasksync.
//
// This package provides the following commands:
//   - serve: Start the sync service with its HTTP API
//   - sync: Run one reconciliation pass from the command line
//   - generate-docs: Generate markdown documentation for all commands
package cmd
