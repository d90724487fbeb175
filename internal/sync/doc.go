// Package sync reconciles remote task collections into the local store and
// pushes local mutations back out to providers.
//
// # Reconciliation
//
// A pass pulls every titled task from the provider and upserts it by the
// (user, provider, remote ID) compound key. Remote content always wins on
// linked tasks; there is no dirty tracking and no merge. A linked task whose
// content already matches the remote value is left untouched and counted as
// skipped, so a repeat pass with no remote changes writes nothing. Per-item failures
// are counted and the pass continues, while token and listing failures
// abort it. A pass cut short by its context returns the partial result;
// upserts committed before the cutoff stand, so re-running converges.
//
// At most one pass runs per (user, provider) pair. A second caller gets
// ErrSyncInProgress instead of queueing.
//
// # Push-back
//
// Local mutations are mirrored out on a best-effort basis. The local store
// is the source of truth for unlinked tasks, so a failed push never rolls
// back the local change; the caller logs and moves on. Deleting a task
// whose remote copy is already gone counts as success.
package sync
