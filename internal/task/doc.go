// Package task defines the canonical task model owned by the local store,
// the persistence boundary for tasks, and the recurrence roller.
//
// A Task is the provider-agnostic shape that all sync logic operates on.
// Provider adapters translate their native representations into task.Fields;
// the reconciler applies those fields here. A task may carry at most one
// ProviderLink, tying it to a single remote task in a single provider.
//
// # Recurrence
//
// Tasks with a recurrence other than "none" roll forward on completion
// instead of terminating: the Roller snapshots the finished occurrence into
// a separate terminal record and advances the live task's due date by one
// interval (daily, weekly, monthly or yearly, using calendar arithmetic).
// The live task is therefore never left completed.
package task
