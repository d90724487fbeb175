// Package provider defines the capability set a task provider adapter
// implements and the transient remote task envelope the adapters produce.
//
// Two adapters exist today: googletasks (Google Tasks API) and mstodo
// (Microsoft To Do via the Graph API). The sync engine is provider-agnostic
// and works entirely against the Adapter interface; ad hoc branching on
// provider names does not belong outside this package and its
// subdirectories.
//
// Adapters are translation plus transport only. They never touch the local
// store, and every failed API call surfaces as *provider.Error carrying the
// HTTP status, so callers can tell an invalid token (401) from a vanished
// resource (404) from rate limiting (429).
package provider
