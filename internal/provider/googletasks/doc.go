// Package googletasks implements the provider adapter for the Google Tasks
// API (tasks/v1).
//
// All operations run against the user's default task list. Listing follows
// page tokens transparently until the collection is exhausted. Due dates are
// reduced to calendar dates because the Tasks API does not record a
// meaningful time of day, and task links are surfaced as attachment
// metadata.
//
// The adapter authenticates each call with the access token it is handed;
// token lifecycle is the token manager's concern, not this package's.
package googletasks
