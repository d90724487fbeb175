// Package credential stores the OAuth tokens granted by task providers.
//
// Each (user, provider) pair holds at most one Credential. The record is
// created on the first successful OAuth exchange, rewritten in place on
// every refresh or re-consent, and deleted on explicit disconnect. Deleting
// a credential never deletes the user's tasks.
package credential
