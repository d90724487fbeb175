// Package oauth manages provider OAuth2 credentials for tasksync.
//
// One Manager serves one provider. It covers the whole credential
// lifecycle used by the sync engine:
//
//   - BuildAuthorizationURL issues the consent URL with a single-use,
//     time-boxed CSRF state (10 minutes by default).
//   - ConsumeState validates the state on callback.
//   - ExchangeCode performs the one-shot code-for-tokens exchange.
//   - ValidAccessToken returns a token good for at least five minutes,
//     refreshing proactively through the refresh token when needed and
//     handing the updated credential back through a callback.
//
// Refresh failures surface as ReauthRequiredError: the user must go through
// the consent flow again, there is nothing to retry. The manager is built on
// golang.org/x/oauth2 and never persists credentials itself.
package oauth
