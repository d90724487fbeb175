package oauth

import "fmt"

// AuthExchangeError is returned when the provider rejects an authorization
// code exchange (bad code, redirect URI mismatch, revoked client). It is
// surfaced at OAuth callback time only.
type AuthExchangeError struct {
	Provider string
	Err      error
}

func (e *AuthExchangeError) Error() string {
	return fmt.Sprintf("oauth exchange with %s failed: %v", e.Provider, e.Err)
}

func (e *AuthExchangeError) Unwrap() error {
	return e.Err
}

// ReauthRequiredError is returned when an access token cannot be refreshed:
// either no refresh token was granted or the provider rejected it. This is
// not retriable; the user must go through the consent flow again.
type ReauthRequiredError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *ReauthRequiredError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("reconnect to %s required: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("reconnect to %s required: %s", e.Provider, e.Reason)
}

func (e *ReauthRequiredError) Unwrap() error {
	return e.Err
}
