package sync

import (
	"errors"
	"fmt"
)

// ErrSyncInProgress is returned when a reconciliation pass for the same
// (user, provider) pair is already in flight.
var ErrSyncInProgress = errors.New("sync already in progress for this user and provider")

// ErrUnknownProvider is returned when no adapter is registered for the
// requested provider key.
var ErrUnknownProvider = errors.New("unknown provider")

// NotConnectedError means the user holds no usable credential for the
// provider; the caller must send the user through the consent flow before
// any sync can run.
type NotConnectedError struct {
	UserID   string
	Provider string
}

func (e *NotConnectedError) Error() string {
	return fmt.Sprintf("user is not connected to provider %s", e.Provider)
}

// IsNotConnected reports whether err is a NotConnectedError.
func IsNotConnected(err error) bool {
	var nc *NotConnectedError
	return errors.As(err, &nc)
}
