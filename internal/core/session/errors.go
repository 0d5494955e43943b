package session

import (
	"errors"
	"fmt"
)

// ErrSessionClosed is returned when an operation is attempted on a session
// that is detached, terminated, or was never attached. It is always
// recoverable; callers log it or silently no-op.
var ErrSessionClosed = errors.New("session closed")

// ConnectError reports a failed attach or launch. The session it came from
// remains Uninitialized and may be connected again.
type ConnectError struct {
	Addr string
	Err  error
}

// Error implements the error interface
func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Addr, e.Err)
}

// Unwrap returns the underlying dial error
func (e *ConnectError) Unwrap() error {
	return e.Err
}
