package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrSessionExpired means the refresh token was rejected or the refresh
	// call failed. The credential store has already been cleared; the caller
	// must send the user back to login.
	ErrSessionExpired = errors.New("session expired: reauthentication required")

	// ErrUnauthenticated means the API rejected the request and there is no
	// refresh token to recover with.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrAuthorizationFailure matches a 401 that survived the single replay.
	ErrAuthorizationFailure = errors.New("authorization failed")
)

// TransportError wraps a failure to get any response from the API. The
// gateway never retries it.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError is a non-2xx answer surfaced as an error. A 401 StatusError
// matches ErrAuthorizationFailure.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("api status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("api status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrAuthorizationFailure && e.StatusCode == http.StatusUnauthorized
}
