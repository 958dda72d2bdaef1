package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnexpectedShape = errors.New("unexpected response shape")
	ErrUnreachable     = errors.New("backend unreachable")
)

// RemoteError is any failure reported by, or on the way to, the backend.
// Status is 0 when no HTTP response was received.
type RemoteError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("backend %s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("backend %s: %s (status %d)", e.Op, e.Message, e.Status)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// IsClientError reports a 4xx answer, i.e. the backend refused the request
// on its merits (validation, insufficient stock, auth).
func (e *RemoteError) IsClientError() bool {
	return e.Status >= 400 && e.Status < 500
}

func statusMessage(status int, msg string) string {
	if msg != "" {
		return msg
	}
	if t := http.StatusText(status); t != "" {
		return t
	}
	return fmt.Sprintf("status %d", status)
}
