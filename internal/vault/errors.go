package vault

import (
	"errors"
	"fmt"
	"net/http"
)

// Error taxonomy. Wrap these with fmt.Errorf and classify with errors.Is.
var (
	// ErrNetwork covers transport failures, timeouts and non-success statuses.
	ErrNetwork = errors.New("network error")
	// ErrParse covers malformed or missing structure in the page or manifest.
	ErrParse = errors.New("parse error")
	// ErrConflict marks a sanitized path colliding with an incompatible entry.
	ErrConflict = errors.New("path conflict")
	// ErrIO covers local filesystem failures.
	ErrIO = errors.New("io error")
	// ErrEmptyManifest signals a manifest without any keys.
	ErrEmptyManifest = fmt.Errorf("manifest has no entries: %w", ErrParse)
	// ErrQueueClosed is returned by Dequeue once a closed queue is drained.
	ErrQueueClosed = errors.New("queue closed")
)

// StatusError reports a non-success HTTP response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// Unwrap lets errors.Is(err, ErrNetwork) match status failures.
func (e *StatusError) Unwrap() error {
	return ErrNetwork
}

// KindOf maps an error onto the failure kind it belongs to.
func KindOf(err error) FailureKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrIO):
		return KindIO
	default:
		return KindNetwork
	}
}
