package site

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced across the persistence and orchestration layers.
// The HTTP layer maps each one to a distinct status code.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrConflict        = errors.New("site already registered")
	ErrNotFound        = errors.New("not found")
	ErrCrawlInProgress = errors.New("crawl already in progress")
	ErrRootUnreachable = errors.New("root page unreachable")
	ErrUnauthorized    = errors.New("unauthorized")
)

// InputError reports a rejected user-supplied value. It unwraps to
// ErrInvalidInput so callers can match on the sentinel.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

// FetchErrorKind classifies single-page fetch failures.
type FetchErrorKind string

// Fetch failure kinds. Per-page failures are absorbed as skipped pages by
// the crawler; only a failing root page escalates to ErrRootUnreachable.
const (
	FetchTimeout  FetchErrorKind = "timeout"
	FetchTooLarge FetchErrorKind = "too_large"
	FetchHTTP     FetchErrorKind = "http_error"
	FetchNetwork  FetchErrorKind = "network_error"
)

// FetchError is the typed failure returned by a Fetcher. StatusCode is
// only set for FetchHTTP.
type FetchError struct {
	Kind       FetchErrorKind
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case FetchHTTP:
		return fmt.Sprintf("fetch %s: http status %d", e.URL, e.StatusCode)
	case FetchTooLarge:
		return fmt.Sprintf("fetch %s: response too large", e.URL)
	case FetchTimeout:
		return fmt.Sprintf("fetch %s: timed out", e.URL)
	default:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
}

// Unwrap exposes the underlying transport error, if any.
func (e *FetchError) Unwrap() error {
	return e.Err
}
