package crawler

import (
	"errors"
	"fmt"

	"github.com/nao1215/wikindex/internal/model"
)

// Fetch failure classes. Every error returned by HTTPFetcher.Fetch wraps
// exactly one of them.
var (
	// ErrFetch is a network-level failure: DNS, connection, timeout.
	ErrFetch = errors.New("fetch failed")

	// ErrStatus is a non-2xx HTTP response.
	ErrStatus = errors.New("unexpected status")

	// ErrParse is a response body that could not be read or parsed.
	ErrParse = errors.New("parse failed")
)

// StatusError carries the HTTP status of a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s returned %d", ErrStatus, e.URL, e.StatusCode)
}

// Unwrap makes errors.Is(err, ErrStatus) true.
func (e *StatusError) Unwrap() error {
	return ErrStatus
}

// classify maps a fetch error to the failure category counted in reports.
func classify(err error) model.FailureCategory {
	switch {
	case errors.Is(err, ErrStatus):
		return model.FailureStatus
	case errors.Is(err, ErrParse):
		return model.FailureParse
	default:
		return model.FailureFetch
	}
}
