package types

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure modes.
var (
	ErrDuplicateIssue       = errors.New("issue is a duplicate")
	ErrNotARequirement      = errors.New("issue is not an enhancement")
	ErrInsufficientActivity = errors.New("insufficient comment activity")
	ErrInvalidRange         = errors.New("invalid id range")
	ErrEmptyInput           = errors.New("empty input")
	ErrSparseContent        = errors.New("text too sparse to vectorize")
	ErrUnsupportedTracker   = errors.New("unsupported tracker")
	ErrNodeNotFound         = errors.New("node not found")
	ErrEmptyResponse        = errors.New("empty response body")
	ErrDisallowed           = errors.New("disallowed by robots.txt")
)

// FetchError wraps errors that occur during fetching.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
	Retryable  bool
	RetryAfter time.Duration // populated from Retry-After header on HTTP 429
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) IsRetryable() bool { return e.Retryable }

// ParseError wraps errors that occur while evaluating a selector.
type ParseError struct {
	URL      string
	Selector string
	Err      error
}

func (e *ParseError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("parse error (selector=%q): %v", e.Selector, e.Err)
	}
	return fmt.Sprintf("parse error for %s (selector=%q): %v", e.URL, e.Selector, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ExtractionError reports an unexpected page structure for one issue.
type ExtractionError struct {
	IssueID string
	Err     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract issue %s: %v", e.IssueID, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur during storage/export.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
