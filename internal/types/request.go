package types

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Request is a single tracker page to be fetched.
type Request struct {
	// URL is the target URL to fetch.
	URL *url.URL

	// Headers are extra HTTP headers to send with the request.
	Headers http.Header

	// IssueID is the tracker id of the issue behind this page, empty for
	// non-issue pages such as robots.txt.
	IssueID string

	// Tracker is the name of the tracker the page belongs to.
	Tracker string

	// MaxRetries is the maximum number of retries for this request.
	MaxRetries int

	// RetryCount tracks the current retry attempt.
	RetryCount int

	// Timeout overrides the global request timeout for this request.
	Timeout time.Duration
}

// NewRequest creates a GET Request for one tracker page.
func NewRequest(rawURL, tracker, issueID string) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}

	return &Request{
		URL:        u,
		Headers:    make(http.Header),
		IssueID:    issueID,
		Tracker:    tracker,
		MaxRetries: 2,
	}, nil
}

// URLString returns the string representation of the request URL.
func (r *Request) URLString() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.String()
}
