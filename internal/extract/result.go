package extract

import (
	"errors"

	"github.com/IshaanNene/nfrminer/internal/types"
)

// Reason tags the outcome of extracting one issue.
type Reason int

const (
	Accepted Reason = iota
	FetchFailure
	DuplicateIssue
	NotARequirement
	InsufficientActivity
	ExtractionError
)

func (r Reason) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case FetchFailure:
		return "fetch_failure"
	case DuplicateIssue:
		return "duplicate_issue"
	case NotARequirement:
		return "not_a_requirement"
	case InsufficientActivity:
		return "insufficient_activity"
	case ExtractionError:
		return "extraction_error"
	default:
		return "unknown"
	}
}

// Result is either an accepted Issue or a tagged rejection.
type Result struct {
	IssueID string
	Issue   *types.Issue
	Reason  Reason
	// Err describes the rejection; nil when accepted.
	Err error
}

// Ok reports whether the issue was accepted.
func (r Result) Ok() bool { return r.Reason == Accepted && r.Issue != nil }

func accept(iss *types.Issue) Result {
	return Result{IssueID: iss.ID(), Issue: iss, Reason: Accepted}
}

func reject(id string, reason Reason, err error) Result {
	return Result{IssueID: id, Reason: reason, Err: err}
}

// Fetched wraps a fetch error as a FetchFailure result.
func Fetched(id string, err error) Result {
	return reject(id, FetchFailure, err)
}

// ReasonOf maps an error produced by the extractor back to its Reason.
func ReasonOf(err error) Reason {
	var ee *types.ExtractionError
	switch {
	case err == nil:
		return Accepted
	case errors.Is(err, types.ErrDuplicateIssue):
		return DuplicateIssue
	case errors.Is(err, types.ErrNotARequirement):
		return NotARequirement
	case errors.Is(err, types.ErrInsufficientActivity):
		return InsufficientActivity
	case errors.As(err, &ee):
		return ExtractionError
	default:
		var fe *types.FetchError
		if errors.As(err, &fe) {
			return FetchFailure
		}
		return ExtractionError
	}
}
