// Package extract turns a fetched tracker page into an Issue, applying the
// duplicate, requirement and activity rules along the way.
package extract

import (
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/net/html"

	"github.com/IshaanNene/nfrminer/internal/config"
	"github.com/IshaanNene/nfrminer/internal/parser"
	"github.com/IshaanNene/nfrminer/internal/tracker"
	"github.com/IshaanNene/nfrminer/internal/types"
)

// Extractor applies tracker selectors and the shared filtering rules.
// It holds no per-page state and is safe for concurrent use.
type Extractor struct {
	minComments   int
	minCommenters int
	logger        *slog.Logger
}

// New creates an Extractor with the given activity thresholds.
func New(cfg config.ExtractConfig, logger *slog.Logger) *Extractor {
	return &Extractor{
		minComments:   cfg.MinComments,
		minCommenters: cfg.MinCommenters,
		logger:        logger.With("component", "extractor"),
	}
}

// Extract builds an Issue from a fetched page. A non-success response is a
// FetchFailure; every other rejection is tagged with its Reason.
func (e *Extractor) Extract(tr tracker.Config, issueID string, resp *types.Response) Result {
	if resp == nil || !resp.IsSuccess() {
		status := 0
		url := tr.URL(issueID)
		if resp != nil {
			status = resp.StatusCode
			url = resp.URLString()
		}
		return Fetched(issueID, &types.FetchError{
			URL:        url,
			StatusCode: status,
			Err:        fmt.Errorf("unexpected status %d", status),
		})
	}

	root, err := resp.Node()
	if err != nil {
		return reject(issueID, ExtractionError, &types.ExtractionError{IssueID: issueID, Err: err})
	}

	iss, err := e.extract(tr, issueID, root)
	if err != nil {
		return reject(issueID, ReasonOf(err), err)
	}
	return accept(iss)
}

func (e *Extractor) extract(tr tracker.Config, id string, root *html.Node) (*types.Issue, error) {
	sel := tr.Selectors
	structural := func(err error) error {
		return &types.ExtractionError{IssueID: id, Err: err}
	}

	status, err := statusText(root, sel.Status)
	if err != nil {
		return nil, structural(err)
	}
	if isDuplicate(status) {
		return nil, fmt.Errorf("issue %s status %q: %w", id, status, types.ErrDuplicateIssue)
	}

	importance, err := parser.FirstText(root, sel.Importance)
	if err != nil {
		return nil, structural(err)
	}
	if !hasMarker(importance, tr.RequiredMarkers) {
		return nil, fmt.Errorf("issue %s importance %q: %w", id, importance, types.ErrNotARequirement)
	}

	comments := parser.ByIDPattern(root, sel.CommentID)
	if len(comments) <= e.minComments {
		return nil, fmt.Errorf("issue %s has %d comments (need more than %d): %w",
			id, len(comments), e.minComments, types.ErrInsufficientActivity)
	}

	commenters := make([]string, len(comments))
	distinct := make(map[string]struct{}, len(comments))
	for i, c := range comments {
		name, err := parser.FirstText(c, sel.Commenter)
		if err != nil {
			return nil, structural(fmt.Errorf("commenter of comment %d: %w", i, err))
		}
		commenters[i] = name
		distinct[name] = struct{}{}
	}
	if len(distinct) < e.minCommenters {
		return nil, fmt.Errorf("issue %s has %d commenters (need %d): %w",
			id, len(distinct), e.minCommenters, types.ErrInsufficientActivity)
	}

	title, err := parser.FirstText(root, sel.Title)
	if err != nil {
		return nil, structural(err)
	}
	if title == "" {
		return nil, structural(fmt.Errorf("empty title"))
	}

	reporter, err := parser.FirstText(root, sel.Reporter)
	if err != nil {
		return nil, structural(err)
	}
	// Compare by value: the reporter and commenter come from distinct nodes.
	description := ""
	if len(commenters) > 0 && reporter == commenters[0] {
		description, err = parser.FirstText(comments[0], sel.CommentText)
		if err != nil {
			return nil, structural(fmt.Errorf("first comment text: %w", err))
		}
	}

	attachments, err := attachments(tr, root)
	if err != nil {
		return nil, structural(err)
	}

	iss, err := types.NewIssue(id, title, description, attachments, len(comments), len(distinct))
	if err != nil {
		return nil, structural(err)
	}
	e.logger.Debug("issue extracted",
		"tracker", tr.Name,
		"issue_id", id,
		"comments", len(comments),
		"commenters", len(distinct),
		"attachments", len(attachments),
	)
	return iss, nil
}

func statusText(root *html.Node, sels []parser.Selector) (string, error) {
	parts := make([]string, 0, len(sels))
	for _, s := range sels {
		txt, err := parser.FirstText(root, s)
		if err != nil {
			return "", err
		}
		parts = append(parts, txt)
	}
	return strings.ToUpper(parser.NormalizeSpace(strings.Join(parts, " "))), nil
}

// isDuplicate matches on prefix so "RESOLVED DUPLICATE of bug 123" counts.
func isDuplicate(status string) bool {
	for _, m := range tracker.DuplicateMarkers {
		if status == m || strings.HasPrefix(status, m+" ") {
			return true
		}
	}
	return false
}

func hasMarker(importance string, markers []string) bool {
	if len(markers) == 0 {
		return true
	}
	lower := strings.ToLower(importance)
	for _, m := range markers {
		if strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

func attachments(tr tracker.Config, root *html.Node) ([]string, error) {
	sel := tr.Selectors
	if sel.AttachmentContainer.IsZero() {
		return nil, nil
	}
	containers, err := parser.All(root, sel.AttachmentContainer)
	if err != nil {
		return nil, err
	}
	if len(containers) == 0 {
		return nil, nil
	}

	rows, err := parser.All(containers[0], sel.AttachmentRow)
	if err != nil {
		return nil, err
	}
	if tr.SkipFirstAttachment {
		if len(rows) <= 1 {
			return nil, nil
		}
		rows = rows[1:]
	}

	out := make([]string, 0, len(rows))
	for _, row := range rows {
		txt, err := parser.FirstText(row, sel.AttachmentText)
		if err != nil {
			return nil, fmt.Errorf("attachment description: %w", err)
		}
		if txt != "" {
			out = append(out, txt)
		}
	}
	return out, nil
}
