package types

import (
	"fmt"
	"slices"
	"strings"
)

// Issue is one tracker issue as extracted from its page. It is built once
// and only exposes read accessors afterwards.
type Issue struct {
	id          string
	title       string
	description string
	attachments []string
	comments    int
	commenters  int
}

// NewIssue validates the counts and returns an Issue. The attachment slice
// is copied.
func NewIssue(id, title, description string, attachments []string, comments, commenters int) (*Issue, error) {
	if id == "" {
		return nil, fmt.Errorf("issue id must not be empty")
	}
	if comments < 0 || commenters < 0 {
		return nil, fmt.Errorf("issue %s: negative counts (comments=%d, commenters=%d)", id, comments, commenters)
	}
	if commenters > comments {
		return nil, fmt.Errorf("issue %s: commenters (%d) exceed comments (%d)", id, commenters, comments)
	}
	// Fields must survive an XML round trip unchanged.
	for _, s := range append([]string{id, title, description}, attachments...) {
		if !validXMLText(s) {
			return nil, fmt.Errorf("issue %s: text %q contains characters not allowed in XML", id, s)
		}
	}
	return &Issue{
		id:          id,
		title:       title,
		description: description,
		attachments: append([]string{}, attachments...),
		comments:    comments,
		commenters:  commenters,
	}, nil
}

// ID returns the tracker-assigned identifier.
func (i *Issue) ID() string { return i.id }

// Title returns the issue summary line.
func (i *Issue) Title() string { return i.title }

// Description returns the inferred description, or "" when none could be inferred.
func (i *Issue) Description() string { return i.description }

// Attachments returns a copy of the attachment descriptions in page order.
func (i *Issue) Attachments() []string { return slices.Clone(i.attachments) }

// CommentCount returns the number of comments found on the page.
func (i *Issue) CommentCount() int { return i.comments }

// CommenterCount returns the number of distinct commenters.
func (i *Issue) CommenterCount() int { return i.commenters }

// Equal reports whether two issues carry identical fields.
func (i *Issue) Equal(o *Issue) bool {
	if i == nil || o == nil {
		return i == o
	}
	return i.id == o.id &&
		i.title == o.title &&
		i.description == o.description &&
		slices.Equal(i.attachments, o.attachments) &&
		i.comments == o.comments &&
		i.commenters == o.commenters
}

func (i *Issue) String() string {
	return strings.Join([]string{
		"id: " + i.id,
		"title: " + i.title,
		"description: " + i.description,
		"attachments: " + strings.Join(i.attachments, "; "),
		fmt.Sprintf("comments: %d, commenters: %d", i.comments, i.commenters),
	}, "\n")
}
