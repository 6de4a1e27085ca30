// Package corpus selects the active issues of a batch and turns them into
// per-issue text documents for topic modeling.
package corpus

import (
	"fmt"
	"strings"

	"github.com/IshaanNene/nfrminer/internal/types"
)

// Corpus maps an issue id to its non-empty text fields.
type Corpus map[string][]string

// FilterActive keeps the issues whose comment and commenter counts both reach
// the batch mean plus the given offsets.
func FilterActive(issues []*types.Issue, commentOffset, commenterOffset float64) ([]*types.Issue, error) {
	if len(issues) == 0 {
		return nil, fmt.Errorf("filter active issues: %w", types.ErrEmptyInput)
	}

	var comments, commenters float64
	for _, iss := range issues {
		comments += float64(iss.CommentCount())
		commenters += float64(iss.CommenterCount())
	}
	n := float64(len(issues))
	minComments := comments/n + commentOffset
	minCommenters := commenters/n + commenterOffset

	active := make([]*types.Issue, 0, len(issues))
	for _, iss := range issues {
		if float64(iss.CommentCount()) >= minComments && float64(iss.CommenterCount()) >= minCommenters {
			active = append(active, iss)
		}
	}
	return active, nil
}

// ToCorpus builds the title, description and joined attachment text of each
// issue, omitting empty fields. A repeated id keeps the last issue.
func ToCorpus(issues []*types.Issue) Corpus {
	c := make(Corpus, len(issues))
	for _, iss := range issues {
		fields := make([]string, 0, 3)
		for _, f := range []string{
			iss.Title(),
			iss.Description(),
			strings.Join(iss.Attachments(), " "),
		} {
			if f != "" {
				fields = append(fields, f)
			}
		}
		c[iss.ID()] = fields
	}
	return c
}

// IDs returns the corpus keys in the order the issues were given.
func IDs(issues []*types.Issue) []string {
	seen := make(map[string]struct{}, len(issues))
	ids := make([]string, 0, len(issues))
	for _, iss := range issues {
		if _, ok := seen[iss.ID()]; ok {
			continue
		}
		seen[iss.ID()] = struct{}{}
		ids = append(ids, iss.ID())
	}
	return ids
}
