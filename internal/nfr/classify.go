// Package nfr assigns topic keywords to a non-functional requirement
// category by matching them against curated word lists.
package nfr

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/IshaanNene/nfrminer/internal/observability"
	"github.com/IshaanNene/nfrminer/internal/topic"
)

// Category is an NFR category label.
type Category string

const (
	None            Category = "none"
	Efficiency      Category = "efficiency"
	Functionality   Category = "functionality"
	Maintainability Category = "maintainability"
	Portability     Category = "portability"
	Reliability     Category = "reliability"
	Usability       Category = "usability"
)

// Categories is the evaluation order. Ties go to the earlier category.
var Categories = []Category{
	Efficiency,
	Functionality,
	Maintainability,
	Portability,
	Reliability,
	Usability,
}

func (c Category) String() string { return string(c) }

func (c Category) fileName() string { return string(c) + ".txt" }

// Score is the number of distinct keywords of an issue found in one
// category's word list.
type Score struct {
	Category Category
	Hits     int
}

// Classifier matches keyword lists against a Lexicon.
type Classifier struct {
	lexicon *Lexicon
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewClassifier creates a Classifier. metrics may be nil.
func NewClassifier(lex *Lexicon, metrics *observability.Metrics, logger *slog.Logger) *Classifier {
	return &Classifier{
		lexicon: lex,
		metrics: metrics,
		logger:  logger.With("component", "nfr_classifier"),
	}
}

// Scores counts, for every category in evaluation order, how many of words
// occur at least once in that category's word list.
func (c *Classifier) Scores(words []string) ([]Score, error) {
	vocabulary := unique(words)
	scores := make([]Score, 0, len(Categories))
	for _, cat := range Categories {
		list, err := c.lexicon.Words(cat)
		if err != nil {
			return nil, fmt.Errorf("load %s word list: %w", cat, err)
		}
		hits := 0
		for _, n := range topic.DocumentCounts(list, vocabulary) {
			if n > 0 {
				hits++
			}
		}
		scores = append(scores, Score{Category: cat, Hits: hits})
	}
	return scores, nil
}

// Classify returns the category with the most hits, or None when no
// category matches any word.
func (c *Classifier) Classify(words []string) (Category, error) {
	scores, err := c.Scores(words)
	if err != nil {
		return None, err
	}
	return best(scores), nil
}

// ClassifyAll classifies every issue's keywords.
func (c *Classifier) ClassifyAll(topics map[string][]string) (map[string]Category, error) {
	ids := make([]string, 0, len(topics))
	for id := range topics {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make(map[string]Category, len(topics))
	for _, id := range ids {
		cat, err := c.Classify(topics[id])
		if err != nil {
			return nil, fmt.Errorf("classify issue %s: %w", id, err)
		}
		out[id] = cat
		c.logger.Debug("issue classified", "issue_id", id, "category", cat.String())
		if c.metrics == nil {
			continue
		}
		if cat == None {
			c.metrics.IssuesUnmatched.Add(1)
		} else {
			c.metrics.IssuesClassified.Add(1)
		}
	}
	return out, nil
}

func best(scores []Score) Category {
	winner := Score{Category: None}
	for _, s := range scores {
		if s.Hits > winner.Hits {
			winner = s
		}
	}
	return winner.Category
}

func unique(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}
