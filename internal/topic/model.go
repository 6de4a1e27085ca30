// Package topic extracts ranked keywords from each issue's text fields by
// fitting a small topic model (NMF or LDA) on that issue alone.
package topic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/IshaanNene/nfrminer/internal/config"
	"github.com/IshaanNene/nfrminer/internal/corpus"
	"github.com/IshaanNene/nfrminer/internal/observability"
	"github.com/IshaanNene/nfrminer/internal/types"
)

// Method is the decomposition used to find topics.
type Method string

const (
	MethodLDA Method = "lda"
	MethodNMF Method = "nmf"
)

// ParseMethod parses "lda" or "nmf", case-insensitively.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case MethodLDA, MethodNMF:
		return m, nil
	default:
		return "", fmt.Errorf("unknown topic method %q (want lda or nmf)", s)
	}
}

// Options configures a Modeler.
type Options struct {
	Method      Method
	NumTopics   int
	TopWords    int
	MaxFeatures int
	MaxDF       float64
	MinDF       float64
	Iterations  int
	Seed        uint64

	// LogTopics logs every topic of every issue at info level.
	LogTopics bool
}

// OptionsFromConfig picks the document-frequency floor and iteration count
// that belong to the configured method.
func OptionsFromConfig(cfg config.TopicsConfig) (Options, error) {
	method, err := ParseMethod(cfg.Method)
	if err != nil {
		return Options{}, err
	}
	opts := Options{
		Method:      method,
		NumTopics:   cfg.NumTopics,
		TopWords:    cfg.TopWords,
		MaxFeatures: cfg.MaxFeatures,
		MaxDF:       cfg.MaxDF,
		Seed:        cfg.Seed,
	}
	if method == MethodLDA {
		opts.MinDF, opts.Iterations = cfg.MinDFLDA, cfg.LDAIterations
	} else {
		opts.MinDF, opts.Iterations = cfg.MinDFNMF, cfg.NMFIterations
	}
	return opts, nil
}

// Modeler runs topic modeling over a corpus, one issue at a time.
type Modeler struct {
	opts    Options
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewModeler validates opts and returns a Modeler. metrics may be nil.
func NewModeler(opts Options, metrics *observability.Metrics, logger *slog.Logger) (*Modeler, error) {
	if _, err := ParseMethod(string(opts.Method)); err != nil {
		return nil, err
	}
	if opts.NumTopics < 1 {
		return nil, fmt.Errorf("topic count must be >= 1, got %d", opts.NumTopics)
	}
	if opts.TopWords < 1 {
		return nil, fmt.Errorf("top word count must be >= 1, got %d", opts.TopWords)
	}
	return &Modeler{
		opts:    opts,
		metrics: metrics,
		logger:  logger.With("component", "topic_modeler", "method", string(opts.Method)),
	}, nil
}

// ModelTopics returns the keyword list of every issue in c. Issues whose
// text is too sparse to vectorize are logged and left out. Issues are
// processed in id order; ctx is checked between issues.
func (m *Modeler) ModelTopics(ctx context.Context, c corpus.Corpus) (map[string][]string, error) {
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make(map[string][]string, len(c))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		topics, err := m.Topics(c[id])
		if errors.Is(err, types.ErrSparseContent) {
			m.logger.Info("issue skipped", "issue_id", id, "reason", "sparse_content", "error", err)
			if m.metrics != nil {
				m.metrics.IssuesSparse.Add(1)
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("model topics of issue %s: %w", id, err)
		}

		if m.opts.LogTopics {
			for i, words := range topics {
				m.logger.Info(fmt.Sprintf("Topic #%d: %s", i, strings.Join(words, " ")), "issue_id", id)
			}
		}
		out[id] = Keywords(topics)
		if m.metrics != nil {
			m.metrics.IssuesModeled.Add(1)
		}
	}
	return out, nil
}

// Topics fits the model on one issue's fields, each field being one
// document, and returns the top words of each topic in model order.
func (m *Modeler) Topics(fields []string) ([][]string, error) {
	vec := Vectorizer{
		Weighting:   RawCounts,
		MaxFeatures: m.opts.MaxFeatures,
		MaxDF:       m.opts.MaxDF,
		MinDF:       m.opts.MinDF,
	}
	if m.opts.Method == MethodNMF {
		vec.Weighting = TFIDF
	}
	x, terms, err := vec.FitTransform(fields)
	if err != nil {
		return nil, err
	}

	var components *mat.Dense
	switch m.opts.Method {
	case MethodLDA:
		components, err = LDA{Components: m.opts.NumTopics, Iterations: m.opts.Iterations, Seed: m.opts.Seed}.Fit(x)
	default:
		components, err = NMF{Components: m.opts.NumTopics, MaxIter: m.opts.Iterations, Seed: m.opts.Seed}.Fit(x)
	}
	if err != nil {
		return nil, err
	}
	return TopWords(components, terms, m.opts.TopWords), nil
}

// TopWords returns, per row of components, the n highest-weighted terms.
// Equal weights keep column order. Repeated terms within a topic are
// dropped.
func TopWords(components mat.Matrix, terms []string, n int) [][]string {
	rows, cols := components.Dims()
	if n > cols {
		n = cols
	}
	out := make([][]string, rows)
	for r := 0; r < rows; r++ {
		idx := make([]int, cols)
		for j := range idx {
			idx[j] = j
		}
		sort.SliceStable(idx, func(a, b int) bool {
			return components.At(r, idx[a]) > components.At(r, idx[b])
		})
		out[r] = dedupe(idx[:n], terms)
	}
	return out
}

func dedupe(idx []int, terms []string) []string {
	seen := make(map[string]struct{}, len(idx))
	words := make([]string, 0, len(idx))
	for _, j := range idx {
		if _, ok := seen[terms[j]]; ok {
			continue
		}
		seen[terms[j]] = struct{}{}
		words = append(words, terms[j])
	}
	return words
}

// Keywords concatenates topic word lists in topic order, keeping the first
// occurrence of each word.
func Keywords(topics [][]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, words := range topics {
		for _, w := range words {
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			out = append(out, w)
		}
	}
	return out
}
