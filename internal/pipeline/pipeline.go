package pipeline

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/IshaanNene/nfrminer/internal/types"
)

// Middleware inspects an issue and returns it, or nil to drop it.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process returns the issue to keep, or nil to drop it.
	Process(issue *types.Issue) (*types.Issue, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// Default returns the pipeline run on every scrape. It drops repeated ids;
// every other rule is applied by the extractor.
func Default(logger *slog.Logger) *Pipeline {
	p := New(logger)
	p.Use(NewDedupMiddleware())
	return p
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs the issue through all middleware in order.
func (p *Pipeline) Process(issue *types.Issue) (*types.Issue, error) {
	current := issue

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, fmt.Errorf("pipeline stage %q: %w", mw.Name(), err)
		}
		if result == nil {
			p.logger.Debug("issue dropped", "stage", mw.Name(), "issue_id", issue.ID())
			return nil, nil
		}
		current = result
	}

	return current, nil
}

// Run processes a batch and returns the kept issues in order along with the
// number dropped.
func (p *Pipeline) Run(issues []*types.Issue) ([]*types.Issue, int, error) {
	kept := make([]*types.Issue, 0, len(issues))
	for _, iss := range issues {
		out, err := p.Process(iss)
		if err != nil {
			return nil, 0, err
		}
		if out != nil {
			kept = append(kept, out)
		}
	}
	return kept, len(issues) - len(kept), nil
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}

// --- Built-in Middleware ---

// DedupMiddleware drops issues whose id was already seen in this session.
type DedupMiddleware struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewDedupMiddleware() *DedupMiddleware {
	return &DedupMiddleware{
		seen: make(map[string]struct{}),
	}
}

func (m *DedupMiddleware) Name() string { return "dedup" }

func (m *DedupMiddleware) Process(issue *types.Issue) (*types.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.seen[issue.ID()]; exists {
		return nil, nil
	}
	m.seen[issue.ID()] = struct{}{}
	return issue, nil
}
