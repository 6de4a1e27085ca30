package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/nfrminer/internal/config"
	"github.com/IshaanNene/nfrminer/internal/extract"
	"github.com/IshaanNene/nfrminer/internal/fetcher"
	"github.com/IshaanNene/nfrminer/internal/observability"
	"github.com/IshaanNene/nfrminer/internal/pipeline"
	"github.com/IshaanNene/nfrminer/internal/tracker"
	"github.com/IshaanNene/nfrminer/internal/types"
)

// Engine is the scrape orchestrator. It fetches issue pages, runs the
// extractor on each and collects the accepted issues.
type Engine struct {
	cfg        *config.Config
	fetcher    fetcher.Fetcher
	extractor  *extract.Extractor
	pipeline   *pipeline.Pipeline
	metrics    *observability.Metrics
	robots     *Robots
	checkpoint *Checkpoint
	logger     *slog.Logger
}

// New creates a new Engine. A nil pipeline skips post-join processing.
func New(cfg *config.Config, f fetcher.Fetcher, ex *extract.Extractor, p *pipeline.Pipeline, m *observability.Metrics, logger *slog.Logger) *Engine {
	if m == nil {
		m = observability.NewMetrics(logger)
	}
	e := &Engine{
		cfg:       cfg,
		fetcher:   f,
		extractor: ex,
		pipeline:  p,
		metrics:   m,
		logger:    logger.With("component", "engine"),
	}
	if cfg.Scrape.RespectRobotsTxt {
		e.robots = NewRobots(f, cfg.Scrape.UserAgent, cfg.Scrape.RequestTimeout, logger)
	}
	return e
}

// UseCheckpoint makes ScrapeParallel resume from and save to cp.
func (e *Engine) UseCheckpoint(cp *Checkpoint) {
	e.checkpoint = cp
}

// Metrics returns the engine's counters.
func (e *Engine) Metrics() *observability.Metrics {
	return e.metrics
}

// ScrapeRange fetches each id of r in order and returns the accepted
// issues. Rejections and fetch failures are logged and dropped.
func (e *Engine) ScrapeRange(ctx context.Context, tr tracker.Config, r IDRange) []*types.Issue {
	return e.scrapeRange(ctx, tr, r, nil)
}

// scrapeRange is ScrapeRange with a progress callback, called once per id
// that was fully processed. An id cut short by cancellation is not
// reported.
func (e *Engine) scrapeRange(ctx context.Context, tr tracker.Config, r IDRange, progress func(id uint64, iss *types.Issue)) []*types.Issue {
	logger := e.logger.With("tracker", tr.Name)
	delay := e.politeness(ctx, tr, r)
	var issues []*types.Issue

	first := true
	for n := range r.All() {
		id := strconv.FormatUint(n, 10)
		if !first {
			if err := sleep(ctx, jitter(delay)); err != nil {
				logger.Warn("scrape interrupted", "issue_id", id, "error", err)
				break
			}
		}
		first = false

		res := e.scrapeOne(ctx, tr, id)
		if ctx.Err() != nil && res.Reason == extract.FetchFailure {
			logger.Warn("scrape interrupted", "issue_id", id, "error", ctx.Err())
			break
		}
		e.record(logger, res)
		if res.Ok() {
			issues = append(issues, res.Issue)
		}
		if progress != nil {
			progress(n, res.Issue)
		}
	}
	return issues
}

// ScrapeParallel splits span into workers sub-ranges, scrapes each on its
// own goroutine and concatenates the results in sub-range order. A worker
// count above the range length is clamped to it.
func (e *Engine) ScrapeParallel(ctx context.Context, tr tracker.Config, span IDRange, workers int) ([]*types.Issue, error) {
	if n := ClampWorkers(span, workers); n != workers {
		e.logger.Warn("more workers than ids, clamping", "workers", workers, "ids", span.Len())
		workers = n
	}
	parts, err := SplitRange(span, workers)
	if err != nil {
		return nil, err
	}

	cp := e.checkpoint
	if cp != nil {
		if _, err := cp.Begin(tr.Name, span, parts); err != nil {
			return nil, err
		}
		stop := e.autoCheckpoint(cp)
		defer stop()
	}

	e.logger.Info("scrape started",
		"tracker", tr.Name,
		"range", span.String(),
		"workers", len(parts),
	)
	start := time.Now()

	results := make([][]*types.Issue, len(parts))
	g := new(errgroup.Group)
	g.SetLimit(len(parts))
	for i, part := range parts {
		g.Go(func() error {
			e.metrics.ActiveWorkers.Add(1)
			defer e.metrics.ActiveWorkers.Add(-1)

			todo := part
			var progress func(uint64, *types.Issue)
			if cp != nil {
				rest, prior, ok, err := cp.Remaining(i)
				if err != nil {
					return err
				}
				results[i] = prior
				if !ok {
					e.logger.Debug("worker already done", "worker_id", i, "range", part.String(), "issues", len(prior))
					return nil
				}
				todo = rest
				progress = func(id uint64, iss *types.Issue) { cp.Advance(i, id, iss) }
			}

			results[i] = append(results[i], e.scrapeRange(ctx, tr, todo, progress)...)
			e.logger.Debug("worker done", "worker_id", i, "range", todo.String(), "issues", len(results[i]))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if cp != nil {
		if ctx.Err() != nil {
			if err := cp.Save(); err != nil {
				e.logger.Error("checkpoint save failed", "error", err)
			} else {
				e.logger.Info("scrape interrupted, progress saved", "checkpoint", cp.Path())
			}
		} else if err := cp.Clean(); err != nil {
			e.logger.Warn("checkpoint cleanup failed", "error", err)
		}
	}

	var issues []*types.Issue
	for _, r := range results {
		issues = append(issues, r...)
	}

	if e.pipeline != nil {
		kept, dropped, err := e.pipeline.Run(issues)
		if err != nil {
			return nil, fmt.Errorf("post-process issues: %w", err)
		}
		e.metrics.IssuesDropped.Add(int64(dropped))
		issues = kept
	}

	e.logger.Info("scrape finished",
		"tracker", tr.Name,
		"issues", len(issues),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return issues, nil
}

// autoCheckpoint saves cp every checkpoint interval until the returned stop
// function is called.
func (e *Engine) autoCheckpoint(cp *Checkpoint) (stop func()) {
	interval := e.cfg.Scrape.CheckpointInterval
	if interval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := cp.Save(); err != nil {
					e.logger.Error("checkpoint save failed", "error", err)
				} else {
					e.logger.Debug("checkpoint saved", "checkpoint", cp.Path())
				}
			}
		}
	}()
	return func() {
		close(done)
		<-exited
	}
}

// politeness returns the pause between two fetches of r: the configured
// delay, raised to the host's robots.txt Crawl-delay.
func (e *Engine) politeness(ctx context.Context, tr tracker.Config, r IDRange) time.Duration {
	delay := e.cfg.Scrape.PolitenessDelay
	if e.robots != nil {
		delay = max(delay, e.robots.CrawlDelay(ctx, tr.URL(strconv.FormatUint(r.From, 10))))
	}
	return delay
}

// scrapeOne fetches one page, retrying retryable fetch errors, and runs the
// extractor on it.
func (e *Engine) scrapeOne(ctx context.Context, tr tracker.Config, id string) extract.Result {
	req, err := types.NewRequest(tr.URL(id), tr.Name, id)
	if err != nil {
		return extract.Fetched(id, err)
	}
	req.MaxRetries = e.cfg.Scrape.MaxRetries

	if e.robots != nil && !e.robots.Allowed(ctx, req.URLString()) {
		return extract.Fetched(id, fmt.Errorf("%s: %w", req.URLString(), types.ErrDisallowed))
	}

	for {
		resp, err := e.fetch(ctx, req)
		if err == nil {
			e.metrics.BytesDownloaded.Add(int64(len(resp.Body)))
			return e.extractor.Extract(tr, id, resp)
		}

		var fetchErr *types.FetchError
		if !errors.As(err, &fetchErr) || !fetchErr.IsRetryable() || req.RetryCount >= req.MaxRetries {
			return extract.Fetched(id, err)
		}

		req.RetryCount++
		e.metrics.RequestsRetried.Add(1)
		backoff := e.cfg.Scrape.RetryDelay * time.Duration(req.RetryCount)
		if fetchErr.RetryAfter > 0 {
			backoff = fetchErr.RetryAfter
		}
		e.logger.Warn("retrying request",
			"issue_id", id,
			"retry", req.RetryCount,
			"max_retries", req.MaxRetries,
			"backoff", backoff,
			"error", err,
		)
		if err := sleep(ctx, backoff); err != nil {
			return extract.Fetched(id, err)
		}
	}
}

func (e *Engine) fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	timeout := e.cfg.Scrape.RequestTimeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	e.metrics.PagesRequested.Add(1)
	return e.fetcher.Fetch(ctx, req)
}

// record counts and logs the outcome of one issue.
func (e *Engine) record(logger *slog.Logger, res extract.Result) {
	logger = logger.With("issue_id", res.IssueID)

	switch res.Reason {
	case extract.Accepted:
		e.metrics.IssuesAccepted.Add(1)
		logger.Debug("issue accepted")
		return
	case extract.FetchFailure:
		e.metrics.PagesFailed.Add(1)
		logger.Warn("issue skipped", "reason", res.Reason.String(), "error", res.Err)
		return
	case extract.DuplicateIssue:
		e.metrics.RejectedDuplicate.Add(1)
	case extract.NotARequirement:
		e.metrics.RejectedNotRequirement.Add(1)
	case extract.InsufficientActivity:
		e.metrics.RejectedInactive.Add(1)
	case extract.ExtractionError:
		e.metrics.ExtractionErrors.Add(1)
		logger.Warn("issue skipped", "reason", res.Reason.String(), "error", res.Err)
		return
	}
	logger.Info("issue skipped", "reason", res.Reason.String())
}

// jitter returns a random duration within ±25% of base.
func jitter(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	spread := float64(base) * 0.25
	return base + time.Duration(rand.Float64()*2*spread-spread)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
