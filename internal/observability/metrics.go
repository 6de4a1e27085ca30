package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
)

// Metrics tracks operational counters for scraping and analysis runs.
type Metrics struct {
	// Fetch metrics
	PagesRequested  atomic.Int64
	PagesFailed     atomic.Int64
	RequestsRetried atomic.Int64
	BytesDownloaded atomic.Int64

	// Extraction metrics
	IssuesAccepted         atomic.Int64
	RejectedDuplicate      atomic.Int64
	RejectedNotRequirement atomic.Int64
	RejectedInactive       atomic.Int64
	ExtractionErrors       atomic.Int64
	IssuesDropped          atomic.Int64

	// Analysis metrics
	IssuesFiltered   atomic.Int64
	IssuesModeled    atomic.Int64
	IssuesSparse     atomic.Int64
	IssuesClassified atomic.Int64
	IssuesUnmatched  atomic.Int64

	ActiveWorkers atomic.Int32

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

type metric struct {
	name  string
	help  string
	kind  string
	value int64
}

func (m *Metrics) all() []metric {
	return []metric{
		{"nfrminer_pages_requested_total", "Total issue pages requested", "counter", m.PagesRequested.Load()},
		{"nfrminer_pages_failed_total", "Total issue pages that could not be fetched", "counter", m.PagesFailed.Load()},
		{"nfrminer_requests_retried_total", "Total retried requests", "counter", m.RequestsRetried.Load()},
		{"nfrminer_bytes_downloaded_total", "Total bytes downloaded", "counter", m.BytesDownloaded.Load()},
		{"nfrminer_issues_accepted_total", "Total issues extracted", "counter", m.IssuesAccepted.Load()},
		{"nfrminer_rejected_duplicate_total", "Issues rejected as duplicates", "counter", m.RejectedDuplicate.Load()},
		{"nfrminer_rejected_not_requirement_total", "Issues rejected as non-enhancements", "counter", m.RejectedNotRequirement.Load()},
		{"nfrminer_rejected_inactive_total", "Issues rejected for low activity", "counter", m.RejectedInactive.Load()},
		{"nfrminer_extraction_errors_total", "Issues skipped on unexpected page structure", "counter", m.ExtractionErrors.Load()},
		{"nfrminer_issues_dropped_total", "Issues dropped by the post-extraction pipeline", "counter", m.IssuesDropped.Load()},
		{"nfrminer_issues_filtered_total", "Issues kept by the activity filter", "counter", m.IssuesFiltered.Load()},
		{"nfrminer_issues_modeled_total", "Issues with topic keywords", "counter", m.IssuesModeled.Load()},
		{"nfrminer_issues_sparse_total", "Issues skipped as too sparse to model", "counter", m.IssuesSparse.Load()},
		{"nfrminer_issues_classified_total", "Issues assigned an NFR category", "counter", m.IssuesClassified.Load()},
		{"nfrminer_issues_unmatched_total", "Issues matching no NFR category", "counter", m.IssuesUnmatched.Load()},
		{"nfrminer_active_workers", "Currently active scrape workers", "gauge", int64(m.ActiveWorkers.Load())},
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	for _, metric := range m.all() {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", metric.name, metric.kind)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// StartServer starts the metrics HTTP server in the background.
func (m *Metrics) StartServer(port int, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	addr := fmt.Sprintf(":%d", port)
	m.logger.Info("metrics server starting", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return nil
}

// Snapshot returns the non-zero metrics as a map keyed by short name.
func (m *Metrics) Snapshot() map[string]int64 {
	out := make(map[string]int64)
	for _, metric := range m.all() {
		if metric.value != 0 {
			out[metric.name[len("nfrminer_"):]] = metric.value
		}
	}
	return out
}

// LogSummary writes the snapshot as one structured log line.
func (m *Metrics) LogSummary(msg string) {
	snap := m.Snapshot()
	args := make([]any, 0, len(snap)*2)
	for _, metric := range m.all() {
		key := metric.name[len("nfrminer_"):]
		if v, ok := snap[key]; ok {
			args = append(args, key, v)
		}
	}
	m.logger.Info(msg, args...)
}
