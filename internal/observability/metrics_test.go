package observability

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestServeHTTP(t *testing.T) {
	m := NewMetrics(testLogger)
	m.PagesRequested.Add(10)
	m.RejectedDuplicate.Add(2)

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	out := string(body)
	if !strings.Contains(out, "nfrminer_pages_requested_total 10\n") {
		t.Errorf("missing pages_requested in output:\n%s", out)
	}
	if !strings.Contains(out, "# TYPE nfrminer_active_workers gauge") {
		t.Errorf("active_workers should be a gauge:\n%s", out)
	}
}

func TestSnapshotOmitsZero(t *testing.T) {
	m := NewMetrics(testLogger)
	m.IssuesAccepted.Add(3)

	snap := m.Snapshot()
	if snap["issues_accepted_total"] != 3 {
		t.Errorf("expected 3 accepted, got %v", snap["issues_accepted_total"])
	}
	if _, ok := snap["pages_failed_total"]; ok {
		t.Error("zero counters should be omitted")
	}
}
