package fetcher

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/nfrminer/internal/config"
	"github.com/IshaanNene/nfrminer/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func newTestFetcher(t *testing.T) *HTTPFetcher {
	t.Helper()
	f := NewHTTPFetcher(config.DefaultConfig(), testLogger)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func request(t *testing.T, url string) *types.Request {
	t.Helper()
	req, err := types.NewRequest(url, "Mylyn", "1")
	require.NoError(t, err)
	return req
}

func TestFetchBrotli(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		bw := brotli.NewWriter(&buf)
		_, _ = bw.Write([]byte("<html><body>hello</body></html>"))
		_ = bw.Close()
		w.Header().Set("Content-Encoding", "br")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	resp, err := newTestFetcher(t).Fetch(context.Background(), request(t, srv.URL))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "<html><body>hello</body></html>", string(resp.Body))
	assert.Equal(t, "1", resp.Request.IssueID)
}

func TestFetchSendsTrackerHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	req := request(t, srv.URL)
	req.Headers.Set("Cookie", "LOGIN=1")
	_, err := newTestFetcher(t).Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "nfrminer/"+config.Version, got.Get("User-Agent"))
	assert.Equal(t, "LOGIN=1", got.Get("Cookie"))
}

func TestFetchMissingIssueIsFinal(t *testing.T) {
	for _, code := range []int{http.StatusNotFound, http.StatusForbidden, http.StatusGone} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "no such bug", code)
		}))

		resp, err := newTestFetcher(t).Fetch(context.Background(), request(t, srv.URL))
		srv.Close()

		assert.Nil(t, resp)
		var fe *types.FetchError
		require.True(t, errors.As(err, &fe), "status %d", code)
		assert.Equal(t, code, fe.StatusCode)
		assert.False(t, fe.IsRetryable(), "status %d", code)
	}
}

func TestFetchRedirectNotFollowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	cfg.Fetcher.FollowRedirects = false
	_, err := NewHTTPFetcher(cfg, testLogger).Fetch(context.Background(), request(t, srv.URL))
	var fe *types.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusFound, fe.StatusCode)
	assert.False(t, fe.IsRetryable())
}

func TestFetchBodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte("x"), 64))
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	cfg.Fetcher.MaxBodySize = 32
	_, err := NewHTTPFetcher(cfg, testLogger).Fetch(context.Background(), request(t, srv.URL))
	var fe *types.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Contains(t, fe.Error(), "max_body_size")
}

func TestFetchServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestFetcher(t).Fetch(context.Background(), request(t, srv.URL))
	var fe *types.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 503, fe.StatusCode)
	assert.True(t, fe.IsRetryable())
}

func TestFetchRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestFetcher(t).Fetch(context.Background(), request(t, srv.URL))
	var fe *types.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 3*time.Second, fe.RetryAfter)
	assert.True(t, fe.IsRetryable())
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 5*time.Second, parseRetryAfter(""))
	assert.Equal(t, 120*time.Second, parseRetryAfter("600"))
	assert.Equal(t, 5*time.Second, parseRetryAfter("soon"))
	assert.Equal(t, 7*time.Second, parseRetryAfter(" 7 "))
	assert.Equal(t, 2*time.Minute, parseRetryAfter(time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)))
}

func TestNewUnsupportedType(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Fetcher.Type = "ftp"
	_, err := New(cfg, testLogger)
	assert.Error(t, err)
}
