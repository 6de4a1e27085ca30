package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/IshaanNene/nfrminer/internal/config"
	"github.com/IshaanNene/nfrminer/internal/types"
)

// HTTPFetcher fetches server-rendered tracker pages with net/http.
// Any non-2xx status is returned as a *types.FetchError.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	maxBody   int64
	logger    *slog.Logger
}

// NewHTTPFetcher creates a new HTTP fetcher.
func NewHTTPFetcher(cfg *config.Config, logger *slog.Logger) *HTTPFetcher {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.Fetcher.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.Scrape.Workers,
		IdleConnTimeout:     cfg.Fetcher.IdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.Fetcher.TLSInsecure,
		},
		DisableCompression: true, // decoded in decompressReader, including brotli
		Proxy:              http.ProxyFromEnvironment,
	}

	return &HTTPFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Scrape.RequestTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if !cfg.Fetcher.FollowRedirects {
					return http.ErrUseLastResponse
				}
				if len(via) >= cfg.Fetcher.MaxRedirects {
					return fmt.Errorf("max redirects (%d) reached", cfg.Fetcher.MaxRedirects)
				}
				return nil
			},
		},
		userAgent: cfg.Scrape.UserAgent,
		maxBody:   cfg.Fetcher.MaxBodySize,
		logger:    logger.With("component", "http_fetcher"),
	}
}

// Fetch GETs the request URL and returns the decoded page.
func (f *HTTPFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	url := req.URLString()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &types.FetchError{URL: url, Err: err}
	}
	httpReq.Header.Set("User-Agent", f.userAgent)
	httpReq.Header.Set("Accept", "text/html,text/plain;q=0.9")
	httpReq.Header.Set("Accept-Encoding", "gzip, deflate, br")
	for key, values := range req.Headers {
		httpReq.Header.Del(key)
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	start := time.Now()
	httpResp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, &types.FetchError{URL: url, Err: err, Retryable: isRetryableError(err)}
	}
	defer httpResp.Body.Close()

	if err := statusError(url, httpResp.StatusCode, httpResp.Header.Get("Retry-After")); err != nil {
		return nil, err
	}

	body, err := f.readBody(httpResp)
	if err != nil {
		return nil, &types.FetchError{URL: url, StatusCode: httpResp.StatusCode, Err: err, Retryable: isRetryableError(err)}
	}

	f.logger.Debug("page fetched",
		"tracker", req.Tracker,
		"issue_id", req.IssueID,
		"status", httpResp.StatusCode,
		"size", len(body),
		"duration", time.Since(start),
	)
	return types.NewResponse(req, httpResp.StatusCode, body, httpResp.Request.URL.String()), nil
}

// Close releases idle connections.
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// Type returns the fetcher type identifier.
func (f *HTTPFetcher) Type() string {
	return "http"
}

// readBody decodes the body and enforces the page size limit on the
// decoded bytes.
func (f *HTTPFetcher) readBody(resp *http.Response) ([]byte, error) {
	reader, err := decompressReader(resp.Header.Get("Content-Encoding"), resp.Body)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(io.LimitReader(reader, f.maxBody+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > f.maxBody {
		return nil, fmt.Errorf("page exceeds max_body_size (%d bytes)", f.maxBody)
	}
	return body, nil
}

// statusError maps a non-2xx page status to a FetchError. Overload answers
// (429, 5xx) are retryable; a missing, private or moved issue is final.
func statusError(url string, code int, retryAfter string) error {
	if code >= 200 && code < 300 {
		return nil
	}
	fe := &types.FetchError{
		URL:        url,
		StatusCode: code,
		Err:        fmt.Errorf("HTTP %d %s", code, http.StatusText(code)),
	}
	switch {
	case code == http.StatusTooManyRequests:
		fe.Retryable = true
		fe.RetryAfter = parseRetryAfter(retryAfter)
	case code >= 500:
		fe.Retryable = true
	}
	return fe
}

func decompressReader(encoding string, r io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "gzip":
		return gzip.NewReader(r)
	case "deflate":
		return flate.NewReader(r), nil
	case "br":
		return brotli.NewReader(r), nil
	default:
		return r, nil
	}
}

// isRetryableError reports whether a transport error is transient:
// timeouts, resets, refused connections and truncated bodies. A cancelled
// or expired context is final.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED)
}

// parseRetryAfter reads a Retry-After header given in seconds or as an
// HTTP date. Missing or unparsable values wait 5s; waits are capped at 2m.
func parseRetryAfter(header string) time.Duration {
	const fallback, ceiling = 5 * time.Second, 2 * time.Minute

	header = strings.TrimSpace(header)
	var d time.Duration
	if secs, err := strconv.Atoi(header); err == nil {
		d = time.Duration(secs) * time.Second
	} else if t, err := http.ParseTime(header); err == nil {
		d = max(time.Until(t), time.Second)
	} else {
		return fallback
	}
	return min(d, ceiling)
}
