package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/nfrminer/internal/config"
	"github.com/IshaanNene/nfrminer/internal/types"
)

// BrowserFetcher implements Fetcher using a headless browser via Rod. It is
// meant for tracker front-ends that render issue fields client-side.
type BrowserFetcher struct {
	browser  *rod.Browser
	cfg      *config.Config
	stealth  bool
	logger   *slog.Logger
	pagePool chan *rod.Page
}

// NewBrowserFetcher launches Chromium and connects to it.
func NewBrowserFetcher(cfg *config.Config, logger *slog.Logger) (*BrowserFetcher, error) {
	bf := &BrowserFetcher{
		cfg:     cfg,
		stealth: cfg.Fetcher.Stealth,
		logger:  logger.With("component", "browser_fetcher"),
	}

	launchURL, err := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-blink-features", "AutomationControlled").
		Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(launchURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	bf.browser = browser
	// one page per scrape worker; workers fetch sequentially
	bf.pagePool = make(chan *rod.Page, cfg.Scrape.Workers)

	bf.logger.Info("browser fetcher ready",
		"max_pages", cfg.Scrape.Workers,
		"stealth", bf.stealth,
	)

	return bf, nil
}

// Fetch navigates to a URL and returns the rendered page content.
func (bf *BrowserFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	start := time.Now()

	base, err := bf.getPage()
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: true}
	}
	defer bf.putPage(base)

	page := base.Context(ctx)

	err = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: bf.cfg.Scrape.UserAgent})
	if err != nil {
		bf.logger.Warn("failed to set user agent", "error", err)
	}

	timeout := bf.cfg.Scrape.RequestTimeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}

	// Capture the document status; rod does not expose it on the page.
	statusCode := 200
	wait := page.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type == proto.NetworkResourceTypeDocument {
			statusCode = e.Response.Status
			return true
		}
		return false
	})

	if err := page.Timeout(timeout).Navigate(req.URLString()); err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: true}
	}
	wait()
	if err := statusError(req.URLString(), statusCode, ""); err != nil {
		return nil, err
	}

	if err := page.Timeout(timeout).WaitStable(300 * time.Millisecond); err != nil {
		bf.logger.Warn("page stability timeout, continuing", "url", req.URLString(), "error", err)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: true}
	}

	finalURL := req.URLString()
	if info, err := page.Info(); err == nil && info != nil {
		finalURL = info.URL
	}

	bf.logger.Debug("page rendered",
		"tracker", req.Tracker,
		"issue_id", req.IssueID,
		"status", statusCode,
		"size", len(html),
		"duration", time.Since(start),
	)
	return types.NewResponse(req, statusCode, []byte(html), finalURL), nil
}

// Close shuts down the browser and releases resources.
func (bf *BrowserFetcher) Close() error {
	close(bf.pagePool)
	for page := range bf.pagePool {
		_ = page.Close()
	}
	if bf.browser != nil {
		return bf.browser.Close()
	}
	return nil
}

// Type returns the fetcher type identifier.
func (bf *BrowserFetcher) Type() string {
	return "browser"
}

// getPage retrieves a page from the pool or creates a new one.
func (bf *BrowserFetcher) getPage() (*rod.Page, error) {
	select {
	case page := <-bf.pagePool:
		return page, nil
	default:
		if bf.stealth {
			return stealth.Page(bf.browser)
		}
		return bf.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
}

// putPage returns a page to the pool.
func (bf *BrowserFetcher) putPage(page *rod.Page) {
	_ = page.Navigate("about:blank")

	select {
	case bf.pagePool <- page:
	default:
		_ = page.Close()
	}
}
