package engine

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/IshaanNene/nfrminer/internal/fetcher"
	"github.com/IshaanNene/nfrminer/internal/types"
)

// Robots fetches robots.txt once per tracker host through the page fetcher
// and answers which issue pages nfrminer may fetch and how long to wait
// between them. A host without a readable robots.txt allows everything.
type Robots struct {
	fetcher fetcher.Fetcher
	agent   string
	timeout time.Duration
	logger  *slog.Logger

	mu    sync.Mutex
	hosts map[string]*robotsRules
}

// robotsRules is the group of a robots.txt that applies to nfrminer.
type robotsRules struct {
	allow      []robotsPattern
	disallow   []robotsPattern
	crawlDelay time.Duration
}

type robotsPattern struct {
	raw string
	re  *regexp.Regexp
}

// NewRobots creates a robots.txt cache. Groups are matched against the
// product token of userAgent ("nfrminer" for "nfrminer/1.0").
func NewRobots(f fetcher.Fetcher, userAgent string, timeout time.Duration, logger *slog.Logger) *Robots {
	agent, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(userAgent)), "/")
	return &Robots{
		fetcher: f,
		agent:   agent,
		timeout: timeout,
		logger:  logger.With("component", "robots"),
		hosts:   make(map[string]*robotsRules),
	}
}

// Allowed reports whether rawURL may be fetched.
func (r *Robots) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	return r.rules(ctx, u).allowed(u.RequestURI())
}

// CrawlDelay returns the Crawl-delay of rawURL's host, or 0.
func (r *Robots) CrawlDelay(ctx context.Context, rawURL string) time.Duration {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0
	}
	return r.rules(ctx, u).crawlDelay
}

// rules returns the cached rules of u's host. Workers of one scrape share a
// host, so the first caller fetches while the others wait.
func (r *Robots) rules(ctx context.Context, u *url.URL) *robotsRules {
	host := u.Scheme + "://" + u.Host

	r.mu.Lock()
	defer r.mu.Unlock()
	if rules, ok := r.hosts[host]; ok {
		return rules
	}
	rules := r.fetch(ctx, host)
	r.hosts[host] = rules
	return rules
}

func (r *Robots) fetch(ctx context.Context, host string) *robotsRules {
	req, err := types.NewRequest(host+"/robots.txt", "", "")
	if err != nil {
		return &robotsRules{}
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	resp, err := r.fetcher.Fetch(ctx, req)
	if err != nil || !resp.IsSuccess() {
		r.logger.Debug("robots.txt unavailable, allowing all", "host", host, "error", err)
		return &robotsRules{}
	}

	rules := parseRobots(string(resp.Body), r.agent)
	r.logger.Info("robots.txt loaded",
		"host", host,
		"allow", len(rules.allow),
		"disallow", len(rules.disallow),
		"crawl_delay", rules.crawlDelay,
	)
	return rules
}

// parseRobots returns the group addressed to agent, falling back to the
// "*" group. Consecutive User-agent lines share one group.
func parseRobots(content, agent string) *robotsRules {
	var star, own robotsRules
	ownSeen := false
	var current []*robotsRules
	lastWasAgent := false

	for _, line := range strings.Split(content, "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		if key == "user-agent" {
			if !lastWasAgent {
				current = current[:0]
			}
			lastWasAgent = true
			ua := strings.ToLower(value)
			switch {
			case ua == "*":
				current = append(current, &star)
			case agent != "" && strings.Contains(ua, agent):
				ownSeen = true
				current = append(current, &own)
			}
			continue
		}
		lastWasAgent = false

		for _, g := range current {
			switch key {
			case "allow":
				if p, ok := compileRobotsPattern(value); ok {
					g.allow = append(g.allow, p)
				}
			case "disallow":
				if p, ok := compileRobotsPattern(value); ok {
					g.disallow = append(g.disallow, p)
				}
			case "crawl-delay":
				if secs, err := strconv.ParseFloat(value, 64); err == nil && secs > 0 {
					g.crawlDelay = time.Duration(secs * float64(time.Second))
				}
			}
		}
	}

	if ownSeen {
		return &own
	}
	return &star
}

// compileRobotsPattern turns a path pattern into an anchored regexp.
// "*" matches any sequence and a trailing "$" anchors the end.
func compileRobotsPattern(pattern string) (robotsPattern, bool) {
	if pattern == "" {
		return robotsPattern{}, false
	}
	expr := pattern
	anchored := strings.HasSuffix(expr, "$")
	expr = strings.TrimSuffix(expr, "$")
	expr = "^" + strings.ReplaceAll(regexp.QuoteMeta(expr), `\*`, ".*")
	if anchored {
		expr += "$"
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return robotsPattern{}, false
	}
	return robotsPattern{raw: pattern, re: re}, true
}

// allowed applies the longest matching rule; Allow wins a tie.
func (rr *robotsRules) allowed(path string) bool {
	longest := func(ps []robotsPattern) int {
		n := -1
		for _, p := range ps {
			if len(p.raw) > n && p.re.MatchString(path) {
				n = len(p.raw)
			}
		}
		return n
	}
	deny := longest(rr.disallow)
	return deny < 0 || longest(rr.allow) >= deny
}
