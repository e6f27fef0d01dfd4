package robots

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/kasumi-gikai/minutes-crawler/internal/httpclient"
	"github.com/kasumi-gikai/minutes-crawler/internal/metadata"
	"github.com/kasumi-gikai/minutes-crawler/pkg/retry"
	"github.com/kasumi-gikai/minutes-crawler/pkg/timeutil"
)

// Denial is one recorded robots.txt rejection, kept for the end-of-run
// aggregator.
type Denial struct {
	Prefecture string
	City       string
	Host       string
	PathPrefix string
	URL        string
}

/*
Checker is the Robots Cache component: it fetches and caches one
ruleSet per host (single-flight), answers Allowed/CrawlDelay, and
records each distinct denial exactly once for the aggregator.
*/
type Checker struct {
	client       *httpclient.Client
	metadataSink metadata.Sink
	userAgent    string
	cache        *Cache
	enforce      bool

	denialMu      sync.Mutex
	seenDenials   map[string]struct{}
	denials       []Denial
}

func NewChecker(client *httpclient.Client, metadataSink metadata.Sink, userAgent string, enforce bool) *Checker {
	return &Checker{
		client:       client,
		metadataSink: metadataSink,
		userAgent:    userAgent,
		cache:        NewCache(),
		enforce:      enforce,
		seenDenials:  make(map[string]struct{}),
	}
}

// Allowed reports whether target may be fetched under the host's
// robots.txt. When enforcement is disabled, always true and denials are
// never recorded.
func (c *Checker) Allowed(ctx context.Context, prefecture, city string, target url.URL) bool {
	if !c.enforce {
		return true
	}

	rs := c.ruleSetFor(ctx, target)
	if rs.isAllowed(target.EscapedPath()) {
		return true
	}

	c.recordDenial(prefecture, city, target)
	return false
}

// CrawlDelay returns the Crawl-delay the matched user-agent group
// declared for target's host, or nil.
func (c *Checker) CrawlDelay(ctx context.Context, target url.URL) *time.Duration {
	if !c.enforce {
		return nil
	}
	rs := c.ruleSetFor(ctx, target)
	return rs.CrawlDelay()
}

func (c *Checker) ruleSetFor(ctx context.Context, target url.URL) ruleSet {
	host := target.Host
	return c.cache.resolve(host, func() ruleSet {
		return c.fetchRuleSet(ctx, target.Scheme, host)
	})
}

func (c *Checker) fetchRuleSet(ctx context.Context, scheme, host string) ruleSet {
	robotsURL := url.URL{Scheme: scheme, Host: host, Path: "/robots.txt"}

	retryParam := retry.NewRetryParam(0, 1, 1, timeutil.NewBackoffParam(0, 1, 0))
	result, err := c.client.Get(ctx, robotsURL, 0, retryParam)
	if err != nil {
		// Network failure, any 4xx, or any 5xx all resolve to a fully
		// permissive ruleSet per the robots contract.
		return ruleSet{host: host, permissive: true, fetchedAt: time.Now()}
	}

	parsed := ParseRobotsTxt(string(result.Body()), host)
	return MapResponseToRuleSet(parsed, c.userAgent, time.Now())
}

func (c *Checker) recordDenial(prefecture, city string, target url.URL) {
	pathPrefix := firstPathSegment(target.Path)
	key := fmt.Sprintf("%s|%s|%s", target.Host, pathPrefix, target.String())

	c.denialMu.Lock()
	_, seen := c.seenDenials[key]
	if !seen {
		c.seenDenials[key] = struct{}{}
		c.denials = append(c.denials, Denial{
			Prefecture: prefecture,
			City:       city,
			Host:       target.Host,
			PathPrefix: pathPrefix,
			URL:        target.String(),
		})
	}
	c.denialMu.Unlock()

	if !seen {
		c.metadataSink.RecordRobotsDenied(target.Host, pathPrefix, target.String())
	}
}

// Denials returns a snapshot of every distinct denial recorded so far.
func (c *Checker) Denials() []Denial {
	c.denialMu.Lock()
	defer c.denialMu.Unlock()
	out := make([]Denial, len(c.denials))
	copy(out, c.denials)
	return out
}

func firstPathSegment(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if trimmed == "" {
		return "/"
	}
	if idx := strings.Index(trimmed, "/"); idx != -1 {
		return "/" + trimmed[:idx]
	}
	return "/" + trimmed
}
