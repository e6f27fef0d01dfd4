package crawler

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/kasumi-gikai/minutes-crawler/internal/classify"
	"github.com/kasumi-gikai/minutes-crawler/internal/config"
	"github.com/kasumi-gikai/minutes-crawler/internal/frontier"
	"github.com/kasumi-gikai/minutes-crawler/internal/httpclient"
	"github.com/kasumi-gikai/minutes-crawler/internal/manifest"
	"github.com/kasumi-gikai/minutes-crawler/internal/metadata"
	"github.com/kasumi-gikai/minutes-crawler/internal/robots"
	"github.com/kasumi-gikai/minutes-crawler/internal/seedsource"
	"github.com/kasumi-gikai/minutes-crawler/internal/storage"
	"github.com/kasumi-gikai/minutes-crawler/pkg/hashutil"
	"github.com/kasumi-gikai/minutes-crawler/pkg/limiter"
	"github.com/kasumi-gikai/minutes-crawler/pkg/retry"
	"github.com/kasumi-gikai/minutes-crawler/pkg/timeutil"
	"github.com/kasumi-gikai/minutes-crawler/pkg/urlutil"
)

// defaultBackoffParam governs the retry handler's exponential backoff
// inside the Seed Crawler. Jitter and attempt count come from config;
// the curve shape itself is not exposed as a flag in spec.md.
var defaultBackoffParam = timeutil.NewBackoffParam(500*time.Millisecond, 2.0, 30*time.Second)

// Crawler is the Seed Crawler component. One instance is shared by
// every worker in the orchestrator's pool: all of its collaborators
// (HTTP client, robots checker, rate limiter, storage sink, manifest
// store) are already safe for concurrent use, so CrawlSeed itself holds
// no state beyond its arguments and is safe to call from many
// goroutines at once.
type Crawler struct {
	httpClient    *httpclient.Client
	robotsChecker *robots.Checker
	rateLimiter   limiter.RateLimiter
	storageSink   storage.Sink
	manifestStore *manifest.Store
	metadataSink  metadata.Sink
	config        config.Config
	rules         classify.Rules
	runID         string
	backoffParam  timeutil.BackoffParam
}

func NewCrawler(
	httpClient *httpclient.Client,
	robotsChecker *robots.Checker,
	rateLimiter limiter.RateLimiter,
	storageSink storage.Sink,
	manifestStore *manifest.Store,
	metadataSink metadata.Sink,
	cfg config.Config,
	runID string,
) *Crawler {
	return &Crawler{
		httpClient:    httpClient,
		robotsChecker: robotsChecker,
		rateLimiter:   rateLimiter,
		storageSink:   storageSink,
		manifestStore: manifestStore,
		metadataSink:  metadataSink,
		config:        cfg,
		rules: classify.Rules{
			Keywords: cfg.Keywords(),
			FileExts: cfg.FileExts(),
			URLHints: cfg.URLHints(),
		},
		runID:        runID,
		backoffParam: defaultBackoffParam,
	}
}

func (c *Crawler) retryParam() retry.RetryParam {
	return retry.NewRetryParam(c.config.Jitter(), c.config.RandomSeed(), c.config.MaxAttempt(), c.backoffParam)
}

// applyCrawlDelay feeds target's host's robots.txt Crawl-delay (if any)
// into the rate limiter ahead of a fetch, so resolveDelayLocked's max() sees
// it alongside the configured base delay. The robots cache already
// single-flights ruleSet lookups per host, so calling this on every
// fetch costs a cache hit, not a repeat fetch of robots.txt.
func (c *Crawler) applyCrawlDelay(ctx context.Context, target url.URL) {
	if !c.config.RespectRobots() {
		return
	}
	if delay := c.robotsChecker.CrawlDelay(ctx, target); delay != nil {
		c.rateLimiter.SetCrawlDelay(target.Host, *delay)
	}
}

// SeedStats summarizes one CrawlSeed call for the orchestrator's final
// crawl-stats aggregation.
type SeedStats struct {
	PagesFetched    int
	FilesDownloaded int
	Errors          int
}

// CrawlSeed runs the full seed-change-detection and BFS procedure for
// one seed, emitting every manifest event along the way. It never
// returns an error: per SPEC_FULL §4.7's propagation addendum, a
// per-URL failure is recorded as an error event and the crawl proceeds
// to the next frontier item rather than aborting the seed.
func (c *Crawler) CrawlSeed(ctx context.Context, seed seedsource.Seed, priorValidator manifest.Validator, hasPrior bool, shared *SharedState) SeedStats {
	seedURL, err := url.Parse(seed.SeedURL)
	if err != nil {
		var errorCount int
		c.emitError(seed, seed.SeedURL, "fetch", err.Error(), &errorCount)
		return SeedStats{Errors: errorCount}
	}

	var prefetch *httpclient.FetchResult

	if hasPrior && !c.config.ForceCrawl() && c.config.SkipCompletedSeeds() {
		if !c.config.RecheckSeeds() {
			c.manifestStore.Append(manifest.NewSeedSkipped(time.Now(), c.runID, seed.Prefecture, seed.City, seed.SeedURL, manifest.SkipReasonCompletedUnchanged))
			return SeedStats{}
		}
		result := c.detectChange(ctx, *seedURL, priorValidator)
		switch result.outcome {
		case changeSkipUnchanged:
			c.manifestStore.Append(manifest.NewSeedSkipped(time.Now(), c.runID, seed.Prefecture, seed.City, seed.SeedURL, manifest.SkipReasonCompletedUnchanged))
			return SeedStats{}
		case changeSkipNoDiff:
			c.manifestStore.Append(manifest.NewSeedSkipped(time.Now(), c.runID, seed.Prefecture, seed.City, seed.SeedURL, manifest.SkipReasonNoChangeDetected))
			return SeedStats{}
		case changeRecrawl:
			prefetch = result.prefetch
		}
	}

	c.manifestStore.Append(manifest.NewSeedStarted(time.Now(), c.runID, seed.Prefecture, seed.City, seed.SeedURL))
	return c.runBFS(ctx, seed, *seedURL, prefetch, shared)
}

func (c *Crawler) runBFS(ctx context.Context, seed seedsource.Seed, seedURL url.URL, prefetch *httpclient.FetchResult, shared *SharedState) SeedStats {
	scopeHost := seedURL.Host
	scopePath := seedURL.Path

	queue := frontier.NewFIFOQueue[frontier.Item]()
	visited := frontier.NewSet[string]()
	queue.Enqueue(frontier.NewItem(seedURL, 0))

	pagesFetched := 0
	filesDownloaded := 0
	errorCount := 0
	var seedValidator manifest.Validator

	for queue.Size() > 0 && pagesFetched < c.config.MaxPages() {
		select {
		case <-ctx.Done():
			// Best-effort drain: the in-flight iteration (if any) has
			// already completed by the time we check here, so stopping
			// admission of new frontier pops is all that's needed.
			goto done
		default:
		}

		item, ok := queue.Dequeue()
		if !ok {
			break
		}
		itemURL := item.URL()
		normalized := urlutil.Normalize(itemURL)
		key := normalized.String()
		if visited.Contains(key) {
			continue
		}
		visited.Add(key)

		if c.config.RespectRobots() && !c.robotsChecker.Allowed(ctx, seed.Prefecture, seed.City, itemURL) {
			c.manifestStore.Append(manifest.NewRobotsDenied(time.Now(), c.runID, seed.Prefecture, seed.City, seed.SeedURL, itemURL.String(), itemURL.Host, firstPathSegment(itemURL.Path)))
			if item.Depth() == 0 {
				// The seed itself is disallowed: skip it without a seed_done,
				// so no validator is stored and a later run re-evaluates robots.
				c.manifestStore.Append(manifest.NewSeedSkipped(time.Now(), c.runID, seed.Prefecture, seed.City, seed.SeedURL, manifest.SkipReasonRobotsDenied))
				return SeedStats{}
			}
			continue
		}

		var result httpclient.FetchResult
		if item.Depth() == 0 && prefetch != nil {
			result = *prefetch
		} else {
			c.applyCrawlDelay(ctx, item.URL())
			c.rateLimiter.Wait(item.URL().Host)
			fetched, ferr := c.httpClient.Get(ctx, item.URL(), item.Depth(), c.retryParam())
			if ferr != nil {
				c.emitError(seed, itemURL.String(), "fetch", ferr.Error(), &errorCount)
				continue
			}
			result = fetched
		}
		pagesFetched++

		if item.Depth() == 0 {
			seedValidator = validatorFromFetch(result)
		}

		switch {
		case httpclient.IsHTMLContent(result.ContentType()):
			c.handlePage(ctx, seed, item, result, queue, scopeHost, scopePath, shared, &filesDownloaded, &errorCount)
		case httpclient.IsBinaryContent(result.ContentType()) || classify.IsMinuteFile(item.URL(), c.rules):
			// Direct hit: the seed (or a followed link) resolved straight
			// to a payload file rather than an HTML index page. There is no
			// separate page that linked to it, so the link_found this
			// invariant requires is self-referential: page and target are
			// the same URL.
			c.manifestStore.Append(manifest.NewLinkFound(time.Now(), c.runID, seed.Prefecture, seed.City, seed.SeedURL, itemURL.String(), itemURL.String(), manifest.LinkKindFile))
			c.downloadPayload(ctx, seed, item.URL(), &result, shared, &filesDownloaded, &errorCount)
		}
	}

done:
	c.manifestStore.Append(manifest.NewSeedDone(time.Now(), c.runID, seed.Prefecture, seed.City, seed.SeedURL, pagesFetched, filesDownloaded, seedValidator))
	return SeedStats{PagesFetched: pagesFetched, FilesDownloaded: filesDownloaded, Errors: errorCount}
}

func (c *Crawler) handlePage(ctx context.Context, seed seedsource.Seed, item frontier.Item, result httpclient.FetchResult, queue *frontier.FIFOQueue[frontier.Item], scopeHost, scopePath string, shared *SharedState, filesDownloaded, errorCount *int) {
	itemURL := item.URL()
	if !c.config.NoDownload() {
		pageResult, werr := c.storageSink.SavePage(seed.Prefecture, seed.City, item.URL(), result.Body())
		if werr != nil {
			c.emitError(seed, itemURL.String(), "save", werr.Error(), errorCount)
		} else {
			c.manifestStore.Append(manifest.NewPageSaved(time.Now(), c.runID, seed.Prefecture, seed.City, seed.SeedURL, itemURL.String(), pageResult.Path, pageResult.ContentSHA256))
		}
	}

	links, lerr := classify.ExtractLinks(result.Body(), result.FinalURL())
	if lerr != nil {
		c.emitError(seed, itemURL.String(), "parse", lerr.Error(), errorCount)
		return
	}

	for _, link := range links {
		// Payload links (minute files) are downloaded regardless of scope:
		// municipalities commonly serve documents from a separate host or
		// path than the index pages that link them. Scope only gates which
		// HTML pages get queued for further crawling.
		if classify.IsPayloadLink(link.URL, link.AnchorText, c.rules) {
			c.manifestStore.Append(manifest.NewLinkFound(time.Now(), c.runID, seed.Prefecture, seed.City, seed.SeedURL, itemURL.String(), link.URL.String(), manifest.LinkKindFile))
			if !c.config.NoDownload() && !c.config.NoDownloadFiles() {
				c.downloadPayload(ctx, seed, link.URL, nil, shared, filesDownloaded, errorCount)
			}
			continue
		}

		if !inScope(link.URL, scopeHost, scopePath, c.config) {
			continue
		}

		if item.Depth()+1 <= c.config.MaxDepth() {
			c.manifestStore.Append(manifest.NewLinkFound(time.Now(), c.runID, seed.Prefecture, seed.City, seed.SeedURL, itemURL.String(), link.URL.String(), manifest.LinkKindPage))
			queue.Enqueue(frontier.NewItem(link.URL, item.Depth()+1))
		}
	}
}

// downloadPayload applies the download procedure for one payload URL.
// prefetched is non-nil only for the direct-hit-on-seed case, where the
// body is already in hand and no extra fetch/rate-limit wait is needed.
func (c *Crawler) downloadPayload(ctx context.Context, seed seedsource.Seed, fileURL url.URL, prefetched *httpclient.FetchResult, shared *SharedState, filesDownloaded, errorCount *int) {
	normalized := urlutil.Normalize(fileURL)
	key := normalized.String()
	already := shared.Contains(key)
	if already && !c.config.ForceDownload() {
		return
	}

	var result httpclient.FetchResult
	if prefetched != nil {
		result = *prefetched
	} else {
		c.applyCrawlDelay(ctx, fileURL)
		c.rateLimiter.Wait(fileURL.Host)
		fetched, ferr := c.httpClient.Get(ctx, fileURL, 0, c.retryParam())
		if ferr != nil {
			c.emitError(seed, fileURL.String(), "download", ferr.Error(), errorCount)
			return
		}
		result = fetched
	}

	writeResult, werr := c.storageSink.DownloadFile(seed.Prefecture, seed.City, fileURL, result.Body(), already, c.config.ForceDownload())
	if werr != nil {
		c.emitError(seed, fileURL.String(), "save", werr.Error(), errorCount)
		return
	}
	if writeResult.Skipped {
		return
	}

	shared.MarkDownloaded(key)
	*filesDownloaded++
	c.manifestStore.Append(manifest.NewDownloadedFile(time.Now(), c.runID, seed.Prefecture, seed.City, seed.SeedURL, fileURL.String(), writeResult.Path, writeResult.Size, writeResult.ContentSHA256))
}

func (c *Crawler) emitError(seed seedsource.Seed, urlStr, phase, message string, errorCount *int) {
	*errorCount++
	c.manifestStore.Append(manifest.NewError(time.Now(), c.runID, seed.Prefecture, seed.City, seed.SeedURL, urlStr, phase, message))
}

// inScope applies the two scope rules from spec.md §4.7: same_domain_only
// compares hosts case-insensitively; same_path_prefix_only requires the
// candidate path to begin with the seed's path prefix.
func inScope(candidate url.URL, scopeHost, scopePath string, cfg config.Config) bool {
	if candidate.Scheme != "http" && candidate.Scheme != "https" {
		return false
	}
	if cfg.SameDomainOnly() && !strings.EqualFold(candidate.Host, scopeHost) {
		return false
	}
	if cfg.SamePathPrefixOnly() && !strings.HasPrefix(candidate.Path, scopePath) {
		return false
	}
	return true
}

func validatorFromFetch(result httpclient.FetchResult) manifest.Validator {
	headers := result.Headers()
	return manifest.Validator{
		ETag:          headers["Etag"],
		LastModified:  headers["Last-Modified"],
		ContentSHA256: hashutil.SHA256Hex(result.Body()),
	}
}

func firstPathSegment(p string) string {
	trimmed := strings.TrimPrefix(p, "/")
	if trimmed == "" {
		return "/"
	}
	if idx := strings.Index(trimmed, "/"); idx != -1 {
		return "/" + trimmed[:idx]
	}
	return "/" + trimmed
}
