package crawler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/kasumi-gikai/minutes-crawler/internal/config"
	"github.com/kasumi-gikai/minutes-crawler/internal/crawler"
	"github.com/kasumi-gikai/minutes-crawler/internal/httpclient"
	"github.com/kasumi-gikai/minutes-crawler/internal/manifest"
	"github.com/kasumi-gikai/minutes-crawler/internal/metadata"
	"github.com/kasumi-gikai/minutes-crawler/internal/robots"
	"github.com/kasumi-gikai/minutes-crawler/internal/seedsource"
	"github.com/kasumi-gikai/minutes-crawler/internal/storage"
	"github.com/kasumi-gikai/minutes-crawler/pkg/limiter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *manifest.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.jsonl")
	store, _, err := manifest.Open(path, false, metadata.NopSink{}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestConfig(t *testing.T, overrides func(*config.Config) *config.Config) config.Config {
	t.Helper()
	builder := config.WithDefault("seeds.json").
		WithWorkers(1).
		WithBaseDelay(0).
		WithMaxAttempt(1).
		WithMaxPages(20).
		WithMaxDepth(2)
	if overrides != nil {
		builder = overrides(builder)
	}
	cfg, err := builder.Build()
	require.NoError(t, err)
	return cfg
}

func newTestCrawler(t *testing.T, cfg config.Config) *crawler.Crawler {
	t.Helper()
	client := httpclient.New(cfg.UserAgent(), 5*time.Second, metadata.NopSink{})
	rateLimiter := limiter.NewConcurrentRateLimiter(0, 0)
	robotsChecker := robots.NewChecker(client, metadata.NopSink{}, cfg.UserAgent(), cfg.RespectRobots())
	storageSink := storage.NewLocalSink(t.TempDir(), metadata.NopSink{})
	store := newTestStore(t)

	return crawler.NewCrawler(client, robotsChecker, rateLimiter, storageSink, store, metadata.NopSink{}, cfg, "test-run")
}

func TestCrawlSeed_FollowsLinksAndDownloadsPayload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/gikai/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><a href="/gikai/giji.pdf">議事録</a></body></html>`))
	})
	mux.HandleFunc("/gikai/giji.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("pdf-bytes"))
	})
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := newTestConfig(t, nil)
	c := newTestCrawler(t, cfg)

	seed := seedsource.Seed{Prefecture: "東京都", City: "渋谷区", SeedURL: srv.URL + "/gikai/"}
	shared := crawler.NewSharedState(nil)

	stats := c.CrawlSeed(context.Background(), seed, manifest.Validator{}, false, shared)

	assert.Equal(t, 1, stats.PagesFetched)
	assert.Equal(t, 1, stats.FilesDownloaded)
	assert.Equal(t, 0, stats.Errors)
}

func TestCrawlSeed_OutOfScopeLinksAreNotFollowed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/gikai/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><a href="https://elsewhere.example.jp/other">other</a></body></html>`))
	})
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := newTestConfig(t, nil)
	c := newTestCrawler(t, cfg)

	seed := seedsource.Seed{Prefecture: "東京都", City: "渋谷区", SeedURL: srv.URL + "/gikai/"}
	shared := crawler.NewSharedState(nil)

	stats := c.CrawlSeed(context.Background(), seed, manifest.Validator{}, false, shared)

	assert.Equal(t, 1, stats.PagesFetched, "only the seed page, the out-of-scope link must not be followed")
}

func TestCrawlSeed_RespectsRobotsDisallow(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow: /gikai/\n"))
	})
	hit := false
	mux.HandleFunc("/gikai/", func(w http.ResponseWriter, r *http.Request) {
		hit = true
		w.Write([]byte("should not be fetched"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := newTestConfig(t, func(c *config.Config) *config.Config { return c.WithRespectRobots(true) })
	c := newTestCrawler(t, cfg)

	seed := seedsource.Seed{Prefecture: "東京都", City: "渋谷区", SeedURL: srv.URL + "/gikai/"}
	shared := crawler.NewSharedState(nil)

	stats := c.CrawlSeed(context.Background(), seed, manifest.Validator{}, false, shared)

	assert.False(t, hit, "the disallowed seed path must never be fetched")
	assert.Equal(t, 0, stats.PagesFetched)
}

func TestCrawlSeed_SkipsWhenCompletedAndRecheckDisabled(t *testing.T) {
	called := false
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := newTestConfig(t, func(c *config.Config) *config.Config {
		return c.WithSkipCompletedSeeds(true).WithRecheckSeeds(false).WithForceCrawl(false)
	})
	c := newTestCrawler(t, cfg)

	seed := seedsource.Seed{Prefecture: "東京都", City: "渋谷区", SeedURL: srv.URL + "/"}
	shared := crawler.NewSharedState(nil)

	stats := c.CrawlSeed(context.Background(), seed, manifest.Validator{ETag: `"known"`}, true, shared)

	assert.False(t, called, "a seed with a prior validator and recheck disabled must never be fetched")
	assert.Equal(t, 0, stats.PagesFetched)
}

func TestCrawlSeed_ForceCrawlIgnoresPriorCompletion(t *testing.T) {
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := newTestConfig(t, func(c *config.Config) *config.Config {
		return c.WithSkipCompletedSeeds(true).WithRecheckSeeds(true).WithForceCrawl(true)
	})
	c := newTestCrawler(t, cfg)

	seed := seedsource.Seed{Prefecture: "東京都", City: "渋谷区", SeedURL: srv.URL + "/"}
	shared := crawler.NewSharedState(nil)

	stats := c.CrawlSeed(context.Background(), seed, manifest.Validator{ETag: `"known"`}, true, shared)

	assert.Greater(t, calls, 0, "force_crawl must bypass the prior-completion skip")
	assert.Equal(t, 1, stats.PagesFetched)
}

func TestCrawlSeed_InvalidSeedURLRecordsErrorWithoutPanicking(t *testing.T) {
	cfg := newTestConfig(t, nil)
	c := newTestCrawler(t, cfg)

	seed := seedsource.Seed{Prefecture: "東京都", City: "渋谷区", SeedURL: "http://[::1]:badport/"}
	shared := crawler.NewSharedState(nil)

	stats := c.CrawlSeed(context.Background(), seed, manifest.Validator{}, false, shared)
	assert.Greater(t, stats.Errors, 0, "an unparsable seed URL must be recorded as an error, not panic")
}

func TestSharedState_MarkDownloadedThenContains(t *testing.T) {
	shared := crawler.NewSharedState(nil)
	assert.False(t, shared.Contains("https://a.example.jp/x.pdf"))
	shared.MarkDownloaded("https://a.example.jp/x.pdf")
	assert.True(t, shared.Contains("https://a.example.jp/x.pdf"))
}

func TestSharedState_SeededFromPriorDownloads(t *testing.T) {
	shared := crawler.NewSharedState(map[string]struct{}{"https://a.example.jp/x.pdf": {}})
	assert.True(t, shared.Contains("https://a.example.jp/x.pdf"))
}
