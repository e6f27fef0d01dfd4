package orchestrator_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kasumi-gikai/minutes-crawler/internal/config"
	"github.com/kasumi-gikai/minutes-crawler/internal/crawler"
	"github.com/kasumi-gikai/minutes-crawler/internal/httpclient"
	"github.com/kasumi-gikai/minutes-crawler/internal/manifest"
	"github.com/kasumi-gikai/minutes-crawler/internal/metadata"
	"github.com/kasumi-gikai/minutes-crawler/internal/orchestrator"
	"github.com/kasumi-gikai/minutes-crawler/internal/robots"
	"github.com/kasumi-gikai/minutes-crawler/internal/seedsource"
	"github.com/kasumi-gikai/minutes-crawler/internal/storage"
	"github.com/kasumi-gikai/minutes-crawler/pkg/limiter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// statsCapturingSink records only the final crawl stats; every other
// call is discarded, since a test only needs the terminal summary.
type statsCapturingSink struct {
	metadata.NopSink
	mu    sync.Mutex
	stats metadata.CrawlStats
	calls int
}

func (s *statsCapturingSink) RecordFinalCrawlStats(stats metadata.CrawlStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = stats
	s.calls++
}

func (s *statsCapturingSink) snapshot() (metadata.CrawlStats, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats, s.calls
}

func newOrchestratorHarness(t *testing.T, workers int, sink metadata.Sink) (*crawler.Crawler, config.Config) {
	t.Helper()
	cfg, err := config.WithDefault("seeds.json").
		WithWorkers(workers).
		WithBaseDelay(0).
		WithMaxAttempt(1).
		WithMaxPages(20).
		WithMaxDepth(1).
		Build()
	require.NoError(t, err)

	client := httpclient.New(cfg.UserAgent(), 5*time.Second, sink)
	rateLimiter := limiter.NewConcurrentRateLimiter(0, 0)
	robotsChecker := robots.NewChecker(client, sink, cfg.UserAgent(), false)
	storageSink := storage.NewLocalSink(t.TempDir(), sink)
	path := filepath.Join(t.TempDir(), "manifest.jsonl")
	store, _, err := manifest.Open(path, false, sink, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	c := crawler.NewCrawler(client, robotsChecker, rateLimiter, storageSink, store, sink, cfg, "test-run")
	return c, cfg
}

func TestOrchestrator_Run_ProcessesEverySeedAndRecordsFinalStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	sink := &statsCapturingSink{}
	c, cfg := newOrchestratorHarness(t, 3, sink)

	o := orchestrator.New(c, manifest.Index{}, cfg, sink)

	seeds := []seedsource.Seed{
		{Prefecture: "東京都", City: "渋谷区", SeedURL: srv.URL + "/a/"},
		{Prefecture: "東京都", City: "新宿区", SeedURL: srv.URL + "/b/"},
		{Prefecture: "大阪府", City: "大阪市", SeedURL: srv.URL + "/c/"},
	}

	o.Run(context.Background(), seeds)

	stats, calls := sink.snapshot()
	require.Equal(t, 1, calls)
	assert.Equal(t, 3, stats.TotalPages)
	assert.Equal(t, 0, stats.TotalErrors)
}

func TestOrchestrator_Run_EmptySeedListStillRecordsStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := &statsCapturingSink{}
	c, cfg := newOrchestratorHarness(t, 2, sink)
	o := orchestrator.New(c, manifest.Index{}, cfg, sink)

	o.Run(context.Background(), nil)

	stats, calls := sink.snapshot()
	require.Equal(t, 1, calls, "RecordFinalCrawlStats must fire even for an empty seed list")
	assert.Equal(t, 0, stats.TotalPages)
}

func TestOrchestrator_Run_CancelledContextStopsAdmittingNewSeeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	sink := &statsCapturingSink{}
	c, cfg := newOrchestratorHarness(t, 1, sink)
	o := orchestrator.New(c, manifest.Index{}, cfg, sink)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	seeds := []seedsource.Seed{
		{Prefecture: "東京都", City: "渋谷区", SeedURL: srv.URL + "/a/"},
		{Prefecture: "東京都", City: "新宿区", SeedURL: srv.URL + "/b/"},
	}
	o.Run(ctx, seeds)

	stats, calls := sink.snapshot()
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, stats.TotalPages, "no seed may be crawled once the context is cancelled")
}
