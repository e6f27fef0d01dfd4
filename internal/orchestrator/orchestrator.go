package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/kasumi-gikai/minutes-crawler/internal/config"
	"github.com/kasumi-gikai/minutes-crawler/internal/crawler"
	"github.com/kasumi-gikai/minutes-crawler/internal/manifest"
	"github.com/kasumi-gikai/minutes-crawler/internal/metadata"
	"github.com/kasumi-gikai/minutes-crawler/internal/seedsource"
)

/*
Orchestrator is the Parallel Orchestrator: a bounded pool of worker
goroutines, each repeatedly pulling a seed task and handing it to the
shared Crawler. Every collaborator the Crawler touches (robots checker,
rate limiter, manifest store, storage sink) is already safe for
concurrent use, so the pool itself owns no crawl state beyond the task
channel and the shared downloaded-URLs set.

Unlike the teacher's single-threaded Scheduler, admission, fetch and
write decisions are delegated to the Crawler per seed; the orchestrator
only fans work out and fans completion back in.
*/
type Orchestrator struct {
	crawler      *crawler.Crawler
	manifestIdx  manifest.Index
	workers      int
	metadataSink metadata.Sink
}

func New(c *crawler.Crawler, idx manifest.Index, cfg config.Config, metadataSink metadata.Sink) *Orchestrator {
	return &Orchestrator{
		crawler:      c,
		manifestIdx:  idx,
		workers:      cfg.Workers(),
		metadataSink: metadataSink,
	}
}

// Run dispatches every seed to the worker pool and blocks until all
// seeds have been processed or ctx is cancelled. On cancellation a
// worker picks up no new seed, and the seed it is crawling stops at its
// next frontier pop once the in-flight fetch completes (best-effort
// drain, per SPEC_FULL §4.8).
func (o *Orchestrator) Run(ctx context.Context, seeds []seedsource.Seed) {
	start := time.Now()
	shared := crawler.NewSharedState(o.manifestIdx.DownloadedURLs)

	tasks := make(chan seedsource.Seed, len(seeds))
	for _, s := range seeds {
		tasks <- s
	}
	close(tasks)

	totals := &aggregateStats{}
	var wg sync.WaitGroup
	for i := 0; i < o.workers; i++ {
		wg.Add(1)
		go o.worker(ctx, tasks, shared, totals, &wg)
	}
	wg.Wait()

	o.metadataSink.RecordFinalCrawlStats(metadata.CrawlStats{
		TotalPages:  totals.pages,
		TotalErrors: totals.errors,
		TotalAssets: totals.assets,
		Duration:    time.Since(start),
	})
}

// aggregateStats accumulates per-seed stats across every worker
// goroutine in the pool, mirroring the teacher's Scheduler's own
// totalErrors/totalAssets running counters but guarded for concurrent
// writers.
type aggregateStats struct {
	mu     sync.Mutex
	pages  int
	errors int
	assets int
}

func (a *aggregateStats) add(s crawler.SeedStats) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pages += s.PagesFetched
	a.errors += s.Errors
	a.assets += s.FilesDownloaded
}

func (o *Orchestrator) worker(ctx context.Context, tasks <-chan seedsource.Seed, shared *crawler.SharedState, totals *aggregateStats, wg *sync.WaitGroup) {
	defer wg.Done()

	for seed := range tasks {
		select {
		case <-ctx.Done():
			return
		default:
		}

		validator, hasPrior := o.manifestIdx.CompletedValidator(seed.Prefecture, seed.City, seed.SeedURL)
		stats := o.crawler.CrawlSeed(ctx, seed, manifest.Validator{
			ETag:          validator.ETag,
			LastModified:  validator.LastModified,
			ContentSHA256: validator.ContentSHA256,
		}, hasPrior, shared)
		totals.add(stats)
	}
}
