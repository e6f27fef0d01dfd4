package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/kasumi-gikai/minutes-crawler/internal/config"
	"github.com/kasumi-gikai/minutes-crawler/internal/crawler"
	"github.com/kasumi-gikai/minutes-crawler/internal/httpclient"
	"github.com/kasumi-gikai/minutes-crawler/internal/manifest"
	"github.com/kasumi-gikai/minutes-crawler/internal/metadata"
	"github.com/kasumi-gikai/minutes-crawler/internal/orchestrator"
	"github.com/kasumi-gikai/minutes-crawler/internal/report"
	"github.com/kasumi-gikai/minutes-crawler/internal/robots"
	"github.com/kasumi-gikai/minutes-crawler/internal/seedsource"
	"github.com/kasumi-gikai/minutes-crawler/internal/storage"
	"github.com/kasumi-gikai/minutes-crawler/pkg/limiter"
)

// exitError carries a process exit code alongside the usual error
// message, so Execute can translate a run failure into the exact code
// spec.md's exit-code contract names without every layer below
// importing os.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

// Run wires every collaborator described in SPEC_FULL §4 together and
// drives one end-to-end crawl: seed selection, the parallel
// orchestrator, and the denial report aggregator. It never returns a
// plain error for a per-URL fault — those are manifest events — only
// for configuration and fatal I/O failures, per §7.
func Run(ctx context.Context, cfg config.Config) error {
	municipalities, err := seedsource.Load(cfg.InputPath())
	if err != nil {
		return &exitError{code: 1, err: fmt.Errorf("load input: %w", err)}
	}
	seeds := seedsource.SelectAll(municipalities, cfg.Threshold())
	if len(seeds) == 0 {
		return &exitError{code: 1, err: fmt.Errorf("no seeds selected from %s", cfg.InputPath())}
	}

	metadataSink := metadata.NewRecorder(os.Stderr)
	defer metadataSink.Close()

	runID, err := newRunID()
	if err != nil {
		return &exitError{code: 1, err: fmt.Errorf("generate run id: %w", err)}
	}

	var fatalErr error
	manifestStore, manifestIdx, err := manifest.Open(cfg.ManifestPath(), cfg.OverwriteManifest(), metadataSink, func(err error) {
		fatalErr = err
	})
	if err != nil {
		return &exitError{code: 2, err: fmt.Errorf("open manifest: %w", err)}
	}
	defer manifestStore.Close()

	httpClient := httpclient.New(cfg.UserAgent(), cfg.Timeout(), metadataSink)
	robotsChecker := robots.NewChecker(httpClient, metadataSink, cfg.UserAgent(), cfg.RespectRobots())
	rateLimiter := limiter.NewConcurrentRateLimiter(cfg.BaseDelay(), cfg.Jitter())
	storageSink := storage.NewLocalSink(cfg.OutputDir(), metadataSink)

	if !cfg.Resume() {
		manifestIdx = manifest.Index{
			CompletedSeeds: map[string]manifest.Validator{},
			DownloadedURLs: map[string]struct{}{},
			SavedPages:     map[string]string{},
		}
	}

	seedCrawler := crawler.NewCrawler(httpClient, robotsChecker, rateLimiter, storageSink, manifestStore, metadataSink, cfg, runID)
	orch := orchestrator.New(seedCrawler, manifestIdx, cfg, metadataSink)
	orch.Run(ctx, seeds)

	if fatalErr != nil {
		return &exitError{code: 2, err: fmt.Errorf("manifest write failure: %w", fatalErr)}
	}

	if rerr := report.Run(cfg.ReportDir(), robotsChecker.Denials()); rerr != nil {
		return &exitError{code: 2, err: fmt.Errorf("denial report: %w", rerr)}
	}

	return nil
}

func newRunID() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
