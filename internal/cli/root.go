package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kasumi-gikai/minutes-crawler/internal/build"
	"github.com/kasumi-gikai/minutes-crawler/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile string

	inputPath  string
	outputDir  string
	manifestPath string
	reportDir  string

	threshold int
	maxDepth  int
	maxPages  int
	workers   int

	delay     time.Duration
	timeout   time.Duration
	userAgent string

	noDownload      bool
	noDownloadFiles bool
	forceDownload   bool

	resume            bool
	overwriteManifest bool

	skipCompletedSeeds bool
	forceCrawl         bool
	recheckSeeds       bool

	respectRobots bool

	sameDomainOnly     bool
	samePathPrefixOnly bool

	keywords []string
	fileExts []string
	urlHints []string
)

func parseCommaSeparated(raw []string) []string {
	var out []string
	for _, group := range raw {
		for _, item := range strings.Split(group, ",") {
			item = strings.TrimSpace(item)
			if item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "minutes-crawler",
	Short:   "A polite, resumable crawler for local-government meeting minutes.",
	Version: build.FullVersion(),
	Long: `minutes-crawler crawls local-government websites for meeting-minutes
documents (PDF, Word, plain text and the like), following robots.txt,
re-crawling only what changed, and writing every decision to an
append-only manifest so an interrupted run can resume exactly where it
left off.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := InitConfigWithError()
		if err != nil {
			return err
		}
		return Run(cmd.Context(), cfg)
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd. The process exit code follows spec.md §6: 0 on
// success, 1 on configuration error, 2 on fatal I/O error.
func Execute(ctx context.Context) {
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		if ee, ok := err.(*exitError); ok {
			os.Exit(ee.code)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "config file path (JSON)")

	rootCmd.PersistentFlags().StringVar(&inputPath, "input", "", "municipality seed-list JSON (default \"data/minute_link_list.json\")")
	rootCmd.PersistentFlags().StringVar(&outputDir, "outdir", "", "root output directory (default \"data/minutes_out\")")
	rootCmd.PersistentFlags().StringVar(&manifestPath, "manifest", "", "manifest path (default \"<outdir>/manifest.jsonl\")")
	rootCmd.PersistentFlags().StringVar(&reportDir, "report-dir", "", "denial report directory (default \"<outdir>/reports\")")

	rootCmd.PersistentFlags().IntVar(&threshold, "threshold", 0, "parent-vs-grand_parent seed selection threshold (default 5)")
	rootCmd.PersistentFlags().IntVar(&maxDepth, "max-depth", 0, "maximum BFS depth from a seed (default 2)")
	rootCmd.PersistentFlags().IntVar(&maxPages, "max-pages", 0, "maximum pages fetched per seed (default 200)")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "number of concurrent seed workers (default 8)")

	rootCmd.PersistentFlags().DurationVar(&delay, "delay", 0, "base per-host delay between requests (default 500ms)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "per-request HTTP timeout (default 20s)")
	rootCmd.PersistentFlags().StringVar(&userAgent, "user-agent", "", "HTTP User-Agent string")

	rootCmd.PersistentFlags().BoolVar(&noDownload, "no-download", false, "skip saving pages and downloading files entirely")
	rootCmd.PersistentFlags().BoolVar(&noDownloadFiles, "no-download-files", false, "save pages but skip downloading payload files")
	rootCmd.PersistentFlags().BoolVar(&forceDownload, "force-download", false, "re-download files even if already present")

	rootCmd.PersistentFlags().BoolVar(&resume, "resume", true, "resume from an existing manifest")
	rootCmd.PersistentFlags().BoolVar(&overwriteManifest, "overwrite-manifest", false, "truncate the manifest and start fresh")

	rootCmd.PersistentFlags().BoolVar(&skipCompletedSeeds, "skip-completed-seeds", true, "skip seeds already marked seed_done")
	rootCmd.PersistentFlags().BoolVar(&forceCrawl, "force-crawl", false, "re-crawl every seed regardless of manifest state")
	rootCmd.PersistentFlags().BoolVar(&recheckSeeds, "recheck-seeds", true, "verify completed seeds via conditional GET before skipping")

	rootCmd.PersistentFlags().BoolVar(&respectRobots, "respect-robots", true, "honor robots.txt")

	rootCmd.PersistentFlags().BoolVar(&sameDomainOnly, "same-domain-only", false, "restrict BFS to the seed's host (default true)")
	rootCmd.PersistentFlags().BoolVar(&samePathPrefixOnly, "same-path-prefix-only", false, "restrict BFS to the seed's path prefix")

	rootCmd.PersistentFlags().StringArrayVar(&keywords, "keywords", nil, "comma-separated keyword overrides for minute-document classification")
	rootCmd.PersistentFlags().StringArrayVar(&fileExts, "file-exts", nil, "comma-separated payload file extension overrides")
	rootCmd.PersistentFlags().StringArrayVar(&urlHints, "url-hints", nil, "comma-separated URL substring hint overrides")
}

// InitConfig builds a Config from the config file (if set) or flags,
// exiting with code 1 on failure. main.go does not call it: the root
// command's RunE goes through InitConfigWithError instead.
func InitConfig() config.Config {
	cfg, err := InitConfigWithError()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	return cfg
}

// InitConfigWithError mirrors InitConfig but returns the error instead
// of exiting, so callers (tests, or Run's wrapping of configuration
// failures) can handle it themselves.
func InitConfigWithError() (config.Config, error) {
	if cfgFile != "" {
		cfg, err := config.WithConfigFile(cfgFile)
		if err != nil {
			return config.Config{}, fmt.Errorf("error initializing config from file: %w", err)
		}
		return cfg, nil
	}

	resolvedInput := inputPath
	if resolvedInput == "" {
		resolvedInput = "data/minute_link_list.json"
	}
	builder := config.WithDefault(resolvedInput)

	if outputDir != "" {
		builder = builder.WithOutputDir(outputDir)
	}
	if manifestPath != "" {
		builder = builder.WithManifestPath(manifestPath)
	}
	if reportDir != "" {
		builder = builder.WithReportDir(reportDir)
	}
	if threshold > 0 {
		builder = builder.WithThreshold(threshold)
	}
	if maxDepth > 0 {
		builder = builder.WithMaxDepth(maxDepth)
	}
	if maxPages > 0 {
		builder = builder.WithMaxPages(maxPages)
	}
	if workers > 0 {
		builder = builder.WithWorkers(workers)
	}
	if delay > 0 {
		builder = builder.WithBaseDelay(delay)
	}
	if timeout > 0 {
		builder = builder.WithTimeout(timeout)
	}
	if userAgent != "" {
		builder = builder.WithUserAgent(userAgent)
	}

	builder = builder.
		WithNoDownload(noDownload).
		WithNoDownloadFiles(noDownloadFiles).
		WithForceDownload(forceDownload).
		WithResume(resume).
		WithOverwriteManifest(overwriteManifest).
		WithSkipCompletedSeeds(skipCompletedSeeds).
		WithForceCrawl(forceCrawl).
		WithRecheckSeeds(recheckSeeds).
		WithRespectRobots(respectRobots)

	if cmdFlagChanged("same-domain-only") {
		builder = builder.WithSameDomainOnly(sameDomainOnly)
	}
	if samePathPrefixOnly {
		builder = builder.WithSamePathPrefixOnly(samePathPrefixOnly)
	}

	if kw := parseCommaSeparated(keywords); len(kw) > 0 {
		builder = builder.WithKeywords(kw)
	}
	if exts := parseCommaSeparated(fileExts); len(exts) > 0 {
		builder = builder.WithFileExts(exts)
	}
	if hints := parseCommaSeparated(urlHints); len(hints) > 0 {
		builder = builder.WithURLHints(hints)
	}

	cfg, err := builder.Build()
	if err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func cmdFlagChanged(name string) bool {
	flag := rootCmd.PersistentFlags().Lookup(name)
	return flag != nil && flag.Changed
}

func ResetFlags() {
	cfgFile = ""
	inputPath = ""
	outputDir = ""
	manifestPath = ""
	reportDir = ""
	threshold = 0
	maxDepth = 0
	maxPages = 0
	workers = 0
	delay = 0
	timeout = 0
	userAgent = ""
	noDownload = false
	noDownloadFiles = false
	forceDownload = false
	resume = true
	overwriteManifest = false
	skipCompletedSeeds = true
	forceCrawl = false
	recheckSeeds = true
	respectRobots = true
	sameDomainOnly = false
	samePathPrefixOnly = false
	keywords = nil
	fileExts = nil
	urlHints = nil
}

func SetConfigFileForTest(path string)    { cfgFile = path }
func SetInputPathForTest(path string)     { inputPath = path }
func SetOutputDirForTest(dir string)      { outputDir = dir }
func SetWorkersForTest(n int)             { workers = n }
func SetMaxDepthForTest(depth int)        { maxDepth = depth }
func SetMaxPagesForTest(pages int)        { maxPages = pages }
func SetThresholdForTest(n int)           { threshold = n }
func SetDelayForTest(d time.Duration)     { delay = d }
func SetRespectRobotsForTest(v bool)      { respectRobots = v }
func SetForceCrawlForTest(v bool)         { forceCrawl = v }
func SetSkipCompletedSeedsForTest(v bool) { skipCompletedSeeds = v }
func SetRecheckSeedsForTest(v bool)       { recheckSeeds = v }
