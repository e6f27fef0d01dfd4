package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config is the fully-resolved set of tunables the orchestrator and every
// seed crawler it spawns are built from. All fields are unexported; the
// only way to produce one is WithDefault().With*()....Build(), or
// WithConfigFile layered on top of the same defaults.
type Config struct {
	//===============
	// Input / output
	//===============
	inputPath  string
	outputDir  string
	manifestPath string
	reportDir  string

	//===============
	// Seed selection
	//===============
	threshold int

	//===============
	// Crawl scope
	//===============
	maxDepth           int
	maxPages           int
	sameDomainOnly     bool
	samePathPrefixOnly bool

	//===============
	// Politeness
	//===============
	workers    int
	baseDelay  time.Duration
	jitter     time.Duration
	timeout    time.Duration
	userAgent  string
	randomSeed int64
	maxAttempt int

	//===============
	// Download behaviour
	//===============
	noDownload      bool
	noDownloadFiles bool
	forceDownload   bool

	//===============
	// Resume / manifest behaviour
	//===============
	resume             bool
	overwriteManifest  bool
	skipCompletedSeeds bool
	forceCrawl         bool
	recheckSeeds       bool

	//===============
	// Robots
	//===============
	respectRobots bool

	//===============
	// Classification
	//===============
	keywords []string
	fileExts []string
	urlHints []string
}

type configDTO struct {
	InputPath          string   `json:"inputPath,omitempty"`
	OutputDir          string   `json:"outputDir,omitempty"`
	ManifestPath       string   `json:"manifestPath,omitempty"`
	ReportDir          string   `json:"reportDir,omitempty"`
	Threshold          int      `json:"threshold,omitempty"`
	MaxDepth           int      `json:"maxDepth,omitempty"`
	MaxPages           int      `json:"maxPages,omitempty"`
	SameDomainOnly     *bool    `json:"sameDomainOnly,omitempty"`
	SamePathPrefixOnly *bool    `json:"samePathPrefixOnly,omitempty"`
	Workers            int      `json:"workers,omitempty"`
	Delay              float64  `json:"delay,omitempty"`
	Jitter             float64  `json:"jitter,omitempty"`
	Timeout            float64  `json:"timeout,omitempty"`
	UserAgent          string   `json:"userAgent,omitempty"`
	RandomSeed         int64    `json:"randomSeed,omitempty"`
	MaxAttempt         int      `json:"maxAttempt,omitempty"`
	NoDownload         *bool    `json:"noDownload,omitempty"`
	NoDownloadFiles    *bool    `json:"noDownloadFiles,omitempty"`
	ForceDownload      *bool    `json:"forceDownload,omitempty"`
	Resume             *bool    `json:"resume,omitempty"`
	OverwriteManifest  *bool    `json:"overwriteManifest,omitempty"`
	SkipCompletedSeeds *bool    `json:"skipCompletedSeeds,omitempty"`
	ForceCrawl         *bool    `json:"forceCrawl,omitempty"`
	RecheckSeeds       *bool    `json:"recheckSeeds,omitempty"`
	RespectRobots      *bool    `json:"respectRobots,omitempty"`
	Keywords           []string `json:"keywords,omitempty"`
	FileExts           []string `json:"fileExts,omitempty"`
	URLHints           []string `json:"urlHints,omitempty"`
}

func newConfigFromDTO(dto configDTO) (Config, error) {
	inputPath := dto.InputPath
	if inputPath == "" {
		inputPath = "data/minute_link_list.json"
	}

	cfg, err := WithDefault(inputPath).Build()
	if err != nil {
		return Config{}, err
	}

	if dto.OutputDir != "" {
		cfg.outputDir = dto.OutputDir
	}
	if dto.ManifestPath != "" {
		cfg.manifestPath = dto.ManifestPath
	}
	if dto.ReportDir != "" {
		cfg.reportDir = dto.ReportDir
	}
	if dto.Threshold != 0 {
		cfg.threshold = dto.Threshold
	}
	if dto.MaxDepth != 0 {
		cfg.maxDepth = dto.MaxDepth
	}
	if dto.MaxPages != 0 {
		cfg.maxPages = dto.MaxPages
	}
	if dto.SameDomainOnly != nil {
		cfg.sameDomainOnly = *dto.SameDomainOnly
	}
	if dto.SamePathPrefixOnly != nil {
		cfg.samePathPrefixOnly = *dto.SamePathPrefixOnly
	}
	if dto.Workers != 0 {
		cfg.workers = dto.Workers
	}
	if dto.Delay != 0 {
		cfg.baseDelay = time.Duration(dto.Delay * float64(time.Second))
	}
	if dto.Jitter != 0 {
		cfg.jitter = time.Duration(dto.Jitter * float64(time.Second))
	}
	if dto.Timeout != 0 {
		cfg.timeout = time.Duration(dto.Timeout * float64(time.Second))
	}
	if dto.UserAgent != "" {
		cfg.userAgent = dto.UserAgent
	}
	if dto.RandomSeed != 0 {
		cfg.randomSeed = dto.RandomSeed
	}
	if dto.MaxAttempt != 0 {
		cfg.maxAttempt = dto.MaxAttempt
	}
	if dto.NoDownload != nil {
		cfg.noDownload = *dto.NoDownload
	}
	if dto.NoDownloadFiles != nil {
		cfg.noDownloadFiles = *dto.NoDownloadFiles
	}
	if dto.ForceDownload != nil {
		cfg.forceDownload = *dto.ForceDownload
	}
	if dto.Resume != nil {
		cfg.resume = *dto.Resume
	}
	if dto.OverwriteManifest != nil {
		cfg.overwriteManifest = *dto.OverwriteManifest
	}
	if dto.SkipCompletedSeeds != nil {
		cfg.skipCompletedSeeds = *dto.SkipCompletedSeeds
	}
	if dto.ForceCrawl != nil {
		cfg.forceCrawl = *dto.ForceCrawl
	}
	if dto.RecheckSeeds != nil {
		cfg.recheckSeeds = *dto.RecheckSeeds
	}
	if dto.RespectRobots != nil {
		cfg.respectRobots = *dto.RespectRobots
	}
	if len(dto.Keywords) > 0 {
		cfg.keywords = dto.Keywords
	}
	if len(dto.FileExts) > 0 {
		cfg.fileExts = dto.FileExts
	}
	if len(dto.URLHints) > 0 {
		cfg.urlHints = dto.URLHints
	}

	return cfg, nil
}

// WithConfigFile loads a JSON document at path and layers it over the
// package defaults. The CLI uses the result as is: when --config-file is
// given, no other flag is applied over it.
func WithConfigFile(path string) (Config, error) {
	if _, err := os.Stat(path); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}

	var dto configDTO
	if err := json.Unmarshal(content, &dto); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	return newConfigFromDTO(dto)
}

// WithDefault returns a Config builder seeded with the crawler's
// published defaults. inputPath is mandatory; Build fails if it is empty.
func WithDefault(inputPath string) *Config {
	return &Config{
		inputPath:          inputPath,
		outputDir:          "data/minutes_out",
		threshold:          5,
		maxDepth:           2,
		maxPages:           200,
		sameDomainOnly:     true,
		samePathPrefixOnly: false,
		workers:            8,
		baseDelay:          500 * time.Millisecond,
		jitter:             0,
		timeout:            20 * time.Second,
		userAgent:          "minutes-crawler/1.0 (+polite research crawler)",
		randomSeed:         1,
		maxAttempt:         3,
		resume:             true,
		skipCompletedSeeds: true,
		recheckSeeds:       true,
		respectRobots:      true,
		keywords: []string{
			"議事録", "会議録", "議会", "本会議", "委員会", "定例会", "臨時会", "会議結果",
		},
		fileExts: []string{
			".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx", ".txt", ".rtf",
		},
		urlHints: []string{"gikai", "kaigi", "giji", "minutes", "council"},
	}
}

func (c *Config) WithOutputDir(dir string) *Config          { c.outputDir = dir; return c }
func (c *Config) WithManifestPath(path string) *Config      { c.manifestPath = path; return c }
func (c *Config) WithReportDir(dir string) *Config          { c.reportDir = dir; return c }
func (c *Config) WithThreshold(n int) *Config                { c.threshold = n; return c }
func (c *Config) WithMaxDepth(depth int) *Config             { c.maxDepth = depth; return c }
func (c *Config) WithMaxPages(pages int) *Config             { c.maxPages = pages; return c }
func (c *Config) WithSameDomainOnly(v bool) *Config          { c.sameDomainOnly = v; return c }
func (c *Config) WithSamePathPrefixOnly(v bool) *Config      { c.samePathPrefixOnly = v; return c }
func (c *Config) WithWorkers(n int) *Config                  { c.workers = n; return c }
func (c *Config) WithBaseDelay(d time.Duration) *Config      { c.baseDelay = d; return c }
func (c *Config) WithJitter(d time.Duration) *Config         { c.jitter = d; return c }
func (c *Config) WithTimeout(d time.Duration) *Config        { c.timeout = d; return c }
func (c *Config) WithUserAgent(ua string) *Config            { c.userAgent = ua; return c }
func (c *Config) WithRandomSeed(seed int64) *Config          { c.randomSeed = seed; return c }
func (c *Config) WithMaxAttempt(n int) *Config                { c.maxAttempt = n; return c }
func (c *Config) WithNoDownload(v bool) *Config               { c.noDownload = v; return c }
func (c *Config) WithNoDownloadFiles(v bool) *Config          { c.noDownloadFiles = v; return c }
func (c *Config) WithForceDownload(v bool) *Config            { c.forceDownload = v; return c }
func (c *Config) WithResume(v bool) *Config                   { c.resume = v; return c }
func (c *Config) WithOverwriteManifest(v bool) *Config        { c.overwriteManifest = v; return c }
func (c *Config) WithSkipCompletedSeeds(v bool) *Config       { c.skipCompletedSeeds = v; return c }
func (c *Config) WithForceCrawl(v bool) *Config                { c.forceCrawl = v; return c }
func (c *Config) WithRecheckSeeds(v bool) *Config              { c.recheckSeeds = v; return c }
func (c *Config) WithRespectRobots(v bool) *Config              { c.respectRobots = v; return c }
func (c *Config) WithKeywords(kw []string) *Config              { c.keywords = kw; return c }
func (c *Config) WithFileExts(exts []string) *Config            { c.fileExts = exts; return c }
func (c *Config) WithURLHints(hints []string) *Config           { c.urlHints = hints; return c }

func (c *Config) Build() (Config, error) {
	if c.inputPath == "" {
		return Config{}, fmt.Errorf("%w: inputPath cannot be empty", ErrInvalidConfig)
	}
	if c.threshold < 0 {
		return Config{}, fmt.Errorf("%w: threshold cannot be negative", ErrInvalidConfig)
	}
	if c.workers < 1 {
		return Config{}, fmt.Errorf("%w: workers must be at least 1", ErrInvalidConfig)
	}

	if c.manifestPath == "" {
		c.manifestPath = c.outputDir + "/manifest.jsonl"
	}
	if c.reportDir == "" {
		c.reportDir = c.outputDir + "/reports"
	}

	return *c, nil
}

func (c Config) InputPath() string    { return c.inputPath }
func (c Config) OutputDir() string    { return c.outputDir }
func (c Config) ManifestPath() string { return c.manifestPath }
func (c Config) ReportDir() string    { return c.reportDir }

func (c Config) Threshold() int { return c.threshold }
func (c Config) MaxDepth() int  { return c.maxDepth }
func (c Config) MaxPages() int  { return c.maxPages }

func (c Config) SameDomainOnly() bool     { return c.sameDomainOnly }
func (c Config) SamePathPrefixOnly() bool { return c.samePathPrefixOnly }

func (c Config) Workers() int             { return c.workers }
func (c Config) BaseDelay() time.Duration { return c.baseDelay }
func (c Config) Jitter() time.Duration    { return c.jitter }
func (c Config) Timeout() time.Duration   { return c.timeout }
func (c Config) UserAgent() string        { return c.userAgent }
func (c Config) RandomSeed() int64        { return c.randomSeed }
func (c Config) MaxAttempt() int          { return c.maxAttempt }

func (c Config) NoDownload() bool      { return c.noDownload }
func (c Config) NoDownloadFiles() bool { return c.noDownloadFiles }
func (c Config) ForceDownload() bool   { return c.forceDownload }

func (c Config) Resume() bool             { return c.resume }
func (c Config) OverwriteManifest() bool  { return c.overwriteManifest }
func (c Config) SkipCompletedSeeds() bool { return c.skipCompletedSeeds }
func (c Config) ForceCrawl() bool         { return c.forceCrawl }
func (c Config) RecheckSeeds() bool       { return c.recheckSeeds }

func (c Config) RespectRobots() bool { return c.respectRobots }

func (c Config) Keywords() []string {
	out := make([]string, len(c.keywords))
	copy(out, c.keywords)
	return out
}

func (c Config) FileExts() []string {
	out := make([]string, len(c.fileExts))
	copy(out, c.fileExts)
	return out
}

func (c Config) URLHints() []string {
	out := make([]string, len(c.urlHints))
	copy(out, c.urlHints)
	return out
}
