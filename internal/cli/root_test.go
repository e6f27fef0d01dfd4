package cli_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kasumi-gikai/minutes-crawler/internal/cli"
	"github.com/kasumi-gikai/minutes-crawler/internal/config"
)

func TestInitConfigWithError_NoFlags_UsesDefaults(t *testing.T) {
	cli.ResetFlags()

	cfg, err := cli.InitConfigWithError()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	defaultCfg, err := config.WithDefault("data/minute_link_list.json").Build()
	if err != nil {
		t.Fatalf("should not have any error, got %v", err)
	}

	if cfg.MaxDepth() != defaultCfg.MaxDepth() {
		t.Errorf("Expected MaxDepth %d, got %d", defaultCfg.MaxDepth(), cfg.MaxDepth())
	}
	if cfg.Workers() != defaultCfg.Workers() {
		t.Errorf("Expected Workers %d, got %d", defaultCfg.Workers(), cfg.Workers())
	}
	if cfg.OutputDir() != defaultCfg.OutputDir() {
		t.Errorf("Expected OutputDir %s, got %s", defaultCfg.OutputDir(), cfg.OutputDir())
	}
	if !cfg.RespectRobots() {
		t.Error("Expected RespectRobots to default true")
	}
}

func TestInitConfigWithError_FlagOverrides(t *testing.T) {
	tests := []struct {
		name      string
		maxDepth  int
		maxPages  int
		workers   int
		expectDep int
		expectPgs int
		expectWrk int
	}{
		{"zero flags use defaults", 0, 0, 0, 2, 200, 8},
		{"custom flags override", 5, 50, 4, 5, 50, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli.ResetFlags()
			cli.SetMaxDepthForTest(tt.maxDepth)
			cli.SetMaxPagesForTest(tt.maxPages)
			cli.SetWorkersForTest(tt.workers)

			cfg, err := cli.InitConfigWithError()
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if cfg.MaxDepth() != tt.expectDep {
				t.Errorf("Expected MaxDepth %d, got %d", tt.expectDep, cfg.MaxDepth())
			}
			if cfg.MaxPages() != tt.expectPgs {
				t.Errorf("Expected MaxPages %d, got %d", tt.expectPgs, cfg.MaxPages())
			}
			if cfg.Workers() != tt.expectWrk {
				t.Errorf("Expected Workers %d, got %d", tt.expectWrk, cfg.Workers())
			}
		})
	}
}

func TestInitConfigWithError_RespectRobotsToggle(t *testing.T) {
	cli.ResetFlags()
	cli.SetRespectRobotsForTest(false)

	cfg, err := cli.InitConfigWithError()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.RespectRobots() {
		t.Error("Expected RespectRobots false")
	}
}

func TestInitConfigWithError_ForceCrawlAndRecheckSeeds(t *testing.T) {
	cli.ResetFlags()
	cli.SetForceCrawlForTest(true)
	cli.SetSkipCompletedSeedsForTest(false)
	cli.SetRecheckSeedsForTest(false)

	cfg, err := cli.InitConfigWithError()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !cfg.ForceCrawl() {
		t.Error("Expected ForceCrawl true")
	}
	if cfg.SkipCompletedSeeds() {
		t.Error("Expected SkipCompletedSeeds false")
	}
	if cfg.RecheckSeeds() {
		t.Error("Expected RecheckSeeds false")
	}
}

func TestInitConfigWithError_ConfigFile(t *testing.T) {
	cli.ResetFlags()

	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.json")
	content := `{
		"inputPath": "testdata/seeds.json",
		"maxDepth": 4,
		"workers": 2,
		"outputDir": "test-output"
	}`
	if err := os.WriteFile(configFile, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	cli.SetConfigFileForTest(configFile)

	cfg, err := cli.InitConfigWithError()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.MaxDepth() != 4 {
		t.Errorf("Expected MaxDepth 4, got %d", cfg.MaxDepth())
	}
	if cfg.Workers() != 2 {
		t.Errorf("Expected Workers 2, got %d", cfg.Workers())
	}
	if cfg.OutputDir() != "test-output" {
		t.Errorf("Expected OutputDir test-output, got %s", cfg.OutputDir())
	}
}

func TestInitConfigWithError_NonExistentConfigFile(t *testing.T) {
	cli.ResetFlags()
	cli.SetConfigFileForTest("/path/that/does/not/exist/config.json")

	_, err := cli.InitConfigWithError()
	if err == nil {
		t.Fatal("Expected error for non-existent config file, got none")
	}
	if !errors.Is(err, config.ErrFileDoesNotExist) {
		t.Errorf("Expected ErrFileDoesNotExist, got: %v", err)
	}
}

func TestInitConfigWithError_NegativeWorkers_KeepsDefault(t *testing.T) {
	cli.ResetFlags()
	cli.SetWorkersForTest(-1)

	cfg, err := cli.InitConfigWithError()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Workers() != 8 {
		t.Errorf("Expected default Workers 8 for a non-positive override, got %d", cfg.Workers())
	}
}

func TestResetFlags_RestoresDefaults(t *testing.T) {
	cli.SetMaxDepthForTest(9)
	cli.SetWorkersForTest(16)
	cli.SetForceCrawlForTest(true)

	cli.ResetFlags()

	cfg, err := cli.InitConfigWithError()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.MaxDepth() != 2 {
		t.Errorf("After ResetFlags, expected default MaxDepth 2, got %d", cfg.MaxDepth())
	}
	if cfg.Workers() != 8 {
		t.Errorf("After ResetFlags, expected default Workers 8, got %d", cfg.Workers())
	}
	if cfg.ForceCrawl() {
		t.Error("After ResetFlags, expected ForceCrawl false")
	}
}

func TestMain(m *testing.M) {
	code := m.Run()
	cli.ResetFlags()
	os.Exit(code)
}
