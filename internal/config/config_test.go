package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"kura/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("LAUNCHBOX_DIR", "")
	t.Setenv("VNDB_TOKEN", "token-from-env")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if cfg.Paths.LibraryDir != filepath.Join(tempHome, "games") {
		t.Fatalf("unexpected library dir: %q", cfg.Paths.LibraryDir)
	}
	wantData := filepath.Join(tempHome, ".local", "share", "kura")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.StorePath() != filepath.Join(wantData, "kura.db") {
		t.Fatalf("unexpected store path: %q", cfg.StorePath())
	}
	if cfg.CatalogPath() != "" {
		t.Fatalf("expected no catalog path without launchbox dir, got %q", cfg.CatalogPath())
	}
	if cfg.Locators.Concurrency != 5 {
		t.Fatalf("expected default concurrency 5, got %d", cfg.Locators.Concurrency)
	}
	if cfg.Locators.VNDB.Token != "token-from-env" {
		t.Fatalf("expected VNDB token from env, got %q", cfg.Locators.VNDB.Token)
	}
	if cfg.Decision.AskThreshold > cfg.Decision.AcceptThreshold {
		t.Fatalf("default thresholds inverted: %+v", cfg.Decision)
	}
	if cfg.Scoring != config.DefaultScoring() {
		t.Fatalf("unexpected scoring defaults: %+v", cfg.Scoring)
	}
	if cfg.Workflow.NonInteractive != config.NonInteractiveSkip {
		t.Fatalf("unexpected non-interactive default: %q", cfg.Workflow.NonInteractive)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir, cfg.Paths.LibraryDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "kura.toml")

	type payload struct {
		Paths struct {
			UnsortedDirs []string `toml:"unsorted_dirs"`
			LibraryDir   string   `toml:"library_dir"`
		} `toml:"paths"`
		Decision struct {
			AskThreshold    float64 `toml:"ask_threshold"`
			AcceptThreshold float64 `toml:"accept_threshold"`
		} `toml:"decision"`
		Catalog struct {
			LaunchBoxDir string `toml:"launchbox_dir"`
			Platform     string `toml:"platform"`
		} `toml:"catalog"`
		Workflow struct {
			ExecutableExtensions []string `toml:"executable_extensions"`
			NonInteractive       string   `toml:"non_interactive"`
		} `toml:"workflow"`
		Locators struct {
			PreferredLanguages []string `toml:"preferred_languages"`
		} `toml:"locators"`
	}
	custom := payload{}
	inbox := filepath.Join(tempDir, "inbox")
	custom.Paths.UnsortedDirs = []string{inbox, " ", inbox}
	custom.Paths.LibraryDir = filepath.Join(tempDir, "library")
	custom.Decision.AskThreshold = 1
	custom.Decision.AcceptThreshold = 4
	custom.Catalog.LaunchBoxDir = filepath.Join(tempDir, "LaunchBox")
	custom.Catalog.Platform = "Doujin"
	custom.Workflow.ExecutableExtensions = []string{"EXE", ".bat"}
	custom.Workflow.NonInteractive = "Accept-First"
	custom.Locators.PreferredLanguages = []string{"Japanese", "ja", "en"}
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if len(cfg.Paths.UnsortedDirs) != 1 || cfg.Paths.UnsortedDirs[0] != inbox {
		t.Fatalf("expected deduplicated unsorted dirs, got %v", cfg.Paths.UnsortedDirs)
	}
	if cfg.Decision.AcceptThreshold != 4 || cfg.Decision.AskThreshold != 1 {
		t.Fatalf("unexpected thresholds: %+v", cfg.Decision)
	}
	wantCatalog := filepath.Join(tempDir, "LaunchBox", "Data", "Platforms", "Doujin.xml")
	if cfg.CatalogPath() != wantCatalog {
		t.Fatalf("unexpected catalog path: got %q want %q", cfg.CatalogPath(), wantCatalog)
	}
	if got := strings.Join(cfg.Workflow.ExecutableExtensions, ","); got != ".exe,.bat" {
		t.Fatalf("unexpected executable extensions: %q", got)
	}
	if cfg.Workflow.NonInteractive != config.NonInteractiveAcceptFirst {
		t.Fatalf("unexpected non-interactive mode: %q", cfg.Workflow.NonInteractive)
	}
	if got := strings.Join(cfg.Locators.PreferredLanguages, ","); got != "jp,en" {
		t.Fatalf("unexpected preferred languages: %q", got)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(configPath, []byte("[paths\nlibrary_dir = 3"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestCreateSample(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read sample config: %v", err)
	}
	if !strings.Contains(string(data), "accept_threshold") {
		t.Fatal("sample config missing decision thresholds")
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Scoring != config.DefaultScoring() {
		t.Fatalf("sample scoring drifted from defaults: %+v", cfg.Scoring)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "inverted thresholds",
			mutate: func(c *config.Config) { c.Decision.AskThreshold = 7; c.Decision.AcceptThreshold = 3 },
			want:   "ask_threshold must be <=",
		},
		{
			name:   "zero concurrency",
			mutate: func(c *config.Config) { c.Locators.Concurrency = 0 },
			want:   "locators.concurrency",
		},
		{
			name:   "negative weight",
			mutate: func(c *config.Config) { c.Scoring.ExactMatch = -1 },
			want:   "scoring.exact_match",
		},
		{
			name:   "unknown locator",
			mutate: func(c *config.Config) { c.Locators.Enabled = []string{"steam"} },
			want:   "unknown locator",
		},
		{
			name:   "missing library",
			mutate: func(c *config.Config) { c.Paths.LibraryDir = "" },
			want:   "paths.library_dir",
		},
		{
			name: "catalog without platform",
			mutate: func(c *config.Config) {
				c.Catalog.LaunchBoxDir = "/tmp/lb"
				c.Catalog.Platform = ""
			},
			want: "catalog.platform",
		},
		{
			name:   "bad non-interactive mode",
			mutate: func(c *config.Config) { c.Workflow.NonInteractive = "maybe" },
			want:   "workflow.non_interactive",
		},
		{
			name:   "bad log format",
			mutate: func(c *config.Config) { c.Logging.Format = "xml" },
			want:   "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.LibraryDir = "/srv/games"
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestExpandPathHandlesTilde(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	got, err := config.ExpandPath("~/games/library")
	if err != nil {
		t.Fatalf("ExpandPath returned error: %v", err)
	}
	if got != filepath.Join(home, "games", "library") {
		t.Fatalf("unexpected expansion: %q", got)
	}
}
