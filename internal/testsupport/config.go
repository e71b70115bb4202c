package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"kura/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test:
// <base>/inbox (the only unsorted dir), <base>/library, <base>/data and
// <base>/logs. All four directories exist on return.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.UnsortedDirs = []string{filepath.Join(base, "inbox")}
	cfgVal.Paths.LibraryDir = filepath.Join(base, "library")
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Catalog.BackupDir = filepath.Join(base, "backups")
	cfgVal.Catalog.LaunchBoxDir = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	for _, dir := range append([]string{cfgVal.Paths.LibraryDir, cfgVal.Paths.DataDir, cfgVal.Paths.LogDir}, cfgVal.Paths.UnsortedDirs...) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	return builder.cfg
}

// WithLaunchBox points the catalog at <base>/LaunchBox for the given platform.
func WithLaunchBox(platform string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Catalog.LaunchBoxDir = filepath.Join(b.baseDir, "LaunchBox")
		b.cfg.Catalog.Platform = platform
	}
}

// WithThresholds overrides the decision gate thresholds.
func WithThresholds(ask, accept float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Decision.AskThreshold = ask
		b.cfg.Decision.AcceptThreshold = accept
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LibraryDir)
}
