package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	UnsortedDirs []string `toml:"unsorted_dirs"`
	LibraryDir   string   `toml:"library_dir"`
	DataDir      string   `toml:"data_dir"`
	LogDir       string   `toml:"log_dir"`
}

// Scoring holds the fixed per-signal weights used by the scorer. Each weight is
// added to a candidate code every time its signal fires.
type Scoring struct {
	Existence                        float64 `toml:"existence"`
	SoleResult                       float64 `toml:"sole_result"`
	ExtractedCode                    float64 `toml:"extracted_code"`
	ExtractedCodeFound               float64 `toml:"extracted_code_found"`
	ExactMatch                       float64 `toml:"exact_match"`
	CandidateIncludesOriginal        float64 `toml:"candidate_includes_original"`
	OriginalIncludesCandidate        float64 `toml:"original_includes_candidate"`
	NoSpaceExactMatch                float64 `toml:"no_space_exact_match"`
	NoSpaceCandidateIncludesOriginal float64 `toml:"no_space_candidate_includes_original"`
	NoSpaceOriginalIncludesCandidate float64 `toml:"no_space_original_includes_candidate"`
	MakerMatch                       float64 `toml:"maker_match"`
}

// Decision contains the accept/ask thresholds for the decision gate.
type Decision struct {
	AskThreshold        float64 `toml:"ask_threshold"`
	AcceptThreshold     float64 `toml:"accept_threshold"`
	MaxResultsToSuggest int     `toml:"max_results_to_suggest"`
}

// DLsite contains configuration for the DLsite locator.
type DLsite struct {
	BaseURL string `toml:"base_url"`
	Site    string `toml:"site"`
}

// VNDB contains configuration for the VNDB locator.
type VNDB struct {
	BaseURL string `toml:"base_url"`
	Token   string `toml:"token"`
}

// Locators contains configuration shared by all candidate locators.
type Locators struct {
	Enabled            []string `toml:"enabled"`
	Concurrency        int      `toml:"concurrency"`
	RequestTimeout     int      `toml:"request_timeout"`
	RequestsPerSecond  float64  `toml:"requests_per_second"`
	CacheTTLMinutes    int      `toml:"cache_ttl_minutes"`
	DLsite             DLsite   `toml:"dlsite"`
	VNDB               VNDB     `toml:"vndb"`
	PreferredLanguages []string `toml:"preferred_languages"`
}

// Catalog contains configuration for the LaunchBox platform document.
type Catalog struct {
	LaunchBoxDir    string `toml:"launchbox_dir"`
	Platform        string `toml:"platform"`
	BackupDir       string `toml:"backup_dir"`
	// BackupKeep caps backups per document; 0 keeps all.
	BackupKeep      int    `toml:"backup_keep"`
	OnlyUpdateNewer bool   `toml:"only_update_newer"`
}

// Workflow contains batch behaviour settings.
type Workflow struct {
	ExecutableExtensions []string `toml:"executable_extensions"`
	NonInteractive       string   `toml:"non_interactive"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for kura.
//
// Configuration sections by subsystem:
//   - Paths: unsorted inboxes, library root, store and log locations
//   - Scoring: per-signal weights for candidate scoring
//   - Decision: accept/ask thresholds and suggestion count
//   - Locators: metadata source endpoints, pacing, and worker pool size
//   - Catalog: LaunchBox document location and reconciliation mode
//   - Workflow: executable detection and non-interactive policy
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Scoring  Scoring  `toml:"scoring"`
	Decision Decision `toml:"decision"`
	Locators Locators `toml:"locators"`
	Catalog  Catalog  `toml:"catalog"`
	Workflow Workflow `toml:"workflow"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("kura.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories kura writes into. The library
// directory is created on a best-effort basis so read-only commands still work
// when external storage is offline.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.LibraryDir) != "" {
		_ = os.MkdirAll(c.Paths.LibraryDir, 0o755)
	}
	return nil
}

// StorePath returns the SQLite database location.
func (c *Config) StorePath() string {
	return filepath.Join(c.Paths.DataDir, "kura.db")
}

// LockPath returns the run lock location guarding mutating commands.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "kura.lock")
}

// CatalogPath returns the LaunchBox platform document path, or "" when no
// LaunchBox directory is configured.
func (c *Config) CatalogPath() string {
	if strings.TrimSpace(c.Catalog.LaunchBoxDir) == "" {
		return ""
	}
	return filepath.Join(c.Catalog.LaunchBoxDir, "Data", "Platforms", c.Catalog.Platform+".xml")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
