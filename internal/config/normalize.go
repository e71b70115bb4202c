package config

import (
	"fmt"
	"os"
	"strings"

	"kura/internal/language"
)

// Non-interactive policies applied when the decision gate needs a human and no
// terminal is available.
const (
	NonInteractiveSkip        = "skip"
	NonInteractiveReject      = "reject"
	NonInteractiveAcceptFirst = "accept_first"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLocators()
	if err := c.normalizeCatalog(); err != nil {
		return err
	}
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	dirs := make([]string, 0, len(c.Paths.UnsortedDirs))
	seen := make(map[string]struct{}, len(c.Paths.UnsortedDirs))
	for idx, dir := range c.Paths.UnsortedDirs {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		expanded, err := expandPath(dir)
		if err != nil {
			return fmt.Errorf("paths.unsorted_dirs[%d]: %w", idx, err)
		}
		if _, ok := seen[expanded]; ok {
			continue
		}
		seen[expanded] = struct{}{}
		dirs = append(dirs, expanded)
	}
	c.Paths.UnsortedDirs = dirs

	if c.Paths.LibraryDir, err = expandPath(strings.TrimSpace(c.Paths.LibraryDir)); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLocators() {
	c.Locators.Enabled = normalizeNames(c.Locators.Enabled)
	c.Locators.PreferredLanguages = language.NormalizeList(c.Locators.PreferredLanguages)
	if len(c.Locators.PreferredLanguages) == 0 {
		c.Locators.PreferredLanguages = []string{language.English, language.Japanese}
	}

	c.Locators.DLsite.BaseURL = strings.TrimRight(strings.TrimSpace(c.Locators.DLsite.BaseURL), "/")
	if c.Locators.DLsite.BaseURL == "" {
		c.Locators.DLsite.BaseURL = defaultDLsiteBaseURL
	}
	c.Locators.DLsite.Site = strings.ToLower(strings.TrimSpace(c.Locators.DLsite.Site))
	if c.Locators.DLsite.Site == "" {
		c.Locators.DLsite.Site = defaultDLsiteSite
	}

	c.Locators.VNDB.BaseURL = strings.TrimRight(strings.TrimSpace(c.Locators.VNDB.BaseURL), "/")
	if c.Locators.VNDB.BaseURL == "" {
		c.Locators.VNDB.BaseURL = defaultVNDBBaseURL
	}
	if c.Locators.VNDB.Token == "" {
		if value, ok := os.LookupEnv("VNDB_TOKEN"); ok {
			c.Locators.VNDB.Token = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeCatalog() error {
	var err error
	c.Catalog.LaunchBoxDir = strings.TrimSpace(c.Catalog.LaunchBoxDir)
	if c.Catalog.LaunchBoxDir == "" {
		if value, ok := os.LookupEnv("LAUNCHBOX_DIR"); ok {
			c.Catalog.LaunchBoxDir = strings.TrimSpace(value)
		}
	}
	if c.Catalog.LaunchBoxDir != "" {
		if c.Catalog.LaunchBoxDir, err = expandPath(c.Catalog.LaunchBoxDir); err != nil {
			return fmt.Errorf("catalog.launchbox_dir: %w", err)
		}
	}
	c.Catalog.Platform = strings.TrimSpace(c.Catalog.Platform)
	if strings.TrimSpace(c.Catalog.BackupDir) == "" {
		c.Catalog.BackupDir = defaultCatalogBackupDir
	}
	if c.Catalog.BackupDir, err = expandPath(c.Catalog.BackupDir); err != nil {
		return fmt.Errorf("catalog.backup_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeWorkflow() {
	exts := make([]string, 0, len(c.Workflow.ExecutableExtensions))
	for _, ext := range normalizeNames(c.Workflow.ExecutableExtensions) {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	if len(exts) == 0 {
		exts = []string{".exe"}
	}
	c.Workflow.ExecutableExtensions = exts

	mode := strings.ToLower(strings.TrimSpace(c.Workflow.NonInteractive))
	mode = strings.ReplaceAll(mode, "-", "_")
	if mode == "" {
		mode = NonInteractiveSkip
	}
	c.Workflow.NonInteractive = mode
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}

func normalizeNames(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = strings.ToLower(strings.TrimSpace(value))
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
