package config

import (
	"errors"
	"fmt"
	"strings"

	"kura/internal/language"
)

var knownLocators = map[string]struct{}{
	"dlsite": {},
	"vndb":   {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateScoring(); err != nil {
		return err
	}
	if err := c.validateDecision(); err != nil {
		return err
	}
	if err := c.validateLocators(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.LibraryDir == "" {
		return errors.New("paths.library_dir must be set")
	}
	for idx, dir := range c.Paths.UnsortedDirs {
		if dir == c.Paths.LibraryDir {
			return fmt.Errorf("paths.unsorted_dirs[%d] must differ from paths.library_dir", idx)
		}
	}
	return nil
}

func (c *Config) validateScoring() error {
	weights := map[string]float64{
		"existence":                            c.Scoring.Existence,
		"sole_result":                          c.Scoring.SoleResult,
		"extracted_code":                       c.Scoring.ExtractedCode,
		"extracted_code_found":                 c.Scoring.ExtractedCodeFound,
		"exact_match":                          c.Scoring.ExactMatch,
		"candidate_includes_original":          c.Scoring.CandidateIncludesOriginal,
		"original_includes_candidate":          c.Scoring.OriginalIncludesCandidate,
		"no_space_exact_match":                 c.Scoring.NoSpaceExactMatch,
		"no_space_candidate_includes_original": c.Scoring.NoSpaceCandidateIncludesOriginal,
		"no_space_original_includes_candidate": c.Scoring.NoSpaceOriginalIncludesCandidate,
		"maker_match":                          c.Scoring.MakerMatch,
	}
	for name, value := range weights {
		if value < 0 {
			return fmt.Errorf("scoring.%s must be >= 0", name)
		}
	}
	return nil
}

func (c *Config) validateDecision() error {
	if c.Decision.AskThreshold < 0 {
		return errors.New("decision.ask_threshold must be >= 0")
	}
	if c.Decision.AskThreshold > c.Decision.AcceptThreshold {
		return errors.New("decision.ask_threshold must be <= decision.accept_threshold")
	}
	if c.Decision.MaxResultsToSuggest <= 0 {
		return errors.New("decision.max_results_to_suggest must be positive")
	}
	return nil
}

func (c *Config) validateLocators() error {
	if c.Locators.Concurrency <= 0 {
		return errors.New("locators.concurrency must be positive")
	}
	if c.Locators.RequestTimeout <= 0 {
		return errors.New("locators.request_timeout must be positive")
	}
	if c.Locators.RequestsPerSecond <= 0 {
		return errors.New("locators.requests_per_second must be positive")
	}
	if c.Locators.CacheTTLMinutes < 0 {
		return errors.New("locators.cache_ttl_minutes must be >= 0")
	}
	for _, name := range c.Locators.Enabled {
		if _, ok := knownLocators[name]; !ok {
			return fmt.Errorf("locators.enabled: unknown locator %q", name)
		}
	}
	for _, lang := range c.Locators.PreferredLanguages {
		if language.Key(lang) == "" {
			return fmt.Errorf("locators.preferred_languages: unsupported language %q (use en or jp)", lang)
		}
	}
	return nil
}

func (c *Config) validateCatalog() error {
	if c.Catalog.BackupKeep < 0 {
		return errors.New("catalog.backup_keep must be >= 0")
	}
	if c.Catalog.LaunchBoxDir == "" {
		return nil
	}
	if c.Catalog.Platform == "" {
		return errors.New("catalog.platform must be set when catalog.launchbox_dir is configured")
	}
	if strings.ContainsAny(c.Catalog.Platform, `/\`) {
		return fmt.Errorf("catalog.platform %q must not contain path separators", c.Catalog.Platform)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	switch c.Workflow.NonInteractive {
	case NonInteractiveSkip, NonInteractiveReject, NonInteractiveAcceptFirst:
		return nil
	default:
		return fmt.Errorf("workflow.non_interactive: unsupported value %q (use skip, reject, or accept_first)", c.Workflow.NonInteractive)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
