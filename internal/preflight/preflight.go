package preflight

import (
	"context"
	"fmt"
	"path/filepath"

	"kura/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the path checks followed by the locator checks.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return append(CheckPaths(cfg), CheckLocators(ctx, cfg)...)
}

// CheckPaths verifies every configured directory.
func CheckPaths(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	var results []Result
	for idx, dir := range cfg.Paths.UnsortedDirs {
		results = append(results, CheckDirectoryAccess(fmt.Sprintf("Unsorted directory %d", idx+1), dir))
	}
	results = append(results, CheckDirectoryAccess("Library directory", cfg.Paths.LibraryDir))
	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))

	if path := cfg.CatalogPath(); path != "" {
		results = append(results, CheckCatalog(path))
		results = append(results, CheckCreatableDirectory("Catalog backups", cfg.Catalog.BackupDir))
	}
	return results
}

// CheckLocators probes the base endpoint of every enabled locator.
func CheckLocators(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	var results []Result
	for _, name := range cfg.Locators.Enabled {
		switch name {
		case "dlsite":
			results = append(results, CheckEndpoint(ctx, "DLsite", cfg.Locators.DLsite.BaseURL, nil))
		case "vndb":
			var header map[string]string
			if cfg.Locators.VNDB.Token != "" {
				header = map[string]string{"Authorization": "Token " + cfg.Locators.VNDB.Token}
			}
			results = append(results, CheckEndpoint(ctx, "VNDB", cfg.Locators.VNDB.BaseURL+"/stats", header))
		}
	}
	return results
}

// CheckCatalog verifies that the platform document, or the directory it will
// be created in, is writable.
func CheckCatalog(path string) Result {
	const name = "LaunchBox catalog"
	if result := CheckFileAccess(name, path); result.Passed {
		return result
	}
	result := CheckDirectoryAccess(name, filepath.Dir(path))
	if result.Passed {
		result.Detail = fmt.Sprintf("%s (will be created)", path)
	}
	return result
}
