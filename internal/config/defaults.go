package config

const (
	defaultConfigPath          = "~/.config/kura/config.toml"
	defaultLibraryDir          = "~/games"
	defaultDataDir             = "~/.local/share/kura"
	defaultLogDir              = "~/.local/share/kura/logs"
	defaultCatalogPlatform     = "Windows"
	defaultCatalogBackupDir    = "~/.local/share/kura/backups"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLocatorConcurrency  = 5
	defaultLocatorTimeout      = 20
	defaultRequestsPerSecond   = 2
	defaultCacheTTLMinutes     = 30
	defaultDLsiteBaseURL       = "https://www.dlsite.com"
	defaultDLsiteSite          = "maniax"
	defaultVNDBBaseURL         = "https://api.vndb.org/kana"
	defaultMaxResultsToSuggest = 5
	defaultAskThreshold        = 2
	defaultAcceptThreshold     = 6
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
		},
		Scoring: DefaultScoring(),
		Decision: Decision{
			AskThreshold:        defaultAskThreshold,
			AcceptThreshold:     defaultAcceptThreshold,
			MaxResultsToSuggest: defaultMaxResultsToSuggest,
		},
		Locators: Locators{
			Enabled:            []string{"dlsite", "vndb"},
			Concurrency:        defaultLocatorConcurrency,
			RequestTimeout:     defaultLocatorTimeout,
			RequestsPerSecond:  defaultRequestsPerSecond,
			CacheTTLMinutes:    defaultCacheTTLMinutes,
			PreferredLanguages: []string{"en", "jp"},
			DLsite: DLsite{
				BaseURL: defaultDLsiteBaseURL,
				Site:    defaultDLsiteSite,
			},
			VNDB: VNDB{
				BaseURL: defaultVNDBBaseURL,
			},
		},
		Catalog: Catalog{
			Platform:        defaultCatalogPlatform,
			BackupDir:       defaultCatalogBackupDir,
			BackupKeep:      20,
			OnlyUpdateNewer: true,
		},
		Workflow: Workflow{
			ExecutableExtensions: []string{".exe"},
			NonInteractive:       NonInteractiveSkip,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// DefaultScoring returns the repository signal weights.
func DefaultScoring() Scoring {
	return Scoring{
		Existence:                        1,
		SoleResult:                       1,
		ExtractedCode:                    2,
		ExtractedCodeFound:               2,
		ExactMatch:                       3,
		CandidateIncludesOriginal:        1,
		OriginalIncludesCandidate:        1,
		NoSpaceExactMatch:                1,
		NoSpaceCandidateIncludesOriginal: 1,
		NoSpaceOriginalIncludesCandidate: 1,
		MakerMatch:                       1,
	}
}
