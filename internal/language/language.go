package language

import "strings"

// Store keys for localized metadata.
const (
	English  = "en"
	Japanese = "jp"
)

type entry struct {
	key     string
	iso2    string
	iso3    string
	display string
	aliases []string
}

var languages = []entry{
	{English, "en", "eng", "English", []string{"english", "en-us", "en_us"}},
	{Japanese, "ja", "jpn", "Japanese", []string{"japanese", "ja-jp", "ja_jp", "日本語"}},
}

var byName map[string]*entry

func init() {
	byName = make(map[string]*entry)
	for i := range languages {
		e := &languages[i]
		byName[e.key] = e
		byName[e.iso2] = e
		byName[e.iso3] = e
		for _, alias := range e.aliases {
			byName[alias] = e
		}
	}
}

func lookup(code string) *entry {
	return byName[strings.ToLower(strings.TrimSpace(code))]
}

// Key returns the store key for code, or "" when the language is not one kura
// keeps metadata for.
func Key(code string) string {
	if e := lookup(code); e != nil {
		return e.key
	}
	return ""
}

// ISO2 returns the ISO 639-1 code sources use for code ("jp" becomes "ja").
func ISO2(code string) string {
	if e := lookup(code); e != nil {
		return e.iso2
	}
	return ""
}

// DisplayName returns a human-readable name, or the uppercased input when
// unrecognized.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	if e := lookup(code); e != nil {
		return e.display
	}
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeList maps every entry to its store key and drops duplicates.
// Unrecognized entries are kept lowercased so validation can name them.
func NormalizeList(codes []string) []string {
	if len(codes) == 0 {
		return nil
	}
	out := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		value := strings.ToLower(strings.TrimSpace(code))
		if value == "" {
			continue
		}
		if key := Key(value); key != "" {
			value = key
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
