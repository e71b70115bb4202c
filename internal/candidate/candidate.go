package candidate

import (
	"context"
	"strings"

	"kura/internal/language"
)

// Record is one hit returned by a locator for a search term. Records are
// transient; they are persisted only inside resolution sidecars.
type Record struct {
	Code        string `json:"code"`
	DisplayName string `json:"displayName"`
	SourceID    string `json:"sourceId"`
	Maker       string `json:"maker,omitempty"`
}

// Scored is the accumulated score of one code within a single evaluation.
// Accepted is set only by the decision gate.
type Scored struct {
	Code        string
	Score       float64
	DisplayName string
	SourceID    string
	Accepted    bool
}

// Query bundles everything a locator needs to score its own results for one
// directory.
type Query struct {
	Locator       string
	Found         []Record
	ExtractedCode string
	// OriginalName is the tag- and version-stripped directory name.
	OriginalName string
	// RawName is the directory name as it appears on disk.
	RawName string
}

// Localized holds the language-specific part of a metadata payload.
type Localized struct {
	Name        string
	Description string
	Maker       string
	Genres      []string
	Tags        []string
}

// Metadata is the full description of one code as reported by its owning
// locator. Languages absent from ByLanguage were not available at the source.
type Metadata struct {
	Code        string
	Source      string
	ByLanguage  map[string]Localized
	ImageURLs   []string
	ReleaseDate string
	Rating      string
	Stars       float64
}

// Language codes used as ByLanguage keys.
const (
	LangEnglish  = language.English
	LangJapanese = language.Japanese
)

// Locator is implemented once per metadata source.
type Locator interface {
	Name() string
	Search(ctx context.Context, term string) ([]Record, error)
	// ExtractCode returns the code embedded in a directory name, or "".
	ExtractCode(name string) string
	ScoreCodes(q Query) []Scored
	// ShouldUse reports whether canonicalID belongs to this source.
	ShouldUse(canonicalID string) bool
	FetchMetadata(ctx context.Context, code string) (Metadata, error)
}

// Registry resolves locators by name and by owned canonical id. Lookup order
// is registration order.
type Registry struct {
	locators []Locator
}

// NewRegistry returns a registry over the provided locators, skipping nils
// and duplicate names.
func NewRegistry(locators ...Locator) *Registry {
	r := &Registry{}
	seen := make(map[string]struct{}, len(locators))
	for _, loc := range locators {
		if loc == nil {
			continue
		}
		name := strings.ToLower(loc.Name())
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		r.locators = append(r.locators, loc)
	}
	return r
}

// All returns the registered locators in registration order.
func (r *Registry) All() []Locator {
	if r == nil {
		return nil
	}
	out := make([]Locator, len(r.locators))
	copy(out, r.locators)
	return out
}

// Get returns the locator registered under name.
func (r *Registry) Get(name string) (Locator, bool) {
	if r == nil {
		return nil, false
	}
	for _, loc := range r.locators {
		if strings.EqualFold(loc.Name(), name) {
			return loc, true
		}
	}
	return nil, false
}

// ForCode returns the first locator claiming canonicalID.
func (r *Registry) ForCode(canonicalID string) (Locator, bool) {
	if r == nil || strings.TrimSpace(canonicalID) == "" {
		return nil, false
	}
	for _, loc := range r.locators {
		if loc.ShouldUse(canonicalID) {
			return loc, true
		}
	}
	return nil, false
}

// Len reports the number of registered locators.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.locators)
}
