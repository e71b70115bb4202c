package store

import (
	"strings"
	"time"
)

// Game is the canonical record for one filed title.
type Game struct {
	// ID is the canonical code (library directory name). Immutable.
	ID string
	// ExternalID joins the record to the catalog document. Write-once.
	ExternalID string

	Names        map[string]string
	Descriptions map[string]string
	Makers       map[string]string
	Genres       map[string][]string
	Tags         map[string][]string
	ImageURLs    []string

	ReleaseDate  string
	DateAdded    time.Time
	DateModified time.Time
	LastPlayed   *time.Time
	Rating       string
	Stars        float64
	SourceName   string

	Engine          string
	ApplicationPath string
	RootFolder      string

	Deleted                     bool
	ForceSourceUpdate           bool
	ForceExecutableUpdate       bool
	ForceAdditionalImagesUpdate bool
	SourceMissingJP             bool
	SourceMissingEN             bool
}

// NewGame returns an empty record for id stamped with now.
func NewGame(id, sourceName string, now time.Time) *Game {
	now = now.UTC()
	return &Game{
		ID:           id,
		SourceName:   sourceName,
		DateAdded:    now,
		DateModified: now,
	}
}

// HasMetadata reports whether any localized name was fetched.
func (g *Game) HasMetadata() bool {
	for _, name := range g.Names {
		if strings.TrimSpace(name) != "" {
			return true
		}
	}
	return false
}

// NeedsSource reports whether metadata should be (re)fetched.
func (g *Game) NeedsSource() bool {
	return g.ForceSourceUpdate || !g.HasMetadata()
}

// Localized returns the value for the first language in langs that has one.
func Localized(values map[string]string, langs []string) (string, string) {
	for _, lang := range langs {
		if v := strings.TrimSpace(values[lang]); v != "" {
			return v, lang
		}
	}
	return "", ""
}

// LocalizedList is Localized for list-valued fields.
func LocalizedList(values map[string][]string, langs []string) ([]string, string) {
	for _, lang := range langs {
		if v := values[lang]; len(v) > 0 {
			return v, lang
		}
	}
	return nil, ""
}

// Title returns the display title in preference order, falling back to the id.
func (g *Game) Title(langs []string) string {
	if name, _ := Localized(g.Names, langs); name != "" {
		return name
	}
	for _, name := range g.Names {
		if strings.TrimSpace(name) != "" {
			return name
		}
	}
	return g.ID
}

// Clone returns a deep copy.
func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	cp := *g
	cp.Names = cloneStrings(g.Names)
	cp.Descriptions = cloneStrings(g.Descriptions)
	cp.Makers = cloneStrings(g.Makers)
	cp.Genres = cloneLists(g.Genres)
	cp.Tags = cloneLists(g.Tags)
	if g.ImageURLs != nil {
		cp.ImageURLs = append([]string(nil), g.ImageURLs...)
	}
	if g.LastPlayed != nil {
		t := *g.LastPlayed
		cp.LastPlayed = &t
	}
	return &cp
}

func cloneStrings(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneLists(in map[string][]string) map[string][]string {
	if in == nil {
		return nil
	}
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = append([]string(nil), v...)
	}
	return out
}
