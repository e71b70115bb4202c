package catalog

import (
	"fmt"
	"strings"
	"time"
)

// LaunchBox <Game> child element names.
const (
	FieldID                       = "ID"
	FieldTitle                    = "Title"
	FieldNotes                    = "Notes"
	FieldGenre                    = "Genre"
	FieldDeveloper                = "Developer"
	FieldPublisher                = "Publisher"
	FieldReleaseDate              = "ReleaseDate"
	FieldDateAdded                = "DateAdded"
	FieldDateModified             = "DateModified"
	FieldStarRating               = "StarRating"
	FieldStarRatingFloat          = "StarRatingFloat"
	FieldRating                   = "Rating"
	FieldSource                   = "Source"
	FieldPlatform                 = "Platform"
	FieldApplicationPath          = "ApplicationPath"
	FieldRootFolder               = "RootFolder"
	FieldLastPlayedDate           = "LastPlayedDate"
	FieldPlayCount                = "PlayCount"
	FieldPlayTime                 = "PlayTime"
	FieldFavorite                 = "Favorite"
	FieldCompleted                = "Completed"
	FieldEmulator                 = "Emulator"
	FieldUseDosBox                = "UseDosBox"
	FieldCommandLine              = "CommandLine"
	FieldConfigurationPath        = "ConfigurationPath"
	FieldConfigurationCommandLine = "ConfigurationCommandLine"
	FieldHide                     = "Hide"
	FieldBroken                   = "Broken"
	FieldPortable                 = "Portable"
	FieldStatus                   = "Status"
	FieldRegion                   = "Region"
	FieldVersion                  = "Version"
)

// Custom field names written next to a game.
const (
	CustomFieldEngine      = "Engine"
	CustomFieldCanonicalID = "Kura ID"
)

// FieldSet is an immutable set of element names.
type FieldSet map[string]struct{}

// NewFieldSet builds a set from names.
func NewFieldSet(names ...string) FieldSet {
	set := make(FieldSet, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

// Has reports whether name is in the set.
func (s FieldSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// storeOwned lists the fields the store writes, in the order new entries
// carry them.
var storeOwned = []string{
	FieldID,
	FieldTitle,
	FieldNotes,
	FieldGenre,
	FieldDeveloper,
	FieldPublisher,
	FieldReleaseDate,
	FieldDateAdded,
	FieldDateModified,
	FieldStarRating,
	FieldStarRatingFloat,
	FieldRating,
	FieldSource,
	FieldPlatform,
	FieldApplicationPath,
	FieldRootFolder,
}

var storeOwnedSet = NewFieldSet(storeOwned...)

// frontendDefaults are the values a freshly created entry starts with.
var frontendDefaults = []Field{
	{Name: FieldPlayCount, Value: "0"},
	{Name: FieldPlayTime, Value: "0"},
	{Name: FieldLastPlayedDate, Value: ""},
	{Name: FieldFavorite, Value: "false"},
	{Name: FieldCompleted, Value: "false"},
	{Name: FieldEmulator, Value: ""},
	{Name: FieldUseDosBox, Value: "false"},
	{Name: FieldCommandLine, Value: ""},
	{Name: FieldConfigurationPath, Value: ""},
	{Name: FieldConfigurationCommandLine, Value: ""},
	{Name: FieldHide, Value: "false"},
	{Name: FieldBroken, Value: "false"},
	{Name: FieldPortable, Value: "false"},
	{Name: FieldStatus, Value: ""},
	{Name: FieldRegion, Value: ""},
	{Name: FieldVersion, Value: ""},
}

// StoreOwnedFields returns the fields export is allowed to write.
func StoreOwnedFields() FieldSet {
	return NewFieldSet(storeOwned...)
}

// FrontendOwnedFields returns the fields the frontend owns. Export never
// overwrites them; elements outside both sets are treated the same way.
func FrontendOwnedFields() FieldSet {
	set := make(FieldSet, len(frontendDefaults))
	for _, f := range frontendDefaults {
		set[f.Name] = struct{}{}
	}
	return set
}

// TimeLayout matches the seven-digit fraction LaunchBox writes.
const TimeLayout = "2006-01-02T15:04:05.0000000-07:00"

var parseLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// FormatTime renders t the way LaunchBox stores dates. Zero renders empty.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(TimeLayout)
}

// ParseTime parses a LaunchBox date. Empty input returns false without error.
func ParseTime(value string) (time.Time, bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false, nil
	}
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("unrecognized date %q", value)
}
