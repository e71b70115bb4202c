package resolution

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"kura/internal/candidate"
	"kura/internal/services"
)

// FileName is the sidecar kept inside each unsorted directory.
const FileName = ".kura.json"

// LocatorResult is what one locator reported for the directory.
type LocatorResult struct {
	ExtractedCode string             `json:"extractedCode"`
	FoundCodes    []candidate.Record `json:"foundCodes"`
}

// State is the per-directory resolution checkpoint. NoMatch is terminal until
// cleared by hand; ResolvedCode lets an interrupted organize resume without
// asking again.
type State struct {
	Locators     map[string]LocatorResult `json:"locators"`
	NoMatch      bool                     `json:"noMatch,omitempty"`
	ResolvedCode string                   `json:"resolvedCode,omitempty"`
}

// Path returns the sidecar location for dir.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Load reads the sidecar for dir. A missing sidecar returns a zero State and
// false. Unreadable or malformed sidecars fail with services.ErrValidation.
func Load(dir string) (State, bool, error) {
	data, err := os.ReadFile(Path(dir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return State{}, false, nil
		}
		return State{}, false, services.Wrap(services.ErrValidation, "resolution", "read state", Path(dir), err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, true, services.Wrap(services.ErrValidation, "resolution", "decode state", Path(dir), err)
	}
	if state.Locators == nil && !state.NoMatch && state.ResolvedCode == "" {
		return State{}, true, services.Wrap(services.ErrValidation, "resolution", "decode state", fmt.Sprintf("%s: missing locators", Path(dir)), nil)
	}
	for name, result := range state.Locators {
		for idx, rec := range result.FoundCodes {
			if strings.TrimSpace(rec.Code) == "" {
				return State{}, true, services.Wrap(services.ErrValidation, "resolution", "decode state", fmt.Sprintf("%s: %s.foundCodes[%d] has no code", Path(dir), name, idx), nil)
			}
		}
	}
	if state.Locators == nil {
		state.Locators = map[string]LocatorResult{}
	}
	return state, true, nil
}

// Save writes the sidecar atomically.
func Save(dir string, state State) error {
	locators := make(map[string]LocatorResult, len(state.Locators))
	for name, result := range state.Locators {
		if result.FoundCodes == nil {
			result.FoundCodes = []candidate.Record{}
		}
		locators[name] = result
	}
	state.Locators = locators
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode resolution state: %w", err)
	}
	data = append(data, '\n')
	if err := atomic.WriteFile(Path(dir), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write resolution state: %w", err)
	}
	return nil
}

// MarkNoMatch records a rejection for dir, preserving gathered candidates.
func MarkNoMatch(dir string) error {
	return update(dir, func(s *State) {
		s.NoMatch = true
		s.ResolvedCode = ""
	})
}

// MarkResolved records the accepted code for dir.
func MarkResolved(dir, code string) error {
	return update(dir, func(s *State) {
		s.NoMatch = false
		s.ResolvedCode = code
	})
}

func update(dir string, fn func(*State)) error {
	state, _, err := Load(dir)
	if err != nil {
		return err
	}
	fn(&state)
	return Save(dir, state)
}
