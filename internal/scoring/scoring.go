package scoring

import (
	"strings"

	"kura/internal/candidate"
	"kura/internal/config"
	"kura/internal/textutil"
)

// Signal is a source-specific extra signal evaluated once per found record.
type Signal func(q candidate.Query, rec candidate.Record) float64

// Score evaluates the generic signals, plus any extras, for one locator's
// results. Entries appear in discovery order; sorting is the decision gate's
// job. Score is pure: identical inputs yield identical output.
func Score(w config.Scoring, q candidate.Query, extras ...Signal) []candidate.Scored {
	if len(q.Found) == 0 {
		return []candidate.Scored{}
	}

	acc := newAccumulator(len(q.Found) + 1)
	sole := len(q.Found) == 1
	original := textutil.Fold(q.OriginalName)
	originalNoSpace := textutil.RemoveSpaces(original)
	extracted := strings.TrimSpace(q.ExtractedCode)

	for _, rec := range q.Found {
		code := strings.TrimSpace(rec.Code)
		if code == "" {
			continue
		}
		source := rec.SourceID
		if source == "" {
			source = q.Locator
		}
		acc.add(code, w.Existence, rec.DisplayName, source)
		if sole {
			acc.add(code, w.SoleResult, "", source)
		}
		if extracted != "" && strings.EqualFold(code, extracted) {
			acc.add(code, w.ExtractedCodeFound, "", source)
		}

		candidateName := textutil.Fold(rec.DisplayName)
		if candidateName != "" && original != "" {
			acc.add(code, nameScore(w, candidateName, original, textutil.RemoveSpaces(candidateName), originalNoSpace), "", source)
		}

		for _, extra := range extras {
			if extra == nil {
				continue
			}
			acc.add(code, extra(q, rec), "", source)
		}
	}

	if extracted != "" {
		acc.add(extracted, w.ExtractedCode, "", q.Locator)
	}

	return acc.list()
}

func nameScore(w config.Scoring, candidateName, original, candidateNoSpace, originalNoSpace string) float64 {
	var score float64
	if candidateName == original {
		score += w.ExactMatch
	}
	if strings.Contains(candidateName, original) {
		score += w.CandidateIncludesOriginal
	}
	if strings.Contains(original, candidateName) {
		score += w.OriginalIncludesCandidate
	}
	if candidateNoSpace == "" || originalNoSpace == "" {
		return score
	}
	if candidateNoSpace == originalNoSpace {
		score += w.NoSpaceExactMatch
	}
	if strings.Contains(candidateNoSpace, originalNoSpace) {
		score += w.NoSpaceCandidateIncludesOriginal
	}
	if strings.Contains(originalNoSpace, candidateNoSpace) {
		score += w.NoSpaceOriginalIncludesCandidate
	}
	return score
}

// Merge combines the lists produced by several locators for the same
// directory. Scores for the same code add up; the first-seen position, display
// name and source win.
func Merge(lists ...[]candidate.Scored) []candidate.Scored {
	total := 0
	for _, list := range lists {
		total += len(list)
	}
	acc := newAccumulator(total)
	for _, list := range lists {
		for _, entry := range list {
			acc.add(entry.Code, entry.Score, entry.DisplayName, entry.SourceID)
		}
	}
	return acc.list()
}

type accumulator struct {
	index   map[string]int
	entries []candidate.Scored
}

func newAccumulator(size int) *accumulator {
	return &accumulator{
		index:   make(map[string]int, size),
		entries: make([]candidate.Scored, 0, size),
	}
}

func (a *accumulator) add(code string, weight float64, displayName, source string) {
	if pos, ok := a.index[code]; ok {
		entry := &a.entries[pos]
		entry.Score += weight
		if entry.DisplayName == "" {
			entry.DisplayName = strings.TrimSpace(displayName)
		}
		return
	}
	a.index[code] = len(a.entries)
	a.entries = append(a.entries, candidate.Scored{
		Code:        code,
		Score:       weight,
		DisplayName: strings.TrimSpace(displayName),
		SourceID:    source,
	})
}

func (a *accumulator) list() []candidate.Scored {
	out := make([]candidate.Scored, len(a.entries))
	copy(out, a.entries)
	return out
}
