package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"sort"

	"kura/internal/candidate"
	"kura/internal/decision"
	"kura/internal/logging"
	"kura/internal/resolution"
	"kura/internal/scoring"
	"kura/internal/services"
	"kura/internal/textutil"
)

// OrganizeSummary counts Organize outcomes per directory.
type OrganizeSummary struct {
	Directories int
	Filed       int
	Rejected    int
	Unmatched   int
	Deferred    int
	Skipped     int
	Failed      int
}

// Organize scores each gathered directory, asks the decision gate for a code
// and files accepted directories into the library. Directories run one at a
// time so prompts and renames never interleave. Per-directory failures are
// logged and counted; only context cancellation stops the loop.
func (d *Driver) Organize(ctx context.Context) (OrganizeSummary, error) {
	ctx = services.WithPhase(ctx, "organize")
	logger := logging.WithContext(ctx, d.logger)
	var summary OrganizeSummary

	dirs := d.unsortedDirectories(ctx)
	summary.Directories = len(dirs)
	d.progress.Start("organize", len(dirs))
	defer d.progress.Done()

	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		outcome := d.organizeOne(ctx, dir)
		d.progress.Advance(filepath.Base(dir))
		switch outcome {
		case outcomeFiled:
			summary.Filed++
		case outcomeRejected:
			summary.Rejected++
		case outcomeUnmatched:
			summary.Unmatched++
		case outcomeDeferred:
			summary.Deferred++
		case outcomeSkipped:
			summary.Skipped++
		case outcomeCancelled:
			return summary, ctx.Err()
		default:
			summary.Failed++
		}
	}

	logger.Info("organize complete",
		logging.Int("directories", summary.Directories),
		logging.Int("filed", summary.Filed),
		logging.Int("rejected", summary.Rejected),
		logging.Int("unmatched", summary.Unmatched),
		logging.Int("deferred", summary.Deferred),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed))
	return summary, nil
}

type organizeOutcome int

const (
	outcomeFailed organizeOutcome = iota
	outcomeFiled
	outcomeRejected
	outcomeUnmatched
	outcomeDeferred
	outcomeSkipped
	outcomeCancelled
)

func (d *Driver) organizeOne(ctx context.Context, dir string) organizeOutcome {
	ctx = services.WithDirectory(ctx, dir)
	logger := logging.WithContext(ctx, d.logger)

	state, found, err := resolution.Load(dir)
	if err != nil {
		d.warnState(ctx, dir, err)
		return outcomeFailed
	}
	if !found {
		logger.Debug("no gathered candidates; run get-codes first")
		return outcomeSkipped
	}
	if state.NoMatch {
		logger.Debug("directory excluded by earlier rejection")
		return outcomeSkipped
	}

	code := state.ResolvedCode
	if code == "" {
		raw := filepath.Base(dir)
		scored := d.score(raw, state)
		result, err := d.gate.Decide(ctx, decision.Subject{Directory: dir, Name: raw}, scored)
		switch {
		case errors.Is(err, decision.ErrDeferred):
			logger.Info("decision deferred", logging.Args(logging.DecisionAttrs("organize", "deferred", "confirmation unavailable")...)...)
			return outcomeDeferred
		case ctx.Err() != nil:
			return outcomeCancelled
		case err != nil:
			logging.WarnWithContext(logger, "confirmation failed", "confirmation_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "directory left in place"),
				logging.String(logging.FieldErrorHint, "re-run organize interactively"))
			return outcomeFailed
		}
		switch result.Kind {
		case decision.NoCandidates:
			return outcomeUnmatched
		case decision.Rejected:
			if err := resolution.MarkNoMatch(dir); err != nil {
				logging.WarnWithContext(logger, "could not record rejection", "resolution_state_write_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "directory will be offered again"),
					logging.String(logging.FieldErrorHint, "check directory permissions"))
				return outcomeFailed
			}
			return outcomeRejected
		}
		code = result.Code()
		if err := resolution.MarkResolved(dir, code); err != nil {
			logging.WarnWithContext(logger, "could not record accepted code", "resolution_state_write_failed",
				logging.String(logging.FieldCode, code),
				logging.Error(err),
				logging.String(logging.FieldImpact, "directory left in place"),
				logging.String(logging.FieldErrorHint, "check directory permissions"))
			return outcomeFailed
		}
	}

	if _, err := d.filer.File(ctx, code, dir, d.cfg.Paths.LibraryDir); err != nil {
		if !errors.Is(err, services.ErrCollision) {
			logging.WarnWithContext(logger, "filing failed", "filing_failed",
				logging.String(logging.FieldCode, code),
				logging.Error(err),
				logging.String("error_kind", services.Kind(err)),
				logging.String(logging.FieldImpact, "directory left in place"),
				logging.String(logging.FieldErrorHint, "re-run organize after fixing the filesystem problem"))
		}
		return outcomeFailed
	}
	return outcomeFiled
}

// score runs every registered locator's scorer over its sidecar results, then
// the generic scorer over results from locators no longer enabled, and merges
// the lists.
func (d *Driver) score(raw string, state resolution.State) []candidate.Scored {
	original := textutil.StripTags(raw)
	query := func(name string, result resolution.LocatorResult) candidate.Query {
		return candidate.Query{
			Locator:       name,
			Found:         result.FoundCodes,
			ExtractedCode: result.ExtractedCode,
			OriginalName:  original,
			RawName:       raw,
		}
	}

	lists := make([][]candidate.Scored, 0, len(state.Locators))
	seen := make(map[string]struct{}, len(state.Locators))
	for _, loc := range d.registry.All() {
		result, ok := state.Locators[loc.Name()]
		if !ok {
			continue
		}
		seen[loc.Name()] = struct{}{}
		lists = append(lists, loc.ScoreCodes(query(loc.Name(), result)))
	}

	var rest []string
	for name := range state.Locators {
		if _, ok := seen[name]; !ok {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		lists = append(lists, scoring.Score(d.cfg.Scoring, query(name, state.Locators[name])))
	}
	return scoring.Merge(lists...)
}
