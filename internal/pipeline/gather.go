package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"kura/internal/logging"
	"kura/internal/resolution"
	"kura/internal/services"
	"kura/internal/textutil"
)

// GatherSummary counts GatherCodes outcomes.
type GatherSummary struct {
	Directories int
	Gathered    int
	Skipped     int
	Failed      int
}

// GatherCodes queries every locator for each unsorted directory and writes
// the results to the directory's sidecar. Directories that already have a
// sidecar are skipped unless refresh is set; a refresh keeps the noMatch and
// resolved flags. A locator error counts as no candidates from that locator;
// when every locator fails the sidecar is not written so the next run tries
// again.
func (d *Driver) GatherCodes(ctx context.Context, refresh bool) (GatherSummary, error) {
	ctx = services.WithPhase(ctx, "gather")
	logger := logging.WithContext(ctx, d.logger)
	var summary GatherSummary
	if d.registry.Len() == 0 {
		return summary, services.Wrap(services.ErrConfiguration, "pipeline", "gather", "no locators enabled", nil)
	}

	dirs := d.unsortedDirectories(ctx)
	summary.Directories = len(dirs)

	type job struct {
		dir   string
		prior resolution.State
	}
	var jobs []job
	for _, dir := range dirs {
		state, found, err := resolution.Load(dir)
		switch {
		case err != nil && !refresh:
			summary.Skipped++
			d.warnState(ctx, dir, err)
			continue
		case err != nil:
			state = resolution.State{}
		case found && !refresh:
			summary.Skipped++
			continue
		}
		jobs = append(jobs, job{dir: dir, prior: state})
	}

	d.progress.Start("gather", len(jobs))
	defer d.progress.Done()

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(d.concurrency())
	for _, j := range jobs {
		group.Go(func() error {
			defer d.progress.Advance(filepath.Base(j.dir))
			if err := groupCtx.Err(); err != nil {
				return err
			}
			ok := d.gatherOne(groupCtx, j.dir, j.prior)
			mu.Lock()
			if ok {
				summary.Gathered++
			} else {
				summary.Failed++
			}
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return summary, err
	}

	logger.Info("candidate gathering complete",
		logging.Int("directories", summary.Directories),
		logging.Int("gathered", summary.Gathered),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed))
	return summary, nil
}

func (d *Driver) gatherOne(ctx context.Context, dir string, prior resolution.State) bool {
	ctx = services.WithDirectory(ctx, dir)
	logger := logging.WithContext(ctx, d.logger)
	raw := filepath.Base(dir)
	term := textutil.StripTags(raw)

	state := resolution.State{
		Locators:     make(map[string]resolution.LocatorResult, d.registry.Len()),
		NoMatch:      prior.NoMatch,
		ResolvedCode: prior.ResolvedCode,
	}
	failures := 0
	for _, loc := range d.registry.All() {
		result := resolution.LocatorResult{ExtractedCode: loc.ExtractCode(raw)}
		found, err := loc.Search(ctx, term)
		if err != nil {
			failures++
			logging.WarnWithContext(logger, "locator search failed", "locator_search_failed",
				logging.String(logging.FieldLocator, loc.Name()),
				logging.Error(err),
				logging.String(logging.FieldImpact, "no candidates from this locator"),
				logging.String(logging.FieldErrorHint, "run get-codes --refresh once the source is reachable"))
			found = nil
		}
		result.FoundCodes = found
		state.Locators[loc.Name()] = result
		logger.Debug("locator searched",
			logging.String(logging.FieldLocator, loc.Name()),
			logging.String("term", term),
			logging.Int("found", len(found)),
			logging.String("extracted_code", result.ExtractedCode))
	}
	if failures == d.registry.Len() {
		return false
	}
	if err := resolution.Save(dir, state); err != nil {
		logging.WarnWithContext(logger, "sidecar write failed", "sidecar_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "directory will be gathered again next run"),
			logging.String(logging.FieldErrorHint, "check directory permissions"))
		return false
	}
	return true
}

func (d *Driver) warnState(ctx context.Context, dir string, err error) {
	logger := logging.WithContext(services.WithDirectory(ctx, dir), d.logger)
	hint := "check directory permissions"
	if errors.Is(err, services.ErrValidation) {
		hint = "fix or delete " + resolution.FileName + " and run get-codes --refresh"
	}
	logging.WarnWithContext(logger, "resolution state unreadable; directory skipped", "resolution_state_invalid",
		logging.Error(err),
		logging.String(logging.FieldImpact, "directory was skipped"),
		logging.String(logging.FieldErrorHint, hint))
}
