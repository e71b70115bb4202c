package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"kura/internal/candidate"
	"kura/internal/logging"
	"kura/internal/services"
	"kura/internal/store"
)

// DownloadSummary counts DownloadSources outcomes.
type DownloadSummary struct {
	Candidates int
	Updated    int
	Missing    int
	Skipped    int
	Failed     int
}

// DownloadSources fetches metadata for active records that have none or are
// flagged for a refresh. Fetches run on the bounded locator pool; each record
// is written with its own read-modify-write so workers never share state.
func (d *Driver) DownloadSources(ctx context.Context) (DownloadSummary, error) {
	ctx = services.WithPhase(ctx, "download")
	logger := logging.WithContext(ctx, d.logger)
	var summary DownloadSummary

	games, err := d.store.ListActive(ctx)
	if err != nil {
		return summary, err
	}
	var pending []*store.Game
	for _, game := range games {
		if wantsSource(game) {
			pending = append(pending, game)
		}
	}
	summary.Candidates = len(pending)

	d.progress.Start("download", len(pending))
	defer d.progress.Done()

	var mu sync.Mutex
	count := func(field *int) {
		mu.Lock()
		*field++
		mu.Unlock()
	}
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(d.concurrency())
	for _, game := range pending {
		group.Go(func() error {
			defer d.progress.Advance(game.ID)
			if err := groupCtx.Err(); err != nil {
				return err
			}
			loc, ok := d.ownerOf(game)
			if !ok {
				count(&summary.Skipped)
				logger.Debug("no locator owns record", logging.String(logging.FieldCode, game.ID))
				return nil
			}
			switch err := d.downloadOne(groupCtx, loc, game.ID); {
			case err == nil:
				count(&summary.Updated)
			case errors.Is(err, services.ErrNotFound):
				count(&summary.Missing)
			default:
				count(&summary.Failed)
				d.warnRecord(groupCtx, game.ID, "metadata download failed", err)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return summary, err
	}

	logger.Info("metadata download complete",
		logging.Int("candidates", summary.Candidates),
		logging.Int("updated", summary.Updated),
		logging.Int("missing", summary.Missing),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed))
	return summary, nil
}

// wantsSource skips records already known to be absent at their source
// unless a refresh is forced.
func wantsSource(g *store.Game) bool {
	if g.ForceSourceUpdate {
		return true
	}
	return !g.HasMetadata() && !(g.SourceMissingJP && g.SourceMissingEN)
}

func (d *Driver) ownerOf(g *store.Game) (candidate.Locator, bool) {
	if loc, ok := d.registry.ForCode(g.ID); ok {
		return loc, true
	}
	return d.registry.Get(g.SourceName)
}

// downloadOne returns services.ErrNotFound after flagging the record when the
// source has no entry for it.
func (d *Driver) downloadOne(ctx context.Context, loc candidate.Locator, id string) error {
	ctx = services.WithRecordID(ctx, id)
	md, err := loc.FetchMetadata(ctx, id)
	if errors.Is(err, services.ErrNotFound) {
		_, modErr := d.store.Modify(ctx, id, func(g *store.Game) error {
			g.SourceMissingJP = true
			g.SourceMissingEN = true
			g.ForceSourceUpdate = false
			return nil
		})
		if modErr != nil {
			return modErr
		}
		logging.WarnWithContext(logging.WithContext(ctx, d.logger), "source has no entry for record", "source_missing",
			logging.String(logging.FieldLocator, loc.Name()),
			logging.String(logging.FieldImpact, "record keeps its current metadata"),
			logging.String(logging.FieldErrorHint, "set force_source_update after correcting the code"))
		return err
	}
	if err != nil {
		return err
	}
	now := d.now().UTC()
	_, err = d.store.Modify(ctx, id, func(g *store.Game) error {
		applyMetadata(g, md, loc.Name())
		g.ForceSourceUpdate = false
		g.DateModified = now
		return nil
	})
	return err
}

func applyMetadata(g *store.Game, md candidate.Metadata, locator string) {
	for lang, local := range md.ByLanguage {
		setString(&g.Names, lang, local.Name)
		setString(&g.Descriptions, lang, local.Description)
		setString(&g.Makers, lang, local.Maker)
		setList(&g.Genres, lang, local.Genres)
		setList(&g.Tags, lang, local.Tags)
	}
	_, hasJP := md.ByLanguage[candidate.LangJapanese]
	_, hasEN := md.ByLanguage[candidate.LangEnglish]
	g.SourceMissingJP = !hasJP
	g.SourceMissingEN = !hasEN

	if len(md.ImageURLs) > 0 {
		g.ImageURLs = append([]string(nil), md.ImageURLs...)
	}
	if md.ReleaseDate != "" {
		g.ReleaseDate = md.ReleaseDate
	}
	if md.Rating != "" {
		g.Rating = md.Rating
	}
	if md.Stars > 0 {
		g.Stars = md.Stars
	}
	g.SourceName = locator
	if md.Source != "" {
		g.SourceName = md.Source
	}
}

func setString(m *map[string]string, lang, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	if *m == nil {
		*m = make(map[string]string)
	}
	(*m)[lang] = value
}

func setList(m *map[string][]string, lang string, values []string) {
	if len(values) == 0 {
		return
	}
	if *m == nil {
		*m = make(map[string][]string)
	}
	(*m)[lang] = append([]string(nil), values...)
}
