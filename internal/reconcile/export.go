package reconcile

import (
	"context"
	"math"
	"slices"
	"strconv"
	"strings"

	"kura/internal/catalog"
	"kura/internal/fileutil"
	"kura/internal/logging"
	"kura/internal/services"
	"kura/internal/store"
)

// Export writes every active store record into the platform document. Entries
// are located by external id; records without one get a fresh id that is
// stored back before the document is written. Store failures abort the pass
// and leave the document untouched.
func (r *Reconciler) Export(ctx context.Context) (Report, error) {
	var report Report
	if err := r.requireCatalog("export"); err != nil {
		return report, err
	}
	logger := logging.WithContext(ctx, r.logger).With(logging.String(logging.FieldPhase, "export"))

	doc, err := catalog.Load(r.catalogPath)
	if err != nil {
		return report, err
	}
	games, err := r.store.ListActive(ctx)
	if err != nil {
		return report, err
	}

	for _, game := range games {
		outcome, err := r.exportGame(ctx, doc, game)
		if err != nil {
			if services.IsFatal(err) {
				return report, err
			}
			report.Failed++
			r.recordFailure(logger, "export failed for record", game.ID, err)
			continue
		}
		switch outcome {
		case outcomeCreated:
			report.Created++
		case outcomeUpdated:
			report.Updated++
		default:
			report.Skipped++
		}
	}

	backup, err := catalog.Save(r.catalogPath, doc, r.backupDir)
	if err != nil {
		return report, err
	}
	if backup != "" && r.backupKeep > 0 {
		removed, err := fileutil.PruneBackups(r.backupDir, r.catalogPath, r.backupKeep)
		if err != nil {
			logging.WarnWithContext(logger, "catalog backup pruning failed", "backup_prune_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "older backups were kept"),
				logging.String(logging.FieldErrorHint, "check permissions on catalog.backup_dir"))
		} else if removed > 0 {
			logger.Debug("old catalog backups removed", logging.Int("removed", removed))
		}
	}
	logger.Info("catalog exported",
		logging.String("catalog", r.catalogPath),
		logging.String("backup", backup),
		logging.Int("created", report.Created),
		logging.Int("updated", report.Updated),
		logging.Int("skipped", report.Skipped),
		logging.Int("failed", report.Failed))
	return report, nil
}

type outcome int

const (
	outcomeUnchanged outcome = iota
	outcomeCreated
	outcomeUpdated
)

func (r *Reconciler) exportGame(ctx context.Context, doc *catalog.Document, game *store.Game) (outcome, error) {
	incoming := r.entryFor(game)

	if game.ExternalID != "" {
		if existing, ok := doc.FindGame(game.ExternalID); ok {
			merged := catalog.Merge(existing, incoming, r.frontendOwned)
			changed := !sameEntry(existing, merged)
			if changed {
				doc.PutGame(merged)
			}
			if r.upsertCustomFields(doc, game.ExternalID, game) {
				changed = true
			}
			if changed {
				return outcomeUpdated, nil
			}
			return outcomeUnchanged, nil
		}
	}

	externalID := game.ExternalID
	if externalID == "" {
		externalID = r.newID()
		if err := r.store.SetExternalID(ctx, game.ID, externalID); err != nil {
			return outcomeUnchanged, err
		}
	}
	doc.PutGame(catalog.NewEntry(incoming.With(catalog.FieldID, externalID)))
	r.upsertCustomFields(doc, externalID, game)
	return outcomeCreated, nil
}

// entryFor projects the store-owned catalog fields of game.
func (r *Reconciler) entryFor(game *store.Game) catalog.Game {
	notes, _ := store.Localized(game.Descriptions, r.languages)
	maker, _ := store.Localized(game.Makers, r.languages)
	genres, _ := store.LocalizedList(game.Genres, r.languages)

	entry := catalog.NewGame(game.ExternalID).
		With(catalog.FieldTitle, game.Title(r.languages)).
		With(catalog.FieldNotes, notes).
		With(catalog.FieldGenre, strings.Join(genres, "; ")).
		With(catalog.FieldDeveloper, maker).
		With(catalog.FieldPublisher, maker).
		With(catalog.FieldReleaseDate, releaseDateField(game.ReleaseDate)).
		With(catalog.FieldDateAdded, catalog.FormatTime(game.DateAdded)).
		With(catalog.FieldDateModified, catalog.FormatTime(game.DateModified)).
		With(catalog.FieldRating, game.Rating).
		With(catalog.FieldSource, game.SourceName).
		With(catalog.FieldPlatform, r.platform).
		With(catalog.FieldApplicationPath, game.ApplicationPath).
		With(catalog.FieldRootFolder, game.RootFolder)
	if game.Stars > 0 {
		entry = entry.
			With(catalog.FieldStarRating, strconv.Itoa(int(math.Round(game.Stars)))).
			With(catalog.FieldStarRatingFloat, strconv.FormatFloat(game.Stars, 'f', -1, 64))
	}
	return entry
}

func (r *Reconciler) upsertCustomFields(doc *catalog.Document, externalID string, game *store.Game) bool {
	changed := doc.UpsertCustomField(externalID, catalog.CustomFieldCanonicalID, game.ID)
	if strings.TrimSpace(game.Engine) != "" {
		if doc.UpsertCustomField(externalID, catalog.CustomFieldEngine, game.Engine) {
			changed = true
		}
	}
	return changed
}

func releaseDateField(value string) string {
	value = strings.TrimSpace(value)
	t, ok, err := catalog.ParseTime(value)
	if err != nil || !ok {
		return value
	}
	return catalog.FormatTime(t)
}

func sameEntry(a, b catalog.Game) bool {
	return slices.EqualFunc(a.Fields, b.Fields, func(x, y catalog.Field) bool {
		return x.Name == y.Name && x.Value == y.Value && x.Markup == y.Markup && slices.Equal(x.Attrs, y.Attrs)
	})
}
