package reconcile

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"kura/internal/catalog"
	"kura/internal/logging"
	"kura/internal/services"
	"kura/internal/store"
)

// Import copies catalog edits back into the store. Entries without a matching
// record are skipped; import never creates records. With only_update_newer an
// entry is applied only when its DateModified or LastPlayedDate is strictly
// newer than the store's. Store failures abort the pass.
func (r *Reconciler) Import(ctx context.Context) (Report, error) {
	var report Report
	if err := r.requireCatalog("import"); err != nil {
		return report, err
	}
	logger := logging.WithContext(ctx, r.logger).With(logging.String(logging.FieldPhase, "import"))

	doc, err := catalog.Load(r.catalogPath)
	if err != nil {
		return report, err
	}

	for _, entry := range doc.Games {
		externalID := entry.ID()
		if externalID == "" {
			report.Skipped++
			continue
		}
		game, err := r.store.GetByExternalID(ctx, externalID)
		if err != nil {
			return report, err
		}
		if game == nil {
			report.Skipped++
			continue
		}

		stamps, err := readStamps(entry)
		if err != nil {
			report.Failed++
			r.recordFailure(logger, "catalog entry has an unreadable date", game.ID, err)
			continue
		}
		if r.onlyUpdateNewer && !stamps.newerThan(game) {
			report.Skipped++
			attrs := append([]logging.Attr{logging.String(logging.FieldCode, game.ID)}, logging.DecisionAttrs("import", "skip", "not newer")...)
			logger.Debug("catalog entry not newer than store", logging.Args(attrs...)...)
			continue
		}

		_, err = r.store.Modify(ctx, game.ID, func(rec *store.Game) error {
			return r.applyEntry(rec, entry, stamps)
		})
		if err != nil {
			if services.IsFatal(err) {
				return report, err
			}
			report.Failed++
			r.recordFailure(logger, "import failed for record", game.ID, err)
			continue
		}
		report.Updated++
	}

	logger.Info("catalog imported",
		logging.String("catalog", r.catalogPath),
		logging.Int("updated", report.Updated),
		logging.Int("skipped", report.Skipped),
		logging.Int("failed", report.Failed))
	return report, nil
}

type stamps struct {
	modified    time.Time
	hasModified bool
	played      time.Time
	hasPlayed   bool
}

func readStamps(entry catalog.Game) (stamps, error) {
	var s stamps
	var err error
	s.modified, s.hasModified, err = catalog.ParseTime(entry.Get(catalog.FieldDateModified))
	if err != nil {
		return s, fmt.Errorf("%s: %w", catalog.FieldDateModified, err)
	}
	s.played, s.hasPlayed, err = catalog.ParseTime(entry.Get(catalog.FieldLastPlayedDate))
	if err != nil {
		return s, fmt.Errorf("%s: %w", catalog.FieldLastPlayedDate, err)
	}
	return s, nil
}

// newerThan reports whether either catalog timestamp is strictly after the
// store's. A store without a last-played value is older than any play.
func (s stamps) newerThan(game *store.Game) bool {
	if s.hasModified && s.modified.After(game.DateModified) {
		return true
	}
	if s.hasPlayed && (game.LastPlayed == nil || s.played.After(*game.LastPlayed)) {
		return true
	}
	return false
}

// applyEntry maps catalog fields onto rec. A localized value goes back under
// the language export read it from, so an unedited field is left alone. Empty
// catalog values never clear stored ones.
func (r *Reconciler) applyEntry(rec *store.Game, entry catalog.Game, s stamps) error {
	lang := r.primaryLanguage(rec)

	rec.Names = r.mergeLocalized(rec.Names, entry.Get(catalog.FieldTitle), lang)
	rec.Descriptions = r.mergeLocalized(rec.Descriptions, entry.Get(catalog.FieldNotes), lang)
	rec.Makers = r.mergeLocalized(rec.Makers, entry.Get(catalog.FieldDeveloper), lang)
	if genres := splitGenres(entry.Get(catalog.FieldGenre)); len(genres) > 0 {
		current, from := store.LocalizedList(rec.Genres, r.languages)
		if !slices.Equal(current, genres) {
			if from == "" {
				from = lang
			}
			if rec.Genres == nil {
				rec.Genres = map[string][]string{}
			}
			rec.Genres[from] = genres
		}
	}
	if rating := strings.TrimSpace(entry.Get(catalog.FieldRating)); rating != "" {
		rec.Rating = rating
	}
	if stars, ok := starsFrom(entry); ok {
		rec.Stars = stars
	}
	if release, ok, err := catalog.ParseTime(entry.Get(catalog.FieldReleaseDate)); err == nil && ok {
		rec.ReleaseDate = release.Format(time.DateOnly)
	}
	if path := strings.TrimSpace(entry.Get(catalog.FieldApplicationPath)); path != "" {
		rec.ApplicationPath = path
	}
	if root := strings.TrimSpace(entry.Get(catalog.FieldRootFolder)); root != "" {
		rec.RootFolder = root
	}
	if s.hasModified && s.modified.After(rec.DateModified) {
		rec.DateModified = s.modified.UTC()
	}
	if s.hasPlayed && (rec.LastPlayed == nil || s.played.After(*rec.LastPlayed)) {
		played := s.played.UTC()
		rec.LastPlayed = &played
	}
	return nil
}

func (r *Reconciler) primaryLanguage(rec *store.Game) string {
	if _, lang := store.Localized(rec.Names, r.languages); lang != "" {
		return lang
	}
	if len(r.languages) > 0 {
		return r.languages[0]
	}
	return "en"
}

// mergeLocalized stores incoming under the language Localized picks from
// values, or under fallback when values has none.
func (r *Reconciler) mergeLocalized(values map[string]string, incoming, fallback string) map[string]string {
	incoming = strings.TrimSpace(incoming)
	if incoming == "" {
		return values
	}
	current, lang := store.Localized(values, r.languages)
	if incoming == current {
		return values
	}
	if lang == "" {
		lang = fallback
	}
	if values == nil {
		values = map[string]string{}
	}
	values[lang] = incoming
	return values
}

func splitGenres(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func starsFrom(entry catalog.Game) (float64, bool) {
	for _, name := range []string{catalog.FieldStarRatingFloat, catalog.FieldStarRating} {
		value := strings.TrimSpace(entry.Get(name))
		if value == "" {
			continue
		}
		stars, err := strconv.ParseFloat(value, 64)
		if err != nil || stars < 0 {
			continue
		}
		return stars, true
	}
	return 0, false
}
