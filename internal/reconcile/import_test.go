package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"kura/internal/catalog"
	"kura/internal/config"
	"kura/internal/services"
	"kura/internal/store"
	"kura/internal/testsupport"
)

var storeStamp = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// seedImport stores RJ5 with external id "ext-5", DateModified and LastPlayed
// both at storeStamp, and writes a catalog entry for it built by edit.
func seedImport(t *testing.T, cfg *config.Config, st *store.Store, edit func(catalog.Game) catalog.Game) *store.Game {
	t.Helper()
	ctx := context.Background()
	testsupport.PutGame(t, st, "RJ5", "Store Title", storeStamp)
	if err := st.SetExternalID(ctx, "RJ5", "ext-5"); err != nil {
		t.Fatal(err)
	}
	game, err := st.Modify(ctx, "RJ5", func(g *store.Game) error {
		played := storeStamp
		g.LastPlayed = &played
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	entry := catalog.NewEntry(catalog.NewGame("ext-5").With(catalog.FieldTitle, "Catalog Title"))
	doc := &catalog.Document{}
	doc.PutGame(edit(entry))
	if _, err := catalog.Save(cfg.CatalogPath(), doc, cfg.Catalog.BackupDir); err != nil {
		t.Fatal(err)
	}
	return game
}

func stamped(modified, played time.Time) func(catalog.Game) catalog.Game {
	return func(g catalog.Game) catalog.Game {
		return g.
			With(catalog.FieldDateModified, catalog.FormatTime(modified)).
			With(catalog.FieldLastPlayedDate, catalog.FormatTime(played))
	}
}

func TestImportSkipsWhenNeitherTimestampIsNewer(t *testing.T) {
	tests := []struct {
		name     string
		modified time.Time
		played   time.Time
	}{
		{name: "both older", modified: storeStamp.Add(-24 * time.Hour), played: storeStamp.Add(-time.Hour)},
		{name: "both equal", modified: storeStamp, played: storeStamp},
		{name: "older and never played", modified: storeStamp.Add(-time.Minute)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			cfg := testsupport.NewConfig(t, testsupport.WithLaunchBox("Windows"))
			st := testsupport.MustOpenStore(t, cfg)
			before := seedImport(t, cfg, st, stamped(tt.modified, tt.played))

			report, err := newReconciler(t, cfg, st).Import(ctx)
			if err != nil {
				t.Fatalf("Import: %v", err)
			}
			if report != (Report{Skipped: 1}) {
				t.Fatalf("report = %+v", report)
			}
			after, err := st.Get(ctx, "RJ5")
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(before, after); diff != "" {
				t.Fatalf("store record changed (-before +after):\n%s", diff)
			}
		})
	}
}

func TestImportAppliesNewerPlay(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t, testsupport.WithLaunchBox("Windows"))
	st := testsupport.MustOpenStore(t, cfg)
	played := storeStamp.Add(48 * time.Hour)
	seedImport(t, cfg, st, stamped(storeStamp.Add(-24*time.Hour), played))

	report, err := newReconciler(t, cfg, st).Import(ctx)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report != (Report{Updated: 1}) {
		t.Fatalf("report = %+v", report)
	}
	after, err := st.Get(ctx, "RJ5")
	if err != nil {
		t.Fatal(err)
	}
	if after.LastPlayed == nil || !after.LastPlayed.Equal(played) {
		t.Fatalf("LastPlayed = %v, want %v", after.LastPlayed, played)
	}
	if after.Names["en"] != "Catalog Title" {
		t.Fatalf("title not imported: %+v", after.Names)
	}
	if !after.DateModified.Equal(storeStamp) {
		t.Fatalf("DateModified moved backwards: %v", after.DateModified)
	}
}

func TestImportAppliesNewerModification(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t, testsupport.WithLaunchBox("Windows"))
	st := testsupport.MustOpenStore(t, cfg)
	modified := storeStamp.Add(time.Hour)
	seedImport(t, cfg, st, func(g catalog.Game) catalog.Game {
		return stamped(modified, time.Time{})(g).
			With(catalog.FieldGenre, "Puzzle; Action ;").
			With(catalog.FieldDeveloper, "Circle").
			With(catalog.FieldStarRatingFloat, "3.5").
			With(catalog.FieldReleaseDate, "2020-02-29T00:00:00.0000000+00:00")
	})

	if _, err := newReconciler(t, cfg, st).Import(ctx); err != nil {
		t.Fatalf("Import: %v", err)
	}
	after, err := st.Get(ctx, "RJ5")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Puzzle", "Action"}, after.Genres["en"]); diff != "" {
		t.Fatalf("genres (-want +got):\n%s", diff)
	}
	if after.Makers["en"] != "Circle" || after.Stars != 3.5 || after.ReleaseDate != "2020-02-29" {
		t.Fatalf("unexpected record %+v", after)
	}
	if !after.DateModified.Equal(modified) {
		t.Fatalf("DateModified = %v, want %v", after.DateModified, modified)
	}
}

func TestImportWithoutOnlyUpdateNewerAppliesOlderEntries(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t, testsupport.WithLaunchBox("Windows"))
	cfg.Catalog.OnlyUpdateNewer = false
	st := testsupport.MustOpenStore(t, cfg)
	seedImport(t, cfg, st, stamped(storeStamp.Add(-time.Hour), storeStamp.Add(-time.Hour)))

	report, err := newReconciler(t, cfg, st).Import(ctx)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report.Updated != 1 {
		t.Fatalf("report = %+v", report)
	}
	after, err := st.Get(ctx, "RJ5")
	if err != nil {
		t.Fatal(err)
	}
	if after.Names["en"] != "Catalog Title" {
		t.Fatalf("title = %q", after.Names["en"])
	}
	if !after.DateModified.Equal(storeStamp) || !after.LastPlayed.Equal(storeStamp) {
		t.Fatalf("timestamps must not move backwards: %v %v", after.DateModified, after.LastPlayed)
	}
}

func TestImportNeverCreatesRecords(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t, testsupport.WithLaunchBox("Windows"))
	st := testsupport.MustOpenStore(t, cfg)
	doc := &catalog.Document{}
	doc.PutGame(catalog.NewEntry(catalog.NewGame("unknown").With(catalog.FieldTitle, "Stranger")))
	doc.PutGame(catalog.NewEntry(catalog.Game{}.With(catalog.FieldTitle, "No ID")))
	if _, err := catalog.Save(cfg.CatalogPath(), doc, cfg.Catalog.BackupDir); err != nil {
		t.Fatal(err)
	}

	report, err := newReconciler(t, cfg, st).Import(ctx)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report != (Report{Skipped: 2}) {
		t.Fatalf("report = %+v", report)
	}
	games, err := st.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(games) != 0 {
		t.Fatalf("import created %d records", len(games))
	}
}

func TestImportCountsUnreadableDates(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t, testsupport.WithLaunchBox("Windows"))
	st := testsupport.MustOpenStore(t, cfg)
	seedImport(t, cfg, st, func(g catalog.Game) catalog.Game {
		return g.With(catalog.FieldDateModified, "last tuesday")
	})

	report, err := newReconciler(t, cfg, st).Import(ctx)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report != (Report{Failed: 1}) {
		t.Fatalf("report = %+v", report)
	}
}

func TestImportPropagatesStoreFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithLaunchBox("Windows"))
	game := store.NewGame("RJ5", "dlsite", storeStamp)
	game.ExternalID = "ext-5"
	fake := &fakeStore{
		games:     []*store.Game{game},
		modifyErr: services.Wrap(services.ErrStore, "store", "modify", "RJ5", errors.New("database is locked")),
	}
	doc := &catalog.Document{}
	doc.PutGame(catalog.NewEntry(catalog.NewGame("ext-5")).With(catalog.FieldDateModified, catalog.FormatTime(storeStamp.Add(time.Hour))))
	if _, err := catalog.Save(cfg.CatalogPath(), doc, cfg.Catalog.BackupDir); err != nil {
		t.Fatal(err)
	}

	_, err := newReconciler(t, cfg, fake).Import(context.Background())
	if !errors.Is(err, services.ErrStore) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestExportThenImportLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t, testsupport.WithLaunchBox("Windows"))
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.PutGame(t, st, "RJ7", "Round Trip", time.Date(2025, 4, 5, 6, 7, 8, 999999999, time.UTC))

	r := newReconciler(t, cfg, st)
	if _, err := r.Export(ctx); err != nil {
		t.Fatal(err)
	}
	before, err := st.Get(ctx, "RJ7")
	if err != nil {
		t.Fatal(err)
	}
	report, err := r.Import(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report != (Report{Skipped: 1}) {
		t.Fatalf("report = %+v", report)
	}
	after, err := st.Get(ctx, "RJ7")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(before, after); diff != "" {
		t.Fatalf("round trip changed record:\n%s", diff)
	}
}

// seedLocalized stores RJ8 titled in English with notes, developer and genres
// only in Japanese, exports it, and returns the exported entry.
func seedLocalized(t *testing.T, cfg *config.Config, st *store.Store, r *Reconciler) catalog.Game {
	t.Helper()
	ctx := context.Background()
	testsupport.PutGame(t, st, "RJ8", "English Title", storeStamp)
	if _, err := st.Modify(ctx, "RJ8", func(g *store.Game) error {
		g.Descriptions = map[string]string{"jp": "日本語の説明"}
		g.Makers = map[string]string{"jp": "サークル"}
		g.Genres = map[string][]string{"jp": {"アドベンチャー"}}
		g.Rating = "All Ages"
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Export(ctx); err != nil {
		t.Fatalf("Export: %v", err)
	}
	game, err := st.Get(ctx, "RJ8")
	if err != nil || game == nil {
		t.Fatalf("Get: %v %v", game, err)
	}
	doc, err := catalog.Load(cfg.CatalogPath())
	if err != nil {
		t.Fatal(err)
	}
	entry, ok := doc.FindGame(game.ExternalID)
	if !ok {
		t.Fatalf("exported entry %s missing", game.ExternalID)
	}
	return entry
}

func saveEntry(t *testing.T, cfg *config.Config, entry catalog.Game) {
	t.Helper()
	doc, err := catalog.Load(cfg.CatalogPath())
	if err != nil {
		t.Fatal(err)
	}
	doc.PutGame(entry)
	if _, err := catalog.Save(cfg.CatalogPath(), doc, cfg.Catalog.BackupDir); err != nil {
		t.Fatal(err)
	}
}

func TestImportPlayOnlyKeepsLocalizedFieldsInPlace(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t, testsupport.WithLaunchBox("Windows"))
	st := testsupport.MustOpenStore(t, cfg)
	r := newReconciler(t, cfg, st)
	entry := seedLocalized(t, cfg, st, r)
	before, err := st.Get(ctx, "RJ8")
	if err != nil {
		t.Fatal(err)
	}

	played := storeStamp.Add(48 * time.Hour)
	saveEntry(t, cfg, entry.With(catalog.FieldLastPlayedDate, catalog.FormatTime(played)))

	report, err := r.Import(ctx)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report != (Report{Updated: 1}) {
		t.Fatalf("report = %+v", report)
	}
	after, err := st.Get(ctx, "RJ8")
	if err != nil {
		t.Fatal(err)
	}
	if after.LastPlayed == nil || !after.LastPlayed.Equal(played) {
		t.Fatalf("LastPlayed = %v, want %v", after.LastPlayed, played)
	}
	for name, pair := range map[string][2]any{
		"names":        {before.Names, after.Names},
		"descriptions": {before.Descriptions, after.Descriptions},
		"makers":       {before.Makers, after.Makers},
		"genres":       {before.Genres, after.Genres},
	} {
		if diff := cmp.Diff(pair[0], pair[1]); diff != "" {
			t.Errorf("%s changed by play-only import:\n%s", name, diff)
		}
	}
}

func TestImportWritesEditedFieldsUnderTheirExportLanguage(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t, testsupport.WithLaunchBox("Windows"))
	st := testsupport.MustOpenStore(t, cfg)
	r := newReconciler(t, cfg, st)
	entry := seedLocalized(t, cfg, st, r)

	saveEntry(t, cfg, entry.
		With(catalog.FieldNotes, "修正した説明").
		With(catalog.FieldGenre, "アドベンチャー; ノベル").
		With(catalog.FieldDateModified, catalog.FormatTime(storeStamp.Add(time.Hour))))

	if _, err := r.Import(ctx); err != nil {
		t.Fatalf("Import: %v", err)
	}
	after, err := st.Get(ctx, "RJ8")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]string{"jp": "修正した説明"}, after.Descriptions); diff != "" {
		t.Fatalf("descriptions (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string][]string{"jp": {"アドベンチャー", "ノベル"}}, after.Genres); diff != "" {
		t.Fatalf("genres (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]string{"jp": "サークル"}, after.Makers); diff != "" {
		t.Fatalf("makers (-want +got):\n%s", diff)
	}
}

func TestImportEmptyValuesKeepStoredOnes(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t, testsupport.WithLaunchBox("Windows"))
	st := testsupport.MustOpenStore(t, cfg)
	r := newReconciler(t, cfg, st)
	entry := seedLocalized(t, cfg, st, r)

	saveEntry(t, cfg, entry.
		With(catalog.FieldNotes, "").
		With(catalog.FieldDeveloper, " ").
		With(catalog.FieldGenre, "").
		With(catalog.FieldRating, "").
		With(catalog.FieldDateModified, catalog.FormatTime(storeStamp.Add(time.Hour))))

	report, err := r.Import(ctx)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report != (Report{Updated: 1}) {
		t.Fatalf("report = %+v", report)
	}
	after, err := st.Get(ctx, "RJ8")
	if err != nil {
		t.Fatal(err)
	}
	if after.Descriptions["jp"] != "日本語の説明" || after.Makers["jp"] != "サークル" || len(after.Genres["jp"]) != 1 {
		t.Fatalf("empty catalog values cleared localized fields: %+v", after)
	}
	if after.Rating != "All Ages" {
		t.Fatalf("Rating = %q, want %q", after.Rating, "All Ages")
	}
}
