package store_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"kura/internal/services"
	"kura/internal/store"
	"kura/internal/testsupport"
)

func TestPutGetRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	played := time.Date(2024, 5, 1, 20, 30, 0, 123000000, time.UTC)
	game := &store.Game{
		ID:           "RJ123456",
		Names:        map[string]string{"en": "Amazing Game", "jp": "すごいゲーム"},
		Descriptions: map[string]string{"en": "A game."},
		Makers:       map[string]string{"jp": "Maker"},
		Genres:       map[string][]string{"en": {"RPG", "Fantasy"}},
		Tags:         map[string][]string{"jp": {"ファンタジー"}},
		ImageURLs:    []string{"https://img.example/1.jpg"},
		ReleaseDate:  "2020-02-29",
		DateAdded:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		DateModified: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		LastPlayed:   &played,
		Rating:       "R18",
		Stars:        4.5,
		SourceName:   "dlsite",
		Engine:       "rpgmaker",
		RootFolder:   "/library/RJ123456/Amazing Game",
	}
	if err := st.Put(ctx, game); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	got, err := st.Get(ctx, "RJ123456")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if diff := cmp.Diff(game, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	missing, err := st.Get(ctx, "RJ000000")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing record, got %+v, %v", missing, err)
	}
}

func TestInsertRefusesExistingID(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	now := time.Now()

	if err := st.Insert(ctx, store.NewGame("RJ1", "dlsite", now)); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}
	err := st.Insert(ctx, store.NewGame("RJ1", "dlsite", now))
	if !errors.Is(err, store.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if services.IsFatal(err) {
		t.Fatal("duplicate insert must not be classified as a store failure")
	}
}

func TestSetExternalIDIsWriteOnce(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	testsupport.PutGame(t, st, "RJ1", "One", time.Now())

	if err := st.SetExternalID(ctx, "RJ1", "ext-1"); err != nil {
		t.Fatalf("SetExternalID returned error: %v", err)
	}
	if err := st.SetExternalID(ctx, "RJ1", "ext-1"); err != nil {
		t.Fatalf("repeating the same id should succeed: %v", err)
	}
	if err := st.SetExternalID(ctx, "RJ1", "ext-2"); !errors.Is(err, store.ErrExternalIDAssigned) {
		t.Fatalf("expected ErrExternalIDAssigned, got %v", err)
	}
	if err := st.SetExternalID(ctx, "RJ404", "ext-3"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	byExt, err := st.GetByExternalID(ctx, "ext-1")
	if err != nil || byExt == nil || byExt.ID != "RJ1" {
		t.Fatalf("GetByExternalID = %+v, %v", byExt, err)
	}

	// Put without an external id keeps the stored one; a different one is refused.
	game := store.NewGame("RJ1", "dlsite", time.Now())
	if err := st.Put(ctx, game); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if got, _ := st.Get(ctx, "RJ1"); got.ExternalID != "ext-1" {
		t.Fatalf("external id lost: %q", got.ExternalID)
	}
	game.ExternalID = "other"
	if err := st.Put(ctx, game); !errors.Is(err, store.ErrExternalIDAssigned) {
		t.Fatalf("expected ErrExternalIDAssigned from Put, got %v", err)
	}
}

func TestListAndMarkDeleted(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	for _, id := range []string{"RJ3", "RJ1", "RJ2"} {
		testsupport.PutGame(t, st, id, id, time.Now())
	}
	if err := st.MarkDeleted(ctx, "RJ2", true); err != nil {
		t.Fatalf("MarkDeleted returned error: %v", err)
	}
	if err := st.MarkDeleted(ctx, "RJ9", true); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	all, err := st.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	active, err := st.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive returned error: %v", err)
	}
	ids := func(games []*store.Game) []string {
		out := make([]string, 0, len(games))
		for _, g := range games {
			out = append(out, g.ID)
		}
		return out
	}
	if diff := cmp.Diff([]string{"RJ1", "RJ2", "RJ3"}, ids(all)); diff != "" {
		t.Fatalf("List mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"RJ1", "RJ3"}, ids(active)); diff != "" {
		t.Fatalf("ListActive mismatch (-want +got):\n%s", diff)
	}
}

func TestModifySerializesPerRecord(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	testsupport.PutGame(t, st, "RJ1", "One", time.Now())
	testsupport.PutGame(t, st, "RJ2", "Two", time.Now())

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers*2)
	for i := 0; i < workers; i++ {
		for _, id := range []string{"RJ1", "RJ2"} {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				_, err := st.Modify(ctx, id, func(g *store.Game) error {
					g.Stars++
					return nil
				})
				errs <- err
			}(id)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Modify returned error: %v", err)
		}
	}
	for _, id := range []string{"RJ1", "RJ2"} {
		got, err := st.Get(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if got.Stars != workers {
			t.Fatalf("%s: expected %d increments, got %v", id, workers, got.Stars)
		}
	}
}

func TestModifyErrors(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	testsupport.PutGame(t, st, "RJ1", "One", time.Now())

	if _, err := st.Modify(ctx, "RJ404", func(*store.Game) error { return nil }); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	sentinel := fmt.Errorf("abort")
	if _, err := st.Modify(ctx, "RJ1", func(g *store.Game) error {
		g.Names = map[string]string{"en": "changed"}
		return sentinel
	}); !errors.Is(err, sentinel) {
		t.Fatalf("expected callback error, got %v", err)
	}
	got, _ := st.Get(ctx, "RJ1")
	if got.Names["en"] != "One" {
		t.Fatalf("aborted modify must not persist, got %q", got.Names["en"])
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if err := st.SetSchemaVersionForTest(context.Background(), 99); err != nil {
		t.Fatal(err)
	}
	st.Close()

	if _, err := store.Open(cfg); !errors.Is(err, store.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
