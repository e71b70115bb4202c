package testsupport

import (
	"context"
	"testing"
	"time"

	"kura/internal/config"
	"kura/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// PutGame writes a record with an English name and returns it as stored.
func PutGame(t testing.TB, st *store.Store, id, name string, modified time.Time) *store.Game {
	t.Helper()

	game := store.NewGame(id, "dlsite", modified)
	if name != "" {
		game.Names = map[string]string{"en": name}
	}
	if err := st.Put(context.Background(), game); err != nil {
		t.Fatalf("store.Put: %v", err)
	}
	stored, err := st.Get(context.Background(), id)
	if err != nil || stored == nil {
		t.Fatalf("store.Get %s: %v", id, err)
	}
	return stored
}
