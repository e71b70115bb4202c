package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"kura/internal/services"
)

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Get returns the record for id, or nil when none exists.
func (s *Store) Get(ctx context.Context, id string) (*Game, error) {
	game, err := getGame(ctx, s.db, "id", id)
	if err != nil {
		return nil, storeErr("get", id, err)
	}
	return game, nil
}

// GetByExternalID returns the record joined to a catalog entry, or nil.
func (s *Store) GetByExternalID(ctx context.Context, externalID string) (*Game, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, nil
	}
	game, err := getGame(ctx, s.db, "external_id", externalID)
	if err != nil {
		return nil, storeErr("get by external id", externalID, err)
	}
	return game, nil
}

func getGame(ctx context.Context, q querier, column, value string) (*Game, error) {
	row := q.QueryRowContext(ctx, "SELECT "+gameColumns+" FROM games WHERE "+column+" = ?", value)
	game, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return game, nil
}

// List returns every record ordered by id, including deleted ones.
func (s *Store) List(ctx context.Context) ([]*Game, error) {
	return s.list(ctx, "SELECT "+gameColumns+" FROM games ORDER BY id")
}

// ListActive returns records whose directory still exists, ordered by id.
func (s *Store) ListActive(ctx context.Context) ([]*Game, error) {
	return s.list(ctx, "SELECT "+gameColumns+" FROM games WHERE deleted = 0 ORDER BY id")
}

func (s *Store) list(ctx context.Context, query string) ([]*Game, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storeErr("list", "", err)
	}
	defer rows.Close()

	var games []*Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, storeErr("list", "", err)
		}
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list", "", err)
	}
	return games, nil
}

// Insert adds a new record. It fails with ErrExists when the id is taken.
func (s *Store) Insert(ctx context.Context, game *Game) error {
	if game == nil || strings.TrimSpace(game.ID) == "" {
		return services.Wrap(services.ErrValidation, "store", "insert", "record id is required", nil)
	}
	unlock := s.locks.lock(game.ID)
	defer unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		existing, err := getGame(ctx, tx, "id", game.ID)
		if err != nil {
			return storeErr("insert", game.ID, err)
		}
		if existing != nil {
			return fmt.Errorf("insert %s: %w", game.ID, ErrExists)
		}
		if err := writeGame(ctx, tx, game); err != nil {
			return storeErr("insert", game.ID, err)
		}
		return nil
	})
}

// Put writes the full record, creating it when absent. The stored external
// id is never replaced by a different value.
func (s *Store) Put(ctx context.Context, game *Game) error {
	if game == nil || strings.TrimSpace(game.ID) == "" {
		return services.Wrap(services.ErrValidation, "store", "put", "record id is required", nil)
	}
	unlock := s.locks.lock(game.ID)
	defer unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		existing, err := getGame(ctx, tx, "id", game.ID)
		if err != nil {
			return storeErr("put", game.ID, err)
		}
		if err := guardExternalID(existing, game); err != nil {
			return err
		}
		if err := writeGame(ctx, tx, game); err != nil {
			return storeErr("put", game.ID, err)
		}
		return nil
	})
}

// Modify runs a read-modify-write cycle for one record. No other write to the
// same id can interleave with it. fn errors abort the cycle and are returned
// unchanged.
func (s *Store) Modify(ctx context.Context, id string, fn func(*Game) error) (*Game, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	var result *Game
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		existing, err := getGame(ctx, tx, "id", id)
		if err != nil {
			return storeErr("modify", id, err)
		}
		if existing == nil {
			return services.Wrap(services.ErrNotFound, "store", "modify", id, nil)
		}
		updated := existing.Clone()
		if err := fn(updated); err != nil {
			return err
		}
		updated.ID = existing.ID
		if err := guardExternalID(existing, updated); err != nil {
			return err
		}
		if err := writeGame(ctx, tx, updated); err != nil {
			return storeErr("modify", id, err)
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SetExternalID assigns the catalog join key once. Assigning the same value
// again is a no-op; a different value fails with ErrExternalIDAssigned.
func (s *Store) SetExternalID(ctx context.Context, id, externalID string) error {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return services.Wrap(services.ErrValidation, "store", "set external id", "external id is required", nil)
	}
	unlock := s.locks.lock(id)
	defer unlock()

	res, err := s.exec(ctx,
		"UPDATE games SET external_id = ? WHERE id = ? AND (external_id IS NULL OR external_id = '' OR external_id = ?)",
		externalID, id, externalID)
	if err != nil {
		return storeErr("set external id", id, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return services.Wrap(services.ErrNotFound, "store", "set external id", id, nil)
	}
	return fmt.Errorf("set external id %s: has %q, refusing %q: %w", id, existing.ExternalID, externalID, ErrExternalIDAssigned)
}

// MarkDeleted flags or unflags a record whose library directory vanished or
// reappeared.
func (s *Store) MarkDeleted(ctx context.Context, id string, deleted bool) error {
	unlock := s.locks.lock(id)
	defer unlock()

	res, err := s.exec(ctx, "UPDATE games SET deleted = ? WHERE id = ?", boolToInt(deleted), id)
	if err != nil {
		return storeErr("mark deleted", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return services.Wrap(services.ErrNotFound, "store", "mark deleted", id, nil)
	}
	return nil
}

func guardExternalID(existing, next *Game) error {
	if existing == nil || existing.ExternalID == "" {
		return nil
	}
	if next.ExternalID == "" {
		next.ExternalID = existing.ExternalID
		return nil
	}
	if next.ExternalID != existing.ExternalID {
		return fmt.Errorf("write %s: has %q, refusing %q: %w", existing.ID, existing.ExternalID, next.ExternalID, ErrExternalIDAssigned)
	}
	return nil
}
