package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const gameColumns = "id, external_id, names_json, descriptions_json, makers_json, genres_json, tags_json, image_urls_json, release_date, date_added, date_modified, last_played, rating, stars, source_name, engine, application_path, root_folder, deleted, force_source_update, force_executable_update, force_images_update, source_missing_jp, source_missing_en"

func scanGame(scanner interface{ Scan(dest ...any) error }) (*Game, error) {
	var (
		id              string
		externalID      sql.NullString
		namesJSON       string
		descJSON        string
		makersJSON      string
		genresJSON      string
		tagsJSON        string
		imagesJSON      string
		releaseDate     sql.NullString
		addedRaw        string
		modifiedRaw     string
		lastPlayedRaw   sql.NullString
		rating          sql.NullString
		stars           float64
		sourceName      sql.NullString
		engine          sql.NullString
		applicationPath sql.NullString
		rootFolder      sql.NullString
		deleted         int
		forceSource     int
		forceExecutable int
		forceImages     int
		missingJP       int
		missingEN       int
	)
	if err := scanner.Scan(
		&id,
		&externalID,
		&namesJSON,
		&descJSON,
		&makersJSON,
		&genresJSON,
		&tagsJSON,
		&imagesJSON,
		&releaseDate,
		&addedRaw,
		&modifiedRaw,
		&lastPlayedRaw,
		&rating,
		&stars,
		&sourceName,
		&engine,
		&applicationPath,
		&rootFolder,
		&deleted,
		&forceSource,
		&forceExecutable,
		&forceImages,
		&missingJP,
		&missingEN,
	); err != nil {
		return nil, err
	}

	game := &Game{
		ID:                          id,
		ExternalID:                  externalID.String,
		ReleaseDate:                 releaseDate.String,
		Rating:                      rating.String,
		Stars:                       stars,
		SourceName:                  sourceName.String,
		Engine:                      engine.String,
		ApplicationPath:             applicationPath.String,
		RootFolder:                  rootFolder.String,
		Deleted:                     deleted != 0,
		ForceSourceUpdate:           forceSource != 0,
		ForceExecutableUpdate:       forceExecutable != 0,
		ForceAdditionalImagesUpdate: forceImages != 0,
		SourceMissingJP:             missingJP != 0,
		SourceMissingEN:             missingEN != 0,
	}
	for _, field := range []struct {
		raw  string
		dest any
	}{
		{namesJSON, &game.Names},
		{descJSON, &game.Descriptions},
		{makersJSON, &game.Makers},
		{genresJSON, &game.Genres},
		{tagsJSON, &game.Tags},
		{imagesJSON, &game.ImageURLs},
	} {
		if field.raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(field.raw), field.dest); err != nil {
			return nil, fmt.Errorf("decode %s columns: %w", id, err)
		}
	}

	var err error
	if game.DateAdded, err = parseTime(addedRaw); err != nil {
		return nil, fmt.Errorf("decode %s date_added: %w", id, err)
	}
	if game.DateModified, err = parseTime(modifiedRaw); err != nil {
		return nil, fmt.Errorf("decode %s date_modified: %w", id, err)
	}
	if lastPlayedRaw.Valid && lastPlayedRaw.String != "" {
		played, err := parseTime(lastPlayedRaw.String)
		if err != nil {
			return nil, fmt.Errorf("decode %s last_played: %w", id, err)
		}
		game.LastPlayed = &played
	}
	return game, nil
}

func writeGame(ctx context.Context, tx *sql.Tx, g *Game) error {
	names, err := marshalJSON(g.Names, "{}")
	if err != nil {
		return err
	}
	descriptions, err := marshalJSON(g.Descriptions, "{}")
	if err != nil {
		return err
	}
	makers, err := marshalJSON(g.Makers, "{}")
	if err != nil {
		return err
	}
	genres, err := marshalJSON(g.Genres, "{}")
	if err != nil {
		return err
	}
	tags, err := marshalJSON(g.Tags, "{}")
	if err != nil {
		return err
	}
	images, err := marshalJSON(g.ImageURLs, "[]")
	if err != nil {
		return err
	}
	added := g.DateAdded
	if added.IsZero() {
		added = time.Now()
	}
	modified := g.DateModified
	if modified.IsZero() {
		modified = added
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO games (`+gameColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            external_id = excluded.external_id,
            names_json = excluded.names_json,
            descriptions_json = excluded.descriptions_json,
            makers_json = excluded.makers_json,
            genres_json = excluded.genres_json,
            tags_json = excluded.tags_json,
            image_urls_json = excluded.image_urls_json,
            release_date = excluded.release_date,
            date_added = excluded.date_added,
            date_modified = excluded.date_modified,
            last_played = excluded.last_played,
            rating = excluded.rating,
            stars = excluded.stars,
            source_name = excluded.source_name,
            engine = excluded.engine,
            application_path = excluded.application_path,
            root_folder = excluded.root_folder,
            deleted = excluded.deleted,
            force_source_update = excluded.force_source_update,
            force_executable_update = excluded.force_executable_update,
            force_images_update = excluded.force_images_update,
            source_missing_jp = excluded.source_missing_jp,
            source_missing_en = excluded.source_missing_en`,
		g.ID,
		nullableString(g.ExternalID),
		names,
		descriptions,
		makers,
		genres,
		tags,
		images,
		nullableString(g.ReleaseDate),
		formatTime(added),
		formatTime(modified),
		nullableTime(g.LastPlayed),
		nullableString(g.Rating),
		g.Stars,
		nullableString(g.SourceName),
		nullableString(g.Engine),
		nullableString(g.ApplicationPath),
		nullableString(g.RootFolder),
		boolToInt(g.Deleted),
		boolToInt(g.ForceSourceUpdate),
		boolToInt(g.ForceExecutableUpdate),
		boolToInt(g.ForceAdditionalImagesUpdate),
		boolToInt(g.SourceMissingJP),
		boolToInt(g.SourceMissingEN),
	)
	return err
}

func marshalJSON(value any, empty string) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	if string(data) == "null" {
		return empty, nil
	}
	return string(data), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTime(*value)
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, value)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
