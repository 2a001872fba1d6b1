package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Metadata keys shared by the importer and the worker.
const (
	KeyConfigHash    = "config_hash"
	KeyDataAge       = "data_age"
	KeyParsingReport = "parsing_report"
	KeyImportedAt    = "imported_at"
)

// FeedKey namespaces a per-feed metadata key, e.g. FeedKey("etag", "metro").
func FeedKey(key, feed string) string {
	return fmt.Sprintf("%s:%s", key, feed)
}

// GetMetadata retrieves a value from the feed_metadata table.
func (db *DB) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM feed_metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// SetMetadata stores a key-value pair in the feed_metadata table.
func (db *DB) SetMetadata(ctx context.Context, key, value string) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR REPLACE INTO feed_metadata (key, value) VALUES (?, ?)`,
		key, value)
	return err
}

// HasData reports whether reconciled GTFS data has been imported.
func (db *DB) HasData(ctx context.Context) bool {
	hash, err := db.GetMetadata(ctx, KeyConfigHash)
	return err == nil && hash != ""
}

// TripCount returns the number of reconciled trips stored.
func (db *DB) TripCount(ctx context.Context) (int, error) {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM gtfs_trips`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count trips: %w", err)
	}
	return count, nil
}

// ClearGTFS deletes all reconciled GTFS rows inside tx.
func ClearGTFS(ctx context.Context, tx *sql.Tx) error {
	tables := []string{
		"gtfs_trip_vetoes", "gtfs_trip_ids", "gtfs_trips",
		"gtfs_calendar_dates", "gtfs_calendars",
	}
	for _, t := range tables {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", t)); err != nil {
			return fmt.Errorf("clear %s: %w", t, err)
		}
	}
	return nil
}
