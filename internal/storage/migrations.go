package storage

import "fmt"

// migrate creates the schema if it doesn't exist.
func (db *DB) migrate() error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	db.logger.Info("database migrations applied")
	return nil
}

var migrations = []string{
	// Calendars, keyed by service_id within a sub-feed ('' when the feed
	// has no sub-feeds). Zero dates are stored as ''.
	`CREATE TABLE IF NOT EXISTS gtfs_calendars (
		calendar_id TEXT NOT NULL,
		subfeed_id  TEXT NOT NULL DEFAULT '',
		weekdays    TEXT NOT NULL,
		start_date  TEXT NOT NULL DEFAULT '',
		end_date    TEXT NOT NULL DEFAULT '',
		position    INTEGER NOT NULL,
		PRIMARY KEY (calendar_id, subfeed_id)
	)`,

	// Calendar exceptions: 1 = service added, 2 = service removed
	`CREATE TABLE IF NOT EXISTS gtfs_calendar_dates (
		calendar_id    TEXT NOT NULL,
		subfeed_id     TEXT NOT NULL DEFAULT '',
		date           TEXT NOT NULL,
		exception_type INTEGER NOT NULL,
		PRIMARY KEY (calendar_id, subfeed_id, date),
		FOREIGN KEY (calendar_id, subfeed_id) REFERENCES gtfs_calendars(calendar_id, subfeed_id)
	)`,

	// Reconciled trips; times is a JSON array of HH:MM:SS strings or null
	`CREATE TABLE IF NOT EXISTS gtfs_trips (
		trip_index INTEGER PRIMARY KEY,
		subfeed_id TEXT NOT NULL DEFAULT '',
		line_id    INTEGER NOT NULL,
		variant    TEXT NOT NULL,
		direction  TEXT NOT NULL,
		times      TEXT NOT NULL
	)`,

	// GTFS trip_id/service_id pairs each reconciled trip stands for
	`CREATE TABLE IF NOT EXISTS gtfs_trip_ids (
		trip_index         INTEGER NOT NULL REFERENCES gtfs_trips(trip_index),
		position           INTEGER NOT NULL,
		gtfs_trip_id       TEXT NOT NULL,
		calendar_id        TEXT NOT NULL,
		continuation_index INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (trip_index, position)
	)`,

	`CREATE TABLE IF NOT EXISTS gtfs_trip_vetoes (
		trip_index  INTEGER NOT NULL REFERENCES gtfs_trips(trip_index),
		calendar_id TEXT NOT NULL,
		PRIMARY KEY (trip_index, calendar_id)
	)`,

	// Feed metadata (config_hash, data_age, last_modified:<feed>, etc.)
	`CREATE TABLE IF NOT EXISTS feed_metadata (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_gtfs_trips_line ON gtfs_trips(line_id)`,
	`CREATE INDEX IF NOT EXISTS idx_gtfs_trip_ids_trip ON gtfs_trip_ids(gtfs_trip_id)`,
}
