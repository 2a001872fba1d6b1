package gtfs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"trainquery/internal/network"
	"trainquery/internal/storage"
	"trainquery/internal/timeutil"
)

// ErrNoStoredData is returned by Load when nothing has been imported.
var ErrNoStoredData = errors.New("no stored GTFS data")

// Importer persists reconciled GTFS data to SQLite so a restart does not
// need to download and rebuild it.
type Importer struct {
	db     *storage.DB
	logger *slog.Logger
}

// NewImporter creates an Importer.
func NewImporter(db *storage.DB, logger *slog.Logger) *Importer {
	return &Importer{db: db, logger: logger}
}

// Import replaces the stored data with data. The entire operation runs in a
// single transaction for atomicity.
func (imp *Importer) Import(ctx context.Context, data *Data) error {
	start := time.Now()

	report, err := json.Marshal(data.Report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	meta := map[string]string{
		storage.KeyConfigHash:    data.ConfigHash,
		storage.KeyDataAge:       data.Age.UTC().Format(time.RFC3339),
		storage.KeyParsingReport: string(report),
		storage.KeyImportedAt:    time.Now().UTC().Format(time.RFC3339),
	}

	err = imp.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := storage.ClearGTFS(ctx, tx); err != nil {
			return err
		}
		if err := imp.importCalendars(ctx, tx, data.Calendars); err != nil {
			return err
		}
		if err := imp.importTrips(ctx, tx, data.Trips); err != nil {
			return err
		}
		for k, v := range meta {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO feed_metadata (key, value) VALUES (?, ?)`, k, v); err != nil {
				return fmt.Errorf("set %s: %w", k, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	imp.logger.Info("GTFS import complete",
		"duration", time.Since(start).Round(time.Millisecond),
		"calendars", len(data.Calendars),
		"trips", len(data.Trips),
	)
	return nil
}

func (imp *Importer) importCalendars(ctx context.Context, tx *sql.Tx, calendars []Calendar) error {
	calStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO gtfs_calendars (calendar_id, subfeed_id, weekdays, start_date, end_date, position)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare calendars: %w", err)
	}
	defer calStmt.Close()

	dateStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO gtfs_calendar_dates (calendar_id, subfeed_id, date, exception_type) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare calendar dates: %w", err)
	}
	defer dateStmt.Close()

	for i, c := range calendars {
		if _, err := calStmt.ExecContext(ctx, c.ID, c.SubfeedID, c.Weekdays.String(),
			formatDate(c.Start), formatDate(c.End), i); err != nil {
			return fmt.Errorf("insert calendar %s: %w", c.ID, err)
		}
		for _, d := range c.AdditionalDates {
			if _, err := dateStmt.ExecContext(ctx, c.ID, c.SubfeedID, d.String(), 1); err != nil {
				return fmt.Errorf("insert calendar date %s/%s: %w", c.ID, d, err)
			}
		}
		for _, d := range c.Exceptions {
			if _, err := dateStmt.ExecContext(ctx, c.ID, c.SubfeedID, d.String(), 2); err != nil {
				return fmt.Errorf("insert calendar date %s/%s: %w", c.ID, d, err)
			}
		}
	}
	imp.logger.Info("imported calendars", "count", len(calendars))
	return nil
}

func (imp *Importer) importTrips(ctx context.Context, tx *sql.Tx, trips []*Trip) error {
	tripStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO gtfs_trips (trip_index, subfeed_id, line_id, variant, direction, times)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare trips: %w", err)
	}
	defer tripStmt.Close()

	idStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO gtfs_trip_ids (trip_index, position, gtfs_trip_id, calendar_id, continuation_index)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare trip ids: %w", err)
	}
	defer idStmt.Close()

	vetoStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO gtfs_trip_vetoes (trip_index, calendar_id) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare trip vetoes: %w", err)
	}
	defer vetoStmt.Close()

	for i, t := range trips {
		times, err := json.Marshal(t.Times)
		if err != nil {
			return fmt.Errorf("encode trip %d times: %w", i, err)
		}
		if _, err := tripStmt.ExecContext(ctx, i, t.SubfeedID, int(t.Line),
			string(t.Variant), string(t.Direction), string(times)); err != nil {
			return fmt.Errorf("insert trip %d: %w", i, err)
		}
		for pos, p := range t.IDPairs {
			if _, err := idStmt.ExecContext(ctx, i, pos, p.TripID, p.CalendarID, p.ContinuationIndex); err != nil {
				return fmt.Errorf("insert trip %d id %s: %w", i, p.TripID, err)
			}
		}
		for _, cal := range t.VetoedCalendars {
			if _, err := vetoStmt.ExecContext(ctx, i, cal); err != nil {
				return fmt.Errorf("insert trip %d veto %s: %w", i, cal, err)
			}
		}

		if (i+1)%50000 == 0 {
			imp.logger.Info("importing trips", "rows", i+1)
		}
	}
	imp.logger.Info("imported trips", "count", len(trips))
	return nil
}

// Load reads the stored data back. It returns ErrNoStoredData when the
// database is empty.
func (imp *Importer) Load(ctx context.Context) (*Data, error) {
	hash, err := imp.db.GetMetadata(ctx, storage.KeyConfigHash)
	if err != nil {
		return nil, fmt.Errorf("read config hash: %w", err)
	}
	if hash == "" {
		return nil, ErrNoStoredData
	}

	var age time.Time
	if raw, err := imp.db.GetMetadata(ctx, storage.KeyDataAge); err != nil {
		return nil, fmt.Errorf("read data age: %w", err)
	} else if age, err = time.Parse(time.RFC3339, raw); err != nil {
		return nil, fmt.Errorf("parse data age: %w", err)
	}

	var report Report
	if raw, err := imp.db.GetMetadata(ctx, storage.KeyParsingReport); err != nil {
		return nil, fmt.Errorf("read parsing report: %w", err)
	} else if raw != "" {
		if err := json.Unmarshal([]byte(raw), &report); err != nil {
			return nil, fmt.Errorf("decode parsing report: %w", err)
		}
	}

	calendars, err := imp.loadCalendars(ctx)
	if err != nil {
		return nil, err
	}
	trips, err := imp.loadTrips(ctx)
	if err != nil {
		return nil, err
	}

	imp.logger.Info("GTFS data loaded from database", "calendars", len(calendars), "trips", len(trips))
	return NewData(calendars, trips, hash, report, age), nil
}

func (imp *Importer) loadCalendars(ctx context.Context) ([]Calendar, error) {
	rows, err := imp.db.QueryContext(ctx,
		`SELECT calendar_id, subfeed_id, weekdays, start_date, end_date
		 FROM gtfs_calendars ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query calendars: %w", err)
	}
	defer rows.Close()

	var calendars []Calendar
	index := make(map[calendarKey]int)
	for rows.Next() {
		var c Calendar
		var weekdays, start, end string
		if err := rows.Scan(&c.ID, &c.SubfeedID, &weekdays, &start, &end); err != nil {
			return nil, fmt.Errorf("scan calendar: %w", err)
		}
		if c.Weekdays, err = timeutil.ParseWeekdayRange(weekdays); err != nil {
			return nil, fmt.Errorf("calendar %s: %w", c.ID, err)
		}
		if c.Start, err = parseStoredDate(start); err != nil {
			return nil, fmt.Errorf("calendar %s: %w", c.ID, err)
		}
		if c.End, err = parseStoredDate(end); err != nil {
			return nil, fmt.Errorf("calendar %s: %w", c.ID, err)
		}
		index[calendarKey{c.ID, c.SubfeedID}] = len(calendars)
		calendars = append(calendars, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	dates, err := imp.db.QueryContext(ctx,
		`SELECT calendar_id, subfeed_id, date, exception_type FROM gtfs_calendar_dates ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("query calendar dates: %w", err)
	}
	defer dates.Close()

	for dates.Next() {
		var id, subfeed, raw string
		var exceptionType int
		if err := dates.Scan(&id, &subfeed, &raw, &exceptionType); err != nil {
			return nil, fmt.Errorf("scan calendar date: %w", err)
		}
		i, ok := index[calendarKey{id, subfeed}]
		if !ok {
			continue
		}
		d, err := timeutil.ParseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("calendar %s: %w", id, err)
		}
		if exceptionType == 1 {
			calendars[i].AdditionalDates = append(calendars[i].AdditionalDates, d)
		} else {
			calendars[i].Exceptions = append(calendars[i].Exceptions, d)
		}
	}
	return calendars, dates.Err()
}

func (imp *Importer) loadTrips(ctx context.Context) ([]*Trip, error) {
	rows, err := imp.db.QueryContext(ctx,
		`SELECT trip_index, subfeed_id, line_id, variant, direction, times
		 FROM gtfs_trips ORDER BY trip_index`)
	if err != nil {
		return nil, fmt.Errorf("query trips: %w", err)
	}
	defer rows.Close()

	var trips []*Trip
	byIndex := make(map[int]*Trip)
	for rows.Next() {
		var (
			idx          int
			line         int
			variant, dir string
			times        string
			t            Trip
		)
		if err := rows.Scan(&idx, &t.SubfeedID, &line, &variant, &dir, &times); err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		t.Line = network.LineID(line)
		t.Variant = network.RouteVariantID(variant)
		t.Direction = network.DirectionID(dir)
		if err := json.Unmarshal([]byte(times), &t.Times); err != nil {
			return nil, fmt.Errorf("decode trip %d times: %w", idx, err)
		}
		byIndex[idx] = &t
		trips = append(trips, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ids, err := imp.db.QueryContext(ctx,
		`SELECT trip_index, gtfs_trip_id, calendar_id, continuation_index
		 FROM gtfs_trip_ids ORDER BY trip_index, position`)
	if err != nil {
		return nil, fmt.Errorf("query trip ids: %w", err)
	}
	defer ids.Close()
	for ids.Next() {
		var idx int
		var p IDPair
		if err := ids.Scan(&idx, &p.TripID, &p.CalendarID, &p.ContinuationIndex); err != nil {
			return nil, fmt.Errorf("scan trip id: %w", err)
		}
		if t := byIndex[idx]; t != nil {
			t.IDPairs = append(t.IDPairs, p)
		}
	}
	if err := ids.Err(); err != nil {
		return nil, err
	}

	vetoes, err := imp.db.QueryContext(ctx,
		`SELECT trip_index, calendar_id FROM gtfs_trip_vetoes ORDER BY trip_index, calendar_id`)
	if err != nil {
		return nil, fmt.Errorf("query trip vetoes: %w", err)
	}
	defer vetoes.Close()
	for vetoes.Next() {
		var idx int
		var cal string
		if err := vetoes.Scan(&idx, &cal); err != nil {
			return nil, fmt.Errorf("scan trip veto: %w", err)
		}
		if t := byIndex[idx]; t != nil {
			t.VetoedCalendars = append(t.VetoedCalendars, cal)
		}
	}
	return trips, vetoes.Err()
}

func formatDate(d timeutil.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func parseStoredDate(s string) (timeutil.Date, error) {
	if s == "" {
		return timeutil.Date{}, nil
	}
	return timeutil.ParseDate(s)
}
