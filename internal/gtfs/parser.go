package gtfs

import (
	"archive/zip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// ParseZip parses the GTFS feed in the zip archive at path.
func ParseZip(path string, logger *slog.Logger) (*Feed, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()
	return ParseFS(&r.Reader, logger)
}

// ParseFS parses a GTFS feed laid out as files at the root of fsys.
// trips.txt and stop_times.txt are required, at least one of calendar.txt
// and calendar_dates.txt must be present.
func ParseFS(fsys fs.FS, logger *slog.Logger) (*Feed, error) {
	feed := &Feed{}

	files := []struct {
		name     string
		required bool
		parse    func(io.Reader) error
	}{
		{"stops.txt", false, func(r io.Reader) (err error) { feed.Stops, err = parseCSV[StopRow](r); return }},
		{"routes.txt", false, func(r io.Reader) (err error) { feed.Routes, err = parseCSV[RouteRow](r); return }},
		{"trips.txt", true, func(r io.Reader) (err error) { feed.Trips, err = parseCSV[TripRow](r); return }},
		{"stop_times.txt", true, func(r io.Reader) (err error) { feed.StopTimes, err = parseCSV[StopTimeRow](r); return }},
		{"calendar.txt", false, func(r io.Reader) (err error) { feed.Calendar, err = parseCSV[CalendarRow](r); return }},
		{"calendar_dates.txt", false, func(r io.Reader) (err error) { feed.CalendarDates, err = parseCSV[CalendarDateRow](r); return }},
	}

	for _, f := range files {
		file, err := fsys.Open(f.name)
		if errors.Is(err, fs.ErrNotExist) && !f.required {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.name, err)
		}
		err = f.parse(file)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", f.name, err)
		}
	}

	if feed.Calendar == nil && feed.CalendarDates == nil {
		return nil, fmt.Errorf("feed has neither calendar.txt nor calendar_dates.txt")
	}

	if err := sortStopTimes(feed.StopTimes); err != nil {
		return nil, err
	}

	logger.Info("GTFS feed parsed",
		"stops", len(feed.Stops),
		"routes", len(feed.Routes),
		"trips", len(feed.Trips),
		"stop_times", len(feed.StopTimes),
		"calendar", len(feed.Calendar),
		"calendar_dates", len(feed.CalendarDates),
	)
	return feed, nil
}

// sortStopTimes orders rows by trip, then numerically by stop_sequence.
// Trips keep the order in which they first appear.
func sortStopTimes(rows []StopTimeRow) error {
	firstSeen := make(map[string]int)
	seqs := make([]int, len(rows))
	for i, st := range rows {
		if _, ok := firstSeen[st.TripID]; !ok {
			firstSeen[st.TripID] = len(firstSeen)
		}
		n, err := strconv.Atoi(strings.TrimSpace(st.StopSequence))
		if err != nil {
			return &InvalidValueError{File: "stop_times.txt", Column: "stop_sequence", Line: i + 2, Reason: err}
		}
		seqs[i] = n
	}

	idx := make([]int, len(rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ta, tb := firstSeen[rows[idx[a]].TripID], firstSeen[rows[idx[b]].TripID]
		if ta != tb {
			return ta < tb
		}
		return seqs[idx[a]] < seqs[idx[b]]
	})

	sorted := make([]StopTimeRow, len(rows))
	for i, j := range idx {
		sorted[i] = rows[j]
	}
	copy(rows, sorted)
	return nil
}

// parseCSV decodes every record of a CSV file into a slice of T.
func parseCSV[T any](r io.Reader) ([]T, error) {
	var results []T
	err := forEachRecord[T](r, func(item T) error {
		results = append(results, item)
		return nil
	})
	if results == nil && err == nil {
		results = []T{}
	}
	return results, err
}

type fieldMapping struct {
	csvIndex   int
	fieldIndex int
}

// forEachRecord streams records one at a time into fn.
func forEachRecord[T any](r io.Reader, fn func(T) error) error {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	// Strip BOM from first field if present
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\xef\xbb\xbf")
	}

	fieldMap := buildFieldMap[T](header)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read record: %w", err)
		}
		if err := fn(decodeRecord[T](record, fieldMap)); err != nil {
			return err
		}
	}
}

// buildFieldMap creates a mapping from CSV column positions to struct field positions.
func buildFieldMap[T any](header []string) []fieldMapping {
	var t T
	typ := reflect.TypeOf(t)

	tagToField := make(map[string]int)
	for i := 0; i < typ.NumField(); i++ {
		if tag := typ.Field(i).Tag.Get("csv"); tag != "" {
			tagToField[tag] = i
		}
	}

	var mappings []fieldMapping
	for csvIdx, colName := range header {
		if fieldIdx, ok := tagToField[strings.TrimSpace(colName)]; ok {
			mappings = append(mappings, fieldMapping{csvIndex: csvIdx, fieldIndex: fieldIdx})
		}
	}
	return mappings
}

// decodeRecord fills a struct T from a CSV record using the field mapping.
func decodeRecord[T any](record []string, fieldMap []fieldMapping) T {
	var t T
	v := reflect.ValueOf(&t).Elem()
	for _, fm := range fieldMap {
		if fm.csvIndex < len(record) {
			v.Field(fm.fieldIndex).SetString(strings.TrimSpace(record[fm.csvIndex]))
		}
	}
	return t
}
