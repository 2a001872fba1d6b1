package gtfs

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"trainquery/internal/network"
	"trainquery/internal/network/networktest"
	"trainquery/internal/timeutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixtureFiles is a feed over networktest.New:
//
//	T1  WD   1 2 (9) 3 4          Alpha up, stop 9 is pass-through only
//	T2  WE   same as T1           deduplicated into T1
//	T3  WD   1 4 6                Alpha up, continuing onto Beta up
//	T4  WD   42 43                unknown stops
//	T5  HOL  P6 5 4 after midnight Beta down, P6 mapped through config
var fixtureFiles = map[string]string{
	"stops.txt": `stop_id,stop_name
1,Ashby
2,Birch
`,
	"trips.txt": `route_id,service_id,trip_id
R1,WD,T1
R1,WE,T2
R1,WD,T3
R9,WD,T4
R2,HOL,T5
`,
	"stop_times.txt": `trip_id,arrival_time,departure_time,stop_id,stop_sequence,pickup_type,drop_off_type
T1,08:12:00,08:12:00,3,4,,
T1,08:00:00,08:00:00,1,1,,
T1,08:05:00,08:05:00,2,2,,
T1,08:08:00,08:08:00,9,3,1,1
T1,08:15:00,,4,10,,
T2,08:00:00,08:00:00,1,1,,
T2,08:05:00,08:05:00,2,2,,
T2,08:12:00,08:12:00,3,3,,
T2,08:15:00,08:15:00,4,4,,
T3,08:00:00,08:00:00,1,1,,
T3,08:10:00,08:10:00,4,2,,
T3,08:20:00,08:20:00,6,3,,
T4,09:00:00,09:00:00,42,1,,
T4,09:10:00,09:10:00,43,2,,
T5,23:50:00,23:50:00,P6,1,,
T5,24:00:00,24:00:00,5,2,,
T5,24:10:00,24:10:00,4,3,,
`,
	"calendar.txt": `service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date
WD,1,1,1,1,1,0,0,20240101,20241231
WE,0,0,0,0,0,1,1,20240101,20241231
`,
	"calendar_dates.txt": `service_id,date,exception_type
WD,20240102,2
HOL,20240101,1
`,
}

func fixtureFS() fstest.MapFS {
	fsys := fstest.MapFS{}
	for name, body := range fixtureFiles {
		fsys[name] = &fstest.MapFile{Data: []byte(body)}
	}
	return fsys
}

// writeFixture writes the fixture feed to a directory and returns it.
func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range fixtureFiles {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func fixtureConfig() network.FeedConfig {
	return network.FeedConfig{
		Name:    "test",
		StopIDs: map[string]network.StopID{"P6": 6},
		Vetoes:  map[string][]string{"T3": {"WD"}},
	}
}

func hm(h, m int) timeutil.NullTime {
	return timeutil.Some(timeutil.HMS(h, m, 0))
}

func TestParseFSSortsStopTimes(t *testing.T) {
	feed, err := ParseFS(fixtureFS(), discardLogger())
	if err != nil {
		t.Fatalf("ParseFS: %v", err)
	}

	var got []string
	for _, st := range feed.StopTimes {
		if st.TripID == "T1" {
			got = append(got, st.StopSequence)
		}
	}
	want := []string{"1", "2", "3", "4", "10"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("T1 stop sequences = %v, want %v", got, want)
	}
	if first := feed.StopTimes[0].TripID; first != "T1" {
		t.Errorf("first stop time trip = %s, want T1", first)
	}
}

func TestParseFSMissingFiles(t *testing.T) {
	tests := []struct {
		name   string
		remove []string
	}{
		{"no trips", []string{"trips.txt"}},
		{"no stop times", []string{"stop_times.txt"}},
		{"no calendars", []string{"calendar.txt", "calendar_dates.txt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fixtureFS()
			for _, name := range tt.remove {
				delete(fsys, name)
			}
			if _, err := ParseFS(fsys, discardLogger()); err == nil {
				t.Error("ParseFS should fail")
			}
		})
	}

	fsys := fixtureFS()
	delete(fsys, "calendar.txt")
	if _, err := ParseFS(fsys, discardLogger()); err != nil {
		t.Errorf("calendar_dates.txt alone should be enough: %v", err)
	}
}

func TestParseFSBadStopSequence(t *testing.T) {
	fsys := fixtureFS()
	fsys["stop_times.txt"] = &fstest.MapFile{Data: []byte("trip_id,departure_time,stop_id,stop_sequence\nT1,08:00:00,1,first\n")}

	_, err := ParseFS(fsys, discardLogger())
	var invalid *InvalidValueError
	if !errors.As(err, &invalid) || invalid.Column != "stop_sequence" {
		t.Errorf("ParseFS error = %v, want InvalidValueError on stop_sequence", err)
	}
}

func TestBuild(t *testing.T) {
	net := networktest.New()
	feed, err := ParseFS(fixtureFS(), discardLogger())
	if err != nil {
		t.Fatalf("ParseFS: %v", err)
	}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	data, err := Build(feed, net, fixtureConfig(), now)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	wantReport := Report{
		Trips:          5,
		Matched:        4,
		Unmatched:      1,
		Continuations:  1,
		Deduplicated:   1,
		UnmappedStops:  2,
		UnmatchedTrips: []string{"T4"},
	}
	if data.Report.Trips != wantReport.Trips ||
		data.Report.Matched != wantReport.Matched ||
		data.Report.Unmatched != wantReport.Unmatched ||
		data.Report.Continuations != wantReport.Continuations ||
		data.Report.Deduplicated != wantReport.Deduplicated ||
		data.Report.UnmappedStops != wantReport.UnmappedStops ||
		strings.Join(data.Report.UnmatchedTrips, ",") != "T4" {
		t.Errorf("Report = %+v, want %+v", data.Report, wantReport)
	}

	if data.ConfigHash != net.Hash() {
		t.Error("ConfigHash should be the network hash")
	}
	if !data.Age.Equal(now) {
		t.Errorf("Age = %v, want %v", data.Age, now)
	}

	if len(data.Trips) != 4 {
		t.Fatalf("len(Trips) = %d, want 4", len(data.Trips))
	}

	tests := []struct {
		name      string
		trip      *Trip
		line      network.LineID
		direction network.DirectionID
		times     []timeutil.NullTime
		pairs     []IDPair
		vetoes    []string
	}{
		{
			name:      "T1 with T2 folded in",
			trip:      data.Trips[0],
			line:      networktest.LineAlpha,
			direction: networktest.Up,
			times:     []timeutil.NullTime{hm(8, 0), hm(8, 5), hm(8, 12), hm(8, 15)},
			pairs: []IDPair{
				{TripID: "T1", CalendarID: "WD"},
				{TripID: "T2", CalendarID: "WE"},
			},
		},
		{
			name:      "T3 first leg",
			trip:      data.Trips[1],
			line:      networktest.LineAlpha,
			direction: networktest.Up,
			times:     []timeutil.NullTime{hm(8, 0), {}, {}, hm(8, 10)},
			pairs:     []IDPair{{TripID: "T3", CalendarID: "WD"}},
			vetoes:    []string{"WD"},
		},
		{
			name:      "T3 continuation",
			trip:      data.Trips[2],
			line:      networktest.LineBeta,
			direction: networktest.Up,
			times:     []timeutil.NullTime{hm(8, 10), {}, hm(8, 20)},
			pairs:     []IDPair{{TripID: "T3", CalendarID: "WD", ContinuationIndex: 1}},
			vetoes:    []string{"WD"},
		},
		{
			name:      "T5 past midnight",
			trip:      data.Trips[3],
			line:      networktest.LineBeta,
			direction: networktest.Down,
			times:     []timeutil.NullTime{hm(23, 50), hm(24, 0), hm(24, 10)},
			pairs:     []IDPair{{TripID: "T5", CalendarID: "HOL"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.trip.Line != tt.line || tt.trip.Direction != tt.direction || tt.trip.Variant != network.DefaultVariant {
				t.Errorf("route = %v/%s/%s, want %v/%s/%s",
					tt.trip.Line, tt.trip.Variant, tt.trip.Direction,
					tt.line, network.DefaultVariant, tt.direction)
			}
			if !equalTimes(tt.trip.Times, tt.times) {
				t.Errorf("Times = %v, want %v", tt.trip.Times, tt.times)
			}
			if !equalSlices(tt.trip.IDPairs, tt.pairs) {
				t.Errorf("IDPairs = %+v, want %+v", tt.trip.IDPairs, tt.pairs)
			}
			if !equalSlices(tt.trip.VetoedCalendars, tt.vetoes) {
				t.Errorf("VetoedCalendars = %v, want %v", tt.trip.VetoedCalendars, tt.vetoes)
			}
		})
	}
}

func TestBuildCalendars(t *testing.T) {
	feed, err := ParseFS(fixtureFS(), discardLogger())
	if err != nil {
		t.Fatalf("ParseFS: %v", err)
	}
	data, err := Build(feed, networktest.New(), fixtureConfig(), time.Time{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	tests := []struct {
		calendar string
		date     string
		want     bool
	}{
		{"WD", "2024-01-03", true},
		{"WD", "2024-01-02", false},
		{"WD", "2024-01-06", false},
		{"WE", "2024-01-06", true},
		{"HOL", "2024-01-01", true},
		{"HOL", "2024-01-08", false},
	}
	for _, tt := range tests {
		cal, ok := data.Calendar(tt.calendar, "")
		if !ok {
			t.Fatalf("calendar %s missing", tt.calendar)
		}
		if got := cal.AppliesOn(date(tt.date)); got != tt.want {
			t.Errorf("%s.AppliesOn(%s) = %v, want %v", tt.calendar, tt.date, got, tt.want)
		}
	}

	// T3 is vetoed from WD, so only T1 (through WD) and nothing else runs
	// on a plain weekday.
	active := data.TripsOn(date("2024-01-03"))
	if len(active) != 1 || active[0].ID.TripID != "T1" {
		t.Errorf("TripsOn(2024-01-03) = %+v, want only T1", active)
	}
}

func TestBuildInvalidCalendar(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		body   string
		column string
	}{
		{
			name:   "weekday flag",
			file:   "calendar.txt",
			body:   "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\nWD,yes,1,1,1,1,0,0,20240101,20241231\n",
			column: "monday",
		},
		{
			name:   "start date",
			file:   "calendar.txt",
			body:   "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\nWD,1,1,1,1,1,0,0,2024,20241231\n",
			column: "start_date",
		},
		{
			name:   "exception type",
			file:   "calendar_dates.txt",
			body:   "service_id,date,exception_type\nWD,20240102,3\n",
			column: "exception_type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fixtureFS()
			fsys[tt.file] = &fstest.MapFile{Data: []byte(tt.body)}
			feed, err := ParseFS(fsys, discardLogger())
			if err != nil {
				t.Fatalf("ParseFS: %v", err)
			}
			_, err = Build(feed, networktest.New(), fixtureConfig(), time.Time{})
			var invalid *InvalidValueError
			if !errors.As(err, &invalid) {
				t.Fatalf("Build error = %v, want InvalidValueError", err)
			}
			if invalid.File != tt.file || invalid.Column != tt.column || invalid.Line != 2 {
				t.Errorf("error at %s:%d %s, want %s:2 %s", invalid.File, invalid.Line, invalid.Column, tt.file, tt.column)
			}
		})
	}
}

func equalTimes(a, b []timeutil.NullTime) bool {
	return equalSlices(a, b)
}

func equalSlices[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
