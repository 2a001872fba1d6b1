package timetable

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"trainquery/internal/gtfs"
	"trainquery/internal/network"
	"trainquery/internal/timeutil"
)

// Each snapshot caches the timetables of its dayCacheSize most recently
// searched dates, for up to dayCacheTTL.
const (
	dayCacheSize = 64
	dayCacheTTL  = time.Hour
)

// Snapshot is one consistent view of the network and its timetables. It
// is never modified after NewSnapshot returns.
type Snapshot struct {
	ID          uuid.UUID
	Network     *network.Network
	Static      []*Timetable
	GTFS        *gtfs.Data
	InstalledAt time.Time

	days *Cache[timeutil.Date, []*Timetable]
}

// NewSnapshot bundles the network, its static timetables and (possibly
// nil) GTFS data.
func NewSnapshot(net *network.Network, static []*Timetable, data *gtfs.Data, now time.Time) *Snapshot {
	return &Snapshot{
		ID:          uuid.New(),
		Network:     net,
		Static:      static,
		GTFS:        data,
		InstalledAt: now,
		days:        NewCache[timeutil.Date, []*Timetable](dayCacheSize, dayCacheTTL),
	}
}

// TimetablesForDay returns the timetables that apply on date for the
// given lines, or for every line when lines is empty. Static timetables
// come first in config order, followed by one timetable per line holding
// the GTFS trips that run that day.
func (s *Snapshot) TimetablesForDay(date timeutil.Date, lines []network.LineID) []*Timetable {
	all := s.days.GetOrCompute(date, func() []*Timetable {
		return s.buildDay(date)
	})
	if len(lines) == 0 {
		return all
	}
	var out []*Timetable
	for _, t := range all {
		if slices.Contains(lines, t.Line) {
			out = append(out, t)
		}
	}
	return out
}

func (s *Snapshot) buildDay(date timeutil.Date) []*Timetable {
	var out []*Timetable
	for _, t := range s.Static {
		if t.ValidOn(date) {
			out = append(out, t)
		}
	}
	if s.GTFS == nil {
		return out
	}

	byLine := make(map[network.LineID]*Timetable)
	for _, active := range s.GTFS.TripsOn(date) {
		trip := active.Trip
		t, ok := byLine[trip.Line]
		if !ok {
			t = &Timetable{
				ID:     fmt.Sprintf("gtfs-%d-%s", trip.Line, date.Compact()),
				Line:   trip.Line,
				Begins: date,
				Ends:   date,
			}
			byLine[trip.Line] = t
		}
		// The calendar has already decided the day, so the entry runs on
		// any weekday.
		t.Entries = append(t.Entries, &Entry{
			ID:        gtfsEntryID(trip.SubfeedID, active.ID),
			Line:      trip.Line,
			Variant:   trip.Variant,
			Direction: trip.Direction,
			Weekdays:  timeutil.AllDays,
			Times:     trip.Times,
		})
	}

	for _, line := range s.Network.Lines {
		if t, ok := byLine[line.ID]; ok {
			out = append(out, t)
		}
	}
	return out
}

// gtfsEntryID names a GTFS trip leg, e.g. "metro:T1" or "T1#1" for the
// second leg of a continued trip.
func gtfsEntryID(subfeed string, p gtfs.IDPair) string {
	id := p.TripID
	if subfeed != "" {
		id = subfeed + ":" + id
	}
	if p.ContinuationIndex > 0 {
		id = fmt.Sprintf("%s#%d", id, p.ContinuationIndex)
	}
	return id
}
