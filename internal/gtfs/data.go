package gtfs

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"trainquery/internal/network"
	"trainquery/internal/timeutil"
)

// Calendar says which dates a GTFS service_id runs on. Within merged data
// a calendar is identified by (ID, SubfeedID).
type Calendar struct {
	ID              string                `json:"id"`
	SubfeedID       string                `json:"subfeed,omitempty"`
	Weekdays        timeutil.WeekdayRange `json:"weekdays"`
	Start           timeutil.Date         `json:"start"`
	End             timeutil.Date         `json:"end"`
	AdditionalDates []timeutil.Date       `json:"additionalDates,omitempty"`
	Exceptions      []timeutil.Date       `json:"exceptions,omitempty"`
}

// AppliesOn reports whether the calendar runs on date. Exceptions win over
// additional dates, which win over the regular weekday pattern.
func (c Calendar) AppliesOn(date timeutil.Date) bool {
	if slices.Contains(c.Exceptions, date) {
		return false
	}
	if slices.Contains(c.AdditionalDates, date) {
		return true
	}
	if date.Before(c.Start) || date.After(c.End) {
		return false
	}
	return c.Weekdays.Includes(date.Weekday())
}

// WithSubfeedID returns a copy tagged with the given sub-feed.
func (c Calendar) WithSubfeedID(id string) Calendar {
	c.SubfeedID = id
	c.AdditionalDates = slices.Clone(c.AdditionalDates)
	c.Exceptions = slices.Clone(c.Exceptions)
	return c
}

// IDPair ties a reconciled trip back to a GTFS trip_id and service_id.
// ContinuationIndex is the position of this leg in the GTFS trip's
// continuation chain, 0 for the first line it ran on.
type IDPair struct {
	TripID            string `json:"tripID"`
	CalendarID        string `json:"calendarID"`
	ContinuationIndex int    `json:"continuationIndex"`
}

// Trip is a GTFS trip (or one leg of it) matched onto a line. Identical
// trips that run under different calendars share one Trip with several
// IDPairs.
type Trip struct {
	IDPairs         []IDPair               `json:"idPairs"`
	SubfeedID       string                 `json:"subfeed,omitempty"`
	VetoedCalendars []string               `json:"vetoedCalendars,omitempty"`
	Line            network.LineID         `json:"line"`
	Variant         network.RouteVariantID `json:"variant"`
	Direction       network.DirectionID    `json:"direction"`
	Times           []timeutil.NullTime    `json:"times"`
}

// HashKey identifies trips that are the same service: same line, route,
// direction and times.
func (t *Trip) HashKey() string {
	b, _ := json.Marshal(struct {
		Line      network.LineID         `json:"l"`
		Variant   network.RouteVariantID `json:"v"`
		Direction network.DirectionID    `json:"d"`
		Times     []timeutil.NullTime    `json:"t"`
	}{t.Line, t.Variant, t.Direction, t.Times})
	return string(b)
}

// AddIDPair records another GTFS trip this trip stands for.
func (t *Trip) AddIDPair(p IDPair) {
	if !slices.Contains(t.IDPairs, p) {
		t.IDPairs = append(t.IDPairs, p)
	}
}

// AddVetoedCalendars stops the trip running on the given calendars even
// when one of its IDPairs names them.
func (t *Trip) AddVetoedCalendars(ids ...string) {
	for _, id := range ids {
		if !slices.Contains(t.VetoedCalendars, id) {
			t.VetoedCalendars = append(t.VetoedCalendars, id)
		}
	}
	slices.Sort(t.VetoedCalendars)
}

// WithSubfeedID returns a copy tagged with the given sub-feed.
func (t *Trip) WithSubfeedID(id string) *Trip {
	c := *t
	c.SubfeedID = id
	c.IDPairs = slices.Clone(t.IDPairs)
	c.VetoedCalendars = slices.Clone(t.VetoedCalendars)
	c.Times = slices.Clone(t.Times)
	return &c
}

// RequireIDPair returns the IDPair for calendarID.
func (t *Trip) RequireIDPair(calendarID string) (IDPair, error) {
	for _, p := range t.IDPairs {
		if p.CalendarID == calendarID {
			return p, nil
		}
	}
	return IDPair{}, fmt.Errorf("trip has no ID pair for calendar %q", calendarID)
}

// HasIDPair reports whether the trip stands for the given GTFS trip leg.
func (t *Trip) HasIDPair(tripID string, continuationIndex int) bool {
	for _, p := range t.IDPairs {
		if p.TripID == tripID && p.ContinuationIndex == continuationIndex {
			return true
		}
	}
	return false
}

// ActiveOn returns the first IDPair whose calendar applies on date and is
// not vetoed.
func (t *Trip) ActiveOn(date timeutil.Date, data *Data) (IDPair, bool) {
	for _, p := range t.IDPairs {
		if slices.Contains(t.VetoedCalendars, p.CalendarID) {
			continue
		}
		cal, ok := data.Calendar(p.CalendarID, t.SubfeedID)
		if ok && cal.AppliesOn(date) {
			return p, true
		}
	}
	return IDPair{}, false
}

// Report summarizes what happened while building GTFS data.
type Report struct {
	Trips          int      `json:"trips"`
	Matched        int      `json:"matched"`
	Unmatched      int      `json:"unmatched"`
	Continuations  int      `json:"continuations"`
	Deduplicated   int      `json:"deduplicated"`
	UnmappedStops  int      `json:"unmappedStops"`
	UnmatchedTrips []string `json:"unmatchedTrips,omitempty"`
}

// maxReportedTrips caps UnmatchedTrips so one broken feed cannot bloat the
// report.
const maxReportedTrips = 50

func (r *Report) addUnmatched(tripID string) {
	r.Unmatched++
	if len(r.UnmatchedTrips) < maxReportedTrips {
		r.UnmatchedTrips = append(r.UnmatchedTrips, tripID)
	}
}

// Merge combines two reports.
func (r Report) Merge(o Report) Report {
	out := Report{
		Trips:         r.Trips + o.Trips,
		Matched:       r.Matched + o.Matched,
		Unmatched:     r.Unmatched + o.Unmatched,
		Continuations: r.Continuations + o.Continuations,
		Deduplicated:  r.Deduplicated + o.Deduplicated,
		UnmappedStops: r.UnmappedStops + o.UnmappedStops,
	}
	out.UnmatchedTrips = append(slices.Clone(r.UnmatchedTrips), o.UnmatchedTrips...)
	if len(out.UnmatchedTrips) > maxReportedTrips {
		out.UnmatchedTrips = out.UnmatchedTrips[:maxReportedTrips]
	}
	return out
}

type calendarKey struct {
	id, subfeed string
}

// Data is the reconciled form of one GTFS feed (or several merged
// sub-feeds). It is immutable once built.
type Data struct {
	Calendars  []Calendar
	Trips      []*Trip
	ConfigHash string
	Report     Report
	Age        time.Time

	calendars map[calendarKey]int
}

// NewData indexes calendars and returns the data.
func NewData(calendars []Calendar, trips []*Trip, configHash string, report Report, age time.Time) *Data {
	d := &Data{
		Calendars:  calendars,
		Trips:      trips,
		ConfigHash: configHash,
		Report:     report,
		Age:        age,
		calendars:  make(map[calendarKey]int, len(calendars)),
	}
	for i, c := range calendars {
		d.calendars[calendarKey{c.ID, c.SubfeedID}] = i
	}
	return d
}

// Calendar looks up a calendar by ID within a sub-feed.
func (d *Data) Calendar(id, subfeedID string) (Calendar, bool) {
	i, ok := d.calendars[calendarKey{id, subfeedID}]
	if !ok {
		return Calendar{}, false
	}
	return d.Calendars[i], true
}

// IsOld reports whether the data is due for a refresh.
func (d *Data) IsOld(refresh time.Duration, now time.Time) bool {
	return now.Sub(d.Age) >= refresh
}

// ActiveTrip is a trip running on a particular date.
type ActiveTrip struct {
	Trip *Trip
	ID   IDPair
}

// TripsOn returns the trips that run on date, in data order.
func (d *Data) TripsOn(date timeutil.Date) []ActiveTrip {
	var out []ActiveTrip
	for _, t := range d.Trips {
		if p, ok := t.ActiveOn(date, d); ok {
			out = append(out, ActiveTrip{Trip: t, ID: p})
		}
	}
	return out
}
