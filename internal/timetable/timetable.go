// Package timetable holds the timetables departure searches read: static
// timetables from the network config plus GTFS trips, bundled into an
// immutable Snapshot that is swapped atomically when new data arrives.
package timetable

import (
	"fmt"

	"trainquery/internal/network"
	"trainquery/internal/timeutil"
)

// Entry is one service in a timetable. Times has one slot per stop of the
// line's stop list for (Variant, Direction).
type Entry struct {
	ID        string                 `json:"id"`
	Line      network.LineID         `json:"line"`
	Variant   network.RouteVariantID `json:"variant"`
	Direction network.DirectionID    `json:"direction"`
	Weekdays  timeutil.WeekdayRange  `json:"weekdays"`
	Times     []timeutil.NullTime    `json:"times"`
}

// LastCalledIndex returns the index of the last stop the entry calls at,
// or -1 when it calls nowhere.
func (e *Entry) LastCalledIndex() int {
	for i := len(e.Times) - 1; i >= 0; i-- {
		if e.Times[i].Valid {
			return i
		}
	}
	return -1
}

// Timetable is a set of entries for one line, valid on [Begins, Ends].
// A zero bound is open.
type Timetable struct {
	ID      string         `json:"id"`
	Line    network.LineID `json:"line"`
	Begins  timeutil.Date  `json:"begins"`
	Ends    timeutil.Date  `json:"ends"`
	Entries []*Entry       `json:"entries"`
}

// ValidOn reports whether the timetable applies on date.
func (t *Timetable) ValidOn(date timeutil.Date) bool {
	if !t.Begins.IsZero() && date.Before(t.Begins) {
		return false
	}
	if !t.Ends.IsZero() && date.After(t.Ends) {
		return false
	}
	return true
}

// FromStatic converts the network's configured timetables. Entries are
// checked against their line's route so a bad selector fails at load time.
func FromStatic(net *network.Network) ([]*Timetable, error) {
	var out []*Timetable
	for _, st := range net.Timetables {
		line, err := net.RequireLine(st.Line)
		if err != nil {
			return nil, fmt.Errorf("timetable %s: %w", st.ID, err)
		}

		tt := &Timetable{ID: st.ID, Line: st.Line, Begins: st.Begins, Ends: st.Ends}
		for i, e := range st.Entries {
			stops, err := line.RequireStopList(e.Variant, e.Direction)
			if err != nil {
				return nil, fmt.Errorf("timetable %s entry %d: %w", st.ID, i, err)
			}
			if len(e.Times) != len(stops) {
				return nil, fmt.Errorf("timetable %s entry %d: %d times for %d stops", st.ID, i, len(e.Times), len(stops))
			}
			tt.Entries = append(tt.Entries, &Entry{
				ID:        fmt.Sprintf("%s-%d", st.ID, i),
				Line:      st.Line,
				Variant:   e.Variant,
				Direction: e.Direction,
				Weekdays:  e.Weekdays,
				Times:     e.Times,
			})
		}
		out = append(out, tt)
	}
	return out, nil
}
