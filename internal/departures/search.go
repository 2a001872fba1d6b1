// Package departures finds the services calling at a stop around a given
// instant, across the timetable-day boundary.
package departures

import (
	"cmp"
	"slices"
	"time"

	"trainquery/internal/network"
	"trainquery/internal/timetable"
	"trainquery/internal/timeutil"
)

// Possibility is one call of a timetable entry at the searched stop.
// PerspectiveIndex is the position of that call in Entry.Times.
type Possibility struct {
	Entry            *timetable.Entry
	Date             timeutil.Date
	PerspectiveIndex int
	SortTime         int64
}

// Time is the timetabled time of the call.
func (p Possibility) Time() timeutil.TimetableTime {
	return p.Entry.Times[p.PerspectiveIndex].Time
}

// Instant is the absolute time of the call.
func (p Possibility) Instant(loc *time.Location) time.Time {
	return p.Date.At(p.Time(), loc)
}

// IsArrival reports whether the call is the entry's last, where the
// service terminates.
func (p Possibility) IsArrival() bool {
	return p.PerspectiveIndex == p.Entry.LastCalledIndex()
}

// SearchTimeRange selects the timetabled times of one date that fall
// inside a search window: Min <= t < Max, where an invalid bound is open.
type SearchTimeRange struct {
	Date timeutil.Date
	Min  timeutil.NullTime
	Max  timeutil.NullTime
	loc  *time.Location
}

// Contains reports whether t lies within the range.
func (r SearchTimeRange) Contains(t timeutil.TimetableTime) bool {
	if r.Min.Valid && t < r.Min.Time {
		return false
	}
	if r.Max.Valid && t >= r.Max.Time {
		return false
	}
	return true
}

// SortTime orders times from different dates on one absolute scale.
func (r SearchTimeRange) SortTime(t timeutil.TimetableTime) int64 {
	return r.Date.At(t, r.loc).Unix()
}

// searchTimes builds the ranges for one page of a search. Page 0 runs from
// instant to the next local midnight (or back to the previous one when
// reverse); page i covers the whole local day i days later (or earlier).
//
// A window on local date D can hold services from D's timetable and from
// D-1's, whose times past 24:00 run into D. Both get a range.
func searchTimes(instant time.Time, loc *time.Location, iteration int, reverse bool) []SearchTimeRange {
	today := timeutil.DateOf(instant, loc)

	var day timeutil.Date
	var start, end time.Time
	switch {
	case iteration == 0 && !reverse:
		day = today
		start, end = instant, today.AddDays(1).Midnight(loc)
	case iteration == 0 && reverse:
		day = today
		start, end = today.Midnight(loc), instant
	case !reverse:
		day = today.AddDays(iteration)
		start, end = day.Midnight(loc), day.AddDays(1).Midnight(loc)
	default:
		day = today.AddDays(-iteration)
		start, end = day.Midnight(loc), day.AddDays(1).Midnight(loc)
	}

	var out []SearchTimeRange
	for _, d := range []timeutil.Date{day.AddDays(-1), day} {
		r := SearchTimeRange{
			Date: d,
			Min:  timeutil.Some(d.TimetableTimeOf(start, loc)),
			Max:  timeutil.Some(d.TimetableTimeOf(end, loc)),
			loc:  loc,
		}
		if d == day && start.Equal(day.Midnight(loc)) {
			r.Min = timeutil.NullTime{}
		}
		out = append(out, r)
	}
	return out
}

// GetPossibilities returns every call at stop within page iteration of a
// search from instant, ordered by time (latest first when reverse). Only
// the given lines are searched, or all lines when lines is empty.
//
// An entry whose variant and direction are not a valid stop list of its
// line is a config error and fails the search.
func GetPossibilities(snap *timetable.Snapshot, stop network.StopID, instant time.Time, iteration int, reverse bool, lines []network.LineID) ([]Possibility, error) {
	net := snap.Network
	var result []Possibility

	for _, r := range searchTimes(instant, net.Timezone, iteration, reverse) {
		dow := r.Date.Weekday()

		for _, tab := range snap.TimetablesForDay(r.Date, lines) {
			line, err := net.RequireLine(tab.Line)
			if err != nil {
				return nil, err
			}
			indices := stopIndices(line, stop)

			for _, entry := range tab.Entries {
				if !entry.Weekdays.Includes(dow) {
					continue
				}
				idx, ok := indices[selector{entry.Variant, entry.Direction}]
				if !ok {
					return nil, &network.InvalidRouteSelectorError{Line: line.ID, Variant: entry.Variant, Direction: entry.Direction}
				}
				for _, i := range idx {
					if i >= len(entry.Times) {
						continue
					}
					t := entry.Times[i]
					if !t.Valid || !r.Contains(t.Time) {
						continue
					}
					result = append(result, Possibility{
						Entry:            entry,
						Date:             r.Date,
						PerspectiveIndex: i,
						SortTime:         r.SortTime(t.Time),
					})
				}
			}
		}
	}

	slices.SortStableFunc(result, func(a, b Possibility) int {
		if reverse {
			return cmp.Compare(b.SortTime, a.SortTime)
		}
		return cmp.Compare(a.SortTime, b.SortTime)
	})
	return result, nil
}

type selector struct {
	variant   network.RouteVariantID
	direction network.DirectionID
}

// stopIndices maps each of the line's stop lists to the positions of stop
// within it. Lists that do not serve the stop map to nil.
func stopIndices(line *network.Line, stop network.StopID) map[selector][]int {
	out := make(map[selector][]int)
	for _, l := range line.Route.StopLists() {
		key := selector{l.Variant, l.Direction}
		out[key] = nil
		for i, s := range l.Stops {
			if s == stop {
				out[key] = append(out[key], i)
			}
		}
	}
	return out
}
