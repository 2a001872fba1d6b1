package gtfs

import (
	"fmt"
	"time"

	"trainquery/internal/match"
	"trainquery/internal/network"
	"trainquery/internal/timeutil"
)

// Build reconciles a parsed feed against the network. Each GTFS trip is
// matched onto a line (or a chain of lines when it continues past a
// terminus); every leg becomes a Trip, and identical legs under different
// calendars are folded into one Trip.
//
// Trips that match no route are counted in the report, not treated as
// errors. Errors are returned for malformed feed values and for broken
// continuation config.
func Build(feed *Feed, net *network.Network, cfg network.FeedConfig, now time.Time) (*Data, error) {
	calendars, err := buildCalendars(feed)
	if err != nil {
		return nil, err
	}

	stopTimes := make(map[string][]int)
	for i, st := range feed.StopTimes {
		stopTimes[st.TripID] = append(stopTimes[st.TripID], i)
	}

	var (
		report Report
		trips  []*Trip
		byHash = make(map[string]*Trip)
	)
	for _, row := range feed.Trips {
		report.Trips++

		order, unmapped, err := observations(feed.StopTimes, stopTimes[row.TripID], net, cfg)
		if err != nil {
			return nil, fmt.Errorf("trip %s: %w", row.TripID, err)
		}
		report.UnmappedStops += unmapped

		m, err := match.MatchToRoute(net, order, nil)
		if err != nil {
			return nil, fmt.Errorf("match trip %s: %w", row.TripID, err)
		}
		if m == nil {
			report.addUnmatched(row.TripID)
			continue
		}
		report.Matched++

		for i, leg := range m.Legs() {
			if i > 0 {
				report.Continuations++
			}
			t := &Trip{
				Line:      leg.Line,
				Variant:   leg.Variant,
				Direction: leg.Direction,
				Times:     make([]timeutil.NullTime, len(leg.Values)),
			}
			for j, v := range leg.Values {
				if v != nil {
					t.Times[j] = timeutil.Some(*v)
				}
			}
			t.AddVetoedCalendars(cfg.Vetoes[row.TripID]...)

			pair := IDPair{TripID: row.TripID, CalendarID: row.ServiceID, ContinuationIndex: i}
			key := t.HashKey()
			if existing, ok := byHash[key]; ok {
				existing.AddIDPair(pair)
				existing.AddVetoedCalendars(t.VetoedCalendars...)
				report.Deduplicated++
				continue
			}
			t.IDPairs = []IDPair{pair}
			byHash[key] = t
			trips = append(trips, t)
		}
	}

	return NewData(calendars, trips, net.Hash(), report, now), nil
}

// observations turns a trip's stop times into the input for route
// matching. Stops the network does not know are dropped and counted.
func observations(rows []StopTimeRow, idx []int, net *network.Network, cfg network.FeedConfig) ([]match.Observation[timeutil.TimetableTime], int, error) {
	var (
		order    []match.Observation[timeutil.TimetableTime]
		unmapped int
	)
	for _, i := range idx {
		st := rows[i]
		// Rows where passengers can neither board nor alight are
		// operational only.
		if st.PickupType == "1" && st.DropOffType == "1" {
			continue
		}

		stop, ok := cfg.ResolveStop(st.StopID)
		if ok {
			_, ok = net.Stop(stop)
		}
		if !ok {
			unmapped++
			continue
		}

		raw := st.DepartureTime
		if raw == "" {
			raw = st.ArrivalTime
		}
		if raw == "" {
			continue
		}
		t, err := timeutil.ParseTimetableTime(raw)
		if err != nil {
			return nil, 0, &InvalidValueError{File: "stop_times.txt", Column: "departure_time", Reason: err}
		}

		if n := len(order); n > 0 && order[n-1].Stop == stop {
			continue
		}
		order = append(order, match.Observation[timeutil.TimetableTime]{Stop: stop, Value: t})
	}
	return order, unmapped, nil
}

func buildCalendars(feed *Feed) ([]Calendar, error) {
	var calendars []Calendar
	index := make(map[string]int)

	for i, row := range feed.Calendar {
		line := i + 2
		var weekdays timeutil.WeekdayRange
		for _, f := range []struct {
			column string
			value  string
			day    time.Weekday
		}{
			{"monday", row.Monday, time.Monday},
			{"tuesday", row.Tuesday, time.Tuesday},
			{"wednesday", row.Wednesday, time.Wednesday},
			{"thursday", row.Thursday, time.Thursday},
			{"friday", row.Friday, time.Friday},
			{"saturday", row.Saturday, time.Saturday},
			{"sunday", row.Sunday, time.Sunday},
		} {
			switch f.value {
			case "1":
				weekdays |= timeutil.Weekdays(f.day)
			case "0":
			default:
				return nil, &InvalidValueError{File: "calendar.txt", Column: f.column, Line: line, Reason: fmt.Errorf("want 0 or 1, got %q", f.value)}
			}
		}

		start, err := timeutil.ParseDate(row.StartDate)
		if err != nil {
			return nil, &InvalidValueError{File: "calendar.txt", Column: "start_date", Line: line, Reason: err}
		}
		end, err := timeutil.ParseDate(row.EndDate)
		if err != nil {
			return nil, &InvalidValueError{File: "calendar.txt", Column: "end_date", Line: line, Reason: err}
		}

		index[row.ServiceID] = len(calendars)
		calendars = append(calendars, Calendar{ID: row.ServiceID, Weekdays: weekdays, Start: start, End: end})
	}

	for i, row := range feed.CalendarDates {
		line := i + 2
		date, err := timeutil.ParseDate(row.Date)
		if err != nil {
			return nil, &InvalidValueError{File: "calendar_dates.txt", Column: "date", Line: line, Reason: err}
		}

		// Services defined only through calendar_dates.txt have no
		// regular pattern.
		ci, ok := index[row.ServiceID]
		if !ok {
			ci = len(calendars)
			index[row.ServiceID] = ci
			calendars = append(calendars, Calendar{ID: row.ServiceID})
		}

		switch row.ExceptionType {
		case "1":
			calendars[ci].AdditionalDates = append(calendars[ci].AdditionalDates, date)
		case "2":
			calendars[ci].Exceptions = append(calendars[ci].Exceptions, date)
		default:
			return nil, &InvalidValueError{File: "calendar_dates.txt", Column: "exception_type", Line: line, Reason: fmt.Errorf("want 1 or 2, got %q", row.ExceptionType)}
		}
	}

	return calendars, nil
}
