package handler

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"trainquery/internal/departures"
	"trainquery/internal/network"
	"trainquery/internal/realtime"
	"trainquery/internal/templates"
	"trainquery/internal/timetable"
	"trainquery/internal/timeutil"
)

// maxPage bounds the iteration parameter of a raw departures query.
const maxPage = 31

type departureJSON struct {
	EntryID          string                 `json:"entryId"`
	Line             network.LineID         `json:"line"`
	Variant          network.RouteVariantID `json:"variant"`
	Direction        network.DirectionID    `json:"direction"`
	Date             timeutil.Date          `json:"date"`
	Time             string                 `json:"time"`
	Instant          time.Time              `json:"instant"`
	PerspectiveIndex int                    `json:"perspectiveIndex"`
	Arrival          bool                   `json:"arrival,omitempty"`
}

type departuresResponse struct {
	Stop       network.Stop    `json:"stop"`
	Filter     string          `json:"filter,omitempty"`
	Departures []departureJSON `json:"departures"`
}

func toDepartureJSON(poss []departures.Possibility, loc *time.Location) []departureJSON {
	out := make([]departureJSON, len(poss))
	for i, p := range poss {
		out[i] = departureJSON{
			EntryID:          p.Entry.ID,
			Line:             p.Entry.Line,
			Variant:          p.Entry.Variant,
			Direction:        p.Entry.Direction,
			Date:             p.Date,
			Time:             p.Time().String(),
			Instant:          p.Instant(loc),
			PerspectiveIndex: p.PerspectiveIndex,
			Arrival:          p.IsArrival(),
		}
	}
	return out
}

func filterParam(r *http.Request) (departures.Filter, error) {
	f, err := departures.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		return departures.Filter{}, badRequest("%v", err)
	}
	return f, nil
}

// Departures serves one raw search page:
// GET /api/departures?stop=&time=&iteration=&reverse=&filter=
func (h *Handler) Departures(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}
	net := snap.Network

	stop, err := requireStopParam(r, net, "stop")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	instant, err := timeParam(r, "time", h.clock.Now())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	iteration, err := intParam(r, "iteration", 0, 0, maxPage)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	reverse, err := boolParam(r, "reverse")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	filter, err := filterParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	poss, err := departures.GetPossibilities(snap, stop.ID, instant, iteration, reverse, filter.Lines)
	if err != nil {
		h.writeSearchError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, departuresResponse{
		Stop:       stop,
		Filter:     filter.String(),
		Departures: toDepartureJSON(filter.Apply(poss), net.Timezone),
	})
}

// NextDepartures serves the next departures from now:
// GET /api/departures/next?stop=&count=&filter=&reverse=
func (h *Handler) NextDepartures(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}
	net := snap.Network

	stop, err := requireStopParam(r, net, "stop")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	count, err := intParam(r, "count", 10, 1, 100)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	reverse, err := boolParam(r, "reverse")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	filter, err := filterParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	searcher := departures.NewSearcher(snap, h.clock)
	var poss []departures.Possibility
	if reverse {
		poss, err = searcher.Previous(stop.ID, count, filter)
	} else {
		poss, err = searcher.Next(stop.ID, count, filter)
	}
	if err != nil {
		h.writeSearchError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, departuresResponse{
		Stop:       stop,
		Filter:     filter.String(),
		Departures: toDepartureJSON(poss, net.Timezone),
	})
}

// boardDepartures converts search results into board rows, overlaying
// live predictions where a realtime trip matches the entry.
func (h *Handler) boardDepartures(snap *timetable.Snapshot, stop network.StopID, poss []departures.Possibility, now time.Time) []templates.DepartureInfo {
	net := snap.Network
	result := make([]templates.DepartureInfo, 0, len(poss))
	for _, p := range poss {
		line := net.Line(p.Entry.Line)
		if line == nil {
			continue
		}
		instant := p.Instant(net.Timezone)
		dep := templates.DepartureInfo{
			LineID:      int(line.ID),
			LineName:    line.Name,
			LineCode:    line.Code,
			Direction:   directionName(line, p.Entry.Direction),
			Destination: endpointName(net, p),
			Scheduled:   formatTime(p.Time()),
			MinutesAway: minutesUntil(instant, now),
			IsArrival:   p.IsArrival(),
		}

		if pred, ok := h.livePrediction(net, p, stop); ok {
			dep.IsLive = true
			dep.Skipped = pred.Skipped
			live := instant.Add(pred.Delay)
			if !pred.Time.IsZero() {
				live = pred.Time
			}
			live = live.In(net.Timezone)
			dep.Live = live.Format("3:04 PM")
			dep.MinutesAway = minutesUntil(live, now)
			dep.IsLate = live.Sub(instant) >= 2*time.Minute
		}
		result = append(result, dep)
	}
	return result
}

// livePrediction looks up the realtime prediction for p at stop. Entries
// built from GTFS carry the feed's trip ID, which GTFS-RT reuses.
func (h *Handler) livePrediction(net *network.Network, p departures.Possibility, stop network.StopID) (realtime.Prediction, bool) {
	trip, ok := h.liveTrip(p.Entry.ID)
	if !ok || trip.Match == nil {
		return realtime.Prediction{}, false
	}
	if trip.StartDate != "" && trip.StartDate != p.Date.Compact() {
		return realtime.Prediction{}, false
	}
	for _, leg := range trip.Match.Legs() {
		if leg.Line != p.Entry.Line {
			continue
		}
		stops, err := net.RequireStopList(leg.Line, leg.Variant, leg.Direction)
		if err != nil {
			continue
		}
		if i := slices.Index(stops, stop); i >= 0 && i < len(leg.Values) && leg.Values[i] != nil {
			return *leg.Values[i], true
		}
	}
	return realtime.Prediction{}, false
}

// liveTrip resolves an entry ID such as "metro:T1#1" to its realtime trip.
func (h *Handler) liveTrip(entryID string) (realtime.IdentifiedTrip, bool) {
	id, _, _ := strings.Cut(entryID, "#")
	if trip, ok := h.rt.Trip(id); ok {
		return trip, true
	}
	if _, tripID, found := strings.Cut(id, ":"); found {
		return h.rt.Trip(tripID)
	}
	return realtime.IdentifiedTrip{}, false
}

// endpointName names where the service is heading, or for an arrival
// where it came from.
func endpointName(net *network.Network, p departures.Possibility) string {
	stops, err := net.RequireStopList(p.Entry.Line, p.Entry.Variant, p.Entry.Direction)
	if err != nil || len(stops) != len(p.Entry.Times) {
		return ""
	}
	idx := p.Entry.LastCalledIndex()
	if p.IsArrival() {
		for i, t := range p.Entry.Times {
			if t.Valid {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		return ""
	}
	s, _ := net.Stop(stops[idx])
	return s.Name
}

func directionName(line *network.Line, dir network.DirectionID) string {
	var fwd, rev network.DirectionDefinition
	switch r := line.Route.(type) {
	case *network.LinearRoute:
		fwd, rev = r.Forward, r.Reverse
	case *network.YBranchRoute:
		fwd, rev = r.Forward, r.Reverse
	}
	switch dir {
	case fwd.ID:
		return fwd.Name
	case rev.ID:
		return rev.Name
	}
	return string(dir)
}

// formatTime converts a timetable time (possibly past 24:00) to a
// user-friendly clock time.
func formatTime(t timeutil.TimetableTime) string {
	displayHour := t.Hour() % 24
	period := "AM"
	if displayHour >= 12 {
		period = "PM"
	}
	if displayHour == 0 {
		displayHour = 12
	} else if displayHour > 12 {
		displayHour -= 12
	}
	return fmt.Sprintf("%d:%02d %s", displayHour, t.Minute(), period)
}

// minutesUntil returns whole minutes from now until t, never negative.
func minutesUntil(t, now time.Time) int {
	diff := t.Sub(now)
	if diff < 0 {
		return 0
	}
	return int(diff.Minutes())
}
