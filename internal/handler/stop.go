package handler

import (
	"net/http"
	"time"

	"trainquery/internal/departures"
	"trainquery/internal/network"
	"trainquery/internal/templates"
	"trainquery/internal/timetable"
)

const (
	boardSize    = 15
	intervalSize = 12
)

// StopBoard serves the departures board for a single stop.
func (h *Handler) StopBoard(w http.ResponseWriter, r *http.Request) {
	filter, err := filterParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.renderBoard(w, r, filter, boardSize)
}

// renderBoard renders the board for the {id} stop using filter.
func (h *Handler) renderBoard(w http.ResponseWriter, r *http.Request, filter departures.Filter, count int) {
	snap := h.store.Load()
	if snap == nil {
		http.Error(w, "Timetable data is loading", http.StatusServiceUnavailable)
		return
	}
	id, err := requirePathInt(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	stop, err := snap.Network.RequireStop(network.StopID(id))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	now := h.clock.Now()
	deps, err := h.fetchDepartures(snap, stop.ID, filter, count)
	if err != nil {
		h.logger.Error("searching departures", "stop", stop.ID, "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	var interval string
	if len(deps) > 0 {
		interval = h.lineInterval(snap, stop.ID, deps[0].Entry)
	}

	var lines []templates.LineLink
	for _, l := range snap.Network.LinesAt(stop.ID) {
		lines = append(lines, templates.LineLink{ID: int(l.ID), Name: l.Name})
	}

	data := templates.StopBoardData{
		Page:       h.page(stop.Name, r.URL.Path),
		StopID:     int(stop.ID),
		StopName:   stop.Name,
		Filter:     filter.String(),
		Departures: h.boardDepartures(snap, stop.ID, deps, now),
		Interval:   interval,
		Alerts:     h.alertsForStop(stop.ID),
		Lines:      lines,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.StopBoardPage(data).Render(r.Context(), w); err != nil {
		h.logger.Error("rendering stop board", "error", err)
	}
}

func (h *Handler) fetchDepartures(snap *timetable.Snapshot, stop network.StopID, filter departures.Filter, count int) ([]departures.Possibility, error) {
	return departures.NewSearcher(snap, h.clock).Next(stop, count, filter)
}

// lineInterval describes the service frequency of entry's line and
// direction at stop.
func (h *Handler) lineInterval(snap *timetable.Snapshot, stop network.StopID, entry *timetable.Entry) string {
	filter := departures.Filter{
		Lines:      []network.LineID{entry.Line},
		Directions: []network.DirectionID{entry.Direction},
	}
	poss, err := h.fetchDepartures(snap, stop, filter, intervalSize)
	if err != nil {
		return ""
	}
	times := make([]time.Time, len(poss))
	for i, p := range poss {
		times[i] = p.Instant(snap.Network.Timezone)
	}
	return detectInterval(times)
}
