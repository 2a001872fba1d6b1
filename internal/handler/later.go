package handler

import (
	"net/http"

	"trainquery/internal/departures"
	"trainquery/internal/network"
)

const laterSize = 40

// LaterDepartures serves a longer board for one line at a stop.
func (h *Handler) LaterDepartures(w http.ResponseWriter, r *http.Request) {
	line, err := requirePathInt(r, "line")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if snap := h.store.Load(); snap != nil && snap.Network.Line(network.LineID(line)) == nil {
		http.NotFound(w, r)
		return
	}
	h.renderBoard(w, r, departures.Filter{Lines: []network.LineID{network.LineID(line)}}, laterSize)
}
