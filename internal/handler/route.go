package handler

import (
	"net/http"

	"trainquery/internal/network"
)

type lineJSON struct {
	*network.Line
	StopLists []network.StopList `json:"stopLists"`
}

// Lines serves GET /api/lines with every line and its stop lists.
func (h *Handler) Lines(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}
	lines := make([]lineJSON, len(snap.Network.Lines))
	for i, l := range snap.Network.Lines {
		lines[i] = lineJSON{Line: l, StopLists: l.Route.StopLists()}
	}
	writeJSON(w, http.StatusOK, lines)
}

type lineStopsResponse struct {
	Line      network.LineID         `json:"line"`
	Variant   network.RouteVariantID `json:"variant"`
	Direction network.DirectionID    `json:"direction"`
	Stops     []network.Stop         `json:"stops"`
}

// LineStops serves GET /api/lines/{id}/stops?variant=&direction=. The
// variant defaults to the linear route variant.
func (h *Handler) LineStops(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}
	net := snap.Network

	id, err := requirePathInt(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	direction, err := requireParam(r, "direction")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	variant := network.RouteVariantID(r.URL.Query().Get("variant"))
	if variant == "" {
		variant = network.DefaultVariant
	}

	ids, err := net.RequireStopList(network.LineID(id), variant, network.DirectionID(direction))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := lineStopsResponse{
		Line:      network.LineID(id),
		Variant:   variant,
		Direction: network.DirectionID(direction),
		Stops:     make([]network.Stop, len(ids)),
	}
	for i, sid := range ids {
		resp.Stops[i], _ = net.Stop(sid)
	}
	writeJSON(w, http.StatusOK, resp)
}
