package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"trainquery/internal/gtfs"
	"trainquery/internal/network"
	"trainquery/internal/realtime"
)

type statusResponse struct {
	Network     string        `json:"network"`
	ConfigHash  string        `json:"configHash"`
	Snapshot    uuid.UUID     `json:"snapshot"`
	InstalledAt time.Time     `json:"installedAt"`
	Static      int           `json:"staticTimetables"`
	GTFS        *gtfsStatus   `json:"gtfs"`
	Realtime    realtimeState `json:"realtime"`
}

type gtfsStatus struct {
	Age        time.Time   `json:"age"`
	ConfigHash string      `json:"configHash"`
	Trips      int         `json:"trips"`
	Report     gtfs.Report `json:"report"`
}

type realtimeState struct {
	Trips     int        `json:"trips"`
	UpdatedAt *time.Time `json:"updatedAt"`
}

// Status serves GET /api/status describing the installed data.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}
	resp := statusResponse{
		Network:     snap.Network.Name,
		ConfigHash:  snap.Network.Hash(),
		Snapshot:    snap.ID,
		InstalledAt: snap.InstalledAt,
		Static:      len(snap.Static),
		Realtime:    realtimeState{Trips: len(h.rt.All())},
	}
	if d := snap.GTFS; d != nil {
		resp.GTFS = &gtfsStatus{Age: d.Age, ConfigHash: d.ConfigHash, Trips: len(d.Trips), Report: d.Report}
	}
	if at := h.rt.UpdatedAt(); !at.IsZero() {
		resp.Realtime.UpdatedAt = &at
	}
	writeJSON(w, http.StatusOK, resp)
}

type liveTripJSON struct {
	TripID    string        `json:"tripId"`
	RouteID   string        `json:"routeId,omitempty"`
	StartDate string        `json:"startDate,omitempty"`
	Legs      []liveLegJSON `json:"legs"`
}

type liveLegJSON struct {
	Line      network.LineID         `json:"line"`
	Variant   network.RouteVariantID `json:"variant"`
	Direction network.DirectionID    `json:"direction"`
	Stops     []liveStopJSON         `json:"stops"`
}

type liveStopJSON struct {
	Stop       network.StopID       `json:"stop"`
	Prediction *realtime.Prediction `json:"prediction"`
}

// RealtimeTrip serves GET /api/realtime/{tripID}: a live trip as matched
// onto the network.
func (h *Handler) RealtimeTrip(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}
	tripID := r.PathValue("tripID")
	trip, found := h.rt.Trip(tripID)
	if !found || trip.Match == nil {
		h.writeError(w, r, notFound("no live trip %q", tripID))
		return
	}

	resp := liveTripJSON{TripID: trip.TripID, RouteID: trip.RouteID, StartDate: trip.StartDate}
	for _, leg := range trip.Match.Legs() {
		stops, err := snap.Network.RequireStopList(leg.Line, leg.Variant, leg.Direction)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		lj := liveLegJSON{Line: leg.Line, Variant: leg.Variant, Direction: leg.Direction}
		for i, stop := range stops {
			s := liveStopJSON{Stop: stop}
			if i < len(leg.Values) {
				s.Prediction = leg.Values[i]
			}
			lj.Stops = append(lj.Stops, s)
		}
		resp.Legs = append(resp.Legs, lj)
	}
	writeJSON(w, http.StatusOK, resp)
}
