package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"trainquery/internal/match"
	"trainquery/internal/network"
	"trainquery/internal/timeutil"
)

const maxMatchBody = 1 << 20

var validate = validator.New()

type matchRequest struct {
	Stops []matchStop `json:"stops" validate:"max=500,dive"`
}

type matchStop struct {
	Stop network.StopID `json:"stop" validate:"gt=0"`
	Time string         `json:"time,omitempty"`
}

type matchResponse struct {
	Match *matchJSON `json:"match"`
}

type matchJSON struct {
	TotalStopCount int            `json:"totalStopCount"`
	Legs           []matchLegJSON `json:"legs"`
}

type matchLegJSON struct {
	Line            network.LineID         `json:"line"`
	AssociatedLines []network.LineID       `json:"associatedLines,omitempty"`
	Variant         network.RouteVariantID `json:"variant"`
	Direction       network.DirectionID    `json:"direction"`
	StopCount       int                    `json:"stopCount"`
	Stops           []matchedStopJSON      `json:"stops"`
}

type matchedStopJSON struct {
	Stop   network.StopID    `json:"stop"`
	Called bool              `json:"called"`
	Time   timeutil.NullTime `json:"time"`
}

// MatchRoute serves POST /api/match, aligning an observed stop sequence
// with the network's routes.
func (h *Handler) MatchRoute(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}
	net := snap.Network

	var req matchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMatchBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.writeError(w, r, badRequest("invalid request body: %v", err))
		return
	}
	if err := validate.Struct(req); err != nil {
		h.writeError(w, r, badRequest("%v", err))
		return
	}

	order, err := observationsOf(req.Stops)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	m, err := match.MatchToRoute(net, order, nil)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp, err := toMatchJSON(net, m)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matchResponse{Match: resp})
}

func observationsOf(stops []matchStop) ([]match.Observation[timeutil.NullTime], error) {
	order := make([]match.Observation[timeutil.NullTime], len(stops))
	for i, s := range stops {
		order[i].Stop = s.Stop
		if s.Time == "" {
			continue
		}
		t, err := timeutil.ParseTimetableTime(s.Time)
		if err != nil {
			return nil, badRequest("stop %d: %v", i, err)
		}
		order[i].Value = timeutil.Some(t)
	}
	return order, nil
}

func toMatchJSON(net *network.Network, m *match.MatchedRoute[timeutil.NullTime]) (*matchJSON, error) {
	if m == nil {
		return nil, nil
	}
	out := &matchJSON{TotalStopCount: m.TotalStopCount()}
	for _, leg := range m.Legs() {
		stops, err := net.RequireStopList(leg.Line, leg.Variant, leg.Direction)
		if err != nil {
			return nil, err
		}
		lj := matchLegJSON{
			Line:            leg.Line,
			AssociatedLines: leg.AssociatedLines,
			Variant:         leg.Variant,
			Direction:       leg.Direction,
			StopCount:       leg.StopCount,
			Stops:           make([]matchedStopJSON, len(stops)),
		}
		for i, stop := range stops {
			lj.Stops[i].Stop = stop
			if i < len(leg.Values) && leg.Values[i] != nil {
				lj.Stops[i].Called = true
				lj.Stops[i].Time = *leg.Values[i]
			}
		}
		out.Legs = append(out.Legs, lj)
	}
	return out, nil
}
