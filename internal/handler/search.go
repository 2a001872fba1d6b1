package handler

import (
	"net/http"
	"slices"
	"strings"

	"trainquery/internal/network"
)

type stopResult struct {
	ID    network.StopID   `json:"id"`
	Name  string           `json:"name"`
	Lines []network.LineID `json:"lines"`
}

// SearchStops serves GET /api/stops?q=, listing stops whose names contain
// q. An empty query lists every stop.
func (h *Handler) SearchStops(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, searchStops(snap.Network, r.URL.Query().Get("q")))
}

// searchStops matches case-insensitively; names starting with the query
// sort ahead of other matches.
func searchStops(net *network.Network, query string) []stopResult {
	q := strings.ToLower(strings.TrimSpace(query))
	results := []stopResult{}
	for _, s := range net.Stops {
		if q != "" && !strings.Contains(strings.ToLower(s.Name), q) {
			continue
		}
		res := stopResult{ID: s.ID, Name: s.Name, Lines: []network.LineID{}}
		for _, l := range net.LinesAt(s.ID) {
			res.Lines = append(res.Lines, l.ID)
		}
		results = append(results, res)
	}
	if q != "" {
		slices.SortStableFunc(results, func(a, b stopResult) int {
			ap := strings.HasPrefix(strings.ToLower(a.Name), q)
			bp := strings.HasPrefix(strings.ToLower(b.Name), q)
			switch {
			case ap && !bp:
				return -1
			case bp && !ap:
				return 1
			}
			return 0
		})
	}
	return results
}
