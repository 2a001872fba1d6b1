package handler

import (
	"net/http"

	"trainquery/internal/templates"
)

// Home lists the network's stops, filtered by the q search parameter.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	snap := h.store.Load()
	if snap == nil {
		http.Error(w, "Timetable data is loading", http.StatusServiceUnavailable)
		return
	}
	net := snap.Network
	query := r.URL.Query().Get("q")

	data := templates.StopIndexData{
		Page:        h.page(net.Name, "/"),
		NetworkName: net.Name,
		Query:       query,
	}
	for _, res := range searchStops(net, query) {
		link := templates.StopLink{ID: int(res.ID), Name: res.Name}
		for _, id := range res.Lines {
			if l := net.Line(id); l != nil {
				link.Lines = append(link.Lines, l.Name)
			}
		}
		data.Stops = append(data.Stops, link)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.StopIndexPage(data).Render(r.Context(), w); err != nil {
		h.logger.Error("rendering stop index", "error", err)
	}
}
