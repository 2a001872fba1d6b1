package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"trainquery/internal/departures"
	"trainquery/internal/network"
	"trainquery/internal/templates"
)

// ssePeriod is how often a connected board is re-rendered.
const ssePeriod = 30 * time.Second

// SSEDepartures streams live departure updates for a stop via Server-Sent
// Events. Clients listen for "departures" events and swap the HTML.
func (h *Handler) SSEDepartures(w http.ResponseWriter, r *http.Request) {
	id, err := requirePathInt(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	filter, err := filterParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ctx := r.Context()

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	send := func() {
		if err := h.sendDepartureEvent(ctx, w, flusher, network.StopID(id), filter); err != nil {
			h.logger.Warn("SSE departures", "stop", id, "error", err)
		}
	}
	send()

	ticker := time.NewTicker(ssePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			send()
		case <-ctx.Done():
			return
		}
	}
}

// sendDepartureEvent renders the departure list as HTML and sends it as an
// SSE event. The snapshot is re-read each time so a refresh shows up on
// open boards.
func (h *Handler) sendDepartureEvent(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, stop network.StopID, filter departures.Filter) error {
	snap := h.store.Load()
	if snap == nil {
		return fmt.Errorf("no timetable snapshot")
	}
	poss, err := h.fetchDepartures(snap, stop, filter, boardSize)
	if err != nil {
		return err
	}
	rows := h.boardDepartures(snap, stop, poss, h.clock.Now())

	var buf bytes.Buffer
	if err := templates.DepartureList(rows).Render(ctx, &buf); err != nil {
		return fmt.Errorf("render departure list: %w", err)
	}

	// SSE format: event name, then data lines (each line prefixed with "data: ")
	fmt.Fprintf(w, "event: departures\n")
	for _, line := range bytes.Split(bytes.TrimRight(buf.Bytes(), "\n"), []byte("\n")) {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprintf(w, "\n")
	flusher.Flush()
	return nil
}
