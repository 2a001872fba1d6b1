package handler

import (
	"trainquery/internal/network"
	"trainquery/internal/realtime"
	"trainquery/internal/templates"
)

// alertsForStop returns GTFS-RT alerts for a given stop.
func (h *Handler) alertsForStop(stop network.StopID) []templates.AlertDisplay {
	var alerts []templates.AlertDisplay
	for _, a := range h.rt.AlertsForStop(stop) {
		// Feeds often repeat one alert per affected entity
		if alertExists(alerts, a.HeaderText) {
			continue
		}
		alerts = append(alerts, templates.AlertDisplay{
			HeaderText: a.HeaderText,
			DescText:   a.DescText,
			Effect:     realtime.FormatAlertEffect(a.Effect),
		})
	}
	return alerts
}

func alertExists(alerts []templates.AlertDisplay, text string) bool {
	for _, a := range alerts {
		if a.HeaderText == text {
			return true
		}
	}
	return false
}
