package realtime

import (
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"

	"trainquery/internal/match"
	"trainquery/internal/network"
)

// Stats counts what happened to the trip updates in one feed message.
type Stats struct {
	Updates       int
	Identified    int
	Unmatched     int
	UnmappedStops int
}

// IdentifyTrips matches every trip update in msg onto the network. Stop
// IDs are mapped through cfg. Trips that match no route are counted, not
// returned.
func IdentifyTrips(msg *gtfsrt.FeedMessage, net *network.Network, cfg network.FeedConfig) ([]IdentifiedTrip, Stats, error) {
	var (
		trips []IdentifiedTrip
		stats Stats
	)
	for _, entity := range msg.GetEntity() {
		tu := entity.GetTripUpdate()
		if tu == nil || entity.GetIsDeleted() {
			continue
		}
		stats.Updates++

		order, unmapped := observations(tu, net, cfg)
		stats.UnmappedStops += unmapped

		m, err := match.MatchToRoute(net, order, nil)
		if err != nil {
			return nil, stats, err
		}
		if m == nil {
			stats.Unmatched++
			continue
		}
		stats.Identified++

		tripID := tu.GetTrip().GetTripId()
		if tripID == "" {
			tripID = entity.GetId()
		}
		trips = append(trips, IdentifiedTrip{
			TripID:    tripID,
			RouteID:   tu.GetTrip().GetRouteId(),
			StartDate: tu.GetTrip().GetStartDate(),
			Match:     m,
		})
	}
	return trips, stats, nil
}

func observations(tu *gtfsrt.TripUpdate, net *network.Network, cfg network.FeedConfig) ([]match.Observation[Prediction], int) {
	var (
		order    []match.Observation[Prediction]
		unmapped int
	)
	for _, stu := range tu.GetStopTimeUpdate() {
		stop, ok := cfg.ResolveStop(stu.GetStopId())
		if ok {
			_, ok = net.Stop(stop)
		}
		if !ok {
			unmapped++
			continue
		}
		if n := len(order); n > 0 && order[n-1].Stop == stop {
			continue
		}
		order = append(order, match.Observation[Prediction]{Stop: stop, Value: predict(stu)})
	}
	return order, unmapped
}

// predict prefers the departure event, falling back to arrival.
func predict(stu *gtfsrt.TripUpdate_StopTimeUpdate) Prediction {
	p := Prediction{
		Skipped: stu.GetScheduleRelationship() == gtfsrt.TripUpdate_StopTimeUpdate_SKIPPED,
	}
	ev := stu.GetDeparture()
	if ev == nil {
		ev = stu.GetArrival()
	}
	if ev == nil {
		return p
	}
	if ev.Time != nil {
		p.Time = time.Unix(ev.GetTime(), 0)
	}
	p.Delay = time.Duration(ev.GetDelay()) * time.Second
	return p
}

// ParseAlerts converts the alerts in msg, mapping stop IDs through cfg.
// Stops the network does not know are dropped.
func ParseAlerts(msg *gtfsrt.FeedMessage, net *network.Network, cfg network.FeedConfig) []Alert {
	var alerts []Alert
	for _, entity := range msg.GetEntity() {
		a := entity.GetAlert()
		if a == nil {
			continue
		}

		alert := Alert{
			ID:         entity.GetId(),
			HeaderText: getTranslation(a.GetHeaderText()),
			DescText:   getTranslation(a.GetDescriptionText()),
			Effect:     a.GetEffect().String(),
			Cause:      a.GetCause().String(),
		}

		// Collect affected routes and stops (deduplicated)
		routeSet := make(map[string]bool)
		stopSet := make(map[network.StopID]bool)
		for _, ie := range a.GetInformedEntity() {
			if rid := ie.GetRouteId(); rid != "" && !routeSet[rid] {
				alert.RouteIDs = append(alert.RouteIDs, rid)
				routeSet[rid] = true
			}
			sid := ie.GetStopId()
			if sid == "" {
				continue
			}
			stop, ok := cfg.ResolveStop(sid)
			if !ok || stopSet[stop] {
				continue
			}
			if _, known := net.Stop(stop); known {
				alert.Stops = append(alert.Stops, stop)
				stopSet[stop] = true
			}
		}

		alerts = append(alerts, alert)
	}
	return alerts
}

func getTranslation(ts *gtfsrt.TranslatedString) string {
	if ts == nil {
		return ""
	}
	for _, t := range ts.GetTranslation() {
		if text := t.GetText(); text != "" {
			return text
		}
	}
	return ""
}

// FormatAlertEffect returns a human-readable effect description.
func FormatAlertEffect(effect string) string {
	switch effect {
	case "NO_SERVICE":
		return "No Service"
	case "REDUCED_SERVICE":
		return "Reduced Service"
	case "SIGNIFICANT_DELAYS":
		return "Significant Delays"
	case "DETOUR":
		return "Detour"
	case "ADDITIONAL_SERVICE":
		return "Additional Service"
	case "MODIFIED_SERVICE":
		return "Modified Service"
	case "STOP_MOVED":
		return "Stop Moved"
	default:
		return "Alert"
	}
}
