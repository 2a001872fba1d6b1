package realtime

import (
	"slices"
	"sync"
	"time"

	"trainquery/internal/match"
	"trainquery/internal/network"
)

// Prediction is the live estimate for one stop of a trip.
type Prediction struct {
	Time    time.Time     `json:"time"`
	Delay   time.Duration `json:"delay"`
	Skipped bool          `json:"skipped,omitempty"`
}

// IdentifiedTrip is a live GTFS-RT trip matched onto the network.
type IdentifiedTrip struct {
	TripID    string
	RouteID   string
	StartDate string
	Match     *match.MatchedRoute[Prediction]
}

// Lines returns every line the trip runs on, following continuations.
func (t IdentifiedTrip) Lines() []network.LineID {
	var out []network.LineID
	for _, leg := range t.Match.Legs() {
		if !slices.Contains(out, leg.Line) {
			out = append(out, leg.Line)
		}
	}
	return out
}

// Alert represents a parsed service alert.
type Alert struct {
	ID         string
	HeaderText string
	DescText   string
	RouteIDs   []string
	Stops      []network.StopID
	Effect     string // "NO_SERVICE", "REDUCED_SERVICE", "DETOUR", etc.
	Cause      string
}

// Store holds realtime data in a thread-safe manner.
type Store struct {
	mu        sync.RWMutex
	trips     map[string]IdentifiedTrip
	order     []string
	alerts    []Alert
	updatedAt time.Time
}

// NewStore creates an empty realtime store.
func NewStore() *Store {
	return &Store{trips: make(map[string]IdentifiedTrip)}
}

// SetTrips replaces all identified trips.
func (s *Store) SetTrips(trips []IdentifiedTrip, at time.Time) {
	byID := make(map[string]IdentifiedTrip, len(trips))
	order := make([]string, 0, len(trips))
	for _, t := range trips {
		if _, dup := byID[t.TripID]; !dup {
			order = append(order, t.TripID)
		}
		byID[t.TripID] = t
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.trips = byID
	s.order = order
	s.updatedAt = at
}

// Trip returns the identified trip with the given GTFS-RT trip ID.
func (s *Store) Trip(id string) (IdentifiedTrip, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trips[id]
	return t, ok
}

// TripsForLine returns trips running on line on any leg.
func (s *Store) TripsForLine(line network.LineID) []IdentifiedTrip {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []IdentifiedTrip
	for _, id := range s.order {
		t := s.trips[id]
		if slices.Contains(t.Lines(), line) {
			result = append(result, t)
		}
	}
	return result
}

// All returns every identified trip in feed order.
func (s *Store) All() []IdentifiedTrip {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]IdentifiedTrip, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.trips[id])
	}
	return out
}

// UpdatedAt is when the trips were last replaced.
func (s *Store) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// SetAlerts replaces all alerts.
func (s *Store) SetAlerts(alerts []Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = alerts
}

// AlertsForStop returns alerts affecting a specific stop.
func (s *Store) AlertsForStop(stop network.StopID) []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Alert
	for _, a := range s.alerts {
		if slices.Contains(a.Stops, stop) {
			result = append(result, a)
		}
	}
	return result
}

// AllAlerts returns all active alerts.
func (s *Store) AllAlerts() []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Alert, len(s.alerts))
	copy(out, s.alerts)
	return out
}
