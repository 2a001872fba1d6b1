package realtime

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"trainquery/internal/network"
	"trainquery/internal/network/networktest"
	"trainquery/internal/timeutil"
)

var base = time.Date(2024, 1, 3, 8, 0, 0, 0, time.UTC)

func stopUpdate(stopID string, offset time.Duration) *gtfsrt.TripUpdate_StopTimeUpdate {
	return &gtfsrt.TripUpdate_StopTimeUpdate{
		StopId:    proto.String(stopID),
		Departure: &gtfsrt.TripUpdate_StopTimeEvent{Time: proto.Int64(base.Add(offset).Unix()), Delay: proto.Int32(60)},
	}
}

func tripEntity(id, tripID string, updates ...*gtfsrt.TripUpdate_StopTimeUpdate) *gtfsrt.FeedEntity {
	return &gtfsrt.FeedEntity{
		Id: proto.String(id),
		TripUpdate: &gtfsrt.TripUpdate{
			Trip:           &gtfsrt.TripDescriptor{TripId: proto.String(tripID), RouteId: proto.String("R1"), StartDate: proto.String("20240103")},
			StopTimeUpdate: updates,
		},
	}
}

func testMessage() *gtfsrt.FeedMessage {
	skipped := stopUpdate("3", 10*time.Minute)
	skipped.ScheduleRelationship = gtfsrt.TripUpdate_StopTimeUpdate_SKIPPED.Enum()
	arrivalOnly := &gtfsrt.TripUpdate_StopTimeUpdate{
		StopId:  proto.String("6"),
		Arrival: &gtfsrt.TripUpdate_StopTimeEvent{Time: proto.Int64(base.Add(20 * time.Minute).Unix())},
	}

	return &gtfsrt.FeedMessage{
		Header: &gtfsrt.FeedHeader{GtfsRealtimeVersion: proto.String("2.0")},
		Entity: []*gtfsrt.FeedEntity{
			tripEntity("e1", "T1", stopUpdate("1", 0), stopUpdate("2", 5*time.Minute), skipped, stopUpdate("4", 15*time.Minute)),
			tripEntity("e2", "T2", stopUpdate("1", 0), stopUpdate("P4", 10*time.Minute), arrivalOnly),
			tripEntity("e3", "T3", stopUpdate("42", 0), stopUpdate("43", time.Minute)),
			{
				Id: proto.String("a1"),
				Alert: &gtfsrt.Alert{
					HeaderText: &gtfsrt.TranslatedString{Translation: []*gtfsrt.TranslatedString_Translation{{Text: proto.String("Works")}}},
					Effect:     gtfsrt.Alert_DETOUR.Enum(),
					InformedEntity: []*gtfsrt.EntitySelector{
						{StopId: proto.String("P4")},
						{StopId: proto.String("4")},
						{StopId: proto.String("42")},
						{RouteId: proto.String("R1")},
					},
				},
			},
		},
	}
}

func testFeedConfig() network.FeedConfig {
	return network.FeedConfig{Name: "live", StopIDs: map[string]network.StopID{"P4": 4}}
}

func TestIdentifyTrips(t *testing.T) {
	net := networktest.New()
	trips, stats, err := IdentifyTrips(testMessage(), net, testFeedConfig())
	if err != nil {
		t.Fatalf("IdentifyTrips: %v", err)
	}

	want := Stats{Updates: 3, Identified: 2, Unmatched: 1, UnmappedStops: 2}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
	if len(trips) != 2 {
		t.Fatalf("got %d trips, want 2", len(trips))
	}

	t1 := trips[0]
	if t1.TripID != "T1" || t1.RouteID != "R1" || t1.StartDate != "20240103" {
		t.Errorf("trip = %+v", t1)
	}
	if t1.Match.Line != networktest.LineAlpha || t1.Match.Direction != networktest.Up || t1.Match.Continuation != nil {
		t.Errorf("T1 matched %v/%s, want Alpha up without continuation", t1.Match.Line, t1.Match.Direction)
	}
	if p := t1.Match.Values[2]; p == nil || !p.Skipped {
		t.Errorf("T1 stop 3 = %+v, want skipped", p)
	}
	if p := t1.Match.Values[1]; p == nil || !p.Time.Equal(base.Add(5*time.Minute)) || p.Delay != time.Minute {
		t.Errorf("T1 stop 2 = %+v", p)
	}

	t2 := trips[1]
	lines := t2.Lines()
	if len(lines) != 2 || lines[0] != networktest.LineAlpha || lines[1] != networktest.LineBeta {
		t.Errorf("T2 lines = %v, want Alpha then Beta", lines)
	}
	last := t2.Match.Continuation.Values[2]
	if last == nil || !last.Time.Equal(base.Add(20*time.Minute)) {
		t.Errorf("T2 terminus = %+v, want the arrival time", last)
	}
}

func TestParseAlerts(t *testing.T) {
	alerts := ParseAlerts(testMessage(), networktest.New(), testFeedConfig())
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}
	a := alerts[0]
	if a.HeaderText != "Works" || a.Effect != "DETOUR" {
		t.Errorf("alert = %+v", a)
	}
	if len(a.Stops) != 1 || a.Stops[0] != 4 {
		t.Errorf("alert stops = %v, want [4] deduplicated with unknown stops dropped", a.Stops)
	}
	if len(a.RouteIDs) != 1 || a.RouteIDs[0] != "R1" {
		t.Errorf("alert routes = %v", a.RouteIDs)
	}
	if got := FormatAlertEffect(a.Effect); got != "Detour" {
		t.Errorf("FormatAlertEffect = %q", got)
	}
}

func TestStore(t *testing.T) {
	net := networktest.New()
	trips, _, err := IdentifyTrips(testMessage(), net, testFeedConfig())
	if err != nil {
		t.Fatal(err)
	}

	s := NewStore()
	if _, ok := s.Trip("T1"); ok {
		t.Error("empty store should have no trips")
	}
	s.SetTrips(trips, base)

	if got, ok := s.Trip("T2"); !ok || got.TripID != "T2" {
		t.Errorf("Trip(T2) = %+v, %v", got, ok)
	}
	if got := s.TripsForLine(networktest.LineBeta); len(got) != 1 || got[0].TripID != "T2" {
		t.Errorf("TripsForLine(Beta) = %+v, want T2 through its continuation", got)
	}
	if got := s.TripsForLine(networktest.LineAlpha); len(got) != 2 {
		t.Errorf("TripsForLine(Alpha) = %d trips, want 2", len(got))
	}
	if got := s.All(); len(got) != 2 || got[0].TripID != "T1" {
		t.Errorf("All = %+v", got)
	}
	if !s.UpdatedAt().Equal(base) {
		t.Errorf("UpdatedAt = %v", s.UpdatedAt())
	}

	s.SetTrips(nil, base.Add(time.Minute))
	if len(s.All()) != 0 {
		t.Error("SetTrips should replace, not merge")
	}

	s.SetAlerts(ParseAlerts(testMessage(), net, testFeedConfig()))
	if len(s.AlertsForStop(4)) != 1 || len(s.AlertsForStop(1)) != 0 {
		t.Error("AlertsForStop should filter by mapped stop")
	}
	if len(s.AllAlerts()) != 1 {
		t.Error("AllAlerts should return the alert")
	}
}

func TestFetcher(t *testing.T) {
	body, err := proto.Marshal(testMessage())
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/x-protobuf")
		w.Write(body)
	}))
	defer srv.Close()

	store := NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := NewFetcher(networktest.New(), Config{
		TripUpdatesURL: srv.URL + "/trips",
		AlertsURL:      srv.URL + "/alerts",
		Feed:           testFeedConfig(),
	}, store, logger)
	f.clock = timeutil.FixedClock{T: base}

	ctx := context.Background()
	if err := f.FetchTrips(ctx); err != nil {
		t.Fatalf("FetchTrips: %v", err)
	}
	if err := f.FetchAlerts(ctx); err != nil {
		t.Fatalf("FetchAlerts: %v", err)
	}
	if len(store.All()) != 2 || len(store.AllAlerts()) != 1 {
		t.Errorf("store has %d trips, %d alerts, want 2 and 1", len(store.All()), len(store.AllAlerts()))
	}
	if !store.UpdatedAt().Equal(base) {
		t.Errorf("UpdatedAt = %v, want %v", store.UpdatedAt(), base)
	}

	f.cfg.TripUpdatesURL = srv.URL + "/broken"
	if err := f.FetchTrips(ctx); err == nil {
		t.Error("FetchTrips should fail on a non-200 response")
	}
	if len(store.All()) != 2 {
		t.Error("a failed fetch should keep the previous trips")
	}
}
