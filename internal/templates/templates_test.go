package templates

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/a-h/templ"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var sb strings.Builder
	if err := c.Render(context.Background(), &sb); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return sb.String()
}

func TestStopBoardPage(t *testing.T) {
	data := StopBoardData{
		Page:     Page{Title: "Elm", AssetVersion: "abcd1234"},
		StopID:   5,
		StopName: "Elm & <Main>",
		Filter:   "line-2 arr",
		Interval: "Every 10 min until 9:00 AM",
		Alerts:   []AlertDisplay{{HeaderText: "Works", DescText: "Buses replace trains", Effect: "Detour"}},
		Lines:    []LineLink{{ID: 1, Name: "Alpha"}, {ID: 2, Name: "Beta"}},
		Departures: []DepartureInfo{
			{LineName: "Beta", Destination: "Fern", Scheduled: "8:05 AM", MinutesAway: 5},
			{LineName: "Beta", LineCode: "BET", Destination: "Dale", Scheduled: "8:15 AM", Live: "8:18 AM", IsLive: true, IsLate: true, MinutesAway: 18},
			{LineName: "Beta", Destination: "Dale", Scheduled: "8:20 AM", IsArrival: true},
			{LineName: "Beta", Destination: "Fern", Scheduled: "8:25 AM", IsLive: true, Live: "8:25 AM", Skipped: true},
		},
	}
	out := render(t, StopBoardPage(data))

	wants := []string{
		"<!DOCTYPE html>",
		"<title>Elm | trainquery</title>",
		"/static/style.css?v=abcd1234",
		"<h1>Elm &amp; &lt;Main&gt;</h1>",
		"href=\"/stops/5/lines/2\">Beta</a>",
		"<strong>Detour</strong> Works",
		"Every 10 min until 9:00 AM",
		"data-sse=\"/sse/stops/5?filter=line-2+arr\"",
		"5 min",
		"<span class=\"line\">BET</span>",
		"<li class=\"departure late\">",
		"<time class=\"live\">8:18 AM</time>",
		"Arrival from Dale",
		"<li class=\"departure skipped\">",
		"Cancelled",
	}
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(out, "<Main>") {
		t.Error("stop name was not escaped")
	}
	if strings.Count(out, "class=\"live\"") != 1 {
		t.Error("a live time equal to the schedule should not be repeated")
	}
}

func TestDepartureListEmpty(t *testing.T) {
	out := render(t, DepartureList(nil))
	if !strings.Contains(out, "No upcoming departures") {
		t.Errorf("empty list = %q", out)
	}
}

func TestMinutesLabel(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "Now"},
		{-3, "Now"},
		{1, "1 min"},
		{45, "45 min"},
	}
	for _, tt := range tests {
		if got := minutesLabel(tt.in); got != tt.want {
			t.Errorf("minutesLabel(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStopIndexPage(t *testing.T) {
	out := render(t, StopIndexPage(StopIndexData{
		Page:        Page{Title: "test"},
		NetworkName: "test",
		Query:       "\"el",
		Stops:       []StopLink{{ID: 5, Name: "Elm", Lines: []string{"Beta", "Gamma"}}},
	}))
	for _, want := range []string{"value=\"&#34;el\"", "<a href=\"/stops/5\">Elm</a>", "Beta, Gamma"} {
		if !strings.Contains(out, want) {
			t.Errorf("index missing %q", want)
		}
	}

	out = render(t, StopIndexPage(StopIndexData{NetworkName: "test", Query: "zzz"}))
	if !strings.Contains(out, "No stops found") {
		t.Error("empty index should say so")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestRenderReportsWriteErrors(t *testing.T) {
	err := StopBoardPage(StopBoardData{StopName: "Elm"}).Render(context.Background(), failingWriter{})
	if err == nil || err.Error() != "closed" {
		t.Errorf("Render error = %v, want the writer's error", err)
	}
}

func TestLoadingPage(t *testing.T) {
	out := render(t, LoadingPage(Page{Title: "Loading"}))
	if !strings.Contains(out, "<title>Loading | trainquery</title>") || !strings.Contains(out, "Building timetables") {
		t.Errorf("loading page = %q", out)
	}
}
