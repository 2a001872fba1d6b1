// Package templates renders the HTML pages as templ components.
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// Page carries the fields every page layout needs.
type Page struct {
	Title        string
	CurrentPath  string
	AssetVersion string
}

// DepartureInfo is one row of a departures board.
type DepartureInfo struct {
	LineID      int
	LineName    string
	LineCode    string
	Direction   string
	Destination string // origin for arrivals
	Scheduled   string // "3:04 PM"
	Live        string // predicted time, empty without realtime data
	MinutesAway int
	IsLive      bool
	IsLate      bool
	IsArrival   bool
	Skipped     bool
}

// AlertDisplay is a service alert shown on a page.
type AlertDisplay struct {
	HeaderText string
	DescText   string
	Effect     string
}

// LineLink links a board to the same stop filtered to one line.
type LineLink struct {
	ID   int
	Name string
}

// StopBoardData feeds StopBoardPage.
type StopBoardData struct {
	Page
	StopID     int
	StopName   string
	Filter     string
	Departures []DepartureInfo
	Interval   string
	Alerts     []AlertDisplay
	Lines      []LineLink
}

// StopLink is one entry in the stop index.
type StopLink struct {
	ID    int
	Name  string
	Lines []string
}

// StopIndexData feeds StopIndexPage.
type StopIndexData struct {
	Page
	NetworkName string
	Query       string
	Stops       []StopLink
}

// writer accumulates the first write error so components can be written
// as straight-line code.
type writer struct {
	w   io.Writer
	err error
}

func (w *writer) printf(format string, args ...any) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.w, format, args...)
}

func (w *writer) text(s string) {
	w.printf("%s", templ.EscapeString(s))
}

func (w *writer) component(ctx context.Context, c templ.Component) {
	if w.err != nil {
		return
	}
	w.err = c.Render(ctx, w.w)
}

// layout wraps body in the shared page chrome.
func layout(p Page, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.printf("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
		w.printf("<meta charset=\"utf-8\">\n")
		w.printf("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
		w.printf("<title>")
		w.text(p.Title)
		w.printf(" | trainquery</title>\n")
		w.printf("<link rel=\"stylesheet\" href=\"/static/style.css?v=")
		w.text(p.AssetVersion)
		w.printf("\">\n</head>\n<body>\n")
		w.printf("<header><a href=\"/\">trainquery</a></header>\n<main>\n")
		w.component(ctx, body)
		w.printf("</main>\n</body>\n</html>\n")
		return w.err
	})
}
