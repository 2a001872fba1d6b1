package templates

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// StopIndexPage lists the network's stops with a name search form.
func StopIndexPage(d StopIndexData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.printf("<h1>")
		w.text(d.NetworkName)
		w.printf("</h1>\n")
		w.printf("<form action=\"/\" method=\"get\"><input type=\"search\" name=\"q\" value=\"")
		w.text(d.Query)
		w.printf("\" placeholder=\"Search stops\"></form>\n")

		if len(d.Stops) == 0 {
			w.printf("<p class=\"empty\">No stops found.</p>\n")
			return w.err
		}
		w.printf("<ul class=\"stops\">\n")
		for _, s := range d.Stops {
			w.printf("<li><a href=\"/stops/%d\">", s.ID)
			w.text(s.Name)
			w.printf("</a>")
			if len(s.Lines) > 0 {
				w.printf(" <small>")
				w.text(strings.Join(s.Lines, ", "))
				w.printf("</small>")
			}
			w.printf("</li>\n")
		}
		w.printf("</ul>\n")
		return w.err
	})
	return layout(d.Page, body)
}

// LoadingPage is shown while the first timetable snapshot is being built.
func LoadingPage(p Page) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.printf("<div class=\"loading\" role=\"status\" aria-live=\"polite\">\n")
		w.printf("<p>Building timetables, please wait...</p>\n")
		w.printf("<p>This page will refresh automatically.</p>\n</div>\n")
		return w.err
	})
	return layout(p, body)
}
