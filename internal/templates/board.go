package templates

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/a-h/templ"
)

// StopBoardPage renders the departures board for one stop.
func StopBoardPage(d StopBoardData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.printf("<h1>")
		w.text(d.StopName)
		w.printf("</h1>\n")

		if len(d.Lines) > 1 {
			w.printf("<nav class=\"lines\">\n<a href=\"/stops/%d\">All lines</a>\n", d.StopID)
			for _, l := range d.Lines {
				w.printf("<a href=\"/stops/%d/lines/%d\">", d.StopID, l.ID)
				w.text(l.Name)
				w.printf("</a>\n")
			}
			w.printf("</nav>\n")
		}

		for _, a := range d.Alerts {
			w.printf("<div class=\"alert\" role=\"alert\">")
			if a.Effect != "" {
				w.printf("<strong>")
				w.text(a.Effect)
				w.printf("</strong> ")
			}
			w.text(a.HeaderText)
			if a.DescText != "" {
				w.printf("<p>")
				w.text(a.DescText)
				w.printf("</p>")
			}
			w.printf("</div>\n")
		}

		if d.Interval != "" {
			w.printf("<p class=\"interval\">")
			w.text(d.Interval)
			w.printf("</p>\n")
		}

		src := fmt.Sprintf("/sse/stops/%d", d.StopID)
		if d.Filter != "" {
			src += "?filter=" + url.QueryEscape(d.Filter)
		}
		w.printf("<section id=\"departures\" data-sse=\"")
		w.text(src)
		w.printf("\">\n")
		w.component(ctx, DepartureList(d.Departures))
		w.printf("</section>\n")
		return w.err
	})
	return layout(d.Page, body)
}

// DepartureList renders the rows of a departures board. It is also sent
// on its own as an SSE event.
func DepartureList(deps []DepartureInfo) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		if len(deps) == 0 {
			w.printf("<p class=\"empty\">No upcoming departures.</p>\n")
			return w.err
		}
		w.printf("<ol class=\"departures\">\n")
		for _, dep := range deps {
			class := "departure"
			switch {
			case dep.Skipped:
				class += " skipped"
			case dep.IsLate:
				class += " late"
			}
			w.printf("<li class=\"%s\">", class)
			w.printf("<span class=\"line\">")
			if dep.LineCode != "" {
				w.text(dep.LineCode)
			} else {
				w.text(dep.LineName)
			}
			w.printf("</span> <span class=\"dest\">")
			if dep.IsArrival {
				w.printf("Arrival from ")
			}
			w.text(dep.Destination)
			w.printf("</span> <time>")
			w.text(dep.Scheduled)
			w.printf("</time>")
			if dep.IsLive && dep.Live != dep.Scheduled {
				w.printf(" <time class=\"live\">")
				w.text(dep.Live)
				w.printf("</time>")
			}
			if dep.Skipped {
				w.printf(" <span class=\"status\">Cancelled</span>")
			} else {
				w.printf(" <span class=\"mins\">%s</span>", minutesLabel(dep.MinutesAway))
			}
			w.printf("</li>\n")
		}
		w.printf("</ol>\n")
		return w.err
	})
}

func minutesLabel(m int) string {
	if m <= 0 {
		return "Now"
	}
	return fmt.Sprintf("%d min", m)
}
