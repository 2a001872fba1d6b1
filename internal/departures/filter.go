package departures

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"trainquery/internal/network"
)

// Filter narrows a departure search. Its string form is a space separated
// list of terms, e.g. "line-1 line-2 direction-up platform-2 arr sdo".
type Filter struct {
	Lines      []network.LineID
	Directions []network.DirectionID

	// Platforms and ServiceTypes are kept so filter strings round-trip.
	// Timetables carry neither, so they do not narrow a search.
	Platforms    []string
	ServiceTypes []string

	// Arrivals includes calls where the service terminates.
	Arrivals bool
	// SetDownOnly includes set-down-only calls. No data source marks calls
	// as set-down-only yet, so it has no effect beyond the string form.
	SetDownOnly bool
}

// ParseFilter parses the string form of a filter. An empty string is the
// default filter.
func ParseFilter(s string) (Filter, error) {
	var f Filter
	for _, term := range strings.Fields(s) {
		switch {
		case strings.HasPrefix(term, "line-"):
			n, err := strconv.Atoi(strings.TrimPrefix(term, "line-"))
			if err != nil || n < 0 {
				return Filter{}, fmt.Errorf("invalid filter term %q", term)
			}
			f.Lines = append(f.Lines, network.LineID(n))
		case strings.HasPrefix(term, "direction-"):
			d := strings.TrimPrefix(term, "direction-")
			if d == "" {
				return Filter{}, fmt.Errorf("invalid filter term %q", term)
			}
			f.Directions = append(f.Directions, network.DirectionID(d))
		case strings.HasPrefix(term, "platform-"):
			p := strings.TrimPrefix(term, "platform-")
			if p == "" {
				return Filter{}, fmt.Errorf("invalid filter term %q", term)
			}
			f.Platforms = append(f.Platforms, p)
		case strings.HasPrefix(term, "service-"):
			st := strings.TrimPrefix(term, "service-")
			if st == "" {
				return Filter{}, fmt.Errorf("invalid filter term %q", term)
			}
			f.ServiceTypes = append(f.ServiceTypes, st)
		case term == "arr":
			f.Arrivals = true
		case term == "sdo":
			f.SetDownOnly = true
		default:
			return Filter{}, fmt.Errorf("unknown filter term %q", term)
		}
	}
	return f, nil
}

func (f Filter) String() string {
	var terms []string
	for _, l := range f.Lines {
		terms = append(terms, fmt.Sprintf("line-%d", int(l)))
	}
	for _, d := range f.Directions {
		terms = append(terms, "direction-"+string(d))
	}
	for _, p := range f.Platforms {
		terms = append(terms, "platform-"+p)
	}
	for _, st := range f.ServiceTypes {
		terms = append(terms, "service-"+st)
	}
	if f.Arrivals {
		terms = append(terms, "arr")
	}
	if f.SetDownOnly {
		terms = append(terms, "sdo")
	}
	return strings.Join(terms, " ")
}

func (f Filter) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Filter) UnmarshalText(b []byte) error {
	parsed, err := ParseFilter(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Matches reports whether p passes the filter.
func (f Filter) Matches(p Possibility) bool {
	if len(f.Lines) > 0 && !slices.Contains(f.Lines, p.Entry.Line) {
		return false
	}
	if len(f.Directions) > 0 && !slices.Contains(f.Directions, p.Entry.Direction) {
		return false
	}
	if !f.Arrivals && p.IsArrival() {
		return false
	}
	return true
}

// Apply returns the possibilities that pass the filter, in order.
func (f Filter) Apply(ps []Possibility) []Possibility {
	var out []Possibility
	for _, p := range ps {
		if f.Matches(p) {
			out = append(out, p)
		}
	}
	return out
}
