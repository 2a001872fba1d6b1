package departures

import (
	"testing"
	"time"

	"trainquery/internal/network"
	"trainquery/internal/network/networktest"
	"trainquery/internal/timetable"
	"trainquery/internal/timeutil"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"line-1", "line-1"},
		{"  line-1   line-12 ", "line-1 line-12"},
		{"arr direction-up line-3", "line-3 direction-up arr"},
		{"sdo arr", "arr sdo"},
		{"direction-citybound direction-outbound", "direction-citybound direction-outbound"},
		{"arr platform-1 line-2", "line-2 platform-1 arr"},
		{"service-express platform-3a direction-up", "direction-up platform-3a service-express"},
	}
	for _, tt := range tests {
		f, err := ParseFilter(tt.in)
		if err != nil {
			t.Errorf("ParseFilter(%q): %v", tt.in, err)
			continue
		}
		if got := f.String(); got != tt.want {
			t.Errorf("ParseFilter(%q).String() = %q, want %q", tt.in, got, tt.want)
		}
		again, err := ParseFilter(f.String())
		if err != nil || again.String() != f.String() {
			t.Errorf("round trip of %q = %q, %v", f.String(), again.String(), err)
		}
	}
}

func TestParseFilterErrors(t *testing.T) {
	for _, in := range []string{"line-", "line-x", "line--1", "direction-", "platform-", "service-", "arrivals"} {
		if _, err := ParseFilter(in); err == nil {
			t.Errorf("ParseFilter(%q) should fail", in)
		}
	}
}

func TestFilterKeepsPlatformAndService(t *testing.T) {
	f, err := ParseFilter("platform-1 platform-2 service-express")
	if err != nil {
		t.Fatalf("ParseFilter: %v", err)
	}
	if len(f.Platforms) != 2 || f.Platforms[1] != "2" {
		t.Errorf("Platforms = %v, want [1 2]", f.Platforms)
	}
	if len(f.ServiceTypes) != 1 || f.ServiceTypes[0] != "express" {
		t.Errorf("ServiceTypes = %v, want [express]", f.ServiceTypes)
	}
}

func TestFilterText(t *testing.T) {
	var f Filter
	if err := f.UnmarshalText([]byte("line-2 arr")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if len(f.Lines) != 1 || f.Lines[0] != 2 || !f.Arrivals {
		t.Errorf("UnmarshalText = %+v", f)
	}
	b, _ := f.MarshalText()
	if string(b) != "line-2 arr" {
		t.Errorf("MarshalText = %q", b)
	}
}

func TestFilterMatches(t *testing.T) {
	through := &timetable.Entry{
		Line: networktest.LineBeta, Direction: networktest.Up,
		Times: []timeutil.NullTime{hm(8, 0), hm(8, 5), hm(8, 10)},
	}
	short := &timetable.Entry{
		Line: networktest.LineBeta, Direction: networktest.Up,
		Times: []timeutil.NullTime{hm(8, 0), hm(8, 5), {}},
	}

	tests := []struct {
		name   string
		filter string
		p      Possibility
		want   bool
	}{
		{"default departure", "", Possibility{Entry: through, PerspectiveIndex: 1}, true},
		{"default hides arrival", "", Possibility{Entry: short, PerspectiveIndex: 1}, false},
		{"arr shows arrival", "arr", Possibility{Entry: short, PerspectiveIndex: 1}, true},
		{"terminus is an arrival", "", Possibility{Entry: through, PerspectiveIndex: 2}, false},
		{"line match", "line-2", Possibility{Entry: through}, true},
		{"line mismatch", "line-1 line-3", Possibility{Entry: through}, false},
		{"direction match", "direction-down direction-up", Possibility{Entry: through}, true},
		{"direction mismatch", "direction-down", Possibility{Entry: through}, false},
		{"sdo has no effect", "sdo", Possibility{Entry: through}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFilter(tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if got := f.Matches(tt.p); got != tt.want {
				t.Errorf("%q.Matches = %v, want %v", tt.filter, got, tt.want)
			}
		})
	}
}

func TestSearcherNext(t *testing.T) {
	snap := lateNightSnapshot()
	clock := timeutil.FixedClock{T: local(t, snap.Network, "2024-01-04 23:00")}
	s := NewSearcher(snap, clock)

	got, err := s.Next(5, 3, Filter{})
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	checkCalls(t, got, []call{
		{"before", "2024-01-05", "00:02:00"},
		{"late1", "2024-01-04", "24:04:00"},
		{"early", "2024-01-05", "00:10:00"},
	})

	prev, err := s.Previous(5, 2, Filter{})
	if err != nil {
		t.Fatalf("Previous: %v", err)
	}
	checkCalls(t, prev, []call{
		{"late2", "2024-01-03", "24:20:00"},
		{"early", "2024-01-04", "00:10:00"},
	})
}

func TestSearcherAppliesFilter(t *testing.T) {
	snap := lateNightSnapshot()
	s := NewSearcher(snap, timeutil.FixedClock{T: local(t, snap.Network, "2024-01-04 23:00")})

	// Stop 6 is the terminus of every service, so only arrivals call there.
	got, err := s.Next(6, 2, Filter{})
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Next at a terminus without arr = %v, want none", calls(got))
	}

	got, err = s.Next(6, 2, Filter{Arrivals: true})
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if len(got) != 2 || !got[0].IsArrival() {
		t.Errorf("Next at a terminus with arr = %v, want two arrivals", calls(got))
	}
}

func TestSearcherUnknownStop(t *testing.T) {
	snap := timetable.NewSnapshot(networktest.New(), nil, nil, time.Time{})
	_, err := NewSearcher(snap, timeutil.SystemClock{}).Next(99, 5, Filter{})
	if _, ok := err.(*network.UnknownStopError); !ok {
		t.Errorf("Next at unknown stop = %v, want UnknownStopError", err)
	}
}
