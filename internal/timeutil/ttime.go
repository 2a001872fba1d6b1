package timeutil

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimetableTime is a time of day in seconds since the start of a timetable
// day. Services running past midnight keep counting, so 25:30 is valid.
type TimetableTime int32

// HMS builds a TimetableTime from hours, minutes and seconds.
func HMS(h, m, s int) TimetableTime {
	return TimetableTime(h*3600 + m*60 + s)
}

// ParseTimetableTime accepts "H:MM", "HH:MM" and "HH:MM:SS", hours may
// exceed 23.
func ParseTimetableTime(s string) (TimetableTime, error) {
	s = strings.TrimSpace(s)
	var h, m, sec int
	var n int
	var err error
	switch strings.Count(s, ":") {
	case 1:
		n, err = fmt.Sscanf(s, "%d:%d", &h, &m)
		if n != 2 {
			err = fmt.Errorf("expected H:MM")
		}
	case 2:
		n, err = fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec)
		if n != 3 {
			err = fmt.Errorf("expected H:MM:SS")
		}
	default:
		err = fmt.Errorf("expected H:MM or H:MM:SS")
	}
	if err != nil {
		return 0, fmt.Errorf("invalid timetable time %q: %w", s, err)
	}
	if h < 0 || m < 0 || m > 59 || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("invalid timetable time %q: out of range", s)
	}
	return HMS(h, m, sec), nil
}

func (t TimetableTime) Hour() int   { return int(t) / 3600 }
func (t TimetableTime) Minute() int { return int(t) / 60 % 60 }
func (t TimetableTime) Second() int { return int(t) % 60 }

// Duration is the offset of t from the start of its timetable day.
func (t TimetableTime) Duration() time.Duration {
	return time.Duration(t) * time.Second
}

// String formats t as HH:MM:SS. Negative values keep a leading sign.
func (t TimetableTime) String() string {
	sign := ""
	if t < 0 {
		sign = "-"
		t = -t
	}
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, t.Hour(), t.Minute(), t.Second())
}

// NullTime is a TimetableTime that may be absent, for stops a service
// skips.
type NullTime struct {
	Time  TimetableTime
	Valid bool
}

// Some wraps t as a present NullTime.
func Some(t TimetableTime) NullTime {
	return NullTime{Time: t, Valid: true}
}

func (n NullTime) String() string {
	if !n.Valid {
		return "-"
	}
	return n.Time.String()
}

func (n NullTime) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Time.String())
}

func (n *NullTime) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = NullTime{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := ParseTimetableTime(s)
	if err != nil {
		return err
	}
	*n = Some(t)
	return nil
}

// ParseNullTimes parses a row of times where "-" or "" marks a skipped stop.
func ParseNullTimes(fields []string) ([]NullTime, error) {
	out := make([]NullTime, len(fields))
	for i, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" || f == "-" {
			continue
		}
		t, err := ParseTimetableTime(f)
		if err != nil {
			return nil, err
		}
		out[i] = Some(t)
	}
	return out, nil
}
