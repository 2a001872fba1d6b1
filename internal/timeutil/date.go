package timeutil

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Date is a calendar date with no time zone attached. Timetables and
// calendars are keyed by Date; instants only appear once a location is
// supplied through At or DateOf.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

var dateRegex = regexp.MustCompile(`^(\d{4})-?(\d{2})-?(\d{2})$`)

// NewDate returns a normalized date, so NewDate(2024, 1, 32) is 2024-02-01.
func NewDate(year int, month time.Month, day int) Date {
	t := time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// DateOf returns the local calendar date of t in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	t = t.In(loc)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// ParseDate accepts both GTFS (YYYYMMDD) and ISO (YYYY-MM-DD) forms.
func ParseDate(s string) (Date, error) {
	m := dateRegex.FindStringSubmatch(s)
	if m == nil {
		return Date{}, fmt.Errorf("invalid date %q", s)
	}
	y, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	d, _ := strconv.Atoi(m[3])
	date := Date{Year: y, Month: time.Month(mo), Day: d}
	if !date.IsValid() {
		return Date{}, fmt.Errorf("invalid date %q", s)
	}
	return date, nil
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// IsValid reports whether d names a real day.
func (d Date) IsValid() bool {
	if d.Month < time.January || d.Month > time.December || d.Day < 1 {
		return false
	}
	return NewDate(d.Year, d.Month, d.Day) == d
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Compact formats d the way GTFS files do.
func (d Date) Compact() string {
	return fmt.Sprintf("%04d%02d%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// AddDays shifts d by n days, n may be negative.
func (d Date) AddDays(n int) Date {
	return NewDate(d.Year, d.Month, d.Day+n)
}

func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC).Weekday()
}

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Day, o.Day)
	}
}

func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }
func (d Date) After(o Date) bool  { return d.Compare(o) > 0 }

// Midnight is the first instant of d in loc.
func (d Date) Midnight(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// reference is "noon minus 12h", the origin GTFS measures stop times from.
// It differs from midnight on days with a DST transition.
func (d Date) reference(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, loc).Add(-12 * time.Hour)
}

// At converts a timetable time on d into an instant.
func (d Date) At(t TimetableTime, loc *time.Location) time.Time {
	return d.reference(loc).Add(t.Duration())
}

// TimetableTimeOf is the inverse of At: the timetable time on d that
// corresponds to instant. The result is negative for instants before d
// and past 24:00 for instants after it.
func (d Date) TimetableTimeOf(instant time.Time, loc *time.Location) TimetableTime {
	return TimetableTime(instant.Sub(d.reference(loc)) / time.Second)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
