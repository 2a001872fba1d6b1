package timeutil

import (
	"fmt"
	"strings"
	"time"
)

// WeekdayRange is a set of days of the week. Its text form lists Monday
// first, one character per day, with '-' for excluded days: "MTWTF--".
type WeekdayRange uint8

const AllDays WeekdayRange = 0x7f

// weekdayOrder is Monday-first, matching the text form.
var weekdayOrder = [7]time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

const weekdayLetters = "MTWTFSS"

// Weekdays builds a range from the given days.
func Weekdays(days ...time.Weekday) WeekdayRange {
	var r WeekdayRange
	for _, d := range days {
		r |= 1 << uint(d)
	}
	return r
}

// ParseWeekdayRange parses the seven-character text form.
func ParseWeekdayRange(s string) (WeekdayRange, error) {
	if len(s) != 7 {
		return 0, fmt.Errorf("invalid weekday range %q: want 7 characters", s)
	}
	var r WeekdayRange
	for i := 0; i < len(s); i++ {
		c := s[i]
		if 'a' <= c && c <= 'z' {
			c -= 'a' - 'A'
		}
		switch {
		case c == '-':
		case c == weekdayLetters[i]:
			r |= 1 << uint(weekdayOrder[i])
		default:
			return 0, fmt.Errorf("invalid weekday range %q: unexpected %q at %d", s, c, i)
		}
	}
	return r, nil
}

func (r WeekdayRange) Includes(d time.Weekday) bool {
	return r&(1<<uint(d)) != 0
}

func (r WeekdayRange) String() string {
	var b strings.Builder
	for i, d := range weekdayOrder {
		if r.Includes(d) {
			b.WriteByte(weekdayLetters[i])
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

func (r WeekdayRange) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *WeekdayRange) UnmarshalText(b []byte) error {
	parsed, err := ParseWeekdayRange(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
