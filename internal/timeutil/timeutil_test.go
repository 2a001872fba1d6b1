package timeutil

import (
	"testing"
	"time"
)

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Skipf("timezone %s unavailable: %v", name, err)
	}
	return loc
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input   string
		want    Date
		wantErr bool
	}{
		{"20230915", Date{2023, time.September, 15}, false},
		{"2023-09-15", Date{2023, time.September, 15}, false},
		{"2024-02-29", Date{2024, time.February, 29}, false},
		{"2023-02-29", Date{}, true},
		{"2023-13-01", Date{}, true},
		{"15/09/2023", Date{}, true},
		{"", Date{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDateArithmetic(t *testing.T) {
	d := Date{2023, time.December, 31}
	if got := d.AddDays(1); got != (Date{2024, time.January, 1}) {
		t.Errorf("AddDays(1) = %v, want 2024-01-01", got)
	}
	if got := d.AddDays(-365); got != (Date{2022, time.December, 31}) {
		t.Errorf("AddDays(-365) = %v, want 2022-12-31", got)
	}
	if got := d.Weekday(); got != time.Sunday {
		t.Errorf("Weekday() = %v, want Sunday", got)
	}
	if !d.After(d.AddDays(-1)) || d.Before(d) {
		t.Error("Before/After ordering is wrong")
	}
	if got := d.Compact(); got != "20231231" {
		t.Errorf("Compact() = %q, want 20231231", got)
	}
}

func TestDateAtHandlesDST(t *testing.T) {
	melbourne := mustLoad(t, "Australia/Melbourne")

	tests := []struct {
		name    string
		date    Date
		instant time.Time
		want    TimetableTime
	}{
		{"plain day", Date{2023, time.September, 15}, time.Date(2023, 9, 15, 10, 4, 0, 0, time.UTC), HMS(20, 4, 0)},
		{"previous day frame", Date{2023, time.September, 14}, time.Date(2023, 9, 15, 10, 4, 0, 0, time.UTC), HMS(44, 4, 0)},
		{"early morning", Date{2023, time.September, 15}, time.Date(2023, 9, 15, 20, 4, 0, 0, time.UTC), HMS(30, 4, 0)},
		{"dst start day", Date{2023, time.October, 1}, time.Date(2023, 10, 1, 10, 4, 0, 0, time.UTC), HMS(21, 4, 0)},
		{"day before dst start", Date{2023, time.September, 30}, time.Date(2023, 10, 1, 10, 4, 0, 0, time.UTC), HMS(44, 4, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.date.TimetableTimeOf(tt.instant, melbourne)
			if got != tt.want {
				t.Errorf("TimetableTimeOf = %v, want %v", got, tt.want)
			}
			if back := tt.date.At(got, melbourne); !back.Equal(tt.instant) {
				t.Errorf("At(%v) = %v, want %v", got, back, tt.instant)
			}
		})
	}
}

func TestParseTimetableTime(t *testing.T) {
	tests := []struct {
		input   string
		want    TimetableTime
		wantErr bool
	}{
		{"08:30", HMS(8, 30, 0), false},
		{"8:30", HMS(8, 30, 0), false},
		{"08:30:15", HMS(8, 30, 15), false},
		{"25:30:00", HMS(25, 30, 0), false},
		{"00:00", 0, false},
		{"08:60", 0, true},
		{"0830", 0, true},
		{"ab:cd", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTimetableTime(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTimetableTime(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseTimetableTime(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTimetableTimeString(t *testing.T) {
	if got := HMS(25, 3, 9).String(); got != "25:03:09" {
		t.Errorf("String() = %q, want 25:03:09", got)
	}
	if got := TimetableTime(-60).String(); got != "-00:01:00" {
		t.Errorf("String() = %q, want -00:01:00", got)
	}
}

func TestNullTimeJSON(t *testing.T) {
	var n NullTime
	if err := n.UnmarshalJSON([]byte(`"24:05:00"`)); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if n != Some(HMS(24, 5, 0)) {
		t.Errorf("UnmarshalJSON = %v, want 24:05:00", n)
	}
	b, _ := NullTime{}.MarshalJSON()
	if string(b) != "null" {
		t.Errorf("MarshalJSON(absent) = %s, want null", b)
	}
}

func TestParseNullTimes(t *testing.T) {
	got, err := ParseNullTimes([]string{"08:00", "-", "", "08:10"})
	if err != nil {
		t.Fatalf("ParseNullTimes: %v", err)
	}
	want := []NullTime{Some(HMS(8, 0, 0)), {}, {}, Some(HMS(8, 10, 0))}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ParseNullTimes[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestWeekdayRange(t *testing.T) {
	tests := []struct {
		input   string
		in      []time.Weekday
		out     []time.Weekday
		wantErr bool
	}{
		{"MTWTF--", []time.Weekday{time.Monday, time.Friday}, []time.Weekday{time.Saturday, time.Sunday}, false},
		{"-----SS", []time.Weekday{time.Saturday, time.Sunday}, []time.Weekday{time.Monday}, false},
		{"mtwtfss", []time.Weekday{time.Wednesday}, nil, false},
		{"MTWTF-", nil, nil, true},
		{"XTWTF--", nil, nil, true},
		{"TMWTF--", nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			r, err := ParseWeekdayRange(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseWeekdayRange(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			for _, d := range tt.in {
				if !r.Includes(d) {
					t.Errorf("%q should include %v", tt.input, d)
				}
			}
			for _, d := range tt.out {
				if r.Includes(d) {
					t.Errorf("%q should not include %v", tt.input, d)
				}
			}
		})
	}

	if got := Weekdays(time.Monday, time.Sunday).String(); got != "M-----S" {
		t.Errorf("String() = %q, want M-----S", got)
	}
	if got := AllDays.String(); got != "MTWTFSS" {
		t.Errorf("AllDays.String() = %q, want MTWTFSS", got)
	}
}
