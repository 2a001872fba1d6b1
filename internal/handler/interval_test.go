package handler

import (
	"testing"
	"time"
)

func TestDetectInterval(t *testing.T) {
	base := time.Date(2024, 1, 3, 8, 0, 0, 0, time.UTC)
	at := func(mins ...int) []time.Time {
		out := make([]time.Time, len(mins))
		for i, m := range mins {
			out[i] = base.Add(time.Duration(m) * time.Minute)
		}
		return out
	}

	tests := []struct {
		name  string
		times []time.Time
		want  string
	}{
		{"too few", at(0, 10), ""},
		{"regular", at(0, 10, 20, 30, 40), "Every 10 min until 8:40 AM"},
		{"jitter within tolerance", at(0, 9, 20, 29, 40), "Every 10 min until 8:40 AM"},
		{"rounds to five", at(0, 12, 24, 36), "Every 10 min until 8:36 AM"},
		{"irregular", at(0, 5, 30, 32, 90), ""},
		{"pattern then gap", at(0, 15, 30, 45, 120), "Every 15 min until 8:45 AM"},
		{"daily service", at(0, 1440, 2880, 4320), ""},
		{"duplicates ignored", at(0, 0, 20, 40, 60), "Every 20 min until 9:00 AM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectInterval(tt.times); got != tt.want {
				t.Errorf("detectInterval = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAbs(t *testing.T) {
	tests := []struct {
		input, want int
	}{
		{0, 0},
		{5, 5},
		{-5, 5},
		{-1, 1},
	}
	for _, tt := range tests {
		if got := abs(tt.input); got != tt.want {
			t.Errorf("abs(%d) = %d, want %d", tt.input, got, tt.want)
		}
	}
}
