package handler

import (
	"fmt"
	"time"
)

// maxInterval is the longest gap, in minutes, still shown as a frequency.
const maxInterval = 120

// detectInterval examines upcoming departures of one line and direction
// and returns a human-readable interval string like "Every 20 min until
// 8:00 PM". Returns empty string if no regular interval is detected.
func detectInterval(departures []time.Time) string {
	// Services calling at the same minute count once
	var times []time.Time
	for _, t := range departures {
		if n := len(times); n == 0 || t.Sub(times[n-1]) >= time.Minute {
			times = append(times, t)
		}
	}
	if len(times) < 3 {
		return ""
	}

	intervals := make([]int, len(times)-1)
	for i := 1; i < len(times); i++ {
		intervals[i-1] = int(times[i].Sub(times[i-1]).Minutes())
	}

	// Find the longest run of consistent intervals (within ±2 min tolerance)
	bestStart, bestLen := 0, 1
	curStart, curLen := 0, 1
	for i := 1; i < len(intervals); i++ {
		if abs(intervals[i]-intervals[curStart]) <= 2 {
			curLen++
			continue
		}
		if curLen > bestLen {
			bestStart, bestLen = curStart, curLen
		}
		curStart, curLen = i, 1
	}
	if curLen > bestLen {
		bestStart, bestLen = curStart, curLen
	}

	// Need at least 3 consistent intervals to call it a pattern
	if bestLen < 3 {
		return ""
	}

	sum := 0
	for i := bestStart; i < bestStart+bestLen; i++ {
		sum += intervals[i]
	}
	avg := sum / bestLen

	// Round to nearest 5 minutes for cleaner display
	rounded := ((avg + 2) / 5) * 5
	if rounded == 0 {
		rounded = avg
	}
	if rounded > maxInterval {
		return ""
	}

	endIdx := bestStart + bestLen
	if endIdx >= len(times) {
		endIdx = len(times) - 1
	}
	return fmt.Sprintf("Every %d min until %s", rounded, times[endIdx].Format("3:04 PM"))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
