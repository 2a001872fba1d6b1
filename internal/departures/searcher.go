package departures

import (
	"time"

	"trainquery/internal/network"
	"trainquery/internal/timetable"
	"trainquery/internal/timeutil"
)

// MaxIterations is how many pages (days) a Searcher reads before giving up
// on filling a request.
const MaxIterations = 7

// Searcher pages through GetPossibilities until it has enough results.
type Searcher struct {
	snap  *timetable.Snapshot
	clock timeutil.Clock
}

// NewSearcher creates a Searcher over snap.
func NewSearcher(snap *timetable.Snapshot, clock timeutil.Clock) *Searcher {
	return &Searcher{snap: snap, clock: clock}
}

// Next returns up to count calls at stop from now onwards.
func (s *Searcher) Next(stop network.StopID, count int, filter Filter) ([]Possibility, error) {
	return s.Search(stop, s.clock.Now(), count, false, filter)
}

// Previous returns up to count calls at stop before now, latest first.
func (s *Searcher) Previous(stop network.StopID, count int, filter Filter) ([]Possibility, error) {
	return s.Search(stop, s.clock.Now(), count, true, filter)
}

// Search returns up to count calls at stop from instant, forwards or
// backwards in time.
func (s *Searcher) Search(stop network.StopID, instant time.Time, count int, reverse bool, filter Filter) ([]Possibility, error) {
	if _, err := s.snap.Network.RequireStop(stop); err != nil {
		return nil, err
	}

	var out []Possibility
	for i := 0; i < MaxIterations && len(out) < count; i++ {
		page, err := GetPossibilities(s.snap, stop, instant, i, reverse, filter.Lines)
		if err != nil {
			return nil, err
		}
		out = append(out, filter.Apply(page)...)
	}
	if len(out) > count {
		out = out[:count]
	}
	return out, nil
}
