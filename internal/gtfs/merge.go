package gtfs

import "fmt"

// Merge combines data built from separate sub-feeds into one. Calendars and
// trips are tagged with the sub-feed they came from so that service_id
// values can repeat across sub-feeds. The merged data is as old as its
// oldest input. Inputs are not modified.
func Merge(feeds []*Data, subfeedIDs []string) (*Data, error) {
	if len(feeds) == 0 {
		return nil, &MergeError{Reason: ErrNoFeeds}
	}
	if len(feeds) != len(subfeedIDs) {
		return nil, &MergeError{
			Reason: ErrFeedCountMismatch,
			Detail: fmt.Sprintf("%d feeds, %d IDs", len(feeds), len(subfeedIDs)),
		}
	}

	seen := make(map[string]bool, len(subfeedIDs))
	for _, id := range subfeedIDs {
		if seen[id] {
			return nil, &MergeError{Reason: ErrDuplicateSubfeed, Detail: id}
		}
		seen[id] = true
	}

	hash := feeds[0].ConfigHash
	for i, f := range feeds[1:] {
		if f.ConfigHash != hash {
			return nil, &MergeError{
				Reason: ErrConfigHashMismatch,
				Detail: fmt.Sprintf("subfeed %q", subfeedIDs[i+1]),
			}
		}
	}

	var (
		calendars []Calendar
		trips     []*Trip
		report    Report
		age       = feeds[0].Age
	)
	for i, f := range feeds {
		id := subfeedIDs[i]
		for _, c := range f.Calendars {
			calendars = append(calendars, c.WithSubfeedID(id))
		}
		for _, t := range f.Trips {
			trips = append(trips, t.WithSubfeedID(id))
		}
		report = report.Merge(f.Report)
		if f.Age.Before(age) {
			age = f.Age
		}
	}

	return NewData(calendars, trips, hash, report, age), nil
}
