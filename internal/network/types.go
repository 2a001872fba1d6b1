package network

import (
	"strconv"
	"time"

	"trainquery/internal/timeutil"
)

// LineID identifies a line in the network.
type LineID int

// StopID identifies a stop in the network.
type StopID int

// RouteVariantID names a variant of a line's route, e.g. one arm of a Y
// branch.
type RouteVariantID string

// DirectionID names a direction of travel along a route.
type DirectionID string

func (l LineID) String() string { return strconv.Itoa(int(l)) }
func (s StopID) String() string { return strconv.Itoa(int(s)) }

// Stop is a physical stop or station.
type Stop struct {
	ID   StopID `json:"id"`
	Name string `json:"name"`
}

// RouteStop is a stop on a route. Via stops are passed through without
// stopping and never appear in stop lists.
type RouteStop struct {
	Stop StopID `json:"stop"`
	Via  bool   `json:"via,omitempty"`
}

// DirectionDefinition labels one direction of a route.
type DirectionDefinition struct {
	ID   DirectionID `json:"id"`
	Name string      `json:"name"`
}

// StopList is the ordered stopping pattern for one variant and direction.
type StopList struct {
	Variant   RouteVariantID `json:"variant"`
	Direction DirectionID    `json:"direction"`
	Stops     []StopID       `json:"stops"`
}

// ContinuationOption is a line a service may continue onto once it reaches
// the end of its current route.
type ContinuationOption struct {
	Line      LineID         `json:"line"`
	Variant   RouteVariantID `json:"variant"`
	Direction DirectionID    `json:"direction"`
}

// ContinuationRule lists the continuation options for services finishing
// the given variant and direction of a line.
type ContinuationRule struct {
	Variant   RouteVariantID       `json:"variant"`
	Direction DirectionID          `json:"direction"`
	Options   []ContinuationOption `json:"options"`
}

// Line is a named service pattern with a route.
type Line struct {
	ID            LineID             `json:"id"`
	Name          string             `json:"name"`
	Code          string             `json:"code,omitempty"`
	Route         Route              `json:"route"`
	Continuations []ContinuationRule `json:"continuations,omitempty"`
}

// FeedConfig describes one GTFS source (or one sub-feed of a combined
// source).
type FeedConfig struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	// StopIDs maps GTFS stop_id values onto network stops. Unlisted IDs
	// are read as numeric network stop IDs.
	StopIDs map[string]StopID `json:"stopIDs,omitempty"`
	// Vetoes suppresses GTFS trips on particular service_ids, keyed by
	// trip_id. Used to work around known-bad feed data.
	Vetoes map[string][]string `json:"vetoes,omitempty"`
}

// ResolveStop maps a GTFS stop ID onto a network stop.
func (f FeedConfig) ResolveStop(gtfsStopID string) (StopID, bool) {
	if id, ok := f.StopIDs[gtfsStopID]; ok {
		return id, true
	}
	n, err := strconv.Atoi(gtfsStopID)
	if err != nil {
		return 0, false
	}
	return StopID(n), true
}

// StaticTimetable is a timetable written directly into the network config.
type StaticTimetable struct {
	ID      string        `json:"id"`
	Line    LineID        `json:"line"`
	Begins  timeutil.Date `json:"begins"`
	Ends    timeutil.Date `json:"ends"`
	Entries []StaticEntry `json:"entries"`
}

// StaticEntry is one service in a static timetable.
type StaticEntry struct {
	Variant   RouteVariantID        `json:"variant"`
	Direction DirectionID           `json:"direction"`
	Weekdays  timeutil.WeekdayRange `json:"weekdays"`
	Times     []timeutil.NullTime   `json:"times"`
}

// Network is the immutable route topology plus the data sources bound to
// it.
type Network struct {
	Name       string            `json:"name"`
	Timezone   *time.Location    `json:"-"`
	Stops      []Stop            `json:"stops"`
	Lines      []*Line           `json:"lines"`
	Feeds      []FeedConfig      `json:"feeds,omitempty"`
	Timetables []StaticTimetable `json:"timetables,omitempty"`

	lineIndex map[LineID]*Line
	stopIndex map[StopID]Stop
}
