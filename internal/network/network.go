package network

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// New indexes lines and stops and returns the network. It fails on
// duplicate line or stop IDs; deeper checks are left to Validate.
func New(name string, tz *time.Location, stops []Stop, lines []*Line) (*Network, error) {
	if tz == nil {
		tz = time.UTC
	}
	n := &Network{
		Name:      name,
		Timezone:  tz,
		Stops:     stops,
		Lines:     lines,
		lineIndex: make(map[LineID]*Line, len(lines)),
		stopIndex: make(map[StopID]Stop, len(stops)),
	}
	for _, s := range stops {
		if _, dup := n.stopIndex[s.ID]; dup {
			return nil, fmt.Errorf("duplicate stop %d", s.ID)
		}
		n.stopIndex[s.ID] = s
	}
	for _, l := range lines {
		if l.Route == nil {
			return nil, fmt.Errorf("line %d has no route", l.ID)
		}
		if _, dup := n.lineIndex[l.ID]; dup {
			return nil, fmt.Errorf("duplicate line %d", l.ID)
		}
		n.lineIndex[l.ID] = l
	}
	return n, nil
}

// Line returns the line with the given ID, or nil.
func (n *Network) Line(id LineID) *Line {
	return n.lineIndex[id]
}

// RequireLine is Line but fails with UnknownLineError.
func (n *Network) RequireLine(id LineID) (*Line, error) {
	l := n.lineIndex[id]
	if l == nil {
		return nil, &UnknownLineError{Line: id}
	}
	return l, nil
}

// Stop returns the stop with the given ID.
func (n *Network) Stop(id StopID) (Stop, bool) {
	s, ok := n.stopIndex[id]
	return s, ok
}

// RequireStop is Stop but fails with UnknownStopError.
func (n *Network) RequireStop(id StopID) (Stop, error) {
	s, ok := n.stopIndex[id]
	if !ok {
		return Stop{}, &UnknownStopError{Stop: id}
	}
	return s, nil
}

// LinesAt returns the lines whose routes call at stop, in config order.
func (n *Network) LinesAt(stop StopID) []*Line {
	var out []*Line
	for _, l := range n.Lines {
		if l.Route.StopsAt(stop) {
			out = append(out, l)
		}
	}
	return out
}

// RequireStopList resolves a stop list, filling in the line on selector
// errors.
func (n *Network) RequireStopList(line LineID, variant RouteVariantID, direction DirectionID) ([]StopID, error) {
	l, err := n.RequireLine(line)
	if err != nil {
		return nil, err
	}
	return l.RequireStopList(variant, direction)
}

// RequireStopList is Route.RequireStopList with the line recorded on
// failure.
func (l *Line) RequireStopList(variant RouteVariantID, direction DirectionID) ([]StopID, error) {
	stops, err := l.Route.RequireStopList(variant, direction)
	var sel *InvalidRouteSelectorError
	if errors.As(err, &sel) {
		sel.Line = l.ID
	}
	return stops, err
}

// ContinuationOptions returns the lines a service on (line, variant,
// direction) may continue onto after reaching its terminus. The result is
// empty when no rule is configured.
func (n *Network) ContinuationOptions(line LineID, variant RouteVariantID, direction DirectionID) []ContinuationOption {
	l := n.lineIndex[line]
	if l == nil {
		return nil
	}
	for _, rule := range l.Continuations {
		if rule.Variant == variant && rule.Direction == direction {
			return rule.Options
		}
	}
	return nil
}

// Hash identifies this exact network config. GTFS data built against one
// network is only reused when the hashes agree.
func (n *Network) Hash() string {
	b, err := json.Marshal(struct {
		Timezone string `json:"timezone"`
		*Network
	}{n.Timezone.String(), n})
	if err != nil {
		// Every field is plain data; Marshal cannot fail here.
		panic(fmt.Sprintf("hash network: %v", err))
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
