// Package match aligns an observed sequence of stop calls with the routes of
// a network, following continuations when a service runs on past the end of
// one line onto another.
package match

import (
	"fmt"
	"slices"

	"trainquery/internal/network"
)

// MaxContinuationDepth bounds how many continuations a single match may
// chain through.
const MaxContinuationDepth = 16

// Observation is one stop call of an observed service with a caller
// supplied payload, typically a time.
type Observation[T any] struct {
	Stop  network.StopID
	Value T
}

// MatchedRoute is the route an observed service was matched to. Values has
// one slot per stop of the route's full stop list; nil slots are stops the
// service did not call at. StopCount is the number of observations this
// leg consumed.
type MatchedRoute[T any] struct {
	Line            network.LineID
	AssociatedLines []network.LineID
	Variant         network.RouteVariantID
	Direction       network.DirectionID
	Values          []*T
	StopCount       int
	Continuation    *MatchedRoute[T]
}

// Legs flattens the continuation chain, starting with m.
func (m *MatchedRoute[T]) Legs() []*MatchedRoute[T] {
	var legs []*MatchedRoute[T]
	for leg := m; leg != nil; leg = leg.Continuation {
		legs = append(legs, leg)
	}
	return legs
}

// TotalStopCount counts distinct observations consumed across the chain.
// A continuation's first stop is the previous leg's terminus, so it is
// counted once.
func (m *MatchedRoute[T]) TotalStopCount() int {
	total := 0
	for i, leg := range m.Legs() {
		total += leg.StopCount
		if i > 0 {
			total--
		}
	}
	return total
}

// ContinuationCycleError is returned when continuation matching nests
// deeper than MaxContinuationDepth, which only happens when the
// continuation tables loop.
type ContinuationCycleError struct {
	Depth     int
	Line      network.LineID
	Variant   network.RouteVariantID
	Direction network.DirectionID
}

func (e *ContinuationCycleError) Error() string {
	return fmt.Sprintf("continuation depth %d exceeded at line %d (%s, %s)",
		e.Depth, e.Line, e.Variant, e.Direction)
}

type candidate struct {
	line      network.LineID
	variant   network.RouteVariantID
	direction network.DirectionID
	stops     []network.StopID
}

// MatchToRoute finds the route that best explains order. When options is
// nil every stop list of every line is a candidate; otherwise only the
// given continuation options are.
//
// It returns nil with a nil error when nothing matches. Errors are reserved
// for bad continuation config: an option naming an invalid route selector,
// or a continuation chain deeper than MaxContinuationDepth.
func MatchToRoute[T any](net *network.Network, order []Observation[T], options []network.ContinuationOption) (*MatchedRoute[T], error) {
	return matchToRoute(net, order, options, 0)
}

func matchToRoute[T any](net *network.Network, order []Observation[T], options []network.ContinuationOption, depth int) (*MatchedRoute[T], error) {
	if len(order) == 0 {
		return nil, nil
	}

	candidates, err := combinations(net, options)
	if err != nil {
		return nil, err
	}

	var matches []*MatchedRoute[T]
	for _, c := range candidates {
		values, consumed := slot(c.stops, order)

		if consumed == len(order) {
			matches = append(matches, &MatchedRoute[T]{
				Line:      c.line,
				Variant:   c.variant,
				Direction: c.direction,
				Values:    values,
				StopCount: consumed,
			})
			continue
		}

		// Only try a continuation when the service called at this route's
		// terminus and something other than the terminus matched.
		if consumed < 2 || values[len(values)-1] == nil {
			continue
		}
		next := net.ContinuationOptions(c.line, c.variant, c.direction)
		if len(next) == 0 {
			continue
		}
		if depth+1 > MaxContinuationDepth {
			return nil, &ContinuationCycleError{Depth: depth + 1, Line: c.line, Variant: c.variant, Direction: c.direction}
		}
		cont, err := matchToRoute(net, order[consumed-1:], next, depth+1)
		if err != nil {
			return nil, err
		}
		matches = append(matches, &MatchedRoute[T]{
			Line:         c.line,
			Variant:      c.variant,
			Direction:    c.direction,
			Values:       values,
			StopCount:    consumed,
			Continuation: cont,
		})
	}

	return best(matches), nil
}

// slot greedily places each observation at the first matching stop at or
// after the previous placement.
func slot[T any](stops []network.StopID, order []Observation[T]) ([]*T, int) {
	values := make([]*T, len(stops))
	consumed := 0
	for i, stop := range stops {
		if consumed == len(order) {
			break
		}
		if stop == order[consumed].Stop {
			v := order[consumed].Value
			values[i] = &v
			consumed++
		}
	}
	return values, consumed
}

// best picks the first match with the highest StopCount and records the
// other lines that tied with it.
func best[T any](matches []*MatchedRoute[T]) *MatchedRoute[T] {
	if len(matches) == 0 {
		return nil
	}
	winner := matches[0]
	for _, m := range matches[1:] {
		if m.StopCount > winner.StopCount {
			winner = m
		}
	}

	result := *winner
	result.AssociatedLines = nil
	for _, m := range matches {
		if m.StopCount != winner.StopCount || m.Line == winner.Line {
			continue
		}
		if !slices.Contains(result.AssociatedLines, m.Line) {
			result.AssociatedLines = append(result.AssociatedLines, m.Line)
		}
	}
	return &result
}

func combinations(net *network.Network, options []network.ContinuationOption) ([]candidate, error) {
	var out []candidate
	if options != nil {
		for _, o := range options {
			stops, err := net.RequireStopList(o.Line, o.Variant, o.Direction)
			if err != nil {
				return nil, fmt.Errorf("continuation option: %w", err)
			}
			out = append(out, candidate{line: o.Line, variant: o.Variant, direction: o.Direction, stops: stops})
		}
		return out, nil
	}

	for _, l := range net.Lines {
		for _, sl := range l.Route.StopLists() {
			out = append(out, candidate{line: l.ID, variant: sl.Variant, direction: sl.Direction, stops: sl.Stops})
		}
	}
	return out, nil
}
