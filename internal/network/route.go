package network

import (
	"encoding/json"
	"fmt"
	"slices"
)

// DefaultVariant is the variant ID of a linear route when none is given.
const DefaultVariant RouteVariantID = "main"

// Route is the stop topology of a line. The set of implementations is
// closed: LinearRoute and YBranchRoute.
type Route interface {
	// RequireStopList returns the non-via stops for the variant and
	// direction, in travel order.
	RequireStopList(variant RouteVariantID, direction DirectionID) ([]StopID, error)
	// StopLists returns every valid stop list of the route.
	StopLists() []StopList
	// PossibleDirections returns each direction once, in first-seen order.
	PossibleDirections() []DirectionID
	// StopsAt reports whether the route calls at stop (via stops excluded).
	StopsAt(stop StopID) bool
	// RouteStops returns every stop of the route including via stops.
	RouteStops() []RouteStop

	sealed()
}

// LinearRoute runs along a single sequence of stops.
type LinearRoute struct {
	Variant RouteVariantID
	Forward DirectionDefinition
	Reverse DirectionDefinition
	Stops   []RouteStop
}

func (*LinearRoute) sealed() {}

func (r *LinearRoute) RequireStopList(variant RouteVariantID, direction DirectionID) ([]StopID, error) {
	if variant == r.Variant {
		switch direction {
		case r.Forward.ID:
			return nonViaStops(r.Stops), nil
		case r.Reverse.ID:
			return reversed(nonViaStops(r.Stops)), nil
		}
	}
	return nil, &InvalidRouteSelectorError{Variant: variant, Direction: direction}
}

func (r *LinearRoute) StopLists() []StopList {
	stops := nonViaStops(r.Stops)
	return []StopList{
		{Variant: r.Variant, Direction: r.Forward.ID, Stops: stops},
		{Variant: r.Variant, Direction: r.Reverse.ID, Stops: reversed(stops)},
	}
}

func (r *LinearRoute) PossibleDirections() []DirectionID {
	return distinctDirections(r.StopLists())
}

func (r *LinearRoute) StopsAt(stop StopID) bool {
	return containsStop(stop, r.Stops)
}

func (r *LinearRoute) RouteStops() []RouteStop {
	return slices.Clone(r.Stops)
}

func (r *LinearRoute) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    string              `json:"type"`
		Variant RouteVariantID      `json:"variant"`
		Forward DirectionDefinition `json:"forward"`
		Reverse DirectionDefinition `json:"reverse"`
		Stops   []RouteStop         `json:"stops"`
	}{"linear", r.Variant, r.Forward, r.Reverse, r.Stops})
}

// Branch is one arm of a YBranchRoute, stops ordered from the tip of the
// branch to the stop before the shared section.
type Branch struct {
	ID    RouteVariantID `json:"id"`
	Stops []RouteStop    `json:"stops"`
}

// YBranchRoute has two branches at one end joining a shared section.
// Forward runs from a branch tip along the shared section; reverse runs
// back out to a branch.
type YBranchRoute struct {
	Forward      DirectionDefinition
	Reverse      DirectionDefinition
	FirstBranch  Branch
	SecondBranch Branch
	Shared       []RouteStop
}

func (*YBranchRoute) sealed() {}

func (r *YBranchRoute) RequireStopList(variant RouteVariantID, direction DirectionID) ([]StopID, error) {
	for _, b := range r.branches() {
		if variant != b.ID {
			continue
		}
		stops := nonViaStops(b.Stops, r.Shared)
		switch direction {
		case r.Forward.ID:
			return stops, nil
		case r.Reverse.ID:
			return reversed(stops), nil
		}
	}
	return nil, &InvalidRouteSelectorError{Variant: variant, Direction: direction}
}

func (r *YBranchRoute) StopLists() []StopList {
	var lists []StopList
	for _, b := range r.branches() {
		stops := nonViaStops(b.Stops, r.Shared)
		lists = append(lists,
			StopList{Variant: b.ID, Direction: r.Forward.ID, Stops: stops},
			StopList{Variant: b.ID, Direction: r.Reverse.ID, Stops: reversed(stops)},
		)
	}
	return lists
}

func (r *YBranchRoute) PossibleDirections() []DirectionID {
	return distinctDirections(r.StopLists())
}

func (r *YBranchRoute) StopsAt(stop StopID) bool {
	return containsStop(stop, r.Shared, r.FirstBranch.Stops, r.SecondBranch.Stops)
}

func (r *YBranchRoute) RouteStops() []RouteStop {
	var out []RouteStop
	out = append(out, r.FirstBranch.Stops...)
	out = append(out, r.SecondBranch.Stops...)
	return append(out, r.Shared...)
}

func (r *YBranchRoute) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type         string              `json:"type"`
		Forward      DirectionDefinition `json:"forward"`
		Reverse      DirectionDefinition `json:"reverse"`
		FirstBranch  Branch              `json:"firstBranch"`
		SecondBranch Branch              `json:"secondBranch"`
		Shared       []RouteStop         `json:"shared"`
	}{"y-branch", r.Forward, r.Reverse, r.FirstBranch, r.SecondBranch, r.Shared})
}

func (r *YBranchRoute) branches() [2]Branch {
	return [2]Branch{r.FirstBranch, r.SecondBranch}
}

// RouteType names the kind of route, as used in config files.
func RouteType(r Route) string {
	switch r.(type) {
	case *LinearRoute:
		return "linear"
	case *YBranchRoute:
		return "y-branch"
	}
	panic(fmt.Sprintf("unknown route type %T", r))
}

func nonViaStops(groups ...[]RouteStop) []StopID {
	var out []StopID
	for _, g := range groups {
		for _, s := range g {
			if !s.Via {
				out = append(out, s.Stop)
			}
		}
	}
	return out
}

func reversed(stops []StopID) []StopID {
	out := slices.Clone(stops)
	slices.Reverse(out)
	return out
}

func containsStop(stop StopID, groups ...[]RouteStop) bool {
	for _, g := range groups {
		for _, s := range g {
			if s.Stop == stop && !s.Via {
				return true
			}
		}
	}
	return false
}

func distinctDirections(lists []StopList) []DirectionID {
	var out []DirectionID
	for _, l := range lists {
		if !slices.Contains(out, l.Direction) {
			out = append(out, l.Direction)
		}
	}
	return out
}
