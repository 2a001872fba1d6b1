// Package networktest builds small networks for tests.
package networktest

import (
	"time"

	"trainquery/internal/network"
)

// Stop and line IDs used by New.
const (
	LineAlpha network.LineID = 1
	LineBeta  network.LineID = 2
	LineGamma network.LineID = 3

	Up   network.DirectionID = "up"
	Down network.DirectionID = "down"

	Citybound network.DirectionID = "citybound"
	Outbound  network.DirectionID = "outbound"

	East network.RouteVariantID = "east"
	West network.RouteVariantID = "west"
)

// Stops returns stops 1 through 12.
func Stops() []network.Stop {
	names := []string{
		"Ashby", "Birch", "Cole", "Dale", "Elm", "Fern",
		"Glen", "Hill", "Ivy", "Jade", "Kent", "Lark",
	}
	stops := make([]network.Stop, len(names))
	for i, n := range names {
		stops[i] = network.Stop{ID: network.StopID(i + 1), Name: n}
	}
	return stops
}

// Linear is a linear route over the given stops with up/down directions.
// Negative IDs mark via stops.
func Linear(ids ...int) *network.LinearRoute {
	return &network.LinearRoute{
		Variant: network.DefaultVariant,
		Forward: network.DirectionDefinition{ID: Up, Name: "Up"},
		Reverse: network.DirectionDefinition{ID: Down, Name: "Down"},
		Stops:   RouteStops(ids...),
	}
}

// RouteStops converts IDs into route stops; negative IDs become via stops.
func RouteStops(ids ...int) []network.RouteStop {
	out := make([]network.RouteStop, len(ids))
	for i, id := range ids {
		if id < 0 {
			out[i] = network.RouteStop{Stop: network.StopID(-id), Via: true}
			continue
		}
		out[i] = network.RouteStop{Stop: network.StopID(id)}
	}
	return out
}

// New returns a three-line network in Australia/Melbourne (falling back to
// a fixed +10:00 zone):
//
//	Alpha  linear    1 2 (9) 3 4       continues up onto Beta
//	Beta   linear    4 5 6
//	Gamma  y-branch  east 7 8 | west 10 11 | shared 12 1
func New() *network.Network {
	tz, err := time.LoadLocation("Australia/Melbourne")
	if err != nil {
		tz = time.FixedZone("AEST", 10*60*60)
	}

	lines := []*network.Line{
		{
			ID:    LineAlpha,
			Name:  "Alpha",
			Route: Linear(1, 2, -9, 3, 4),
			Continuations: []network.ContinuationRule{{
				Variant:   network.DefaultVariant,
				Direction: Up,
				Options: []network.ContinuationOption{
					{Line: LineBeta, Variant: network.DefaultVariant, Direction: Up},
				},
			}},
		},
		{
			ID:    LineBeta,
			Name:  "Beta",
			Route: Linear(4, 5, 6),
		},
		{
			ID:   LineGamma,
			Name: "Gamma",
			Route: &network.YBranchRoute{
				Forward:      network.DirectionDefinition{ID: Citybound, Name: "Citybound"},
				Reverse:      network.DirectionDefinition{ID: Outbound, Name: "Outbound"},
				FirstBranch:  network.Branch{ID: East, Stops: RouteStops(7, 8)},
				SecondBranch: network.Branch{ID: West, Stops: RouteStops(10, 11)},
				Shared:       RouteStops(12, 1),
			},
		},
	}

	n, err := network.New("test", tz, Stops(), lines)
	if err != nil {
		panic(err)
	}
	return n
}
