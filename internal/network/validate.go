package network

import (
	"fmt"
)

// Severity grades a validation issue.
type Severity string

const (
	SeverityError      Severity = "error"
	SeverityWarning    Severity = "warning"
	SeveritySuggestion Severity = "suggestion"
)

// Issue is a single validation finding.
type Issue struct {
	Severity Severity
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Severity, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate checks the network for problems that indexing alone does not
// catch. An empty result means the network is consistent.
func (n *Network) Validate() []Issue {
	var issues []Issue
	add := func(sev Severity, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	for _, l := range n.Lines {
		for _, rs := range l.Route.RouteStops() {
			if _, ok := n.stopIndex[rs.Stop]; !ok {
				add(SeverityError, "line %d references unknown stop %d", l.ID, rs.Stop)
			}
		}

		switch r := l.Route.(type) {
		case *LinearRoute:
			if r.Forward.ID == r.Reverse.ID {
				add(SeverityError, "line %d uses direction %q both ways", l.ID, r.Forward.ID)
			}
			if len(nonViaStops(r.Stops)) < 2 {
				add(SeveritySuggestion, "line %d stops at fewer than two stops", l.ID)
			}
		case *YBranchRoute:
			if r.Forward.ID == r.Reverse.ID {
				add(SeverityError, "line %d uses direction %q both ways", l.ID, r.Forward.ID)
			}
			if r.FirstBranch.ID == r.SecondBranch.ID {
				add(SeverityError, "line %d has two branches named %q", l.ID, r.FirstBranch.ID)
			}
			seen := make(map[StopID]string)
			for _, part := range []struct {
				name  string
				stops []RouteStop
			}{
				{string(r.FirstBranch.ID), r.FirstBranch.Stops},
				{string(r.SecondBranch.ID), r.SecondBranch.Stops},
				{"shared", r.Shared},
			} {
				for _, s := range part.stops {
					if s.Via {
						continue
					}
					if prev, ok := seen[s.Stop]; ok {
						add(SeverityError, "line %d stops at %d in both %s and %s", l.ID, s.Stop, prev, part.name)
						continue
					}
					seen[s.Stop] = part.name
				}
			}
		}

		for _, rule := range l.Continuations {
			if _, err := l.RequireStopList(rule.Variant, rule.Direction); err != nil {
				add(SeverityError, "continuation rule on line %d: %v", l.ID, err)
			}
			for _, opt := range rule.Options {
				if _, err := n.RequireStopList(opt.Line, opt.Variant, opt.Direction); err != nil {
					add(SeverityError, "continuation option from line %d: %v", l.ID, err)
				}
			}
		}
	}

	if cycle := n.continuationCycle(); cycle != nil {
		add(SeverityWarning, "continuation cycle through line %d (%s, %s)", cycle.Line, cycle.Variant, cycle.Direction)
	}

	for _, tt := range n.Timetables {
		l := n.lineIndex[tt.Line]
		if l == nil {
			add(SeverityError, "timetable %q references unknown line %d", tt.ID, tt.Line)
			continue
		}
		if !tt.Begins.IsZero() && !tt.Ends.IsZero() && tt.Ends.Before(tt.Begins) {
			add(SeverityError, "timetable %q ends before it begins", tt.ID)
		}
		for i, e := range tt.Entries {
			stops, err := l.RequireStopList(e.Variant, e.Direction)
			if err != nil {
				add(SeverityError, "timetable %q entry %d: %v", tt.ID, i, err)
				continue
			}
			if len(e.Times) != len(stops) {
				add(SeverityError, "timetable %q entry %d has %d times for %d stops", tt.ID, i, len(e.Times), len(stops))
			}
		}
	}

	return issues
}

// continuationCycle returns an option that can reach itself through the
// continuation tables, or nil.
func (n *Network) continuationCycle() *ContinuationOption {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[ContinuationOption]int)

	var visit func(ContinuationOption) *ContinuationOption
	visit = func(node ContinuationOption) *ContinuationOption {
		switch state[node] {
		case visiting:
			return &node
		case done:
			return nil
		}
		state[node] = visiting
		for _, next := range n.ContinuationOptions(node.Line, node.Variant, node.Direction) {
			if c := visit(next); c != nil {
				return c
			}
		}
		state[node] = done
		return nil
	}

	for _, l := range n.Lines {
		for _, rule := range l.Continuations {
			if c := visit(ContinuationOption{Line: l.ID, Variant: rule.Variant, Direction: rule.Direction}); c != nil {
				return c
			}
		}
	}
	return nil
}
