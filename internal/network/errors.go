package network

import "fmt"

// InvalidRouteSelectorError reports a (variant, direction) pair that does
// not exist on a line's route.
type InvalidRouteSelectorError struct {
	Line      LineID
	Variant   RouteVariantID
	Direction DirectionID
}

func (e *InvalidRouteSelectorError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("invalid route selector: variant %q, direction %q", e.Variant, e.Direction)
	}
	return fmt.Sprintf("invalid route selector for line %d: variant %q, direction %q", e.Line, e.Variant, e.Direction)
}

// UnknownLineError reports a reference to a line that is not configured.
type UnknownLineError struct {
	Line LineID
}

func (e *UnknownLineError) Error() string {
	return fmt.Sprintf("unknown line %d", e.Line)
}

// UnknownStopError reports a reference to a stop that is not configured.
type UnknownStopError struct {
	Stop StopID
}

func (e *UnknownStopError) Error() string {
	return fmt.Sprintf("unknown stop %d", e.Stop)
}
