package timeutil

import "time"

// Clock supplies the current instant. Handlers take a Clock so tests can
// pin "now".
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns T.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }
