package gtfs

import (
	"errors"
	"fmt"
)

// InvalidValueError reports a malformed value in a feed file. Line is the
// 1-based line in the file, header included.
type InvalidValueError struct {
	File   string
	Column string
	Line   int
	Reason error
}

func (e *InvalidValueError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: invalid %s: %v", e.File, e.Line, e.Column, e.Reason)
	}
	return fmt.Sprintf("%s: invalid %s: %v", e.File, e.Column, e.Reason)
}

func (e *InvalidValueError) Unwrap() error {
	return e.Reason
}

var (
	ErrNoFeeds            = errors.New("no feeds given")
	ErrFeedCountMismatch  = errors.New("feed and subfeed ID counts differ")
	ErrDuplicateSubfeed   = errors.New("duplicate subfeed ID")
	ErrConfigHashMismatch = errors.New("feeds were built from different network configs")
)

// MergeError is returned when sub-feeds cannot be merged. Reason is one of
// the Err* sentinels above.
type MergeError struct {
	Reason error
	Detail string
}

func (e *MergeError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("merge GTFS data: %v", e.Reason)
	}
	return fmt.Sprintf("merge GTFS data: %v: %s", e.Reason, e.Detail)
}

func (e *MergeError) Unwrap() error {
	return e.Reason
}
