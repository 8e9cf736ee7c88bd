package analysis

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoPings is returned when a per-vessel operation receives no pings at all
	ErrNoPings = errors.New("no pings")
	// ErrNoPingsInWindow is returned when none of a vessel's pings fall inside the requested window
	ErrNoPingsInWindow = errors.New("no pings inside interpolation window")
	// ErrInvalidWindow is returned when a window ends before it starts
	ErrInvalidWindow = errors.New("window end before start")
)

// MalformedInputError reports an unparseable or out-of-range ping field.
// Readers reject the offending ping; kinematics rejects the whole vessel track.
type MalformedInputError struct {
	MMSI   int64
	Row    int // 1-based data row in the source file, 0 when not file-backed
	Field  string
	Value  string
	Reason string
}

func (e *MalformedInputError) Error() string {
	msg := fmt.Sprintf("malformed %s %q", e.Field, e.Value)
	if e.Row > 0 {
		msg = fmt.Sprintf("row %d: %s", e.Row, msg)
	}
	if e.MMSI != 0 {
		msg = fmt.Sprintf("mmsi %d: %s", e.MMSI, msg)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// EmptyResultWarning marks a day or snapshot that produced no qualifying rows
type EmptyResultWarning struct {
	Scope string // "day", "proximity snapshot", ...
	Key   string
}

func (w *EmptyResultWarning) Error() string {
	return fmt.Sprintf("%s %s produced no rows", w.Scope, w.Key)
}

// InsufficientNeighborsWarning marks a vessel excluded from a proximity snapshot
type InsufficientNeighborsWarning struct {
	Timestamp time.Time
	MMSI      int64
	Ranked    int
	Required  int
}

func (w *InsufficientNeighborsWarning) Error() string {
	return fmt.Sprintf("vessel %d at %s has %d ranked neighbors, need %d",
		w.MMSI, w.Timestamp.UTC().Format(time.RFC3339), w.Ranked, w.Required)
}
