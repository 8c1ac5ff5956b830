// Package bucket defines the ordered speaker-quality tiers.
//
// A tier says how much manual correction a speaker's output needs.
// Ordering runs from most to least intervention:
// HighTouch < MediumTouch < LowTouch < NoTouch.
package bucket

import "fmt"

// Level is one speaker-quality tier.
type Level int

const (
	HighTouch Level = iota
	MediumTouch
	LowTouch
	NoTouch
)

// levels is the canonical quality ordering. Adjacency is index arithmetic
// on this slice; transitions never skip a tier.
var levels = [...]Level{HighTouch, MediumTouch, LowTouch, NoTouch}

// Valid reports whether l is one of the four defined tiers.
func (l Level) Valid() bool {
	return l >= HighTouch && l <= NoTouch
}

func (l Level) String() string {
	switch l {
	case HighTouch:
		return "high_touch"
	case MediumTouch:
		return "medium_touch"
	case LowTouch:
		return "low_touch"
	case NoTouch:
		return "no_touch"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// NextBetter returns the adjacent higher-quality tier.
// ok is false at NoTouch (and for invalid levels).
func (l Level) NextBetter() (Level, bool) {
	if !l.Valid() || int(l)+1 >= len(levels) {
		return l, false
	}
	return levels[int(l)+1], true
}

// PreviousWorse returns the adjacent lower-quality tier.
// ok is false at HighTouch (and for invalid levels).
func (l Level) PreviousWorse() (Level, bool) {
	if !l.Valid() || int(l) == 0 {
		return l, false
	}
	return levels[int(l)-1], true
}

// Better reports whether l is a strictly higher-quality tier than other.
func (l Level) Better(other Level) bool {
	return l > other
}

// AdjacentTo reports whether target is an immediate neighbor of l.
func (l Level) AdjacentTo(target Level) bool {
	if next, ok := l.NextBetter(); ok && next == target {
		return true
	}
	if prev, ok := l.PreviousWorse(); ok && prev == target {
		return true
	}
	return false
}

// Parse converts a tier label back into its Level.
func Parse(s string) (Level, error) {
	switch s {
	case "high_touch":
		return HighTouch, nil
	case "medium_touch":
		return MediumTouch, nil
	case "low_touch":
		return LowTouch, nil
	case "no_touch":
		return NoTouch, nil
	}
	return HighTouch, fmt.Errorf("unknown bucket level %q", s)
}

// MarshalText implements encoding.TextMarshaler so levels round-trip through
// JSON and database storage as their labels, not raw ints.
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid bucket level %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(b []byte) error {
	lv, err := Parse(string(b))
	if err != nil {
		return err
	}
	*l = lv
	return nil
}
