package relation

// EndpointState is the life stage of a single interval: it is created Unborn,
// becomes Alive when the interval starts, and Dead when the interval ends.
// States only ever advance (Unborn < Alive < Dead); a regression is a
// simulator bug, not a representable value.
type EndpointState int8

const (
	Unborn EndpointState = iota
	Alive
	Dead
)

func (s EndpointState) String() string {
	switch s {
	case Unborn:
		return "unborn"
	case Alive:
		return "alive"
	case Dead:
		return "dead"
	default:
		return "invalid"
	}
}

// PairState is the joint life stage of the two simulated intervals.
type PairState struct {
	First  EndpointState
	Second EndpointState
}

// Terminal reports whether both intervals have ended.
func (p PairState) Terminal() bool {
	return p.First == Dead && p.Second == Dead
}

// History is the ordered, de-duplicated sequence of joint states traversed by
// one trial, from (Unborn, Unborn) to (Dead, Dead). Exactly 13 distinct valid
// histories exist under the monotone lattice-path model, one per Allen
// relation.
type History []PairState

// Key returns a compact string form of the history, used as the classifier
// lookup key.
func (h History) Key() string {
	buf := make([]byte, 0, len(h)*2)
	for _, p := range h {
		buf = append(buf, '0'+byte(p.First), '0'+byte(p.Second))
	}
	return string(buf)
}

// Code identifies one of the 13 Allen interval relations, using the
// single-character notation where lowercase is the forward relation and
// uppercase its inverse.
type Code string

const (
	Before       Code = "p"
	After        Code = "P"
	Meets        Code = "m"
	MetBy        Code = "M"
	Overlaps     Code = "o"
	OverlappedBy Code = "O"
	FinishedBy   Code = "F"
	Contains     Code = "D"
	Starts       Code = "s"
	StartedBy    Code = "S"
	Equals       Code = "e"
	During       Code = "d"
	Finishes     Code = "f"
)

func (c Code) String() string {
	return string(c)
}

// Name returns the long-form relation name.
func (c Code) Name() string {
	switch c {
	case Before:
		return "before"
	case After:
		return "after"
	case Meets:
		return "meets"
	case MetBy:
		return "met-by"
	case Overlaps:
		return "overlaps"
	case OverlappedBy:
		return "overlapped-by"
	case FinishedBy:
		return "finished-by"
	case Contains:
		return "contains"
	case Starts:
		return "starts"
	case StartedBy:
		return "started-by"
	case Equals:
		return "equals"
	case During:
		return "during"
	case Finishes:
		return "finishes"
	default:
		return "unknown"
	}
}

// CanonicalOrder is the fixed enumeration order used everywhere counts are
// printed, merged, or indexed (Alspaugh's full ordering).
var CanonicalOrder = []Code{
	Before, Meets, Overlaps, FinishedBy, Contains, Starts, Equals,
	StartedBy, During, Finishes, OverlappedBy, MetBy, After,
}

// InversePairs lists the six forward/inverse relation pairs. Equals is its
// own inverse and is not listed.
var InversePairs = [][2]Code{
	{Before, After},
	{Meets, MetBy},
	{Overlaps, OverlappedBy},
	{Starts, StartedBy},
	{During, Contains},
	{Finishes, FinishedBy},
}

// Inverse returns the inverse relation of c (Equals maps to itself).
func Inverse(c Code) Code {
	for _, pair := range InversePairs {
		if pair[0] == c {
			return pair[1]
		}
		if pair[1] == c {
			return pair[0]
		}
	}
	return c
}

// Valid reports whether c is one of the 13 relation codes.
func Valid(c Code) bool {
	for _, code := range CanonicalOrder {
		if code == c {
			return true
		}
	}
	return false
}
