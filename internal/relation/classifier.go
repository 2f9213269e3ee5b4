package relation

import (
	"errors"
	"fmt"
)

// ErrUnclassifiable is returned when a history is not one of the 13 canonical
// sequences. This is an internal-invariant failure: a simulator that honors
// the monotonic advancement contract cannot produce such a history.
var ErrUnclassifiable = errors.New("history does not match any canonical Allen relation")

// canonicalHistories enumerates the 13 joint-state paths, one per relation.
// Each path walks the (first, second) lattice from (Unborn, Unborn) to
// (Dead, Dead); reading the first coordinate as interval A and the second as
// interval B, the path shape is the Allen relation between A and B.
var canonicalHistories = map[Code]History{
	// A runs entirely before B.
	Before: {{Unborn, Unborn}, {Alive, Unborn}, {Dead, Unborn}, {Dead, Alive}, {Dead, Dead}},
	// A ends at the instant B starts.
	Meets: {{Unborn, Unborn}, {Alive, Unborn}, {Dead, Alive}, {Dead, Dead}},
	// A starts first, B starts while A is alive, A ends first.
	Overlaps: {{Unborn, Unborn}, {Alive, Unborn}, {Alive, Alive}, {Dead, Alive}, {Dead, Dead}},
	// A starts first, both end together.
	FinishedBy: {{Unborn, Unborn}, {Alive, Unborn}, {Alive, Alive}, {Dead, Dead}},
	// B lies strictly inside A.
	Contains: {{Unborn, Unborn}, {Alive, Unborn}, {Alive, Alive}, {Alive, Dead}, {Dead, Dead}},
	// Both start together, A ends first.
	Starts: {{Unborn, Unborn}, {Alive, Alive}, {Dead, Alive}, {Dead, Dead}},
	// Identical intervals.
	Equals: {{Unborn, Unborn}, {Alive, Alive}, {Dead, Dead}},
	// Both start together, B ends first.
	StartedBy: {{Unborn, Unborn}, {Alive, Alive}, {Alive, Dead}, {Dead, Dead}},
	// A lies strictly inside B.
	During: {{Unborn, Unborn}, {Unborn, Alive}, {Alive, Alive}, {Dead, Alive}, {Dead, Dead}},
	// B starts first, both end together.
	Finishes: {{Unborn, Unborn}, {Unborn, Alive}, {Alive, Alive}, {Dead, Dead}},
	// B starts first, A starts while B is alive, B ends first.
	OverlappedBy: {{Unborn, Unborn}, {Unborn, Alive}, {Alive, Alive}, {Alive, Dead}, {Dead, Dead}},
	// B ends at the instant A starts.
	MetBy: {{Unborn, Unborn}, {Unborn, Alive}, {Alive, Dead}, {Dead, Dead}},
	// A runs entirely after B.
	After: {{Unborn, Unborn}, {Unborn, Alive}, {Unborn, Dead}, {Alive, Dead}, {Dead, Dead}},
}

// codeByHistoryKey is the exact-match lookup table, built once at init.
var codeByHistoryKey = func() map[string]Code {
	table := make(map[string]Code, len(canonicalHistories))
	for code, hist := range canonicalHistories {
		key := hist.Key()
		if prev, dup := table[key]; dup {
			panic(fmt.Sprintf("relation: histories for %s and %s collide", prev, code))
		}
		table[key] = code
	}
	return table
}()

// Classify maps a finished trial history to its Allen relation code.
// Histories outside the canonical set fail with ErrUnclassifiable.
func Classify(h History) (Code, error) {
	code, ok := codeByHistoryKey[h.Key()]
	if !ok {
		return "", fmt.Errorf("%w: key=%q", ErrUnclassifiable, h.Key())
	}
	return code, nil
}

// CanonicalHistory returns the canonical joint-state path for a relation code.
func CanonicalHistory(c Code) (History, bool) {
	h, ok := canonicalHistories[c]
	if !ok {
		return nil, false
	}
	out := make(History, len(h))
	copy(out, h)
	return out, true
}
