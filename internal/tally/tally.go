package tally

import (
	"errors"
	"math"

	"github.com/vxrdis/allen-interval-probabilities/internal/relation"
)

// ErrEmptyTally is returned when probabilities are requested from a tally
// with no recorded trials.
var ErrEmptyTally = errors.New("tally has no recorded trials")

// Tally holds per-relation trial counts. A Tally is owned by a single
// goroutine during accumulation (each worker partition keeps its own) and is
// only shared after the final merge, so it carries no locking.
type Tally struct {
	counts map[relation.Code]uint64
}

// New returns an empty tally (all 13 relations at zero).
func New() *Tally {
	return &Tally{counts: make(map[relation.Code]uint64, len(relation.CanonicalOrder))}
}

// Add records one trial outcome.
func (t *Tally) Add(code relation.Code) {
	t.counts[code]++
}

// AddN records n trial outcomes for the same relation.
func (t *Tally) AddN(code relation.Code, n uint64) {
	t.counts[code] += n
}

// Count returns the recorded count for a relation.
func (t *Tally) Count(code relation.Code) uint64 {
	return t.counts[code]
}

// Total returns the number of trials that contributed to the tally.
func (t *Tally) Total() uint64 {
	var sum uint64
	for _, n := range t.counts {
		sum += n
	}
	return sum
}

// Clone returns an independent copy.
func (t *Tally) Clone() *Tally {
	out := New()
	for code, n := range t.counts {
		out.counts[code] = n
	}
	return out
}

// Merge returns a new tally holding the elementwise sum of t and other.
// Merge is commutative and associative, which is what makes the parallel
// partition/reduce protocol independent of worker count and merge order.
func (t *Tally) Merge(other *Tally) *Tally {
	out := t.Clone()
	if other == nil {
		return out
	}
	for code, n := range other.counts {
		out.counts[code] += n
	}
	return out
}

// ProbabilityVector maps each relation to its empirical probability.
type ProbabilityVector map[relation.Code]float64

// Probabilities derives the empirical distribution over the 13 relations.
// Fails with ErrEmptyTally when no trials were recorded; the vector is
// undefined in that case and callers must not guess.
func (t *Tally) Probabilities() (ProbabilityVector, error) {
	total := t.Total()
	if total == 0 {
		return nil, ErrEmptyTally
	}
	vec := make(ProbabilityVector, len(relation.CanonicalOrder))
	for _, code := range relation.CanonicalOrder {
		vec[code] = float64(t.counts[code]) / float64(total)
	}
	return vec, nil
}

// CombineInverses returns a secondary view where each forward/inverse pair is
// summed and the combined value is written into both buckets; Equals is left
// untouched. The view is for inverse-insensitive reporting and its total is
// intentionally not the trial count. (The historical behavior combined only
// five pairs into the forward bucket and left the inverse bucket unmodified;
// that was a defect and is not reproduced.)
func (t *Tally) CombineInverses() *Tally {
	out := t.Clone()
	for _, pair := range relation.InversePairs {
		combined := out.counts[pair[0]] + out.counts[pair[1]]
		out.counts[pair[0]] = combined
		out.counts[pair[1]] = combined
	}
	return out
}

// InOrder returns the counts in canonical relation order.
func (t *Tally) InOrder() []uint64 {
	out := make([]uint64, len(relation.CanonicalOrder))
	for i, code := range relation.CanonicalOrder {
		out[i] = t.counts[code]
	}
	return out
}

// Counts returns a copy of the count map including zero entries, keyed in
// canonical order for JSON consumers.
func (t *Tally) Counts() map[relation.Code]uint64 {
	out := make(map[relation.Code]uint64, len(relation.CanonicalOrder))
	for _, code := range relation.CanonicalOrder {
		out[code] = t.counts[code]
	}
	return out
}

// Sum reports whether the probability vector sums to 1 within tol. Helper for
// consumers validating a vector before statistical use.
func (v ProbabilityVector) Sum() float64 {
	var sum float64
	for _, p := range v {
		sum += p
	}
	return sum
}

// Normalized reports whether the vector sums to 1 within the given tolerance.
func (v ProbabilityVector) Normalized(tol float64) bool {
	return math.Abs(v.Sum()-1.0) <= tol
}
