// Package stats evaluates a finished tally against reference distributions:
// chi-square goodness-of-fit with p-values, Shannon entropy, Gini coefficient
// and Jensen-Shannon divergence. Reports are read-only summaries and never
// mutate the tally.
package stats

import (
	"errors"
	"math"
	"sort"

	"github.com/vxrdis/allen-interval-probabilities/internal/metrics"
	"github.com/vxrdis/allen-interval-probabilities/internal/relation"
	"github.com/vxrdis/allen-interval-probabilities/internal/tally"
)

// ErrNoReferences is returned when Evaluate is called without any reference
// distribution to test against.
var ErrNoReferences = errors.New("stats: no reference distributions")

// MinChiSquareTotal is the smallest tally total for which the chi-square
// statistic is reported. Below it the expected count per category under the
// uniform reference falls under 1 and the test is marked Indeterminate.
var MinChiSquareTotal = uint64(len(relation.CanonicalOrder))

// ReferenceResult is the outcome of testing the observed distribution against
// one named reference.
type ReferenceResult struct {
	Name          string  `json:"name"`
	ChiSquare     float64 `json:"chi_square"`
	PValue        float64 `json:"p_value"`
	DF            int     `json:"df"`
	Indeterminate bool    `json:"indeterminate"`
	JSDivergence  float64 `json:"js_divergence"`
}

// TestReport summarizes one uniformity evaluation. Mode is the most frequent
// relation (canonical-order ties broken toward the earlier code); BestFit
// names the reference with the smallest Jensen-Shannon divergence.
type TestReport struct {
	Total      uint64            `json:"total"`
	Entropy    float64           `json:"entropy"`
	Gini       float64           `json:"gini"`
	StdDev     float64           `json:"stddev"`
	Coverage   float64           `json:"coverage"`
	Mode       relation.Code     `json:"mode"`
	BestFit    string            `json:"best_fit"`
	References []ReferenceResult `json:"references"`
}

// Evaluate tests the observed tally against each reference. The chi-square
// statistic and p-value are reported per reference; when the tally total is
// below MinChiSquareTotal the per-reference result is flagged Indeterminate
// instead of carrying an unreliable statistic. Divergence and the summary
// shape measures are defined for any nonempty tally.
func Evaluate(t *tally.Tally, refs ...Reference) (TestReport, error) {
	if len(refs) == 0 {
		return TestReport{}, ErrNoReferences
	}
	if _, err := t.Probabilities(); err != nil {
		return TestReport{}, err
	}

	total := t.Total()
	observed := t.InOrder()
	probs := make([]float64, len(observed))
	for i, c := range observed {
		probs[i] = float64(c) / float64(total)
	}

	report := TestReport{
		Total:      total,
		Entropy:    entropy(probs),
		Gini:       gini(probs),
		StdDev:     stddev(probs),
		Coverage:   coverage(observed),
		Mode:       modeCode(observed),
		References: make([]ReferenceResult, 0, len(refs)),
	}

	indeterminate := total < MinChiSquareTotal
	bestJS := math.Inf(1)
	for _, ref := range refs {
		expected := ref.vector()
		res := ReferenceResult{
			Name:          ref.Name,
			DF:            len(relation.CanonicalOrder) - 1,
			Indeterminate: indeterminate,
			JSDivergence:  jsDivergence(probs, expected),
		}
		if !indeterminate {
			res.ChiSquare = chiSquareStat(observed, expected, total)
			res.PValue = chiSquarePValue(res.ChiSquare, res.DF)
		}
		if res.JSDivergence < bestJS {
			bestJS = res.JSDivergence
			report.BestFit = ref.Name
		}
		report.References = append(report.References, res)
	}

	outcome := "defined"
	if indeterminate {
		outcome = "indeterminate"
	}
	metrics.UniformityTests.WithLabelValues(outcome).Inc()
	return report, nil
}

// entropy is the Shannon entropy in bits; zero-probability categories
// contribute nothing.
func entropy(probs []float64) float64 {
	var h float64
	for _, p := range probs {
		if p > 0 {
			h -= p * math.Log2(p)
		}
	}
	return h
}

// gini is the Gini coefficient of the distribution: 0 for uniform, tending
// toward 1 as mass concentrates in one category.
func gini(probs []float64) float64 {
	n := len(probs)
	sorted := make([]float64, n)
	copy(sorted, probs)
	sort.Float64s(sorted)

	var weighted float64
	for i, p := range sorted {
		weighted += float64(2*(i+1)-n-1) * p
	}
	return weighted / float64(n)
}

func stddev(probs []float64) float64 {
	mean := 1.0 / float64(len(probs))
	var ss float64
	for _, p := range probs {
		d := p - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(probs)))
}

func coverage(observed []uint64) float64 {
	var nonzero int
	for _, c := range observed {
		if c > 0 {
			nonzero++
		}
	}
	return float64(nonzero) / float64(len(observed))
}

func modeCode(observed []uint64) relation.Code {
	best := 0
	for i, c := range observed {
		if c > observed[best] {
			best = i
		}
	}
	return relation.CanonicalOrder[best]
}

// jsDivergence is the Jensen-Shannon divergence in bits: symmetric, bounded
// in [0, 1] for base-2 logs, zero iff the distributions are identical.
func jsDivergence(p, q []float64) float64 {
	var div float64
	for i := range p {
		m := (p[i] + q[i]) / 2
		div += klTerm(p[i], m) + klTerm(q[i], m)
	}
	return div / 2
}

func klTerm(p, m float64) float64 {
	if p == 0 || m == 0 {
		return 0
	}
	return p * math.Log2(p/m)
}
