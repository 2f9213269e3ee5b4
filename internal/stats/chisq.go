package stats

import "math"

const (
	gammaMaxIter = 200
	gammaEps     = 3e-14
)

// chiSquareStat computes the classical goodness-of-fit statistic for observed
// counts against expected probabilities. An expected probability of zero with
// a nonzero observation yields +Inf (the observation is impossible under the
// reference).
func chiSquareStat(observed []uint64, expectedProbs []float64, total uint64) float64 {
	var stat float64
	for i, obs := range observed {
		expected := float64(total) * expectedProbs[i]
		if expected == 0 {
			if obs > 0 {
				return math.Inf(1)
			}
			continue
		}
		diff := float64(obs) - expected
		stat += diff * diff / expected
	}
	return stat
}

// chiSquarePValue is the survival function of the chi-square distribution
// with df degrees of freedom, via the regularized upper incomplete gamma
// function.
func chiSquarePValue(stat float64, df int) float64 {
	if df <= 0 || math.IsNaN(stat) || stat < 0 {
		return math.NaN()
	}
	if math.IsInf(stat, 1) {
		return 0
	}
	return regularizedGammaQ(float64(df)/2, stat/2)
}

// regularizedGammaQ computes Q(a, x) = Γ(a, x)/Γ(a) using the series for
// x < a+1 and the Lentz continued fraction otherwise (Numerical Recipes
// 6.2).
func regularizedGammaQ(a, x float64) float64 {
	switch {
	case x <= 0:
		return 1
	case x < a+1:
		return 1 - gammaSeriesP(a, x)
	default:
		return gammaContinuedFractionQ(a, x)
	}
}

func gammaSeriesP(a, x float64) float64 {
	lg, _ := math.Lgamma(a)
	ap := a
	del := 1.0 / a
	sum := del
	for n := 0; n < gammaMaxIter; n++ {
		ap++
		del *= x / ap
		sum += del
		if math.Abs(del) < math.Abs(sum)*gammaEps {
			break
		}
	}
	return sum * math.Exp(-x+a*math.Log(x)-lg)
}

func gammaContinuedFractionQ(a, x float64) float64 {
	lg, _ := math.Lgamma(a)
	const tiny = 1e-300

	b := x + 1 - a
	c := 1 / tiny
	d := 1 / b
	h := d
	for i := 1; i <= gammaMaxIter; i++ {
		an := -float64(i) * (float64(i) - a)
		b += 2
		d = an*d + b
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = b + an/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		del := d * c
		h *= del
		if math.Abs(del-1) < gammaEps {
			break
		}
	}
	return math.Exp(-x+a*math.Log(x)-lg) * h
}
