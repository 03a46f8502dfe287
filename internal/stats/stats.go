// Package stats holds the pure numerical procedures behind test decisions:
// the two-proportion chi-square test, its normal-approximation p-value, and
// the confidence-interval helpers. Everything here is deterministic and
// I/O-free.
package stats

import "math"

// Z95 is the z-score for a 95% confidence interval.
const Z95 = 1.96

// ChiSquareResult is the outcome of a two-proportion chi-square test.
type ChiSquareResult struct {
	Statistic        float64
	PValue           float64
	DegreesOfFreedom int
}

// ChiSquareTest runs a two-proportion chi-square test (df=1) between two
// variants using pooled-rate expected counts. Degenerate inputs (zero
// impressions, or a pooled rate of 0 or 1 making an expected count zero)
// yield a statistic of 0, i.e. no evidence of a difference.
func ChiSquareTest(conversions1, impressions1, conversions2, impressions2 int) ChiSquareResult {
	n1 := float64(impressions1)
	n2 := float64(impressions2)
	x1 := float64(conversions1)
	x2 := float64(conversions2)

	result := ChiSquareResult{DegreesOfFreedom: 1}
	if n1 == 0 || n2 == 0 {
		result.PValue = 1
		return result
	}

	pooled := (x1 + x2) / (n1 + n2)
	e1 := n1 * pooled
	e2 := n2 * pooled
	if e1 == 0 || e2 == 0 || n1-e1 == 0 || n2-e2 == 0 {
		result.PValue = 1
		return result
	}

	chi := math.Pow(x1-e1, 2)/e1 +
		math.Pow((n1-x1)-(n1-e1), 2)/(n1-e1) +
		math.Pow(x2-e2, 2)/e2 +
		math.Pow((n2-x2)-(n2-e2), 2)/(n2-e2)

	result.Statistic = chi
	result.PValue = ChiSquareToPValue(chi, 1)
	return result
}

// ChiSquareToPValue converts a chi-square statistic to a two-tailed
// p-value via the normal approximation z = sqrt(chi). Only df=1 is
// supported; other values fall back to a constant 0.05. The fallback is
// never reached by the top-2 comparison this package serves, and would be
// wrong for a real multi-way test.
func ChiSquareToPValue(chiSquare float64, df int) float64 {
	if df == 1 {
		z := math.Sqrt(chiSquare)
		return 2 * (1 - NormalCDF(z))
	}
	return 0.05
}

// NormalCDF approximates the standard normal cumulative distribution
// function with the Zelen & Severo rational polynomial (Abramowitz &
// Stegun 26.2.17). Accurate to about 1e-7.
func NormalCDF(x float64) float64 {
	t := 1 / (1 + 0.2316419*math.Abs(x))
	d := 0.3989423 * math.Exp(-x*x/2)
	prob := d * t * (0.3193815 + t*(-0.3565638+t*(1.781478+t*(-1.821256+t*1.330274))))
	if x > 0 {
		return 1 - prob
	}
	return prob
}

// ConversionRate returns conversions/impressions, or 0 for zero impressions.
func ConversionRate(conversions, impressions int) float64 {
	if impressions == 0 {
		return 0
	}
	return float64(conversions) / float64(impressions)
}

// StandardError returns the standard error of a binomial proportion.
func StandardError(rate float64, impressions int) float64 {
	if impressions == 0 {
		return 0
	}
	return math.Sqrt(rate * (1 - rate) / float64(impressions))
}

// ConfidenceInterval returns the 95% normal-approximation interval around
// a conversion rate.
func ConfidenceInterval(rate float64, impressions int) (lower, upper float64) {
	se := StandardError(rate, impressions)
	return rate - Z95*se, rate + Z95*se
}

// RequiredSampleSize estimates the per-variant sample size needed to
// detect a relative effect of minimumDetectableEffect over baselineRate at
// alpha=0.05 (two-tailed) with 80% power.
func RequiredSampleSize(baselineRate, minimumDetectableEffect float64) int {
	p1 := baselineRate
	p2 := baselineRate * (1 + minimumDetectableEffect)
	pAvg := (p1 + p2) / 2

	const zAlpha = 1.96
	const zBeta = 0.84

	numerator := math.Pow(zAlpha*math.Sqrt(2*pAvg*(1-pAvg))+
		zBeta*math.Sqrt(p1*(1-p1)+p2*(1-p2)), 2)
	denominator := math.Pow(p2-p1, 2)
	if denominator == 0 {
		return 0
	}
	return int(math.Ceil(numerator / denominator))
}
