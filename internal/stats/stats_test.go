package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalCDF(t *testing.T) {
	assert.InDelta(t, 0.5, NormalCDF(0), 1e-6)
	assert.InDelta(t, 0.975, NormalCDF(1.96), 1e-3)
	assert.InDelta(t, 0.025, NormalCDF(-1.96), 1e-3)
	assert.InDelta(t, 0.8413, NormalCDF(1), 1e-3)

	// Symmetry holds across the approximation.
	for _, x := range []float64{0.5, 1.5, 2.5} {
		assert.InDelta(t, 1.0, NormalCDF(x)+NormalCDF(-x), 1e-9)
	}
}

func TestChiSquareTestSignificantDifference(t *testing.T) {
	// 12% vs 8% over 1000 impressions each is a clearly significant gap.
	result := ChiSquareTest(120, 1000, 80, 1000)

	assert.InDelta(t, 8.889, result.Statistic, 0.01)
	assert.Equal(t, 1, result.DegreesOfFreedom)
	assert.InDelta(t, 0.0029, result.PValue, 1e-3)
	assert.Less(t, result.PValue, 0.05)
}

func TestChiSquareTestNoDifference(t *testing.T) {
	result := ChiSquareTest(50, 500, 50, 500)

	assert.InDelta(t, 0, result.Statistic, 1e-9)
	assert.InDelta(t, 1, result.PValue, 1e-9)
}

func TestChiSquareTestDegenerateInputs(t *testing.T) {
	// Zero impressions cannot produce a finite statistic.
	result := ChiSquareTest(0, 0, 10, 100)
	assert.Equal(t, 1.0, result.PValue)

	// Everyone converting leaves no variance to test.
	result = ChiSquareTest(100, 100, 100, 100)
	assert.Equal(t, 1.0, result.PValue)
}

func TestConversionRate(t *testing.T) {
	assert.Equal(t, 0.12, ConversionRate(120, 1000))
	assert.Equal(t, 0.0, ConversionRate(0, 0))
	assert.Equal(t, 0.0, ConversionRate(5, 0))
}

func TestConfidenceInterval(t *testing.T) {
	lower, upper := ConfidenceInterval(0.1, 1000)
	assert.Less(t, lower, 0.1)
	assert.Greater(t, upper, 0.1)
	assert.InDelta(t, 0.0814, lower, 1e-3)
	assert.InDelta(t, 0.1186, upper, 1e-3)

	lower, upper = ConfidenceInterval(0.1, 0)
	assert.Equal(t, 0.0, lower)
	assert.Equal(t, 0.0, upper)
}

func TestRequiredSampleSize(t *testing.T) {
	// A smaller detectable effect needs more samples.
	small := RequiredSampleSize(0.1, 0.05)
	large := RequiredSampleSize(0.1, 0.2)
	assert.Greater(t, small, large)
	assert.Greater(t, large, 0)
}

func TestWilsonInterval(t *testing.T) {
	lower, upper := WilsonInterval(0, 0, Z95)
	assert.Equal(t, 0.0, lower)
	assert.Equal(t, 0.0, upper)

	lower, upper = WilsonInterval(10, 100, Z95)
	assert.Greater(t, lower, 0.0)
	assert.Less(t, upper, 1.0)
	assert.Less(t, lower, 0.1)
	assert.Greater(t, upper, 0.1)

	// Wilson never exceeds [0, 1] even at the extremes.
	lower, upper = WilsonInterval(100, 100, Z95)
	assert.LessOrEqual(t, upper, 1.0)
	assert.Greater(t, lower, 0.9)
}

func TestPearson(t *testing.T) {
	assert.InDelta(t, 1.0, Pearson([]float64{1, 2, 3}, []float64{2, 4, 6}), 1e-9)
	assert.InDelta(t, -1.0, Pearson([]float64{1, 2, 3}, []float64{6, 4, 2}), 1e-9)
	assert.Equal(t, 0.0, Pearson([]float64{1, 1, 1}, []float64{2, 4, 6}))
	assert.Equal(t, 0.0, Pearson([]float64{1}, []float64{2}))
	assert.Equal(t, 0.0, Pearson([]float64{1, 2}, []float64{2}))
}
