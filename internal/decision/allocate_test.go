package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cro-pilot/cro-pilot/internal/config"
	"github.com/cro-pilot/cro-pilot/internal/store"
)

func variants(n int) []store.Variant {
	vs := make([]store.Variant, n)
	for i := range vs {
		vs[i] = store.Variant{ID: string(rune('a' + i))}
	}
	return vs
}

func sumAllocations(t *testing.T, allocation map[string]float64) float64 {
	t.Helper()
	var sum float64
	for _, v := range allocation {
		sum += v
	}
	return sum
}

func TestAllocateSmartFloorsLosersLeaderGetsRest(t *testing.T) {
	alloc := config.Allocation{Enabled: true, MinTrafficToLoser: 10}
	vs := variants(3)
	tm := store.TestMetrics{
		"a": {Impressions: 1000, Conversions: 50},
		"b": {Impressions: 1000, Conversions: 80}, // leader
		"c": {Impressions: 1000, Conversions: 30},
	}

	allocation := Allocate(vs, tm, alloc)

	assert.Equal(t, 10.0, allocation["a"])
	assert.Equal(t, 80.0, allocation["b"])
	assert.Equal(t, 10.0, allocation["c"])
	assert.Equal(t, 100.0, sumAllocations(t, allocation))
}

func TestAllocateDisabledIsEvenSplit(t *testing.T) {
	alloc := config.Allocation{Enabled: false, MinTrafficToLoser: 10}
	vs := variants(2)

	allocation := Allocate(vs, nil, alloc)

	assert.Equal(t, 50.0, allocation["a"])
	assert.Equal(t, 50.0, allocation["b"])
}

func TestAllocateThreeWayEvenSplitSumsToExactly100(t *testing.T) {
	allocation := Allocate(variants(3), nil, config.Allocation{})
	assert.InDelta(t, 100.0, sumAllocations(t, allocation), 1e-9)
}

func TestAllocateFloorsExceeding100FallBackToEvenSplit(t *testing.T) {
	// 11 variants at floor 10 would need 100 points for losers alone.
	alloc := config.Allocation{Enabled: true, MinTrafficToLoser: 10}
	vs := variants(11)

	allocation := Allocate(vs, store.TestMetrics{}, alloc)

	assert.InDelta(t, 100.0, sumAllocations(t, allocation), 1e-9)
	for _, share := range allocation {
		assert.InDelta(t, 100.0/11, share, 1e-9)
	}
}

func TestAllocateNoMetricsKeepsStableOrder(t *testing.T) {
	// With identical (zero) rates the first variant stays the leader.
	alloc := config.Allocation{Enabled: true, MinTrafficToLoser: 10}
	vs := variants(2)

	allocation := Allocate(vs, store.TestMetrics{}, alloc)

	assert.Equal(t, 90.0, allocation["a"])
	assert.Equal(t, 10.0, allocation["b"])
}

func TestAllocateEmptyVariants(t *testing.T) {
	allocation := Allocate(nil, nil, config.Allocation{Enabled: true})
	assert.Empty(t, allocation)
}
