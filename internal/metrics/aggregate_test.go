package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cro-pilot/cro-pilot/internal/config"
	"github.com/cro-pilot/cro-pilot/internal/store"
)

func twoVariantTest() *store.Test {
	return &store.Test{
		ID: "test_1",
		Variants: []store.Variant{
			{ID: "variant_0", Name: "Control"},
			{ID: "variant_1", Name: "Challenger"},
		},
	}
}

func TestAggregateCountsPerVariant(t *testing.T) {
	test := twoVariantTest()
	events := []*store.Event{
		{TestID: "test_1", VariantID: "variant_0", Type: store.EventImpression},
		{TestID: "test_1", VariantID: "variant_0", Type: store.EventImpression},
		{TestID: "test_1", VariantID: "variant_0", Type: store.EventImpression},
		{TestID: "test_1", VariantID: "variant_0", Type: store.EventConversion},
		// Events for other tests must not leak in.
		{TestID: "test_2", VariantID: "variant_0", Type: store.EventImpression},
	}

	tm := Aggregate(test, events, nil)

	assert.Equal(t, 3, tm["variant_0"].Impressions)
	assert.Equal(t, 1, tm["variant_0"].Conversions)
}

func TestAggregateZeroFillsUnmatchedVariants(t *testing.T) {
	test := twoVariantTest()
	events := []*store.Event{
		{TestID: "test_1", VariantID: "variant_0", Type: store.EventImpression},
	}

	tm := Aggregate(test, events, []config.Goal{{Name: "video_play", Weight: 2}})

	vm, ok := tm["variant_1"]
	assert.True(t, ok, "unmatched variant must still appear")
	assert.Equal(t, 0, vm.Impressions)
	assert.Equal(t, 0, vm.Conversions)
	assert.Equal(t, 0, vm.Goals["video_play"])
}

func TestAggregateCountsGoals(t *testing.T) {
	test := twoVariantTest()
	goals := []config.Goal{
		{Name: "video_play", Weight: 2},
		{Name: "gallery_interaction", Weight: 1.5},
	}
	events := []*store.Event{
		{TestID: "test_1", VariantID: "variant_0", Type: store.EventImpression},
		{TestID: "test_1", VariantID: "variant_0", Type: "video_play"},
		{TestID: "test_1", VariantID: "variant_0", Type: "video_play"},
		{TestID: "test_1", VariantID: "variant_1", Type: "gallery_interaction"},
	}

	tm := Aggregate(test, events, goals)

	assert.Equal(t, 2, tm["variant_0"].Goals["video_play"])
	assert.Equal(t, 0, tm["variant_0"].Goals["gallery_interaction"])
	assert.Equal(t, 1, tm["variant_1"].Goals["gallery_interaction"])
}

func TestEngagementScore(t *testing.T) {
	goals := []config.Goal{
		{Name: "video_play", Weight: 2},
		{Name: "scroll_depth_75", Weight: 1},
	}

	// Every impression played the video, none scrolled: 2/3 of the weight.
	vm := store.VariantMetrics{
		Impressions: 10,
		Goals:       store.GoalCounts{"video_play": 10, "scroll_depth_75": 0},
	}
	assert.InDelta(t, 100.0*2/3, EngagementScore(vm, goals), 1e-9)

	// Zero impressions score zero regardless of goal counts.
	vm = store.VariantMetrics{Goals: store.GoalCounts{"video_play": 5}}
	assert.Equal(t, 0.0, EngagementScore(vm, goals))

	// No configured goals scores zero.
	vm = store.VariantMetrics{Impressions: 10}
	assert.Equal(t, 0.0, EngagementScore(vm, nil))
}
