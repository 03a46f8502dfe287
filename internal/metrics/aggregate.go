// Package metrics turns the raw event log into per-variant counts. The
// aggregator is a pure function over a test/event snapshot and holds no
// state of its own.
package metrics

import (
	"github.com/cro-pilot/cro-pilot/internal/config"
	"github.com/cro-pilot/cro-pilot/internal/store"
)

// Aggregate counts impressions, conversions, and each configured
// optimization goal per variant of the given test. Variants with no
// matching events get explicit zero counts.
func Aggregate(test *store.Test, events []*store.Event, goals []config.Goal) store.TestMetrics {
	byVariant := make(map[string][]*store.Event)
	for _, e := range events {
		if e.TestID != test.ID {
			continue
		}
		byVariant[e.VariantID] = append(byVariant[e.VariantID], e)
	}

	result := make(store.TestMetrics, len(test.Variants))
	for _, variant := range test.Variants {
		vm := store.VariantMetrics{Goals: store.GoalCounts{}}
		for _, e := range byVariant[variant.ID] {
			switch e.Type {
			case store.EventImpression:
				vm.Impressions++
			case store.EventConversion:
				vm.Conversions++
			}
		}
		for _, goal := range goals {
			count := 0
			for _, e := range byVariant[variant.ID] {
				if e.Type == goal.Name {
					count++
				}
			}
			vm.Goals[goal.Name] = count
		}
		result[variant.ID] = vm
	}
	return result
}

// AggregateAll runs Aggregate for every test.
func AggregateAll(tests []*store.Test, events []*store.Event, goals []config.Goal) map[string]store.TestMetrics {
	all := make(map[string]store.TestMetrics, len(tests))
	for _, test := range tests {
		all[test.ID] = Aggregate(test, events, goals)
	}
	return all
}

// EngagementScore computes the weighted secondary-goal score for one
// variant, normalized by impressions. Zero impressions score zero.
func EngagementScore(vm store.VariantMetrics, goals []config.Goal) float64 {
	if vm.Impressions == 0 {
		return 0
	}
	var totalScore, totalWeight float64
	for _, goal := range goals {
		normalized := float64(vm.Goals[goal.Name]) / float64(vm.Impressions)
		totalScore += normalized * goal.Weight
		totalWeight += goal.Weight
	}
	if totalWeight == 0 {
		return 0
	}
	return totalScore / totalWeight * 100
}
