package decision

import (
	"sort"

	"github.com/cro-pilot/cro-pilot/internal/config"
	"github.com/cro-pilot/cro-pilot/internal/stats"
	"github.com/cro-pilot/cro-pilot/internal/store"
)

// Allocate converts performance into traffic-split percentages, keyed by
// variant id. With smart allocation off the split is even; on, every
// variant except the current leader gets the configured floor and the
// leader takes the remainder. The result always sums to exactly 100.
func Allocate(variants []store.Variant, tm store.TestMetrics, alloc config.Allocation) map[string]float64 {
	if len(variants) == 0 {
		return map[string]float64{}
	}

	if !alloc.Enabled {
		return evenSplit(variants)
	}

	floor := alloc.MinTrafficToLoser
	remainder := 100 - floor*float64(len(variants)-1)
	if remainder < floor {
		// Floors alone would exceed 100; the config is unusable for this
		// many variants, fall back to an even split.
		return evenSplit(variants)
	}

	type perf struct {
		id   string
		rate float64
	}
	ranked := make([]perf, 0, len(variants))
	for _, v := range variants {
		m := tm[v.ID]
		ranked = append(ranked, perf{id: v.ID, rate: stats.ConversionRate(m.Conversions, m.Impressions)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].rate > ranked[j].rate })

	allocation := make(map[string]float64, len(variants))
	for _, p := range ranked[1:] {
		allocation[p.id] = floor
	}
	allocation[ranked[0].id] = remainder
	return allocation
}

// evenSplit gives every variant 100/n, with the first variant absorbing
// the rounding remainder so the total is exactly 100.
func evenSplit(variants []store.Variant) map[string]float64 {
	share := 100 / float64(len(variants))
	allocation := make(map[string]float64, len(variants))
	for _, v := range variants {
		allocation[v.ID] = share
	}
	allocation[variants[0].ID] = 100 - share*float64(len(variants)-1)
	return allocation
}
