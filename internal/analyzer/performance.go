// Package analyzer slices historical event data across reporting
// dimensions. Everything here is read-only: it feeds dashboards and the
// archive snapshots, and never mutates test state.
package analyzer

import (
	"time"

	"github.com/cro-pilot/cro-pilot/internal/config"
	"github.com/cro-pilot/cro-pilot/internal/metrics"
	"github.com/cro-pilot/cro-pilot/internal/stats"
	"github.com/cro-pilot/cro-pilot/internal/store"
)

type Analyzer struct {
	goals []config.Goal
}

func New(goals []config.Goal) *Analyzer {
	return &Analyzer{goals: goals}
}

// Segment is the common rollup for one slice of events.
type Segment struct {
	Impressions     int     `json:"impressions"`
	Conversions     int     `json:"conversions"`
	ConversionRate  float64 `json:"conversionRate"`
	EngagementScore float64 `json:"engagementScore"`
}

// Overall summarizes the whole event log.
type Overall struct {
	TotalImpressions      int     `json:"totalImpressions"`
	TotalConversions      int     `json:"totalConversions"`
	UniqueUsers           int     `json:"uniqueUsers"`
	OverallConversionRate float64 `json:"overallConversionRate"`
	AvgEngagementScore    float64 `json:"avgEngagementScore"`
}

// DeviceSegment extends Segment with the on-page behavior averages that
// differ most between device classes.
type DeviceSegment struct {
	Segment
	AvgTimeOnPage  float64 `json:"avgTimeOnPage"`
	AvgScrollDepth float64 `json:"avgScrollDepth"`
}

// Comprehensive is the full multi-dimension report.
type Comprehensive struct {
	Overall          Overall                            `json:"overall"`
	ByVariant        map[string]store.VariantPerformance `json:"byVariant"`
	ByDevice         map[string]DeviceSegment           `json:"byDevice"`
	ByGeography      map[string]Segment                 `json:"byGeography"`
	ByEventType      map[string]Segment                 `json:"byEventType"`
	ByTimeOfDay      map[string]Segment                 `json:"byTimeOfDay"`
	ByDayOfWeek      map[string]Segment                 `json:"byDayOfWeek"`
	Engagement       Engagement                         `json:"engagement"`
	TimeToConversion TimeToConversion                   `json:"timeToConversion"`
}

// AnalyzeComprehensive runs every dimensional analysis over one snapshot.
func (a *Analyzer) AnalyzeComprehensive(tests []*store.Test, events []*store.Event) *Comprehensive {
	return &Comprehensive{
		Overall:          a.AnalyzeOverall(events),
		ByVariant:        a.AnalyzeByVariant(tests, events),
		ByDevice:         a.AnalyzeByDevice(events),
		ByGeography:      a.AnalyzeByGeography(events),
		ByEventType:      a.AnalyzeByEventType(events),
		ByTimeOfDay:      a.AnalyzeByTimeOfDay(events),
		ByDayOfWeek:      a.AnalyzeByDayOfWeek(events),
		Engagement:       a.AnalyzeEngagement(events),
		TimeToConversion: a.AnalyzeTimeToConversion(events),
	}
}

func (a *Analyzer) AnalyzeOverall(events []*store.Event) Overall {
	impressions, conversions := countEvents(events)
	users := map[string]struct{}{}
	for _, e := range events {
		if key := e.VisitorKey(); key != "" {
			users[key] = struct{}{}
		}
	}
	return Overall{
		TotalImpressions:      impressions,
		TotalConversions:      conversions,
		UniqueUsers:           len(users),
		OverallConversionRate: stats.ConversionRate(conversions, impressions),
		AvgEngagementScore:    a.engagementScore(events),
	}
}

// AnalyzeByVariant produces the per-variant rollup attached to archived
// tests and shown on the dashboard.
func (a *Analyzer) AnalyzeByVariant(tests []*store.Test, events []*store.Event) map[string]store.VariantPerformance {
	performance := map[string]store.VariantPerformance{}
	for _, test := range tests {
		for _, variant := range test.Variants {
			var variantEvents []*store.Event
			for _, e := range events {
				if e.TestID == test.ID && e.VariantID == variant.ID {
					variantEvents = append(variantEvents, e)
				}
			}
			impressions, conversions := countEvents(variantEvents)
			rate := stats.ConversionRate(conversions, impressions)
			lower, upper := stats.ConfidenceInterval(rate, impressions)

			goalCounts := store.GoalCounts{}
			for _, goal := range a.goals {
				for _, e := range variantEvents {
					if e.Type == goal.Name {
						goalCounts[goal.Name]++
					}
				}
			}

			performance[variant.ID] = store.VariantPerformance{
				TestID:            test.ID,
				TestName:          test.Name,
				VariantID:         variant.ID,
				VariantName:       variant.Name,
				Impressions:       impressions,
				Conversions:       conversions,
				ConversionRate:    rate,
				EngagementMetrics: goalCounts,
				EngagementScore:   a.engagementScore(variantEvents),
				Confidence:        store.Interval{Lower: lower, Upper: upper},
			}
		}
	}
	return performance
}

func (a *Analyzer) AnalyzeByDevice(events []*store.Event) map[string]DeviceSegment {
	result := map[string]DeviceSegment{}
	for _, device := range []string{"mobile", "tablet", "desktop"} {
		var deviceEvents []*store.Event
		for _, e := range events {
			if e.DeviceType == device {
				deviceEvents = append(deviceEvents, e)
			}
		}
		impressions, conversions := countEvents(deviceEvents)
		result[device] = DeviceSegment{
			Segment: Segment{
				Impressions:     impressions,
				Conversions:     conversions,
				ConversionRate:  stats.ConversionRate(conversions, impressions),
				EngagementScore: a.engagementScore(deviceEvents),
			},
			AvgTimeOnPage:  avgField(deviceEvents, func(e *store.Event) float64 { return e.TimeOnPage }),
			AvgScrollDepth: avgField(deviceEvents, func(e *store.Event) float64 { return e.ScrollDepth }) * 100,
		}
	}
	return result
}

func (a *Analyzer) AnalyzeByGeography(events []*store.Event) map[string]Segment {
	return a.segmentBy(events, func(e *store.Event) string { return e.City })
}

func (a *Analyzer) AnalyzeByEventType(events []*store.Event) map[string]Segment {
	return a.segmentBy(events, func(e *store.Event) string {
		if e.EventCategory == "" {
			return "unknown"
		}
		return e.EventCategory
	})
}

func (a *Analyzer) AnalyzeByTimeOfDay(events []*store.Event) map[string]Segment {
	return a.segmentBy(events, func(e *store.Event) string {
		return TimeSlot(e.Timestamp.Hour())
	})
}

func (a *Analyzer) AnalyzeByDayOfWeek(events []*store.Event) map[string]Segment {
	result := map[string]Segment{}
	for d := time.Sunday; d <= time.Saturday; d++ {
		result[d.String()] = Segment{}
	}
	for day, seg := range a.segmentBy(events, func(e *store.Event) string { return e.Timestamp.Weekday().String() }) {
		result[day] = seg
	}
	return result
}

// segmentBy groups events by a key and rolls up each group. Events with
// an empty key are skipped.
func (a *Analyzer) segmentBy(events []*store.Event, key func(*store.Event) string) map[string]Segment {
	groups := map[string][]*store.Event{}
	for _, e := range events {
		k := key(e)
		if k == "" {
			continue
		}
		groups[k] = append(groups[k], e)
	}
	result := make(map[string]Segment, len(groups))
	for k, group := range groups {
		impressions, conversions := countEvents(group)
		result[k] = Segment{
			Impressions:     impressions,
			Conversions:     conversions,
			ConversionRate:  stats.ConversionRate(conversions, impressions),
			EngagementScore: a.engagementScore(group),
		}
	}
	return result
}

// TimeSlot buckets an hour of day into the four reporting slots.
func TimeSlot(hour int) string {
	switch {
	case hour < 6:
		return "Night (0-6)"
	case hour < 12:
		return "Morning (6-12)"
	case hour < 18:
		return "Afternoon (12-18)"
	default:
		return "Evening (18-24)"
	}
}

func (a *Analyzer) engagementScore(events []*store.Event) float64 {
	impressions := 0
	goalCounts := store.GoalCounts{}
	for _, e := range events {
		if e.Type == store.EventImpression {
			impressions++
		}
		goalCounts[e.Type]++
	}
	vm := store.VariantMetrics{Impressions: impressions, Goals: goalCounts}
	return metrics.EngagementScore(vm, a.goals)
}

func countEvents(events []*store.Event) (impressions, conversions int) {
	for _, e := range events {
		switch e.Type {
		case store.EventImpression:
			impressions++
		case store.EventConversion:
			conversions++
		}
	}
	return impressions, conversions
}

func avgField(events []*store.Event, field func(*store.Event) float64) float64 {
	var sum float64
	count := 0
	for _, e := range events {
		if v := field(e); v > 0 {
			sum += v
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
