package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cro-pilot/cro-pilot/internal/config"
	"github.com/cro-pilot/cro-pilot/internal/store"
)

var testGoals = []config.Goal{
	{Name: "video_play", Weight: 2},
	{Name: "gallery_interaction", Weight: 1},
}

func at(hour int) time.Time {
	// 2026-03-04 is a Wednesday
	return time.Date(2026, 3, 4, hour, 0, 0, 0, time.UTC)
}

func ev(variantID, eventType string, mutate ...func(*store.Event)) *store.Event {
	e := &store.Event{
		TestID:    "test_1",
		VariantID: variantID,
		Type:      eventType,
		Timestamp: at(10),
	}
	for _, m := range mutate {
		m(e)
	}
	return e
}

func TestAnalyzeOverall(t *testing.T) {
	a := New(testGoals)
	events := []*store.Event{
		ev("variant_0", store.EventImpression, func(e *store.Event) { e.UserID = "u1" }),
		ev("variant_0", store.EventImpression, func(e *store.Event) { e.UserID = "u1" }),
		ev("variant_0", store.EventImpression, func(e *store.Event) { e.SessionID = "s1" }),
		ev("variant_0", store.EventImpression, func(e *store.Event) { e.SessionID = "s2" }),
		ev("variant_0", store.EventConversion, func(e *store.Event) { e.UserID = "u1" }),
	}

	overall := a.AnalyzeOverall(events)

	assert.Equal(t, 4, overall.TotalImpressions)
	assert.Equal(t, 1, overall.TotalConversions)
	assert.Equal(t, 3, overall.UniqueUsers)
	assert.InDelta(t, 0.25, overall.OverallConversionRate, 1e-9)
}

func TestAnalyzeByVariant(t *testing.T) {
	a := New(testGoals)
	test := &store.Test{
		ID:   "test_1",
		Name: "Hero video",
		Variants: []store.Variant{
			{ID: "variant_0", Name: "Control"},
			{ID: "variant_1", Name: "Short video"},
		},
	}

	var events []*store.Event
	for i := 0; i < 10; i++ {
		events = append(events, ev("variant_0", store.EventImpression))
		events = append(events, ev("variant_1", store.EventImpression))
	}
	events = append(events,
		ev("variant_0", store.EventConversion),
		ev("variant_1", store.EventConversion),
		ev("variant_1", store.EventConversion),
		ev("variant_1", "video_play"),
	)

	perf := a.AnalyzeByVariant([]*store.Test{test}, events)
	require.Contains(t, perf, "variant_0")
	require.Contains(t, perf, "variant_1")

	control := perf["variant_0"]
	assert.Equal(t, "Hero video", control.TestName)
	assert.Equal(t, 10, control.Impressions)
	assert.Equal(t, 1, control.Conversions)
	assert.InDelta(t, 0.1, control.ConversionRate, 1e-9)
	assert.LessOrEqual(t, control.Confidence.Lower, control.ConversionRate)
	assert.GreaterOrEqual(t, control.Confidence.Upper, control.ConversionRate)

	short := perf["variant_1"]
	assert.Equal(t, 2, short.Conversions)
	assert.Equal(t, 1, short.EngagementMetrics["video_play"])
	assert.Greater(t, short.EngagementScore, 0.0)
}

func TestAnalyzeByDeviceAlwaysReportsAllClasses(t *testing.T) {
	a := New(testGoals)
	events := []*store.Event{
		ev("variant_0", store.EventImpression, func(e *store.Event) {
			e.DeviceType = "mobile"
			e.ScrollDepth = 0.5
			e.TimeOnPage = 30
		}),
		ev("variant_0", store.EventImpression, func(e *store.Event) {
			e.DeviceType = "mobile"
			e.ScrollDepth = 0.9
			e.TimeOnPage = 10
		}),
		ev("variant_0", store.EventConversion, func(e *store.Event) { e.DeviceType = "mobile" }),
	}

	byDevice := a.AnalyzeByDevice(events)
	require.Contains(t, byDevice, "mobile")
	require.Contains(t, byDevice, "tablet")
	require.Contains(t, byDevice, "desktop")

	mobile := byDevice["mobile"]
	assert.Equal(t, 2, mobile.Impressions)
	assert.Equal(t, 1, mobile.Conversions)
	assert.InDelta(t, 70.0, mobile.AvgScrollDepth, 1e-9)
	assert.InDelta(t, 20.0, mobile.AvgTimeOnPage, 1e-9)

	assert.Equal(t, DeviceSegment{}, byDevice["tablet"])
}

func TestAnalyzeByEventTypeDefaultsUnknown(t *testing.T) {
	a := New(testGoals)
	events := []*store.Event{
		ev("variant_0", store.EventImpression, func(e *store.Event) { e.EventCategory = "weddings" }),
		ev("variant_0", store.EventImpression),
	}

	byType := a.AnalyzeByEventType(events)
	assert.Equal(t, 1, byType["weddings"].Impressions)
	assert.Equal(t, 1, byType["unknown"].Impressions)
}

func TestAnalyzeByGeographySkipsMissingCity(t *testing.T) {
	a := New(testGoals)
	events := []*store.Event{
		ev("variant_0", store.EventImpression, func(e *store.Event) { e.City = "Tel Aviv" }),
		ev("variant_0", store.EventImpression),
	}

	byCity := a.AnalyzeByGeography(events)
	assert.Len(t, byCity, 1)
	assert.Equal(t, 1, byCity["Tel Aviv"].Impressions)
}

func TestTimeSlotBoundaries(t *testing.T) {
	assert.Equal(t, "Night (0-6)", TimeSlot(0))
	assert.Equal(t, "Night (0-6)", TimeSlot(5))
	assert.Equal(t, "Morning (6-12)", TimeSlot(6))
	assert.Equal(t, "Afternoon (12-18)", TimeSlot(12))
	assert.Equal(t, "Evening (18-24)", TimeSlot(18))
	assert.Equal(t, "Evening (18-24)", TimeSlot(23))
}

func TestAnalyzeByDayOfWeekSeedsAllDays(t *testing.T) {
	a := New(testGoals)
	events := []*store.Event{ev("variant_0", store.EventImpression)}

	byDay := a.AnalyzeByDayOfWeek(events)
	assert.Len(t, byDay, 7)
	assert.Equal(t, 1, byDay["Wednesday"].Impressions)
	assert.Equal(t, Segment{}, byDay["Sunday"])
}
