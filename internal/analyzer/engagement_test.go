package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cro-pilot/cro-pilot/internal/store"
)

func TestAnalyzeEngagementDistributions(t *testing.T) {
	a := New(testGoals)
	events := []*store.Event{
		ev("variant_0", store.EventImpression, func(e *store.Event) { e.ScrollDepth = 0.3; e.TimeOnPage = 5 }),
		ev("variant_0", store.EventImpression, func(e *store.Event) { e.ScrollDepth = 0.6; e.TimeOnPage = 20 }),
		ev("variant_0", store.EventImpression, func(e *store.Event) { e.ScrollDepth = 0.8; e.TimeOnPage = 45 }),
		ev("variant_0", store.EventImpression, func(e *store.Event) { e.ScrollDepth = 1.0; e.TimeOnPage = 90 }),
	}

	eng := a.AnalyzeEngagement(events)

	assert.Equal(t, 1, eng.ScrollDepth.Distribution["25%"])
	assert.Equal(t, 1, eng.ScrollDepth.Distribution["50%"])
	assert.Equal(t, 1, eng.ScrollDepth.Distribution["75%"])
	assert.Equal(t, 1, eng.ScrollDepth.Distribution["100%"])
	assert.InDelta(t, 67.5, eng.ScrollDepth.Avg, 1e-9)

	assert.Equal(t, 1, eng.TimeOnPage.Distribution["<10s"])
	assert.Equal(t, 1, eng.TimeOnPage.Distribution["10-30s"])
	assert.Equal(t, 1, eng.TimeOnPage.Distribution["30-60s"])
	assert.Equal(t, 1, eng.TimeOnPage.Distribution["60s+"])
	assert.InDelta(t, 40.0, eng.TimeOnPage.Avg, 1e-9)
}

func TestAnalyzeEngagementMediaAndCTA(t *testing.T) {
	a := New(testGoals)
	events := []*store.Event{
		ev("variant_0", "video_play"),
		ev("variant_0", "video_play"),
		ev("variant_0", "video_play"),
		ev("variant_0", "video_complete"),
		ev("variant_0", "gallery_interaction"),
		ev("variant_0", "phone_click"),
		ev("variant_0", "whatsapp_click"),
		ev("variant_0", "whatsapp_click"),
		ev("variant_0", "email_click"),
		ev("variant_0", "contact_form_submit"),
	}

	eng := a.AnalyzeEngagement(events)

	assert.Equal(t, 3, eng.VideoEngagement.Plays)
	assert.Equal(t, 1, eng.VideoEngagement.Completions)
	assert.InDelta(t, 33.33, eng.VideoEngagement.CompletionRate, 0.01)
	assert.Equal(t, 1, eng.GalleryInteractions)
	assert.Equal(t, 1, eng.CTAClicks.Phone)
	assert.Equal(t, 2, eng.CTAClicks.WhatsApp)
	assert.Equal(t, 1, eng.CTAClicks.Email)
	assert.Equal(t, 1, eng.CTAClicks.Form)
}

func TestAnalyzeTimeToConversion(t *testing.T) {
	a := New(testGoals)
	base := at(10)

	visit := func(session string, offset time.Duration, eventType string) *store.Event {
		return ev("variant_0", eventType, func(e *store.Event) {
			e.SessionID = session
			e.Timestamp = base.Add(offset)
		})
	}

	events := []*store.Event{
		// s1 converts 2 minutes after first seeing the page
		visit("s1", 0, store.EventImpression),
		visit("s1", time.Minute, store.EventImpression),
		visit("s1", 2*time.Minute, store.EventConversion),
		// s2 takes 30 seconds
		visit("s2", 0, store.EventImpression),
		visit("s2", 30*time.Second, store.EventConversion),
		// s3 never converts
		visit("s3", 0, store.EventImpression),
		// conversion without a matching impression is ignored
		visit("s4", time.Hour, store.EventConversion),
	}

	ttc := a.AnalyzeTimeToConversion(events)

	assert.InDelta(t, 1.25, ttc.AvgMinutes, 1e-9)
	assert.Equal(t, 1, ttc.Distribution["<1min"])
	assert.Equal(t, 1, ttc.Distribution["1-5min"])
	assert.Equal(t, 0, ttc.Distribution["1hr+"])
	assert.InDelta(t, 2.0, ttc.MedianMinutes, 1e-9)
}

func TestAnalyzeTimeToConversionNoPairs(t *testing.T) {
	a := New(testGoals)
	events := []*store.Event{ev("variant_0", store.EventImpression)}

	ttc := a.AnalyzeTimeToConversion(events)
	assert.Zero(t, ttc.AvgMinutes)
	assert.Empty(t, ttc.Distribution)
}

func TestAnalyzeComprehensiveFillsEverySection(t *testing.T) {
	a := New(testGoals)
	test := &store.Test{ID: "test_1", Variants: []store.Variant{{ID: "variant_0"}}}
	events := []*store.Event{
		ev("variant_0", store.EventImpression, func(e *store.Event) { e.DeviceType = "desktop"; e.City = "Haifa" }),
		ev("variant_0", store.EventConversion),
	}

	report := a.AnalyzeComprehensive([]*store.Test{test}, events)
	require.NotNil(t, report)
	assert.Equal(t, 1, report.Overall.TotalImpressions)
	assert.Contains(t, report.ByVariant, "variant_0")
	assert.Contains(t, report.ByDevice, "desktop")
	assert.Contains(t, report.ByGeography, "Haifa")
	assert.Len(t, report.ByDayOfWeek, 7)
}
