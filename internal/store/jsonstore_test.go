package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, eventCapacity int) *JSONStore {
	t.Helper()
	s, err := OpenJSON(t.TempDir(), eventCapacity)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTest(id string) *Test {
	return &Test{
		ID:         id,
		Name:       "Hero video test",
		Type:       "hero_media",
		Status:     StatusActive,
		StartDate:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Hypothesis: "Shorter hero videos convert better",
		TargetPage: "homepage",
		Variants: []Variant{
			{ID: "variant_0", Name: "Control", TrafficAllocation: 50, Config: Config{Spec: HeroMediaConfig{MediaType: "video", Asset: &Asset{ID: "hero-1", Duration: 15}}}},
			{ID: "variant_1", Name: "Long video", TrafficAllocation: 50, Config: Config{Spec: HeroMediaConfig{MediaType: "video", Asset: &Asset{ID: "hero-2", Duration: 45}}}},
		},
	}
}

func TestJSONStoreEmptyReads(t *testing.T) {
	s := openTestStore(t, 0)
	ctx := context.Background()

	tests, err := s.ListTests(ctx)
	require.NoError(t, err)
	assert.Empty(t, tests)

	archived, err := s.ListArchived(ctx)
	require.NoError(t, err)
	assert.Empty(t, archived)

	events, err := s.ListEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)

	recs, err := s.ListRecommendations(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs)

	pv, err := s.ProductionVariants(ctx)
	require.NoError(t, err)
	assert.Empty(t, pv)
}

func TestJSONStoreTestRoundTrip(t *testing.T) {
	s := openTestStore(t, 0)
	ctx := context.Background()

	original := sampleTest("test_1")
	require.NoError(t, s.PutTest(ctx, original))

	got, err := s.GetTest(ctx, "test_1")
	require.NoError(t, err)
	assert.Equal(t, original.Name, got.Name)
	assert.Equal(t, StatusActive, got.Status)
	require.Len(t, got.Variants, 2)

	hero := got.Variants[0].Config.HeroMedia()
	require.NotNil(t, hero)
	assert.Equal(t, "video", hero.MediaType)
	require.NotNil(t, hero.Asset)
	assert.Equal(t, 15.0, hero.Asset.Duration)
}

func TestJSONStorePutTestReplacesByID(t *testing.T) {
	s := openTestStore(t, 0)
	ctx := context.Background()

	test := sampleTest("test_1")
	require.NoError(t, s.PutTest(ctx, test))

	test.Status = StatusEnded
	require.NoError(t, s.PutTest(ctx, test))

	tests, err := s.ListTests(ctx)
	require.NoError(t, err)
	require.Len(t, tests, 1)
	assert.Equal(t, StatusEnded, tests[0].Status)
}

func TestJSONStoreGetTestNotFound(t *testing.T) {
	s := openTestStore(t, 0)

	_, err := s.GetTest(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJSONStoreDeleteTest(t *testing.T) {
	s := openTestStore(t, 0)
	ctx := context.Background()

	require.NoError(t, s.PutTest(ctx, sampleTest("test_1")))
	require.NoError(t, s.PutTest(ctx, sampleTest("test_2")))

	require.NoError(t, s.DeleteTest(ctx, "test_1"))

	tests, err := s.ListTests(ctx)
	require.NoError(t, err)
	require.Len(t, tests, 1)
	assert.Equal(t, "test_2", tests[0].ID)

	assert.ErrorIs(t, s.DeleteTest(ctx, "test_1"), ErrNotFound)
}

func TestJSONStoreArchiveAppend(t *testing.T) {
	s := openTestStore(t, 0)
	ctx := context.Background()

	archived := &ArchivedTest{
		Test:        *sampleTest("test_1"),
		EventsCount: 42,
		Analysis: map[string]VariantPerformance{
			"test_1_variant_0": {TestID: "test_1", VariantID: "variant_0", Impressions: 100, Conversions: 10, ConversionRate: 0.1},
		},
	}
	archived.Status = StatusCompleted
	require.NoError(t, s.AppendArchived(ctx, archived))

	list, err := s.ListArchived(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 42, list[0].EventsCount)
	assert.Equal(t, 0.1, list[0].Analysis["test_1_variant_0"].ConversionRate)
}

func TestJSONStoreEventCapacityTrimsOldest(t *testing.T) {
	s := openTestStore(t, 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.AppendEvent(ctx, &Event{
			ID:        string(rune('a' + i)),
			TestID:    "test_1",
			VariantID: "variant_0",
			Type:      EventImpression,
			Timestamp: time.Now(),
		}))
	}

	events, err := s.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "c", events[0].ID)
	assert.Equal(t, "e", events[2].ID)
}

func TestJSONStoreProductionVariants(t *testing.T) {
	s := openTestStore(t, 0)
	ctx := context.Background()

	pv := ProductionVariant{TestID: "test_1", VariantID: "variant_1", UpdatedAt: time.Now().UTC()}
	require.NoError(t, s.SetProductionVariant(ctx, "homepage", pv))

	got, err := s.ProductionVariants(ctx)
	require.NoError(t, err)
	require.Contains(t, got, "homepage")
	assert.Equal(t, "variant_1", got["homepage"].VariantID)
}

func TestJSONStoreRecommendations(t *testing.T) {
	s := openTestStore(t, 0)
	ctx := context.Background()

	rec := &Recommendation{
		Decision: Decision{TestID: "test_1", Action: ActionRecommendWinner, Winner: "variant_1", Confidence: 97.5},
		Status:   RecommendationPending,
	}
	require.NoError(t, s.AppendRecommendation(ctx, rec))

	list, err := s.ListRecommendations(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, ActionRecommendWinner, list[0].Action)
	assert.Equal(t, RecommendationPending, list[0].Status)
}

func TestJSONStoreModelNotTrainedYet(t *testing.T) {
	s := openTestStore(t, 0)

	_, err := s.LoadModel(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJSONStoreModelRoundTrip(t *testing.T) {
	s := openTestStore(t, 0)
	ctx := context.Background()

	model := &Model{
		Rules: []Rule{
			{Name: "optimal_video_duration", Condition: "video_duration <= 20", Confidence: 0.8, Recommendation: "Use videos shorter than 20 seconds"},
		},
		FeatureImportance: map[string]float64{"video_duration": 100},
		TrainedAt:         time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		SampleSize:        24,
	}
	require.NoError(t, s.SaveModel(ctx, model))

	got, err := s.LoadModel(ctx)
	require.NoError(t, err)
	require.Len(t, got.Rules, 1)
	assert.Equal(t, "optimal_video_duration", got.Rules[0].Name)
	assert.Equal(t, 24, got.SampleSize)
	assert.Equal(t, 100.0, got.FeatureImportance["video_duration"])
}
