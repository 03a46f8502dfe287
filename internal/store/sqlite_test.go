package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLiteStore(t *testing.T, eventCapacity int) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "cro-pilot.db"), eventCapacity)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteTestLifecycle(t *testing.T) {
	s := openSQLiteStore(t, 0)
	ctx := context.Background()

	test := sampleTest("test_1")
	require.NoError(t, s.PutTest(ctx, test))

	got, err := s.GetTest(ctx, "test_1")
	require.NoError(t, err)
	assert.Equal(t, test.Name, got.Name)
	require.Len(t, got.Variants, 2)
	require.NotNil(t, got.Variants[0].Config.HeroMedia())

	test.Status = StatusEnded
	require.NoError(t, s.PutTest(ctx, test))
	tests, err := s.ListTests(ctx)
	require.NoError(t, err)
	require.Len(t, tests, 1)
	assert.Equal(t, StatusEnded, tests[0].Status)

	require.NoError(t, s.DeleteTest(ctx, "test_1"))
	assert.ErrorIs(t, s.DeleteTest(ctx, "test_1"), ErrNotFound)
	_, err = s.GetTest(ctx, "test_1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteEventsRoundTrip(t *testing.T) {
	s := openSQLiteStore(t, 0)
	ctx := context.Background()

	ts := time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC)
	require.NoError(t, s.AppendEvent(ctx, &Event{
		ID: "event_1", TestID: "test_1", VariantID: "variant_0", Type: EventImpression,
		Timestamp: ts, DeviceType: "mobile", City: "Tel Aviv", EventCategory: "weddings",
		ScrollDepth: 0.75, TimeOnPage: 42.5, UserID: "u1", SessionID: "s1",
	}))

	events, err := s.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)

	e := events[0]
	assert.Equal(t, "event_1", e.ID)
	assert.True(t, e.Timestamp.Equal(ts))
	assert.Equal(t, "mobile", e.DeviceType)
	assert.Equal(t, "Tel Aviv", e.City)
	assert.Equal(t, "weddings", e.EventCategory)
	assert.Equal(t, 0.75, e.ScrollDepth)
	assert.Equal(t, 42.5, e.TimeOnPage)
	assert.Equal(t, "u1", e.UserID)
}

func TestSQLiteEventCapacityTrimsOldest(t *testing.T) {
	s := openSQLiteStore(t, 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.AppendEvent(ctx, &Event{
			ID: fmt.Sprintf("event_%d", i), TestID: "test_1", VariantID: "variant_0",
			Type: EventImpression, Timestamp: time.Now(),
		}))
	}

	events, err := s.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "event_2", events[0].ID)
	assert.Equal(t, "event_4", events[2].ID)
}

func TestSQLiteArchiveAndProduction(t *testing.T) {
	s := openSQLiteStore(t, 0)
	ctx := context.Background()

	archived := &ArchivedTest{Test: *sampleTest("test_1"), EventsCount: 7}
	archived.Status = StatusCompleted
	archived.Winner = "variant_1"
	require.NoError(t, s.AppendArchived(ctx, archived))

	list, err := s.ListArchived(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "variant_1", list[0].Winner)
	assert.Equal(t, 7, list[0].EventsCount)

	updated := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.SetProductionVariant(ctx, "homepage",
		ProductionVariant{TestID: "test_1", VariantID: "variant_1", UpdatedAt: updated}))

	variants, err := s.ProductionVariants(ctx)
	require.NoError(t, err)
	assert.Equal(t, "variant_1", variants["homepage"].VariantID)
	assert.True(t, variants["homepage"].UpdatedAt.Equal(updated))
}

func TestSQLiteRecommendationsAndModel(t *testing.T) {
	s := openSQLiteStore(t, 0)
	ctx := context.Background()

	require.NoError(t, s.AppendRecommendation(ctx, &Recommendation{
		Decision: Decision{TestID: "test_1", Action: ActionRecommendWinner},
		Status:   RecommendationPending,
	}))
	recs, err := s.ListRecommendations(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, RecommendationPending, recs[0].Status)

	_, err = s.LoadModel(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SaveModel(ctx, &Model{SampleSize: 9}))
	require.NoError(t, s.SaveModel(ctx, &Model{SampleSize: 12}))
	model, err := s.LoadModel(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, model.SampleSize)
}
