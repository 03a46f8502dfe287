package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cro-pilot/cro-pilot/internal/store"
)

// RecordEvent stamps an id and timestamp on a tracking event and appends
// it to the bounded event log.
func (e *Engine) RecordEvent(ctx context.Context, event *store.Event) error {
	if event.TestID == "" || event.VariantID == "" || event.Type == "" {
		return fmt.Errorf("event requires test_id, variant_id and event_type")
	}
	event.ID = "event_" + e.newID()
	event.Timestamp = e.now()
	if err := e.store.AppendEvent(ctx, event); err != nil {
		return fmt.Errorf("recording event: %w", err)
	}
	eventsTotal.WithLabelValues(event.Type).Inc()
	return nil
}

// CreateTest starts a manually defined test.
func (e *Engine) CreateTest(ctx context.Context, test *store.Test) (*store.Test, error) {
	if test.Name == "" {
		return nil, fmt.Errorf("test requires a name")
	}
	if len(test.Variants) < 2 {
		return nil, fmt.Errorf("test requires at least 2 variants, got %d", len(test.Variants))
	}

	test.ID = "test_" + e.newID()
	test.Status = store.StatusActive
	test.StartDate = e.now()
	if test.TargetPage == "" {
		test.TargetPage = "homepage"
	}
	share := 100 / float64(len(test.Variants))
	for i := range test.Variants {
		if test.Variants[i].ID == "" {
			test.Variants[i].ID = fmt.Sprintf("variant_%d", i)
		}
		if test.Variants[i].TrafficAllocation == 0 {
			test.Variants[i].TrafficAllocation = share
		}
	}

	if err := e.store.PutTest(ctx, test); err != nil {
		return nil, fmt.Errorf("creating test: %w", err)
	}
	testsStartedTotal.Inc()
	e.log.Info("test created", zap.String("test_id", test.ID), zap.String("name", test.Name))
	return test, nil
}

// GetTest returns one active test. store.ErrNotFound when absent.
func (e *Engine) GetTest(ctx context.Context, id string) (*store.Test, error) {
	return e.store.GetTest(ctx, id)
}

// EndTest stops a test manually. With a winner the full completion path
// runs (archive, promote); without one the test is marked ended in place.
func (e *Engine) EndTest(ctx context.Context, testID, winnerID string) (*store.Test, error) {
	tests, err := e.store.ListTests(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading tests: %w", err)
	}
	var test *store.Test
	for _, t := range tests {
		if t.ID == testID {
			test = t
			break
		}
	}
	if test == nil {
		return nil, store.ErrNotFound
	}

	if winnerID != "" {
		if test.FindVariant(winnerID) == nil {
			return nil, fmt.Errorf("test %s has no variant %q", testID, winnerID)
		}
		events := e.loadEvents(ctx)
		d := &store.Decision{
			TestID:    testID,
			Action:    store.ActionDeclareWinner,
			Winner:    winnerID,
			Reason:    "manually ended",
			Timestamp: e.now(),
		}
		if err := e.declareWinner(ctx, d, tests, events); err != nil {
			return nil, err
		}
		return test, nil
	}

	now := e.now()
	test.Status = store.StatusEnded
	test.CompletedAt = &now
	if err := e.store.PutTest(ctx, test); err != nil {
		return nil, fmt.Errorf("ending test %s: %w", testID, err)
	}
	e.log.Info("test ended without winner", zap.String("test_id", testID))
	return test, nil
}

// Status is the operational snapshot reported by the status endpoint.
type Status struct {
	ActiveTests   int          `json:"activeTests"`
	TotalTests    int          `json:"totalTests"`
	ArchivedTests int          `json:"archivedTests"`
	TotalEvents   int          `json:"totalEvents"`
	Config        StatusConfig `json:"config"`
	Timestamp     time.Time    `json:"timestamp"`
}

type StatusConfig struct {
	AutomationEnabled  bool `json:"automationEnabled"`
	MaxConcurrentTests int  `json:"maxConcurrentTests"`
	AutoDeclaration    bool `json:"autoDeclaration"`
}

func (e *Engine) Status(ctx context.Context) (*Status, error) {
	tests := e.loadTests(ctx)
	events := e.loadEvents(ctx)
	archived, err := e.store.ListArchived(ctx)
	if err != nil {
		e.log.Warn("loading archive failed", zap.Error(err))
	}

	active := 0
	for _, t := range tests {
		if t.Status == store.StatusActive {
			active++
		}
	}
	return &Status{
		ActiveTests:   active,
		TotalTests:    len(tests),
		ArchivedTests: len(archived),
		TotalEvents:   len(events),
		Config: StatusConfig{
			AutomationEnabled:  e.cfg.Automation.Enabled,
			MaxConcurrentTests: e.cfg.Automation.MaxConcurrentTests,
			AutoDeclaration:    e.cfg.Automation.AutoDeclareWinners,
		},
		Timestamp: e.now(),
	}, nil
}

// Train rebuilds the prediction model from the archive.
func (e *Engine) Train(ctx context.Context) (*store.Model, error) {
	archived, err := e.store.ListArchived(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading archive: %w", err)
	}
	events := e.loadEvents(ctx)

	e.log.Info("training prediction model", zap.Int("archived_tests", len(archived)))
	model, err := e.predictor.Train(ctx, archived, events)
	if err != nil {
		return nil, err
	}
	e.log.Info("model trained",
		zap.Int("rules", len(model.Rules)),
		zap.Int("sample_size", model.SampleSize))
	return model, nil
}

// RunScheduler runs orchestration cycles at the configured interval until
// the context is canceled. The first cycle runs immediately.
func (e *Engine) RunScheduler(ctx context.Context) {
	if !e.cfg.Automation.Enabled {
		e.log.Info("automation disabled, scheduler not started")
		return
	}
	interval := time.Duration(e.cfg.Automation.CycleInterval)
	if interval <= 0 {
		interval = time.Hour
	}
	e.log.Info("scheduler started", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := e.Orchestrate(ctx); err != nil {
			e.log.Error("orchestration cycle failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			e.log.Info("scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}
