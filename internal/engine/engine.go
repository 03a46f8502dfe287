// Package engine runs the optimization loop: load tests and events,
// aggregate metrics, evaluate decisions, execute them, start new tests,
// and rebalance traffic.
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/cro-pilot/cro-pilot/internal/analyzer"
	"github.com/cro-pilot/cro-pilot/internal/config"
	"github.com/cro-pilot/cro-pilot/internal/decision"
	"github.com/cro-pilot/cro-pilot/internal/hypothesis"
	"github.com/cro-pilot/cro-pilot/internal/metrics"
	"github.com/cro-pilot/cro-pilot/internal/predict"
	"github.com/cro-pilot/cro-pilot/internal/store"
)

// Engine wires the pipeline stages together over a single Store.
type Engine struct {
	store     store.Store
	cfg       *config.Config
	log       *zap.Logger
	decisions *decision.Engine
	generator *hypothesis.Generator
	analyzer  *analyzer.Analyzer
	predictor *predict.Predictor

	group singleflight.Group
	now   func() time.Time
	newID func() string
}

func New(st store.Store, cfg *config.Config, log *zap.Logger, gen *hypothesis.Generator) *Engine {
	return &Engine{
		store:     st,
		cfg:       cfg,
		log:       log,
		decisions: decision.NewEngine(cfg),
		generator: gen,
		analyzer:  analyzer.New(cfg.Goals),
		predictor: predict.New(st),
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
}

// WithClock overrides the time source. Tests only.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	e.decisions = decision.NewEngine(e.cfg).WithClock(now)
	return e
}

// Predictor exposes the prediction model facade.
func (e *Engine) Predictor() *predict.Predictor { return e.predictor }

// Analyzer exposes the performance analyzer.
func (e *Engine) Analyzer() *analyzer.Analyzer { return e.analyzer }

// Hypotheses returns the current prioritized hypothesis list.
func (e *Engine) Hypotheses() []*store.Hypothesis { return e.generator.Generate() }

// Store exposes the underlying storage.
func (e *Engine) Store() store.Store { return e.store }

// Logger exposes the engine's logger, shared with the server.
func (e *Engine) Logger() *zap.Logger { return e.log }

// CycleResult summarizes one orchestration cycle.
type CycleResult struct {
	Decisions       []*store.Decision `json:"decisions"`
	ActiveTests     int               `json:"activeTests"`
	EventsProcessed int               `json:"eventsProcessed"`
	Timestamp       time.Time         `json:"timestamp"`
}

// Orchestrate runs one full cycle. Concurrent calls coalesce into a
// single execution; callers share the result.
func (e *Engine) Orchestrate(ctx context.Context) (*CycleResult, error) {
	v, err, _ := e.group.Do("orchestrate", func() (interface{}, error) {
		return e.orchestrate(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*CycleResult), nil
}

func (e *Engine) orchestrate(ctx context.Context) (*CycleResult, error) {
	e.log.Info("starting orchestration cycle")
	cyclesTotal.Inc()

	tests := e.loadTests(ctx)
	events := e.loadEvents(ctx)

	testMetrics := metrics.AggregateAll(tests, events, e.cfg.Goals)
	decisions := e.decisions.EvaluateTests(tests, testMetrics)

	for _, d := range decisions {
		if err := e.executeDecision(ctx, d, tests, events); err != nil {
			// One failing test must not abort the cycle.
			e.log.Error("decision execution failed",
				zap.String("test_id", d.TestID),
				zap.String("action", string(d.Action)),
				zap.Error(err))
		}
	}

	if e.cfg.Automation.AutoStartNewTests {
		if err := e.startNewTestsIfNeeded(ctx); err != nil {
			e.log.Error("starting new tests failed", zap.Error(err))
		}
	}

	if err := e.updateTrafficAllocations(ctx, testMetrics); err != nil {
		e.log.Error("traffic reallocation failed", zap.Error(err))
	}

	// Recount after executions; completed tests have left the active set.
	remaining := e.loadTests(ctx)

	e.log.Info("orchestration cycle complete",
		zap.Int("decisions", len(decisions)),
		zap.Int("active_tests", len(remaining)))

	return &CycleResult{
		Decisions:       decisions,
		ActiveTests:     len(remaining),
		EventsProcessed: len(events),
		Timestamp:       e.now(),
	}, nil
}

// loadTests degrades to an empty set on storage failure so a corrupt
// document cannot wedge the whole loop.
func (e *Engine) loadTests(ctx context.Context) []*store.Test {
	tests, err := e.store.ListTests(ctx)
	if err != nil {
		e.log.Warn("loading active tests failed, continuing with none", zap.Error(err))
		return nil
	}
	return tests
}

func (e *Engine) loadEvents(ctx context.Context) []*store.Event {
	events, err := e.store.ListEvents(ctx)
	if err != nil {
		e.log.Warn("loading events failed, continuing with none", zap.Error(err))
		return nil
	}
	return events
}

func (e *Engine) executeDecision(ctx context.Context, d *store.Decision, tests []*store.Test, events []*store.Event) error {
	decisionsTotal.WithLabelValues(string(d.Action)).Inc()

	switch d.Action {
	case store.ActionDeclareWinner:
		return e.declareWinner(ctx, d, tests, events)
	case store.ActionRecommendWinner:
		return e.logRecommendation(ctx, d)
	case store.ActionContinue:
		e.log.Info("test continues",
			zap.String("test_id", d.TestID),
			zap.String("reason", d.Reason))
		return nil
	default:
		e.log.Warn("unknown decision action", zap.String("action", string(d.Action)))
		return nil
	}
}

// declareWinner completes a test: archive it with its full-lifetime
// analysis, remove it from the active set, and promote the winning
// variant to production.
func (e *Engine) declareWinner(ctx context.Context, d *store.Decision, tests []*store.Test, events []*store.Event) error {
	var test *store.Test
	for _, t := range tests {
		if t.ID == d.TestID {
			test = t
			break
		}
	}
	if test == nil {
		return nil
	}

	e.log.Info("winner declared",
		zap.String("test_id", test.ID),
		zap.String("test_name", test.Name),
		zap.String("winner", d.Winner))

	now := e.now()
	test.Status = store.StatusCompleted
	test.Winner = d.Winner
	test.CompletedAt = &now
	test.Decision = d

	var testEvents []*store.Event
	for _, ev := range events {
		if ev.TestID == test.ID {
			testEvents = append(testEvents, ev)
		}
	}

	archived := &store.ArchivedTest{
		Test:        *test,
		EventsCount: len(testEvents),
		Analysis:    e.analyzer.AnalyzeByVariant([]*store.Test{test}, testEvents),
	}
	if err := e.store.AppendArchived(ctx, archived); err != nil {
		return fmt.Errorf("archiving test %s: %w", test.ID, err)
	}
	if err := e.store.DeleteTest(ctx, test.ID); err != nil {
		return fmt.Errorf("removing test %s from active set: %w", test.ID, err)
	}
	if err := e.store.SetProductionVariant(ctx, test.TargetPage, store.ProductionVariant{
		TestID:    test.ID,
		VariantID: d.Winner,
		UpdatedAt: now,
	}); err != nil {
		return fmt.Errorf("promoting winner for page %s: %w", test.TargetPage, err)
	}

	e.log.Info("test archived", zap.String("test_id", test.ID))
	return nil
}

func (e *Engine) logRecommendation(ctx context.Context, d *store.Decision) error {
	rec := &store.Recommendation{Decision: *d, Status: store.RecommendationPending}
	rec.Timestamp = e.now()
	if err := e.store.AppendRecommendation(ctx, rec); err != nil {
		return fmt.Errorf("logging recommendation for test %s: %w", d.TestID, err)
	}
	e.log.Info("winner recommended for review",
		zap.String("test_id", d.TestID),
		zap.String("winner", d.Winner),
		zap.Float64("confidence", d.Confidence))
	return nil
}

// startNewTestsIfNeeded fills free test slots with the top-priority
// generated hypotheses.
func (e *Engine) startNewTestsIfNeeded(ctx context.Context) error {
	tests := e.loadTests(ctx)
	active := 0
	for _, t := range tests {
		if t.Status == store.StatusActive {
			active++
		}
	}
	maxConcurrent := e.cfg.Automation.MaxConcurrentTests
	if active >= maxConcurrent {
		e.log.Info("max concurrent tests reached",
			zap.Int("active", active),
			zap.Int("max", maxConcurrent))
		return nil
	}

	slots := maxConcurrent - active
	hypotheses := append(e.challengerHypotheses(ctx, tests), e.generator.Generate()...)
	e.log.Info("test slots available",
		zap.Int("slots", slots),
		zap.Int("hypotheses", len(hypotheses)))

	for i := 0; i < slots && i < len(hypotheses); i++ {
		if _, err := e.StartTest(ctx, hypotheses[i]); err != nil {
			return err
		}
	}
	return nil
}

// challengerHypotheses proposes a rematch for every page whose production
// champion has a distinct same-category asset available, skipping pages
// already under test. Challengers rank ahead of catalog hypotheses.
func (e *Engine) challengerHypotheses(ctx context.Context, tests []*store.Test) []*store.Hypothesis {
	production, err := e.store.ProductionVariants(ctx)
	if err != nil {
		e.log.Warn("loading production variants failed", zap.Error(err))
		return nil
	}
	if len(production) == 0 {
		return nil
	}

	underTest := make(map[string]bool)
	for _, t := range tests {
		if t.Status == store.StatusActive {
			underTest[t.TargetPage] = true
		}
	}

	archived, err := e.store.ListArchived(ctx)
	if err != nil {
		e.log.Warn("loading archive failed", zap.Error(err))
		return nil
	}

	pages := make([]string, 0, len(production))
	for page := range production {
		pages = append(pages, page)
	}
	sort.Strings(pages)

	var out []*store.Hypothesis
	for _, page := range pages {
		if underTest[page] {
			continue
		}
		pv := production[page]
		champion := archivedVariant(archived, pv.TestID, pv.VariantID)
		if champion == nil {
			continue
		}
		challenger := e.generator.GenerateChallenger(champion)
		if challenger == nil {
			continue
		}
		out = append(out, &store.Hypothesis{
			Type:       "champion_challenger",
			Hypothesis: fmt.Sprintf("Challenger beats current %s champion %s", page, champion.Name),
			Variants: []store.CandidateVariant{
				{Name: champion.Name, Config: champion.Config},
				*challenger,
			},
			Priority:       "medium",
			ExpectedImpact: "medium",
			Reasoning:      "Champions should be retested against fresh assets",
			TargetPage:     page,
		})
	}
	return out
}

func archivedVariant(archived []*store.ArchivedTest, testID, variantID string) *store.Variant {
	for _, a := range archived {
		if a.Test.ID == testID {
			return a.Test.FindVariant(variantID)
		}
	}
	return nil
}

// StartTest materializes a hypothesis into an active test with an even
// initial traffic split.
func (e *Engine) StartTest(ctx context.Context, h *store.Hypothesis) (*store.Test, error) {
	page := h.TargetPage
	if page == "" {
		page = hypothesis.TargetPage(h.Type)
	}
	test := &store.Test{
		ID:             "test_" + e.newID(),
		Name:           h.Hypothesis,
		Type:           h.Type,
		Status:         store.StatusActive,
		StartDate:      e.now(),
		Hypothesis:     h.Hypothesis,
		ExpectedImpact: h.ExpectedImpact,
		TargetPage:     page,
	}
	share := 100 / float64(len(h.Variants))
	for i, cv := range h.Variants {
		test.Variants = append(test.Variants, store.Variant{
			ID:                fmt.Sprintf("variant_%d", i),
			Name:              cv.Name,
			Config:            cv.Config,
			TrafficAllocation: share,
		})
	}

	if err := e.store.PutTest(ctx, test); err != nil {
		return nil, fmt.Errorf("starting test: %w", err)
	}
	testsStartedTotal.Inc()
	e.log.Info("new test started",
		zap.String("test_id", test.ID),
		zap.String("name", test.Name),
		zap.String("target_page", test.TargetPage))
	return test, nil
}

// updateTrafficAllocations rebalances every active test toward its
// current leader.
func (e *Engine) updateTrafficAllocations(ctx context.Context, testMetrics map[string]store.TestMetrics) error {
	if !e.cfg.Allocation.Enabled {
		return nil
	}
	for _, test := range e.loadTests(ctx) {
		if test.Status != store.StatusActive {
			continue
		}
		tm, ok := testMetrics[test.ID]
		if !ok {
			continue
		}
		allocations := decision.Allocate(test.Variants, tm, e.cfg.Allocation)
		for i := range test.Variants {
			test.Variants[i].TrafficAllocation = allocations[test.Variants[i].ID]
		}
		if err := e.store.PutTest(ctx, test); err != nil {
			return fmt.Errorf("saving allocation for test %s: %w", test.ID, err)
		}
	}
	return nil
}
