// Package decision is the statistical core: it decides whether a test has
// a winner. The engine is a pure function over test/metrics snapshots. It
// performs no I/O and never errors, returning continue-with-reason
// decisions for anything it cannot yet judge.
package decision

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/cro-pilot/cro-pilot/internal/config"
	"github.com/cro-pilot/cro-pilot/internal/metrics"
	"github.com/cro-pilot/cro-pilot/internal/stats"
	"github.com/cro-pilot/cro-pilot/internal/store"
)

type Engine struct {
	cfg *config.Config
	now func() time.Time
}

func NewEngine(cfg *config.Config) *Engine {
	return &Engine{cfg: cfg, now: time.Now}
}

// WithClock overrides the engine's notion of now, for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// EvaluateTests evaluates every active test and returns one decision per
// test. Non-active tests are skipped.
func (e *Engine) EvaluateTests(tests []*store.Test, testMetrics map[string]store.TestMetrics) []*store.Decision {
	var decisions []*store.Decision
	for _, test := range tests {
		if test.Status != store.StatusActive {
			continue
		}
		decisions = append(decisions, e.EvaluateTest(test, testMetrics[test.ID]))
	}
	return decisions
}

// EvaluateTest produces the verdict for a single test.
func (e *Engine) EvaluateTest(test *store.Test, tm store.TestMetrics) *store.Decision {
	readiness := e.checkReadiness(test, tm)
	if !readiness.ready {
		return &store.Decision{
			TestID:    test.ID,
			TestName:  test.Name,
			Action:    store.ActionContinue,
			Reason:    readiness.reason,
			Timestamp: e.now(),
		}
	}

	analysis := e.analyze(test, tm)
	decision := e.decide(analysis)
	decision.TestID = test.ID
	decision.TestName = test.Name
	decision.Analysis = analysis
	decision.Timestamp = e.now()
	if readiness.forced {
		decision.Reason = readiness.reason
	}
	return decision
}

type readiness struct {
	ready  bool
	forced bool
	reason string
}

// checkReadiness applies the sample-size gate. A variant with zero
// impressions blocks a decision unconditionally (conversion rates would
// be undefined); otherwise exceeding the maximum test duration forces
// readiness regardless of sample size.
func (e *Engine) checkReadiness(test *store.Test, tm store.TestMetrics) readiness {
	if len(test.Variants) < 2 {
		return readiness{reason: fmt.Sprintf("test %s has %d variants, need at least 2", test.ID, len(test.Variants))}
	}

	minSample := e.cfg.Automation.MinSampleSize
	maxDuration := e.cfg.Automation.TestDurationMax

	for _, variant := range test.Variants {
		if tm[variant.ID].Impressions == 0 {
			return readiness{reason: fmt.Sprintf("variant %s has no impressions yet", variant.ID)}
		}
	}

	if age := test.AgeDays(e.now()); age > maxDuration {
		return readiness{
			ready:  true,
			forced: true,
			reason: fmt.Sprintf("maximum test duration reached (%d/%d days)", age, maxDuration),
		}
	}

	for _, variant := range test.Variants {
		if m := tm[variant.ID]; m.Impressions < minSample {
			return readiness{reason: fmt.Sprintf("variant %s has insufficient impressions (%d/%d)", variant.ID, m.Impressions, minSample)}
		}
	}

	return readiness{ready: true}
}

// analyze computes per-variant statistics, sorts by conversion rate, and
// compares the top two. Variants beyond the runner-up do not participate
// in the significance test.
func (e *Engine) analyze(test *store.Test, tm store.TestMetrics) *store.Analysis {
	variantStats := make([]store.VariantStat, 0, len(test.Variants))
	for _, variant := range test.Variants {
		m := tm[variant.ID]
		rate := stats.ConversionRate(m.Conversions, m.Impressions)
		lower, upper := stats.ConfidenceInterval(rate, m.Impressions)
		variantStats = append(variantStats, store.VariantStat{
			VariantID:          variant.ID,
			Impressions:        m.Impressions,
			Conversions:        m.Conversions,
			ConversionRate:     rate,
			StandardError:      stats.StandardError(rate, m.Impressions),
			ConfidenceInterval: store.Interval{Lower: lower, Upper: upper},
			Goals:              m.Goals,
			EngagementScore:    metrics.EngagementScore(m, e.cfg.Goals),
		})
	}

	sort.SliceStable(variantStats, func(i, j int) bool {
		return variantStats[i].ConversionRate > variantStats[j].ConversionRate
	})

	leader, runnerUp := variantStats[0], variantStats[1]
	chi := stats.ChiSquareTest(leader.Conversions, leader.Impressions, runnerUp.Conversions, runnerUp.Impressions)

	effectSize := relativeLift(leader.ConversionRate, runnerUp.ConversionRate)

	return &store.Analysis{
		Variants: variantStats,
		ChiSquare: store.ChiSquareResult{
			Statistic:        chi.Statistic,
			PValue:           chi.PValue,
			DegreesOfFreedom: chi.DegreesOfFreedom,
		},
		EffectSize:      effectSize,
		IsSignificant:   chi.PValue < e.cfg.Statistics.SignificanceLevel,
		MeetsEffectSize: math.Abs(effectSize) >= e.cfg.Statistics.MinimumEffectSize,
	}
}

// relativeLift is (leader - runnerUp) / runnerUp. A zero runner-up rate
// with any leader conversions reports as a 100% lift.
func relativeLift(leaderRate, runnerUpRate float64) float64 {
	if runnerUpRate == 0 {
		if leaderRate == 0 {
			return 0
		}
		return 1
	}
	return (leaderRate - runnerUpRate) / runnerUpRate
}

// decide applies the decision table: only significant AND large-enough
// effects resolve a test; every other combination continues.
func (e *Engine) decide(analysis *store.Analysis) *store.Decision {
	leader := analysis.Variants[0]
	runnerUp := analysis.Variants[1]
	confidence := roundTo((1-analysis.ChiSquare.PValue)*100, 2)

	switch {
	case analysis.IsSignificant && analysis.MeetsEffectSize:
		action := store.ActionRecommendWinner
		if e.cfg.Automation.AutoDeclareWinners {
			action = store.ActionDeclareWinner
		}
		return &store.Decision{
			Action:     action,
			Winner:     leader.VariantID,
			Confidence: confidence,
			Recommendation: fmt.Sprintf(
				"Variant %s shows statistically significant improvement of %.2f%% over %s (%.2f%% vs %.2f%%)",
				leader.VariantID, analysis.EffectSize*100, runnerUp.VariantID,
				leader.ConversionRate*100, runnerUp.ConversionRate*100),
		}
	case analysis.IsSignificant:
		return &store.Decision{
			Action:     store.ActionContinue,
			Confidence: confidence,
			Recommendation: fmt.Sprintf(
				"Test is statistically significant but effect size (%.2f%%) is below threshold (%.0f%%). Consider continuing or declaring no meaningful difference.",
				analysis.EffectSize*100, e.cfg.Statistics.MinimumEffectSize*100),
		}
	case analysis.MeetsEffectSize:
		return &store.Decision{
			Action:     store.ActionContinue,
			Confidence: confidence,
			Recommendation: fmt.Sprintf(
				"Large effect size detected (%.2f%%) but not statistically significant yet. Continue to gather more data.",
				analysis.EffectSize*100),
		}
	default:
		return &store.Decision{
			Action:         store.ActionContinue,
			Confidence:     confidence,
			Recommendation: "No significant difference detected. Continue test or consider declaring no winner.",
		}
	}
}

func roundTo(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
