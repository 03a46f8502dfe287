package store

import "time"

type TestStatus string

const (
	StatusActive        TestStatus = "active"
	StatusPendingReview TestStatus = "pending_review"
	StatusEnded         TestStatus = "ended"
	StatusCompleted     TestStatus = "completed"
)

// Test is one experiment under evaluation. Exactly one status at a time;
// Winner is set only when the status is completed.
type Test struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Type           string     `json:"type"`
	Status         TestStatus `json:"status"`
	StartDate      time.Time  `json:"startDate"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	Hypothesis     string     `json:"hypothesis"`
	ExpectedImpact string     `json:"expectedImpact,omitempty"`
	TargetPage     string     `json:"targetPage"`
	Variants       []Variant  `json:"variants"`
	Winner         string     `json:"winner,omitempty"`
	Decision       *Decision  `json:"decision,omitempty"`
}

// Variant is one arm of a test. TrafficAllocation is a percentage;
// across a test's variants the allocations sum to 100.
type Variant struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Config            Config  `json:"config"`
	TrafficAllocation float64 `json:"trafficAllocation"`
}

// AgeDays returns the test age in whole days, rounded up so a test
// started an hour ago already counts as one day old.
func (t *Test) AgeDays(now time.Time) int {
	hours := now.Sub(t.StartDate).Hours()
	if hours < 0 {
		hours = -hours
	}
	days := int(hours / 24)
	if hours > float64(days)*24 {
		days++
	}
	return days
}

// FindVariant returns the variant with the given id, or nil.
func (t *Test) FindVariant(id string) *Variant {
	for i := range t.Variants {
		if t.Variants[i].ID == id {
			return &t.Variants[i]
		}
	}
	return nil
}

// Event is an immutable fact about a single variant exposure or interaction.
// The event log is append-only and bounded; the oldest events are trimmed
// once capacity is exceeded.
type Event struct {
	ID            string    `json:"id"`
	TestID        string    `json:"test_id"`
	VariantID     string    `json:"variant_id"`
	Type          string    `json:"event_type"`
	Timestamp     time.Time `json:"timestamp"`
	DeviceType    string    `json:"device_type,omitempty"`
	City          string    `json:"city,omitempty"`
	EventCategory string    `json:"event_category,omitempty"`
	ScrollDepth   float64   `json:"scroll_depth,omitempty"`
	TimeOnPage    float64   `json:"time_on_page,omitempty"`
	UserID        string    `json:"user_id,omitempty"`
	SessionID     string    `json:"session_id,omitempty"`
}

const (
	EventImpression = "impression"
	EventConversion = "conversion"
)

// VisitorKey identifies the visitor behind an event, preferring the
// stable user id over the session id.
func (e *Event) VisitorKey() string {
	if e.UserID != "" {
		return e.UserID
	}
	return e.SessionID
}

type Action string

const (
	ActionContinue        Action = "continue"
	ActionRecommendWinner Action = "recommend_winner"
	ActionDeclareWinner   Action = "declare_winner"
)

// Decision is the verdict produced by the decision engine for one test at
// one point in time. It is embedded into the test when acted upon, or
// appended to the recommendations log in manual-approval mode.
type Decision struct {
	TestID         string    `json:"testId"`
	TestName       string    `json:"testName,omitempty"`
	Action         Action    `json:"action"`
	Winner         string    `json:"winner,omitempty"`
	Confidence     float64   `json:"confidence"`
	Reason         string    `json:"reason,omitempty"`
	Recommendation string    `json:"recommendation,omitempty"`
	Analysis       *Analysis `json:"analysis,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Analysis is the full statistics snapshot behind a decision. Variants are
// sorted by conversion rate descending; the chi-square test compares the
// top two only.
type Analysis struct {
	Variants        []VariantStat   `json:"variants"`
	ChiSquare       ChiSquareResult `json:"chiSquare"`
	EffectSize      float64         `json:"effectSize"`
	IsSignificant   bool            `json:"isSignificant"`
	MeetsEffectSize bool            `json:"meetsEffectSize"`
}

// VariantStat holds the per-variant statistics computed during analysis.
type VariantStat struct {
	VariantID          string     `json:"variantId"`
	Impressions        int        `json:"impressions"`
	Conversions        int        `json:"conversions"`
	ConversionRate     float64    `json:"conversionRate"`
	StandardError      float64    `json:"standardError"`
	ConfidenceInterval Interval   `json:"confidenceInterval"`
	Goals              GoalCounts `json:"goals,omitempty"`
	EngagementScore    float64    `json:"engagementScore"`
}

type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

type ChiSquareResult struct {
	Statistic        float64 `json:"statistic"`
	PValue           float64 `json:"pValue"`
	DegreesOfFreedom int     `json:"degreesOfFreedom"`
}

// GoalCounts maps an optimization-goal name to its raw event count.
type GoalCounts map[string]int

// VariantMetrics is the metrics aggregator's output for one variant.
type VariantMetrics struct {
	Impressions int        `json:"impressions"`
	Conversions int        `json:"conversions"`
	Goals       GoalCounts `json:"goals,omitempty"`
}

// TestMetrics maps variant id to its aggregated metrics.
type TestMetrics map[string]VariantMetrics

// Hypothesis is a proposed future test, generated fresh each cycle and
// not persisted except as the seed for newly created tests.
type Hypothesis struct {
	Type           string             `json:"type"`
	Hypothesis     string             `json:"hypothesis"`
	Variants       []CandidateVariant `json:"variants"`
	Priority       string             `json:"priority"`
	ExpectedImpact string             `json:"expectedImpact"`
	Reasoning      string             `json:"reasoning"`
	TargetAudience string             `json:"targetAudience,omitempty"`
	TargetPage     string             `json:"targetPage,omitempty"`
	PriorityScore  int                `json:"priorityScore"`
}

// CandidateVariant is a variant config proposed by the hypothesis
// generator, before a test id is assigned.
type CandidateVariant struct {
	Name   string `json:"name"`
	Config Config `json:"config"`
}

// Recommendation is a decision awaiting human review.
type Recommendation struct {
	Decision
	Status string `json:"status"`
}

const RecommendationPending = "pending_review"

// ProductionVariant records which variant is currently served for a page.
// This is the only read model visible to the frontend-serving layer.
type ProductionVariant struct {
	TestID    string    `json:"testId"`
	VariantID string    `json:"variantId"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ArchivedTest is a completed test moved out of active storage, with its
// full-lifetime per-variant analysis attached.
type ArchivedTest struct {
	Test
	EventsCount int                           `json:"eventsCount"`
	Analysis    map[string]VariantPerformance `json:"analysis,omitempty"`
}

// VariantPerformance is the per-variant performance rollup computed by the
// performance analyzer.
type VariantPerformance struct {
	TestID            string     `json:"testId"`
	TestName          string     `json:"testName"`
	VariantID         string     `json:"variantId"`
	VariantName       string     `json:"variantName"`
	Impressions       int        `json:"impressions"`
	Conversions       int        `json:"conversions"`
	ConversionRate    float64    `json:"conversionRate"`
	EngagementMetrics GoalCounts `json:"engagementMetrics,omitempty"`
	EngagementScore   float64    `json:"engagementScore"`
	Confidence        Interval   `json:"confidence"`
}

// Model is the trained prediction model: a small set of fixed-shape
// decision rules plus normalized feature importances.
type Model struct {
	Rules             []Rule             `json:"rules"`
	FeatureImportance map[string]float64 `json:"featureImportance"`
	TrainedAt         time.Time          `json:"trainedAt"`
	SampleSize        int                `json:"sampleSize"`
}

// Rule is one induced decision rule. Confidence is the relative difference
// between the two compared buckets.
type Rule struct {
	Name           string            `json:"rule"`
	Condition      string            `json:"condition"`
	Confidence     float64           `json:"confidence"`
	Recommendation string            `json:"recommendation"`
	Buckets        map[string]Bucket `json:"data,omitempty"`
}

// Bucket summarizes one side of a rule comparison.
type Bucket struct {
	Count              int     `json:"count"`
	AvgConversionRate  float64 `json:"avgConvRate"`
	AvgEngagementScore float64 `json:"avgEngagement,omitempty"`
}

// Asset describes one media file from the media manifest.
type Asset struct {
	ID          string      `json:"id"`
	Path        string      `json:"path,omitempty"`
	Category    string      `json:"category,omitempty"`
	Subcategory string      `json:"subcategory,omitempty"`
	Duration    float64     `json:"duration,omitempty"`
	Dimensions  *Dimensions `json:"dimensions,omitempty"`
}

type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// AspectRatio returns width/height, or 0 when dimensions are unknown.
func (a *Asset) AspectRatio() float64 {
	if a == nil || a.Dimensions == nil || a.Dimensions.Height == 0 {
		return 0
	}
	return float64(a.Dimensions.Width) / float64(a.Dimensions.Height)
}

// MediaManifest lists the media assets available for hypothesis generation.
type MediaManifest struct {
	Videos struct {
		Hero []Asset `json:"hero"`
	} `json:"videos"`
	Gallery struct {
		Weddings []Asset `json:"weddings"`
		Parties  []Asset `json:"parties"`
	} `json:"gallery"`
}
