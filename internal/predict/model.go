// Package predict implements a small rule-induction model over archived
// test outcomes. It is intentionally simple: per-feature comparisons and
// Pearson correlation, not a general learner.
package predict

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/cro-pilot/cro-pilot/internal/stats"
	"github.com/cro-pilot/cro-pilot/internal/store"
)

// featureNames fixes the order importance is reported in.
var featureNames = []string{
	"image_aspect_ratio",
	"has_people",
	"event_type",
	"video_duration",
	"is_video",
	"mobile_percentage",
	"desktop_percentage",
}

type Predictor struct {
	models store.ModelStore
	now    func() time.Time
}

func New(models store.ModelStore) *Predictor {
	return &Predictor{models: models, now: time.Now}
}

// Features is what the model sees of one variant: media shape, content
// category and observed audience mix.
type Features struct {
	ImageAspectRatio  float64
	HasPeople         bool
	EventType         string
	VideoDuration     float64
	IsVideo           bool
	PeakTimeOfDay     string
	PeakDayOfWeek     string
	MobilePercentage  float64
	DesktopPercentage float64
}

// sample is one training row: a variant's features and its outcome.
type sample struct {
	features        Features
	isWinner        bool
	conversionRate  float64
	engagementScore float64
}

// Train induces decision rules from archived tests and persists the model.
func (p *Predictor) Train(ctx context.Context, tests []*store.ArchivedTest, events []*store.Event) (*store.Model, error) {
	data := prepareTrainingData(tests, events)
	model := &store.Model{
		Rules:             buildDecisionRules(data),
		FeatureImportance: featureImportance(data),
		TrainedAt:         p.now(),
		SampleSize:        len(data),
	}
	if err := p.models.SaveModel(ctx, model); err != nil {
		return nil, fmt.Errorf("saving model: %w", err)
	}
	return model, nil
}

// prepareTrainingData turns completed tests with a declared winner into
// per-variant samples. Variants without any events are skipped.
func prepareTrainingData(tests []*store.ArchivedTest, events []*store.Event) []sample {
	var data []sample
	for _, test := range tests {
		if test.Status != store.StatusCompleted || test.Winner == "" {
			continue
		}
		for i := range test.Variants {
			variant := &test.Variants[i]
			var variantEvents []*store.Event
			for _, e := range events {
				if e.TestID == test.ID && e.VariantID == variant.ID {
					variantEvents = append(variantEvents, e)
				}
			}
			if len(variantEvents) == 0 {
				continue
			}
			data = append(data, sample{
				features:        ExtractFeatures(variant, variantEvents, test.Type),
				isWinner:        variant.ID == test.Winner,
				conversionRate:  conversionRate(variantEvents),
				engagementScore: engagementScore(variantEvents),
			})
		}
	}
	return data
}

// ExtractFeatures derives model features from a variant's config and the
// events recorded against it.
func ExtractFeatures(variant *store.Variant, events []*store.Event, testType string) Features {
	f := FeaturesFromConfig(variant.Config)
	if f.EventType == "" {
		f.EventType = testType
	}

	f.PeakTimeOfDay, f.PeakDayOfWeek = peakTimes(events)

	if total := len(events); total > 0 {
		var mobile, desktop int
		for _, e := range events {
			switch e.DeviceType {
			case "mobile":
				mobile++
			case "desktop":
				desktop++
			}
		}
		f.MobilePercentage = float64(mobile) / float64(total) * 100
		f.DesktopPercentage = float64(desktop) / float64(total) * 100
	}
	return f
}

// FeaturesFromConfig extracts the config-only features, used both in
// training and when scoring a candidate variant that has no events yet.
func FeaturesFromConfig(cfg store.Config) Features {
	var f Features
	asset := cfg.MediaAsset()
	if asset != nil {
		f.ImageAspectRatio = asset.AspectRatio()
		f.EventType = asset.Subcategory
		f.HasPeople = asset.Subcategory == "parties" || asset.Subcategory == "weddings"
	}
	if hm := cfg.HeroMedia(); hm != nil && hm.MediaType == "video" && asset != nil && asset.Duration > 0 {
		f.VideoDuration = asset.Duration
		f.IsVideo = true
	}
	return f
}

func buildDecisionRules(data []sample) []store.Rule {
	var rules []store.Rule

	// Video duration: short (<=20s) versus long.
	var videos []sample
	for _, d := range data {
		if d.features.IsVideo {
			videos = append(videos, d)
		}
	}
	if len(videos) > 5 {
		short := filter(videos, func(s sample) bool { return s.features.VideoDuration <= 20 })
		long := filter(videos, func(s sample) bool { return s.features.VideoDuration > 20 })
		shortRate, longRate := avgConversionRate(short), avgConversionRate(long)

		rule := store.Rule{
			Name:           "optimal_video_duration",
			Condition:      "long",
			Confidence:     relativeDiff(shortRate, longRate),
			Recommendation: "Longer videos (>20s) perform better",
			Buckets: map[string]store.Bucket{
				"shortVideos": {Count: len(short), AvgConversionRate: shortRate},
				"longVideos":  {Count: len(long), AvgConversionRate: longRate},
			},
		}
		if shortRate > longRate {
			rule.Condition = "short"
			rule.Recommendation = "Use videos under 20 seconds for better conversion"
		}
		rules = append(rules, rule)
	}

	// Image aspect ratio: landscape (>1.5) versus standard.
	var images []sample
	for _, d := range data {
		if !d.features.IsVideo && d.features.ImageAspectRatio > 0 {
			images = append(images, d)
		}
	}
	if len(images) > 5 {
		landscape := filter(images, func(s sample) bool { return s.features.ImageAspectRatio > 1.5 })
		standard := filter(images, func(s sample) bool { return s.features.ImageAspectRatio <= 1.5 })
		landscapeRate, standardRate := avgConversionRate(landscape), avgConversionRate(standard)

		rule := store.Rule{
			Name:           "optimal_image_aspect_ratio",
			Condition:      "standard",
			Confidence:     relativeDiff(landscapeRate, standardRate),
			Recommendation: "Standard aspect ratio images perform better",
			Buckets: map[string]store.Bucket{
				"landscape": {Count: len(landscape), AvgConversionRate: landscapeRate},
				"standard":  {Count: len(standard), AvgConversionRate: standardRate},
			},
		}
		if landscapeRate > standardRate {
			rule.Condition = "landscape"
			rule.Recommendation = "Wide landscape images (>1.5 ratio) convert better"
		}
		rules = append(rules, rule)
	}

	// Event type: which content category converts best.
	eventTypes := map[string]store.Bucket{}
	for _, eventType := range []string{"weddings", "parties", "corporate"} {
		typed := filter(data, func(s sample) bool { return s.features.EventType == eventType })
		if len(typed) > 0 {
			eventTypes[eventType] = store.Bucket{
				Count:              len(typed),
				AvgConversionRate:  avgConversionRate(typed),
				AvgEngagementScore: avgEngagement(typed),
			}
		}
	}
	if len(eventTypes) > 1 {
		best := bestBucket(eventTypes)
		rules = append(rules, store.Rule{
			Name:           "optimal_event_type",
			Condition:      best,
			Confidence:     0.7,
			Recommendation: fmt.Sprintf("%s content performs best for conversions", best),
			Buckets:        eventTypes,
		})
	}

	// Device mix: mobile-heavy versus desktop-heavy audiences.
	mobileHeavy := filter(data, func(s sample) bool { return s.features.MobilePercentage > 60 })
	desktopHeavy := filter(data, func(s sample) bool { return s.features.DesktopPercentage > 60 })
	if len(mobileHeavy) > 3 && len(desktopHeavy) > 3 {
		mobileRate, desktopRate := avgConversionRate(mobileHeavy), avgConversionRate(desktopHeavy)

		rule := store.Rule{
			Name:           "device_optimization",
			Condition:      "desktop_first",
			Confidence:     relativeDiff(mobileRate, desktopRate),
			Recommendation: "Desktop users show higher conversion rates",
			Buckets: map[string]store.Bucket{
				"mobile":  {Count: len(mobileHeavy), AvgConversionRate: mobileRate},
				"desktop": {Count: len(desktopHeavy), AvgConversionRate: desktopRate},
			},
		}
		if mobileRate > desktopRate {
			rule.Condition = "mobile_first"
			rule.Recommendation = "Optimize for mobile users - they convert better"
		}
		rules = append(rules, rule)
	}

	// Time of day: which slot had the best-converting peak traffic.
	slots := map[string]store.Bucket{}
	for _, slot := range []string{"Night", "Morning", "Afternoon", "Evening"} {
		slotted := filter(data, func(s sample) bool { return s.features.PeakTimeOfDay == slot })
		if len(slotted) > 0 {
			slots[slot] = store.Bucket{
				Count:              len(slotted),
				AvgConversionRate:  avgConversionRate(slotted),
				AvgEngagementScore: avgEngagement(slotted),
			}
		}
	}
	if len(slots) > 1 {
		best := bestBucket(slots)
		rules = append(rules, store.Rule{
			Name:           "optimal_time_of_day",
			Condition:      best,
			Confidence:     0.6,
			Recommendation: fmt.Sprintf("%s shows best conversion performance", best),
			Buckets:        slots,
		})
	}

	return rules
}

// featureImportance scores numeric features by the absolute Pearson
// correlation between the feature and conversion rate, normalized so the
// scores sum to 100. Categorical features get zero.
func featureImportance(data []sample) map[string]float64 {
	importance := map[string]float64{}
	outcomes := make([]float64, len(data))
	for i, d := range data {
		outcomes[i] = d.conversionRate
	}

	for _, name := range featureNames {
		var values, paired []float64
		for i, d := range data {
			if v, ok := numericFeature(d.features, name); ok {
				values = append(values, v)
				paired = append(paired, outcomes[i])
			}
		}
		if len(values) < 2 {
			importance[name] = 0
			continue
		}
		importance[name] = math.Abs(stats.Pearson(values, paired))
	}

	var total float64
	for _, v := range importance {
		total += v
	}
	if total > 0 {
		for name := range importance {
			importance[name] = roundTo(importance[name]/total*100, 2)
		}
	}
	return importance
}

func numericFeature(f Features, name string) (float64, bool) {
	switch name {
	case "image_aspect_ratio":
		return f.ImageAspectRatio, f.ImageAspectRatio > 0
	case "has_people":
		return boolToFloat(f.HasPeople), true
	case "video_duration":
		return f.VideoDuration, f.IsVideo
	case "is_video":
		return boolToFloat(f.IsVideo), true
	case "mobile_percentage":
		return f.MobilePercentage, true
	case "desktop_percentage":
		return f.DesktopPercentage, true
	default:
		return 0, false
	}
}

// Prediction is the result of scoring a candidate variant config against
// the trained rules.
type Prediction struct {
	Predictions       []RuleMatch        `json:"predictions"`
	OverallConfidence float64            `json:"overallConfidence"`
	FeatureImportance map[string]float64 `json:"featureImportance"`
	Timestamp         time.Time          `json:"timestamp"`
}

type RuleMatch struct {
	Rule           string  `json:"rule"`
	Recommendation string  `json:"recommendation"`
	Confidence     float64 `json:"confidence"`
}

// Predict applies every rule whose preconditions the candidate config
// satisfies. Returns store.ErrNotFound when no model has been trained.
func (p *Predictor) Predict(ctx context.Context, cfg store.Config) (*Prediction, error) {
	model, err := p.models.LoadModel(ctx)
	if err != nil {
		return nil, err
	}

	features := FeaturesFromConfig(cfg)
	var matches []RuleMatch
	var confidenceSum float64
	for _, rule := range model.Rules {
		if !ruleApplies(rule, features) {
			continue
		}
		matches = append(matches, RuleMatch{
			Rule:           rule.Name,
			Recommendation: rule.Recommendation,
			Confidence:     rule.Confidence,
		})
		confidenceSum += rule.Confidence
	}

	var overall float64
	if len(matches) > 0 {
		overall = roundTo(confidenceSum/float64(len(matches))*100, 2)
	}
	return &Prediction{
		Predictions:       matches,
		OverallConfidence: overall,
		FeatureImportance: model.FeatureImportance,
		Timestamp:         p.now(),
	}, nil
}

func ruleApplies(rule store.Rule, f Features) bool {
	switch rule.Name {
	case "optimal_video_duration":
		return f.IsVideo
	case "optimal_image_aspect_ratio":
		return !f.IsVideo && f.ImageAspectRatio > 0
	case "optimal_event_type":
		return f.EventType != ""
	default:
		return true
	}
}

// ContentAdvice packages the trained rules as recommendations for the
// content team, most confident first.
type ContentAdvice struct {
	Recommendations   []ContentRecommendation `json:"recommendations"`
	FeatureImportance map[string]float64      `json:"featureImportance"`
	TrainedAt         time.Time               `json:"trainedAt"`
	SampleSize        int                     `json:"sampleSize"`
}

type ContentRecommendation struct {
	Category       string  `json:"category"`
	Recommendation string  `json:"recommendation"`
	Confidence     float64 `json:"confidence"`
	Priority       string  `json:"priority"`
}

func (p *Predictor) ContentRecommendations(ctx context.Context) (*ContentAdvice, error) {
	model, err := p.models.LoadModel(ctx)
	if err != nil {
		return nil, err
	}

	recs := make([]ContentRecommendation, 0, len(model.Rules))
	for _, rule := range model.Rules {
		recs = append(recs, ContentRecommendation{
			Category:       rule.Name,
			Recommendation: rule.Recommendation,
			Confidence:     roundTo(rule.Confidence*100, 0),
			Priority:       priorityFor(rule.Confidence),
		})
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Confidence > recs[j].Confidence })

	return &ContentAdvice{
		Recommendations:   recs,
		FeatureImportance: model.FeatureImportance,
		TrainedAt:         model.TrainedAt,
		SampleSize:        model.SampleSize,
	}, nil
}

// Conditions narrows PredictOptimalVariant to a visitor context.
type Conditions struct {
	Device    string `json:"device,omitempty"`
	TimeOfDay string `json:"timeOfDay,omitempty"`
	EventType string `json:"eventType,omitempty"`
}

// OptimalVariant is the highest scoring rule condition for the given
// visitor context.
type OptimalVariant struct {
	Recommendation string     `json:"recommendation"`
	Confidence     float64    `json:"confidence"`
	Conditions     Conditions `json:"conditions"`
}

// PredictOptimalVariant sums rule confidence per condition across the
// rules matching the visitor context. A nil result means no rule matched.
func (p *Predictor) PredictOptimalVariant(ctx context.Context, conditions Conditions) (*OptimalVariant, error) {
	model, err := p.models.LoadModel(ctx)
	if err != nil {
		return nil, err
	}

	scores := map[string]float64{}
	for _, rule := range model.Rules {
		if ruleMatchesConditions(rule, conditions) {
			scores[rule.Condition] += rule.Confidence
		}
	}
	if len(scores) == 0 {
		return nil, nil
	}

	var best string
	for condition, score := range scores {
		if best == "" || score > scores[best] {
			best = condition
		}
	}
	return &OptimalVariant{
		Recommendation: best,
		Confidence:     roundTo(scores[best]*100, 2),
		Conditions:     conditions,
	}, nil
}

func ruleMatchesConditions(rule store.Rule, c Conditions) bool {
	if c.Device != "" && rule.Name == "device_optimization" {
		return (c.Device == "mobile" && rule.Condition == "mobile_first") ||
			(c.Device == "desktop" && rule.Condition == "desktop_first")
	}
	if c.TimeOfDay != "" && rule.Name == "optimal_time_of_day" {
		return c.TimeOfDay == rule.Condition
	}
	if c.EventType != "" && rule.Name == "optimal_event_type" {
		return c.EventType == rule.Condition
	}
	return false
}

// peakTimes finds the busiest time slot and weekday in an event stream.
func peakTimes(events []*store.Event) (slot, day string) {
	hours := map[int]int{}
	days := map[time.Weekday]int{}
	for _, e := range events {
		if e.Timestamp.IsZero() {
			continue
		}
		hours[e.Timestamp.Hour()]++
		days[e.Timestamp.Weekday()]++
	}

	slot, day = "unknown", "unknown"
	peakCount := 0
	for hour, count := range hours {
		if count > peakCount || (count == peakCount && slot == "unknown") {
			peakCount = count
			slot = timeSlot(hour)
		}
	}
	peakCount = 0
	for weekday, count := range days {
		if count > peakCount || (count == peakCount && day == "unknown") {
			peakCount = count
			day = weekday.String()
		}
	}
	return slot, day
}

func timeSlot(hour int) string {
	switch {
	case hour < 6:
		return "Night"
	case hour < 12:
		return "Morning"
	case hour < 18:
		return "Afternoon"
	default:
		return "Evening"
	}
}

func conversionRate(events []*store.Event) float64 {
	var impressions, conversions int
	for _, e := range events {
		switch e.Type {
		case store.EventImpression:
			impressions++
		case store.EventConversion:
			conversions++
		}
	}
	if impressions == 0 {
		return 0
	}
	return float64(conversions) / float64(impressions)
}

// engagementScore uses fixed weights rather than the configured goals so
// trained models stay comparable across config changes.
func engagementScore(events []*store.Event) float64 {
	var impressions int
	var score float64
	for _, e := range events {
		switch e.Type {
		case store.EventImpression:
			impressions++
		case "video_play":
			score += 20
		case "scroll_depth_75":
			score += 10
		case "gallery_interaction":
			score += 15
		}
	}
	if impressions == 0 {
		return 0
	}
	return score / float64(impressions)
}

func filter(data []sample, keep func(sample) bool) []sample {
	var out []sample
	for _, d := range data {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

func avgConversionRate(data []sample) float64 {
	if len(data) == 0 {
		return 0
	}
	var sum float64
	for _, d := range data {
		sum += d.conversionRate
	}
	return sum / float64(len(data))
}

func avgEngagement(data []sample) float64 {
	if len(data) == 0 {
		return 0
	}
	var sum float64
	for _, d := range data {
		sum += d.engagementScore
	}
	return sum / float64(len(data))
}

// relativeDiff is |a-b| / max(a,b), the confidence of a two-bucket rule.
func relativeDiff(a, b float64) float64 {
	max := math.Max(a, b)
	if max == 0 {
		return 0
	}
	return math.Abs(a-b) / max
}

// bestBucket returns the key with the highest average conversion rate,
// breaking ties alphabetically so rule induction is deterministic.
func bestBucket(buckets map[string]store.Bucket) string {
	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	best := keys[0]
	for _, k := range keys[1:] {
		if buckets[k].AvgConversionRate > buckets[best].AvgConversionRate {
			best = k
		}
	}
	return best
}

func priorityFor(confidence float64) string {
	switch {
	case confidence > 0.7:
		return "high"
	case confidence > 0.4:
		return "medium"
	default:
		return "low"
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
