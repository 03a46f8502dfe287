package server

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/cro-pilot/cro-pilot/internal/stats"
	"github.com/cro-pilot/cro-pilot/internal/store"
)

// handleOverview summarizes the whole system: active tests, event volume,
// and the average lift realized by completed winners.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	ctx := r.Context()

	status, err := s.engine.Status(ctx)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to load status")
		return
	}
	tests, _ := s.store.ListTests(ctx)
	events, _ := s.store.ListEvents(ctx)
	archived, _ := s.store.ListArchived(ctx)

	var impressions, conversions int
	for _, e := range events {
		switch e.Type {
		case store.EventImpression:
			impressions++
		case store.EventConversion:
			conversions++
		}
	}

	var winners int
	var totalImprovement float64
	for _, t := range archived {
		if t.Winner == "" {
			continue
		}
		winners++
		if t.Decision != nil && t.Decision.Analysis != nil {
			totalImprovement += t.Decision.Analysis.EffectSize
		}
	}
	var avgImprovement float64
	if winners > 0 {
		avgImprovement = totalImprovement / float64(winners) * 100
	}

	var active, pending int
	for _, t := range tests {
		switch t.Status {
		case store.StatusActive:
			active++
		case store.StatusPendingReview:
			pending++
		}
	}

	s.writeData(w, map[string]interface{}{
		"system": status,
		"metrics": map[string]interface{}{
			"overallConversionRate": stats.ConversionRate(conversions, impressions) * 100,
			"totalImpressions":      impressions,
			"totalConversions":      conversions,
			"avgImprovementPerTest": avgImprovement,
			"testsCompleted":        winners,
		},
		"activeTests":      active,
		"pendingDecisions": pending,
		"timestamp":        time.Now(),
	})
}

// ActiveTestView is one running test with live per-variant metrics.
type ActiveTestView struct {
	ID               string                       `json:"id"`
	Name             string                       `json:"name"`
	Type             string                       `json:"type"`
	Hypothesis       string                       `json:"hypothesis"`
	StartDate        time.Time                    `json:"startDate"`
	Age              string                       `json:"age"`
	TargetPage       string                       `json:"targetPage"`
	Variants         map[string]ActiveVariantView `json:"variants"`
	TotalImpressions int                          `json:"totalImpressions"`
	Status           store.TestStatus             `json:"status"`
}

type ActiveVariantView struct {
	Name              string         `json:"name"`
	Impressions       int            `json:"impressions"`
	Conversions       int            `json:"conversions"`
	ConversionRate    float64        `json:"conversionRate"`
	Confidence        store.Interval `json:"confidence"`
	TrafficAllocation float64        `json:"trafficAllocation"`
}

func (s *Server) handleActiveTests(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	ctx := r.Context()
	tests, err := s.store.ListTests(ctx)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to load tests")
		return
	}
	events, err := s.store.ListEvents(ctx)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to load events")
		return
	}

	views := []ActiveTestView{}
	for _, test := range tests {
		if test.Status != store.StatusActive {
			continue
		}
		view := ActiveTestView{
			ID:         test.ID,
			Name:       test.Name,
			Type:       test.Type,
			Hypothesis: test.Hypothesis,
			StartDate:  test.StartDate,
			Age:        formatAge(time.Since(test.StartDate)),
			TargetPage: test.TargetPage,
			Variants:   map[string]ActiveVariantView{},
			Status:     test.Status,
		}
		for _, variant := range test.Variants {
			var impressions, conversions int
			for _, e := range events {
				if e.TestID != test.ID || e.VariantID != variant.ID {
					continue
				}
				switch e.Type {
				case store.EventImpression:
					impressions++
				case store.EventConversion:
					conversions++
				}
			}
			lower, upper := stats.WilsonInterval(conversions, impressions, stats.Z95)
			view.Variants[variant.ID] = ActiveVariantView{
				Name:              variant.Name,
				Impressions:       impressions,
				Conversions:       conversions,
				ConversionRate:    stats.ConversionRate(conversions, impressions) * 100,
				Confidence:        store.Interval{Lower: lower, Upper: upper},
				TrafficAllocation: variant.TrafficAllocation,
			}
			view.TotalImpressions += impressions
		}
		views = append(views, view)
	}

	s.writeData(w, map[string]interface{}{"tests": views, "count": len(views)})
}

// WinnerView is one archived test with a declared winner.
type WinnerView struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Type             string     `json:"type"`
	Winner           string     `json:"winner"`
	WinnerName       string     `json:"winnerName"`
	Improvement      float64    `json:"improvement"`
	Confidence       float64    `json:"confidence"`
	CompletedAt      *time.Time `json:"completedAt"`
	Duration         string     `json:"duration"`
	TotalImpressions int        `json:"totalImpressions"`
}

func (s *Server) handleRecentWinners(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	archived, err := s.store.ListArchived(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to load archive")
		return
	}

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	winners := []WinnerView{}
	for _, test := range archived {
		if test.Winner == "" {
			continue
		}
		view := WinnerView{
			ID:               test.ID,
			Name:             test.Name,
			Type:             test.Type,
			Winner:           test.Winner,
			WinnerName:       "Unknown",
			CompletedAt:      test.CompletedAt,
			TotalImpressions: test.EventsCount,
		}
		if v := test.FindVariant(test.Winner); v != nil {
			view.WinnerName = v.Name
		}
		if test.Decision != nil {
			view.Confidence = test.Decision.Confidence
			if test.Decision.Analysis != nil {
				view.Improvement = test.Decision.Analysis.EffectSize * 100
			}
		}
		if test.CompletedAt != nil {
			view.Duration = formatAge(test.CompletedAt.Sub(test.StartDate))
		}
		winners = append(winners, view)
	}

	sort.SliceStable(winners, func(i, j int) bool {
		a, b := winners[i].CompletedAt, winners[j].CompletedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	if len(winners) > limit {
		winners = winners[:limit]
	}

	s.writeData(w, map[string]interface{}{"winners": winners, "count": len(winners)})
}

// AssetView aggregates how one media asset performed across every test
// it appeared in.
type AssetView struct {
	AssetID           string  `json:"assetId"`
	AssetType         string  `json:"assetType"`
	Category          string  `json:"category"`
	Subcategory       string  `json:"subcategory"`
	TestsUsedIn       int     `json:"testsUsedIn"`
	TimesWon          int     `json:"timesWon"`
	TotalImpressions  int     `json:"totalImpressions"`
	TotalConversions  int     `json:"totalConversions"`
	AvgConversionRate float64 `json:"avgConversionRate"`
	WinRate           float64 `json:"winRate"`
}

func (s *Server) handleAssetPerformance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	ctx := r.Context()
	archived, err := s.store.ListArchived(ctx)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to load archive")
		return
	}
	events, err := s.store.ListEvents(ctx)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to load events")
		return
	}

	byAsset := map[string]*AssetView{}
	for _, test := range archived {
		for _, variant := range test.Variants {
			asset := variant.Config.MediaAsset()
			if asset == nil || asset.ID == "" {
				continue
			}
			view, ok := byAsset[asset.ID]
			if !ok {
				view = &AssetView{
					AssetID:     asset.ID,
					Category:    asset.Category,
					Subcategory: asset.Subcategory,
				}
				if hm := variant.Config.HeroMedia(); hm != nil {
					view.AssetType = hm.MediaType
				}
				byAsset[asset.ID] = view
			}
			view.TestsUsedIn++
			if variant.ID == test.Winner {
				view.TimesWon++
			}
			for _, e := range events {
				if e.TestID != test.ID || e.VariantID != variant.ID {
					continue
				}
				switch e.Type {
				case store.EventImpression:
					view.TotalImpressions++
				case store.EventConversion:
					view.TotalConversions++
				}
			}
		}
	}

	assets := make([]AssetView, 0, len(byAsset))
	for _, view := range byAsset {
		view.AvgConversionRate = stats.ConversionRate(view.TotalConversions, view.TotalImpressions) * 100
		view.WinRate = float64(view.TimesWon) / float64(view.TestsUsedIn) * 100
		assets = append(assets, *view)
	}
	sort.SliceStable(assets, func(i, j int) bool {
		return assets[i].AvgConversionRate > assets[j].AvgConversionRate
	})

	s.writeData(w, map[string]interface{}{"assets": assets, "count": len(assets)})
}

// handleRecommendations combines trained-model advice with fresh test
// hypotheses. Missing model degrades to hypotheses only.
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	data := map[string]interface{}{}
	advice, err := s.engine.Predictor().ContentRecommendations(r.Context())
	if err == nil {
		data["mlRecommendations"] = advice.Recommendations
		data["featureImportance"] = advice.FeatureImportance
		data["modelInfo"] = map[string]interface{}{
			"trainedAt":  advice.TrainedAt,
			"sampleSize": advice.SampleSize,
		}
	} else {
		data["mlRecommendations"] = []interface{}{}
	}

	type suggestedTest struct {
		Type           string `json:"type"`
		Hypothesis     string `json:"hypothesis"`
		Priority       string `json:"priority"`
		ExpectedImpact string `json:"expectedImpact"`
		Reasoning      string `json:"reasoning"`
		VariantsCount  int    `json:"variantsCount"`
	}
	hypotheses := s.engine.Hypotheses()
	suggested := []suggestedTest{}
	for i, h := range hypotheses {
		if i == 5 {
			break
		}
		suggested = append(suggested, suggestedTest{
			Type:           h.Type,
			Hypothesis:     h.Hypothesis,
			Priority:       h.Priority,
			ExpectedImpact: h.ExpectedImpact,
			Reasoning:      h.Reasoning,
			VariantsCount:  len(h.Variants),
		})
	}
	data["suggestedTests"] = suggested

	s.writeData(w, data)
}

func (s *Server) handlePerformanceAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	ctx := r.Context()
	tests, err := s.store.ListTests(ctx)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to load tests")
		return
	}
	events, err := s.store.ListEvents(ctx)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to load events")
		return
	}
	s.writeData(w, s.engine.Analyzer().AnalyzeComprehensive(tests, events))
}

func formatAge(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}
