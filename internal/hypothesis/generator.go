// Package hypothesis proposes new tests by pattern-matching the media
// manifest against a fixed catalog of CRO heuristics. Generation is
// deterministic: the same manifest always yields the same ranked list.
package hypothesis

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/cro-pilot/cro-pilot/internal/store"
)

type Generator struct {
	manifest *store.MediaManifest
}

// NewGenerator builds a generator over an already-loaded manifest. A nil
// manifest yields no asset-dependent hypotheses but still produces the
// asset-free catalog entries.
func NewGenerator(manifest *store.MediaManifest) *Generator {
	return &Generator{manifest: manifest}
}

// LoadManifest reads a media manifest JSON file.
func LoadManifest(path string) (*store.MediaManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read media manifest: %w", err)
	}
	var manifest store.MediaManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse media manifest: %w", err)
	}
	return &manifest, nil
}

// Generate returns all applicable hypotheses, scored and sorted by
// priority score descending. Ties keep catalog order (stable sort).
func (g *Generator) Generate() []*store.Hypothesis {
	var hypotheses []*store.Hypothesis
	hypotheses = append(hypotheses, g.heroHypotheses()...)
	hypotheses = append(hypotheses, g.galleryHypotheses()...)
	hypotheses = append(hypotheses, g.ctaHypotheses()...)
	hypotheses = append(hypotheses, g.layoutHypotheses()...)
	hypotheses = append(hypotheses, g.testimonialHypotheses()...)
	hypotheses = append(hypotheses, g.imageFramingHypotheses()...)
	hypotheses = append(hypotheses, g.eventSpecificHypotheses()...)
	return Prioritize(hypotheses)
}

var levelWeight = map[string]int{"low": 2, "medium": 5, "high": 10}

// Prioritize scores each hypothesis and sorts descending. The score is
// priority weight + impact weight + an ease bonus favoring fewer variants.
func Prioritize(hypotheses []*store.Hypothesis) []*store.Hypothesis {
	for _, h := range hypotheses {
		score := levelWeight[h.Priority]
		if score == 0 {
			score = levelWeight["low"]
		}
		impact := levelWeight[h.ExpectedImpact]
		if impact == 0 {
			impact = levelWeight["low"]
		}
		h.PriorityScore = score + impact + (5 - len(h.Variants))
	}
	sort.SliceStable(hypotheses, func(i, j int) bool {
		return hypotheses[i].PriorityScore > hypotheses[j].PriorityScore
	})
	return hypotheses
}

// TargetPage maps a hypothesis type to the page its test runs on.
func TargetPage(testType string) string {
	switch testType {
	case "gallery_order", "gallery_grid":
		return "gallery"
	case "event_specific_landing":
		return "landing_page"
	default:
		return "homepage"
	}
}
