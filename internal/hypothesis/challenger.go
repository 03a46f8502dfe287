package hypothesis

import "github.com/cro-pilot/cro-pilot/internal/store"

// ImageCharacteristics classifies an image asset by its dimensions. The
// orientation and framing flags are heuristics on aspect ratio; real image
// analysis would refine them.
type ImageCharacteristics struct {
	AspectRatio float64
	Orientation string // landscape, portrait, or square
	Resolution  int
	Category    string
	Subcategory string
	HasPeople   bool
	IsCloseup   bool
	IsWideShot  bool
	EventType   string
}

// AnalyzeImage derives characteristics from an asset's dimensions.
func AnalyzeImage(asset *store.Asset) ImageCharacteristics {
	c := ImageCharacteristics{
		Category:    asset.Category,
		Subcategory: asset.Subcategory,
		EventType:   asset.Subcategory,
		HasPeople:   asset.Subcategory == "parties" || asset.Subcategory == "weddings",
	}
	ratio := asset.AspectRatio()
	c.AspectRatio = ratio
	switch {
	case ratio > 1.2:
		c.Orientation = "landscape"
	case ratio < 0.8 && ratio > 0:
		c.Orientation = "portrait"
	default:
		c.Orientation = "square"
	}
	c.IsCloseup = ratio > 0 && ratio < 1.5
	c.IsWideShot = ratio > 2
	if asset.Dimensions != nil {
		c.Resolution = asset.Dimensions.Width * asset.Dimensions.Height
	}
	return c
}

// imageFramingHypotheses proposes close-up vs wide-shot tests when the
// manifest contains both framings.
func (g *Generator) imageFramingHypotheses() []*store.Hypothesis {
	if g.manifest == nil {
		return nil
	}

	var closeup, wide *store.Asset
	scan := func(assets []store.Asset) {
		for i := range assets {
			c := AnalyzeImage(&assets[i])
			if c.IsCloseup && closeup == nil {
				closeup = &assets[i]
			}
			if c.IsWideShot && wide == nil {
				wide = &assets[i]
			}
		}
	}
	scan(g.manifest.Gallery.Parties)
	scan(g.manifest.Gallery.Weddings)

	if closeup == nil || wide == nil {
		return nil
	}
	return []*store.Hypothesis{
		{
			Type:       "image_framing",
			Hypothesis: "Close-up shots create emotional connection vs wide venue shots",
			Variants: []store.CandidateVariant{
				{Name: "Close-up Shot", Config: heroMedia("image", *closeup)},
				{Name: "Wide Shot", Config: heroMedia("image", *wide)},
			},
			Priority:       "medium",
			ExpectedImpact: "medium",
			Reasoning:      "Emotional connection vs venue showcase",
		},
	}
}

// GenerateChallenger proposes a variant to run against the current
// champion: a different asset from the same event category. Returns nil
// when no distinct asset exists.
func (g *Generator) GenerateChallenger(champion *store.Variant) *store.CandidateVariant {
	if g.manifest == nil {
		return nil
	}
	asset := champion.Config.MediaAsset()
	if asset == nil {
		return nil
	}

	var pool []store.Asset
	switch asset.Subcategory {
	case "weddings":
		pool = g.manifest.Gallery.Weddings
	case "parties":
		pool = g.manifest.Gallery.Parties
	default:
		return nil
	}

	for i := range pool {
		if pool[i].ID != asset.ID {
			mediaType := "image"
			if hm := champion.Config.HeroMedia(); hm != nil {
				mediaType = hm.MediaType
			}
			return &store.CandidateVariant{
				Name:   asset.Subcategory + " variant",
				Config: heroMedia(mediaType, pool[i]),
			}
		}
	}
	return nil
}
