package hypothesis

import "github.com/cro-pilot/cro-pilot/internal/store"

// The catalog below mirrors the CRO heuristics the marketing team runs
// tests from. Each entry carries a fixed priority/impact/reasoning triple;
// these reflect domain judgment, not learned weights.

func heroMedia(mediaType string, asset store.Asset) store.Config {
	return store.Config{Spec: store.HeroMediaConfig{MediaType: mediaType, Asset: &asset}}
}

func (g *Generator) heroHypotheses() []*store.Hypothesis {
	if g.manifest == nil {
		return nil
	}
	var out []*store.Hypothesis

	// Video vs image.
	if len(g.manifest.Videos.Hero) > 0 && len(g.manifest.Gallery.Parties) > 0 {
		out = append(out, &store.Hypothesis{
			Type:       "hero_content",
			Hypothesis: "Video hero increases engagement vs static image",
			Variants: []store.CandidateVariant{
				{Name: "Hero Video", Config: heroMedia("video", g.manifest.Videos.Hero[0])},
				{Name: "Hero Image", Config: heroMedia("image", g.manifest.Gallery.Parties[0])},
			},
			Priority:       "high",
			ExpectedImpact: "high",
			Reasoning:      "Video content typically drives higher engagement and emotional connection",
		})
	}

	// Short vs long hero video.
	if len(g.manifest.Videos.Hero) > 2 {
		var short, long *store.Asset
		for i := range g.manifest.Videos.Hero {
			v := &g.manifest.Videos.Hero[i]
			if v.Duration <= 20 && short == nil {
				short = v
			}
			if v.Duration > 20 && long == nil {
				long = v
			}
		}
		if short != nil && long != nil {
			out = append(out, &store.Hypothesis{
				Type:       "hero_video_length",
				Hypothesis: "Short videos (< 20s) convert better than longer videos",
				Variants: []store.CandidateVariant{
					{Name: "Short Video", Config: heroMedia("video", *short)},
					{Name: "Long Video", Config: heroMedia("video", *long)},
				},
				Priority:       "medium",
				ExpectedImpact: "medium",
				Reasoning:      "Short attention spans favor concise content",
			})
		}
	}

	// Wedding vs party imagery.
	if len(g.manifest.Gallery.Weddings) > 0 && len(g.manifest.Gallery.Parties) > 0 {
		out = append(out, &store.Hypothesis{
			Type:       "hero_event_type",
			Hypothesis: "Wedding imagery appeals to broader audience vs party images",
			Variants: []store.CandidateVariant{
				{Name: "Wedding Hero", Config: heroMedia("image", g.manifest.Gallery.Weddings[0])},
				{Name: "Party Hero", Config: heroMedia("image", g.manifest.Gallery.Parties[0])},
			},
			Priority:       "high",
			ExpectedImpact: "high",
			Reasoning:      "Different event types may resonate with different target audiences",
		})
	}

	return out
}

func (g *Generator) galleryHypotheses() []*store.Hypothesis {
	var out []*store.Hypothesis

	if g.manifest != nil && len(g.manifest.Gallery.Weddings) > 0 && len(g.manifest.Gallery.Parties) > 0 {
		out = append(out, &store.Hypothesis{
			Type:       "gallery_order",
			Hypothesis: "Leading with wedding photos increases conversions",
			Variants: []store.CandidateVariant{
				{Name: "Weddings First", Config: store.Config{Spec: store.GalleryConfig{Order: []string{"weddings", "parties"}}}},
				{Name: "Parties First", Config: store.Config{Spec: store.GalleryConfig{Order: []string{"parties", "weddings"}}}},
			},
			Priority:       "medium",
			ExpectedImpact: "medium",
			Reasoning:      "Wedding clients often have higher budgets and conversion intent",
		})
	}

	out = append(out, &store.Hypothesis{
		Type:       "gallery_grid",
		Hypothesis: "Larger grid (3x3) shows more content and increases engagement",
		Variants: []store.CandidateVariant{
			{Name: "Small Grid (2x2)", Config: store.Config{Spec: store.GalleryConfig{Columns: 2, Rows: 2}}},
			{Name: "Medium Grid (3x3)", Config: store.Config{Spec: store.GalleryConfig{Columns: 3, Rows: 3}}},
			{Name: "Large Grid (4x3)", Config: store.Config{Spec: store.GalleryConfig{Columns: 4, Rows: 3}}},
		},
		Priority:       "low",
		ExpectedImpact: "low",
		Reasoning:      "Balance between showing variety and avoiding overwhelm",
	})

	return out
}

func (g *Generator) ctaHypotheses() []*store.Hypothesis {
	cta := func(text, color, style, position string, sticky bool) store.Config {
		return store.Config{Spec: store.CTAConfig{Text: text, Color: color, Style: style, Position: position, Sticky: sticky}}
	}

	return []*store.Hypothesis{
		{
			Type:       "cta_text",
			Hypothesis: "Urgent CTA text increases conversion rate",
			Variants: []store.CandidateVariant{
				{Name: "Standard CTA", Config: cta("Vraag offerte aan", "", "primary", "", false)},
				{Name: "Urgent CTA", Config: cta("Beschikbaarheid checken", "", "primary", "", false)},
				{Name: "Value CTA", Config: cta("Gratis offerte aanvragen", "", "primary", "", false)},
			},
			Priority:       "high",
			ExpectedImpact: "high",
			Reasoning:      "CTA copy directly impacts conversion decisions",
		},
		{
			Type:       "cta_color",
			Hypothesis: "Red/orange buttons create urgency and higher CTR vs blue",
			Variants: []store.CandidateVariant{
				{Name: "Blue Button", Config: cta("Vraag offerte aan", "#007bff", "", "", false)},
				{Name: "Orange Button", Config: cta("Vraag offerte aan", "#ff6600", "", "", false)},
				{Name: "Red Button", Config: cta("Vraag offerte aan", "#dc3545", "", "", false)},
			},
			Priority:       "medium",
			ExpectedImpact: "medium",
			Reasoning:      "Warm colors can create sense of urgency",
		},
		{
			Type:       "cta_placement",
			Hypothesis: "Sticky CTA button increases conversions vs static placement",
			Variants: []store.CandidateVariant{
				{Name: "Static CTA", Config: cta("", "", "", "hero", false)},
				{Name: "Sticky CTA", Config: cta("", "", "", "header", true)},
			},
			Priority:       "medium",
			ExpectedImpact: "medium",
			Reasoning:      "Persistent visibility increases conversion opportunities",
		},
	}
}

func (g *Generator) layoutHypotheses() []*store.Hypothesis {
	layout := func(sections ...string) store.Config {
		return store.Config{Spec: store.LayoutConfig{Sections: sections}}
	}

	return []*store.Hypothesis{
		{
			Type:       "content_order",
			Hypothesis: "Social proof early (testimonials first) increases trust and conversions",
			Variants: []store.CandidateVariant{
				{Name: "Traditional Order", Config: layout("hero", "services", "gallery", "testimonials", "contact")},
				{Name: "Social Proof First", Config: layout("hero", "testimonials", "services", "gallery", "contact")},
			},
			Priority:       "medium",
			ExpectedImpact: "medium",
			Reasoning:      "Early credibility signals can improve conversion rates",
		},
		{
			Type:       "form_placement",
			Hypothesis: "Contact form in hero section increases immediate conversions",
			Variants: []store.CandidateVariant{
				{Name: "Form at Bottom", Config: store.Config{Spec: store.LayoutConfig{Position: "footer"}}},
				{Name: "Form in Hero", Config: store.Config{Spec: store.LayoutConfig{Position: "hero"}}},
			},
			Priority:       "high",
			ExpectedImpact: "high",
			Reasoning:      "Reducing friction to conversion point increases submissions",
		},
	}
}

func (g *Generator) testimonialHypotheses() []*store.Hypothesis {
	return []*store.Hypothesis{
		{
			Type:       "testimonial_placement",
			Hypothesis: "Video testimonials above text testimonials increases credibility",
			Variants: []store.CandidateVariant{
				{Name: "Text First", Config: store.Config{Spec: store.LayoutConfig{Order: "text_then_video"}}},
				{Name: "Video First", Config: store.Config{Spec: store.LayoutConfig{Order: "video_then_text"}}},
			},
			Priority:       "medium",
			ExpectedImpact: "medium",
			Reasoning:      "Video testimonials are more authentic and persuasive",
		},
	}
}

func (g *Generator) eventSpecificHypotheses() []*store.Hypothesis {
	if g.manifest == nil || len(g.manifest.Gallery.Weddings) == 0 {
		return nil
	}
	return []*store.Hypothesis{
		{
			Type:       "event_specific_landing",
			Hypothesis: "Wedding-specific landing page converts better for wedding traffic",
			Variants: []store.CandidateVariant{
				{Name: "Generic Landing Page", Config: store.Config{Spec: store.LandingConfig{PageType: "generic", Gallery: []string{"parties", "weddings"}}}},
				{Name: "Wedding Landing Page", Config: store.Config{Spec: store.LandingConfig{PageType: "wedding_specific", Gallery: []string{"weddings"}, Copy: "wedding_focused"}}},
			},
			Priority:       "high",
			ExpectedImpact: "high",
			Reasoning:      "Personalized experience increases relevance and conversion",
			TargetAudience: "wedding_traffic",
		},
	}
}
