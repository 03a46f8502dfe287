package analyzer

import (
	"sort"
	"time"

	"github.com/cro-pilot/cro-pilot/internal/store"
)

// Engagement collects the behavioral metrics that do not fit the
// impression/conversion rollup.
type Engagement struct {
	ScrollDepth         ScrollDepth `json:"scrollDepth"`
	TimeOnPage          TimeOnPage  `json:"timeOnPage"`
	VideoEngagement     Video       `json:"videoEngagement"`
	GalleryInteractions int         `json:"galleryInteractions"`
	CTAClicks           CTAClicks   `json:"ctaClicks"`
}

type ScrollDepth struct {
	Avg          float64        `json:"avg"` // percentage
	Distribution map[string]int `json:"distribution"`
}

type TimeOnPage struct {
	Avg          float64        `json:"avg"` // seconds
	Distribution map[string]int `json:"distribution"`
}

type Video struct {
	Plays          int     `json:"plays"`
	Completions    int     `json:"completions"`
	CompletionRate float64 `json:"completionRate"`
}

type CTAClicks struct {
	Phone    int `json:"phone"`
	WhatsApp int `json:"whatsapp"`
	Email    int `json:"email"`
	Form     int `json:"form"`
}

// TimeToConversion measures the lag between a visitor's first impression
// and their conversion, in minutes.
type TimeToConversion struct {
	AvgMinutes    float64        `json:"avgMinutes"`
	MedianMinutes float64        `json:"medianMinutes"`
	Distribution  map[string]int `json:"distribution"`
}

// AnalyzeEngagement inspects scroll depth, dwell time, media usage and
// CTA interactions across the event log.
func (a *Analyzer) AnalyzeEngagement(events []*store.Event) Engagement {
	eng := Engagement{
		ScrollDepth: ScrollDepth{Distribution: map[string]int{"25%": 0, "50%": 0, "75%": 0, "100%": 0}},
		TimeOnPage:  TimeOnPage{Distribution: map[string]int{"<10s": 0, "10-30s": 0, "30-60s": 0, "60s+": 0}},
	}

	var scrollSum, timeSum float64
	var scrollCount, timeCount int

	for _, e := range events {
		if e.ScrollDepth > 0 {
			scrollSum += e.ScrollDepth
			scrollCount++
			switch {
			case e.ScrollDepth >= 1.0:
				eng.ScrollDepth.Distribution["100%"]++
			case e.ScrollDepth >= 0.75:
				eng.ScrollDepth.Distribution["75%"]++
			case e.ScrollDepth >= 0.5:
				eng.ScrollDepth.Distribution["50%"]++
			case e.ScrollDepth >= 0.25:
				eng.ScrollDepth.Distribution["25%"]++
			}
		}

		if e.TimeOnPage > 0 {
			timeSum += e.TimeOnPage
			timeCount++
			switch {
			case e.TimeOnPage < 10:
				eng.TimeOnPage.Distribution["<10s"]++
			case e.TimeOnPage < 30:
				eng.TimeOnPage.Distribution["10-30s"]++
			case e.TimeOnPage < 60:
				eng.TimeOnPage.Distribution["30-60s"]++
			default:
				eng.TimeOnPage.Distribution["60s+"]++
			}
		}

		switch e.Type {
		case "video_play":
			eng.VideoEngagement.Plays++
		case "video_complete":
			eng.VideoEngagement.Completions++
		case "gallery_interaction":
			eng.GalleryInteractions++
		case "phone_click":
			eng.CTAClicks.Phone++
		case "whatsapp_click":
			eng.CTAClicks.WhatsApp++
		case "email_click":
			eng.CTAClicks.Email++
		case "contact_form_submit":
			eng.CTAClicks.Form++
		}
	}

	if scrollCount > 0 {
		eng.ScrollDepth.Avg = scrollSum / float64(scrollCount) * 100
	}
	if timeCount > 0 {
		eng.TimeOnPage.Avg = timeSum / float64(timeCount)
	}
	if eng.VideoEngagement.Plays > 0 {
		eng.VideoEngagement.CompletionRate = float64(eng.VideoEngagement.Completions) / float64(eng.VideoEngagement.Plays) * 100
	}
	return eng
}

// AnalyzeTimeToConversion pairs each conversion with the visitor's first
// earlier impression, matched by user or session id.
func (a *Analyzer) AnalyzeTimeToConversion(events []*store.Event) TimeToConversion {
	var lags []time.Duration
	for _, conversion := range events {
		if conversion.Type != store.EventConversion {
			continue
		}
		var first *store.Event
		for _, e := range events {
			if e.Type != store.EventImpression || !e.Timestamp.Before(conversion.Timestamp) {
				continue
			}
			if !sameVisitor(e, conversion) {
				continue
			}
			if first == nil || e.Timestamp.Before(first.Timestamp) {
				first = e
			}
		}
		if first != nil {
			lags = append(lags, conversion.Timestamp.Sub(first.Timestamp))
		}
	}

	if len(lags) == 0 {
		return TimeToConversion{Distribution: map[string]int{}}
	}

	sort.Slice(lags, func(i, j int) bool { return lags[i] < lags[j] })

	var sum time.Duration
	distribution := map[string]int{"<1min": 0, "1-5min": 0, "5-15min": 0, "15-60min": 0, "1hr+": 0}
	for _, lag := range lags {
		sum += lag
		switch minutes := lag.Minutes(); {
		case minutes < 1:
			distribution["<1min"]++
		case minutes < 5:
			distribution["1-5min"]++
		case minutes < 15:
			distribution["5-15min"]++
		case minutes < 60:
			distribution["15-60min"]++
		default:
			distribution["1hr+"]++
		}
	}

	return TimeToConversion{
		AvgMinutes:    (sum / time.Duration(len(lags))).Minutes(),
		MedianMinutes: lags[len(lags)/2].Minutes(),
		Distribution:  distribution,
	}
}

func sameVisitor(a, b *store.Event) bool {
	if a.UserID != "" && a.UserID == b.UserID {
		return true
	}
	return a.SessionID != "" && a.SessionID == b.SessionID
}
