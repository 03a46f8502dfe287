package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAgeDaysRoundsUp(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	test := &Test{StartDate: start}

	assert.Equal(t, 0, test.AgeDays(start))
	assert.Equal(t, 1, test.AgeDays(start.Add(time.Hour)))
	assert.Equal(t, 1, test.AgeDays(start.Add(24*time.Hour)))
	assert.Equal(t, 2, test.AgeDays(start.Add(25*time.Hour)))
	assert.Equal(t, 14, test.AgeDays(start.Add(14*24*time.Hour)))
}

func TestFindVariant(t *testing.T) {
	test := &Test{Variants: []Variant{{ID: "variant_0"}, {ID: "variant_1", Name: "Short video"}}}

	v := test.FindVariant("variant_1")
	assert.NotNil(t, v)
	assert.Equal(t, "Short video", v.Name)
	assert.Nil(t, test.FindVariant("variant_9"))
}

func TestVisitorKeyPrefersUserID(t *testing.T) {
	assert.Equal(t, "u1", (&Event{UserID: "u1", SessionID: "s1"}).VisitorKey())
	assert.Equal(t, "s1", (&Event{SessionID: "s1"}).VisitorKey())
	assert.Equal(t, "", (&Event{}).VisitorKey())
}

func TestAspectRatio(t *testing.T) {
	wide := &Asset{Dimensions: &Dimensions{Width: 1600, Height: 900}}
	assert.InDelta(t, 1.778, wide.AspectRatio(), 0.001)

	assert.Equal(t, 0.0, (&Asset{}).AspectRatio())
	assert.Equal(t, 0.0, (&Asset{Dimensions: &Dimensions{Width: 100}}).AspectRatio())
}
