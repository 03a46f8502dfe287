package hypothesis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cro-pilot/cro-pilot/internal/store"
)

func TestAnalyzeImage(t *testing.T) {
	landscape := AnalyzeImage(&store.Asset{
		Subcategory: "weddings",
		Dimensions:  &store.Dimensions{Width: 2400, Height: 1000},
	})
	assert.Equal(t, "landscape", landscape.Orientation)
	assert.True(t, landscape.IsWideShot)
	assert.False(t, landscape.IsCloseup)
	assert.True(t, landscape.HasPeople)

	portrait := AnalyzeImage(&store.Asset{
		Subcategory: "corporate",
		Dimensions:  &store.Dimensions{Width: 600, Height: 900}, // ratio ~0.67
	})
	assert.Equal(t, "portrait", portrait.Orientation)
	assert.True(t, portrait.IsCloseup)
	assert.False(t, portrait.HasPeople)

	square := AnalyzeImage(&store.Asset{Dimensions: &store.Dimensions{Width: 1000, Height: 1000}})
	assert.Equal(t, "square", square.Orientation)
}

func TestGenerateChallengerPicksDistinctAssetFromSameCategory(t *testing.T) {
	var m store.MediaManifest
	m.Gallery.Weddings = []store.Asset{
		{ID: "wed-1", Subcategory: "weddings"},
		{ID: "wed-2", Subcategory: "weddings"},
	}
	g := NewGenerator(&m)

	champion := &store.Variant{
		ID:   "variant_0",
		Name: "Champion",
		Config: store.Config{Spec: store.HeroMediaConfig{
			MediaType: "image",
			Asset:     &store.Asset{ID: "wed-1", Subcategory: "weddings"},
		}},
	}

	challenger := g.GenerateChallenger(champion)
	require.NotNil(t, challenger)
	asset := challenger.Config.MediaAsset()
	require.NotNil(t, asset)
	assert.Equal(t, "wed-2", asset.ID)
	assert.NotEqual(t, champion.Name, challenger.Name)
}

func TestGenerateChallengerNilWhenNoAlternative(t *testing.T) {
	var m store.MediaManifest
	m.Gallery.Weddings = []store.Asset{{ID: "wed-1", Subcategory: "weddings"}}
	g := NewGenerator(&m)

	champion := &store.Variant{
		Config: store.Config{Spec: store.HeroMediaConfig{
			MediaType: "image",
			Asset:     &store.Asset{ID: "wed-1", Subcategory: "weddings"},
		}},
	}

	assert.Nil(t, g.GenerateChallenger(champion))
}

func TestGenerateChallengerNilForNonMediaChampion(t *testing.T) {
	g := NewGenerator(&store.MediaManifest{})
	champion := &store.Variant{Config: store.Config{Spec: store.CTAConfig{Text: "Vraag offerte aan"}}}
	assert.Nil(t, g.GenerateChallenger(champion))
}
