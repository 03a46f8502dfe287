package store

import (
	"encoding/json"
	"fmt"
)

// ConfigSpec is the content descriptor of one variant. Each hypothesis
// kind the generator produces has its own concrete spec type; new kinds
// register themselves via RegisterConfigKind.
type ConfigSpec interface {
	Kind() string
}

// Config wraps a ConfigSpec for JSON persistence. On the wire it is a flat
// object carrying a "kind" discriminator next to the spec's own fields.
type Config struct {
	Spec ConfigSpec
}

// HeroMediaConfig selects the hero section's media: a video or an image.
type HeroMediaConfig struct {
	MediaType string `json:"type"`
	Asset     *Asset `json:"asset,omitempty"`
}

func (HeroMediaConfig) Kind() string { return "hero_media" }

// CTAConfig describes a call-to-action button.
type CTAConfig struct {
	Text     string `json:"text,omitempty"`
	Color    string `json:"color,omitempty"`
	Style    string `json:"style,omitempty"`
	Position string `json:"position,omitempty"`
	Sticky   bool   `json:"sticky,omitempty"`
}

func (CTAConfig) Kind() string { return "cta" }

// GalleryConfig describes gallery category ordering and grid shape.
type GalleryConfig struct {
	Order   []string `json:"order,omitempty"`
	Columns int      `json:"columns,omitempty"`
	Rows    int      `json:"rows,omitempty"`
}

func (GalleryConfig) Kind() string { return "gallery" }

// LayoutConfig describes page section ordering.
type LayoutConfig struct {
	Sections []string `json:"sections,omitempty"`
	Order    string   `json:"order,omitempty"`
	Position string   `json:"position,omitempty"`
}

func (LayoutConfig) Kind() string { return "layout" }

// LandingConfig describes an event-specific landing page variant.
type LandingConfig struct {
	PageType string   `json:"type"`
	Gallery  []string `json:"gallery,omitempty"`
	Copy     string   `json:"copy,omitempty"`
}

func (LandingConfig) Kind() string { return "landing" }

// RawConfig preserves a config of a kind this build does not know about,
// so API-created tests round-trip through storage unharmed.
type RawConfig struct {
	RawKind string
	Fields  json.RawMessage
}

func (r RawConfig) Kind() string { return r.RawKind }

var configKinds = map[string]func() ConfigSpec{}

// RegisterConfigKind makes a config kind decodable. The factory must
// return a pointer to a fresh spec value.
func RegisterConfigKind(kind string, factory func() ConfigSpec) {
	configKinds[kind] = factory
}

func init() {
	RegisterConfigKind("hero_media", func() ConfigSpec { return &HeroMediaConfig{} })
	RegisterConfigKind("cta", func() ConfigSpec { return &CTAConfig{} })
	RegisterConfigKind("gallery", func() ConfigSpec { return &GalleryConfig{} })
	RegisterConfigKind("layout", func() ConfigSpec { return &LayoutConfig{} })
	RegisterConfigKind("landing", func() ConfigSpec { return &LandingConfig{} })
}

func (c Config) MarshalJSON() ([]byte, error) {
	if c.Spec == nil {
		return []byte("null"), nil
	}
	if raw, ok := c.Spec.(RawConfig); ok {
		return mergeKind(raw.RawKind, raw.Fields)
	}
	fields, err := json.Marshal(c.Spec)
	if err != nil {
		return nil, err
	}
	return mergeKind(c.Spec.Kind(), fields)
}

func mergeKind(kind string, fields json.RawMessage) ([]byte, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(fields, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]json.RawMessage{}
	}
	kindJSON, err := json.Marshal(kind)
	if err != nil {
		return nil, err
	}
	m["kind"] = kindJSON
	return json.Marshal(m)
}

func (c *Config) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		c.Spec = nil
		return nil
	}
	var envelope struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("variant config: %w", err)
	}
	factory, ok := configKinds[envelope.Kind]
	if !ok {
		c.Spec = RawConfig{RawKind: envelope.Kind, Fields: append(json.RawMessage(nil), data...)}
		return nil
	}
	spec := factory()
	if err := json.Unmarshal(data, spec); err != nil {
		return fmt.Errorf("variant config %q: %w", envelope.Kind, err)
	}
	c.Spec = derefSpec(spec)
	return nil
}

// derefSpec stores specs by value so Config comparisons and copies behave.
func derefSpec(spec ConfigSpec) ConfigSpec {
	switch s := spec.(type) {
	case *HeroMediaConfig:
		return *s
	case *CTAConfig:
		return *s
	case *GalleryConfig:
		return *s
	case *LayoutConfig:
		return *s
	case *LandingConfig:
		return *s
	default:
		return spec
	}
}

// HeroMedia returns the hero media spec, or nil when the config is of a
// different kind. Convenience accessors keep call sites free of type
// assertions.
func (c Config) HeroMedia() *HeroMediaConfig {
	if s, ok := c.Spec.(HeroMediaConfig); ok {
		return &s
	}
	return nil
}

// MediaAsset returns the media asset referenced by the config, if any.
func (c Config) MediaAsset() *Asset {
	if hm := c.HeroMedia(); hm != nil {
		return hm.Asset
	}
	return nil
}
