// Package config loads the CRO automation settings. All thresholds the
// decision engine, allocator, and orchestrator consume live here; the
// core packages never read files or environment themselves.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Automation   Automation   `yaml:"automation"`
	Statistics   Statistics   `yaml:"statistical_settings"`
	Allocation   Allocation   `yaml:"smart_allocation"`
	Goals        []Goal       `yaml:"optimization_goals"`
	Storage      Storage      `yaml:"storage"`
	Server       Server       `yaml:"server"`
	ManifestPath string       `yaml:"media_manifest"`
}

type Automation struct {
	Enabled            bool          `yaml:"enabled"`
	AutoStartNewTests  bool          `yaml:"auto_start_new_tests"`
	AutoDeclareWinners bool          `yaml:"auto_declare_winners"`
	MaxConcurrentTests int           `yaml:"max_concurrent_tests"`
	MinSampleSize      int           `yaml:"min_sample_size"`
	TestDurationMax    int           `yaml:"test_duration_max_days"`
	CycleInterval      Duration      `yaml:"cycle_interval"`
}

// Duration accepts "30m" style values in YAML, which the decoder will not
// parse into a plain time.Duration.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", node.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

type Statistics struct {
	SignificanceLevel float64 `yaml:"significance_level"`
	MinimumEffectSize float64 `yaml:"minimum_effect_size"`
}

type Allocation struct {
	Enabled          bool    `yaml:"enabled"`
	MinTrafficToLoser float64 `yaml:"min_traffic_to_loser"`
}

// Goal is a named weighted secondary metric contributing to the
// engagement score.
type Goal struct {
	Name   string  `yaml:"name"`
	Weight float64 `yaml:"weight"`
}

type Storage struct {
	// Backend selects "json" or "sqlite".
	Backend       string `yaml:"backend"`
	DataDir       string `yaml:"data_dir"`
	DBPath        string `yaml:"db_path"`
	EventCapacity int    `yaml:"event_capacity"`
}

type Server struct {
	Port int `yaml:"port"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Automation: Automation{
			Enabled:            true,
			AutoStartNewTests:  true,
			AutoDeclareWinners: false,
			MaxConcurrentTests: 3,
			MinSampleSize:      100,
			TestDurationMax:    14,
			CycleInterval:      Duration(time.Hour),
		},
		Statistics: Statistics{
			SignificanceLevel: 0.05,
			MinimumEffectSize: 0.1,
		},
		Allocation: Allocation{
			Enabled:          true,
			MinTrafficToLoser: 10,
		},
		Goals: []Goal{
			{Name: "video_play", Weight: 2},
			{Name: "scroll_depth_75", Weight: 1},
			{Name: "gallery_interaction", Weight: 1.5},
			{Name: "contact_form_submit", Weight: 3},
		},
		Storage: Storage{
			Backend:       "json",
			DataDir:       "./data/cro",
			DBPath:        "./cro-pilot.db",
			EventCapacity: 10000,
		},
		Server: Server{
			Port: 8080,
		},
		ManifestPath: "./media-manifest.json",
	}
}

// Load reads a YAML config file over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Statistics.SignificanceLevel <= 0 || c.Statistics.SignificanceLevel >= 1 {
		return fmt.Errorf("significance_level must be in (0, 1), got %v", c.Statistics.SignificanceLevel)
	}
	if c.Statistics.MinimumEffectSize < 0 {
		return fmt.Errorf("minimum_effect_size must be >= 0, got %v", c.Statistics.MinimumEffectSize)
	}
	if c.Allocation.MinTrafficToLoser < 0 || c.Allocation.MinTrafficToLoser > 50 {
		return fmt.Errorf("min_traffic_to_loser must be in [0, 50], got %v", c.Allocation.MinTrafficToLoser)
	}
	if c.Automation.MaxConcurrentTests < 0 {
		return fmt.Errorf("max_concurrent_tests must be >= 0, got %d", c.Automation.MaxConcurrentTests)
	}
	switch c.Storage.Backend {
	case "json", "sqlite":
	default:
		return fmt.Errorf("storage backend must be json or sqlite, got %q", c.Storage.Backend)
	}
	return nil
}
