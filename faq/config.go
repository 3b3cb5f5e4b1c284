package faq

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/vraagbaak/faq/internal/extract"
	"github.com/hazyhaar/vraagbaak/faq/internal/fetch"
)

// ContextConfig is per-context deployment configuration. The curated
// order is the editorial question sequence used for presentation ties;
// it lives in config, never in code.
type ContextConfig struct {
	Slug         string   `yaml:"slug"`
	Name         string   `yaml:"name"`
	CuratedOrder []string `yaml:"curated_order"`
}

// Config configures the faq service.
type Config struct {
	// Fetch settings for source pages.
	Fetch fetch.Config

	// Extract holds extraction vocabulary and thresholds.
	Extract extract.Options

	// BufferDir enables .md snapshot output when set.
	BufferDir string

	// BadgeWindow is how long a change record keeps producing a badge.
	// Zero means badges never age out.
	BadgeWindow time.Duration

	// MaxSourcesPerContext caps source registration. Default: 10.
	MaxSourcesPerContext int

	// Contexts declares per-context configuration (curated order).
	Contexts []ContextConfig
}

func (c *Config) defaults() {
	if c.MaxSourcesPerContext <= 0 {
		c.MaxSourcesPerContext = 10
	}
	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = 30 * time.Second
	}
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.defaults()
	return cfg
}

// CuratedOrder returns the curated question list for a context slug,
// or nil when the context has none configured.
func (c *Config) CuratedOrder(slug string) []string {
	for _, cc := range c.Contexts {
		if cc.Slug == slug {
			return cc.CuratedOrder
		}
	}
	return nil
}

// fileConfig is the YAML shape of the optional config file. Durations
// use Go syntax ("30s", "168h").
type fileConfig struct {
	BadgeWindow          string `yaml:"badge_window"`
	MaxSourcesPerContext int    `yaml:"max_sources_per_context"`
	BufferDir            string `yaml:"buffer_dir"`

	Fetch struct {
		Timeout   string `yaml:"timeout"`
		MaxBytes  int64  `yaml:"max_bytes"`
		UserAgent string `yaml:"user_agent"`
	} `yaml:"fetch"`

	Extraction struct {
		QuestionWords  []string `yaml:"question_words"`
		NoisePattern   string   `yaml:"noise_pattern"`
		SectionHeading string   `yaml:"section_heading"`
		SectionEnds    []string `yaml:"section_ends"`
		Aggressive     *bool    `yaml:"aggressive"`
		MaxItems       int      `yaml:"max_items"`
	} `yaml:"extraction"`

	Contexts []ContextConfig `yaml:"contexts"`
}

// LoadConfig reads a YAML config file into a Config with defaults
// applied. Unset fields keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("faq: read config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("faq: parse config: %w", err)
	}

	cfg := &Config{
		BufferDir:            fc.BufferDir,
		MaxSourcesPerContext: fc.MaxSourcesPerContext,
		Contexts:             fc.Contexts,
		Extract: extract.Options{
			QuestionWords:  fc.Extraction.QuestionWords,
			NoisePattern:   fc.Extraction.NoisePattern,
			SectionHeading: fc.Extraction.SectionHeading,
			SectionEnds:    fc.Extraction.SectionEnds,
			Aggressive:     fc.Extraction.Aggressive,
			MaxItems:       fc.Extraction.MaxItems,
		},
	}
	cfg.Fetch.MaxBytes = fc.Fetch.MaxBytes
	cfg.Fetch.UserAgent = fc.Fetch.UserAgent

	if fc.BadgeWindow != "" {
		d, err := time.ParseDuration(fc.BadgeWindow)
		if err != nil {
			return nil, fmt.Errorf("faq: badge_window: %w", err)
		}
		cfg.BadgeWindow = d
	}
	if fc.Fetch.Timeout != "" {
		d, err := time.ParseDuration(fc.Fetch.Timeout)
		if err != nil {
			return nil, fmt.Errorf("faq: fetch.timeout: %w", err)
		}
		cfg.Fetch.Timeout = d
	}

	cfg.defaults()
	return cfg, nil
}
