// Package config loads the installation's intake configuration from a
// YAML file with environment overrides layered on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/hearthhq/intake/internal/deduplication"
)

// DefaultPath is where the config file lives relative to the
// installation root.
const DefaultPath = ".intake/config.yaml"

// Config is the structure of .intake/config.yaml.
type Config struct {
	// Model is the text-understanding model used for extraction.
	// Empty means the ai package default (INTAKE_MODEL env or Haiku).
	Model string `yaml:"model"`

	// RequestsPerSecond throttles text-understanding calls.
	// Default: 0 (no throttle)
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Dedup holds the similarity thresholds and candidate cap.
	Dedup DedupConfig `yaml:"dedup"`

	// Store holds the task store settings.
	Store StoreConfig `yaml:"store"`

	// Sources lists the enabled intake sources. Empty enables all.
	// Known values: "email", "calendar", plus webhook origin tags.
	Sources []string `yaml:"sources"`
}

// DedupConfig mirrors the engine's tunables in file form.
type DedupConfig struct {
	// TitleThreshold is the Jaccard title similarity above which two
	// tasks may be duplicates. Default: 0.8, Range: (0, 1]
	TitleThreshold float64 `yaml:"title_threshold"`

	// DescriptionThreshold is the Jaccard description similarity that
	// must also be exceeded. Default: 0.7, Range: (0, 1]
	DescriptionThreshold float64 `yaml:"description_threshold"`

	// MaxCandidates caps how many stored tasks each draft is compared
	// against. 0 = unlimited. Default: 200, Range: 0-10000
	MaxCandidates int `yaml:"max_candidates"`
}

// StoreConfig holds task store settings.
type StoreConfig struct {
	// Path is the SQLite database path. Default: .intake/tasks.db
	Path string `yaml:"path"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	dedup := deduplication.DefaultConfig()
	return &Config{
		Dedup: DedupConfig{
			TitleThreshold:       dedup.TitleThreshold,
			DescriptionThreshold: dedup.DescriptionThreshold,
			MaxCandidates:        dedup.MaxCandidates,
		},
		Store: StoreConfig{Path: filepath.Join(".intake", "tasks.db")},
	}
}

// Load reads the config file at path, falling back to defaults when the
// file does not exist, then applies environment overrides. A file that
// exists but does not parse or validate is an error, not a fallback.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// applyEnvOverrides layers environment variables over file values.
// INTAKE_DEDUP_* reuses the engine's own env parsing so thresholds
// behave identically whether the engine is built from this config or
// from the environment directly.
func (c *Config) applyEnvOverrides() error {
	if model := os.Getenv("INTAKE_MODEL"); model != "" {
		c.Model = model
	}
	if path := os.Getenv("INTAKE_STORE_PATH"); path != "" {
		c.Store.Path = path
	}

	merged, err := deduplication.ConfigFromEnvWith(c.DedupEngineConfig())
	if err != nil {
		return err
	}
	c.Dedup.TitleThreshold = merged.TitleThreshold
	c.Dedup.DescriptionThreshold = merged.DescriptionThreshold
	c.Dedup.MaxCandidates = merged.MaxCandidates
	return nil
}

// Validate checks ranges. Delegates the dedup block to the engine's own
// validation.
func (c *Config) Validate() error {
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must be >= 0, got %v", c.RequestsPerSecond)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path cannot be empty")
	}
	dedup := c.DedupEngineConfig()
	if err := dedup.Validate(); err != nil {
		return fmt.Errorf("dedup: %w", err)
	}
	for _, source := range c.Sources {
		if source == "" {
			return fmt.Errorf("sources cannot contain empty entries")
		}
	}
	return nil
}

// DedupEngineConfig converts the file block into the engine's config
// type.
func (c *Config) DedupEngineConfig() deduplication.Config {
	return deduplication.Config{
		TitleThreshold:       c.Dedup.TitleThreshold,
		DescriptionThreshold: c.Dedup.DescriptionThreshold,
		MaxCandidates:        c.Dedup.MaxCandidates,
	}
}

// SourceEnabled reports whether a source should be ingested. An empty
// list enables everything.
func (c *Config) SourceEnabled(source string) bool {
	if len(c.Sources) == 0 {
		return true
	}
	for _, s := range c.Sources {
		if s == source {
			return true
		}
	}
	return false
}
