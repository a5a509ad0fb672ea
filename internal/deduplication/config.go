package deduplication

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds configuration for the deduplication engine
type Config struct {
	// TitleThreshold is the Jaccard title similarity a pair must strictly
	// exceed before the fuzzy rule can fire.
	// Default: 0.8. An empirical tuning constant, not a hard invariant.
	TitleThreshold float64

	// DescriptionThreshold is the Jaccard description similarity a pair
	// must strictly exceed, together with TitleThreshold, for the fuzzy
	// rule to fire.
	// Default: 0.7
	DescriptionThreshold float64

	// MaxCandidates caps how many existing tasks a draft is compared
	// against during the content pass. 0 means unlimited.
	// Default: 200
	MaxCandidates int
}

// DefaultConfig returns the default deduplication configuration
//
// The thresholds are deliberately strict: a false duplicate silently drops
// a task the user wanted, while a false unique only costs a redundant entry
// they can delete.
func DefaultConfig() Config {
	return Config{
		TitleThreshold:       0.8,
		DescriptionThreshold: 0.7,
		MaxCandidates:        200,
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.TitleThreshold < 0.0 || c.TitleThreshold > 1.0 {
		return fmt.Errorf("title_threshold must be between 0.0 and 1.0 (got %.2f)",
			c.TitleThreshold)
	}
	if c.DescriptionThreshold < 0.0 || c.DescriptionThreshold > 1.0 {
		return fmt.Errorf("description_threshold must be between 0.0 and 1.0 (got %.2f)",
			c.DescriptionThreshold)
	}
	if c.MaxCandidates < 0 {
		return fmt.Errorf("max_candidates cannot be negative (got %d)", c.MaxCandidates)
	}
	if c.MaxCandidates > 10000 {
		return fmt.Errorf("max_candidates too large (got %d, max 10000)", c.MaxCandidates)
	}
	return nil
}

// String returns a human-readable representation of the config
func (c Config) String() string {
	return fmt.Sprintf("Config{TitleThreshold: %.2f, DescriptionThreshold: %.2f, MaxCandidates: %d}",
		c.TitleThreshold, c.DescriptionThreshold, c.MaxCandidates)
}

// ConfigFromEnv creates a Config from environment variables, falling back to defaults
//
// Environment variables:
//   - INTAKE_DEDUP_TITLE_THRESHOLD: Title similarity threshold, 0.0-1.0 (default: 0.8)
//   - INTAKE_DEDUP_DESCRIPTION_THRESHOLD: Description similarity threshold, 0.0-1.0 (default: 0.7)
//   - INTAKE_DEDUP_MAX_CANDIDATES: Max existing tasks compared per draft, 0 = unlimited (default: 200)
//
// Returns an error if any environment variable has an invalid value.
func ConfigFromEnv() (Config, error) {
	cfg, err := ConfigFromEnvWith(DefaultConfig())
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration from environment: %w", err)
	}
	return cfg, nil
}

// ConfigFromEnvWith layers the same environment variables over an
// existing base config instead of the defaults. Parsing only; callers
// validate the merged result. Used by the file-based config loader so
// env overrides behave identically in both paths.
func ConfigFromEnvWith(base Config) (Config, error) {
	cfg := base

	if err := parseEnvFloat("INTAKE_DEDUP_TITLE_THRESHOLD", &cfg.TitleThreshold); err != nil {
		return cfg, err
	}
	if err := parseEnvFloat("INTAKE_DEDUP_DESCRIPTION_THRESHOLD", &cfg.DescriptionThreshold); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("INTAKE_DEDUP_MAX_CANDIDATES", &cfg.MaxCandidates); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// parseEnvFloat parses a float64 from an environment variable
func parseEnvFloat(key string, dest *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvInt parses an int from an environment variable
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}
