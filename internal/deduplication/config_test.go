package deduplication

import (
	"strings"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
	if cfg.TitleThreshold != 0.8 {
		t.Errorf("expected title threshold 0.8, got %f", cfg.TitleThreshold)
	}
	if cfg.DescriptionThreshold != 0.7 {
		t.Errorf("expected description threshold 0.7, got %f", cfg.DescriptionThreshold)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		errorMsg string
	}{
		{
			name:     "title threshold too high",
			mutate:   func(c *Config) { c.TitleThreshold = 1.1 },
			errorMsg: "title_threshold",
		},
		{
			name:     "title threshold negative",
			mutate:   func(c *Config) { c.TitleThreshold = -0.1 },
			errorMsg: "title_threshold",
		},
		{
			name:     "description threshold too high",
			mutate:   func(c *Config) { c.DescriptionThreshold = 2.0 },
			errorMsg: "description_threshold",
		},
		{
			name:     "negative max candidates",
			mutate:   func(c *Config) { c.MaxCandidates = -1 },
			errorMsg: "max_candidates",
		},
		{
			name:     "max candidates too large",
			mutate:   func(c *Config) { c.MaxCandidates = 20000 },
			errorMsg: "max_candidates too large",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.errorMsg)
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("expected error containing %q, got %q", tt.errorMsg, err.Error())
			}
		})
	}
}

func TestZeroMaxCandidatesMeansUnlimited(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxCandidates = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("zero max_candidates should be valid: %v", err)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Run("defaults when unset", func(t *testing.T) {
		cfg, err := ConfigFromEnv()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg != DefaultConfig() {
			t.Errorf("expected defaults, got %s", cfg)
		}
	})

	t.Run("overrides applied", func(t *testing.T) {
		t.Setenv("INTAKE_DEDUP_TITLE_THRESHOLD", "0.9")
		t.Setenv("INTAKE_DEDUP_DESCRIPTION_THRESHOLD", "0.6")
		t.Setenv("INTAKE_DEDUP_MAX_CANDIDATES", "50")

		cfg, err := ConfigFromEnv()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.TitleThreshold != 0.9 || cfg.DescriptionThreshold != 0.6 || cfg.MaxCandidates != 50 {
			t.Errorf("overrides not applied: %s", cfg)
		}
	})

	t.Run("malformed value", func(t *testing.T) {
		t.Setenv("INTAKE_DEDUP_TITLE_THRESHOLD", "not-a-number")
		if _, err := ConfigFromEnv(); err == nil {
			t.Error("expected error for malformed value")
		}
	})

	t.Run("out-of-range value", func(t *testing.T) {
		t.Setenv("INTAKE_DEDUP_TITLE_THRESHOLD", "1.5")
		_, err := ConfigFromEnv()
		if err == nil {
			t.Fatal("expected error for out-of-range value")
		}
		if !strings.Contains(err.Error(), "invalid configuration from environment") {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestConfigString(t *testing.T) {
	s := DefaultConfig().String()
	for _, want := range []string{"TitleThreshold: 0.80", "DescriptionThreshold: 0.70", "MaxCandidates: 200"} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %q in %q", want, s)
		}
	}
}
