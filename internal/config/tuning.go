// Package config loads and validates pose-estimation tuning parameters.
// The schema uses pointer fields so a partial JSON file only overrides
// the values it names; the Get* accessors supply defaults for the rest.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file,
// the single source of truth for default estimation parameters.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for the pose estimator.
// All omitted fields fall back to the defaults returned by the Get*
// accessors, so partial configs are safe.
type TuningConfig struct {
	// History buffer params
	HistoryRetentionSeconds *float64 `json:"history_retention_seconds,omitempty"`
	MaxVisionLatencySeconds *float64 `json:"max_vision_latency_seconds,omitempty"`

	// Vision correction params
	TranslationTrust *float64 `json:"translation_trust,omitempty"`
	HeadingTrust     *float64 `json:"heading_trust,omitempty"`
	MaxVisionPerTick *int     `json:"max_vision_per_tick,omitempty"`

	// Pose source stddev heuristic params
	TranslationStdExponent *float64 `json:"translation_std_exponent,omitempty"`
	HeadingStdExponent     *float64 `json:"heading_std_exponent,omitempty"`

	// Control loop params
	TickInterval *string `json:"tick_interval,omitempty"` // duration string like "20ms"
}

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must
// have a .json extension and stay under the size cap. Fields omitted
// from the file retain their defaults.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from
// DefaultConfigPath, searching the current directory and common parent
// directories. Panics if the file cannot be loaded; intended for tests
// and binaries that have already validated config availability.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/<pkg>/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are usable. The one
// configuration mistake treated as fatal is a retention window shorter
// than the expected vision latency: that guarantees systematic loss of
// corrections, so it must fail construction rather than degrade quietly.
func (c *TuningConfig) Validate() error {
	if c.HistoryRetentionSeconds != nil && *c.HistoryRetentionSeconds <= 0 {
		return fmt.Errorf("history_retention_seconds must be positive, got %f", *c.HistoryRetentionSeconds)
	}
	if c.MaxVisionLatencySeconds != nil && *c.MaxVisionLatencySeconds <= 0 {
		return fmt.Errorf("max_vision_latency_seconds must be positive, got %f", *c.MaxVisionLatencySeconds)
	}
	if c.GetHistoryRetentionSeconds() < c.GetMaxVisionLatencySeconds() {
		return fmt.Errorf("history_retention_seconds (%f) must cover max_vision_latency_seconds (%f)",
			c.GetHistoryRetentionSeconds(), c.GetMaxVisionLatencySeconds())
	}
	if c.TranslationTrust != nil && *c.TranslationTrust <= 0 {
		return fmt.Errorf("translation_trust must be positive, got %f", *c.TranslationTrust)
	}
	if c.HeadingTrust != nil && *c.HeadingTrust <= 0 {
		return fmt.Errorf("heading_trust must be positive, got %f", *c.HeadingTrust)
	}
	if c.MaxVisionPerTick != nil && *c.MaxVisionPerTick < 0 {
		return fmt.Errorf("max_vision_per_tick must be non-negative, got %d", *c.MaxVisionPerTick)
	}
	if c.TranslationStdExponent != nil && *c.TranslationStdExponent <= 0 {
		return fmt.Errorf("translation_std_exponent must be positive, got %f", *c.TranslationStdExponent)
	}
	if c.HeadingStdExponent != nil && *c.HeadingStdExponent <= 0 {
		return fmt.Errorf("heading_std_exponent must be positive, got %f", *c.HeadingStdExponent)
	}
	if c.TickInterval != nil && *c.TickInterval != "" {
		if _, err := time.ParseDuration(*c.TickInterval); err != nil {
			return fmt.Errorf("invalid tick_interval '%s': %w", *c.TickInterval, err)
		}
	}
	return nil
}

// GetHistoryRetentionSeconds returns the retention window or the default.
func (c *TuningConfig) GetHistoryRetentionSeconds() float64 {
	if c.HistoryRetentionSeconds == nil {
		return 0.5 // default: several times the worst expected vision latency
	}
	return *c.HistoryRetentionSeconds
}

// GetMaxVisionLatencySeconds returns the expected worst-case vision
// pipeline latency or the default.
func (c *TuningConfig) GetMaxVisionLatencySeconds() float64 {
	if c.MaxVisionLatencySeconds == nil {
		return 0.3 // default
	}
	return *c.MaxVisionLatencySeconds
}

// GetTranslationTrust returns the translation trust constant or the
// default. The correction gain per translation axis is
// trust / (trust + stddev²).
func (c *TuningConfig) GetTranslationTrust() float64 {
	if c.TranslationTrust == nil {
		return 0.04 // default
	}
	return *c.TranslationTrust
}

// GetHeadingTrust returns the heading trust constant or the default.
func (c *TuningConfig) GetHeadingTrust() float64 {
	if c.HeadingTrust == nil {
		return 0.01 // default
	}
	return *c.HeadingTrust
}

// GetMaxVisionPerTick returns the per-tick vision correction cap or the
// default. Zero means unlimited.
func (c *TuningConfig) GetMaxVisionPerTick() int {
	if c.MaxVisionPerTick == nil {
		return 0 // default: no cap
	}
	return *c.MaxVisionPerTick
}

// GetTranslationStdExponent returns the translation stddev coefficient
// or the default.
func (c *TuningConfig) GetTranslationStdExponent() float64 {
	if c.TranslationStdExponent == nil {
		return 0.02 // default
	}
	return *c.TranslationStdExponent
}

// GetHeadingStdExponent returns the heading stddev coefficient or the
// default.
func (c *TuningConfig) GetHeadingStdExponent() float64 {
	if c.HeadingStdExponent == nil {
		return 0.02 // default
	}
	return *c.HeadingStdExponent
}

// GetTickInterval parses and returns the control loop period.
func (c *TuningConfig) GetTickInterval() time.Duration {
	if c.TickInterval == nil || *c.TickInterval == "" {
		return 20 * time.Millisecond // default: 50 Hz control loop
	}
	d, err := time.ParseDuration(*c.TickInterval)
	if err != nil {
		return 20 * time.Millisecond // default on parse error
	}
	return d
}
