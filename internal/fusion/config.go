package fusion

import (
	"fmt"

	"github.com/itsWihy/TryGoneRobotTemplate/internal/config"
)

// Config holds the tuning parameters for the pose estimator.
type Config struct {
	RetentionSeconds        float64 // history buffer window (seconds)
	MaxVisionLatencySeconds float64 // worst expected vision pipeline delay (seconds)
	TranslationTrust        float64 // gain constant for x/y correction axes
	HeadingTrust            float64 // gain constant for the heading axis
	MaxVisionPerTick        int     // cap on corrections per ingestion call; 0 = unlimited
}

// DefaultConfig returns the estimator configuration loaded from the
// canonical tuning defaults file (config/tuning.defaults.json). Panics
// if the file cannot be found; intended for tests and binaries that
// have already validated config availability.
func DefaultConfig() Config {
	return ConfigFromTuning(config.MustLoadDefaultConfig())
}

// ConfigFromTuning builds a fusion Config from a loaded TuningConfig.
// Use this in production code where the TuningConfig is already loaded.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		RetentionSeconds:        cfg.GetHistoryRetentionSeconds(),
		MaxVisionLatencySeconds: cfg.GetMaxVisionLatencySeconds(),
		TranslationTrust:        cfg.GetTranslationTrust(),
		HeadingTrust:            cfg.GetHeadingTrust(),
		MaxVisionPerTick:        cfg.GetMaxVisionPerTick(),
	}
}

// validate rejects configurations that would misbehave at runtime. A
// retention window shorter than the worst vision latency guarantees
// systematic correction loss, so it is a construction error rather than
// a runtime input error.
func (c Config) validate() error {
	if c.RetentionSeconds <= 0 {
		return fmt.Errorf("retention window must be positive, got %f", c.RetentionSeconds)
	}
	if c.MaxVisionLatencySeconds <= 0 {
		return fmt.Errorf("max vision latency must be positive, got %f", c.MaxVisionLatencySeconds)
	}
	if c.RetentionSeconds < c.MaxVisionLatencySeconds {
		return fmt.Errorf("retention window %fs shorter than max vision latency %fs",
			c.RetentionSeconds, c.MaxVisionLatencySeconds)
	}
	if c.TranslationTrust <= 0 {
		return fmt.Errorf("translation trust must be positive, got %f", c.TranslationTrust)
	}
	if c.HeadingTrust <= 0 {
		return fmt.Errorf("heading trust must be positive, got %f", c.HeadingTrust)
	}
	if c.MaxVisionPerTick < 0 {
		return fmt.Errorf("max vision per tick must be non-negative, got %d", c.MaxVisionPerTick)
	}
	return nil
}
