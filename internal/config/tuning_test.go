package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestEmptyConfigUsesDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()
	assert.Equal(t, 0.5, cfg.GetHistoryRetentionSeconds())
	assert.Equal(t, 0.3, cfg.GetMaxVisionLatencySeconds())
	assert.Equal(t, 0.04, cfg.GetTranslationTrust())
	assert.Equal(t, 0.01, cfg.GetHeadingTrust())
	assert.Equal(t, 0, cfg.GetMaxVisionPerTick())
	assert.Equal(t, 20*time.Millisecond, cfg.GetTickInterval())
}

func TestLoadPartialConfig(t *testing.T) {
	path := writeConfig(t, `{"history_retention_seconds": 1.5, "tick_interval": "10ms"}`)

	cfg, err := LoadTuningConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 1.5, cfg.GetHistoryRetentionSeconds())
	assert.Equal(t, 10*time.Millisecond, cfg.GetTickInterval())
	// Omitted fields fall back to defaults.
	assert.Equal(t, 0.04, cfg.GetTranslationTrust())
}

func TestLoadRejectsNonJSONExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	_, err := LoadTuningConfig(path)
	assert.Error(t, err)
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := writeConfig(t, `{"history_retention_seconds": `)
	_, err := LoadTuningConfig(path)
	assert.Error(t, err)
}

func TestValidateRetentionMustCoverLatency(t *testing.T) {
	path := writeConfig(t, `{"history_retention_seconds": 0.1, "max_vision_latency_seconds": 0.3}`)
	_, err := LoadTuningConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must cover")
}

func TestValidateRejectsNonPositiveValues(t *testing.T) {
	cases := []string{
		`{"history_retention_seconds": 0}`,
		`{"max_vision_latency_seconds": -0.1}`,
		`{"translation_trust": 0}`,
		`{"heading_trust": -1}`,
		`{"max_vision_per_tick": -1}`,
		`{"translation_std_exponent": 0}`,
		`{"heading_std_exponent": -0.5}`,
		`{"tick_interval": "fast"}`,
	}
	for _, body := range cases {
		path := writeConfig(t, body)
		_, err := LoadTuningConfig(path)
		assert.Error(t, err, "config %s should fail validation", body)
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	require.NotNil(t, cfg)
	require.NoError(t, cfg.Validate())
	assert.Greater(t, cfg.GetHistoryRetentionSeconds(), cfg.GetMaxVisionLatencySeconds())
}
