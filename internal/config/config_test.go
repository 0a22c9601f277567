// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	// Verify a few key defaults to ensure the mechanism works.
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, 60, cfg.Gate.MaxClicksPerMinute)
	assert.Equal(t, 120, cfg.Gate.MaxKeysPerMinute)
	assert.Equal(t, 10*time.Second, cfg.Gate.DutyActive)
	assert.Equal(t, 1500*time.Millisecond, cfg.Gate.GracePeriod)
	assert.Equal(t, 0.8, cfg.Vision.TemplateMatchThreshold)
	assert.Equal(t, 0.3, cfg.Vision.NMSIoU)
	assert.Equal(t, 8, cfg.Vision.MinBoxSize)
	assert.Equal(t, 3, cfg.Executor.MaxAttempts)
	assert.Equal(t, 40, cfg.Executor.MaxWalkSteps)
	assert.Equal(t, 2*time.Second, cfg.Executor.GateBackoff)
	assert.Equal(t, 24*time.Hour, cfg.State.PauseStale)
	assert.Equal(t, 72*time.Hour, cfg.Cleanup.MaxAge)
	assert.Equal(t, 2.0, cfg.Agent.ObservationsPerSecond)
	assert.Equal(t, 65.0, cfg.Capture.Region.Left)
}

func TestPathsAreExpanded(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.NotContains(t, cfg.State.Dir, "~", "home-relative paths must be expanded")
	assert.NotContains(t, cfg.Capture.DebugDir, "~")
	assert.NotContains(t, cfg.Vision.TemplatesDir, "~")
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	valid := func() *Config {
		cfg := NewDefaultConfig()
		cfg.Target.TitleContains = "Target App"
		return cfg
	}

	t.Run("valid config passes", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("target identity is required", func(t *testing.T) {
		cfg := NewDefaultConfig()
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "target.title_contains or target.process_name")

		cfg.Target.ProcessName = "target.exe"
		assert.NoError(t, cfg.Validate(), "process name alone corroborates")
	})

	t.Run("gate ceilings must be positive", func(t *testing.T) {
		cfg := valid()
		cfg.Gate.MaxTotalPerMinute = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "gate.max_total_per_minute")

		cfg = valid()
		cfg.Gate.MaxClicksPerMinute = -1
		assert.Error(t, cfg.Validate())
	})

	t.Run("vision thresholds are bounded", func(t *testing.T) {
		cfg := valid()
		cfg.Vision.TemplateMatchThreshold = 1.5
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "template_match_threshold")

		cfg = valid()
		cfg.Vision.NMSIoU = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("executor bounds must be positive", func(t *testing.T) {
		cfg := valid()
		cfg.Executor.MaxWalkSteps = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("observation rate must be positive", func(t *testing.T) {
		cfg := valid()
		cfg.Agent.ObservationsPerSecond = 0
		assert.Error(t, cfg.Validate())
	})
}

// -- Viper Integration --

func TestNewConfigFromViper(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(`
target:
  title_contains: "Studio"
gate:
  max_keys_per_minute: 30
  duty_active: 4s
executor:
  fuzzy_max_distance: 2
`)))

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "Studio", cfg.Target.TitleContains)
	assert.Equal(t, 30, cfg.Gate.MaxKeysPerMinute)
	assert.Equal(t, 4*time.Second, cfg.Gate.DutyActive)
	assert.Equal(t, 2, cfg.Executor.FuzzyMaxDistance)
	// Untouched keys keep their defaults.
	assert.Equal(t, 60, cfg.Gate.MaxClicksPerMinute)
}

func TestNewConfigFromViperRejectsInvalid(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	// No target identity configured.
	_, err := NewConfigFromViper(v)
	assert.Error(t, err)

	cfg, err := NewRawConfigFromViper(v)
	require.NoError(t, err, "the raw loader skips validation for utility commands")
	assert.NotNil(t, cfg)
}
