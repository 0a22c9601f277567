// File: internal/config/config.go
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration. The agent must behave
// safely with any key missing, so every field has a default registered in
// SetDefaults.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Gate     GateConfig     `mapstructure:"gate" yaml:"gate"`
	Target   TargetConfig   `mapstructure:"target" yaml:"target"`
	Capture  CaptureConfig  `mapstructure:"capture" yaml:"capture"`
	Vision   VisionConfig   `mapstructure:"vision" yaml:"vision"`
	Executor ExecutorConfig `mapstructure:"executor" yaml:"executor"`
	State    StateConfig    `mapstructure:"state" yaml:"state"`
	Cleanup  CleanupConfig  `mapstructure:"cleanup" yaml:"cleanup"`
	Agent    AgentConfig    `mapstructure:"agent" yaml:"agent"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// GateConfig tunes the action gate: sliding-window rate ceilings, the
// duty cycle, and the foreground-gate grace period.
type GateConfig struct {
	MaxClicksPerMinute int `mapstructure:"max_clicks_per_minute" yaml:"max_clicks_per_minute"`
	MaxKeysPerMinute   int `mapstructure:"max_keys_per_minute" yaml:"max_keys_per_minute"`
	MaxTotalPerMinute  int `mapstructure:"max_total_per_minute" yaml:"max_total_per_minute"`

	// Duty cycle: alternating Active/Released phases for continuous input.
	// Both zero collapses to always-Active.
	DutyActive   time.Duration `mapstructure:"duty_active" yaml:"duty_active"`
	DutyReleased time.Duration `mapstructure:"duty_released" yaml:"duty_released"`

	// A failing foreground predicate is still accepted within this window
	// after it last passed. Hysteresis against focus flicker.
	GracePeriod time.Duration `mapstructure:"grace_period" yaml:"grace_period"`

	// Ownership marker handling. Markers older than OwnerStaleAfter are
	// treated as unowned.
	Owner           string        `mapstructure:"owner" yaml:"owner"`
	OwnerStaleAfter time.Duration `mapstructure:"owner_stale_after" yaml:"owner_stale_after"`
}

// TargetConfig identifies the application the agent is allowed to drive.
// Identity is corroborated by title or process name; class names are reused
// across unrelated applications and never corroborate on their own.
type TargetConfig struct {
	TitleContains   string `mapstructure:"title_contains" yaml:"title_contains"`
	ProcessName     string `mapstructure:"process_name" yaml:"process_name"`
	ClassContains   string `mapstructure:"class_contains" yaml:"class_contains"`
	PeerTitle       string `mapstructure:"peer_title" yaml:"peer_title"`
	PeerProcessName string `mapstructure:"peer_process_name" yaml:"peer_process_name"`
}

// RegionPercent describes a capture region relative to a monitor, in percent.
type RegionPercent struct {
	Left   float64 `mapstructure:"left" yaml:"left"`
	Top    float64 `mapstructure:"top" yaml:"top"`
	Width  float64 `mapstructure:"width" yaml:"width"`
	Height float64 `mapstructure:"height" yaml:"height"`
}

// CaptureConfig controls screen capture.
type CaptureConfig struct {
	MonitorIndex    int           `mapstructure:"monitor_index" yaml:"monitor_index"`
	Region          RegionPercent `mapstructure:"region" yaml:"region"`
	SaveDebugImages bool          `mapstructure:"save_debug_images" yaml:"save_debug_images"`
	DebugDir        string        `mapstructure:"debug_dir" yaml:"debug_dir"`
}

// VisionConfig tunes element detection and template matching.
type VisionConfig struct {
	TemplatesDir           string  `mapstructure:"templates_dir" yaml:"templates_dir"`
	TemplateMatchThreshold float64 `mapstructure:"template_match_threshold" yaml:"template_match_threshold"`
	NMSIoU                 float64 `mapstructure:"nms_iou" yaml:"nms_iou"`
	TemplateContourIoU     float64 `mapstructure:"template_contour_iou" yaml:"template_contour_iou"`
	ContourNMSIoU          float64 `mapstructure:"contour_nms_iou" yaml:"contour_nms_iou"`
	BlurRadius             float64 `mapstructure:"blur_radius" yaml:"blur_radius"`
	EdgeThreshold          uint8   `mapstructure:"edge_threshold" yaml:"edge_threshold"`
	MinBoxSize             int     `mapstructure:"min_box_size" yaml:"min_box_size"`
	MaxBoxFraction         float64 `mapstructure:"max_box_fraction" yaml:"max_box_fraction"`
}

// ExecutorConfig bounds the verified-action executor. Every knob here is an
// empirically tuned guess that does not transfer across UI versions of the
// target application, which is exactly why none of them are hard-coded.
type ExecutorConfig struct {
	MaxAttempts         int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	MaxSeedSteps        int           `mapstructure:"max_seed_steps" yaml:"max_seed_steps"`
	MaxWalkSteps        int           `mapstructure:"max_walk_steps" yaml:"max_walk_steps"`
	NoChangeStreakLimit int           `mapstructure:"no_change_streak_limit" yaml:"no_change_streak_limit"`
	RecoveryCooldown    int           `mapstructure:"recovery_cooldown_steps" yaml:"recovery_cooldown_steps"`
	SettleDelay         time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	ClipboardTimeout    time.Duration `mapstructure:"clipboard_timeout" yaml:"clipboard_timeout"`
	FuzzyMaxDistance    int           `mapstructure:"fuzzy_max_distance" yaml:"fuzzy_max_distance"`
	WaitTimeout         time.Duration `mapstructure:"wait_timeout" yaml:"wait_timeout"`
	WaitInterval        time.Duration `mapstructure:"wait_interval" yaml:"wait_interval"`
	ReactEvery          int           `mapstructure:"react_every" yaml:"react_every"`
	// GateBackoff is slept between attempts after a gate rejection, giving
	// the budget window time to drain.
	GateBackoff time.Duration `mapstructure:"gate_backoff" yaml:"gate_backoff"`
}

// StateConfig locates the shared filesystem records (pause state, ownership
// marker, event log).
type StateConfig struct {
	Dir           string        `mapstructure:"dir" yaml:"dir"`
	PauseStale    time.Duration `mapstructure:"pause_stale" yaml:"pause_stale"`
	EventLogFile  string        `mapstructure:"event_log_file" yaml:"event_log_file"`
	EventLogLimit int           `mapstructure:"event_log_limit_mb" yaml:"event_log_limit_mb"`
}

// CleanupConfig controls the artifact sweeper.
type CleanupConfig struct {
	MaxAge   time.Duration `mapstructure:"max_age" yaml:"max_age"`
	MinAge   time.Duration `mapstructure:"min_age" yaml:"min_age"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

// AgentConfig paces the cooperative tick loop.
type AgentConfig struct {
	ObservationsPerSecond float64 `mapstructure:"observations_per_second" yaml:"observations_per_second"`
}

// SetDefaults initializes default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "deskpilot")
	v.SetDefault("logger.log_file", "deskpilot.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Gate --
	v.SetDefault("gate.max_clicks_per_minute", 60)
	v.SetDefault("gate.max_keys_per_minute", 120)
	v.SetDefault("gate.max_total_per_minute", 120)
	v.SetDefault("gate.duty_active", "10s")
	v.SetDefault("gate.duty_released", "5s")
	v.SetDefault("gate.grace_period", "1500ms")
	v.SetDefault("gate.owner", "deskpilot")
	v.SetDefault("gate.owner_stale_after", "10s")

	// -- Capture --
	v.SetDefault("capture.monitor_index", 0)
	v.SetDefault("capture.region.left", 65)
	v.SetDefault("capture.region.top", 8)
	v.SetDefault("capture.region.width", 34)
	v.SetDefault("capture.region.height", 88)
	v.SetDefault("capture.save_debug_images", true)
	v.SetDefault("capture.debug_dir", "~/.deskpilot/captures")

	// -- Vision --
	v.SetDefault("vision.templates_dir", "~/.deskpilot/templates")
	v.SetDefault("vision.template_match_threshold", 0.8)
	v.SetDefault("vision.nms_iou", 0.3)
	v.SetDefault("vision.template_contour_iou", 0.5)
	v.SetDefault("vision.contour_nms_iou", 0.3)
	v.SetDefault("vision.blur_radius", 2.0)
	v.SetDefault("vision.edge_threshold", 64)
	v.SetDefault("vision.min_box_size", 8)
	v.SetDefault("vision.max_box_fraction", 0.9)

	// -- Executor --
	v.SetDefault("executor.max_attempts", 3)
	v.SetDefault("executor.max_seed_steps", 12)
	v.SetDefault("executor.max_walk_steps", 40)
	v.SetDefault("executor.no_change_streak_limit", 3)
	v.SetDefault("executor.recovery_cooldown_steps", 15)
	v.SetDefault("executor.settle_delay", "300ms")
	v.SetDefault("executor.clipboard_timeout", "800ms")
	v.SetDefault("executor.fuzzy_max_distance", 1)
	v.SetDefault("executor.wait_timeout", "45s")
	v.SetDefault("executor.wait_interval", "2s")
	v.SetDefault("executor.react_every", 3)
	v.SetDefault("executor.gate_backoff", "2s")

	// -- State --
	v.SetDefault("state.dir", "~/.deskpilot/state")
	v.SetDefault("state.pause_stale", "24h")
	v.SetDefault("state.event_log_file", "~/.deskpilot/events.jsonl")
	v.SetDefault("state.event_log_limit_mb", 50)

	// -- Cleanup --
	v.SetDefault("cleanup.max_age", "72h")
	v.SetDefault("cleanup.min_age", "5m")
	v.SetDefault("cleanup.interval", "15m")

	// -- Agent --
	v.SetDefault("agent.observations_per_second", 2.0)
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	cfg.expandPaths()
	return &cfg
}

// NewConfigFromViper creates a validated configuration from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	cfg, err := NewRawConfigFromViper(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// NewRawConfigFromViper unmarshals without validation, for utility commands
// that inspect state without driving a target.
func NewRawConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.expandPaths()
	return &cfg, nil
}

// expandPaths resolves "~" in every configured path so callers never depend
// on the process working directory.
func (c *Config) expandPaths() {
	for _, p := range []*string{
		&c.Capture.DebugDir,
		&c.Vision.TemplatesDir,
		&c.State.Dir,
		&c.State.EventLogFile,
	} {
		if expanded, err := homedir.Expand(*p); err == nil {
			*p = filepath.Clean(expanded)
		}
	}
}

// Validate checks the configuration for sane values. Malformed configuration
// is the one fault class that is allowed to stop the process.
func (c *Config) Validate() error {
	if c.Gate.MaxTotalPerMinute <= 0 {
		return fmt.Errorf("gate.max_total_per_minute must be a positive integer")
	}
	if c.Gate.MaxClicksPerMinute <= 0 || c.Gate.MaxKeysPerMinute <= 0 {
		return fmt.Errorf("gate per-category ceilings must be positive integers")
	}
	if c.Gate.DutyActive < 0 || c.Gate.DutyReleased < 0 {
		return fmt.Errorf("gate duty-cycle durations must not be negative")
	}
	if c.Vision.TemplateMatchThreshold < 0 || c.Vision.TemplateMatchThreshold > 1 {
		return fmt.Errorf("vision.template_match_threshold must be between 0.0 and 1.0")
	}
	for name, iou := range map[string]float64{
		"vision.nms_iou":              c.Vision.NMSIoU,
		"vision.template_contour_iou": c.Vision.TemplateContourIoU,
		"vision.contour_nms_iou":      c.Vision.ContourNMSIoU,
	} {
		if iou <= 0 || iou > 1 {
			return fmt.Errorf("%s must be in (0.0, 1.0]", name)
		}
	}
	if c.Executor.MaxAttempts <= 0 || c.Executor.MaxWalkSteps <= 0 {
		return fmt.Errorf("executor bounds must be positive integers")
	}
	if c.Target.TitleContains == "" && c.Target.ProcessName == "" {
		return fmt.Errorf("target.title_contains or target.process_name is required")
	}
	if c.Agent.ObservationsPerSecond <= 0 {
		return fmt.Errorf("agent.observations_per_second must be positive")
	}
	return nil
}
