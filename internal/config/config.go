// Package config provides configuration loading for affectd.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (AFFECTD_SERVER_PORT, AFFECTD_LOGGING_LEVEL, ...)
//  2. YAML config file
//  3. Hardcoded defaults
//
// The crisis indicator table and the fusion/wellness weight tables are
// part of the config document. Weight invariants are re-validated on
// every load, so a hot reload can never swap in a table that breaks
// them.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/affectlab/affectd/internal/crisis"
	"github.com/affectlab/affectd/internal/emotion"
	"github.com/affectlab/affectd/internal/fusion"
	"github.com/affectlab/affectd/internal/wellness"
)

const (
	envPrefix         = "AFFECTD_"
	maxConfigFileSize = 1024 * 1024 // 1MB
)

// ErrInvalidConfig is returned for configuration that fails validation
// at load time. Nothing is validated mid-computation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full affectd configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Fusion    FusionConfig    `koanf:"fusion"`
	Wellness  WellnessConfig  `koanf:"wellness"`
	Crisis    CrisisConfig    `koanf:"crisis"`
	History   HistoryConfig   `koanf:"history"`
	Inference InferenceConfig `koanf:"inference"`
	Schedule  ScheduleConfig  `koanf:"schedule"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// FusionConfig carries the modality weight table.
type FusionConfig struct {
	Weights map[string]float64 `koanf:"weights"`
}

// WellnessConfig carries the category weight table.
type WellnessConfig struct {
	Weights map[string]float64 `koanf:"weights"`
}

// CrisisConfig carries the crisis indicator table.
type CrisisConfig struct {
	Indicators []crisis.Indicator `koanf:"indicators"`
}

// HistoryConfig bounds the per-subject history store.
type HistoryConfig struct {
	// WindowDays bounds the slice handed to the temporal analyzer.
	WindowDays int `koanf:"window_days"`
	// RetentionDays bounds how long records stay in the store at all.
	RetentionDays int `koanf:"retention_days"`
}

// InferenceConfig points at the external modality inference services.
type InferenceConfig struct {
	TextURL  string        `koanf:"text_url"`
	VoiceURL string        `koanf:"voice_url"`
	FaceURL  string        `koanf:"face_url"`
	Timeout  time.Duration `koanf:"timeout"`
}

// ScheduleConfig drives the periodic wellness recalculation.
type ScheduleConfig struct {
	// WellnessSpec is a cron spec; "off" disables the job.
	WellnessSpec string `koanf:"wellness_spec"`
}

// Load reads configuration from the YAML file at configPath (skipped if
// empty or absent), overrides with AFFECTD_* environment variables,
// applies defaults, and validates.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			content, err := readConfigFile(configPath)
			if err != nil {
				return nil, err
			}
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
		}
	}

	// Environment overrides: AFFECTD_SERVER_PORT -> server.port,
	// AFFECTD_LOGGING_LEVEL -> logging.level. Split on the first
	// underscore only so compound field names survive.
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// readConfigFile opens and reads the file through one descriptor,
// rejecting oversized files.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("%w: config file too large: %d bytes (max %d)", ErrInvalidConfig, info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8005
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Fusion.Weights == nil {
		cfg.Fusion.Weights = modalityWeightNames(fusion.DefaultWeights())
	}
	if cfg.Wellness.Weights == nil {
		cfg.Wellness.Weights = categoryWeightNames(wellness.DefaultWeights())
	}
	if cfg.Crisis.Indicators == nil {
		cfg.Crisis.Indicators = crisis.DefaultIndicators()
	}

	if cfg.History.WindowDays == 0 {
		cfg.History.WindowDays = 30
	}
	if cfg.History.RetentionDays == 0 {
		cfg.History.RetentionDays = 90
	}

	if cfg.Inference.TextURL == "" {
		cfg.Inference.TextURL = "http://localhost:8002"
	}
	if cfg.Inference.VoiceURL == "" {
		cfg.Inference.VoiceURL = "http://localhost:8003"
	}
	if cfg.Inference.FaceURL == "" {
		cfg.Inference.FaceURL = "http://localhost:8004"
	}
	if cfg.Inference.Timeout == 0 {
		cfg.Inference.Timeout = 10 * time.Second
	}

	if cfg.Schedule.WellnessSpec == "" {
		cfg.Schedule.WellnessSpec = "@hourly"
	}
}

// Validate checks the whole configuration, including the weight-sum
// invariants of the fusion and wellness tables and the shape of the
// crisis indicator table.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	if c.History.WindowDays < 1 {
		return fmt.Errorf("%w: history window_days must be positive", ErrInvalidConfig)
	}
	if c.History.RetentionDays < c.History.WindowDays {
		return fmt.Errorf("%w: history retention_days %d shorter than window_days %d",
			ErrInvalidConfig, c.History.RetentionDays, c.History.WindowDays)
	}

	if err := c.FusionWeights().Validate(); err != nil {
		return fmt.Errorf("%w: fusion: %v", ErrInvalidConfig, err)
	}
	if err := c.WellnessWeights().Validate(); err != nil {
		return fmt.Errorf("%w: wellness: %v", ErrInvalidConfig, err)
	}
	if _, err := crisis.NewDetector(c.Crisis.Indicators); err != nil {
		return fmt.Errorf("%w: crisis: %v", ErrInvalidConfig, err)
	}
	return nil
}

// FusionWeights returns the typed modality weight table.
func (c *Config) FusionWeights() fusion.Weights {
	w := make(fusion.Weights, len(c.Fusion.Weights))
	for name, weight := range c.Fusion.Weights {
		w[emotion.Modality(name)] = weight
	}
	return w
}

// WellnessWeights returns the typed category weight table.
func (c *Config) WellnessWeights() wellness.Weights {
	w := make(wellness.Weights, len(c.Wellness.Weights))
	for name, weight := range c.Wellness.Weights {
		w[wellness.Category(name)] = weight
	}
	return w
}

func modalityWeightNames(w fusion.Weights) map[string]float64 {
	out := make(map[string]float64, len(w))
	for modality, weight := range w {
		out[string(modality)] = weight
	}
	return out
}

func categoryWeightNames(w wellness.Weights) map[string]float64 {
	out := make(map[string]float64, len(w))
	for category, weight := range w {
		out[string(category)] = weight
	}
	return out
}
