// Package config handles configuration loading from YAML files and
// environment variables. Precedence: environment variables > config file >
// defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a wrapper around time.Duration that supports YAML
// unmarshaling from human-readable strings like "5s", "2m".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		parsed, err := time.ParseDuration(value.Value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value.Value, err)
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("unsupported duration format: %v", value.Kind)
	}
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config holds all daemon configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Collection CollectionConfig `yaml:"collection"`
	Reasoning  ReasoningConfig  `yaml:"reasoning"`
	Arbiter    ArbiterConfig    `yaml:"arbiter"`
	Learning   LearningConfig   `yaml:"learning"`
	Actuator   ActuatorConfig   `yaml:"actuator"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds control-plane API settings.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// StorageConfig holds SQLite persistence settings.
type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

// CatalogConfig holds recipe catalog settings.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// CollectionConfig holds snapshot collection settings. The loop ticks at
// ActiveInterval while the host window has focus and BackgroundInterval
// otherwise; the focus signal comes from outside the core.
type CollectionConfig struct {
	ActiveInterval     Duration `yaml:"active_interval"`
	BackgroundInterval Duration `yaml:"background_interval"`
	TopProcesses       int      `yaml:"top_processes"`
}

// ReasoningConfig bounds agent reasoning rounds.
type ReasoningConfig struct {
	AgentTimeout Duration `yaml:"agent_timeout"`
	// MaxConsecutiveTimeouts is the number of back-to-back timeouts after
	// which an agent is forced into the error state.
	MaxConsecutiveTimeouts int `yaml:"max_consecutive_timeouts"`
}

// ArbiterConfig holds arbitration thresholds.
type ArbiterConfig struct {
	MinConfidence float64 `yaml:"min_confidence"`
}

// LearningConfig holds feedback-learning parameters.
type LearningConfig struct {
	// Alpha is the EMA smoothing factor applied to success rates.
	Alpha float64 `yaml:"alpha"`
	// Delta is the base feedback signal magnitude.
	Delta float64 `yaml:"delta"`
}

// ActuatorConfig selects the actuator backend.
type ActuatorConfig struct {
	// Mode is "dryrun" or "exec".
	Mode string `yaml:"mode"`
	// StateDir is where the exec actuator keeps its config-value state.
	StateDir string `yaml:"state_dir"`
	// Timeout bounds each actuator call.
	Timeout Duration `yaml:"timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".tunewise")
	return &Config{
		Server: ServerConfig{
			Listen: "127.0.0.1:7744",
		},
		Storage: StorageConfig{
			DBPath: filepath.Join(dataDir, "tunewise.db"),
		},
		Catalog: CatalogConfig{
			Path: filepath.Join(dataDir, "catalog.yaml"),
		},
		Collection: CollectionConfig{
			ActiveInterval:     Duration{5 * time.Second},
			BackgroundInterval: Duration{30 * time.Second},
			TopProcesses:       40,
		},
		Reasoning: ReasoningConfig{
			AgentTimeout:           Duration{2 * time.Second},
			MaxConsecutiveTimeouts: 3,
		},
		Arbiter: ArbiterConfig{
			MinConfidence: 0.3,
		},
		Learning: LearningConfig{
			Alpha: 0.2,
			Delta: 1.0,
		},
		Actuator: ActuatorConfig{
			Mode:     "dryrun",
			StateDir: filepath.Join(dataDir, "state"),
			Timeout:  Duration{5 * time.Second},
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// Load reads configuration from the given path, applying defaults for
// missing values and environment overrides on top. A missing file is not
// an error; defaults are used.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides overlays TUNEWISE_* environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TUNEWISE_LISTEN"); v != "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv("TUNEWISE_DB_PATH"); v != "" {
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("TUNEWISE_CATALOG"); v != "" {
		cfg.Catalog.Path = v
	}
	if v := os.Getenv("TUNEWISE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TUNEWISE_ACTUATOR_MODE"); v != "" {
		cfg.Actuator.Mode = v
	}
	if v := os.Getenv("TUNEWISE_MIN_CONFIDENCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Arbiter.MinConfidence = f
		}
	}
}

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen must not be empty")
	}
	if c.Collection.ActiveInterval.Duration <= 0 {
		return fmt.Errorf("collection.active_interval must be positive")
	}
	if c.Collection.BackgroundInterval.Duration < c.Collection.ActiveInterval.Duration {
		return fmt.Errorf("collection.background_interval must be >= active_interval")
	}
	if c.Reasoning.AgentTimeout.Duration <= 0 {
		return fmt.Errorf("reasoning.agent_timeout must be positive")
	}
	if c.Reasoning.MaxConsecutiveTimeouts < 1 {
		return fmt.Errorf("reasoning.max_consecutive_timeouts must be >= 1")
	}
	if c.Arbiter.MinConfidence < 0 || c.Arbiter.MinConfidence > 1 {
		return fmt.Errorf("arbiter.min_confidence must be in [0,1]")
	}
	if c.Learning.Alpha <= 0 || c.Learning.Alpha > 1 {
		return fmt.Errorf("learning.alpha must be in (0,1]")
	}
	if c.Learning.Delta <= 0 || c.Learning.Delta > 1 {
		return fmt.Errorf("learning.delta must be in (0,1]")
	}
	switch strings.ToLower(c.Actuator.Mode) {
	case "dryrun", "exec":
	default:
		return fmt.Errorf("actuator.mode must be \"dryrun\" or \"exec\", got %q", c.Actuator.Mode)
	}
	return nil
}
