package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Listen != "127.0.0.1:7744" {
		t.Errorf("Listen = %s", cfg.Server.Listen)
	}
	if cfg.Collection.ActiveInterval.Duration != 5*time.Second {
		t.Errorf("ActiveInterval = %v", cfg.Collection.ActiveInterval.Duration)
	}
	if cfg.Collection.BackgroundInterval.Duration != 30*time.Second {
		t.Errorf("BackgroundInterval = %v", cfg.Collection.BackgroundInterval.Duration)
	}
	if cfg.Actuator.Mode != "dryrun" {
		t.Errorf("Mode = %s", cfg.Actuator.Mode)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  listen: "127.0.0.1:9900"
collection:
  active_interval: 2s
  background_interval: 1m
  top_processes: 10
reasoning:
  agent_timeout: 500ms
arbiter:
  min_confidence: 0.5
actuator:
  mode: exec
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Listen != "127.0.0.1:9900" {
		t.Errorf("Listen = %s", cfg.Server.Listen)
	}
	if cfg.Collection.ActiveInterval.Duration != 2*time.Second {
		t.Errorf("ActiveInterval = %v", cfg.Collection.ActiveInterval.Duration)
	}
	if cfg.Collection.BackgroundInterval.Duration != time.Minute {
		t.Errorf("BackgroundInterval = %v", cfg.Collection.BackgroundInterval.Duration)
	}
	if cfg.Reasoning.AgentTimeout.Duration != 500*time.Millisecond {
		t.Errorf("AgentTimeout = %v", cfg.Reasoning.AgentTimeout.Duration)
	}
	if cfg.Arbiter.MinConfidence != 0.5 {
		t.Errorf("MinConfidence = %f", cfg.Arbiter.MinConfidence)
	}
	if cfg.Actuator.Mode != "exec" {
		t.Errorf("Mode = %s", cfg.Actuator.Mode)
	}

	// Values the file does not mention keep their defaults.
	if cfg.Learning.Alpha != 0.2 {
		t.Errorf("Alpha = %f, want default", cfg.Learning.Alpha)
	}
	if cfg.Reasoning.MaxConsecutiveTimeouts != 3 {
		t.Errorf("MaxConsecutiveTimeouts = %d, want default", cfg.Reasoning.MaxConsecutiveTimeouts)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should not be an error: %v", err)
	}
	if cfg.Server.Listen != "127.0.0.1:7744" {
		t.Errorf("Listen = %s, want default", cfg.Server.Listen)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("invalid YAML should fail to load")
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("collection:\n  active_interval: soon\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("unparseable duration should fail to load")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TUNEWISE_LISTEN", "127.0.0.1:8811")
	t.Setenv("TUNEWISE_LOG_LEVEL", "debug")
	t.Setenv("TUNEWISE_ACTUATOR_MODE", "exec")
	t.Setenv("TUNEWISE_MIN_CONFIDENCE", "0.7")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Listen != "127.0.0.1:8811" {
		t.Errorf("Listen = %s", cfg.Server.Listen)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %s", cfg.Logging.Level)
	}
	if cfg.Actuator.Mode != "exec" {
		t.Errorf("Mode = %s", cfg.Actuator.Mode)
	}
	if cfg.Arbiter.MinConfidence != 0.7 {
		t.Errorf("MinConfidence = %f", cfg.Arbiter.MinConfidence)
	}
}

func TestEnvOverridesBeatFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  listen: \"127.0.0.1:9900\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TUNEWISE_LISTEN", "127.0.0.1:8811")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Listen != "127.0.0.1:8811" {
		t.Errorf("Listen = %s, env should beat file", cfg.Server.Listen)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"empty listen", func(c *Config) { c.Server.Listen = "" }, true},
		{"zero active interval", func(c *Config) { c.Collection.ActiveInterval.Duration = 0 }, true},
		{"background shorter than active", func(c *Config) {
			c.Collection.BackgroundInterval.Duration = time.Second
		}, true},
		{"zero agent timeout", func(c *Config) { c.Reasoning.AgentTimeout.Duration = 0 }, true},
		{"zero strikes", func(c *Config) { c.Reasoning.MaxConsecutiveTimeouts = 0 }, true},
		{"confidence above one", func(c *Config) { c.Arbiter.MinConfidence = 1.5 }, true},
		{"negative confidence", func(c *Config) { c.Arbiter.MinConfidence = -0.1 }, true},
		{"zero alpha", func(c *Config) { c.Learning.Alpha = 0 }, true},
		{"bad actuator mode", func(c *Config) { c.Actuator.Mode = "yolo" }, true},
		{"exec mode", func(c *Config) { c.Actuator.Mode = "exec" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
