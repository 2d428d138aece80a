package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Mode:          "batch",
			QueueCapacity: 256,
			BenignLabel:   "BENIGN",
			Thresholds:    ThresholdConfig{HighConfidence: 0.5, Watch: 0.25},
		},
		Bundle: BundleConfig{Path: "bundle"},
		Source: SourceConfig{Batch: BatchSourceConfig{Path: "flows.csv"}},
	}
}

func TestValidateAcceptsBatchConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("Valid config rejected: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown mode", func(c *Config) { c.Engine.Mode = "replay" }, "mode"},
		{"zero queue", func(c *Config) { c.Engine.QueueCapacity = 0 }, "queue_capacity"},
		{"high confidence above one", func(c *Config) { c.Engine.Thresholds.HighConfidence = 1.5 }, "high_confidence"},
		{"zero high confidence", func(c *Config) { c.Engine.Thresholds.HighConfidence = 0 }, "high_confidence"},
		{"watch above high", func(c *Config) { c.Engine.Thresholds.Watch = 0.6 }, "watch"},
		{"negative watch", func(c *Config) { c.Engine.Thresholds.Watch = -0.1 }, "watch"},
		{"missing benign label", func(c *Config) { c.Engine.BenignLabel = "" }, "benign_label"},
		{"missing bundle path", func(c *Config) { c.Bundle.Path = "" }, "bundle"},
		{"missing batch path", func(c *Config) { c.Source.Batch.Path = "" }, "batch source"},
		{"bad grace period", func(c *Config) { c.Engine.GracePeriod = "whenever" }, "grace_period"},
		{"alerter without interval", func(c *Config) { c.Alerter.Enabled = true }, "check_interval"},
	}

	for _, tc := range cases {
		cfg := validConfig()
		tc.mutate(cfg)
		err := cfg.Validate()
		if err == nil {
			t.Errorf("%s: expected a validation error", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: error %q does not mention %q", tc.name, err, tc.want)
		}
	}
}

func TestValidateLiveModeRequirements(t *testing.T) {
	cfg := validConfig()
	cfg.Engine.Mode = "live"
	cfg.Engine.WindowInterval = "1m"
	cfg.Source.Live = LiveSourceConfig{
		NATSURL:      "nats://localhost:4222",
		Subject:      "flows.records",
		PollInterval: "500ms",
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Valid live config rejected: %v", err)
	}

	cfg.Source.Live.NATSURL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Expected an error for live mode without a NATS URL")
	}
}

func TestLoadConfig(t *testing.T) {
	content := `
engine:
  mode: "batch"
  queue_capacity: 128
  benign_label: "BENIGN"
  thresholds:
    high_confidence: 0.6
    watch: 0.3
bundle:
  path: "bundle"
source:
  batch:
    path: "flows.csv"
report:
  writers:
    - type: "text"
      enabled: true
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Engine.QueueCapacity != 128 {
		t.Errorf("Expected queue capacity 128, got %d", cfg.Engine.QueueCapacity)
	}
	if cfg.Engine.Thresholds.HighConfidence != 0.6 {
		t.Errorf("Expected high confidence 0.6, got %v", cfg.Engine.Thresholds.HighConfidence)
	}
	if len(cfg.Report.Writers) != 1 || cfg.Report.Writers[0].Type != "text" {
		t.Errorf("Unexpected writer definitions: %+v", cfg.Report.Writers)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Expected an error for a missing config file")
	}
}
