package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ThresholdConfig holds the probability cutoffs used by the threat evaluator.
type ThresholdConfig struct {
	HighConfidence float64 `yaml:"high_confidence"`
	Watch          float64 `yaml:"watch"`
}

// EngineConfig holds the settings for the classification pipeline itself.
type EngineConfig struct {
	Mode           string          `yaml:"mode"` // "live" or "batch"
	QueueCapacity  int             `yaml:"queue_capacity"`
	WindowInterval string          `yaml:"window_interval"`
	GracePeriod    string          `yaml:"grace_period"`
	BenignLabel    string          `yaml:"benign_label"`
	Thresholds     ThresholdConfig `yaml:"thresholds"`
}

// BundleConfig points at the directory holding the trained model artifacts.
type BundleConfig struct {
	Path string `yaml:"path"`
}

// BatchSourceConfig configures the stored-records flow source.
type BatchSourceConfig struct {
	Path string `yaml:"path"`
}

// LiveSourceConfig configures the NATS-fed flow source.
type LiveSourceConfig struct {
	NATSURL      string `yaml:"nats_url"`
	Subject      string `yaml:"subject"`
	PollInterval string `yaml:"poll_interval"`
	MaxRetries   int    `yaml:"max_retries"`
	RetryBackoff string `yaml:"retry_backoff"`
}

// SourceConfig holds both flow source variants; Engine.Mode selects one.
type SourceConfig struct {
	Batch BatchSourceConfig `yaml:"batch"`
	Live  LiveSourceConfig  `yaml:"live"`
}

// ClickHouseConfig holds the connection settings for a ClickHouse database.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// FileWriterConfig configures the on-disk report writer.
type FileWriterConfig struct {
	RootPath string `yaml:"root_path"`
}

// WriterDef defines a single report writer instance.
type WriterDef struct {
	Type       string           `yaml:"type"` // "text", "file" or "clickhouse"
	Enabled    bool             `yaml:"enabled"`
	File       FileWriterConfig `yaml:"file"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

// ReportConfig holds the report writer definitions.
type ReportConfig struct {
	Writers []WriterDef `yaml:"writers"`
}

// AlerterRule triggers when a window contains at least MinCount verdicts at
// the given threat level.
type AlerterRule struct {
	ThreatLevel string `yaml:"threat_level"`
	MinCount    uint64 `yaml:"min_count"`
}

// AlerterConfig holds the alerter settings.
type AlerterConfig struct {
	Enabled       bool          `yaml:"enabled"`
	CheckInterval string        `yaml:"check_interval"`
	Rules         []AlerterRule `yaml:"rules"`
}

// SMTPConfig holds the email notification settings.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// ProbeConfig holds the settings for the packet-capture probe.
type ProbeConfig struct {
	Interface     string `yaml:"interface"`
	PcapFile      string `yaml:"pcap_file"`
	NATSURL       string `yaml:"nats_url"`
	Subject       string `yaml:"subject"`
	FlushInterval string `yaml:"flush_interval"`
	FlowTimeout   string `yaml:"flow_timeout"`
	NumShards     uint32 `yaml:"num_shards"`
}

// APIConfig holds the settings for the HTTP API server.
type APIConfig struct {
	ListenAddr string           `yaml:"listen_addr"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Bundle  BundleConfig  `yaml:"bundle"`
	Source  SourceConfig  `yaml:"source"`
	Report  ReportConfig  `yaml:"report"`
	Alerter AlerterConfig `yaml:"alerter"`
	SMTP    SMTPConfig    `yaml:"smtp"`
	Probe   ProbeConfig   `yaml:"probe"`
	API     APIConfig     `yaml:"api"`
}

// LoadConfig reads the configuration from a YAML file and returns a Config
// struct. The returned config has already passed Validate.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for inconsistencies that would leave
// the pipeline unable to run. Failures here are fatal at startup.
func (c *Config) Validate() error {
	switch c.Engine.Mode {
	case "live", "batch":
	default:
		return fmt.Errorf("engine mode must be 'live' or 'batch', got %q", c.Engine.Mode)
	}

	if c.Engine.QueueCapacity <= 0 {
		return fmt.Errorf("engine queue_capacity must be positive, got %d", c.Engine.QueueCapacity)
	}

	high := c.Engine.Thresholds.HighConfidence
	watch := c.Engine.Thresholds.Watch
	if high <= 0 || high > 1 {
		return fmt.Errorf("thresholds.high_confidence must be in (0, 1], got %v", high)
	}
	if watch < 0 || watch >= high {
		return fmt.Errorf("thresholds.watch must be in [0, high_confidence), got %v", watch)
	}

	if c.Engine.BenignLabel == "" {
		return fmt.Errorf("engine benign_label must be set")
	}

	if c.Bundle.Path == "" {
		return fmt.Errorf("bundle path must be set")
	}

	if c.Engine.Mode == "live" {
		if _, err := time.ParseDuration(c.Engine.WindowInterval); err != nil {
			return fmt.Errorf("invalid engine window_interval: %w", err)
		}
		if _, err := time.ParseDuration(c.Source.Live.PollInterval); err != nil {
			return fmt.Errorf("invalid live source poll_interval: %w", err)
		}
		if c.Source.Live.NATSURL == "" || c.Source.Live.Subject == "" {
			return fmt.Errorf("live source requires nats_url and subject")
		}
	} else if c.Source.Batch.Path == "" {
		return fmt.Errorf("batch source requires a records path")
	}

	if c.Engine.GracePeriod != "" {
		if _, err := time.ParseDuration(c.Engine.GracePeriod); err != nil {
			return fmt.Errorf("invalid engine grace_period: %w", err)
		}
	}

	if c.Alerter.Enabled {
		if _, err := time.ParseDuration(c.Alerter.CheckInterval); err != nil {
			return fmt.Errorf("invalid alerter check_interval: %w", err)
		}
	}

	return nil
}
