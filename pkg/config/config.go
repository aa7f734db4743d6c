// Package config loads and validates the hmcctl configuration file. The file
// is YAML; every field can also be overridden from the CLI flags, which take
// precedence over file values.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the top-level hmcctl configuration.
type Config struct {
	HMC     HMCConfig     `yaml:"hmc" validate:"required"`
	Engine  EngineConfig  `yaml:"engine"`
	History HistoryConfig `yaml:"history"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// HMCConfig describes how to reach the management console.
type HMCConfig struct {
	Host     string `yaml:"host" validate:"required"`
	User     string `yaml:"user" validate:"required"`
	Password string `yaml:"password"`

	// SSHPort is the command-line interface port.
	SSHPort int `yaml:"ssh_port" validate:"gte=0,lte=65535"`

	// RESTPort is the REST/XML interface port.
	RESTPort int `yaml:"rest_port" validate:"gte=0,lte=65535"`

	// PrivateKeyPath switches the command-line transport to key
	// authentication when set.
	PrivateKeyPath string `yaml:"private_key_path"`

	// KnownHostsPath pins the console host key. Empty disables checking.
	KnownHostsPath string `yaml:"known_hosts_path"`

	// StrictHostKeyChecking requires KnownHostsPath to be set.
	StrictHostKeyChecking bool `yaml:"strict_host_key_checking"`

	// InsecureSkipVerify disables REST TLS verification. Consoles commonly
	// run with self-signed certificates.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`

	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
	CommandTimeout    time.Duration `yaml:"command_timeout"`
}

// EngineConfig tunes the reconciliation engine.
type EngineConfig struct {
	// PollInterval is the fixed convergence poll interval.
	PollInterval time.Duration `yaml:"poll_interval"`

	// DefaultTimeoutMins is the convergence deadline applied when an
	// invocation does not carry its own. The engine rejects values below
	// ten.
	DefaultTimeoutMins int `yaml:"default_timeout_mins" validate:"eq=0|gte=10"`
}

// HistoryConfig configures the invocation history store.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"required_if=Enabled true"`

	// RetentionDays prunes rows older than this on startup. Zero keeps
	// everything.
	RetentionDays int `yaml:"retention_days" validate:"gte=0"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error fatal"`
	Format string `yaml:"format" validate:"omitempty,oneof=console json"`
	Output string `yaml:"output"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	ListenAddress string `yaml:"listen_address" validate:"required_if=Enabled true"`
}

// TracingConfig configures trace export.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter" validate:"omitempty,oneof=otlp stdout none"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate" validate:"gte=0,lte=1"`
}

// Default returns the configuration applied before the file and flags.
func Default() *Config {
	return &Config{
		HMC: HMCConfig{
			SSHPort:           22,
			RESTPort:          12443,
			ConnectionTimeout: 30 * time.Second,
			CommandTimeout:    10 * time.Minute,
		},
		Engine: EngineConfig{
			PollInterval:       30 * time.Second,
			DefaultTimeoutMins: 60,
		},
		History: HistoryConfig{
			Enabled: false,
			Path:    "hmcctl-history.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			ListenAddress: ":9090",
		},
		Tracing: TracingConfig{
			Exporter:     "stdout",
			SamplingRate: 1.0,
		},
	}
}

// Load reads the YAML file at path over the defaults and validates the
// result. An empty path returns validated defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for structural errors.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.HMC.StrictHostKeyChecking && c.HMC.KnownHostsPath == "" {
		return fmt.Errorf("invalid configuration: strict host key checking requires known_hosts_path")
	}
	if c.HMC.Password == "" && c.HMC.PrivateKeyPath == "" {
		return fmt.Errorf("invalid configuration: either password or private_key_path is required")
	}
	return nil
}
