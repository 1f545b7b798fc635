// Package refresh sequences a data directory refresh: connectivity check,
// stop, sync, start and a final status report.
package refresh

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/plexsphere/pgrefresh/internal/datasync"
	"github.com/plexsphere/pgrefresh/internal/metrics"
	"github.com/plexsphere/pgrefresh/internal/precheck"
	"github.com/plexsphere/pgrefresh/internal/service"
)

const (
	// DefaultLogLevel is the default log level.
	DefaultLogLevel = "info"

	// DefaultLogFile is the default append-only log file.
	DefaultLogFile = "pgrefresh.log"
)

// Config is the top-level configuration for a refresh run. It aggregates
// all component configurations and is populated from an optional YAML file
// via ParseConfig and from command-line flags. It is immutable once the run
// starts.
type Config struct {
	// LogLevel is the log level: "debug", "info", "warn", "error".
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFile is the append-only log file.
	// Default: pgrefresh.log
	LogFile string `yaml:"log_file"`

	// NoConsoleLog suppresses logging to stdout.
	NoConsoleLog bool `yaml:"no_console_log"`

	// NoFileLog suppresses logging to LogFile.
	NoFileLog bool `yaml:"no_file_log"`

	// PromptPassword asks for the source password on the terminal instead
	// of relying on a passfile.
	PromptPassword bool `yaml:"prompt_password"`

	Source  precheck.Config `yaml:"source"`
	Service service.Config  `yaml:"service"`
	Sync    datasync.Config `yaml:"sync"`
	Metrics metrics.Config  `yaml:"metrics"`
}

// ApplyDefaults sets default values for zero-valued fields. The binary
// directory and data owner are shared by the service and sync components;
// sync inherits them from the service section unless set explicitly. The
// precheck learns the data owner so it can use the same passfile.
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFile == "" {
		c.LogFile = DefaultLogFile
	}
	c.Source.ApplyDefaults()
	c.Service.ApplyDefaults()
	if c.Sync.BinDir == "" {
		c.Sync.BinDir = c.Service.BinDir
	}
	if c.Sync.DataOwner == "" {
		c.Sync.DataOwner = c.Service.DataOwner
	}
	c.Sync.ApplyDefaults()
	if c.Source.DataOwner == "" {
		c.Source.DataOwner = c.Service.DataOwner
	}
}

// Validate checks that required fields are set and values are acceptable.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("refresh: config: invalid log level %q", c.LogLevel)
	}
	if err := c.Sync.Validate(); err != nil {
		return err
	}
	if err := c.Source.Validate(); err != nil {
		return err
	}
	if err := c.Service.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	return nil
}

// SyncSource returns the pg_basebackup source derived from the config.
func (c *Config) SyncSource(password string) datasync.Source {
	return datasync.Source{
		Host:     c.Source.Host,
		Port:     c.Source.Port,
		Username: c.Source.Username,
		Password: password,
	}
}

// ParseConfig reads a YAML configuration file and returns a Config.
// It applies defaults and validates the configuration.
func ParseConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("refresh: config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("refresh: config: parse %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
