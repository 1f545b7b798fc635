// Package service reconciles the process manager's view of the database
// service with the readiness probe and drives the service between states.
package service

import (
	"errors"
	"time"
)

// DefaultServiceName is the default systemd unit name.
const DefaultServiceName = "postgresql-16"

// DefaultBinDir is the default directory holding the PostgreSQL client binaries.
const DefaultBinDir = "/usr/pgsql-16/bin"

// DefaultDataOwner is the default OS user owning the data engine processes.
const DefaultDataOwner = "postgres"

// DefaultCommandTimeout bounds systemctl and pkill invocations.
const DefaultCommandTimeout = 2 * time.Minute

// DefaultProbeTimeout bounds a single pg_isready invocation.
const DefaultProbeTimeout = 30 * time.Second

// Config holds the configuration for the service controller.
// Config is passed as a constructor argument; this package does no config file I/O.
type Config struct {
	// Name is the systemd unit name.
	// Default: postgresql-16
	Name string `yaml:"name"`

	// BinDir is the directory containing pg_isready.
	// Default: /usr/pgsql-16/bin
	BinDir string `yaml:"bin_dir"`

	// DataOwner is the OS user whose processes are terminated when a
	// graceful stop does not take the engine down.
	// Default: postgres
	DataOwner string `yaml:"data_owner"`

	// CommandTimeout bounds each systemctl and pkill call.
	// Default: 2m
	CommandTimeout time.Duration `yaml:"command_timeout"`

	// ProbeTimeout bounds each readiness probe.
	// Default: 30s
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
}

// ApplyDefaults sets default values for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = DefaultServiceName
	}
	if c.BinDir == "" {
		c.BinDir = DefaultBinDir
	}
	if c.DataOwner == "" {
		c.DataOwner = DefaultDataOwner
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = DefaultCommandTimeout
	}
	if c.ProbeTimeout == 0 {
		c.ProbeTimeout = DefaultProbeTimeout
	}
}

// Validate checks that required fields are set and values are acceptable.
func (c *Config) Validate() error {
	if c.Name == "" {
		return errors.New("service: config: Name is required")
	}
	if c.BinDir == "" {
		return errors.New("service: config: BinDir is required")
	}
	if c.DataOwner == "" {
		return errors.New("service: config: DataOwner is required")
	}
	if c.CommandTimeout < time.Second {
		return errors.New("service: config: CommandTimeout must be at least 1s")
	}
	if c.ProbeTimeout < time.Second {
		return errors.New("service: config: ProbeTimeout must be at least 1s")
	}
	return nil
}
