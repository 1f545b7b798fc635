// Package precheck verifies that the remote source server is reachable
// before anything local is touched.
package precheck

import (
	"errors"
	"time"
)

// DefaultHost is the default source server host.
const DefaultHost = "db-src"

// DefaultPort is the default source server port.
const DefaultPort = 5432

// DefaultUsername is the default replication user.
const DefaultUsername = "replication"

// DefaultDatabase is the database the connectivity check connects to.
const DefaultDatabase = "postgres"

// DefaultConnectTimeout bounds the connectivity check.
const DefaultConnectTimeout = 10 * time.Second

// Config describes how to reach the source server.
type Config struct {
	// Host is the source server host.
	// Default: db-src
	Host string `yaml:"host"`

	// Port is the source server port.
	// Default: 5432
	Port int `yaml:"port"`

	// Username is the role used for the check and for pg_basebackup.
	// Default: replication
	Username string `yaml:"username"`

	// Database is the database to connect to for the check.
	// Default: postgres
	Database string `yaml:"database"`

	// PassFile is an optional .pgpass file. When empty the libpq defaults
	// (PGPASSFILE, ~/.pgpass) apply.
	PassFile string `yaml:"passfile"`

	// DataOwner is the OS user pg_basebackup runs as. When PassFile is empty
	// and no password was prompted, the check reads this user's ~/.pgpass so
	// it authenticates with the same credentials as the sync.
	DataOwner string `yaml:"-"`

	// ConnectTimeout bounds the whole check.
	// Default: 10s
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// ApplyDefaults sets default values for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Username == "" {
		c.Username = DefaultUsername
	}
	if c.Database == "" {
		c.Database = DefaultDatabase
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
}

// Validate checks that required fields are set and values are acceptable.
func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New("precheck: config: Host is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return errors.New("precheck: config: Port must be between 1 and 65535")
	}
	if c.Username == "" {
		return errors.New("precheck: config: Username is required")
	}
	if c.ConnectTimeout < time.Second {
		return errors.New("precheck: config: ConnectTimeout must be at least 1s")
	}
	return nil
}
