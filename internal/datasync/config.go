// Package datasync replaces the local data directory with a fresh copy of
// the source server, optionally archiving the old contents first.
package datasync

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/plexsphere/pgrefresh/internal/runner"
)

// DefaultDataDir is the default local data directory.
const DefaultDataDir = "/var/lib/pgsql/16/data"

// DefaultBackupDir is the default directory for archives of old data.
const DefaultBackupDir = "/var/lib/pgsql/16/backups"

// ErrInvalidDataDir means the data directory is empty or a path that must
// never be wiped.
var ErrInvalidDataDir = errors.New("datasync: invalid data directory")

// Config holds the configuration for the data sync.
// Config is passed as a constructor argument; this package does no config file I/O.
type Config struct {
	// DataDir is the local data directory whose contents are replaced.
	// Default: /var/lib/pgsql/16/data
	DataDir string `yaml:"data_dir"`

	// BinDir is the directory containing pg_basebackup.
	BinDir string `yaml:"bin_dir"`

	// DataOwner is the OS user that runs the wipe and pg_basebackup.
	DataOwner string `yaml:"data_owner"`

	// Backup archives the old data before it is deleted.
	Backup bool `yaml:"backup"`

	// BackupDir is where archives are written when Backup is set.
	// Default: /var/lib/pgsql/16/backups
	BackupDir string `yaml:"backup_dir"`

	// Timeout bounds the wipe and pg_basebackup each. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout"`
}

// ApplyDefaults sets default values for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.BackupDir == "" {
		c.BackupDir = DefaultBackupDir
	}
}

// Validate checks that required fields are set and values are acceptable.
func (c *Config) Validate() error {
	if err := ValidateDataDir(c.DataDir); err != nil {
		return err
	}
	if c.BinDir == "" {
		return errors.New("datasync: config: BinDir is required")
	}
	if c.DataOwner == "" {
		return errors.New("datasync: config: DataOwner is required")
	}
	if c.Backup && c.BackupDir == "" {
		return errors.New("datasync: config: BackupDir is required when Backup is set")
	}
	if c.Timeout < 0 {
		return errors.New("datasync: config: Timeout must not be negative")
	}
	return nil
}

// ValidateDataDir rejects data directories that must never be wiped.
func ValidateDataDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("%w: empty", ErrInvalidDataDir)
	}
	switch filepath.Clean(dir) {
	case "/", ".", "..":
		return fmt.Errorf("%w: %q", ErrInvalidDataDir, dir)
	}
	return nil
}

// CheckPrivileges verifies that p may take the backup. The archive is
// written by this process, which therefore has to read the data directory
// itself: it must run as root or as the data owner.
func (c *Config) CheckPrivileges(p runner.Privileges) error {
	if !c.Backup || p.IsRoot() || p.Username == c.DataOwner {
		return nil
	}
	return fmt.Errorf("datasync: config: Backup needs root or %s to read %s, running as %s",
		c.DataOwner, c.DataDir, p.Username)
}
