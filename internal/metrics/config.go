// Package metrics records the outcome of a refresh run for the node_exporter
// textfile collector.
package metrics

import (
	"errors"
	"path/filepath"
	"strings"
)

// Config holds the configuration for the run report.
type Config struct {
	// Textfile is the .prom file written after every run. Empty disables
	// the report.
	Textfile string `yaml:"textfile"`
}

// Enabled reports whether a textfile is written.
func (c *Config) Enabled() bool {
	return c.Textfile != ""
}

// Validate checks that configuration values are acceptable.
func (c *Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if !strings.HasSuffix(c.Textfile, ".prom") {
		return errors.New("metrics: config: Textfile must end in .prom")
	}
	if filepath.Base(c.Textfile) == ".prom" {
		return errors.New("metrics: config: Textfile needs a file name")
	}
	return nil
}
