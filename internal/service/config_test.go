package service

import (
	"testing"
	"time"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.Name != DefaultServiceName {
		t.Errorf("Name = %q, want %q", cfg.Name, DefaultServiceName)
	}
	if cfg.BinDir != DefaultBinDir {
		t.Errorf("BinDir = %q, want %q", cfg.BinDir, DefaultBinDir)
	}
	if cfg.DataOwner != DefaultDataOwner {
		t.Errorf("DataOwner = %q, want %q", cfg.DataOwner, DefaultDataOwner)
	}
	if cfg.CommandTimeout != DefaultCommandTimeout {
		t.Errorf("CommandTimeout = %v, want %v", cfg.CommandTimeout, DefaultCommandTimeout)
	}
	if cfg.ProbeTimeout != DefaultProbeTimeout {
		t.Errorf("ProbeTimeout = %v, want %v", cfg.ProbeTimeout, DefaultProbeTimeout)
	}
}

func TestConfig_ApplyDefaults_PreservesValues(t *testing.T) {
	cfg := Config{Name: "postgresql", CommandTimeout: 5 * time.Minute}
	cfg.ApplyDefaults()
	if cfg.Name != "postgresql" {
		t.Errorf("Name = %q, want postgresql", cfg.Name)
	}
	if cfg.CommandTimeout != 5*time.Minute {
		t.Errorf("CommandTimeout = %v, want 5m", cfg.CommandTimeout)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"empty name", func(c *Config) { c.Name = "" }, true},
		{"empty owner", func(c *Config) { c.DataOwner = "" }, true},
		{"short command timeout", func(c *Config) { c.CommandTimeout = time.Millisecond }, true},
		{"short probe timeout", func(c *Config) { c.ProbeTimeout = time.Millisecond }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			cfg.ApplyDefaults()
			tt.modify(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
