package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/plexsphere/pgrefresh/internal/runner"
)

// ReadinessProbe reports whether the data engine accepts connections.
type ReadinessProbe interface {
	Check(ctx context.Context) ProbeState
}

// ParseProbeOutput maps pg_isready output to a ProbeState.
func ParseProbeOutput(output string) ProbeState {
	switch {
	case strings.Contains(output, "accepting connections"):
		return ProbeReady
	case strings.Contains(output, "no response"):
		return ProbeNotReady
	default:
		return ProbeError
	}
}

// PgIsReady probes the local engine with the pg_isready utility.
type PgIsReady struct {
	cfg    Config
	runner runner.Runner
	logger *slog.Logger
}

// NewPgIsReady creates a probe that runs pg_isready from cfg.BinDir.
func NewPgIsReady(cfg Config, r runner.Runner, logger *slog.Logger) *PgIsReady {
	cfg.ApplyDefaults()
	return &PgIsReady{
		cfg:    cfg,
		runner: r,
		logger: logger.With("component", "probe"),
	}
}

// Check runs pg_isready once. pg_isready exits non-zero when the engine is
// down, so only the output decides the state.
func (p *PgIsReady) Check(ctx context.Context) ProbeState {
	res := p.runner.Run(ctx, runner.Command{
		Name:    filepath.Join(p.cfg.BinDir, "pg_isready"),
		Timeout: p.cfg.ProbeTimeout,
	})
	state := ParseProbeOutput(res.Output)
	if state == ProbeError {
		p.logger.Warn("readiness probe gave no usable answer",
			"output", res.Output,
			"error", res.Err,
		)
		return state
	}
	p.logger.Debug("readiness probe", "state", state, "output", res.Output)
	return state
}
