package service

import (
	"context"
	"strings"

	"github.com/plexsphere/pgrefresh/internal/runner"
)

// Markers matched against `systemctl status` output.
const (
	markerActive   = "Active: active (running)"
	markerInactive = "Active: inactive (dead)"
	markerFailed   = "Active: failed"
)

// ParseManagerState derives a ManagerState from `systemctl status` output.
func ParseManagerState(output string) ManagerState {
	switch {
	case strings.Contains(output, markerActive):
		return ManagerActive
	case strings.Contains(output, markerInactive):
		return ManagerInactive
	case strings.Contains(output, markerFailed):
		return ManagerFailed
	default:
		return ManagerUnknown
	}
}

// systemd builds the commands the controller issues against the unit.
type systemd struct {
	cfg    Config
	runner runner.Runner
}

// state queries the unit. systemctl status exits non-zero for stopped and
// failed units, so only the output is interpreted.
func (s systemd) state(ctx context.Context) (ManagerState, string) {
	res := s.runner.Run(ctx, runner.Command{
		Name:    "systemctl",
		Args:    []string{"status", "--no-pager", s.cfg.Name},
		Env:     []string{"LC_ALL=C"},
		Timeout: s.cfg.CommandTimeout,
	})
	return ParseManagerState(res.Output), res.Output
}

func (s systemd) stop(ctx context.Context) runner.Result {
	return s.unitAction(ctx, "stop")
}

func (s systemd) start(ctx context.Context) runner.Result {
	return s.unitAction(ctx, "start")
}

func (s systemd) restart(ctx context.Context) runner.Result {
	return s.unitAction(ctx, "restart")
}

// kill terminates every process of the data owner, bypassing the manager.
func (s systemd) kill(ctx context.Context) runner.Result {
	return s.runner.Run(ctx, runner.Command{
		Name:       "pkill",
		Args:       []string{"-u", s.cfg.DataOwner},
		Privileged: true,
		Timeout:    s.cfg.CommandTimeout,
	})
}

func (s systemd) unitAction(ctx context.Context, verb string) runner.Result {
	return s.runner.Run(ctx, runner.Command{
		Name:       "systemctl",
		Args:       []string{verb, s.cfg.Name},
		Privileged: true,
		Timeout:    s.cfg.CommandTimeout,
	})
}
