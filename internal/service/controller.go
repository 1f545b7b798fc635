package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/plexsphere/pgrefresh/internal/runner"
)

// Action names accepted by Controller.Do.
const (
	ActionStatus  = "status"
	ActionStop    = "stop"
	ActionStart   = "start"
	ActionRestart = "restart"
)

// ActionResult is what Controller.Do reports for a completed action.
type ActionResult struct {
	Action  string
	Status  CompositeStatus
	Outcome Outcome
}

// Controller drives the database service between stopped and running,
// using the process manager for transitions and the readiness probe as the
// ground truth for liveness. It keeps no state between calls.
type Controller struct {
	cfg     Config
	systemd systemd
	probe   ReadinessProbe
	invoker string
	logger  *slog.Logger
}

// NewController creates a Controller. Config defaults are applied automatically.
func NewController(cfg Config, r runner.Runner, probe ReadinessProbe, logger *slog.Logger) *Controller {
	cfg.ApplyDefaults()
	return &Controller{
		cfg:     cfg,
		systemd: systemd{cfg: cfg, runner: r},
		probe:   probe,
		logger:  logger.With("component", "service", "service", cfg.Name),
	}
}

// SetInvoker records the user the process runs as. Escalating a stop to
// terminating the data owner's processes is refused when that user is the
// data owner, because it would terminate this process as well.
func (c *Controller) SetInvoker(username string) {
	c.invoker = username
}

// observation is a reading plus the manager output it was derived from.
type observation struct {
	Reading
	managerOutput string
}

// read queries both signals once. It never triggers a transition.
func (c *Controller) read(ctx context.Context) observation {
	state, out := c.systemd.state(ctx)
	return observation{
		Reading:       Reading{Manager: state, Probe: c.probe.Check(ctx)},
		managerOutput: out,
	}
}

// ambiguous builds the fatal error for a failed unit whose engine still serves.
func (c *Controller) ambiguous(op string, obs observation) error {
	return &TransitionError{
		Op:      op,
		Service: c.cfg.Name,
		Output:  obs.managerOutput,
		Err:     ErrAmbiguousState,
	}
}

// Status returns the composite status of the service.
//
// A FailedAndDown reading triggers exactly one Restart; the status read after
// that restart is returned instead. A FailedButServing reading returns
// ErrAmbiguousState and the caller must abort.
func (c *Controller) Status(ctx context.Context) (CompositeStatus, error) {
	obs := c.read(ctx)
	status := obs.Status()
	c.logger.Debug("status read",
		"manager", obs.Manager,
		"probe", obs.Probe,
		"status", status,
	)

	switch status {
	case FailedButServing:
		return status, c.ambiguous("status", obs)
	case FailedAndDown:
		c.logger.Warn("unit failed and engine not responding, restarting")
		if _, err := c.Restart(ctx); err != nil {
			return status, err
		}
		healed := c.read(ctx)
		if healed.Status() == FailedButServing {
			return healed.Status(), c.ambiguous("status", healed)
		}
		return healed.Status(), nil
	}
	return status, nil
}

// EnsureStopped takes the data engine down. The stop command is always
// issued; when the probe still answers afterwards, every process of the data
// owner is terminated once. If the engine still answers after that,
// ErrCannotStop is returned and the service is left as it is.
func (c *Controller) EnsureStopped(ctx context.Context) (Outcome, error) {
	status, err := c.Status(ctx)
	if err != nil {
		return Success, err
	}
	if status == IndeterminateStatus {
		c.logger.Warn("service status indeterminate, stopping anyway")
	}

	c.logger.Info("stopping service", "status", status)
	if res := c.systemd.stop(ctx); !res.OK {
		c.logger.Warn("graceful stop reported failure",
			"output", res.Output,
			"error", res.Err,
		)
	}

	if c.probe.Check(ctx) == ProbeNotReady {
		c.logger.Info("service stopped")
		return Success, nil
	}

	if c.invoker == c.cfg.DataOwner {
		c.logger.Error("engine still responding after graceful stop, not terminating processes of the invoking user",
			"owner", c.cfg.DataOwner,
		)
		return Success, &TransitionError{
			Op:      ActionStop,
			Service: c.cfg.Name,
			Err:     fmt.Errorf("%w: pkill -u %s would terminate pgrefresh itself", ErrCannotStop, c.cfg.DataOwner),
		}
	}

	c.logger.Warn("engine still responding after graceful stop, terminating processes",
		"owner", c.cfg.DataOwner,
	)
	res := c.systemd.kill(ctx)

	if c.probe.Check(ctx) == ProbeNotReady {
		c.logger.Warn("service stopped by terminating processes")
		return SuccessWithEscalation, nil
	}

	return Success, &TransitionError{
		Op:      ActionStop,
		Service: c.cfg.Name,
		Output:  res.Output,
		Err:     ErrCannotStop,
	}
}

// EnsureStarted brings the service up. It reads both signals directly and
// never self-heals through Status; disagreements are resolved by a single
// Restart.
func (c *Controller) EnsureStarted(ctx context.Context) (Outcome, error) {
	obs := c.read(ctx)

	switch status := obs.Status(); status {
	case RunningConsistent:
		c.logger.Warn("service already started")
		return Success, nil

	case StoppedConsistent:
		c.logger.Info("starting service")
		res := c.systemd.start(ctx)
		if c.probe.Check(ctx) == ProbeReady {
			c.logger.Info("service started")
			return Success, nil
		}
		return Success, &TransitionError{
			Op:      ActionStart,
			Service: c.cfg.Name,
			Output:  res.Output,
			Err:     ErrCannotStart,
		}

	case FailedButServing:
		return Success, c.ambiguous(ActionStart, obs)

	case RunningInconsistent:
		c.logger.Warn("service active but engine not responding, restarting")
	case StoppedInconsistent:
		c.logger.Warn("service stopped but engine responding, restarting")
	case FailedAndDown:
		c.logger.Warn("unit failed and engine not responding, restarting")
	default:
		c.logger.Warn("service status indeterminate, restarting",
			"manager", obs.Manager,
			"probe", obs.Probe,
		)
	}

	if _, err := c.Restart(ctx); err != nil {
		return Success, err
	}
	return SuccessWithEscalation, nil
}

// Restart restarts the unit and checks the probe once. It is terminal: it
// never calls Status or EnsureStarted.
func (c *Controller) Restart(ctx context.Context) (Outcome, error) {
	c.logger.Info("restarting service")
	res := c.systemd.restart(ctx)
	if c.probe.Check(ctx) == ProbeReady {
		c.logger.Info("service restarted")
		return Success, nil
	}
	return Success, &TransitionError{
		Op:      ActionRestart,
		Service: c.cfg.Name,
		Output:  res.Output,
		Err:     ErrCannotRestart,
	}
}

// Do runs the named action.
func (c *Controller) Do(ctx context.Context, action string) (ActionResult, error) {
	result := ActionResult{Action: action}
	var err error
	switch action {
	case ActionStatus:
		result.Status, err = c.Status(ctx)
	case ActionStop:
		result.Outcome, err = c.EnsureStopped(ctx)
	case ActionStart:
		result.Outcome, err = c.EnsureStarted(ctx)
	case ActionRestart:
		result.Outcome, err = c.Restart(ctx)
	default:
		return result, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	return result, err
}
