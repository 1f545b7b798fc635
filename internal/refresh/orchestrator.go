package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/plexsphere/pgrefresh/internal/metrics"
	"github.com/plexsphere/pgrefresh/internal/service"
)

// Stage names, also used as metric labels.
const (
	StagePrecheck = "precheck"
	StageStop     = "stop"
	StageBackup   = "backup"
	StageSync     = "sync"
	StageStart    = "start"
	StageStatus   = "status"
)

// Prechecker verifies the source server is reachable.
type Prechecker interface {
	Check(ctx context.Context) error
}

// ServiceController drives the local database service.
type ServiceController interface {
	Status(ctx context.Context) (service.CompositeStatus, error)
	EnsureStopped(ctx context.Context) (service.Outcome, error)
	EnsureStarted(ctx context.Context) (service.Outcome, error)
}

// DataSyncer replaces the local data directory.
type DataSyncer interface {
	BackupEnabled() bool
	Backup(ctx context.Context) (string, error)
	Replace(ctx context.Context) error
}

// Orchestrator runs the refresh stages strictly in order. It never retries a
// stage; all escalation lives in the ServiceController.
type Orchestrator struct {
	precheck Prechecker
	service  ServiceController
	sync     DataSyncer
	recorder *metrics.Recorder
	logger   *slog.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(p Prechecker, svc ServiceController, sync DataSyncer, recorder *metrics.Recorder, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		precheck: p,
		service:  svc,
		sync:     sync,
		recorder: recorder,
		logger:   logger.With("component", "refresh"),
	}
}

// Run performs the refresh. Any stage failure aborts the run and is
// returned. If the optional backup fails, nothing has been deleted yet, so
// the service is started again before the backup error is returned.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("refresh started")

	if err := o.stage(StagePrecheck, func() error {
		return o.precheck.Check(ctx)
	}); err != nil {
		return err
	}

	if err := o.stage(StageStop, func() error {
		outcome, err := o.service.EnsureStopped(ctx)
		o.recorder.SetEscalated(StageStop, outcome == service.SuccessWithEscalation)
		return err
	}); err != nil {
		return err
	}

	if o.sync.BackupEnabled() {
		if err := o.stage(StageBackup, func() error {
			_, err := o.sync.Backup(ctx)
			return err
		}); err != nil {
			o.logger.Info("old data kept, starting service again")
			return errors.Join(err, o.start(ctx))
		}
	}

	if err := o.stage(StageSync, func() error {
		return o.sync.Replace(ctx)
	}); err != nil {
		return err
	}

	if err := o.start(ctx); err != nil {
		return err
	}

	var status service.CompositeStatus
	if err := o.stage(StageStatus, func() error {
		var err error
		status, err = o.service.Status(ctx)
		return err
	}); err != nil {
		return err
	}

	o.logger.Info("refresh succeeded", "status", status)
	return nil
}

func (o *Orchestrator) start(ctx context.Context) error {
	return o.stage(StageStart, func() error {
		outcome, err := o.service.EnsureStarted(ctx)
		o.recorder.SetEscalated(StageStart, outcome == service.SuccessWithEscalation)
		return err
	})
}

// commandOutputter is implemented by errors that carry captured command output.
type commandOutputter interface {
	CommandOutput() string
}

// CommandOutput returns the command output carried anywhere in err's chain,
// or "" when there is none.
func CommandOutput(err error) string {
	var co commandOutputter
	if errors.As(err, &co) {
		return co.CommandOutput()
	}
	return ""
}

// stage runs fn, records its duration and logs a failure with any captured
// command output.
func (o *Orchestrator) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	o.recorder.ObserveStage(name, time.Since(start))
	if err == nil {
		return nil
	}

	attrs := []any{"stage", name, "error", err}
	if out := CommandOutput(err); out != "" {
		attrs = append(attrs, "output", out)
	}
	o.logger.Error("stage failed", attrs...)
	return fmt.Errorf("refresh: %s: %w", name, err)
}
