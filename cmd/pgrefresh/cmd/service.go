package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/plexsphere/pgrefresh/internal/runner"
	"github.com/plexsphere/pgrefresh/internal/service"
)

var serviceCmd = &cobra.Command{
	Use:   "service <status|stop|start|restart>",
	Short: "Drive the local database service",
	Long: "Run a single service action against the local database service\n" +
		"without touching the data directory. stop escalates to terminating\n" +
		"the data owner's processes; start and status restart a unit whose\n" +
		"manager and readiness probe disagree.",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{service.ActionStatus, service.ActionStop, service.ActionStart, service.ActionRestart},
	RunE:      runService,
}

func init() {
	rootCmd.AddCommand(serviceCmd)
}

func runService(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return reportConfigError(cmd, err)
	}

	logger, closeLog, err := setupLogger(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeLog()

	privileges, err := runner.DetectPrivileges()
	if err != nil {
		err = fmt.Errorf("pgrefresh: %w", err)
		logFailure(logger, "service action failed", err)
		return err
	}
	r := runner.NewExecRunner(privileges, logger)
	controller := service.NewController(cfg.Service, r, service.NewPgIsReady(cfg.Service, r, logger), logger)
	controller.SetInvoker(privileges.Username)

	return doServiceAction(context.Background(), controller, args[0], cmd, logger)
}

// serviceActor runs a named service action.
type serviceActor interface {
	Do(ctx context.Context, action string) (service.ActionResult, error)
}

func doServiceAction(ctx context.Context, actor serviceActor, action string, cmd *cobra.Command, logger *slog.Logger) error {
	res, err := actor.Do(ctx, action)
	if err != nil {
		err = fmt.Errorf("pgrefresh service %s: %w", action, err)
		logFailure(logger, "service action failed", err)
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case res.Action == service.ActionStatus:
		fmt.Fprintln(out, res.Status)
	case res.Outcome == service.SuccessWithEscalation:
		fmt.Fprintf(out, "%s: ok (escalated)\n", res.Action)
	default:
		fmt.Fprintf(out, "%s: ok\n", res.Action)
	}
	return nil
}
