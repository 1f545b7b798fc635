// Package cmd implements the pgrefresh CLI commands.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plexsphere/pgrefresh/internal/datasync"
	"github.com/plexsphere/pgrefresh/internal/metrics"
	"github.com/plexsphere/pgrefresh/internal/precheck"
	"github.com/plexsphere/pgrefresh/internal/refresh"
	"github.com/plexsphere/pgrefresh/internal/runner"
	"github.com/plexsphere/pgrefresh/internal/service"
)

var (
	cfgFile        string
	logLevel       string
	logFile        string
	noConsoleLog   bool
	noFileLog      bool
	remoteHost     string
	portNumber     int
	username       string
	promptPassword bool
	dataDir        string
	backup         bool
	backupDir      string
	pgBinDir       string
	serviceName    string
	reportTextfile string
)

// Build info set from main.
var (
	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

// SetVersionInfo sets the version info from build-time ldflags.
func SetVersionInfo(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	rootCmd.Version = buildVersion
	rootCmd.SetVersionTemplate(fmt.Sprintf("pgrefresh version {{.Version}}\ncommit: %s\nbuilt: %s\n", buildCommit, buildDate))
}

var rootCmd = &cobra.Command{
	Use:   "pgrefresh",
	Short: "pgrefresh refreshes a local PostgreSQL data directory from a source server",
	Long: "pgrefresh stops the local PostgreSQL service, optionally archives the old\n" +
		"data directory, replaces it with a fresh pg_basebackup of the source server\n" +
		"and starts the service again.",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runRefresh,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "optional YAML config file")
	pf.StringVar(&logLevel, "log-level", refresh.DefaultLogLevel, "log level (debug, info, warn, error)")
	pf.StringVarP(&logFile, "log-file", "l", refresh.DefaultLogFile, "append-only log file")
	pf.BoolVar(&noConsoleLog, "no-console-log", false, "do not log to stdout")
	pf.BoolVar(&noFileLog, "no-file-log", false, "do not log to the log file")
	pf.StringVarP(&pgBinDir, "pg-bin-dir", "B", service.DefaultBinDir, "directory holding the PostgreSQL binaries")
	pf.StringVarP(&serviceName, "service-name", "s", service.DefaultServiceName, "systemd unit of the local database")

	f := rootCmd.Flags()
	f.StringVarP(&remoteHost, "remote-host", "r", precheck.DefaultHost, "source server host")
	f.IntVarP(&portNumber, "port-number", "p", precheck.DefaultPort, "source server port")
	f.StringVarP(&username, "username", "U", precheck.DefaultUsername, "replication user on the source server")
	f.BoolVarP(&promptPassword, "password", "W", false, "prompt for the source server password")
	f.StringVarP(&dataDir, "data-dir", "D", datasync.DefaultDataDir, "local data directory to replace")
	f.BoolVarP(&backup, "backup", "m", false, "archive the old data directory before replacing it")
	f.StringVarP(&backupDir, "backup-dir", "A", datasync.DefaultBackupDir, "directory for archives of old data")
	f.StringVar(&reportTextfile, "report-textfile", "", "node_exporter textfile (.prom) to write the run report to")

	rootCmd.Version = buildVersion
	rootCmd.SetVersionTemplate(fmt.Sprintf("pgrefresh version {{.Version}}\ncommit: %s\nbuilt: %s\n", buildCommit, buildDate))
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return reportConfigError(cmd, err)
	}

	logger, closeLog, err := setupLogger(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeLog()

	logger.Info("starting pgrefresh",
		"version", buildVersion,
		"source", fmt.Sprintf("%s:%d", cfg.Source.Host, cfg.Source.Port),
		"data_dir", cfg.Sync.DataDir,
		"service", cfg.Service.Name,
	)

	var password string
	if cfg.PromptPassword {
		if password, err = readPassword(cmd.ErrOrStderr()); err != nil {
			logFailure(logger, "refresh failed", err)
			return err
		}
	}

	privileges, err := runner.DetectPrivileges()
	if err != nil {
		err = fmt.Errorf("pgrefresh: %w", err)
		logFailure(logger, "refresh failed", err)
		return err
	}
	if err := cfg.Sync.CheckPrivileges(privileges); err != nil {
		logFailure(logger, "refresh failed", err)
		return err
	}

	r := runner.NewExecRunner(privileges, logger)
	probe := service.NewPgIsReady(cfg.Service, r, logger)
	controller := service.NewController(cfg.Service, r, probe, logger)
	controller.SetInvoker(privileges.Username)
	checker := precheck.NewChecker(cfg.Source, password, logger)
	syncer := datasync.NewSyncer(cfg.Sync, cfg.SyncSource(password), r, logger)

	recorder := metrics.NewRecorder()
	orch := refresh.NewOrchestrator(checker, controller, syncer, recorder, logger)

	runErr := orch.Run(context.Background())
	recorder.Finish(ExitCode(runErr))

	if cfg.Metrics.Enabled() {
		if err := recorder.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Warn("failed to write run report", "path", cfg.Metrics.Textfile, "error", err)
		}
	}

	if runErr != nil {
		logFailure(logger, "refresh failed", runErr)
		return runErr
	}
	return nil
}

// loadConfig reads the optional config file and applies flag overrides. Only
// flags given on the command line override file values.
func loadConfig(cmd *cobra.Command) (*refresh.Config, error) {
	cfg := &refresh.Config{}
	if cfgFile != "" {
		parsed, err := refresh.ParseConfig(cfgFile)
		if err != nil {
			return nil, err
		}
		cfg = parsed
	}

	changed := cmd.Flags().Changed
	if changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if changed("log-file") {
		cfg.LogFile = logFile
	}
	if changed("no-console-log") {
		cfg.NoConsoleLog = noConsoleLog
	}
	if changed("no-file-log") {
		cfg.NoFileLog = noFileLog
	}
	if changed("pg-bin-dir") {
		cfg.Service.BinDir = pgBinDir
		cfg.Sync.BinDir = pgBinDir
	}
	if changed("service-name") {
		cfg.Service.Name = serviceName
	}
	if changed("remote-host") {
		cfg.Source.Host = remoteHost
	}
	if changed("port-number") {
		cfg.Source.Port = portNumber
	}
	if changed("username") {
		cfg.Source.Username = username
	}
	if changed("password") {
		cfg.PromptPassword = promptPassword
	}
	if changed("backup") {
		cfg.Sync.Backup = backup
	}
	if changed("backup-dir") {
		cfg.Sync.BackupDir = backupDir
	}
	if changed("report-textfile") {
		cfg.Metrics.Textfile = reportTextfile
	}

	cfg.ApplyDefaults()
	// An explicitly empty data directory must be rejected, not defaulted.
	if changed("data-dir") {
		cfg.Sync.DataDir = dataDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
