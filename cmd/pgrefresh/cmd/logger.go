package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/plexsphere/pgrefresh/internal/refresh"
)

// setupLogger builds the process logger. Records go to console and to the
// append-only log file unless either is suppressed. The returned function
// closes the log file.
func setupLogger(cfg *refresh.Config, console io.Writer) (*slog.Logger, func(), error) {
	var writers []io.Writer
	closeFn := func() {}

	if !cfg.NoConsoleLog {
		writers = append(writers, console)
	}
	if !cfg.NoFileLog {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
		if err != nil {
			return nil, nil, fmt.Errorf("pgrefresh: open log file: %w", err)
		}
		writers = append(writers, f)
		closeFn = func() { _ = f.Close() }
	}

	var out io.Writer = io.Discard
	switch len(writers) {
	case 0:
	case 1:
		out = writers[0]
	default:
		out = io.MultiWriter(writers...)
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)})
	return slog.New(handler), closeFn, nil
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// logFailure logs a fatal error with the exit code it maps to and any
// command output it carries.
func logFailure(logger *slog.Logger, msg string, err error) {
	attrs := []any{"exit_code", ExitCode(err), "error", err}
	if out := refresh.CommandOutput(err); out != "" {
		attrs = append(attrs, "output", out)
	}
	logger.Error(msg, attrs...)
}

// reportConfigError logs an unusable configuration through a logger built
// from the logging flags alone and returns err.
func reportConfigError(cmd *cobra.Command, err error) error {
	fallback := &refresh.Config{
		LogLevel:     refresh.DefaultLogLevel,
		LogFile:      logFile,
		NoConsoleLog: noConsoleLog,
		NoFileLog:    noFileLog,
	}
	logger, closeLog, lerr := setupLogger(fallback, cmd.OutOrStdout())
	if lerr != nil {
		return err
	}
	defer closeLog()
	logFailure(logger, "invalid configuration", err)
	return err
}
