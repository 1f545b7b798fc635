package datasync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/plexsphere/pgrefresh/internal/runner"
)

var (
	// ErrBackupFailed means the old data could not be archived. Nothing has
	// been deleted when it is returned.
	ErrBackupFailed = errors.New("datasync: backup of old data failed")

	// ErrSyncFailed means the wipe or the base backup failed.
	ErrSyncFailed = errors.New("datasync: sync failed")
)

// Source identifies the server pg_basebackup copies from.
type Source struct {
	Host     string
	Port     int
	Username string
	// Password is handed to pg_basebackup through PGPASSWORD when set.
	Password string
}

// StepError carries the captured output of a failed sync command.
type StepError struct {
	Step   string
	Output string
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Step)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// CommandOutput returns the captured output of the failed command.
func (e *StepError) CommandOutput() string {
	return e.Output
}

// Syncer replaces the contents of the data directory. It must only run while
// the data engine is confirmed down.
type Syncer struct {
	cfg      Config
	source   Source
	runner   runner.Runner
	archiver *Archiver
	logger   *slog.Logger
}

// NewSyncer creates a Syncer. Config defaults are applied automatically.
func NewSyncer(cfg Config, source Source, r runner.Runner, logger *slog.Logger) *Syncer {
	cfg.ApplyDefaults()
	return &Syncer{
		cfg:      cfg,
		source:   source,
		runner:   r,
		archiver: NewArchiver(cfg.DataDir, cfg.BackupDir, logger),
		logger:   logger.With("component", "datasync"),
	}
}

// BackupEnabled reports whether Backup archives the old data.
func (s *Syncer) BackupEnabled() bool {
	return s.cfg.Backup
}

// Backup archives the current data directory. It returns the archive path.
func (s *Syncer) Backup(ctx context.Context) (string, error) {
	s.logger.Info("archiving old data", "data_dir", s.cfg.DataDir, "backup_dir", s.cfg.BackupDir)
	path, err := s.archiver.Archive(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBackupFailed, err)
	}

	// The old data is deleted next; the archive must read back intact.
	check, err := VerifyArchive(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBackupFailed, err)
	}
	if !check.OK {
		return "", fmt.Errorf("%w: checksum mismatch for %s: expected %s, got %s",
			ErrBackupFailed, path, check.Expected, check.Actual)
	}
	s.logger.Info("archive verified", "path", path)
	return path, nil
}

// Replace deletes the contents of the data directory and copies the source
// server into it with pg_basebackup. The directory itself is kept so its
// ownership and mode survive.
func (s *Syncer) Replace(ctx context.Context) error {
	if err := ValidateDataDir(s.cfg.DataDir); err != nil {
		return err
	}

	s.logger.Info("deleting old data", "data_dir", s.cfg.DataDir)
	if err := s.run(ctx, "wipe", runner.Command{
		Name:    "find",
		Args:    []string{s.cfg.DataDir, "-mindepth", "1", "-delete"},
		User:    s.cfg.DataOwner,
		Timeout: s.cfg.Timeout,
	}); err != nil {
		return err
	}

	s.logger.Info("running pg_basebackup",
		"host", s.source.Host,
		"port", s.source.Port,
		"username", s.source.Username,
	)
	if err := s.run(ctx, "pg_basebackup", s.baseBackupCommand()); err != nil {
		return err
	}
	s.logger.Info("data directory replaced", "data_dir", s.cfg.DataDir)
	return nil
}

func (s *Syncer) baseBackupCommand() runner.Command {
	cmd := runner.Command{
		Name: filepath.Join(s.cfg.BinDir, "pg_basebackup"),
		Args: []string{
			"-X", "stream",
			"-h", s.source.Host,
			"-p", strconv.Itoa(s.source.Port),
			"-U", s.source.Username,
			"-w",
			"-D", s.cfg.DataDir,
		},
		User:    s.cfg.DataOwner,
		Timeout: s.cfg.Timeout,
	}
	if s.source.Password != "" {
		cmd.Env = []string{"PGPASSWORD=" + s.source.Password}
	}
	return cmd
}

func (s *Syncer) run(ctx context.Context, step string, cmd runner.Command) error {
	res := s.runner.Run(ctx, cmd)
	if res.OK {
		return nil
	}
	err := ErrSyncFailed
	if res.Err != nil {
		err = fmt.Errorf("%w: %w", ErrSyncFailed, res.Err)
	}
	return &StepError{Step: step, Output: res.Output, Err: err}
}
