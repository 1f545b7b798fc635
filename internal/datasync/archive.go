package datasync

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/crypto/blake2b"
)

// archiveTimeFormat matches the timestamp in old_backup_<ts>.tar.gz names.
const archiveTimeFormat = "20060102150405"

// ChecksumSuffix is appended to an archive path for its b2sum-compatible
// BLAKE2b-512 checksum file.
const ChecksumSuffix = ".b2"

// Archiver writes a gzip-compressed tar of a directory. The archive only
// appears under its final name once it is complete and synced.
type Archiver struct {
	srcDir  string
	destDir string
	now     func() time.Time
	logger  *slog.Logger
}

// NewArchiver creates an Archiver for srcDir writing into destDir.
func NewArchiver(srcDir, destDir string, logger *slog.Logger) *Archiver {
	return &Archiver{
		srcDir:  srcDir,
		destDir: destDir,
		now:     time.Now,
		logger:  logger.With("component", "archive"),
	}
}

// Archive writes old_backup_<timestamp>.tar.gz plus its checksum file and
// returns the archive path. Entries are stored relative to the parent of
// srcDir, so the archive unpacks into a directory named like srcDir.
func (a *Archiver) Archive(ctx context.Context) (string, error) {
	if err := checkReadable(a.srcDir); err != nil {
		return "", fmt.Errorf("datasync: data directory %s is not readable by this process: %w", a.srcDir, err)
	}
	if err := os.MkdirAll(a.destDir, 0o700); err != nil {
		return "", fmt.Errorf("datasync: create backup directory %s: %w", a.destDir, err)
	}

	name := "old_backup_" + a.now().Format(archiveTimeFormat) + ".tar.gz"
	path := filepath.Join(a.destDir, name)

	pf, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o600))
	if err != nil {
		return "", fmt.Errorf("datasync: create archive %s: %w", path, err)
	}
	defer pf.Cleanup()

	sum, err := blake2b.New512(nil)
	if err != nil {
		return "", fmt.Errorf("datasync: init checksum: %w", err)
	}

	gz := gzip.NewWriter(io.MultiWriter(pf, sum))
	tw := tar.NewWriter(gz)

	files, err := a.writeTree(ctx, tw)
	if err != nil {
		return "", err
	}
	if err := tw.Close(); err != nil {
		return "", fmt.Errorf("datasync: finish tar stream: %w", err)
	}
	if err := gz.Close(); err != nil {
		return "", fmt.Errorf("datasync: finish gzip stream: %w", err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return "", fmt.Errorf("datasync: commit archive %s: %w", path, err)
	}

	line := fmt.Sprintf("%x  %s\n", sum.Sum(nil), name)
	if err := renameio.WriteFile(path+ChecksumSuffix, []byte(line), 0o600); err != nil {
		return "", fmt.Errorf("datasync: write checksum %s: %w", path+ChecksumSuffix, err)
	}

	a.logger.Info("old data archived", "path", path, "files", files)
	return path, nil
}

// writeTree streams srcDir into tw and returns the number of regular files written.
func (a *Archiver) writeTree(ctx context.Context, tw *tar.Writer) (int, error) {
	base := filepath.Dir(filepath.Clean(a.srcDir))
	files := 0

	err := filepath.WalkDir(a.srcDir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		var link string
		switch {
		case info.Mode()&fs.ModeSymlink != 0:
			if link, err = os.Readlink(p); err != nil {
				return err
			}
		case info.Mode().IsRegular(), info.IsDir():
		default:
			a.logger.Debug("skipping special file", "path", p, "mode", info.Mode())
			return nil
		}

		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if info.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}

		if !info.Mode().IsRegular() {
			return nil
		}
		files++
		return copyFile(tw, p)
	})
	if err != nil {
		return files, fmt.Errorf("datasync: archive %s: %w", a.srcDir, err)
	}
	return files, nil
}

func copyFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}
