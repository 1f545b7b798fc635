//go:build unix

package datasync

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestArchiver_UnreadableSource(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses directory permissions")
	}
	src := newDataDir(t)
	if err := os.Chmod(src, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(src, 0o700) })

	dest := t.TempDir()
	_, err := NewArchiver(src, dest, testLogger()).Archive(context.Background())
	if !errors.Is(err, os.ErrPermission) {
		t.Fatalf("Archive() = %v, want os.ErrPermission", err)
	}
	if entries, _ := os.ReadDir(dest); len(entries) != 0 {
		t.Errorf("backup dir contains %d entries, want none", len(entries))
	}
}

func TestCheckReadable(t *testing.T) {
	if err := checkReadable(t.TempDir()); err != nil {
		t.Errorf("checkReadable(tempdir) = %v", err)
	}
	if err := checkReadable(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("checkReadable(missing) = %v, want os.ErrNotExist", err)
	}
}
