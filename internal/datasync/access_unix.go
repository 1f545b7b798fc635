//go:build unix

package datasync

import "golang.org/x/sys/unix"

// checkReadable reports whether the effective user may list and read dir.
func checkReadable(dir string) error {
	return unix.Faccessat(unix.AT_FDCWD, dir, unix.R_OK|unix.X_OK, unix.AT_EACCESS)
}
