package datasync

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// CheckResult holds the outcome of an archive checksum check.
type CheckResult struct {
	// Path is the archive that was verified.
	Path string
	// Expected is the hex-encoded BLAKE2b-512 checksum from the sidecar file.
	Expected string
	// Actual is the hex-encoded BLAKE2b-512 checksum that was computed.
	Actual string
	// OK is true when Expected matches Actual.
	OK bool
}

// HashFile computes the BLAKE2b-512 checksum of the file at path using
// streaming I/O.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("datasync: open %s: %w", path, err)
	}
	defer f.Close()

	h, err := blake2b.New512(nil)
	if err != nil {
		return "", fmt.Errorf("datasync: init checksum: %w", err)
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("datasync: hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyArchive re-reads the archive at path and compares it against the
// checksum recorded in path+ChecksumSuffix.
func VerifyArchive(path string) (CheckResult, error) {
	line, err := os.ReadFile(path + ChecksumSuffix)
	if err != nil {
		return CheckResult{}, fmt.Errorf("datasync: read checksum: %w", err)
	}
	// b2sum format: "<hex>  <name>"
	fields := strings.Fields(string(line))
	if len(fields) == 0 {
		return CheckResult{}, fmt.Errorf("datasync: empty checksum file %s", path+ChecksumSuffix)
	}

	actual, err := HashFile(path)
	if err != nil {
		return CheckResult{}, err
	}

	return CheckResult{
		Path:     path,
		Expected: fields[0],
		Actual:   actual,
		OK:       actual == fields[0],
	}, nil
}
