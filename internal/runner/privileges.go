package runner

import (
	"fmt"
	"os"
	"os/user"
	"strings"
)

// Privileges describes the identity the process runs as. It decides when a
// command must be wrapped in sudo.
type Privileges struct {
	// EUID is the effective user ID of the process.
	EUID int

	// Username is the name of the effective user.
	Username string
}

// DetectPrivileges returns the identity of the running process.
func DetectPrivileges() (Privileges, error) {
	euid := os.Geteuid()
	u, err := user.LookupId(fmt.Sprint(euid))
	if err != nil {
		return Privileges{}, fmt.Errorf("runner: lookup user %d: %w", euid, err)
	}
	return Privileges{EUID: euid, Username: u.Username}, nil
}

// IsRoot reports whether the process runs with root privileges.
func (p Privileges) IsRoot() bool {
	return p.EUID == 0
}

// Wrap returns the argv that executes cmd with the privileges it asks for.
// Commands are prefixed with sudo when they must run as another user or as
// root. Env keys are passed through sudo's --preserve-env list because sudo
// resets the environment by default.
func (p Privileges) Wrap(cmd Command) []string {
	var sudo []string
	switch {
	case cmd.User != "" && cmd.User != p.Username:
		sudo = []string{"sudo", "-n"}
		if keys := envKeys(cmd.Env); len(keys) > 0 {
			sudo = append(sudo, "--preserve-env="+strings.Join(keys, ","))
		}
		sudo = append(sudo, "-u", cmd.User)
	case cmd.Privileged && !p.IsRoot():
		sudo = []string{"sudo", "-n"}
		if keys := envKeys(cmd.Env); len(keys) > 0 {
			sudo = append(sudo, "--preserve-env="+strings.Join(keys, ","))
		}
	}

	argv := make([]string, 0, len(sudo)+1+len(cmd.Args))
	argv = append(argv, sudo...)
	argv = append(argv, cmd.Name)
	argv = append(argv, cmd.Args...)
	return argv
}

func envKeys(env []string) []string {
	keys := make([]string, 0, len(env))
	for _, kv := range env {
		if k, _, ok := strings.Cut(kv, "="); ok && k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
