package service

import (
	"errors"
	"fmt"
)

var (
	// ErrAmbiguousState means the manager reports the unit failed while the
	// data engine still accepts connections. It is never resolved automatically.
	ErrAmbiguousState = errors.New("service: manager reports failed but data engine is serving")

	// ErrCannotStop means neither the graceful nor the forceful stop took the
	// data engine down.
	ErrCannotStop = errors.New("service: cannot stop")

	// ErrCannotStart means the engine did not become ready after a start.
	ErrCannotStart = errors.New("service: cannot start")

	// ErrCannotRestart means the engine did not become ready after a restart.
	ErrCannotRestart = errors.New("service: cannot restart")

	// ErrUnknownAction is returned by Controller.Do for unsupported actions.
	ErrUnknownAction = errors.New("service: unknown action")
)

// TransitionError carries the failed operation and the captured output of
// the last command it ran.
type TransitionError struct {
	Op      string
	Service string
	Output  string
	Err     error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Service)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// CommandOutput returns the captured output of the last command.
func (e *TransitionError) CommandOutput() string {
	return e.Output
}
