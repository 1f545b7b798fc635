package cmd

import (
	"errors"

	"github.com/plexsphere/pgrefresh/internal/datasync"
	"github.com/plexsphere/pgrefresh/internal/service"
)

// Process exit codes.
const (
	ExitOK             = 0
	ExitFailure        = 1
	ExitInvalidDataDir = 2
	ExitUnknownAction  = 3
	ExitAmbiguousState = 4
	ExitCannotStop     = 5
	ExitCannotStart    = 6
	ExitCannotRestart  = 7
)

// exitCodes is checked in order; the first match wins.
var exitCodes = []struct {
	err  error
	code int
}{
	{datasync.ErrInvalidDataDir, ExitInvalidDataDir},
	{service.ErrUnknownAction, ExitUnknownAction},
	{service.ErrAmbiguousState, ExitAmbiguousState},
	{service.ErrCannotStop, ExitCannotStop},
	{service.ErrCannotStart, ExitCannotStart},
	{service.ErrCannotRestart, ExitCannotRestart},
}

// ExitCode maps an error returned by Execute to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	for _, ec := range exitCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return ExitFailure
}
