package cmd

import (
	"errors"

	"github.com/veracity-dev/ess/internal/esserr"
	"github.com/veracity-dev/ess/internal/registry"
)

// exitCode maps an error to the fixed CLI exit codes from spec §6:
// 0 success, 2 invalid arguments, 3 project not registered,
// 4 backend unavailable, 5 validation failure.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, registry.ErrNotRegistered) {
		return 3
	}
	return esserr.ExitCode(err)
}

// exitMessage renders err the way every other CLI surface does:
// redacted, with the error code appended when one is present.
func exitMessage(err error) string {
	if errors.Is(err, registry.ErrNotRegistered) {
		return esserr.Redact(err.Error())
	}
	return esserr.FormatForCLI(err)
}
