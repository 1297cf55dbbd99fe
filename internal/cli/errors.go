package cli

import (
	"errors"
	"fmt"

	"github.com/giantswarm/bench/internal/apperr"
)

// Exit codes for non-interactive invocations: 0 on success, 2 on usage
// error, 1 on any other runtime error.
const (
	ExitSuccess    = 0
	ExitRuntime    = 1
	ExitUsageError = 2
)

// ExitCodeFor maps a command's terminal error to the process exit code.
// nil maps to ExitSuccess; apperr.Validation maps to ExitUsageError;
// every other category (including errors with no apperr.Category at all)
// maps to ExitRuntime.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if apperr.CategoryOf(err) == apperr.Validation {
		return ExitUsageError
	}
	return ExitRuntime
}

// FormatError renders err for display on stderr, unwrapping an *apperr.Error
// to include its category and code.
func FormatError(err error) string {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return fmt.Sprintf("error: %s (%s/%s)", appErr.Message, appErr.Category, appErr.ErrorCode)
	}
	return fmt.Sprintf("error: %s", err.Error())
}
