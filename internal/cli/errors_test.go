package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/giantswarm/bench/internal/apperr"
)

func TestExitCodeForNilIsSuccess(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCodeFor(nil))
}

func TestExitCodeForValidationIsUsageError(t *testing.T) {
	err := apperr.New(apperr.Validation, "bad_input", "input is invalid")
	assert.Equal(t, ExitUsageError, ExitCodeFor(err))
}

func TestExitCodeForOtherCategoriesIsRuntimeError(t *testing.T) {
	err := apperr.New(apperr.Transport, "conn_refused", "could not reach aggregator")
	assert.Equal(t, ExitRuntime, ExitCodeFor(err))
}

func TestExitCodeForPlainErrorIsRuntimeError(t *testing.T) {
	assert.Equal(t, ExitRuntime, ExitCodeFor(errors.New("boom")))
}

func TestFormatErrorIncludesCategoryAndCode(t *testing.T) {
	err := apperr.New(apperr.NotFound, "step_missing", "step not found")
	assert.Contains(t, FormatError(err), "not_found/step_missing")
}

func TestFormatErrorFallsBackForPlainError(t *testing.T) {
	assert.Equal(t, "error: boom", FormatError(errors.New("boom")))
}
