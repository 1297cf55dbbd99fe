// Package apperr implements the error taxonomy used across the core: a
// single structured Error type tagged with a Category, carrying enough
// context for both a headless JSON stderr report and an interactive
// status line / modal.
package apperr

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Category classifies an error so callers can decide whether to retry,
// surface a remediation hint, or just log and move on.
type Category string

const (
	Validation   Category = "validation"
	NotFound     Category = "not_found"
	Conflict     Category = "conflict"
	Transport    Category = "transport"
	Unauthorized Category = "unauthorized"
	Forbidden    Category = "forbidden"
	Tool         Category = "tool"
	Internal     Category = "internal"
)

// Error is the structured error returned at every external boundary.
type Error struct {
	ErrorCode       string   `json:"error_code"`
	Category        Category `json:"category"`
	Message         string   `json:"message"`
	Context         string   `json:"context,omitempty"`
	Retryable       bool     `json:"retryable"`
	SuggestedAction string   `json:"suggested_action,omitempty"`
	CorrelationID   string   `json:"correlation_id"`

	wrapped error
}

func (e *Error) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Category, e.Message, e.Context)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.wrapped
}

// JSON renders the error as the stderr payload for headless invocations.
func (e *Error) JSON() []byte {
	data, err := json.Marshal(e)
	if err != nil {
		return []byte(fmt.Sprintf(`{"category":"internal","message":%q}`, e.Message))
	}
	return data
}

func retryableFor(category Category) bool {
	return category == Transport
}

// New creates an Error in the given category, minting a fresh correlation id.
func New(category Category, code, message string) *Error {
	return &Error{
		ErrorCode:     code,
		Category:      category,
		Message:       message,
		Retryable:     retryableFor(category),
		CorrelationID: uuid.NewString(),
	}
}

// Wrap attaches category/code/message context to an underlying error while
// keeping it reachable through errors.Unwrap.
func Wrap(category Category, code, message string, cause error) *Error {
	e := New(category, code, message)
	e.wrapped = cause
	if cause != nil {
		e.Context = cause.Error()
	}
	return e
}

// WithContext sets the Context field (e.g. "inputs.region", a step id).
func (e *Error) WithContext(context string) *Error {
	e.Context = context
	return e
}

// WithSuggestion sets a remediation hint shown to the operator.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.SuggestedAction = suggestion
	return e
}

// WithRetryable overrides the category default retryability.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// As reports whether err is (or wraps) an *Error, populating target.
func As(err error, target **Error) bool {
	return errors.As(err, target)
}

// CategoryOf extracts the Category of err, or Internal if err is not an
// *Error (or doesn't wrap one).
func CategoryOf(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return Internal
}

// IsRetryable reports whether err (if an *Error) is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// Validationf builds a Validation error with a path-style context, matching
// spec §7 ("surfaced with a path ... and a rule name").
func Validationf(context, rule, format string, args ...interface{}) *Error {
	e := New(Validation, rule, fmt.Sprintf(format, args...))
	e.Context = context
	return e
}

// NotFoundf builds a NotFound error for a named resource kind.
func NotFoundf(kind, name string) *Error {
	return New(NotFound, "not_found", fmt.Sprintf("%s %q not found", kind, name))
}
