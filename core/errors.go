package core

import "github.com/pkg/errors"

// Business-rule failures shared by the approval workflows. Domain packages
// add their own entity-specific errors (not-found, budget guards).
var (
	ErrForbidden        = errors.New("permission denied")
	ErrInvalidAmount    = errors.New("granted amount must be zero or more")
	ErrMissingBudgetRef = errors.New("a budget reference is required for approval")
	ErrReasonRequired   = errors.New("a reason is required for rejection")
	ErrAlreadyApproved  = errors.New("an approved request cannot be rejected")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
