package models

import (
	"errors"
	"strings"
)

// Error kinds returned by services. Handlers map these to HTTP status codes
// in one place; services wrap them with operation context via fmt.Errorf("%w").
var (
	// ErrNotFound indicates an unknown run or stage.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a create collision or an operation that is not
	// permitted in the current state (e.g. adapter update while trimming).
	ErrConflict = errors.New("conflict")

	// ErrRerunRequired indicates a submit on a completed stage without
	// confirm_rerun. Mapped to 409 at the HTTP boundary.
	ErrRerunRequired = errors.New("rerun requires confirmation")

	// ErrValidation indicates stage preflight failures.
	ErrValidation = errors.New("validation failed")

	// ErrDependency indicates an unmet stage dependency.
	ErrDependency = errors.New("dependency not completed")

	// ErrScheduler indicates a batch scheduler command failure or timeout.
	ErrScheduler = errors.New("scheduler error")

	// ErrTemplate indicates a missing template or an unresolved placeholder.
	ErrTemplate = errors.New("template error")

	// ErrConfig indicates a misconfigured install or work directory.
	ErrConfig = errors.New("configuration error")
)

// ValidationError carries the full preflight result so the HTTP surface
// can return the error and warning lists verbatim.
type ValidationError struct {
	Result *StageValidation
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Result.Errors, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
