package safeops

import (
	"errors"
	"fmt"

	"github.com/safeops/safeops/pkg/models"
	"github.com/safeops/safeops/pkg/store"
)

// TransitionError reports a workflow operation applied to a RAW in the
// wrong state, such as approving a draft that was never submitted.
// Handlers map it to HTTP 409 with a stable error code so clients can
// distinguish precondition failures from validation failures.
type TransitionError struct {
	RAWID   models.RAWID
	From    models.RAWStatus
	Attempt string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s RAW %s in status %q", e.Attempt, e.RAWID, e.From)
}

// ValidationError reports a request payload that fails domain
// validation. Handlers map it to HTTP 400.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func validationErrorf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Error codes carried in the unified error body. Clients branch on
// these rather than parsing messages.
const (
	codeBadRequest        = "bad_request"
	codeValidation        = "validation_failed"
	codeNotFound          = "not_found"
	codeInvalidTransition = "invalid_transition"
	codeConflict          = "conflict"
	codeUnauthorized      = "unauthorized"
	codeReadOnly          = "read_only"
	codeInternal          = "internal_error"
)

// classifyError maps a domain error to an HTTP status and error code.
func classifyError(err error) (int, string) {
	var transition *TransitionError
	var validation *ValidationError
	switch {
	case errors.As(err, &transition):
		return 409, codeInvalidTransition
	case errors.As(err, &validation):
		return 400, codeValidation
	case errors.Is(err, store.ErrConflict):
		return 409, codeConflict
	case isReadOnlyErr(err):
		return 403, codeReadOnly
	default:
		return 500, codeInternal
	}
}

func isReadOnlyErr(err error) bool {
	return errors.Is(err, store.ErrReadOnly)
}
