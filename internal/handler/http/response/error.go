package response

import (
	"errors"
	"net/http"

	"github.com/fleetworks/workshop-backend-go/internal/domain/identity"
	"github.com/fleetworks/workshop-backend-go/internal/domain/jobcard"
	"github.com/fleetworks/workshop-backend-go/internal/domain/shift"
	"github.com/fleetworks/workshop-backend-go/internal/domain/timer"
	"github.com/fleetworks/workshop-backend-go/internal/pkg/schema"
	"github.com/fleetworks/workshop-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses with stable error codes.
// Clients dispatch on the code, never the message.
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Shift lifecycle errors
	case errors.Is(err, shift.ErrAlreadyClockedIn):
		Fail(w, http.StatusConflict, "ALREADY_CLOCKED_IN", err.Error())
	case errors.Is(err, shift.ErrNotClockedIn), errors.Is(err, timer.ErrNotClockedIn):
		Fail(w, http.StatusConflict, "NOT_CLOCKED_IN", err.Error())
	case errors.Is(err, shift.ErrAlreadyOnBreak):
		Fail(w, http.StatusConflict, "ALREADY_ON_BREAK", err.Error())
	case errors.Is(err, shift.ErrNotOnBreak):
		Fail(w, http.StatusConflict, "NOT_ON_BREAK", err.Error())

	// Timer errors
	case errors.Is(err, timer.ErrOnBreak):
		Fail(w, http.StatusConflict, "ON_BREAK", err.Error())
	case errors.Is(err, timer.ErrMissingEstimate):
		Fail(w, http.StatusConflict, "MISSING_ESTIMATE", err.Error())
	case errors.Is(err, timer.ErrTimerAlreadyActive):
		Fail(w, http.StatusConflict, "TIMER_ALREADY_ACTIVE", err.Error())
	case errors.Is(err, timer.ErrInvalidWorkflowState), errors.Is(err, jobcard.ErrAssignmentClosed):
		Fail(w, http.StatusConflict, "INVALID_WORKFLOW_STATE", err.Error())
	case errors.Is(err, timer.ErrLockNotAcquired):
		Fail(w, http.StatusLocked, "LOCK_ACQUISITION_FAILED", err.Error())

	// Lookups
	case errors.Is(err, shift.ErrShiftNotFound),
		errors.Is(err, timer.ErrSegmentNotFound),
		errors.Is(err, jobcard.ErrJobCardNotFound),
		errors.Is(err, jobcard.ErrAssignmentNotFound):
		Fail(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", err.Error())

	// Access control
	case errors.Is(err, identity.ErrForbidden):
		Fail(w, http.StatusForbidden, "AUTHORIZATION_FAILED", err.Error())

	// Deployment faults
	case errors.Is(err, schema.ErrSchemaMismatch):
		Fail(w, http.StatusInternalServerError, "SCHEMA_MISMATCH", err.Error())

	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
