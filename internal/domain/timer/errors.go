package timer

import "errors"

// Timer domain errors
var (
	ErrOnBreak              = errors.New("cannot run a timer while on break")
	ErrNotClockedIn         = errors.New("you must be clocked in to track time")
	ErrMissingEstimate      = errors.New("job card has no supervisor estimate")
	ErrTimerAlreadyActive   = errors.New("another timer is already active")
	ErrInvalidWorkflowState = errors.New("segment is not in a valid state for this operation")
	ErrSegmentNotFound      = errors.New("work segment not found")
	ErrLockNotAcquired      = errors.New("timer is busy, please retry")
)
