package jobcard

import "errors"

// Job card domain errors
var (
	ErrJobCardNotFound    = errors.New("job card not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrAssignmentClosed   = errors.New("assignment is completed or cancelled")
)
