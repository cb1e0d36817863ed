package shift

import "errors"

// Shift domain errors
var (
	ErrAlreadyClockedIn = errors.New("you are already clocked in")
	ErrNotClockedIn     = errors.New("you are not clocked in")
	ErrAlreadyOnBreak   = errors.New("you are already on break")
	ErrNotOnBreak       = errors.New("no break is in progress")
	ErrShiftNotFound    = errors.New("shift not found")
)
