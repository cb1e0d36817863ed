package shift

import (
	"context"
)

// ShiftService defines business logic for the shift lifecycle state machine:
// NoShift -> Open -> OnBreak -> Open -> closed.
type ShiftService interface {
	// ClockIn opens a shift; fails when one is already open
	ClockIn(ctx context.Context, req ClockInRequest) (ShiftResponse, error)

	// ClockOut closes the open shift, folding any in-progress break into
	// the accumulated total first
	ClockOut(ctx context.Context) (ShiftResponse, error)

	// StartBreak begins a break on the open shift
	StartBreak(ctx context.Context) (ShiftResponse, error)

	// EndBreak closes the in-progress break and adds its seconds to the
	// accumulated total
	EndBreak(ctx context.Context) (ShiftResponse, error)

	// GetCurrent returns the caller's open shift
	GetCurrent(ctx context.Context) (ShiftResponse, error)

	// ListMyShifts retrieves the caller's shift history
	ListMyShifts(ctx context.Context, filter ShiftFilter) (ListShiftsResponse, error)

	// Adjust is the privileged administrative correction path. It requires
	// a justification, clears any in-progress break and appends an audit
	// entry instead of overwriting history. Supervisors may only adjust
	// shifts inside their own business unit.
	Adjust(ctx context.Context, req AdjustShiftRequest) (ShiftResponse, error)
}
