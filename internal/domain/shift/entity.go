package shift

import (
	"time"
)

// Shift is one clock-in-to-clock-out attendance period for a technician.
// Break state may live in dedicated columns or inside the structured notes
// side channel, depending on the deployed schema revision; the repository
// hides the difference and the entity always carries resolved values.
type Shift struct {
	ID             string
	TechnicianID   string
	BusinessUnitID *string
	ShiftDate      time.Time
	ClockIn        time.Time
	ClockOut       *time.Time
	// BreakSeconds is the accumulated total of closed breaks.
	BreakSeconds int64
	// BreakStart is non-nil only while the shift is open and on break.
	BreakStart *time.Time
	// Notes hosts free text plus the break log and adjustment audit trail.
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Open reports whether the shift has not been clocked out.
func (s Shift) Open() bool {
	return s.ClockOut == nil
}

// OnBreak reports whether the shift is open with a break in progress.
func (s Shift) OnBreak() bool {
	return s.Open() && s.BreakStart != nil
}

// WorkedHours is the shift's total worked time in hours, breaks excluded,
// floored at zero. Only meaningful once clocked out.
func (s Shift) WorkedHours() float64 {
	if s.ClockOut == nil {
		return 0
	}
	worked := s.ClockOut.Sub(s.ClockIn).Seconds() - float64(s.BreakSeconds)
	if worked < 0 {
		return 0
	}
	return worked / 3600
}
