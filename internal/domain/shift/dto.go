package shift

import (
	"fmt"
	"strings"
	"time"

	"github.com/fleetworks/workshop-backend-go/internal/pkg/notes"
	"github.com/fleetworks/workshop-backend-go/internal/pkg/validator"
)

// ========================================
// SHIFT DTOs
// ========================================

type ClockInRequest struct {
	BusinessUnitID *string `json:"business_unit_id"`
	Notes          *string `json:"notes"`
}

func (r *ClockInRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.BusinessUnitID != nil && validator.IsEmpty(*r.BusinessUnitID) {
		errs = append(errs, validator.ValidationError{
			Field:   "business_unit_id",
			Message: "business_unit_id must not be blank when provided",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type AdjustShiftRequest struct {
	ShiftID      string  `json:"-"`
	ClockIn      *string `json:"clock_in"`
	ClockOut     *string `json:"clock_out"`
	BreakSeconds *int64  `json:"break_seconds"`
	Reason       string  `json:"reason"`
}

func (r *AdjustShiftRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.ShiftID) {
		errs = append(errs, validator.ValidationError{
			Field:   "shift_id",
			Message: "shift_id is required",
		})
	}

	if len(strings.TrimSpace(r.Reason)) < 3 {
		errs = append(errs, validator.ValidationError{
			Field:   "reason",
			Message: "reason must be at least 3 characters",
		})
	}

	var clockIn, clockOut time.Time
	var clockInOK, clockOutOK bool
	if r.ClockIn != nil {
		if clockIn, clockInOK = validator.IsValidDateTime(*r.ClockIn); !clockInOK {
			errs = append(errs, validator.ValidationError{
				Field:   "clock_in",
				Message: "clock_in must be a valid ISO8601 timestamp",
			})
		}
	}
	if r.ClockOut != nil {
		if clockOut, clockOutOK = validator.IsValidDateTime(*r.ClockOut); !clockOutOK {
			errs = append(errs, validator.ValidationError{
				Field:   "clock_out",
				Message: "clock_out must be a valid ISO8601 timestamp",
			})
		}
	}
	if clockInOK && clockOutOK && clockOut.Before(clockIn) {
		errs = append(errs, validator.ValidationError{
			Field:   "clock_out",
			Message: "clock_out must not be before clock_in",
		})
	}

	if r.BreakSeconds != nil && *r.BreakSeconds < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "break_seconds",
			Message: "break_seconds must not be negative",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ShiftFilter struct {
	StartDate *string
	EndDate   *string
	Open      *bool
	Page      int
	Limit     int
	SortOrder string
}

func (f *ShiftFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.StartDate != nil {
		if _, ok := validator.IsValidDate(*f.StartDate); !ok {
			errs = append(errs, validator.ValidationError{
				Field:   "start_date",
				Message: "start_date must be in YYYY-MM-DD format",
			})
		}
	}
	if f.EndDate != nil {
		if _, ok := validator.IsValidDate(*f.EndDate); !ok {
			errs = append(errs, validator.ValidationError{
				Field:   "end_date",
				Message: "end_date must be in YYYY-MM-DD format",
			})
		}
	}
	if f.SortOrder != "" && !validator.IsInSlice(strings.ToLower(f.SortOrder), []string{"asc", "desc"}) {
		errs = append(errs, validator.ValidationError{
			Field:   "sort_order",
			Message: "sort_order must be asc or desc",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type BreakSegmentResponse struct {
	StartTime       string  `json:"start_time"`
	EndTime         *string `json:"end_time"`
	DurationSeconds *int64  `json:"duration_seconds"`
}

type ShiftResponse struct {
	ID             string                 `json:"id"`
	TechnicianID   string                 `json:"technician_id"`
	BusinessUnitID *string                `json:"business_unit_id,omitempty"`
	ShiftDate      string                 `json:"shift_date"`
	ClockIn        string                 `json:"clock_in"`
	ClockOut       *string                `json:"clock_out"`
	OnBreak        bool                   `json:"on_break"`
	BreakStart     *string                `json:"break_start"`
	BreakSeconds   int64                  `json:"break_seconds"`
	TotalHours     *string                `json:"total_hours"`
	Breaks         []BreakSegmentResponse `json:"breaks,omitempty"`
	NotesText      string                 `json:"notes,omitempty"`
}

type ListShiftsResponse struct {
	TotalCount int64           `json:"total_count"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
	Shifts     []ShiftResponse `json:"shifts"`
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := t.UTC().Format(time.RFC3339)
	return &formatted
}

// ToShiftResponse maps a shift entity to its response shape, decoding the
// break log out of the notes side channel.
func ToShiftResponse(s Shift) ShiftResponse {
	var totalHours *string
	if s.ClockOut != nil {
		formatted := fmt.Sprintf("%.2f", s.WorkedHours())
		totalHours = &formatted
	}

	var breaks []BreakSegmentResponse
	for _, seg := range notes.GetBreakLog(s.Notes) {
		breaks = append(breaks, BreakSegmentResponse{
			StartTime:       seg.StartTime.UTC().Format(time.RFC3339),
			EndTime:         formatTimePtr(seg.EndTime),
			DurationSeconds: seg.DurationSeconds,
		})
	}

	return ShiftResponse{
		ID:             s.ID,
		TechnicianID:   s.TechnicianID,
		BusinessUnitID: s.BusinessUnitID,
		ShiftDate:      s.ShiftDate.Format("2006-01-02"),
		ClockIn:        s.ClockIn.UTC().Format(time.RFC3339),
		ClockOut:       formatTimePtr(s.ClockOut),
		OnBreak:        s.OnBreak(),
		BreakStart:     formatTimePtr(s.BreakStart),
		BreakSeconds:   s.BreakSeconds,
		TotalHours:     totalHours,
		Breaks:         breaks,
		NotesText:      notes.GetNotesText(s.Notes),
	}
}
