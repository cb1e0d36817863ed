package timer

import (
	"time"

	"github.com/fleetworks/workshop-backend-go/internal/pkg/validator"
)

type StartTimerRequest struct {
	AssignmentID string  `json:"assignment_id"`
	Notes        *string `json:"notes"`
}

func (r *StartTimerRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.AssignmentID) {
		errs = append(errs, validator.ValidationError{
			Field:   "assignment_id",
			Message: "assignment_id is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type SegmentResponse struct {
	ID              string  `json:"id"`
	AssignmentID    string  `json:"assignment_id"`
	TechnicianID    string  `json:"technician_id"`
	JobCardID       string  `json:"job_card_id"`
	StartTime       string  `json:"start_time"`
	EndTime         *string `json:"end_time"`
	DurationSeconds *int64  `json:"duration_seconds"`
	Status          string  `json:"status"`
	Notes           *string `json:"notes,omitempty"`
}

func ToSegmentResponse(s WorkSegment) SegmentResponse {
	var endTime *string
	if s.EndTime != nil {
		formatted := s.EndTime.UTC().Format(time.RFC3339)
		endTime = &formatted
	}

	return SegmentResponse{
		ID:              s.ID,
		AssignmentID:    s.AssignmentID,
		TechnicianID:    s.TechnicianID,
		JobCardID:       s.JobCardID,
		StartTime:       s.StartTime.UTC().Format(time.RFC3339),
		EndTime:         endTime,
		DurationSeconds: s.DurationSeconds,
		Status:          string(s.Status),
		Notes:           s.Notes,
	}
}
