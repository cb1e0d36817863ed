package jobcard

import (
	"time"

	"github.com/fleetworks/workshop-backend-go/internal/pkg/validator"
)

type ReassignRequest struct {
	AssignmentID    string `json:"-"`
	NewTechnicianID string `json:"new_technician_id"`
}

func (r *ReassignRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.AssignmentID) {
		errs = append(errs, validator.ValidationError{
			Field:   "assignment_id",
			Message: "assignment_id is required",
		})
	}

	if validator.IsEmpty(r.NewTechnicianID) {
		errs = append(errs, validator.ValidationError{
			Field:   "new_technician_id",
			Message: "new_technician_id is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type AssignmentResponse struct {
	ID           string  `json:"id"`
	JobCardID    string  `json:"job_card_id"`
	TechnicianID string  `json:"technician_id"`
	Status       string  `json:"status"`
	StartedAt    *string `json:"started_at"`
	CompletedAt  *string `json:"completed_at"`
}

type JobCardResponse struct {
	ID             string               `json:"id"`
	BusinessUnitID *string              `json:"business_unit_id,omitempty"`
	VehicleRef     *string              `json:"vehicle_ref,omitempty"`
	Title          string               `json:"title"`
	Status         string               `json:"status"`
	EstimatedHours *float64             `json:"estimated_hours"`
	CompletedAt    *string              `json:"completed_at"`
	Assignments    []AssignmentResponse `json:"assignments,omitempty"`
}

func FormatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := t.UTC().Format(time.RFC3339)
	return &formatted
}

func ToAssignmentResponse(a Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:           a.ID,
		JobCardID:    a.JobCardID,
		TechnicianID: a.TechnicianID,
		Status:       string(a.Status),
		StartedAt:    FormatTimePtr(a.StartedAt),
		CompletedAt:  FormatTimePtr(a.CompletedAt),
	}
}
