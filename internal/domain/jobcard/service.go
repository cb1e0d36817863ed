package jobcard

import (
	"context"
)

// JobCardService defines business logic for assignment administration.
type JobCardService interface {
	// GetJobCard retrieves a job card with its assignments
	GetJobCard(ctx context.Context, id string) (JobCardResponse, error)

	// Reassign moves an assignment to another technician, forcing status
	// back to assigned and clearing timestamps. Historical work segments
	// stay attributed to the previous technician.
	Reassign(ctx context.Context, req ReassignRequest) (AssignmentResponse, error)

	// CancelAssignment marks an assignment cancelled (status only)
	CancelAssignment(ctx context.Context, assignmentID string) (AssignmentResponse, error)
}
