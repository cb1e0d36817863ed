package jobcard

import (
	"context"
	"time"
)

// JobCardRepository defines data access for job cards.
type JobCardRepository interface {
	// GetByID retrieves a job card by ID
	GetByID(ctx context.Context, id string) (JobCard, error)

	// UpdateStatus writes the derived status. completedAt is set when the
	// card completed and nil otherwise; a nil value clears any previous
	// completion timestamp (reopening via reassignment)
	UpdateStatus(ctx context.Context, id string, status JobCardStatus, completedAt *time.Time) error
}

// AssignmentRepository defines data access for technician assignments.
type AssignmentRepository interface {
	// GetByID retrieves an assignment by ID
	GetByID(ctx context.Context, id string) (Assignment, error)

	// ListByJobCard retrieves all assignments under a job card, cancelled
	// included, in creation order
	ListByJobCard(ctx context.Context, jobCardID string) ([]Assignment, error)

	// Update persists status/timestamp mutations
	Update(ctx context.Context, assignment Assignment) error
}
