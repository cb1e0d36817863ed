package jobcard

import (
	"time"
)

type JobCardStatus string

const (
	JobCardOpen       JobCardStatus = "open"
	JobCardInProgress JobCardStatus = "in_progress"
	JobCardCompleted  JobCardStatus = "completed"
)

type AssignmentStatus string

const (
	AssignmentAssigned   AssignmentStatus = "assigned"
	AssignmentInProgress AssignmentStatus = "in_progress"
	AssignmentCompleted  AssignmentStatus = "completed"
	AssignmentCancelled  AssignmentStatus = "cancelled"
)

// JobCard is the parent work order. Its status is derived from its
// assignments and never set directly by callers.
type JobCard struct {
	ID             string
	BusinessUnitID *string
	VehicleRef     *string
	Title          string
	Status         JobCardStatus
	// EstimatedHours is the supervisor estimate gating timer start.
	EstimatedHours *float64
	CompletedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasEstimate reports whether a positive supervisor estimate is set.
func (j JobCard) HasEstimate() bool {
	return j.EstimatedHours != nil && *j.EstimatedHours > 0
}

// Assignment links one technician to one job card. Cancellation is a status,
// never a row removal.
type Assignment struct {
	ID           string
	JobCardID    string
	TechnicianID string
	Status       AssignmentStatus
	StartedAt    *time.Time
	CompletedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// InFlight reports whether the assignment still counts toward in-progress
// work for status propagation.
func (a Assignment) InFlight() bool {
	return a.Status == AssignmentAssigned || a.Status == AssignmentInProgress
}
