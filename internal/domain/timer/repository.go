package timer

import (
	"context"
	"time"
)

// WorkSegmentRepository defines data access for work segments.
type WorkSegmentRepository interface {
	// Create creates a new segment record
	Create(ctx context.Context, segment WorkSegment) (WorkSegment, error)

	// GetByID retrieves a segment by ID
	GetByID(ctx context.Context, id string) (WorkSegment, error)

	// GetActiveByTechnician returns the technician's active segments.
	// Usually zero or one; more only when multi-tasking is enabled.
	GetActiveByTechnician(ctx context.Context, technicianID string) ([]WorkSegment, error)

	// Close freezes a segment: sets end time and duration, moves it to
	// paused or finished. Fails unless the segment is currently active.
	Close(ctx context.Context, id string, endTime time.Time, durationSeconds int64, status SegmentStatus) error

	// ListByAssignment retrieves all segments logged against an assignment
	ListByAssignment(ctx context.Context, assignmentID string) ([]WorkSegment, error)
}
