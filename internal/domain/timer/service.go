package timer

import (
	"context"
)

// TimerService defines business logic for the work-segment timer lifecycle.
// Start and Resume serialize through the per-technician lock; all other
// operations act on disjoint rows and may interleave freely.
type TimerService interface {
	// Start begins tracking time against an assignment after the full
	// precondition chain: open shift, not on break, assignment live and
	// owned by the caller, supervisor estimate present, no other active
	// segment unless multi-tasking is enabled.
	Start(ctx context.Context, req StartTimerRequest) (SegmentResponse, error)

	// Pause freezes the active segment without completing the assignment
	Pause(ctx context.Context, segmentID string) (SegmentResponse, error)

	// Resume re-derives the start preconditions and opens a NEW segment
	// against the paused segment's assignment
	Resume(ctx context.Context, pausedSegmentID string) (SegmentResponse, error)

	// Stop freezes the active segment and completes its assignment
	Stop(ctx context.Context, segmentID string) (SegmentResponse, error)

	// GetActive returns the caller's active segments
	GetActive(ctx context.Context) ([]SegmentResponse, error)

	// ListByAssignment returns all segments logged against an assignment
	ListByAssignment(ctx context.Context, assignmentID string) ([]SegmentResponse, error)
}
