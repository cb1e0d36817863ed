package timer

import (
	"time"
)

type SegmentStatus string

const (
	SegmentActive   SegmentStatus = "active"
	SegmentPaused   SegmentStatus = "paused"
	SegmentFinished SegmentStatus = "finished"
)

// WorkSegment is one continuous span of tracked work time against an
// assignment. Segments are immutable once closed: resume creates a new
// segment instead of reopening a paused one, and a frozen duration is never
// recomputed.
type WorkSegment struct {
	ID           string
	AssignmentID string
	TechnicianID string
	// JobCardID is denormalized from the assignment for query convenience.
	JobCardID       string
	StartTime       time.Time
	EndTime         *time.Time
	DurationSeconds *int64
	Status          SegmentStatus
	Notes           *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
