package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fleetworks/workshop-backend-go/internal/domain/timer"
	"github.com/fleetworks/workshop-backend-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type workSegmentRepository struct {
	db *database.DB
}

func NewWorkSegmentRepository(db *database.DB) timer.WorkSegmentRepository {
	return &workSegmentRepository{db: db}
}

const segmentColumns = `
	id, assignment_id, technician_id, job_card_id,
	start_time, end_time, duration_seconds, status, notes,
	created_at, updated_at
`

func scanSegment(row pgx.Row) (timer.WorkSegment, error) {
	var s timer.WorkSegment
	err := row.Scan(
		&s.ID, &s.AssignmentID, &s.TechnicianID, &s.JobCardID,
		&s.StartTime, &s.EndTime, &s.DurationSeconds, &s.Status, &s.Notes,
		&s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

// Create implements timer.WorkSegmentRepository.
func (r *workSegmentRepository) Create(ctx context.Context, segment timer.WorkSegment) (timer.WorkSegment, error) {
	q := GetQuerier(ctx, r.db)

	if segment.ID == "" {
		segment.ID = uuid.NewString()
	}

	query := `
		INSERT INTO work_segments (
			id, assignment_id, technician_id, job_card_id,
			start_time, end_time, duration_seconds, status, notes
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		) RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		segment.ID,
		segment.AssignmentID,
		segment.TechnicianID,
		segment.JobCardID,
		segment.StartTime,
		segment.EndTime,
		segment.DurationSeconds,
		segment.Status,
		segment.Notes,
	).Scan(&segment.CreatedAt, &segment.UpdatedAt)

	if err != nil {
		return timer.WorkSegment{}, fmt.Errorf("failed to create work segment: %w", err)
	}

	return segment, nil
}

// GetByID implements timer.WorkSegmentRepository.
func (r *workSegmentRepository) GetByID(ctx context.Context, id string) (timer.WorkSegment, error) {
	q := GetQuerier(ctx, r.db)

	query := "SELECT " + segmentColumns + " FROM work_segments WHERE id = $1"

	s, err := scanSegment(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return timer.WorkSegment{}, timer.ErrSegmentNotFound
		}
		return timer.WorkSegment{}, fmt.Errorf("failed to get work segment by ID: %w", err)
	}
	return s, nil
}

// GetActiveByTechnician implements timer.WorkSegmentRepository.
func (r *workSegmentRepository) GetActiveByTechnician(ctx context.Context, technicianID string) ([]timer.WorkSegment, error) {
	q := GetQuerier(ctx, r.db)

	query := "SELECT " + segmentColumns + ` FROM work_segments
		WHERE technician_id = $1 AND status = $2
		ORDER BY start_time ASC`

	rows, err := q.Query(ctx, query, technicianID, timer.SegmentActive)
	if err != nil {
		return nil, fmt.Errorf("failed to query active segments: %w", err)
	}
	defer rows.Close()

	var segments []timer.WorkSegment
	for rows.Next() {
		s, err := scanSegment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan work segment: %w", err)
		}
		segments = append(segments, s)
	}

	return segments, nil
}

// Close implements timer.WorkSegmentRepository. The status guard in the
// WHERE clause makes freezing idempotent-safe: a segment already closed by
// a concurrent call is reported as a workflow-state error, and a frozen
// duration is never rewritten.
func (r *workSegmentRepository) Close(ctx context.Context, id string, endTime time.Time, durationSeconds int64, status timer.SegmentStatus) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE work_segments
		SET end_time = $1, duration_seconds = $2, status = $3, updated_at = $4
		WHERE id = $5 AND status = $6
		RETURNING id
	`

	var updatedID string
	err := q.QueryRow(ctx, query, endTime, durationSeconds, status, time.Now(), id, timer.SegmentActive).Scan(&updatedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return timer.ErrInvalidWorkflowState
		}
		return fmt.Errorf("failed to close work segment: %w", err)
	}

	return nil
}

// ListByAssignment implements timer.WorkSegmentRepository.
func (r *workSegmentRepository) ListByAssignment(ctx context.Context, assignmentID string) ([]timer.WorkSegment, error) {
	q := GetQuerier(ctx, r.db)

	query := "SELECT " + segmentColumns + ` FROM work_segments
		WHERE assignment_id = $1
		ORDER BY start_time ASC`

	rows, err := q.Query(ctx, query, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query segments by assignment: %w", err)
	}
	defer rows.Close()

	var segments []timer.WorkSegment
	for rows.Next() {
		s, err := scanSegment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan work segment: %w", err)
		}
		segments = append(segments, s)
	}

	return segments, nil
}
