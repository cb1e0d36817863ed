package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fleetworks/workshop-backend-go/internal/domain/jobcard"
	"github.com/fleetworks/workshop-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type jobCardRepository struct {
	db *database.DB
}

func NewJobCardRepository(db *database.DB) jobcard.JobCardRepository {
	return &jobCardRepository{db: db}
}

// GetByID implements jobcard.JobCardRepository.
func (r *jobCardRepository) GetByID(ctx context.Context, id string) (jobcard.JobCard, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, business_unit_id, vehicle_ref, title, status,
		       estimated_hours, completed_at, created_at, updated_at
		FROM job_cards
		WHERE id = $1
	`

	var j jobcard.JobCard
	err := q.QueryRow(ctx, query, id).Scan(
		&j.ID, &j.BusinessUnitID, &j.VehicleRef, &j.Title, &j.Status,
		&j.EstimatedHours, &j.CompletedAt, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return jobcard.JobCard{}, jobcard.ErrJobCardNotFound
		}
		return jobcard.JobCard{}, fmt.Errorf("failed to get job card by ID: %w", err)
	}

	return j, nil
}

// UpdateStatus implements jobcard.JobCardRepository.
func (r *jobCardRepository) UpdateStatus(ctx context.Context, id string, status jobcard.JobCardStatus, completedAt *time.Time) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE job_cards
		SET status = $1, completed_at = $2, updated_at = $3
		WHERE id = $4
		RETURNING id
	`

	var updatedID string
	err := q.QueryRow(ctx, query, status, completedAt, time.Now(), id).Scan(&updatedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return jobcard.ErrJobCardNotFound
		}
		return fmt.Errorf("failed to update job card status: %w", err)
	}

	return nil
}

type assignmentRepository struct {
	db *database.DB
}

func NewAssignmentRepository(db *database.DB) jobcard.AssignmentRepository {
	return &assignmentRepository{db: db}
}

const assignmentColumns = `
	id, job_card_id, technician_id, status,
	started_at, completed_at, created_at, updated_at
`

func scanAssignment(row pgx.Row) (jobcard.Assignment, error) {
	var a jobcard.Assignment
	err := row.Scan(
		&a.ID, &a.JobCardID, &a.TechnicianID, &a.Status,
		&a.StartedAt, &a.CompletedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

// GetByID implements jobcard.AssignmentRepository.
func (r *assignmentRepository) GetByID(ctx context.Context, id string) (jobcard.Assignment, error) {
	q := GetQuerier(ctx, r.db)

	query := "SELECT " + assignmentColumns + " FROM assignments WHERE id = $1"

	a, err := scanAssignment(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return jobcard.Assignment{}, jobcard.ErrAssignmentNotFound
		}
		return jobcard.Assignment{}, fmt.Errorf("failed to get assignment by ID: %w", err)
	}
	return a, nil
}

// ListByJobCard implements jobcard.AssignmentRepository.
func (r *assignmentRepository) ListByJobCard(ctx context.Context, jobCardID string) ([]jobcard.Assignment, error) {
	q := GetQuerier(ctx, r.db)

	query := "SELECT " + assignmentColumns + ` FROM assignments
		WHERE job_card_id = $1
		ORDER BY created_at ASC`

	rows, err := q.Query(ctx, query, jobCardID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments by job card: %w", err)
	}
	defer rows.Close()

	var assignments []jobcard.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}

	return assignments, nil
}

// Update implements jobcard.AssignmentRepository.
func (r *assignmentRepository) Update(ctx context.Context, assignment jobcard.Assignment) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE assignments
		SET technician_id = $1, status = $2, started_at = $3, completed_at = $4, updated_at = $5
		WHERE id = $6
		RETURNING id
	`

	var updatedID string
	err := q.QueryRow(ctx, query,
		assignment.TechnicianID,
		assignment.Status,
		assignment.StartedAt,
		assignment.CompletedAt,
		time.Now(),
		assignment.ID,
	).Scan(&updatedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return jobcard.ErrAssignmentNotFound
		}
		return fmt.Errorf("failed to update assignment: %w", err)
	}

	return nil
}
