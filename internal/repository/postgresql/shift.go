package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fleetworks/workshop-backend-go/internal/domain/shift"
	"github.com/fleetworks/workshop-backend-go/internal/pkg/database"
	"github.com/fleetworks/workshop-backend-go/internal/pkg/notes"
	"github.com/fleetworks/workshop-backend-go/internal/pkg/schema"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// shiftRepository runs against whichever shifts-table topology the probe
// resolved. Table and column names come from the Capabilities value only,
// never from caller input. When the deployment lacks dedicated break
// columns, break state rides inside the notes side channel via the codec.
type shiftRepository struct {
	db   *database.DB
	caps schema.Capabilities
}

func NewShiftRepository(db *database.DB, caps schema.Capabilities) shift.ShiftRepository {
	return &shiftRepository{db: db, caps: caps}
}

func (r *shiftRepository) selectColumns() string {
	cols := []string{
		"id", "technician_id", "business_unit_id", "shift_date",
		r.caps.ClockInColumn, r.caps.ClockOutColumn,
	}
	if r.caps.HasBreakStart {
		cols = append(cols, "break_start")
	}
	if r.caps.HasBreakSeconds {
		cols = append(cols, "break_seconds")
	}
	cols = append(cols, "notes", "created_at", "updated_at")
	return strings.Join(cols, ", ")
}

func (r *shiftRepository) scanShift(row pgx.Row) (shift.Shift, error) {
	var s shift.Shift
	var notesVal *string

	dest := []interface{}{
		&s.ID, &s.TechnicianID, &s.BusinessUnitID, &s.ShiftDate,
		&s.ClockIn, &s.ClockOut,
	}
	if r.caps.HasBreakStart {
		dest = append(dest, &s.BreakStart)
	}
	if r.caps.HasBreakSeconds {
		dest = append(dest, &s.BreakSeconds)
	}
	dest = append(dest, &notesVal, &s.CreatedAt, &s.UpdatedAt)

	if err := row.Scan(dest...); err != nil {
		return shift.Shift{}, err
	}

	if notesVal != nil {
		s.Notes = *notesVal
	}
	if !r.caps.HasBreakStart {
		s.BreakStart = notes.GetBreakStart(s.Notes)
	}
	if !r.caps.HasBreakSeconds {
		s.BreakSeconds = notes.GetTotalBreakSeconds(s.Notes)
	}
	return s, nil
}

// encodeNotes folds break state into the notes side channel when the schema
// has no dedicated columns for it.
func (r *shiftRepository) encodeNotes(s shift.Shift) (string, error) {
	if r.caps.HasBreakStart && r.caps.HasBreakSeconds {
		return s.Notes, nil
	}
	return notes.BuildWithBreakState(s.Notes, notes.BreakState{
		StartTime:         s.BreakStart,
		TotalBreakSeconds: s.BreakSeconds,
	})
}

// Create implements shift.ShiftRepository.
func (r *shiftRepository) Create(ctx context.Context, newShift shift.Shift) (shift.Shift, error) {
	if r.caps.ShiftTable == "" {
		return shift.Shift{}, fmt.Errorf("create shift: %w", schema.ErrSchemaMismatch)
	}
	q := GetQuerier(ctx, r.db)

	if newShift.ID == "" {
		newShift.ID = uuid.NewString()
	}
	encodedNotes, err := r.encodeNotes(newShift)
	if err != nil {
		return shift.Shift{}, err
	}

	cols := []string{"id", "technician_id", "business_unit_id", "shift_date", r.caps.ClockInColumn, r.caps.ClockOutColumn}
	args := []interface{}{newShift.ID, newShift.TechnicianID, newShift.BusinessUnitID, newShift.ShiftDate, newShift.ClockIn, newShift.ClockOut}
	if r.caps.HasBreakStart {
		cols = append(cols, "break_start")
		args = append(args, newShift.BreakStart)
	}
	if r.caps.HasBreakSeconds {
		cols = append(cols, "break_seconds")
		args = append(args, newShift.BreakSeconds)
	}
	cols = append(cols, "notes")
	args = append(args, encodedNotes)

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING created_at, updated_at",
		r.caps.ShiftTable, strings.Join(cols, ", "), strings.Join(placeholders, ", "),
	)

	if err := q.QueryRow(ctx, query, args...).Scan(&newShift.CreatedAt, &newShift.UpdatedAt); err != nil {
		return shift.Shift{}, fmt.Errorf("failed to create shift: %w", err)
	}
	newShift.Notes = encodedNotes

	return newShift, nil
}

// GetByID implements shift.ShiftRepository.
func (r *shiftRepository) GetByID(ctx context.Context, id string) (shift.Shift, error) {
	if r.caps.ShiftTable == "" {
		return shift.Shift{}, fmt.Errorf("get shift: %w", schema.ErrSchemaMismatch)
	}
	q := GetQuerier(ctx, r.db)

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", r.selectColumns(), r.caps.ShiftTable)

	s, err := r.scanShift(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shift.Shift{}, shift.ErrShiftNotFound
		}
		return shift.Shift{}, fmt.Errorf("failed to get shift by ID: %w", err)
	}
	return s, nil
}

// GetOpenByTechnician implements shift.ShiftRepository.
func (r *shiftRepository) GetOpenByTechnician(ctx context.Context, technicianID string) (*shift.Shift, error) {
	if r.caps.ShiftTable == "" {
		return nil, fmt.Errorf("get open shift: %w", schema.ErrSchemaMismatch)
	}
	q := GetQuerier(ctx, r.db)

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE technician_id = $1 AND %s IS NULL
		ORDER BY %s DESC
		LIMIT 1
	`, r.selectColumns(), r.caps.ShiftTable, r.caps.ClockOutColumn, r.caps.ClockInColumn)

	s, err := r.scanShift(q.QueryRow(ctx, query, technicianID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // no open shift
		}
		return nil, fmt.Errorf("failed to get open shift: %w", err)
	}
	return &s, nil
}

// Update implements shift.ShiftRepository.
func (r *shiftRepository) Update(ctx context.Context, s shift.Shift) error {
	if r.caps.ShiftTable == "" {
		return fmt.Errorf("update shift: %w", schema.ErrSchemaMismatch)
	}
	q := GetQuerier(ctx, r.db)

	encodedNotes, err := r.encodeNotes(s)
	if err != nil {
		return err
	}

	updates := []string{}
	args := []interface{}{}
	argIdx := 1

	updates = append(updates, fmt.Sprintf("%s = $%d", r.caps.ClockOutColumn, argIdx))
	args = append(args, s.ClockOut)
	argIdx++

	if r.caps.HasBreakStart {
		updates = append(updates, fmt.Sprintf("break_start = $%d", argIdx))
		args = append(args, s.BreakStart)
		argIdx++
	}
	if r.caps.HasBreakSeconds {
		updates = append(updates, fmt.Sprintf("break_seconds = $%d", argIdx))
		args = append(args, s.BreakSeconds)
		argIdx++
	}

	updates = append(updates, fmt.Sprintf("%s = $%d", r.caps.ClockInColumn, argIdx))
	args = append(args, s.ClockIn)
	argIdx++

	updates = append(updates, fmt.Sprintf("notes = $%d", argIdx))
	args = append(args, encodedNotes)
	argIdx++

	updates = append(updates, fmt.Sprintf("updated_at = $%d", argIdx))
	args = append(args, time.Now())
	argIdx++

	args = append(args, s.ID)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING id",
		r.caps.ShiftTable, strings.Join(updates, ", "), argIdx)

	var updatedID string
	if err := q.QueryRow(ctx, query, args...).Scan(&updatedID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shift.ErrShiftNotFound
		}
		return fmt.Errorf("failed to update shift: %w", err)
	}

	return nil
}

// ListByTechnician implements shift.ShiftRepository.
func (r *shiftRepository) ListByTechnician(ctx context.Context, technicianID string, filter shift.ShiftFilter) ([]shift.Shift, int64, error) {
	if r.caps.ShiftTable == "" {
		return nil, 0, fmt.Errorf("list shifts: %w", schema.ErrSchemaMismatch)
	}
	q := GetQuerier(ctx, r.db)

	baseWhere := "technician_id = $1"
	args := []interface{}{technicianID}
	argIdx := 2

	if filter.StartDate != nil && *filter.StartDate != "" {
		baseWhere += fmt.Sprintf(" AND shift_date >= $%d", argIdx)
		args = append(args, *filter.StartDate)
		argIdx++
	}
	if filter.EndDate != nil && *filter.EndDate != "" {
		baseWhere += fmt.Sprintf(" AND shift_date <= $%d", argIdx)
		args = append(args, *filter.EndDate)
		argIdx++
	}
	if filter.Open != nil {
		if *filter.Open {
			baseWhere += fmt.Sprintf(" AND %s IS NULL", r.caps.ClockOutColumn)
		} else {
			baseWhere += fmt.Sprintf(" AND %s IS NOT NULL", r.caps.ClockOutColumn)
		}
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", r.caps.ShiftTable, baseWhere)
	var total int64
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count shifts: %w", err)
	}

	sortOrder := "DESC"
	if strings.ToLower(filter.SortOrder) == "asc" {
		sortOrder = "ASC"
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 20
	}
	page := filter.Page
	if page == 0 {
		page = 1
	}
	offset := (page - 1) * limit

	selectQuery := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s
		ORDER BY shift_date %s, %s %s
		LIMIT $%d OFFSET $%d
	`, r.selectColumns(), r.caps.ShiftTable, baseWhere, sortOrder, r.caps.ClockInColumn, sortOrder, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query shifts: %w", err)
	}
	defer rows.Close()

	var shifts []shift.Shift
	for rows.Next() {
		s, err := r.scanShift(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan shift: %w", err)
		}
		shifts = append(shifts, s)
	}

	return shifts, total, nil
}

// ListStaleOpen implements shift.ShiftRepository.
func (r *shiftRepository) ListStaleOpen(ctx context.Context, cutoff time.Time) ([]shift.Shift, error) {
	if r.caps.ShiftTable == "" {
		return nil, fmt.Errorf("list stale shifts: %w", schema.ErrSchemaMismatch)
	}
	q := GetQuerier(ctx, r.db)

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s IS NULL AND %s < $1
		ORDER BY %s ASC
	`, r.selectColumns(), r.caps.ShiftTable, r.caps.ClockOutColumn, r.caps.ClockInColumn, r.caps.ClockInColumn)

	rows, err := q.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale shifts: %w", err)
	}
	defer rows.Close()

	var shifts []shift.Shift
	for rows.Next() {
		s, err := r.scanShift(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stale shift: %w", err)
		}
		shifts = append(shifts, s)
	}

	return shifts, nil
}
