package shift

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/fleetworks/workshop-backend-go/internal/domain/identity"
	"github.com/fleetworks/workshop-backend-go/internal/domain/shift"
	"github.com/fleetworks/workshop-backend-go/internal/pkg/notes"
)

type ShiftServiceImpl struct {
	shift.ShiftRepository
	nowFn func() time.Time
}

// ClockIn implements shift.ShiftService.
func (s *ShiftServiceImpl) ClockIn(ctx context.Context, req shift.ClockInRequest) (shift.ShiftResponse, error) {
	if err := req.Validate(); err != nil {
		return shift.ShiftResponse{}, err
	}

	actor, err := identity.FromContext(ctx)
	if err != nil {
		return shift.ShiftResponse{}, err
	}

	open, err := s.ShiftRepository.GetOpenByTechnician(ctx, actor.TechnicianID)
	if err != nil {
		return shift.ShiftResponse{}, fmt.Errorf("failed to check open shift: %w", err)
	}
	if open != nil {
		return shift.ShiftResponse{}, shift.ErrAlreadyClockedIn
	}

	now := s.nowFn().UTC()

	businessUnitID := req.BusinessUnitID
	if businessUnitID == nil && actor.BusinessUnitID != "" {
		bu := actor.BusinessUnitID
		businessUnitID = &bu
	}

	var notesText string
	if req.Notes != nil {
		notesText = *req.Notes
	}

	created, err := s.ShiftRepository.Create(ctx, shift.Shift{
		TechnicianID:   actor.TechnicianID,
		BusinessUnitID: businessUnitID,
		ShiftDate:      now.Truncate(24 * time.Hour),
		ClockIn:        now,
		Notes:          notesText,
	})
	if err != nil {
		return shift.ShiftResponse{}, fmt.Errorf("failed to create shift: %w", err)
	}

	return shift.ToShiftResponse(created), nil
}

// ClockOut implements shift.ShiftService.
func (s *ShiftServiceImpl) ClockOut(ctx context.Context) (shift.ShiftResponse, error) {
	actor, err := identity.FromContext(ctx)
	if err != nil {
		return shift.ShiftResponse{}, err
	}

	open, err := s.ShiftRepository.GetOpenByTechnician(ctx, actor.TechnicianID)
	if err != nil {
		return shift.ShiftResponse{}, fmt.Errorf("failed to get open shift: %w", err)
	}
	if open == nil {
		return shift.ShiftResponse{}, shift.ErrNotClockedIn
	}

	now := s.nowFn().UTC()
	current := *open

	// An in-progress break is folded into the total before closing.
	if current.OnBreak() {
		added := breakSeconds(*current.BreakStart, now)
		updated, _, err := notes.CloseOpenBreakSegment(current.Notes, now)
		if err != nil {
			return shift.ShiftResponse{}, fmt.Errorf("failed to close break segment: %w", err)
		}
		current.Notes = updated
		current.BreakSeconds += added
		current.BreakStart = nil
	}

	current.ClockOut = &now

	if err := s.ShiftRepository.Update(ctx, current); err != nil {
		return shift.ShiftResponse{}, fmt.Errorf("failed to close shift: %w", err)
	}

	return shift.ToShiftResponse(current), nil
}

// StartBreak implements shift.ShiftService.
func (s *ShiftServiceImpl) StartBreak(ctx context.Context) (shift.ShiftResponse, error) {
	actor, err := identity.FromContext(ctx)
	if err != nil {
		return shift.ShiftResponse{}, err
	}

	open, err := s.ShiftRepository.GetOpenByTechnician(ctx, actor.TechnicianID)
	if err != nil {
		return shift.ShiftResponse{}, fmt.Errorf("failed to get open shift: %w", err)
	}
	if open == nil {
		return shift.ShiftResponse{}, shift.ErrNotClockedIn
	}
	if open.OnBreak() {
		return shift.ShiftResponse{}, shift.ErrAlreadyOnBreak
	}

	now := s.nowFn().UTC()
	current := *open

	updated, err := notes.AppendBreakSegment(current.Notes, now)
	if err != nil {
		return shift.ShiftResponse{}, fmt.Errorf("failed to append break segment: %w", err)
	}
	current.Notes = updated
	current.BreakStart = &now

	if err := s.ShiftRepository.Update(ctx, current); err != nil {
		return shift.ShiftResponse{}, fmt.Errorf("failed to start break: %w", err)
	}

	return shift.ToShiftResponse(current), nil
}

// EndBreak implements shift.ShiftService.
func (s *ShiftServiceImpl) EndBreak(ctx context.Context) (shift.ShiftResponse, error) {
	actor, err := identity.FromContext(ctx)
	if err != nil {
		return shift.ShiftResponse{}, err
	}

	open, err := s.ShiftRepository.GetOpenByTechnician(ctx, actor.TechnicianID)
	if err != nil {
		return shift.ShiftResponse{}, fmt.Errorf("failed to get open shift: %w", err)
	}
	if open == nil {
		return shift.ShiftResponse{}, shift.ErrNotClockedIn
	}
	if !open.OnBreak() {
		return shift.ShiftResponse{}, shift.ErrNotOnBreak
	}

	now := s.nowFn().UTC()
	current := *open

	added := breakSeconds(*current.BreakStart, now)
	updated, _, err := notes.CloseOpenBreakSegment(current.Notes, now)
	if err != nil {
		return shift.ShiftResponse{}, fmt.Errorf("failed to close break segment: %w", err)
	}
	current.Notes = updated
	current.BreakSeconds += added
	current.BreakStart = nil

	if err := s.ShiftRepository.Update(ctx, current); err != nil {
		return shift.ShiftResponse{}, fmt.Errorf("failed to end break: %w", err)
	}

	return shift.ToShiftResponse(current), nil
}

// GetCurrent implements shift.ShiftService.
func (s *ShiftServiceImpl) GetCurrent(ctx context.Context) (shift.ShiftResponse, error) {
	actor, err := identity.FromContext(ctx)
	if err != nil {
		return shift.ShiftResponse{}, err
	}

	open, err := s.ShiftRepository.GetOpenByTechnician(ctx, actor.TechnicianID)
	if err != nil {
		return shift.ShiftResponse{}, fmt.Errorf("failed to get open shift: %w", err)
	}
	if open == nil {
		return shift.ShiftResponse{}, shift.ErrNotClockedIn
	}

	return shift.ToShiftResponse(*open), nil
}

// ListMyShifts implements shift.ShiftService.
func (s *ShiftServiceImpl) ListMyShifts(ctx context.Context, filter shift.ShiftFilter) (shift.ListShiftsResponse, error) {
	if err := filter.Validate(); err != nil {
		return shift.ListShiftsResponse{}, err
	}

	actor, err := identity.FromContext(ctx)
	if err != nil {
		return shift.ListShiftsResponse{}, err
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	if filter.SortOrder == "" {
		filter.SortOrder = "desc"
	}

	shifts, total, err := s.ShiftRepository.ListByTechnician(ctx, actor.TechnicianID, filter)
	if err != nil {
		return shift.ListShiftsResponse{}, fmt.Errorf("failed to list shifts: %w", err)
	}

	responses := make([]shift.ShiftResponse, 0, len(shifts))
	for _, sh := range shifts {
		responses = append(responses, shift.ToShiftResponse(sh))
	}

	return shift.ListShiftsResponse{
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.Limit))),
		Shifts:     responses,
	}, nil
}

// Adjust implements shift.ShiftService.
func (s *ShiftServiceImpl) Adjust(ctx context.Context, req shift.AdjustShiftRequest) (shift.ShiftResponse, error) {
	if err := req.Validate(); err != nil {
		return shift.ShiftResponse{}, err
	}

	actor, err := identity.FromContext(ctx)
	if err != nil {
		return shift.ShiftResponse{}, err
	}
	if !actor.Role.Privileged() {
		return shift.ShiftResponse{}, identity.ErrForbidden
	}

	current, err := s.ShiftRepository.GetByID(ctx, req.ShiftID)
	if err != nil {
		return shift.ShiftResponse{}, err
	}

	// Supervisors are pinned to their own business unit; admins are not.
	if !actor.Role.Global() {
		if current.BusinessUnitID == nil || *current.BusinessUnitID != actor.BusinessUnitID {
			return shift.ShiftResponse{}, identity.ErrForbidden
		}
	}

	now := s.nowFn().UTC()
	changes := make(map[string]notes.FieldChange)

	if req.ClockIn != nil {
		clockIn, _ := time.Parse(time.RFC3339, *req.ClockIn)
		changes["clock_in"] = notes.FieldChange{
			From: current.ClockIn.UTC().Format(time.RFC3339),
			To:   clockIn.UTC().Format(time.RFC3339),
		}
		current.ClockIn = clockIn.UTC()
	}
	if req.ClockOut != nil {
		clockOut, _ := time.Parse(time.RFC3339, *req.ClockOut)
		var from interface{}
		if current.ClockOut != nil {
			from = current.ClockOut.UTC().Format(time.RFC3339)
		}
		utc := clockOut.UTC()
		changes["clock_out"] = notes.FieldChange{From: from, To: utc.Format(time.RFC3339)}
		current.ClockOut = &utc
	}
	if req.BreakSeconds != nil {
		changes["break_seconds"] = notes.FieldChange{From: current.BreakSeconds, To: *req.BreakSeconds}
		current.BreakSeconds = *req.BreakSeconds
	}

	// An administrative edit discards any in-progress break rather than
	// folding it in; the corrected totals come from the request.
	if current.BreakStart != nil {
		changes["break_start"] = notes.FieldChange{
			From: current.BreakStart.UTC().Format(time.RFC3339),
			To:   nil,
		}
		updated, _, err := notes.CloseOpenBreakSegment(current.Notes, now)
		if err != nil {
			return shift.ShiftResponse{}, fmt.Errorf("failed to close break segment: %w", err)
		}
		current.Notes = updated
		current.BreakStart = nil
	}

	updated, err := notes.AppendAdjustment(current.Notes, notes.AdjustmentEntry{
		At:      now,
		By:      actor.TechnicianID,
		Reason:  req.Reason,
		Changes: changes,
	})
	if err != nil {
		return shift.ShiftResponse{}, fmt.Errorf("failed to append adjustment: %w", err)
	}
	current.Notes = updated

	if err := s.ShiftRepository.Update(ctx, current); err != nil {
		return shift.ShiftResponse{}, fmt.Errorf("failed to adjust shift: %w", err)
	}

	return shift.ToShiftResponse(current), nil
}

func breakSeconds(start, end time.Time) int64 {
	seconds := int64(end.Sub(start).Seconds())
	if seconds < 0 {
		return 0
	}
	return seconds
}

func NewShiftService(shiftRepo shift.ShiftRepository) shift.ShiftService {
	return &ShiftServiceImpl{
		ShiftRepository: shiftRepo,
		nowFn:           time.Now,
	}
}
