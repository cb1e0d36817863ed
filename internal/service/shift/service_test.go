package shift

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fleetworks/workshop-backend-go/internal/domain/identity"
	"github.com/fleetworks/workshop-backend-go/internal/domain/shift"
	"github.com/fleetworks/workshop-backend-go/internal/pkg/notes"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeShiftRepo struct {
	shifts map[string]shift.Shift
	seq    int
}

func newFakeShiftRepo() *fakeShiftRepo {
	return &fakeShiftRepo{shifts: make(map[string]shift.Shift)}
}

func (f *fakeShiftRepo) Create(_ context.Context, s shift.Shift) (shift.Shift, error) {
	f.seq++
	s.ID = fmt.Sprintf("shift-%d", f.seq)
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	f.shifts[s.ID] = s
	return s, nil
}

func (f *fakeShiftRepo) GetByID(_ context.Context, id string) (shift.Shift, error) {
	s, ok := f.shifts[id]
	if !ok {
		return shift.Shift{}, shift.ErrShiftNotFound
	}
	return s, nil
}

func (f *fakeShiftRepo) GetOpenByTechnician(_ context.Context, technicianID string) (*shift.Shift, error) {
	for _, s := range f.shifts {
		if s.TechnicianID == technicianID && s.ClockOut == nil {
			open := s
			return &open, nil
		}
	}
	return nil, nil
}

func (f *fakeShiftRepo) Update(_ context.Context, s shift.Shift) error {
	if _, ok := f.shifts[s.ID]; !ok {
		return shift.ErrShiftNotFound
	}
	f.shifts[s.ID] = s
	return nil
}

func (f *fakeShiftRepo) ListByTechnician(_ context.Context, technicianID string, _ shift.ShiftFilter) ([]shift.Shift, int64, error) {
	var out []shift.Shift
	for _, s := range f.shifts {
		if s.TechnicianID == technicianID {
			out = append(out, s)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeShiftRepo) ListStaleOpen(_ context.Context, cutoff time.Time) ([]shift.Shift, error) {
	var out []shift.Shift
	for _, s := range f.shifts {
		if s.ClockOut == nil && s.ClockIn.Before(cutoff) {
			out = append(out, s)
		}
	}
	return out, nil
}

func actorContext(t *testing.T, technicianID string, role identity.Role, businessUnitID string) context.Context {
	t.Helper()
	tok := jwt.New()
	require.NoError(t, tok.Set("technician_id", technicianID))
	require.NoError(t, tok.Set("role", string(role)))
	if businessUnitID != "" {
		require.NoError(t, tok.Set("business_unit_id", businessUnitID))
	}
	return jwtauth.NewContext(context.Background(), tok, nil)
}

func newTestService(repo *fakeShiftRepo, now *time.Time) *ShiftServiceImpl {
	return &ShiftServiceImpl{
		ShiftRepository: repo,
		nowFn:           func() time.Time { return *now },
	}
}

func TestClockInRejectsSecondShift(t *testing.T) {
	repo := newFakeShiftRepo()
	now := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	svc := newTestService(repo, &now)
	ctx := actorContext(t, "tech-1", identity.RoleTechnician, "bu-1")

	resp, err := svc.ClockIn(ctx, shift.ClockInRequest{})
	require.NoError(t, err)
	assert.Equal(t, "tech-1", resp.TechnicianID)
	assert.Nil(t, resp.ClockOut)
	require.NotNil(t, resp.BusinessUnitID)
	assert.Equal(t, "bu-1", *resp.BusinessUnitID)

	_, err = svc.ClockIn(ctx, shift.ClockInRequest{})
	assert.ErrorIs(t, err, shift.ErrAlreadyClockedIn)
}

func TestBreakAccounting(t *testing.T) {
	repo := newFakeShiftRepo()
	start := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	now := start
	svc := newTestService(repo, &now)
	ctx := actorContext(t, "tech-1", identity.RoleTechnician, "bu-1")

	_, err := svc.ClockIn(ctx, shift.ClockInRequest{})
	require.NoError(t, err)

	now = start.Add(10 * time.Minute)
	resp, err := svc.StartBreak(ctx)
	require.NoError(t, err)
	assert.True(t, resp.OnBreak)

	now = start.Add(15 * time.Minute)
	resp, err = svc.EndBreak(ctx)
	require.NoError(t, err)
	assert.False(t, resp.OnBreak)
	assert.Equal(t, int64(300), resp.BreakSeconds)

	now = start.Add(60 * time.Minute)
	resp, err = svc.ClockOut(ctx)
	require.NoError(t, err)
	require.NotNil(t, resp.TotalHours)
	assert.Equal(t, "0.92", *resp.TotalHours)

	require.Len(t, resp.Breaks, 1)
	require.NotNil(t, resp.Breaks[0].DurationSeconds)
	assert.Equal(t, int64(300), *resp.Breaks[0].DurationSeconds)
}

func TestBreakStateTransitions(t *testing.T) {
	repo := newFakeShiftRepo()
	now := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	svc := newTestService(repo, &now)
	ctx := actorContext(t, "tech-1", identity.RoleTechnician, "")

	_, err := svc.StartBreak(ctx)
	assert.ErrorIs(t, err, shift.ErrNotClockedIn)

	_, err = svc.ClockOut(ctx)
	assert.ErrorIs(t, err, shift.ErrNotClockedIn)

	_, err = svc.ClockIn(ctx, shift.ClockInRequest{})
	require.NoError(t, err)

	_, err = svc.EndBreak(ctx)
	assert.ErrorIs(t, err, shift.ErrNotOnBreak)

	_, err = svc.StartBreak(ctx)
	require.NoError(t, err)

	_, err = svc.StartBreak(ctx)
	assert.ErrorIs(t, err, shift.ErrAlreadyOnBreak)
}

func TestClockOutFoldsOpenBreak(t *testing.T) {
	repo := newFakeShiftRepo()
	start := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	now := start
	svc := newTestService(repo, &now)
	ctx := actorContext(t, "tech-1", identity.RoleTechnician, "")

	_, err := svc.ClockIn(ctx, shift.ClockInRequest{})
	require.NoError(t, err)

	now = start.Add(30 * time.Minute)
	_, err = svc.StartBreak(ctx)
	require.NoError(t, err)

	// Clock out mid-break: the open break closes at clock-out time.
	now = start.Add(40 * time.Minute)
	resp, err := svc.ClockOut(ctx)
	require.NoError(t, err)
	assert.False(t, resp.OnBreak)
	assert.Equal(t, int64(600), resp.BreakSeconds)
	require.Len(t, resp.Breaks, 1)
	require.NotNil(t, resp.Breaks[0].EndTime)
}

func TestGetCurrent(t *testing.T) {
	repo := newFakeShiftRepo()
	now := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	svc := newTestService(repo, &now)
	ctx := actorContext(t, "tech-1", identity.RoleTechnician, "")

	_, err := svc.GetCurrent(ctx)
	assert.ErrorIs(t, err, shift.ErrNotClockedIn)

	created, err := svc.ClockIn(ctx, shift.ClockInRequest{})
	require.NoError(t, err)

	current, err := svc.GetCurrent(ctx)
	require.NoError(t, err)
	assert.Equal(t, created.ID, current.ID)
}

func TestAdjustAuthorization(t *testing.T) {
	repo := newFakeShiftRepo()
	now := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	svc := newTestService(repo, &now)

	techCtx := actorContext(t, "tech-1", identity.RoleTechnician, "bu-1")
	_, err := svc.ClockIn(techCtx, shift.ClockInRequest{})
	require.NoError(t, err)

	req := shift.AdjustShiftRequest{ShiftID: "shift-1", Reason: "missed clock out"}

	_, err = svc.Adjust(techCtx, req)
	assert.ErrorIs(t, err, identity.ErrForbidden)

	otherUnit := actorContext(t, "sup-9", identity.RoleSupervisor, "bu-2")
	_, err = svc.Adjust(otherUnit, req)
	assert.ErrorIs(t, err, identity.ErrForbidden)

	sameUnit := actorContext(t, "sup-1", identity.RoleSupervisor, "bu-1")
	_, err = svc.Adjust(sameUnit, req)
	assert.NoError(t, err)

	admin := actorContext(t, "admin-1", identity.RoleAdmin, "")
	_, err = svc.Adjust(admin, req)
	assert.NoError(t, err)
}

func TestAdjustAppendsAuditTrail(t *testing.T) {
	repo := newFakeShiftRepo()
	start := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	now := start
	svc := newTestService(repo, &now)

	techCtx := actorContext(t, "tech-1", identity.RoleTechnician, "bu-1")
	_, err := svc.ClockIn(techCtx, shift.ClockInRequest{})
	require.NoError(t, err)

	now = start.Add(10 * time.Minute)
	_, err = svc.StartBreak(techCtx)
	require.NoError(t, err)

	now = start.Add(9 * time.Hour)
	clockOut := now.Format(time.RFC3339)
	breakSeconds := int64(1800)
	adminCtx := actorContext(t, "admin-1", identity.RoleAdmin, "")
	resp, err := svc.Adjust(adminCtx, shift.AdjustShiftRequest{
		ShiftID:      "shift-1",
		ClockOut:     &clockOut,
		BreakSeconds: &breakSeconds,
		Reason:       "forgot to clock out",
	})
	require.NoError(t, err)

	assert.False(t, resp.OnBreak, "adjust clears an in-progress break")
	assert.Equal(t, int64(1800), resp.BreakSeconds)
	require.NotNil(t, resp.ClockOut)

	stored, err := repo.GetByID(context.Background(), "shift-1")
	require.NoError(t, err)

	trail := notes.GetAdjustments(stored.Notes)
	require.Len(t, trail, 1)
	assert.Equal(t, "admin-1", trail[0].By)
	assert.Equal(t, "forgot to clock out", trail[0].Reason)
	assert.Contains(t, trail[0].Changes, "clock_out")
	assert.Contains(t, trail[0].Changes, "break_seconds")
	assert.Contains(t, trail[0].Changes, "break_start")

	// A second adjustment stacks rather than overwrites.
	reason := shift.AdjustShiftRequest{ShiftID: "shift-1", BreakSeconds: &breakSeconds, Reason: "double checked totals"}
	_, err = svc.Adjust(adminCtx, reason)
	require.NoError(t, err)

	stored, err = repo.GetByID(context.Background(), "shift-1")
	require.NoError(t, err)
	assert.Len(t, notes.GetAdjustments(stored.Notes), 2)
}

func TestAdjustValidation(t *testing.T) {
	repo := newFakeShiftRepo()
	now := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	svc := newTestService(repo, &now)
	adminCtx := actorContext(t, "admin-1", identity.RoleAdmin, "")

	_, err := svc.Adjust(adminCtx, shift.AdjustShiftRequest{ShiftID: "shift-1", Reason: "x"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, shift.ErrShiftNotFound), "validation must run before lookup")
}
