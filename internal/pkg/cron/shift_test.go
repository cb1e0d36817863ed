package cron

import (
	"context"
	"testing"
	"time"

	"github.com/fleetworks/workshop-backend-go/internal/config"
	"github.com/fleetworks/workshop-backend-go/internal/domain/shift"
	"github.com/fleetworks/workshop-backend-go/internal/pkg/notes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeShiftRepo struct {
	shifts map[string]shift.Shift
}

func (f *fakeShiftRepo) Create(_ context.Context, s shift.Shift) (shift.Shift, error) {
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

func (f *fakeShiftRepo) ListByTechnician(_ context.Context, _ string, _ shift.ShiftFilter) ([]shift.Shift, int64, error) {
	return nil, 0, nil
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

func TestAutoCloseStaleShifts(t *testing.T) {
	now := time.Date(2025, 6, 3, 6, 0, 0, 0, time.UTC)
	staleClockIn := now.Add(-20 * time.Hour)
	freshClockIn := now.Add(-2 * time.Hour)

	repo := &fakeShiftRepo{shifts: map[string]shift.Shift{
		"stale": {ID: "stale", TechnicianID: "tech-1", ClockIn: staleClockIn},
		"fresh": {ID: "fresh", TechnicianID: "tech-2", ClockIn: freshClockIn},
	}}

	jobs := NewShiftJobs(repo, config.WorkflowConfig{MaxShiftHours: 16, JanitorInterval: 15 * time.Minute})
	jobs.nowFn = func() time.Time { return now }

	require.NoError(t, jobs.AutoCloseStaleShifts(context.Background()))

	stale := repo.shifts["stale"]
	require.NotNil(t, stale.ClockOut)
	assert.Equal(t, staleClockIn.Add(16*time.Hour), *stale.ClockOut)

	trail := notes.GetAdjustments(stale.Notes)
	require.Len(t, trail, 1)
	assert.Equal(t, JanitorActor, trail[0].By)
	assert.Contains(t, trail[0].Changes, "clock_out")

	fresh := repo.shifts["fresh"]
	assert.Nil(t, fresh.ClockOut, "fresh shifts are left alone")
}

func TestAutoCloseFoldsOpenBreak(t *testing.T) {
	now := time.Date(2025, 6, 3, 6, 0, 0, 0, time.UTC)
	clockIn := now.Add(-20 * time.Hour)
	breakStart := clockIn.Add(4 * time.Hour)

	breakNotes, err := notes.AppendBreakSegment("", breakStart)
	require.NoError(t, err)

	repo := &fakeShiftRepo{shifts: map[string]shift.Shift{
		"stale": {
			ID: "stale", TechnicianID: "tech-1", ClockIn: clockIn,
			BreakStart: &breakStart, Notes: breakNotes,
		},
	}}

	jobs := NewShiftJobs(repo, config.WorkflowConfig{MaxShiftHours: 16, JanitorInterval: 15 * time.Minute})
	jobs.nowFn = func() time.Time { return now }

	require.NoError(t, jobs.AutoCloseStaleShifts(context.Background()))

	s := repo.shifts["stale"]
	require.NotNil(t, s.ClockOut)
	assert.Nil(t, s.BreakStart)
	// Break runs from clock-in+4h to the forced clock-out at clock-in+16h.
	assert.Equal(t, int64(12*3600), s.BreakSeconds)

	trail := notes.GetAdjustments(s.Notes)
	require.Len(t, trail, 1)
	assert.Contains(t, trail[0].Changes, "break_start")
}

func TestIdleJanitorRun(t *testing.T) {
	repo := &fakeShiftRepo{shifts: map[string]shift.Shift{}}
	jobs := NewShiftJobs(repo, config.WorkflowConfig{MaxShiftHours: 16, JanitorInterval: 15 * time.Minute})

	assert.NoError(t, jobs.AutoCloseStaleShifts(context.Background()))
}
