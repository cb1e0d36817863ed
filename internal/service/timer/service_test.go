package timer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/fleetworks/workshop-backend-go/internal/config"
	"github.com/fleetworks/workshop-backend-go/internal/domain/identity"
	"github.com/fleetworks/workshop-backend-go/internal/domain/jobcard"
	"github.com/fleetworks/workshop-backend-go/internal/domain/shift"
	"github.com/fleetworks/workshop-backend-go/internal/domain/timer"
	"github.com/fleetworks/workshop-backend-go/internal/pkg/locker"
	"github.com/fleetworks/workshop-backend-go/internal/service/status"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSegmentRepo struct {
	mu       sync.Mutex
	segments map[string]timer.WorkSegment
	seq      int
}

func newFakeSegmentRepo() *fakeSegmentRepo {
	return &fakeSegmentRepo{segments: make(map[string]timer.WorkSegment)}
}

func (f *fakeSegmentRepo) Create(_ context.Context, s timer.WorkSegment) (timer.WorkSegment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	s.ID = fmt.Sprintf("seg-%d", f.seq)
	f.segments[s.ID] = s
	return s, nil
}

func (f *fakeSegmentRepo) GetByID(_ context.Context, id string) (timer.WorkSegment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.segments[id]
	if !ok {
		return timer.WorkSegment{}, timer.ErrSegmentNotFound
	}
	return s, nil
}

func (f *fakeSegmentRepo) GetActiveByTechnician(_ context.Context, technicianID string) ([]timer.WorkSegment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []timer.WorkSegment
	for _, s := range f.segments {
		if s.TechnicianID == technicianID && s.Status == timer.SegmentActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSegmentRepo) Close(_ context.Context, id string, endTime time.Time, durationSeconds int64, status timer.SegmentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.segments[id]
	if !ok || s.Status != timer.SegmentActive {
		return timer.ErrInvalidWorkflowState
	}
	s.EndTime = &endTime
	s.DurationSeconds = &durationSeconds
	s.Status = status
	f.segments[id] = s
	return nil
}

func (f *fakeSegmentRepo) ListByAssignment(_ context.Context, assignmentID string) ([]timer.WorkSegment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []timer.WorkSegment
	for _, s := range f.segments {
		if s.AssignmentID == assignmentID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSegmentRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.segments)
}

type fakeAssignmentRepo struct {
	mu          sync.Mutex
	assignments map[string]jobcard.Assignment
}

func (f *fakeAssignmentRepo) GetByID(_ context.Context, id string) (jobcard.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assignments[id]
	if !ok {
		return jobcard.Assignment{}, jobcard.ErrAssignmentNotFound
	}
	return a, nil
}

func (f *fakeAssignmentRepo) ListByJobCard(_ context.Context, jobCardID string) ([]jobcard.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []jobcard.Assignment
	for _, a := range f.assignments {
		if a.JobCardID == jobCardID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAssignmentRepo) Update(_ context.Context, a jobcard.Assignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.assignments[a.ID]; !ok {
		return jobcard.ErrAssignmentNotFound
	}
	f.assignments[a.ID] = a
	return nil
}

type fakeJobCardRepo struct {
	mu    sync.Mutex
	cards map[string]jobcard.JobCard
}

func (f *fakeJobCardRepo) GetByID(_ context.Context, id string) (jobcard.JobCard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cards[id]
	if !ok {
		return jobcard.JobCard{}, jobcard.ErrJobCardNotFound
	}
	return c, nil
}

func (f *fakeJobCardRepo) UpdateStatus(_ context.Context, id string, s jobcard.JobCardStatus, completedAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cards[id]
	if !ok {
		return jobcard.ErrJobCardNotFound
	}
	c.Status = s
	c.CompletedAt = completedAt
	f.cards[id] = c
	return nil
}

type fakeShiftRepo struct {
	open map[string]shift.Shift
}

func (f *fakeShiftRepo) Create(_ context.Context, s shift.Shift) (shift.Shift, error) {
	return s, nil
}

func (f *fakeShiftRepo) GetByID(_ context.Context, id string) (shift.Shift, error) {
	return shift.Shift{}, shift.ErrShiftNotFound
}

func (f *fakeShiftRepo) GetOpenByTechnician(_ context.Context, technicianID string) (*shift.Shift, error) {
	s, ok := f.open[technicianID]
	if !ok {
		return nil, nil
	}
	open := s
	return &open, nil
}

func (f *fakeShiftRepo) Update(_ context.Context, s shift.Shift) error {
	f.open[s.TechnicianID] = s
	return nil
}

func (f *fakeShiftRepo) ListByTechnician(_ context.Context, _ string, _ shift.ShiftFilter) ([]shift.Shift, int64, error) {
	return nil, 0, nil
}

func (f *fakeShiftRepo) ListStaleOpen(_ context.Context, _ time.Time) ([]shift.Shift, error) {
	return nil, nil
}

type failingLocker struct{}

func (failingLocker) Acquire(string, time.Duration) (bool, error) {
	return false, errors.New("backend unreachable")
}
func (failingLocker) Release(string) {}

type contendedLocker struct{}

func (contendedLocker) Acquire(string, time.Duration) (bool, error) { return false, nil }
func (contendedLocker) Release(string)                              {}

func actorContext(t *testing.T, technicianID string, role identity.Role) context.Context {
	t.Helper()
	tok := jwt.New()
	require.NoError(t, tok.Set("technician_id", technicianID))
	require.NoError(t, tok.Set("role", string(role)))
	return jwtauth.NewContext(context.Background(), tok, nil)
}

type fixture struct {
	svc         *TimerServiceImpl
	segments    *fakeSegmentRepo
	assignments *fakeAssignmentRepo
	cards       *fakeJobCardRepo
	shifts      *fakeShiftRepo
	now         *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	estimate := 2.5
	cards := &fakeJobCardRepo{cards: map[string]jobcard.JobCard{
		"card-1": {ID: "card-1", Title: "brake overhaul", Status: jobcard.JobCardOpen, EstimatedHours: &estimate},
	}}
	assignments := &fakeAssignmentRepo{assignments: map[string]jobcard.Assignment{
		"asg-1": {ID: "asg-1", JobCardID: "card-1", TechnicianID: "tech-1", Status: jobcard.AssignmentAssigned},
	}}
	clockIn := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	shifts := &fakeShiftRepo{open: map[string]shift.Shift{
		"tech-1": {ID: "shift-1", TechnicianID: "tech-1", ClockIn: clockIn},
	}}
	segments := newFakeSegmentRepo()

	now := clockIn.Add(time.Hour)
	engine := status.NewEngine(cards, assignments, nil)

	svc := &TimerServiceImpl{
		WorkSegmentRepository: segments,
		AssignmentRepository:  assignments,
		JobCardRepository:     cards,
		shiftRepo:             shifts,
		locker:                locker.NewMemoryLocker(),
		engine:                engine,
		tx:                    func(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) },
		cfg:                   config.WorkflowConfig{TimerLockTTL: 5 * time.Second},
		logger:                slog.New(slog.NewTextHandler(io.Discard, nil)),
		nowFn:                 func() time.Time { return now },
	}

	return &fixture{svc: svc, segments: segments, assignments: assignments, cards: cards, shifts: shifts, now: &now}
}

func TestStartHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := actorContext(t, "tech-1", identity.RoleTechnician)

	resp, err := f.svc.Start(ctx, timer.StartTimerRequest{AssignmentID: "asg-1"})
	require.NoError(t, err)
	assert.Equal(t, string(timer.SegmentActive), resp.Status)
	assert.Equal(t, "card-1", resp.JobCardID)
	assert.Nil(t, resp.EndTime)

	asg, _ := f.assignments.GetByID(ctx, "asg-1")
	assert.Equal(t, jobcard.AssignmentInProgress, asg.Status)
	require.NotNil(t, asg.StartedAt)

	card, _ := f.cards.GetByID(ctx, "card-1")
	assert.Equal(t, jobcard.JobCardInProgress, card.Status)
}

func TestStartRequiresEstimate(t *testing.T) {
	f := newFixture(t)
	ctx := actorContext(t, "tech-1", identity.RoleTechnician)

	zero := 0.0
	f.cards.cards["card-1"] = jobcard.JobCard{ID: "card-1", Status: jobcard.JobCardOpen, EstimatedHours: &zero}

	_, err := f.svc.Start(ctx, timer.StartTimerRequest{AssignmentID: "asg-1"})
	assert.ErrorIs(t, err, timer.ErrMissingEstimate)

	assert.Equal(t, 0, f.segments.count(), "no segment on precondition failure")
	asg, _ := f.assignments.GetByID(ctx, "asg-1")
	assert.Equal(t, jobcard.AssignmentAssigned, asg.Status, "assignment untouched")
}

func TestStartShiftPreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := actorContext(t, "tech-1", identity.RoleTechnician)

	breakStart := f.now.Add(-5 * time.Minute)
	open := f.shifts.open["tech-1"]
	open.BreakStart = &breakStart
	f.shifts.open["tech-1"] = open

	_, err := f.svc.Start(ctx, timer.StartTimerRequest{AssignmentID: "asg-1"})
	assert.ErrorIs(t, err, timer.ErrOnBreak)

	delete(f.shifts.open, "tech-1")
	_, err = f.svc.Start(ctx, timer.StartTimerRequest{AssignmentID: "asg-1"})
	assert.ErrorIs(t, err, timer.ErrNotClockedIn)
}

func TestStartOwnershipAndLiveness(t *testing.T) {
	f := newFixture(t)

	otherCtx := actorContext(t, "tech-2", identity.RoleTechnician)
	f.shifts.open["tech-2"] = shift.Shift{ID: "shift-2", TechnicianID: "tech-2", ClockIn: f.now.Add(-time.Hour)}
	_, err := f.svc.Start(otherCtx, timer.StartTimerRequest{AssignmentID: "asg-1"})
	assert.ErrorIs(t, err, identity.ErrForbidden)

	ctx := actorContext(t, "tech-1", identity.RoleTechnician)
	_, err = f.svc.Start(ctx, timer.StartTimerRequest{AssignmentID: "missing"})
	assert.ErrorIs(t, err, jobcard.ErrAssignmentNotFound)

	asg := f.assignments.assignments["asg-1"]
	asg.Status = jobcard.AssignmentCancelled
	f.assignments.assignments["asg-1"] = asg
	_, err = f.svc.Start(ctx, timer.StartTimerRequest{AssignmentID: "asg-1"})
	assert.ErrorIs(t, err, jobcard.ErrAssignmentClosed)
}

func TestStartSecondTimerBlockedUnlessMultiTasking(t *testing.T) {
	f := newFixture(t)
	ctx := actorContext(t, "tech-1", identity.RoleTechnician)

	_, err := f.svc.Start(ctx, timer.StartTimerRequest{AssignmentID: "asg-1"})
	require.NoError(t, err)

	_, err = f.svc.Start(ctx, timer.StartTimerRequest{AssignmentID: "asg-1"})
	assert.ErrorIs(t, err, timer.ErrTimerAlreadyActive)

	f.svc.cfg.MultiTaskingEnabled = true
	_, err = f.svc.Start(ctx, timer.StartTimerRequest{AssignmentID: "asg-1"})
	assert.NoError(t, err)
}

func TestConcurrentStartsYieldOneActiveSegment(t *testing.T) {
	f := newFixture(t)
	ctx := actorContext(t, "tech-1", identity.RoleTechnician)

	const attempts = 16
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Start(ctx, timer.StartTimerRequest{AssignmentID: "asg-1"})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded int
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t,
			errors.Is(err, timer.ErrLockNotAcquired) || errors.Is(err, timer.ErrTimerAlreadyActive),
			"unexpected error: %v", err)
	}

	assert.Equal(t, 1, succeeded)
	active, err := f.segments.GetActiveByTechnician(ctx, "tech-1")
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestLockContentionSurfacesAsBusy(t *testing.T) {
	f := newFixture(t)
	f.svc.locker = contendedLocker{}
	ctx := actorContext(t, "tech-1", identity.RoleTechnician)

	_, err := f.svc.Start(ctx, timer.StartTimerRequest{AssignmentID: "asg-1"})
	assert.ErrorIs(t, err, timer.ErrLockNotAcquired)
}

func TestLockBackendFailureFailsOpen(t *testing.T) {
	f := newFixture(t)
	f.svc.locker = failingLocker{}
	ctx := actorContext(t, "tech-1", identity.RoleTechnician)

	_, err := f.svc.Start(ctx, timer.StartTimerRequest{AssignmentID: "asg-1"})
	assert.NoError(t, err)
}

func TestPauseFreezesWithoutCompleting(t *testing.T) {
	f := newFixture(t)
	ctx := actorContext(t, "tech-1", identity.RoleTechnician)

	started, err := f.svc.Start(ctx, timer.StartTimerRequest{AssignmentID: "asg-1"})
	require.NoError(t, err)

	*f.now = f.now.Add(90 * time.Second)
	paused, err := f.svc.Pause(ctx, started.ID)
	require.NoError(t, err)
	assert.Equal(t, string(timer.SegmentPaused), paused.Status)
	require.NotNil(t, paused.DurationSeconds)
	assert.Equal(t, int64(90), *paused.DurationSeconds)

	asg, _ := f.assignments.GetByID(ctx, "asg-1")
	assert.Equal(t, jobcard.AssignmentInProgress, asg.Status, "pause never completes the assignment")
}

func TestStopCompletesAssignmentAndCard(t *testing.T) {
	f := newFixture(t)
	ctx := actorContext(t, "tech-1", identity.RoleTechnician)

	started, err := f.svc.Start(ctx, timer.StartTimerRequest{AssignmentID: "asg-1"})
	require.NoError(t, err)

	*f.now = f.now.Add(45 * time.Minute)
	stopped, err := f.svc.Stop(ctx, started.ID)
	require.NoError(t, err)
	assert.Equal(t, string(timer.SegmentFinished), stopped.Status)
	require.NotNil(t, stopped.DurationSeconds)
	assert.Equal(t, int64(2700), *stopped.DurationSeconds)

	asg, _ := f.assignments.GetByID(ctx, "asg-1")
	assert.Equal(t, jobcard.AssignmentCompleted, asg.Status)
	require.NotNil(t, asg.CompletedAt)

	card, _ := f.cards.GetByID(ctx, "card-1")
	assert.Equal(t, jobcard.JobCardCompleted, card.Status)
	require.NotNil(t, card.CompletedAt)
}

func TestStopOnPausedSegmentFails(t *testing.T) {
	f := newFixture(t)
	ctx := actorContext(t, "tech-1", identity.RoleTechnician)

	started, err := f.svc.Start(ctx, timer.StartTimerRequest{AssignmentID: "asg-1"})
	require.NoError(t, err)

	*f.now = f.now.Add(60 * time.Second)
	paused, err := f.svc.Pause(ctx, started.ID)
	require.NoError(t, err)

	*f.now = f.now.Add(60 * time.Second)
	_, err = f.svc.Stop(ctx, started.ID)
	assert.ErrorIs(t, err, timer.ErrInvalidWorkflowState)

	// Frozen duration and assignment status are untouched.
	stored, err := f.segments.GetByID(ctx, started.ID)
	require.NoError(t, err)
	assert.Equal(t, *paused.DurationSeconds, *stored.DurationSeconds)
	asg, _ := f.assignments.GetByID(ctx, "asg-1")
	assert.Equal(t, jobcard.AssignmentInProgress, asg.Status)
}

func TestResumeOpensNewSegment(t *testing.T) {
	f := newFixture(t)
	ctx := actorContext(t, "tech-1", identity.RoleTechnician)

	started, err := f.svc.Start(ctx, timer.StartTimerRequest{AssignmentID: "asg-1"})
	require.NoError(t, err)

	*f.now = f.now.Add(10 * time.Minute)
	_, err = f.svc.Pause(ctx, started.ID)
	require.NoError(t, err)

	*f.now = f.now.Add(10 * time.Minute)
	resumed, err := f.svc.Resume(ctx, started.ID)
	require.NoError(t, err)
	assert.NotEqual(t, started.ID, resumed.ID, "resume creates a fresh segment")
	assert.Equal(t, started.AssignmentID, resumed.AssignmentID)
	assert.Equal(t, string(timer.SegmentActive), resumed.Status)

	// The paused segment stays closed.
	stored, err := f.segments.GetByID(ctx, started.ID)
	require.NoError(t, err)
	assert.Equal(t, timer.SegmentPaused, stored.Status)
}

func TestResumeRequiresPausedSegment(t *testing.T) {
	f := newFixture(t)
	ctx := actorContext(t, "tech-1", identity.RoleTechnician)

	started, err := f.svc.Start(ctx, timer.StartTimerRequest{AssignmentID: "asg-1"})
	require.NoError(t, err)

	_, err = f.svc.Resume(ctx, started.ID)
	assert.ErrorIs(t, err, timer.ErrInvalidWorkflowState)

	*f.now = f.now.Add(time.Minute)
	_, err = f.svc.Stop(ctx, started.ID)
	require.NoError(t, err)

	_, err = f.svc.Resume(ctx, started.ID)
	assert.ErrorIs(t, err, timer.ErrInvalidWorkflowState)
}

func TestResumeReChecksBreakState(t *testing.T) {
	f := newFixture(t)
	ctx := actorContext(t, "tech-1", identity.RoleTechnician)

	started, err := f.svc.Start(ctx, timer.StartTimerRequest{AssignmentID: "asg-1"})
	require.NoError(t, err)

	*f.now = f.now.Add(time.Minute)
	_, err = f.svc.Pause(ctx, started.ID)
	require.NoError(t, err)

	breakStart := *f.now
	open := f.shifts.open["tech-1"]
	open.BreakStart = &breakStart
	f.shifts.open["tech-1"] = open

	_, err = f.svc.Resume(ctx, started.ID)
	assert.ErrorIs(t, err, timer.ErrOnBreak)
}

func TestGetActiveAndListByAssignment(t *testing.T) {
	f := newFixture(t)
	ctx := actorContext(t, "tech-1", identity.RoleTechnician)

	started, err := f.svc.Start(ctx, timer.StartTimerRequest{AssignmentID: "asg-1"})
	require.NoError(t, err)

	active, err := f.svc.GetActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, started.ID, active[0].ID)

	segments, err := f.svc.ListByAssignment(ctx, "asg-1")
	require.NoError(t, err)
	assert.Len(t, segments, 1)

	otherCtx := actorContext(t, "tech-2", identity.RoleTechnician)
	_, err = f.svc.ListByAssignment(otherCtx, "asg-1")
	assert.ErrorIs(t, err, identity.ErrForbidden)

	supCtx := actorContext(t, "sup-1", identity.RoleSupervisor)
	_, err = f.svc.ListByAssignment(supCtx, "asg-1")
	assert.NoError(t, err)
}
