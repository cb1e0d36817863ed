package timer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fleetworks/workshop-backend-go/internal/config"
	"github.com/fleetworks/workshop-backend-go/internal/domain/identity"
	"github.com/fleetworks/workshop-backend-go/internal/domain/jobcard"
	"github.com/fleetworks/workshop-backend-go/internal/domain/shift"
	"github.com/fleetworks/workshop-backend-go/internal/domain/timer"
	"github.com/fleetworks/workshop-backend-go/internal/pkg/locker"
	"github.com/fleetworks/workshop-backend-go/internal/service/status"
)

// TxRunner executes fn atomically. The production runner wraps a database
// transaction; tests substitute a pass-through.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

type TimerServiceImpl struct {
	timer.WorkSegmentRepository
	jobcard.AssignmentRepository
	jobcard.JobCardRepository
	shiftRepo shift.ShiftRepository
	locker    locker.Locker
	engine    *status.Engine
	tx        TxRunner
	cfg       config.WorkflowConfig
	logger    *slog.Logger
	nowFn     func() time.Time
}

func lockKey(technicianID string) string {
	return "timer:start:" + technicianID
}

// acquireLock serializes timer starts per technician. A backend failure is
// logged and treated as acquired: losing serialization briefly beats turning
// every start into an error.
func (t *TimerServiceImpl) acquireLock(ctx context.Context, technicianID string) (func(), error) {
	key := lockKey(technicianID)
	ok, err := t.locker.Acquire(key, t.cfg.TimerLockTTL)
	if err != nil {
		t.logger.WarnContext(ctx, "lock backend unavailable, proceeding unserialized",
			slog.String("key", key), slog.Any("error", err))
		return func() {}, nil
	}
	if !ok {
		return nil, timer.ErrLockNotAcquired
	}
	return func() { t.locker.Release(key) }, nil
}

// checkStartPreconditions re-derives the full chain shared by Start and
// Resume. It returns the live assignment the new segment will run against.
func (t *TimerServiceImpl) checkStartPreconditions(ctx context.Context, actor identity.Actor, assignmentID string) (jobcard.Assignment, error) {
	open, err := t.shiftRepo.GetOpenByTechnician(ctx, actor.TechnicianID)
	if err != nil {
		return jobcard.Assignment{}, fmt.Errorf("failed to check open shift: %w", err)
	}
	if open == nil {
		return jobcard.Assignment{}, timer.ErrNotClockedIn
	}
	if open.OnBreak() {
		return jobcard.Assignment{}, timer.ErrOnBreak
	}

	assignment, err := t.AssignmentRepository.GetByID(ctx, assignmentID)
	if err != nil {
		return jobcard.Assignment{}, err
	}
	if assignment.TechnicianID != actor.TechnicianID {
		return jobcard.Assignment{}, identity.ErrForbidden
	}
	if !assignment.InFlight() {
		return jobcard.Assignment{}, jobcard.ErrAssignmentClosed
	}

	card, err := t.JobCardRepository.GetByID(ctx, assignment.JobCardID)
	if err != nil {
		return jobcard.Assignment{}, err
	}
	if !card.HasEstimate() {
		return jobcard.Assignment{}, timer.ErrMissingEstimate
	}

	if !t.cfg.MultiTaskingEnabled {
		active, err := t.WorkSegmentRepository.GetActiveByTechnician(ctx, actor.TechnicianID)
		if err != nil {
			return jobcard.Assignment{}, fmt.Errorf("failed to check active segments: %w", err)
		}
		if len(active) > 0 {
			return jobcard.Assignment{}, timer.ErrTimerAlreadyActive
		}
	}

	return assignment, nil
}

func (t *TimerServiceImpl) openSegment(ctx context.Context, actor identity.Actor, assignmentID string, segmentNotes *string) (timer.WorkSegment, error) {
	assignment, err := t.checkStartPreconditions(ctx, actor, assignmentID)
	if err != nil {
		return timer.WorkSegment{}, err
	}

	now := t.nowFn().UTC()
	var created timer.WorkSegment

	err = t.tx(ctx, func(ctx context.Context) error {
		created, err = t.WorkSegmentRepository.Create(ctx, timer.WorkSegment{
			AssignmentID: assignment.ID,
			TechnicianID: actor.TechnicianID,
			JobCardID:    assignment.JobCardID,
			StartTime:    now,
			Status:       timer.SegmentActive,
			Notes:        segmentNotes,
		})
		if err != nil {
			return fmt.Errorf("failed to create work segment: %w", err)
		}

		if assignment.Status == jobcard.AssignmentAssigned {
			assignment.Status = jobcard.AssignmentInProgress
			assignment.StartedAt = &now
			if err := t.AssignmentRepository.Update(ctx, assignment); err != nil {
				return fmt.Errorf("failed to update assignment: %w", err)
			}
			if _, err := t.engine.Recompute(ctx, assignment.JobCardID); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return timer.WorkSegment{}, err
	}

	return created, nil
}

// Start implements timer.TimerService.
func (t *TimerServiceImpl) Start(ctx context.Context, req timer.StartTimerRequest) (timer.SegmentResponse, error) {
	if err := req.Validate(); err != nil {
		return timer.SegmentResponse{}, err
	}

	actor, err := identity.FromContext(ctx)
	if err != nil {
		return timer.SegmentResponse{}, err
	}

	release, err := t.acquireLock(ctx, actor.TechnicianID)
	if err != nil {
		return timer.SegmentResponse{}, err
	}
	defer release()

	created, err := t.openSegment(ctx, actor, req.AssignmentID, req.Notes)
	if err != nil {
		return timer.SegmentResponse{}, err
	}

	return timer.ToSegmentResponse(created), nil
}

// Resume implements timer.TimerService. The paused segment stays closed;
// resuming opens a fresh segment against the same assignment after the same
// precondition chain as Start.
func (t *TimerServiceImpl) Resume(ctx context.Context, pausedSegmentID string) (timer.SegmentResponse, error) {
	actor, err := identity.FromContext(ctx)
	if err != nil {
		return timer.SegmentResponse{}, err
	}

	paused, err := t.WorkSegmentRepository.GetByID(ctx, pausedSegmentID)
	if err != nil {
		return timer.SegmentResponse{}, err
	}
	if paused.TechnicianID != actor.TechnicianID {
		return timer.SegmentResponse{}, identity.ErrForbidden
	}
	if paused.Status != timer.SegmentPaused {
		return timer.SegmentResponse{}, timer.ErrInvalidWorkflowState
	}

	release, err := t.acquireLock(ctx, actor.TechnicianID)
	if err != nil {
		return timer.SegmentResponse{}, err
	}
	defer release()

	created, err := t.openSegment(ctx, actor, paused.AssignmentID, paused.Notes)
	if err != nil {
		return timer.SegmentResponse{}, err
	}

	return timer.ToSegmentResponse(created), nil
}

func (t *TimerServiceImpl) closeSegment(ctx context.Context, segmentID string, final timer.SegmentStatus) (timer.WorkSegment, error) {
	actor, err := identity.FromContext(ctx)
	if err != nil {
		return timer.WorkSegment{}, err
	}

	segment, err := t.WorkSegmentRepository.GetByID(ctx, segmentID)
	if err != nil {
		return timer.WorkSegment{}, err
	}
	if segment.TechnicianID != actor.TechnicianID && !actor.Role.Privileged() {
		return timer.WorkSegment{}, identity.ErrForbidden
	}
	if segment.Status != timer.SegmentActive {
		return timer.WorkSegment{}, timer.ErrInvalidWorkflowState
	}

	now := t.nowFn().UTC()
	duration := int64(now.Sub(segment.StartTime).Seconds())
	if duration < 0 {
		duration = 0
	}

	err = t.tx(ctx, func(ctx context.Context) error {
		if err := t.WorkSegmentRepository.Close(ctx, segment.ID, now, duration, final); err != nil {
			return err
		}

		if final != timer.SegmentFinished {
			return nil
		}

		assignment, err := t.AssignmentRepository.GetByID(ctx, segment.AssignmentID)
		if err != nil {
			return err
		}
		assignment.Status = jobcard.AssignmentCompleted
		assignment.CompletedAt = &now
		if err := t.AssignmentRepository.Update(ctx, assignment); err != nil {
			return fmt.Errorf("failed to complete assignment: %w", err)
		}

		_, err = t.engine.Recompute(ctx, assignment.JobCardID)
		return err
	})
	if err != nil {
		return timer.WorkSegment{}, err
	}

	segment.EndTime = &now
	segment.DurationSeconds = &duration
	segment.Status = final
	return segment, nil
}

// Pause implements timer.TimerService. The assignment stays in progress.
func (t *TimerServiceImpl) Pause(ctx context.Context, segmentID string) (timer.SegmentResponse, error) {
	segment, err := t.closeSegment(ctx, segmentID, timer.SegmentPaused)
	if err != nil {
		return timer.SegmentResponse{}, err
	}
	return timer.ToSegmentResponse(segment), nil
}

// Stop implements timer.TimerService. Stopping completes the assignment and
// triggers status propagation on the parent job card.
func (t *TimerServiceImpl) Stop(ctx context.Context, segmentID string) (timer.SegmentResponse, error) {
	segment, err := t.closeSegment(ctx, segmentID, timer.SegmentFinished)
	if err != nil {
		return timer.SegmentResponse{}, err
	}
	return timer.ToSegmentResponse(segment), nil
}

// GetActive implements timer.TimerService.
func (t *TimerServiceImpl) GetActive(ctx context.Context) ([]timer.SegmentResponse, error) {
	actor, err := identity.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	active, err := t.WorkSegmentRepository.GetActiveByTechnician(ctx, actor.TechnicianID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active segments: %w", err)
	}

	responses := make([]timer.SegmentResponse, 0, len(active))
	for _, s := range active {
		responses = append(responses, timer.ToSegmentResponse(s))
	}
	return responses, nil
}

// ListByAssignment implements timer.TimerService.
func (t *TimerServiceImpl) ListByAssignment(ctx context.Context, assignmentID string) ([]timer.SegmentResponse, error) {
	actor, err := identity.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	assignment, err := t.AssignmentRepository.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.TechnicianID != actor.TechnicianID && !actor.Role.Privileged() {
		return nil, identity.ErrForbidden
	}

	segments, err := t.WorkSegmentRepository.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}

	responses := make([]timer.SegmentResponse, 0, len(segments))
	for _, s := range segments {
		responses = append(responses, timer.ToSegmentResponse(s))
	}
	return responses, nil
}

func NewTimerService(
	segmentRepo timer.WorkSegmentRepository,
	assignmentRepo jobcard.AssignmentRepository,
	jobCardRepo jobcard.JobCardRepository,
	shiftRepo shift.ShiftRepository,
	lock locker.Locker,
	engine *status.Engine,
	tx TxRunner,
	cfg config.WorkflowConfig,
	logger *slog.Logger,
) timer.TimerService {
	return &TimerServiceImpl{
		WorkSegmentRepository: segmentRepo,
		AssignmentRepository:  assignmentRepo,
		JobCardRepository:     jobCardRepo,
		shiftRepo:             shiftRepo,
		locker:                lock,
		engine:                engine,
		tx:                    tx,
		cfg:                   cfg,
		logger:                logger,
		nowFn:                 time.Now,
	}
}
