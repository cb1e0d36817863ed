package jobcard

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetworks/workshop-backend-go/internal/domain/identity"
	"github.com/fleetworks/workshop-backend-go/internal/domain/jobcard"
	"github.com/fleetworks/workshop-backend-go/internal/domain/timer"
	"github.com/fleetworks/workshop-backend-go/internal/service/status"
)

// TxRunner executes fn atomically. The production runner wraps a database
// transaction; tests substitute a pass-through.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

type JobCardServiceImpl struct {
	jobcard.JobCardRepository
	jobcard.AssignmentRepository
	segmentRepo timer.WorkSegmentRepository
	engine      *status.Engine
	tx          TxRunner
	nowFn       func() time.Time
}

// authorize enforces the business-unit scope for administrative operations.
func authorize(actor identity.Actor, card jobcard.JobCard) error {
	if !actor.Role.Privileged() {
		return identity.ErrForbidden
	}
	if actor.Role.Global() {
		return nil
	}
	if card.BusinessUnitID != nil && *card.BusinessUnitID == actor.BusinessUnitID {
		return nil
	}
	return identity.ErrForbidden
}

// GetJobCard implements jobcard.JobCardService.
func (j *JobCardServiceImpl) GetJobCard(ctx context.Context, id string) (jobcard.JobCardResponse, error) {
	actor, err := identity.FromContext(ctx)
	if err != nil {
		return jobcard.JobCardResponse{}, err
	}

	card, err := j.JobCardRepository.GetByID(ctx, id)
	if err != nil {
		return jobcard.JobCardResponse{}, err
	}

	assignments, err := j.AssignmentRepository.ListByJobCard(ctx, id)
	if err != nil {
		return jobcard.JobCardResponse{}, fmt.Errorf("failed to list assignments: %w", err)
	}

	// Technicians may only read cards they hold an assignment on.
	if !actor.Role.Privileged() {
		assigned := false
		for _, a := range assignments {
			if a.TechnicianID == actor.TechnicianID {
				assigned = true
				break
			}
		}
		if !assigned {
			return jobcard.JobCardResponse{}, identity.ErrForbidden
		}
	} else if err := authorize(actor, card); err != nil {
		return jobcard.JobCardResponse{}, err
	}

	responses := make([]jobcard.AssignmentResponse, 0, len(assignments))
	for _, a := range assignments {
		responses = append(responses, jobcard.ToAssignmentResponse(a))
	}

	return jobcard.JobCardResponse{
		ID:             card.ID,
		BusinessUnitID: card.BusinessUnitID,
		VehicleRef:     card.VehicleRef,
		Title:          card.Title,
		Status:         string(card.Status),
		EstimatedHours: card.EstimatedHours,
		CompletedAt:    jobcard.FormatTimePtr(card.CompletedAt),
		Assignments:    responses,
	}, nil
}

// pauseActiveSegments freezes any still-running segments on the assignment so
// the outgoing technician's timer cannot keep accruing after the handover.
// Their closed segments stay attributed to them.
func (j *JobCardServiceImpl) pauseActiveSegments(ctx context.Context, assignmentID string, now time.Time) error {
	segments, err := j.segmentRepo.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return fmt.Errorf("failed to list segments: %w", err)
	}
	for _, s := range segments {
		if s.Status != timer.SegmentActive {
			continue
		}
		duration := int64(now.Sub(s.StartTime).Seconds())
		if duration < 0 {
			duration = 0
		}
		if err := j.segmentRepo.Close(ctx, s.ID, now, duration, timer.SegmentPaused); err != nil {
			return fmt.Errorf("failed to pause segment %s: %w", s.ID, err)
		}
	}
	return nil
}

// Reassign implements jobcard.JobCardService.
func (j *JobCardServiceImpl) Reassign(ctx context.Context, req jobcard.ReassignRequest) (jobcard.AssignmentResponse, error) {
	if err := req.Validate(); err != nil {
		return jobcard.AssignmentResponse{}, err
	}

	actor, err := identity.FromContext(ctx)
	if err != nil {
		return jobcard.AssignmentResponse{}, err
	}

	assignment, err := j.AssignmentRepository.GetByID(ctx, req.AssignmentID)
	if err != nil {
		return jobcard.AssignmentResponse{}, err
	}
	if assignment.Status == jobcard.AssignmentCancelled {
		return jobcard.AssignmentResponse{}, jobcard.ErrAssignmentClosed
	}

	card, err := j.JobCardRepository.GetByID(ctx, assignment.JobCardID)
	if err != nil {
		return jobcard.AssignmentResponse{}, err
	}
	if err := authorize(actor, card); err != nil {
		return jobcard.AssignmentResponse{}, err
	}

	now := j.nowFn().UTC()

	err = j.tx(ctx, func(ctx context.Context) error {
		if err := j.pauseActiveSegments(ctx, assignment.ID, now); err != nil {
			return err
		}

		assignment.TechnicianID = req.NewTechnicianID
		assignment.Status = jobcard.AssignmentAssigned
		assignment.StartedAt = nil
		assignment.CompletedAt = nil
		if err := j.AssignmentRepository.Update(ctx, assignment); err != nil {
			return fmt.Errorf("failed to reassign: %w", err)
		}

		_, err := j.engine.Recompute(ctx, assignment.JobCardID)
		return err
	})
	if err != nil {
		return jobcard.AssignmentResponse{}, err
	}

	return jobcard.ToAssignmentResponse(assignment), nil
}

// CancelAssignment implements jobcard.JobCardService.
func (j *JobCardServiceImpl) CancelAssignment(ctx context.Context, assignmentID string) (jobcard.AssignmentResponse, error) {
	actor, err := identity.FromContext(ctx)
	if err != nil {
		return jobcard.AssignmentResponse{}, err
	}

	assignment, err := j.AssignmentRepository.GetByID(ctx, assignmentID)
	if err != nil {
		return jobcard.AssignmentResponse{}, err
	}
	if !assignment.InFlight() {
		return jobcard.AssignmentResponse{}, jobcard.ErrAssignmentClosed
	}

	card, err := j.JobCardRepository.GetByID(ctx, assignment.JobCardID)
	if err != nil {
		return jobcard.AssignmentResponse{}, err
	}
	if err := authorize(actor, card); err != nil {
		return jobcard.AssignmentResponse{}, err
	}

	now := j.nowFn().UTC()

	err = j.tx(ctx, func(ctx context.Context) error {
		if err := j.pauseActiveSegments(ctx, assignment.ID, now); err != nil {
			return err
		}

		assignment.Status = jobcard.AssignmentCancelled
		if err := j.AssignmentRepository.Update(ctx, assignment); err != nil {
			return fmt.Errorf("failed to cancel assignment: %w", err)
		}

		_, err := j.engine.Recompute(ctx, assignment.JobCardID)
		return err
	})
	if err != nil {
		return jobcard.AssignmentResponse{}, err
	}

	return jobcard.ToAssignmentResponse(assignment), nil
}

func NewJobCardService(
	jobCardRepo jobcard.JobCardRepository,
	assignmentRepo jobcard.AssignmentRepository,
	segmentRepo timer.WorkSegmentRepository,
	engine *status.Engine,
	tx TxRunner,
) jobcard.JobCardService {
	return &JobCardServiceImpl{
		JobCardRepository:    jobCardRepo,
		AssignmentRepository: assignmentRepo,
		segmentRepo:          segmentRepo,
		engine:               engine,
		tx:                   tx,
		nowFn:                time.Now,
	}
}
