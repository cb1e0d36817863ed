package status

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fleetworks/workshop-backend-go/internal/domain/jobcard"
)

// Event describes one derived job card status change.
type Event struct {
	JobCardID string
	From      jobcard.JobCardStatus
	To        jobcard.JobCardStatus
	At        time.Time
}

// Notifier receives status change events after they are persisted. Failures
// are the notifier's problem; the engine never rolls back on notify errors.
type Notifier interface {
	StatusChanged(ctx context.Context, event Event)
}

// LogNotifier emits status change events to the structured log.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) StatusChanged(ctx context.Context, event Event) {
	n.Logger.InfoContext(ctx, "job card status changed",
		slog.String("job_card_id", event.JobCardID),
		slog.String("from", string(event.From)),
		slog.String("to", string(event.To)),
	)
}

// Derive computes the job card status from its assignments. Rules in
// priority order:
//
//  1. all non-cancelled assignments completed, at least one exists -> completed
//  2. any assignment assigned or in_progress -> in_progress
//  3. some work completed, none in flight, card still open -> in_progress
//  4. otherwise unchanged
//
// Cancelled assignments never count. Derive is pure so re-running it against
// unchanged assignments always yields the same answer.
func Derive(current jobcard.JobCardStatus, assignments []jobcard.Assignment) jobcard.JobCardStatus {
	var total, inFlight, completed int
	for _, a := range assignments {
		if a.Status == jobcard.AssignmentCancelled {
			continue
		}
		total++
		switch {
		case a.InFlight():
			inFlight++
		case a.Status == jobcard.AssignmentCompleted:
			completed++
		}
	}

	switch {
	case total > 0 && completed == total:
		return jobcard.JobCardCompleted
	case inFlight > 0:
		return jobcard.JobCardInProgress
	case completed > 0 && current == jobcard.JobCardOpen:
		return jobcard.JobCardInProgress
	default:
		return current
	}
}

// Engine recomputes derived job card status after assignment mutations. It
// holds no state of its own; every run reads the current assignment set.
type Engine struct {
	jobCardRepo    jobcard.JobCardRepository
	assignmentRepo jobcard.AssignmentRepository
	notifier       Notifier
	nowFn          func() time.Time
}

func NewEngine(jobCardRepo jobcard.JobCardRepository, assignmentRepo jobcard.AssignmentRepository, notifier Notifier) *Engine {
	return &Engine{
		jobCardRepo:    jobCardRepo,
		assignmentRepo: assignmentRepo,
		notifier:       notifier,
		nowFn:          time.Now,
	}
}

// Recompute derives and persists the job card status. A no-op when the
// derived status matches the stored one, so repeated runs are safe.
func (e *Engine) Recompute(ctx context.Context, jobCardID string) (jobcard.JobCardStatus, error) {
	card, err := e.jobCardRepo.GetByID(ctx, jobCardID)
	if err != nil {
		return "", fmt.Errorf("recompute status: %w", err)
	}

	assignments, err := e.assignmentRepo.ListByJobCard(ctx, jobCardID)
	if err != nil {
		return "", fmt.Errorf("recompute status: %w", err)
	}

	derived := Derive(card.Status, assignments)
	if derived == card.Status {
		return derived, nil
	}

	now := e.nowFn()
	var completedAt *time.Time
	if derived == jobcard.JobCardCompleted {
		completedAt = &now
	}
	// Leaving completed clears the timestamp (reopening via reassignment).
	if err := e.jobCardRepo.UpdateStatus(ctx, jobCardID, derived, completedAt); err != nil {
		return "", fmt.Errorf("recompute status: %w", err)
	}

	if e.notifier != nil {
		e.notifier.StatusChanged(ctx, Event{
			JobCardID: jobCardID,
			From:      card.Status,
			To:        derived,
			At:        now,
		})
	}

	return derived, nil
}
