package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fleetworks/workshop-backend-go/internal/config"
	"github.com/fleetworks/workshop-backend-go/internal/domain/shift"
	"github.com/fleetworks/workshop-backend-go/internal/pkg/notes"
)

// JanitorActor tags audit entries written by the janitor rather than a
// person.
const JanitorActor = "system:shift-janitor"

// ShiftJobs force-closes shifts that were never clocked out. A shift open
// longer than MaxShiftHours is closed at clock-in + MaxShiftHours with an
// audit entry, the same shape a supervisor correction would leave.
type ShiftJobs struct {
	shiftRepo shift.ShiftRepository
	cfg       config.WorkflowConfig
	nowFn     func() time.Time
}

func NewShiftJobs(shiftRepo shift.ShiftRepository, cfg config.WorkflowConfig) *ShiftJobs {
	return &ShiftJobs{
		shiftRepo: shiftRepo,
		cfg:       cfg,
		nowFn:     time.Now,
	}
}

func (j *ShiftJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("auto_close_stale_shifts", j.cfg.JanitorInterval, j.AutoCloseStaleShifts)
}

func (j *ShiftJobs) AutoCloseStaleShifts(ctx context.Context) error {
	now := j.nowFn().UTC()
	maxOpen := time.Duration(j.cfg.MaxShiftHours) * time.Hour
	cutoff := now.Add(-maxOpen)

	stale, err := j.shiftRepo.ListStaleOpen(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to list stale shifts: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}

	closedCount := 0
	for _, s := range stale {
		forcedOut := s.ClockIn.Add(maxOpen)

		changes := map[string]notes.FieldChange{
			"clock_out": {From: nil, To: forcedOut.UTC().Format(time.RFC3339)},
		}

		if s.OnBreak() {
			changes["break_start"] = notes.FieldChange{
				From: s.BreakStart.UTC().Format(time.RFC3339),
				To:   nil,
			}
			updated, added, err := notes.CloseOpenBreakSegment(s.Notes, forcedOut)
			if err != nil {
				slog.Error("Cron: Failed to close break on stale shift",
					"shift_id", s.ID, "error", err)
				continue
			}
			s.Notes = updated
			s.BreakSeconds += added
			s.BreakStart = nil
		}

		updated, err := notes.AppendAdjustment(s.Notes, notes.AdjustmentEntry{
			At:      now,
			By:      JanitorActor,
			Reason:  fmt.Sprintf("Auto-closed: no clock-out within %d hours of clock-in", j.cfg.MaxShiftHours),
			Changes: changes,
		})
		if err != nil {
			slog.Error("Cron: Failed to append janitor audit entry",
				"shift_id", s.ID, "error", err)
			continue
		}
		s.Notes = updated
		s.ClockOut = &forcedOut

		if err := j.shiftRepo.Update(ctx, s); err != nil {
			slog.Error("Cron: Failed to auto-close stale shift",
				"shift_id", s.ID,
				"technician_id", s.TechnicianID,
				"error", err)
			continue
		}

		closedCount++
	}

	slog.Info("Cron: Auto-closed stale shifts", "count", closedCount)
	return nil
}
