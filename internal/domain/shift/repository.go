package shift

import (
	"context"
	"time"
)

// ShiftRepository defines data access for shifts. Implementations must run
// unmodified against every supported schema revision; where dedicated break
// columns are absent, break state is persisted through the notes side
// channel instead.
type ShiftRepository interface {
	// Create creates a new shift record
	Create(ctx context.Context, shift Shift) (Shift, error)

	// GetByID retrieves a shift by ID
	GetByID(ctx context.Context, id string) (Shift, error)

	// GetOpenByTechnician returns the technician's open shift, nil when
	// there is none
	GetOpenByTechnician(ctx context.Context, technicianID string) (*Shift, error)

	// Update persists clock-out, break state, break totals and notes
	Update(ctx context.Context, shift Shift) error

	// ListByTechnician retrieves shifts with filters and pagination
	ListByTechnician(ctx context.Context, technicianID string, filter ShiftFilter) ([]Shift, int64, error)

	// ListStaleOpen returns open shifts whose clock-in is before the cutoff
	ListStaleOpen(ctx context.Context, cutoff time.Time) ([]Shift, error)
}
