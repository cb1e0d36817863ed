package schema

import (
	"context"
	"log/slog"

	"github.com/fleetworks/workshop-backend-go/internal/pkg/database"
)

// Deployments run against more than one shifts-table topology: newer schemas
// have technician_shifts with dedicated break columns, older ones still carry
// tech_schedules with legacy clock column names and break state tucked into
// the notes column. Capabilities is resolved once at startup and injected
// into the repositories so no request-time introspection happens.
type Capabilities struct {
	// ShiftTable is the resolved shifts table name; empty when no usable
	// table exists, in which case shift operations fail with a schema
	// mismatch instead of crashing.
	ShiftTable      string
	ClockInColumn   string
	ClockOutColumn  string
	HasBreakStart   bool
	HasBreakSeconds bool
}

const (
	currentShiftTable = "technician_shifts"
	legacyShiftTable  = "tech_schedules"
)

// HasTable reports whether the table exists. Introspection failures degrade
// to false; the core keeps functioning against the most defensive assumption
// about the schema.
func HasTable(ctx context.Context, q database.Querier, table string) bool {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = $1
		)
	`
	var exists bool
	if err := q.QueryRow(ctx, query, table).Scan(&exists); err != nil {
		slog.Warn("schema probe failed, assuming table absent", "table", table, "error", err)
		return false
	}
	return exists
}

// HasColumn reports whether the column exists on the table. Failures degrade
// to false.
func HasColumn(ctx context.Context, q database.Querier, table, column string) bool {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_schema = 'public' AND table_name = $1 AND column_name = $2
		)
	`
	var exists bool
	if err := q.QueryRow(ctx, query, table, column).Scan(&exists); err != nil {
		slog.Warn("schema probe failed, assuming column absent", "table", table, "column", column, "error", err)
		return false
	}
	return exists
}

// Detect resolves the deployment's schema capabilities. Only table and
// column names already known to the code are probed, never caller input.
func Detect(ctx context.Context, q database.Querier) Capabilities {
	caps := Capabilities{}

	switch {
	case HasTable(ctx, q, currentShiftTable):
		caps.ShiftTable = currentShiftTable
	case HasTable(ctx, q, legacyShiftTable):
		caps.ShiftTable = legacyShiftTable
	default:
		slog.Error("no shifts table found, shift operations will report schema mismatch")
		return caps
	}

	caps.ClockInColumn = "clock_in"
	caps.ClockOutColumn = "clock_out"
	if !HasColumn(ctx, q, caps.ShiftTable, "clock_in") && HasColumn(ctx, q, caps.ShiftTable, "time_in") {
		caps.ClockInColumn = "time_in"
		caps.ClockOutColumn = "time_out"
	}

	caps.HasBreakStart = HasColumn(ctx, q, caps.ShiftTable, "break_start")
	caps.HasBreakSeconds = HasColumn(ctx, q, caps.ShiftTable, "break_seconds")

	slog.Info("schema capabilities resolved",
		"shift_table", caps.ShiftTable,
		"clock_in_column", caps.ClockInColumn,
		"has_break_start", caps.HasBreakStart,
		"has_break_seconds", caps.HasBreakSeconds,
	)
	return caps
}
