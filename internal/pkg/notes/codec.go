package notes

import (
	"encoding/json"
	"fmt"
	"time"
)

// The shift notes column doubles as a structured side channel for break
// state, the break log, and the adjustment audit trail when no dedicated
// columns exist. Every writer merges into the existing document; unknown
// keys and free text are preserved, never overwritten.

const (
	keyNotesText   = "notes_text"
	keyBreakState  = "break_state"
	keyBreakLog    = "break_log"
	keyAdjustments = "adjustments"
)

// BreakState is the currently-open break plus the running total.
type BreakState struct {
	StartTime         *time.Time `json:"start_time"`
	TotalBreakSeconds int64      `json:"total_break_seconds"`
}

// BreakSegment is one pause interval within a shift. EndTime and
// DurationSeconds stay null while the segment is open.
type BreakSegment struct {
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	DurationSeconds *int64     `json:"duration_seconds"`
}

// FieldChange records one before/after pair in an adjustment.
type FieldChange struct {
	From interface{} `json:"from"`
	To   interface{} `json:"to"`
}

// AdjustmentEntry is one immutable audit record of an administrative edit.
type AdjustmentEntry struct {
	At      time.Time              `json:"at"`
	By      string                 `json:"by"`
	Reason  string                 `json:"reason"`
	Changes map[string]FieldChange `json:"changes"`
}

// decode parses a notes value into a key/raw-message document. Free text
// that is not a JSON object is preserved under notes_text rather than
// discarded.
func decode(existing string) map[string]json.RawMessage {
	doc := make(map[string]json.RawMessage)
	if existing == "" {
		return doc
	}
	if err := json.Unmarshal([]byte(existing), &doc); err != nil {
		text, _ := json.Marshal(existing)
		return map[string]json.RawMessage{keyNotesText: text}
	}
	return doc
}

func encode(doc map[string]json.RawMessage) (string, error) {
	out, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode notes document: %w", err)
	}
	return string(out), nil
}

func getBreakLog(doc map[string]json.RawMessage) []BreakSegment {
	raw, ok := doc[keyBreakLog]
	if !ok {
		return nil
	}
	var log []BreakSegment
	if err := json.Unmarshal(raw, &log); err != nil {
		return nil
	}
	return log
}

func setField(doc map[string]json.RawMessage, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	doc[key] = raw
	return nil
}

// BuildWithBreakState merges the break state into the existing notes,
// preserving unrelated fields and any free-text fallback.
func BuildWithBreakState(existing string, state BreakState) (string, error) {
	doc := decode(existing)
	if err := setField(doc, keyBreakState, state); err != nil {
		return "", err
	}
	return encode(doc)
}

// AppendBreakSegment appends a new open break segment to the break log.
func AppendBreakSegment(existing string, startTime time.Time) (string, error) {
	doc := decode(existing)
	log := append(getBreakLog(doc), BreakSegment{StartTime: startTime})
	if err := setField(doc, keyBreakLog, log); err != nil {
		return "", err
	}
	return encode(doc)
}

// CloseOpenBreakSegment closes the most recent open break segment, computing
// its duration in whole seconds. A negative span from clock skew clamps to
// zero. Returns the updated notes and the seconds added.
func CloseOpenBreakSegment(existing string, endTime time.Time) (string, int64, error) {
	doc := decode(existing)
	log := getBreakLog(doc)

	for i := len(log) - 1; i >= 0; i-- {
		if log[i].EndTime != nil {
			continue
		}
		duration := int64(endTime.Sub(log[i].StartTime).Seconds())
		if duration < 0 {
			duration = 0
		}
		end := endTime
		log[i].EndTime = &end
		log[i].DurationSeconds = &duration
		if err := setField(doc, keyBreakLog, log); err != nil {
			return "", 0, err
		}
		encoded, err := encode(doc)
		return encoded, duration, err
	}

	// No open segment: nothing to close, notes unchanged.
	encoded, err := encode(doc)
	return encoded, 0, err
}

// AppendAdjustment appends an audit entry; existing entries are never
// rewritten.
func AppendAdjustment(existing string, entry AdjustmentEntry) (string, error) {
	doc := decode(existing)

	var log []AdjustmentEntry
	if raw, ok := doc[keyAdjustments]; ok {
		_ = json.Unmarshal(raw, &log)
	}
	log = append(log, entry)

	if err := setField(doc, keyAdjustments, log); err != nil {
		return "", err
	}
	return encode(doc)
}

// GetBreakState returns the break state stored in the notes, zero-valued
// when the notes are unstructured or absent.
func GetBreakState(notes string) BreakState {
	doc := decode(notes)
	raw, ok := doc[keyBreakState]
	if !ok {
		return BreakState{}
	}
	var state BreakState
	if err := json.Unmarshal(raw, &state); err != nil {
		return BreakState{}
	}
	return state
}

// GetBreakStart returns the start of the currently-open break, nil when not
// on break.
func GetBreakStart(notes string) *time.Time {
	return GetBreakState(notes).StartTime
}

// GetTotalBreakSeconds returns the accumulated break seconds, 0 when absent.
func GetTotalBreakSeconds(notes string) int64 {
	return GetBreakState(notes).TotalBreakSeconds
}

// GetBreakLog returns the recorded break segments in insertion order.
func GetBreakLog(notes string) []BreakSegment {
	return getBreakLog(decode(notes))
}

// GetAdjustments returns the audit trail entries in insertion order.
func GetAdjustments(notes string) []AdjustmentEntry {
	doc := decode(notes)
	raw, ok := doc[keyAdjustments]
	if !ok {
		return nil
	}
	var log []AdjustmentEntry
	if err := json.Unmarshal(raw, &log); err != nil {
		return nil
	}
	return log
}

// GetNotesText returns the preserved free-text portion of the notes. For
// unstructured notes this is the original value.
func GetNotesText(notes string) string {
	doc := decode(notes)
	raw, ok := doc[keyNotesText]
	if !ok {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return ""
	}
	return text
}
