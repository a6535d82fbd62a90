// Package model defines core data structures for claimflow.
package model

import "time"

// Required column names of a claims event log.
const (
	ColCaseID       = "case_id"
	ColActivity     = "activity_name"
	ColTimestamp    = "timestamp"
	ColAgent        = "agent_name"
	ColPolicyType   = "type_of_policy"
	ColAccidentType = "type_of_accident"
	ColCarYear      = "car_year"
)

// Event represents one recorded activity instance within a claim case.
// Events are immutable once loaded; later stages only derive new values.
type Event struct {
	// Row is the zero-based data row index in the input file.
	Row int

	CaseID    string
	Activity  string
	Timestamp string // raw elapsed-time text, e.g. "3:07.250"
	Agent     string

	// Case-level descriptive metadata, expected constant within a case.
	PolicyType   string
	AccidentType string
	CarYear      string

	// Extra holds every input column (required ones included) in header order,
	// so exports can reproduce the original table.
	Extra []string
}

// Table is the in-memory event log produced by the loader.
type Table struct {
	// Header lists the input column names in file order.
	Header []string
	Events []Event
}

// Len returns the number of events.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Events)
}

// Elapsed is a normalized timestamp: a duration relative to an unspecified
// origin. Valid is false when the raw value could not be parsed.
type Elapsed struct {
	Value time.Duration
	Valid bool
}

// Missing is the sentinel for an unparseable or undefined elapsed value.
var Missing = Elapsed{}

// Some wraps a defined duration.
func Some(d time.Duration) Elapsed {
	return Elapsed{Value: d, Valid: true}
}

// Seconds returns the value in seconds and whether it is defined.
func (e Elapsed) Seconds() (float64, bool) {
	if !e.Valid {
		return 0, false
	}
	return e.Value.Seconds(), true
}

// Sub returns e - o, missing if either side is missing.
func (e Elapsed) Sub(o Elapsed) Elapsed {
	if !e.Valid || !o.Valid {
		return Missing
	}
	return Some(e.Value - o.Value)
}

// DurationStatus records how a case duration was derived.
type DurationStatus uint8

const (
	// DurationSpan means at least two valid timestamps: max - min.
	DurationSpan DurationStatus = iota
	// DurationSinglePoint means exactly one valid timestamp; duration is zero.
	DurationSinglePoint
	// DurationUndefined means no valid timestamp; duration is missing.
	DurationUndefined
)

// String returns the status name.
func (s DurationStatus) String() string {
	switch s {
	case DurationSpan:
		return "span"
	case DurationSinglePoint:
		return "single_point"
	case DurationUndefined:
		return "undefined"
	default:
		return "unknown"
	}
}

// Metadata is the case-level descriptive metadata, one row per case.
type Metadata struct {
	PolicyType   string `json:"type_of_policy"`
	AccidentType string `json:"type_of_accident"`
	CarYear      string `json:"car_year"`
}

// MetadataOf extracts the metadata columns of an event.
func MetadataOf(e *Event) Metadata {
	return Metadata{
		PolicyType:   e.PolicyType,
		AccidentType: e.AccidentType,
		CarYear:      e.CarYear,
	}
}
