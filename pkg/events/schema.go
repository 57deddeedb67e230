package events

import (
	"time"

	"github.com/Ramsey-B/thistle/pkg/models"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// EventType defines the type of event
type EventType string

const (
	// EventTypeRecordLabeled follows a save that assigned a label
	EventTypeRecordLabeled EventType = "record.labeled"
	// EventTypeRecordRelabeled follows a dependent whose label moved in a cascade
	EventTypeRecordRelabeled EventType = "record.relabeled"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType     EventType `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// RecordEvent carries the disposition of one record
type RecordEvent struct {
	BaseEvent
	Kind           models.Kind           `json:"kind"`
	RecordID       string                `json:"record_id"`
	ProjectID      string                `json:"project_id"`
	ClientID       string                `json:"client_id,omitempty"`
	Label          models.Label          `json:"label"`
	DuplicateOf    *string               `json:"duplicate_of,omitempty"`
	MatchCase      models.MatchCase      `json:"match_case,omitempty"`
	FuzzyMatchCase models.FuzzyMatchCase `json:"fuzzy_match_case,omitempty"`
	Created        bool                  `json:"created,omitempty"`

	// Set on relabel events
	PreviousLabel       models.Label `json:"previous_label,omitempty"`
	PreviousDuplicateOf *string      `json:"previous_duplicate_of,omitempty"`
	CauseID             string       `json:"cause_id,omitempty"`
}

// Labeled describes a saved record for EmitRecordLabeled
type Labeled struct {
	Kind           models.Kind
	RecordID       string
	ProjectID      string
	ClientID       string
	Disposition    models.Disposition
	MatchCase      models.MatchCase
	FuzzyMatchCase models.FuzzyMatchCase
	Created        bool
}
