package domain

import "time"

// Status is the derived operational state of a representative.
type Status string

const (
	// StatusOnVisit means an in-progress visit exists. Dominates StatusActive.
	StatusOnVisit Status = "on_visit"
	// StatusActive means an attendance record is open today with no
	// in-progress visit.
	StatusActive Status = "active"
	// StatusOffline means no current signal exists.
	StatusOffline Status = "offline"
)

// StatusSnapshot is a derived view of one representative's status at a
// point in time. It is recomputed from stored events, never authoritative.
type StatusSnapshot struct {
	// RepresentativeID identifies the representative.
	RepresentativeID string `json:"representative_id"`
	// Status is the resolved operational state.
	Status Status `json:"status"`
	// AsOf is when the status was resolved.
	AsOf time.Time `json:"as_of"`
	// SourceRecordID identifies the record that determined the status
	// (visit or attendance record ID); empty for offline.
	SourceRecordID string `json:"source_record_id,omitempty"`
}
