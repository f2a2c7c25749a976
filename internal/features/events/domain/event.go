package domain

import (
	"fmt"
	"time"
)

// ActivityType classifies a location event by the business activity it marks.
type ActivityType string

const (
	// ActivityCheckIn marks the start of a working day.
	ActivityCheckIn ActivityType = "check_in"
	// ActivityCheckOut marks the end of a working day.
	ActivityCheckOut ActivityType = "check_out"
	// ActivityDeliveryStart marks the beginning of a delivery run.
	ActivityDeliveryStart ActivityType = "delivery_start"
	// ActivityDeliveryComplete marks a finished delivery.
	ActivityDeliveryComplete ActivityType = "delivery_complete"
	// ActivityVisitStart marks the beginning of a customer visit.
	ActivityVisitStart ActivityType = "visit_start"
	// ActivityVisitEnd marks the end of a customer visit.
	ActivityVisitEnd ActivityType = "visit_end"
	// ActivityPing is a bare movement sample with no business activity attached.
	ActivityPing ActivityType = "ping"
)

// Valid reports whether the activity type is one of the known values.
func (a ActivityType) Valid() bool {
	switch a {
	case ActivityCheckIn, ActivityCheckOut, ActivityDeliveryStart,
		ActivityDeliveryComplete, ActivityVisitStart, ActivityVisitEnd, ActivityPing:
		return true
	}
	return false
}

// LocationEvent is a single time-stamped position sample for a representative.
// Events are immutable once stored; out-of-order arrival is allowed and the
// store sorts by RecordedAt on read.
type LocationEvent struct {
	// ID is the unique identifier assigned at ingest.
	ID string `json:"id"`
	// RepresentativeID identifies the tracked representative.
	RepresentativeID string `json:"representative_id"`
	// Latitude is the sampled latitude in degrees, within [-90, 90].
	Latitude float64 `json:"latitude"`
	// Longitude is the sampled longitude in degrees, within [-180, 180].
	Longitude float64 `json:"longitude"`
	// AccuracyMeters is the reported GPS accuracy radius.
	AccuracyMeters float64 `json:"accuracy_meters"`
	// Location is an optional free-text place label for the sample.
	Location string `json:"location,omitempty"`
	// ActivityType classifies the event.
	ActivityType ActivityType `json:"activity_type"`
	// RecordedAt is the device-side timestamp of the sample.
	RecordedAt time.Time `json:"recorded_at"`
}

// Validate checks coordinate bounds, activity type and required fields.
func (e *LocationEvent) Validate() error {
	if e.RepresentativeID == "" {
		return fmt.Errorf("representative_id is required")
	}
	if e.Latitude < -90 || e.Latitude > 90 {
		return fmt.Errorf("latitude %f out of range [-90, 90]", e.Latitude)
	}
	if e.Longitude < -180 || e.Longitude > 180 {
		return fmt.Errorf("longitude %f out of range [-180, 180]", e.Longitude)
	}
	if e.AccuracyMeters < 0 {
		return fmt.Errorf("accuracy_meters must not be negative")
	}
	if !e.ActivityType.Valid() {
		return fmt.Errorf("unknown activity_type: %q", e.ActivityType)
	}
	if e.RecordedAt.IsZero() {
		return fmt.Errorf("recorded_at is required")
	}
	return nil
}
