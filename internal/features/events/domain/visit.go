package domain

import (
	"fmt"
	"time"
)

// VisitStatus represents the lifecycle state of a customer visit.
type VisitStatus string

const (
	// VisitScheduled means the visit is planned but not started.
	VisitScheduled VisitStatus = "scheduled"
	// VisitInProgress means the representative is currently at the visit.
	VisitInProgress VisitStatus = "in_progress"
	// VisitCompleted means the visit finished successfully.
	VisitCompleted VisitStatus = "completed"
	// VisitCancelled means the visit was called off.
	VisitCancelled VisitStatus = "cancelled"
	// VisitNoShow means the customer was not available.
	VisitNoShow VisitStatus = "no_show"
)

// VisitAction is a lifecycle transition requested at ingest.
type VisitAction string

const (
	// VisitActionStart moves a visit to in_progress.
	VisitActionStart VisitAction = "start"
	// VisitActionComplete closes an in-progress visit successfully.
	VisitActionComplete VisitAction = "complete"
	// VisitActionCancel calls a visit off.
	VisitActionCancel VisitAction = "cancel"
	// VisitActionNoShow records that the customer was absent.
	VisitActionNoShow VisitAction = "no_show"
)

// VisitRecord tracks one customer visit for a representative. Only the
// Status, ActualStart and ActualEnd fields change after creation.
type VisitRecord struct {
	// ID is the visit identifier supplied by the scheduling system.
	ID string `json:"id"`
	// RepresentativeID identifies the representative performing the visit.
	RepresentativeID string `json:"representative_id"`
	// CustomerRef is an opaque reference to the visited customer.
	CustomerRef string `json:"customer_ref,omitempty"`
	// Status is the current lifecycle state.
	Status VisitStatus `json:"status"`
	// ScheduledStart is the planned start time.
	ScheduledStart time.Time `json:"scheduled_start"`
	// ScheduledEnd is the planned end time.
	ScheduledEnd time.Time `json:"scheduled_end"`
	// ActualStart is when the visit actually started; nil until started.
	ActualStart *time.Time `json:"actual_start,omitempty"`
	// ActualEnd is when the visit actually ended; nil until closed.
	ActualEnd *time.Time `json:"actual_end,omitempty"`
}

// Apply performs a lifecycle transition at the given time. Illegal
// transitions (completing a visit that never started, restarting a
// closed visit) return an error and leave the record unchanged.
func (v *VisitRecord) Apply(action VisitAction, at time.Time) error {
	switch action {
	case VisitActionStart:
		if v.Status != VisitScheduled {
			return fmt.Errorf("cannot start visit in status %q", v.Status)
		}
		t := at
		v.Status = VisitInProgress
		v.ActualStart = &t
	case VisitActionComplete:
		if v.Status != VisitInProgress {
			return fmt.Errorf("cannot complete visit in status %q", v.Status)
		}
		t := at
		v.Status = VisitCompleted
		v.ActualEnd = &t
	case VisitActionCancel:
		if v.Status != VisitScheduled && v.Status != VisitInProgress {
			return fmt.Errorf("cannot cancel visit in status %q", v.Status)
		}
		t := at
		v.Status = VisitCancelled
		v.ActualEnd = &t
	case VisitActionNoShow:
		if v.Status != VisitScheduled && v.Status != VisitInProgress {
			return fmt.Errorf("cannot mark no-show for visit in status %q", v.Status)
		}
		t := at
		v.Status = VisitNoShow
		v.ActualEnd = &t
	default:
		return fmt.Errorf("unknown visit action: %q", action)
	}
	return nil
}
