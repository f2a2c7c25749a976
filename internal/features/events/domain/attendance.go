package domain

import "time"

// AttendanceStatus represents the state of an attendance record.
type AttendanceStatus string

const (
	// AttendanceCheckedIn means the representative is on duty.
	AttendanceCheckedIn AttendanceStatus = "checked_in"
	// AttendanceBreak means the representative is on duty but paused.
	AttendanceBreak AttendanceStatus = "break"
	// AttendanceCheckedOut means the working day has been closed.
	AttendanceCheckedOut AttendanceStatus = "checked_out"
)

// AttendanceRecord tracks one working-day span for a representative.
// At most one open record (no CheckOutTime) exists per representative;
// it is created on check-in and closed on check-out.
type AttendanceRecord struct {
	// ID is the unique identifier assigned at ingest.
	ID string `json:"id"`
	// RepresentativeID identifies the representative.
	RepresentativeID string `json:"representative_id"`
	// CheckInTime is when the working day started.
	CheckInTime time.Time `json:"check_in_time"`
	// CheckOutTime is when the working day closed; nil while open.
	CheckOutTime *time.Time `json:"check_out_time,omitempty"`
	// Status is the current state of the record.
	Status AttendanceStatus `json:"status"`
}

// Open reports whether the record has not been closed yet.
func (r *AttendanceRecord) Open() bool {
	return r.CheckOutTime == nil && r.Status != AttendanceCheckedOut
}

// Close marks the record checked out at the given time.
func (r *AttendanceRecord) Close(at time.Time) {
	t := at
	r.CheckOutTime = &t
	r.Status = AttendanceCheckedOut
}
