package ports

import (
	"context"
	"time"

	"field-tracker/internal/features/events/domain"
)

// EventStore is the append-only, per-representative time-ordered log of
// location events.
type EventStore interface {
	// Append stores one event. Appends for different representatives may
	// run concurrently; appends for the same representative are serialized
	// by the implementation so reads observe a consistent order.
	Append(ctx context.Context, event *domain.LocationEvent) error

	// Range returns events for a representative with RecordedAt in
	// [from, to], sorted ascending by RecordedAt.
	Range(ctx context.Context, representativeID string, from, to time.Time) ([]domain.LocationEvent, error)

	// Latest returns the most recent event of any of the given kinds at or
	// before now, or nil when none exists. An empty kinds slice matches all.
	Latest(ctx context.Context, representativeID string, kinds []domain.ActivityType) (*domain.LocationEvent, error)

	// Representatives lists all representative IDs with stored events.
	Representatives(ctx context.Context) ([]string, error)

	// Known reports whether the representative has any stored events.
	Known(ctx context.Context, representativeID string) (bool, error)

	// EvictBefore removes events recorded strictly before the cutoff and
	// returns how many were removed. Callers are responsible for choosing a
	// cutoff that does not orphan open attendance or in-progress visits.
	EvictBefore(ctx context.Context, representativeID string, cutoff time.Time) (int64, error)
}

// AttendanceRepository stores attendance records. A representative has at
// most one open record at a time.
type AttendanceRepository interface {
	// Open returns the representative's open attendance record, or nil.
	Open(ctx context.Context, representativeID string) (*domain.AttendanceRecord, error)

	// SaveOpen stores a new open record, replacing any existing open one.
	SaveOpen(ctx context.Context, record *domain.AttendanceRecord) error

	// CloseOpen closes the open record at the given time and moves it to
	// the attendance log. Returns nil when there is no open record.
	CloseOpen(ctx context.Context, representativeID string, at time.Time) (*domain.AttendanceRecord, error)

	// Log returns closed records with CheckInTime in [from, to], ascending.
	Log(ctx context.Context, representativeID string, from, to time.Time) ([]domain.AttendanceRecord, error)
}

// VisitRepository stores visit records and tracks the in-progress pointer
// per representative.
type VisitRepository interface {
	// Save writes the record and keeps the in-progress pointer in sync with
	// the record's status.
	Save(ctx context.Context, visit *domain.VisitRecord) error

	// Get returns the visit by ID, or nil when unknown.
	Get(ctx context.Context, visitID string) (*domain.VisitRecord, error)

	// InProgress returns the representative's current in-progress visit, or nil.
	InProgress(ctx context.Context, representativeID string) (*domain.VisitRecord, error)

	// RangeVisits returns visits for the representative whose scheduled or
	// actual start falls in [from, to], ascending by that time.
	RangeVisits(ctx context.Context, representativeID string, from, to time.Time) ([]domain.VisitRecord, error)
}
