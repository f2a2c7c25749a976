package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"field-tracker/internal/core/metrics"
	"field-tracker/internal/features/events/domain"
	"field-tracker/internal/features/events/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrInvalidEvent is returned when an ingest payload is malformed or
	// out of bounds. The event is not persisted.
	ErrInvalidEvent = errors.New("invalid event")
	// ErrIngestUnavailable is returned when store writes keep failing after
	// bounded retries. The event is not silently dropped; callers are
	// expected to buffer and resubmit.
	ErrIngestUnavailable = errors.New("ingest unavailable")
)

// StatusNotifier receives fire-and-forget recomputation triggers.
type StatusNotifier interface {
	// Notify requests a status recomputation for the representative.
	// It must not block.
	Notify(representativeID string)
}

// LocationInput is a movement ping or activity-tagged location sample.
type LocationInput struct {
	RepresentativeID string
	Latitude         float64
	Longitude        float64
	AccuracyMeters   float64
	Location         string
	ActivityType     string
	RecordedAt       time.Time
}

// AttendanceInput is a check-in or check-out action, optionally carrying
// the coordinates where it happened.
type AttendanceInput struct {
	RepresentativeID string
	Action           string
	At               time.Time
	HasCoordinates   bool
	Latitude         float64
	Longitude        float64
}

// VisitInput is a visit lifecycle action.
type VisitInput struct {
	RepresentativeID string
	VisitID          string
	CustomerRef      string
	Action           string
	At               time.Time
	ScheduledStart   time.Time
	ScheduledEnd     time.Time
	HasCoordinates   bool
	Latitude         float64
	Longitude        float64
}

// IngestService validates incoming events, appends them to the store with
// bounded retries, and triggers status recomputation asynchronously.
type IngestService struct {
	store      ports.EventStore
	attendance ports.AttendanceRepository
	visits     ports.VisitRepository
	notifier   StatusNotifier

	retries       int
	backoff       time.Duration
	retentionDays int

	now func() time.Time
	log *zap.Logger
}

// NewIngestService creates an IngestService.
func NewIngestService(
	store ports.EventStore,
	attendance ports.AttendanceRepository,
	visits ports.VisitRepository,
	notifier StatusNotifier,
	retries int,
	backoff time.Duration,
	retentionDays int,
	log *zap.Logger,
) *IngestService {
	return &IngestService{
		store:         store,
		attendance:    attendance,
		visits:        visits,
		notifier:      notifier,
		retries:       retries,
		backoff:       backoff,
		retentionDays: retentionDays,
		now:           time.Now,
		log:           log,
	}
}

// SubmitLocation validates and stores a location event, then notifies the
// resolver. Returns the assigned event ID.
func (s *IngestService) SubmitLocation(ctx context.Context, in LocationInput) (string, error) {
	event := &domain.LocationEvent{
		ID:               uuid.NewString(),
		RepresentativeID: in.RepresentativeID,
		Latitude:         in.Latitude,
		Longitude:        in.Longitude,
		AccuracyMeters:   in.AccuracyMeters,
		Location:         in.Location,
		ActivityType:     domain.ActivityType(in.ActivityType),
		RecordedAt:       in.RecordedAt,
	}

	if err := event.Validate(); err != nil {
		metrics.EventsRejected.WithLabelValues("location").Inc()
		return "", fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	if err := s.appendWithRetry(ctx, event); err != nil {
		return "", err
	}

	metrics.EventsIngested.WithLabelValues("location").Inc()
	s.notifier.Notify(event.RepresentativeID)
	return event.ID, nil
}

// SubmitAttendance applies a check-in or check-out action.
func (s *IngestService) SubmitAttendance(ctx context.Context, in AttendanceInput) error {
	if in.RepresentativeID == "" {
		metrics.EventsRejected.WithLabelValues("attendance").Inc()
		return fmt.Errorf("%w: representative_id is required", ErrInvalidEvent)
	}
	at := in.At
	if at.IsZero() {
		at = s.now()
	}

	switch in.Action {
	case "check_in":
		open, err := s.attendance.Open(ctx, in.RepresentativeID)
		if err != nil {
			return fmt.Errorf("failed to read open attendance: %w", err)
		}
		if open != nil {
			metrics.EventsRejected.WithLabelValues("attendance").Inc()
			return fmt.Errorf("%w: representative already checked in", ErrInvalidEvent)
		}
		record := &domain.AttendanceRecord{
			ID:               uuid.NewString(),
			RepresentativeID: in.RepresentativeID,
			CheckInTime:      at,
			Status:           domain.AttendanceCheckedIn,
		}
		if err := s.attendance.SaveOpen(ctx, record); err != nil {
			return fmt.Errorf("failed to save attendance: %w", err)
		}
	case "check_out":
		record, err := s.attendance.CloseOpen(ctx, in.RepresentativeID, at)
		if err != nil {
			return fmt.Errorf("failed to close attendance: %w", err)
		}
		if record == nil {
			metrics.EventsRejected.WithLabelValues("attendance").Inc()
			return fmt.Errorf("%w: no open attendance record", ErrInvalidEvent)
		}
	default:
		metrics.EventsRejected.WithLabelValues("attendance").Inc()
		return fmt.Errorf("%w: unknown attendance action %q", ErrInvalidEvent, in.Action)
	}

	if in.HasCoordinates {
		s.appendMarker(ctx, in.RepresentativeID, in.Latitude, in.Longitude, markerActivity(in.Action), at)
	}

	metrics.EventsIngested.WithLabelValues("attendance").Inc()
	s.notifier.Notify(in.RepresentativeID)
	return nil
}

// SubmitVisit applies a visit lifecycle action. A start action for an
// unknown visit ID creates the record.
func (s *IngestService) SubmitVisit(ctx context.Context, in VisitInput) error {
	if in.RepresentativeID == "" || in.VisitID == "" {
		metrics.EventsRejected.WithLabelValues("visit").Inc()
		return fmt.Errorf("%w: representative_id and visit_id are required", ErrInvalidEvent)
	}
	at := in.At
	if at.IsZero() {
		at = s.now()
	}

	visit, err := s.visits.Get(ctx, in.VisitID)
	if err != nil {
		return fmt.Errorf("failed to load visit: %w", err)
	}
	if visit == nil {
		if domain.VisitAction(in.Action) != domain.VisitActionStart {
			metrics.EventsRejected.WithLabelValues("visit").Inc()
			return fmt.Errorf("%w: unknown visit %q", ErrInvalidEvent, in.VisitID)
		}
		scheduledStart := in.ScheduledStart
		if scheduledStart.IsZero() {
			scheduledStart = at
		}
		scheduledEnd := in.ScheduledEnd
		if scheduledEnd.IsZero() {
			scheduledEnd = scheduledStart.Add(time.Hour)
		}
		visit = &domain.VisitRecord{
			ID:               in.VisitID,
			RepresentativeID: in.RepresentativeID,
			CustomerRef:      in.CustomerRef,
			Status:           domain.VisitScheduled,
			ScheduledStart:   scheduledStart,
			ScheduledEnd:     scheduledEnd,
		}
	}

	if visit.RepresentativeID != in.RepresentativeID {
		metrics.EventsRejected.WithLabelValues("visit").Inc()
		return fmt.Errorf("%w: visit %q belongs to another representative", ErrInvalidEvent, in.VisitID)
	}

	if err := visit.Apply(domain.VisitAction(in.Action), at); err != nil {
		metrics.EventsRejected.WithLabelValues("visit").Inc()
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	if err := s.visits.Save(ctx, visit); err != nil {
		return fmt.Errorf("failed to save visit: %w", err)
	}

	if in.HasCoordinates {
		activity := domain.ActivityVisitStart
		if visit.Status != domain.VisitInProgress {
			activity = domain.ActivityVisitEnd
		}
		s.appendMarker(ctx, in.RepresentativeID, in.Latitude, in.Longitude, activity, at)
	}

	metrics.EventsIngested.WithLabelValues("visit").Inc()
	s.notifier.Notify(in.RepresentativeID)
	return nil
}

// appendMarker stores a location event marking where an attendance or
// visit action happened. Marker failures are logged, not surfaced: the
// record write already succeeded and trajectory loss is tolerable.
func (s *IngestService) appendMarker(ctx context.Context, representativeID string, lat, lon float64, activity domain.ActivityType, at time.Time) {
	event := &domain.LocationEvent{
		ID:               uuid.NewString(),
		RepresentativeID: representativeID,
		Latitude:         lat,
		Longitude:        lon,
		ActivityType:     activity,
		RecordedAt:       at,
	}
	if err := event.Validate(); err != nil {
		s.log.Warn("dropping invalid marker event",
			zap.String("representative_id", representativeID), zap.Error(err))
		return
	}
	if err := s.appendWithRetry(ctx, event); err != nil {
		s.log.Warn("failed to append marker event",
			zap.String("representative_id", representativeID), zap.Error(err))
	}
}

func markerActivity(action string) domain.ActivityType {
	if action == "check_in" {
		return domain.ActivityCheckIn
	}
	return domain.ActivityCheckOut
}

// appendWithRetry appends an event, retrying transient store failures with
// exponential backoff. Exhausted retries surface ErrIngestUnavailable.
func (s *IngestService) appendWithRetry(ctx context.Context, event *domain.LocationEvent) error {
	delay := s.backoff
	var lastErr error

	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrIngestUnavailable, ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
		}

		lastErr = s.store.Append(ctx, event)
		if lastErr == nil {
			return nil
		}
		s.log.Warn("event store append failed",
			zap.String("representative_id", event.RepresentativeID),
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr),
		)
	}

	return fmt.Errorf("%w: %v", ErrIngestUnavailable, lastErr)
}
