package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"field-tracker/internal/core/metrics"
	eventdomain "field-tracker/internal/features/events/domain"
	eventports "field-tracker/internal/features/events/ports"
	"field-tracker/internal/features/status/domain"

	"go.uber.org/zap"
)

// ErrRepresentativeNotFound is returned for single-representative status
// queries when the representative has never been seen.
var ErrRepresentativeNotFound = errors.New("representative not found")

// triggerBuffer bounds the pending-recomputation queue. Overflowing
// triggers are dropped; the periodic sweep covers any missed ones.
const triggerBuffer = 1024

// flight tracks the single-flight state of one representative's
// recomputation. A trigger arriving mid-run sets pending, which causes
// exactly one more run with the latest data.
type flight struct {
	running bool
	pending bool
}

// Resolver derives each representative's status from stored records.
// Resolution is a fresh computation each time, never an incremental patch:
// an in-progress visit wins over an open attendance record, which wins
// over nothing. Open records older than the staleness max-age are ignored
// but never closed here.
type Resolver struct {
	store      eventports.EventStore
	attendance eventports.AttendanceRepository
	visits     eventports.VisitRepository

	staleMaxAge   time.Duration
	sweepInterval time.Duration

	mu        sync.Mutex
	flights   map[string]*flight
	snapshots map[string]domain.StatusSnapshot

	subMu sync.RWMutex
	subs  map[chan domain.StatusSnapshot]struct{}

	triggers chan string
	stop     chan struct{}
	done     chan struct{}

	now func() time.Time
	log *zap.Logger
}

// NewResolver creates a Resolver. Call Run to start the trigger dispatcher
// and the periodic staleness sweep.
func NewResolver(
	store eventports.EventStore,
	attendance eventports.AttendanceRepository,
	visits eventports.VisitRepository,
	staleMaxAge time.Duration,
	sweepInterval time.Duration,
	log *zap.Logger,
) *Resolver {
	return &Resolver{
		store:         store,
		attendance:    attendance,
		visits:        visits,
		staleMaxAge:   staleMaxAge,
		sweepInterval: sweepInterval,
		flights:       make(map[string]*flight),
		snapshots:     make(map[string]domain.StatusSnapshot),
		subs:          make(map[chan domain.StatusSnapshot]struct{}),
		triggers:      make(chan string, triggerBuffer),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
		now:           time.Now,
		log:           log,
	}
}

// Notify requests a recomputation for the representative. Never blocks;
// if the trigger queue is full the request is dropped and the next sweep
// picks the representative up.
func (r *Resolver) Notify(representativeID string) {
	select {
	case r.triggers <- representativeID:
	default:
		r.log.Warn("trigger queue full, dropping recomputation request",
			zap.String("representative_id", representativeID))
	}
}

// Run consumes triggers and runs the periodic staleness sweep until Stop
// is called or ctx is cancelled.
func (r *Resolver) Run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case rep := <-r.triggers:
			r.recompute(ctx, rep)
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

// Stop shuts the resolver down and closes all subscriber channels.
func (r *Resolver) Stop() {
	close(r.stop)
	<-r.done

	r.subMu.Lock()
	defer r.subMu.Unlock()
	for ch := range r.subs {
		close(ch)
	}
	r.subs = make(map[chan domain.StatusSnapshot]struct{})
}

// sweep triggers a recomputation for every known representative to catch
// staleness transitions that no new event would surface.
func (r *Resolver) sweep(ctx context.Context) {
	reps, err := r.store.Representatives(ctx)
	if err != nil {
		r.log.Error("staleness sweep: failed to list representatives", zap.Error(err))
		return
	}
	for _, rep := range reps {
		r.recompute(ctx, rep)
	}
}

// recompute runs a single-flight recomputation for the representative.
// Concurrent triggers for the same representative collapse into at most
// one extra run.
func (r *Resolver) recompute(ctx context.Context, representativeID string) {
	r.mu.Lock()
	f := r.flights[representativeID]
	if f == nil {
		f = &flight{}
		r.flights[representativeID] = f
	}
	if f.running {
		f.pending = true
		r.mu.Unlock()
		return
	}
	f.running = true
	r.mu.Unlock()

	go func() {
		for {
			snapshot, err := r.Resolve(ctx, representativeID)
			if err != nil {
				r.log.Error("status recomputation failed",
					zap.String("representative_id", representativeID), zap.Error(err))
			} else {
				r.publish(snapshot)
			}

			r.mu.Lock()
			if f.pending {
				f.pending = false
				r.mu.Unlock()
				continue
			}
			f.running = false
			r.mu.Unlock()
			return
		}
	}()
}

// Resolve computes the representative's current status from stored records.
// Absence of data resolves to offline; there are no error states besides
// store failures.
func (r *Resolver) Resolve(ctx context.Context, representativeID string) (domain.StatusSnapshot, error) {
	now := r.now()
	snapshot := domain.StatusSnapshot{
		RepresentativeID: representativeID,
		Status:           domain.StatusOffline,
		AsOf:             now,
	}

	visit, err := r.visits.InProgress(ctx, representativeID)
	if err != nil {
		return snapshot, fmt.Errorf("failed to read in-progress visit: %w", err)
	}
	if visit != nil && !r.stale(visitStartedAt(visit), now) {
		snapshot.Status = domain.StatusOnVisit
		snapshot.SourceRecordID = visit.ID
		metrics.StatusRecomputations.WithLabelValues(string(snapshot.Status)).Inc()
		return snapshot, nil
	}

	attendance, err := r.attendance.Open(ctx, representativeID)
	if err != nil {
		return snapshot, fmt.Errorf("failed to read open attendance: %w", err)
	}
	if attendance != nil && sameDay(attendance.CheckInTime, now) && !r.stale(attendance.CheckInTime, now) {
		snapshot.Status = domain.StatusActive
		snapshot.SourceRecordID = attendance.ID
	}

	metrics.StatusRecomputations.WithLabelValues(string(snapshot.Status)).Inc()
	return snapshot, nil
}

// Status resolves one representative's current status. Unknown
// representatives return ErrRepresentativeNotFound.
func (r *Resolver) Status(ctx context.Context, representativeID string) (domain.StatusSnapshot, error) {
	known, err := r.store.Known(ctx, representativeID)
	if err != nil {
		return domain.StatusSnapshot{}, fmt.Errorf("failed to check representative: %w", err)
	}
	if !known {
		return domain.StatusSnapshot{}, ErrRepresentativeNotFound
	}

	snapshot, err := r.Resolve(ctx, representativeID)
	if err != nil {
		return domain.StatusSnapshot{}, err
	}
	r.publish(snapshot)
	return snapshot, nil
}

// BulkStatus resolves every known representative. Unknown is impossible
// here by construction; an empty store yields an empty map, not an error.
func (r *Resolver) BulkStatus(ctx context.Context) (map[string]domain.StatusSnapshot, error) {
	reps, err := r.store.Representatives(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list representatives: %w", err)
	}

	result := make(map[string]domain.StatusSnapshot, len(reps))
	for _, rep := range reps {
		snapshot, err := r.Resolve(ctx, rep)
		if err != nil {
			return nil, err
		}
		result[rep] = snapshot
	}
	return result, nil
}

// Subscribe registers for status-change notifications. The returned cancel
// function must be called to release the subscription. The channel closes
// when the resolver stops.
func (r *Resolver) Subscribe() (<-chan domain.StatusSnapshot, func()) {
	ch := make(chan domain.StatusSnapshot, 16)

	r.subMu.Lock()
	r.subs[ch] = struct{}{}
	r.subMu.Unlock()

	cancel := func() {
		r.subMu.Lock()
		defer r.subMu.Unlock()
		if _, ok := r.subs[ch]; ok {
			delete(r.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

// publish records the snapshot and fans out to subscribers when the
// status changed. Slow subscribers miss updates rather than block.
func (r *Resolver) publish(snapshot domain.StatusSnapshot) {
	r.mu.Lock()
	previous, seen := r.snapshots[snapshot.RepresentativeID]
	r.snapshots[snapshot.RepresentativeID] = snapshot
	r.mu.Unlock()

	if seen && previous.Status == snapshot.Status {
		return
	}

	r.subMu.RLock()
	defer r.subMu.RUnlock()
	for ch := range r.subs {
		select {
		case ch <- snapshot:
		default:
		}
	}
}

// stale reports whether an open record started long enough ago to be
// presumed abandoned.
func (r *Resolver) stale(startedAt time.Time, now time.Time) bool {
	return now.Sub(startedAt) > r.staleMaxAge
}

func visitStartedAt(visit *eventdomain.VisitRecord) time.Time {
	if visit.ActualStart != nil {
		return *visit.ActualStart
	}
	return visit.ScheduledStart
}

func sameDay(t, now time.Time) bool {
	ty, tm, td := t.UTC().Date()
	ny, nm, nd := now.UTC().Date()
	return ty == ny && tm == nm && td == nd
}
