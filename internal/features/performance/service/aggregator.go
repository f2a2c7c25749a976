package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"field-tracker/internal/core/geo"
	"field-tracker/internal/core/metrics"
	eventdomain "field-tracker/internal/features/events/domain"
	eventports "field-tracker/internal/features/events/ports"
	"field-tracker/internal/features/performance/domain"

	"go.uber.org/zap"
)

var (
	// ErrRepresentativeNotFound is returned for single-representative
	// windows when the representative has never been seen.
	ErrRepresentativeNotFound = errors.New("representative not found")
	// ErrComputationTimeout is returned when an aggregation exceeds its
	// time budget. Partial results are discarded; the call is safe to retry.
	ErrComputationTimeout = errors.New("computation timed out")
)

// Aggregator computes performance windows over the event store. Reads are
// snapshots in the eventual-consistency sense: events arriving while a
// computation runs may or may not be reflected.
type Aggregator struct {
	store  eventports.EventStore
	visits eventports.VisitRepository

	idleGap      time.Duration
	fleetTimeout time.Duration
	bands        domain.RatingBands

	log *zap.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(
	store eventports.EventStore,
	visits eventports.VisitRepository,
	idleGap time.Duration,
	fleetTimeout time.Duration,
	bands domain.RatingBands,
	log *zap.Logger,
) *Aggregator {
	return &Aggregator{
		store:        store,
		visits:       visits,
		idleGap:      idleGap,
		fleetTimeout: fleetTimeout,
		bands:        bands,
		log:          log,
	}
}

// ComputeWindow aggregates one representative's activity over [from, to].
// Unknown representatives return ErrRepresentativeNotFound.
func (a *Aggregator) ComputeWindow(ctx context.Context, representativeID string, from, to time.Time) (*domain.PerformanceWindow, error) {
	known, err := a.store.Known(ctx, representativeID)
	if err != nil {
		return nil, fmt.Errorf("failed to check representative: %w", err)
	}
	if !known {
		return nil, ErrRepresentativeNotFound
	}
	return a.computeWindow(ctx, representativeID, from, to)
}

func (a *Aggregator) computeWindow(ctx context.Context, representativeID string, from, to time.Time) (*domain.PerformanceWindow, error) {
	started := time.Now()
	defer func() {
		metrics.AggregationDuration.Observe(time.Since(started).Seconds())
	}()

	window := &domain.PerformanceWindow{
		RepresentativeID: representativeID,
		PeriodStart:      from,
		PeriodEnd:        to,
	}

	visits, err := a.visits.RangeVisits(ctx, representativeID, from, to)
	if err != nil {
		return nil, mapCtxErr(ctx, fmt.Errorf("failed to load visits: %w", err))
	}
	for _, v := range visits {
		window.TotalVisits++
		if v.Status == eventdomain.VisitCompleted {
			window.CompletedVisits++
		}
	}

	events, err := a.store.Range(ctx, representativeID, from, to)
	if err != nil {
		return nil, mapCtxErr(ctx, fmt.Errorf("failed to load events: %w", err))
	}

	a.sumMovement(window, events)
	a.sumDeliveries(window, events)

	window.VisitSuccessRate = successRate(window.CompletedVisits, window.TotalVisits)
	window.DeliverySuccessRate = successRate(window.CompletedDeliveries, window.TotalDeliveries)
	window.VisitRating = a.bands.Rate(window.VisitSuccessRate, window.TotalVisits)
	window.DeliveryRating = a.bands.Rate(window.DeliverySuccessRate, window.TotalDeliveries)

	return window, nil
}

// sumMovement accumulates distance and duration over consecutive events in
// timestamp order. Segments spanning more than the idle gap are excluded
// entirely so idle or teleported pings do not inflate totals; the segments
// on either side of a gap still count.
func (a *Aggregator) sumMovement(window *domain.PerformanceWindow, events []eventdomain.LocationEvent) {
	var distanceKm float64
	var durationMinutes float64

	for i := 1; i < len(events); i++ {
		prev, curr := events[i-1], events[i]
		gap := curr.RecordedAt.Sub(prev.RecordedAt)
		if gap > a.idleGap {
			continue
		}
		distanceKm += geo.HaversineKm(prev.Latitude, prev.Longitude, curr.Latitude, curr.Longitude)
		durationMinutes += geo.ElapsedMinutes(prev.RecordedAt, curr.RecordedAt)
	}

	window.TotalDistanceKm = distanceKm
	window.TotalDurationHours = durationMinutes / 60
	window.AverageSpeedKmh = geo.SpeedKmh(distanceKm, durationMinutes)
}

// sumDeliveries pairs each delivery_start with the next delivery_complete.
// A start without a completion inside the period counts as incomplete; a
// completion without a preceding start is ignored.
func (a *Aggregator) sumDeliveries(window *domain.PerformanceWindow, events []eventdomain.LocationEvent) {
	pending := false
	for _, ev := range events {
		switch ev.ActivityType {
		case eventdomain.ActivityDeliveryStart:
			window.TotalDeliveries++
			pending = true
		case eventdomain.ActivityDeliveryComplete:
			if pending {
				window.CompletedDeliveries++
				pending = false
			}
		}
	}
}

// ComputeFleet aggregates windows for every known representative within
// the configured time budget. Per-representative computations fan out on
// goroutines; cancellation discards partial results.
func (a *Aggregator) ComputeFleet(ctx context.Context, from, to time.Time) (*domain.FleetStats, error) {
	ctx, cancel := context.WithTimeout(ctx, a.fleetTimeout)
	defer cancel()

	reps, err := a.store.Representatives(ctx)
	if err != nil {
		return nil, mapCtxErr(ctx, fmt.Errorf("failed to list representatives: %w", err))
	}

	type result struct {
		window *domain.PerformanceWindow
		err    error
	}

	results := make(chan result, len(reps))
	for _, rep := range reps {
		go func(rep string) {
			w, err := a.computeWindow(ctx, rep, from, to)
			results <- result{window: w, err: err}
		}(rep)
	}

	stats := &domain.FleetStats{
		PeriodStart:     from,
		PeriodEnd:       to,
		Representatives: len(reps),
		Windows:         make([]domain.PerformanceWindow, 0, len(reps)),
	}

	for range reps {
		select {
		case <-ctx.Done():
			return nil, mapCtxErr(ctx, ctx.Err())
		case res := <-results:
			if res.err != nil {
				return nil, mapCtxErr(ctx, res.err)
			}
			stats.Windows = append(stats.Windows, *res.window)
		}
	}

	a.summarize(stats)
	return stats, nil
}

// summarize folds per-representative windows into the fleet aggregate.
func (a *Aggregator) summarize(stats *domain.FleetStats) {
	var visitRatingSum, deliveryRatingSum float64
	var visitRated, deliveryRated int
	var top *domain.PerformanceWindow

	for i := range stats.Windows {
		w := &stats.Windows[i]
		stats.TotalVisits += w.TotalVisits
		stats.CompletedVisits += w.CompletedVisits
		stats.TotalDeliveries += w.TotalDeliveries
		stats.CompletedDeliveries += w.CompletedDeliveries

		if w.VisitRating > 0 {
			visitRatingSum += w.VisitRating
			visitRated++
		}
		if w.DeliveryRating > 0 {
			deliveryRatingSum += w.DeliveryRating
			deliveryRated++
		}

		if w.CombinedRating() == 0 {
			continue
		}
		if top == nil ||
			w.CombinedRating() > top.CombinedRating() ||
			(w.CombinedRating() == top.CombinedRating() && w.CompletedActivity() > top.CompletedActivity()) {
			top = w
		}
	}

	if visitRated > 0 {
		stats.AverageVisitRating = visitRatingSum / float64(visitRated)
	}
	if deliveryRated > 0 {
		stats.AverageDeliveryRating = deliveryRatingSum / float64(deliveryRated)
	}
	if top != nil {
		stats.TopPerformer = top.RepresentativeID
	}
}

// successRate is completed/total as a percentage, defined as 0 when total
// is 0.
func successRate(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}

// mapCtxErr converts deadline expiry into the computation-timeout error so
// callers can distinguish budget exhaustion from store failures.
func mapCtxErr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return ErrComputationTimeout
	}
	return err
}
