package service

import (
	"context"
	"time"

	"field-tracker/internal/core/metrics"

	"go.uber.org/zap"
)

// RunRetentionSweep evicts events older than the rolling window on the
// given interval until ctx is cancelled.
func (s *IngestService) RunRetentionSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepRetention(ctx)
		}
	}
}

// sweepRetention trims each representative's log to the retention window.
// The cutoff is clamped so events at or after an open attendance check-in
// or an in-progress visit's actual start are never evicted.
func (s *IngestService) sweepRetention(ctx context.Context) {
	reps, err := s.store.Representatives(ctx)
	if err != nil {
		s.log.Error("retention sweep: failed to list representatives", zap.Error(err))
		return
	}
	metrics.TrackedRepresentatives.Set(float64(len(reps)))

	cutoff := s.now().AddDate(0, 0, -s.retentionDays)
	var evicted int64

	for _, rep := range reps {
		repCutoff := cutoff

		open, err := s.attendance.Open(ctx, rep)
		if err != nil {
			s.log.Error("retention sweep: failed to read attendance",
				zap.String("representative_id", rep), zap.Error(err))
			continue
		}
		if open != nil && open.CheckInTime.Before(repCutoff) {
			repCutoff = open.CheckInTime
		}

		visit, err := s.visits.InProgress(ctx, rep)
		if err != nil {
			s.log.Error("retention sweep: failed to read in-progress visit",
				zap.String("representative_id", rep), zap.Error(err))
			continue
		}
		if visit != nil && visit.ActualStart != nil && visit.ActualStart.Before(repCutoff) {
			repCutoff = *visit.ActualStart
		}

		n, err := s.store.EvictBefore(ctx, rep, repCutoff)
		if err != nil {
			s.log.Error("retention sweep: eviction failed",
				zap.String("representative_id", rep), zap.Error(err))
			continue
		}
		evicted += n
	}

	if evicted > 0 {
		s.log.Info("retention sweep evicted events", zap.Int64("count", evicted))
	}
}
