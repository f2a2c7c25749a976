package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"field-tracker/internal/features/events/domain"

	"github.com/redis/go-redis/v9"
)

const (
	visitKeyPrefix           = "visit:"
	visitIndexKeyPrefix      = "visits:"
	visitInProgressKeyPrefix = "visit:inprogress:"
)

func visitKey(visitID string) string {
	return visitKeyPrefix + visitID
}

func visitIndexKey(representativeID string) string {
	return visitIndexKeyPrefix + representativeID
}

func visitInProgressKey(representativeID string) string {
	return visitInProgressKeyPrefix + representativeID
}

// visitStart is the time a visit is indexed by: the actual start when
// known, otherwise the scheduled start.
func visitStart(v *domain.VisitRecord) time.Time {
	if v.ActualStart != nil {
		return *v.ActualStart
	}
	return v.ScheduledStart
}

// Save writes the visit record and keeps the per-representative
// in-progress pointer in sync with the record's status.
func (s *RedisStore) Save(ctx context.Context, visit *domain.VisitRecord) error {
	data, err := json.Marshal(visit)
	if err != nil {
		return fmt.Errorf("failed to marshal visit: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, visitKey(visit.ID), data, 0)
		pipe.ZAdd(ctx, visitIndexKey(visit.RepresentativeID), redis.Z{
			Score:  float64(visitStart(visit).UnixMilli()),
			Member: visit.ID,
		})
		pipe.SAdd(ctx, repsKey, visit.RepresentativeID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save visit: %w", err)
	}

	pointerKey := visitInProgressKey(visit.RepresentativeID)
	if visit.Status == domain.VisitInProgress {
		if err := s.client.Set(ctx, pointerKey, visit.ID, 0).Err(); err != nil {
			return fmt.Errorf("failed to set in-progress pointer: %w", err)
		}
		return nil
	}

	// Clear the pointer only if it still points at this visit.
	current, err := s.client.Get(ctx, pointerKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read in-progress pointer: %w", err)
	}
	if current == visit.ID {
		if err := s.client.Del(ctx, pointerKey).Err(); err != nil {
			return fmt.Errorf("failed to clear in-progress pointer: %w", err)
		}
	}
	return nil
}

// Get returns the visit by ID, or nil when unknown.
func (s *RedisStore) Get(ctx context.Context, visitID string) (*domain.VisitRecord, error) {
	data, err := s.client.Get(ctx, visitKey(visitID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get visit: %w", err)
	}

	var visit domain.VisitRecord
	if err := json.Unmarshal(data, &visit); err != nil {
		return nil, fmt.Errorf("failed to unmarshal visit: %w", err)
	}
	return &visit, nil
}

// InProgress returns the representative's in-progress visit, or nil.
func (s *RedisStore) InProgress(ctx context.Context, representativeID string) (*domain.VisitRecord, error) {
	visitID, err := s.client.Get(ctx, visitInProgressKey(representativeID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read in-progress pointer: %w", err)
	}

	visit, err := s.Get(ctx, visitID)
	if err != nil {
		return nil, err
	}
	if visit == nil || visit.Status != domain.VisitInProgress {
		return nil, nil
	}
	return visit, nil
}

// RangeVisits returns visits whose start time falls in [from, to], ascending.
func (s *RedisStore) RangeVisits(ctx context.Context, representativeID string, from, to time.Time) ([]domain.VisitRecord, error) {
	ids, err := s.client.ZRangeByScore(ctx, visitIndexKey(representativeID), &redis.ZRangeBy{
		Min: strconv.FormatInt(from.UnixMilli(), 10),
		Max: strconv.FormatInt(to.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to range visits: %w", err)
	}

	visits := make([]domain.VisitRecord, 0, len(ids))
	for _, id := range ids {
		visit, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if visit != nil {
			visits = append(visits, *visit)
		}
	}
	return visits, nil
}
