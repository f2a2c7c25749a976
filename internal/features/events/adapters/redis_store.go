package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"field-tracker/internal/features/events/domain"

	"github.com/redis/go-redis/v9"
)

const (
	repsKey         = "reps"
	eventsKeyPrefix = "events:"

	// latestPageSize bounds each backward scan page in Latest.
	latestPageSize = 50
)

// RedisStore implements the event store and record repositories on Redis.
// Events live in one sorted set per representative scored by RecordedAt
// (UnixMilli), which gives time-range reads and eviction in O(log n) and
// relies on Redis command serialization for per-representative append order.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a store from a Redis connection URL.
// The redisURL should be in the format: redis://[:password@]host[:port][/database]
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	return &RedisStore{client: redis.NewClient(opts)}, nil
}

// Ping checks if Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func eventsKey(representativeID string) string {
	return eventsKeyPrefix + representativeID
}

// Append stores one location event and registers the representative.
func (s *RedisStore) Append(ctx context.Context, event *domain.LocationEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, eventsKey(event.RepresentativeID), redis.Z{
			Score:  float64(event.RecordedAt.UnixMilli()),
			Member: data,
		})
		pipe.SAdd(ctx, repsKey, event.RepresentativeID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// Range returns events with RecordedAt in [from, to] sorted ascending.
func (s *RedisStore) Range(ctx context.Context, representativeID string, from, to time.Time) ([]domain.LocationEvent, error) {
	members, err := s.client.ZRangeByScore(ctx, eventsKey(representativeID), &redis.ZRangeBy{
		Min: strconv.FormatInt(from.UnixMilli(), 10),
		Max: strconv.FormatInt(to.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to range events: %w", err)
	}

	events := make([]domain.LocationEvent, 0, len(members))
	for _, m := range members {
		var ev domain.LocationEvent
		if err := json.Unmarshal([]byte(m), &ev); err != nil {
			return nil, fmt.Errorf("failed to unmarshal stored event: %w", err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// Latest returns the most recent event of any of the given kinds at or
// before now, scanning backwards in pages. Returns nil when none matches.
func (s *RedisStore) Latest(ctx context.Context, representativeID string, kinds []domain.ActivityType) (*domain.LocationEvent, error) {
	wanted := make(map[domain.ActivityType]bool, len(kinds))
	for _, k := range kinds {
		wanted[k] = true
	}

	max := strconv.FormatInt(time.Now().UnixMilli(), 10)
	for offset := int64(0); ; offset += latestPageSize {
		members, err := s.client.ZRevRangeByScore(ctx, eventsKey(representativeID), &redis.ZRangeBy{
			Min:    "-inf",
			Max:    max,
			Offset: offset,
			Count:  latestPageSize,
		}).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan latest events: %w", err)
		}
		if len(members) == 0 {
			return nil, nil
		}

		for _, m := range members {
			var ev domain.LocationEvent
			if err := json.Unmarshal([]byte(m), &ev); err != nil {
				return nil, fmt.Errorf("failed to unmarshal stored event: %w", err)
			}
			if len(wanted) == 0 || wanted[ev.ActivityType] {
				return &ev, nil
			}
		}
	}
}

// Representatives lists all representative IDs seen by the store.
func (s *RedisStore) Representatives(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, repsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list representatives: %w", err)
	}
	return ids, nil
}

// Known reports whether the representative is registered.
func (s *RedisStore) Known(ctx context.Context, representativeID string) (bool, error) {
	known, err := s.client.SIsMember(ctx, repsKey, representativeID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check representative: %w", err)
	}
	return known, nil
}

// EvictBefore removes events recorded strictly before the cutoff.
func (s *RedisStore) EvictBefore(ctx context.Context, representativeID string, cutoff time.Time) (int64, error) {
	removed, err := s.client.ZRemRangeByScore(ctx, eventsKey(representativeID),
		"-inf", "("+strconv.FormatInt(cutoff.UnixMilli(), 10)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to evict events: %w", err)
	}
	return removed, nil
}
