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
	attendanceOpenKeyPrefix = "attendance:open:"
	attendanceLogKeyPrefix  = "attendance:log:"
)

func attendanceOpenKey(representativeID string) string {
	return attendanceOpenKeyPrefix + representativeID
}

func attendanceLogKey(representativeID string) string {
	return attendanceLogKeyPrefix + representativeID
}

// Open returns the representative's open attendance record, or nil.
func (s *RedisStore) Open(ctx context.Context, representativeID string) (*domain.AttendanceRecord, error) {
	data, err := s.client.Get(ctx, attendanceOpenKey(representativeID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get open attendance: %w", err)
	}

	var record domain.AttendanceRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal attendance record: %w", err)
	}
	return &record, nil
}

// SaveOpen stores a new open attendance record, replacing any existing one.
func (s *RedisStore) SaveOpen(ctx context.Context, record *domain.AttendanceRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal attendance record: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, attendanceOpenKey(record.RepresentativeID), data, 0)
		pipe.SAdd(ctx, repsKey, record.RepresentativeID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save open attendance: %w", err)
	}
	return nil
}

// CloseOpen closes the open record at the given time and appends it to the
// attendance log. Returns nil when no record is open.
func (s *RedisStore) CloseOpen(ctx context.Context, representativeID string, at time.Time) (*domain.AttendanceRecord, error) {
	record, err := s.Open(ctx, representativeID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}

	record.Close(at)

	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal attendance record: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, attendanceOpenKey(representativeID))
		pipe.ZAdd(ctx, attendanceLogKey(representativeID), redis.Z{
			Score:  float64(record.CheckInTime.UnixMilli()),
			Member: data,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to close attendance: %w", err)
	}
	return record, nil
}

// Log returns closed attendance records with CheckInTime in [from, to].
func (s *RedisStore) Log(ctx context.Context, representativeID string, from, to time.Time) ([]domain.AttendanceRecord, error) {
	members, err := s.client.ZRangeByScore(ctx, attendanceLogKey(representativeID), &redis.ZRangeBy{
		Min: strconv.FormatInt(from.UnixMilli(), 10),
		Max: strconv.FormatInt(to.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to range attendance log: %w", err)
	}

	records := make([]domain.AttendanceRecord, 0, len(members))
	for _, m := range members {
		var record domain.AttendanceRecord
		if err := json.Unmarshal([]byte(m), &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal attendance record: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}
