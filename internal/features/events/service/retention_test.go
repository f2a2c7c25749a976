package service

import (
	"context"
	"testing"
	"time"

	"field-tracker/internal/features/events/adapters"
	"field-tracker/internal/features/events/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestSweepRetention_EvictsOldEvents verifies events older than the rolling
// window are removed while newer ones survive.
func TestSweepRetention_EvictsOldEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := adapters.NewRedisStore("redis://" + mr.Addr())
	require.NoError(t, err)
	defer store.Close()

	svc := NewIngestService(store, store, store, &recorderNotifier{}, 1, time.Millisecond, 30, zap.NewNop())

	now := time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	ctx := context.Background()
	old := &domain.LocationEvent{
		ID: "ev-old", RepresentativeID: "rep-1",
		Latitude: 33.31, Longitude: 44.36,
		ActivityType: domain.ActivityPing,
		RecordedAt:   now.AddDate(0, 0, -31),
	}
	recent := &domain.LocationEvent{
		ID: "ev-recent", RepresentativeID: "rep-1",
		Latitude: 33.32, Longitude: 44.37,
		ActivityType: domain.ActivityPing,
		RecordedAt:   now.AddDate(0, 0, -1),
	}
	require.NoError(t, store.Append(ctx, old))
	require.NoError(t, store.Append(ctx, recent))

	svc.sweepRetention(ctx)

	events, err := store.Range(ctx, "rep-1", now.AddDate(0, 0, -60), now)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ev-recent", events[0].ID)
}

// TestSweepRetention_OpenAttendanceClampsCutoff verifies events at or after
// an open attendance check-in survive eviction even when older than the
// rolling window.
func TestSweepRetention_OpenAttendanceClampsCutoff(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := adapters.NewRedisStore("redis://" + mr.Addr())
	require.NoError(t, err)
	defer store.Close()

	svc := NewIngestService(store, store, store, &recorderNotifier{}, 1, time.Millisecond, 30, zap.NewNop())

	now := time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	ctx := context.Background()
	checkIn := now.AddDate(0, 0, -40)
	require.NoError(t, store.SaveOpen(ctx, &domain.AttendanceRecord{
		ID:               "att-1",
		RepresentativeID: "rep-1",
		CheckInTime:      checkIn,
		Status:           domain.AttendanceCheckedIn,
	}))

	referenced := &domain.LocationEvent{
		ID: "ev-ref", RepresentativeID: "rep-1",
		Latitude: 33.31, Longitude: 44.36,
		ActivityType: domain.ActivityCheckIn,
		RecordedAt:   checkIn,
	}
	unreferenced := &domain.LocationEvent{
		ID: "ev-older", RepresentativeID: "rep-1",
		Latitude: 33.30, Longitude: 44.35,
		ActivityType: domain.ActivityPing,
		RecordedAt:   checkIn.Add(-time.Hour),
	}
	require.NoError(t, store.Append(ctx, referenced))
	require.NoError(t, store.Append(ctx, unreferenced))

	svc.sweepRetention(ctx)

	events, err := store.Range(ctx, "rep-1", now.AddDate(0, 0, -60), now)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ev-ref", events[0].ID)
}
