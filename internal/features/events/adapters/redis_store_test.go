package adapters

import (
	"context"
	"testing"
	"time"

	"field-tracker/internal/features/events/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)

	store, err := NewRedisStore("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func ping(rep string, at time.Time) *domain.LocationEvent {
	return &domain.LocationEvent{
		ID:               "ev-" + at.Format("150405"),
		RepresentativeID: rep,
		Latitude:         33.3152,
		Longitude:        44.3661,
		ActivityType:     domain.ActivityPing,
		RecordedAt:       at,
	}
}

// TestRedisStore_RangeSortsOutOfOrderAppends verifies reads are sorted by
// recorded_at even when events arrive out of order.
func TestRedisStore_RangeSortsOutOfOrderAppends(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, store.Append(ctx, ping("rep-1", base.Add(20*time.Minute))))
	require.NoError(t, store.Append(ctx, ping("rep-1", base)))
	require.NoError(t, store.Append(ctx, ping("rep-1", base.Add(10*time.Minute))))

	events, err := store.Range(ctx, "rep-1", base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, base, events[0].RecordedAt.UTC())
	assert.Equal(t, base.Add(10*time.Minute), events[1].RecordedAt.UTC())
	assert.Equal(t, base.Add(20*time.Minute), events[2].RecordedAt.UTC())
}

// TestRedisStore_RangeBounds verifies the range is inclusive and scoped to
// one representative.
func TestRedisStore_RangeBounds(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, store.Append(ctx, ping("rep-1", base)))
	require.NoError(t, store.Append(ctx, ping("rep-1", base.Add(2*time.Hour))))
	require.NoError(t, store.Append(ctx, ping("rep-2", base)))

	events, err := store.Range(ctx, "rep-1", base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "rep-1", events[0].RepresentativeID)
}

// TestRedisStore_DuplicateAppend verifies resubmitting an identical event
// does not corrupt the log.
func TestRedisStore_DuplicateAppend(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	at := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	ev := ping("rep-1", at)
	require.NoError(t, store.Append(ctx, ev))
	require.NoError(t, store.Append(ctx, ev))

	events, err := store.Range(ctx, "rep-1", at, at)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(events), 2)
	assert.NotEmpty(t, events)
}

// TestRedisStore_Latest verifies kind filtering and the nil result for
// unknown representatives.
func TestRedisStore_Latest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	start := ping("rep-1", base)
	start.ActivityType = domain.ActivityDeliveryStart
	require.NoError(t, store.Append(ctx, start))
	require.NoError(t, store.Append(ctx, ping("rep-1", base.Add(10*time.Minute))))

	latest, err := store.Latest(ctx, "rep-1", nil)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, domain.ActivityPing, latest.ActivityType)

	latest, err = store.Latest(ctx, "rep-1", []domain.ActivityType{domain.ActivityDeliveryStart})
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, domain.ActivityDeliveryStart, latest.ActivityType)

	latest, err = store.Latest(ctx, "rep-unknown", nil)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

// TestRedisStore_Representatives verifies registration and membership checks.
func TestRedisStore_Representatives(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, ping("rep-1", time.Now())))
	require.NoError(t, store.Append(ctx, ping("rep-2", time.Now())))

	reps, err := store.Representatives(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"rep-1", "rep-2"}, reps)

	known, err := store.Known(ctx, "rep-1")
	require.NoError(t, err)
	assert.True(t, known)

	known, err = store.Known(ctx, "rep-3")
	require.NoError(t, err)
	assert.False(t, known)
}

// TestRedisStore_EvictBefore verifies only events strictly before the
// cutoff are removed.
func TestRedisStore_EvictBefore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, store.Append(ctx, ping("rep-1", base)))
	require.NoError(t, store.Append(ctx, ping("rep-1", base.Add(time.Hour))))
	require.NoError(t, store.Append(ctx, ping("rep-1", base.Add(2*time.Hour))))

	removed, err := store.EvictBefore(ctx, "rep-1", base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	events, err := store.Range(ctx, "rep-1", base, base.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, base.Add(time.Hour), events[0].RecordedAt.UTC())
}

// TestRedisStore_AttendanceLifecycle verifies open, close and log reads.
func TestRedisStore_AttendanceLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	open, err := store.Open(ctx, "rep-1")
	require.NoError(t, err)
	assert.Nil(t, open)

	checkIn := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	record := &domain.AttendanceRecord{
		ID:               "att-1",
		RepresentativeID: "rep-1",
		CheckInTime:      checkIn,
		Status:           domain.AttendanceCheckedIn,
	}
	require.NoError(t, store.SaveOpen(ctx, record))

	open, err = store.Open(ctx, "rep-1")
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, "att-1", open.ID)
	assert.True(t, open.Open())

	closed, err := store.CloseOpen(ctx, "rep-1", checkIn.Add(9*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, closed)
	assert.Equal(t, domain.AttendanceCheckedOut, closed.Status)

	open, err = store.Open(ctx, "rep-1")
	require.NoError(t, err)
	assert.Nil(t, open)

	log, err := store.Log(ctx, "rep-1", checkIn.Add(-time.Hour), checkIn.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, "att-1", log[0].ID)

	// Closing again is a no-op.
	closed, err = store.CloseOpen(ctx, "rep-1", checkIn.Add(10*time.Hour))
	require.NoError(t, err)
	assert.Nil(t, closed)
}

// TestRedisStore_VisitLifecycle verifies save, in-progress tracking and range.
func TestRedisStore_VisitLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	visit := &domain.VisitRecord{
		ID:               "v-1",
		RepresentativeID: "rep-1",
		CustomerRef:      "cust-1",
		Status:           domain.VisitScheduled,
		ScheduledStart:   start,
		ScheduledEnd:     start.Add(time.Hour),
	}
	require.NoError(t, visit.Apply(domain.VisitActionStart, start))
	require.NoError(t, store.Save(ctx, visit))

	inProgress, err := store.InProgress(ctx, "rep-1")
	require.NoError(t, err)
	require.NotNil(t, inProgress)
	assert.Equal(t, "v-1", inProgress.ID)

	require.NoError(t, visit.Apply(domain.VisitActionComplete, start.Add(30*time.Minute)))
	require.NoError(t, store.Save(ctx, visit))

	inProgress, err = store.InProgress(ctx, "rep-1")
	require.NoError(t, err)
	assert.Nil(t, inProgress)

	visits, err := store.RangeVisits(ctx, "rep-1", start.Add(-time.Hour), start.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, visits, 1)
	assert.Equal(t, domain.VisitCompleted, visits[0].Status)

	got, err := store.Get(ctx, "v-unknown")
	require.NoError(t, err)
	assert.Nil(t, got)
}
