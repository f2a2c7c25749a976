package service

import (
	"context"
	"sync"
	"testing"
	"time"

	eventadapter "field-tracker/internal/features/events/adapters"
	eventdomain "field-tracker/internal/features/events/domain"
	"field-tracker/internal/features/status/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestResolver(t *testing.T) (*Resolver, *eventadapter.RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)

	store, err := eventadapter.NewRedisStore("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	r := NewResolver(store, store, store, 12*time.Hour, time.Second, zap.NewNop())
	return r, store
}

func checkIn(t *testing.T, store *eventadapter.RedisStore, rep string, at time.Time) *eventdomain.AttendanceRecord {
	t.Helper()
	record := &eventdomain.AttendanceRecord{
		ID:               "att-" + rep,
		RepresentativeID: rep,
		CheckInTime:      at,
		Status:           eventdomain.AttendanceCheckedIn,
	}
	require.NoError(t, store.SaveOpen(context.Background(), record))
	return record
}

func startVisit(t *testing.T, store *eventadapter.RedisStore, rep, id string, at time.Time) *eventdomain.VisitRecord {
	t.Helper()
	visit := &eventdomain.VisitRecord{
		ID:               id,
		RepresentativeID: rep,
		Status:           eventdomain.VisitScheduled,
		ScheduledStart:   at,
		ScheduledEnd:     at.Add(time.Hour),
	}
	require.NoError(t, visit.Apply(eventdomain.VisitActionStart, at))
	require.NoError(t, store.Save(context.Background(), visit))
	return visit
}

// TestResolve_NoData verifies a representative with no events is offline.
func TestResolve_NoData(t *testing.T) {
	r, _ := newTestResolver(t)

	snapshot, err := r.Resolve(context.Background(), "rep-ghost")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOffline, snapshot.Status)
	assert.Empty(t, snapshot.SourceRecordID)
}

// TestResolve_DayTimeline walks the canonical day: attendance at 08:00,
// visit in progress at 09:00, visit completed at 09:30, check-out at 17:00.
func TestResolve_DayTimeline(t *testing.T) {
	r, store := newTestResolver(t)
	ctx := context.Background()

	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	checkIn(t, store, "rep-1", day.Add(8*time.Hour))
	visit := startVisit(t, store, "rep-1", "v-1", day.Add(9*time.Hour))

	// 09:05 — in-progress visit dominates the open attendance record.
	r.now = func() time.Time { return day.Add(9*time.Hour + 5*time.Minute) }
	snapshot, err := r.Resolve(ctx, "rep-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOnVisit, snapshot.Status)
	assert.Equal(t, "v-1", snapshot.SourceRecordID)

	// 09:31 — visit completed, attendance still open.
	require.NoError(t, visit.Apply(eventdomain.VisitActionComplete, day.Add(9*time.Hour+30*time.Minute)))
	require.NoError(t, store.Save(ctx, visit))

	r.now = func() time.Time { return day.Add(9*time.Hour + 31*time.Minute) }
	snapshot, err = r.Resolve(ctx, "rep-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, snapshot.Status)

	// 17:01 — checked out.
	_, err = store.CloseOpen(ctx, "rep-1", day.Add(17*time.Hour))
	require.NoError(t, err)

	r.now = func() time.Time { return day.Add(17*time.Hour + time.Minute) }
	snapshot, err = r.Resolve(ctx, "rep-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOffline, snapshot.Status)
}

// TestResolve_StaleVisitFallsThrough verifies an abandoned visit is ignored
// but not closed, falling through to the attendance rule.
func TestResolve_StaleVisitFallsThrough(t *testing.T) {
	r, store := newTestResolver(t)
	ctx := context.Background()

	now := time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	// Visit started 13 hours ago, beyond the 12h max-age.
	startVisit(t, store, "rep-1", "v-stale", now.Add(-13*time.Hour))
	// Attendance opened today, within max-age.
	checkIn(t, store, "rep-1", now.Add(-time.Hour))

	snapshot, err := r.Resolve(ctx, "rep-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, snapshot.Status)

	// The stale visit is still in_progress in storage.
	visit, err := store.Get(ctx, "v-stale")
	require.NoError(t, err)
	assert.Equal(t, eventdomain.VisitInProgress, visit.Status)
}

// TestResolve_StaleAttendanceIsOffline verifies an abandoned attendance
// record resolves to offline.
func TestResolve_StaleAttendanceIsOffline(t *testing.T) {
	r, store := newTestResolver(t)

	now := time.Date(2025, 3, 2, 23, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	checkIn(t, store, "rep-1", now.Add(-13*time.Hour))

	snapshot, err := r.Resolve(context.Background(), "rep-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOffline, snapshot.Status)
}

// TestResolve_YesterdayAttendanceIgnored verifies an open record from a
// previous day does not count as active.
func TestResolve_YesterdayAttendanceIgnored(t *testing.T) {
	r, store := newTestResolver(t)

	now := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	// Open record from yesterday evening, still within 12h.
	checkIn(t, store, "rep-1", now.Add(-10*time.Hour))

	snapshot, err := r.Resolve(context.Background(), "rep-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOffline, snapshot.Status)
}

// TestStatus_UnknownRepresentative verifies the explicit not-found error.
func TestStatus_UnknownRepresentative(t *testing.T) {
	r, _ := newTestResolver(t)

	_, err := r.Status(context.Background(), "rep-unknown")
	assert.ErrorIs(t, err, ErrRepresentativeNotFound)
}

// TestBulkStatus verifies every known representative appears in the map
// and that an empty store yields an empty map.
func TestBulkStatus(t *testing.T) {
	r, store := newTestResolver(t)
	ctx := context.Background()

	result, err := r.BulkStatus(ctx)
	require.NoError(t, err)
	assert.Empty(t, result)

	now := time.Now()
	r.now = func() time.Time { return now }
	checkIn(t, store, "rep-1", now.Add(-time.Hour))
	startVisit(t, store, "rep-2", "v-2", now.Add(-30*time.Minute))

	result, err = r.BulkStatus(ctx)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, domain.StatusActive, result["rep-1"].Status)
	assert.Equal(t, domain.StatusOnVisit, result["rep-2"].Status)
}

// TestRecompute_SingleFlightCollapses verifies concurrent triggers for one
// representative collapse instead of piling up.
func TestRecompute_SingleFlightCollapses(t *testing.T) {
	r, store := newTestResolver(t)
	ctx := context.Background()

	now := time.Now()
	checkIn(t, store, "rep-1", now.Add(-time.Hour))

	var mu sync.Mutex
	resolutions := 0
	r.now = func() time.Time {
		mu.Lock()
		resolutions++
		mu.Unlock()
		return now
	}

	const triggers = 50
	for i := 0; i < triggers; i++ {
		r.recompute(ctx, "rep-1")
	}

	assert.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		f := r.flights["rep-1"]
		return f != nil && !f.running
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Less(t, resolutions, triggers)
	assert.GreaterOrEqual(t, resolutions, 1)
}

// TestSubscribe_PublishesStatusChanges verifies subscribers see transitions.
func TestSubscribe_PublishesStatusChanges(t *testing.T) {
	r, store := newTestResolver(t)
	ctx := context.Background()

	updates, cancel := r.Subscribe()
	defer cancel()

	now := time.Now()
	r.now = func() time.Time { return now }
	checkIn(t, store, "rep-1", now.Add(-time.Hour))

	_, err := r.Status(ctx, "rep-1")
	require.NoError(t, err)

	select {
	case snapshot := <-updates:
		assert.Equal(t, "rep-1", snapshot.RepresentativeID)
		assert.Equal(t, domain.StatusActive, snapshot.Status)
	case <-time.After(time.Second):
		t.Fatal("expected a status update")
	}

	// Same status again does not republish.
	_, err = r.Status(ctx, "rep-1")
	require.NoError(t, err)
	select {
	case snapshot := <-updates:
		t.Fatalf("unexpected update: %+v", snapshot)
	case <-time.After(50 * time.Millisecond):
	}
}
