package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	eventadapter "field-tracker/internal/features/events/adapters"
	eventdomain "field-tracker/internal/features/events/domain"
	"field-tracker/internal/features/status/domain"
	"field-tracker/internal/features/status/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestApp(t *testing.T) (*fiber.App, *eventadapter.RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)

	store, err := eventadapter.NewRedisStore("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	resolver := service.NewResolver(store, store, store, 12*time.Hour, time.Second, zap.NewNop())
	handler := NewStatusHandler(resolver)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("requestid", "test-ray-id")
		return c.Next()
	})
	app.Get("/representatives/status", handler.GetBulkStatus)
	app.Get("/representatives/:id/status", handler.GetStatus)

	return app, store
}

// TestGetStatus_Active verifies an open attendance record resolves to active.
func TestGetStatus_Active(t *testing.T) {
	app, store := newTestApp(t)

	require.NoError(t, store.SaveOpen(context.Background(), &eventdomain.AttendanceRecord{
		ID:               "att-1",
		RepresentativeID: "rep-1",
		CheckInTime:      time.Now().Add(-5 * time.Minute),
		Status:           eventdomain.AttendanceCheckedIn,
	}))

	req := httptest.NewRequest("GET", "/representatives/rep-1/status", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var snapshot domain.StatusSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snapshot))
	assert.Equal(t, domain.StatusActive, snapshot.Status)
	assert.Equal(t, "rep-1", snapshot.RepresentativeID)
	assert.False(t, snapshot.AsOf.IsZero())
}

// TestGetStatus_NotFound verifies unknown representatives return 404.
func TestGetStatus_NotFound(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest("GET", "/representatives/rep-ghost/status", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var errResp ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	assert.Equal(t, "test-ray-id", errResp.RayID)
}

// TestGetBulkStatus verifies the bulk endpoint maps every known
// representative and returns an empty object for an empty store.
func TestGetBulkStatus(t *testing.T) {
	app, store := newTestApp(t)

	req := httptest.NewRequest("GET", "/representatives/status", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var empty map[string]domain.StatusSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&empty))
	assert.Empty(t, empty)

	ctx := context.Background()
	require.NoError(t, store.SaveOpen(ctx, &eventdomain.AttendanceRecord{
		ID:               "att-1",
		RepresentativeID: "rep-1",
		CheckInTime:      time.Now().Add(-5 * time.Minute),
		Status:           eventdomain.AttendanceCheckedIn,
	}))

	visit := &eventdomain.VisitRecord{
		ID:               "v-1",
		RepresentativeID: "rep-2",
		Status:           eventdomain.VisitScheduled,
		ScheduledStart:   time.Now().Add(-30 * time.Minute),
		ScheduledEnd:     time.Now().Add(30 * time.Minute),
	}
	require.NoError(t, visit.Apply(eventdomain.VisitActionStart, time.Now().Add(-30*time.Minute)))
	require.NoError(t, store.Save(ctx, visit))

	req = httptest.NewRequest("GET", "/representatives/status", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result map[string]domain.StatusSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.Len(t, result, 2)
	assert.Equal(t, domain.StatusActive, result["rep-1"].Status)
	assert.Equal(t, domain.StatusOnVisit, result["rep-2"].Status)
}
