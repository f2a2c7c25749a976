package handler

import (
	"errors"
	"time"

	"field-tracker/internal/features/events/service"

	"github.com/gofiber/fiber/v2"
)

// IngestHandler handles HTTP requests for event submission.
type IngestHandler struct {
	ingest *service.IngestService
}

// NewIngestHandler creates a new IngestHandler.
func NewIngestHandler(ingest *service.IngestService) *IngestHandler {
	return &IngestHandler{ingest: ingest}
}

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for tracing.
	RayID string `json:"ray_id,omitempty"`
}

type locationRequest struct {
	RepresentativeID string    `json:"representative_id"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	AccuracyMeters   float64   `json:"accuracy_meters"`
	Location         string    `json:"location"`
	ActivityType     string    `json:"activity_type"`
	RecordedAt       time.Time `json:"recorded_at"`
}

type attendanceRequest struct {
	RepresentativeID string     `json:"representative_id"`
	Action           string     `json:"action"`
	At               *time.Time `json:"at"`
	Latitude         *float64   `json:"latitude"`
	Longitude        *float64   `json:"longitude"`
}

type visitRequest struct {
	RepresentativeID string     `json:"representative_id"`
	VisitID          string     `json:"visit_id"`
	CustomerRef      string     `json:"customer_ref"`
	Action           string     `json:"action"`
	At               *time.Time `json:"at"`
	ScheduledStart   *time.Time `json:"scheduled_start"`
	ScheduledEnd     *time.Time `json:"scheduled_end"`
	Latitude         *float64   `json:"latitude"`
	Longitude        *float64   `json:"longitude"`
}

// SubmitLocation godoc
// @Summary Submit a location event
// @Description Validates and stores a movement ping or activity-tagged location sample. Processing is asynchronous.
// @Tags events
// @Accept json
// @Produce json
// @Param event body locationRequest true "Location event"
// @Success 202 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /events/location [post]
func (h *IngestHandler) SubmitLocation(c *fiber.Ctx) error {
	var req locationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "malformed request body",
			RayID:   c.Locals("requestid").(string),
		})
	}

	eventID, err := h.ingest.SubmitLocation(c.Context(), service.LocationInput{
		RepresentativeID: req.RepresentativeID,
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
		AccuracyMeters:   req.AccuracyMeters,
		Location:         req.Location,
		ActivityType:     req.ActivityType,
		RecordedAt:       req.RecordedAt,
	})
	if err != nil {
		return h.submitError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"event_id": eventID})
}

// SubmitAttendance godoc
// @Summary Submit an attendance action
// @Description Applies a check-in or check-out for a representative.
// @Tags events
// @Accept json
// @Produce json
// @Param event body attendanceRequest true "Attendance action"
// @Success 202 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /events/attendance [post]
func (h *IngestHandler) SubmitAttendance(c *fiber.Ctx) error {
	var req attendanceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "malformed request body",
			RayID:   c.Locals("requestid").(string),
		})
	}

	in := service.AttendanceInput{
		RepresentativeID: req.RepresentativeID,
		Action:           req.Action,
	}
	if req.At != nil {
		in.At = *req.At
	}
	if req.Latitude != nil && req.Longitude != nil {
		in.HasCoordinates = true
		in.Latitude = *req.Latitude
		in.Longitude = *req.Longitude
	}

	if err := h.ingest.SubmitAttendance(c.Context(), in); err != nil {
		return h.submitError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "accepted"})
}

// SubmitVisit godoc
// @Summary Submit a visit lifecycle action
// @Description Applies start, complete, cancel or no_show to a visit.
// @Tags events
// @Accept json
// @Produce json
// @Param event body visitRequest true "Visit action"
// @Success 202 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /events/visit [post]
func (h *IngestHandler) SubmitVisit(c *fiber.Ctx) error {
	var req visitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "malformed request body",
			RayID:   c.Locals("requestid").(string),
		})
	}

	in := service.VisitInput{
		RepresentativeID: req.RepresentativeID,
		VisitID:          req.VisitID,
		CustomerRef:      req.CustomerRef,
		Action:           req.Action,
	}
	if req.At != nil {
		in.At = *req.At
	}
	if req.ScheduledStart != nil {
		in.ScheduledStart = *req.ScheduledStart
	}
	if req.ScheduledEnd != nil {
		in.ScheduledEnd = *req.ScheduledEnd
	}
	if req.Latitude != nil && req.Longitude != nil {
		in.HasCoordinates = true
		in.Latitude = *req.Latitude
		in.Longitude = *req.Longitude
	}

	if err := h.ingest.SubmitVisit(c.Context(), in); err != nil {
		return h.submitError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "accepted"})
}

func (h *IngestHandler) submitError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidEvent):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: err.Error(),
			RayID:   c.Locals("requestid").(string),
		})
	case errors.Is(err, service.ErrIngestUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Message: err.Error(),
			RayID:   c.Locals("requestid").(string),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Message: err.Error(),
			RayID:   c.Locals("requestid").(string),
		})
	}
}
