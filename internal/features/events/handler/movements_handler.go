package handler

import (
	"errors"
	"time"

	"field-tracker/internal/features/events/service"

	"github.com/gofiber/fiber/v2"
)

// MovementsHandler handles HTTP requests for movement history.
type MovementsHandler struct {
	query *service.QueryService
}

// NewMovementsHandler creates a new MovementsHandler.
func NewMovementsHandler(query *service.QueryService) *MovementsHandler {
	return &MovementsHandler{query: query}
}

// GetMovements godoc
// @Summary Get movement history for a representative
// @Description Returns location events ordered by recorded_at. The from, to, activity_type and location filters compose with logical AND.
// @Tags movements
// @Produce json
// @Param id path string true "Representative ID"
// @Param from query string false "Start of range (RFC3339)"
// @Param to query string false "End of range (RFC3339)"
// @Param activity_type query string false "Activity type filter"
// @Param location query string false "Place label substring filter"
// @Success 200 {array} domain.LocationEvent
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /representatives/{id}/movements [get]
func (h *MovementsHandler) GetMovements(c *fiber.Ctx) error {
	representativeID := c.Params("id")

	filter := service.MovementFilter{
		ActivityType: c.Query("activity_type"),
		Location:     c.Query("location"),
	}

	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Message: "invalid from timestamp, expected RFC3339",
				RayID:   c.Locals("requestid").(string),
			})
		}
		filter.From = t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Message: "invalid to timestamp, expected RFC3339",
				RayID:   c.Locals("requestid").(string),
			})
		}
		filter.To = t
	}

	events, err := h.query.Movements(c.Context(), representativeID, filter)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRepresentativeNotFound):
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
				Message: "representative not found",
				RayID:   c.Locals("requestid").(string),
			})
		case errors.Is(err, service.ErrInvalidEvent):
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
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

	return c.JSON(events)
}
