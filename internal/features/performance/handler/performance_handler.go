package handler

import (
	"errors"
	"time"

	"field-tracker/internal/features/performance/service"

	"github.com/gofiber/fiber/v2"
)

// defaultPeriodDays is used when the period_days query parameter is absent.
const defaultPeriodDays = 30

// PerformanceHandler handles HTTP requests for performance statistics.
type PerformanceHandler struct {
	aggregator *service.Aggregator
}

// NewPerformanceHandler creates a new PerformanceHandler.
func NewPerformanceHandler(aggregator *service.Aggregator) *PerformanceHandler {
	return &PerformanceHandler{aggregator: aggregator}
}

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for tracing.
	RayID string `json:"ray_id,omitempty"`
}

// GetPerformance godoc
// @Summary Get a representative's performance window
// @Description Aggregates visits, deliveries, distance and ratings over the last period_days days.
// @Tags performance
// @Produce json
// @Param id path string true "Representative ID"
// @Param period_days query int false "Accounting period in days (default 30)"
// @Success 200 {object} domain.PerformanceWindow
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 504 {object} ErrorResponse
// @Router /representatives/{id}/performance [get]
func (h *PerformanceHandler) GetPerformance(c *fiber.Ctx) error {
	days := c.QueryInt("period_days", defaultPeriodDays)
	if days <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "period_days must be a positive integer",
			RayID:   c.Locals("requestid").(string),
		})
	}

	to := time.Now()
	from := to.AddDate(0, 0, -days)

	window, err := h.aggregator.ComputeWindow(c.Context(), c.Params("id"), from, to)
	if err != nil {
		return h.aggregateError(c, err)
	}

	return c.JSON(window)
}

// GetFleetPerformance godoc
// @Summary Get fleet-wide performance statistics
// @Description Aggregates performance windows across all representatives over the last period_days days.
// @Tags performance
// @Produce json
// @Param period_days query int false "Accounting period in days (default 30)"
// @Success 200 {object} domain.FleetStats
// @Failure 400 {object} ErrorResponse
// @Failure 504 {object} ErrorResponse
// @Router /fleet/performance [get]
func (h *PerformanceHandler) GetFleetPerformance(c *fiber.Ctx) error {
	days := c.QueryInt("period_days", defaultPeriodDays)
	if days <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "period_days must be a positive integer",
			RayID:   c.Locals("requestid").(string),
		})
	}

	to := time.Now()
	from := to.AddDate(0, 0, -days)

	stats, err := h.aggregator.ComputeFleet(c.Context(), from, to)
	if err != nil {
		return h.aggregateError(c, err)
	}

	return c.JSON(stats)
}

func (h *PerformanceHandler) aggregateError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrRepresentativeNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Message: "representative not found",
			RayID:   c.Locals("requestid").(string),
		})
	case errors.Is(err, service.ErrComputationTimeout):
		return c.Status(fiber.StatusGatewayTimeout).JSON(ErrorResponse{
			Message: "aggregation exceeded its time budget, retry later",
			RayID:   c.Locals("requestid").(string),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Message: err.Error(),
			RayID:   c.Locals("requestid").(string),
		})
	}
}
