package handler

import (
	"bufio"
	"encoding/json"
	"errors"

	"field-tracker/internal/features/status/service"

	"github.com/gofiber/fiber/v2"
)

// StatusHandler handles HTTP requests for live representative status.
type StatusHandler struct {
	resolver *service.Resolver
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(resolver *service.Resolver) *StatusHandler {
	return &StatusHandler{resolver: resolver}
}

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for tracing.
	RayID string `json:"ray_id,omitempty"`
}

// GetStatus godoc
// @Summary Get the current status of a representative
// @Description Resolves on_visit, active or offline from stored records.
// @Tags status
// @Produce json
// @Param id path string true "Representative ID"
// @Success 200 {object} domain.StatusSnapshot
// @Failure 404 {object} ErrorResponse
// @Router /representatives/{id}/status [get]
func (h *StatusHandler) GetStatus(c *fiber.Ctx) error {
	snapshot, err := h.resolver.Status(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, service.ErrRepresentativeNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
				Message: "representative not found",
				RayID:   c.Locals("requestid").(string),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Message: err.Error(),
			RayID:   c.Locals("requestid").(string),
		})
	}

	return c.JSON(snapshot)
}

// GetBulkStatus godoc
// @Summary Get the current status of all representatives
// @Description Returns a mapping of representative ID to status snapshot. An empty store yields an empty mapping.
// @Tags status
// @Produce json
// @Success 200 {object} map[string]domain.StatusSnapshot
// @Router /representatives/status [get]
func (h *StatusHandler) GetBulkStatus(c *fiber.Ctx) error {
	snapshots, err := h.resolver.BulkStatus(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Message: err.Error(),
			RayID:   c.Locals("requestid").(string),
		})
	}

	return c.JSON(snapshots)
}

// StreamStatus godoc
// @Summary Stream status changes
// @Description Emits newline-delimited JSON snapshots whenever a representative's status changes, until the client disconnects.
// @Tags status
// @Produce json
// @Success 200 {object} domain.StatusSnapshot
// @Router /representatives/status/stream [get]
func (h *StatusHandler) StreamStatus(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "application/x-ndjson")
	c.Set(fiber.HeaderCacheControl, "no-cache")

	updates, cancel := h.resolver.Subscribe()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		enc := json.NewEncoder(w)
		for snapshot := range updates {
			if err := enc.Encode(snapshot); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	})
	return nil
}
