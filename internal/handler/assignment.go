package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/service"
)

// AssignmentHandler handles assignment triggers, audit lookups and the
// admin endpoints.
type AssignmentHandler struct {
	scheduler   *service.RideTimeoutScheduler
	query       *service.AssignmentQueryService
	rideService *service.RideService
}

// NewAssignmentHandler creates a new AssignmentHandler.
func NewAssignmentHandler(
	scheduler *service.RideTimeoutScheduler,
	query *service.AssignmentQueryService,
	rideService *service.RideService,
) *AssignmentHandler {
	return &AssignmentHandler{
		scheduler:   scheduler,
		query:       query,
		rideService: rideService,
	}
}

// OverrideAssignmentRequest is the HTTP request body for a manual assignment.
type OverrideAssignmentRequest struct {
	DriverID int64 `json:"driver_id"`
}

// TriggerTimeout handles POST /v1/rides/:id/timeout
//
// Clients call this when their local countdown ends. The deadline is
// recomputed server side, so an early call answers "not_expired".
func (h *AssignmentHandler) TriggerTimeout(c *gin.Context) {
	rideID, ok := parseID(c, "id", service.ErrInvalidRideID)
	if !ok {
		return
	}

	outcome, err := h.scheduler.TriggerRide(c.Request.Context(), rideID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toOutcomeResponse(outcome, h.scheduler.Windows()))
}

// GetAssignment handles GET /v1/rides/:id/assignment
func (h *AssignmentHandler) GetAssignment(c *gin.Context) {
	rideID, ok := parseID(c, "id", service.ErrInvalidRideID)
	if !ok {
		return
	}

	record, err := h.query.GetAssignment(c.Request.Context(), rideID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toAssignmentResponse(record))
}

// OverrideAssignment handles POST /v1/admin/rides/:id/assign
func (h *AssignmentHandler) OverrideAssignment(c *gin.Context) {
	rideID, ok := parseID(c, "id", service.ErrInvalidRideID)
	if !ok {
		return
	}

	var req OverrideAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.OverrideAssignment(c.Request.Context(), rideID, req.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride, h.scheduler.Windows()))
}

// Sweep handles POST /v1/admin/sweep
func (h *AssignmentHandler) Sweep(c *gin.Context) {
	report, err := h.scheduler.Sweep(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, report)
}
