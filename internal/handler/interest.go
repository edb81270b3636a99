package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// InterestHandler handles driver candidacies on pending rides.
type InterestHandler struct {
	registry  *service.InterestRegistry
	scheduler *service.RideTimeoutScheduler
}

// NewInterestHandler creates a new InterestHandler.
func NewInterestHandler(registry *service.InterestRegistry, scheduler *service.RideTimeoutScheduler) *InterestHandler {
	return &InterestHandler{
		registry:  registry,
		scheduler: scheduler,
	}
}

// RecordInterestRequest is the HTTP request body for expressing interest.
type RecordInterestRequest struct {
	DriverID int64               `json:"driver_id"`
	Location *domain.Coordinates `json:"location,omitempty"`
}

// InterestResponse is the HTTP representation of an interest.
type InterestResponse struct {
	RideID      int64               `json:"ride_id"`
	DriverID    int64               `json:"driver_id"`
	Location    *domain.Coordinates `json:"location,omitempty"`
	ExpressedAt time.Time           `json:"expressed_at"`
	DriverName  string              `json:"driver_name,omitempty"`
	DriverPhone string              `json:"driver_phone,omitempty"`
}

// RecordInterestResponse is returned after an interest is stored. Assignment
// is present when the ride's window had already closed and an assignment
// was attempted right away.
type RecordInterestResponse struct {
	Interest   InterestResponse `json:"interest"`
	Assignment *OutcomeResponse `json:"assignment,omitempty"`
}

func toInterestResponse(in *domain.Interest) InterestResponse {
	return InterestResponse{
		RideID:      in.RideID,
		DriverID:    in.DriverID,
		Location:    in.Location,
		ExpressedAt: in.ExpressedAt,
		DriverName:  in.DriverName,
		DriverPhone: in.DriverPhone,
	}
}

// RecordInterest handles POST /v1/rides/:id/interests
func (h *InterestHandler) RecordInterest(c *gin.Context) {
	rideID, ok := parseID(c, "id", service.ErrInvalidRideID)
	if !ok {
		return
	}

	var req RecordInterestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	interest, err := h.registry.RecordInterest(c.Request.Context(), rideID, req.DriverID, req.Location)
	if err != nil {
		respondError(c, err)
		return
	}

	response := RecordInterestResponse{Interest: toInterestResponse(interest)}

	// A ride whose window already closed is decided now instead of waiting
	// for the next sweep.
	outcome, err := h.scheduler.TriggerRide(c.Request.Context(), rideID)
	if err != nil {
		_ = c.Error(err)
	} else if outcome.Kind != service.OutcomeNotExpired {
		response.Assignment = toOutcomeResponse(outcome, h.scheduler.Windows())
	}

	respondJSON(c, http.StatusCreated, response)
}

// RemoveInterest handles DELETE /v1/rides/:id/interests/:driverId
func (h *InterestHandler) RemoveInterest(c *gin.Context) {
	rideID, ok := parseID(c, "id", service.ErrInvalidRideID)
	if !ok {
		return
	}
	driverID, ok := parseID(c, "driverId", service.ErrInvalidDriverID)
	if !ok {
		return
	}

	removed, err := h.registry.RemoveInterest(c.Request.Context(), rideID, driverID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"removed": removed})
}

// ListInterests handles GET /v1/rides/:id/interests
func (h *InterestHandler) ListInterests(c *gin.Context) {
	rideID, ok := parseID(c, "id", service.ErrInvalidRideID)
	if !ok {
		return
	}

	interests, err := h.registry.ListInterests(c.Request.Context(), rideID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]InterestResponse, 0, len(interests))
	for _, in := range interests {
		response = append(response, toInterestResponse(in))
	}
	respondJSON(c, http.StatusOK, response)
}
