package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// RideHandler handles HTTP requests for rides.
type RideHandler struct {
	rideService *service.RideService
	windows     domain.DecisionWindows
}

// NewRideHandler creates a new RideHandler. windows is used to report each
// pending ride's decision deadline.
func NewRideHandler(rideService *service.RideService, windows domain.DecisionWindows) *RideHandler {
	return &RideHandler{
		rideService: rideService,
		windows:     windows,
	}
}

// CreateRideRequest is the HTTP request body for creating a ride.
type CreateRideRequest struct {
	IsImmediate    bool                `json:"is_immediate"`
	Pickup         *domain.Coordinates `json:"pickup,omitempty"`
	PickupAddress  string              `json:"pickup_address"`
	DropoffAddress string              `json:"dropoff_address"`
	PaymentMethod  string              `json:"payment_method,omitempty"` // cash, card, transfer
	ClientPhone    string              `json:"client_phone"`
	ScheduledFor   *time.Time          `json:"scheduled_for,omitempty"`
}

// CancelRideRequest is the HTTP request body for cancelling a ride.
type CancelRideRequest struct {
	Reason string `json:"reason,omitempty"`
}

// CompleteRideRequest is the HTTP request body for completing a ride.
type CompleteRideRequest struct {
	DriverID int64 `json:"driver_id"`
}

// RideResponse is the HTTP representation of a ride.
type RideResponse struct {
	ID             int64               `json:"id"`
	IsImmediate    bool                `json:"is_immediate"`
	Pickup         *domain.Coordinates `json:"pickup,omitempty"`
	PickupAddress  string              `json:"pickup_address"`
	DropoffAddress string              `json:"dropoff_address"`
	PaymentMethod  string              `json:"payment_method"`
	ClientPhone    string              `json:"client_phone"`
	ScheduledFor   *time.Time          `json:"scheduled_for,omitempty"`
	Status         string              `json:"status"`
	AssignedTo     *int64              `json:"assigned_to,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	DecisionBy     *time.Time          `json:"decision_deadline,omitempty"`
	AssignedAt     *time.Time          `json:"assigned_at,omitempty"`
	CompletedAt    *time.Time          `json:"completed_at,omitempty"`
	CancelledAt    *time.Time          `json:"cancelled_at,omitempty"`
	CancelReason   string              `json:"cancel_reason,omitempty"`
}

func toRideResponse(r *domain.Ride, w domain.DecisionWindows) *RideResponse {
	resp := &RideResponse{
		ID:             r.ID,
		IsImmediate:    r.IsImmediate,
		Pickup:         r.Pickup,
		PickupAddress:  r.PickupAddress,
		DropoffAddress: r.DropoffAddress,
		PaymentMethod:  string(r.PaymentMethod),
		ClientPhone:    r.ClientPhone,
		ScheduledFor:   r.ScheduledFor,
		Status:         string(r.Status),
		AssignedTo:     r.AssignedTo,
		CreatedAt:      r.CreatedAt,
		AssignedAt:     r.AssignedAt,
		CompletedAt:    r.CompletedAt,
		CancelledAt:    r.CancelledAt,
		CancelReason:   r.CancelReason,
	}
	if r.Status == domain.RideStatusPending {
		deadline := w.Deadline(r)
		resp.DecisionBy = &deadline
	}
	return resp
}

// CreateRide handles POST /v1/rides
func (h *RideHandler) CreateRide(c *gin.Context) {
	var req CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.CreateRide(c.Request.Context(), service.CreateRideRequest{
		IsImmediate:    req.IsImmediate,
		Pickup:         req.Pickup,
		PickupAddress:  req.PickupAddress,
		DropoffAddress: req.DropoffAddress,
		PaymentMethod:  req.PaymentMethod,
		ClientPhone:    req.ClientPhone,
		ScheduledFor:   req.ScheduledFor,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toRideResponse(ride, h.windows))
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	rideID, ok := parseID(c, "id", service.ErrInvalidRideID)
	if !ok {
		return
	}

	ride, err := h.rideService.GetRide(c.Request.Context(), rideID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride, h.windows))
}

// ListRides handles GET /v1/rides?status=
func (h *RideHandler) ListRides(c *gin.Context) {
	rides, err := h.rideService.ListRides(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]*RideResponse, 0, len(rides))
	for _, r := range rides {
		response = append(response, toRideResponse(r, h.windows))
	}
	respondJSON(c, http.StatusOK, response)
}

// CompleteRide handles POST /v1/rides/:id/complete
func (h *RideHandler) CompleteRide(c *gin.Context) {
	rideID, ok := parseID(c, "id", service.ErrInvalidRideID)
	if !ok {
		return
	}

	var req CompleteRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.CompleteRide(c.Request.Context(), rideID, req.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride, h.windows))
}

// CancelRide handles POST /v1/rides/:id/cancel
func (h *RideHandler) CancelRide(c *gin.Context) {
	rideID, ok := parseID(c, "id", service.ErrInvalidRideID)
	if !ok {
		return
	}

	// The body is optional.
	var req CancelRideRequest
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
			return
		}
	}

	ride, err := h.rideService.CancelRide(c.Request.Context(), rideID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride, h.windows))
}
