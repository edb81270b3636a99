package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(code, ErrorResponse{Error: "internal error"})
		return
	}
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrRideNotFound),
		errors.Is(err, service.ErrDriverNotFound),
		errors.Is(err, service.ErrAssignmentNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidRideID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrInvalidPickupLocation),
		errors.Is(err, service.ErrInvalidAddress),
		errors.Is(err, service.ErrInvalidPhone),
		errors.Is(err, service.ErrInvalidPaymentMethod),
		errors.Is(err, service.ErrScheduledTimeRequired),
		errors.Is(err, service.ErrInvalidDriverName),
		errors.Is(err, service.ErrInvalidStatus):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrRideNotPending),
		errors.Is(err, service.ErrRideAlreadyCancelled),
		errors.Is(err, service.ErrRideCannotBeCancelled),
		errors.Is(err, service.ErrRideNotAssigned),
		errors.Is(err, service.ErrStateConflict):
		return http.StatusConflict

	// Forbidden/Business rule errors
	case errors.Is(err, service.ErrDriverNotAssignedToRide):
		return http.StatusForbidden

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}

// parseID reads a positive int64 path parameter.
func parseID(c *gin.Context, name string, invalid error) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: invalid.Error()})
		return 0, false
	}
	return id, true
}

// AssignmentResponse is the HTTP representation of an assignment record.
type AssignmentResponse struct {
	RideID              int64                    `json:"ride_id"`
	AssignedDriverID    int64                    `json:"assigned_driver_id"`
	AssignmentType      string                   `json:"assignment_type"`
	DriverDistanceKm    *float64                 `json:"driver_distance_km"`
	RankedCandidates    []domain.RankedCandidate `json:"ranked_candidates"`
	TotalCandidateCount int                      `json:"total_candidate_count"`
	DecidedAt           time.Time                `json:"decided_at"`
}

func toAssignmentResponse(r *domain.AssignmentRecord) *AssignmentResponse {
	if r == nil {
		return nil
	}
	ranked := r.RankedCandidates
	if ranked == nil {
		ranked = []domain.RankedCandidate{}
	}
	return &AssignmentResponse{
		RideID:              r.RideID,
		AssignedDriverID:    r.AssignedDriverID,
		AssignmentType:      string(r.AssignmentType),
		DriverDistanceKm:    r.DriverDistanceKm,
		RankedCandidates:    ranked,
		TotalCandidateCount: r.TotalCandidateCount,
		DecidedAt:           r.DecidedAt,
	}
}

// OutcomeResponse reports how an assignment attempt ended. Only "assigned"
// changed state; the other outcomes are no-ops.
type OutcomeResponse struct {
	Outcome    string              `json:"outcome"`
	RideID     int64               `json:"ride_id"`
	Status     string              `json:"status,omitempty"`
	Deadline   *time.Time          `json:"deadline,omitempty"`
	Ride       *RideResponse       `json:"ride,omitempty"`
	Assignment *AssignmentResponse `json:"assignment,omitempty"`
}

func toOutcomeResponse(o *service.AssignmentOutcome, w domain.DecisionWindows) *OutcomeResponse {
	resp := &OutcomeResponse{
		Outcome: string(o.Kind),
		RideID:  o.RideID,
		Status:  string(o.Status),
	}
	if !o.Deadline.IsZero() {
		deadline := o.Deadline
		resp.Deadline = &deadline
	}
	if o.Ride != nil {
		resp.Ride = toRideResponse(o.Ride, w)
	}
	resp.Assignment = toAssignmentResponse(o.Record)
	return resp
}
