package mq

import (
	"time"

	"dispatch/internal/domain"
)

// Event is the JSON body published for every ride notification.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Message    string         `json:"message"`
	Ride       *RidePayload   `json:"ride,omitempty"`
	Assignment *AssignPayload `json:"assignment,omitempty"`
}

// RidePayload is the ride snapshot carried by an event.
type RidePayload struct {
	ID             int64               `json:"id"`
	Status         string              `json:"status"`
	IsImmediate    bool                `json:"is_immediate"`
	Pickup         *domain.Coordinates `json:"pickup,omitempty"`
	PickupAddress  string              `json:"pickup_address"`
	DropoffAddress string              `json:"dropoff_address"`
	PaymentMethod  string              `json:"payment_method"`
	ClientPhone    string              `json:"client_phone"`
	ScheduledFor   *time.Time          `json:"scheduled_for,omitempty"`
	AssignedTo     *int64              `json:"assigned_to,omitempty"`
	CancelReason   string              `json:"cancel_reason,omitempty"`
}

// AssignPayload summarises the assignment decision.
type AssignPayload struct {
	DriverID            int64                    `json:"driver_id"`
	Type                string                   `json:"type"`
	DistanceKm          *float64                 `json:"distance_km,omitempty"`
	TotalCandidateCount int                      `json:"total_candidate_count"`
	RankedCandidates    []domain.RankedCandidate `json:"ranked_candidates"`
}

func newEvent(n domain.Notification) Event {
	e := Event{
		ID:         n.ID,
		Type:       string(n.Type),
		OccurredAt: n.CreatedAt,
		Message:    n.Message,
	}
	if r := n.Ride; r != nil {
		e.Ride = &RidePayload{
			ID:             r.ID,
			Status:         string(r.Status),
			IsImmediate:    r.IsImmediate,
			Pickup:         r.Pickup,
			PickupAddress:  r.PickupAddress,
			DropoffAddress: r.DropoffAddress,
			PaymentMethod:  string(r.PaymentMethod),
			ClientPhone:    r.ClientPhone,
			ScheduledFor:   r.ScheduledFor,
			AssignedTo:     r.AssignedTo,
			CancelReason:   r.CancelReason,
		}
	}
	if rec := n.Record; rec != nil {
		e.Assignment = &AssignPayload{
			DriverID:            rec.AssignedDriverID,
			Type:                string(rec.AssignmentType),
			DistanceKm:          rec.DriverDistanceKm,
			TotalCandidateCount: rec.TotalCandidateCount,
			RankedCandidates:    rec.RankedCandidates,
		}
	}
	return e
}
