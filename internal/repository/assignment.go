package repository

import (
	"context"

	"dispatch/internal/domain"
)

// AssignmentRepository defines read access to assignment audit records.
// Records are written by RideRepository.AssignIfPending.
type AssignmentRepository interface {
	// GetByRideID retrieves the record for a ride.
	GetByRideID(ctx context.Context, rideID int64) (*domain.AssignmentRecord, error)
}
