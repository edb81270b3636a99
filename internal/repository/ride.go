package repository

import (
	"context"
	"time"

	"dispatch/internal/domain"
)

// RideRepository defines the persistence operations for rides.
type RideRepository interface {
	// Create persists a new ride and sets its ID.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetByID retrieves a ride by ID.
	GetByID(ctx context.Context, id int64) (*domain.Ride, error)

	// ListByStatus retrieves rides in any of the given statuses, oldest first.
	// No statuses means all rides.
	ListByStatus(ctx context.Context, statuses ...domain.RideStatus) ([]*domain.Ride, error)

	// AssignIfPending moves a pending ride to assigned and stores the audit
	// record in the same transaction. It reports false, without error, when
	// the ride was no longer pending. A nil record assigns without audit.
	AssignIfPending(ctx context.Context, rideID, driverID int64, at time.Time, record *domain.AssignmentRecord) (bool, error)

	// UpdateStatus moves a ride from one status to another if it is still in
	// the from status. It reports whether a row changed.
	UpdateStatus(ctx context.Context, id int64, from, to domain.RideStatus, at time.Time, reason string) (bool, error)
}
