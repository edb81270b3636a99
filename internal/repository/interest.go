package repository

import (
	"context"

	"dispatch/internal/domain"
)

// InterestRepository defines the persistence operations for driver interests.
type InterestRepository interface {
	// UpsertIfPending records an interest, replacing the location and time
	// of an existing one for the same ride and driver. Nothing is written
	// and false is returned unless the ride is pending.
	UpsertIfPending(ctx context.Context, interest *domain.Interest) (bool, error)

	// Delete removes an interest. It reports whether one existed.
	Delete(ctx context.Context, rideID, driverID int64) (bool, error)

	// ListByRide retrieves all interests for a ride, oldest first.
	ListByRide(ctx context.Context, rideID int64) ([]*domain.Interest, error)
}
