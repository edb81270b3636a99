package repository

import (
	"context"
	"time"

	"dispatch/internal/domain"
)

// StatsRepository defines the aggregate queries behind statistics.
type StatsRepository interface {
	// CountRidesByStatus counts rides created at or after since.
	CountRidesByStatus(ctx context.Context, since time.Time) (map[domain.RideStatus]int, error)

	// AssignmentSummary aggregates audit records decided at or after since.
	AssignmentSummary(ctx context.Context, since time.Time) ([]domain.AssignmentTypeStats, error)

	// PickupCoordinates returns the pickup points of rides created at or
	// after since. Rides without coordinates are skipped.
	PickupCoordinates(ctx context.Context, since time.Time) ([]domain.Coordinates, error)
}
