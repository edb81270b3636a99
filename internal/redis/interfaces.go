package redis

import (
	"context"
	"time"

	"dispatch/internal/domain"
)

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error)
}

// ProfileCache defines the driver profile cache.
type ProfileCache interface {
	GetDriverProfile(ctx context.Context, driverID int64) (*domain.DriverProfile, error)
	SetDriverProfile(ctx context.Context, driverID int64, profile *domain.DriverProfile) error
	InvalidateDriverProfile(ctx context.Context, driverID int64) error
}

// AssignmentCache defines the assignment record cache.
type AssignmentCache interface {
	GetAssignment(ctx context.Context, rideID int64) (*domain.AssignmentRecord, error)
	SetAssignment(ctx context.Context, record *domain.AssignmentRecord) error
}

// Ensure concrete types implement interfaces.
var (
	_ LockStoreInterface = (*LockStore)(nil)
	_ ProfileCache       = (*CacheStore)(nil)
	_ AssignmentCache    = (*CacheStore)(nil)
)
