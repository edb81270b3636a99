package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"dispatch/internal/domain"
)

// Cache TTL constants
const (
	DriverProfileCacheTTL = 30 * time.Second
	AssignmentCacheTTL    = 10 * time.Minute // records are immutable
)

// Key prefixes
const (
	driverCachePrefix     = "cache:driver:"
	assignmentCachePrefix = "cache:assignment:"
)

// CacheStore handles entity caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// cachedRecord is the cached form of an assignment record.
type cachedRecord struct {
	RideID              int64                    `json:"ride_id"`
	AssignedDriverID    int64                    `json:"assigned_driver_id"`
	AssignmentType      domain.AssignmentType    `json:"assignment_type"`
	DriverDistanceKm    *float64                 `json:"driver_distance_km"`
	RankedCandidates    []domain.RankedCandidate `json:"ranked_candidates"`
	TotalCandidateCount int                      `json:"total_candidate_count"`
	DecidedAt           time.Time                `json:"decided_at"`
}

// GetDriverProfile retrieves a driver profile from cache.
// A miss returns nil, nil.
func (s *CacheStore) GetDriverProfile(ctx context.Context, driverID int64) (*domain.DriverProfile, error) {
	data, err := s.client.Get(ctx, driverCachePrefix+strconv.FormatInt(driverID, 10)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var profile domain.DriverProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// SetDriverProfile stores a driver profile in cache.
func (s *CacheStore) SetDriverProfile(ctx context.Context, driverID int64, profile *domain.DriverProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, driverCachePrefix+strconv.FormatInt(driverID, 10), data, DriverProfileCacheTTL).Err()
}

// InvalidateDriverProfile removes a driver profile from cache.
func (s *CacheStore) InvalidateDriverProfile(ctx context.Context, driverID int64) error {
	return s.client.Del(ctx, driverCachePrefix+strconv.FormatInt(driverID, 10)).Err()
}

// GetAssignment retrieves an assignment record from cache.
// A miss returns nil, nil.
func (s *CacheStore) GetAssignment(ctx context.Context, rideID int64) (*domain.AssignmentRecord, error) {
	data, err := s.client.Get(ctx, assignmentCachePrefix+strconv.FormatInt(rideID, 10)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var c cachedRecord
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &domain.AssignmentRecord{
		RideID:              c.RideID,
		AssignedDriverID:    c.AssignedDriverID,
		AssignmentType:      c.AssignmentType,
		DriverDistanceKm:    c.DriverDistanceKm,
		RankedCandidates:    c.RankedCandidates,
		TotalCandidateCount: c.TotalCandidateCount,
		DecidedAt:           c.DecidedAt,
	}, nil
}

// SetAssignment stores an assignment record in cache.
func (s *CacheStore) SetAssignment(ctx context.Context, record *domain.AssignmentRecord) error {
	data, err := json.Marshal(cachedRecord{
		RideID:              record.RideID,
		AssignedDriverID:    record.AssignedDriverID,
		AssignmentType:      record.AssignmentType,
		DriverDistanceKm:    record.DriverDistanceKm,
		RankedCandidates:    record.RankedCandidates,
		TotalCandidateCount: record.TotalCandidateCount,
		DecidedAt:           record.DecidedAt,
	})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, assignmentCachePrefix+strconv.FormatInt(record.RideID, 10), data, AssignmentCacheTTL).Err()
}
