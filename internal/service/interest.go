package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// ProfileLookup returns display data for a driver. A nil profile with a nil
// error means the driver is unknown.
type ProfileLookup func(ctx context.Context, driverID int64) (*domain.DriverProfile, error)

// InterestRegistry records and lists driver interests in pending rides.
type InterestRegistry struct {
	rideRepo     repository.RideRepository
	interestRepo repository.InterestRepository
	lookup       ProfileLookup
	log          *zap.Logger
	now          func() time.Time
}

// NewInterestRegistry creates a new InterestRegistry. lookup may be nil.
func NewInterestRegistry(
	rideRepo repository.RideRepository,
	interestRepo repository.InterestRepository,
	lookup ProfileLookup,
	log *zap.Logger,
) *InterestRegistry {
	if log == nil {
		log = zap.NewNop()
	}
	return &InterestRegistry{
		rideRepo:     rideRepo,
		interestRepo: interestRepo,
		lookup:       lookup,
		log:          log,
		now:          time.Now,
	}
}

// RecordInterest records a driver's interest in a pending ride. Repeating
// the call replaces the stored location and timestamp.
func (s *InterestRegistry) RecordInterest(ctx context.Context, rideID, driverID int64, loc *domain.Coordinates) (*domain.Interest, error) {
	if rideID <= 0 {
		return nil, ErrInvalidRideID
	}
	if driverID <= 0 {
		return nil, ErrInvalidDriverID
	}
	if loc != nil && !loc.Valid() {
		return nil, ErrInvalidLocation
	}

	ride, err := getRide(ctx, s.rideRepo, rideID)
	if err != nil {
		return nil, err
	}
	if ride.Status != domain.RideStatusPending {
		return nil, ErrRideNotPending
	}

	interest := &domain.Interest{
		RideID:      rideID,
		DriverID:    driverID,
		Location:    loc,
		ExpressedAt: s.now(),
	}
	ok, err := s.interestRepo.UpsertIfPending(ctx, interest)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRideNotPending
	}

	s.log.Debug("interest recorded", zap.Int64("ride_id", rideID), zap.Int64("driver_id", driverID))
	return interest, nil
}

// RemoveInterest withdraws a driver's interest. It reports whether one existed.
func (s *InterestRegistry) RemoveInterest(ctx context.Context, rideID, driverID int64) (bool, error) {
	if rideID <= 0 {
		return false, ErrInvalidRideID
	}
	if driverID <= 0 {
		return false, ErrInvalidDriverID
	}
	return s.interestRepo.Delete(ctx, rideID, driverID)
}

// ListInterests returns all interests for a ride with driver name and phone
// filled in where the profile lookup succeeds.
func (s *InterestRegistry) ListInterests(ctx context.Context, rideID int64) ([]*domain.Interest, error) {
	if rideID <= 0 {
		return nil, ErrInvalidRideID
	}
	if _, err := getRide(ctx, s.rideRepo, rideID); err != nil {
		return nil, err
	}

	interests, err := s.interestRepo.ListByRide(ctx, rideID)
	if err != nil {
		return nil, err
	}

	if s.lookup != nil {
		for _, in := range interests {
			profile, err := s.lookup(ctx, in.DriverID)
			if err != nil {
				s.log.Warn("driver profile lookup failed",
					zap.Int64("driver_id", in.DriverID), zap.Error(err))
				continue
			}
			if profile != nil {
				in.DriverName = profile.Name
				in.DriverPhone = profile.Phone
			}
		}
	}

	if interests == nil {
		interests = []*domain.Interest{}
	}
	return interests, nil
}

// getRide loads a ride and maps a missing row to ErrRideNotFound.
func getRide(ctx context.Context, repo repository.RideRepository, rideID int64) (*domain.Ride, error) {
	ride, err := repo.GetByID(ctx, rideID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRideNotFound
		}
		return nil, err
	}
	return ride, nil
}
