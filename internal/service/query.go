package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

// AssignmentQueryService serves assignment audit records.
type AssignmentQueryService struct {
	rideRepo       repository.RideRepository
	assignmentRepo repository.AssignmentRepository
	cache          redis.AssignmentCache // optional
	log            *zap.Logger
}

// NewAssignmentQueryService creates a new AssignmentQueryService.
func NewAssignmentQueryService(
	rideRepo repository.RideRepository,
	assignmentRepo repository.AssignmentRepository,
	cache redis.AssignmentCache,
	log *zap.Logger,
) *AssignmentQueryService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AssignmentQueryService{
		rideRepo:       rideRepo,
		assignmentRepo: assignmentRepo,
		cache:          cache,
		log:            log,
	}
}

// GetAssignment returns the audit record of a ride. Rides that are still
// pending, or were assigned by an override, have none.
func (s *AssignmentQueryService) GetAssignment(ctx context.Context, rideID int64) (*domain.AssignmentRecord, error) {
	if rideID <= 0 {
		return nil, ErrInvalidRideID
	}

	if s.cache != nil {
		cached, err := s.cache.GetAssignment(ctx, rideID)
		if err != nil {
			s.log.Warn("assignment cache read failed", zap.Int64("ride_id", rideID), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	record, err := s.assignmentRepo.GetByRideID(ctx, rideID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		if _, err := getRide(ctx, s.rideRepo, rideID); err != nil {
			return nil, err
		}
		return nil, ErrAssignmentNotFound
	}

	if s.cache != nil {
		if err := s.cache.SetAssignment(ctx, record); err != nil {
			s.log.Warn("assignment cache write failed", zap.Int64("ride_id", rideID), zap.Error(err))
		}
	}
	return record, nil
}
