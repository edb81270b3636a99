package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// OutcomeKind describes how an assignment attempt ended.
type OutcomeKind string

const (
	OutcomeAssigned        OutcomeKind = "assigned"
	OutcomeAlreadyAssigned OutcomeKind = "already_assigned"
	OutcomeRideNotPending  OutcomeKind = "ride_not_pending"
	OutcomeNoCandidates    OutcomeKind = "no_candidates"
	OutcomeNotExpired      OutcomeKind = "not_expired"
)

// AssignmentOutcome is the result of an assignment attempt. Only
// OutcomeAssigned changed state; the other kinds are no-ops.
type AssignmentOutcome struct {
	Kind     OutcomeKind
	RideID   int64
	Status   domain.RideStatus        // ride status observed or written
	Deadline time.Time                // set for OutcomeNotExpired
	Ride     *domain.Ride             // post-assignment snapshot, OutcomeAssigned only
	Record   *domain.AssignmentRecord // OutcomeAssigned only
}

// CandidateSource lists the interests of a ride.
type CandidateSource interface {
	ListInterests(ctx context.Context, rideID int64) ([]*domain.Interest, error)
}

// Ensure InterestRegistry implements CandidateSource.
var _ CandidateSource = (*InterestRegistry)(nil)

// AssignmentExecutor moves a pending ride to assigned and writes the audit
// record. Concurrent calls for one ride are serialized by the conditional
// update in the ride repository; no in-process lock is held.
type AssignmentExecutor struct {
	rideRepo   repository.RideRepository
	candidates CandidateSource
	policy     *AssignmentPolicy
	log        *zap.Logger
	now        func() time.Time
}

// NewAssignmentExecutor creates a new AssignmentExecutor.
func NewAssignmentExecutor(
	rideRepo repository.RideRepository,
	candidates CandidateSource,
	policy *AssignmentPolicy,
	log *zap.Logger,
) *AssignmentExecutor {
	if log == nil {
		log = zap.NewNop()
	}
	return &AssignmentExecutor{
		rideRepo:   rideRepo,
		candidates: candidates,
		policy:     policy,
		log:        log,
		now:        time.Now,
	}
}

// Assign runs the policy for a pending ride and commits the result.
// Errors are reserved for a missing ride and storage failures.
func (e *AssignmentExecutor) Assign(ctx context.Context, rideID int64) (*AssignmentOutcome, error) {
	ride, err := getRide(ctx, e.rideRepo, rideID)
	if err != nil {
		return nil, err
	}
	if ride.Status != domain.RideStatusPending {
		return &AssignmentOutcome{Kind: OutcomeRideNotPending, RideID: rideID, Status: ride.Status}, nil
	}

	interests, err := e.candidates.ListInterests(ctx, rideID)
	if err != nil {
		return nil, fmt.Errorf("list interests for ride %d: %w", rideID, err)
	}

	selection, err := e.policy.SelectDriver(ride, interests)
	if err != nil {
		if errors.Is(err, ErrNoCandidates) {
			e.log.Debug("no candidates for ride", zap.Int64("ride_id", rideID))
			return &AssignmentOutcome{Kind: OutcomeNoCandidates, RideID: rideID, Status: ride.Status}, nil
		}
		return nil, err
	}

	decidedAt := e.now()
	record := &domain.AssignmentRecord{
		RideID:              rideID,
		AssignedDriverID:    selection.DriverID,
		AssignmentType:      selection.Type,
		DriverDistanceKm:    selection.DistanceKm,
		RankedCandidates:    selection.Ranked,
		TotalCandidateCount: selection.TotalCandidates,
		DecidedAt:           decidedAt,
	}

	ok, err := e.rideRepo.AssignIfPending(ctx, rideID, selection.DriverID, decidedAt, record)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return &AssignmentOutcome{Kind: OutcomeAlreadyAssigned, RideID: rideID}, nil
		}
		return nil, fmt.Errorf("assign ride %d: %w", rideID, err)
	}
	if !ok {
		e.log.Info("ride already assigned", zap.Int64("ride_id", rideID))
		return &AssignmentOutcome{Kind: OutcomeAlreadyAssigned, RideID: rideID}, nil
	}

	driverID := selection.DriverID
	ride.Status = domain.RideStatusAssigned
	ride.AssignedTo = &driverID
	ride.AssignedAt = &decidedAt

	fields := []zap.Field{
		zap.Int64("ride_id", rideID),
		zap.Int64("driver_id", driverID),
		zap.String("type", string(selection.Type)),
		zap.Int("candidates", selection.TotalCandidates),
	}
	if selection.DistanceKm != nil {
		fields = append(fields, zap.Float64("distance_km", *selection.DistanceKm))
	}
	e.log.Info("ride assigned", fields...)

	return &AssignmentOutcome{
		Kind:   OutcomeAssigned,
		RideID: rideID,
		Status: domain.RideStatusAssigned,
		Ride:   ride,
		Record: record,
	}, nil
}
