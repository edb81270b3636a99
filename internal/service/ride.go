package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// RideService handles the ride lifecycle outside automatic assignment.
type RideService struct {
	rideRepo      repository.RideRepository
	notifications *NotificationService
	log           *zap.Logger
	now           func() time.Time
}

// NewRideService creates a new RideService.
func NewRideService(
	rideRepo repository.RideRepository,
	notifications *NotificationService,
	log *zap.Logger,
) *RideService {
	if log == nil {
		log = zap.NewNop()
	}
	return &RideService{
		rideRepo:      rideRepo,
		notifications: notifications,
		log:           log,
		now:           time.Now,
	}
}

// CreateRideRequest contains the parameters for creating a ride.
type CreateRideRequest struct {
	IsImmediate    bool
	Pickup         *domain.Coordinates // optional
	PickupAddress  string
	DropoffAddress string
	PaymentMethod  string // defaults to cash
	ClientPhone    string
	ScheduledFor   *time.Time // required for scheduled rides
}

// CreateRide validates and stores a new pending ride, then announces it.
func (s *RideService) CreateRide(ctx context.Context, req CreateRideRequest) (*domain.Ride, error) {
	paymentMethod, err := ValidatePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}
	if err := validateCreateRequest(req); err != nil {
		return nil, err
	}

	ride := &domain.Ride{
		IsImmediate:    req.IsImmediate,
		Pickup:         req.Pickup,
		PickupAddress:  strings.TrimSpace(req.PickupAddress),
		DropoffAddress: strings.TrimSpace(req.DropoffAddress),
		PaymentMethod:  paymentMethod,
		ClientPhone:    strings.TrimSpace(req.ClientPhone),
		Status:         domain.RideStatusPending,
		CreatedAt:      s.now(),
	}
	if !req.IsImmediate {
		ride.ScheduledFor = req.ScheduledFor
	}

	if err := s.rideRepo.Create(ctx, ride); err != nil {
		return nil, err
	}

	s.log.Info("ride created",
		zap.Int64("ride_id", ride.ID),
		zap.Bool("immediate", ride.IsImmediate),
		zap.Bool("has_pickup", ride.Pickup != nil))
	s.notifications.RideCreated(ride)
	return ride, nil
}

func validateCreateRequest(req CreateRideRequest) error {
	if strings.TrimSpace(req.ClientPhone) == "" {
		return ErrInvalidPhone
	}
	if strings.TrimSpace(req.PickupAddress) == "" || strings.TrimSpace(req.DropoffAddress) == "" {
		return ErrInvalidAddress
	}
	if req.Pickup != nil && !req.Pickup.Valid() {
		return ErrInvalidPickupLocation
	}
	if !req.IsImmediate && req.ScheduledFor == nil {
		return ErrScheduledTimeRequired
	}
	return nil
}

// ValidatePaymentMethod validates a payment method string.
func ValidatePaymentMethod(method string) (domain.PaymentMethod, error) {
	switch domain.PaymentMethod(method) {
	case domain.PaymentMethodCash, domain.PaymentMethodCard, domain.PaymentMethodTransfer:
		return domain.PaymentMethod(method), nil
	case "":
		return domain.PaymentMethodCash, nil // Default to cash
	default:
		return "", ErrInvalidPaymentMethod
	}
}

// GetRide retrieves a ride by ID.
func (s *RideService) GetRide(ctx context.Context, rideID int64) (*domain.Ride, error) {
	if rideID <= 0 {
		return nil, ErrInvalidRideID
	}
	return getRide(ctx, s.rideRepo, rideID)
}

// ListRides retrieves rides, optionally filtered by status.
func (s *RideService) ListRides(ctx context.Context, status string) ([]*domain.Ride, error) {
	if status == "" {
		return s.rideRepo.ListByStatus(ctx)
	}
	st, ok := domain.ParseRideStatus(status)
	if !ok {
		return nil, ErrInvalidStatus
	}
	return s.rideRepo.ListByStatus(ctx, st)
}

// CompleteRide marks an assigned ride completed. Only the assigned driver
// may complete it.
func (s *RideService) CompleteRide(ctx context.Context, rideID, driverID int64) (*domain.Ride, error) {
	if rideID <= 0 {
		return nil, ErrInvalidRideID
	}
	if driverID <= 0 {
		return nil, ErrInvalidDriverID
	}

	ride, err := getRide(ctx, s.rideRepo, rideID)
	if err != nil {
		return nil, err
	}
	if ride.Status != domain.RideStatusAssigned {
		return nil, ErrRideNotAssigned
	}
	if ride.AssignedTo == nil || *ride.AssignedTo != driverID {
		return nil, ErrDriverNotAssignedToRide
	}

	now := s.now()
	ok, err := s.rideRepo.UpdateStatus(ctx, rideID, domain.RideStatusAssigned, domain.RideStatusCompleted, now, "")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrStateConflict
	}

	ride.Status = domain.RideStatusCompleted
	ride.CompletedAt = &now
	s.log.Info("ride completed", zap.Int64("ride_id", rideID), zap.Int64("driver_id", driverID))
	s.notifications.RideCompleted(ride)
	return ride, nil
}

// CancelRide cancels a pending or assigned ride.
func (s *RideService) CancelRide(ctx context.Context, rideID int64, reason string) (*domain.Ride, error) {
	if rideID <= 0 {
		return nil, ErrInvalidRideID
	}

	ride, err := getRide(ctx, s.rideRepo, rideID)
	if err != nil {
		return nil, err
	}
	if ride.Status == domain.RideStatusCancelled {
		return nil, ErrRideAlreadyCancelled
	}
	if !domain.CanTransition(ride.Status, domain.RideStatusCancelled) {
		return nil, ErrRideCannotBeCancelled
	}

	now := s.now()
	reason = strings.TrimSpace(reason)
	ok, err := s.rideRepo.UpdateStatus(ctx, rideID, ride.Status, domain.RideStatusCancelled, now, reason)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrStateConflict
	}

	fields := []zap.Field{zap.Int64("ride_id", rideID), zap.String("reason", reason)}
	if ride.AssignedTo != nil {
		fields = append(fields, zap.Int64("released_driver_id", *ride.AssignedTo))
	}
	ride.Status = domain.RideStatusCancelled
	ride.AssignedTo = nil
	ride.CancelledAt = &now
	ride.CancelReason = reason
	s.log.Info("ride cancelled", fields...)
	s.notifications.RideCancelled(ride)
	return ride, nil
}

// OverrideAssignment assigns a pending ride to a driver directly, without
// running the policy. No audit record is written.
func (s *RideService) OverrideAssignment(ctx context.Context, rideID, driverID int64) (*domain.Ride, error) {
	if rideID <= 0 {
		return nil, ErrInvalidRideID
	}
	if driverID <= 0 {
		return nil, ErrInvalidDriverID
	}

	ride, err := getRide(ctx, s.rideRepo, rideID)
	if err != nil {
		return nil, err
	}
	if ride.Status != domain.RideStatusPending {
		return nil, ErrRideNotPending
	}

	now := s.now()
	ok, err := s.rideRepo.AssignIfPending(ctx, rideID, driverID, now, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRideNotPending
	}

	ride.Status = domain.RideStatusAssigned
	ride.AssignedTo = &driverID
	ride.AssignedAt = &now
	s.log.Info("ride assigned by override", zap.Int64("ride_id", rideID), zap.Int64("driver_id", driverID))
	s.notifications.RideAssigned(ride, nil)
	return ride, nil
}
