package service

import "errors"

var (
	// ErrRideNotFound is returned when the ride does not exist.
	ErrRideNotFound = errors.New("ride not found")

	// ErrRideNotPending is returned when interest is expressed on a ride that is no longer pending.
	ErrRideNotPending = errors.New("ride is no longer available")

	// ErrNoCandidates is returned by the policy when no driver expressed interest.
	ErrNoCandidates = errors.New("no candidates")

	// ErrAssignmentNotFound is returned when a ride has no assignment record.
	ErrAssignmentNotFound = errors.New("assignment not found")

	// ErrDriverNotFound is returned when the driver does not exist.
	ErrDriverNotFound = errors.New("driver not found")

	// ErrInvalidRideID is returned when ride ID is not positive.
	ErrInvalidRideID = errors.New("invalid ride id")

	// ErrInvalidDriverID is returned when driver ID is not positive.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidLocation is returned when location coordinates are invalid.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrInvalidPickupLocation is returned when pickup coordinates are invalid.
	ErrInvalidPickupLocation = errors.New("invalid pickup location")

	// ErrInvalidAddress is returned when the pickup or dropoff address is empty.
	ErrInvalidAddress = errors.New("pickup and dropoff addresses are required")

	// ErrInvalidPhone is returned when the client phone is empty.
	ErrInvalidPhone = errors.New("invalid client phone")

	// ErrInvalidPaymentMethod is returned when payment method is invalid.
	ErrInvalidPaymentMethod = errors.New("invalid payment method")

	// ErrScheduledTimeRequired is returned when a scheduled ride has no pickup time.
	ErrScheduledTimeRequired = errors.New("scheduled rides require a pickup time")

	// ErrInvalidDriverName is returned when a driver registers without a name.
	ErrInvalidDriverName = errors.New("invalid driver name")

	// ErrInvalidStatus is returned when a status filter is unknown.
	ErrInvalidStatus = errors.New("invalid ride status")

	// ErrRideNotAssigned is returned when completing a ride that is not in assigned state.
	ErrRideNotAssigned = errors.New("ride not assigned")

	// ErrDriverNotAssignedToRide is returned when driver is not assigned to the ride.
	ErrDriverNotAssignedToRide = errors.New("driver not assigned to this ride")

	// ErrRideAlreadyCancelled is returned when trying to cancel an already cancelled ride.
	ErrRideAlreadyCancelled = errors.New("ride already cancelled")

	// ErrRideCannotBeCancelled is returned when ride is in a state that cannot be cancelled.
	ErrRideCannotBeCancelled = errors.New("ride cannot be cancelled in current state")

	// ErrStateConflict is returned when a conditional update lost a race.
	ErrStateConflict = errors.New("ride state changed concurrently")
)
