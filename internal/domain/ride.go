package domain

import "time"

// RideStatus represents the current status of a ride.
type RideStatus string

const (
	RideStatusPending   RideStatus = "pending"
	RideStatusAssigned  RideStatus = "assigned"
	RideStatusCompleted RideStatus = "completed"
	RideStatusCancelled RideStatus = "cancelled"
)

// ParseRideStatus validates a status string.
func ParseRideStatus(s string) (RideStatus, bool) {
	switch st := RideStatus(s); st {
	case RideStatusPending, RideStatusAssigned, RideStatusCompleted, RideStatusCancelled:
		return st, true
	}
	return "", false
}

// PaymentMethod represents the payment method for a ride.
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodCard     PaymentMethod = "card"
	PaymentMethodTransfer PaymentMethod = "transfer"
)

// Default decision windows before a pending ride is auto-assigned.
const (
	ImmediateDecisionWindow = 2 * time.Minute
	ScheduledDecisionWindow = 30 * time.Minute
)

// Coordinates is a WGS84 position in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether both components are within their ranges.
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Ride represents a ride request in the system.
type Ride struct {
	ID             int64
	IsImmediate    bool
	Pickup         *Coordinates // nil when the rider only gave an address
	PickupAddress  string
	DropoffAddress string
	PaymentMethod  PaymentMethod
	ClientPhone    string
	ScheduledFor   *time.Time // requested pickup time, scheduled rides only
	Status         RideStatus
	AssignedTo     *int64 // set once, on the pending -> assigned edge
	CreatedAt      time.Time
	AssignedAt     *time.Time
	CompletedAt    *time.Time
	CancelledAt    *time.Time
	CancelReason   string
}

// allowedTransitions is the ride state machine.
var allowedTransitions = map[RideStatus][]RideStatus{
	RideStatusPending:  {RideStatusAssigned, RideStatusCancelled},
	RideStatusAssigned: {RideStatusCompleted, RideStatusCancelled},
}

// CanTransition reports whether a ride may move from one status to another.
func CanTransition(from, to RideStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// DecisionWindows holds how long a pending ride collects interest before
// it is assigned automatically.
type DecisionWindows struct {
	Immediate time.Duration
	Scheduled time.Duration
}

// DefaultDecisionWindows returns the 2 minute / 30 minute windows.
func DefaultDecisionWindows() DecisionWindows {
	return DecisionWindows{
		Immediate: ImmediateDecisionWindow,
		Scheduled: ScheduledDecisionWindow,
	}
}

// Deadline returns the instant the ride's decision window closes.
func (w DecisionWindows) Deadline(ride *Ride) time.Time {
	if ride.IsImmediate {
		return ride.CreatedAt.Add(w.Immediate)
	}
	return ride.CreatedAt.Add(w.Scheduled)
}

// Expired reports whether now is at or past the ride's deadline.
func (w DecisionWindows) Expired(ride *Ride, now time.Time) bool {
	return !now.Before(w.Deadline(ride))
}
