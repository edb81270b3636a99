package domain

import "time"

// NotificationType is the kind of ride event sent to the group chat.
type NotificationType string

const (
	NotificationRideCreated   NotificationType = "ride.created"
	NotificationRideAssigned  NotificationType = "ride.assigned"
	NotificationRideCompleted NotificationType = "ride.completed"
	NotificationRideCancelled NotificationType = "ride.cancelled"
)

// Notification is a ride event handed to the outbound notifiers.
type Notification struct {
	ID        string
	Type      NotificationType
	Ride      *Ride
	Record    *AssignmentRecord // ride.assigned only; nil for admin overrides
	Message   string
	CreatedAt time.Time
}
