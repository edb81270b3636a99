package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dispatch/internal/domain"
)

const defaultNotifyTimeout = 5 * time.Second

// Notifier delivers a ride notification to one outbound channel.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
	Name() string
}

// NotificationService fans ride events out to the configured notifiers.
// Delivery is asynchronous; failures are logged and never reach the caller.
type NotificationService struct {
	notifiers []Notifier
	timeout   time.Duration
	log       *zap.Logger
	wg        sync.WaitGroup
	now       func() time.Time
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(log *zap.Logger, timeout time.Duration, notifiers ...Notifier) *NotificationService {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultNotifyTimeout
	}
	return &NotificationService{
		notifiers: notifiers,
		timeout:   timeout,
		log:       log,
		now:       time.Now,
	}
}

// RideCreated announces a new ride to the drivers' group.
func (s *NotificationService) RideCreated(ride *domain.Ride) {
	kind := "immediate"
	if !ride.IsImmediate {
		kind = "scheduled"
	}
	s.dispatch(domain.NotificationRideCreated, ride, nil,
		fmt.Sprintf("New %s ride #%d: %s -> %s (%s)",
			kind, ride.ID, ride.PickupAddress, ride.DropoffAddress, ride.PaymentMethod))
}

// RideAssigned announces the chosen driver. record is nil for overrides.
func (s *NotificationService) RideAssigned(ride *domain.Ride, record *domain.AssignmentRecord) {
	var driverID int64
	if ride.AssignedTo != nil {
		driverID = *ride.AssignedTo
	}
	msg := fmt.Sprintf("Ride #%d assigned to driver %d", ride.ID, driverID)
	if record != nil && record.DriverDistanceKm != nil {
		msg = fmt.Sprintf("%s (%.1f km, %s, %d candidates)",
			msg, *record.DriverDistanceKm, record.AssignmentType, record.TotalCandidateCount)
	} else if record != nil {
		msg = fmt.Sprintf("%s (%s, %d candidates)", msg, record.AssignmentType, record.TotalCandidateCount)
	}
	s.dispatch(domain.NotificationRideAssigned, ride, record, msg)
}

// RideCompleted announces a finished ride.
func (s *NotificationService) RideCompleted(ride *domain.Ride) {
	s.dispatch(domain.NotificationRideCompleted, ride, nil,
		fmt.Sprintf("Ride #%d completed", ride.ID))
}

// RideCancelled announces a cancelled ride.
func (s *NotificationService) RideCancelled(ride *domain.Ride) {
	msg := fmt.Sprintf("Ride #%d cancelled", ride.ID)
	if ride.CancelReason != "" {
		msg += ": " + ride.CancelReason
	}
	s.dispatch(domain.NotificationRideCancelled, ride, nil, msg)
}

// Wait blocks until all in-flight deliveries have finished.
func (s *NotificationService) Wait() {
	if s == nil {
		return
	}
	s.wg.Wait()
}

func (s *NotificationService) dispatch(kind domain.NotificationType, ride *domain.Ride, record *domain.AssignmentRecord, msg string) {
	if s == nil || len(s.notifiers) == 0 {
		return
	}

	snapshot := *ride
	n := domain.Notification{
		ID:        uuid.NewString(),
		Type:      kind,
		Ride:      &snapshot,
		Record:    record,
		Message:   msg,
		CreatedAt: s.now(),
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.deliver(ctx, n)
	}()
}

func (s *NotificationService) deliver(ctx context.Context, n domain.Notification) {
	for _, notifier := range s.notifiers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("notifier panicked",
						zap.String("notifier", notifier.Name()),
						zap.Any("panic", r))
				}
			}()
			if err := notifier.Notify(ctx, n); err != nil {
				s.log.Error("notification delivery failed",
					zap.String("notifier", notifier.Name()),
					zap.String("type", string(n.Type)),
					zap.Int64("ride_id", n.Ride.ID),
					zap.Error(err))
			}
		}()
	}
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	log *zap.Logger
}

// NewLogNotifier creates a new LogNotifier.
func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Notify logs the notification.
func (n *LogNotifier) Notify(ctx context.Context, notification domain.Notification) error {
	n.log.Info("notification",
		zap.String("id", notification.ID),
		zap.String("type", string(notification.Type)),
		zap.Int64("ride_id", notification.Ride.ID),
		zap.String("message", notification.Message))
	return nil
}

// Name identifies the notifier in logs.
func (n *LogNotifier) Name() string { return "log" }
