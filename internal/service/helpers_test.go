package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/repository/memory"
)

var (
	errMockStorage = errors.New("mock: storage unavailable")
	errMockNotify  = errors.New("mock: notifier down")
)

// ──────────────────────────────────────────────
// CLOCK
// ──────────────────────────────────────────────

// fakeClock is a settable time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// ──────────────────────────────────────────────
// NOTIFIER
// ──────────────────────────────────────────────

// recordingNotifier captures delivered notifications.
type recordingNotifier struct {
	mu            sync.Mutex
	notifications []domain.Notification

	NotifyCallCount int32
	NotifyError     error
	PanicOnNotify   bool
}

func (n *recordingNotifier) Notify(ctx context.Context, notification domain.Notification) error {
	atomic.AddInt32(&n.NotifyCallCount, 1)
	if n.PanicOnNotify {
		panic("notifier exploded")
	}
	if n.NotifyError != nil {
		return n.NotifyError
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, notification)
	return nil
}

func (n *recordingNotifier) Name() string { return "recording" }

func (n *recordingNotifier) Received() []domain.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Notification(nil), n.notifications...)
}

func (n *recordingNotifier) ReceivedOfType(kind domain.NotificationType) []domain.Notification {
	var out []domain.Notification
	for _, notification := range n.Received() {
		if notification.Type == kind {
			out = append(out, notification)
		}
	}
	return out
}

// ──────────────────────────────────────────────
// LOCK STORE
// ──────────────────────────────────────────────

// mockLockStore is an in-memory LockStoreInterface.
type mockLockStore struct {
	mu    sync.Mutex
	locks map[string]bool

	AcquireCallCount int32
	AcquireError     error
}

func newMockLockStore() *mockLockStore {
	return &mockLockStore{locks: make(map[string]bool)}
}

func (m *mockLockStore) AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[name] {
		return false, nil
	}
	m.locks[name] = true
	return true, nil
}

// ──────────────────────────────────────────────
// FIXTURE
// ──────────────────────────────────────────────

// fixture wires the dispatch services over an in-memory store.
type fixture struct {
	store         *memory.Store
	clock         *fakeClock
	notifier      *recordingNotifier
	notifications *NotificationService
	registry      *InterestRegistry
	policy        *AssignmentPolicy
	executor      *AssignmentExecutor
	scheduler     *RideTimeoutScheduler
	rides         *RideService
	drivers       *DriverService
	query         *AssignmentQueryService
}

func newFixture() *fixture {
	f := &fixture{
		store:    memory.NewStore(),
		clock:    newFakeClock(),
		notifier: &recordingNotifier{},
	}

	f.notifications = NewNotificationService(nil, time.Second, f.notifier)
	f.notifications.now = f.clock.Now

	f.drivers = NewDriverService(f.store.Drivers(), nil, nil)
	f.drivers.now = f.clock.Now

	f.registry = NewInterestRegistry(f.store.Rides(), f.store.Interests(), f.drivers.LookupProfile, nil)
	f.registry.now = f.clock.Now

	f.policy = NewAssignmentPolicy(nil)

	f.executor = NewAssignmentExecutor(f.store.Rides(), f.registry, f.policy, nil)
	f.executor.now = f.clock.Now

	f.scheduler = NewRideTimeoutScheduler(f.store.Rides(), f.executor, f.notifications, nil, nil, SchedulerConfig{}, nil)
	f.scheduler.now = f.clock.Now

	f.rides = NewRideService(f.store.Rides(), f.notifications, nil)
	f.rides.now = f.clock.Now

	f.query = NewAssignmentQueryService(f.store.Rides(), f.store.Assignments(), nil, nil)
	return f
}

// addRide stores a pending ride created at the current fake time.
func (f *fixture) addRide(immediate bool, pickup *domain.Coordinates) *domain.Ride {
	return f.store.Rides().AddRide(&domain.Ride{
		IsImmediate:    immediate,
		Pickup:         pickup,
		PickupAddress:  "Vieux-Port",
		DropoffAddress: "Gare Saint-Charles",
		PaymentMethod:  domain.PaymentMethodCash,
		ClientPhone:    "+33600000000",
		Status:         domain.RideStatusPending,
		CreatedAt:      f.clock.Now(),
	})
}

func coords(lat, lng float64) *domain.Coordinates {
	return &domain.Coordinates{Lat: lat, Lng: lng}
}
