// Package memory provides in-process implementations of the repository
// interfaces. They back the service and handler tests and the
// DISPATCH_STORAGE=memory mode of the server.
package memory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// Store holds all in-memory state behind one lock so that an assignment
// and its audit record are written atomically.
type Store struct {
	mu        sync.RWMutex
	nextID    int64
	rides     map[int64]*domain.Ride
	interests map[int64]map[int64]*domain.Interest
	records   map[int64]*domain.AssignmentRecord
	drivers   map[int64]*domain.Driver

	rideRepo       *RideRepository
	interestRepo   *InterestRepository
	assignmentRepo *AssignmentRepository
	driverRepo     *DriverRepository
	statsRepo      *StatsRepository
}

// NewStore creates an empty store.
func NewStore() *Store {
	s := &Store{
		rides:     make(map[int64]*domain.Ride),
		interests: make(map[int64]map[int64]*domain.Interest),
		records:   make(map[int64]*domain.AssignmentRecord),
		drivers:   make(map[int64]*domain.Driver),
	}
	s.rideRepo = &RideRepository{s: s}
	s.interestRepo = &InterestRepository{s: s}
	s.assignmentRepo = &AssignmentRepository{s: s}
	s.driverRepo = &DriverRepository{s: s}
	s.statsRepo = &StatsRepository{s: s}
	return s
}

// Rides returns the ride repository view of the store.
func (s *Store) Rides() *RideRepository { return s.rideRepo }

// Interests returns the interest repository view of the store.
func (s *Store) Interests() *InterestRepository { return s.interestRepo }

// Assignments returns the assignment repository view of the store.
func (s *Store) Assignments() *AssignmentRepository { return s.assignmentRepo }

// Drivers returns the driver repository view of the store.
func (s *Store) Drivers() *DriverRepository { return s.driverRepo }

// Stats returns the stats repository view of the store.
func (s *Store) Stats() *StatsRepository { return s.statsRepo }

// Ensure interfaces are satisfied.
var (
	_ repository.RideRepository       = (*RideRepository)(nil)
	_ repository.InterestRepository   = (*InterestRepository)(nil)
	_ repository.AssignmentRepository = (*AssignmentRepository)(nil)
	_ repository.DriverRepository     = (*DriverRepository)(nil)
	_ repository.StatsRepository      = (*StatsRepository)(nil)
)

// ──────────────────────────────────────────────
// RIDES
// ──────────────────────────────────────────────

// RideRepository is the in-memory repository.RideRepository.
type RideRepository struct {
	s *Store

	// Counters for verification
	CreateCallCount       int32
	AssignCallCount       int32
	UpdateStatusCallCount int32

	// Error injection
	CreateError       error
	ListError         error
	AssignError       error
	UpdateStatusError error
	GetErrors         map[int64]error // per ride
	AssignErrors      map[int64]error // per ride

	// BeforeAssign runs before the conditional update takes the lock.
	BeforeAssign func(rideID int64)
}

// AddRide stores a ride as-is. A zero ID gets the next sequence value.
func (r *RideRepository) AddRide(ride *domain.Ride) *domain.Ride {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if ride.ID == 0 {
		r.s.nextID++
		ride.ID = r.s.nextID
	} else if ride.ID > r.s.nextID {
		r.s.nextID = ride.ID
	}
	r.s.rides[ride.ID] = cloneRide(ride)
	return ride
}

func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&r.CreateCallCount, 1)
	if r.CreateError != nil {
		return r.CreateError
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextID++
	ride.ID = r.s.nextID
	if ride.Status == "" {
		ride.Status = domain.RideStatusPending
	}
	if ride.PaymentMethod == "" {
		ride.PaymentMethod = domain.PaymentMethodCash
	}
	r.s.rides[ride.ID] = cloneRide(ride)
	return nil
}

func (r *RideRepository) GetByID(ctx context.Context, id int64) (*domain.Ride, error) {
	if err := r.GetErrors[id]; err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ride, ok := r.s.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneRide(ride), nil
}

func (r *RideRepository) ListByStatus(ctx context.Context, statuses ...domain.RideStatus) ([]*domain.Ride, error) {
	if r.ListError != nil {
		return nil, r.ListError
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]*domain.Ride, 0, len(r.s.rides))
	for _, ride := range r.s.rides {
		if len(statuses) > 0 && !containsStatus(statuses, ride.Status) {
			continue
		}
		result = append(result, cloneRide(ride))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *RideRepository) AssignIfPending(ctx context.Context, rideID, driverID int64, at time.Time, record *domain.AssignmentRecord) (bool, error) {
	atomic.AddInt32(&r.AssignCallCount, 1)
	if r.AssignError != nil {
		return false, r.AssignError
	}
	if err := r.AssignErrors[rideID]; err != nil {
		return false, err
	}
	if r.BeforeAssign != nil {
		r.BeforeAssign(rideID)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ride, ok := r.s.rides[rideID]
	if !ok || ride.Status != domain.RideStatusPending {
		return false, nil
	}
	if record != nil {
		if _, exists := r.s.records[rideID]; exists {
			return false, repository.ErrDuplicate
		}
		r.s.records[rideID] = cloneRecord(record)
	}

	ride.Status = domain.RideStatusAssigned
	ride.AssignedTo = &driverID
	assignedAt := at
	ride.AssignedAt = &assignedAt
	return true, nil
}

func (r *RideRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.RideStatus, at time.Time, reason string) (bool, error) {
	atomic.AddInt32(&r.UpdateStatusCallCount, 1)
	if r.UpdateStatusError != nil {
		return false, r.UpdateStatusError
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ride, ok := r.s.rides[id]
	if !ok || ride.Status != from {
		return false, nil
	}

	ride.Status = to
	ts := at
	switch to {
	case domain.RideStatusCompleted:
		ride.CompletedAt = &ts
	case domain.RideStatusCancelled:
		ride.CancelledAt = &ts
		ride.CancelReason = reason
		ride.AssignedTo = nil
	}
	return true, nil
}

// CountRides returns the number of rides.
func (r *RideRepository) CountRides() int {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.rides)
}

// ──────────────────────────────────────────────
// INTERESTS
// ──────────────────────────────────────────────

// InterestRepository is the in-memory repository.InterestRepository.
type InterestRepository struct {
	s *Store

	// Counters for verification
	UpsertCallCount int32

	// Error injection
	UpsertError error
	ListErrors  map[int64]error // per ride
}

func (r *InterestRepository) UpsertIfPending(ctx context.Context, interest *domain.Interest) (bool, error) {
	atomic.AddInt32(&r.UpsertCallCount, 1)
	if r.UpsertError != nil {
		return false, r.UpsertError
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ride, ok := r.s.rides[interest.RideID]
	if !ok || ride.Status != domain.RideStatusPending {
		return false, nil
	}
	byDriver, ok := r.s.interests[interest.RideID]
	if !ok {
		byDriver = make(map[int64]*domain.Interest)
		r.s.interests[interest.RideID] = byDriver
	}
	byDriver[interest.DriverID] = cloneInterest(interest)
	return true, nil
}

func (r *InterestRepository) Delete(ctx context.Context, rideID, driverID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byDriver, ok := r.s.interests[rideID]
	if !ok {
		return false, nil
	}
	if _, ok := byDriver[driverID]; !ok {
		return false, nil
	}
	delete(byDriver, driverID)
	return true, nil
}

func (r *InterestRepository) ListByRide(ctx context.Context, rideID int64) ([]*domain.Interest, error) {
	if err := r.ListErrors[rideID]; err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	byDriver := r.s.interests[rideID]
	result := make([]*domain.Interest, 0, len(byDriver))
	for _, in := range byDriver {
		result = append(result, cloneInterest(in))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].ExpressedAt.Equal(result[j].ExpressedAt) {
			return result[i].ExpressedAt.Before(result[j].ExpressedAt)
		}
		return result[i].DriverID < result[j].DriverID
	})
	return result, nil
}

// ──────────────────────────────────────────────
// ASSIGNMENT RECORDS
// ──────────────────────────────────────────────

// AssignmentRepository is the in-memory repository.AssignmentRepository.
type AssignmentRepository struct {
	s *Store

	// Counters for verification
	GetCallCount int32
}

func (r *AssignmentRepository) GetByRideID(ctx context.Context, rideID int64) (*domain.AssignmentRecord, error) {
	atomic.AddInt32(&r.GetCallCount, 1)
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	record, ok := r.s.records[rideID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneRecord(record), nil
}

// CountRecords returns the number of stored audit records.
func (r *AssignmentRepository) CountRecords() int {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.records)
}

// ──────────────────────────────────────────────
// DRIVERS
// ──────────────────────────────────────────────

// DriverRepository is the in-memory repository.DriverRepository.
type DriverRepository struct {
	s *Store

	// Counters for verification
	GetCallCount int32

	// Error injection
	GetError error
}

func (r *DriverRepository) Upsert(ctx context.Context, driver *domain.Driver) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.s.drivers[driver.ID]; ok {
		driver.CreatedAt = existing.CreatedAt
	}
	d := *driver
	r.s.drivers[driver.ID] = &d
	return nil
}

func (r *DriverRepository) GetByID(ctx context.Context, id int64) (*domain.Driver, error) {
	atomic.AddInt32(&r.GetCallCount, 1)
	if r.GetError != nil {
		return nil, r.GetError
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	driver, ok := r.s.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	d := *driver
	return &d, nil
}

func (r *DriverRepository) GetAll(ctx context.Context) ([]*domain.Driver, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := make([]*domain.Driver, 0, len(r.s.drivers))
	for _, driver := range r.s.drivers {
		d := *driver
		result = append(result, &d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ──────────────────────────────────────────────
// STATS
// ──────────────────────────────────────────────

// StatsRepository is the in-memory repository.StatsRepository.
type StatsRepository struct {
	s *Store
}

func (r *StatsRepository) CountRidesByStatus(ctx context.Context, since time.Time) (map[domain.RideStatus]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	counts := make(map[domain.RideStatus]int)
	for _, ride := range r.s.rides {
		if !ride.CreatedAt.Before(since) {
			counts[ride.Status]++
		}
	}
	return counts, nil
}

func (r *StatsRepository) AssignmentSummary(ctx context.Context, since time.Time) ([]domain.AssignmentTypeStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	type acc struct {
		count, candidates, withDistance int
		distance                        float64
	}
	byType := make(map[domain.AssignmentType]*acc)
	for _, rec := range r.s.records {
		if rec.DecidedAt.Before(since) {
			continue
		}
		a, ok := byType[rec.AssignmentType]
		if !ok {
			a = &acc{}
			byType[rec.AssignmentType] = a
		}
		a.count++
		a.candidates += rec.TotalCandidateCount
		if rec.DriverDistanceKm != nil {
			a.withDistance++
			a.distance += *rec.DriverDistanceKm
		}
	}

	summary := make([]domain.AssignmentTypeStats, 0, len(byType))
	for t, a := range byType {
		s := domain.AssignmentTypeStats{
			Type:              t,
			Count:             a.count,
			AvgCandidateCount: float64(a.candidates) / float64(a.count),
		}
		if a.withDistance > 0 {
			avg := a.distance / float64(a.withDistance)
			s.AvgDriverDistanceKm = &avg
		}
		summary = append(summary, s)
	}
	sort.Slice(summary, func(i, j int) bool { return summary[i].Type < summary[j].Type })
	return summary, nil
}

func (r *StatsRepository) PickupCoordinates(ctx context.Context, since time.Time) ([]domain.Coordinates, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var points []domain.Coordinates
	for _, ride := range r.s.rides {
		if ride.Pickup != nil && !ride.CreatedAt.Before(since) {
			points = append(points, *ride.Pickup)
		}
	}
	return points, nil
}

// ──────────────────────────────────────────────
// COPY HELPERS
// ──────────────────────────────────────────────

func containsStatus(statuses []domain.RideStatus, s domain.RideStatus) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}

func cloneRide(ride *domain.Ride) *domain.Ride {
	c := *ride
	if ride.Pickup != nil {
		p := *ride.Pickup
		c.Pickup = &p
	}
	if ride.AssignedTo != nil {
		id := *ride.AssignedTo
		c.AssignedTo = &id
	}
	c.ScheduledFor = cloneTime(ride.ScheduledFor)
	c.AssignedAt = cloneTime(ride.AssignedAt)
	c.CompletedAt = cloneTime(ride.CompletedAt)
	c.CancelledAt = cloneTime(ride.CancelledAt)
	return &c
}

func cloneInterest(in *domain.Interest) *domain.Interest {
	c := *in
	if in.Location != nil {
		loc := *in.Location
		c.Location = &loc
	}
	return &c
}

func cloneRecord(rec *domain.AssignmentRecord) *domain.AssignmentRecord {
	c := *rec
	if rec.DriverDistanceKm != nil {
		d := *rec.DriverDistanceKm
		c.DriverDistanceKm = &d
	}
	c.RankedCandidates = append([]domain.RankedCandidate(nil), rec.RankedCandidates...)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
