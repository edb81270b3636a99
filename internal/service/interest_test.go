package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/repository/memory"
)

func TestRecordInterest_UpsertKeepsLatestLocation(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	ride := f.addRide(true, coords(43.30, 5.37))

	if _, err := f.registry.RecordInterest(ctx, ride.ID, 7, coords(43.31, 5.38)); err != nil {
		t.Fatalf("first interest: %v", err)
	}
	f.clock.Advance(10 * time.Second)
	if _, err := f.registry.RecordInterest(ctx, ride.ID, 7, coords(43.35, 5.40)); err != nil {
		t.Fatalf("second interest: %v", err)
	}

	interests, err := f.registry.ListInterests(ctx, ride.ID)
	if err != nil {
		t.Fatalf("list interests: %v", err)
	}
	if len(interests) != 1 {
		t.Fatalf("expected 1 interest, got %d", len(interests))
	}
	got := interests[0]
	if got.Location == nil || got.Location.Lat != 43.35 || got.Location.Lng != 5.40 {
		t.Errorf("expected latest location, got %+v", got.Location)
	}
	if !got.ExpressedAt.Equal(f.clock.Now()) {
		t.Errorf("expected latest timestamp %v, got %v", f.clock.Now(), got.ExpressedAt)
	}
}

func TestRecordInterest_RideNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.registry.RecordInterest(context.Background(), 99, 7, nil)
	if !errors.Is(err, ErrRideNotFound) {
		t.Errorf("expected ErrRideNotFound, got %v", err)
	}
}

func TestRecordInterest_RideNotPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	ride := f.addRide(true, nil)

	if _, err := f.rides.OverrideAssignment(ctx, ride.ID, 3); err != nil {
		t.Fatalf("override: %v", err)
	}

	_, err := f.registry.RecordInterest(ctx, ride.ID, 7, nil)
	if !errors.Is(err, ErrRideNotPending) {
		t.Errorf("expected ErrRideNotPending, got %v", err)
	}
	if err.Error() != "ride is no longer available" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

// assignBeforeUpsert assigns the ride between the registry's pending check
// and the interest write.
type assignBeforeUpsert struct {
	*memory.InterestRepository
	rides *memory.RideRepository
	at    time.Time
}

func (r *assignBeforeUpsert) UpsertIfPending(ctx context.Context, interest *domain.Interest) (bool, error) {
	if _, err := r.rides.AssignIfPending(ctx, interest.RideID, 3, r.at, nil); err != nil {
		return false, err
	}
	return r.InterestRepository.UpsertIfPending(ctx, interest)
}

func TestRecordInterest_RideAssignedConcurrently(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	ride := f.addRide(true, nil)

	interests := &assignBeforeUpsert{InterestRepository: f.store.Interests(), rides: f.store.Rides(), at: f.clock.Now()}
	registry := NewInterestRegistry(f.store.Rides(), interests, nil, nil)

	_, err := registry.RecordInterest(ctx, ride.ID, 7, nil)
	if !errors.Is(err, ErrRideNotPending) {
		t.Fatalf("expected ErrRideNotPending, got %v", err)
	}

	stored, err := f.store.Interests().ListByRide(ctx, ride.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 0 {
		t.Errorf("expected no stored interest, got %d", len(stored))
	}
}

func TestRecordInterest_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	ride := f.addRide(true, nil)

	tests := []struct {
		name     string
		rideID   int64
		driverID int64
		loc      *domain.Coordinates
		want     error
	}{
		{"zero ride", 0, 7, nil, ErrInvalidRideID},
		{"zero driver", ride.ID, 0, nil, ErrInvalidDriverID},
		{"latitude out of range", ride.ID, 7, coords(91, 0), ErrInvalidLocation},
		{"longitude out of range", ride.ID, 7, coords(0, -181), ErrInvalidLocation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.registry.RecordInterest(ctx, tt.rideID, tt.driverID, tt.loc)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRecordInterest_WithoutLocation(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	ride := f.addRide(true, coords(43.30, 5.37))

	interest, err := f.registry.RecordInterest(ctx, ride.ID, 7, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if interest.Location != nil {
		t.Errorf("expected nil location, got %+v", interest.Location)
	}
}

func TestRemoveInterest_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	ride := f.addRide(true, nil)

	if _, err := f.registry.RecordInterest(ctx, ride.ID, 7, nil); err != nil {
		t.Fatalf("record: %v", err)
	}

	removed, err := f.registry.RemoveInterest(ctx, ride.ID, 7)
	if err != nil || !removed {
		t.Fatalf("expected removal, got %v, %v", removed, err)
	}

	removed, err = f.registry.RemoveInterest(ctx, ride.ID, 7)
	if err != nil {
		t.Fatalf("unexpected error on second removal: %v", err)
	}
	if removed {
		t.Error("expected second removal to report false")
	}

	interests, _ := f.registry.ListInterests(ctx, ride.ID)
	if len(interests) != 0 {
		t.Errorf("expected no interests, got %d", len(interests))
	}
}

func TestListInterests_EnrichesWithProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	ride := f.addRide(true, nil)

	if _, err := f.drivers.Register(ctx, RegisterDriverRequest{ID: 7, Name: "Karim", Phone: "+33611111111"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	for _, id := range []int64{7, 8} {
		if _, err := f.registry.RecordInterest(ctx, ride.ID, id, nil); err != nil {
			t.Fatalf("record %d: %v", id, err)
		}
		f.clock.Advance(time.Second)
	}

	interests, err := f.registry.ListInterests(ctx, ride.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(interests) != 2 {
		t.Fatalf("expected 2 interests, got %d", len(interests))
	}
	if interests[0].DriverName != "Karim" || interests[0].DriverPhone != "+33611111111" {
		t.Errorf("expected profile on driver 7, got %+v", interests[0])
	}
	if interests[1].DriverName != "" {
		t.Errorf("expected blank profile for unknown driver 8, got %q", interests[1].DriverName)
	}
}

func TestListInterests_ProfileLookupFailureDegrades(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	ride := f.addRide(true, nil)

	registry := NewInterestRegistry(f.store.Rides(), f.store.Interests(),
		func(ctx context.Context, driverID int64) (*domain.DriverProfile, error) {
			return nil, errMockStorage
		}, nil)

	if _, err := registry.RecordInterest(ctx, ride.ID, 7, nil); err != nil {
		t.Fatalf("record: %v", err)
	}

	interests, err := registry.ListInterests(ctx, ride.ID)
	if err != nil {
		t.Fatalf("expected lookup failure to be tolerated, got %v", err)
	}
	if len(interests) != 1 || interests[0].DriverName != "" {
		t.Errorf("expected one interest without profile, got %+v", interests)
	}
}

func TestListInterests_EmptyIsNotNil(t *testing.T) {
	f := newFixture()
	ride := f.addRide(true, nil)

	interests, err := f.registry.ListInterests(context.Background(), ride.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if interests == nil || len(interests) != 0 {
		t.Errorf("expected empty slice, got %v", interests)
	}
}
