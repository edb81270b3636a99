package service

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/geo"
)

// lngForKm returns the longitude on the equator at km from (0,0).
func lngForKm(km float64) float64 {
	return km / (geo.EarthRadiusKm * math.Pi / 180)
}

func equatorInterests(t0 time.Time, kms ...float64) []*domain.Interest {
	interests := make([]*domain.Interest, len(kms))
	for i, km := range kms {
		interests[i] = &domain.Interest{
			RideID:      1,
			DriverID:    int64(i + 1),
			Location:    coords(0, lngForKm(km)),
			ExpressedAt: t0.Add(time.Duration(i) * time.Second),
		}
	}
	return interests
}

func TestSelectDriver_PicksNearestForImmediateRide(t *testing.T) {
	ride := &domain.Ride{ID: 1, IsImmediate: true, Pickup: coords(0, 0)}
	interests := equatorInterests(time.Now(), 5, 1, 10)

	sel, err := NewAssignmentPolicy(nil).SelectDriver(ride, interests)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sel.DriverID != 2 {
		t.Errorf("expected driver 2 (1 km), got %d", sel.DriverID)
	}
	if sel.Type != domain.AssignmentTypeProximity {
		t.Errorf("expected proximity, got %s", sel.Type)
	}
	if sel.DistanceKm == nil || math.Abs(*sel.DistanceKm-1) > 1e-6 {
		t.Errorf("expected distance 1 km, got %v", sel.DistanceKm)
	}

	wantOrder := []int64{2, 1, 3}
	for i, c := range sel.Ranked {
		if c.DriverID != wantOrder[i] {
			t.Errorf("rank %d: expected driver %d, got %d", i+1, wantOrder[i], c.DriverID)
		}
		if i > 0 && *sel.Ranked[i-1].DistanceKm > *c.DistanceKm {
			t.Errorf("ranking not ascending at %d", i)
		}
	}
	if sel.Ranked[0].EstimatedMinutes == nil || *sel.Ranked[0].EstimatedMinutes != 2 {
		t.Errorf("expected 2 estimated minutes for 1 km, got %v", sel.Ranked[0].EstimatedMinutes)
	}
}

func TestSelectDriver_TieBreaksByInterestTimeThenDriverID(t *testing.T) {
	t0 := time.Now()
	ride := &domain.Ride{ID: 1, IsImmediate: true, Pickup: coords(0, 0)}
	interests := []*domain.Interest{
		{DriverID: 30, Location: coords(0, lngForKm(2)), ExpressedAt: t0.Add(time.Second)},
		{DriverID: 20, Location: coords(0, lngForKm(2)), ExpressedAt: t0},
		{DriverID: 10, Location: coords(0, lngForKm(2)), ExpressedAt: t0},
	}

	sel, err := NewAssignmentPolicy(nil).SelectDriver(ride, interests)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantOrder := []int64{10, 20, 30}
	for i, c := range sel.Ranked {
		if c.DriverID != wantOrder[i] {
			t.Errorf("rank %d: expected driver %d, got %d", i+1, wantOrder[i], c.DriverID)
		}
	}
}

func TestSelectDriver_UnknownDistanceRanksLast(t *testing.T) {
	t0 := time.Now()
	ride := &domain.Ride{ID: 1, IsImmediate: true, Pickup: coords(43.30, 5.37)}
	interests := []*domain.Interest{
		{DriverID: 1, Location: nil, ExpressedAt: t0},
		{DriverID: 2, Location: coords(43.40, 5.50), ExpressedAt: t0.Add(time.Second)},
	}

	sel, err := NewAssignmentPolicy(nil).SelectDriver(ride, interests)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sel.DriverID != 2 {
		t.Errorf("expected driver with known position, got %d", sel.DriverID)
	}
	last := sel.Ranked[len(sel.Ranked)-1]
	if last.DriverID != 1 || last.DistanceKm != nil || last.EstimatedMinutes != nil {
		t.Errorf("expected driver 1 last with unknown distance, got %+v", last)
	}
}

func TestSelectDriver_RideWithoutPickupFallsBackToInterestOrder(t *testing.T) {
	t0 := time.Now()
	ride := &domain.Ride{ID: 1, IsImmediate: true}
	interests := []*domain.Interest{
		{DriverID: 5, Location: coords(43.31, 5.38), ExpressedAt: t0.Add(time.Second)},
		{DriverID: 6, Location: coords(43.40, 5.50), ExpressedAt: t0},
	}

	sel, err := NewAssignmentPolicy(nil).SelectDriver(ride, interests)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel.DriverID != 6 {
		t.Errorf("expected earliest interest to win, got %d", sel.DriverID)
	}
	if sel.DistanceKm != nil {
		t.Errorf("expected unknown distance, got %v", *sel.DistanceKm)
	}
}

func TestSelectDriver_TruncatesRankingToTopFive(t *testing.T) {
	ride := &domain.Ride{ID: 1, IsImmediate: true, Pickup: coords(0, 0)}
	interests := equatorInterests(time.Now(), 7, 6, 5, 4, 3, 2, 1)

	sel, err := NewAssignmentPolicy(nil).SelectDriver(ride, interests)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sel.Ranked) != domain.MaxRankedCandidates {
		t.Errorf("expected %d ranked candidates, got %d", domain.MaxRankedCandidates, len(sel.Ranked))
	}
	if sel.TotalCandidates != 7 {
		t.Errorf("expected total 7, got %d", sel.TotalCandidates)
	}
	if sel.Ranked[0].DriverID != 7 {
		t.Errorf("expected driver 7 (1 km) first, got %d", sel.Ranked[0].DriverID)
	}
}

func TestSelectDriver_ScheduledRideUsesRandomSource(t *testing.T) {
	ride := &domain.Ride{ID: 1, IsImmediate: false, Pickup: coords(0, 0)}
	interests := equatorInterests(time.Now(), 5, 1, 10)

	// Always pick the last index of the distance ranking.
	policy := NewAssignmentPolicy(func(n int) int { return n - 1 })
	sel, err := policy.SelectDriver(ride, interests)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sel.Type != domain.AssignmentTypeRandom {
		t.Errorf("expected random, got %s", sel.Type)
	}
	if sel.DriverID != 3 {
		t.Errorf("expected driver 3 (farthest), got %d", sel.DriverID)
	}
	if sel.DistanceKm == nil || math.Abs(*sel.DistanceKm-10) > 1e-6 {
		t.Errorf("expected chosen distance 10 km, got %v", sel.DistanceKm)
	}
	if sel.Ranked[0].DriverID != 2 {
		t.Errorf("expected ranking by distance even for random pick, got %d first", sel.Ranked[0].DriverID)
	}
}

func TestSelectDriver_ScheduledRideIsUniform(t *testing.T) {
	const runs = 10000
	ride := &domain.Ride{ID: 1, IsImmediate: false, Pickup: coords(0, 0)}
	interests := equatorInterests(time.Now(), 1, 2, 3, 4)

	rng := rand.New(rand.NewPCG(42, 1024))
	policy := NewAssignmentPolicy(rng.IntN)

	counts := make(map[int64]int)
	for i := 0; i < runs; i++ {
		sel, err := policy.SelectDriver(ride, interests)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		counts[sel.DriverID]++
	}

	for _, in := range interests {
		freq := float64(counts[in.DriverID]) / runs
		if math.Abs(freq-0.25) > 0.03 {
			t.Errorf("driver %d chosen %.3f of the time, want 0.25 ± 0.03", in.DriverID, freq)
		}
	}
}

func TestSelectDriver_NoCandidates(t *testing.T) {
	ride := &domain.Ride{ID: 1, IsImmediate: true, Pickup: coords(0, 0)}

	_, err := NewAssignmentPolicy(nil).SelectDriver(ride, nil)
	if !errors.Is(err, ErrNoCandidates) {
		t.Errorf("expected ErrNoCandidates, got %v", err)
	}
}
