package service

import (
	"context"
	"testing"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/repository/memory"
)

func TestGetStats_CountsAndAverages(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	add := func(created time.Time, pickup *domain.Coordinates) *domain.Ride {
		return store.Rides().AddRide(&domain.Ride{
			IsImmediate: true,
			Pickup:      pickup,
			Status:      domain.RideStatusPending,
			CreatedAt:   created,
		})
	}
	assign := func(ride *domain.Ride, driverID int64, kind domain.AssignmentType, distance float64, candidates int) {
		record := &domain.AssignmentRecord{
			RideID:              ride.ID,
			AssignedDriverID:    driverID,
			AssignmentType:      kind,
			DriverDistanceKm:    &distance,
			TotalCandidateCount: candidates,
			DecidedAt:           ride.CreatedAt.Add(2 * time.Minute),
		}
		if ok, err := store.Rides().AssignIfPending(ctx, ride.ID, driverID, record.DecidedAt, record); err != nil || !ok {
			t.Fatalf("assign ride %d: %v, %v", ride.ID, ok, err)
		}
	}

	// Before the window; ignored.
	add(base.Add(-time.Hour), coords(43.2965, 5.3698))

	port := coords(43.2965, 5.3698)
	a := add(base, port)
	b := add(base.Add(time.Minute), port)
	c := add(base.Add(2*time.Minute), coords(48.8566, 2.3522))
	add(base.Add(3*time.Minute), nil)

	assign(a, 1, domain.AssignmentTypeProximity, 1.0, 3)
	assign(b, 2, domain.AssignmentTypeProximity, 3.0, 1)
	assign(c, 3, domain.AssignmentTypeRandom, 12.0, 2)

	stats, err := NewStatsService(store.Stats()).GetStats(ctx, base)
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}

	if stats.TotalRides != 4 {
		t.Errorf("expected 4 rides, got %d", stats.TotalRides)
	}
	if stats.RidesByStatus[domain.RideStatusAssigned] != 3 || stats.RidesByStatus[domain.RideStatusPending] != 1 {
		t.Errorf("unexpected status counts %v", stats.RidesByStatus)
	}

	if len(stats.Assignments) != 2 {
		t.Fatalf("expected 2 assignment types, got %+v", stats.Assignments)
	}
	proximity, random := stats.Assignments[0], stats.Assignments[1]
	if proximity.Type != domain.AssignmentTypeProximity || proximity.Count != 2 {
		t.Errorf("unexpected proximity stats %+v", proximity)
	}
	if proximity.AvgCandidateCount != 2 {
		t.Errorf("expected avg candidate count 2, got %v", proximity.AvgCandidateCount)
	}
	if proximity.AvgDriverDistanceKm == nil || *proximity.AvgDriverDistanceKm != 2 {
		t.Errorf("expected avg distance 2km, got %v", proximity.AvgDriverDistanceKm)
	}
	if random.Type != domain.AssignmentTypeRandom || random.AvgDriverDistanceKm != nil {
		t.Errorf("random picks should not report a distance, got %+v", random)
	}

	if len(stats.TopZones) != 2 {
		t.Fatalf("expected 2 zones, got %+v", stats.TopZones)
	}
	if stats.TopZones[0].Rides != 2 {
		t.Errorf("expected busiest zone to hold 2 rides, got %+v", stats.TopZones[0])
	}
}

func TestGetStats_Empty(t *testing.T) {
	stats, err := NewStatsService(memory.NewStore().Stats()).GetStats(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	if stats.TotalRides != 0 || stats.Assignments == nil || len(stats.TopZones) != 0 {
		t.Errorf("unexpected empty stats %+v", stats)
	}
}

func TestRankZones_LimitAndOrder(t *testing.T) {
	var points []domain.Coordinates
	for i := 0; i < 7; i++ {
		for j := 0; j <= i; j++ {
			points = append(points, domain.Coordinates{Lat: float64(i * 5), Lng: float64(i * 5)})
		}
	}

	zones := rankZones(points, topZones)
	if len(zones) != topZones {
		t.Fatalf("expected %d zones, got %d", topZones, len(zones))
	}
	for i := 1; i < len(zones); i++ {
		if zones[i].Rides > zones[i-1].Rides {
			t.Errorf("zones not sorted by count: %+v", zones)
		}
	}
	if zones[0].Rides != 7 {
		t.Errorf("expected busiest zone with 7 rides, got %d", zones[0].Rides)
	}
}
