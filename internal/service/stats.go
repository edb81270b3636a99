package service

import (
	"context"
	"sort"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/geo"
	"dispatch/internal/repository"
)

const topZones = 5

// StatsService computes aggregate dispatch statistics.
type StatsService struct {
	statsRepo repository.StatsRepository
}

// NewStatsService creates a new StatsService.
func NewStatsService(statsRepo repository.StatsRepository) *StatsService {
	return &StatsService{statsRepo: statsRepo}
}

// GetStats returns ride and assignment statistics since the given time.
func (s *StatsService) GetStats(ctx context.Context, since time.Time) (*domain.Stats, error) {
	counts, err := s.statsRepo.CountRidesByStatus(ctx, since)
	if err != nil {
		return nil, err
	}

	summary, err := s.statsRepo.AssignmentSummary(ctx, since)
	if err != nil {
		return nil, err
	}
	for i := range summary {
		// Distance only drives proximity picks.
		if summary[i].Type != domain.AssignmentTypeProximity {
			summary[i].AvgDriverDistanceKm = nil
		}
	}

	points, err := s.statsRepo.PickupCoordinates(ctx, since)
	if err != nil {
		return nil, err
	}

	stats := &domain.Stats{
		Since:         since,
		RidesByStatus: counts,
		Assignments:   summary,
		TopZones:      rankZones(points, topZones),
	}
	for _, n := range counts {
		stats.TotalRides += n
	}
	if stats.Assignments == nil {
		stats.Assignments = []domain.AssignmentTypeStats{}
	}
	return stats, nil
}

// rankZones buckets points into geohash cells and returns the busiest.
func rankZones(points []domain.Coordinates, limit int) []domain.ZoneCount {
	byZone := make(map[string]int)
	for _, p := range points {
		byZone[geo.Zone(p.Lat, p.Lng)]++
	}

	zones := make([]domain.ZoneCount, 0, len(byZone))
	for z, n := range byZone {
		zones = append(zones, domain.ZoneCount{Zone: z, Rides: n})
	}
	sort.Slice(zones, func(i, j int) bool {
		if zones[i].Rides != zones[j].Rides {
			return zones[i].Rides > zones[j].Rides
		}
		return zones[i].Zone < zones[j].Zone
	})
	if len(zones) > limit {
		zones = zones[:limit]
	}
	return zones
}
