package postgres

import (
	"context"
	"database/sql"
	"time"

	"dispatch/internal/domain"
)

// StatsRepository is a PostgreSQL implementation of repository.StatsRepository.
type StatsRepository struct {
	q Querier
}

// NewStatsRepository creates a new PostgreSQL stats repository.
func NewStatsRepository(db *sql.DB) *StatsRepository {
	return &StatsRepository{q: db}
}

// CountRidesByStatus counts rides created at or after since.
func (r *StatsRepository) CountRidesByStatus(ctx context.Context, since time.Time) (map[domain.RideStatus]int, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM rides WHERE created_at >= $1 GROUP BY status`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.RideStatus]int)
	for rows.Next() {
		var status domain.RideStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// AssignmentSummary aggregates audit records decided at or after since.
func (r *StatsRepository) AssignmentSummary(ctx context.Context, since time.Time) ([]domain.AssignmentTypeStats, error) {
	query := `
		SELECT assignment_type, COUNT(*), AVG(total_candidate_count), AVG(driver_distance_km)
		FROM assignment_records
		WHERE decided_at >= $1
		GROUP BY assignment_type
		ORDER BY assignment_type
	`

	rows, err := r.q.QueryContext(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summary []domain.AssignmentTypeStats
	for rows.Next() {
		var s domain.AssignmentTypeStats
		var avgDistance sql.NullFloat64
		if err := rows.Scan(&s.Type, &s.Count, &s.AvgCandidateCount, &avgDistance); err != nil {
			return nil, err
		}
		if avgDistance.Valid {
			d := avgDistance.Float64
			s.AvgDriverDistanceKm = &d
		}
		summary = append(summary, s)
	}
	return summary, rows.Err()
}

// PickupCoordinates returns the pickup points of rides created at or after since.
func (r *StatsRepository) PickupCoordinates(ctx context.Context, since time.Time) ([]domain.Coordinates, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT pickup_lat, pickup_lng FROM rides
		WHERE created_at >= $1 AND pickup_lat IS NOT NULL AND pickup_lng IS NOT NULL
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []domain.Coordinates
	for rows.Next() {
		var c domain.Coordinates
		if err := rows.Scan(&c.Lat, &c.Lng); err != nil {
			return nil, err
		}
		points = append(points, c)
	}
	return points, rows.Err()
}
