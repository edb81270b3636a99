package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// AssignmentRepository is a PostgreSQL implementation of repository.AssignmentRepository.
type AssignmentRepository struct {
	q Querier
}

// NewAssignmentRepository creates a new PostgreSQL assignment repository.
func NewAssignmentRepository(db *sql.DB) *AssignmentRepository {
	return &AssignmentRepository{q: db}
}

// GetByRideID retrieves the audit record for a ride.
func (r *AssignmentRepository) GetByRideID(ctx context.Context, rideID int64) (*domain.AssignmentRecord, error) {
	query := `
		SELECT ride_id, assigned_driver_id, assignment_type, driver_distance_km,
			ranked_candidates, total_candidate_count, decided_at
		FROM assignment_records WHERE ride_id = $1
	`

	var record domain.AssignmentRecord
	var distance sql.NullFloat64
	var candidates []byte

	err := r.q.QueryRowContext(ctx, query, rideID).Scan(
		&record.RideID,
		&record.AssignedDriverID,
		&record.AssignmentType,
		&distance,
		&candidates,
		&record.TotalCandidateCount,
		&record.DecidedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	if distance.Valid {
		d := distance.Float64
		record.DriverDistanceKm = &d
	}
	if err := json.Unmarshal(candidates, &record.RankedCandidates); err != nil {
		return nil, fmt.Errorf("decode ranked candidates for ride %d: %w", rideID, err)
	}

	return &record, nil
}
