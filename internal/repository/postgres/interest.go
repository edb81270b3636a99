package postgres

import (
	"context"
	"database/sql"

	"dispatch/internal/domain"
)

// InterestRepository is a PostgreSQL implementation of repository.InterestRepository.
type InterestRepository struct {
	q Querier
}

// NewInterestRepository creates a new PostgreSQL interest repository.
func NewInterestRepository(db *sql.DB) *InterestRepository {
	return &InterestRepository{q: db}
}

// NewInterestRepositoryWithTx creates an interest repository using a transaction.
func NewInterestRepositoryWithTx(tx *sql.Tx) *InterestRepository {
	return &InterestRepository{q: tx}
}

// UpsertIfPending records an interest, replacing an existing one for the
// same pair, while the ride is pending. The ride row is share-locked so a
// concurrent assignment either waits for the insert or makes it a no-op.
func (r *InterestRepository) UpsertIfPending(ctx context.Context, interest *domain.Interest) (bool, error) {
	query := `
		INSERT INTO ride_interests (ride_id, driver_id, lat, lng, expressed_at)
		SELECT $1::bigint, $2::bigint, $3::double precision, $4::double precision, $5::timestamptz
		WHERE EXISTS (
			SELECT 1 FROM rides WHERE id = $1::bigint AND status = 'pending' FOR SHARE
		)
		ON CONFLICT (ride_id, driver_id)
		DO UPDATE SET lat = EXCLUDED.lat, lng = EXCLUDED.lng, expressed_at = EXCLUDED.expressed_at
	`

	var lat, lng sql.NullFloat64
	if interest.Location != nil {
		lat = sql.NullFloat64{Float64: interest.Location.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: interest.Location.Lng, Valid: true}
	}

	result, err := r.q.ExecContext(ctx, query,
		interest.RideID,
		interest.DriverID,
		lat,
		lng,
		interest.ExpressedAt,
	)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

// Delete removes an interest. It reports whether one existed.
func (r *InterestRepository) Delete(ctx context.Context, rideID, driverID int64) (bool, error) {
	result, err := r.q.ExecContext(ctx,
		`DELETE FROM ride_interests WHERE ride_id = $1 AND driver_id = $2`, rideID, driverID)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

// ListByRide retrieves all interests for a ride, oldest first.
func (r *InterestRepository) ListByRide(ctx context.Context, rideID int64) ([]*domain.Interest, error) {
	query := `
		SELECT ride_id, driver_id, lat, lng, expressed_at
		FROM ride_interests WHERE ride_id = $1
		ORDER BY expressed_at, driver_id
	`

	rows, err := r.q.QueryContext(ctx, query, rideID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var interests []*domain.Interest
	for rows.Next() {
		var interest domain.Interest
		var lat, lng sql.NullFloat64
		if err := rows.Scan(&interest.RideID, &interest.DriverID, &lat, &lng, &interest.ExpressedAt); err != nil {
			return nil, err
		}
		if lat.Valid && lng.Valid {
			interest.Location = &domain.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
		}
		interests = append(interests, &interest)
	}
	return interests, rows.Err()
}
