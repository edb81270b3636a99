package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

const rideColumns = `id, is_immediate, pickup_lat, pickup_lng, pickup_address, dropoff_address,
	payment_method, client_phone, scheduled_for, status, assigned_to,
	created_at, assigned_at, completed_at, cancelled_at, cancel_reason`

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	q  Querier
	db *sql.DB // nil when bound to an outer transaction
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{q: db, db: db}
}

// NewRideRepositoryWithTx creates a ride repository using a transaction.
// AssignIfPending then runs inside that transaction and leaves commit to
// the caller.
func NewRideRepositoryWithTx(tx *sql.Tx) *RideRepository {
	return &RideRepository{q: tx}
}

// Create persists a new ride and sets its ID.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (is_immediate, pickup_lat, pickup_lng, pickup_address, dropoff_address,
			payment_method, client_phone, scheduled_for, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	var lat, lng sql.NullFloat64
	if ride.Pickup != nil {
		lat = sql.NullFloat64{Float64: ride.Pickup.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: ride.Pickup.Lng, Valid: true}
	}

	paymentMethod := ride.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = domain.PaymentMethodCash
	}

	status := ride.Status
	if status == "" {
		status = domain.RideStatusPending
	}

	return r.q.QueryRowContext(ctx, query,
		ride.IsImmediate,
		lat,
		lng,
		ride.PickupAddress,
		ride.DropoffAddress,
		paymentMethod,
		ride.ClientPhone,
		nullTime(ride.ScheduledFor),
		status,
		ride.CreatedAt,
	).Scan(&ride.ID)
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id int64) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`

	ride, err := scanRide(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return ride, nil
}

// ListByStatus retrieves rides in any of the given statuses, oldest first.
func (r *RideRepository) ListByStatus(ctx context.Context, statuses ...domain.RideStatus) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides`
	var args []any
	if len(statuses) > 0 {
		names := make([]string, len(statuses))
		for i, s := range statuses {
			names[i] = string(s)
		}
		query += ` WHERE status = ANY($1)`
		args = append(args, pq.Array(names))
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []*domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}

// AssignIfPending moves a pending ride to assigned and stores the audit
// record in the same transaction.
func (r *RideRepository) AssignIfPending(ctx context.Context, rideID, driverID int64, at time.Time, record *domain.AssignmentRecord) (bool, error) {
	if r.db == nil {
		return assignIfPending(ctx, r.q, rideID, driverID, at, record)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin assignment tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ok, err := assignIfPending(ctx, tx, rideID, driverID, at, record)
	if err != nil || !ok {
		return ok, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit assignment tx: %w", err)
	}
	return true, nil
}

func assignIfPending(ctx context.Context, q Querier, rideID, driverID int64, at time.Time, record *domain.AssignmentRecord) (bool, error) {
	result, err := q.ExecContext(ctx, `
		UPDATE rides
		SET status = 'assigned', assigned_to = $2, assigned_at = $3
		WHERE id = $1 AND status = 'pending'
	`, rideID, driverID, at)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rowsAffected == 0 {
		return false, nil
	}

	if record == nil {
		return true, nil
	}

	candidates, err := json.Marshal(record.RankedCandidates)
	if err != nil {
		return false, fmt.Errorf("encode ranked candidates: %w", err)
	}

	var distance sql.NullFloat64
	if record.DriverDistanceKm != nil {
		distance = sql.NullFloat64{Float64: *record.DriverDistanceKm, Valid: true}
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO assignment_records (ride_id, assigned_driver_id, assignment_type,
			driver_distance_km, ranked_candidates, total_candidate_count, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		record.RideID,
		record.AssignedDriverID,
		record.AssignmentType,
		distance,
		string(candidates),
		record.TotalCandidateCount,
		record.DecidedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return false, repository.ErrDuplicate
		}
		return false, err
	}
	return true, nil
}

// UpdateStatus moves a ride from one status to another if it is still in
// the from status. Cancelling clears assigned_to.
func (r *RideRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.RideStatus, at time.Time, reason string) (bool, error) {
	query := `
		UPDATE rides
		SET status = $3::text,
			completed_at = CASE WHEN $3::text = 'completed' THEN $4::timestamptz ELSE completed_at END,
			cancelled_at = CASE WHEN $3::text = 'cancelled' THEN $4::timestamptz ELSE cancelled_at END,
			cancel_reason = CASE WHEN $3::text = 'cancelled' THEN NULLIF($5::text, '') ELSE cancel_reason END,
			assigned_to = CASE WHEN $3::text = 'cancelled' THEN NULL ELSE assigned_to END
		WHERE id = $1 AND status = $2
	`

	result, err := r.q.ExecContext(ctx, query, id, from, to, at, reason)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(s rowScanner) (*domain.Ride, error) {
	var ride domain.Ride
	var lat, lng sql.NullFloat64
	var scheduledFor, assignedAt, completedAt, cancelledAt sql.NullTime
	var assignedTo sql.NullInt64
	var cancelReason sql.NullString

	err := s.Scan(
		&ride.ID,
		&ride.IsImmediate,
		&lat,
		&lng,
		&ride.PickupAddress,
		&ride.DropoffAddress,
		&ride.PaymentMethod,
		&ride.ClientPhone,
		&scheduledFor,
		&ride.Status,
		&assignedTo,
		&ride.CreatedAt,
		&assignedAt,
		&completedAt,
		&cancelledAt,
		&cancelReason,
	)
	if err != nil {
		return nil, err
	}

	if lat.Valid && lng.Valid {
		ride.Pickup = &domain.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
	}
	if assignedTo.Valid {
		id := assignedTo.Int64
		ride.AssignedTo = &id
	}
	ride.ScheduledFor = timePtr(scheduledFor)
	ride.AssignedAt = timePtr(assignedAt)
	ride.CompletedAt = timePtr(completedAt)
	ride.CancelledAt = timePtr(cancelledAt)
	if cancelReason.Valid {
		ride.CancelReason = cancelReason.String
	}

	return &ride, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
