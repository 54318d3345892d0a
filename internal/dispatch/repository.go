package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/swiftride/dispatch-core/pkg/models"
)

// Sentinel errors for the acceptance race. The service maps these to API
// error codes.
var (
	ErrOfferNotFound = errors.New("no offer for this driver and trip")
	ErrNotAssignable = errors.New("trip is no longer assignable")
)

// ExpiredError reports a pending offer accepted after its response window
type ExpiredError struct {
	AttemptID int64
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("offer %d expired", e.AttemptID)
}

// RespondedError reports an offer that already reached a terminal response
type RespondedError struct {
	AttemptID int64
	Response  models.AttemptResponse
}

func (e *RespondedError) Error() string {
	return fmt.Sprintf("offer %d already responded: %s", e.AttemptID, e.Response)
}

// Repository handles database operations for dispatch
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new dispatch repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const tripColumns = `
	trip_id, rider_id, driver_id, vehicle_id, tenant_id, city_id, surge_zone_id,
	vehicle_category, pickup_lat, pickup_lng, drop_lat, drop_lng, status, fare_amount,
	pickup_otp, otp_expires_at, otp_attempts, otp_verified_at,
	requested_at, assigned_at, arrived_at, picked_up_at, completed_at, cancelled_at`

func scanTrip(row pgx.Row) (*models.Trip, error) {
	t := &models.Trip{}
	err := row.Scan(
		&t.TripID, &t.RiderID, &t.DriverID, &t.VehicleID, &t.TenantID, &t.CityID,
		&t.SurgeZoneID, &t.VehicleCategory, &t.PickupLat, &t.PickupLng,
		&t.DropLat, &t.DropLng, &t.Status, &t.FareAmount,
		&t.PickupOTP, &t.OTPExpiresAt, &t.OTPAttempts, &t.OTPVerifiedAt,
		&t.RequestedAt, &t.AssignedAt, &t.ArrivedAt, &t.PickedUpAt,
		&t.CompletedAt, &t.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetTrip retrieves a trip. Returns nil when absent.
func (r *Repository) GetTrip(ctx context.Context, tripID int64) (*models.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE trip_id = $1`

	trip, err := scanTrip(r.db.QueryRow(ctx, query, tripID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}

	return trip, nil
}

// MarkDispatching transitions a trip REQUESTED -> DISPATCHING. Returns false
// when the trip was not in REQUESTED.
func (r *Repository) MarkDispatching(ctx context.Context, tripID int64) (bool, error) {
	query := `UPDATE trips SET status = 'DISPATCHING' WHERE trip_id = $1 AND status = 'REQUESTED'`

	tag, err := r.db.Exec(ctx, query, tripID)
	if err != nil {
		return false, fmt.Errorf("failed to mark trip dispatching: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// MaxWave returns the highest wave number attempted for the trip, 0 when none
func (r *Repository) MaxWave(ctx context.Context, tripID int64) (int, error) {
	query := `SELECT COALESCE(MAX(wave_number), 0) FROM dispatch_attempts WHERE trip_id = $1`

	var wave int
	if err := r.db.QueryRow(ctx, query, tripID).Scan(&wave); err != nil {
		return 0, fmt.Errorf("failed to get max wave: %w", err)
	}

	return wave, nil
}

// CountPendingFresh counts pending offers still inside the response window
func (r *Repository) CountPendingFresh(ctx context.Context, tripID int64, timeout time.Duration) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM dispatch_attempts
		WHERE trip_id = $1
		  AND response LIKE 'PENDING_WAVE_%'
		  AND sent_at > NOW() - $2::interval
	`

	var count int
	if err := r.db.QueryRow(ctx, query, tripID, timeout.String()).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pending offers: %w", err)
	}

	return count, nil
}

// SweepExpired times out pending offers older than the response window and
// returns the swept attempts.
func (r *Repository) SweepExpired(ctx context.Context, tripID int64, timeout time.Duration) ([]*models.DispatchAttempt, error) {
	query := `
		UPDATE dispatch_attempts
		SET response = 'TIMEOUT', responded_at = NOW()
		WHERE trip_id = $1
		  AND response LIKE 'PENDING_WAVE_%'
		  AND sent_at <= NOW() - $2::interval
		RETURNING attempt_id, trip_id, driver_id, wave_number, sent_at, responded_at, response
	`

	rows, err := r.db.Query(ctx, query, tripID, timeout.String())
	if err != nil {
		return nil, fmt.Errorf("failed to sweep expired offers: %w", err)
	}
	defer rows.Close()

	return collectAttempts(rows)
}

func collectAttempts(rows pgx.Rows) ([]*models.DispatchAttempt, error) {
	attempts := make([]*models.DispatchAttempt, 0)
	for rows.Next() {
		a := &models.DispatchAttempt{}
		err := rows.Scan(
			&a.AttemptID, &a.TripID, &a.DriverID, &a.WaveNumber,
			&a.SentAt, &a.RespondedAt, &a.Response,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	return attempts, nil
}

// EligibleDrivers filters candidate ids down to drivers that may serve the
// trip: approved profile, open ONLINE shift, an assigned approved vehicle of
// the requested category which the driver is allowed to drive, and no prior
// attempt for this trip.
func (r *Repository) EligibleDrivers(ctx context.Context, trip *models.Trip, driverIDs []int64) (map[int64]bool, error) {
	if len(driverIDs) == 0 {
		return map[int64]bool{}, nil
	}

	query := `
		SELECT dp.driver_id
		FROM driver_profiles dp
		JOIN driver_shifts ds
		  ON ds.driver_id = dp.driver_id AND ds.ended_at IS NULL AND ds.status = 'ONLINE'
		JOIN driver_vehicle_assignments a
		  ON a.driver_id = dp.driver_id AND a.end_time IS NULL
		JOIN vehicles v
		  ON v.vehicle_id = a.vehicle_id AND v.approval_status = 'APPROVED'
		WHERE dp.driver_id = ANY($1)
		  AND dp.approval_status = 'APPROVED'
		  AND v.category = $2
		  AND $2 = ANY(dp.allowed_vehicle_categories)
		  AND NOT EXISTS (
			SELECT 1 FROM dispatch_attempts da
			WHERE da.trip_id = $3 AND da.driver_id = dp.driver_id
		  )
	`

	rows, err := r.db.Query(ctx, query, driverIDs, trip.VehicleCategory, trip.TripID)
	if err != nil {
		return nil, fmt.Errorf("failed to filter eligible drivers: %w", err)
	}
	defer rows.Close()

	eligible := make(map[int64]bool, len(driverIDs))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan driver id: %w", err)
		}
		eligible[id] = true
	}

	return eligible, nil
}

// FallbackCandidates returns eligible drivers with a durable position fresh
// within locationTTL, for when the live geo index has no members. Distance
// filtering happens in the service.
func (r *Repository) FallbackCandidates(ctx context.Context, trip *models.Trip, locationTTL time.Duration) ([]FallbackCandidate, error) {
	query := `
		SELECT dp.driver_id, dl.latitude, dl.longitude
		FROM driver_profiles dp
		JOIN driver_shifts ds
		  ON ds.driver_id = dp.driver_id AND ds.ended_at IS NULL AND ds.status = 'ONLINE'
		JOIN driver_vehicle_assignments a
		  ON a.driver_id = dp.driver_id AND a.end_time IS NULL
		JOIN vehicles v
		  ON v.vehicle_id = a.vehicle_id AND v.approval_status = 'APPROVED'
		JOIN driver_locations dl
		  ON dl.driver_id = dp.driver_id AND dl.last_updated > NOW() - $3::interval
		WHERE dp.approval_status = 'APPROVED'
		  AND v.category = $1
		  AND $1 = ANY(dp.allowed_vehicle_categories)
		  AND NOT EXISTS (
			SELECT 1 FROM dispatch_attempts da
			WHERE da.trip_id = $2 AND da.driver_id = dp.driver_id
		  )
	`

	rows, err := r.db.Query(ctx, query, trip.VehicleCategory, trip.TripID, locationTTL.String())
	if err != nil {
		return nil, fmt.Errorf("failed to load fallback candidates: %w", err)
	}
	defer rows.Close()

	candidates := make([]FallbackCandidate, 0)
	for rows.Next() {
		var c FallbackCandidate
		if err := rows.Scan(&c.DriverID, &c.Latitude, &c.Longitude); err != nil {
			return nil, fmt.Errorf("failed to scan fallback candidate: %w", err)
		}
		candidates = append(candidates, c)
	}

	return candidates, nil
}

// CreateAttempts inserts pending offers for a wave. Drivers already attempted
// for the trip are skipped silently.
func (r *Repository) CreateAttempts(ctx context.Context, tripID int64, wave int, driverIDs []int64) ([]*models.DispatchAttempt, error) {
	query := `
		INSERT INTO dispatch_attempts (trip_id, driver_id, wave_number, response)
		SELECT $1, d, $2, $3 FROM unnest($4::bigint[]) AS d
		ON CONFLICT (trip_id, driver_id) DO NOTHING
		RETURNING attempt_id, trip_id, driver_id, wave_number, sent_at, responded_at, response
	`

	rows, err := r.db.Query(ctx, query, tripID, wave, string(models.PendingResponse(wave)), driverIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create attempts: %w", err)
	}
	defer rows.Close()

	return collectAttempts(rows)
}

// GetAttemptsByTrip retrieves every attempt for a trip ordered by wave then id
func (r *Repository) GetAttemptsByTrip(ctx context.Context, tripID int64) ([]*models.DispatchAttempt, error) {
	query := `
		SELECT attempt_id, trip_id, driver_id, wave_number, sent_at, responded_at, response
		FROM dispatch_attempts
		WHERE trip_id = $1
		ORDER BY wave_number, attempt_id
	`

	rows, err := r.db.Query(ctx, query, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to get attempts: %w", err)
	}
	defer rows.Close()

	return collectAttempts(rows)
}

// CancelTripExhausted cancels a still-unassigned DISPATCHING trip and any
// pending offers in one transaction. Returns the cancelled trip.
func (r *Repository) CancelTripExhausted(ctx context.Context, tripID int64) (*models.Trip, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	cancelTrip := `
		UPDATE trips
		SET status = 'CANCELLED', cancelled_at = NOW()
		WHERE trip_id = $1 AND status = 'DISPATCHING' AND driver_id IS NULL
		RETURNING ` + tripColumns

	trip, err := scanTrip(tx.QueryRow(ctx, cancelTrip, tripID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotAssignable
		}
		return nil, fmt.Errorf("failed to cancel exhausted trip: %w", err)
	}

	cancelOffers := `
		UPDATE dispatch_attempts
		SET response = 'CANCELLED', responded_at = NOW()
		WHERE trip_id = $1 AND response LIKE 'PENDING_WAVE_%'
	`
	if _, err := tx.Exec(ctx, cancelOffers, tripID); err != nil {
		return nil, fmt.Errorf("failed to cancel pending offers: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit cancellation: %w", err)
	}

	return trip, nil
}

// AcceptOffer runs the full acceptance race in one transaction: validate the
// driver's pending offer, claim the trip with a compare-and-set on the null
// driver_id, mark the shift BUSY and cancel the losing offers.
func (r *Repository) AcceptOffer(ctx context.Context, tripID, driverID int64, timeout time.Duration) (*AcceptResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the driver's attempt row first
	attemptQuery := `
		SELECT attempt_id, trip_id, driver_id, wave_number, sent_at, responded_at, response
		FROM dispatch_attempts
		WHERE trip_id = $1 AND driver_id = $2
		FOR UPDATE
	`
	attempt := &models.DispatchAttempt{}
	err = tx.QueryRow(ctx, attemptQuery, tripID, driverID).Scan(
		&attempt.AttemptID, &attempt.TripID, &attempt.DriverID, &attempt.WaveNumber,
		&attempt.SentAt, &attempt.RespondedAt, &attempt.Response,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrOfferNotFound
		}
		return nil, fmt.Errorf("failed to load attempt: %w", err)
	}
	if !attempt.Response.IsPending() {
		return nil, &RespondedError{AttemptID: attempt.AttemptID, Response: attempt.Response}
	}
	if time.Since(attempt.SentAt) > timeout {
		return nil, &ExpiredError{AttemptID: attempt.AttemptID}
	}

	// Claim the trip. The null driver_id check is the race arbiter.
	shiftQuery := `
		SELECT ds.shift_id, ds.tenant_id, ds.vehicle_id
		FROM driver_shifts ds
		WHERE ds.driver_id = $1 AND ds.ended_at IS NULL AND ds.status = 'ONLINE'
	`
	var shiftID, tenantID, vehicleID int64
	err = tx.QueryRow(ctx, shiftQuery, driverID).Scan(&shiftID, &tenantID, &vehicleID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrOfferNotFound
		}
		return nil, fmt.Errorf("failed to load shift: %w", err)
	}

	claim := `
		UPDATE trips
		SET driver_id = $2, vehicle_id = $3, tenant_id = $4,
		    status = 'ASSIGNED', assigned_at = NOW()
		WHERE trip_id = $1 AND status = 'DISPATCHING' AND driver_id IS NULL
		RETURNING ` + tripColumns

	trip, err := scanTrip(tx.QueryRow(ctx, claim, tripID, driverID, vehicleID, tenantID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotAssignable
		}
		return nil, fmt.Errorf("failed to claim trip: %w", err)
	}

	acceptAttempt := `
		UPDATE dispatch_attempts
		SET response = 'ACCEPTED', responded_at = NOW()
		WHERE attempt_id = $1
		RETURNING responded_at
	`
	if err := tx.QueryRow(ctx, acceptAttempt, attempt.AttemptID).Scan(&attempt.RespondedAt); err != nil {
		return nil, fmt.Errorf("failed to accept attempt: %w", err)
	}
	attempt.Response = models.AttemptAccepted

	busyShift := `UPDATE driver_shifts SET status = 'BUSY' WHERE shift_id = $1 AND status = 'ONLINE'`
	if _, err := tx.Exec(ctx, busyShift, shiftID); err != nil {
		return nil, fmt.Errorf("failed to mark shift busy: %w", err)
	}

	cancelOthers := `
		UPDATE dispatch_attempts
		SET response = 'CANCELLED', responded_at = NOW()
		WHERE trip_id = $1 AND driver_id <> $2 AND response LIKE 'PENDING_WAVE_%'
	`
	if _, err := tx.Exec(ctx, cancelOthers, tripID, driverID); err != nil {
		return nil, fmt.Errorf("failed to cancel losing offers: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit acceptance: %w", err)
	}

	return &AcceptResult{Trip: trip, Attempt: attempt}, nil
}

// RejectOffer records a driver's rejection. The trip is untouched.
func (r *Repository) RejectOffer(ctx context.Context, tripID, driverID int64) (*models.DispatchAttempt, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	attemptQuery := `
		SELECT attempt_id, trip_id, driver_id, wave_number, sent_at, responded_at, response
		FROM dispatch_attempts
		WHERE trip_id = $1 AND driver_id = $2
		FOR UPDATE
	`
	attempt := &models.DispatchAttempt{}
	err = tx.QueryRow(ctx, attemptQuery, tripID, driverID).Scan(
		&attempt.AttemptID, &attempt.TripID, &attempt.DriverID, &attempt.WaveNumber,
		&attempt.SentAt, &attempt.RespondedAt, &attempt.Response,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrOfferNotFound
		}
		return nil, fmt.Errorf("failed to load attempt: %w", err)
	}
	if !attempt.Response.IsPending() {
		return nil, &RespondedError{AttemptID: attempt.AttemptID, Response: attempt.Response}
	}

	reject := `
		UPDATE dispatch_attempts
		SET response = 'REJECTED', responded_at = NOW()
		WHERE attempt_id = $1
		RETURNING responded_at
	`
	if err := tx.QueryRow(ctx, reject, attempt.AttemptID).Scan(&attempt.RespondedAt); err != nil {
		return nil, fmt.Errorf("failed to reject attempt: %w", err)
	}
	attempt.Response = models.AttemptRejected

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit rejection: %w", err)
	}

	return attempt, nil
}

// PendingOffersForDriver retrieves the driver's live offers joined with trip
// and rider details, newest wave first.
func (r *Repository) PendingOffersForDriver(ctx context.Context, driverID int64, timeout time.Duration) ([]*OfferRow, error) {
	query := `
		SELECT da.attempt_id, da.trip_id, da.driver_id, da.wave_number, da.sent_at,
		       da.responded_at, da.response,
		       u.full_name,
		       t.trip_id, t.rider_id, t.city_id, t.vehicle_category,
		       t.pickup_lat, t.pickup_lng, t.drop_lat, t.drop_lng,
		       t.status, t.fare_amount, t.requested_at
		FROM dispatch_attempts da
		JOIN trips t ON t.trip_id = da.trip_id
		JOIN users u ON u.user_id = t.rider_id
		WHERE da.driver_id = $1
		  AND da.response LIKE 'PENDING_WAVE_%'
		  AND da.sent_at > NOW() - $2::interval
		  AND t.status = 'DISPATCHING'
		ORDER BY da.sent_at DESC
	`

	rows, err := r.db.Query(ctx, query, driverID, timeout.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get pending offers: %w", err)
	}
	defer rows.Close()

	offers := make([]*OfferRow, 0)
	for rows.Next() {
		row := &OfferRow{}
		err := rows.Scan(
			&row.Attempt.AttemptID, &row.Attempt.TripID, &row.Attempt.DriverID,
			&row.Attempt.WaveNumber, &row.Attempt.SentAt, &row.Attempt.RespondedAt,
			&row.Attempt.Response,
			&row.RiderFullName,
			&row.Trip.TripID, &row.Trip.RiderID, &row.Trip.CityID, &row.Trip.VehicleCategory,
			&row.Trip.PickupLat, &row.Trip.PickupLng, &row.Trip.DropLat, &row.Trip.DropLng,
			&row.Trip.Status, &row.Trip.FareAmount, &row.Trip.RequestedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan offer: %w", err)
		}
		offers = append(offers, row)
	}

	return offers, nil
}
