package trips

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/swiftride/dispatch-core/pkg/database"
	"github.com/swiftride/dispatch-core/pkg/models"
)

// ErrActiveTrip is returned when the one-active-trip guard fires on insert
var ErrActiveTrip = errors.New("rider already has an active trip")

// Repository handles database operations for trips
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new trips repository
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

// GetUser retrieves a user. Returns nil when absent.
func (r *Repository) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	query := `
		SELECT user_id, full_name, phone, role, status, created_at
		FROM users
		WHERE user_id = $1
	`

	u := &models.User{}
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&u.UserID, &u.FullName, &u.Phone, &u.Role, &u.Status, &u.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return u, nil
}

// ActiveTripID returns the id of the rider's active trip, nil when none
func (r *Repository) ActiveTripID(ctx context.Context, riderID int64) (*int64, error) {
	query := `
		SELECT trip_id
		FROM trips
		WHERE rider_id = $1
		  AND status IN ('REQUESTED', 'DISPATCHING', 'ASSIGNED', 'ARRIVED', 'PICKED_UP')
	`

	var tripID int64
	err := r.db.QueryRow(ctx, query, riderID).Scan(&tripID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check active trip: %w", err)
	}

	return &tripID, nil
}

// CreateTrip inserts a REQUESTED trip with its locked fare. The partial
// unique index on active rider trips arbitrates concurrent creation; a
// violation surfaces as ErrActiveTrip.
func (r *Repository) CreateTrip(ctx context.Context, trip *models.Trip) (*models.Trip, error) {
	query := `
		INSERT INTO trips (
			rider_id, city_id, surge_zone_id, vehicle_category,
			pickup_lat, pickup_lng, drop_lat, drop_lng, status, fare_amount
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'REQUESTED', $9)
		RETURNING ` + tripColumns

	created, err := scanTrip(r.db.QueryRow(ctx, query,
		trip.RiderID, trip.CityID, trip.SurgeZoneID, trip.VehicleCategory,
		trip.PickupLat, trip.PickupLng, trip.DropLat, trip.DropLng, trip.FareAmount,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrActiveTrip
		}
		return nil, fmt.Errorf("failed to create trip: %w", err)
	}

	return created, nil
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

// CancelTrip cancels a trip still in a cancellable state and terminates any
// pending offers in one transaction. Returns nil when the trip had already
// left the cancellable states.
func (r *Repository) CancelTrip(ctx context.Context, tripID int64) (*models.Trip, error) {
	var trip *models.Trip
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		cancel := `
			UPDATE trips
			SET status = 'CANCELLED', cancelled_at = NOW()
			WHERE trip_id = $1
			  AND status IN ('REQUESTED', 'DISPATCHING', 'ASSIGNED', 'ARRIVED')
			RETURNING ` + tripColumns

		t, err := scanTrip(tx.QueryRow(ctx, cancel, tripID))
		if err != nil {
			if err == pgx.ErrNoRows {
				return nil
			}
			return fmt.Errorf("failed to cancel trip: %w", err)
		}
		trip = t

		cancelOffers := `
			UPDATE dispatch_attempts
			SET response = 'CANCELLED', responded_at = NOW()
			WHERE trip_id = $1 AND response LIKE 'PENDING_WAVE_%'
		`
		if _, err := tx.Exec(ctx, cancelOffers, tripID); err != nil {
			return fmt.Errorf("failed to cancel pending offers: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trip, nil
}

// MarkArrived transitions ASSIGNED -> ARRIVED. Returns nil when the trip was
// not in ASSIGNED.
func (r *Repository) MarkArrived(ctx context.Context, tripID int64) (*models.Trip, error) {
	query := `
		UPDATE trips
		SET status = 'ARRIVED', arrived_at = NOW()
		WHERE trip_id = $1 AND status = 'ASSIGNED'
		RETURNING ` + tripColumns

	trip, err := scanTrip(r.db.QueryRow(ctx, query, tripID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to mark trip arrived: %w", err)
	}

	return trip, nil
}

// SetPickupOTP stores a fresh OTP, resetting the attempt counter and any
// prior verification.
func (r *Repository) SetPickupOTP(ctx context.Context, tripID int64, otp string, expiresAt time.Time) error {
	query := `
		UPDATE trips
		SET pickup_otp = $2, otp_expires_at = $3, otp_attempts = 0, otp_verified_at = NULL
		WHERE trip_id = $1
	`

	if _, err := r.db.Exec(ctx, query, tripID, otp, expiresAt); err != nil {
		return fmt.Errorf("failed to set pickup otp: %w", err)
	}

	return nil
}

// IncrementOTPAttempts bumps the attempt counter and returns the new value
func (r *Repository) IncrementOTPAttempts(ctx context.Context, tripID int64) (int, error) {
	query := `
		UPDATE trips
		SET otp_attempts = otp_attempts + 1
		WHERE trip_id = $1
		RETURNING otp_attempts
	`

	var attempts int
	if err := r.db.QueryRow(ctx, query, tripID).Scan(&attempts); err != nil {
		return 0, fmt.Errorf("failed to increment otp attempts: %w", err)
	}

	return attempts, nil
}

// MarkOTPVerified stamps the current OTP as verified
func (r *Repository) MarkOTPVerified(ctx context.Context, tripID int64) error {
	query := `UPDATE trips SET otp_verified_at = NOW() WHERE trip_id = $1`

	if _, err := r.db.Exec(ctx, query, tripID); err != nil {
		return fmt.Errorf("failed to mark otp verified: %w", err)
	}

	return nil
}

// MarkPickedUp transitions ARRIVED -> PICKED_UP, guarded on a verified OTP.
// Returns nil when the guard did not hold.
func (r *Repository) MarkPickedUp(ctx context.Context, tripID int64) (*models.Trip, error) {
	query := `
		UPDATE trips
		SET status = 'PICKED_UP', picked_up_at = NOW()
		WHERE trip_id = $1 AND status = 'ARRIVED' AND otp_verified_at IS NOT NULL
		RETURNING ` + tripColumns

	trip, err := scanTrip(r.db.QueryRow(ctx, query, tripID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to mark trip picked up: %w", err)
	}

	return trip, nil
}

// CompleteTrip transitions PICKED_UP -> COMPLETED. Returns nil when the trip
// was not in PICKED_UP.
func (r *Repository) CompleteTrip(ctx context.Context, tripID int64) (*models.Trip, error) {
	query := `
		UPDATE trips
		SET status = 'COMPLETED', completed_at = NOW()
		WHERE trip_id = $1 AND status = 'PICKED_UP'
		RETURNING ` + tripColumns

	trip, err := scanTrip(r.db.QueryRow(ctx, query, tripID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to complete trip: %w", err)
	}

	return trip, nil
}
