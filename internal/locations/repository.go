package locations

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/swiftride/dispatch-core/pkg/models"
)

// Repository handles database operations for driver locations
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new locations repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// SaveLocation upserts the last-known position and appends to the history
// trail in one transaction.
func (r *Repository) SaveLocation(ctx context.Context, driverID int64, lat, lng float64) (*models.DriverLocation, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	loc := &models.DriverLocation{}
	upsert := `
		INSERT INTO driver_locations (driver_id, latitude, longitude, last_updated)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (driver_id) DO UPDATE
		SET latitude = $2, longitude = $3, last_updated = NOW()
		RETURNING driver_id, latitude, longitude, last_updated
	`
	err = tx.QueryRow(ctx, upsert, driverID, lat, lng).Scan(
		&loc.DriverID, &loc.Latitude, &loc.Longitude, &loc.LastUpdated,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert location: %w", err)
	}

	history := `
		INSERT INTO driver_location_history (driver_id, latitude, longitude, recorded_at)
		VALUES ($1, $2, $3, NOW())
	`
	if _, err := tx.Exec(ctx, history, driverID, lat, lng); err != nil {
		return nil, fmt.Errorf("failed to append location history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit location: %w", err)
	}

	return loc, nil
}

// GetLocation retrieves the last-known position. Returns nil when the driver
// has never reported one.
func (r *Repository) GetLocation(ctx context.Context, driverID int64) (*models.DriverLocation, error) {
	query := `
		SELECT driver_id, latitude, longitude, last_updated
		FROM driver_locations
		WHERE driver_id = $1
	`

	loc := &models.DriverLocation{}
	err := r.db.QueryRow(ctx, query, driverID).Scan(
		&loc.DriverID, &loc.Latitude, &loc.Longitude, &loc.LastUpdated,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get location: %w", err)
	}

	return loc, nil
}
