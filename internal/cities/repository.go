package cities

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/swiftride/dispatch-core/pkg/models"
)

// Repository handles database operations for cities and surge zones
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new cities repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ListActiveCities retrieves all active cities ordered by city_id. Resolution
// iterates in this order, so the ordering is part of the contract.
func (r *Repository) ListActiveCities(ctx context.Context) ([]*models.City, error) {
	query := `
		SELECT city_id, name, boundary, is_active
		FROM cities
		WHERE is_active = true
		ORDER BY city_id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get cities: %w", err)
	}
	defer rows.Close()

	cities := make([]*models.City, 0)
	for rows.Next() {
		c := &models.City{}
		if err := rows.Scan(&c.CityID, &c.Name, &c.Boundary, &c.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan city: %w", err)
		}
		cities = append(cities, c)
	}

	return cities, nil
}

// GetCityByID retrieves a city by its ID. Returns nil when no such city exists.
func (r *Repository) GetCityByID(ctx context.Context, cityID int64) (*models.City, error) {
	query := `
		SELECT city_id, name, boundary, is_active
		FROM cities
		WHERE city_id = $1
	`

	c := &models.City{}
	err := r.db.QueryRow(ctx, query, cityID).Scan(&c.CityID, &c.Name, &c.Boundary, &c.IsActive)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get city: %w", err)
	}

	return c, nil
}

// ListActiveSurgeZones retrieves all active surge zones for a city
func (r *Repository) ListActiveSurgeZones(ctx context.Context, cityID int64) ([]*models.SurgeZone, error) {
	query := `
		SELECT surge_zone_id, city_id, name, polygon, multiplier,
		       starts_at, ends_at, is_active
		FROM surge_zones
		WHERE city_id = $1 AND is_active = true
		ORDER BY surge_zone_id
	`

	rows, err := r.db.Query(ctx, query, cityID)
	if err != nil {
		return nil, fmt.Errorf("failed to get surge zones: %w", err)
	}
	defer rows.Close()

	zones := make([]*models.SurgeZone, 0)
	for rows.Next() {
		z := &models.SurgeZone{}
		err := rows.Scan(
			&z.SurgeZoneID, &z.CityID, &z.Name, &z.Polygon, &z.Multiplier,
			&z.StartsAt, &z.EndsAt, &z.IsActive,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan surge zone: %w", err)
		}
		zones = append(zones, z)
	}

	return zones, nil
}
