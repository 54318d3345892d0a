package pricing

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/swiftride/dispatch-core/pkg/models"
)

// Repository handles database operations for fare configs
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new pricing repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetFareConfig retrieves the fare config for a city and vehicle category.
// Returns nil when no config exists.
func (r *Repository) GetFareConfig(ctx context.Context, cityID int64, category string) (*models.FareConfig, error) {
	query := `
		SELECT fare_config_id, city_id, vehicle_category, base_fare, per_km,
		       per_minute, minimum_fare, created_at
		FROM fare_configs
		WHERE city_id = $1 AND vehicle_category = $2
	`

	fc := &models.FareConfig{}
	err := r.db.QueryRow(ctx, query, cityID, category).Scan(
		&fc.FareConfigID, &fc.CityID, &fc.VehicleCategory, &fc.BaseFare,
		&fc.PerKm, &fc.PerMinute, &fc.MinimumFare, &fc.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get fare config: %w", err)
	}

	return fc, nil
}

// ListFareConfigsByCity retrieves all fare configs for a city
func (r *Repository) ListFareConfigsByCity(ctx context.Context, cityID int64) ([]*models.FareConfig, error) {
	query := `
		SELECT fare_config_id, city_id, vehicle_category, base_fare, per_km,
		       per_minute, minimum_fare, created_at
		FROM fare_configs
		WHERE city_id = $1
		ORDER BY vehicle_category
	`

	rows, err := r.db.Query(ctx, query, cityID)
	if err != nil {
		return nil, fmt.Errorf("failed to get fare configs: %w", err)
	}
	defer rows.Close()

	configs := make([]*models.FareConfig, 0)
	for rows.Next() {
		fc := &models.FareConfig{}
		err := rows.Scan(
			&fc.FareConfigID, &fc.CityID, &fc.VehicleCategory, &fc.BaseFare,
			&fc.PerKm, &fc.PerMinute, &fc.MinimumFare, &fc.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fare config: %w", err)
		}
		configs = append(configs, fc)
	}

	return configs, nil
}
