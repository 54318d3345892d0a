package cities

import (
	"context"

	"github.com/swiftride/dispatch-core/pkg/models"
)

// RepositoryInterface defines data access for cities and surge zones
type RepositoryInterface interface {
	ListActiveCities(ctx context.Context) ([]*models.City, error)
	GetCityByID(ctx context.Context, cityID int64) (*models.City, error)
	ListActiveSurgeZones(ctx context.Context, cityID int64) ([]*models.SurgeZone, error)
}

// ServiceInterface defines city resolution operations used by other modules
type ServiceInterface interface {
	ResolveCity(ctx context.Context, lat, lng float64) (*models.City, error)
	ValidateTripLocations(ctx context.Context, pickupLat, pickupLng, dropLat, dropLng float64) (*models.City, error)
	ActiveSurge(ctx context.Context, cityID int64, lat, lng float64) (float64, *int64, error)
	ListActiveCities(ctx context.Context) ([]*models.City, error)
}
