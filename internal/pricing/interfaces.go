package pricing

import (
	"context"

	"github.com/swiftride/dispatch-core/pkg/models"
)

// RepositoryInterface defines data access for fare configs
type RepositoryInterface interface {
	GetFareConfig(ctx context.Context, cityID int64, category string) (*models.FareConfig, error)
	ListFareConfigsByCity(ctx context.Context, cityID int64) ([]*models.FareConfig, error)
}

// CityResolver is the slice of the cities service the calculator depends on
type CityResolver interface {
	ValidateTripLocations(ctx context.Context, pickupLat, pickupLng, dropLat, dropLng float64) (*models.City, error)
	ActiveSurge(ctx context.Context, cityID int64, lat, lng float64) (float64, *int64, error)
}

// ServiceInterface defines fare operations
type ServiceInterface interface {
	EstimateFare(ctx context.Context, req *EstimateFareRequest) (*models.FareBreakdown, error)
	Quote(ctx context.Context, cityID int64, category string, pickupLat, pickupLng, dropLat, dropLng float64) (*models.FareBreakdown, error)
	ListFareConfigsByCity(ctx context.Context, cityID int64) ([]*models.FareConfig, error)
}

// EstimateFareRequest is the payload for fare estimation
type EstimateFareRequest struct {
	VehicleCategory string  `json:"vehicle_category" binding:"required,vehicle_category"`
	PickupLat       float64 `json:"pickup_lat" binding:"required,latitude"`
	PickupLng       float64 `json:"pickup_lng" binding:"required,longitude"`
	DropLat         float64 `json:"drop_lat" binding:"required,latitude"`
	DropLng         float64 `json:"drop_lng" binding:"required,longitude"`
}
