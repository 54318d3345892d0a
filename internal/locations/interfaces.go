package locations

import (
	"context"

	"github.com/swiftride/dispatch-core/pkg/models"
)

// RepositoryInterface defines data access for driver locations
type RepositoryInterface interface {
	SaveLocation(ctx context.Context, driverID int64, lat, lng float64) (*models.DriverLocation, error)
	GetLocation(ctx context.Context, driverID int64) (*models.DriverLocation, error)
}

// ShiftSource is the slice of the shifts repository used for the online guard
type ShiftSource interface {
	GetOpenShift(ctx context.Context, driverID int64) (*models.DriverShift, error)
}

// GeoIndex is the slice of the live driver index updated on every ping
type GeoIndex interface {
	UpsertDriver(ctx context.Context, driverID int64, lat, lng float64) error
}

// ServiceInterface defines location operations
type ServiceInterface interface {
	UpdateLocation(ctx context.Context, driverID int64, lat, lng float64) (*models.DriverLocation, error)
	GetLocation(ctx context.Context, driverID int64) (*models.DriverLocation, error)
}
