package shifts

import (
	"context"

	"github.com/swiftride/dispatch-core/pkg/models"
)

// RepositoryInterface defines data access for shifts and driver readiness.
// Lookups of optional rows return nil rather than an error when absent.
type RepositoryInterface interface {
	GetDriverProfile(ctx context.Context, driverID int64) (*models.DriverProfile, error)
	GetOpenFleetLink(ctx context.Context, driverID int64) (*FleetLink, error)
	GetOpenAssignment(ctx context.Context, driverID int64) (*AssignmentInfo, error)
	ListVehicleDocTypes(ctx context.Context, vehicleID int64) ([]string, error)
	GetOpenShift(ctx context.Context, driverID int64) (*models.DriverShift, error)
	CreateShift(ctx context.Context, driverID, tenantID, vehicleID int64) (*models.DriverShift, error)
	CloseShift(ctx context.Context, shiftID int64) error
	UpdateShiftStatus(ctx context.Context, shiftID int64, from, to models.ShiftStatus) (bool, error)
	EndAssignment(ctx context.Context, assignmentID int64) error
}

// ServiceInterface defines shift lifecycle operations
type ServiceInterface interface {
	StartShift(ctx context.Context, driverID int64) (*models.DriverShift, error)
	EndShift(ctx context.Context, driverID int64) error
	GetShift(ctx context.Context, driverID int64) (*models.DriverShift, error)
	Readiness(ctx context.Context, driverID int64) (*ReadinessChecklist, error)
	EndAssignment(ctx context.Context, driverID int64) error
	MarkBusy(ctx context.Context, driverID int64) error
	MarkOnline(ctx context.Context, driverID int64) error
}
