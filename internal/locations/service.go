package locations

import (
	"context"

	"go.uber.org/zap"

	"github.com/swiftride/dispatch-core/pkg/common"
	"github.com/swiftride/dispatch-core/pkg/logger"
	"github.com/swiftride/dispatch-core/pkg/models"
	"github.com/swiftride/dispatch-core/pkg/validation"
)

// Service handles driver location ingestion. The durable row and history are
// the source of truth; the Redis geo index is refreshed best effort.
type Service struct {
	repo     RepositoryInterface
	shifts   ShiftSource
	geoIndex GeoIndex
}

// NewService creates a new locations service. geoIndex may be nil.
func NewService(repo RepositoryInterface, shifts ShiftSource, geoIndex GeoIndex) *Service {
	return &Service{repo: repo, shifts: shifts, geoIndex: geoIndex}
}

// UpdateLocation records a driver ping. Only drivers with an open shift may
// report locations.
func (s *Service) UpdateLocation(ctx context.Context, driverID int64, lat, lng float64) (*models.DriverLocation, error) {
	if err := validation.ValidateCoordinates(lat, lng); err != nil {
		return nil, common.NewValidationError(err.Error())
	}

	shift, err := s.shifts.GetOpenShift(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if shift == nil {
		return nil, common.NewPreconditionError(common.CodeNoActiveShift, "driver has no open shift")
	}

	loc, err := s.repo.SaveLocation(ctx, driverID, lat, lng)
	if err != nil {
		return nil, err
	}

	if s.geoIndex != nil {
		if err := s.geoIndex.UpsertDriver(ctx, driverID, lat, lng); err != nil {
			logger.WarnContext(ctx, "failed to refresh driver geo index",
				zap.Int64("driver_id", driverID),
				zap.Error(err),
			)
		}
	}

	return loc, nil
}

// GetLocation returns the driver's last-known position
func (s *Service) GetLocation(ctx context.Context, driverID int64) (*models.DriverLocation, error) {
	loc, err := s.repo.GetLocation(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, common.NewNotFoundError("location", driverID)
	}
	return loc, nil
}
