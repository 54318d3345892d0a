package cities

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/swiftride/dispatch-core/pkg/common"
	"github.com/swiftride/dispatch-core/pkg/geo"
	"github.com/swiftride/dispatch-core/pkg/logger"
	"github.com/swiftride/dispatch-core/pkg/models"
)

// Service handles city resolution and surge lookup
type Service struct {
	repo RepositoryInterface
	now  func() time.Time
}

// NewService creates a new cities service
func NewService(repo RepositoryInterface) *Service {
	return &Service{repo: repo, now: time.Now}
}

// ResolveCity finds the active city whose boundary contains the point. When
// boundaries overlap the city with the lowest city_id wins. Returns nil when
// no city contains the point.
func (s *Service) ResolveCity(ctx context.Context, lat, lng float64) (*models.City, error) {
	cities, err := s.repo.ListActiveCities(ctx)
	if err != nil {
		return nil, err
	}

	for _, city := range cities {
		if len(city.Boundary) == 0 {
			continue
		}
		ring, err := geo.ParsePolygon(city.Boundary)
		if err != nil {
			logger.Warn("skipping city with malformed boundary",
				zap.Int64("city_id", city.CityID),
				zap.Error(err),
			)
			continue
		}
		if geo.PointInPolygon(lat, lng, ring) {
			return city, nil
		}
	}

	return nil, nil
}

// ValidateTripLocations checks that both endpoints fall inside one active
// city and returns that city.
func (s *Service) ValidateTripLocations(ctx context.Context, pickupLat, pickupLng, dropLat, dropLng float64) (*models.City, error) {
	pickupCity, err := s.ResolveCity(ctx, pickupLat, pickupLng)
	if err != nil {
		return nil, err
	}
	if pickupCity == nil {
		return nil, common.NewOutOfServiceError("pickup")
	}

	dropCity, err := s.ResolveCity(ctx, dropLat, dropLng)
	if err != nil {
		return nil, err
	}
	if dropCity == nil {
		return nil, common.NewOutOfServiceError("drop")
	}

	if pickupCity.CityID != dropCity.CityID {
		return nil, common.NewCrossCityError()
	}

	return pickupCity, nil
}

// ActiveSurge returns the surge multiplier in effect at the point and the
// zone that produced it. The window is inclusive on both ends. Returns 1.0
// and nil when no zone applies. When zones overlap the highest multiplier
// wins.
func (s *Service) ActiveSurge(ctx context.Context, cityID int64, lat, lng float64) (float64, *int64, error) {
	zones, err := s.repo.ListActiveSurgeZones(ctx, cityID)
	if err != nil {
		return 0, nil, err
	}

	now := s.now()

	multiplier := 1.0
	var zoneID *int64

	for _, zone := range zones {
		if now.Before(zone.StartsAt) || now.After(zone.EndsAt) {
			continue
		}

		ring, err := geo.ParsePolygon(zone.Polygon)
		if err != nil {
			logger.Warn("skipping surge zone with malformed polygon",
				zap.Int64("surge_zone_id", zone.SurgeZoneID),
				zap.Error(err),
			)
			continue
		}
		if !geo.PointInPolygon(lat, lng, ring) {
			continue
		}

		if zone.Multiplier > multiplier {
			multiplier = zone.Multiplier
			id := zone.SurgeZoneID
			zoneID = &id
		}
	}

	return multiplier, zoneID, nil
}

// ListActiveCities returns all active cities
func (s *Service) ListActiveCities(ctx context.Context) ([]*models.City, error) {
	return s.repo.ListActiveCities(ctx)
}
