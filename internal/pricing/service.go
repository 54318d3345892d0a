package pricing

import (
	"context"
	"math"

	"github.com/swiftride/dispatch-core/pkg/common"
	"github.com/swiftride/dispatch-core/pkg/geo"
	"github.com/swiftride/dispatch-core/pkg/models"
	"github.com/swiftride/dispatch-core/pkg/validation"
)

// Service computes fares from per-city fare configs and surge zones
type Service struct {
	repo        RepositoryInterface
	cities      CityResolver
	avgSpeedKmh float64
}

// NewService creates a new pricing service. avgSpeedKmh converts distance to
// an estimated trip duration for the time component.
func NewService(repo RepositoryInterface, cities CityResolver, avgSpeedKmh float64) *Service {
	return &Service{repo: repo, cities: cities, avgSpeedKmh: avgSpeedKmh}
}

// roundCents rounds a currency amount to two decimal places
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// EstimateFare validates the endpoints and returns the full fare breakdown.
// The estimate uses the surge in effect right now; the fare actually charged
// is the one locked at trip creation.
func (s *Service) EstimateFare(ctx context.Context, req *EstimateFareRequest) (*models.FareBreakdown, error) {
	city, err := s.cities.ValidateTripLocations(ctx, req.PickupLat, req.PickupLng, req.DropLat, req.DropLng)
	if err != nil {
		return nil, err
	}

	category := validation.NormalizeVehicleCategory(req.VehicleCategory)
	return s.Quote(ctx, city.CityID, category, req.PickupLat, req.PickupLng, req.DropLat, req.DropLng)
}

// Quote computes the fare for pre-validated endpoints inside cityID. Surge is
// sampled at the pickup point only.
func (s *Service) Quote(ctx context.Context, cityID int64, category string, pickupLat, pickupLng, dropLat, dropLng float64) (*models.FareBreakdown, error) {
	config, err := s.repo.GetFareConfig(ctx, cityID, category)
	if err != nil {
		return nil, err
	}
	if config == nil {
		return nil, common.NewConfigMissingError(cityID, category)
	}

	multiplier, surgeZoneID, err := s.cities.ActiveSurge(ctx, cityID, pickupLat, pickupLng)
	if err != nil {
		return nil, err
	}

	distanceKm := geo.Haversine(pickupLat, pickupLng, dropLat, dropLng)
	estMinutes := distanceKm / s.avgSpeedKmh * 60

	baseFare := config.BaseFare
	distanceFare := config.PerKm * distanceKm
	timeFare := config.PerMinute * estMinutes
	subtotal := baseFare + distanceFare + timeFare

	final := subtotal * multiplier
	if final < config.MinimumFare {
		final = config.MinimumFare
	}

	return &models.FareBreakdown{
		DistanceKm:      roundCents(distanceKm),
		EstMinutes:      roundCents(estMinutes),
		BaseFare:        roundCents(baseFare),
		DistanceFare:    roundCents(distanceFare),
		TimeFare:        roundCents(timeFare),
		Subtotal:        roundCents(subtotal),
		SurgeMultiplier: multiplier,
		SurgeZoneID:     surgeZoneID,
		MinimumFare:     config.MinimumFare,
		FinalFare:       roundCents(final),
	}, nil
}

// ListFareConfigsByCity returns all fare configs for a city
func (s *Service) ListFareConfigsByCity(ctx context.Context, cityID int64) ([]*models.FareConfig, error) {
	return s.repo.ListFareConfigsByCity(ctx, cityID)
}
