package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/swiftride/dispatch-core/pkg/common"
	"github.com/swiftride/dispatch-core/pkg/models"
)

// MockRepository is an in-package mock for testing
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetFareConfig(ctx context.Context, cityID int64, category string) (*models.FareConfig, error) {
	args := m.Called(ctx, cityID, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FareConfig), args.Error(1)
}

func (m *MockRepository) ListFareConfigsByCity(ctx context.Context, cityID int64) ([]*models.FareConfig, error) {
	args := m.Called(ctx, cityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.FareConfig), args.Error(1)
}

// MockCityResolver mocks the cities service slice used by pricing
type MockCityResolver struct {
	mock.Mock
}

func (m *MockCityResolver) ValidateTripLocations(ctx context.Context, pickupLat, pickupLng, dropLat, dropLng float64) (*models.City, error) {
	args := m.Called(ctx, pickupLat, pickupLng, dropLat, dropLng)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.City), args.Error(1)
}

func (m *MockCityResolver) ActiveSurge(ctx context.Context, cityID int64, lat, lng float64) (float64, *int64, error) {
	args := m.Called(ctx, cityID, lat, lng)
	var zoneID *int64
	if args.Get(1) != nil {
		zoneID = args.Get(1).(*int64)
	}
	return args.Get(0).(float64), zoneID, args.Error(2)
}

const testAvgSpeedKmh = 25.0

func standardConfig() *models.FareConfig {
	return &models.FareConfig{
		FareConfigID:    1,
		CityID:          1,
		VehicleCategory: "SEDAN",
		BaseFare:        50,
		PerKm:           10,
		PerMinute:       1,
		MinimumFare:     60,
	}
}

// ---------------------------------------------------------------------------
// Quote
// ---------------------------------------------------------------------------

func TestQuote_SurgeApplied(t *testing.T) {
	repo := new(MockRepository)
	resolver := new(MockCityResolver)
	svc := NewService(repo, resolver, testAvgSpeedKmh)

	repo.On("GetFareConfig", mock.Anything, int64(1), "SEDAN").Return(standardConfig(), nil)
	zoneID := int64(9)
	resolver.On("ActiveSurge", mock.Anything, int64(1), mock.Anything, mock.Anything).Return(1.8, &zoneID, nil)

	// Roughly 5 km due north of the pickup. One degree of latitude is
	// 111.19 km, so 0.044966 degrees is 5.00 km after rounding.
	breakdown, err := svc.Quote(context.Background(), 1, "SEDAN", 12.0, 77.0, 12.044966, 77.0)
	require.NoError(t, err)

	assert.InDelta(t, 5.0, breakdown.DistanceKm, 0.01)
	assert.InDelta(t, 12.0, breakdown.EstMinutes, 0.05)
	assert.Equal(t, 50.0, breakdown.BaseFare)
	assert.InDelta(t, 50.0, breakdown.DistanceFare, 0.1)
	assert.InDelta(t, 12.0, breakdown.TimeFare, 0.05)
	assert.InDelta(t, 112.0, breakdown.Subtotal, 0.15)
	assert.Equal(t, 1.8, breakdown.SurgeMultiplier)
	require.NotNil(t, breakdown.SurgeZoneID)
	assert.Equal(t, int64(9), *breakdown.SurgeZoneID)
	assert.InDelta(t, 201.60, breakdown.FinalFare, 0.3)
}

func TestQuote_MinimumFareFloor(t *testing.T) {
	repo := new(MockRepository)
	resolver := new(MockCityResolver)
	svc := NewService(repo, resolver, testAvgSpeedKmh)

	config := standardConfig()
	config.BaseFare = 5
	config.MinimumFare = 60
	repo.On("GetFareConfig", mock.Anything, int64(1), "SEDAN").Return(config, nil)
	resolver.On("ActiveSurge", mock.Anything, int64(1), mock.Anything, mock.Anything).Return(1.0, nil, nil)

	// Very short hop, subtotal well under the minimum
	breakdown, err := svc.Quote(context.Background(), 1, "SEDAN", 12.0, 77.0, 12.0001, 77.0)
	require.NoError(t, err)

	assert.Less(t, breakdown.Subtotal, breakdown.MinimumFare)
	assert.Equal(t, 60.0, breakdown.FinalFare)
}

func TestQuote_NoSurge(t *testing.T) {
	repo := new(MockRepository)
	resolver := new(MockCityResolver)
	svc := NewService(repo, resolver, testAvgSpeedKmh)

	repo.On("GetFareConfig", mock.Anything, int64(1), "SEDAN").Return(standardConfig(), nil)
	resolver.On("ActiveSurge", mock.Anything, int64(1), mock.Anything, mock.Anything).Return(1.0, nil, nil)

	breakdown, err := svc.Quote(context.Background(), 1, "SEDAN", 12.0, 77.0, 12.044966, 77.0)
	require.NoError(t, err)

	assert.Equal(t, 1.0, breakdown.SurgeMultiplier)
	assert.Nil(t, breakdown.SurgeZoneID)
	assert.InDelta(t, 112.0, breakdown.FinalFare, 0.15)
}

func TestQuote_ConfigMissing(t *testing.T) {
	repo := new(MockRepository)
	resolver := new(MockCityResolver)
	svc := NewService(repo, resolver, testAvgSpeedKmh)

	repo.On("GetFareConfig", mock.Anything, int64(1), "AUTO").Return(nil, nil)

	_, err := svc.Quote(context.Background(), 1, "AUTO", 12.0, 77.0, 12.05, 77.0)
	require.Error(t, err)

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, common.CodeConfigMissing, appErr.ErrorCode)
}

func TestQuote_RepositoryError(t *testing.T) {
	repo := new(MockRepository)
	resolver := new(MockCityResolver)
	svc := NewService(repo, resolver, testAvgSpeedKmh)

	repo.On("GetFareConfig", mock.Anything, int64(1), "SEDAN").Return(nil, errors.New("db down"))

	_, err := svc.Quote(context.Background(), 1, "SEDAN", 12.0, 77.0, 12.05, 77.0)
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// EstimateFare
// ---------------------------------------------------------------------------

func TestEstimateFare_ValidationFailurePropagates(t *testing.T) {
	repo := new(MockRepository)
	resolver := new(MockCityResolver)
	svc := NewService(repo, resolver, testAvgSpeedKmh)

	resolver.On("ValidateTripLocations", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, common.NewCrossCityError())

	_, err := svc.EstimateFare(context.Background(), &EstimateFareRequest{
		VehicleCategory: "SEDAN",
		PickupLat:       12, PickupLng: 77,
		DropLat: 35, DropLng: 77,
	})
	require.Error(t, err)

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, common.CodeCrossCity, appErr.ErrorCode)
	repo.AssertNotCalled(t, "GetFareConfig")
}

func TestEstimateFare_NormalizesCategory(t *testing.T) {
	repo := new(MockRepository)
	resolver := new(MockCityResolver)
	svc := NewService(repo, resolver, testAvgSpeedKmh)

	resolver.On("ValidateTripLocations", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&models.City{CityID: 1}, nil)
	repo.On("GetFareConfig", mock.Anything, int64(1), "SEDAN").Return(standardConfig(), nil)
	resolver.On("ActiveSurge", mock.Anything, int64(1), mock.Anything, mock.Anything).Return(1.0, nil, nil)

	_, err := svc.EstimateFare(context.Background(), &EstimateFareRequest{
		VehicleCategory: "sedan",
		PickupLat:       12, PickupLng: 77,
		DropLat: 12.05, DropLng: 77,
	})
	require.NoError(t, err)
	repo.AssertCalled(t, "GetFareConfig", mock.Anything, int64(1), "SEDAN")
}
