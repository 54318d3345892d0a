package locations

import (
	"context"
	"errors"
	"testing"
	"time"

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

func (m *MockRepository) SaveLocation(ctx context.Context, driverID int64, lat, lng float64) (*models.DriverLocation, error) {
	args := m.Called(ctx, driverID, lat, lng)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DriverLocation), args.Error(1)
}

func (m *MockRepository) GetLocation(ctx context.Context, driverID int64) (*models.DriverLocation, error) {
	args := m.Called(ctx, driverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DriverLocation), args.Error(1)
}

// MockShiftSource mocks the shifts lookup
type MockShiftSource struct {
	mock.Mock
}

func (m *MockShiftSource) GetOpenShift(ctx context.Context, driverID int64) (*models.DriverShift, error) {
	args := m.Called(ctx, driverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DriverShift), args.Error(1)
}

// MockGeoIndex mocks the geo index refresh
type MockGeoIndex struct {
	mock.Mock
}

func (m *MockGeoIndex) UpsertDriver(ctx context.Context, driverID int64, lat, lng float64) error {
	args := m.Called(ctx, driverID, lat, lng)
	return args.Error(0)
}

func TestUpdateLocation_Success(t *testing.T) {
	repo := new(MockRepository)
	shiftSource := new(MockShiftSource)
	geoIdx := new(MockGeoIndex)
	svc := NewService(repo, shiftSource, geoIdx)

	shiftSource.On("GetOpenShift", mock.Anything, int64(42)).Return(&models.DriverShift{
		ShiftID: 1, DriverID: 42, Status: models.ShiftStatusOnline,
	}, nil)
	saved := &models.DriverLocation{DriverID: 42, Latitude: 12.97, Longitude: 77.59, LastUpdated: time.Now()}
	repo.On("SaveLocation", mock.Anything, int64(42), 12.97, 77.59).Return(saved, nil)
	geoIdx.On("UpsertDriver", mock.Anything, int64(42), 12.97, 77.59).Return(nil)

	loc, err := svc.UpdateLocation(context.Background(), 42, 12.97, 77.59)
	require.NoError(t, err)
	assert.Equal(t, saved, loc)
	geoIdx.AssertCalled(t, "UpsertDriver", mock.Anything, int64(42), 12.97, 77.59)
}

func TestUpdateLocation_NoOpenShift(t *testing.T) {
	repo := new(MockRepository)
	shiftSource := new(MockShiftSource)
	svc := NewService(repo, shiftSource, nil)

	shiftSource.On("GetOpenShift", mock.Anything, int64(42)).Return(nil, nil)

	_, err := svc.UpdateLocation(context.Background(), 42, 12.97, 77.59)
	require.Error(t, err)

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, common.CodeNoActiveShift, appErr.ErrorCode)
	repo.AssertNotCalled(t, "SaveLocation")
}

func TestUpdateLocation_InvalidCoordinates(t *testing.T) {
	repo := new(MockRepository)
	shiftSource := new(MockShiftSource)
	svc := NewService(repo, shiftSource, nil)

	_, err := svc.UpdateLocation(context.Background(), 42, 95.0, 77.59)
	require.Error(t, err)

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, common.CodeValidation, appErr.ErrorCode)
	shiftSource.AssertNotCalled(t, "GetOpenShift")
}

func TestUpdateLocation_GeoIndexFailureIsNotFatal(t *testing.T) {
	repo := new(MockRepository)
	shiftSource := new(MockShiftSource)
	geoIdx := new(MockGeoIndex)
	svc := NewService(repo, shiftSource, geoIdx)

	shiftSource.On("GetOpenShift", mock.Anything, int64(42)).Return(&models.DriverShift{
		ShiftID: 1, DriverID: 42, Status: models.ShiftStatusOnline,
	}, nil)
	saved := &models.DriverLocation{DriverID: 42, Latitude: 12.97, Longitude: 77.59}
	repo.On("SaveLocation", mock.Anything, int64(42), 12.97, 77.59).Return(saved, nil)
	geoIdx.On("UpsertDriver", mock.Anything, int64(42), 12.97, 77.59).Return(errors.New("redis down"))

	loc, err := svc.UpdateLocation(context.Background(), 42, 12.97, 77.59)
	require.NoError(t, err)
	assert.Equal(t, saved, loc)
}

func TestGetLocation_NotFound(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, new(MockShiftSource), nil)

	repo.On("GetLocation", mock.Anything, int64(42)).Return(nil, nil)

	_, err := svc.GetLocation(context.Background(), 42)
	require.Error(t, err)

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, common.CodeNotFound, appErr.ErrorCode)
}
