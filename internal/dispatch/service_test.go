package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/swiftride/dispatch-core/internal/geoindex"
	"github.com/swiftride/dispatch-core/pkg/common"
	"github.com/swiftride/dispatch-core/pkg/models"
	"github.com/swiftride/dispatch-core/pkg/websocket"
)

// --------------------------------------------------------------------------
// Mocks
// --------------------------------------------------------------------------

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetTrip(ctx context.Context, tripID int64) (*models.Trip, error) {
	args := m.Called(ctx, tripID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Trip), args.Error(1)
}

func (m *MockRepository) MarkDispatching(ctx context.Context, tripID int64) (bool, error) {
	args := m.Called(ctx, tripID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) MaxWave(ctx context.Context, tripID int64) (int, error) {
	args := m.Called(ctx, tripID)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) CountPendingFresh(ctx context.Context, tripID int64, timeout time.Duration) (int, error) {
	args := m.Called(ctx, tripID, timeout)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) SweepExpired(ctx context.Context, tripID int64, timeout time.Duration) ([]*models.DispatchAttempt, error) {
	args := m.Called(ctx, tripID, timeout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DispatchAttempt), args.Error(1)
}

func (m *MockRepository) EligibleDrivers(ctx context.Context, trip *models.Trip, driverIDs []int64) (map[int64]bool, error) {
	args := m.Called(ctx, trip, driverIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]bool), args.Error(1)
}

func (m *MockRepository) FallbackCandidates(ctx context.Context, trip *models.Trip, locationTTL time.Duration) ([]FallbackCandidate, error) {
	args := m.Called(ctx, trip, locationTTL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]FallbackCandidate), args.Error(1)
}

func (m *MockRepository) CreateAttempts(ctx context.Context, tripID int64, wave int, driverIDs []int64) ([]*models.DispatchAttempt, error) {
	args := m.Called(ctx, tripID, wave, driverIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DispatchAttempt), args.Error(1)
}

func (m *MockRepository) GetAttemptsByTrip(ctx context.Context, tripID int64) ([]*models.DispatchAttempt, error) {
	args := m.Called(ctx, tripID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DispatchAttempt), args.Error(1)
}

func (m *MockRepository) CancelTripExhausted(ctx context.Context, tripID int64) (*models.Trip, error) {
	args := m.Called(ctx, tripID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Trip), args.Error(1)
}

func (m *MockRepository) AcceptOffer(ctx context.Context, tripID, driverID int64, timeout time.Duration) (*AcceptResult, error) {
	args := m.Called(ctx, tripID, driverID, timeout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*AcceptResult), args.Error(1)
}

func (m *MockRepository) RejectOffer(ctx context.Context, tripID, driverID int64) (*models.DispatchAttempt, error) {
	args := m.Called(ctx, tripID, driverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DispatchAttempt), args.Error(1)
}

func (m *MockRepository) PendingOffersForDriver(ctx context.Context, driverID int64, timeout time.Duration) ([]*OfferRow, error) {
	args := m.Called(ctx, driverID, timeout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*OfferRow), args.Error(1)
}

type MockGeoIndex struct {
	mock.Mock
}

func (m *MockGeoIndex) NearbyDrivers(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]geoindex.Candidate, error) {
	args := m.Called(ctx, lat, lng, radiusKm, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]geoindex.Candidate), args.Error(1)
}

// MockNotifier records pushed messages keyed by user
type MockNotifier struct {
	userMessages map[int64][]*websocket.Message
	tripMessages map[int64][]*websocket.Message
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{
		userMessages: make(map[int64][]*websocket.Message),
		tripMessages: make(map[int64][]*websocket.Message),
	}
}

func (m *MockNotifier) SendToUser(userID int64, msg *websocket.Message) {
	m.userMessages[userID] = append(m.userMessages[userID], msg)
}

func (m *MockNotifier) SendToTrip(tripID int64, msg *websocket.Message) {
	m.tripMessages[tripID] = append(m.tripMessages[tripID], msg)
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func testConfig() Config {
	return Config{
		BatchSize:         3,
		MaxWaves:          3,
		InitialRadiusKm:   3.0,
		RadiusIncrementKm: 2.0,
		MaxRadiusKm:       10.0,
		OfferTimeout:      15 * time.Second,
		LocationTTL:       5 * time.Minute,
	}
}

func requestedTrip() *models.Trip {
	return &models.Trip{
		TripID:          100,
		RiderID:         7,
		CityID:          1,
		VehicleCategory: "SEDAN",
		PickupLat:       28.6139,
		PickupLng:       77.2090,
		DropLat:         28.7041,
		DropLng:         77.1025,
		Status:          models.TripStatusRequested,
		FareAmount:      180.50,
		RequestedAt:     time.Now().UTC(),
	}
}

func dispatchingTrip() *models.Trip {
	trip := requestedTrip()
	trip.Status = models.TripStatusDispatching
	return trip
}

func attemptFor(id, tripID, driverID int64, wave int) *models.DispatchAttempt {
	return &models.DispatchAttempt{
		AttemptID:  id,
		TripID:     tripID,
		DriverID:   driverID,
		WaveNumber: wave,
		SentAt:     time.Now().UTC(),
		Response:   models.PendingResponse(wave),
	}
}

func newTestService(repo *MockRepository, geoIdx *MockGeoIndex, notifier *MockNotifier) *Service {
	var gi GeoIndex
	if geoIdx != nil {
		gi = geoIdx
	}
	var n OfferNotifier
	if notifier != nil {
		n = notifier
	}
	return NewService(repo, gi, nil, n, testConfig())
}

// --------------------------------------------------------------------------
// Wave radius
// --------------------------------------------------------------------------

func TestRadiusForWave(t *testing.T) {
	svc := newTestService(new(MockRepository), nil, nil)

	assert.Equal(t, 3.0, svc.radiusForWave(1))
	assert.Equal(t, 5.0, svc.radiusForWave(2))
	assert.Equal(t, 7.0, svc.radiusForWave(3))
	assert.Equal(t, 9.0, svc.radiusForWave(4))
	assert.Equal(t, 10.0, svc.radiusForWave(5))
	assert.Equal(t, 10.0, svc.radiusForWave(6))
}

// --------------------------------------------------------------------------
// DispatchTrip
// --------------------------------------------------------------------------

func TestDispatchTrip_CreatesFirstWave(t *testing.T) {
	repo := new(MockRepository)
	geoIdx := new(MockGeoIndex)
	notifier := NewMockNotifier()
	svc := newTestService(repo, geoIdx, notifier)

	trip := requestedTrip()
	repo.On("GetTrip", mock.Anything, int64(100)).Return(trip, nil)
	repo.On("MarkDispatching", mock.Anything, int64(100)).Return(true, nil)
	geoIdx.On("NearbyDrivers", mock.Anything, trip.PickupLat, trip.PickupLng, 3.0, 0).
		Return([]geoindex.Candidate{
			{DriverID: 11, DistanceKm: 0.4},
			{DriverID: 12, DistanceKm: 1.1},
		}, nil)
	repo.On("EligibleDrivers", mock.Anything, mock.Anything, []int64{11, 12}).
		Return(map[int64]bool{11: true, 12: true}, nil)
	repo.On("CreateAttempts", mock.Anything, int64(100), 1, []int64{11, 12}).
		Return([]*models.DispatchAttempt{
			attemptFor(1, 100, 11, 1),
			attemptFor(2, 100, 12, 1),
		}, nil)

	result, err := svc.DispatchTrip(context.Background(), 100)
	require.NoError(t, err)

	assert.Equal(t, OutcomeWaveCreated, result.Outcome)
	assert.Equal(t, 1, result.WaveNumber)
	assert.Equal(t, 3.0, result.RadiusKm)
	assert.Equal(t, 2, result.OffersSent)

	require.Len(t, notifier.userMessages[11], 1)
	require.Len(t, notifier.userMessages[12], 1)
	assert.Equal(t, websocket.MessageTypeOffer, notifier.userMessages[11][0].Type)
	repo.AssertExpectations(t)
}

func TestDispatchTrip_TripNotFound(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, nil, nil)

	repo.On("GetTrip", mock.Anything, int64(100)).Return(nil, nil)

	_, err := svc.DispatchTrip(context.Background(), 100)
	appErr, ok := err.(*common.AppError)
	require.True(t, ok)
	assert.Equal(t, common.CodeNotFound, appErr.ErrorCode)
}

func TestDispatchTrip_AlreadyAssigned(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, nil, nil)

	driverID := int64(11)
	trip := requestedTrip()
	trip.Status = models.TripStatusAssigned
	trip.DriverID = &driverID
	repo.On("GetTrip", mock.Anything, int64(100)).Return(trip, nil)
	repo.On("MarkDispatching", mock.Anything, int64(100)).Return(false, nil)

	result, err := svc.DispatchTrip(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyAssigned, result.Outcome)
	assert.Equal(t, models.TripStatusAssigned, result.TripStatus)
}

func TestDispatchTrip_WrongStatusNoAction(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, nil, nil)

	trip := requestedTrip()
	trip.Status = models.TripStatusCompleted
	repo.On("GetTrip", mock.Anything, int64(100)).Return(trip, nil)
	repo.On("MarkDispatching", mock.Anything, int64(100)).Return(false, nil)

	result, err := svc.DispatchTrip(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoAction, result.Outcome)
}

func TestDispatchTrip_NoDriversDoesNotCancel(t *testing.T) {
	repo := new(MockRepository)
	geoIdx := new(MockGeoIndex)
	svc := newTestService(repo, geoIdx, nil)

	trip := requestedTrip()
	repo.On("GetTrip", mock.Anything, int64(100)).Return(trip, nil)
	repo.On("MarkDispatching", mock.Anything, int64(100)).Return(true, nil)
	geoIdx.On("NearbyDrivers", mock.Anything, mock.Anything, mock.Anything, 3.0, 0).
		Return([]geoindex.Candidate{}, nil)
	repo.On("FallbackCandidates", mock.Anything, mock.Anything, 5*time.Minute).
		Return([]FallbackCandidate{}, nil)
	repo.On("EligibleDrivers", mock.Anything, mock.Anything, []int64{}).
		Return(map[int64]bool{}, nil)

	result, err := svc.DispatchTrip(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoDrivers, result.Outcome)
	assert.Equal(t, models.TripStatusDispatching, result.TripStatus)
	repo.AssertNotCalled(t, "CancelTripExhausted", mock.Anything, mock.Anything)
}

func TestDispatchTrip_BatchCapAndEligibilityFilter(t *testing.T) {
	repo := new(MockRepository)
	geoIdx := new(MockGeoIndex)
	svc := newTestService(repo, geoIdx, NewMockNotifier())

	trip := requestedTrip()
	repo.On("GetTrip", mock.Anything, int64(100)).Return(trip, nil)
	repo.On("MarkDispatching", mock.Anything, int64(100)).Return(true, nil)
	// Five nearby drivers, nearest first. Driver 12 is ineligible, so the
	// batch of three is 11, 13, 14.
	geoIdx.On("NearbyDrivers", mock.Anything, mock.Anything, mock.Anything, 3.0, 0).
		Return([]geoindex.Candidate{
			{DriverID: 11, DistanceKm: 0.2},
			{DriverID: 12, DistanceKm: 0.5},
			{DriverID: 13, DistanceKm: 0.9},
			{DriverID: 14, DistanceKm: 1.4},
			{DriverID: 15, DistanceKm: 2.0},
		}, nil)
	repo.On("EligibleDrivers", mock.Anything, mock.Anything, []int64{11, 12, 13, 14, 15}).
		Return(map[int64]bool{11: true, 13: true, 14: true, 15: true}, nil)
	repo.On("CreateAttempts", mock.Anything, int64(100), 1, []int64{11, 13, 14}).
		Return([]*models.DispatchAttempt{
			attemptFor(1, 100, 11, 1),
			attemptFor(2, 100, 13, 1),
			attemptFor(3, 100, 14, 1),
		}, nil)

	result, err := svc.DispatchTrip(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 3, result.OffersSent)
	repo.AssertExpectations(t)
}

func TestDispatchTrip_FallbackCandidatesFilteredAndSorted(t *testing.T) {
	repo := new(MockRepository)
	geoIdx := new(MockGeoIndex)
	svc := newTestService(repo, geoIdx, NewMockNotifier())

	trip := requestedTrip()
	repo.On("GetTrip", mock.Anything, int64(100)).Return(trip, nil)
	repo.On("MarkDispatching", mock.Anything, int64(100)).Return(true, nil)
	geoIdx.On("NearbyDrivers", mock.Anything, mock.Anything, mock.Anything, 3.0, 0).
		Return([]geoindex.Candidate{}, nil)

	// Driver 22 is ~1.1 km north of pickup, driver 21 is right at pickup,
	// driver 23 is far outside the radius.
	repo.On("FallbackCandidates", mock.Anything, mock.Anything, 5*time.Minute).
		Return([]FallbackCandidate{
			{DriverID: 22, Latitude: trip.PickupLat + 0.01, Longitude: trip.PickupLng},
			{DriverID: 21, Latitude: trip.PickupLat, Longitude: trip.PickupLng},
			{DriverID: 23, Latitude: trip.PickupLat + 1.0, Longitude: trip.PickupLng},
		}, nil)
	repo.On("EligibleDrivers", mock.Anything, mock.Anything, []int64{21, 22}).
		Return(map[int64]bool{21: true, 22: true}, nil)
	repo.On("CreateAttempts", mock.Anything, int64(100), 1, []int64{21, 22}).
		Return([]*models.DispatchAttempt{
			attemptFor(1, 100, 21, 1),
			attemptFor(2, 100, 22, 1),
		}, nil)

	result, err := svc.DispatchTrip(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 2, result.OffersSent)
	repo.AssertExpectations(t)
}

// --------------------------------------------------------------------------
// AdvanceWave
// --------------------------------------------------------------------------

func TestAdvanceWave_FreshPendingOffersNoAction(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, nil, nil)

	repo.On("GetTrip", mock.Anything, int64(100)).Return(dispatchingTrip(), nil)
	repo.On("SweepExpired", mock.Anything, int64(100), 15*time.Second).
		Return([]*models.DispatchAttempt{}, nil)
	repo.On("CountPendingFresh", mock.Anything, int64(100), 15*time.Second).Return(2, nil)

	result, err := svc.AdvanceWave(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoAction, result.Outcome)
	repo.AssertNotCalled(t, "CreateAttempts", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAdvanceWave_SweepsExpiredThenCreatesNextWave(t *testing.T) {
	repo := new(MockRepository)
	geoIdx := new(MockGeoIndex)
	svc := newTestService(repo, geoIdx, NewMockNotifier())

	trip := dispatchingTrip()
	expired := attemptFor(1, 100, 11, 1)
	expired.Response = models.AttemptTimeout

	repo.On("GetTrip", mock.Anything, int64(100)).Return(trip, nil)
	repo.On("SweepExpired", mock.Anything, int64(100), 15*time.Second).
		Return([]*models.DispatchAttempt{expired}, nil)
	repo.On("CountPendingFresh", mock.Anything, int64(100), 15*time.Second).Return(0, nil)
	repo.On("MaxWave", mock.Anything, int64(100)).Return(1, nil)
	geoIdx.On("NearbyDrivers", mock.Anything, trip.PickupLat, trip.PickupLng, 5.0, 0).
		Return([]geoindex.Candidate{{DriverID: 21, DistanceKm: 4.2}}, nil)
	repo.On("EligibleDrivers", mock.Anything, mock.Anything, []int64{21}).
		Return(map[int64]bool{21: true}, nil)
	repo.On("CreateAttempts", mock.Anything, int64(100), 2, []int64{21}).
		Return([]*models.DispatchAttempt{attemptFor(2, 100, 21, 2)}, nil)

	result, err := svc.AdvanceWave(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, OutcomeWaveCreated, result.Outcome)
	assert.Equal(t, 2, result.WaveNumber)
	assert.Equal(t, 5.0, result.RadiusKm)
	repo.AssertExpectations(t)
}

func TestAdvanceWave_AlreadyAssigned(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, nil, nil)

	driverID := int64(11)
	trip := dispatchingTrip()
	trip.DriverID = &driverID
	repo.On("GetTrip", mock.Anything, int64(100)).Return(trip, nil)

	result, err := svc.AdvanceWave(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyAssigned, result.Outcome)
	repo.AssertNotCalled(t, "SweepExpired", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdvanceWave_NotDispatchingNoAction(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, nil, nil)

	trip := requestedTrip()
	trip.Status = models.TripStatusCancelled
	repo.On("GetTrip", mock.Anything, int64(100)).Return(trip, nil)

	result, err := svc.AdvanceWave(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoAction, result.Outcome)
}

func TestAdvanceWave_ExhaustedAfterMaxWaves(t *testing.T) {
	repo := new(MockRepository)
	notifier := NewMockNotifier()
	svc := newTestService(repo, nil, notifier)

	trip := dispatchingTrip()
	cancelled := dispatchingTrip()
	cancelled.Status = models.TripStatusCancelled

	repo.On("GetTrip", mock.Anything, int64(100)).Return(trip, nil)
	repo.On("SweepExpired", mock.Anything, int64(100), 15*time.Second).
		Return([]*models.DispatchAttempt{}, nil)
	repo.On("CountPendingFresh", mock.Anything, int64(100), 15*time.Second).Return(0, nil)
	repo.On("MaxWave", mock.Anything, int64(100)).Return(3, nil)
	repo.On("CancelTripExhausted", mock.Anything, int64(100)).Return(cancelled, nil)

	result, err := svc.AdvanceWave(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, OutcomeExhausted, result.Outcome)
	assert.Equal(t, models.TripStatusCancelled, result.TripStatus)

	require.Len(t, notifier.userMessages[7], 1)
	assert.Equal(t, websocket.MessageTypeTripStatus, notifier.userMessages[7][0].Type)
	repo.AssertNotCalled(t, "CreateAttempts", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAdvanceWave_ExhaustionRaceReportsAssigned(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, nil, nil)

	trip := dispatchingTrip()
	driverID := int64(11)
	assigned := dispatchingTrip()
	assigned.Status = models.TripStatusAssigned
	assigned.DriverID = &driverID

	repo.On("GetTrip", mock.Anything, int64(100)).Return(trip, nil).Once()
	repo.On("SweepExpired", mock.Anything, int64(100), 15*time.Second).
		Return([]*models.DispatchAttempt{}, nil)
	repo.On("CountPendingFresh", mock.Anything, int64(100), 15*time.Second).Return(0, nil)
	repo.On("MaxWave", mock.Anything, int64(100)).Return(3, nil)
	repo.On("CancelTripExhausted", mock.Anything, int64(100)).Return(nil, ErrNotAssignable)
	repo.On("GetTrip", mock.Anything, int64(100)).Return(assigned, nil).Once()

	result, err := svc.AdvanceWave(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyAssigned, result.Outcome)
	assert.Equal(t, models.TripStatusAssigned, result.TripStatus)
}

// --------------------------------------------------------------------------
// AcceptOffer / RejectOffer
// --------------------------------------------------------------------------

func TestAcceptOffer_Success(t *testing.T) {
	repo := new(MockRepository)
	notifier := NewMockNotifier()
	svc := newTestService(repo, nil, notifier)

	driverID := int64(11)
	vehicleID := int64(501)
	tenantID := int64(3)
	trip := dispatchingTrip()
	trip.Status = models.TripStatusAssigned
	trip.DriverID = &driverID
	trip.VehicleID = &vehicleID
	trip.TenantID = &tenantID

	attempt := attemptFor(1, 100, 11, 1)
	attempt.Response = models.AttemptAccepted

	repo.On("AcceptOffer", mock.Anything, int64(100), int64(11), 15*time.Second).
		Return(&AcceptResult{Trip: trip, Attempt: attempt}, nil)

	result, err := svc.AcceptOffer(context.Background(), 11, 100)
	require.NoError(t, err)
	assert.Equal(t, models.TripStatusAssigned, result.Trip.Status)

	require.Len(t, notifier.userMessages[7], 1)
	assert.Equal(t, websocket.MessageTypeTripStatus, notifier.userMessages[7][0].Type)
}

func TestAcceptOffer_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		repoErr  error
		wantCode string
		wantHTTP int
	}{
		{"no offer", ErrOfferNotFound, common.CodeInvalidOffer, 404},
		{"expired before sweep", &ExpiredError{AttemptID: 1}, common.CodeOfferExpired, 409},
		{"already responded", &RespondedError{AttemptID: 1, Response: models.AttemptRejected}, common.CodeAlreadyResponded, 409},
		{"lost the race", ErrNotAssignable, common.CodeAlreadyAssigned, 409},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			svc := newTestService(repo, nil, nil)

			repo.On("AcceptOffer", mock.Anything, int64(100), int64(11), 15*time.Second).
				Return(nil, tt.repoErr)

			_, err := svc.AcceptOffer(context.Background(), 11, 100)
			appErr, ok := err.(*common.AppError)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, appErr.ErrorCode)
			assert.Equal(t, tt.wantHTTP, appErr.Code)
		})
	}
}

func TestRejectOffer_Success(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, nil, nil)

	attempt := attemptFor(1, 100, 11, 1)
	attempt.Response = models.AttemptRejected
	repo.On("RejectOffer", mock.Anything, int64(100), int64(11)).Return(attempt, nil)

	got, err := svc.RejectOffer(context.Background(), 11, 100)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptRejected, got.Response)
}

func TestRejectOffer_AlreadyResponded(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, nil, nil)

	repo.On("RejectOffer", mock.Anything, int64(100), int64(11)).
		Return(nil, &RespondedError{AttemptID: 1, Response: models.AttemptAccepted})

	_, err := svc.RejectOffer(context.Background(), 11, 100)
	appErr, ok := err.(*common.AppError)
	require.True(t, ok)
	assert.Equal(t, common.CodeAlreadyResponded, appErr.ErrorCode)
}

// --------------------------------------------------------------------------
// PendingOffers / AttemptsForTrip
// --------------------------------------------------------------------------

func TestPendingOffers_MasksRiderName(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, nil, nil)

	sentAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	attempt := attemptFor(1, 100, 11, 2)
	attempt.SentAt = sentAt
	trip := dispatchingTrip()

	repo.On("PendingOffersForDriver", mock.Anything, int64(11), 15*time.Second).
		Return([]*OfferRow{{Attempt: *attempt, RiderFullName: "Priya Sharma", Trip: *trip}}, nil)

	offers, err := svc.PendingOffers(context.Background(), 11)
	require.NoError(t, err)
	require.Len(t, offers, 1)

	assert.Equal(t, "Priya S.", offers[0].RiderName)
	assert.Equal(t, 2, offers[0].WaveNumber)
	assert.Equal(t, sentAt.Add(15*time.Second), offers[0].ExpiresAt)
	assert.Equal(t, trip.FareAmount, offers[0].FareAmount)
}

func TestAttemptsForTrip(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, nil, nil)

	repo.On("GetTrip", mock.Anything, int64(100)).Return(dispatchingTrip(), nil)
	repo.On("GetAttemptsByTrip", mock.Anything, int64(100)).
		Return([]*models.DispatchAttempt{attemptFor(1, 100, 11, 1), attemptFor(2, 100, 12, 1)}, nil)

	attempts, err := svc.AttemptsForTrip(context.Background(), 100)
	require.NoError(t, err)
	assert.Len(t, attempts, 2)
}

func TestAttemptsForTrip_NotFound(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, nil, nil)

	repo.On("GetTrip", mock.Anything, int64(100)).Return(nil, nil)

	_, err := svc.AttemptsForTrip(context.Background(), 100)
	appErr, ok := err.(*common.AppError)
	require.True(t, ok)
	assert.Equal(t, common.CodeNotFound, appErr.ErrorCode)
}
