package trips

import (
	"context"
	"time"

	"github.com/swiftride/dispatch-core/internal/dispatch"
	"github.com/swiftride/dispatch-core/pkg/eventbus"
	"github.com/swiftride/dispatch-core/pkg/models"
	"github.com/swiftride/dispatch-core/pkg/websocket"
)

// RepositoryInterface defines data access for trips. Lookups of optional rows
// return nil rather than an error when absent; compare-and-set transitions
// return nil when the guard did not hold.
type RepositoryInterface interface {
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	ActiveTripID(ctx context.Context, riderID int64) (*int64, error)
	CreateTrip(ctx context.Context, trip *models.Trip) (*models.Trip, error)
	GetTrip(ctx context.Context, tripID int64) (*models.Trip, error)
	CancelTrip(ctx context.Context, tripID int64) (*models.Trip, error)
	MarkArrived(ctx context.Context, tripID int64) (*models.Trip, error)
	SetPickupOTP(ctx context.Context, tripID int64, otp string, expiresAt time.Time) error
	IncrementOTPAttempts(ctx context.Context, tripID int64) (int, error)
	MarkOTPVerified(ctx context.Context, tripID int64) error
	MarkPickedUp(ctx context.Context, tripID int64) (*models.Trip, error)
	CompleteTrip(ctx context.Context, tripID int64) (*models.Trip, error)
}

// CityResolver is the slice of the cities service used at trip creation
type CityResolver interface {
	ValidateTripLocations(ctx context.Context, pickupLat, pickupLng, dropLat, dropLng float64) (*models.City, error)
}

// FareQuoter locks the fare at trip creation
type FareQuoter interface {
	Quote(ctx context.Context, cityID int64, category string, pickupLat, pickupLng, dropLat, dropLng float64) (*models.FareBreakdown, error)
}

// Dispatcher starts the wave protocol and exposes the attempt audit trail
type Dispatcher interface {
	DispatchTrip(ctx context.Context, tripID int64) (*dispatch.WaveResult, error)
	AttemptsForTrip(ctx context.Context, tripID int64) ([]*models.DispatchAttempt, error)
}

// ShiftController releases the driver's shift when a trip ends
type ShiftController interface {
	MarkOnline(ctx context.Context, driverID int64) error
}

// EventPublisher is the slice of the event bus the service uses
type EventPublisher interface {
	Publish(ctx context.Context, subject string, event *eventbus.Event) error
}

// Notifier pushes trip updates to connected clients
type Notifier interface {
	SendToUser(userID int64, msg *websocket.Message)
	SendToTrip(tripID int64, msg *websocket.Message)
}

// ServiceInterface defines trip lifecycle operations
type ServiceInterface interface {
	CreateTrip(ctx context.Context, riderID int64, req *CreateTripRequest) (*TripView, error)
	GetTrip(ctx context.Context, tripID, callerID int64, role models.UserRole) (*TripView, error)
	CancelTrip(ctx context.Context, tripID, callerID int64) (*TripView, error)
	Arrive(ctx context.Context, tripID, driverID int64) (*TripView, error)
	GenerateOTP(ctx context.Context, tripID, riderID int64) (*OTPIssue, error)
	VerifyOTP(ctx context.Context, tripID, driverID int64, otp string) (*VerifyOTPResult, error)
	Pickup(ctx context.Context, tripID, driverID int64) (*TripView, error)
	Complete(ctx context.Context, tripID, driverID int64) (*TripView, error)
	AttemptsForTrip(ctx context.Context, tripID, callerID int64, role models.UserRole) ([]*models.DispatchAttempt, error)
}
