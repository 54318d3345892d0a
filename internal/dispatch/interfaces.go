package dispatch

import (
	"context"
	"time"

	"github.com/swiftride/dispatch-core/internal/geoindex"
	"github.com/swiftride/dispatch-core/pkg/eventbus"
	"github.com/swiftride/dispatch-core/pkg/models"
	"github.com/swiftride/dispatch-core/pkg/websocket"
)

// RepositoryInterface defines data access for dispatch waves and offers
type RepositoryInterface interface {
	GetTrip(ctx context.Context, tripID int64) (*models.Trip, error)
	MarkDispatching(ctx context.Context, tripID int64) (bool, error)
	MaxWave(ctx context.Context, tripID int64) (int, error)
	CountPendingFresh(ctx context.Context, tripID int64, timeout time.Duration) (int, error)
	SweepExpired(ctx context.Context, tripID int64, timeout time.Duration) ([]*models.DispatchAttempt, error)
	EligibleDrivers(ctx context.Context, trip *models.Trip, driverIDs []int64) (map[int64]bool, error)
	FallbackCandidates(ctx context.Context, trip *models.Trip, locationTTL time.Duration) ([]FallbackCandidate, error)
	CreateAttempts(ctx context.Context, tripID int64, wave int, driverIDs []int64) ([]*models.DispatchAttempt, error)
	GetAttemptsByTrip(ctx context.Context, tripID int64) ([]*models.DispatchAttempt, error)
	CancelTripExhausted(ctx context.Context, tripID int64) (*models.Trip, error)
	AcceptOffer(ctx context.Context, tripID, driverID int64, timeout time.Duration) (*AcceptResult, error)
	RejectOffer(ctx context.Context, tripID, driverID int64) (*models.DispatchAttempt, error)
	PendingOffersForDriver(ctx context.Context, driverID int64, timeout time.Duration) ([]*OfferRow, error)
}

// GeoIndex is the slice of the live driver index used for candidate search
type GeoIndex interface {
	NearbyDrivers(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]geoindex.Candidate, error)
}

// EventPublisher is the slice of the event bus the service uses
type EventPublisher interface {
	Publish(ctx context.Context, subject string, event *eventbus.Event) error
}

// OfferNotifier pushes offers and trip updates to connected clients
type OfferNotifier interface {
	SendToUser(userID int64, msg *websocket.Message)
	SendToTrip(tripID int64, msg *websocket.Message)
}

// ServiceInterface defines dispatch operations
type ServiceInterface interface {
	DispatchTrip(ctx context.Context, tripID int64) (*WaveResult, error)
	AdvanceWave(ctx context.Context, tripID int64) (*WaveResult, error)
	AcceptOffer(ctx context.Context, driverID, tripID int64) (*AcceptResult, error)
	RejectOffer(ctx context.Context, driverID, tripID int64) (*models.DispatchAttempt, error)
	PendingOffers(ctx context.Context, driverID int64) ([]*Offer, error)
	AttemptsForTrip(ctx context.Context, tripID int64) ([]*models.DispatchAttempt, error)
}
