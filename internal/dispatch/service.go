package dispatch

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/swiftride/dispatch-core/pkg/common"
	"github.com/swiftride/dispatch-core/pkg/eventbus"
	"github.com/swiftride/dispatch-core/pkg/geo"
	"github.com/swiftride/dispatch-core/pkg/logger"
	"github.com/swiftride/dispatch-core/pkg/models"
	"github.com/swiftride/dispatch-core/pkg/websocket"
)

// Config holds the dispatch tunables
type Config struct {
	BatchSize         int
	MaxWaves          int
	InitialRadiusKm   float64
	RadiusIncrementKm float64
	MaxRadiusKm       float64
	OfferTimeout      time.Duration
	LocationTTL       time.Duration
}

// Service runs the wave protocol: batched offers over a widening radius
// until a driver accepts or the search is exhausted.
type Service struct {
	repo     RepositoryInterface
	geoIndex GeoIndex
	events   EventPublisher
	notifier OfferNotifier
	cfg      Config
}

// NewService creates a new dispatch service. geoIndex, events and notifier
// may be nil.
func NewService(repo RepositoryInterface, geoIndex GeoIndex, events EventPublisher, notifier OfferNotifier, cfg Config) *Service {
	return &Service{repo: repo, geoIndex: geoIndex, events: events, notifier: notifier, cfg: cfg}
}

// radiusForWave returns the search radius for a wave, capped at the maximum
func (s *Service) radiusForWave(wave int) float64 {
	r := s.uncappedRadius(wave)
	if r > s.cfg.MaxRadiusKm {
		return s.cfg.MaxRadiusKm
	}
	return r
}

func (s *Service) uncappedRadius(wave int) float64 {
	return s.cfg.InitialRadiusKm + float64(wave-1)*s.cfg.RadiusIncrementKm
}

// DispatchTrip starts the wave protocol for a freshly requested trip. It
// never cancels the trip; a first wave with no drivers simply reports so.
func (s *Service) DispatchTrip(ctx context.Context, tripID int64) (*WaveResult, error) {
	trip, err := s.repo.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, common.NewNotFoundError("trip", tripID)
	}

	ok, err := s.repo.MarkDispatching(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !ok {
		if trip.DriverID != nil {
			return &WaveResult{Outcome: OutcomeAlreadyAssigned, TripID: tripID, TripStatus: trip.Status}, nil
		}
		return &WaveResult{
			Outcome:    OutcomeNoAction,
			TripID:     tripID,
			TripStatus: trip.Status,
			Reason:     "trip is not in REQUESTED",
		}, nil
	}
	trip.Status = models.TripStatusDispatching

	return s.runWave(ctx, trip, 1)
}

// AdvanceWave moves a DISPATCHING trip to its next wave. Expired offers are
// timed out first; if fresh pending offers remain nothing happens. When the
// wave or radius budget is spent the trip is cancelled.
func (s *Service) AdvanceWave(ctx context.Context, tripID int64) (*WaveResult, error) {
	trip, err := s.repo.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, common.NewNotFoundError("trip", tripID)
	}

	if trip.DriverID != nil {
		return &WaveResult{Outcome: OutcomeAlreadyAssigned, TripID: tripID, TripStatus: trip.Status}, nil
	}
	if trip.Status != models.TripStatusDispatching {
		return &WaveResult{
			Outcome:    OutcomeNoAction,
			TripID:     tripID,
			TripStatus: trip.Status,
			Reason:     "trip is not dispatching",
		}, nil
	}

	swept, err := s.repo.SweepExpired(ctx, tripID, s.cfg.OfferTimeout)
	if err != nil {
		return nil, err
	}
	for _, attempt := range swept {
		s.publishOfferResponded(ctx, eventbus.SubjectOfferExpired, attempt)
	}

	pending, err := s.repo.CountPendingFresh(ctx, tripID, s.cfg.OfferTimeout)
	if err != nil {
		return nil, err
	}
	if pending > 0 {
		return &WaveResult{
			Outcome:    OutcomeNoAction,
			TripID:     tripID,
			TripStatus: trip.Status,
			Reason:     "pending offers remain",
		}, nil
	}

	current, err := s.repo.MaxWave(ctx, tripID)
	if err != nil {
		return nil, err
	}
	next := current + 1

	if current >= s.cfg.MaxWaves || s.uncappedRadius(next) > s.cfg.MaxRadiusKm {
		return s.exhaust(ctx, trip)
	}

	return s.runWave(ctx, trip, next)
}

func (s *Service) exhaust(ctx context.Context, trip *models.Trip) (*WaveResult, error) {
	cancelled, err := s.repo.CancelTripExhausted(ctx, trip.TripID)
	if err != nil {
		if errors.Is(err, ErrNotAssignable) {
			// A driver accepted between our status check and the cancel
			fresh, ferr := s.repo.GetTrip(ctx, trip.TripID)
			if ferr == nil && fresh != nil {
				return &WaveResult{Outcome: OutcomeAlreadyAssigned, TripID: trip.TripID, TripStatus: fresh.Status}, nil
			}
		}
		return nil, err
	}

	s.publishEvent(ctx, eventbus.SubjectTripCancelled, eventbus.TripCancelledData{
		TripID:      cancelled.TripID,
		RiderID:     cancelled.RiderID,
		CancelledBy: "dispatch",
		CancelledAt: time.Now().UTC(),
	})
	s.notifyUser(cancelled.RiderID, &websocket.Message{
		Type:      websocket.MessageTypeTripStatus,
		TripID:    cancelled.TripID,
		Timestamp: time.Now().UTC(),
		Data: map[string]interface{}{
			"status": string(models.TripStatusCancelled),
			"reason": "no drivers available",
		},
	})

	logger.InfoContext(ctx, "dispatch exhausted, trip cancelled",
		zap.Int64("trip_id", trip.TripID),
	)

	return &WaveResult{
		Outcome:    OutcomeExhausted,
		TripID:     trip.TripID,
		TripStatus: models.TripStatusCancelled,
	}, nil
}

// runWave searches for candidates and creates a batch of offers
func (s *Service) runWave(ctx context.Context, trip *models.Trip, wave int) (*WaveResult, error) {
	radius := s.radiusForWave(wave)

	candidates, err := s.candidates(ctx, trip, radius)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.DriverID)
	}

	eligible, err := s.repo.EligibleDrivers(ctx, trip, ids)
	if err != nil {
		return nil, err
	}

	chosen := make([]int64, 0, s.cfg.BatchSize)
	for _, c := range candidates {
		if !eligible[c.DriverID] {
			continue
		}
		chosen = append(chosen, c.DriverID)
		if len(chosen) == s.cfg.BatchSize {
			break
		}
	}

	if len(chosen) == 0 {
		return &WaveResult{
			Outcome:    OutcomeNoDrivers,
			TripID:     trip.TripID,
			TripStatus: trip.Status,
			WaveNumber: wave,
			RadiusKm:   radius,
		}, nil
	}

	attempts, err := s.repo.CreateAttempts(ctx, trip.TripID, wave, chosen)
	if err != nil {
		return nil, err
	}

	for _, attempt := range attempts {
		s.notifyOffer(trip, attempt, radius)
	}

	logger.InfoContext(ctx, "dispatch wave created",
		zap.Int64("trip_id", trip.TripID),
		zap.Int("wave", wave),
		zap.Float64("radius_km", radius),
		zap.Int("offers", len(attempts)),
	)

	return &WaveResult{
		Outcome:    OutcomeWaveCreated,
		TripID:     trip.TripID,
		TripStatus: trip.Status,
		WaveNumber: wave,
		RadiusKm:   radius,
		OffersSent: len(attempts),
	}, nil
}

// candidates returns drivers near the pickup, nearest first. The live geo
// index is authoritative; when it has nothing the durable last-known
// positions serve as fallback.
func (s *Service) candidates(ctx context.Context, trip *models.Trip, radiusKm float64) ([]Candidate, error) {
	if s.geoIndex != nil {
		members, err := s.geoIndex.NearbyDrivers(ctx, trip.PickupLat, trip.PickupLng, radiusKm, 0)
		if err != nil {
			logger.WarnContext(ctx, "geo index search failed, using fallback",
				zap.Int64("trip_id", trip.TripID),
				zap.Error(err),
			)
		} else if len(members) > 0 {
			candidates := make([]Candidate, 0, len(members))
			for _, m := range members {
				candidates = append(candidates, Candidate{DriverID: m.DriverID, DistanceKm: m.DistanceKm})
			}
			return candidates, nil
		}
	}

	rows, err := s.repo.FallbackCandidates(ctx, trip, s.cfg.LocationTTL)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(rows))
	for _, row := range rows {
		dist := geo.Haversine(trip.PickupLat, trip.PickupLng, row.Latitude, row.Longitude)
		if dist <= radiusKm {
			candidates = append(candidates, Candidate{DriverID: row.DriverID, DistanceKm: dist})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].DistanceKm < candidates[j].DistanceKm
	})

	return candidates, nil
}

// AcceptOffer lets a driver claim the trip. Exactly one acceptance can win.
func (s *Service) AcceptOffer(ctx context.Context, driverID, tripID int64) (*AcceptResult, error) {
	result, err := s.repo.AcceptOffer(ctx, tripID, driverID, s.cfg.OfferTimeout)
	if err != nil {
		var responded *RespondedError
		var expired *ExpiredError
		switch {
		case errors.Is(err, ErrOfferNotFound):
			return nil, common.NewAppError(404, common.CodeInvalidOffer, "no offer for this driver and trip", nil)
		case errors.As(err, &expired):
			return nil, common.NewOfferExpiredError(expired.AttemptID)
		case errors.As(err, &responded):
			return nil, common.NewAlreadyRespondedError(responded.AttemptID, string(responded.Response))
		case errors.Is(err, ErrNotAssignable):
			return nil, common.NewAlreadyAssignedError(tripID)
		default:
			return nil, err
		}
	}

	trip := result.Trip
	s.publishOfferResponded(ctx, eventbus.SubjectOfferAccepted, result.Attempt)
	s.publishEvent(ctx, eventbus.SubjectTripAssigned, eventbus.TripAssignedData{
		TripID:     trip.TripID,
		RiderID:    trip.RiderID,
		DriverID:   *trip.DriverID,
		VehicleID:  *trip.VehicleID,
		TenantID:   *trip.TenantID,
		AssignedAt: time.Now().UTC(),
	})
	s.notifyUser(trip.RiderID, &websocket.Message{
		Type:      websocket.MessageTypeTripStatus,
		TripID:    trip.TripID,
		Timestamp: time.Now().UTC(),
		Data: map[string]interface{}{
			"status":    string(models.TripStatusAssigned),
			"driver_id": *trip.DriverID,
		},
	})

	logger.InfoContext(ctx, "offer accepted",
		zap.Int64("trip_id", trip.TripID),
		zap.Int64("driver_id", driverID),
		zap.Int64("attempt_id", result.Attempt.AttemptID),
	)

	return result, nil
}

// RejectOffer records a driver's rejection without touching the trip
func (s *Service) RejectOffer(ctx context.Context, driverID, tripID int64) (*models.DispatchAttempt, error) {
	attempt, err := s.repo.RejectOffer(ctx, tripID, driverID)
	if err != nil {
		var responded *RespondedError
		switch {
		case errors.Is(err, ErrOfferNotFound):
			return nil, common.NewAppError(404, common.CodeInvalidOffer, "no offer for this driver and trip", nil)
		case errors.As(err, &responded):
			return nil, common.NewAlreadyRespondedError(responded.AttemptID, string(responded.Response))
		default:
			return nil, err
		}
	}

	s.publishOfferResponded(ctx, eventbus.SubjectOfferRejected, attempt)

	return attempt, nil
}

// PendingOffers returns the driver's live offers with rider names masked
func (s *Service) PendingOffers(ctx context.Context, driverID int64) ([]*Offer, error) {
	rows, err := s.repo.PendingOffersForDriver(ctx, driverID, s.cfg.OfferTimeout)
	if err != nil {
		return nil, err
	}

	offers := make([]*Offer, 0, len(rows))
	for _, row := range rows {
		offers = append(offers, &Offer{
			AttemptID:       row.Attempt.AttemptID,
			TripID:          row.Trip.TripID,
			WaveNumber:      row.Attempt.WaveNumber,
			RiderName:       MaskRiderName(row.RiderFullName),
			VehicleCategory: row.Trip.VehicleCategory,
			PickupLat:       row.Trip.PickupLat,
			PickupLng:       row.Trip.PickupLng,
			DropLat:         row.Trip.DropLat,
			DropLng:         row.Trip.DropLng,
			FareAmount:      row.Trip.FareAmount,
			SentAt:          row.Attempt.SentAt,
			ExpiresAt:       row.Attempt.SentAt.Add(s.cfg.OfferTimeout),
		})
	}

	return offers, nil
}

// AttemptsForTrip returns the full offer audit trail of a trip
func (s *Service) AttemptsForTrip(ctx context.Context, tripID int64) ([]*models.DispatchAttempt, error) {
	trip, err := s.repo.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, common.NewNotFoundError("trip", tripID)
	}

	return s.repo.GetAttemptsByTrip(ctx, tripID)
}

func (s *Service) notifyOffer(trip *models.Trip, attempt *models.DispatchAttempt, radiusKm float64) {
	s.notifyUser(attempt.DriverID, &websocket.Message{
		Type:      websocket.MessageTypeOffer,
		TripID:    trip.TripID,
		Timestamp: time.Now().UTC(),
		Data: map[string]interface{}{
			"attempt_id":       attempt.AttemptID,
			"wave_number":      attempt.WaveNumber,
			"vehicle_category": trip.VehicleCategory,
			"pickup_lat":       trip.PickupLat,
			"pickup_lng":       trip.PickupLng,
			"fare_amount":      trip.FareAmount,
			"expires_at":       attempt.SentAt.Add(s.cfg.OfferTimeout),
		},
	})

	s.publishEvent(context.Background(), eventbus.SubjectOfferSent, eventbus.OfferSentData{
		AttemptID:  attempt.AttemptID,
		TripID:     trip.TripID,
		DriverID:   attempt.DriverID,
		WaveNumber: attempt.WaveNumber,
		RadiusKm:   radiusKm,
		SentAt:     attempt.SentAt,
		ExpiresAt:  attempt.SentAt.Add(s.cfg.OfferTimeout),
	})
}

func (s *Service) publishOfferResponded(ctx context.Context, subject string, attempt *models.DispatchAttempt) {
	respondedAt := time.Now().UTC()
	if attempt.RespondedAt != nil {
		respondedAt = *attempt.RespondedAt
	}
	s.publishEvent(ctx, subject, eventbus.OfferRespondedData{
		AttemptID:   attempt.AttemptID,
		TripID:      attempt.TripID,
		DriverID:    attempt.DriverID,
		Response:    string(attempt.Response),
		RespondedAt: respondedAt,
	})
}

func (s *Service) publishEvent(ctx context.Context, subject string, data interface{}) {
	if s.events == nil {
		return
	}
	event, err := eventbus.NewEvent(subject, "dispatch", data)
	if err != nil {
		logger.Warn("failed to build event", zap.String("subject", subject), zap.Error(err))
		return
	}
	if err := s.events.Publish(ctx, subject, event); err != nil {
		logger.Warn("failed to publish event", zap.String("subject", subject), zap.Error(err))
	}
}

func (s *Service) notifyUser(userID int64, msg *websocket.Message) {
	if s.notifier == nil {
		return
	}
	s.notifier.SendToUser(userID, msg)
}
