package trips

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/swiftride/dispatch-core/internal/dispatch"
	"github.com/swiftride/dispatch-core/pkg/common"
	"github.com/swiftride/dispatch-core/pkg/eventbus"
	"github.com/swiftride/dispatch-core/pkg/logger"
	"github.com/swiftride/dispatch-core/pkg/models"
	"github.com/swiftride/dispatch-core/pkg/validation"
	"github.com/swiftride/dispatch-core/pkg/websocket"
)

// Config holds the pickup OTP tunables
type Config struct {
	OTPLength      int
	OTPTTL         time.Duration
	OTPMaxAttempts int
}

// Service implements the trip lifecycle: creation with a locked fare, the
// driver-side transition chain, the pickup OTP subsystem and cancellation.
type Service struct {
	repo       RepositoryInterface
	cities     CityResolver
	fares      FareQuoter
	dispatcher Dispatcher
	shifts     ShiftController
	events     EventPublisher
	notifier   Notifier
	cfg        Config
	now        func() time.Time
}

// NewService creates a new trips service. events and notifier may be nil.
func NewService(
	repo RepositoryInterface,
	cities CityResolver,
	fares FareQuoter,
	dispatcher Dispatcher,
	shifts ShiftController,
	events EventPublisher,
	notifier Notifier,
	cfg Config,
) *Service {
	return &Service{
		repo:       repo,
		cities:     cities,
		fares:      fares,
		dispatcher: dispatcher,
		shifts:     shifts,
		events:     events,
		notifier:   notifier,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreateTrip validates the rider and locations, locks the fare, persists the
// trip and starts the first dispatch wave. A dispatch failure leaves the trip
// REQUESTED; it is logged, not surfaced.
func (s *Service) CreateTrip(ctx context.Context, riderID int64, req *CreateTripRequest) (*TripView, error) {
	rider, err := s.repo.GetUser(ctx, riderID)
	if err != nil {
		return nil, err
	}
	if rider == nil {
		return nil, common.NewNotFoundError("user", riderID)
	}
	if rider.Status != models.UserStatusActive {
		return nil, common.NewPreconditionError(common.CodeUserInactive, "user account is not active")
	}

	if active, err := s.repo.ActiveTripID(ctx, riderID); err != nil {
		return nil, err
	} else if active != nil {
		return nil, common.NewPreconditionError(common.CodeActiveTripExists, "rider already has an active trip").
			WithDetail("trip_id", *active)
	}

	category := validation.NormalizeVehicleCategory(req.VehicleCategory)

	city, err := s.cities.ValidateTripLocations(ctx, req.PickupLat, req.PickupLng, req.DropLat, req.DropLng)
	if err != nil {
		return nil, err
	}

	fare, err := s.fares.Quote(ctx, city.CityID, category, req.PickupLat, req.PickupLng, req.DropLat, req.DropLng)
	if err != nil {
		return nil, err
	}

	trip, err := s.repo.CreateTrip(ctx, &models.Trip{
		RiderID:         riderID,
		CityID:          city.CityID,
		SurgeZoneID:     fare.SurgeZoneID,
		VehicleCategory: category,
		PickupLat:       req.PickupLat,
		PickupLng:       req.PickupLng,
		DropLat:         req.DropLat,
		DropLng:         req.DropLng,
		FareAmount:      fare.FinalFare,
	})
	if err != nil {
		if errors.Is(err, ErrActiveTrip) {
			return nil, common.NewPreconditionError(common.CodeActiveTripExists, "rider already has an active trip")
		}
		return nil, err
	}

	s.publishEvent(ctx, eventbus.SubjectTripRequested, eventbus.TripRequestedData{
		TripID:          trip.TripID,
		RiderID:         trip.RiderID,
		CityID:          trip.CityID,
		VehicleCategory: trip.VehicleCategory,
		PickupLat:       trip.PickupLat,
		PickupLng:       trip.PickupLng,
		DropLat:         trip.DropLat,
		DropLng:         trip.DropLng,
		FareAmount:      trip.FareAmount,
		RequestedAt:     trip.RequestedAt,
	})

	result, err := s.dispatcher.DispatchTrip(ctx, trip.TripID)
	if err != nil {
		logger.ErrorContext(ctx, "first dispatch wave failed",
			zap.Int64("trip_id", trip.TripID),
			zap.Error(err),
		)
	} else {
		trip.Status = result.TripStatus
		logger.InfoContext(ctx, "trip created",
			zap.Int64("trip_id", trip.TripID),
			zap.String("outcome", string(result.Outcome)),
		)
	}

	return &TripView{Trip: trip}, nil
}

// GetTrip returns the trip to its rider, its assigned driver or an admin.
// The driver's view carries the rider's masked name.
func (s *Service) GetTrip(ctx context.Context, tripID, callerID int64, role models.UserRole) (*TripView, error) {
	trip, err := s.authorizedTrip(ctx, tripID, callerID, role)
	if err != nil {
		return nil, err
	}

	view := &TripView{Trip: trip}
	if trip.DriverID != nil && *trip.DriverID == callerID {
		if rider, err := s.repo.GetUser(ctx, trip.RiderID); err == nil && rider != nil {
			view.RiderName = dispatch.MaskRiderName(rider.FullName)
		}
	}

	return view, nil
}

// CancelTrip cancels the rider's trip from any pre-pickup state. An assigned
// driver returns to ONLINE and open offers are terminated.
func (s *Service) CancelTrip(ctx context.Context, tripID, callerID int64) (*TripView, error) {
	trip, err := s.repo.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, common.NewNotFoundError("trip", tripID)
	}
	if trip.RiderID != callerID {
		return nil, common.NewForbiddenError("only the rider may cancel this trip")
	}
	if !cancellable(trip.Status) {
		return nil, common.NewIllegalTransitionError("trip", string(trip.Status), string(models.TripStatusCancelled))
	}

	cancelled, err := s.repo.CancelTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if cancelled == nil {
		// Lost a race with pickup or another cancel
		fresh, ferr := s.repo.GetTrip(ctx, tripID)
		if ferr == nil && fresh != nil {
			trip = fresh
		}
		return nil, common.NewIllegalTransitionError("trip", string(trip.Status), string(models.TripStatusCancelled))
	}

	if cancelled.DriverID != nil {
		if err := s.shifts.MarkOnline(ctx, *cancelled.DriverID); err != nil {
			logger.WarnContext(ctx, "failed to release driver shift after cancel",
				zap.Int64("trip_id", tripID),
				zap.Int64("driver_id", *cancelled.DriverID),
				zap.Error(err),
			)
		}
		s.notifyUser(*cancelled.DriverID, s.statusMessage(cancelled, "trip cancelled by rider"))
	}

	s.publishEvent(ctx, eventbus.SubjectTripCancelled, eventbus.TripCancelledData{
		TripID:      cancelled.TripID,
		RiderID:     cancelled.RiderID,
		DriverID:    cancelled.DriverID,
		CancelledBy: "rider",
		CancelledAt: s.now(),
	})

	return &TripView{Trip: cancelled}, nil
}

// Arrive transitions the driver's trip ASSIGNED -> ARRIVED
func (s *Service) Arrive(ctx context.Context, tripID, driverID int64) (*TripView, error) {
	trip, err := s.ownedTrip(ctx, tripID, driverID)
	if err != nil {
		return nil, err
	}
	if trip.Status != models.TripStatusAssigned {
		return nil, common.NewIllegalTransitionError("trip", string(trip.Status), string(models.TripStatusArrived))
	}

	arrived, err := s.repo.MarkArrived(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if arrived == nil {
		return nil, common.NewIllegalTransitionError("trip", string(trip.Status), string(models.TripStatusArrived))
	}

	s.publishStatus(ctx, eventbus.SubjectTripArrived, arrived)
	s.notifyTrip(arrived, "driver arrived at pickup")

	return &TripView{Trip: arrived}, nil
}

// GenerateOTP issues a fresh pickup code to the rider. Regeneration resets
// the attempt counter and clears any prior verification.
func (s *Service) GenerateOTP(ctx context.Context, tripID, riderID int64) (*OTPIssue, error) {
	trip, err := s.repo.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, common.NewNotFoundError("trip", tripID)
	}
	if trip.RiderID != riderID {
		return nil, common.NewForbiddenError("only the rider may generate the pickup code")
	}
	if trip.Status != models.TripStatusArrived {
		return nil, common.NewIllegalTransitionError("trip", string(trip.Status), string(models.TripStatusArrived))
	}

	otp, err := generateOTP(s.cfg.OTPLength)
	if err != nil {
		return nil, err
	}
	expiresAt := s.now().Add(s.cfg.OTPTTL)

	if err := s.repo.SetPickupOTP(ctx, tripID, otp, expiresAt); err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "pickup otp issued", zap.Int64("trip_id", tripID))

	return &OTPIssue{OTP: otp, ExpiresAt: expiresAt}, nil
}

// VerifyOTP checks the driver's submitted code. A mismatch burns an attempt
// and reports how many remain; after the third failure the code is locked
// until the rider regenerates.
func (s *Service) VerifyOTP(ctx context.Context, tripID, driverID int64, otp string) (*VerifyOTPResult, error) {
	trip, err := s.ownedTrip(ctx, tripID, driverID)
	if err != nil {
		return nil, err
	}
	if trip.Status != models.TripStatusArrived {
		return nil, common.NewIllegalTransitionError("trip", string(trip.Status), string(models.TripStatusPickedUp))
	}
	if !trip.HasActiveOTP(s.now()) {
		return nil, common.NewValidationError("pickup code is missing or expired, ask the rider to regenerate")
	}
	if trip.OTPAttempts >= s.cfg.OTPMaxAttempts {
		return nil, common.NewValidationError("pickup code attempts exhausted, ask the rider to regenerate")
	}

	if !otpMatches(otp, *trip.PickupOTP) {
		attempts, err := s.repo.IncrementOTPAttempts(ctx, tripID)
		if err != nil {
			return nil, err
		}
		remaining := s.cfg.OTPMaxAttempts - attempts
		if remaining < 0 {
			remaining = 0
		}
		return &VerifyOTPResult{Verified: false, RemainingAttempts: &remaining}, nil
	}

	if err := s.repo.MarkOTPVerified(ctx, tripID); err != nil {
		return nil, err
	}

	return &VerifyOTPResult{Verified: true}, nil
}

// Pickup transitions ARRIVED -> PICKED_UP once the OTP is verified
func (s *Service) Pickup(ctx context.Context, tripID, driverID int64) (*TripView, error) {
	trip, err := s.ownedTrip(ctx, tripID, driverID)
	if err != nil {
		return nil, err
	}
	if trip.Status != models.TripStatusArrived {
		return nil, common.NewIllegalTransitionError("trip", string(trip.Status), string(models.TripStatusPickedUp))
	}
	if trip.OTPVerifiedAt == nil {
		return nil, common.NewValidationError("pickup requires a verified code")
	}

	pickedUp, err := s.repo.MarkPickedUp(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if pickedUp == nil {
		return nil, common.NewIllegalTransitionError("trip", string(trip.Status), string(models.TripStatusPickedUp))
	}

	s.publishStatus(ctx, eventbus.SubjectTripPickedUp, pickedUp)
	s.notifyTrip(pickedUp, "trip started")

	return &TripView{Trip: pickedUp}, nil
}

// Complete transitions PICKED_UP -> COMPLETED and returns the driver to ONLINE
func (s *Service) Complete(ctx context.Context, tripID, driverID int64) (*TripView, error) {
	trip, err := s.ownedTrip(ctx, tripID, driverID)
	if err != nil {
		return nil, err
	}
	if trip.Status != models.TripStatusPickedUp {
		return nil, common.NewIllegalTransitionError("trip", string(trip.Status), string(models.TripStatusCompleted))
	}

	completed, err := s.repo.CompleteTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if completed == nil {
		return nil, common.NewIllegalTransitionError("trip", string(trip.Status), string(models.TripStatusCompleted))
	}

	if err := s.shifts.MarkOnline(ctx, driverID); err != nil {
		logger.WarnContext(ctx, "failed to release driver shift after completion",
			zap.Int64("trip_id", tripID),
			zap.Int64("driver_id", driverID),
			zap.Error(err),
		)
	}

	s.publishStatus(ctx, eventbus.SubjectTripCompleted, completed)
	s.notifyTrip(completed, "trip completed")

	logger.InfoContext(ctx, "trip completed",
		zap.Int64("trip_id", tripID),
		zap.Int64("driver_id", driverID),
	)

	return &TripView{Trip: completed}, nil
}

// AttemptsForTrip returns the dispatch audit trail to the rider, the assigned
// driver or an admin.
func (s *Service) AttemptsForTrip(ctx context.Context, tripID, callerID int64, role models.UserRole) ([]*models.DispatchAttempt, error) {
	if _, err := s.authorizedTrip(ctx, tripID, callerID, role); err != nil {
		return nil, err
	}

	return s.dispatcher.AttemptsForTrip(ctx, tripID)
}

// authorizedTrip loads a trip and checks the caller may read it
func (s *Service) authorizedTrip(ctx context.Context, tripID, callerID int64, role models.UserRole) (*models.Trip, error) {
	trip, err := s.repo.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, common.NewNotFoundError("trip", tripID)
	}

	if role == models.RoleAdmin {
		return trip, nil
	}
	if trip.RiderID == callerID {
		return trip, nil
	}
	if trip.DriverID != nil && *trip.DriverID == callerID {
		return trip, nil
	}

	return nil, common.NewForbiddenError("trip belongs to another rider")
}

// ownedTrip loads a trip and checks the caller is its assigned driver
func (s *Service) ownedTrip(ctx context.Context, tripID, driverID int64) (*models.Trip, error) {
	trip, err := s.repo.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, common.NewNotFoundError("trip", tripID)
	}
	if trip.DriverID == nil || *trip.DriverID != driverID {
		return nil, common.NewForbiddenError("trip is assigned to another driver")
	}

	return trip, nil
}

func cancellable(status models.TripStatus) bool {
	for _, s := range models.CancellableTripStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func (s *Service) publishStatus(ctx context.Context, subject string, trip *models.Trip) {
	var driverID int64
	if trip.DriverID != nil {
		driverID = *trip.DriverID
	}
	s.publishEvent(ctx, subject, eventbus.TripStatusData{
		TripID:   trip.TripID,
		RiderID:  trip.RiderID,
		DriverID: driverID,
		Status:   string(trip.Status),
		At:       s.now(),
	})
}

func (s *Service) publishEvent(ctx context.Context, subject string, data interface{}) {
	if s.events == nil {
		return
	}
	event, err := eventbus.NewEvent(subject, "trips", data)
	if err != nil {
		logger.Warn("failed to build event", zap.String("subject", subject), zap.Error(err))
		return
	}
	if err := s.events.Publish(ctx, subject, event); err != nil {
		logger.Warn("failed to publish event", zap.String("subject", subject), zap.Error(err))
	}
}

func (s *Service) statusMessage(trip *models.Trip, note string) *websocket.Message {
	return &websocket.Message{
		Type:      websocket.MessageTypeTripStatus,
		TripID:    trip.TripID,
		Timestamp: s.now(),
		Data: map[string]interface{}{
			"status": string(trip.Status),
			"note":   note,
		},
	}
}

func (s *Service) notifyTrip(trip *models.Trip, note string) {
	if s.notifier == nil {
		return
	}
	s.notifier.SendToTrip(trip.TripID, s.statusMessage(trip, note))
}

func (s *Service) notifyUser(userID int64, msg *websocket.Message) {
	if s.notifier == nil {
		return
	}
	s.notifier.SendToUser(userID, msg)
}
