package dispatch

import (
	"time"

	"github.com/swiftride/dispatch-core/pkg/models"
)

// Outcome classifies what a dispatch or wave advance produced
type Outcome string

const (
	OutcomeWaveCreated     Outcome = "WAVE_CREATED"
	OutcomeNoDrivers       Outcome = "NO_DRIVERS_IN_RADIUS"
	OutcomeNoAction        Outcome = "NO_ACTION"
	OutcomeAlreadyAssigned Outcome = "ALREADY_ASSIGNED"
	OutcomeExhausted       Outcome = "DISPATCH_EXHAUSTED"
)

// WaveResult reports the effect of dispatch_trip or advance_wave
type WaveResult struct {
	Outcome    Outcome           `json:"outcome"`
	TripID     int64             `json:"trip_id"`
	TripStatus models.TripStatus `json:"trip_status"`
	WaveNumber int               `json:"wave_number,omitempty"`
	RadiusKm   float64           `json:"radius_km,omitempty"`
	OffersSent int               `json:"offers_sent,omitempty"`
	Reason     string            `json:"reason,omitempty"`
}

// Candidate is a driver considered for a wave, nearest first
type Candidate struct {
	DriverID   int64
	DistanceKm float64
}

// FallbackCandidate is an eligible driver with a durable last-known position,
// used when the live geo index returns nothing.
type FallbackCandidate struct {
	DriverID  int64
	Latitude  float64
	Longitude float64
}

// Offer is a pending dispatch attempt as shown to the offered driver. The
// rider's name is masked.
type Offer struct {
	AttemptID       int64     `json:"attempt_id"`
	TripID          int64     `json:"trip_id"`
	WaveNumber      int       `json:"wave_number"`
	RiderName       string    `json:"rider_name"`
	VehicleCategory string    `json:"vehicle_category"`
	PickupLat       float64   `json:"pickup_lat"`
	PickupLng       float64   `json:"pickup_lng"`
	DropLat         float64   `json:"drop_lat"`
	DropLng         float64   `json:"drop_lng"`
	FareAmount      float64   `json:"fare_amount"`
	SentAt          time.Time `json:"sent_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// OfferRow is the repository projection behind Offer, carrying the rider's
// unmasked name.
type OfferRow struct {
	Attempt       models.DispatchAttempt
	RiderFullName string
	Trip          models.Trip
}

// AcceptResult carries the assigned trip and the winning attempt
type AcceptResult struct {
	Trip    *models.Trip            `json:"trip"`
	Attempt *models.DispatchAttempt `json:"attempt"`
}
