package models

import (
	"fmt"
	"strings"
	"time"
)

// TripStatus represents the status of a trip
type TripStatus string

const (
	TripStatusRequested   TripStatus = "REQUESTED"
	TripStatusDispatching TripStatus = "DISPATCHING"
	TripStatusAssigned    TripStatus = "ASSIGNED"
	TripStatusArrived     TripStatus = "ARRIVED"
	TripStatusPickedUp    TripStatus = "PICKED_UP"
	TripStatusCompleted   TripStatus = "COMPLETED"
	TripStatusCancelled   TripStatus = "CANCELLED"
)

// ActiveTripStatuses are the states counting against the one-active-trip rule
var ActiveTripStatuses = []TripStatus{
	TripStatusRequested,
	TripStatusDispatching,
	TripStatusAssigned,
	TripStatusArrived,
	TripStatusPickedUp,
}

// CancellableTripStatuses are the states a rider may cancel from
var CancellableTripStatuses = []TripStatus{
	TripStatusRequested,
	TripStatusDispatching,
	TripStatusAssigned,
	TripStatusArrived,
}

// Trip represents a trip from request to completion. The fare is locked at
// creation and never recomputed. DriverID, VehicleID and TenantID are set
// together at assignment.
type Trip struct {
	TripID          int64      `json:"trip_id" db:"trip_id"`
	RiderID         int64      `json:"rider_id" db:"rider_id"`
	DriverID        *int64     `json:"driver_id,omitempty" db:"driver_id"`
	VehicleID       *int64     `json:"vehicle_id,omitempty" db:"vehicle_id"`
	TenantID        *int64     `json:"tenant_id,omitempty" db:"tenant_id"`
	CityID          int64      `json:"city_id" db:"city_id"`
	SurgeZoneID     *int64     `json:"surge_zone_id,omitempty" db:"surge_zone_id"`
	VehicleCategory string     `json:"vehicle_category" db:"vehicle_category"`
	PickupLat       float64    `json:"pickup_lat" db:"pickup_lat"`
	PickupLng       float64    `json:"pickup_lng" db:"pickup_lng"`
	DropLat         float64    `json:"drop_lat" db:"drop_lat"`
	DropLng         float64    `json:"drop_lng" db:"drop_lng"`
	Status          TripStatus `json:"status" db:"status"`
	FareAmount      float64    `json:"fare_amount" db:"fare_amount"`
	RequestedAt     time.Time  `json:"requested_at" db:"requested_at"`
	AssignedAt      *time.Time `json:"assigned_at,omitempty" db:"assigned_at"`
	ArrivedAt       *time.Time `json:"arrived_at,omitempty" db:"arrived_at"`
	PickedUpAt      *time.Time `json:"picked_up_at,omitempty" db:"picked_up_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`

	// Pickup OTP fields, managed by the trips service only
	PickupOTP         *string    `json:"-" db:"pickup_otp"`
	OTPExpiresAt      *time.Time `json:"-" db:"otp_expires_at"`
	OTPAttempts       int        `json:"-" db:"otp_attempts"`
	OTPVerifiedAt     *time.Time `json:"-" db:"otp_verified_at"`
}

// HasActiveOTP reports whether an OTP is set and unexpired at now
func (t *Trip) HasActiveOTP(now time.Time) bool {
	return t.PickupOTP != nil && t.OTPExpiresAt != nil && now.Before(*t.OTPExpiresAt)
}

// AttemptResponse represents the terminal or pending state of a dispatch attempt.
// Pending states encode the wave as PENDING_WAVE_n.
type AttemptResponse string

const (
	AttemptAccepted  AttemptResponse = "ACCEPTED"
	AttemptRejected  AttemptResponse = "REJECTED"
	AttemptCancelled AttemptResponse = "CANCELLED"
	AttemptTimeout   AttemptResponse = "TIMEOUT"
)

// PendingResponsePrefix starts every live offer response value
const PendingResponsePrefix = "PENDING_WAVE_"

// IsPending reports whether the response still awaits the driver
func (r AttemptResponse) IsPending() bool {
	return strings.HasPrefix(string(r), PendingResponsePrefix)
}

// PendingResponse builds the response value for a wave
func PendingResponse(wave int) AttemptResponse {
	return AttemptResponse(fmt.Sprintf("%s%d", PendingResponsePrefix, wave))
}

// DispatchAttempt is one offer of a trip to a driver within a wave
type DispatchAttempt struct {
	AttemptID   int64           `json:"attempt_id" db:"attempt_id"`
	TripID      int64           `json:"trip_id" db:"trip_id"`
	DriverID    int64           `json:"driver_id" db:"driver_id"`
	WaveNumber  int             `json:"wave_number" db:"wave_number"`
	SentAt      time.Time       `json:"sent_at" db:"sent_at"`
	RespondedAt *time.Time      `json:"responded_at,omitempty" db:"responded_at"`
	Response    AttemptResponse `json:"response" db:"response"`
}
