package eventbus

import "time"

// TripRequestedData is emitted when a rider requests a trip, before the first
// dispatch wave is created.
type TripRequestedData struct {
	TripID          int64     `json:"trip_id"`
	RiderID         int64     `json:"rider_id"`
	CityID          int64     `json:"city_id"`
	VehicleCategory string    `json:"vehicle_category"`
	PickupLat       float64   `json:"pickup_lat"`
	PickupLng       float64   `json:"pickup_lng"`
	DropLat         float64   `json:"drop_lat"`
	DropLng         float64   `json:"drop_lng"`
	FareAmount      float64   `json:"fare_amount"`
	RequestedAt     time.Time `json:"requested_at"`
}

// TripAssignedData is emitted when a driver wins the acceptance race.
type TripAssignedData struct {
	TripID     int64     `json:"trip_id"`
	RiderID    int64     `json:"rider_id"`
	DriverID   int64     `json:"driver_id"`
	VehicleID  int64     `json:"vehicle_id"`
	TenantID   int64     `json:"tenant_id"`
	AssignedAt time.Time `json:"assigned_at"`
}

// TripStatusData is emitted on arrived, picked up and completed transitions.
type TripStatusData struct {
	TripID   int64     `json:"trip_id"`
	RiderID  int64     `json:"rider_id"`
	DriverID int64     `json:"driver_id"`
	Status   string    `json:"status"`
	At       time.Time `json:"at"`
}

// TripCancelledData is emitted when a trip is cancelled by the rider or by
// dispatch exhaustion.
type TripCancelledData struct {
	TripID      int64     `json:"trip_id"`
	RiderID     int64     `json:"rider_id"`
	DriverID    *int64    `json:"driver_id,omitempty"`
	CancelledBy string    `json:"cancelled_by"` // "rider" or "dispatch"
	CancelledAt time.Time `json:"cancelled_at"`
}

// OfferSentData is emitted per dispatch attempt when a wave is created.
type OfferSentData struct {
	AttemptID  int64     `json:"attempt_id"`
	TripID     int64     `json:"trip_id"`
	DriverID   int64     `json:"driver_id"`
	WaveNumber int       `json:"wave_number"`
	RadiusKm   float64   `json:"radius_km"`
	SentAt     time.Time `json:"sent_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// OfferRespondedData is emitted when an offer reaches a terminal response.
type OfferRespondedData struct {
	AttemptID   int64     `json:"attempt_id"`
	TripID      int64     `json:"trip_id"`
	DriverID    int64     `json:"driver_id"`
	Response    string    `json:"response"`
	RespondedAt time.Time `json:"responded_at"`
}

// DriverPresenceData is emitted when a driver shift starts or ends.
type DriverPresenceData struct {
	DriverID int64     `json:"driver_id"`
	ShiftID  int64     `json:"shift_id"`
	TenantID int64     `json:"tenant_id"`
	At       time.Time `json:"at"`
}
