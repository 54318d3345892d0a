package trips

import (
	"time"

	"github.com/swiftride/dispatch-core/pkg/models"
)

// TripView is a trip as returned to callers. RiderName is present only for
// the assigned driver's view and is masked.
type TripView struct {
	*models.Trip
	RiderName string `json:"rider_name,omitempty"`
}

// OTPIssue is the result of generating a pickup OTP. The plain OTP goes to
// the rider only.
type OTPIssue struct {
	OTP       string    `json:"otp"`
	ExpiresAt time.Time `json:"expires_at"`
}

// VerifyOTPResult reports a verification attempt. RemainingAttempts is set
// only on a mismatch.
type VerifyOTPResult struct {
	Verified          bool `json:"verified"`
	RemainingAttempts *int `json:"remaining_attempts,omitempty"`
}

// CreateTripRequest is the payload for requesting a trip
type CreateTripRequest struct {
	VehicleCategory string  `json:"vehicle_category" binding:"required,vehicle_category"`
	PickupLat       float64 `json:"pickup_lat" binding:"required,latitude"`
	PickupLng       float64 `json:"pickup_lng" binding:"required,longitude"`
	DropLat         float64 `json:"drop_lat" binding:"required,latitude"`
	DropLng         float64 `json:"drop_lng" binding:"required,longitude"`
}

// VerifyOTPRequest is the payload for a driver's OTP check
type VerifyOTPRequest struct {
	OTP string `json:"otp" binding:"required,numeric"`
}
