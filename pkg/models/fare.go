package models

import "time"

// FareConfig holds the pricing parameters for a city and vehicle category.
// Unique on (city_id, vehicle_category).
type FareConfig struct {
	FareConfigID    int64     `json:"fare_config_id" db:"fare_config_id"`
	CityID          int64     `json:"city_id" db:"city_id"`
	VehicleCategory string    `json:"vehicle_category" db:"vehicle_category"`
	BaseFare        float64   `json:"base_fare" db:"base_fare"`
	PerKm           float64   `json:"per_km" db:"per_km"`
	PerMinute       float64   `json:"per_minute" db:"per_minute"`
	MinimumFare     float64   `json:"minimum_fare" db:"minimum_fare"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// FareBreakdown is the result of a fare calculation. FinalFare is the value
// locked onto the trip.
type FareBreakdown struct {
	DistanceKm      float64 `json:"distance_km"`
	EstMinutes      float64 `json:"est_minutes"`
	BaseFare        float64 `json:"base_fare"`
	DistanceFare    float64 `json:"distance_fare"`
	TimeFare        float64 `json:"time_fare"`
	Subtotal        float64 `json:"subtotal"`
	SurgeMultiplier float64 `json:"surge_multiplier"`
	SurgeZoneID     *int64  `json:"surge_zone_id,omitempty"`
	MinimumFare     float64 `json:"minimum_fare"`
	FinalFare       float64 `json:"final_fare"`
}
