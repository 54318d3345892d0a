package models

import (
	"encoding/json"
	"time"
)

// TenantStatus represents the lifecycle status of a tenant
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "ACTIVE"
	TenantStatusSuspended TenantStatus = "SUSPENDED"
	TenantStatusClosed    TenantStatus = "CLOSED"
)

// Tenant is the top-level isolation boundary. Drivers and fleets belong to
// exactly one tenant; a trip inherits its tenant from the accepting driver.
type Tenant struct {
	TenantID   int64        `json:"tenant_id" db:"tenant_id"`
	TenantCode string       `json:"tenant_code" db:"tenant_code"`
	Name       string       `json:"name" db:"name"`
	Status     TenantStatus `json:"status" db:"status"`
	Currency   string       `json:"currency" db:"currency"`
	Timezone   string       `json:"timezone" db:"timezone"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
}

// City is a serviceable area with an optional GeoJSON boundary. The boundary
// is stored raw and parsed on read; only the outer ring is evaluated.
type City struct {
	CityID   int64           `json:"city_id" db:"city_id"`
	Name     string          `json:"name" db:"name"`
	Boundary json.RawMessage `json:"boundary,omitempty" db:"boundary"`
	IsActive bool            `json:"is_active" db:"is_active"`
}

// SurgeZone is a time-bounded polygon inside a city carrying a fare
// multiplier of at least 1.0.
type SurgeZone struct {
	SurgeZoneID int64           `json:"surge_zone_id" db:"surge_zone_id"`
	CityID      int64           `json:"city_id" db:"city_id"`
	Name        string          `json:"name" db:"name"`
	Polygon     json.RawMessage `json:"polygon" db:"polygon"`
	Multiplier  float64         `json:"multiplier" db:"multiplier"`
	StartsAt    time.Time       `json:"starts_at" db:"starts_at"`
	EndsAt      time.Time       `json:"ends_at" db:"ends_at"`
	IsActive    bool            `json:"is_active" db:"is_active"`
}
