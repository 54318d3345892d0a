package models

import "time"

// ApprovalStatus is shared by drivers, fleets and vehicles
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// DriverType distinguishes owner-operators from fleet employees
type DriverType string

const (
	DriverTypeIndividual DriverType = "INDIVIDUAL"
	DriverTypeBusiness   DriverType = "BUSINESS"
)

// DriverProfile is the driver-side extension of a user row. DriverID equals
// the user id.
type DriverProfile struct {
	DriverID          int64          `json:"driver_id" db:"driver_id"`
	TenantID          int64          `json:"tenant_id" db:"tenant_id"`
	DriverType        DriverType     `json:"driver_type" db:"driver_type"`
	ApprovalStatus    ApprovalStatus `json:"approval_status" db:"approval_status"`
	AllowedCategories []string       `json:"allowed_vehicle_categories" db:"allowed_vehicle_categories"`
	CreatedAt         time.Time      `json:"created_at" db:"created_at"`
}

// FleetType mirrors DriverType at the fleet level
type FleetType string

const (
	FleetTypeBusiness   FleetType = "BUSINESS"
	FleetTypeIndividual FleetType = "INDIVIDUAL"
)

// Fleet groups vehicles under an owner. INDIVIDUAL fleets are auto-created on
// driver approval and owned by the driver themselves.
type Fleet struct {
	FleetID        int64          `json:"fleet_id" db:"fleet_id"`
	TenantID       int64          `json:"tenant_id" db:"tenant_id"`
	OwnerUserID    int64          `json:"owner_user_id" db:"owner_user_id"`
	Name           string         `json:"name" db:"name"`
	FleetType      FleetType      `json:"fleet_type" db:"fleet_type"`
	ApprovalStatus ApprovalStatus `json:"approval_status" db:"approval_status"`
	Status         string         `json:"status" db:"status"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
}

// FleetDriver links a driver to a fleet for a period. At most one row per
// driver has a null end_date.
type FleetDriver struct {
	FleetDriverID int64      `json:"fleet_driver_id" db:"fleet_driver_id"`
	FleetID       int64      `json:"fleet_id" db:"fleet_id"`
	DriverID      int64      `json:"driver_id" db:"driver_id"`
	StartDate     time.Time  `json:"start_date" db:"start_date"`
	EndDate       *time.Time `json:"end_date,omitempty" db:"end_date"`
}

// Vehicle belongs to a fleet and carries a category such as SEDAN or AUTO
type Vehicle struct {
	VehicleID      int64          `json:"vehicle_id" db:"vehicle_id"`
	FleetID        int64          `json:"fleet_id" db:"fleet_id"`
	Category       string         `json:"category" db:"category"`
	RegistrationNo string         `json:"registration_no" db:"registration_no"`
	ApprovalStatus ApprovalStatus `json:"approval_status" db:"approval_status"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
}

// Vehicle document types required before a driver can go online
const (
	DocTypeRC           = "RC"
	DocTypeInsurance    = "INSURANCE"
	DocTypeVehiclePhoto = "VEHICLE_PHOTO"
)

// RequiredVehicleDocs lists the document types checked by shift readiness
var RequiredVehicleDocs = []string{DocTypeRC, DocTypeInsurance, DocTypeVehiclePhoto}

// VehicleDocument records an uploaded document. Storage of the file itself is
// owned by an external service; only the presence matters here.
type VehicleDocument struct {
	DocumentID int64     `json:"document_id" db:"document_id"`
	VehicleID  int64     `json:"vehicle_id" db:"vehicle_id"`
	DocType    string    `json:"doc_type" db:"doc_type"`
	FileRef    string    `json:"file_ref" db:"file_ref"`
	UploadedAt time.Time `json:"uploaded_at" db:"uploaded_at"`
}

// DriverVehicleAssignment binds a driver to a vehicle for a period. At most
// one row per driver has a null end_time, and the vehicle's fleet must equal
// the driver's active fleet.
type DriverVehicleAssignment struct {
	AssignmentID int64      `json:"assignment_id" db:"assignment_id"`
	DriverID     int64      `json:"driver_id" db:"driver_id"`
	VehicleID    int64      `json:"vehicle_id" db:"vehicle_id"`
	StartTime    time.Time  `json:"start_time" db:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty" db:"end_time"`
}

// ShiftStatus represents the runtime state of a driver shift
type ShiftStatus string

const (
	ShiftStatusOnline  ShiftStatus = "ONLINE"
	ShiftStatusBusy    ShiftStatus = "BUSY"
	ShiftStatusOffline ShiftStatus = "OFFLINE"
)

// DriverShift is a driver's continuous online presence. At most one row per
// driver has a null ended_at.
type DriverShift struct {
	ShiftID   int64       `json:"shift_id" db:"shift_id"`
	DriverID  int64       `json:"driver_id" db:"driver_id"`
	TenantID  int64       `json:"tenant_id" db:"tenant_id"`
	VehicleID int64       `json:"vehicle_id" db:"vehicle_id"`
	Status    ShiftStatus `json:"status" db:"status"`
	StartedAt time.Time   `json:"started_at" db:"started_at"`
	EndedAt   *time.Time  `json:"ended_at,omitempty" db:"ended_at"`
}

// DriverLocation is the durable last-known position, one row per driver
type DriverLocation struct {
	DriverID    int64     `json:"driver_id" db:"driver_id"`
	Latitude    float64   `json:"latitude" db:"latitude"`
	Longitude   float64   `json:"longitude" db:"longitude"`
	LastUpdated time.Time `json:"last_updated" db:"last_updated"`
}

// DriverLocationHistory is the append-only audit trail of every ping
type DriverLocationHistory struct {
	HistoryID  int64     `json:"history_id" db:"history_id"`
	DriverID   int64     `json:"driver_id" db:"driver_id"`
	Latitude   float64   `json:"latitude" db:"latitude"`
	Longitude  float64   `json:"longitude" db:"longitude"`
	RecordedAt time.Time `json:"recorded_at" db:"recorded_at"`
}
