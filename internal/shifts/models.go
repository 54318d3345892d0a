package shifts

import (
	"github.com/swiftride/dispatch-core/pkg/models"
)

// FleetLink is a driver's open fleet membership joined with fleet approval
type FleetLink struct {
	FleetDriver   models.FleetDriver    `json:"fleet_driver"`
	FleetID       int64                 `json:"fleet_id"`
	TenantID      int64                 `json:"tenant_id"`
	FleetApproval models.ApprovalStatus `json:"fleet_approval"`
}

// AssignmentInfo is a driver's open vehicle assignment joined with the vehicle
type AssignmentInfo struct {
	Assignment models.DriverVehicleAssignment `json:"assignment"`
	Vehicle    models.Vehicle                 `json:"vehicle"`
}

// ReadinessChecklist reports every go-online precondition without side
// effects. Ready is true only when all checks pass.
type ReadinessChecklist struct {
	Approved          bool     `json:"approved"`
	ActiveFleet       bool     `json:"active_fleet"`
	ActiveVehicle     bool     `json:"active_vehicle"`
	FleetVehicleMatch bool     `json:"fleet_vehicle_match"`
	DocsComplete      bool     `json:"docs_complete"`
	MissingDocs       []string `json:"missing_docs,omitempty"`
	AlreadyOnline     bool     `json:"already_online"`
	Ready             bool     `json:"ready"`
}
