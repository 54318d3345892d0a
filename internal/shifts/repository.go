package shifts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/swiftride/dispatch-core/pkg/models"
)

// ErrShiftExists is returned when a concurrent start already opened a shift
// for the driver. The partial unique index on open shifts enforces this.
var ErrShiftExists = errors.New("driver already has an open shift")

// Repository handles database operations for shifts
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new shifts repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetDriverProfile retrieves a driver profile. Returns nil when absent.
func (r *Repository) GetDriverProfile(ctx context.Context, driverID int64) (*models.DriverProfile, error) {
	query := `
		SELECT driver_id, tenant_id, driver_type, approval_status,
		       allowed_vehicle_categories, created_at
		FROM driver_profiles
		WHERE driver_id = $1
	`

	p := &models.DriverProfile{}
	err := r.db.QueryRow(ctx, query, driverID).Scan(
		&p.DriverID, &p.TenantID, &p.DriverType, &p.ApprovalStatus,
		&p.AllowedCategories, &p.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get driver profile: %w", err)
	}

	return p, nil
}

// GetOpenFleetLink retrieves the driver's open fleet membership with the
// fleet's approval status. Returns nil when the driver has none.
func (r *Repository) GetOpenFleetLink(ctx context.Context, driverID int64) (*FleetLink, error) {
	query := `
		SELECT fd.fleet_driver_id, fd.fleet_id, fd.driver_id, fd.start_date, fd.end_date,
		       f.fleet_id, f.tenant_id, f.approval_status
		FROM fleet_drivers fd
		JOIN fleets f ON fd.fleet_id = f.fleet_id
		WHERE fd.driver_id = $1 AND fd.end_date IS NULL
	`

	link := &FleetLink{}
	err := r.db.QueryRow(ctx, query, driverID).Scan(
		&link.FleetDriver.FleetDriverID, &link.FleetDriver.FleetID,
		&link.FleetDriver.DriverID, &link.FleetDriver.StartDate, &link.FleetDriver.EndDate,
		&link.FleetID, &link.TenantID, &link.FleetApproval,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get fleet link: %w", err)
	}

	return link, nil
}

// GetOpenAssignment retrieves the driver's open vehicle assignment with the
// vehicle. Returns nil when the driver has none.
func (r *Repository) GetOpenAssignment(ctx context.Context, driverID int64) (*AssignmentInfo, error) {
	query := `
		SELECT a.assignment_id, a.driver_id, a.vehicle_id, a.start_time, a.end_time,
		       v.vehicle_id, v.fleet_id, v.category, v.registration_no, v.approval_status, v.created_at
		FROM driver_vehicle_assignments a
		JOIN vehicles v ON a.vehicle_id = v.vehicle_id
		WHERE a.driver_id = $1 AND a.end_time IS NULL
	`

	info := &AssignmentInfo{}
	err := r.db.QueryRow(ctx, query, driverID).Scan(
		&info.Assignment.AssignmentID, &info.Assignment.DriverID,
		&info.Assignment.VehicleID, &info.Assignment.StartTime, &info.Assignment.EndTime,
		&info.Vehicle.VehicleID, &info.Vehicle.FleetID, &info.Vehicle.Category,
		&info.Vehicle.RegistrationNo, &info.Vehicle.ApprovalStatus, &info.Vehicle.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	return info, nil
}

// ListVehicleDocTypes retrieves the document types on file for a vehicle
func (r *Repository) ListVehicleDocTypes(ctx context.Context, vehicleID int64) ([]string, error) {
	query := `SELECT doc_type FROM vehicle_documents WHERE vehicle_id = $1`

	rows, err := r.db.Query(ctx, query, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicle documents: %w", err)
	}
	defer rows.Close()

	docTypes := make([]string, 0)
	for rows.Next() {
		var dt string
		if err := rows.Scan(&dt); err != nil {
			return nil, fmt.Errorf("failed to scan document type: %w", err)
		}
		docTypes = append(docTypes, dt)
	}

	return docTypes, nil
}

// GetOpenShift retrieves the driver's open shift. Returns nil when offline.
func (r *Repository) GetOpenShift(ctx context.Context, driverID int64) (*models.DriverShift, error) {
	query := `
		SELECT shift_id, driver_id, tenant_id, vehicle_id, status, started_at, ended_at
		FROM driver_shifts
		WHERE driver_id = $1 AND ended_at IS NULL
	`

	s := &models.DriverShift{}
	err := r.db.QueryRow(ctx, query, driverID).Scan(
		&s.ShiftID, &s.DriverID, &s.TenantID, &s.VehicleID,
		&s.Status, &s.StartedAt, &s.EndedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get shift: %w", err)
	}

	return s, nil
}

// CreateShift opens a new ONLINE shift. Returns ErrShiftExists when the
// driver already has one open.
func (r *Repository) CreateShift(ctx context.Context, driverID, tenantID, vehicleID int64) (*models.DriverShift, error) {
	query := `
		INSERT INTO driver_shifts (driver_id, tenant_id, vehicle_id, status)
		VALUES ($1, $2, $3, 'ONLINE')
		RETURNING shift_id, driver_id, tenant_id, vehicle_id, status, started_at, ended_at
	`

	s := &models.DriverShift{}
	err := r.db.QueryRow(ctx, query, driverID, tenantID, vehicleID).Scan(
		&s.ShiftID, &s.DriverID, &s.TenantID, &s.VehicleID,
		&s.Status, &s.StartedAt, &s.EndedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrShiftExists
		}
		return nil, fmt.Errorf("failed to create shift: %w", err)
	}

	return s, nil
}

// CloseShift ends a shift, setting it OFFLINE
func (r *Repository) CloseShift(ctx context.Context, shiftID int64) error {
	query := `
		UPDATE driver_shifts
		SET status = 'OFFLINE', ended_at = NOW()
		WHERE shift_id = $1 AND ended_at IS NULL
	`

	tag, err := r.db.Exec(ctx, query, shiftID)
	if err != nil {
		return fmt.Errorf("failed to close shift: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("shift %d already closed", shiftID)
	}

	return nil
}

// UpdateShiftStatus transitions an open shift from one status to another.
// Returns false when the shift was not in the expected status.
func (r *Repository) UpdateShiftStatus(ctx context.Context, shiftID int64, from, to models.ShiftStatus) (bool, error) {
	query := `
		UPDATE driver_shifts
		SET status = $3
		WHERE shift_id = $1 AND status = $2 AND ended_at IS NULL
	`

	tag, err := r.db.Exec(ctx, query, shiftID, from, to)
	if err != nil {
		return false, fmt.Errorf("failed to update shift status: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// EndAssignment closes an open vehicle assignment
func (r *Repository) EndAssignment(ctx context.Context, assignmentID int64) error {
	query := `
		UPDATE driver_vehicle_assignments
		SET end_time = NOW()
		WHERE assignment_id = $1 AND end_time IS NULL
	`

	tag, err := r.db.Exec(ctx, query, assignmentID)
	if err != nil {
		return fmt.Errorf("failed to end assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("assignment %d already ended", assignmentID)
	}

	return nil
}
