package shifts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/swiftride/dispatch-core/pkg/common"
	"github.com/swiftride/dispatch-core/pkg/eventbus"
	"github.com/swiftride/dispatch-core/pkg/logger"
	"github.com/swiftride/dispatch-core/pkg/models"
)

// EventPublisher is the slice of the event bus the service uses
type EventPublisher interface {
	Publish(ctx context.Context, subject string, event *eventbus.Event) error
}

// GeoIndex is the slice of the driver geo index the service uses
type GeoIndex interface {
	RemoveDriver(ctx context.Context, driverID int64) error
}

// Service handles shift lifecycle and go-online readiness
type Service struct {
	repo     RepositoryInterface
	geoIndex GeoIndex
	events   EventPublisher
}

// NewService creates a new shifts service. geoIndex and events may be nil.
func NewService(repo RepositoryInterface, geoIndex GeoIndex, events EventPublisher) *Service {
	return &Service{repo: repo, geoIndex: geoIndex, events: events}
}

// readinessState carries everything the precondition checks need
type readinessState struct {
	profile    *models.DriverProfile
	fleetLink  *FleetLink
	assignment *AssignmentInfo
	missing    []string
	openShift  *models.DriverShift
}

func (s *Service) loadReadiness(ctx context.Context, driverID int64) (*readinessState, error) {
	state := &readinessState{}

	profile, err := s.repo.GetDriverProfile(ctx, driverID)
	if err != nil {
		return nil, err
	}
	state.profile = profile
	if profile == nil || profile.ApprovalStatus != models.ApprovalApproved {
		return state, nil
	}

	link, err := s.repo.GetOpenFleetLink(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if link != nil && link.FleetApproval == models.ApprovalApproved {
		state.fleetLink = link
	}

	assignment, err := s.repo.GetOpenAssignment(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if assignment != nil && assignment.Vehicle.ApprovalStatus == models.ApprovalApproved {
		state.assignment = assignment
	}

	if state.assignment != nil {
		docTypes, err := s.repo.ListVehicleDocTypes(ctx, state.assignment.Vehicle.VehicleID)
		if err != nil {
			return nil, err
		}
		have := make(map[string]bool, len(docTypes))
		for _, dt := range docTypes {
			have[dt] = true
		}
		for _, required := range models.RequiredVehicleDocs {
			if !have[required] {
				state.missing = append(state.missing, required)
			}
		}
	}

	shift, err := s.repo.GetOpenShift(ctx, driverID)
	if err != nil {
		return nil, err
	}
	state.openShift = shift

	return state, nil
}

func (st *readinessState) fleetVehicleMatch() bool {
	return st.fleetLink != nil && st.assignment != nil &&
		st.assignment.Vehicle.FleetID == st.fleetLink.FleetID
}

// firstFailure returns the precondition error blocking go-online, checked in
// a fixed order, or nil when the driver may start a shift.
func (st *readinessState) firstFailure() *common.AppError {
	if st.profile == nil || st.profile.ApprovalStatus != models.ApprovalApproved {
		return common.NewPreconditionError(common.CodeNotApproved, "driver is not approved")
	}
	if st.fleetLink == nil {
		return common.NewPreconditionError(common.CodeNoActiveFleet, "driver has no active approved fleet")
	}
	if st.assignment == nil {
		return common.NewPreconditionError(common.CodeNoActiveVehicle, "driver has no active approved vehicle")
	}
	if !st.fleetVehicleMatch() {
		return common.NewPreconditionError(common.CodeFleetVehicleMismatch, "assigned vehicle does not belong to the driver's fleet")
	}
	if len(st.missing) > 0 {
		err := common.NewPreconditionError(common.CodeMissingVehicleDocs, "vehicle documents are incomplete")
		return err.WithDetail("missing_docs", st.missing)
	}
	if st.openShift != nil {
		return common.NewPreconditionError(common.CodeAlreadyOnline, "driver is already online")
	}
	return nil
}

// StartShift opens an ONLINE shift after all go-online preconditions pass
func (s *Service) StartShift(ctx context.Context, driverID int64) (*models.DriverShift, error) {
	state, err := s.loadReadiness(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if appErr := state.firstFailure(); appErr != nil {
		return nil, appErr
	}

	shift, err := s.repo.CreateShift(ctx, driverID, state.fleetLink.TenantID, state.assignment.Vehicle.VehicleID)
	if err != nil {
		if errors.Is(err, ErrShiftExists) {
			return nil, common.NewPreconditionError(common.CodeAlreadyOnline, "driver is already online")
		}
		return nil, err
	}

	s.publishPresence(ctx, eventbus.SubjectDriverOnline, shift)

	logger.InfoContext(ctx, "shift started",
		zap.Int64("driver_id", driverID),
		zap.Int64("shift_id", shift.ShiftID),
		zap.Int64("vehicle_id", shift.VehicleID),
	)

	return shift, nil
}

// EndShift closes the driver's open shift. A BUSY shift cannot be ended.
func (s *Service) EndShift(ctx context.Context, driverID int64) error {
	shift, err := s.repo.GetOpenShift(ctx, driverID)
	if err != nil {
		return err
	}
	if shift == nil {
		return common.NewPreconditionError(common.CodeNoActiveShift, "driver has no open shift")
	}
	if shift.Status == models.ShiftStatusBusy {
		return common.NewPreconditionError(common.CodeOnTrip, "cannot end shift during an active trip")
	}

	if err := s.repo.CloseShift(ctx, shift.ShiftID); err != nil {
		return err
	}

	if s.geoIndex != nil {
		if err := s.geoIndex.RemoveDriver(ctx, driverID); err != nil {
			logger.WarnContext(ctx, "failed to remove driver from geo index",
				zap.Int64("driver_id", driverID),
				zap.Error(err),
			)
		}
	}

	s.publishPresence(ctx, eventbus.SubjectDriverOffline, shift)

	logger.InfoContext(ctx, "shift ended",
		zap.Int64("driver_id", driverID),
		zap.Int64("shift_id", shift.ShiftID),
	)

	return nil
}

// GetShift returns the driver's open shift
func (s *Service) GetShift(ctx context.Context, driverID int64) (*models.DriverShift, error) {
	shift, err := s.repo.GetOpenShift(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if shift == nil {
		return nil, common.NewPreconditionError(common.CodeNoActiveShift, "driver has no open shift")
	}
	return shift, nil
}

// Readiness evaluates every go-online precondition without side effects
func (s *Service) Readiness(ctx context.Context, driverID int64) (*ReadinessChecklist, error) {
	state, err := s.loadReadiness(ctx, driverID)
	if err != nil {
		return nil, err
	}

	checklist := &ReadinessChecklist{
		Approved:          state.profile != nil && state.profile.ApprovalStatus == models.ApprovalApproved,
		ActiveFleet:       state.fleetLink != nil,
		ActiveVehicle:     state.assignment != nil,
		FleetVehicleMatch: state.fleetVehicleMatch(),
		DocsComplete:      state.assignment != nil && len(state.missing) == 0,
		MissingDocs:       state.missing,
		AlreadyOnline:     state.openShift != nil,
	}
	checklist.Ready = state.firstFailure() == nil

	return checklist, nil
}

// EndAssignment closes the driver's open vehicle assignment. Forbidden while
// a shift is open.
func (s *Service) EndAssignment(ctx context.Context, driverID int64) error {
	shift, err := s.repo.GetOpenShift(ctx, driverID)
	if err != nil {
		return err
	}
	if shift != nil {
		return common.NewPreconditionError(common.CodeShiftOpen, "end the shift before releasing the vehicle")
	}

	assignment, err := s.repo.GetOpenAssignment(ctx, driverID)
	if err != nil {
		return err
	}
	if assignment == nil {
		return common.NewNotFoundError("assignment", driverID)
	}

	return s.repo.EndAssignment(ctx, assignment.Assignment.AssignmentID)
}

// MarkBusy transitions the driver's open shift ONLINE -> BUSY
func (s *Service) MarkBusy(ctx context.Context, driverID int64) error {
	return s.transition(ctx, driverID, models.ShiftStatusOnline, models.ShiftStatusBusy)
}

// MarkOnline transitions the driver's open shift BUSY -> ONLINE
func (s *Service) MarkOnline(ctx context.Context, driverID int64) error {
	return s.transition(ctx, driverID, models.ShiftStatusBusy, models.ShiftStatusOnline)
}

func (s *Service) transition(ctx context.Context, driverID int64, from, to models.ShiftStatus) error {
	shift, err := s.repo.GetOpenShift(ctx, driverID)
	if err != nil {
		return err
	}
	if shift == nil {
		return common.NewPreconditionError(common.CodeNoActiveShift, "driver has no open shift")
	}

	ok, err := s.repo.UpdateShiftStatus(ctx, shift.ShiftID, from, to)
	if err != nil {
		return err
	}
	if !ok {
		return common.NewIllegalTransitionError("shift", string(shift.Status), string(to))
	}

	return nil
}

func (s *Service) publishPresence(ctx context.Context, subject string, shift *models.DriverShift) {
	if s.events == nil {
		return
	}

	event, err := eventbus.NewEvent(subject, "shifts", eventbus.DriverPresenceData{
		DriverID: shift.DriverID,
		ShiftID:  shift.ShiftID,
		TenantID: shift.TenantID,
		At:       time.Now().UTC(),
	})
	if err != nil {
		logger.WarnContext(ctx, "failed to build presence event", zap.Error(err))
		return
	}
	if err := s.events.Publish(ctx, subject, event); err != nil {
		logger.WarnContext(ctx, fmt.Sprintf("failed to publish %s event", subject), zap.Error(err))
	}
}
