package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error types
var (
	ErrNotFound       = errors.New("resource not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")
	ErrConflict       = errors.New("resource conflict")
	ErrValidation     = errors.New("validation error")
)

// Machine-readable error codes. Handlers pass them through unchanged so
// clients can branch on them instead of parsing messages.
const (
	CodeNotFound          = "NOT_FOUND"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeValidation        = "VALIDATION_ERROR"
	CodeIllegalTransition = "ILLEGAL_TRANSITION"
	CodeAlreadyExists     = "ALREADY_EXISTS"
	CodeAlreadyAssigned   = "ALREADY_ASSIGNED"
	CodeAlreadyResponded  = "ALREADY_RESPONDED"
	CodeOfferExpired      = "OFFER_EXPIRED"
	CodeInvalidOffer      = "INVALID_OFFER"
	CodeOutOfService      = "OUT_OF_SERVICE"
	CodeCrossCity         = "CROSS_CITY"
	CodeConfigMissing     = "CONFIG_MISSING"
	CodeInternal          = "INTERNAL_ERROR"

	// Driver runtime precondition codes
	CodeNotApproved          = "NOT_APPROVED"
	CodeNoActiveFleet        = "NO_ACTIVE_FLEET"
	CodeNoActiveVehicle      = "NO_ACTIVE_VEHICLE"
	CodeFleetVehicleMismatch = "FLEET_VEHICLE_MISMATCH"
	CodeMissingVehicleDocs   = "MISSING_VEHICLE_DOCS"
	CodeAlreadyOnline        = "ALREADY_ONLINE"
	CodeNoActiveShift        = "NO_ACTIVE_SHIFT"
	CodeOnTrip               = "ON_TRIP"
	CodeShiftOpen            = "SHIFT_OPEN"
	CodeActiveTripExists     = "ACTIVE_TRIP_EXISTS"
	CodeUserInactive         = "USER_INACTIVE"
)

// AppError represents an application error with HTTP status code and a
// machine-readable error code. Details carries structured context such as
// entity ids or missing document types.
type AppError struct {
	Code      int                    `json:"code"`
	ErrorCode string                 `json:"error_code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Err       error                  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail attaches a single structured context value and returns the error
// for chaining.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewAppError creates a new AppError
func NewAppError(code int, errorCode, message string, err error) *AppError {
	return &AppError{
		Code:      code,
		ErrorCode: errorCode,
		Message:   message,
		Err:       err,
	}
}

func NewNotFoundError(entity string, id int64) *AppError {
	return &AppError{
		Code:      http.StatusNotFound,
		ErrorCode: CodeNotFound,
		Message:   fmt.Sprintf("%s not found", entity),
		Details:   map[string]interface{}{"entity": entity, "id": id},
		Err:       ErrNotFound,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:      http.StatusUnauthorized,
		ErrorCode: CodeUnauthorized,
		Message:   message,
		Err:       ErrUnauthorized,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:      http.StatusForbidden,
		ErrorCode: CodeForbidden,
		Message:   message,
		Err:       ErrForbidden,
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:      http.StatusBadRequest,
		ErrorCode: CodeValidation,
		Message:   message,
		Err:       ErrValidation,
	}
}

// NewIllegalTransitionError reports a lifecycle guard failure on an entity.
func NewIllegalTransitionError(entity, from, to string) *AppError {
	return &AppError{
		Code:      http.StatusBadRequest,
		ErrorCode: CodeIllegalTransition,
		Message:   fmt.Sprintf("cannot transition %s from %s to %s", entity, from, to),
		Details:   map[string]interface{}{"entity": entity, "from": from, "to": to},
		Err:       ErrBadRequest,
	}
}

func NewAlreadyExistsError(entity, key string) *AppError {
	return &AppError{
		Code:      http.StatusConflict,
		ErrorCode: CodeAlreadyExists,
		Message:   fmt.Sprintf("%s already exists", entity),
		Details:   map[string]interface{}{"entity": entity, "key": key},
		Err:       ErrConflict,
	}
}

// NewAlreadyAssignedError is returned to acceptance losers. It never exposes
// the winning driver's identity.
func NewAlreadyAssignedError(tripID int64) *AppError {
	return &AppError{
		Code:      http.StatusConflict,
		ErrorCode: CodeAlreadyAssigned,
		Message:   "trip already assigned",
		Details:   map[string]interface{}{"trip_id": tripID},
		Err:       ErrConflict,
	}
}

func NewAlreadyRespondedError(attemptID int64, prior string) *AppError {
	return &AppError{
		Code:      http.StatusConflict,
		ErrorCode: CodeAlreadyResponded,
		Message:   "offer already responded",
		Details:   map[string]interface{}{"attempt_id": attemptID, "prior": prior},
		Err:       ErrConflict,
	}
}

func NewOfferExpiredError(attemptID int64) *AppError {
	return &AppError{
		Code:      http.StatusConflict,
		ErrorCode: CodeOfferExpired,
		Message:   "offer expired",
		Details:   map[string]interface{}{"attempt_id": attemptID},
		Err:       ErrConflict,
	}
}

// NewPreconditionError reports a failed driver runtime check. The errorCode
// names the specific precondition (CodeNotApproved, CodeNoActiveFleet, ...).
func NewPreconditionError(errorCode, message string) *AppError {
	return &AppError{
		Code:      http.StatusBadRequest,
		ErrorCode: errorCode,
		Message:   message,
		Err:       ErrBadRequest,
	}
}

func NewOutOfServiceError(which string) *AppError {
	return &AppError{
		Code:      http.StatusBadRequest,
		ErrorCode: CodeOutOfService,
		Message:   fmt.Sprintf("%s location is not in a serviceable city", which),
		Details:   map[string]interface{}{"location": which},
		Err:       ErrBadRequest,
	}
}

func NewCrossCityError() *AppError {
	return &AppError{
		Code:      http.StatusBadRequest,
		ErrorCode: CodeCrossCity,
		Message:   "pickup and drop locations are in different cities",
		Err:       ErrBadRequest,
	}
}

func NewConfigMissingError(cityID int64, category string) *AppError {
	return &AppError{
		Code:      http.StatusUnprocessableEntity,
		ErrorCode: CodeConfigMissing,
		Message:   "no fare configuration for city and vehicle category",
		Details:   map[string]interface{}{"city_id": cityID, "vehicle_category": category},
		Err:       ErrBadRequest,
	}
}

func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Code:      http.StatusInternalServerError,
		ErrorCode: CodeInternal,
		Message:   message,
		Err:       err,
	}
}
