package trips

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/swiftride/dispatch-core/pkg/common"
	"github.com/swiftride/dispatch-core/pkg/middleware"
	"github.com/swiftride/dispatch-core/pkg/models"
)

// Handler handles HTTP requests for trips
type Handler struct {
	service ServiceInterface
}

// NewHandler creates a new trips handler
func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

// CreateTrip requests a new trip for the calling rider
// POST /trips
func (h *Handler) CreateTrip(c *gin.Context) {
	riderID, ok := common.RequireUserID(c, middleware.GetUserID)
	if !ok {
		return
	}

	var req CreateTripRequest
	if !common.BindJSON(c, &req) {
		return
	}

	view, err := h.service.CreateTrip(c.Request.Context(), riderID, &req)
	if err != nil {
		common.HandleServiceError(c, err, "failed to create trip")
		return
	}

	common.CreatedResponse(c, view)
}

// GetTrip returns a trip to its rider, assigned driver or an admin
// GET /trips/:id
func (h *Handler) GetTrip(c *gin.Context) {
	callerID, ok := common.RequireUserID(c, middleware.GetUserID)
	if !ok {
		return
	}
	tripID, ok := common.ParseIDParam(c, "id", "trip ID")
	if !ok {
		return
	}
	role, err := middleware.GetUserRole(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	view, err := h.service.GetTrip(c.Request.Context(), tripID, callerID, role)
	if err != nil {
		common.HandleServiceError(c, err, "failed to get trip")
		return
	}

	common.SuccessResponse(c, view)
}

// CancelTrip cancels the calling rider's trip
// POST /trips/:id/cancel
func (h *Handler) CancelTrip(c *gin.Context) {
	callerID, ok := common.RequireUserID(c, middleware.GetUserID)
	if !ok {
		return
	}
	tripID, ok := common.ParseIDParam(c, "id", "trip ID")
	if !ok {
		return
	}

	view, err := h.service.CancelTrip(c.Request.Context(), tripID, callerID)
	if err != nil {
		common.HandleServiceError(c, err, "failed to cancel trip")
		return
	}

	common.SuccessResponse(c, view)
}

// Arrive marks the calling driver as arrived at pickup
// POST /trips/:id/arrive
func (h *Handler) Arrive(c *gin.Context) {
	driverID, ok := common.RequireUserID(c, middleware.GetUserID)
	if !ok {
		return
	}
	tripID, ok := common.ParseIDParam(c, "id", "trip ID")
	if !ok {
		return
	}

	view, err := h.service.Arrive(c.Request.Context(), tripID, driverID)
	if err != nil {
		common.HandleServiceError(c, err, "failed to mark arrival")
		return
	}

	common.SuccessResponse(c, view)
}

// GenerateOTP issues a fresh pickup code to the calling rider
// POST /trips/:id/otp
func (h *Handler) GenerateOTP(c *gin.Context) {
	riderID, ok := common.RequireUserID(c, middleware.GetUserID)
	if !ok {
		return
	}
	tripID, ok := common.ParseIDParam(c, "id", "trip ID")
	if !ok {
		return
	}

	issue, err := h.service.GenerateOTP(c.Request.Context(), tripID, riderID)
	if err != nil {
		common.HandleServiceError(c, err, "failed to generate pickup code")
		return
	}

	common.SuccessResponse(c, issue)
}

// VerifyOTP checks the calling driver's submitted pickup code
// POST /trips/:id/otp/verify
func (h *Handler) VerifyOTP(c *gin.Context) {
	driverID, ok := common.RequireUserID(c, middleware.GetUserID)
	if !ok {
		return
	}
	tripID, ok := common.ParseIDParam(c, "id", "trip ID")
	if !ok {
		return
	}

	var req VerifyOTPRequest
	if !common.BindJSON(c, &req) {
		return
	}

	result, err := h.service.VerifyOTP(c.Request.Context(), tripID, driverID, req.OTP)
	if err != nil {
		common.HandleServiceError(c, err, "failed to verify pickup code")
		return
	}

	common.SuccessResponse(c, result)
}

// Pickup starts the ride after OTP verification
// POST /trips/:id/pickup
func (h *Handler) Pickup(c *gin.Context) {
	driverID, ok := common.RequireUserID(c, middleware.GetUserID)
	if !ok {
		return
	}
	tripID, ok := common.ParseIDParam(c, "id", "trip ID")
	if !ok {
		return
	}

	view, err := h.service.Pickup(c.Request.Context(), tripID, driverID)
	if err != nil {
		common.HandleServiceError(c, err, "failed to start trip")
		return
	}

	common.SuccessResponse(c, view)
}

// Complete finishes the ride
// POST /trips/:id/complete
func (h *Handler) Complete(c *gin.Context) {
	driverID, ok := common.RequireUserID(c, middleware.GetUserID)
	if !ok {
		return
	}
	tripID, ok := common.ParseIDParam(c, "id", "trip ID")
	if !ok {
		return
	}

	view, err := h.service.Complete(c.Request.Context(), tripID, driverID)
	if err != nil {
		common.HandleServiceError(c, err, "failed to complete trip")
		return
	}

	common.SuccessResponse(c, view)
}

// AttemptsForTrip returns the dispatch audit trail of a trip
// GET /trips/:id/attempts
func (h *Handler) AttemptsForTrip(c *gin.Context) {
	callerID, ok := common.RequireUserID(c, middleware.GetUserID)
	if !ok {
		return
	}
	tripID, ok := common.ParseIDParam(c, "id", "trip ID")
	if !ok {
		return
	}
	role, err := middleware.GetUserRole(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	attempts, err := h.service.AttemptsForTrip(c.Request.Context(), tripID, callerID, role)
	if err != nil {
		common.HandleServiceError(c, err, "failed to list attempts")
		return
	}

	common.SuccessResponse(c, attempts)
}

// RegisterRoutes registers trip routes on the router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	trips := rg.Group("/trips")
	{
		trips.POST("", middleware.RequireRole(models.RoleRider), h.CreateTrip)
		trips.GET("/:id", h.GetTrip)
		trips.GET("/:id/attempts", h.AttemptsForTrip)
		trips.POST("/:id/cancel", middleware.RequireRole(models.RoleRider), h.CancelTrip)
		trips.POST("/:id/otp", middleware.RequireRole(models.RoleRider), h.GenerateOTP)

		trips.POST("/:id/arrive", middleware.RequireRole(models.RoleDriver), h.Arrive)
		trips.POST("/:id/otp/verify", middleware.RequireRole(models.RoleDriver), h.VerifyOTP)
		trips.POST("/:id/pickup", middleware.RequireRole(models.RoleDriver), h.Pickup)
		trips.POST("/:id/complete", middleware.RequireRole(models.RoleDriver), h.Complete)
	}
}
