package dispatch

import (
	"github.com/gin-gonic/gin"

	"github.com/swiftride/dispatch-core/pkg/common"
	"github.com/swiftride/dispatch-core/pkg/middleware"
	"github.com/swiftride/dispatch-core/pkg/models"
)

// Handler handles HTTP requests for dispatch waves and offers
type Handler struct {
	service ServiceInterface
}

// NewHandler creates a new dispatch handler
func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

// AdvanceWave moves a dispatching trip to its next wave
// POST /dispatch/trips/:id/advance
func (h *Handler) AdvanceWave(c *gin.Context) {
	tripID, ok := common.ParseIDParam(c, "id", "trip ID")
	if !ok {
		return
	}

	result, err := h.service.AdvanceWave(c.Request.Context(), tripID)
	if err != nil {
		common.HandleServiceError(c, err, "failed to advance wave")
		return
	}

	common.SuccessResponse(c, result)
}

// AcceptOffer claims a trip for the calling driver
// POST /drivers/offers/:trip_id/accept
func (h *Handler) AcceptOffer(c *gin.Context) {
	driverID, ok := common.RequireUserID(c, middleware.GetUserID)
	if !ok {
		return
	}
	tripID, ok := common.ParseIDParam(c, "trip_id", "trip ID")
	if !ok {
		return
	}

	result, err := h.service.AcceptOffer(c.Request.Context(), driverID, tripID)
	if err != nil {
		common.HandleServiceError(c, err, "failed to accept offer")
		return
	}

	common.SuccessResponse(c, result.Trip)
}

// RejectOffer records the calling driver's rejection
// POST /drivers/offers/:trip_id/reject
func (h *Handler) RejectOffer(c *gin.Context) {
	driverID, ok := common.RequireUserID(c, middleware.GetUserID)
	if !ok {
		return
	}
	tripID, ok := common.ParseIDParam(c, "trip_id", "trip ID")
	if !ok {
		return
	}

	attempt, err := h.service.RejectOffer(c.Request.Context(), driverID, tripID)
	if err != nil {
		common.HandleServiceError(c, err, "failed to reject offer")
		return
	}

	common.SuccessResponse(c, attempt)
}

// PendingOffers lists the calling driver's live offers
// GET /drivers/offers
func (h *Handler) PendingOffers(c *gin.Context) {
	driverID, ok := common.RequireUserID(c, middleware.GetUserID)
	if !ok {
		return
	}

	offers, err := h.service.PendingOffers(c.Request.Context(), driverID)
	if err != nil {
		common.HandleServiceError(c, err, "failed to list offers")
		return
	}

	common.SuccessResponse(c, offers)
}

// AttemptsForTrip returns the offer audit trail of a trip
// GET /dispatch/trips/:id/attempts
func (h *Handler) AttemptsForTrip(c *gin.Context) {
	tripID, ok := common.ParseIDParam(c, "id", "trip ID")
	if !ok {
		return
	}

	attempts, err := h.service.AttemptsForTrip(c.Request.Context(), tripID)
	if err != nil {
		common.HandleServiceError(c, err, "failed to list attempts")
		return
	}

	common.SuccessResponse(c, attempts)
}

// RegisterRoutes registers dispatch routes on the router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	admin := rg.Group("/dispatch", middleware.RequireRole(models.RoleAdmin))
	{
		admin.POST("/trips/:id/advance", h.AdvanceWave)
		admin.GET("/trips/:id/attempts", h.AttemptsForTrip)
	}

	drivers := rg.Group("/drivers", middleware.RequireRole(models.RoleDriver))
	{
		drivers.GET("/offers", h.PendingOffers)
		drivers.POST("/offers/:trip_id/accept", h.AcceptOffer)
		drivers.POST("/offers/:trip_id/reject", h.RejectOffer)
	}
}
