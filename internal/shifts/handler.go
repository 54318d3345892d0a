package shifts

import (
	"github.com/gin-gonic/gin"

	"github.com/swiftride/dispatch-core/pkg/common"
	"github.com/swiftride/dispatch-core/pkg/middleware"
	"github.com/swiftride/dispatch-core/pkg/models"
)

// Handler handles HTTP requests for driver shifts
type Handler struct {
	service ServiceInterface
}

// NewHandler creates a new shifts handler
func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

// StartShift brings the calling driver online
// POST /drivers/shift/start
func (h *Handler) StartShift(c *gin.Context) {
	driverID, ok := common.RequireUserID(c, middleware.GetUserID)
	if !ok {
		return
	}

	shift, err := h.service.StartShift(c.Request.Context(), driverID)
	if err != nil {
		common.HandleServiceError(c, err, "failed to start shift")
		return
	}

	common.CreatedResponse(c, shift)
}

// EndShift takes the calling driver offline
// POST /drivers/shift/end
func (h *Handler) EndShift(c *gin.Context) {
	driverID, ok := common.RequireUserID(c, middleware.GetUserID)
	if !ok {
		return
	}

	if err := h.service.EndShift(c.Request.Context(), driverID); err != nil {
		common.HandleServiceError(c, err, "failed to end shift")
		return
	}

	common.SuccessResponse(c, gin.H{"ended": true})
}

// GetShift returns the calling driver's open shift
// GET /drivers/shift
func (h *Handler) GetShift(c *gin.Context) {
	driverID, ok := common.RequireUserID(c, middleware.GetUserID)
	if !ok {
		return
	}

	shift, err := h.service.GetShift(c.Request.Context(), driverID)
	if err != nil {
		common.HandleServiceError(c, err, "failed to get shift")
		return
	}

	common.SuccessResponse(c, shift)
}

// Readiness returns the go-online checklist for the calling driver
// GET /drivers/readiness
func (h *Handler) Readiness(c *gin.Context) {
	driverID, ok := common.RequireUserID(c, middleware.GetUserID)
	if !ok {
		return
	}

	checklist, err := h.service.Readiness(c.Request.Context(), driverID)
	if err != nil {
		common.HandleServiceError(c, err, "failed to evaluate readiness")
		return
	}

	common.SuccessResponse(c, checklist)
}

// EndAssignment releases the calling driver's vehicle
// POST /drivers/assignment/end
func (h *Handler) EndAssignment(c *gin.Context) {
	driverID, ok := common.RequireUserID(c, middleware.GetUserID)
	if !ok {
		return
	}

	if err := h.service.EndAssignment(c.Request.Context(), driverID); err != nil {
		common.HandleServiceError(c, err, "failed to end assignment")
		return
	}

	common.SuccessResponse(c, gin.H{"ended": true})
}

// RegisterRoutes registers shift routes on the router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	drivers := rg.Group("/drivers", middleware.RequireRole(models.RoleDriver))
	{
		drivers.POST("/shift/start", h.StartShift)
		drivers.POST("/shift/end", h.EndShift)
		drivers.GET("/shift", h.GetShift)
		drivers.GET("/readiness", h.Readiness)
		drivers.POST("/assignment/end", h.EndAssignment)
	}
}
