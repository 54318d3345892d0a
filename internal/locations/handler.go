package locations

import (
	"github.com/gin-gonic/gin"

	"github.com/swiftride/dispatch-core/pkg/common"
	"github.com/swiftride/dispatch-core/pkg/middleware"
	"github.com/swiftride/dispatch-core/pkg/models"
)

// Handler handles HTTP requests for driver locations
type Handler struct {
	service ServiceInterface
}

// NewHandler creates a new locations handler
func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

// UpdateLocationRequest is the payload for a driver location ping
type UpdateLocationRequest struct {
	Latitude  float64 `json:"latitude" binding:"required,latitude"`
	Longitude float64 `json:"longitude" binding:"required,longitude"`
}

// UpdateLocation records the calling driver's position
// POST /drivers/location
func (h *Handler) UpdateLocation(c *gin.Context) {
	driverID, ok := common.RequireUserID(c, middleware.GetUserID)
	if !ok {
		return
	}

	var req UpdateLocationRequest
	if !common.BindJSON(c, &req) {
		return
	}

	loc, err := h.service.UpdateLocation(c.Request.Context(), driverID, req.Latitude, req.Longitude)
	if err != nil {
		common.HandleServiceError(c, err, "failed to update location")
		return
	}

	common.SuccessResponse(c, loc)
}

// GetLocation returns the calling driver's last-known position
// GET /drivers/location
func (h *Handler) GetLocation(c *gin.Context) {
	driverID, ok := common.RequireUserID(c, middleware.GetUserID)
	if !ok {
		return
	}

	loc, err := h.service.GetLocation(c.Request.Context(), driverID)
	if err != nil {
		common.HandleServiceError(c, err, "failed to get location")
		return
	}

	common.SuccessResponse(c, loc)
}

// RegisterRoutes registers location routes on the router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	drivers := rg.Group("/drivers", middleware.RequireRole(models.RoleDriver))
	{
		drivers.POST("/location", h.UpdateLocation)
		drivers.GET("/location", h.GetLocation)
	}
}
