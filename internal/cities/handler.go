package cities

import (
	"github.com/gin-gonic/gin"

	"github.com/swiftride/dispatch-core/pkg/common"
)

// Handler handles HTTP requests for cities
type Handler struct {
	service ServiceInterface
}

// NewHandler creates a new cities handler
func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

// ResolveCityRequest is the payload for city resolution
type ResolveCityRequest struct {
	Latitude  float64 `json:"latitude" binding:"required,latitude"`
	Longitude float64 `json:"longitude" binding:"required,longitude"`
}

// ListCities returns all active cities
// GET /cities
func (h *Handler) ListCities(c *gin.Context) {
	result, err := h.service.ListActiveCities(c.Request.Context())
	if err != nil {
		common.HandleServiceError(c, err, "failed to list cities")
		return
	}

	common.SuccessResponse(c, result)
}

// ResolveCity resolves a point to the active city containing it
// POST /cities/resolve
func (h *Handler) ResolveCity(c *gin.Context) {
	var req ResolveCityRequest
	if !common.BindJSON(c, &req) {
		return
	}

	city, err := h.service.ResolveCity(c.Request.Context(), req.Latitude, req.Longitude)
	if err != nil {
		common.HandleServiceError(c, err, "failed to resolve city")
		return
	}
	if city == nil {
		common.AppErrorResponse(c, common.NewOutOfServiceError("location"))
		return
	}

	common.SuccessResponse(c, city)
}

// RegisterRoutes registers city routes on the router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	citiesGroup := rg.Group("/cities")
	{
		citiesGroup.GET("", h.ListCities)
		citiesGroup.POST("/resolve", h.ResolveCity)
	}
}
