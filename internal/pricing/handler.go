package pricing

import (
	"github.com/gin-gonic/gin"

	"github.com/swiftride/dispatch-core/pkg/common"
	"github.com/swiftride/dispatch-core/pkg/middleware"
	"github.com/swiftride/dispatch-core/pkg/models"
)

// Handler handles HTTP requests for fares
type Handler struct {
	service ServiceInterface
}

// NewHandler creates a new pricing handler
func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

// EstimateFare returns a fare breakdown for the requested trip
// POST /fares/estimate
func (h *Handler) EstimateFare(c *gin.Context) {
	var req EstimateFareRequest
	if !common.BindJSON(c, &req) {
		return
	}

	breakdown, err := h.service.EstimateFare(c.Request.Context(), &req)
	if err != nil {
		common.HandleServiceError(c, err, "failed to estimate fare")
		return
	}

	common.SuccessResponse(c, breakdown)
}

// ListFareConfigs returns the fare configs for a city
// GET /fares/configs/:city_id
func (h *Handler) ListFareConfigs(c *gin.Context) {
	cityID, ok := common.ParseIDParam(c, "city_id", "city ID")
	if !ok {
		return
	}

	configs, err := h.service.ListFareConfigsByCity(c.Request.Context(), cityID)
	if err != nil {
		common.HandleServiceError(c, err, "failed to list fare configs")
		return
	}

	common.SuccessResponse(c, configs)
}

// RegisterRoutes registers fare routes on the router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	fares := rg.Group("/fares")
	{
		fares.POST("/estimate", h.EstimateFare)
		fares.GET("/configs/:city_id", middleware.RequireRole(models.RoleAdmin), h.ListFareConfigs)
	}
}
