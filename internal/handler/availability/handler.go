package availability

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/ecare-e2e/internal/handler"
	"github.com/jwalitptl/ecare-e2e/internal/model"
	"github.com/jwalitptl/ecare-e2e/internal/service"
	"github.com/jwalitptl/ecare-e2e/internal/service/availability"
	"github.com/jwalitptl/ecare-e2e/internal/tz"
)

type Handler struct {
	svc *availability.Service
}

func NewHandler(svc *availability.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/provider/availability-setting", h.SetAvailability)
	r.GET("/provider/availability-setting/:id", h.GetAvailability)
	r.GET("/provider/:id/slots", h.ListSlots)
}

func (h *Handler) SetAvailability(c *gin.Context) {
	var req model.AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithBindError(c, err)
		return
	}

	p, err := h.svc.SetAvailability(c.Request.Context(), handler.Tenant(c), &req)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	msg := fmt.Sprintf("%s %s %s", model.MessageAvailabilityAdded, p.FirstName, p.LastName)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(msg, nil))
}

func (h *Handler) GetAvailability(c *gin.Context) {
	view, err := h.svc.GetAvailability(c.Request.Context(), handler.Tenant(c), c.Param("id"))
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse("Availability fetched successfully", view))
}

// ListSlots serves GET /provider/:id/slots?date=YYYY-MM-DD&timezone=EST.
// Slots are reported in UTC; date is read in the given zone.
func (h *Handler) ListSlots(c *gin.Context) {
	date, err := tz.ParseDate(c.Query("date"))
	if err != nil {
		handler.RespondWithError(c, fmt.Errorf("%w: %v", service.ErrInvalidInput, err))
		return
	}

	slots, err := h.svc.ListSlots(c.Request.Context(), handler.Tenant(c), c.Param("id"), date, c.Query("timezone"))
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse("Slots fetched successfully", slots))
}
