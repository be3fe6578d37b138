package appointment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/ecare-e2e/internal/handler"
	"github.com/jwalitptl/ecare-e2e/internal/model"
	"github.com/jwalitptl/ecare-e2e/internal/service/appointment"
)

type Handler struct {
	svc *appointment.Service
}

func NewHandler(svc *appointment.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/appointment", h.BookAppointment)
}

func (h *Handler) BookAppointment(c *gin.Context) {
	var req model.AppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithBindError(c, err)
		return
	}

	appt, err := h.svc.BookAppointment(c.Request.Context(), handler.Tenant(c), &req)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(model.MessageAppointmentBooked, appt))
}
