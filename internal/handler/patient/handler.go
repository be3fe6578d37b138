package patient

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/ecare-e2e/internal/handler"
	"github.com/jwalitptl/ecare-e2e/internal/model"
	"github.com/jwalitptl/ecare-e2e/internal/service/patient"
)

type Handler struct {
	svc *patient.Service
}

func NewHandler(svc *patient.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patient")
	{
		patients.POST("", h.CreatePatient)
		patients.GET("", h.ListPatients)
		patients.GET("/:id", h.GetPatient)
	}
}

func (h *Handler) CreatePatient(c *gin.Context) {
	var req model.CreatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithBindError(c, err)
		return
	}

	if _, err := h.svc.CreatePatient(c.Request.Context(), handler.Tenant(c), &req); err != nil {
		handler.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(model.MessagePatientCreated, nil))
}

func (h *Handler) GetPatient(c *gin.Context) {
	p, err := h.svc.GetPatient(c.Request.Context(), handler.Tenant(c), c.Param("id"))
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse("Patient fetched successfully", p))
}

func (h *Handler) ListPatients(c *gin.Context) {
	var q model.Pagination
	if err := c.ShouldBindQuery(&q); err != nil {
		handler.RespondWithBindError(c, err)
		return
	}

	page, err := h.svc.ListPatients(c.Request.Context(), handler.Tenant(c), q.Page, q.Size, q.SearchString)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse("Patients fetched successfully", page))
}
