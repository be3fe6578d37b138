package provider

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/ecare-e2e/internal/handler"
	"github.com/jwalitptl/ecare-e2e/internal/model"
	"github.com/jwalitptl/ecare-e2e/internal/service/provider"
)

type Handler struct {
	svc *provider.Service
}

func NewHandler(svc *provider.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	providers := r.Group("/provider")
	{
		providers.POST("", h.CreateProvider)
		providers.GET("", h.ListProviders)
		providers.GET("/:id", h.GetProvider)
	}
}

// CreateProvider answers without the new provider's id; clients find it in
// the listing.
func (h *Handler) CreateProvider(c *gin.Context) {
	var req model.CreateProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithBindError(c, err)
		return
	}

	if _, err := h.svc.CreateProvider(c.Request.Context(), handler.Tenant(c), &req); err != nil {
		handler.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(model.MessageProviderCreated, nil))
}

func (h *Handler) GetProvider(c *gin.Context) {
	p, err := h.svc.GetProvider(c.Request.Context(), handler.Tenant(c), c.Param("id"))
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse("Provider fetched successfully", p))
}

func (h *Handler) ListProviders(c *gin.Context) {
	var q model.Pagination
	if err := c.ShouldBindQuery(&q); err != nil {
		handler.RespondWithBindError(c, err)
		return
	}

	page, err := h.svc.ListProviders(c.Request.Context(), handler.Tenant(c), q.Page, q.Size)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse("Providers fetched successfully", page))
}
