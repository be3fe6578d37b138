package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Handler serves the endpoints that need no service.
type Handler struct {
	started time.Time
}

func NewHandler() *Handler {
	return &Handler{started: time.Now()}
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "UP",
		"uptime": time.Since(h.started).String(),
	})
}

func (h *Handler) NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, NewErrorResponse(CodeNotFound, "no route for "+c.Request.Method+" "+c.Request.URL.Path))
}
