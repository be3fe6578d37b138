package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/ecare-e2e/internal/service"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Code    string      `json:"code,omitempty"`
}

const (
	CodeOK           = "OK"
	CodeBadRequest   = "BAD_REQUEST"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
)

func NewSuccessResponse(message string, data interface{}) *Response {
	return &Response{
		Data:    data,
		Message: message,
		Code:    CodeOK,
	}
}

func NewErrorResponse(code, message string) *Response {
	return &Response{
		Message: message,
		Code:    code,
	}
}

// RespondWithError maps service errors onto status codes.
func RespondWithError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, CodeInternal
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		status, code = http.StatusBadRequest, CodeBadRequest
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrUnauthorized):
		status, code = http.StatusUnauthorized, CodeUnauthorized
	case errors.Is(err, service.ErrNotFound):
		status, code = http.StatusNotFound, CodeNotFound
	case errors.Is(err, service.ErrConflict):
		status, code = http.StatusConflict, CodeConflict
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, NewErrorResponse(code, err.Error()))
}

// RespondWithBindError answers a request whose body failed binding or validation.
func RespondWithBindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, NewErrorResponse(CodeBadRequest, err.Error()))
}
