package handler

import "github.com/gin-gonic/gin"

// Context keys set by the middleware chain.
const (
	ContextTenant   = "tenant"
	ContextUsername = "username"
)

// Tenant returns the tenant the request was authenticated for.
func Tenant(c *gin.Context) string {
	return c.GetString(ContextTenant)
}
