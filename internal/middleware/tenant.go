package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/ecare-e2e/internal/handler"
)

const HeaderTenantID = "X-TENANT-ID"

type TenantConfig struct {
	// Allowed lists the known tenants. Empty allows any.
	Allowed []string
}

type TenantMiddleware struct {
	allowed map[string]struct{}
}

func NewTenantMiddleware(cfg TenantConfig) *TenantMiddleware {
	m := &TenantMiddleware{allowed: make(map[string]struct{}, len(cfg.Allowed))}
	for _, t := range cfg.Allowed {
		m.allowed[t] = struct{}{}
	}
	return m
}

// RequireTenant rejects requests without a known X-TENANT-ID header.
func (m *TenantMiddleware) RequireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant := c.GetHeader(HeaderTenantID)
		if tenant == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, handler.NewErrorResponse(handler.CodeBadRequest, "X-TENANT-ID header is required"))
			return
		}
		if len(m.allowed) > 0 {
			if _, ok := m.allowed[tenant]; !ok {
				log.Warn().Str("tenant", tenant).Str("path", c.Request.URL.Path).Msg("Unknown tenant")
				c.AbortWithStatusJSON(http.StatusBadRequest, handler.NewErrorResponse(handler.CodeBadRequest, "unknown tenant"))
				return
			}
		}
		c.Set(handler.ContextTenant, tenant)
		c.Next()
	}
}

// MatchSession rejects requests whose header tenant differs from the
// authenticated session's tenant. It runs after Authenticate.
func (m *TenantMiddleware) MatchSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if header := c.GetHeader(HeaderTenantID); header != handler.Tenant(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, handler.NewErrorResponse(handler.CodeUnauthorized, "tenant does not match session"))
			return
		}
		c.Next()
	}
}
