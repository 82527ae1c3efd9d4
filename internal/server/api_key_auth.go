package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	apikeydomain "github.com/smallbiznis/greenledger/internal/apikey/domain"
	auditdomain "github.com/smallbiznis/greenledger/internal/audit/domain"
	"github.com/smallbiznis/greenledger/internal/auditcontext"
	"github.com/smallbiznis/greenledger/internal/companyctx"
	obscontext "github.com/smallbiznis/greenledger/internal/observability/context"
)

const contextPrincipalKey = "api_key_principal"

// APIKeyRequired authenticates requests using an API key only. Company
// identity is derived solely from the key; requests that try to name a
// company themselves are rejected.
func (s *Server) APIKeyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if requestHasCompanyID(c) {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		rawKey, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			rawKey = strings.TrimSpace(c.GetHeader("X-API-Key"))
		}
		if rawKey == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		principal, err := s.apiKeySvc.Authenticate(c.Request.Context(), rawKey)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if principal == nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		apiKeyID := principal.APIKeyID.String()
		ctx := c.Request.Context()
		ctx = companyctx.WithCompanyID(ctx, int64(principal.CompanyID))
		ctx = auditcontext.WithActor(ctx, string(auditdomain.ActorTypeAPIKey), apiKeyID)
		ctx = obscontext.WithCompanyID(ctx, principal.CompanyID.String())
		ctx = obscontext.WithActor(ctx, string(auditdomain.ActorTypeAPIKey), apiKeyID)

		c.Set(contextPrincipalKey, principal)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func principalFromContext(c *gin.Context) (*apikeydomain.Principal, bool) {
	value, ok := c.Get(contextPrincipalKey)
	if !ok {
		return nil, false
	}
	principal, ok := value.(*apikeydomain.Principal)
	return principal, ok && principal != nil
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(strings.TrimSpace(header))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func requestHasCompanyID(c *gin.Context) bool {
	if strings.TrimSpace(c.GetHeader("X-Company-ID")) != "" {
		return true
	}
	for _, name := range []string{"company_id", "companyId"} {
		if value, ok := c.GetQuery(name); ok && strings.TrimSpace(value) != "" {
			return true
		}
	}
	return false
}
