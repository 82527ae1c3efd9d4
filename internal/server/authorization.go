package server

import (
	"fmt"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/greenledger/internal/audit/domain"
)

func (s *Server) authorize(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.authorizeAction(c, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// authorizeAction checks the authenticated key's role against the policy for
// its own company. Handlers call it directly for checks that depend on the
// request body.
func (s *Server) authorizeAction(c *gin.Context, object string, action string) error {
	principal, ok := principalFromContext(c)
	if !ok {
		return ErrUnauthorized
	}
	if s.authzSvc == nil {
		return ErrForbidden
	}
	subject := fmt.Sprintf("%s:%s", auditdomain.ActorTypeAPIKey, principal.APIKeyID.String())
	return s.authzSvc.Authorize(
		c.Request.Context(),
		subject,
		principal.Role,
		principal.CompanyID.String(),
		object,
		action,
	)
}
