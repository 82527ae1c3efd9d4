package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apikeydomain "github.com/smallbiznis/greenledger/internal/apikey/domain"
)

func (s *Server) ListAPIKeys(c *gin.Context) {
	keys, err := s.apiKeySvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": keys})
}

func (s *Server) CreateAPIKey(c *gin.Context) {
	var req apikeydomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if outranksCaller(c, req.Role) {
		AbortWithError(c, ErrForbidden)
		return
	}

	resp, err := s.apiKeySvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (s *Server) RotateAPIKey(c *gin.Context) {
	resp, err := s.apiKeySvc.Rotate(c.Request.Context(), c.Param("key_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) RevokeAPIKey(c *gin.Context) {
	if err := s.apiKeySvc.Revoke(c.Request.Context(), c.Param("key_id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// outranksCaller is true when an API key asks for a key above its own role.
// Admin-token callers carry no principal and may mint any role.
func outranksCaller(c *gin.Context, requested string) bool {
	principal, ok := principalFromContext(c)
	if !ok {
		return false
	}
	role, valid := apikeydomain.NormalizeRole(requested)
	return valid && roleRank(role) > roleRank(principal.Role)
}

// roleRank orders roles from viewer (1) to owner (4).
func roleRank(role string) int {
	for i, candidate := range apikeydomain.Roles {
		if candidate == role {
			return len(apikeydomain.Roles) - i
		}
	}
	return 0
}
