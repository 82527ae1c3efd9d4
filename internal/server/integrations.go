package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	integrationdomain "github.com/smallbiznis/greenledger/internal/integration/domain"
)

func (s *Server) CreateIntegration(c *gin.Context) {
	var req integrationdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.integrationSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (s *Server) ListIntegrations(c *gin.Context) {
	connections, err := s.integrationSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": connections})
}

func (s *Server) DisableIntegration(c *gin.Context) {
	resp, err := s.integrationSvc.Disable(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) SyncIntegration(c *gin.Context) {
	var req integrationdomain.SyncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	resp, err := s.integrationSvc.Sync(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) ListIntegrationRuns(c *gin.Context) {
	runs, err := s.integrationSvc.Runs(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": runs})
}
