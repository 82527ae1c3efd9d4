package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/greenledger/internal/authorization"
	emissionsdomain "github.com/smallbiznis/greenledger/internal/emissions/domain"
)

func (s *Server) CalculateEmissions(c *gin.Context) {
	var req emissionsdomain.CalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	// Recording writes metric records, which viewers may not do.
	if req.Record {
		if err := s.authorizeAction(c, authorization.ObjectEmissions, authorization.ActionEmissionsRecord); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	resp, err := s.emissionsSvc.Calculate(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) ListEmissionFactors(c *gin.Context) {
	c.JSON(http.StatusOK, s.emissionsSvc.Factors())
}
