package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	scoringdomain "github.com/smallbiznis/greenledger/internal/scoring/domain"
)

// GetKPIs recalculates the KPI set for the requested year. Responses are
// cached per company until its data changes.
func (s *Server) GetKPIs(c *gin.Context) {
	year, err := parseOptionalYear(c.Query("year"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.scoringSvc.Calculate(c.Request.Context(), scoringdomain.CalculateRequest{ReportingYear: year})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) CalculateKPIs(c *gin.Context) {
	var req scoringdomain.CalculateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	resp, err := s.scoringSvc.Calculate(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetLatestKPIs(c *gin.Context) {
	resp, err := s.scoringSvc.Latest(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) ListKPIHistory(c *gin.Context) {
	limit, err := parseOptionalInt(c.Query("limit"), "limit")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	history, err := s.scoringSvc.History(c.Request.Context(), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": history})
}
