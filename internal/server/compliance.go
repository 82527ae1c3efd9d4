package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	compliancedomain "github.com/smallbiznis/greenledger/internal/compliance/domain"
)

type listComplianceDocumentsQuery struct {
	Status    string `form:"status"`
	Framework string `form:"framework"`
}

func (s *Server) CreateComplianceDocument(c *gin.Context) {
	var req compliancedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.complianceSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (s *Server) ListComplianceDocuments(c *gin.Context) {
	var query listComplianceDocumentsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	docs, err := s.complianceSvc.List(c.Request.Context(), compliancedomain.ListRequest{
		Status:    strings.TrimSpace(query.Status),
		Framework: strings.TrimSpace(query.Framework),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": docs})
}

func (s *Server) ListOverdueComplianceDocuments(c *gin.Context) {
	docs, err := s.complianceSvc.Overdue(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": docs})
}

func (s *Server) GetComplianceDocument(c *gin.Context) {
	doc, err := s.complianceSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (s *Server) ReviewComplianceDocument(c *gin.Context) {
	var req compliancedomain.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	doc, err := s.complianceSvc.Review(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (s *Server) ListFrameworks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.complianceSvc.Frameworks()})
}

func (s *Server) GetFrameworkCoverage(c *gin.Context) {
	year, err := parseOptionalYear(c.Query("year"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	coverage, err := s.complianceSvc.Coverage(c.Request.Context(), c.Param("code"), year)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, coverage)
}
