package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	reportdomain "github.com/smallbiznis/greenledger/internal/report/domain"
)

// StreamESGReport renders the report on the fly without archiving it.
func (s *Server) StreamESGReport(c *gin.Context) {
	year, err := parseOptionalYear(c.Query("year"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	pdf, err := s.reportSvc.Render(c.Request.Context(), reportdomain.GenerateRequest{ReportingYear: year})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	filename := "esg-report.pdf"
	if year != nil {
		filename = fmt.Sprintf("esg-report-%d.pdf", *year)
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
	c.Data(http.StatusOK, reportdomain.ContentTypePDF, pdf)
}

func (s *Server) GenerateReport(c *gin.Context) {
	var req reportdomain.GenerateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	resp, err := s.reportSvc.Generate(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (s *Server) ListReports(c *gin.Context) {
	limit, err := parseOptionalInt(c.Query("limit"), "limit")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	reports, err := s.reportSvc.List(c.Request.Context(), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": reports})
}

func (s *Server) DownloadReport(c *gin.Context) {
	doc, err := s.reportSvc.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Data(http.StatusOK, reportdomain.ContentTypePDF, doc.Content)
}
