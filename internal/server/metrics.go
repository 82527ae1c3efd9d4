package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	metricdomain "github.com/smallbiznis/greenledger/internal/metric/domain"
	"github.com/smallbiznis/greenledger/pkg/db/pagination"
)

type submitMetricBatchRequest struct {
	Metrics []metricdomain.SubmitRequest `json:"metrics"`
}

type listMetricsQuery struct {
	PageToken   string `form:"page_token"`
	PageSize    int    `form:"page_size"`
	Category    string `form:"category"`
	MetricName  string `form:"metric_name"`
	SubmittedBy string `form:"submitted_by"`
	Source      string `form:"source"`
	Year        string `form:"year"`
}

func (s *Server) SubmitMetric(c *gin.Context) {
	var req metricdomain.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Source = metricdomain.SourceManual

	resp, err := s.metricSvc.Submit(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// SubmitMetricBatch stores one wizard step. Either every record is stored or
// none is.
func (s *Server) SubmitMetricBatch(c *gin.Context) {
	var req submitMetricBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	for i := range req.Metrics {
		req.Metrics[i].Source = metricdomain.SourceManual
	}

	resp, err := s.metricSvc.SubmitBatch(c.Request.Context(), req.Metrics)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListMetrics(c *gin.Context) {
	var query listMetricsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	year, err := parseOptionalYear(query.Year)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.metricSvc.List(c.Request.Context(), metricdomain.ListRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		Category:      strings.TrimSpace(query.Category),
		MetricName:    strings.TrimSpace(query.MetricName),
		SubmittedBy:   strings.TrimSpace(query.SubmittedBy),
		Source:        strings.TrimSpace(query.Source),
		ReportingYear: year,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Metrics, "page_info": resp.PageInfo})
}

func (s *Server) GetMetricByID(c *gin.Context) {
	resp, err := s.metricSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
