package server

import (
	"cmp"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/greenledger/internal/audit/domain"
	"github.com/smallbiznis/greenledger/pkg/db/pagination"
)

// from/to are accepted as aliases of start_at/end_at.
type listAuditLogsQuery struct {
	PageToken  string `form:"page_token"`
	PageSize   int    `form:"page_size"`
	Action     string `form:"action"`
	TargetType string `form:"target_type"`
	TargetID   string `form:"target_id"`
	ActorType  string `form:"actor_type"`
	StartAt    string `form:"start_at"`
	EndAt      string `form:"end_at"`
	From       string `form:"from"`
	To         string `form:"to"`
}

func (q listAuditLogsQuery) request() (auditdomain.ListAuditLogRequest, error) {
	start, err := parseTimeBound("start_at", cmp.Or(strings.TrimSpace(q.StartAt), q.From), false)
	if err != nil {
		return auditdomain.ListAuditLogRequest{}, err
	}
	end, err := parseTimeBound("end_at", cmp.Or(strings.TrimSpace(q.EndAt), q.To), true)
	if err != nil {
		return auditdomain.ListAuditLogRequest{}, err
	}
	return auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{PageToken: strings.TrimSpace(q.PageToken), PageSize: q.PageSize},
		Action:     strings.TrimSpace(q.Action),
		TargetType: strings.TrimSpace(q.TargetType),
		TargetID:   strings.TrimSpace(q.TargetID),
		ActorType:  strings.TrimSpace(q.ActorType),
		StartAt:    start,
		EndAt:      end,
	}, nil
}

// ListAuditLogs pages through the caller company's audit trail, newest first.
func (s *Server) ListAuditLogs(c *gin.Context) {
	var query listAuditLogsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req, err := query.request()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.auditSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp.AuditLogs, "page_info": resp.PageInfo})
}
