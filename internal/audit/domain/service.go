package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/greenledger/pkg/db/pagination"
)

// Actions recorded by the services.
const (
	ActionCompanyOnboarded   = "company.onboarded"
	ActionCompanyUpdated     = "company.updated"
	ActionMetricSubmitted    = "metric.submitted"
	ActionEmissionsRecorded  = "emissions.recorded"
	ActionDocumentCreated    = "compliance_document.created"
	ActionDocumentReviewed   = "compliance_document.reviewed"
	ActionIntegrationCreated = "integration.created"
	ActionIntegrationDisable = "integration.disabled"
	ActionIntegrationSynced  = "integration.synced"
	ActionReportGenerated    = "report.generated"
	ActionAPIKeyCreated      = "api_key.created"
	ActionAPIKeyRotated      = "api_key.rotated"
	ActionAPIKeyRevoked      = "api_key.revoked"
	ActionAuthzDenied        = "authorization.denied"
	ActionAuthzGranted       = "authorization.granted"
)

type ListAuditLogRequest struct {
	pagination.Pagination
	Action     string
	TargetType string
	TargetID   string
	ActorType  string
	StartAt    *time.Time
	EndAt      *time.Time
}

// Validate checks the filter before it reaches the repository.
func (r ListAuditLogRequest) Validate() error {
	if r.StartAt != nil && r.EndAt != nil && r.StartAt.After(*r.EndAt) {
		return ErrInvalidTimeRange
	}
	if actor := strings.TrimSpace(r.ActorType); actor != "" && !IsActorType(actor) {
		return ErrInvalidActorType
	}
	return nil
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type Service interface {
	AuditLog(ctx context.Context, companyID *snowflake.ID, actorType string, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) error
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var (
	ErrInvalidCompany   = errors.New("invalid_company")
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
	ErrInvalidAction    = errors.New("invalid_action")
	ErrInvalidActorType = errors.New("invalid_actor_type")
)

func IsActorType(value string) bool {
	switch ActorType(value) {
	case ActorTypeSystem, ActorTypeAPIKey, ActorTypeAdmin:
		return true
	default:
		return false
	}
}
