package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	apikeydomain "github.com/smallbiznis/greenledger/internal/apikey/domain"
	auditdomain "github.com/smallbiznis/greenledger/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectCompany     = "company"
	ObjectMetric      = "metric"
	ObjectKPI         = "kpi"
	ObjectEmissions   = "emissions"
	ObjectCompliance  = "compliance"
	ObjectReport      = "report"
	ObjectIntegration = "integration"
	ObjectAPIKey      = "api_key"
	ObjectAuditLog    = "audit_log"
)

const (
	ActionCompanyView   = "company.view"
	ActionCompanyUpdate = "company.update"

	ActionMetricView   = "metric.view"
	ActionMetricSubmit = "metric.submit"

	ActionKPIView      = "kpi.view"
	ActionKPICalculate = "kpi.calculate"

	ActionEmissionsCalculate = "emissions.calculate"
	ActionEmissionsRecord    = "emissions.record"

	ActionComplianceView   = "compliance.view"
	ActionComplianceCreate = "compliance.create"
	ActionComplianceReview = "compliance.review"

	ActionReportView     = "report.view"
	ActionReportGenerate = "report.generate"

	ActionIntegrationView   = "integration.view"
	ActionIntegrationManage = "integration.manage"
	ActionIntegrationSync   = "integration.sync"

	ActionAPIKeyView   = "api_key.view"
	ActionAPIKeyCreate = "api_key.create"
	ActionAPIKeyRotate = "api_key.rotate"
	ActionAPIKeyRevoke = "api_key.revoke"

	ActionAuditLogView = "audit_log.view"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, role string, companyID string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	normalizedRole, ok := apikeydomain.NormalizeRole(role)
	if !ok {
		return ErrInvalidRole
	}
	parsedCompanyID, err := snowflake.ParseString(strings.TrimSpace(companyID))
	if err != nil || parsedCompanyID == 0 {
		return ErrInvalidCompany
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	actorType, actorID, err := parseActor(actor)
	if err != nil {
		return err
	}

	roleName := "role:" + normalizedRole
	domain := fmt.Sprintf("company:%s", parsedCompanyID.String())
	if err := s.ensureGrouping(actor, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(actor, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("actor", actor),
			zap.String("role", normalizedRole),
			zap.String("object", object),
			zap.String("action", action),
		)
		s.audit(ctx, parsedCompanyID, auditdomain.ActionAuthzDenied, actorType, actorID, normalizedRole, object, action)
		return ErrForbidden
	}

	if shouldAuditGrant(action) {
		s.audit(ctx, parsedCompanyID, auditdomain.ActionAuthzGranted, actorType, actorID, normalizedRole, object, action)
	}
	return nil
}

func parseActor(actor string) (string, *string, error) {
	if !strings.HasPrefix(actor, "api_key:") {
		return "", nil, ErrInvalidActor
	}
	raw := strings.TrimPrefix(actor, "api_key:")
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		return "", nil, ErrInvalidActor
	}
	value := id.String()
	return string(auditdomain.ActorTypeAPIKey), &value, nil
}

// ensureGrouping keeps exactly one role link per subject and domain so a key
// whose role changed is not left holding the old grants.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		_, _ = s.enforcer.RemoveGroupingPolicy(params...)
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func (s *ServiceImpl) audit(ctx context.Context, companyID snowflake.ID, auditAction string, actorType string, actorID *string, role string, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	targetID := "capability"
	_ = s.auditSvc.AuditLog(ctx, &companyID, actorType, actorID, auditAction, "authorization", &targetID, map[string]any{
		"object": object,
		"action": action,
		"role":   role,
	})
}

func shouldAuditGrant(action string) bool {
	switch action {
	case ActionAPIKeyCreate, ActionAPIKeyRotate, ActionAPIKeyRevoke, ActionComplianceReview:
		return true
	default:
		return false
	}
}

func rolePolicies() map[string][][2]string {
	viewer := [][2]string{
		{ObjectCompany, ActionCompanyView},
		{ObjectMetric, ActionMetricView},
		{ObjectKPI, ActionKPIView},
		{ObjectEmissions, ActionEmissionsCalculate},
		{ObjectCompliance, ActionComplianceView},
		{ObjectReport, ActionReportView},
	}
	analyst := append(append([][2]string{}, viewer...),
		[2]string{ObjectMetric, ActionMetricSubmit},
		[2]string{ObjectKPI, ActionKPICalculate},
		[2]string{ObjectEmissions, ActionEmissionsRecord},
		[2]string{ObjectCompliance, ActionComplianceCreate},
		[2]string{ObjectReport, ActionReportGenerate},
		[2]string{ObjectIntegration, ActionIntegrationView},
	)
	admin := append(append([][2]string{}, analyst...),
		[2]string{ObjectCompany, ActionCompanyUpdate},
		[2]string{ObjectCompliance, ActionComplianceReview},
		[2]string{ObjectIntegration, ActionIntegrationManage},
		[2]string{ObjectIntegration, ActionIntegrationSync},
		[2]string{ObjectAPIKey, ActionAPIKeyView},
		[2]string{ObjectAPIKey, ActionAPIKeyCreate},
		[2]string{ObjectAPIKey, ActionAPIKeyRotate},
		[2]string{ObjectAuditLog, ActionAuditLogView},
	)
	owner := append(append([][2]string{}, admin...),
		[2]string{ObjectAPIKey, ActionAPIKeyRevoke},
	)
	return map[string][][2]string{
		apikeydomain.RoleViewer:  viewer,
		apikeydomain.RoleAnalyst: analyst,
		apikeydomain.RoleAdmin:   admin,
		apikeydomain.RoleOwner:   owner,
	}
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	for role, grants := range rolePolicies() {
		for _, grant := range grants {
			has, err := enforcer.HasPolicy("role:"+role, grant[0], grant[1])
			if err != nil {
				return err
			}
			if has {
				continue
			}
			if _, err := enforcer.AddPolicy("role:"+role, grant[0], grant[1]); err != nil {
				return err
			}
		}
	}
	return nil
}
