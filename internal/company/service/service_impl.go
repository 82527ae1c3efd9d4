package service

import (
	"context"
	"math"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	apikeydomain "github.com/smallbiznis/greenledger/internal/apikey/domain"
	auditdomain "github.com/smallbiznis/greenledger/internal/audit/domain"
	"github.com/smallbiznis/greenledger/internal/cache"
	"github.com/smallbiznis/greenledger/internal/clock"
	companydomain "github.com/smallbiznis/greenledger/internal/company/domain"
	"github.com/smallbiznis/greenledger/internal/companyctx"
	emissionsdomain "github.com/smallbiznis/greenledger/internal/emissions/domain"
	"github.com/smallbiznis/greenledger/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultCurrency = "USD"
	listLimit       = 500
	ownerKeyName    = "Owner key"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      companydomain.Repository
	APIKeySvc apikeydomain.Service
	AuditSvc  auditdomain.Service  `optional:"true"`
	Cache     *cache.ResponseCache `optional:"true"`
	Clock     clock.Clock          `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      companydomain.Repository
	apiKeySvc apikeydomain.Service
	auditSvc  auditdomain.Service
	cache     *cache.ResponseCache
	clock     clock.Clock
}

func New(p Params) companydomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("company.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		apiKeySvc: p.APIKeySvc,
		auditSvc:  p.AuditSvc,
		cache:     p.Cache,
		clock:     clk,
	}
}

func (s *Service) Onboard(ctx context.Context, req companydomain.OnboardRequest) (*companydomain.OnboardResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, companydomain.ErrInvalidName
	}
	companySlug := slug.Make(name)
	if companySlug == "" {
		return nil, companydomain.ErrInvalidName
	}
	region, err := normalizeRegion(req.Region)
	if err != nil {
		return nil, err
	}
	currency, err := normalizeCurrency(req.Currency)
	if err != nil {
		return nil, err
	}
	if err := validateDenominators(req.Employees, req.AnnualRevenue, req.ProductionUnits); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	metadata := datatypes.JSONMap{}
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	company := &companydomain.Company{
		ID:              s.genID.Generate(),
		Name:            name,
		Slug:            companySlug,
		Industry:        strings.TrimSpace(req.Industry),
		CountryCode:     strings.ToUpper(strings.TrimSpace(req.CountryCode)),
		Region:          region,
		Employees:       req.Employees,
		AnnualRevenue:   req.AnnualRevenue,
		ProductionUnits: req.ProductionUnits,
		Currency:        currency,
		Metadata:        metadata,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Insert(ctx, s.db, company); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, companydomain.ErrConflict
		}
		return nil, err
	}

	secret, err := s.apiKeySvc.CreateForCompany(ctx, company.ID, apikeydomain.CreateRequest{
		Name: ownerKeyName,
		Role: apikeydomain.RoleOwner,
	})
	if err != nil {
		s.log.Error("failed to issue owner key", zap.String("company_id", company.ID.String()), zap.Error(err))
		return nil, err
	}

	if s.auditSvc != nil {
		targetID := company.ID.String()
		_ = s.auditSvc.AuditLog(ctx, &company.ID, "", nil, auditdomain.ActionCompanyOnboarded, "company", &targetID, map[string]any{
			"name":   company.Name,
			"slug":   company.Slug,
			"region": company.Region,
		})
	}

	s.log.Info("company onboarded",
		zap.String("company_id", company.ID.String()),
		zap.String("slug", company.Slug),
	)
	return &companydomain.OnboardResponse{
		Company: toResponse(company),
		APIKey:  *secret,
	}, nil
}

func (s *Service) Get(ctx context.Context) (*companydomain.Response, error) {
	company, err := s.current(ctx, s.db)
	if err != nil {
		return nil, err
	}
	resp := toResponse(company)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, req companydomain.UpdateRequest) (*companydomain.Response, error) {
	company, err := s.current(ctx, s.db)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, companydomain.ErrInvalidName
		}
		company.Name = name
	}
	if req.Industry != nil {
		company.Industry = strings.TrimSpace(*req.Industry)
	}
	if req.CountryCode != nil {
		company.CountryCode = strings.ToUpper(strings.TrimSpace(*req.CountryCode))
	}
	if req.Region != nil {
		region, err := normalizeRegion(*req.Region)
		if err != nil {
			return nil, err
		}
		company.Region = region
	}
	if req.Currency != nil {
		currency, err := normalizeCurrency(*req.Currency)
		if err != nil {
			return nil, err
		}
		company.Currency = currency
	}
	if err := validateDenominators(req.Employees, req.AnnualRevenue, req.ProductionUnits); err != nil {
		return nil, err
	}
	if req.Employees != nil {
		company.Employees = req.Employees
	}
	if req.AnnualRevenue != nil {
		company.AnnualRevenue = req.AnnualRevenue
	}
	if req.ProductionUnits != nil {
		company.ProductionUnits = req.ProductionUnits
	}
	if req.Metadata != nil {
		if company.Metadata == nil {
			company.Metadata = datatypes.JSONMap{}
		}
		for k, v := range req.Metadata {
			company.Metadata[k] = v
		}
	}
	company.UpdatedAt = s.clock.Now().UTC()

	if err := s.repo.Update(ctx, s.db, company); err != nil {
		return nil, err
	}

	s.cache.InvalidateCompany(ctx, company.ID)
	if s.auditSvc != nil {
		targetID := company.ID.String()
		_ = s.auditSvc.AuditLog(ctx, &company.ID, "", nil, auditdomain.ActionCompanyUpdated, "company", &targetID, nil)
	}

	resp := toResponse(company)
	return &resp, nil
}

func (s *Service) List(ctx context.Context) ([]companydomain.Response, error) {
	items, err := s.repo.List(ctx, s.db, listLimit)
	if err != nil {
		return nil, err
	}
	resp := make([]companydomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) current(ctx context.Context, conn *gorm.DB) (*companydomain.Company, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, companydomain.ErrInvalidCompany
	}
	company, err := s.repo.FindByID(ctx, conn, companyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, companydomain.ErrNotFound
	}
	return company, nil
}

// normalizeRegion accepts a grid region code or "global".
func normalizeRegion(region string) (string, error) {
	trimmed := strings.TrimSpace(region)
	if trimmed == "" || strings.EqualFold(trimmed, emissionsdomain.GlobalRegion) {
		return emissionsdomain.GlobalRegion, nil
	}
	if !emissionsdomain.IsKnownRegion(trimmed) {
		return "", companydomain.ErrInvalidRegion
	}
	code, _ := emissionsdomain.GridFactor(trimmed)
	return code, nil
}

func normalizeCurrency(currency string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		return defaultCurrency, nil
	}
	if len(code) != 3 {
		return "", companydomain.ErrInvalidCurrency
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", companydomain.ErrInvalidCurrency
		}
	}
	return code, nil
}

func validateDenominators(employees *int64, revenue, units *float64) error {
	if employees != nil && *employees < 0 {
		return companydomain.ErrInvalidEmployees
	}
	if revenue != nil && (*revenue < 0 || math.IsNaN(*revenue) || math.IsInf(*revenue, 0)) {
		return companydomain.ErrInvalidRevenue
	}
	if units != nil && (*units < 0 || math.IsNaN(*units) || math.IsInf(*units, 0)) {
		return companydomain.ErrInvalidProductionUnits
	}
	return nil
}

func toResponse(company *companydomain.Company) companydomain.Response {
	return companydomain.Response{
		ID:              company.ID.String(),
		Name:            company.Name,
		Slug:            company.Slug,
		Industry:        company.Industry,
		CountryCode:     company.CountryCode,
		Region:          company.Region,
		Employees:       company.Employees,
		AnnualRevenue:   company.AnnualRevenue,
		ProductionUnits: company.ProductionUnits,
		Currency:        company.Currency,
		Metadata:        map[string]any(company.Metadata),
		CreatedAt:       company.CreatedAt,
		UpdatedAt:       company.UpdatedAt,
	}
}
