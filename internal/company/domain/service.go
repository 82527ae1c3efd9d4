package domain

import (
	"context"
	"errors"
	"time"

	apikeydomain "github.com/smallbiznis/greenledger/internal/apikey/domain"
)

type Service interface {
	// Onboard creates a company together with its first owner API key.
	Onboard(ctx context.Context, req OnboardRequest) (*OnboardResponse, error)
	Get(ctx context.Context) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	List(ctx context.Context) ([]Response, error)
}

type OnboardRequest struct {
	Name            string         `json:"name"`
	Industry        string         `json:"industry"`
	CountryCode     string         `json:"country_code"`
	Region          string         `json:"region"`
	Employees       *int64         `json:"employees"`
	AnnualRevenue   *float64       `json:"annual_revenue"`
	ProductionUnits *float64       `json:"production_units"`
	Currency        string         `json:"currency"`
	Metadata        map[string]any `json:"metadata"`
}

type UpdateRequest struct {
	Name            *string        `json:"name"`
	Industry        *string        `json:"industry"`
	CountryCode     *string        `json:"country_code"`
	Region          *string        `json:"region"`
	Employees       *int64         `json:"employees"`
	AnnualRevenue   *float64       `json:"annual_revenue"`
	ProductionUnits *float64       `json:"production_units"`
	Currency        *string        `json:"currency"`
	Metadata        map[string]any `json:"metadata"`
}

type Response struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Slug            string         `json:"slug"`
	Industry        string         `json:"industry,omitempty"`
	CountryCode     string         `json:"country_code,omitempty"`
	Region          string         `json:"region"`
	Employees       *int64         `json:"employees,omitempty"`
	AnnualRevenue   *float64       `json:"annual_revenue,omitempty"`
	ProductionUnits *float64       `json:"production_units,omitempty"`
	Currency        string         `json:"currency"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

type OnboardResponse struct {
	Company Response                    `json:"company"`
	APIKey  apikeydomain.SecretResponse `json:"api_key"`
}

var (
	ErrInvalidCompany         = errors.New("invalid_company")
	ErrInvalidName            = errors.New("invalid_name")
	ErrInvalidRegion          = errors.New("invalid_region")
	ErrInvalidCurrency        = errors.New("invalid_currency")
	ErrInvalidEmployees       = errors.New("invalid_employees")
	ErrInvalidRevenue         = errors.New("invalid_revenue")
	ErrInvalidProductionUnits = errors.New("invalid_production_units")
	ErrConflict               = errors.New("company_conflict")
	ErrNotFound               = errors.New("company_not_found")
)
