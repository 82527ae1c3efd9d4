// Package domain contains the company aggregate that scopes every ESG record.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Company is a reporting entity. Region drives the grid factor and the
// headcount, revenue and production figures feed emissions intensity.
type Company struct {
	ID              snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name            string            `gorm:"type:text;not null" json:"name"`
	Slug            string            `gorm:"type:text;not null;uniqueIndex:ux_companies_slug" json:"slug"`
	Industry        string            `gorm:"type:text" json:"industry"`
	CountryCode     string            `gorm:"column:country_code;type:text" json:"country_code"`
	Region          string            `gorm:"type:text;not null" json:"region"`
	Employees       *int64            `gorm:"column:employees" json:"employees,omitempty"`
	AnnualRevenue   *float64          `gorm:"column:annual_revenue" json:"annual_revenue,omitempty"`
	ProductionUnits *float64          `gorm:"column:production_units" json:"production_units,omitempty"`
	Currency        string            `gorm:"type:text;not null" json:"currency"`
	Metadata        datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt       time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"not null" json:"updated_at"`
}

func (Company) TableName() string { return "companies" }
