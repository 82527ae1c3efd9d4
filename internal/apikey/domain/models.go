package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// APIKey stores hashed API credentials scoped to a company.
type APIKey struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	CompanyID        snowflake.ID `gorm:"column:company_id;not null;uniqueIndex:ux_api_keys_company_key_id,priority:1"`
	KeyID            string       `gorm:"column:key_id;type:text;not null;uniqueIndex:ux_api_keys_company_key_id,priority:2"`
	Name             string       `gorm:"type:text;not null"`
	Role             string       `gorm:"type:text;not null"`
	KeyHash          string       `gorm:"column:key_hash;type:text;not null;uniqueIndex"`
	IsActive         bool         `gorm:"column:is_active;not null;default:true"`
	CreatedAt        time.Time    `gorm:"not null"`
	UpdatedAt        time.Time    `gorm:"not null"`
	LastUsedAt       *time.Time   `gorm:"column:last_used_at"`
	ExpiresAt        *time.Time   `gorm:"column:expires_at"`
	RotatedFromKeyID *string      `gorm:"column:rotated_from_key_id;type:text"`
}

// TableName sets the database table name.
func (APIKey) TableName() string { return "api_keys" }

// Usable reports whether the key is active and not past its expiry.
func (k *APIKey) Usable(now time.Time) bool {
	return k.IsActive && (k.ExpiresAt == nil || !now.After(*k.ExpiresAt))
}

// Response is the listing view of a key; it never carries the hash.
func (k *APIKey) Response() Response {
	return Response{
		KeyID:            k.KeyID,
		Name:             k.Name,
		Role:             k.Role,
		IsActive:         k.IsActive,
		CreatedAt:        k.CreatedAt,
		LastUsedAt:       k.LastUsedAt,
		ExpiresAt:        k.ExpiresAt,
		RotatedFromKeyID: k.RotatedFromKeyID,
	}
}
