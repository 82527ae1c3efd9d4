package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ActorType string

const (
	ActorTypeSystem ActorType = "system"
	ActorTypeAPIKey ActorType = "api_key"
	ActorTypeAdmin  ActorType = "admin"
)

// AuditLog is an append-only record of a governance-relevant action.
type AuditLog struct {
	ID         snowflake.ID      `json:"id" gorm:"primaryKey"`
	CompanyID  *snowflake.ID     `json:"company_id,omitempty" gorm:"column:company_id;index:ix_audit_logs_company_created,priority:1"`
	ActorType  string            `json:"actor_type" gorm:"column:actor_type;type:text;not null"`
	ActorID    *string           `json:"actor_id,omitempty" gorm:"column:actor_id;type:text"`
	Action     string            `json:"action" gorm:"type:text;not null;index"`
	TargetType string            `json:"target_type" gorm:"column:target_type;type:text;not null"`
	TargetID   *string           `json:"target_id,omitempty" gorm:"column:target_id;type:text"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:json"`
	IPAddress  *string           `json:"ip_address,omitempty" gorm:"column:ip_address;type:text"`
	UserAgent  *string           `json:"user_agent,omitempty" gorm:"column:user_agent;type:text"`
	CreatedAt  time.Time         `json:"created_at" gorm:"not null;index:ix_audit_logs_company_created,priority:2"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }
