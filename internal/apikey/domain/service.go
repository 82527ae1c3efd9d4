package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	RoleOwner   = "owner"
	RoleAdmin   = "admin"
	RoleAnalyst = "analyst"
	RoleViewer  = "viewer"
)

// Roles lists the assignable roles from most to least privileged.
var Roles = []string{RoleOwner, RoleAdmin, RoleAnalyst, RoleViewer}

type Service interface {
	List(ctx context.Context) ([]Response, error)
	Create(ctx context.Context, req CreateRequest) (*SecretResponse, error)
	// CreateForCompany issues a key outside a request scope, for onboarding
	// and the CLI.
	CreateForCompany(ctx context.Context, companyID snowflake.ID, req CreateRequest) (*SecretResponse, error)
	Rotate(ctx context.Context, keyID string) (*SecretResponse, error)
	Revoke(ctx context.Context, keyID string) error
	Authenticate(ctx context.Context, rawKey string) (*Principal, error)
}

type CreateRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

type Response struct {
	KeyID            string     `json:"key_id"`
	Name             string     `json:"name"`
	Role             string     `json:"role"`
	IsActive         bool       `json:"is_active"`
	CreatedAt        time.Time  `json:"created_at"`
	LastUsedAt       *time.Time `json:"last_used_at"`
	ExpiresAt        *time.Time `json:"expires_at"`
	RotatedFromKeyID *string    `json:"rotated_from_key_id"`
}

type SecretResponse struct {
	KeyID  string `json:"key_id"`
	Role   string `json:"role"`
	APIKey string `json:"api_key"`
}

// Principal is the authenticated identity behind an API key.
type Principal struct {
	APIKeyID  snowflake.ID
	KeyID     string
	CompanyID snowflake.ID
	Role      string
}

var (
	ErrInvalidCompany = errors.New("invalid_company")
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidRole    = errors.New("invalid_role")
	ErrInvalidKeyID   = errors.New("invalid_key_id")
	ErrInvalidKey     = errors.New("invalid_api_key")
	ErrNotFound       = errors.New("not_found")
)

func NormalizeRole(role string) (string, bool) {
	role = strings.ToLower(strings.TrimSpace(role))
	for _, candidate := range Roles {
		if candidate == role {
			return role, true
		}
	}
	return "", false
}
