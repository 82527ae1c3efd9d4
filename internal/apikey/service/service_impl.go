package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	apikeydomain "github.com/smallbiznis/greenledger/internal/apikey/domain"
	auditdomain "github.com/smallbiznis/greenledger/internal/audit/domain"
	"github.com/smallbiznis/greenledger/internal/clock"
	"github.com/smallbiznis/greenledger/internal/companyctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	apiKeySecretBytes         = 32
	apiKeyRotationGracePeriod = 24 * time.Hour
	lastUsedResolution        = time.Minute
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     apikeydomain.Repository
	AuditSvc auditdomain.Service `optional:"true"`
	Clock    clock.Clock         `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     apikeydomain.Repository
	genID    *snowflake.Node
	auditSvc auditdomain.Service
	clock    clock.Clock
}

func New(p Params) apikeydomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("apikey.service"),
		repo:     p.Repo,
		genID:    p.GenID,
		auditSvc: p.AuditSvc,
		clock:    clk,
	}
}

func (s *Service) List(ctx context.Context) ([]apikeydomain.Response, error) {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.List(ctx, s.db, companyID)
	if err != nil {
		return nil, err
	}

	resp := make([]apikeydomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, items[i].Response())
	}
	return resp, nil
}

func (s *Service) Create(ctx context.Context, req apikeydomain.CreateRequest) (*apikeydomain.SecretResponse, error) {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.CreateForCompany(ctx, companyID, req)
}

func (s *Service) CreateForCompany(ctx context.Context, companyID snowflake.ID, req apikeydomain.CreateRequest) (*apikeydomain.SecretResponse, error) {
	if companyID == 0 {
		return nil, apikeydomain.ErrInvalidCompany
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apikeydomain.ErrInvalidName
	}
	role, ok := apikeydomain.NormalizeRole(req.Role)
	if !ok {
		return nil, apikeydomain.ErrInvalidRole
	}

	key, plain, err := s.mint(companyID, name, role, nil)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, s.db, key); err != nil {
		return nil, err
	}

	s.audit(ctx, companyID, auditdomain.ActionAPIKeyCreated, key.KeyID, map[string]any{"name": name, "role": role})
	return &apikeydomain.SecretResponse{KeyID: key.KeyID, Role: role, APIKey: plain}, nil
}

// mint allocates a fresh key row and its one-time plaintext. Only the
// blake2b digest of the plaintext is stored.
func (s *Service) mint(companyID snowflake.ID, name, role string, rotatedFrom *string) (*apikeydomain.APIKey, string, error) {
	id := s.genID.Generate()
	keyID := "key_" + strings.ToUpper(strconv.FormatInt(int64(id), 36))

	secret := make([]byte, apiKeySecretBytes)
	if _, err := rand.Read(secret); err != nil {
		return nil, "", fmt.Errorf("read key entropy: %w", err)
	}
	plain := apikeydomain.KeyPrefix + strings.TrimPrefix(keyID, "key_") + "_" + hex.EncodeToString(secret)

	now := s.clock.Now().UTC()
	return &apikeydomain.APIKey{
		ID:               id,
		CompanyID:        companyID,
		KeyID:            keyID,
		Name:             name,
		Role:             role,
		KeyHash:          apikeydomain.HashAPIKey(plain),
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
		RotatedFromKeyID: rotatedFrom,
	}, plain, nil
}

func (s *Service) Rotate(ctx context.Context, keyID string) (*apikeydomain.SecretResponse, error) {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(keyID)
	if trimmed == "" {
		return nil, apikeydomain.ErrInvalidKeyID
	}

	var result *apikeydomain.SecretResponse
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindByKeyID(ctx, tx, companyID, trimmed)
		if err != nil {
			return err
		}
		now := s.clock.Now().UTC()
		if current == nil || !current.Usable(now) {
			return apikeydomain.ErrNotFound
		}

		// The old secret keeps working through the grace period.
		grace := now.Add(apiKeyRotationGracePeriod)
		current.ExpiresAt = &grace
		current.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, current); err != nil {
			return err
		}

		next, plain, err := s.mint(companyID, current.Name, current.Role, &current.KeyID)
		if err != nil {
			return err
		}
		if err := s.repo.Insert(ctx, tx, next); err != nil {
			return err
		}
		result = &apikeydomain.SecretResponse{KeyID: next.KeyID, Role: next.Role, APIKey: plain}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, companyID, auditdomain.ActionAPIKeyRotated, result.KeyID, map[string]any{"rotated_from_key_id": trimmed})
	return result, nil
}

func (s *Service) Revoke(ctx context.Context, keyID string) error {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return err
	}

	trimmed := strings.TrimSpace(keyID)
	if trimmed == "" {
		return apikeydomain.ErrInvalidKeyID
	}

	key, err := s.repo.FindByKeyID(ctx, s.db, companyID, trimmed)
	if err != nil {
		return err
	}
	if key == nil {
		return apikeydomain.ErrNotFound
	}

	now := s.clock.Now().UTC()
	key.IsActive = false
	key.UpdatedAt = now
	if key.ExpiresAt == nil || key.ExpiresAt.After(now) {
		key.ExpiresAt = &now
	}
	if err := s.repo.Update(ctx, s.db, key); err != nil {
		return err
	}

	s.audit(ctx, companyID, auditdomain.ActionAPIKeyRevoked, trimmed, nil)
	return nil
}

// Authenticate resolves a raw bearer key into its principal.
func (s *Service) Authenticate(ctx context.Context, rawKey string) (*apikeydomain.Principal, error) {
	rawKey = strings.TrimSpace(rawKey)
	if !apikeydomain.LooksLikeKey(rawKey) {
		return nil, apikeydomain.ErrInvalidKey
	}

	hash := apikeydomain.HashAPIKey(rawKey)
	now := s.clock.Now().UTC()
	key, err := s.repo.FindActiveByHash(ctx, s.db, hash, now)
	if err != nil {
		return nil, err
	}
	if key == nil || subtle.ConstantTimeCompare([]byte(key.KeyHash), []byte(hash)) != 1 {
		return nil, apikeydomain.ErrInvalidKey
	}

	if key.LastUsedAt == nil || now.Sub(*key.LastUsedAt) >= lastUsedResolution {
		if err := s.repo.TouchLastUsed(ctx, s.db, key.ID, now); err != nil {
			s.log.Warn("failed to record api key usage", zap.String("key_id", key.KeyID), zap.Error(err))
		}
	}

	return &apikeydomain.Principal{
		APIKeyID:  key.ID,
		KeyID:     key.KeyID,
		CompanyID: key.CompanyID,
		Role:      key.Role,
	}, nil
}

func (s *Service) companyIDFromContext(ctx context.Context) (snowflake.ID, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return 0, apikeydomain.ErrInvalidCompany
	}
	return companyID, nil
}

func (s *Service) audit(ctx context.Context, companyID snowflake.ID, action, keyID string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	_ = s.auditSvc.AuditLog(ctx, &companyID, "", nil, action, "api_key", &keyID, metadata)
}
