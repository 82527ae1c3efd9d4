package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	apikeydomain "github.com/smallbiznis/greenledger/internal/apikey/domain"
	"github.com/smallbiznis/greenledger/internal/apikey/repository"
	"github.com/smallbiznis/greenledger/internal/clock"
	"github.com/smallbiznis/greenledger/internal/companyctx"
	"github.com/smallbiznis/greenledger/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) (apikeydomain.Service, *clock.FakeClock) {
	t.Helper()
	conn := db.NewTest(t, &apikeydomain.APIKey{})
	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC))
	return New(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Clock: clk,
	}), clk
}

func TestCreateAndAuthenticate(t *testing.T) {
	svc, _ := newService(t)
	ctx := companyctx.WithCompanyID(context.Background(), 77)

	secret, err := svc.Create(ctx, apikeydomain.CreateRequest{Name: "ERP sync", Role: "Analyst"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(secret.APIKey, "gl_live_"))
	assert.Equal(t, apikeydomain.RoleAnalyst, secret.Role)

	principal, err := svc.Authenticate(context.Background(), secret.APIKey)
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(77), principal.CompanyID)
	assert.Equal(t, secret.KeyID, principal.KeyID)
	assert.Equal(t, apikeydomain.RoleAnalyst, principal.Role)

	_, err = svc.Authenticate(context.Background(), secret.APIKey+"x")
	assert.ErrorIs(t, err, apikeydomain.ErrInvalidKey)
	_, err = svc.Authenticate(context.Background(), "Bearer nope")
	assert.ErrorIs(t, err, apikeydomain.ErrInvalidKey)

	keys, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.NotNil(t, keys[0].LastUsedAt)
}

func TestCreateValidatesInput(t *testing.T) {
	svc, _ := newService(t)
	ctx := companyctx.WithCompanyID(context.Background(), 77)

	_, err := svc.Create(ctx, apikeydomain.CreateRequest{Name: "", Role: "viewer"})
	assert.ErrorIs(t, err, apikeydomain.ErrInvalidName)
	_, err = svc.Create(ctx, apikeydomain.CreateRequest{Name: "x", Role: "superuser"})
	assert.ErrorIs(t, err, apikeydomain.ErrInvalidRole)
	_, err = svc.Create(context.Background(), apikeydomain.CreateRequest{Name: "x", Role: "viewer"})
	assert.ErrorIs(t, err, apikeydomain.ErrInvalidCompany)
}

func TestRotateKeepsOldKeyDuringGracePeriod(t *testing.T) {
	svc, clk := newService(t)
	ctx := companyctx.WithCompanyID(context.Background(), 77)

	original, err := svc.Create(ctx, apikeydomain.CreateRequest{Name: "dashboard", Role: "viewer"})
	require.NoError(t, err)

	rotated, err := svc.Rotate(ctx, original.KeyID)
	require.NoError(t, err)
	assert.NotEqual(t, original.KeyID, rotated.KeyID)
	assert.Equal(t, apikeydomain.RoleViewer, rotated.Role)

	_, err = svc.Authenticate(context.Background(), original.APIKey)
	require.NoError(t, err)

	clk.Advance(25 * time.Hour)
	_, err = svc.Authenticate(context.Background(), original.APIKey)
	assert.ErrorIs(t, err, apikeydomain.ErrInvalidKey)
	_, err = svc.Authenticate(context.Background(), rotated.APIKey)
	assert.NoError(t, err)
}

func TestRevokeDisablesKey(t *testing.T) {
	svc, _ := newService(t)
	ctx := companyctx.WithCompanyID(context.Background(), 77)

	secret, err := svc.Create(ctx, apikeydomain.CreateRequest{Name: "temp", Role: "admin"})
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(ctx, secret.KeyID))

	_, err = svc.Authenticate(context.Background(), secret.APIKey)
	assert.ErrorIs(t, err, apikeydomain.ErrInvalidKey)

	assert.ErrorIs(t, svc.Revoke(ctx, "key_missing"), apikeydomain.ErrNotFound)
	assert.ErrorIs(t, svc.Revoke(companyctx.WithCompanyID(context.Background(), 1), secret.KeyID), apikeydomain.ErrNotFound)
}
