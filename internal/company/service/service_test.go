package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	apikeydomain "github.com/smallbiznis/greenledger/internal/apikey/domain"
	apikeyrepo "github.com/smallbiznis/greenledger/internal/apikey/repository"
	apikeyservice "github.com/smallbiznis/greenledger/internal/apikey/service"
	"github.com/smallbiznis/greenledger/internal/clock"
	companydomain "github.com/smallbiznis/greenledger/internal/company/domain"
	"github.com/smallbiznis/greenledger/internal/company/repository"
	"github.com/smallbiznis/greenledger/internal/companyctx"
	"github.com/smallbiznis/greenledger/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	svc  companydomain.Service
	keys apikeydomain.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := db.NewTest(t, &companydomain.Company{}, &apikeydomain.APIKey{})
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))

	keys := apikeyservice.New(apikeyservice.Params{
		DB: conn, Log: zap.NewNop(), GenID: node, Repo: apikeyrepo.Provide(), Clock: clk,
	})
	svc := New(Params{
		DB: conn, Log: zap.NewNop(), GenID: node, Repo: repository.Provide(), APIKeySvc: keys, Clock: clk,
	})
	return fixture{svc: svc, keys: keys}
}

func ptrInt64(v int64) *int64     { return &v }
func ptrFloat(v float64) *float64 { return &v }
func ptrString(v string) *string  { return &v }

func TestOnboardIssuesOwnerKey(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Onboard(context.Background(), companydomain.OnboardRequest{
		Name:      "Acme Green Manufacturing",
		Region:    "us",
		Employees: ptrInt64(250),
		Currency:  "usd",
	})
	require.NoError(t, err)
	assert.Equal(t, "acme-green-manufacturing", resp.Company.Slug)
	assert.Equal(t, "US", resp.Company.Region)
	assert.Equal(t, "USD", resp.Company.Currency)
	assert.Equal(t, apikeydomain.RoleOwner, resp.APIKey.Role)

	principal, err := f.keys.Authenticate(context.Background(), resp.APIKey.APIKey)
	require.NoError(t, err)
	assert.Equal(t, resp.Company.ID, principal.CompanyID.String())
}

func TestOnboardValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Onboard(ctx, companydomain.OnboardRequest{Name: "  "})
	assert.ErrorIs(t, err, companydomain.ErrInvalidName)
	_, err = f.svc.Onboard(ctx, companydomain.OnboardRequest{Name: "X", Region: "atlantis"})
	assert.ErrorIs(t, err, companydomain.ErrInvalidRegion)
	_, err = f.svc.Onboard(ctx, companydomain.OnboardRequest{Name: "X", Currency: "dollars"})
	assert.ErrorIs(t, err, companydomain.ErrInvalidCurrency)
	_, err = f.svc.Onboard(ctx, companydomain.OnboardRequest{Name: "X", Employees: ptrInt64(-1)})
	assert.ErrorIs(t, err, companydomain.ErrInvalidEmployees)
	_, err = f.svc.Onboard(ctx, companydomain.OnboardRequest{Name: "X", AnnualRevenue: ptrFloat(-5)})
	assert.ErrorIs(t, err, companydomain.ErrInvalidRevenue)
}

func TestOnboardDuplicateSlugConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Onboard(ctx, companydomain.OnboardRequest{Name: "Blue Ocean"})
	require.NoError(t, err)
	_, err = f.svc.Onboard(ctx, companydomain.OnboardRequest{Name: "blue ocean"})
	assert.ErrorIs(t, err, companydomain.ErrConflict)
}

func TestGetAndUpdateUseCompanyFromContext(t *testing.T) {
	f := newFixture(t)

	onboarded, err := f.svc.Onboard(context.Background(), companydomain.OnboardRequest{Name: "Northwind"})
	require.NoError(t, err)
	assert.Equal(t, "Global", onboarded.Company.Region)

	id, err := snowflake.ParseString(onboarded.Company.ID)
	require.NoError(t, err)
	ctx := companyctx.WithCompanyID(context.Background(), id.Int64())

	updated, err := f.svc.Update(ctx, companydomain.UpdateRequest{
		Region:        ptrString("EU"),
		AnnualRevenue: ptrFloat(1_000_000),
		Metadata:      map[string]any{"sector": "logistics"},
	})
	require.NoError(t, err)
	assert.Equal(t, "EU", updated.Region)
	require.NotNil(t, updated.AnnualRevenue)
	assert.Equal(t, 1_000_000.0, *updated.AnnualRevenue)

	got, err := f.svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "EU", got.Region)
	assert.Equal(t, "logistics", got.Metadata["sector"])

	_, err = f.svc.Get(context.Background())
	assert.ErrorIs(t, err, companydomain.ErrInvalidCompany)
	_, err = f.svc.Get(companyctx.WithCompanyID(context.Background(), 12345))
	assert.ErrorIs(t, err, companydomain.ErrNotFound)

	all, err := f.svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
