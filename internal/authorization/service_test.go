package authorization

import (
	"context"
	"testing"

	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/smallbiznis/greenledger/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	conn := db.NewTest(t, &gormadapter.CasbinRule{})
	enforcer, err := NewEnforcer(conn)
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func TestRoleMatrix(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		role   string
		object string
		action string
		want   error
	}{
		{"viewer", ObjectKPI, ActionKPIView, nil},
		{"viewer", ObjectMetric, ActionMetricSubmit, ErrForbidden},
		{"analyst", ObjectMetric, ActionMetricSubmit, nil},
		{"analyst", ObjectCompliance, ActionComplianceReview, ErrForbidden},
		{"admin", ObjectCompliance, ActionComplianceReview, nil},
		{"admin", ObjectAPIKey, ActionAPIKeyRevoke, ErrForbidden},
		{"owner", ObjectAPIKey, ActionAPIKeyRevoke, nil},
		{"owner", ObjectAuditLog, ActionAuditLogView, nil},
	}
	for _, tc := range cases {
		t.Run(tc.role+"/"+tc.action, func(t *testing.T) {
			err := svc.Authorize(ctx, "api_key:1001", tc.role, "42", tc.object, tc.action)
			if tc.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.want)
			}
		})
	}
}

func TestRoleIsScopedToCompany(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Authorize(ctx, "api_key:2002", "owner", "1", ObjectAPIKey, ActionAPIKeyRevoke))
	assert.ErrorIs(t, svc.Authorize(ctx, "api_key:2002", "viewer", "2", ObjectAPIKey, ActionAPIKeyRevoke), ErrForbidden)
	// A downgraded key loses the grants of its previous role.
	assert.ErrorIs(t, svc.Authorize(ctx, "api_key:2002", "viewer", "1", ObjectAPIKey, ActionAPIKeyRevoke), ErrForbidden)
}

func TestAuthorizeRejectsMalformedInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, "", "owner", "1", ObjectKPI, ActionKPIView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "user:5", "owner", "1", ObjectKPI, ActionKPIView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "api_key:5", "root", "1", ObjectKPI, ActionKPIView), ErrInvalidRole)
	assert.ErrorIs(t, svc.Authorize(ctx, "api_key:5", "owner", "abc", ObjectKPI, ActionKPIView), ErrInvalidCompany)
	assert.ErrorIs(t, svc.Authorize(ctx, "api_key:5", "owner", "1", "", ActionKPIView), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, "api_key:5", "owner", "1", ObjectKPI, " "), ErrInvalidAction)
}
