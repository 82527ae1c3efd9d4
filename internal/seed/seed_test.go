package seed

import (
	"testing"

	companydomain "github.com/smallbiznis/greenledger/internal/company/domain"
	compliancedomain "github.com/smallbiznis/greenledger/internal/compliance/domain"
	metricdomain "github.com/smallbiznis/greenledger/internal/metric/domain"
	"github.com/smallbiznis/greenledger/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEnsureDemoCompanyIsIdempotent(t *testing.T) {
	conn := db.NewTest(t, &companydomain.Company{}, &metricdomain.MetricRecord{}, &compliancedomain.Document{})

	require.NoError(t, EnsureDemoCompany(conn, zap.NewNop()))
	require.NoError(t, EnsureDemoCompany(conn, zap.NewNop()))

	var companies int64
	require.NoError(t, conn.Model(&companydomain.Company{}).Count(&companies).Error)
	assert.EqualValues(t, 1, companies)

	var metrics int64
	require.NoError(t, conn.Model(&metricdomain.MetricRecord{}).Count(&metrics).Error)
	assert.EqualValues(t, len(demoMetrics), metrics)

	var docs int64
	require.NoError(t, conn.Model(&compliancedomain.Document{}).Count(&docs).Error)
	assert.EqualValues(t, 1, docs)
}
