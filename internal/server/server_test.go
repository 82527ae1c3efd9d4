package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/gin-gonic/gin"
	apikeydomain "github.com/smallbiznis/greenledger/internal/apikey/domain"
	apikeyrepo "github.com/smallbiznis/greenledger/internal/apikey/repository"
	apikeyservice "github.com/smallbiznis/greenledger/internal/apikey/service"
	auditdomain "github.com/smallbiznis/greenledger/internal/audit/domain"
	auditrepo "github.com/smallbiznis/greenledger/internal/audit/repository"
	auditservice "github.com/smallbiznis/greenledger/internal/audit/service"
	"github.com/smallbiznis/greenledger/internal/authorization"
	"github.com/smallbiznis/greenledger/internal/cache"
	"github.com/smallbiznis/greenledger/internal/clock"
	companydomain "github.com/smallbiznis/greenledger/internal/company/domain"
	companyrepo "github.com/smallbiznis/greenledger/internal/company/repository"
	companyservice "github.com/smallbiznis/greenledger/internal/company/service"
	compliancedomain "github.com/smallbiznis/greenledger/internal/compliance/domain"
	compliancerepo "github.com/smallbiznis/greenledger/internal/compliance/repository"
	"github.com/smallbiznis/greenledger/internal/config"
	metricdomain "github.com/smallbiznis/greenledger/internal/metric/domain"
	metricrepo "github.com/smallbiznis/greenledger/internal/metric/repository"
	metricservice "github.com/smallbiznis/greenledger/internal/metric/service"
	scoringdomain "github.com/smallbiznis/greenledger/internal/scoring/domain"
	scoringrepo "github.com/smallbiznis/greenledger/internal/scoring/repository"
	scoringservice "github.com/smallbiznis/greenledger/internal/scoring/service"
	"github.com/smallbiznis/greenledger/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testAdminToken = "admin-secret"

type testServer struct {
	engine    *gin.Engine
	companies companydomain.Service
	keys      apikeydomain.Service
}

func newTestServer(t *testing.T, adminToken string) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn := db.NewTest(t,
		&companydomain.Company{},
		&apikeydomain.APIKey{},
		&metricdomain.MetricRecord{},
		&scoringdomain.ScoreSnapshot{},
		&compliancedomain.Document{},
		&auditdomain.AuditLog{},
		&gormadapter.CasbinRule{},
	)
	node, err := snowflake.NewNode(7)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	enforcer, err := authorization.NewEnforcer(conn)
	require.NoError(t, err)
	respCache := cache.NewResponseCache(cache.NewMemoryStore(64), time.Minute, nil, log)
	scoringCfg := config.NewStaticScoringConfigHolder(config.DefaultScoringConfig())

	audit := auditservice.NewService(auditservice.Params{
		DB: conn, Log: log, GenID: node, Repo: auditrepo.Provide(), Clock: clk,
	})
	keys := apikeyservice.New(apikeyservice.Params{
		DB: conn, Log: log, GenID: node, Repo: apikeyrepo.Provide(), AuditSvc: audit, Clock: clk,
	})
	companies := companyservice.New(companyservice.Params{
		DB: conn, Log: log, GenID: node, Repo: companyrepo.Provide(),
		APIKeySvc: keys, AuditSvc: audit, Cache: respCache, Clock: clk,
	})
	metrics := metricservice.New(metricservice.Params{
		DB: conn, Log: log, GenID: node, Repo: metricrepo.Provide(),
		Scoring: scoringCfg, AuditSvc: audit, Cache: respCache, Clock: clk,
	})
	scores := scoringservice.New(scoringservice.Params{
		DB: conn, Log: log, GenID: node, Repo: scoringrepo.Provide(),
		MetricRepo: metricrepo.Provide(), ComplianceRepo: compliancerepo.Provide(),
		Scoring: scoringCfg, Clock: clk,
	})

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())
	NewServer(ServerParams{
		Gin:           engine,
		Cfg:           config.Config{AdminToken: adminToken},
		Log:           log,
		APIKeySvc:     keys,
		AuthzSvc:      authorization.NewService(authorization.Params{Log: log, Enforcer: enforcer, AuditSvc: audit}),
		AuditSvc:      audit,
		CompanySvc:    companies,
		MetricSvc:     metrics,
		ScoringSvc:    scores,
		ResponseCache: respCache,
	})

	return testServer{engine: engine, companies: companies, keys: keys}
}

// onboard creates a company and returns its owner key.
func (ts testServer) onboard(t *testing.T) (snowflake.ID, string) {
	t.Helper()
	resp, err := ts.companies.Onboard(context.Background(), companydomain.OnboardRequest{
		Name:     "Northwind Plastics",
		Region:   "EU",
		Currency: "EUR",
	})
	require.NoError(t, err)
	id, err := snowflake.ParseString(resp.Company.ID)
	require.NoError(t, err)
	return id, resp.APIKey.APIKey
}

func (ts testServer) keyWithRole(t *testing.T, companyID snowflake.ID, role string) string {
	t.Helper()
	secret, err := ts.keys.CreateForCompany(context.Background(), companyID, apikeydomain.CreateRequest{
		Name: role + " key",
		Role: role,
	})
	require.NoError(t, err)
	return secret.APIKey
}

func (ts testServer) do(method, path, apiKey string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestAPIRequiresKey(t *testing.T) {
	ts := newTestServer(t, testAdminToken)

	rec := ts.do(http.MethodGet, "/api/metrics", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Type)

	rec = ts.do(http.MethodGet, "/api/metrics", "esg_not_a_real_key", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCompanyCannotBeSelectedByRequest(t *testing.T) {
	ts := newTestServer(t, testAdminToken)
	_, owner := ts.onboard(t)

	rec := ts.do(http.MethodGet, "/api/company?company_id=123", owner, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubmitMetricRoles(t *testing.T) {
	ts := newTestServer(t, testAdminToken)
	companyID, _ := ts.onboard(t)
	viewer := ts.keyWithRole(t, companyID, apikeydomain.RoleViewer)
	analyst := ts.keyWithRole(t, companyID, apikeydomain.RoleAnalyst)

	body := map[string]any{
		"category":       "environmental",
		"metric_name":    "renewable_energy_percentage",
		"value":          42.5,
		"unit":           "%",
		"reporting_year": 2024,
	}

	rec := ts.do(http.MethodPost, "/api/metrics", viewer, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodPost, "/api/metrics", analyst, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "manual", created["source"])
	assert.Equal(t, companyID.String(), created["company_id"])

	rec = ts.do(http.MethodGet, "/api/metrics", viewer, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSubmitMetricValidation(t *testing.T) {
	ts := newTestServer(t, testAdminToken)
	_, owner := ts.onboard(t)

	rec := ts.do(http.MethodPost, "/api/metrics", owner, map[string]any{
		"category":       "environmental",
		"metric_name":    "renewable_energy_percentage",
		"value":          140,
		"unit":           "%",
		"reporting_year": 2024,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "invalid_percentage", payload.Errors[0].Code)

	rec = ts.do(http.MethodPost, "/api/metrics/batch", owner, map[string]any{
		"metrics": []map[string]any{
			{"category": "social", "metric_name": "employee_turnover_rate", "value": 12, "unit": "%", "reporting_year": 2024},
			{"category": "financial", "metric_name": "revenue", "value": 1, "unit": "USD", "reporting_year": 2024},
		},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload = decodeError(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "metrics[1].category", payload.Errors[0].Field)
}

func TestKPIResponsesAreCachedUntilDataChanges(t *testing.T) {
	ts := newTestServer(t, testAdminToken)
	_, owner := ts.onboard(t)

	first := ts.do(http.MethodGet, "/api/kpis", owner, nil)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := ts.do(http.MethodGet, "/api/kpis", owner, nil)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	rec := ts.do(http.MethodPost, "/api/metrics", owner, map[string]any{
		"category":       "social",
		"metric_name":    "training_hours_per_employee",
		"value":          18,
		"unit":           "hours",
		"reporting_year": 2024,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	third := ts.do(http.MethodGet, "/api/kpis", owner, nil)
	require.Equal(t, http.StatusOK, third.Code)
	assert.Equal(t, "MISS", third.Header().Get("X-Cache"))
}

func TestAdminOnboarding(t *testing.T) {
	ts := newTestServer(t, testAdminToken)
	body := map[string]any{"name": "Contoso Textiles", "region": "APAC", "currency": "SGD"}

	rec := ts.do(http.MethodPost, "/admin/companies", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/admin/companies", bytes.NewReader(mustJSON(t, body)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderAdminToken, testAdminToken)
	out := httptest.NewRecorder()
	ts.engine.ServeHTTP(out, req)
	require.Equal(t, http.StatusCreated, out.Code, out.Body.String())

	var resp companydomain.OnboardResponse
	require.NoError(t, json.Unmarshal(out.Body.Bytes(), &resp))
	assert.Equal(t, apikeydomain.RoleOwner, resp.APIKey.Role)
	require.NotEmpty(t, resp.APIKey.APIKey)

	rec = ts.do(http.MethodGet, "/api/company", resp.APIKey.APIKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var company companydomain.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &company))
	assert.Equal(t, "Contoso Textiles", company.Name)
}

func TestAdminRoutesHiddenWithoutToken(t *testing.T) {
	ts := newTestServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/admin/companies", nil)
	req.Header.Set(HeaderAdminToken, "anything")
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIKeyRoleEscalationIsRejected(t *testing.T) {
	ts := newTestServer(t, testAdminToken)
	companyID, owner := ts.onboard(t)
	admin := ts.keyWithRole(t, companyID, apikeydomain.RoleAdmin)

	rec := ts.do(http.MethodPost, "/api/api-keys", admin, map[string]any{"name": "ci", "role": "owner"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodPost, "/api/api-keys", owner, map[string]any{"name": "ci", "role": "analyst"})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}
