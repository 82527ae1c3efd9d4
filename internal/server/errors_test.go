package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	apikeydomain "github.com/smallbiznis/greenledger/internal/apikey/domain"
	"github.com/smallbiznis/greenledger/internal/authorization"
	compliancedomain "github.com/smallbiznis/greenledger/internal/compliance/domain"
	integrationdomain "github.com/smallbiznis/greenledger/internal/integration/domain"
	metricdomain "github.com/smallbiznis/greenledger/internal/metric/domain"
	scoringdomain "github.com/smallbiznis/greenledger/internal/scoring/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		status   int
		kind     string
		field    string
		code     string
		hasField bool
	}{
		{name: "invalid key", err: apikeydomain.ErrInvalidKey, status: http.StatusUnauthorized, kind: "unauthorized"},
		{name: "missing company", err: scoringdomain.ErrInvalidCompany, status: http.StatusUnauthorized, kind: "unauthorized"},
		{name: "forbidden", err: fmt.Errorf("authorize: %w", authorization.ErrForbidden), status: http.StatusForbidden, kind: "forbidden"},
		{name: "upstream", err: integrationdomain.ErrUpstream, status: http.StatusBadGateway, kind: "upstream_error"},
		{name: "bad payload", err: integrationdomain.ErrInvalidPayload, status: http.StatusBadGateway, kind: "upstream_error"},
		{name: "sync too large", err: fmt.Errorf("%w: 501 records", integrationdomain.ErrSyncTooLarge), status: http.StatusBadGateway, kind: "upstream_error"},
		{name: "disabled", err: integrationdomain.ErrDisabled, status: http.StatusConflict, kind: "conflict"},
		{name: "not found", err: metricdomain.ErrNotFound, status: http.StatusNotFound, kind: "not_found"},
		{
			name: "percentage", err: metricdomain.ErrPercentOutOfRange,
			status: http.StatusBadRequest, kind: "validation_error",
			field: "value", code: "invalid_percentage", hasField: true,
		},
		{
			name: "batch item", err: fmt.Errorf("metrics[3]: %w", metricdomain.ErrInvalidCategory),
			status: http.StatusBadRequest, kind: "validation_error",
			field: "metrics[3].category", code: "invalid_category", hasField: true,
		},
		{
			name: "status transition", err: compliancedomain.ErrInvalidTransition,
			status: http.StatusBadRequest, kind: "validation_error",
			field: "status", code: "invalid_status_transition", hasField: true,
		},
		{name: "unknown", err: errors.New("boom"), status: http.StatusInternalServerError, kind: "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.kind, payload.Type)
			if tc.hasField {
				require.Len(t, payload.Errors, 1)
				assert.Equal(t, tc.field, payload.Errors[0].Field)
				assert.Equal(t, tc.code, payload.Errors[0].Code)
			} else {
				assert.Empty(t, payload.Errors)
			}
		})
	}
}

func TestClassifyErrorForLog(t *testing.T) {
	kind, code := classifyErrorForLog(metricdomain.ErrInvalidYear)
	assert.Equal(t, "validation_error", kind)
	assert.Equal(t, "invalid_reporting_year", code)

	kind, code = classifyErrorForLog(ErrUnauthorized)
	assert.Equal(t, "unauthorized", kind)
	assert.Equal(t, "unauthorized", code)
}
