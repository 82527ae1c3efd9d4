package server

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	apikeydomain "github.com/smallbiznis/greenledger/internal/apikey/domain"
	auditdomain "github.com/smallbiznis/greenledger/internal/audit/domain"
	"github.com/smallbiznis/greenledger/internal/authorization"
	companydomain "github.com/smallbiznis/greenledger/internal/company/domain"
	compliancedomain "github.com/smallbiznis/greenledger/internal/compliance/domain"
	emissionsdomain "github.com/smallbiznis/greenledger/internal/emissions/domain"
	integrationdomain "github.com/smallbiznis/greenledger/internal/integration/domain"
	metricdomain "github.com/smallbiznis/greenledger/internal/metric/domain"
	reportdomain "github.com/smallbiznis/greenledger/internal/report/domain"
	scoringdomain "github.com/smallbiznis/greenledger/internal/scoring/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// Batch failures are reported as "metrics[3]: invalid_percentage".
var batchIndexPattern = regexp.MustCompile(`^(metrics\[\d+\]): `)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// classifyErrorForLog feeds the request logger the payload type and code.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	switch {
	case isUnauthorizedError(err):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case isForbiddenError(err):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isUpstreamError(err):
		return http.StatusBadGateway, errorPayload{
			Type:    "upstream_error",
			Message: "integration source failed",
		}
	}

	if code, ok := validationErrorCode(err); ok {
		field := validationErrorField(code)
		if m := batchIndexPattern.FindStringSubmatch(err.Error()); m != nil {
			field = m[1] + "." + field
		}
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   field,
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

// A missing company in context means the request never passed authentication.
func isUnauthorizedError(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, apikeydomain.ErrInvalidKey),
		errors.Is(err, apikeydomain.ErrInvalidCompany),
		errors.Is(err, companydomain.ErrInvalidCompany),
		errors.Is(err, metricdomain.ErrInvalidCompany),
		errors.Is(err, scoringdomain.ErrInvalidCompany),
		errors.Is(err, emissionsdomain.ErrInvalidCompany),
		errors.Is(err, compliancedomain.ErrInvalidCompany),
		errors.Is(err, integrationdomain.ErrInvalidCompany),
		errors.Is(err, reportdomain.ErrInvalidCompany),
		errors.Is(err, auditdomain.ErrInvalidCompany):
		return true
	default:
		return false
	}
}

func isForbiddenError(err error) bool {
	switch {
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, authorization.ErrInvalidActor),
		errors.Is(err, authorization.ErrInvalidRole),
		errors.Is(err, authorization.ErrInvalidCompany),
		errors.Is(err, authorization.ErrInvalidObject),
		errors.Is(err, authorization.ErrInvalidAction):
		return true
	default:
		return false
	}
}

func isUpstreamError(err error) bool {
	return errors.Is(err, integrationdomain.ErrUpstream) ||
		errors.Is(err, integrationdomain.ErrInvalidPayload) ||
		errors.Is(err, integrationdomain.ErrSyncTooLarge)
}

var validationSentinels = []error{
	ErrInvalidRequest,
	companydomain.ErrInvalidName,
	companydomain.ErrInvalidRegion,
	companydomain.ErrInvalidCurrency,
	companydomain.ErrInvalidEmployees,
	companydomain.ErrInvalidRevenue,
	companydomain.ErrInvalidProductionUnits,
	metricdomain.ErrInvalidCategory,
	metricdomain.ErrInvalidMetricName,
	metricdomain.ErrInvalidValue,
	metricdomain.ErrNegativeValue,
	metricdomain.ErrPercentOutOfRange,
	metricdomain.ErrInvalidUnit,
	metricdomain.ErrInvalidTarget,
	metricdomain.ErrInvalidYear,
	metricdomain.ErrInvalidSource,
	metricdomain.ErrEmptyBatch,
	metricdomain.ErrBatchTooLarge,
	metricdomain.ErrInvalidPageToken,
	metricdomain.ErrInvalidID,
	scoringdomain.ErrInvalidYear,
	emissionsdomain.ErrInvalidYear,
	compliancedomain.ErrInvalidTitle,
	compliancedomain.ErrInvalidFramework,
	compliancedomain.ErrInvalidStatus,
	compliancedomain.ErrInvalidTransition,
	compliancedomain.ErrInvalidID,
	integrationdomain.ErrInvalidKind,
	integrationdomain.ErrInvalidProvider,
	integrationdomain.ErrInvalidEndpoint,
	integrationdomain.ErrInvalidID,
	reportdomain.ErrInvalidYear,
	reportdomain.ErrInvalidID,
	apikeydomain.ErrInvalidName,
	apikeydomain.ErrInvalidRole,
	apikeydomain.ErrInvalidKeyID,
	auditdomain.ErrInvalidPageToken,
	auditdomain.ErrInvalidTimeRange,
	auditdomain.ErrInvalidAction,
	auditdomain.ErrInvalidActorType,
}

func validationErrorCode(err error) (string, bool) {
	for _, sentinel := range validationSentinels {
		if errors.Is(err, sentinel) {
			return sentinel.Error(), true
		}
	}
	return "", false
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, companydomain.ErrConflict),
		errors.Is(err, integrationdomain.ErrDisabled):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, companydomain.ErrNotFound),
		errors.Is(err, metricdomain.ErrNotFound),
		errors.Is(err, scoringdomain.ErrNotFound),
		errors.Is(err, compliancedomain.ErrNotFound),
		errors.Is(err, integrationdomain.ErrNotFound),
		errors.Is(err, reportdomain.ErrNotFound),
		errors.Is(err, apikeydomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "invalid_percentage", "invalid_negative_value":
		return "value"
	case "invalid_batch", "invalid_batch_size":
		return "metrics"
	case "invalid_status_transition":
		return "status"
	case "invalid_integration_kind":
		return "kind"
	}
	return strings.TrimPrefix(code, "invalid_")
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_percentage":
		return "percentage values must be between 0 and 100"
	case "invalid_negative_value":
		return "negative values are only allowed for delta metrics"
	case "invalid_reporting_year":
		return "reporting year is out of range"
	case "invalid_category":
		return "category must be environmental, social or governance"
	case "invalid_batch_size":
		return "too many metrics in one submission"
	case "invalid_status_transition":
		return "status change not allowed"
	default:
		return "invalid value"
	}
}
