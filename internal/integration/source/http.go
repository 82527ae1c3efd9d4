// Package source holds ExternalDataSource implementations.
package source

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/smallbiznis/greenledger/internal/config"
	integrationdomain "github.com/smallbiznis/greenledger/internal/integration/domain"
	metricdomain "github.com/smallbiznis/greenledger/internal/metric/domain"
	"github.com/smallbiznis/greenledger/pkg/retry"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

//go:embed payload.schema.json
var payloadSchema string

const (
	payloadSchemaURL = "https://greenledger.local/schemas/integration-payload.schema.json"
	maxPayloadBytes  = 4 << 20
	// maxPages stops a connector that never returns an empty next_cursor.
	maxPages = 100
)

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// PayloadSchema returns the compiled schema connector responses must match.
func PayloadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		c.AssertFormat = true
		if err := c.AddResource(payloadSchemaURL, strings.NewReader(payloadSchema)); err != nil {
			compileErr = fmt.Errorf("integration schema load failed: %w", err)
			return
		}
		compiled, compileErr = c.Compile(payloadSchemaURL)
		if compileErr != nil {
			compileErr = fmt.Errorf("integration schema compile failed: %w", compileErr)
		}
	})
	return compiled, compileErr
}

type payload struct {
	Metrics    []integrationdomain.ExternalMetric `json:"metrics"`
	NextCursor *string                            `json:"next_cursor"`
}

// HTTPSource fetches metrics from a REST endpoint of an ERP or HR system.
type HTTPSource struct {
	kind     string
	endpoint string
	token    string
	client   *http.Client
	limiter  *rate.Limiter
	retry    retry.Config
	schema   *jsonschema.Schema
	max      int
}

type HTTPSourceOptions struct {
	Kind     string
	Endpoint string
	Token    string
	Client   *http.Client
	Limiter  *rate.Limiter
	Retry    retry.Config
	// MaxRecords caps one Fetch across all pages. Defaults to the metric
	// batch limit.
	MaxRecords int
}

func NewHTTPSource(opts HTTPSourceOptions) (*HTTPSource, error) {
	schema, err := PayloadSchema()
	if err != nil {
		return nil, err
	}
	endpoint := strings.TrimSpace(opts.Endpoint)
	parsed, err := url.Parse(endpoint)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, integrationdomain.ErrInvalidEndpoint
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	maxRecords := opts.MaxRecords
	if maxRecords <= 0 {
		maxRecords = metricdomain.MaxBatchSize
	}
	return &HTTPSource{
		kind:     opts.Kind,
		endpoint: endpoint,
		token:    strings.TrimSpace(opts.Token),
		client:   client,
		limiter:  limiter,
		retry:    opts.Retry,
		schema:   schema,
		max:      maxRecords,
	}, nil
}

func (s *HTTPSource) Kind() string { return s.kind }

// Fetch follows next_cursor until the connector reports no further page.
// Every page is throttled and retried on its own.
func (s *HTTPSource) Fetch(ctx context.Context, req integrationdomain.FetchRequest) ([]integrationdomain.ExternalMetric, error) {
	var (
		metrics []integrationdomain.ExternalMetric
		cursor  string
		seen    = map[string]bool{}
	)
	for page := 0; page < maxPages; page++ {
		body, err := retry.DoWithResult(ctx, s.retry, func(ctx context.Context) ([]byte, error) {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, retry.Permanent(err)
			}
			return s.fetchOnce(ctx, req, cursor)
		})
		if err != nil {
			return nil, err
		}
		decoded, err := s.decode(body)
		if err != nil {
			return nil, err
		}
		metrics = append(metrics, decoded.Metrics...)
		if len(metrics) > s.max {
			return nil, fmt.Errorf("%w: more than %d records", integrationdomain.ErrSyncTooLarge, s.max)
		}

		next := ""
		if decoded.NextCursor != nil {
			next = strings.TrimSpace(*decoded.NextCursor)
		}
		if next == "" {
			return metrics, nil
		}
		if seen[next] {
			return nil, fmt.Errorf("%w: next_cursor %q repeated", integrationdomain.ErrInvalidPayload, next)
		}
		seen[next] = true
		cursor = next
	}
	return nil, fmt.Errorf("%w: more than %d pages", integrationdomain.ErrInvalidPayload, maxPages)
}

func (s *HTTPSource) fetchOnce(ctx context.Context, req integrationdomain.FetchRequest, cursor string) ([]byte, error) {
	target, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, retry.Permanent(integrationdomain.ErrInvalidEndpoint)
	}
	query := target.Query()
	query.Set("company_id", req.CompanyID)
	if req.ReportingYear > 0 {
		query.Set("reporting_year", strconv.Itoa(req.ReportingYear))
	}
	if req.Since != nil {
		query.Set("since", req.Since.UTC().Format(time.RFC3339))
	}
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	target.RawQuery = query.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, retry.Permanent(err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if s.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integrationdomain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integrationdomain.ErrUpstream, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", integrationdomain.ErrUpstream, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, retry.Permanent(fmt.Errorf("%w: status %d", integrationdomain.ErrUpstream, resp.StatusCode))
	}
	return body, nil
}

func (s *HTTPSource) decode(body []byte) (*payload, error) {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", integrationdomain.ErrInvalidPayload, err)
	}
	if err := s.schema.Validate(raw); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return nil, fmt.Errorf("%w: %s", integrationdomain.ErrInvalidPayload, verr.Error())
		}
		return nil, fmt.Errorf("%w: %v", integrationdomain.ErrInvalidPayload, err)
	}

	var decoded payload
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", integrationdomain.ErrInvalidPayload, err)
	}
	return &decoded, nil
}

// HTTPFactory builds HTTPSources and keeps one limiter per connection so the
// throttle survives across sync runs.
type HTTPFactory struct {
	cfg    config.IntegrationConfig
	client *http.Client
	log    *zap.Logger

	mu       sync.Mutex
	limiters map[snowflake.ID]*rate.Limiter
}

func NewHTTPFactory(cfg config.Config, log *zap.Logger) integrationdomain.SourceFactory {
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.Integrations.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPFactory{
		cfg:      cfg.Integrations,
		client:   &http.Client{Timeout: timeout},
		log:      log.Named("integration.source"),
		limiters: map[snowflake.ID]*rate.Limiter{},
	}
}

func (f *HTTPFactory) New(conn integrationdomain.Connection) (integrationdomain.ExternalDataSource, error) {
	retryCfg := retry.DefaultConfig()
	if f.cfg.MaxAttempts > 0 {
		retryCfg.MaxAttempts = f.cfg.MaxAttempts
	}
	retryCfg.Logger = f.log.With(zap.String("connection_id", conn.ID.String()))

	return NewHTTPSource(HTTPSourceOptions{
		Kind:     conn.Kind,
		Endpoint: conn.Endpoint,
		Token:    conn.AuthToken,
		Client:   f.client,
		Limiter:  f.limiter(conn.ID),
		Retry:    retryCfg,
	})
}

func (f *HTTPFactory) limiter(id snowflake.ID) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.limiters[id]; ok {
		return l
	}
	limit := rate.Limit(f.cfg.RequestsPerSecond)
	if f.cfg.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}
	burst := f.cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	l := rate.NewLimiter(limit, burst)
	f.limiters[id] = l
	return l
}
