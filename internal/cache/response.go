package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	obsmetrics "github.com/smallbiznis/greenledger/internal/observability/metrics"
	"go.uber.org/zap"
)

const defaultResponseTTL = 5 * time.Minute

// CachedResponse is a serialized GET response.
type CachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Generation identifies the cache state a response was rendered against.
// Take one with Begin before reading from the database and hand it to Save.
type Generation struct {
	companyID snowflake.ID
	value     uint64
}

// ResponseCache keeps read responses per company. Every write path for a
// company calls InvalidateCompany so cached KPIs never outlive the data.
// Invalidation bumps a generation; Save drops responses rendered under an
// older one so a slow read cannot repopulate the cache after a write.
type ResponseCache struct {
	store   Store
	ttl     time.Duration
	metrics *obsmetrics.Metrics
	log     *zap.Logger

	mu          sync.Mutex
	epoch       uint64
	generations map[snowflake.ID]uint64
}

func NewResponseCache(store Store, ttl time.Duration, metrics *obsmetrics.Metrics, log *zap.Logger) *ResponseCache {
	if ttl <= 0 {
		ttl = defaultResponseTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ResponseCache{
		store:   store,
		ttl:     ttl,
		metrics: metrics,
		log:     log.Named("cache.response"),

		generations: make(map[snowflake.ID]uint64),
	}
}

func CompanyPrefix(companyID snowflake.ID) string {
	return fmt.Sprintf("company:%s|", companyID.String())
}

func (c *ResponseCache) Key(companyID snowflake.ID, requestURI string) string {
	return CompanyPrefix(companyID) + requestURI
}

func (c *ResponseCache) Lookup(ctx context.Context, key string) (*CachedResponse, bool) {
	if c == nil || c.store == nil {
		return nil, false
	}
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.Warn("cache lookup failed", zap.Error(err))
		return nil, false
	}
	c.metrics.RecordCacheLookup(ctx, ok)
	if !ok {
		return nil, false
	}
	var resp CachedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

// Begin captures the current generation for companyID.
func (c *ResponseCache) Begin(companyID snowflake.ID) Generation {
	if c == nil {
		return Generation{companyID: companyID}
	}
	return Generation{companyID: companyID, value: c.generation(companyID)}
}

func (c *ResponseCache) generation(companyID snowflake.ID) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch + c.generations[companyID]
}

func (c *ResponseCache) Save(ctx context.Context, key string, gen Generation, resp CachedResponse) {
	if c == nil || c.store == nil {
		return
	}
	if c.generation(gen.companyID) != gen.value {
		c.log.Debug("cache store skipped, invalidated while rendering",
			zap.String("company_id", gen.companyID.String()),
		)
		return
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
		c.log.Warn("cache store failed", zap.Error(err))
	}
}

func (c *ResponseCache) InvalidateCompany(ctx context.Context, companyID snowflake.ID) {
	if c == nil || c.store == nil || companyID == 0 {
		return
	}
	c.mu.Lock()
	c.generations[companyID]++
	c.mu.Unlock()
	if err := c.store.DeletePrefix(ctx, CompanyPrefix(companyID)); err != nil {
		c.log.Warn("cache invalidation failed",
			zap.String("company_id", companyID.String()),
			zap.Error(err),
		)
	}
}

// InvalidateAll drops every company's entries. It runs when scoring.yml is
// reloaded since default targets feed every cached KPI.
func (c *ResponseCache) InvalidateAll(ctx context.Context) {
	if c == nil || c.store == nil {
		return
	}
	c.mu.Lock()
	c.epoch++
	c.mu.Unlock()
	if err := c.store.DeletePrefix(ctx, "company:"); err != nil {
		c.log.Warn("cache invalidation failed", zap.Error(err))
	}
}
