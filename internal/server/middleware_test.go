package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/greenledger/internal/cache"
	"github.com/smallbiznis/greenledger/internal/companyctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseCacheDropsResponseInvalidatedWhileRendering(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rc := cache.NewResponseCache(cache.NewMemoryStore(8), time.Minute, nil, nil)
	s := &Server{responseCache: rc}

	writes := 0
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(companyctx.WithCompanyID(c.Request.Context(), 5))
		c.Next()
	})
	r.Use(s.ResponseCache())
	r.GET("/api/kpis", func(c *gin.Context) {
		if writes == 0 {
			// A metric write for the company lands mid-render.
			rc.InvalidateCompany(c.Request.Context(), snowflake.ID(5))
		}
		writes++
		c.JSON(http.StatusOK, gin.H{"render": writes})
	})

	get := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/kpis", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		return rec
	}

	assert.Equal(t, "MISS", get().Header().Get(headerCache))
	assert.Equal(t, "MISS", get().Header().Get(headerCache))
	third := get()
	assert.Equal(t, "HIT", third.Header().Get(headerCache))
	assert.JSONEq(t, `{"render":2}`, third.Body.String())
}
