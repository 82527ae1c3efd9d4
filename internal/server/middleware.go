package server

import (
	"bytes"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/greenledger/internal/audit/domain"
	"github.com/smallbiznis/greenledger/internal/auditcontext"
	"github.com/smallbiznis/greenledger/internal/cache"
	"github.com/smallbiznis/greenledger/internal/companyctx"
	obscontext "github.com/smallbiznis/greenledger/internal/observability/context"
)

const (
	HeaderAdminToken = "X-Admin-Token"
	headerCache      = "X-Cache"
)

// AdminTokenRequired guards operator routes with the static admin token. The
// routes answer 404 when no token is configured.
func (s *Server) AdminTokenRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		expected := strings.TrimSpace(s.cfg.AdminToken)
		if expected == "" {
			AbortWithError(c, ErrNotFound)
			return
		}

		provided := strings.TrimSpace(c.GetHeader(HeaderAdminToken))
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := c.Request.Context()
		ctx = auditcontext.WithActor(ctx, string(auditdomain.ActorTypeAdmin), "admin_token")
		ctx = obscontext.WithActor(ctx, string(auditdomain.ActorTypeAdmin), "admin_token")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

type bufferedWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bufferedWriter) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *bufferedWriter) WriteString(data string) (int, error) {
	w.body.WriteString(data)
	return w.ResponseWriter.WriteString(data)
}

// ResponseCache serves repeated GETs for a company from the response cache.
// Only 200 responses are stored; writes for the company drop its entries.
func (s *Server) ResponseCache() gin.HandlerFunc {
	return func(c *gin.Context) {
		companyID, ok := companyctx.CompanyIDFromContext(c.Request.Context())
		if s.responseCache == nil || !ok || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := s.responseCache.Key(companyID, c.Request.URL.RequestURI())
		if cached, hit := s.responseCache.Lookup(ctx, key); hit {
			c.Header(headerCache, "HIT")
			c.Data(cached.Status, cached.ContentType, cached.Body)
			c.Abort()
			return
		}

		gen := s.responseCache.Begin(companyID)
		writer := &bufferedWriter{ResponseWriter: c.Writer}
		c.Writer = writer
		c.Header(headerCache, "MISS")
		c.Next()

		if writer.Status() != http.StatusOK || len(c.Errors) > 0 {
			return
		}
		s.responseCache.Save(ctx, key, gen, cache.CachedResponse{
			Status:      http.StatusOK,
			ContentType: writer.Header().Get("Content-Type"),
			Body:        writer.body.Bytes(),
		})
	}
}
