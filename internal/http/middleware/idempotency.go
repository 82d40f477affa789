package middleware

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursemarket-backend/internal/observability"
	"github.com/yungbote/coursemarket-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursemarket-backend/internal/platform/logger"
	redisclient "github.com/yungbote/coursemarket-backend/internal/platform/redis"
)

const (
	HeaderIdempotencyKey   = "Idempotency-Key"
	HeaderIdempotentReplay = "Idempotent-Replay"

	maxIdempotencyKeyLength = 200
)

// Idempotency replays the first completed response for a repeated Idempotency-Key
// from the same caller on the same route. 5xx outcomes release the key so the
// client may retry. With no store configured requests pass through untouched.
type Idempotency struct {
	log     *logger.Logger
	store   redisclient.IdempotencyStore
	metrics *observability.Metrics
}

func NewIdempotency(log *logger.Logger, store redisclient.IdempotencyStore, metrics *observability.Metrics) *Idempotency {
	return &Idempotency{log: log.With("middleware", "Idempotency"), store: store, metrics: metrics}
}

type capturingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

func (m *Idempotency) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
		if m == nil || m.store == nil || key == "" {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			abortWith(c, http.StatusBadRequest, "invalid_idempotency_key", "Idempotency-Key is too long")
			return
		}
		scoped := scopeKey(c, key)
		ctx := c.Request.Context()

		stored, err := m.store.Reserve(ctx, scoped)
		switch {
		case errors.Is(err, redisclient.ErrInFlight):
			abortWith(c, http.StatusConflict, "idempotency_in_flight", "a request with this Idempotency-Key is still in progress")
			return
		case err != nil:
			m.log.Warn("Idempotency store unavailable; serving without replay protection", "error", err)
			c.Next()
			return
		case stored != nil:
			m.metrics.IncIdempotencyReplay(c.FullPath())
			c.Header(HeaderIdempotentReplay, "true")
			c.Data(stored.Status, stored.ContentType, stored.Body)
			c.Abort()
			return
		}

		w := &capturingWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		bg := ctxutil.Default(ctx)
		status := w.Status()
		if status >= http.StatusInternalServerError {
			if err := m.store.Release(bg, scoped); err != nil {
				m.log.Warn("Idempotency key release failed", "error", err)
			}
			return
		}
		if err := m.store.Complete(bg, scoped, redisclient.StoredResponse{
			Status:      status,
			ContentType: w.Header().Get("Content-Type"),
			Body:        w.body.Bytes(),
		}); err != nil {
			m.log.Warn("Idempotency response store failed", "error", err)
		}
	}
}

func scopeKey(c *gin.Context, key string) string {
	user := "anon"
	if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil {
		user = rd.UserID.String()
	}
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	return user + ":" + c.Request.Method + ":" + route + ":" + c.Param("id") + ":" + key
}
