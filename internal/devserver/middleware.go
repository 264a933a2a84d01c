package devserver

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"finsync/internal/log"
)

const (
	headerRequestID = "X-Request-ID"
	ctxRequestID    = "requestId"
	ctxAccountID    = "accountId"
)

// trace tags each request with an id (the client's when it sent one) and
// logs its completion at a level matching the status.
func trace(logger *log.Logger, total *atomic.Int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequestID, id)
		c.Request = c.Request.WithContext(log.IntoContext(c.Request.Context(), logger.With(log.FieldRequestID, id)))
		total.Add(1)

		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}
		fields := log.NewFields().
			WithRequestID(id).
			WithHTTPRequest(c.Request.Method, c.Request.URL.Path, c.Request.URL.RawQuery).
			WithHTTPResponse(status, time.Since(start).Milliseconds(), status < 400)
		logger.LogContext(c.Request.Context(), level, "HTTP request completed", fields.ToSlice()...)
	}
}

// limiter is a fixed one-minute window per client IP. Idle clients are
// swept lazily.
type limiter struct {
	mu        sync.Mutex
	perMinute int
	clients   map[string]*window
	lastSweep time.Time
	now       func() time.Time
}

type window struct {
	start    time.Time
	requests int
}

func newLimiter(perMinute int) *limiter {
	return &limiter{perMinute: perMinute, clients: map[string]*window{}, now: time.Now}
}

func (l *limiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if now.Sub(l.lastSweep) > 5*time.Minute {
		for k, w := range l.clients {
			if now.Sub(w.start) > 10*time.Minute {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}

	w, ok := l.clients[ip]
	if !ok || now.Sub(w.start) > time.Minute {
		l.clients[ip] = &window{start: now, requests: 1}
		return true
	}
	w.requests++
	return w.requests <= l.perMinute
}

func (l *limiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP()) {
			c.Header("Retry-After", "60")
			abort(c, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		c.Next()
	}
}

// requireAuth resolves the bearer token and rejects calls against any
// account but the token's own.
func requireAuth(store *Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || token == "" {
			abort(c, http.StatusUnauthorized, "missing bearer token")
			return
		}
		acc, ok := store.Authenticate(token)
		if !ok {
			abort(c, http.StatusUnauthorized, "invalid token")
			return
		}
		if acc != c.Param(ctxAccountID) {
			abort(c, http.StatusForbidden, "forbidden")
			return
		}
		c.Set(ctxAccountID, acc)
		c.Next()
	}
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"message": msg})
}

// securityHeaders sets the response headers an API needs. Account data is
// never cached by intermediaries.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cross-Origin-Resource-Policy", "same-site")
		if strings.HasPrefix(c.Request.URL.Path, "/account/") || strings.HasPrefix(c.Request.URL.Path, "/auth/") {
			h.Set("Cache-Control", "no-store")
		}
		c.Next()
	}
}
