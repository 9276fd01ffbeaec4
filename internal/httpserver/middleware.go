package httpserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"raices-verdes/internal/domain"
)

type ctxKey string

const actorCtxKey ctxKey = "actor"

// resolution is what the session middleware stores for the handlers: the
// actor, and the error when the identity could not be determined.
type resolution struct {
	actor domain.Actor
	err   error
}

// sessionMiddleware resolves the bearer token once per request. Failures do
// not abort here: public routes keep working while the identity store is
// down, and session-gated handlers report the error themselves.
func sessionMiddleware(sessions sessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := sessions.Resolve(c.Request.Context(), c.GetHeader("Authorization"))
		ctx := context.WithValue(c.Request.Context(), actorCtxKey, resolution{actor: actor, err: err})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func resolved(c *gin.Context) resolution {
	if r, ok := c.Request.Context().Value(actorCtxKey).(resolution); ok {
		return r
	}
	return resolution{actor: domain.Anonymous()}
}

// actor returns the resolved actor for routes that work without a session.
func actorOf(c *gin.Context) domain.Actor {
	return resolved(c).actor
}

// requireSession writes the error response and returns false when the
// request has no usable session.
func requireSession(c *gin.Context) (domain.Actor, bool) {
	r := resolved(c)
	if r.err != nil {
		writeError(c, r.err)
		return domain.Actor{}, false
	}
	if !r.actor.HasSession() {
		writeError(c, domain.ErrAuthRequired)
		return domain.Actor{}, false
	}
	return r.actor, true
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ev := logger.Info()
		switch {
		case status >= 500:
			ev = logger.Error()
		case status >= 400:
			ev = logger.Warn()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("err", c.Errors.String())
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}

// limiterSet keeps one token bucket per caller.
type limiterSet struct {
	mu      sync.Mutex
	rps     rate.Limit
	burst   int
	entries map[string]*limiterEntry
	ttl     time.Duration
	now     func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLimiterSet(rps float64, burst int) *limiterSet {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &limiterSet{
		rps:     rate.Limit(rps),
		burst:   burst,
		entries: map[string]*limiterEntry{},
		ttl:     10 * time.Minute,
		now:     time.Now,
	}
}

func (s *limiterSet) allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, e := range s.entries {
		if now.Sub(e.lastSeen) > s.ttl {
			delete(s.entries, k)
		}
	}
	e, ok := s.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(s.rps, s.burst)}
		s.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// rateLimit throttles mutations per identity, falling back to the client IP.
// A nil set disables limiting.
func rateLimit(set *limiterSet) gin.HandlerFunc {
	return func(c *gin.Context) {
		if set == nil {
			c.Next()
			return
		}
		key := "ip:" + c.ClientIP()
		if a := actorOf(c); a.HasSession() {
			key = "id:" + a.ID
		}
		if !set.allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{
				StatusCode: http.StatusTooManyRequests,
				Message:    "too many requests",
				Errors:     []errorItem{{Code: "rate_limited", Message: "too many requests"}},
			})
			return
		}
		c.Next()
	}
}
