package server

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"demeter/internal/auth"
	"demeter/internal/models"
)

const (
	ctxUserID   = "userID"
	ctxUsername = "username"
)

// authRequired accepts the access cookie or a bearer token and stores the
// caller in the context.
func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(auth.AccessCookie)
		if err != nil || token == "" {
			token = auth.BearerToken(c.GetHeader("Authorization"))
		}
		if token == "" {
			s.respondError(c, http.StatusUnauthorized, errors.New("authentication required"))
			return
		}
		claims, err := s.tokens.VerifyAccess(token)
		if err != nil {
			s.respondError(c, http.StatusUnauthorized, err)
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			s.respondError(c, http.StatusUnauthorized, auth.ErrInvalidToken)
			return
		}
		c.Set(ctxUserID, userID)
		c.Set(ctxUsername, claims.Username)
		c.Next()
	}
}

// currentUser returns the caller set by authRequired.
func currentUser(c *gin.Context) models.ID {
	if v, ok := c.Get(ctxUserID); ok {
		if id, ok := v.(models.ID); ok {
			return id
		}
	}
	return 0
}

// corsMiddleware allows credentialed requests from the listed origins.
func corsMiddleware(origins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" || !(slices.Contains(origins, "*") || slices.Contains(origins, origin)) {
			c.Next()
			return
		}
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Add("Vary", "Origin")
		if c.Request.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			h.Set("Access-Control-Max-Age", "600")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// timeoutMiddleware bounds the request context.
func timeoutMiddleware(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// limiterIdleTTL is how long an address's bucket outlives its last request.
const limiterIdleTTL = 10 * time.Minute

// ipLimiter keeps one token bucket per client address. Idle buckets expire.
type ipLimiter struct {
	mu       sync.Mutex
	perMin   int
	idle     time.Duration
	limiters *gocache.Cache
}

func newIPLimiter(perMinute int, idle time.Duration) *ipLimiter {
	return &ipLimiter{
		perMin:   perMinute,
		idle:     idle,
		limiters: gocache.New(idle, idle/2),
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	var limiter *rate.Limiter
	if v, ok := l.limiters.Get(ip); ok {
		limiter = v.(*rate.Limiter)
	} else {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMin)), l.perMin)
	}
	// re-set on every hit so the expiry counts from the last request
	l.limiters.Set(ip, limiter, l.idle)
	l.mu.Unlock()
	return limiter.Allow()
}

// rateLimit throttles credential endpoints per client IP.
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.allow(strings.TrimSpace(c.ClientIP())) {
			s.respondError(c, http.StatusTooManyRequests, errors.New("too many attempts, try again later"))
			return
		}
		c.Next()
	}
}
