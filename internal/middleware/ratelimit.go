package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/carrypal/carrypal-backend/internal/utils"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per user ID, or per client IP for
// anonymous requests. It usually runs ahead of SessionMiddleware, so the user
// is resolved from the session cookie when sessions is set.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     rate.Limit
	burst    int
	sessions SessionFetcher
	now      func() time.Time
}

func NewRateLimiter(requestsPerSecond, burst int, sessions SessionFetcher) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		sessions: sessions,
		now:      time.Now,
	}
}

// key picks the bucket for r. Unknown or expired sessions fall back to the IP.
func (rl *RateLimiter) key(r *http.Request) string {
	if userID, ok := utils.GetUserIDFromContext(r.Context()); ok && userID != "" {
		return "user:" + userID
	}
	if rl.sessions != nil {
		if cookie, err := r.Cookie("session_id"); err == nil {
			session, err := rl.sessions.FindSessionByID(cookie.Value)
			if err == nil && session.UserID != "" && session.ExpiresAt.After(rl.now()) {
				return "user:" + session.UserID
			}
		}
	}
	return "ip:" + clientIP(r)
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = rl.now()
	return v.limiter
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.limiter(rl.key(r)).Allow() {
			w.Header().Set("Retry-After", strconv.Itoa(1))
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Cleanup drops visitors idle for longer than maxIdle.
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-maxIdle)
	removed := 0
	for key, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, key)
			removed++
		}
	}
	return removed
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
