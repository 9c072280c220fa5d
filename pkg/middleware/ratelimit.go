package middleware

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/teamace/ballshop/pkg/httputil"
	"github.com/teamace/ballshop/pkg/observability"
)

// LoginRateLimiter throttles login attempts per client IP using a fixed
// one-minute window in Redis. When Redis is unavailable the limiter fails
// open: losing throttling is better than losing logins.
type LoginRateLimiter struct {
	client    *redis.Client
	logger    *observability.Logger
	perMinute int
}

// NewLoginRateLimiter creates the limiter. client may be nil to disable
// throttling.
func NewLoginRateLimiter(client *redis.Client, logger *observability.Logger, perMinute int) *LoginRateLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	return &LoginRateLimiter{client: client, logger: logger, perMinute: perMinute}
}

// Middleware enforces the limit on the wrapped handler.
func (l *LoginRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.client == nil {
			next.ServeHTTP(w, r)
			return
		}

		allowed, err := l.allow(r.Context(), clientIP(r))
		if err != nil {
			if l.logger != nil {
				l.logger.WithError(err).Warn("rate limit check failed, allowing request")
			}
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			httputil.WriteTooManyRequests(w, "Too many login attempts, try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *LoginRateLimiter) allow(ctx context.Context, ip string) (bool, error) {
	key := "ballshop:ratelimit:login:" + ip

	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return count.Val() <= int64(l.perMinute), nil
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// First hop is the client.
		for i := 0; i < len(forwarded); i++ {
			if forwarded[i] == ',' {
				return forwarded[:i]
			}
		}
		return forwarded
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
