package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Merchously/iRun/internal"
	"github.com/Merchously/iRun/internal/transport"
	"github.com/Merchously/iRun/pkg/logger"
)

const bucketTTL = 10 * time.Minute

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// ClientRateLimiter hands out a token bucket per peer address.
type ClientRateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

// NewClientRateLimiter allows perMinute requests per client with the given burst.
// A perMinute of zero or less disables limiting.
func NewClientRateLimiter(perMinute, burst int) *ClientRateLimiter {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	if burst <= 0 {
		burst = 1
	}
	return &ClientRateLimiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		burst:   burst,
		now:     time.Now,
	}
}

// Allow spends one token from the client's bucket.
func (l *ClientRateLimiter) Allow(client string) bool {
	if l.limit == rate.Inf {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > bucketTTL {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > bucketTTL {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[client]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[client] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// RateLimit rejects requests over the client's budget with a 429 envelope.
func RateLimit(l *ClientRateLimiter) func(http.Handler) http.Handler {
	base := transport.NewBaseHandler(nil)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := internal.PeerAddressFromContext(r.Context())
			if client == internal.UnknownSourceAddress {
				client = internal.PeerAddress(r)
			}
			if !l.Allow(client) {
				logger.From(r.Context()).WarnContext(r.Context(), "rate limit exceeded", "client", client, "path", r.URL.Path)
				w.Header().Set("Retry-After", "60")
				base.WriteAppError(w, r, internal.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
