package httpx

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"hashpaste/internal/metrics"
)

func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	if ip == "" {
		ip = "unknown"
	}
	return ip
}

func rejectRateLimited(w http.ResponseWriter, retryAfter int, limiter string) {
	w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
	metrics.RateLimitRejected.WithLabelValues(limiter).Inc()
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
}

// LimiterIdleTTL is how long a client's bucket survives without requests.
// An idle bucket has refilled to burst, so dropping it changes nothing.
const LimiterIdleTTL = 10 * time.Minute

type ipLimiter struct {
	lim  *rate.Limiter
	seen atomic.Int64 // unix nanos of the last request
}

// ipLimiters holds one token bucket per client IP. Buckets idle for longer
// than idle are swept at most once per idle period, from the request path.
type ipLimiters struct {
	rps   rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	m         sync.Map // map[string]*ipLimiter
	lastSweep atomic.Int64
}

func newIPLimiters(rps float64, burst int, idle time.Duration) *ipLimiters {
	l := &ipLimiters{rps: rate.Limit(rps), burst: burst, idle: idle, now: time.Now}
	l.lastSweep.Store(l.now().UnixNano())
	return l
}

func (l *ipLimiters) allow(ip string) bool {
	now := l.now()
	v, ok := l.m.Load(ip)
	if !ok {
		v, _ = l.m.LoadOrStore(ip, &ipLimiter{lim: rate.NewLimiter(l.rps, l.burst)})
	}
	e := v.(*ipLimiter)
	e.seen.Store(now.UnixNano())
	allowed := e.lim.AllowN(now, 1)
	l.maybeSweep(now)
	return allowed
}

func (l *ipLimiters) maybeSweep(now time.Time) {
	last := l.lastSweep.Load()
	if now.UnixNano()-last < int64(l.idle) || !l.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		return
	}
	cutoff := now.Add(-l.idle).UnixNano()
	l.m.Range(func(k, v any) bool {
		if v.(*ipLimiter).seen.Load() < cutoff {
			l.m.Delete(k)
		}
		return true
	})
}

func (l *ipLimiters) size() int {
	n := 0
	l.m.Range(func(_, _ any) bool { n++; return true })
	return n
}

// RateLimit enforces a per-client-IP token bucket held in memory.
// rps = allowed events per second, burst = maximum tokens in bucket.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	return rateLimit(newIPLimiters(rps, burst, LimiterIdleTTL))
}

func rateLimit(limiters *ipLimiters) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiters.allow(clientIP(r)) {
				rejectRateLimited(w, 1, "memory")
				return
			}
			metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
			next.ServeHTTP(w, r)
		})
	}
}

// RedisRateLimit is a fixed-window limiter shared by every instance using
// the same Redis. Each window admits floor(rps*window)+burst requests per IP.
func RedisRateLimit(client *redis.Client, rps float64, burst int, window time.Duration) func(http.Handler) http.Handler {
	if client == nil {
		return RateLimit(rps, burst)
	}
	windowSeconds := int(window.Seconds())
	if windowSeconds <= 0 {
		windowSeconds = 1
	}
	allowed := int64(rps*float64(windowSeconds)) + int64(burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			bucket := time.Now().Unix() / int64(windowSeconds)
			key := fmt.Sprintf("rl:ip:%s:%d", clientIP(r), bucket)

			cnt, err := client.Incr(ctx, key).Result()
			if err != nil {
				writeError(w, http.StatusInternalServerError, "rate limit check failed")
				return
			}
			if cnt == 1 {
				_ = client.Expire(ctx, key, time.Duration(windowSeconds+1)*time.Second).Err()
			}
			if cnt > allowed {
				rejectRateLimited(w, windowSeconds, "redis")
				return
			}
			metrics.RateLimitAllowed.WithLabelValues("redis").Inc()
			next.ServeHTTP(w, r)
		})
	}
}
