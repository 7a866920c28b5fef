package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"trackmeet/internal/common"

	"golang.org/x/time/rate"
)

const limiterIdleTTL = 15 * time.Minute

// LoginRateLimit throttles credential endpoints per client IP. perMinute <= 0 disables it.
func LoginRateLimit(perMinute int) func(http.Handler) http.Handler {
	store := newLimiterStore(perMinute)
	return func(next http.Handler) http.Handler {
		if perMinute <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !store.limiter(clientIP(r)).Allow() {
				w.Header().Set("Retry-After", strconv.Itoa(int(store.interval.Seconds())+1))
				common.RespondWithErr(w, r, common.NewError(common.ErrTooManyLogins, "Too many login attempts, please try again later"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type limiterStore struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	perMinute int
	interval  time.Duration
	now       func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLimiterStore(perMinute int) *limiterStore {
	s := &limiterStore{
		limiters:  make(map[string]*limiterEntry),
		perMinute: perMinute,
		now:       time.Now,
	}
	if perMinute > 0 {
		s.interval = time.Minute / time.Duration(perMinute)
	}
	return s
}

func (s *limiterStore) limiter(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if entry, ok := s.limiters[key]; ok {
		entry.lastSeen = now
		return entry.limiter
	}
	s.evictIdle(now)

	limiter := rate.NewLimiter(rate.Every(s.interval), s.perMinute)
	s.limiters[key] = &limiterEntry{limiter: limiter, lastSeen: now}
	return limiter
}

// evictIdle runs under s.mu.
func (s *limiterStore) evictIdle(now time.Time) {
	for key, entry := range s.limiters {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(s.limiters, key)
		}
	}
}

// clientIP relies on chi's RealIP having already rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
