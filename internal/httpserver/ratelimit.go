package httpserver

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL   = 10 * time.Minute
	limiterSweepSize = 1024
)

// userLimiter keeps one token bucket per user. A nil *userLimiter allows everything.
type userLimiter struct {
	mu    sync.Mutex
	limit rate.Limit
	burst int
	users map[string]*limiterEntry
	now   func() time.Time
}

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

func newUserLimiter(perSecond float64, burst int) *userLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &userLimiter{
		limit: rate.Limit(perSecond),
		burst: burst,
		users: make(map[string]*limiterEntry),
		now:   time.Now,
	}
}

// Allow spends one token from user's bucket.
func (l *userLimiter) Allow(user string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.users[user]
	if !ok {
		if len(l.users) >= limiterSweepSize {
			l.sweep(now)
		}
		e = &limiterEntry{lim: rate.NewLimiter(l.limit, l.burst)}
		l.users[user] = e
	}
	e.seen = now
	return e.lim.AllowN(now, 1)
}

// sweep drops buckets idle for longer than limiterIdleTTL. Caller holds mu.
func (l *userLimiter) sweep(now time.Time) {
	for u, e := range l.users {
		if now.Sub(e.seen) > limiterIdleTTL {
			delete(l.users, u)
		}
	}
}
