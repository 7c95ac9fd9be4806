// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per key. It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	every   rate.Limit
	burst   int
	idle    time.Duration
	now     func() time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// New allows burst requests per key, refilled at one token per interval.
func New(burst int, interval time.Duration) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		every:   rate.Every(interval),
		burst:   burst,
		idle:    time.Duration(burst) * interval,
		now:     time.Now,
	}
}

// WithClock replaces the time source. Tests only.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Allow reports whether a request for key may proceed and consumes a token
// if so.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.every, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// Reset forgets key, restoring its full burst.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// Sweep drops buckets that have been idle long enough to be full again.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	n := 0
	for k, b := range l.buckets {
		if now.Sub(b.seen) >= l.idle {
			delete(l.buckets, k)
			n++
		}
	}
	return n
}

// Len is the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// ClientIP extracts the client IP from an HTTP request.
// It checks X-Forwarded-For and X-Real-IP headers first (for proxied requests),
// then falls back to RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

const (
	msgTooManyFromIP     = "Too many login attempts. Please wait a minute before trying again."
	msgTooManyForAccount = "Too many login attempts for this account. Please wait a few minutes."
)

// LoginLimiter throttles login attempts per client IP and per email.
type LoginLimiter struct {
	ip    *Limiter
	email *Limiter
}

// NewLoginLimiter allows 10 attempts per IP per minute and 5 per email per
// five minutes.
func NewLoginLimiter() *LoginLimiter {
	return &LoginLimiter{
		ip:    New(10, 6*time.Second),
		email: New(5, time.Minute),
	}
}

// NewLoginLimiterFrom builds a LoginLimiter from two prepared limiters.
func NewLoginLimiterFrom(ip, email *Limiter) *LoginLimiter {
	return &LoginLimiter{ip: ip, email: email}
}

// Check reports whether the attempt may proceed, and the message to show
// when it may not.
func (ll *LoginLimiter) Check(r *http.Request, email string) (bool, string) {
	if !ll.ip.Allow(ClientIP(r)) {
		return false, msgTooManyFromIP
	}
	if key := emailKey(email); key != "" && !ll.email.Allow(key) {
		return false, msgTooManyForAccount
	}
	return true, ""
}

// ResetEmail clears the per-email budget after a successful login.
func (ll *LoginLimiter) ResetEmail(email string) {
	if key := emailKey(email); key != "" {
		ll.email.Reset(key)
	}
}

// Sweep drops idle buckets from both limiters.
func (ll *LoginLimiter) Sweep() {
	ll.ip.Sweep()
	ll.email.Sweep()
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
