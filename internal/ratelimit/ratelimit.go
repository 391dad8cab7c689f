// Package ratelimit adapts middleware/ratelimit's per-visitor token bucket
// (golang.org/x/time/rate) to the proxy's unit of work: instead of limiting
// HTTP requests per handler, it limits new connections per source IP,
// since a ProxySession — not a request — is what the listener accepts.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config mirrors middleware/ratelimit.Config's shape.
type Config struct {
	ConnectionsPerSecond int           // max new connections per second per IP; 0 disables
	Burst                int           // token bucket burst size
	ExpiresIn            time.Duration // stale visitor entry expiration
}

// DefaultConfig matches internal/config.DefaultConfig's rate-limit fields.
func DefaultConfig() Config {
	return Config{
		ConnectionsPerSecond: 0,
		Burst:                5,
		ExpiresIn:            time.Hour,
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter tracks one token bucket per source IP.
type Limiter struct {
	cfg      Config
	mu       sync.Mutex
	visitors map[string]*visitor
}

// New returns a Limiter. If cfg.ConnectionsPerSecond is 0, Allow always
// reports true and no background cleanup goroutine is started.
func New(cfg Config) *Limiter {
	l := &Limiter{cfg: cfg, visitors: make(map[string]*visitor)}
	if cfg.ConnectionsPerSecond > 0 {
		go l.cleanupLoop()
	}
	return l
}

func (l *Limiter) cleanupLoop() {
	for {
		time.Sleep(time.Minute)
		l.mu.Lock()
		for ip, v := range l.visitors {
			if time.Since(v.lastSeen) > l.cfg.ExpiresIn {
				delete(l.visitors, ip)
			}
		}
		l.mu.Unlock()
	}
}

// Allow reports whether a new connection from ip should be accepted.
// Disabled limiters (ConnectionsPerSecond == 0) always allow.
func (l *Limiter) Allow(ip string) bool {
	if l.cfg.ConnectionsPerSecond <= 0 {
		return true
	}

	l.mu.Lock()
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(l.cfg.ConnectionsPerSecond), l.cfg.Burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	limiter := v.limiter
	l.mu.Unlock()

	return limiter.Allow()
}
