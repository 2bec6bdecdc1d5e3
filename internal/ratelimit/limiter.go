// SPDX-License-Identifier: MIT

// Package ratelimit throttles the customer-facing waitlist endpoints
// (join, confirm, decline) per client IP and per wire action, on top of a
// global ceiling, so a single abusive caller cannot exhaust a tenant's
// slot-matching capacity (SPEC_FULL.md §6).
package ratelimit

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

var rateLimitExceeded = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "waitlistd",
		Name:      "ratelimit_exceeded_total",
		Help:      "Total rate limit rejections",
	},
	[]string{"limit_type", "action"},
)

// Config holds rate limiting configuration.
type Config struct {
	// Global limits across all tenants and actions.
	GlobalRate  rate.Limit
	GlobalBurst int

	// Per-IP limits, protecting against a single abusive client regardless
	// of which action it's hitting.
	PerIPRate  rate.Limit
	PerIPBurst int

	// Per-action limits: "join_waitlist" is the cheapest to abuse (no token
	// required), "confirm"/"decline" are token-gated but still rate-limited
	// since a leaked or guessed token shouldn't allow unlimited retries.
	ActionRates map[string]rate.Limit
	ActionBurst map[string]int

	// Cleanup interval for per-IP limiters.
	CleanupInterval time.Duration
}

// DefaultConfig returns sensible defaults for waitlistd's wire surface.
func DefaultConfig() Config {
	return Config{
		GlobalRate:  200,
		GlobalBurst: 400,

		PerIPRate:  10,
		PerIPBurst: 20,

		ActionRates: map[string]rate.Limit{
			"join_waitlist": 5,
			"confirm":       10,
			"decline":       10,
		},
		ActionBurst: map[string]int{
			"join_waitlist": 10,
			"confirm":       20,
			"decline":       20,
		},

		CleanupInterval: 5 * time.Minute,
	}
}

// Limiter enforces global, per-action, and per-IP rate limits.
type Limiter struct {
	config Config

	global    *rate.Limiter
	perIP     map[string]*rate.Limiter
	perAction map[string]*rate.Limiter
	mu        sync.RWMutex

	lastCleanup time.Time
}

// New creates a new rate limiter with the given config.
func New(config Config) *Limiter {
	l := &Limiter{
		config:      config,
		global:      rate.NewLimiter(config.GlobalRate, config.GlobalBurst),
		perIP:       make(map[string]*rate.Limiter),
		perAction:   make(map[string]*rate.Limiter),
		lastCleanup: time.Now(),
	}

	for action, actionRate := range config.ActionRates {
		burst := config.ActionBurst[action]
		l.perAction[action] = rate.NewLimiter(actionRate, burst)
	}

	return l
}

// Allow checks if a request for action from clientIP is allowed under
// rate limits. Returns true if allowed, false if rate limited.
func (l *Limiter) Allow(clientIP, action string) bool {
	if !l.global.Allow() {
		rateLimitExceeded.WithLabelValues("global", action).Inc()
		return false
	}

	l.mu.RLock()
	actionLimiter, exists := l.perAction[action]
	l.mu.RUnlock()

	if exists && !actionLimiter.Allow() {
		rateLimitExceeded.WithLabelValues("per_action", action).Inc()
		return false
	}

	l.maybeCleanup()

	ipLimiter := l.getIPLimiter(clientIP)
	if !ipLimiter.Allow() {
		rateLimitExceeded.WithLabelValues("per_ip", action).Inc()
		return false
	}

	return true
}

// getIPLimiter returns the rate limiter for a specific IP.
func (l *Limiter) getIPLimiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, exists := l.perIP[ip]
	if !exists {
		limiter = rate.NewLimiter(l.config.PerIPRate, l.config.PerIPBurst)
		l.perIP[ip] = limiter
	}
	return limiter
}

// maybeCleanup removes stale IP limiters if the cleanup interval has
// passed, so long-running processes don't accumulate one limiter per IP
// forever.
func (l *Limiter) maybeCleanup() {
	if time.Since(l.lastCleanup) < l.config.CleanupInterval {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.perIP = make(map[string]*rate.Limiter)
	l.lastCleanup = time.Now()
}

// GetClientIP extracts the real client IP from the request, honoring
// reverse-proxy headers before falling back to RemoteAddr.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := findComma(xff); idx > 0 {
			xff = xff[:idx]
		}
		xff = trimSpace(xff)
		if xff != "" {
			return xff
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func findComma(s string) int {
	for i, c := range s {
		if c == ',' {
			return i
		}
	}
	return -1
}

func trimSpace(s string) string {
	start := 0
	end := len(s)
	for start < end && s[start] == ' ' {
		start++
	}
	for end > start && s[end-1] == ' ' {
		end--
	}
	return s[start:end]
}
