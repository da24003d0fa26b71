package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	// Window and Max define the sustained rate: Max requests per Window.
	Window time.Duration
	Max    int
	// ExemptLocal skips loopback and private addresses.
	ExemptLocal bool
	// IdleTTL drops a client's limiter after this long without requests.
	IdleTTL time.Duration
}

// DefaultRateLimitConfig returns default rate limiting settings.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Window:  15 * time.Minute,
		Max:     2000,
		IdleTTL: 30 * time.Minute,
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	blocked  int
}

// RateLimitStats summarizes limiter state for the admin endpoint.
type RateLimitStats struct {
	TrackedClients int            `json:"clientes_monitorados"`
	Blocked        map[string]int `json:"bloqueios"`
	Window         string         `json:"janela"`
	Max            int            `json:"maximo"`
}

// RateLimiter keeps one token bucket per client address. Each bucket holds
// Max tokens and refills at Max per Window.
type RateLimiter struct {
	mu      sync.Mutex
	cfg     RateLimitConfig
	clients map[string]*clientLimiter
	events  *SecurityLog
	now     func() time.Time
}

// NewRateLimiter creates a limiter. events may be nil.
func NewRateLimiter(cfg RateLimitConfig, events *SecurityLog) *RateLimiter {
	def := DefaultRateLimitConfig()
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.Max <= 0 {
		cfg.Max = def.Max
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = def.IdleTTL
	}
	return &RateLimiter{
		cfg:     cfg,
		clients: make(map[string]*clientLimiter),
		events:  events,
		now:     time.Now,
	}
}

func (rl *RateLimiter) get(ip string) *clientLimiter {
	cl, ok := rl.clients[ip]
	if !ok {
		every := rl.cfg.Window / time.Duration(rl.cfg.Max)
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Every(every), rl.cfg.Max)}
		rl.clients[ip] = cl
	}
	cl.lastSeen = rl.now()
	return cl
}

// Allow reports whether ip may proceed, and if not, how long to wait.
func (rl *RateLimiter) Allow(ip string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl := rl.get(ip)
	now := rl.now()
	r := cl.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, rl.cfg.Window
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		cl.blocked++
		return false, delay
	}
	return true, 0
}

// Clear forgets ip so its next request starts with a full bucket. It reports
// whether the address was tracked.
func (rl *RateLimiter) Clear(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	_, ok := rl.clients[ip]
	delete(rl.clients, ip)
	return ok
}

// ClearAll forgets every client and returns how many were tracked.
func (rl *RateLimiter) ClearAll() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	n := len(rl.clients)
	rl.clients = make(map[string]*clientLimiter)
	return n
}

// Cleanup drops limiters idle for longer than IdleTTL.
func (rl *RateLimiter) Cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-rl.cfg.IdleTTL)
	n := 0
	for ip, cl := range rl.clients {
		if cl.lastSeen.Before(cutoff) {
			delete(rl.clients, ip)
			n++
		}
	}
	return n
}

// Stats returns the number of tracked clients and per-client block counts.
func (rl *RateLimiter) Stats() RateLimitStats {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	blocked := make(map[string]int)
	for ip, cl := range rl.clients {
		if cl.blocked > 0 {
			blocked[ip] = cl.blocked
		}
	}
	return RateLimitStats{
		TrackedClients: len(rl.clients),
		Blocked:        blocked,
		Window:         rl.cfg.Window.String(),
		Max:            rl.cfg.Max,
	}
}

// Middleware returns the echo middleware enforcing the limiter.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	limit := strconv.Itoa(rl.cfg.Max)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if rl.cfg.ExemptLocal && isLocalAddress(ip) {
				return next(c)
			}

			ok, wait := rl.Allow(ip)
			c.Response().Header().Set("X-RateLimit-Limit", limit)
			if !ok {
				secs := int(wait.Seconds()) + 1
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				c.Response().Header().Set("X-RateLimit-Remaining", "0")
				if rl.events != nil {
					rl.events.Record(SecurityEvent{
						Kind:      EventRateLimited,
						IP:        ip,
						Method:    c.Request().Method,
						Path:      c.Request().URL.Path,
						UserAgent: c.Request().UserAgent(),
					})
				}
				return echo.NewHTTPError(http.StatusTooManyRequests, "Muitas requisições. Tente novamente mais tarde.")
			}
			return next(c)
		}
	}
}

// Run calls Cleanup every interval until stop is closed.
func (rl *RateLimiter) Run(interval time.Duration, stop <-chan struct{}) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.Cleanup()
		case <-stop:
			return
		}
	}
}

func isLocalAddress(ip string) bool {
	addr := net.ParseIP(ip)
	if addr == nil {
		return false
	}
	return addr.IsLoopback() || addr.IsPrivate()
}
