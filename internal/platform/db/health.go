package db

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// PoolStats represents database connection pool statistics.
type PoolStats struct {
	Size         int    `json:"size"`
	Idle         int    `json:"idle"`
	InUse        int    `json:"in_use"`
	Waiting      int    `json:"waiting"`
	AcquireCount int64  `json:"acquire_count"`
	WaitCount    int64  `json:"wait_count"`
	WaitDuration string `json:"wait_duration"`
	Healthy      bool   `json:"healthy"`
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() *PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return &PoolStats{
		Size:         len(p.conns),
		Idle:         len(p.idle),
		InUse:        len(p.conns) - len(p.idle),
		Waiting:      p.waiters.Len(),
		AcquireCount: p.acquireCount,
		WaitCount:    p.waitCount,
		WaitDuration: p.waitDuration.String(),
		Healthy:      !p.closed && len(p.conns) > 0,
	}
}

// HealthHandler returns a handler for the database health check endpoint.
func HealthHandler(pool *Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		err := pool.PingContext(ctx)
		stats := pool.Stats()

		if err != nil {
			stats.Healthy = false
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
				"pool":   stats,
			})
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"pool":   stats,
		})
	}
}
