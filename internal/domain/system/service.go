// Package system serves the operational endpoints: health, statistics,
// cache and rate-limit resets, the security event log and backups.
package system

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/aihaudit/aih/internal/platform/db"
	"github.com/aihaudit/aih/internal/platform/middleware"
)

// securityLogLimit is how many events the admin endpoint returns.
const securityLogLimit = 100

// StatsSource reports database counts and sizes. *db.Store satisfies it.
type StatsSource interface {
	Stats(ctx context.Context) (*db.DatabaseStats, error)
}

// RateLimits is the admin view of the request limiter.
type RateLimits interface {
	Clear(ip string) bool
	ClearAll() int
	Stats() middleware.RateLimitStats
}

// SecurityEvents lists recent security events.
type SecurityEvents interface {
	Recent(limit int) []middleware.SecurityEvent
}

// Backuper writes a rotated backup copy and returns its path.
type Backuper interface {
	Create(ctx context.Context) (string, error)
}

// Deps groups the shared state objects the system endpoints operate on.
type Deps struct {
	Store   *db.Store
	Stats   StatsSource
	Limits  RateLimits
	Events  SecurityEvents
	Backups Backuper
	Started time.Time
	Logger  zerolog.Logger
}

type Service struct {
	store   *db.Store
	stats   StatsSource
	limits  RateLimits
	events  SecurityEvents
	backups Backuper
	started time.Time
	logger  zerolog.Logger
	now     func() time.Time
}

func NewService(d Deps) *Service {
	stats := d.Stats
	if stats == nil && d.Store != nil {
		stats = d.Store
	}
	started := d.Started
	if started.IsZero() {
		started = time.Now()
	}
	return &Service{
		store:   d.Store,
		stats:   stats,
		limits:  d.Limits,
		events:  d.Events,
		backups: d.Backups,
		started: started,
		logger:  d.Logger,
		now:     time.Now,
	}
}

// Stats is the admin statistics payload.
type Stats struct {
	*db.DatabaseStats
	RateLimit      *middleware.RateLimitStats `json:"rate_limit,omitempty"`
	SecurityEvents int                        `json:"eventos_seguranca"`
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	ds, err := s.stats.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect stats: %w", err)
	}
	out := &Stats{DatabaseStats: ds}
	if s.limits != nil {
		rl := s.limits.Stats()
		out.RateLimit = &rl
	}
	if s.events != nil {
		out.SecurityEvents = len(s.events.Recent(0))
	}
	return out, nil
}

// Health is the body of GET /api/health.
type Health struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Uptime    float64        `json:"uptime"`
	Database  HealthDatabase `json:"database"`
}

type HealthDatabase struct {
	TotalAIHs   int64   `json:"total_aihs"`
	SizeMB      float64 `json:"db_size"`
	Connections int     `json:"connections"`
}

func (s *Service) Health(ctx context.Context) (*Health, error) {
	ds, err := s.stats.Stats(ctx)
	if err != nil {
		return nil, err
	}
	h := &Health{
		Status:    "ok",
		Timestamp: s.now().UTC(),
		Uptime:    s.now().Sub(s.started).Seconds(),
		Database:  HealthDatabase{TotalAIHs: ds.TotalAIHs, SizeMB: ds.DBSizeMB},
	}
	if ds.Pool != nil {
		h.Database.Connections = ds.Pool.Size
	}
	return h, nil
}

// ClearCache drops cached reads whose key contains pattern, or all of them
// when pattern is empty. It returns how many entries were removed.
func (s *Service) ClearCache(pattern string) int {
	cache := s.store.Cache()
	if cache == nil {
		return 0
	}
	if pattern == "" {
		n := cache.Len()
		cache.Clear()
		s.logger.Info().Int("removed", n).Msg("query cache cleared")
		return n
	}
	n := cache.InvalidateMatching(pattern)
	s.logger.Info().Str("pattern", pattern).Int("removed", n).Msg("query cache cleared")
	return n
}

// ClearRateLimit forgets the limiter state of ip, or of every client when ip
// is empty.
func (s *Service) ClearRateLimit(ip string) {
	if s.limits == nil {
		return
	}
	if ip == "" {
		n := s.limits.ClearAll()
		s.logger.Info().Int("clients", n).Msg("rate limit cleared for all clients")
		return
	}
	s.limits.Clear(ip)
	s.logger.Info().Str("ip", ip).Msg("rate limit cleared")
}

func (s *Service) SecurityLogs() []middleware.SecurityEvent {
	if s.events == nil {
		return []middleware.SecurityEvent{}
	}
	return s.events.Recent(securityLogLimit)
}

func (s *Service) Backup(ctx context.Context) (string, error) {
	path, err := s.backups.Create(ctx)
	if err != nil {
		return "", fmt.Errorf("create backup: %w", err)
	}
	return path, nil
}

// DatabaseFile checkpoints the write-ahead log and returns the path of the
// database file, which is then a complete copy on its own.
func (s *Service) DatabaseFile(ctx context.Context) (string, error) {
	pool := s.store.Pool()
	if _, err := os.Stat(pool.Path()); err != nil {
		return "", err
	}
	if err := db.Checkpoint(ctx, pool, "FULL"); err != nil {
		return "", err
	}
	return pool.Path(), nil
}

func (s *Service) today() string {
	return s.now().UTC().Format(time.DateOnly)
}
