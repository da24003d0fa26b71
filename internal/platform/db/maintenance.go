package db

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// MaintenanceConfig sets how long log tables keep their rows.
type MaintenanceConfig struct {
	AccessLogRetention   time.Duration
	DeletionLogRetention time.Duration
}

// MaintenanceReport summarizes one maintenance run.
type MaintenanceReport struct {
	AccessLogsRemoved   int64         `json:"access_logs_removed"`
	DeletionLogsRemoved int64         `json:"deletion_logs_removed"`
	Duration            time.Duration `json:"duration"`
}

// Maintenance prunes old log rows and keeps the database file compact.
type Maintenance struct {
	store  *Store
	cfg    MaintenanceConfig
	logger zerolog.Logger
}

// NewMaintenance creates a Maintenance runner. Zero retentions fall back to
// 60 days for access logs and 5 years for deletion logs.
func NewMaintenance(store *Store, cfg MaintenanceConfig, logger zerolog.Logger) *Maintenance {
	if cfg.AccessLogRetention <= 0 {
		cfg.AccessLogRetention = 60 * 24 * time.Hour
	}
	if cfg.DeletionLogRetention <= 0 {
		cfg.DeletionLogRetention = 5 * 365 * 24 * time.Hour
	}
	return &Maintenance{store: store, cfg: cfg, logger: logger}
}

// retentionModifier renders d as a datetime() modifier such as "-60 days".
func retentionModifier(d time.Duration) string {
	return fmt.Sprintf("-%d seconds", int64(d.Seconds()))
}

// Run deletes expired log rows, truncates the write-ahead log and refreshes
// planner statistics.
func (m *Maintenance) Run(ctx context.Context) (*MaintenanceReport, error) {
	start := time.Now()
	report := &MaintenanceReport{}

	res, err := m.store.Execute(ctx,
		"DELETE FROM logs_acesso WHERE data_hora < datetime('now', ?)",
		retentionModifier(m.cfg.AccessLogRetention))
	if err != nil {
		return nil, fmt.Errorf("prune access logs: %w", err)
	}
	report.AccessLogsRemoved = res.RowsAffected

	res, err = m.store.Execute(ctx,
		"DELETE FROM logs_exclusao WHERE data_exclusao < datetime('now', ?)",
		retentionModifier(m.cfg.DeletionLogRetention))
	if err != nil {
		return nil, fmt.Errorf("prune deletion logs: %w", err)
	}
	report.DeletionLogsRemoved = res.RowsAffected

	for _, stmt := range []string{"PRAGMA wal_checkpoint(TRUNCATE)", "ANALYZE", "PRAGMA optimize"} {
		if _, err := m.store.Execute(ctx, stmt); err != nil {
			return nil, fmt.Errorf("%s: %w", stmt, err)
		}
	}

	report.Duration = time.Since(start)
	m.logger.Info().
		Int64("access_logs_removed", report.AccessLogsRemoved).
		Int64("deletion_logs_removed", report.DeletionLogsRemoved).
		Dur("duration", report.Duration).
		Msg("database maintenance finished")
	return report, nil
}

// Schedule runs maintenance every interval until ctx is done.
func (m *Maintenance) Schedule(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Run(ctx); err != nil {
				m.logger.Error().Err(err).Msg("scheduled maintenance failed")
			}
		}
	}
}
