package db

import (
	"context"
	"math"
	"os"
	"time"
)

// DatabaseStats is the row-count and file-size summary shown to admins.
type DatabaseStats struct {
	TotalAIHs          int64      `json:"total_aihs"`
	TotalMovimentacoes int64      `json:"total_movimentacoes"`
	TotalGlosasAtivas  int64      `json:"total_glosas_ativas"`
	TotalUsuarios      int64      `json:"total_usuarios"`
	TotalLogs          int64      `json:"total_logs"`
	DBSizeMB           float64    `json:"db_size_mb"`
	WALSizeMB          float64    `json:"wal_size_mb"`
	CacheEntries       int        `json:"cache_entries"`
	Pool               *PoolStats `json:"pool"`
	Timestamp          time.Time  `json:"timestamp"`
}

const statsCountsSQL = `SELECT
    (SELECT COUNT(*) FROM aihs) AS total_aihs,
    (SELECT COUNT(*) FROM movimentacoes) AS total_movimentacoes,
    (SELECT COUNT(*) FROM glosas WHERE ativa = 1) AS total_glosas_ativas,
    (SELECT COUNT(*) FROM usuarios) AS total_usuarios,
    (SELECT COUNT(*) FROM logs_acesso) AS total_logs`

// Stats collects table counts (served from the query cache) together with
// file sizes and pool counters.
func (s *Store) Stats(ctx context.Context) (*DatabaseStats, error) {
	counts, err := s.FetchOneCached(ctx, statsCountsSQL)
	if err != nil {
		return nil, err
	}
	size, err := s.FetchOne(ctx, "SELECT page_count * page_size AS size FROM pragma_page_count(), pragma_page_size()")
	if err != nil {
		return nil, err
	}

	var walBytes int64
	if fi, err := os.Stat(s.pool.Path() + "-wal"); err == nil {
		walBytes = fi.Size()
	}

	stats := &DatabaseStats{
		TotalAIHs:          counts.Int64("total_aihs"),
		TotalMovimentacoes: counts.Int64("total_movimentacoes"),
		TotalGlosasAtivas:  counts.Int64("total_glosas_ativas"),
		TotalUsuarios:      counts.Int64("total_usuarios"),
		TotalLogs:          counts.Int64("total_logs"),
		DBSizeMB:           megabytes(size.Int64("size")),
		WALSizeMB:          megabytes(walBytes),
		Pool:               s.pool.Stats(),
		Timestamp:          time.Now().UTC(),
	}
	if s.cache != nil {
		stats.CacheEntries = s.cache.Len()
	}
	return stats, nil
}

func megabytes(n int64) float64 {
	return math.Round(float64(n)/(1024*1024)*100) / 100
}
