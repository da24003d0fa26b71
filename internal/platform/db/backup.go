package db

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	backupPrefix = "aih-backup-"
	backupSuffix = ".db"
)

// Uploader copies a finished backup somewhere off the host.
type Uploader interface {
	Upload(ctx context.Context, name string, r io.Reader) error
}

// BackupConfig controls where backups go and how many are kept.
type BackupConfig struct {
	Dir  string
	Keep int
}

// Backup writes rotated file copies of the pooled database.
type Backup struct {
	pool     *Pool
	cfg      BackupConfig
	uploader Uploader
	logger   zerolog.Logger
	now      func() time.Time
}

// NewBackup creates a Backup. uploader may be nil.
func NewBackup(pool *Pool, cfg BackupConfig, uploader Uploader, logger zerolog.Logger) *Backup {
	if cfg.Keep <= 0 {
		cfg.Keep = 7
	}
	return &Backup{pool: pool, cfg: cfg, uploader: uploader, logger: logger, now: time.Now}
}

// Checkpoint folds the write-ahead log into the main database file so the
// file alone is a complete copy.
func Checkpoint(ctx context.Context, pool *Pool, mode string) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer pool.Release(conn)
	if _, err := conn.ExecContext(ctx, "PRAGMA wal_checkpoint("+mode+")"); err != nil {
		return fmt.Errorf("wal checkpoint %s: %w", mode, err)
	}
	return nil
}

// Create checkpoints the database, copies it into the backup directory,
// removes copies beyond the retention count and uploads the new copy when
// an uploader is configured. It returns the path of the new file.
func (b *Backup) Create(ctx context.Context) (string, error) {
	if err := os.MkdirAll(b.cfg.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	if err := Checkpoint(ctx, b.pool, "FULL"); err != nil {
		return "", err
	}

	name := backupPrefix + b.now().Format("20060102-150405") + backupSuffix
	dst := filepath.Join(b.cfg.Dir, name)
	if err := copyFile(b.pool.Path(), dst); err != nil {
		return "", fmt.Errorf("copy database: %w", err)
	}
	b.logger.Info().Str("path", dst).Msg("backup created")

	if _, err := b.Rotate(); err != nil {
		b.logger.Error().Err(err).Msg("backup rotation failed")
	}

	if b.uploader != nil {
		f, err := os.Open(dst)
		if err != nil {
			return dst, fmt.Errorf("open backup for upload: %w", err)
		}
		defer f.Close()
		if err := b.uploader.Upload(ctx, name, f); err != nil {
			return dst, fmt.Errorf("upload backup: %w", err)
		}
		b.logger.Info().Str("name", name).Msg("backup uploaded")
	}
	return dst, nil
}

// List returns the backup file names in the directory, newest first.
func (b *Backup) List() ([]string, error) {
	entries, err := os.ReadDir(b.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if !e.IsDir() && strings.HasPrefix(n, backupPrefix) && strings.HasSuffix(n, backupSuffix) {
			names = append(names, n)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// Rotate deletes all but the newest Keep backups and returns what it removed.
func (b *Backup) Rotate() ([]string, error) {
	names, err := b.List()
	if err != nil {
		return nil, err
	}
	if len(names) <= b.cfg.Keep {
		return nil, nil
	}
	var removed []string
	for _, n := range names[b.cfg.Keep:] {
		if err := os.Remove(filepath.Join(b.cfg.Dir, n)); err != nil {
			return removed, err
		}
		b.logger.Info().Str("name", n).Msg("old backup removed")
		removed = append(removed, n)
	}
	return removed, nil
}

// Schedule runs Create every interval until ctx is done.
func (b *Backup) Schedule(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := b.Create(ctx); err != nil {
				b.logger.Error().Err(err).Msg("scheduled backup failed")
			}
		}
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
