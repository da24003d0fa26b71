package db

import (
	"container/list"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// PoolConfig describes the embedded database file and the fixed pool size.
type PoolConfig struct {
	Path          string
	Size          int
	BusyTimeoutMS int
}

// connPragmas are applied once to every pooled connection when it is opened.
func connPragmas(busyTimeoutMS int) []string {
	return []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA mmap_size = 268435456",
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMS),
		"PRAGMA wal_autocheckpoint = 1000",
	}
}

// DSN builds the go-sqlite3 connection string for path. Transactions begun on
// these connections take the write lock up front (BEGIN IMMEDIATE).
func DSN(path string, busyTimeoutMS int) string {
	q := url.Values{}
	q.Set("_foreign_keys", "on")
	q.Set("_journal_mode", "WAL")
	q.Set("_busy_timeout", strconv.Itoa(busyTimeoutMS))
	q.Set("_txlock", "immediate")
	return path + "?" + q.Encode()
}

type waiter struct {
	ch     chan *sql.Conn
	served bool
}

// Pool is a fixed set of pre-opened connections to the embedded database.
// Acquire hands out idle connections and queues callers FIFO when none are
// idle. Release gives a connection straight to the longest waiter.
type Pool struct {
	db     *sql.DB
	path   string
	logger zerolog.Logger

	mu      sync.Mutex
	conns   []*sql.Conn
	idle    []*sql.Conn
	waiters *list.List
	closed  bool

	acquireCount int64
	waitCount    int64
	waitDuration time.Duration
}

// NewPool opens the database file and pins cfg.Size dedicated connections.
// A slot that fails to open is logged and left out of the pool.
func NewPool(ctx context.Context, cfg PoolConfig, logger zerolog.Logger) (*Pool, error) {
	if cfg.Size <= 0 {
		return nil, fmt.Errorf("pool size must be positive, got %d", cfg.Size)
	}
	if cfg.BusyTimeoutMS <= 0 {
		cfg.BusyTimeoutMS = 120000
	}

	sqlDB, err := sql.Open("sqlite3", DSN(cfg.Path, cfg.BusyTimeoutMS))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Size)
	sqlDB.SetMaxIdleConns(cfg.Size)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)

	p := &Pool{
		db:      sqlDB,
		path:    cfg.Path,
		logger:  logger,
		waiters: list.New(),
	}

	for i := 0; i < cfg.Size; i++ {
		conn, err := openConn(ctx, sqlDB, cfg.BusyTimeoutMS)
		if err != nil {
			logger.Error().Err(err).Int("slot", i).Msg("failed to open pooled connection")
			continue
		}
		p.conns = append(p.conns, conn)
		p.idle = append(p.idle, conn)
	}

	if len(p.conns) == 0 {
		sqlDB.Close()
		return nil, fmt.Errorf("no database connection could be opened at %s", cfg.Path)
	}

	logger.Info().
		Str("path", cfg.Path).
		Int("size", len(p.conns)).
		Msg("database pool ready")
	return p, nil
}

func openConn(ctx context.Context, sqlDB *sql.DB, busyTimeoutMS int) (*sql.Conn, error) {
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return nil, err
	}
	for _, pragma := range connPragmas(busyTimeoutMS) {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return conn, nil
}

// Path returns the database file backing the pool.
func (p *Pool) Path() string { return p.path }

// Size returns the number of usable connections.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}

// Acquire returns an idle connection or waits in FIFO order for one. It has
// no timeout of its own; ctx is the caller's deadline.
func (p *Pool) Acquire(ctx context.Context) (*sql.Conn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, errPoolClosed
	}
	p.acquireCount++
	if n := len(p.idle); n > 0 {
		conn := p.idle[0]
		p.idle = p.idle[1:]
		p.mu.Unlock()
		return conn, nil
	}

	w := &waiter{ch: make(chan *sql.Conn, 1)}
	elem := p.waiters.PushBack(w)
	p.waitCount++
	p.mu.Unlock()

	start := time.Now()
	select {
	case conn := <-w.ch:
		p.recordWait(time.Since(start))
		return conn, nil
	case <-ctx.Done():
		p.mu.Lock()
		if !w.served {
			p.waiters.Remove(elem)
			p.mu.Unlock()
			p.recordWait(time.Since(start))
			return nil, ctx.Err()
		}
		p.mu.Unlock()
		// Handed a connection while giving up: pass it on.
		p.Release(<-w.ch)
		p.recordWait(time.Since(start))
		return nil, ctx.Err()
	}
}

func (p *Pool) recordWait(d time.Duration) {
	p.mu.Lock()
	p.waitDuration += d
	p.mu.Unlock()
}

// Release returns conn to the pool, handing it to the longest waiter if any.
func (p *Pool) Release(conn *sql.Conn) {
	if conn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if front := p.waiters.Front(); front != nil {
		w := p.waiters.Remove(front).(*waiter)
		w.served = true
		w.ch <- conn
		return
	}
	p.idle = append(p.idle, conn)
}

// CloseAll closes every tracked connection and the underlying database.
// Call it once during shutdown.
func (p *Pool) CloseAll() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	conns := p.conns
	p.conns = nil
	p.idle = nil
	p.mu.Unlock()

	var errs []error
	for _, conn := range conns {
		if err := conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := p.db.Close(); err != nil {
		errs = append(errs, err)
	}
	p.logger.Info().Int("connections", len(conns)).Msg("database pool closed")
	return errors.Join(errs...)
}

// PingContext checks that the database answers on a pooled connection.
func (p *Pool) PingContext(ctx context.Context) error {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(conn)
	return conn.PingContext(ctx)
}

var errPoolClosed = errors.New("database pool is closed")
