package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestPool(t *testing.T, size int) *Pool {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	pool, err := NewPool(context.Background(), PoolConfig{Path: path, Size: size, BusyTimeoutMS: 5000}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewPool() error: %v", err)
	}
	t.Cleanup(func() { pool.CloseAll() })
	return pool
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	pool := newTestPool(t, 4)
	m := NewMigrator(pool, Migrations, zerolog.Nop())
	if _, err := m.Up(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewStore(pool, NewQueryCache(time.Minute, 100), zerolog.Nop())
}

func TestNewPool_InvalidSize(t *testing.T) {
	_, err := NewPool(context.Background(), PoolConfig{Path: "x.db", Size: 0}, zerolog.Nop())
	if err == nil {
		t.Fatal("expected error for zero pool size")
	}
}

func TestNewPool_OpensAllSlots(t *testing.T) {
	pool := newTestPool(t, 3)
	if pool.Size() != 3 {
		t.Fatalf("expected 3 connections, got %d", pool.Size())
	}
	stats := pool.Stats()
	if stats.Idle != 3 || stats.InUse != 0 {
		t.Errorf("expected 3 idle / 0 in use, got %d / %d", stats.Idle, stats.InUse)
	}
	if !stats.Healthy {
		t.Error("expected healthy pool")
	}
}

func TestNewPool_PragmasApplied(t *testing.T) {
	pool := newTestPool(t, 1)
	ctx := context.Background()
	conn, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	defer pool.Release(conn)

	var mode string
	if err := conn.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("expected wal journal mode, got %q", mode)
	}
	var fk int
	if err := conn.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("expected foreign_keys on, got %d", fk)
	}
}

func TestPool_AcquireRelease(t *testing.T) {
	pool := newTestPool(t, 2)
	ctx := context.Background()

	a, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	b, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct connections")
	}
	if got := pool.Stats().InUse; got != 2 {
		t.Errorf("expected 2 in use, got %d", got)
	}
	pool.Release(a)
	pool.Release(b)
	if got := pool.Stats().Idle; got != 2 {
		t.Errorf("expected 2 idle, got %d", got)
	}
}

func TestPool_WaiterBlocksUntilRelease(t *testing.T) {
	pool := newTestPool(t, 1)
	ctx := context.Background()

	held, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}

	got := make(chan *sql.Conn, 1)
	go func() {
		conn, err := pool.Acquire(ctx)
		if err != nil {
			t.Errorf("waiting Acquire() error: %v", err)
		}
		got <- conn
	}()

	waitForWaiters(t, pool, 1)
	select {
	case <-got:
		t.Fatal("waiter resolved before any release")
	case <-time.After(50 * time.Millisecond):
	}

	pool.Release(held)
	select {
	case conn := <-got:
		if conn != held {
			t.Error("expected the released connection to be handed to the waiter")
		}
		pool.Release(conn)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter was not served after release")
	}
}

func TestPool_FIFOWaiters(t *testing.T) {
	const size = 2
	pool := newTestPool(t, size)
	ctx := context.Background()

	held := make([]*sql.Conn, 0, size)
	for i := 0; i < size; i++ {
		conn, err := pool.Acquire(ctx)
		if err != nil {
			t.Fatalf("Acquire() error: %v", err)
		}
		held = append(held, conn)
	}

	type grant struct {
		caller int
		conn   *sql.Conn
	}
	granted := make(chan grant, 3)
	for i := 0; i < 3; i++ {
		i := i
		go func() {
			conn, err := pool.Acquire(ctx)
			if err != nil {
				t.Errorf("Acquire() error: %v", err)
				return
			}
			granted <- grant{caller: i, conn: conn}
		}()
		waitForWaiters(t, pool, i+1)
	}

	var served []int
	var last *sql.Conn
	for _, conn := range held {
		pool.Release(conn)
		g := <-granted
		served = append(served, g.caller)
		last = g.conn
	}
	pool.Release(last)
	g := <-granted
	served = append(served, g.caller)
	pool.Release(g.conn)

	for i, want := range []int{0, 1, 2} {
		if served[i] != want {
			t.Fatalf("expected FIFO order [0 1 2], got %v", served)
		}
	}
}

func TestPool_AcquireContextCancelled(t *testing.T) {
	pool := newTestPool(t, 1)
	held, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := pool.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if w := pool.Stats().Waiting; w != 0 {
		t.Errorf("expected cancelled waiter to leave the queue, %d still waiting", w)
	}

	pool.Release(held)
	if idle := pool.Stats().Idle; idle != 1 {
		t.Errorf("expected released connection to be idle, got %d idle", idle)
	}
}

func TestPool_CloseAll(t *testing.T) {
	pool := newTestPool(t, 2)
	if err := pool.CloseAll(); err != nil {
		t.Fatalf("CloseAll() error: %v", err)
	}
	if err := pool.CloseAll(); err != nil {
		t.Errorf("second CloseAll() should be a no-op, got %v", err)
	}
	if _, err := pool.Acquire(context.Background()); !errors.Is(err, errPoolClosed) {
		t.Errorf("expected errPoolClosed, got %v", err)
	}
	if pool.Stats().Healthy {
		t.Error("expected closed pool to be unhealthy")
	}
}

func TestDSN(t *testing.T) {
	dsn := DSN("/data/aih.db", 1500)
	for _, want := range []string{"/data/aih.db?", "_txlock=immediate", "_busy_timeout=1500", "_foreign_keys=on"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("expected DSN %q to contain %q", dsn, want)
		}
	}
}

func waitForWaiters(t *testing.T, pool *Pool, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for pool.Stats().Waiting < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d queued callers", n)
		}
		time.Sleep(time.Millisecond)
	}
}
