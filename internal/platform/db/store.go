package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Result reports the effect of a mutating statement.
type Result struct {
	InsertedID   int64 `json:"id"`
	RowsAffected int64 `json:"changes"`
}

// Op is one statement of a RunTransaction batch.
type Op struct {
	SQL    string
	Params []any
}

// querier is the subset of *sql.Conn and *sql.Tx the store runs statements on.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Store is the only component that touches the pool and the query cache.
type Store struct {
	pool   *Pool
	cache  *QueryCache
	logger zerolog.Logger
}

// NewStore wires a pool and an optional cache. A nil cache disables caching.
func NewStore(pool *Pool, cache *QueryCache, logger zerolog.Logger) *Store {
	return &Store{pool: pool, cache: cache, logger: logger}
}

// Pool returns the underlying connection pool.
func (s *Store) Pool() *Pool { return s.pool }

// Cache returns the query cache, which may be nil.
func (s *Store) Cache() *QueryCache { return s.cache }

// Execute runs a mutating statement on a pooled connection, or on the
// transaction carried by ctx.
func (s *Store) Execute(ctx context.Context, query string, args ...any) (Result, error) {
	if tx := TxFromContext(ctx); tx != nil {
		return tx.Execute(ctx, query, args...)
	}
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return Result{}, err
	}
	defer s.pool.Release(conn)
	return s.exec(ctx, conn, query, args)
}

// FetchOne returns the first row of query or ErrNoRows.
func (s *Store) FetchOne(ctx context.Context, query string, args ...any) (Row, error) {
	rows, err := s.FetchAll(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	return rows[0], nil
}

// FetchOneCached is FetchOne served from the query cache when possible.
// Empty results are not cached.
func (s *Store) FetchOneCached(ctx context.Context, query string, args ...any) (Row, error) {
	rows, err := s.FetchAllCached(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	return rows[0], nil
}

// FetchAll returns every row of query.
func (s *Store) FetchAll(ctx context.Context, query string, args ...any) ([]Row, error) {
	if tx := TxFromContext(ctx); tx != nil {
		return tx.FetchAll(ctx, query, args...)
	}
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Release(conn)
	return s.query(ctx, conn, query, args)
}

// FetchAllCached is FetchAll served from the query cache when possible.
func (s *Store) FetchAllCached(ctx context.Context, query string, args ...any) ([]Row, error) {
	if s.cache == nil || TxFromContext(ctx) != nil {
		return s.FetchAll(ctx, query, args...)
	}
	key := CacheKey(query, args)
	if v, ok := s.cache.Get(key); ok {
		return v.([]Row), nil
	}
	rows, err := s.FetchAll(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		s.cache.Set(key, rows)
	}
	return rows, nil
}

// Invalidate drops cached reads whose statement contains pattern.
func (s *Store) Invalidate(patterns ...string) {
	if s.cache == nil {
		return
	}
	for _, p := range patterns {
		s.cache.InvalidateMatching(p)
	}
}

// RunTransaction executes ops in order inside one immediate transaction on a
// single connection. The first failing op aborts the batch, the transaction
// is rolled back and that error is returned; later ops are not attempted.
func (s *Store) RunTransaction(ctx context.Context, ops []Op) ([]Result, error) {
	results := make([]Result, 0, len(ops))
	err := s.WithTx(ctx, func(tx *Tx) error {
		for _, op := range ops {
			res, err := tx.Execute(ctx, op.SQL, op.Params...)
			if err != nil {
				return err
			}
			results = append(results, res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// WithTx runs fn inside one immediate transaction on a single pooled
// connection. The connection goes back to the pool only after commit or
// rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Release(conn)

	sqlTx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		s.logFailure("BEGIN IMMEDIATE", nil, err)
		return newQueryError("begin", "BEGIN IMMEDIATE", err)
	}

	// No-op after Commit. A panicking fn must not leave the connection
	// inside an open transaction.
	defer func() {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Error().Err(rbErr).Msg("rollback failed")
		}
	}()

	tx := &Tx{store: s, tx: sqlTx}
	if err := fn(tx); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		s.logFailure("COMMIT", nil, err)
		return newQueryError("commit", "COMMIT", err)
	}
	return nil
}

type txKey struct{}

// TxFromContext returns the transaction InTx stored in ctx, or nil.
func TxFromContext(ctx context.Context) *Tx {
	tx, _ := ctx.Value(txKey{}).(*Tx)
	return tx
}

// InTx runs fn inside one transaction and hands it a context carrying that
// transaction, so Store calls made with it join the transaction instead of
// taking another connection. A nested InTx joins the outer transaction.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}
	return s.WithTx(ctx, func(tx *Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func (s *Store) exec(ctx context.Context, q querier, query string, args []any) (Result, error) {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		s.logFailure(query, args, err)
		return Result{}, newQueryError("execute", query, err)
	}
	id, _ := res.LastInsertId()
	n, _ := res.RowsAffected()
	return Result{InsertedID: id, RowsAffected: n}, nil
}

func (s *Store) query(ctx context.Context, q querier, query string, args []any) ([]Row, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		s.logFailure(query, args, err)
		return nil, newQueryError("query", query, err)
	}
	defer rows.Close()

	out, err := scanRows(rows)
	if err != nil {
		s.logFailure(query, args, err)
		return nil, newQueryError("scan", query, err)
	}
	return out, nil
}

func (s *Store) logFailure(query string, args []any, err error) {
	s.logger.Error().
		Err(err).
		Str("sql", truncateSQL(query)).
		Str("params", fmt.Sprintf("%v", args)).
		Msg("database statement failed")
}

// Tx runs statements on the connection that owns an open transaction.
type Tx struct {
	store *Store
	tx    *sql.Tx
}

// Execute runs a mutating statement inside the transaction.
func (t *Tx) Execute(ctx context.Context, query string, args ...any) (Result, error) {
	return t.store.exec(ctx, t.tx, query, args)
}

// FetchOne returns the first row of query or ErrNoRows.
func (t *Tx) FetchOne(ctx context.Context, query string, args ...any) (Row, error) {
	rows, err := t.store.query(ctx, t.tx, query, args)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	return rows[0], nil
}

// FetchAll returns every row of query inside the transaction.
func (t *Tx) FetchAll(ctx context.Context, query string, args ...any) ([]Row, error) {
	return t.store.query(ctx, t.tx, query, args)
}
