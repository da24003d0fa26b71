// Package dbtest opens migrated throwaway databases for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/aihaudit/aih/internal/platform/db"
)

// NewStore returns a Store over a fresh, fully migrated database file in a
// temporary directory. The pool is closed when the test ends.
func NewStore(t testing.TB) *db.Store {
	t.Helper()
	return NewStoreSize(t, 4)
}

// NewStoreSize is NewStore with an explicit pool size.
func NewStoreSize(t testing.TB, size int) *db.Store {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "aih.db")
	pool, err := db.NewPool(ctx, db.PoolConfig{Path: path, Size: size, BusyTimeoutMS: 5000}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	t.Cleanup(func() { pool.CloseAll() })

	if _, err := db.NewMigrator(pool, db.Migrations, zerolog.Nop()).Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db.NewStore(pool, db.NewQueryCache(time.Minute, 1000), zerolog.Nop())
}

// SeedUser inserts an operator account and returns its id.
func SeedUser(t testing.TB, s *db.Store, nome string) int64 {
	t.Helper()
	res, err := s.Execute(context.Background(),
		"INSERT INTO usuarios (nome, matricula, senha_hash) VALUES (?, ?, ?)", nome, nome+"-mat", "hash")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return res.InsertedID
}

// SeedAIH inserts an AIH with one attendance and returns its id.
func SeedAIH(t testing.TB, s *db.Store, numero string, valor string, competencia string, userID int64) int64 {
	t.Helper()
	ctx := context.Background()
	res, err := s.Execute(ctx,
		"INSERT INTO aihs (numero_aih, valor_inicial, valor_atual, competencia, usuario_cadastro_id) VALUES (?, ?, ?, ?, ?)",
		numero, valor, valor, competencia, userID)
	if err != nil {
		t.Fatalf("seed aih: %v", err)
	}
	if _, err := s.Execute(ctx, "INSERT INTO atendimentos (aih_id, numero_atendimento) VALUES (?, ?)", res.InsertedID, "AT-"+numero); err != nil {
		t.Fatalf("seed attendance: %v", err)
	}
	return res.InsertedID
}
