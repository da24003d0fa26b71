package identity

import (
	"context"
	"errors"

	"github.com/aihaudit/aih/internal/platform/db"
)

type repoSQLite struct {
	store *db.Store
}

func NewRepo(store *db.Store) Repository {
	return &repoSQLite{store: store}
}

// fetchCredential returns nil, nil when no row matches.
func (r *repoSQLite) fetchCredential(ctx context.Context, query string, args ...any) (*credential, error) {
	row, err := r.store.FetchOne(ctx, query, args...)
	if errors.Is(err, db.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &credential{ID: row.Int64("id"), Name: row.String("nome"), Hash: row.String("senha_hash")}, nil
}

func (r *repoSQLite) UserByName(ctx context.Context, name string) (*credential, error) {
	return r.fetchCredential(ctx, `SELECT id, nome, senha_hash FROM usuarios WHERE nome = ?`, name)
}

func (r *repoSQLite) UserByID(ctx context.Context, id int64) (*credential, error) {
	return r.fetchCredential(ctx, `SELECT id, nome, senha_hash FROM usuarios WHERE id = ?`, id)
}

func (r *repoSQLite) AdminByUsername(ctx context.Context, username string) (*credential, error) {
	return r.fetchCredential(ctx,
		`SELECT id, usuario AS nome, senha_hash FROM administradores WHERE usuario = ?`, username)
}

func (r *repoSQLite) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := r.store.FetchAll(ctx, `SELECT id, nome, matricula, criado_em FROM usuarios ORDER BY nome`)
	if err != nil {
		return nil, err
	}
	out := make([]*User, 0, len(rows))
	for _, row := range rows {
		out = append(out, &User{
			ID:           row.Int64("id"),
			Name:         row.String("nome"),
			Registration: row.NullString("matricula"),
			CreatedAt:    row.Time("criado_em"),
		})
	}
	return out, nil
}

func (r *repoSQLite) UserTaken(ctx context.Context, name, registration string) (bool, error) {
	rows, err := r.store.FetchAll(ctx, `SELECT id FROM usuarios WHERE nome = ? OR matricula = ?`, name, registration)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

func (r *repoSQLite) CreateUser(ctx context.Context, u *User, hash string) error {
	res, err := r.store.Execute(ctx,
		`INSERT INTO usuarios (nome, matricula, senha_hash) VALUES (?, ?, ?)`, u.Name, u.Registration, hash)
	if err != nil {
		return err
	}
	u.ID = res.InsertedID
	r.store.Invalidate("usuarios")
	return nil
}

func (r *repoSQLite) DeleteUser(ctx context.Context, id int64) (bool, error) {
	res, err := r.store.Execute(ctx, `DELETE FROM usuarios WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	r.store.Invalidate("usuarios")
	return res.RowsAffected > 0, nil
}

func (r *repoSQLite) CreateAdmin(ctx context.Context, username, hash string) (int64, error) {
	res, err := r.store.Execute(ctx,
		`INSERT INTO administradores (usuario, senha_hash) VALUES (?, ?)`, username, hash)
	if err != nil {
		return 0, err
	}
	return res.InsertedID, nil
}

func (r *repoSQLite) UpdateAdminPassword(ctx context.Context, id int64, hash string) (bool, error) {
	res, err := r.store.Execute(ctx,
		`UPDATE administradores SET senha_hash = ?, ultima_alteracao = CURRENT_TIMESTAMP WHERE id = ?`, hash, id)
	if err != nil {
		return false, err
	}
	return res.RowsAffected > 0, nil
}

// RecordAccess satisfies middleware.AccessRecorder.
func (r *repoSQLite) RecordAccess(ctx context.Context, userID int64, action string) error {
	_, err := r.store.Execute(ctx, `INSERT INTO logs_acesso (usuario_id, acao) VALUES (?, ?)`, userID, action)
	return err
}
