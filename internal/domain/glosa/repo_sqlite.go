package glosa

import (
	"context"

	"github.com/aihaudit/aih/internal/platform/db"
)

type repoSQLite struct {
	store *db.Store
}

func NewRepo(store *db.Store) Repository {
	return &repoSQLite{store: store}
}

func (r *repoSQLite) AIHExists(ctx context.Context, aihID int64) (bool, error) {
	rows, err := r.store.FetchAll(ctx, `SELECT 1 FROM aihs WHERE id = ?`, aihID)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

func (r *repoSQLite) Create(ctx context.Context, g *Glosa) error {
	res, err := r.store.Execute(ctx,
		`INSERT INTO glosas (aih_id, linha, tipo, profissional, quantidade) VALUES (?, ?, ?, ?, ?)`,
		g.AIHID, g.Line, g.Type, g.Professional, g.Quantity)
	if err != nil {
		return err
	}
	g.ID = res.InsertedID
	g.Active = true
	r.store.Invalidate("glosas")
	return nil
}

const glosaColumns = `id, aih_id, linha, tipo, profissional, quantidade, ativa, criado_em`

func (r *repoSQLite) ListActive(ctx context.Context, aihID int64) ([]*Glosa, error) {
	rows, err := r.store.FetchAll(ctx,
		`SELECT `+glosaColumns+` FROM glosas WHERE aih_id = ? AND ativa = 1 ORDER BY criado_em, id`, aihID)
	if err != nil {
		return nil, err
	}
	out := make([]*Glosa, 0, len(rows))
	for _, row := range rows {
		out = append(out, scanGlosa(row))
	}
	return out, nil
}

func scanGlosa(row db.Row) *Glosa {
	return &Glosa{
		ID:           row.Int64("id"),
		AIHID:        row.Int64("aih_id"),
		Line:         row.String("linha"),
		Type:         row.String("tipo"),
		Professional: row.String("profissional"),
		Quantity:     row.Int("quantidade"),
		Active:       row.Bool("ativa"),
		CreatedAt:    row.Time("criado_em"),
	}
}

func (r *repoSQLite) Deactivate(ctx context.Context, id int64) (bool, error) {
	res, err := r.store.Execute(ctx, `UPDATE glosas SET ativa = 0 WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	r.store.Invalidate("glosas")
	return res.RowsAffected > 0, nil
}

func (r *repoSQLite) ListTypes(ctx context.Context) ([]*GlosaType, error) {
	rows, err := r.store.FetchAllCached(ctx, `SELECT id, descricao FROM tipos_glosa ORDER BY descricao`)
	if err != nil {
		return nil, err
	}
	out := make([]*GlosaType, 0, len(rows))
	for _, row := range rows {
		out = append(out, &GlosaType{ID: row.Int64("id"), Description: row.String("descricao")})
	}
	return out, nil
}

func (r *repoSQLite) CreateType(ctx context.Context, t *GlosaType) error {
	res, err := r.store.Execute(ctx, `INSERT INTO tipos_glosa (descricao) VALUES (?)`, t.Description)
	if err != nil {
		return err
	}
	t.ID = res.InsertedID
	r.store.Invalidate("tipos_glosa")
	return nil
}

func (r *repoSQLite) DeleteType(ctx context.Context, id int64) (bool, error) {
	res, err := r.store.Execute(ctx, `DELETE FROM tipos_glosa WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	r.store.Invalidate("tipos_glosa")
	return res.RowsAffected > 0, nil
}
