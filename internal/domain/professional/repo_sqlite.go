package professional

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

func (r *repoSQLite) List(ctx context.Context) ([]*Professional, error) {
	rows, err := r.store.FetchAllCached(ctx,
		`SELECT id, nome, especialidade FROM profissionais ORDER BY nome, id`)
	if err != nil {
		return nil, err
	}
	out := make([]*Professional, 0, len(rows))
	for _, row := range rows {
		out = append(out, &Professional{
			ID:        row.Int64("id"),
			Name:      row.String("nome"),
			Specialty: row.String("especialidade"),
		})
	}
	return out, nil
}

func (r *repoSQLite) Create(ctx context.Context, p *Professional) error {
	res, err := r.store.Execute(ctx,
		`INSERT INTO profissionais (nome, especialidade) VALUES (?, ?)`, p.Name, p.Specialty)
	if err != nil {
		return err
	}
	p.ID = res.InsertedID
	r.store.Invalidate("profissionais")
	return nil
}

func (r *repoSQLite) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.store.Execute(ctx, `DELETE FROM profissionais WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	r.store.Invalidate("profissionais")
	return res.RowsAffected > 0, nil
}
