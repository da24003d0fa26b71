package deletion

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/aihaudit/aih/internal/platform/apperr"
	"github.com/aihaudit/aih/internal/platform/db"
)

type repoSQLite struct {
	store *db.Store
}

func NewRepo(store *db.Store) Repository {
	return &repoSQLite{store: store}
}

func (r *repoSQLite) FindMovement(ctx context.Context, id int64) (db.Row, error) {
	row, err := r.store.FetchOne(ctx,
		`SELECT m.*, a.numero_aih FROM movimentacoes m JOIN aihs a ON m.aih_id = a.id WHERE m.id = ?`, id)
	if errors.Is(err, db.ErrNoRows) {
		return nil, apperr.NotFound("Movimentação não encontrada")
	}
	return row, err
}

func (r *repoSQLite) FindAIH(ctx context.Context, number string) (db.Row, error) {
	row, err := r.store.FetchOne(ctx, `SELECT * FROM aihs WHERE numero_aih = ?`, number)
	if errors.Is(err, db.ErrNoRows) {
		return nil, apperr.NotFound("AIH não encontrada")
	}
	return row, err
}

func (r *repoSQLite) Children(ctx context.Context, aihID int64) ([]db.Row, []db.Row, []db.Row, error) {
	movements, err := r.store.FetchAll(ctx, `SELECT * FROM movimentacoes WHERE aih_id = ? ORDER BY id`, aihID)
	if err != nil {
		return nil, nil, nil, err
	}
	glosas, err := r.store.FetchAll(ctx, `SELECT * FROM glosas WHERE aih_id = ? ORDER BY id`, aihID)
	if err != nil {
		return nil, nil, nil, err
	}
	attendances, err := r.store.FetchAll(ctx, `SELECT * FROM atendimentos WHERE aih_id = ? ORDER BY id`, aihID)
	if err != nil {
		return nil, nil, nil, err
	}
	return movements, glosas, attendances, nil
}

func (r *repoSQLite) InsertLog(ctx context.Context, l *Log) error {
	res, err := r.store.Execute(ctx,
		`INSERT INTO logs_exclusao (tipo_exclusao, usuario_id, dados_excluidos, justificativa, ip_origem, user_agent)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		string(l.Kind), l.UserID, string(l.Snapshot), l.Justification, l.IP, l.UserAgent)
	if err != nil {
		return err
	}
	l.ID = res.InsertedID
	return nil
}

func (r *repoSQLite) DeleteMovement(ctx context.Context, id int64) error {
	res, err := r.store.Execute(ctx, `DELETE FROM movimentacoes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Movimentação não encontrada")
	}
	return nil
}

func (r *repoSQLite) DeleteAIH(ctx context.Context, aihID int64) error {
	for _, q := range []string{
		`DELETE FROM glosas WHERE aih_id = ?`,
		`DELETE FROM movimentacoes WHERE aih_id = ?`,
		`DELETE FROM atendimentos WHERE aih_id = ?`,
		`DELETE FROM aihs WHERE id = ?`,
	} {
		if _, err := r.store.Execute(ctx, q, aihID); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoSQLite) ListLogs(ctx context.Context, limit, offset int) ([]*Log, int, error) {
	q := db.Select(`l.id, l.tipo_exclusao, l.usuario_id, COALESCE(u.nome, '') AS usuario_nome, l.dados_excluidos,
		l.justificativa, l.ip_origem, l.user_agent, l.data_exclusao`,
		"logs_exclusao l LEFT JOIN usuarios u ON u.id = l.usuario_id").
		OrderBy("l.data_exclusao DESC, l.id DESC").
		Page(limit, offset)

	countSQL, countArgs := q.CountSQL()
	row, err := r.store.FetchOne(ctx, countSQL, countArgs...)
	if err != nil {
		return nil, 0, err
	}
	total := row.Int("total")

	query, args := q.Build()
	rows, err := r.store.FetchAll(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	out := make([]*Log, 0, len(rows))
	for _, row := range rows {
		out = append(out, &Log{
			ID:            row.Int64("id"),
			Kind:          Kind(row.String("tipo_exclusao")),
			UserID:        row.Int64("usuario_id"),
			UserName:      row.String("usuario_nome"),
			Snapshot:      json.RawMessage(row.String("dados_excluidos")),
			Justification: row.String("justificativa"),
			IP:            row.String("ip_origem"),
			UserAgent:     row.String("user_agent"),
			DeletedAt:     row.Time("data_exclusao"),
		})
	}
	return out, total, nil
}
