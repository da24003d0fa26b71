package export

import (
	"context"
	"errors"
	"strings"

	"github.com/aihaudit/aih/internal/domain/aih"
	"github.com/aihaudit/aih/internal/platform/apperr"
	"github.com/aihaudit/aih/internal/platform/db"
)

type repoSQLite struct {
	store *db.Store
}

func NewRepo(store *db.Store) Repository {
	return &repoSQLite{store: store}
}

const aihsQuery = `
SELECT a.id, a.numero_aih, a.valor_inicial, a.valor_atual, a.status, a.competencia, a.criado_em,
       a.usuario_cadastro_id, COALESCE(u.nome, '') AS usuario_cadastro_nome,
       (SELECT COUNT(*) FROM glosas g WHERE g.aih_id = a.id AND g.ativa = 1) AS total_glosas,
       (SELECT COUNT(*) FROM movimentacoes m WHERE m.aih_id = a.id) AS total_movimentacoes,
       (SELECT GROUP_CONCAT(at.numero_atendimento, '|') FROM atendimentos at WHERE at.aih_id = a.id) AS atendimentos
FROM aihs a
LEFT JOIN usuarios u ON u.id = a.usuario_cadastro_id
ORDER BY a.criado_em DESC, a.id DESC`

func (r *repoSQLite) AIHs(ctx context.Context) ([]*AIHRecord, error) {
	rows, err := r.store.FetchAll(ctx, aihsQuery)
	if err != nil {
		return nil, err
	}
	out := make([]*AIHRecord, 0, len(rows))
	for _, row := range rows {
		rec := &AIHRecord{
			ID:            row.Int64("id"),
			Number:        row.String("numero_aih"),
			InitialValue:  row.Decimal("valor_inicial"),
			CurrentValue:  row.Decimal("valor_atual"),
			Status:        aih.Status(row.Int("status")),
			Competence:    row.String("competencia"),
			CreatedAt:     row.Time("criado_em"),
			CreatedByName: row.String("usuario_cadastro_nome"),
			ActiveGlosas:  row.Int64("total_glosas"),
			Movements:     row.Int64("total_movimentacoes"),
			Attendances:   []string{},
		}
		if row["usuario_cadastro_id"] != nil {
			id := row.Int64("usuario_cadastro_id")
			rec.CreatedByID = &id
		}
		if s := row.String("atendimentos"); s != "" {
			rec.Attendances = strings.Split(s, "|")
		}
		rec.StatusLabel = statusLabel(rec.Status)
		out = append(out, rec)
	}
	return out, nil
}

// Movements lists movements newest first, of one AIH when aihID > 0 or of
// every AIH otherwise.
func (r *repoSQLite) Movements(ctx context.Context, aihID int64) ([]*MovementRecord, error) {
	q := db.Select(`m.*, COALESCE(u.nome, '') AS usuario_nome, COALESCE(a.numero_aih, '') AS numero_aih`,
		`movimentacoes m LEFT JOIN usuarios u ON u.id = m.usuario_id LEFT JOIN aihs a ON a.id = m.aih_id`).
		WhereIf(aihID > 0, "m.aih_id = ?", aihID).
		OrderBy("m.data_movimentacao DESC, m.id DESC")
	query, args := q.Build()
	rows, err := r.store.FetchAll(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	out := make([]*MovementRecord, 0, len(rows))
	for _, row := range rows {
		m := aih.ScanMovement(row)
		out = append(out, &MovementRecord{
			Movement:    m,
			Number:      row.String("numero_aih"),
			UserName:    row.String("usuario_nome"),
			TypeLabel:   m.Type.Label(),
			StatusLabel: statusLabel(m.Status),
		})
	}
	return out, nil
}

func (r *repoSQLite) Table(ctx context.Context, query string) ([]db.Row, error) {
	return r.store.FetchAll(ctx, query)
}

func (r *repoSQLite) AIHNumber(ctx context.Context, aihID int64) (string, error) {
	row, err := r.store.FetchOne(ctx, `SELECT numero_aih FROM aihs WHERE id = ?`, aihID)
	if errors.Is(err, db.ErrNoRows) {
		return "", apperr.NotFound("AIH não encontrada")
	}
	if err != nil {
		return "", err
	}
	return row.String("numero_aih"), nil
}
