package aih

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/aihaudit/aih/internal/platform/apperr"
	"github.com/aihaudit/aih/internal/platform/db"
)

type repoSQLite struct {
	store *db.Store
}

// NewRepo returns a Repository over store. Writes join the transaction
// carried by ctx when there is one.
func NewRepo(store *db.Store) Repository {
	return &repoSQLite{store: store}
}

const aihColumns = `id, numero_aih, valor_inicial, valor_atual, status, competencia, criado_em, usuario_cadastro_id`

func (r *repoSQLite) Create(ctx context.Context, a *AIH, attendances []string) error {
	res, err := r.store.Execute(ctx,
		`INSERT INTO aihs (numero_aih, valor_inicial, valor_atual, status, competencia, usuario_cadastro_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.Number, a.InitialValue.InexactFloat64(), a.CurrentValue.InexactFloat64(), int(a.Status), a.Competence, a.CreatedBy)
	if err != nil {
		return err
	}
	a.ID = res.InsertedID
	for _, at := range attendances {
		if _, err := r.store.Execute(ctx,
			`INSERT INTO atendimentos (aih_id, numero_atendimento) VALUES (?, ?)`, a.ID, at); err != nil {
			return err
		}
	}
	return nil
}

func (r *repoSQLite) GetByID(ctx context.Context, id int64) (*AIH, error) {
	return r.getOne(ctx, `SELECT `+aihColumns+` FROM aihs WHERE id = ?`, id)
}

func (r *repoSQLite) GetByNumber(ctx context.Context, number string) (*AIH, error) {
	return r.getOne(ctx, `SELECT `+aihColumns+` FROM aihs WHERE numero_aih = ?`, number)
}

func (r *repoSQLite) getOne(ctx context.Context, query string, arg any) (*AIH, error) {
	row, err := r.store.FetchOne(ctx, query, arg)
	if errors.Is(err, db.ErrNoRows) {
		return nil, apperr.NotFound("AIH não encontrada")
	}
	if err != nil {
		return nil, err
	}
	return scanAIH(row), nil
}

func scanAIH(row db.Row) *AIH {
	a := &AIH{
		ID:           row.Int64("id"),
		Number:       row.String("numero_aih"),
		InitialValue: row.Decimal("valor_inicial"),
		CurrentValue: row.Decimal("valor_atual"),
		Status:       Status(row.Int("status")),
		Competence:   row.String("competencia"),
		CreatedAt:    row.Time("criado_em"),
	}
	if row["usuario_cadastro_id"] != nil {
		uid := row.Int64("usuario_cadastro_id")
		a.CreatedBy = &uid
	}
	return a
}

func (r *repoSQLite) ListAttendances(ctx context.Context, aihID int64) ([]string, error) {
	rows, err := r.store.FetchAll(ctx,
		`SELECT numero_atendimento FROM atendimentos WHERE aih_id = ? ORDER BY id`, aihID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.String("numero_atendimento"))
	}
	return out, nil
}

const movementColumns = `id, aih_id, tipo, data_movimentacao, usuario_id, valor_conta, competencia,
	prof_medicina, prof_enfermagem, prof_fisioterapia, prof_bucomaxilo, status_aih, observacoes`

// Moves recorded in the same second keep insertion order through the id.
const latestFirst = `ORDER BY data_movimentacao DESC, id DESC`

func (r *repoSQLite) ListMovements(ctx context.Context, aihID int64) ([]*Movement, error) {
	rows, err := r.store.FetchAll(ctx,
		`SELECT `+movementColumns+` FROM movimentacoes WHERE aih_id = ? `+latestFirst, aihID)
	if err != nil {
		return nil, err
	}
	out := make([]*Movement, 0, len(rows))
	for _, row := range rows {
		out = append(out, ScanMovement(row))
	}
	return out, nil
}

// ScanMovement maps a movimentacoes row.
func ScanMovement(row db.Row) *Movement {
	return &Movement{
		ID:                row.Int64("id"),
		AIHID:             row.Int64("aih_id"),
		Type:              MovementType(row.String("tipo")),
		Date:              row.Time("data_movimentacao"),
		UserID:            row.Int64("usuario_id"),
		Value:             row.NullDecimal("valor_conta"),
		Competence:        row.NullString("competencia"),
		ProfMedicine:      row.NullString("prof_medicina"),
		ProfNursing:       row.NullString("prof_enfermagem"),
		ProfPhysiotherapy: row.NullString("prof_fisioterapia"),
		ProfMaxillofacial: row.NullString("prof_bucomaxilo"),
		Status:            Status(row.Int("status_aih")),
		Notes:             row.NullString("observacoes"),
	}
}

func (r *repoSQLite) LatestMovementType(ctx context.Context, aihID int64) (*MovementType, error) {
	row, err := r.store.FetchOne(ctx,
		`SELECT tipo FROM movimentacoes WHERE aih_id = ? `+latestFirst+` LIMIT 1`, aihID)
	if errors.Is(err, db.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t := MovementType(row.String("tipo"))
	return &t, nil
}

func (r *repoSQLite) LatestWithProfessionals(ctx context.Context, aihID int64) (*Movement, error) {
	row, err := r.store.FetchOne(ctx,
		`SELECT `+movementColumns+` FROM movimentacoes
		 WHERE aih_id = ? AND (prof_medicina IS NOT NULL OR prof_enfermagem IS NOT NULL
		    OR prof_fisioterapia IS NOT NULL OR prof_bucomaxilo IS NOT NULL)
		 `+latestFirst+` LIMIT 1`, aihID)
	if errors.Is(err, db.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ScanMovement(row), nil
}

func (r *repoSQLite) InsertMovement(ctx context.Context, m *Movement) error {
	var value any
	if m.Value != nil {
		value = m.Value.InexactFloat64()
	}
	res, err := r.store.Execute(ctx,
		`INSERT INTO movimentacoes
		 (aih_id, tipo, usuario_id, valor_conta, competencia,
		  prof_medicina, prof_enfermagem, prof_fisioterapia, prof_bucomaxilo, status_aih, observacoes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.AIHID, string(m.Type), m.UserID, value, m.Competence,
		m.ProfMedicine, m.ProfNursing, m.ProfPhysiotherapy, m.ProfMaxillofacial, int(m.Status), m.Notes)
	if err != nil {
		return err
	}
	m.ID = res.InsertedID
	return nil
}

func (r *repoSQLite) UpdateState(ctx context.Context, aihID int64, status Status, value decimal.Decimal) error {
	res, err := r.store.Execute(ctx,
		`UPDATE aihs SET status = ?, valor_atual = ? WHERE id = ?`, int(status), value.InexactFloat64(), aihID)
	if err != nil {
		return err
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("AIH não encontrada")
	}
	return nil
}

func (r *repoSQLite) Dashboard(ctx context.Context, competence string) (*Dashboard, error) {
	d := &Dashboard{Competence: competence}

	row, err := r.store.FetchOneCached(ctx, `
		SELECT COUNT(DISTINCT CASE WHEN tipo = 'entrada_sus' THEN aih_id END) AS entradas,
		       COUNT(DISTINCT CASE WHEN tipo = 'saida_hospital' THEN aih_id END) AS saidas
		FROM movimentacoes WHERE competencia = ?`, competence)
	if err != nil {
		return nil, fmt.Errorf("dashboard competence movements: %w", err)
	}
	d.InProcessing = row.Int64("entradas") - row.Int64("saidas")

	row, err = r.store.FetchOneCached(ctx, `
		SELECT COUNT(*) AS total,
		       COALESCE(SUM(CASE WHEN status IN (1, 4) THEN 1 ELSE 0 END), 0) AS finalizadas,
		       COALESCE(SUM(CASE WHEN status IN (2, 3) THEN 1 ELSE 0 END), 0) AS pendentes,
		       COALESCE(SUM(valor_inicial), 0) AS valor_inicial_total,
		       COALESCE(SUM(valor_atual), 0) AS valor_atual_total,
		       COALESCE(AVG(valor_inicial - valor_atual), 0) AS media_glosa
		FROM aihs WHERE competencia = ?`, competence)
	if err != nil {
		return nil, fmt.Errorf("dashboard competence aihs: %w", err)
	}
	d.TotalCompetence = row.Int64("total")
	d.Finalized = row.Int64("finalizadas")
	d.WithPending = row.Int64("pendentes")
	d.Values = ValueTotals{
		Initial:          row.Decimal("valor_inicial_total"),
		Current:          row.Decimal("valor_atual_total"),
		AverageReduction: row.Decimal("media_glosa").Round(2),
	}

	row, err = r.store.FetchOneCached(ctx, `
		SELECT COUNT(DISTINCT CASE WHEN tipo = 'entrada_sus' THEN aih_id END) AS entradas,
		       COUNT(DISTINCT CASE WHEN tipo = 'saida_hospital' THEN aih_id END) AS saidas
		FROM movimentacoes`)
	if err != nil {
		return nil, fmt.Errorf("dashboard movements: %w", err)
	}
	d.TotalEntries = row.Int64("entradas")
	d.TotalExits = row.Int64("saidas")
	d.TotalInProcessing = d.TotalEntries - d.TotalExits

	row, err = r.store.FetchOneCached(ctx, `
		SELECT COUNT(*) AS total,
		       COALESCE(SUM(CASE WHEN status IN (1, 4) THEN 1 ELSE 0 END), 0) AS finalizadas
		FROM aihs`)
	if err != nil {
		return nil, fmt.Errorf("dashboard aihs: %w", err)
	}
	d.TotalAIHs = row.Int64("total")
	d.TotalFinalized = row.Int64("finalizadas")

	rows, err := r.store.FetchAllCached(ctx, `
		SELECT DISTINCT competencia FROM aihs
		ORDER BY CAST(SUBSTR(competencia, 4, 4) AS INTEGER) DESC,
		         CAST(SUBSTR(competencia, 1, 2) AS INTEGER) DESC`)
	if err != nil {
		return nil, fmt.Errorf("dashboard competences: %w", err)
	}
	d.AvailableCompetences = make([]string, 0, len(rows))
	for _, row := range rows {
		d.AvailableCompetences = append(d.AvailableCompetences, row.String("competencia"))
	}
	return d, nil
}

const inProcessingSubquery = `a.id IN (
	SELECT DISTINCT m1.aih_id FROM movimentacoes m1
	WHERE m1.tipo = 'entrada_sus'%s AND m1.aih_id NOT IN (
		SELECT DISTINCT m2.aih_id FROM movimentacoes m2
		WHERE m2.tipo = 'saida_hospital'%s))`

// searchQuery builds the filtered AIH listing. The in-processing filters
// replace every other criterion.
func searchQuery(f SearchFilters) *db.SelectQuery {
	q := db.Select("a.*, COUNT(g.id) AS total_glosas",
		"aihs a LEFT JOIN glosas g ON a.id = g.aih_id AND g.ativa = 1")

	switch {
	case f.InProcessingCompetence != "":
		q.Where(fmt.Sprintf(inProcessingSubquery, " AND m1.competencia = ?", " AND m2.competencia = ?"),
			f.InProcessingCompetence, f.InProcessingCompetence)
	case f.InProcessingOverall:
		q.Where(fmt.Sprintf(inProcessingSubquery, "", ""))
	default:
		if len(f.Status) > 0 {
			vals := make([]any, len(f.Status))
			for i, s := range f.Status {
				vals[i] = int(s)
			}
			q.In("a.status", vals...)
		}
		q.WhereIf(f.Competence != "", "a.competencia = ?", f.Competence)
		q.WhereIf(f.DateFrom != "", "a.criado_em >= ?", f.DateFrom)
		q.WhereIf(f.DateTo != "", "a.criado_em <= ?", f.DateTo+" 23:59:59")
		if f.ValueMin != nil {
			q.Where("a.valor_atual >= ?", f.ValueMin.InexactFloat64())
		}
		if f.ValueMax != nil {
			q.Where("a.valor_atual <= ?", f.ValueMax.InexactFloat64())
		}
		if f.Number != "" {
			q.Like("a.numero_aih", f.Number)
		}
		if f.Attendance != "" {
			q.Where(`a.id IN (SELECT DISTINCT aih_id FROM atendimentos WHERE numero_atendimento LIKE ?)`,
				"%"+f.Attendance+"%")
		}
		if f.Professional != "" {
			p := "%" + f.Professional + "%"
			q.Where(`a.id IN (SELECT DISTINCT aih_id FROM movimentacoes
				WHERE prof_medicina LIKE ? OR prof_enfermagem LIKE ?
				   OR prof_fisioterapia LIKE ? OR prof_bucomaxilo LIKE ?)`, p, p, p, p)
		}
	}
	return q.GroupBy("a.id").OrderBy("a.criado_em DESC, a.id DESC")
}

func (r *repoSQLite) Search(ctx context.Context, f SearchFilters) ([]*SearchResult, error) {
	query, args := searchQuery(f).Build()
	rows, err := r.store.FetchAll(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	out := make([]*SearchResult, 0, len(rows))
	for _, row := range rows {
		out = append(out, &SearchResult{AIH: *scanAIH(row), ActiveGlosas: row.Int64("total_glosas")})
	}
	return out, nil
}
