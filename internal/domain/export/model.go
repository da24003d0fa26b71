package export

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/aihaudit/aih/internal/domain/aih"
	"github.com/aihaudit/aih/internal/platform/db"
)

// Format is an output encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// systemVersion is reported in the JSON export metadata.
const systemVersion = "2.0"

// AIHRecord is one AIH of the full export with its aggregates.
type AIHRecord struct {
	ID            int64           `json:"id"`
	Number        string          `json:"numero_aih"`
	InitialValue  decimal.Decimal `json:"valor_inicial"`
	CurrentValue  decimal.Decimal `json:"valor_atual"`
	Status        aih.Status      `json:"status"`
	StatusLabel   string          `json:"status_descricao"`
	Competence    string          `json:"competencia"`
	CreatedAt     time.Time       `json:"criado_em"`
	CreatedByID   *int64          `json:"usuario_cadastro_id"`
	CreatedByName string          `json:"usuario_cadastro_nome"`
	ActiveGlosas  int64           `json:"total_glosas"`
	Movements     int64           `json:"total_movimentacoes"`
	Attendances   []string        `json:"atendimentos"`
}

// Reduction is the amount lost to glosas.
func (r *AIHRecord) Reduction() decimal.Decimal {
	return r.InitialValue.Sub(r.CurrentValue)
}

// MovementRecord is a movement with the names the raw row only references.
type MovementRecord struct {
	*aih.Movement
	Number      string `json:"numero_aih"`
	UserName    string `json:"usuario_nome"`
	TypeLabel   string `json:"tipo_descricao"`
	StatusLabel string `json:"status_descricao"`
}

// Metadata heads the JSON export.
type Metadata struct {
	ExportedAt        time.Time `json:"exportado_em"`
	ExportedBy        string    `json:"usuario_export"`
	Version           string    `json:"versao_sistema"`
	TotalAIHs         int       `json:"total_aihs"`
	TotalMovements    int       `json:"total_movimentacoes"`
	TotalActiveGlosas int       `json:"total_glosas_ativas"`
	TotalUsers        int       `json:"total_usuarios"`
	TotalProfessional int       `json:"total_profissionais"`
}

// Dataset is the whole database as exported in JSON. CSV and parquet carry
// only the AIHs.
type Dataset struct {
	Metadata      Metadata          `json:"metadata"`
	AIHs          []*AIHRecord      `json:"aihs"`
	Movements     []*MovementRecord `json:"movimentacoes"`
	Glosas        []db.Row          `json:"glosas"`
	Users         []db.Row          `json:"usuarios"`
	Professionals []db.Row          `json:"profissionais"`
	GlosaTypes    []db.Row          `json:"tipos_glosa"`
}

// History is the movement history of one AIH, newest first.
type History struct {
	Number    string
	Movements []*MovementRecord
}

func statusLabel(s aih.Status) string {
	if l := s.Label(); l != "" {
		return l
	}
	return "Desconhecido"
}

// shortTypeLabel is the compact movement label used in spreadsheets.
func shortTypeLabel(t aih.MovementType) string {
	if t == aih.MovementEntry {
		return "Entrada SUS"
	}
	return "Saída Hospital"
}
