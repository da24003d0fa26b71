package aih

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aihaudit/aih/internal/domain/glosa"
)

// Status is the audit state of an AIH. A movement overwrites it.
type Status int

const (
	StatusApprovedDirect   Status = 1
	StatusApprovedIndirect Status = 2
	StatusInDiscussion     Status = 3
	StatusFinalizedAfter   Status = 4
)

var statusLabels = map[Status]string{
	StatusApprovedDirect:   "Finalizada com aprovação direta",
	StatusApprovedIndirect: "Ativa com aprovação indireta",
	StatusInDiscussion:     "Ativa em discussão",
	StatusFinalizedAfter:   "Finalizada após discussão",
}

func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the display name, empty for unknown codes.
func (s Status) Label() string {
	return statusLabels[s]
}

// UnmarshalJSON accepts the code as a number or as a numeric string, the
// form the web client posts from select inputs.
func (s *Status) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = 0
		return nil
	}
	raw := string(data)
	if unq, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unq)
		if raw == "" {
			*s = 0
			return nil
		}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("status %s: %w", data, err)
	}
	*s = Status(n)
	return nil
}

// MovementType is the direction of an audit hand-off.
type MovementType string

const (
	MovementEntry MovementType = "entrada_sus"
	MovementExit  MovementType = "saida_hospital"
)

func (t MovementType) Valid() bool {
	return t == MovementEntry || t == MovementExit
}

// Label returns the display name of the movement type.
func (t MovementType) Label() string {
	switch t {
	case MovementEntry:
		return "Entrada na Auditoria SUS"
	case MovementExit:
		return "Saída para Auditoria Hospital"
	}
	return string(t)
}

// AIH is a hospital billing authorization under audit.
type AIH struct {
	ID           int64           `json:"id"`
	Number       string          `json:"numero_aih"`
	InitialValue decimal.Decimal `json:"valor_inicial"`
	CurrentValue decimal.Decimal `json:"valor_atual"`
	Status       Status          `json:"status"`
	Competence   string          `json:"competencia"`
	CreatedAt    time.Time       `json:"criado_em"`
	CreatedBy    *int64          `json:"usuario_cadastro_id"`
}

// Detail is the lookup view of an AIH with its children.
type Detail struct {
	*AIH
	Attendances []string       `json:"atendimentos"`
	Movements   []*Movement    `json:"movimentacoes"`
	Glosas      []*glosa.Glosa `json:"glosas"`
}

// Movement is one hand-off between the payer and provider audits.
type Movement struct {
	ID                int64            `json:"id"`
	AIHID             int64            `json:"aih_id"`
	Type              MovementType     `json:"tipo"`
	Date              time.Time        `json:"data_movimentacao"`
	UserID            int64            `json:"usuario_id"`
	Value             *decimal.Decimal `json:"valor_conta"`
	Competence        *string          `json:"competencia"`
	ProfMedicine      *string          `json:"prof_medicina"`
	ProfNursing       *string          `json:"prof_enfermagem"`
	ProfPhysiotherapy *string          `json:"prof_fisioterapia"`
	ProfMaxillofacial *string          `json:"prof_bucomaxilo"`
	Status            Status           `json:"status_aih"`
	Notes             *string          `json:"observacoes"`
}

// MovementInput is the body of POST /api/aih/:id/movimentacao.
type MovementInput struct {
	Type              MovementType     `json:"tipo"`
	Status            Status           `json:"status_aih"`
	Value             *decimal.Decimal `json:"valor_conta"`
	Competence        string           `json:"competencia"`
	ProfMedicine      string           `json:"prof_medicina"`
	ProfNursing       string           `json:"prof_enfermagem"`
	ProfPhysiotherapy string           `json:"prof_fisioterapia"`
	ProfMaxillofacial string           `json:"prof_bucomaxilo"`
	Notes             string           `json:"observacoes"`
}

// RegisterInput is the body of POST /api/aih.
type RegisterInput struct {
	Number       string          `json:"numero_aih"`
	InitialValue decimal.Decimal `json:"valor_inicial"`
	Competence   string          `json:"competencia"`
	Attendances  Attendances     `json:"atendimentos"`
}

// UnmarshalJSON reads valor_inicial leniently: a value that is not a number
// decodes as zero so ValidateAIH reports it with the other problems instead
// of the whole body being rejected.
func (in *RegisterInput) UnmarshalJSON(data []byte) error {
	type plain RegisterInput
	var raw struct {
		plain
		InitialValue json.RawMessage `json:"valor_inicial"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*in = RegisterInput(raw.plain)
	in.InitialValue = decimal.Zero
	if v := bytes.TrimSpace(raw.InitialValue); len(v) > 0 && !bytes.Equal(v, []byte("null")) {
		var d decimal.Decimal
		if err := d.UnmarshalJSON(v); err == nil {
			in.InitialValue = d
		}
	}
	return nil
}

// Registered is the response of a successful registration.
type Registered struct {
	Success      bool            `json:"success"`
	ID           int64           `json:"id"`
	Number       string          `json:"numero_aih"`
	Inserted     int             `json:"atendimentos_inseridos"`
	InitialValue decimal.Decimal `json:"valor_inicial"`
	Competence   string          `json:"competencia"`
}

const (
	maxAttendanceLen = 50
	maxAttendances   = 100
)

// Attendances holds attendance numbers as sent by the client: a JSON array,
// a string separated by commas or line breaks, or an object whose values
// are taken in document order. Items are trimmed but not yet filtered.
type Attendances []string

func (a *Attendances) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = nil
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			*a = nil
			return nil
		}
		parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' || r == '\r' })
		out := make(Attendances, 0, len(parts))
		for _, p := range parts {
			out = append(out, strings.TrimSpace(p))
		}
		*a = out
		return nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*a = rawValues(items)
		return nil
	case '{':
		items, err := objectValues(data)
		if err != nil {
			return err
		}
		*a = rawValues(items)
		return nil
	}
	return fmt.Errorf("atendimentos: unsupported value %s", data)
}

func objectValues(data []byte) ([]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var out []json.RawMessage
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func rawValues(items []json.RawMessage) Attendances {
	out := make(Attendances, 0, len(items))
	for _, raw := range items {
		raw = bytes.TrimSpace(raw)
		if bytes.Equal(raw, []byte("null")) {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			s = string(raw)
		}
		out = append(out, strings.TrimSpace(s))
	}
	return out
}

// Normalized drops blank items and items longer than 50 characters.
func (a Attendances) Normalized() []string {
	out := make([]string, 0, len(a))
	for _, s := range a {
		s = strings.TrimSpace(s)
		if s == "" || len([]rune(s)) > maxAttendanceLen {
			continue
		}
		out = append(out, s)
	}
	return out
}

// NextMovement describes the only movement type accepted next for an AIH.
type NextMovement struct {
	Type        MovementType  `json:"proximo_tipo"`
	Description string        `json:"descricao"`
	Explanation string        `json:"explicacao"`
	Last        *MovementType `json:"ultima_movimentacao"`
}

// Professionals is the staff assignment of the latest movement that named any.
type Professionals struct {
	Medicine      *string      `json:"prof_medicina"`
	Nursing       *string      `json:"prof_enfermagem"`
	Physiotherapy *string      `json:"prof_fisioterapia"`
	Maxillofacial *string      `json:"prof_bucomaxilo"`
	Date          time.Time    `json:"data_movimentacao"`
	Type          MovementType `json:"tipo"`
}

// Dashboard aggregates counts and values for one competence plus globals.
type Dashboard struct {
	Competence           string      `json:"competencia_selecionada"`
	InProcessing         int64       `json:"em_processamento_competencia"`
	Finalized            int64       `json:"finalizadas_competencia"`
	WithPending          int64       `json:"com_pendencias_competencia"`
	TotalCompetence      int64       `json:"total_aihs_competencia"`
	TotalEntries         int64       `json:"total_entradas_sus"`
	TotalExits           int64       `json:"total_saidas_hospital"`
	TotalInProcessing    int64       `json:"total_em_processamento_geral"`
	TotalFinalized       int64       `json:"total_finalizadas_geral"`
	TotalAIHs            int64       `json:"total_aihs_geral"`
	AvailableCompetences []string    `json:"competencias_disponiveis"`
	Values               ValueTotals `json:"valores_competencia"`
}

// ValueTotals are the money aggregates of a competence.
type ValueTotals struct {
	Initial          decimal.Decimal `json:"inicial"`
	Current          decimal.Decimal `json:"atual"`
	AverageReduction decimal.Decimal `json:"media_glosa"`
}

// SearchFilters is the filtros object of POST /api/pesquisar. The two
// in-processing filters replace every other criterion when set.
type SearchFilters struct {
	Status                 []Status         `json:"status"`
	Competence             string           `json:"competencia"`
	DateFrom               string           `json:"data_inicio"`
	DateTo                 string           `json:"data_fim"`
	ValueMin               *decimal.Decimal `json:"valor_min"`
	ValueMax               *decimal.Decimal `json:"valor_max"`
	Number                 string           `json:"numero_aih"`
	Attendance             string           `json:"numero_atendimento"`
	Professional           string           `json:"profissional"`
	InProcessingCompetence string           `json:"em_processamento_competencia"`
	InProcessingOverall    bool             `json:"em_processamento_geral"`
}

// SearchResult is an AIH row with its active glosa count.
type SearchResult struct {
	AIH
	ActiveGlosas int64 `json:"total_glosas"`
}
