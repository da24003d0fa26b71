package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
)

// utf8BOM makes spreadsheet tools detect the encoding of CSV files.
const utf8BOM = "\ufeff"

const brDateTime = "02/01/2006 15:04:05"

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// WriteAIHsCSV writes one line per AIH.
func WriteAIHsCSV(w io.Writer, aihs []*AIHRecord) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	header := []string{"ID", "Número AIH", "Valor Inicial", "Valor Atual", "Diferença (Glosas)", "Percentual Glosa",
		"Status Código", "Status Descrição", "Competência", "Total Glosas", "Total Movimentações",
		"Atendimentos", "Usuário Cadastro", "Data Criação"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("export csv: write header: %w", err)
	}
	for _, a := range aihs {
		percent := "0%"
		if a.InitialValue.IsPositive() {
			percent = a.Reduction().Div(a.InitialValue).Shift(2).StringFixed(2) + "%"
		}
		record := []string{
			strconv.FormatInt(a.ID, 10),
			a.Number,
			a.InitialValue.StringFixed(2),
			a.CurrentValue.StringFixed(2),
			a.Reduction().StringFixed(2),
			percent,
			strconv.Itoa(int(a.Status)),
			a.StatusLabel,
			a.Competence,
			strconv.FormatInt(a.ActiveGlosas, 10),
			strconv.FormatInt(a.Movements, 10),
			strings.Join(a.Attendances, ", "),
			a.CreatedByName,
			a.CreatedAt.Format(brDateTime),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("export csv: write record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteHistoryCSV writes the movement history of one AIH.
func WriteHistoryCSV(w io.Writer, h *History) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	header := []string{"Data", "Tipo", "Status", "Valor", "Competencia", "Prof_Medicina", "Prof_Enfermagem",
		"Prof_Fisioterapia", "Prof_Bucomaxilo", "Usuario", "Observacoes"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("history csv: write header: %w", err)
	}
	for _, m := range h.Movements {
		value := "0.00"
		if m.Value != nil {
			value = m.Value.StringFixed(2)
		}
		record := []string{
			m.Date.Format(brDateTime),
			shortTypeLabel(m.Type),
			m.StatusLabel,
			"R$ " + value,
			deref(m.Competence),
			deref(m.ProfMedicine),
			deref(m.ProfNursing),
			deref(m.ProfPhysiotherapy),
			deref(m.ProfMaxillofacial),
			m.UserName,
			deref(m.Notes),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("history csv: write record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

type aihParquetRow struct {
	ID            int64   `parquet:"id"`
	Number        string  `parquet:"numero_aih"`
	InitialValue  float64 `parquet:"valor_inicial"`
	CurrentValue  float64 `parquet:"valor_atual"`
	Status        int32   `parquet:"status"`
	StatusLabel   string  `parquet:"status_descricao"`
	Competence    string  `parquet:"competencia"`
	ActiveGlosas  int64   `parquet:"total_glosas"`
	Movements     int64   `parquet:"total_movimentacoes"`
	Attendances   string  `parquet:"atendimentos"`
	CreatedByName string  `parquet:"usuario_cadastro_nome"`
	CreatedAt     string  `parquet:"criado_em"`
}

type movementParquetRow struct {
	ID                int64    `parquet:"id"`
	Number            string   `parquet:"numero_aih"`
	Type              string   `parquet:"tipo"`
	Date              string   `parquet:"data_movimentacao"`
	Status            int32    `parquet:"status_aih"`
	StatusLabel       string   `parquet:"status_descricao"`
	Value             *float64 `parquet:"valor_conta,optional"`
	Competence        *string  `parquet:"competencia,optional"`
	ProfMedicine      *string  `parquet:"prof_medicina,optional"`
	ProfNursing       *string  `parquet:"prof_enfermagem,optional"`
	ProfPhysiotherapy *string  `parquet:"prof_fisioterapia,optional"`
	ProfMaxillofacial *string  `parquet:"prof_bucomaxilo,optional"`
	UserName          string   `parquet:"usuario_nome"`
	Notes             *string  `parquet:"observacoes,optional"`
}

func writeParquet[T any](w io.Writer, rows []T) error {
	pw := parquet.NewGenericWriter[T](w)
	if _, err := pw.Write(rows); err != nil {
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

// WriteAIHsParquet writes the AIH records as a parquet file.
func WriteAIHsParquet(w io.Writer, aihs []*AIHRecord) error {
	rows := make([]aihParquetRow, 0, len(aihs))
	for _, a := range aihs {
		rows = append(rows, aihParquetRow{
			ID:            a.ID,
			Number:        a.Number,
			InitialValue:  a.InitialValue.InexactFloat64(),
			CurrentValue:  a.CurrentValue.InexactFloat64(),
			Status:        int32(a.Status),
			StatusLabel:   a.StatusLabel,
			Competence:    a.Competence,
			ActiveGlosas:  a.ActiveGlosas,
			Movements:     a.Movements,
			Attendances:   strings.Join(a.Attendances, ", "),
			CreatedByName: a.CreatedByName,
			CreatedAt:     a.CreatedAt.Format(time.RFC3339),
		})
	}
	return writeParquet(w, rows)
}

// WriteHistoryParquet writes the movement history of one AIH as parquet.
func WriteHistoryParquet(w io.Writer, h *History) error {
	rows := make([]movementParquetRow, 0, len(h.Movements))
	for _, m := range h.Movements {
		row := movementParquetRow{
			ID:                m.ID,
			Number:            h.Number,
			Type:              string(m.Type),
			Date:              m.Date.Format(time.RFC3339),
			Status:            int32(m.Status),
			StatusLabel:       m.StatusLabel,
			Competence:        m.Competence,
			ProfMedicine:      m.ProfMedicine,
			ProfNursing:       m.ProfNursing,
			ProfPhysiotherapy: m.ProfPhysiotherapy,
			ProfMaxillofacial: m.ProfMaxillofacial,
			UserName:          m.UserName,
			Notes:             m.Notes,
		}
		if m.Value != nil {
			v := m.Value.InexactFloat64()
			row.Value = &v
		}
		rows = append(rows, row)
	}
	return writeParquet(w, rows)
}
