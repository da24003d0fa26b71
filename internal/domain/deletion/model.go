package deletion

import (
	"encoding/json"
	"time"

	"github.com/aihaudit/aih/internal/platform/db"
)

// Kind is the scope of a hard delete.
type Kind string

const (
	KindMovement Kind = "movimentacao"
	KindAIH      Kind = "aih_completa"
)

const minJustification = 10

// Log is the immutable audit record written in the same transaction as the
// delete it describes.
type Log struct {
	ID            int64           `json:"id"`
	Kind          Kind            `json:"tipo_exclusao"`
	UserID        int64           `json:"usuario_id"`
	UserName      string          `json:"usuario_nome,omitempty"`
	Snapshot      json.RawMessage `json:"dados_excluidos"`
	Justification string          `json:"justificativa"`
	IP            string          `json:"ip_origem"`
	UserAgent     string          `json:"user_agent"`
	DeletedAt     time.Time       `json:"data_exclusao"`
}

// Origin is the request metadata stored with a deletion log.
type Origin struct {
	IP        string
	UserAgent string
}

// MovementRequest is the body of DELETE /api/admin/deletar-movimentacao.
type MovementRequest struct {
	MovementID    int64  `json:"movimentacao_id" validate:"gte=0"`
	Justification string `json:"justificativa" validate:"max=1000"`
}

// AIHRequest is the body of DELETE /api/admin/deletar-aih.
type AIHRequest struct {
	Number        string `json:"numero_aih" validate:"max=50"`
	Justification string `json:"justificativa" validate:"max=1000"`
}

// MovementDeleted summarizes a removed movement.
type MovementDeleted struct {
	ID   int64  `json:"id"`
	AIH  string `json:"aih"`
	Type string `json:"tipo"`
}

// AIHDeleted summarizes a removed AIH and the child rows that went with it.
type AIHDeleted struct {
	Number      string `json:"numero_aih"`
	Movements   int    `json:"movimentacoes_removidas"`
	Glosas      int    `json:"glosas_removidas"`
	Attendances int    `json:"atendimentos_removidos"`
}

// aihSnapshot is the dados_excluidos document of a full AIH delete.
type aihSnapshot struct {
	AIH         db.Row         `json:"aih"`
	Movements   []db.Row       `json:"movimentacoes"`
	Glosas      []db.Row       `json:"glosas"`
	Attendances []db.Row       `json:"atendimentos"`
	Totals      snapshotTotals `json:"totais"`
}

type snapshotTotals struct {
	Movements   int `json:"movimentacoes"`
	Glosas      int `json:"glosas"`
	Attendances int `json:"atendimentos"`
}
