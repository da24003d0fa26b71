package glosa

import "time"

// Glosa is a disputed billing line on an AIH. Removal only clears Active.
type Glosa struct {
	ID           int64     `json:"id"`
	AIHID        int64     `json:"aih_id"`
	Line         string    `json:"linha"`
	Type         string    `json:"tipo"`
	Professional string    `json:"profissional"`
	Quantity     int       `json:"quantidade"`
	Active       bool      `json:"ativa"`
	CreatedAt    time.Time `json:"criado_em"`
}

// CreateInput is the body of POST /api/aih/:id/glosas.
type CreateInput struct {
	Line         string `json:"linha" validate:"required,max=200"`
	Type         string `json:"tipo" validate:"required,max=200"`
	Professional string `json:"profissional" validate:"required,max=200"`
	Quantity     int    `json:"quantidade" validate:"omitempty,min=1"`
}

// GlosaType is an entry of the dispute type catalog.
type GlosaType struct {
	ID          int64  `json:"id"`
	Description string `json:"descricao"`
}

// TypeInput is the body of POST /api/tipos-glosa.
type TypeInput struct {
	Description string `json:"descricao" validate:"required,max=200"`
}
