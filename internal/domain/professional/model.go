package professional

// Professional is a catalog entry offered when naming the staff of a
// movement or glosa.
type Professional struct {
	ID        int64  `json:"id"`
	Name      string `json:"nome"`
	Specialty string `json:"especialidade"`
}

type CreateInput struct {
	Name      string `json:"nome" validate:"required,max=200"`
	Specialty string `json:"especialidade" validate:"required,max=100"`
}
