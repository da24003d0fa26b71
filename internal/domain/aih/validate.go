package aih

import (
	"regexp"
	"strings"
)

var competenceRe = regexp.MustCompile(`^\d{2}/\d{4}$`)

const msgInvalidType = "Tipo de movimentação inválido"

// ValidCompetence reports whether s has the MM/YYYY form.
func ValidCompetence(s string) bool {
	return competenceRe.MatchString(s)
}

// ValidateAIH returns every problem with a registration body. It does no I/O.
func ValidateAIH(in RegisterInput) []string {
	var problems []string
	if strings.TrimSpace(in.Number) == "" {
		problems = append(problems, "Número da AIH é obrigatório")
	}
	if !in.InitialValue.IsPositive() {
		problems = append(problems, "Valor inicial deve ser um número positivo")
	}
	if !ValidCompetence(in.Competence) {
		problems = append(problems, "Competência deve estar no formato MM/AAAA")
	}
	if len(in.Attendances) == 0 {
		problems = append(problems, "Pelo menos um atendimento deve ser informado")
	}
	return problems
}

// ValidateMovement returns every problem with the fields of a movement body.
// Sequence and professional rules are checked separately.
func ValidateMovement(in MovementInput) []string {
	var problems []string
	if !in.Type.Valid() {
		problems = append(problems, msgInvalidType)
	}
	if !in.Status.Valid() {
		problems = append(problems, "Status da AIH inválido")
	}
	if in.Value != nil && in.Value.IsNegative() {
		problems = append(problems, "Valor da conta deve ser um número não negativo")
	}
	return problems
}

// CheckProfessionals applies the staffing rule: nursing is always required
// and at least one of medicine or maxillofacial surgery must be named.
func CheckProfessionals(in MovementInput) []string {
	var problems []string
	if strings.TrimSpace(in.ProfNursing) == "" {
		problems = append(problems, "Profissional de Enfermagem é obrigatório")
	}
	if strings.TrimSpace(in.ProfMedicine) == "" && strings.TrimSpace(in.ProfMaxillofacial) == "" {
		problems = append(problems, "É necessário informar pelo menos um profissional de Medicina ou Cirurgião Bucomaxilo")
	}
	return problems
}

// NextLegalType returns the only type accepted after last. A nil last means
// the AIH has no movement yet.
func NextLegalType(last *MovementType) MovementType {
	if last != nil && *last == MovementEntry {
		return MovementExit
	}
	return MovementEntry
}

func explainNext(last *MovementType) string {
	switch {
	case last == nil:
		return "Esta é a primeira movimentação da AIH. Deve ser registrada como entrada na Auditoria SUS."
	case *last == MovementEntry:
		return "A última movimentação foi entrada na Auditoria SUS. A próxima deve ser saída para Auditoria Hospital."
	default:
		return "A última movimentação foi saída para Hospital. A próxima deve ser entrada na Auditoria SUS."
	}
}
