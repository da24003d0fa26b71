package aih

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateAIH(t *testing.T) {
	valid := RegisterInput{
		Number:       "1234567890123",
		InitialValue: decimal.RequireFromString("1000.00"),
		Competence:   "07/2025",
		Attendances:  Attendances{"A1"},
	}
	if problems := ValidateAIH(valid); len(problems) != 0 {
		t.Fatalf("expected no problems, got %v", problems)
	}

	problems := ValidateAIH(RegisterInput{Number: " ", InitialValue: decimal.NewFromInt(-1), Competence: "7/2025"})
	want := []string{
		"Número da AIH é obrigatório",
		"Valor inicial deve ser um número positivo",
		"Competência deve estar no formato MM/AAAA",
		"Pelo menos um atendimento deve ser informado",
	}
	if !reflect.DeepEqual(problems, want) {
		t.Errorf("expected %v, got %v", want, problems)
	}
}

func TestValidateMovement(t *testing.T) {
	neg := decimal.NewFromInt(-5)
	tests := []struct {
		name string
		in   MovementInput
		want int
	}{
		{"valid", MovementInput{Type: MovementEntry, Status: 3}, 0},
		{"unknown type", MovementInput{Type: "transferencia", Status: 3}, 1},
		{"status out of range", MovementInput{Type: MovementExit, Status: 5}, 1},
		{"negative value", MovementInput{Type: MovementExit, Status: 2, Value: &neg}, 1},
		{"everything wrong", MovementInput{Status: 0, Value: &neg}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateMovement(tt.in); len(got) != tt.want {
				t.Errorf("expected %d problems, got %v", tt.want, got)
			}
		})
	}
}

func TestCheckProfessionals(t *testing.T) {
	tests := []struct {
		name string
		in   MovementInput
		ok   bool
	}{
		{"nursing blank", MovementInput{ProfMedicine: "M1", ProfMaxillofacial: "B1"}, false},
		{"nursing only", MovementInput{ProfNursing: "N1"}, false},
		{"nursing and physiotherapy", MovementInput{ProfNursing: "N1", ProfPhysiotherapy: "F1"}, false},
		{"nursing whitespace", MovementInput{ProfNursing: "   ", ProfMedicine: "M1"}, false},
		{"nursing and medicine", MovementInput{ProfNursing: "N1", ProfMedicine: "M1"}, true},
		{"nursing and maxillofacial", MovementInput{ProfNursing: "N1", ProfMaxillofacial: "B1"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problems := CheckProfessionals(tt.in)
			if (len(problems) == 0) != tt.ok {
				t.Errorf("expected ok=%v, got %v", tt.ok, problems)
			}
		})
	}
}

func TestNextLegalType(t *testing.T) {
	entry, exit := MovementEntry, MovementExit
	if got := NextLegalType(nil); got != MovementEntry {
		t.Errorf("first movement: expected entry, got %s", got)
	}
	if got := NextLegalType(&entry); got != MovementExit {
		t.Errorf("after entry: expected exit, got %s", got)
	}
	if got := NextLegalType(&exit); got != MovementEntry {
		t.Errorf("after exit: expected entry, got %s", got)
	}
	if !strings.Contains(explainNext(nil), "primeira movimentação") {
		t.Errorf("unexpected explanation %q", explainNext(nil))
	}
}

func TestAttendances_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"array", `["A1", " A2 ", ""]`, []string{"A1", "A2"}},
		{"numbers in array", `[101, "A2"]`, []string{"101", "A2"}},
		{"separated string", `"A1, A2\nA3\r\nA4"`, []string{"A1", "A2", "A3", "A4"}},
		{"object values in order", `{"b":"B1","a":"A1"}`, []string{"B1", "A1"}},
		{"too long dropped", `["` + strings.Repeat("x", 51) + `","ok"]`, []string{"ok"}},
		{"blank string", `"   "`, []string{}},
		{"null", `null`, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in RegisterInput
			if err := json.Unmarshal([]byte(`{"atendimentos":`+tt.body+`}`), &in); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got := in.Attendances.Normalized(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestAttendances_BlankItemsStillCountAsInformed(t *testing.T) {
	var in RegisterInput
	json.Unmarshal([]byte(`{"atendimentos":[" "]}`), &in)
	if len(in.Attendances) != 1 {
		t.Fatalf("expected the raw item to be kept, got %v", in.Attendances)
	}
	if len(in.Attendances.Normalized()) != 0 {
		t.Error("expected blank item to be dropped by Normalized")
	}
}

func TestStatus_UnmarshalJSON(t *testing.T) {
	var in MovementInput
	if err := json.Unmarshal([]byte(`{"status_aih":"2"}`), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if in.Status != StatusApprovedIndirect {
		t.Errorf("expected status 2, got %d", in.Status)
	}
	if err := json.Unmarshal([]byte(`{"status_aih":4}`), &in); err != nil || in.Status != StatusFinalizedAfter {
		t.Errorf("expected status 4, got %d (%v)", in.Status, err)
	}
	if err := json.Unmarshal([]byte(`{"status_aih":"dois"}`), &in); err == nil {
		t.Error("expected error for non-numeric status")
	}
	if StatusInDiscussion.Label() != "Ativa em discussão" {
		t.Errorf("unexpected label %q", StatusInDiscussion.Label())
	}
}
