package aih

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/aihaudit/aih/internal/domain/glosa"
	"github.com/aihaudit/aih/internal/platform/auth"
	"github.com/aihaudit/aih/internal/platform/middleware"
)

// newTestServer mounts the AIH and glosa routes over a fresh database with
// every request authenticated as an operator.
func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	f := newFixture(t)
	e := echo.New()
	e.Validator = middleware.NewValidator()
	e.HTTPErrorHandler = middleware.HTTPErrorHandler(zerolog.Nop())

	api := e.Group("/api", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			c.SetRequest(req.WithContext(auth.WithIdentity(req.Context(), f.userID, "auditor", []string{auth.RoleUser})))
			return next(c)
		}
	})
	NewHandler(f.svc).RegisterRoutes(api)
	glosa.NewHandler(f.glosas).RegisterRoutes(api)
	return e
}

func do(t *testing.T, e *echo.Echo, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	out := map[string]interface{}{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("%s %s: invalid JSON %q", method, path, rec.Body.String())
	}
	return rec.Code, out
}

func TestHandler_WorkflowOverHTTP(t *testing.T) {
	e := newTestServer(t)

	code, body := do(t, e, http.MethodPost, "/api/aih",
		`{"numero_aih":"1234567890123","valor_inicial":1000.00,"competencia":"07/2025","atendimentos":["A1"]}`)
	if code != http.StatusOK || body["success"] != true {
		t.Fatalf("register: %d %v", code, body)
	}
	if body["atendimentos_inseridos"] != float64(1) {
		t.Errorf("unexpected inserted count %v", body["atendimentos_inseridos"])
	}
	id := int(body["id"].(float64))
	base := "/api/aih/" + strconv.Itoa(id)

	code, body = do(t, e, http.MethodGet, base+"/proxima-movimentacao", "")
	if code != http.StatusOK || body["proximo_tipo"] != "entrada_sus" || body["ultima_movimentacao"] != nil {
		t.Errorf("next movement: %d %v", code, body)
	}

	code, body = do(t, e, http.MethodPost, base+"/movimentacao",
		`{"tipo":"saida_hospital","status_aih":3,"valor_conta":1000,"prof_enfermagem":"N1","prof_medicina":"M1"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("exit first: expected 400, got %d", code)
	}
	if msg, _ := body["error"].(string); !strings.Contains(msg, "Esperado: entrada_sus, recebido: saida_hospital") {
		t.Errorf("unexpected error %q", msg)
	}

	code, _ = do(t, e, http.MethodPost, base+"/movimentacao",
		`{"tipo":"entrada_sus","status_aih":"3","valor_conta":1000,"prof_enfermagem":"N1","prof_medicina":"M1"}`)
	if code != http.StatusOK {
		t.Fatalf("entry: expected 200, got %d", code)
	}

	code, _ = do(t, e, http.MethodPost, base+"/glosas", `{"linha":"L1","tipo":"Cobrança indevida","profissional":"M1"}`)
	if code != http.StatusOK {
		t.Fatalf("glosa: expected 200, got %d", code)
	}

	code, _ = do(t, e, http.MethodPost, base+"/movimentacao",
		`{"tipo":"saida_hospital","status_aih":2,"valor_conta":800,"prof_enfermagem":"N1","prof_medicina":"M1"}`)
	if code != http.StatusOK {
		t.Fatalf("exit: expected 200, got %d", code)
	}

	code, body = do(t, e, http.MethodGet, "/api/aih/1234567890123", "")
	if code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", code)
	}
	if body["status"] != float64(2) {
		t.Errorf("expected status 2, got %v", body["status"])
	}
	if glosas, _ := body["glosas"].([]interface{}); len(glosas) != 1 {
		t.Errorf("expected one active glosa, got %v", body["glosas"])
	}
	if movs, _ := body["movimentacoes"].([]interface{}); len(movs) != 2 {
		t.Errorf("expected two movements, got %v", body["movimentacoes"])
	}

	code, body = do(t, e, http.MethodGet, base+"/ultima-movimentacao", "")
	mov, _ := body["movimentacao"].(map[string]interface{})
	if code != http.StatusOK || mov["prof_enfermagem"] != "N1" || mov["tipo"] != "saida_hospital" {
		t.Errorf("last professionals: %d %v", code, body)
	}
}

func TestHandler_RegisterValidationMessage(t *testing.T) {
	e := newTestServer(t)
	code, body := do(t, e, http.MethodPost, "/api/aih", `{"numero_aih":"","valor_inicial":0,"competencia":"x","atendimentos":[]}`)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	want := "Número da AIH é obrigatório, Valor inicial deve ser um número positivo, " +
		"Competência deve estar no formato MM/AAAA, Pelo menos um atendimento deve ser informado"
	if body["error"] != want {
		t.Errorf("expected %q, got %q", want, body["error"])
	}
}

func TestHandler_GetUnknownAIH(t *testing.T) {
	e := newTestServer(t)
	code, body := do(t, e, http.MethodGet, "/api/aih/000", "")
	if code != http.StatusNotFound || body["error"] != "AIH não encontrada" {
		t.Errorf("expected 404 'AIH não encontrada', got %d %v", code, body)
	}
}

func TestHandler_LastProfessionalsNone(t *testing.T) {
	e := newTestServer(t)
	_, reg := do(t, e, http.MethodPost, "/api/aih",
		`{"numero_aih":"9","valor_inicial":"10.50","competencia":"08/2025","atendimentos":"X1, X2"}`)
	id := int(reg["id"].(float64))

	code, body := do(t, e, http.MethodGet, "/api/aih/"+strconv.Itoa(id)+"/ultima-movimentacao", "")
	if code != http.StatusOK || body["movimentacao"] != nil {
		t.Errorf("expected null movimentacao, got %d %v", code, body)
	}
	if body["message"] != "Nenhuma movimentação anterior com profissionais encontrada" {
		t.Errorf("unexpected message %v", body["message"])
	}
}

func TestHandler_SearchAndDashboard(t *testing.T) {
	e := newTestServer(t)
	do(t, e, http.MethodPost, "/api/aih", `{"numero_aih":"77","valor_inicial":100,"competencia":"07/2025","atendimentos":["Z"]}`)

	code, body := do(t, e, http.MethodPost, "/api/pesquisar", `{"filtros":{"numero_aih":"7","status":[3]}}`)
	if code != http.StatusOK {
		t.Fatalf("search: expected 200, got %d", code)
	}
	results, _ := body["resultados"].([]interface{})
	if len(results) != 1 {
		t.Fatalf("expected one result, got %v", body)
	}
	if r := results[0].(map[string]interface{}); r["total_glosas"] != float64(0) {
		t.Errorf("expected total_glosas 0, got %v", r["total_glosas"])
	}

	code, body = do(t, e, http.MethodGet, "/api/dashboard?competencia=07/2025", "")
	if code != http.StatusOK || body["total_aihs_competencia"] != float64(1) {
		t.Errorf("dashboard: %d %v", code, body)
	}
}

func TestHandler_RegisterNonNumericValue(t *testing.T) {
	e := newTestServer(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"text", `{"numero_aih":"1","valor_inicial":"abc","competencia":"07/2025","atendimentos":["A1"]}`,
			"Valor inicial deve ser um número positivo"},
		{"object", `{"numero_aih":"1","valor_inicial":{},"competencia":"07/2025","atendimentos":["A1"]}`,
			"Valor inicial deve ser um número positivo"},
		{"with other problems", `{"numero_aih":"","valor_inicial":"abc","competencia":"2025-07","atendimentos":["A1"]}`,
			"Número da AIH é obrigatório, Valor inicial deve ser um número positivo, Competência deve estar no formato MM/AAAA"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := do(t, e, http.MethodPost, "/api/aih", tt.body)
			if code != http.StatusBadRequest || body["error"] != tt.want {
				t.Errorf("got %d %v, want 400 %q", code, body["error"], tt.want)
			}
		})
	}

	code, body := do(t, e, http.MethodPost, "/api/aih",
		`{"numero_aih":"2","valor_inicial":"150.25","competencia":"07/2025","atendimentos":"A1, A2"}`)
	if code != http.StatusOK || body["atendimentos_inseridos"] != float64(2) {
		t.Errorf("quoted value: %d %v", code, body)
	}
}
