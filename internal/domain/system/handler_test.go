package system

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/aihaudit/aih/internal/platform/auth"
	"github.com/aihaudit/aih/internal/platform/db"
	"github.com/aihaudit/aih/internal/platform/db/dbtest"
	"github.com/aihaudit/aih/internal/platform/middleware"
)

type fixture struct {
	store  *db.Store
	limits *middleware.RateLimiter
	events *middleware.SecurityLog
	dir    string
	e      *echo.Echo
}

func newFixture(t *testing.T, roles ...string) *fixture {
	t.Helper()
	store := dbtest.NewStore(t)
	events := middleware.NewSecurityLog(10)
	f := &fixture{
		store:  store,
		events: events,
		limits: middleware.NewRateLimiter(middleware.RateLimitConfig{Window: time.Hour, Max: 1}, events),
		dir:    filepath.Join(t.TempDir(), "backups"),
	}
	svc := NewService(Deps{
		Store:   store,
		Limits:  f.limits,
		Events:  events,
		Backups: db.NewBackup(store.Pool(), db.BackupConfig{Dir: f.dir, Keep: 2}, nil, zerolog.Nop()),
		Logger:  zerolog.Nop(),
	})
	svc.now = func() time.Time { return time.Date(2025, 7, 15, 9, 0, 0, 0, time.UTC) }
	svc.started = svc.now().Add(-90 * time.Second)

	f.e = echo.New()
	h := NewHandler(svc)
	h.RegisterPublic(f.e)
	api := f.e.Group("/api", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			c.SetRequest(req.WithContext(auth.WithIdentity(req.Context(), 1, "root", roles)))
			return next(c)
		}
	})
	h.RegisterRoutes(api)
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return out
}

func TestHandler_Health(t *testing.T) {
	f := newFixture(t)
	dbtest.SeedAIH(t, f.store, "1234567890123", "100", "07/2025", dbtest.SeedUser(t, f.store, "ana"))

	rec := f.do(http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["status"] != "ok" || body["uptime"].(float64) != 90 {
		t.Errorf("unexpected health %v", body)
	}
	database := body["database"].(map[string]interface{})
	if database["total_aihs"].(float64) != 1 || database["connections"].(float64) != 4 {
		t.Errorf("unexpected database section %v", database)
	}

	if rec := f.do(http.MethodGet, "/health/db", ""); rec.Code != http.StatusOK {
		t.Errorf("expected /health/db 200, got %d", rec.Code)
	}
}

func TestHandler_AdminOnly(t *testing.T) {
	f := newFixture(t, auth.RoleUser)
	for _, path := range []string{"/api/admin/stats", "/api/admin/security-logs"} {
		if rec := f.do(http.MethodGet, path, ""); rec.Code != http.StatusForbidden {
			t.Errorf("%s: expected 403 for operator, got %d", path, rec.Code)
		}
	}
	if rec := f.do(http.MethodPost, "/api/admin/backup", "{}"); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for operator backup, got %d", rec.Code)
	}
}

func TestHandler_Stats(t *testing.T) {
	f := newFixture(t, auth.RoleAdmin)
	f.limits.Allow("203.0.113.1")

	rec := f.do(http.MethodGet, "/api/admin/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	stats := decode(t, rec)["stats"].(map[string]interface{})
	if _, ok := stats["total_aihs"]; !ok {
		t.Errorf("expected database counts in stats, got %v", stats)
	}
	rl := stats["rate_limit"].(map[string]interface{})
	if rl["clientes_monitorados"].(float64) != 1 {
		t.Errorf("expected one tracked client, got %v", rl)
	}
}

func TestHandler_ClearCache(t *testing.T) {
	f := newFixture(t, auth.RoleAdmin)
	ctx := context.Background()
	if _, err := f.store.Execute(ctx, "INSERT INTO profissionais (nome, especialidade) VALUES ('Ana', 'Medicina')"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.store.FetchAllCached(ctx, "SELECT id FROM profissionais"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.store.FetchAllCached(ctx, "SELECT id FROM tipos_glosa"); err != nil {
		t.Fatal(err)
	}

	rec := f.do(http.MethodPost, "/api/admin/clear-cache", `{"pattern":"profissionais"}`)
	body := decode(t, rec)
	if body["message"] != "Cache limpo com sucesso" || body["removidos"].(float64) != 1 {
		t.Errorf("unexpected response %v", body)
	}
	if n := f.store.Cache().Len(); n != 1 {
		t.Errorf("expected 1 cached entry left, got %d", n)
	}

	f.do(http.MethodPost, "/api/admin/clear-cache", `{}`)
	if n := f.store.Cache().Len(); n != 0 {
		t.Errorf("expected empty cache, got %d", n)
	}
}

func TestHandler_ClearRateLimit(t *testing.T) {
	f := newFixture(t, auth.RoleAdmin)
	f.limits.Allow("203.0.113.1")
	f.limits.Allow("203.0.113.2")

	rec := f.do(http.MethodPost, "/api/admin/clear-rate-limit", `{"ip":"203.0.113.1"}`)
	if rec.Code != http.StatusOK || decode(t, rec)["message"] != "Rate limit limpo com sucesso" {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	if n := f.limits.Stats().TrackedClients; n != 1 {
		t.Errorf("expected 1 tracked client, got %d", n)
	}
	f.do(http.MethodPost, "/api/admin/clear-rate-limit", `{}`)
	if n := f.limits.Stats().TrackedClients; n != 0 {
		t.Errorf("expected no tracked clients, got %d", n)
	}
}

func TestHandler_SecurityLogs(t *testing.T) {
	f := newFixture(t, auth.RoleAdmin)
	f.events.Record(middleware.SecurityEvent{Kind: middleware.EventBlockedInput, IP: "203.0.113.9", Path: "/api/aih"})

	rec := f.do(http.MethodGet, "/api/admin/security-logs", "")
	logs := decode(t, rec)["logs"].([]interface{})
	if len(logs) != 1 || logs[0].(map[string]interface{})["ip"] != "203.0.113.9" {
		t.Errorf("unexpected logs %v", logs)
	}
}

func TestHandler_Backup(t *testing.T) {
	f := newFixture(t, auth.RoleAdmin)
	rec := f.do(http.MethodPost, "/api/admin/backup", "{}")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	path, _ := body["path"].(string)
	if body["message"] != "Backup criado com sucesso" || filepath.Dir(path) != f.dir {
		t.Errorf("unexpected response %v", body)
	}
}

func TestHandler_Download(t *testing.T) {
	f := newFixture(t, auth.RoleUser)
	rec := f.do(http.MethodGet, "/api/backup", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	want := `attachment; filename="backup-aih-2025-07-15.db"`
	if got := rec.Header().Get(echo.HeaderContentDisposition); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if !strings.HasPrefix(rec.Body.String(), "SQLite format 3") {
		t.Error("expected a SQLite database file")
	}
}
