package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newRoleContext(roles ...string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithIdentity(req.Context(), 1, "x", roles))
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRequireRole_Allowed(t *testing.T) {
	c, rec := newRoleContext(RoleUser)
	err := RequireRole(RoleUser)(okHandler)(c)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequireRole_AnyOf(t *testing.T) {
	c, _ := newRoleContext(RoleAdmin)
	if err := RequireRole(RoleUser, RoleAdmin)(okHandler)(c); err != nil {
		t.Errorf("expected admin to pass an any-of check, got %v", err)
	}
}

func TestRequireRole_AdminDoesNotBypass(t *testing.T) {
	c, _ := newRoleContext(RoleAdmin)
	err := RequireRole(RoleUser)(okHandler)(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestRequireAdmin_Denied(t *testing.T) {
	c, _ := newRoleContext(RoleUser)
	err := RequireAdmin()(okHandler)(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
	if httpErr.Message != "Acesso negado - apenas administradores" {
		t.Errorf("unexpected message %v", httpErr.Message)
	}
}

func TestRequireRole_NoIdentity(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if err := RequireRole(RoleUser)(okHandler)(c); err == nil {
		t.Error("expected 403 without identity")
	}
}
