package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/aihaudit/aih/internal/platform/apperr"
	"github.com/aihaudit/aih/internal/platform/auth"
	"github.com/aihaudit/aih/internal/platform/db"
	"github.com/aihaudit/aih/internal/platform/db/dbtest"
)

func newSQLiteService(t *testing.T) (*Service, *db.Store, Repository) {
	t.Helper()
	store := dbtest.NewStore(t)
	repo := NewRepo(store)
	tokens := auth.NewTokenIssuer([]byte(testSecret), "aih", time.Hour)
	svc := NewService(repo, auth.NewHasher(bcrypt.MinCost), tokens, auth.NewReauthStore(0), zerolog.Nop())
	return svc, store, repo
}

func TestRepoSQLite_UserLifecycle(t *testing.T) {
	svc, _, _ := newSQLiteService(t)
	ctx := context.Background()

	u := createUser(t, svc, "maria")
	createUser(t, svc, "ana")

	users, err := svc.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers() error: %v", err)
	}
	if len(users) != 2 || users[0].Name != "ana" || users[1].Name != "maria" {
		t.Fatalf("expected users ordered by name, got %+v", users)
	}
	if users[1].Registration == nil || *users[1].Registration != "maria-1" {
		t.Errorf("unexpected registration %v", users[1].Registration)
	}

	if _, err := svc.Login(ctx, LoginInput{Name: "maria", Password: "segredo1"}); err != nil {
		t.Errorf("Login() error: %v", err)
	}
	if err := svc.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("DeleteUser() error: %v", err)
	}
	if _, err := svc.Login(ctx, LoginInput{Name: "maria", Password: "segredo1"}); apperr.Status(err) != 401 {
		t.Errorf("expected deleted user to be unknown, got %v", err)
	}
}

func TestRepoSQLite_DeleteReferencedUser(t *testing.T) {
	svc, store, _ := newSQLiteService(t)
	u := createUser(t, svc, "maria")
	dbtest.SeedAIH(t, store, "123", "10.00", "07/2025", u.ID)

	err := svc.DeleteUser(context.Background(), u.ID)
	var ce *apperr.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError for a referenced user, got %v", err)
	}
}

func TestRepoSQLite_DefaultAdminAndPasswordChange(t *testing.T) {
	svc, store, _ := newSQLiteService(t)
	ctx := context.Background()

	if _, err := svc.EnsureDefaultAdmin(ctx, "admin"); err != nil {
		t.Fatalf("EnsureDefaultAdmin() error: %v", err)
	}
	res, err := svc.AdminLogin(ctx, AdminLoginInput{Username: "admin", Password: "admin"})
	if err != nil {
		t.Fatalf("AdminLogin() error: %v", err)
	}
	if err := svc.ChangeAdminPassword(ctx, res.Admin.ID, PasswordChange{NewPassword: "trocada1"}); err != nil {
		t.Fatalf("ChangeAdminPassword() error: %v", err)
	}
	if _, err := svc.AdminLogin(ctx, AdminLoginInput{Username: "admin", Password: "admin"}); apperr.Status(err) != 401 {
		t.Errorf("expected old password to fail, got %v", err)
	}
	row, err := store.FetchOne(ctx, `SELECT ultima_alteracao FROM administradores WHERE id = ?`, res.Admin.ID)
	if err != nil {
		t.Fatalf("read admin: %v", err)
	}
	if row.Time("ultima_alteracao").IsZero() {
		t.Error("expected ultima_alteracao to be set")
	}
}

func TestRepoSQLite_RecordAccess(t *testing.T) {
	_, store, repo := newSQLiteService(t)
	ctx := context.Background()
	userID := dbtest.SeedUser(t, store, "maria")

	if err := repo.RecordAccess(ctx, userID, "Login"); err != nil {
		t.Fatalf("RecordAccess() error: %v", err)
	}
	row, err := store.FetchOne(ctx, `SELECT usuario_id, acao FROM logs_acesso`)
	if err != nil {
		t.Fatalf("read access log: %v", err)
	}
	if row.Int64("usuario_id") != userID || row.String("acao") != "Login" {
		t.Errorf("unexpected access row %v", row)
	}
}
