package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/aihaudit/aih/internal/platform/apperr"
	"github.com/aihaudit/aih/internal/platform/auth"
)

type mockRepo struct {
	users  map[int64]*credential
	regs   map[int64]string
	admins map[int64]*credential
	access []string
	nextID int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		users:  make(map[int64]*credential),
		regs:   make(map[int64]string),
		admins: make(map[int64]*credential),
	}
}

func (m *mockRepo) find(set map[int64]*credential, name string) *credential {
	for _, c := range set {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (m *mockRepo) UserByName(_ context.Context, name string) (*credential, error) {
	return m.find(m.users, name), nil
}

func (m *mockRepo) UserByID(_ context.Context, id int64) (*credential, error) {
	return m.users[id], nil
}

func (m *mockRepo) AdminByUsername(_ context.Context, username string) (*credential, error) {
	return m.find(m.admins, username), nil
}

func (m *mockRepo) ListUsers(_ context.Context) ([]*User, error) {
	var out []*User
	for id, c := range m.users {
		reg := m.regs[id]
		out = append(out, &User{ID: id, Name: c.Name, Registration: &reg})
	}
	return out, nil
}

func (m *mockRepo) UserTaken(_ context.Context, name, registration string) (bool, error) {
	for id, c := range m.users {
		if c.Name == name || m.regs[id] == registration {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepo) CreateUser(_ context.Context, u *User, hash string) error {
	m.nextID++
	u.ID = m.nextID
	m.users[u.ID] = &credential{ID: u.ID, Name: u.Name, Hash: hash}
	m.regs[u.ID] = *u.Registration
	return nil
}

func (m *mockRepo) DeleteUser(_ context.Context, id int64) (bool, error) {
	if _, ok := m.users[id]; !ok {
		return false, nil
	}
	delete(m.users, id)
	return true, nil
}

func (m *mockRepo) CreateAdmin(_ context.Context, username, hash string) (int64, error) {
	m.nextID++
	m.admins[m.nextID] = &credential{ID: m.nextID, Name: username, Hash: hash}
	return m.nextID, nil
}

func (m *mockRepo) UpdateAdminPassword(_ context.Context, id int64, hash string) (bool, error) {
	c, ok := m.admins[id]
	if !ok {
		return false, nil
	}
	c.Hash = hash
	return true, nil
}

func (m *mockRepo) RecordAccess(_ context.Context, userID int64, action string) error {
	m.access = append(m.access, action)
	return nil
}

const testSecret = "identity-test-secret-identity-test"

func newTestService() (*Service, *mockRepo, *auth.ReauthStore) {
	repo := newMockRepo()
	reauth := auth.NewReauthStore(time.Minute)
	tokens := auth.NewTokenIssuer([]byte(testSecret), "aih", time.Hour)
	return NewService(repo, auth.NewHasher(bcrypt.MinCost), tokens, reauth, zerolog.Nop()), repo, reauth
}

func createUser(t *testing.T, svc *Service, name string) *CreatedUser {
	t.Helper()
	u, err := svc.CreateUser(context.Background(), UserInput{Name: name, Registration: name + "-1", Password: "segredo1"})
	if err != nil {
		t.Fatalf("CreateUser(%q) error: %v", name, err)
	}
	return u
}

func TestService_LoginIssuesOperatorToken(t *testing.T) {
	svc, _, _ := newTestService()
	u := createUser(t, svc, "maria")

	res, err := svc.Login(context.Background(), LoginInput{Name: "maria", Password: "segredo1"})
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if res.User.ID != u.ID || res.User.Name != "maria" {
		t.Errorf("unexpected user %+v", res.User)
	}

	claims := &auth.Claims{}
	_, err = jwt.ParseWithClaims(res.Token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	if err != nil {
		t.Fatalf("token does not verify: %v", err)
	}
	if claims.Nome != "maria" || len(claims.Roles) != 1 || claims.Roles[0] != auth.RoleUser {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestService_LoginFailures(t *testing.T) {
	svc, _, _ := newTestService()
	createUser(t, svc, "maria")

	tests := []struct {
		name   string
		in     LoginInput
		status int
		msg    string
	}{
		{"blank", LoginInput{Name: " ", Password: "x"}, 400, "Nome e senha são obrigatórios"},
		{"unknown user", LoginInput{Name: "joao", Password: "segredo1"}, 401, "Usuário não encontrado"},
		{"wrong password", LoginInput{Name: "maria", Password: "errada"}, 401, "Senha incorreta"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tt.in)
			if apperr.Status(err) != tt.status || err.Error() != tt.msg {
				t.Errorf("expected %d %q, got %d %v", tt.status, tt.msg, apperr.Status(err), err)
			}
		})
	}
}

func TestService_AdminLoginAfterEnsureDefault(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	created, err := svc.EnsureDefaultAdmin(ctx, "admin")
	if err != nil || !created {
		t.Fatalf("EnsureDefaultAdmin() = %v, %v", created, err)
	}
	if created, _ = svc.EnsureDefaultAdmin(ctx, "admin"); created {
		t.Error("expected second call to keep the existing account")
	}
	if len(repo.admins) != 1 {
		t.Errorf("expected one admin, got %d", len(repo.admins))
	}

	res, err := svc.AdminLogin(ctx, AdminLoginInput{Username: "admin", Password: "admin"})
	if err != nil {
		t.Fatalf("AdminLogin() error: %v", err)
	}
	if res.Admin.Username != "admin" || res.Token == "" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestService_CreateUserRules(t *testing.T) {
	svc, _, _ := newTestService()
	createUser(t, svc, "maria")
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, UserInput{Name: "outra", Registration: "maria-1", Password: "segredo1"})
	var ce *apperr.ConflictError
	if !errors.As(err, &ce) {
		t.Errorf("expected conflict on duplicate registration, got %v", err)
	}

	_, err = svc.CreateUser(ctx, UserInput{Name: "joao", Registration: "j1", Password: "123"})
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) || ve.Error() != auth.ErrPasswordTooShort.Error() {
		t.Errorf("expected short password error, got %v", err)
	}
}

func TestService_DeleteUser(t *testing.T) {
	svc, _, _ := newTestService()
	u := createUser(t, svc, "maria")
	ctx := context.Background()

	if err := svc.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("DeleteUser() error: %v", err)
	}
	var nf *apperr.NotFoundError
	if err := svc.DeleteUser(ctx, u.ID); !errors.As(err, &nf) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestService_ChangeAdminPassword(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	svc.EnsureDefaultAdmin(ctx, "admin")
	var adminID int64
	for id := range repo.admins {
		adminID = id
	}

	if err := svc.ChangeAdminPassword(ctx, adminID, PasswordChange{NewPassword: "abc"}); apperr.Status(err) != 400 {
		t.Errorf("expected 400 for a short password, got %v", err)
	}
	if err := svc.ChangeAdminPassword(ctx, adminID, PasswordChange{NewPassword: "nova-senha"}); err != nil {
		t.Fatalf("ChangeAdminPassword() error: %v", err)
	}
	if _, err := svc.AdminLogin(ctx, AdminLoginInput{Username: "admin", Password: "nova-senha"}); err != nil {
		t.Errorf("expected the new password to work, got %v", err)
	}
}

func TestService_ValidatePasswordGrantsReauth(t *testing.T) {
	svc, _, reauth := newTestService()
	u := createUser(t, svc, "maria")
	ctx := context.Background()

	tests := []struct {
		name   string
		userID int64
		pass   string
		status int
	}{
		{"blank", u.ID, "", 400},
		{"missing user", 999, "segredo1", 404},
		{"wrong", u.ID, "errada", 401},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.ValidatePassword(ctx, tt.userID, PasswordCheck{Password: tt.pass})
			if apperr.Status(err) != tt.status {
				t.Errorf("expected %d, got %v", tt.status, err)
			}
		})
	}
	if reauth.Consume(u.ID) {
		t.Fatal("failed checks must not grant")
	}

	if err := svc.ValidatePassword(ctx, u.ID, PasswordCheck{Password: "segredo1"}); err != nil {
		t.Fatalf("ValidatePassword() error: %v", err)
	}
	if !reauth.Consume(u.ID) {
		t.Error("expected a grant after a correct password")
	}
}
