package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aihaudit/aih/internal/platform/apperr"
	"github.com/aihaudit/aih/internal/platform/auth"
	"github.com/aihaudit/aih/internal/platform/db"
	"github.com/aihaudit/aih/internal/platform/middleware"
)

// PasswordHasher hashes new passwords and checks presented ones.
type PasswordHasher interface {
	Hash(password string) (string, error)
	HashInitial(password string) (string, error)
	Check(hash, password string) bool
}

// TokenIssuer signs bearer tokens.
type TokenIssuer interface {
	Issue(id int64, nome, role string) (string, error)
}

// Granter records a successful password re-validation.
type Granter interface {
	Grant(userID int64)
}

type Service struct {
	repo   Repository
	hasher PasswordHasher
	tokens TokenIssuer
	reauth Granter
	logger zerolog.Logger
}

func NewService(repo Repository, hasher PasswordHasher, tokens TokenIssuer, reauth Granter, logger zerolog.Logger) *Service {
	return &Service{repo: repo, hasher: hasher, tokens: tokens, reauth: reauth, logger: logger}
}

// Login authenticates an operator and issues a token with the operator role.
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || in.Password == "" {
		return nil, apperr.NewValidation("Nome e senha são obrigatórios")
	}
	c, err := s.repo.UserByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.Unauthorized("Usuário não encontrado")
	}
	if !s.hasher.Check(c.Hash, in.Password) {
		s.logger.Warn().Str("nome", name).Msg("login rejected: wrong password")
		return nil, apperr.Unauthorized("Senha incorreta")
	}
	token, err := s.tokens.Issue(c.ID, c.Name, auth.RoleUser)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	s.logger.Info().Int64("user_id", c.ID).Msg("login")
	return &LoginResult{Token: token, User: &UserSummary{ID: c.ID, Name: c.Name}}, nil
}

// AdminLogin authenticates an administrator.
func (s *Service) AdminLogin(ctx context.Context, in AdminLoginInput) (*AdminLoginResult, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return nil, apperr.NewValidation("Usuário e senha são obrigatórios")
	}
	c, err := s.repo.AdminByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.Unauthorized("Usuário não encontrado")
	}
	if !s.hasher.Check(c.Hash, in.Password) {
		s.logger.Warn().Str("usuario", username).Msg("admin login rejected: wrong password")
		return nil, apperr.Unauthorized("Senha incorreta")
	}
	token, err := s.tokens.Issue(c.ID, c.Name, auth.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	s.logger.Info().Int64("admin_id", c.ID).Msg("admin login")
	return &AdminLoginResult{Token: token, Admin: &Admin{ID: c.ID, Username: c.Name}}, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]*User, error) {
	return s.repo.ListUsers(ctx)
}

// CreateUser registers an operator. Name and registration number are both
// unique.
func (s *Service) CreateUser(ctx context.Context, in UserInput) (*CreatedUser, error) {
	name := middleware.SanitizeString(in.Name)
	registration := middleware.SanitizeString(in.Registration)
	if name == "" || registration == "" || in.Password == "" {
		return nil, apperr.NewValidation("Nome, matrícula e senha são obrigatórios")
	}
	taken, err := s.repo.UserTaken(ctx, name, registration)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("Usuário ou matrícula já existe")
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	u := &User{Name: name, Registration: &registration}
	if err := s.repo.CreateUser(ctx, u, hash); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperr.Conflict("Usuário ou matrícula já existe")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info().Int64("user_id", u.ID).Str("nome", name).Msg("user created")
	return &CreatedUser{ID: u.ID, Name: name, Registration: registration}, nil
}

// DeleteUser removes an operator. Operators referenced by AIHs or movements
// cannot be removed.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	ok, err := s.repo.DeleteUser(ctx, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return apperr.Conflict("Usuário possui registros vinculados e não pode ser excluído")
		}
		return err
	}
	if !ok {
		return apperr.NotFound("Usuário não encontrado")
	}
	s.logger.Info().Int64("user_id", id).Msg("user deleted")
	return nil
}

// ChangeAdminPassword replaces the password of the administrator adminID.
func (s *Service) ChangeAdminPassword(ctx context.Context, adminID int64, in PasswordChange) error {
	if in.NewPassword == "" {
		return apperr.NewValidation("Nova senha é obrigatória")
	}
	hash, err := s.hash(in.NewPassword)
	if err != nil {
		return err
	}
	ok, err := s.repo.UpdateAdminPassword(ctx, adminID, hash)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("Administrador não encontrado")
	}
	s.logger.Info().Int64("admin_id", adminID).Msg("admin password changed")
	return nil
}

// ValidatePassword re-checks the operator's password and, when it matches,
// grants one destructive operation within the re-validation window.
func (s *Service) ValidatePassword(ctx context.Context, userID int64, in PasswordCheck) error {
	if in.Password == "" {
		return apperr.NewValidation("Senha é obrigatória")
	}
	c, err := s.repo.UserByID(ctx, userID)
	if err != nil {
		return err
	}
	if c == nil {
		return apperr.NotFound("Usuário não encontrado")
	}
	if !s.hasher.Check(c.Hash, in.Password) {
		return apperr.Unauthorized("Senha incorreta")
	}
	s.reauth.Grant(userID)
	return nil
}

// EnsureDefaultAdmin creates the default administrator when it is missing.
// It reports whether an account was created.
func (s *Service) EnsureDefaultAdmin(ctx context.Context, password string) (bool, error) {
	c, err := s.repo.AdminByUsername(ctx, DefaultAdmin)
	if err != nil {
		return false, err
	}
	if c != nil {
		return false, nil
	}
	if password == "" {
		return false, errors.New("default admin password is not configured")
	}
	hash, err := s.hasher.HashInitial(password)
	if err != nil {
		return false, err
	}
	if _, err := s.repo.CreateAdmin(ctx, DefaultAdmin, hash); err != nil {
		return false, fmt.Errorf("create default admin: %w", err)
	}
	s.logger.Warn().Str("usuario", DefaultAdmin).Msg("default administrator created")
	return true, nil
}

func (s *Service) hash(password string) (string, error) {
	hash, err := s.hasher.Hash(password)
	if errors.Is(err, auth.ErrPasswordTooShort) {
		return "", apperr.NewValidation(err.Error())
	}
	return hash, err
}
