package identity

import (
	"time"
)

// DefaultAdmin is the administrator account ensured at startup.
const DefaultAdmin = "admin"

// User is an operator account. Operators run the audit workflow.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"nome"`
	Registration *string   `json:"matricula"`
	CreatedAt    time.Time `json:"criado_em"`
}

// Admin is an administrator account. Administrators manage operators and
// read the audit logs; they do not run the workflow.
type Admin struct {
	ID       int64  `json:"id"`
	Username string `json:"usuario"`
}

// credential is an account with its password hash.
type credential struct {
	ID   int64
	Name string
	Hash string
}

type LoginInput struct {
	Name     string `json:"nome" validate:"max=100"`
	Password string `json:"senha" validate:"max=72"`
}

type AdminLoginInput struct {
	Username string `json:"usuario" validate:"max=100"`
	Password string `json:"senha" validate:"max=72"`
}

// UserSummary is the account part of a login response.
type UserSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"nome"`
}

type LoginResult struct {
	Token string       `json:"token"`
	User  *UserSummary `json:"usuario"`
}

type AdminLoginResult struct {
	Token string `json:"token"`
	Admin *Admin `json:"admin"`
}

// UserInput is the body of POST /api/admin/usuarios.
type UserInput struct {
	Name         string `json:"nome" validate:"required,max=100"`
	Registration string `json:"matricula" validate:"required,max=50"`
	Password     string `json:"senha" validate:"required"`
}

// CreatedUser is the response body of a user registration.
type CreatedUser struct {
	ID           int64  `json:"id"`
	Name         string `json:"nome"`
	Registration string `json:"matricula"`
}

type PasswordChange struct {
	NewPassword string `json:"novaSenha"`
}

type PasswordCheck struct {
	Password string `json:"senha"`
}
