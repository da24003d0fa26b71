package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted for new credentials.
const MinPasswordLength = 6

// ErrPasswordTooShort is returned by HashPassword for short passwords.
var ErrPasswordTooShort = errors.New("Senha deve ter pelo menos 6 caracteres")

// Hasher hashes and checks passwords with bcrypt at a fixed cost.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher. Costs outside bcrypt's range use the default.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns the bcrypt hash of password.
func (h *Hasher) Hash(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	return h.HashInitial(password)
}

// HashInitial hashes a bootstrap password, such as the seeded administrator
// password, without the minimum length rule.
func (h *Hasher) HashInitial(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Check reports whether password matches hash.
func (h *Hasher) Check(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
