package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer signs HS256 bearer tokens for authenticated accounts.
type TokenIssuer struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates a TokenIssuer. A zero ttl means 24 hours.
func NewTokenIssuer(key []byte, issuer string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{key: key, issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue returns a signed token for account id with the given display name
// and role.
func (ti *TokenIssuer) Issue(id int64, nome, role string) (string, error) {
	if len(ti.key) == 0 {
		return "", errors.New("token signing key is not configured")
	}
	now := ti.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id, 10),
			Issuer:    ti.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
		},
		Nome:  nome,
		Roles: []string{role},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.key)
}

// Config returns the middleware configuration that verifies tokens from ti
// and lets public paths through.
func (ti *TokenIssuer) Config() JWTConfig {
	return JWTConfig{Issuer: ti.issuer, SigningKey: ti.key, Skipper: AuthSkipper}
}
