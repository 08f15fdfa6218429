package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/opsdesk-api/internal/config"
)

// ErrInvalidToken covers every reason a bearer token is refused
var ErrInvalidToken = errors.New("invalid token")

// Claims identify the session holder. The subject is the identity-provider
// user id; role and active flag are always read from the profile.
type Claims struct {
	jwt.RegisteredClaims
}

// Manager issues and verifies HS256 session tokens
type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewManager creates a token manager from config
func NewManager(cfg config.AuthConfig) *Manager {
	return &Manager{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		ttl:    cfg.TokenTTL,
	}
}

// Issue signs a token for authUserID valid from now for the configured TTL
func (m *Manager) Issue(authUserID string, now time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   authUserID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Parse verifies a token and returns its claims
func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}
