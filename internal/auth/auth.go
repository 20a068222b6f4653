// Package auth validates agent credentials presented in auth frames.
//
// Two credential forms are accepted: the raw shared secret, and a signed
// HS256 token minted from that secret (via `a2a-relay token`) whose
// subject pins the token to one agent identity. Signed tokens let an
// operator hand out expiring per-agent credentials without rotating the
// shared secret.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any credential that fails validation.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the signed agent token claims.
type Claims struct {
	jwt.RegisteredClaims
}

// Service validates credentials against the relay's shared secret.
type Service struct {
	secret []byte
}

// NewService creates an auth service for the given shared secret.
func NewService(secret string) *Service {
	return &Service{secret: []byte(secret)}
}

// VerifyCredential checks the credential an agent presented for agentID.
// The raw shared secret is always accepted. Anything that looks like a
// signed token is verified against the secret and must name agentID as
// its subject.
func (s *Service) VerifyCredential(credential, agentID string) error {
	if subtle.ConstantTimeCompare([]byte(credential), s.secret) == 1 {
		return nil
	}

	// JWTs are three dot-separated base64 segments; anything else is
	// just a wrong secret.
	if strings.Count(credential, ".") != 2 {
		return ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	if claims.Subject != agentID {
		return ErrInvalidToken
	}
	return nil
}

// MintAgentToken issues a signed token for agentID, valid for lifetime.
func (s *Service) MintAgentToken(agentID string, lifetime time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   agentID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
