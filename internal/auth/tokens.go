// Package auth issues and verifies the bearer credentials shared by the HTTP
// API and the realtime channel handshake.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleSupervisor = "supervisor"
	RoleOperator   = "operator"
)

const DefaultTokenTTL = 7 * 24 * time.Hour

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrInvalidRole  = errors.New("invalid role")
)

type Claims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func ValidRole(role string) bool {
	return role == RoleSupervisor || role == RoleOperator
}

// SignUserToken mints an HS256 token binding a user identity and role for ttl.
func SignUserToken(secret []byte, userID string, role string, ttl time.Duration) (string, error) {
	if !ValidRole(role) {
		return "", ErrInvalidRole
	}
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// VerifyUserToken validates signature and expiry and returns the claims.
// Only HS256 is accepted.
func VerifyUserToken(secret []byte, raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	if claims.UserID == "" || !ValidRole(claims.Role) {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
