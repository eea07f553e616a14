// Package auth implements the signed bearer-token service. Tokens are HS256
// JWTs binding a user id for a fixed six-day window; the server keeps no
// revocation state, so a token stays valid until it expires or fails
// signature verification.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domainerrors "taskplanner/internal/domain/errors"
)

const TokenTTL = 6 * 24 * time.Hour

// Claims carries the user identity inside the token. Email rides along for
// client convenience; verification trusts only the user id.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: TokenTTL}
}

// Issue signs a token for the given user, expiring ttl from now.
func (m *TokenManager) Issue(userID, email string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify parses and validates a token and returns the embedded user id.
// Expired tokens yield ErrExpiredToken; anything else that fails to parse or
// verify yields ErrMalformedToken.
func (m *TokenManager) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domainerrors.ErrMalformedToken
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", domainerrors.ErrExpiredToken
		}
		return "", domainerrors.ErrMalformedToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return "", domainerrors.ErrMalformedToken
	}

	return claims.UserID, nil
}
