// Package session validates the HS256 tokens the auth frontend issues.
// Issuance itself lives with the identity provider; this side only parses
// and checks.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"mydaylogs/internal/models"
)

var ErrInvalidToken = errors.New("invalid session token")

type Claims struct {
	ProfileID      string             `json:"sub"`
	Email          string             `json:"email"`
	OrganizationID string             `json:"org_id"`
	Role           models.ProfileRole `json:"role"`
	Exp            int64              `json:"exp"`
	Iat            int64              `json:"iat"`
}

func (c *Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.Exp, 0)), nil
}
func (c *Claims) GetIssuedAt() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.Iat, 0)), nil
}
func (c *Claims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }
func (c *Claims) GetIssuer() (string, error)              { return "", nil }
func (c *Claims) GetSubject() (string, error)             { return c.ProfileID, nil }
func (c *Claims) GetAudience() (jwt.ClaimStrings, error)  { return nil, nil }

// Parse validates signature, algorithm and expiry.
func Parse(secret, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}
	if time.Now().Unix() > claims.Exp {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Sign mints a token. Used by tests and support tooling (impersonation).
func Sign(secret string, claims *Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.Iat = now.Unix()
	claims.Exp = now.Add(ttl).Unix()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
