package admin

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"mydaylogs/internal/models"
	"mydaylogs/internal/secrets"
	"mydaylogs/internal/session"
)

var ErrUnauthorized = errors.New("master admin authorization required")

// Identity is the resolved master-admin caller.
type Identity struct {
	Email  string `json:"email"`
	Method string `json:"method"` // "password" | "profile"
}

type ProfileSource interface {
	GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error)
}

// Authorizer is the single place master-admin access is decided; handlers
// never compare credentials themselves.
type Authorizer struct {
	MasterPassword string
	JWTSecret      string
	Profiles       ProfileSource
}

// RequireMasterAdmin accepts either the fixed master password header or a
// session token whose profile carries a master role.
func (a *Authorizer) RequireMasterAdmin(r *http.Request) (*Identity, error) {
	if pw := r.Header.Get("X-Admin-Password"); pw != "" && a.MasterPassword != "" {
		if secrets.VerifyPassword(a.MasterPassword, pw) {
			return &Identity{Email: "master-admin", Method: "password"}, nil
		}
		return nil, ErrUnauthorized
	}

	const p = "Bearer "
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, p) {
		return nil, ErrUnauthorized
	}
	claims, err := session.Parse(a.JWTSecret, strings.TrimPrefix(auth, p))
	if err != nil {
		return nil, ErrUnauthorized
	}
	profile, err := a.Profiles.GetProfileByEmail(r.Context(), claims.Email)
	if err != nil {
		return nil, ErrUnauthorized
	}
	if profile.Role != models.RoleMasterAdmin && profile.Role != models.RoleSuperuser {
		return nil, ErrUnauthorized
	}
	return &Identity{Email: profile.Email, Method: "profile"}, nil
}
