package gateway

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/joao-fontenele/foodflow/internal/httpx"
	"github.com/joao-fontenele/foodflow/internal/identity"
)

// Claims are the token fields the gateway trusts: sub is the user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 bearer tokens and rewrites the request with
// the forwarded identity headers.
type Authenticator struct {
	secret []byte
	logger *slog.Logger
}

func NewAuthenticator(secret string, logger *slog.Logger) *Authenticator {
	return &Authenticator{secret: []byte(secret), logger: logger}
}

// Require returns middleware that rejects requests without a valid token
// and, when roles are given, requests whose role is not among them.
// Client-supplied identity headers are always discarded.
func (a *Authenticator) Require(roles ...identity.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Header.Del(identity.HeaderUserID)
			r.Header.Del(identity.HeaderRole)

			id, err := a.authenticate(r)
			if err != nil {
				a.logger.Warn("rejected request", "error", err, "path", r.URL.Path)
				httpx.WriteError(w, a.logger, http.StatusUnauthorized, httpx.CodeUnauthorized, "invalid or missing bearer token")
				return
			}
			if len(roles) > 0 && !id.HasRole(roles...) {
				httpx.WriteError(w, a.logger, http.StatusForbidden, httpx.CodeForbidden, "insufficient role")
				return
			}

			id.Apply(r.Header)
			next.ServeHTTP(w, r)
		})
	}
}

func (a *Authenticator) authenticate(r *http.Request) (identity.Identity, error) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return identity.Identity{}, errors.New("missing bearer token")
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return identity.Identity{}, fmt.Errorf("parse token: %w", err)
	}

	if claims.Subject == "" {
		return identity.Identity{}, errors.New("token has no subject")
	}

	role := identity.Role(claims.Role)
	switch role {
	case "":
		role = identity.RoleCustomer
	case identity.RoleCustomer, identity.RoleRestaurant, identity.RoleAdmin:
	default:
		return identity.Identity{}, fmt.Errorf("unknown role %q", claims.Role)
	}

	return identity.Identity{UserID: claims.Subject, Role: role}, nil
}
