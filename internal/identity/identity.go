// Package identity carries the caller identity that the gateway derives from
// a verified bearer token and forwards to the backing services as headers.
package identity

import (
	"net/http"
	"strings"
)

const (
	HeaderUserID = "X-User-ID"
	HeaderRole   = "X-User-Role"
)

type Role string

const (
	RoleCustomer   Role = "customer"
	RoleRestaurant Role = "restaurant"
	RoleAdmin      Role = "admin"
)

type Identity struct {
	UserID string
	Role   Role
}

// FromRequest reads the forwarded identity. A missing role defaults to
// customer; a missing user id means the request is unauthenticated.
func FromRequest(r *http.Request) (Identity, bool) {
	userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if userID == "" {
		return Identity{}, false
	}
	role := Role(strings.TrimSpace(r.Header.Get(HeaderRole)))
	if role == "" {
		role = RoleCustomer
	}
	return Identity{UserID: userID, Role: role}, true
}

// Apply writes the identity onto outgoing request headers.
func (i Identity) Apply(h http.Header) {
	h.Set(HeaderUserID, i.UserID)
	h.Set(HeaderRole, string(i.Role))
}

func (i Identity) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}
