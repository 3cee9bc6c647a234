package auth

import (
	"strings"

	"github.com/angelmondragon/assetinventory-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	TenantID uuid.UUID
	Subject  string
	Username string
	Roles    []enums.Role
}

// RealmAccess mirrors the identity provider's realm role block.
type RealmAccess struct {
	Roles []string `json:"roles"`
}

// AccessTokenClaims represents the typed JWT presented by clients.
type AccessTokenClaims struct {
	TenantID          uuid.UUID   `json:"tenant_id"`
	PreferredUsername string      `json:"preferred_username,omitempty"`
	RealmAccess       RealmAccess `json:"realm_access"`
	jwt.RegisteredClaims
}

// Roles returns the recognised realm roles; unknown entries are dropped.
func (c *AccessTokenClaims) Roles() []enums.Role {
	out := make([]enums.Role, 0, len(c.RealmAccess.Roles))
	for _, raw := range c.RealmAccess.Roles {
		if role, err := enums.ParseRole(strings.TrimSpace(raw)); err == nil {
			out = append(out, role)
		}
	}
	return out
}

// Principal names the caller for audit columns.
func (c *AccessTokenClaims) Principal() string {
	if name := strings.TrimSpace(c.PreferredUsername); name != "" {
		return name
	}
	return c.Subject
}
