package auth

// Package auth contains domain-level types for the Work Hub session core.
// It is pure and free of framework/adapter concerns.

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Role is the application's closed authorization enumeration.
// Keep string form for easy persistence and wire encoding.
// DEFAULT marks a principal who authenticated but has not yet chosen
// a business role.
type Role string

const (
	RoleDefault   Role = "DEFAULT"
	RoleCliente   Role = "CLIENTE"
	RoleProveedor Role = "PROVEEDOR"
	RoleAdmin     Role = "ADMIN"
)

// ParseRole normalizes a stored or wire role value. Historical payloads
// carried lowercase values; parsing is case-insensitive and uppercase is
// the canonical form.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleDefault, RoleCliente, RoleProveedor, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Identity represents the authenticated principal.
// Adapters map backend responses into this shape.
type Identity struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name,omitempty"`
	Role         Role      `json:"role"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Validate rejects partial identities. An Identity missing any of id,
// email, role, or access token must never be stored or published.
func (i Identity) Validate() error {
	var missing []string
	if i.ID == "" {
		missing = append(missing, "id")
	}
	if i.Email == "" {
		missing = append(missing, "email")
	}
	if i.Role == "" {
		missing = append(missing, "role")
	}
	if i.AccessToken == "" {
		missing = append(missing, "access_token")
	}
	if len(missing) > 0 {
		return fmt.Errorf("incomplete identity: missing %s", strings.Join(missing, ", "))
	}
	if _, err := ParseRole(string(i.Role)); err != nil {
		return errors.New("incomplete identity: invalid role")
	}
	return nil
}

// Expired reports whether the access token expiry has passed.
// A zero ExpiresAt means the backend did not communicate an expiry and
// the identity is treated as non-expiring locally.
func (i Identity) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}

// WithTokens returns a copy with only the token fields and expiry
// replaced. All other fields are preserved verbatim, which is the only
// partial update the session lifecycle allows.
func (i Identity) WithTokens(accessToken, refreshToken string, expiresAt time.Time) Identity {
	out := i
	out.AccessToken = accessToken
	out.RefreshToken = refreshToken
	out.ExpiresAt = expiresAt
	return out
}

// HasChosenRole reports whether the principal picked a business role.
func (i Identity) HasChosenRole() bool { return i.Role != RoleDefault }

// IsAdmin reports whether the principal holds the admin role.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }
