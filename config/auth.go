package config

import (
	"fmt"
	"strings"
)

// AuthMode represents the identity-provider mode for the application.
type AuthMode string

const (
	// AuthModeOAuth uses an OAuth/OIDC identity provider.
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeMock uses the local dev identity provider.
	AuthModeMock AuthMode = "mock"
	// AuthModeNone disables provider login; password login still works.
	AuthModeNone AuthMode = "none"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "oauth", "mock", "none":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oauth, mock, none)", v)
	}
}

// OAuthConfig contains OAuth/OIDC identity-provider configuration.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"     envDefault:"workhub"`
	ClientSecret string `env:"CLIENT_SECRET" envDefault:""`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
	RevokeURL    string `env:"REVOKE_URL"`
}

// DevAuthConfig controls the mock identity provider, used when
// AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	TokenPrefix string `env:"TOKEN_PREFIX" envDefault:"dev"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which identity provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"none"`

	OAuth   OAuthConfig   `envPrefix:"OAUTH_"`
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`
}
