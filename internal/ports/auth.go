package ports

// Package ports defines interfaces (hexagonal ports) for the session core.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"

	domainauth "github.com/latamworkhub/workhub-auth/internal/domain/auth"
)

// CredentialStore persists session artifacts across restarts. Identity
// fields are written as separate keyed entries; persistent saves use the
// long-lived "remember me" TTL, session saves a short one.
type CredentialStore interface {
	// Save replaces any previously stored artifacts for this session.
	Save(ctx context.Context, identity domainauth.Identity, persistent bool) error

	// Load reassembles an Identity from the stored artifacts. The second
	// return is false when the minimum required keys are not all present.
	// Malformed stored data is treated as absent and clears the store;
	// Load reports infrastructure failures only.
	Load(ctx context.Context) (domainauth.Identity, bool, error)

	// Clear removes all session artifacts. Idempotent.
	Clear(ctx context.Context) error
}

// IdentityProvider is the third-party identity provider SDK boundary.
type IdentityProvider interface {
	// SignIn runs the provider flow and returns a provider-issued token
	// suitable for exchange against the backend.
	SignIn(ctx context.Context) (providerToken string, err error)

	// SignOut revokes the provider-side session, if any.
	SignOut(ctx context.Context) error
}

// LoginResponse is the backend's answer to a credential or exchange call.
// ExpiresIn is in seconds from issuance; zero means no known expiry.
type LoginResponse struct {
	ID           string
	Email        string
	DisplayName  string
	Role         string
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// TokenResponse carries replacement token material from a refresh call.
// An empty RefreshToken means the previous refresh token stays valid.
type TokenResponse struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// RegisterResponse confirms an account creation. Registration does not
// establish a session.
type RegisterResponse struct {
	ConfirmationID string
	Email          string
}

// APIClient talks to the remote Work Hub API. Implementations map
// transport and status failures into the internal/errors taxonomy.
type APIClient interface {
	LoginWithPassword(ctx context.Context, email, password string) (LoginResponse, error)
	Register(ctx context.Context, email, password string) (RegisterResponse, error)
	ExchangeProviderToken(ctx context.Context, providerToken string) (LoginResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (TokenResponse, error)
	RequestPasswordReset(ctx context.Context, email string) error
}
