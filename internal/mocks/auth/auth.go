package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.
// MemoryCredentialStore doubles as the "memory" store in dev bootstrap.

import (
	"context"
	"fmt"
	"sync"
	"time"

	domainauth "github.com/latamworkhub/workhub-auth/internal/domain/auth"
	"github.com/latamworkhub/workhub-auth/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.CredentialStore  = (*MemoryCredentialStore)(nil)
	_ ports.APIClient        = (*MockAPIClient)(nil)
	_ ports.IdentityProvider = (*MockIdentityProvider)(nil)
)

// MemoryCredentialStore keeps session artifacts in process memory. It
// honors the same absent/present semantics as the Redis and Postgres
// stores but ignores TTLs, which is fine for tests and dev mode.
type MemoryCredentialStore struct {
	mu         sync.Mutex
	identity   domainauth.Identity
	present    bool
	persistent bool

	// SaveErr/LoadErr/ClearErr force infrastructure failures when set.
	SaveErr  error
	LoadErr  error
	ClearErr error
}

// NewMemoryCredentialStore creates an empty in-memory store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{}
}

func (m *MemoryCredentialStore) Save(_ context.Context, identity domainauth.Identity, persistent bool) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identity = identity
	m.present = true
	m.persistent = persistent
	return nil
}

func (m *MemoryCredentialStore) Load(_ context.Context) (domainauth.Identity, bool, error) {
	if m.LoadErr != nil {
		return domainauth.Identity{}, false, m.LoadErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.present {
		return domainauth.Identity{}, false, nil
	}
	if m.identity.Validate() != nil {
		// Mirror the real stores: malformed artifacts read as absent.
		m.identity = domainauth.Identity{}
		m.present = false
		return domainauth.Identity{}, false, nil
	}
	return m.identity, true, nil
}

func (m *MemoryCredentialStore) Clear(_ context.Context) error {
	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identity = domainauth.Identity{}
	m.present = false
	m.persistent = false
	return nil
}

// Persistent reports whether the last Save asked for the long TTL.
func (m *MemoryCredentialStore) Persistent() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.persistent
}

// MockAPIClient simulates the Work Hub API with overridable behavior.
// Unset Func fields fall back to deterministic canned responses.
type MockAPIClient struct {
	LoginWithPasswordFunc     func(ctx context.Context, email, password string) (ports.LoginResponse, error)
	RegisterFunc              func(ctx context.Context, email, password string) (ports.RegisterResponse, error)
	ExchangeProviderTokenFunc func(ctx context.Context, providerToken string) (ports.LoginResponse, error)
	RefreshTokenFunc          func(ctx context.Context, refreshToken string) (ports.TokenResponse, error)
	RequestPasswordResetFunc  func(ctx context.Context, email string) error

	// DefaultRole shapes the canned login responses. Empty means CLIENTE.
	DefaultRole string

	mu           sync.Mutex
	refreshCalls int
}

// NewMockAPIClient creates a MockAPIClient with sensible defaults.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

func (m *MockAPIClient) role() string {
	if m.DefaultRole != "" {
		return m.DefaultRole
	}
	return string(domainauth.RoleCliente)
}

func (m *MockAPIClient) LoginWithPassword(ctx context.Context, email, password string) (ports.LoginResponse, error) {
	if m.LoginWithPasswordFunc != nil {
		return m.LoginWithPasswordFunc(ctx, email, password)
	}
	return ports.LoginResponse{
		ID:           "mock-user-1",
		Email:        email,
		DisplayName:  "Mock User",
		Role:         m.role(),
		AccessToken:  "mock-access-token",
		RefreshToken: "mock-refresh-token",
		ExpiresIn:    int64(time.Hour / time.Second),
	}, nil
}

func (m *MockAPIClient) Register(ctx context.Context, email, password string) (ports.RegisterResponse, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, email, password)
	}
	return ports.RegisterResponse{
		ConfirmationID: "mock-confirmation-1",
		Email:          email,
	}, nil
}

func (m *MockAPIClient) ExchangeProviderToken(ctx context.Context, providerToken string) (ports.LoginResponse, error) {
	if m.ExchangeProviderTokenFunc != nil {
		return m.ExchangeProviderTokenFunc(ctx, providerToken)
	}
	return ports.LoginResponse{
		ID:           "mock-sso-user-1",
		Email:        "sso.user@example.com",
		DisplayName:  "SSO User",
		Role:         m.role(),
		AccessToken:  "mock-exchanged-access-token",
		RefreshToken: "mock-exchanged-refresh-token",
		ExpiresIn:    int64(time.Hour / time.Second),
	}, nil
}

func (m *MockAPIClient) RefreshToken(ctx context.Context, refreshToken string) (ports.TokenResponse, error) {
	if m.RefreshTokenFunc != nil {
		return m.RefreshTokenFunc(ctx, refreshToken)
	}
	m.mu.Lock()
	m.refreshCalls++
	n := m.refreshCalls
	m.mu.Unlock()
	return ports.TokenResponse{
		AccessToken:  fmt.Sprintf("mock-access-token-%d", n),
		RefreshToken: "",
		ExpiresIn:    int64(time.Hour / time.Second),
	}, nil
}

func (m *MockAPIClient) RequestPasswordReset(ctx context.Context, email string) error {
	if m.RequestPasswordResetFunc != nil {
		return m.RequestPasswordResetFunc(ctx, email)
	}
	return nil
}

// RefreshCalls reports how many canned refreshes ran.
func (m *MockAPIClient) RefreshCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshCalls
}

// MockIdentityProvider simulates an SSO provider SDK.
type MockIdentityProvider struct {
	SignInFunc  func(ctx context.Context) (string, error)
	SignOutFunc func(ctx context.Context) error

	// Token is returned by the canned SignIn. Empty means a default.
	Token string

	mu          sync.Mutex
	signInCalls int
	signedOut   bool
}

func (m *MockIdentityProvider) SignIn(ctx context.Context) (string, error) {
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx)
	}
	m.mu.Lock()
	m.signInCalls++
	m.signedOut = false
	m.mu.Unlock()
	if m.Token != "" {
		return m.Token, nil
	}
	return "mock-provider-token", nil
}

func (m *MockIdentityProvider) SignOut(ctx context.Context) error {
	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx)
	}
	m.mu.Lock()
	m.signedOut = true
	m.mu.Unlock()
	return nil
}

// SignInCalls reports how many canned sign-ins ran.
func (m *MockIdentityProvider) SignInCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signInCalls
}

// SignedOut reports whether the last canned call was a sign-out.
func (m *MockIdentityProvider) SignedOut() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signedOut
}
