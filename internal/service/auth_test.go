package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/latamworkhub/workhub-auth/internal/domain/auth"
	apperrors "github.com/latamworkhub/workhub-auth/internal/errors"
	mocksauth "github.com/latamworkhub/workhub-auth/internal/mocks/auth"
	"github.com/latamworkhub/workhub-auth/internal/ports"
	"github.com/latamworkhub/workhub-auth/internal/session"
)

type gatewayFixture struct {
	svc      *AuthService
	state    *session.State
	store    *mocksauth.MemoryCredentialStore
	api      *mocksauth.MockAPIClient
	provider *mocksauth.MockIdentityProvider
}

func newGatewayFixture(t *testing.T, mutate func(*AuthServiceOptions)) *gatewayFixture {
	t.Helper()

	store := mocksauth.NewMemoryCredentialStore()
	api := mocksauth.NewMockAPIClient()
	provider := &mocksauth.MockIdentityProvider{}
	state, publish := session.New()

	opts := AuthServiceOptions{
		API:      api,
		Provider: provider,
		Store:    store,
		State:    state,
		Publish:  publish,
	}
	if mutate != nil {
		mutate(&opts)
	}

	return &gatewayFixture{
		svc:      NewAuthService(opts),
		state:    state,
		store:    store,
		api:      api,
		provider: provider,
	}
}

func storedIdentity(t *testing.T, store *mocksauth.MemoryCredentialStore) (domainauth.Identity, bool) {
	t.Helper()
	identity, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	return identity, ok
}

func TestLoginWithPassword_Success(t *testing.T) {
	f := newGatewayFixture(t, nil)
	ctx := context.Background()

	identity, err := f.svc.LoginWithPassword(ctx, "user@example.com", "secret", true)
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, "mock-user-1", identity.ID)
	assert.Equal(t, domainauth.RoleCliente, identity.Role)

	current := f.state.Current()
	require.NotNil(t, current, "login must publish the identity")
	assert.Equal(t, identity.ID, current.ID)

	saved, ok := storedIdentity(t, f.store)
	require.True(t, ok, "login must persist the identity")
	assert.Equal(t, identity.AccessToken, saved.AccessToken)
	assert.True(t, f.store.Persistent(), "remember=true saves with the long TTL")

	assert.True(t, f.svc.Refresh().Pending(), "a refresh must be scheduled")
}

func TestLoginWithPassword_SessionSave(t *testing.T) {
	f := newGatewayFixture(t, nil)

	_, err := f.svc.LoginWithPassword(context.Background(), "user@example.com", "secret", false)
	require.NoError(t, err)
	assert.False(t, f.store.Persistent(), "remember=false saves with the short TTL")
}

func TestLoginWithPassword_TokenlessResponseCancelsPriorTimer(t *testing.T) {
	f := newGatewayFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.LoginWithPassword(ctx, "first@example.com", "secret", false)
	require.NoError(t, err)
	require.True(t, f.svc.Refresh().Pending())

	// The second principal's backend response carries no refresh token.
	// The first session's timer must not survive into the new session.
	f.api.LoginWithPasswordFunc = func(context.Context, string, string) (ports.LoginResponse, error) {
		return ports.LoginResponse{
			ID:          "mock-user-2",
			Email:       "second@example.com",
			Role:        "CLIENTE",
			AccessToken: "second-access-token",
			ExpiresIn:   3600,
		}, nil
	}
	identity, err := f.svc.LoginWithPassword(ctx, "second@example.com", "secret", false)
	require.NoError(t, err)
	assert.Equal(t, "mock-user-2", identity.ID)
	assert.False(t, f.svc.Refresh().Pending())
}

func TestLoginWithPassword_ExpirylessResponseCancelsPriorTimer(t *testing.T) {
	f := newGatewayFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.LoginWithPassword(ctx, "first@example.com", "secret", false)
	require.NoError(t, err)
	require.True(t, f.svc.Refresh().Pending())

	// A refresh token without a known expiry gives the scheduler no fire
	// time, so the stale timer is cancelled rather than left armed.
	f.api.LoginWithPasswordFunc = func(context.Context, string, string) (ports.LoginResponse, error) {
		return ports.LoginResponse{
			ID:           "mock-user-2",
			Email:        "second@example.com",
			Role:         "CLIENTE",
			AccessToken:  "second-access-token",
			RefreshToken: "second-refresh-token",
		}, nil
	}
	_, err = f.svc.LoginWithPassword(ctx, "second@example.com", "secret", false)
	require.NoError(t, err)
	assert.False(t, f.svc.Refresh().Pending())
}

func TestLoginWithPassword_Validation(t *testing.T) {
	f := newGatewayFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.LoginWithPassword(ctx, "", "secret", false)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "email", apperrors.GetField(err))

	_, err = f.svc.LoginWithPassword(ctx, "user@example.com", "", false)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "password", apperrors.GetField(err))

	assert.Nil(t, f.state.Current())
}

func TestLoginWithPassword_BackendFailureLeavesSessionUntouched(t *testing.T) {
	f := newGatewayFixture(t, nil)
	ctx := context.Background()

	// Establish a session first, then fail a second attempt.
	_, err := f.svc.LoginWithPassword(ctx, "first@example.com", "secret", true)
	require.NoError(t, err)

	f.api.LoginWithPasswordFunc = func(context.Context, string, string) (ports.LoginResponse, error) {
		return ports.LoginResponse{}, apperrors.Unauthorized("bad credentials")
	}

	_, err = f.svc.LoginWithPassword(ctx, "second@example.com", "wrong", true)
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))

	current := f.state.Current()
	require.NotNil(t, current, "a failed attempt must not tear down the existing session")
	assert.Equal(t, "first@example.com", current.Email)
}

func TestLoginWithPassword_IncompleteResponseRejected(t *testing.T) {
	f := newGatewayFixture(t, nil)

	f.api.LoginWithPasswordFunc = func(context.Context, string, string) (ports.LoginResponse, error) {
		return ports.LoginResponse{ID: "u1", Email: "u@example.com", Role: "CLIENTE"}, nil // no access token
	}

	_, err := f.svc.LoginWithPassword(context.Background(), "u@example.com", "secret", false)
	require.Error(t, err)
	assert.True(t, apperrors.IsBackendRejected(err))
	assert.Nil(t, f.state.Current())
	_, ok := storedIdentity(t, f.store)
	assert.False(t, ok)
}

func TestLoginWithPassword_UnknownRoleRejected(t *testing.T) {
	f := newGatewayFixture(t, nil)

	f.api.LoginWithPasswordFunc = func(context.Context, string, string) (ports.LoginResponse, error) {
		return ports.LoginResponse{
			ID: "u1", Email: "u@example.com", Role: "SUPERUSER", AccessToken: "tok",
		}, nil
	}

	_, err := f.svc.LoginWithPassword(context.Background(), "u@example.com", "secret", false)
	require.Error(t, err)
	assert.True(t, apperrors.IsBackendRejected(err))
}

func TestLoginWithProvider_Success(t *testing.T) {
	f := newGatewayFixture(t, nil)

	identity, err := f.svc.LoginWithProvider(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "mock-sso-user-1", identity.ID)
	assert.True(t, f.store.Persistent(), "provider sessions save with the long TTL")
	require.NotNil(t, f.state.Current())
}

func TestLoginWithProvider_ClearsPreviousSessionFirst(t *testing.T) {
	f := newGatewayFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.LoginWithPassword(ctx, "old@example.com", "secret", true)
	require.NoError(t, err)

	var observedDuringSignIn *domainauth.Identity
	f.provider.SignInFunc = func(context.Context) (string, error) {
		observedDuringSignIn = f.state.Current()
		return "provider-token", nil
	}

	_, err = f.svc.LoginWithProvider(ctx)
	require.NoError(t, err)
	assert.Nil(t, observedDuringSignIn, "old session must be cleared before the provider flow starts")
}

func TestLoginWithProvider_SignInFailureLeavesSessionCleared(t *testing.T) {
	f := newGatewayFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.LoginWithPassword(ctx, "old@example.com", "secret", true)
	require.NoError(t, err)

	f.provider.SignInFunc = func(context.Context) (string, error) {
		return "", apperrors.Provider("user closed the popup")
	}

	_, err = f.svc.LoginWithProvider(ctx)
	require.Error(t, err)
	assert.True(t, apperrors.IsProvider(err))

	assert.Nil(t, f.state.Current(), "failed provider login ends signed out, not rolled back")
	_, ok := storedIdentity(t, f.store)
	assert.False(t, ok)
}

func TestLoginWithProvider_ExchangeFailure(t *testing.T) {
	f := newGatewayFixture(t, nil)

	f.api.ExchangeProviderTokenFunc = func(context.Context, string) (ports.LoginResponse, error) {
		return ports.LoginResponse{}, apperrors.Unauthorized("token rejected")
	}

	_, err := f.svc.LoginWithProvider(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsBackendRejected(err))
	assert.Nil(t, f.state.Current())
}

func TestLoginWithProvider_NotConfigured(t *testing.T) {
	f := newGatewayFixture(t, func(opts *AuthServiceOptions) {
		opts.Provider = nil
	})

	_, err := f.svc.LoginWithProvider(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsProvider(err))
}

func TestRegister_DoesNotEstablishSession(t *testing.T) {
	f := newGatewayFixture(t, nil)

	resp, err := f.svc.Register(context.Background(), "new@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "mock-confirmation-1", resp.ConfirmationID)

	assert.Nil(t, f.state.Current(), "registration must not log the user in")
	_, ok := storedIdentity(t, f.store)
	assert.False(t, ok)
}

func TestRegister_Validation(t *testing.T) {
	f := newGatewayFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "", "secret")
	assert.True(t, apperrors.IsValidation(err))

	_, err = f.svc.Register(ctx, "new@example.com", "")
	assert.True(t, apperrors.IsValidation(err))
}

func TestRequestPasswordReset_Validation(t *testing.T) {
	f := newGatewayFixture(t, nil)
	assert.True(t, apperrors.IsValidation(f.svc.RequestPasswordReset(context.Background(), "")))
	assert.NoError(t, f.svc.RequestPasswordReset(context.Background(), "user@example.com"))
}

func TestLogout(t *testing.T) {
	f := newGatewayFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.LoginWithPassword(ctx, "user@example.com", "secret", true)
	require.NoError(t, err)
	require.True(t, f.svc.Refresh().Pending())

	require.NoError(t, f.svc.Logout(ctx))

	assert.Nil(t, f.state.Current())
	_, ok := storedIdentity(t, f.store)
	assert.False(t, ok)
	assert.False(t, f.svc.Refresh().Pending(), "logout cancels the pending refresh")
	assert.True(t, f.provider.SignedOut())
}

func TestLogout_WhenLoggedOutIsNoOp(t *testing.T) {
	f := newGatewayFixture(t, nil)
	assert.NoError(t, f.svc.Logout(context.Background()))
	assert.NoError(t, f.svc.Logout(context.Background()))
}

func TestLogout_ProviderFailureStillSucceeds(t *testing.T) {
	f := newGatewayFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.LoginWithProvider(ctx)
	require.NoError(t, err)

	f.provider.SignOutFunc = func(context.Context) error {
		return apperrors.Provider("revocation endpoint down")
	}

	assert.NoError(t, f.svc.Logout(ctx), "local teardown must not depend on the provider")
	assert.Nil(t, f.state.Current())
}

func TestIsAuthenticated(t *testing.T) {
	f := newGatewayFixture(t, nil)
	ctx := context.Background()

	assert.False(t, f.svc.IsAuthenticated(ctx))

	_, err := f.svc.LoginWithPassword(ctx, "user@example.com", "secret", true)
	require.NoError(t, err)
	assert.True(t, f.svc.IsAuthenticated(ctx))

	require.NoError(t, f.svc.Logout(ctx))
	assert.False(t, f.svc.IsAuthenticated(ctx))
}

func TestIsAuthenticated_FallsBackToStore(t *testing.T) {
	// Simulate the window before hydration: the store has a session but
	// the state does not yet.
	f := newGatewayFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.store.Save(ctx, domainauth.Identity{
		ID: "u1", Email: "u@example.com", Role: domainauth.RoleCliente, AccessToken: "tok",
	}, true))

	assert.True(t, f.svc.IsAuthenticated(ctx))
}

func TestHydrate_Absent(t *testing.T) {
	f := newGatewayFixture(t, nil)
	require.NoError(t, f.svc.Hydrate(context.Background()))
	assert.Nil(t, f.state.Current())
}

func TestHydrate_RestoresStoredSession(t *testing.T) {
	f := newGatewayFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.store.Save(ctx, domainauth.Identity{
		ID: "u1", Email: "u@example.com", Role: domainauth.RoleProveedor,
		AccessToken: "opaque-token", RefreshToken: "rtok",
		ExpiresAt: time.Now().Add(time.Hour),
	}, true))

	require.NoError(t, f.svc.Hydrate(ctx))

	current := f.state.Current()
	require.NotNil(t, current)
	assert.Equal(t, "u1", current.ID)
	assert.Equal(t, domainauth.RoleProveedor, current.Role)
	assert.True(t, f.svc.Refresh().Pending(), "hydration schedules the next refresh")
}

func TestHydrate_ExpiredSessionIsCleared(t *testing.T) {
	f := newGatewayFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.store.Save(ctx, domainauth.Identity{
		ID: "u1", Email: "u@example.com", Role: domainauth.RoleCliente,
		AccessToken: "tok", ExpiresAt: time.Now().Add(-time.Minute),
	}, true))

	require.NoError(t, f.svc.Hydrate(ctx))

	assert.Nil(t, f.state.Current(), "expired sessions are never published")
	_, ok := storedIdentity(t, f.store)
	assert.False(t, ok, "expired sessions are cleared from the store")
}

func TestHydrate_ExpiredJWTIsCleared(t *testing.T) {
	f := newGatewayFixture(t, nil)
	ctx := context.Background()

	// Stored expiry looks fine but the token's own exp claim is past.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-key"))
	require.NoError(t, err)

	require.NoError(t, f.store.Save(ctx, domainauth.Identity{
		ID: "u1", Email: "u@example.com", Role: domainauth.RoleCliente,
		AccessToken: signed, ExpiresAt: time.Now().Add(time.Hour),
	}, true))

	require.NoError(t, f.svc.Hydrate(ctx))
	assert.Nil(t, f.state.Current())
}

func TestHandleRefresh_PatchesTokensOnly(t *testing.T) {
	f := newGatewayFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.LoginWithPassword(ctx, "user@example.com", "secret", true)
	require.NoError(t, err)
	before := f.state.Current()

	f.api.RefreshTokenFunc = func(_ context.Context, refreshToken string) (ports.TokenResponse, error) {
		assert.Equal(t, before.RefreshToken, refreshToken)
		return ports.TokenResponse{AccessToken: "renewed-access", ExpiresIn: 3600}, nil
	}

	f.svc.handleRefresh(ctx)

	after := f.state.Current()
	require.NotNil(t, after)
	assert.Equal(t, "renewed-access", after.AccessToken)
	assert.Equal(t, before.RefreshToken, after.RefreshToken, "empty refresh token keeps the previous one")
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, before.Email, after.Email)
	assert.Equal(t, before.Role, after.Role)

	saved, ok := storedIdentity(t, f.store)
	require.True(t, ok)
	assert.Equal(t, "renewed-access", saved.AccessToken)
	assert.True(t, f.store.Persistent(), "refresh keeps the original TTL class")
	assert.True(t, f.svc.Refresh().Pending(), "a successful refresh schedules the next one")
}

func TestHandleRefresh_FailureLogsOut(t *testing.T) {
	f := newGatewayFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.LoginWithPassword(ctx, "user@example.com", "secret", true)
	require.NoError(t, err)

	f.api.RefreshTokenFunc = func(context.Context, string) (ports.TokenResponse, error) {
		return ports.TokenResponse{}, apperrors.Unauthorized("refresh token revoked")
	}

	f.svc.handleRefresh(ctx)

	assert.Nil(t, f.state.Current(), "a single failed refresh tears the session down")
	_, ok := storedIdentity(t, f.store)
	assert.False(t, ok)
	assert.False(t, f.svc.Refresh().Pending())
}

func TestHandleRefresh_EmptyAccessTokenLogsOut(t *testing.T) {
	f := newGatewayFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.LoginWithPassword(ctx, "user@example.com", "secret", true)
	require.NoError(t, err)

	f.api.RefreshTokenFunc = func(context.Context, string) (ports.TokenResponse, error) {
		return ports.TokenResponse{}, nil
	}

	f.svc.handleRefresh(ctx)
	assert.Nil(t, f.state.Current())
}

func TestHandleRefresh_NoSessionIsNoOp(t *testing.T) {
	f := newGatewayFixture(t, nil)

	called := false
	f.api.RefreshTokenFunc = func(context.Context, string) (ports.TokenResponse, error) {
		called = true
		return ports.TokenResponse{}, nil
	}

	f.svc.handleRefresh(context.Background())
	assert.False(t, called, "no session means nothing to refresh")
}

func TestEstablish_SaveFailureDoesNotPublish(t *testing.T) {
	f := newGatewayFixture(t, nil)
	f.store.SaveErr = apperrors.Network("store down")

	_, err := f.svc.LoginWithPassword(context.Background(), "user@example.com", "secret", true)
	require.Error(t, err)
	assert.True(t, apperrors.IsInternal(err))
	assert.Nil(t, f.state.Current(), "observers must not see a session that was never persisted")
}
