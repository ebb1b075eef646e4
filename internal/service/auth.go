package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domainauth "github.com/latamworkhub/workhub-auth/internal/domain/auth"
	apperrors "github.com/latamworkhub/workhub-auth/internal/errors"
	"github.com/latamworkhub/workhub-auth/internal/observability/statsd"
	"github.com/latamworkhub/workhub-auth/internal/ports"
	"github.com/latamworkhub/workhub-auth/internal/session"
)

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	API      ports.APIClient
	Provider ports.IdentityProvider // optional; provider login is disabled when nil
	Store    ports.CredentialStore
	State    *session.State
	Publish  session.Publisher

	// RefreshMargin is how long before expiry tokens are renewed.
	// Defaults to DefaultRefreshMargin.
	RefreshMargin time.Duration

	Logger  *slog.Logger
	Metrics statsd.Sink // optional

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// AuthService is the authentication gateway: the single writer of the
// session state. It orchestrates every identity-establishing flow and
// owns the refresh scheduler.
//
// Login and registration calls in flight are not cancellable, and a
// second concurrent login while one is pending is a caller error; the
// UI layer is expected to disable the trigger while loading.
type AuthService struct {
	api      ports.APIClient
	provider ports.IdentityProvider
	store    ports.CredentialStore
	state    *session.State
	publish  session.Publisher
	refresh  *RefreshScheduler
	logger   *slog.Logger
	metrics  statsd.Sink
	now      func() time.Time

	// persistent remembers the "remember me" choice of the current
	// session so token-only refresh writes keep the same TTL class.
	persistentMu sync.Mutex
	persistent   bool
}

// NewAuthService constructs the gateway. Call Hydrate right after to
// restore a persisted session before the first navigation happens.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &AuthService{
		api:      opts.API,
		provider: opts.Provider,
		store:    opts.Store,
		state:    opts.State,
		publish:  opts.Publish,
		logger:   logger,
		metrics:  opts.Metrics,
		now:      now,
	}
	s.refresh = NewRefreshScheduler(RefreshSchedulerOptions{
		Margin: opts.RefreshMargin,
		Fire:   s.handleRefresh,
		Logger: logger,
		Now:    now,
	})
	return s
}

// Hydrate restores the session state from the credential store so the
// UI does not flicker between unauthenticated and authenticated before
// the first network round-trip. Expired or invalid stored identities
// are cleared, never published.
func (s *AuthService) Hydrate(ctx context.Context) error {
	identity, ok, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("hydrate session: %w", err)
	}
	if !ok {
		return nil
	}

	now := s.now()
	if identity.Expired(now) || tokenExpiredAt(identity.AccessToken, now) {
		s.logger.InfoContext(ctx, "stored session expired, clearing")
		if clearErr := s.store.Clear(ctx); clearErr != nil {
			return fmt.Errorf("clear expired session: %w", clearErr)
		}
		return nil
	}

	s.setPersistent(true) // it survived a restart, so it was a persistent save
	s.publish.Set(&identity)
	s.scheduleRefresh(identity)
	s.logger.InfoContext(ctx, "session hydrated", "user_id", identity.ID, "role", identity.Role)
	return nil
}

// LoginWithPassword authenticates against the backend with credentials.
// On success the identity is persisted (honoring remember), published,
// and a refresh is scheduled. Failures leave the session untouched.
func (s *AuthService) LoginWithPassword(ctx context.Context, email, password string, remember bool) (*domainauth.Identity, error) {
	if email == "" {
		return nil, apperrors.ValidationField("email", "email is required")
	}
	if password == "" {
		return nil, apperrors.ValidationField("password", "password is required")
	}

	resp, err := s.api.LoginWithPassword(ctx, email, password)
	if err != nil {
		s.count("auth.login", map[string]string{"method": "password", "result": "error"})
		return nil, err
	}

	identity, err := identityFromLogin(resp, s.now())
	if err != nil {
		s.count("auth.login", map[string]string{"method": "password", "result": "rejected"})
		return nil, err
	}

	if err := s.establish(ctx, identity, remember); err != nil {
		return nil, err
	}
	s.count("auth.login", map[string]string{"method": "password", "result": "ok"})
	return &identity, nil
}

// LoginWithProvider delegates to the identity provider and exchanges the
// provider token for an application identity. Any pre-existing session
// is cleared before the attempt so state from a previous principal can
// never leak into the new one; on failure the session stays cleared.
func (s *AuthService) LoginWithProvider(ctx context.Context) (*domainauth.Identity, error) {
	if s.provider == nil {
		return nil, apperrors.Provider("identity provider not configured")
	}

	s.clearLocal(ctx)

	providerToken, err := s.provider.SignIn(ctx)
	if err != nil {
		s.count("auth.login", map[string]string{"method": "provider", "result": "provider_error"})
		return nil, apperrors.Wrap(err, apperrors.ErrCodeProvider, "provider sign-in")
	}

	resp, err := s.api.ExchangeProviderToken(ctx, providerToken)
	if err != nil {
		s.count("auth.login", map[string]string{"method": "provider", "result": "exchange_error"})
		return nil, apperrors.Wrap(err, apperrors.ErrCodeBackendRejected, "exchange provider token")
	}

	identity, err := identityFromLogin(resp, s.now())
	if err != nil {
		s.count("auth.login", map[string]string{"method": "provider", "result": "rejected"})
		return nil, err
	}

	if err := s.establish(ctx, identity, true); err != nil {
		return nil, err
	}
	s.count("auth.login", map[string]string{"method": "provider", "result": "ok"})
	return &identity, nil
}

// Register creates a new account. Registration and authentication are
// distinct operations: no session is established here.
func (s *AuthService) Register(ctx context.Context, email, password string) (*ports.RegisterResponse, error) {
	if email == "" {
		return nil, apperrors.ValidationField("email", "email is required")
	}
	if password == "" {
		return nil, apperrors.ValidationField("password", "password is required")
	}

	resp, err := s.api.Register(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// RequestPasswordReset asks the backend to start a reset flow.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	if email == "" {
		return apperrors.ValidationField("email", "email is required")
	}
	return s.api.RequestPasswordReset(ctx, email)
}

// Logout tears the session down. Provider revocation is best-effort;
// local clearing is unconditional, so Logout always succeeds from the
// caller's perspective. Logging out when already logged out is a no-op.
func (s *AuthService) Logout(ctx context.Context) error {
	s.refresh.Cancel()

	if s.provider != nil {
		if err := s.provider.SignOut(ctx); err != nil {
			s.logger.WarnContext(ctx, "provider sign-out failed", "error", err)
		}
	}

	s.clearLocal(ctx)
	s.count("auth.logout", nil)
	return nil
}

// IsAuthenticated reports whether a session exists, covering the window
// between process start and store-to-state hydration.
func (s *AuthService) IsAuthenticated(ctx context.Context) bool {
	if s.state.Current() != nil {
		return true
	}
	identity, ok, err := s.store.Load(ctx)
	return err == nil && ok && identity.AccessToken != ""
}

// State exposes the read half of the session state for observers.
func (s *AuthService) State() *session.State { return s.state }

// Refresh exposes the scheduler, mainly for shutdown and tests.
func (s *AuthService) Refresh() *RefreshScheduler { return s.refresh }

// establish persists the identity, publishes it, and schedules refresh,
// in that order: a failed save must not leave observers believing a
// session exists.
func (s *AuthService) establish(ctx context.Context, identity domainauth.Identity, persistent bool) error {
	if err := s.store.Save(ctx, identity, persistent); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "persist session")
	}
	s.setPersistent(persistent)
	s.publish.Set(&identity)
	s.scheduleRefresh(identity)
	return nil
}

// handleRefresh is the scheduler callback: renew tokens with the stored
// refresh token, patching only token fields, or tear the session down on
// any failure. A single failed refresh is terminal for that session.
func (s *AuthService) handleRefresh(ctx context.Context) {
	current := s.state.Current()
	if current == nil || current.RefreshToken == "" {
		s.count("auth.refresh", map[string]string{"result": "no_session"})
		return
	}

	resp, err := s.api.RefreshToken(ctx, current.RefreshToken)
	if err != nil || resp.AccessToken == "" {
		if err == nil {
			err = apperrors.RefreshFailed("backend returned no access token")
		}
		s.logger.WarnContext(ctx, "token refresh failed, logging out", "error", err)
		s.count("auth.refresh", map[string]string{"result": "failed"})
		if logoutErr := s.Logout(ctx); logoutErr != nil {
			s.logger.ErrorContext(ctx, "logout after refresh failure", "error", logoutErr)
		}
		return
	}

	refreshToken := resp.RefreshToken
	if refreshToken == "" {
		refreshToken = current.RefreshToken
	}
	expiresAt := expiryFromSeconds(resp.ExpiresIn, s.now())
	updated := current.WithTokens(resp.AccessToken, refreshToken, expiresAt)

	if saveErr := s.store.Save(ctx, updated, s.isPersistent()); saveErr != nil {
		s.logger.WarnContext(ctx, "persist refreshed tokens failed, logging out", "error", saveErr)
		s.count("auth.refresh", map[string]string{"result": "failed"})
		if logoutErr := s.Logout(ctx); logoutErr != nil {
			s.logger.ErrorContext(ctx, "logout after refresh failure", "error", logoutErr)
		}
		return
	}

	s.publish.Set(&updated)
	s.scheduleRefresh(updated)
	s.count("auth.refresh", map[string]string{"result": "ok"})
	s.logger.InfoContext(ctx, "access token refreshed", "user_id", updated.ID)
}

// clearLocal clears store and state without touching the provider.
// Store failures are logged, not propagated: state clearing must happen
// regardless.
func (s *AuthService) clearLocal(ctx context.Context) {
	s.refresh.Cancel()
	if err := s.store.Clear(ctx); err != nil {
		s.logger.WarnContext(ctx, "clear credential store failed", "error", err)
	}
	s.publish.Clear()
	s.setPersistent(false)
}

// scheduleRefresh arms the timer for the given identity. An identity
// without refresh material still cancels any previously armed timer so
// a prior session's refresh can never fire against this one.
func (s *AuthService) scheduleRefresh(identity domainauth.Identity) {
	if identity.RefreshToken == "" || identity.ExpiresAt.IsZero() {
		s.refresh.Cancel()
		return
	}
	s.refresh.Schedule(identity.ExpiresAt)
}

func (s *AuthService) setPersistent(v bool) {
	s.persistentMu.Lock()
	s.persistent = v
	s.persistentMu.Unlock()
}

func (s *AuthService) isPersistent() bool {
	s.persistentMu.Lock()
	defer s.persistentMu.Unlock()
	return s.persistent
}

func (s *AuthService) count(name string, tags map[string]string) {
	if s.metrics != nil {
		s.metrics.Count(name, 1, tags)
	}
}

// identityFromLogin validates a backend response at the boundary and
// fails fast with BackendRejected when any required field is missing,
// so a partially populated identity can never be published.
func identityFromLogin(resp ports.LoginResponse, now time.Time) (domainauth.Identity, error) {
	role, roleErr := domainauth.ParseRole(resp.Role)
	if resp.Role != "" && roleErr != nil {
		return domainauth.Identity{}, apperrors.Wrap(roleErr, apperrors.ErrCodeBackendRejected, "incomplete login response")
	}

	identity := domainauth.Identity{
		ID:           resp.ID,
		Email:        resp.Email,
		DisplayName:  resp.DisplayName,
		Role:         role,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    expiryFromSeconds(resp.ExpiresIn, now),
	}
	if err := identity.Validate(); err != nil {
		return domainauth.Identity{}, apperrors.Wrap(err, apperrors.ErrCodeBackendRejected, "incomplete login response")
	}
	return identity, nil
}

func expiryFromSeconds(seconds int64, now time.Time) time.Time {
	if seconds <= 0 {
		return time.Time{}
	}
	return now.Add(time.Duration(seconds) * time.Second)
}

// tokenExpiredAt reports whether a stored JWT access token is already
// past its exp claim. Opaque tokens parse with an error and are not
// rejected here; the backend is the validation authority.
func tokenExpiredAt(raw string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return now.After(exp.Time)
}
