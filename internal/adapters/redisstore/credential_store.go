// Package redisstore provides the Redis-backed credential store for
// production use. Session artifacts are written as separate keyed
// entries and expire through Redis TTLs.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/latamworkhub/workhub-auth/internal/domain/auth"
)

const (
	defaultPrefix      = "workhub:session:"
	defaultRememberTTL = 7 * 24 * time.Hour
	defaultSessionTTL  = 12 * time.Hour
	identityKeySuffix  = "identity"
	accessTokenSuffix  = "access_token"
	refreshTokenSuffix = "refresh_token"
)

// CredentialStore persists session artifacts in Redis.
type CredentialStore struct {
	client      redis.UniversalClient
	prefix      string
	rememberTTL time.Duration
	sessionTTL  time.Duration
}

// Options configures a CredentialStore. Zero values fall back to
// defaults (prefix "workhub:session:", 7d remember TTL, 12h session TTL).
type Options struct {
	Prefix      string
	RememberTTL time.Duration
	SessionTTL  time.Duration
}

// NewCredentialStore creates a Redis-backed credential store.
func NewCredentialStore(client redis.UniversalClient, opts Options) *CredentialStore {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	rememberTTL := opts.RememberTTL
	if rememberTTL <= 0 {
		rememberTTL = defaultRememberTTL
	}
	sessionTTL := opts.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}
	return &CredentialStore{
		client:      client,
		prefix:      prefix,
		rememberTTL: rememberTTL,
		sessionTTL:  sessionTTL,
	}
}

// Save writes the identity payload and token entries, overwriting any
// prior values. The TTL distinguishes "remember me" from session-only
// persistence.
func (s *CredentialStore) Save(ctx context.Context, identity domainauth.Identity, persistent bool) error {
	if err := identity.Validate(); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}

	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}

	ttl := s.sessionTTL
	if persistent {
		ttl = s.rememberTTL
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(identityKeySuffix), data, ttl)
	pipe.Set(ctx, s.key(accessTokenSuffix), identity.AccessToken, ttl)
	if identity.RefreshToken != "" {
		pipe.Set(ctx, s.key(refreshTokenSuffix), identity.RefreshToken, ttl)
	} else {
		pipe.Del(ctx, s.key(refreshTokenSuffix))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save: %w", err)
	}
	return nil
}

// Load reassembles an Identity from the stored entries. Missing required
// keys yield absent; malformed stored data is treated as absent and
// clears the whole store rather than surfacing an error.
func (s *CredentialStore) Load(ctx context.Context) (domainauth.Identity, bool, error) {
	payload, err := s.client.Get(ctx, s.key(identityKeySuffix)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.Identity{}, false, nil
		}
		return domainauth.Identity{}, false, fmt.Errorf("redis get identity: %w", err)
	}

	accessToken, err := s.client.Get(ctx, s.key(accessTokenSuffix)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Partial state: the identity payload outlived its token.
			return s.clearAsAbsent(ctx)
		}
		return domainauth.Identity{}, false, fmt.Errorf("redis get access token: %w", err)
	}

	var identity domainauth.Identity
	if unmarshalErr := json.Unmarshal([]byte(payload), &identity); unmarshalErr != nil {
		return s.clearAsAbsent(ctx)
	}

	// The separately keyed token entry is authoritative.
	identity.AccessToken = accessToken
	if refresh, refreshErr := s.client.Get(ctx, s.key(refreshTokenSuffix)).Result(); refreshErr == nil {
		identity.RefreshToken = refresh
	} else if !errors.Is(refreshErr, redis.Nil) {
		return domainauth.Identity{}, false, fmt.Errorf("redis get refresh token: %w", refreshErr)
	}

	if validateErr := identity.Validate(); validateErr != nil {
		return s.clearAsAbsent(ctx)
	}

	return identity, true, nil
}

// Clear removes all session artifacts unconditionally. Clearing an
// already-empty store is a no-op.
func (s *CredentialStore) Clear(ctx context.Context) error {
	keys := []string{
		s.key(identityKeySuffix),
		s.key(accessTokenSuffix),
		s.key(refreshTokenSuffix),
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis clear: %w", err)
	}
	return nil
}

func (s *CredentialStore) clearAsAbsent(ctx context.Context) (domainauth.Identity, bool, error) {
	if err := s.Clear(ctx); err != nil {
		return domainauth.Identity{}, false, fmt.Errorf("cleanup malformed credentials: %w", err)
	}
	return domainauth.Identity{}, false, nil
}

func (s *CredentialStore) key(suffix string) string {
	return s.prefix + suffix
}
