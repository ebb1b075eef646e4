// Package pgstore provides a Postgres-backed credential store for
// deployments that already run the Work Hub database and don't want a
// separate Redis for session artifacts.
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domainauth "github.com/latamworkhub/workhub-auth/internal/domain/auth"
	apperrors "github.com/latamworkhub/workhub-auth/internal/errors"
)

const (
	defaultScope       = "workhub"
	defaultRememberTTL = 7 * 24 * time.Hour
	defaultSessionTTL  = 12 * time.Hour

	identityKey     = "identity"
	accessTokenKey  = "access_token"
	refreshTokenKey = "refresh_token"
)

// CredentialStore persists session artifacts in a key/value table with a
// per-row expiry column. Rows past their expiry are treated as absent.
type CredentialStore struct {
	db          *sql.DB
	scope       string
	rememberTTL time.Duration
	sessionTTL  time.Duration
	now         func() time.Time
}

// Options configures a CredentialStore. Scope isolates artifacts of one
// logical session (e.g., one browser agent) from another.
type Options struct {
	Scope       string
	RememberTTL time.Duration
	SessionTTL  time.Duration

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// NewCredentialStore creates a Postgres-backed credential store.
func NewCredentialStore(db *sql.DB, opts Options) *CredentialStore {
	scope := opts.Scope
	if scope == "" {
		scope = defaultScope
	}
	rememberTTL := opts.RememberTTL
	if rememberTTL <= 0 {
		rememberTTL = defaultRememberTTL
	}
	sessionTTL := opts.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &CredentialStore{
		db:          db,
		scope:       scope,
		rememberTTL: rememberTTL,
		sessionTTL:  sessionTTL,
		now:         now,
	}
}

// EnsureSchema creates the backing table when it does not exist yet.
func (s *CredentialStore) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS session_artifacts (
			scope      TEXT        NOT NULL,
			key        TEXT        NOT NULL,
			value      TEXT        NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (scope, key)
		)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

// Save upserts the identity payload and token entries in one transaction.
func (s *CredentialStore) Save(ctx context.Context, identity domainauth.Identity, persistent bool) error {
	if err := identity.Validate(); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}

	payload, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}

	ttl := s.sessionTTL
	if persistent {
		ttl = s.rememberTTL
	}
	expiresAt := s.now().Add(ttl)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.MapDBError(err)
	}
	defer func() { _ = tx.Rollback() }()

	const upsert = `
		INSERT INTO session_artifacts (scope, key, value, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (scope, key) DO UPDATE
		SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`

	entries := map[string]string{
		identityKey:    string(payload),
		accessTokenKey: identity.AccessToken,
	}
	for key, value := range entries {
		if _, execErr := tx.ExecContext(ctx, upsert, s.scope, key, value, expiresAt); execErr != nil {
			return apperrors.MapDBError(execErr)
		}
	}
	if identity.RefreshToken != "" {
		if _, execErr := tx.ExecContext(ctx, upsert, s.scope, refreshTokenKey, identity.RefreshToken, expiresAt); execErr != nil {
			return apperrors.MapDBError(execErr)
		}
	} else {
		const del = `DELETE FROM session_artifacts WHERE scope = $1 AND key = $2`
		if _, execErr := tx.ExecContext(ctx, del, s.scope, refreshTokenKey); execErr != nil {
			return apperrors.MapDBError(execErr)
		}
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return apperrors.MapDBError(commitErr)
	}
	return nil
}

// Load reassembles an Identity from the live rows. Missing required keys
// yield absent; malformed payloads clear the store and yield absent.
func (s *CredentialStore) Load(ctx context.Context) (domainauth.Identity, bool, error) {
	const query = `
		SELECT key, value FROM session_artifacts
		WHERE scope = $1 AND expires_at > $2`

	rows, err := s.db.QueryContext(ctx, query, s.scope, s.now())
	if err != nil {
		return domainauth.Identity{}, false, apperrors.MapDBError(err)
	}
	defer rows.Close()

	values := make(map[string]string, 3)
	for rows.Next() {
		var key, value string
		if scanErr := rows.Scan(&key, &value); scanErr != nil {
			return domainauth.Identity{}, false, apperrors.MapDBError(scanErr)
		}
		values[key] = value
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return domainauth.Identity{}, false, apperrors.MapDBError(rowsErr)
	}

	payload, hasIdentity := values[identityKey]
	accessToken, hasToken := values[accessTokenKey]
	if !hasIdentity && !hasToken {
		return domainauth.Identity{}, false, nil
	}
	if !hasIdentity || !hasToken {
		return s.clearAsAbsent(ctx)
	}

	var identity domainauth.Identity
	if unmarshalErr := json.Unmarshal([]byte(payload), &identity); unmarshalErr != nil {
		return s.clearAsAbsent(ctx)
	}
	identity.AccessToken = accessToken
	if refresh, ok := values[refreshTokenKey]; ok {
		identity.RefreshToken = refresh
	}

	if validateErr := identity.Validate(); validateErr != nil {
		return s.clearAsAbsent(ctx)
	}
	return identity, true, nil
}

// Clear removes all artifacts for this scope, expired or not. Idempotent.
func (s *CredentialStore) Clear(ctx context.Context) error {
	const del = `DELETE FROM session_artifacts WHERE scope = $1`
	if _, err := s.db.ExecContext(ctx, del, s.scope); err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

func (s *CredentialStore) clearAsAbsent(ctx context.Context) (domainauth.Identity, bool, error) {
	if err := s.Clear(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return domainauth.Identity{}, false, fmt.Errorf("cleanup malformed credentials: %w", err)
	}
	return domainauth.Identity{}, false, nil
}
