package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/latamworkhub/workhub-auth/config"
	"github.com/latamworkhub/workhub-auth/internal/adapters/apiclient"
	"github.com/latamworkhub/workhub-auth/internal/adapters/devauth"
	"github.com/latamworkhub/workhub-auth/internal/adapters/oidc"
	"github.com/latamworkhub/workhub-auth/internal/adapters/pgstore"
	"github.com/latamworkhub/workhub-auth/internal/adapters/redisstore"
	mocksauth "github.com/latamworkhub/workhub-auth/internal/mocks/auth"
	"github.com/latamworkhub/workhub-auth/internal/observability/statsd"
	"github.com/latamworkhub/workhub-auth/internal/ports"
	"github.com/latamworkhub/workhub-auth/internal/service"
	"github.com/latamworkhub/workhub-auth/internal/session"
)

// AuthDeps groups dependencies for building the auth gateway.
type AuthDeps struct {
	Config      *config.AppConfig
	RedisClient redis.UniversalClient // required for the redis store kind
	DB          *sql.DB               // required for the postgres store kind
	Logger      *slog.Logger
	Metrics     statsd.Sink
}

// BuildAuthService wires the authentication gateway from configuration:
// credential store by kind, identity provider by mode, API client, and
// the session state with its single publisher.
func BuildAuthService(ctx context.Context, deps AuthDeps) (*service.AuthService, *session.State, error) {
	cfg := deps.Config

	var httpClient *http.Client
	if cfg.API.Timeout > 0 {
		httpClient = &http.Client{Timeout: cfg.API.Timeout}
	}
	api, err := apiclient.NewClient(apiclient.Config{BaseURL: cfg.API.BaseURL, HTTPClient: httpClient})
	if err != nil {
		return nil, nil, fmt.Errorf("build api client: %w", err)
	}

	store, err := buildCredentialStore(ctx, deps)
	if err != nil {
		return nil, nil, err
	}

	provider, err := buildIdentityProvider(deps)
	if err != nil {
		return nil, nil, err
	}

	state, publish := session.New()
	svc := service.NewAuthService(service.AuthServiceOptions{
		API:           api,
		Provider:      provider,
		Store:         store,
		State:         state,
		Publish:       publish,
		RefreshMargin: cfg.Session.RefreshMargin,
		Logger:        deps.Logger,
		Metrics:       deps.Metrics,
	})
	return svc, state, nil
}

func buildCredentialStore(ctx context.Context, deps AuthDeps) (ports.CredentialStore, error) {
	cfg := deps.Config
	switch cfg.Store.Kind {
	case config.StoreKindRedis:
		if deps.RedisClient == nil {
			return nil, fmt.Errorf("store kind %q requires a redis client", cfg.Store.Kind)
		}
		return redisstore.NewCredentialStore(deps.RedisClient, redisstore.Options{
			Prefix:      cfg.Store.KeyPrefix,
			RememberTTL: cfg.Session.RememberTTL,
			SessionTTL:  cfg.Session.SessionTTL,
		}), nil

	case config.StoreKindPostgres:
		if deps.DB == nil {
			return nil, fmt.Errorf("store kind %q requires a database connection", cfg.Store.Kind)
		}
		store := pgstore.NewCredentialStore(deps.DB, pgstore.Options{
			Scope:       cfg.Store.Scope,
			RememberTTL: cfg.Session.RememberTTL,
			SessionTTL:  cfg.Session.SessionTTL,
		})
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure session schema: %w", err)
		}
		return store, nil

	case config.StoreKindMemory:
		// Dev/test only: sessions do not survive a restart.
		if deps.Logger != nil {
			deps.Logger.Warn("using in-memory credential store; sessions will not survive restarts")
		}
		return mocksauth.NewMemoryCredentialStore(), nil

	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.Store.Kind)
	}
}

func buildIdentityProvider(deps AuthDeps) (ports.IdentityProvider, error) {
	cfg := deps.Config
	switch cfg.Auth.Mode {
	case config.AuthModeOAuth:
		oauth := cfg.Auth.OAuth
		if oauth.DiscoveryURL == "" || oauth.ClientID == "" || oauth.ClientSecret == "" {
			return nil, fmt.Errorf("auth mode %q requires OAUTH_DISCOVERY_URL, OAUTH_CLIENT_ID, OAUTH_CLIENT_SECRET", cfg.Auth.Mode)
		}
		prov, err := oidc.NewProvider(oidc.ProviderConfig{
			ClientID:     oauth.ClientID,
			ClientSecret: oauth.ClientSecret,
			Scope:        oauth.Scope,
			DiscoveryURL: oauth.DiscoveryURL,
			RevokeURL:    oauth.RevokeURL,
		})
		if err != nil {
			return nil, fmt.Errorf("build oidc provider: %w", err)
		}
		return prov, nil

	case config.AuthModeMock:
		return devauth.NewProvider(devauth.Config{TokenPrefix: cfg.Auth.DevAuth.TokenPrefix}), nil

	case config.AuthModeNone:
		// Password login only.
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Auth.Mode)
	}
}

// BuildMetrics configures the StatsD sink, or returns nil when disabled.
func BuildMetrics(cfg config.ObservabilityConfig, logger *slog.Logger) *statsd.Client {
	if !cfg.Metrics.IsEnabled() {
		return nil
	}
	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.Metrics.StatsdAddress,
		Prefix:  cfg.Metrics.Prefix,
		Logger:  logger,
	})
	if err != nil {
		if logger != nil {
			logger.Error("failed to initialise statsd client", "error", err)
		}
		return nil
	}
	return client
}
