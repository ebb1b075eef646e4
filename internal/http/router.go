package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/latamworkhub/workhub-auth/internal/domain/auth"
	"github.com/latamworkhub/workhub-auth/internal/observability/statsd"
	"github.com/latamworkhub/workhub-auth/internal/session"
)

// RouterOptions groups dependencies for NewRouter.
type RouterOptions struct {
	Auth    AuthServiceInterface
	State   *session.State
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// Rules is the static route admission table. Paths not listed here are
// open; the auth endpoints themselves are never gated.
var Rules = []domainauth.Rule{
	{Path: "/admin/", RequiredRole: domainauth.RoleAdmin},
	{Path: "/client/", RequiredRole: domainauth.RoleCliente},
	{Path: "/provider/", RequiredRole: domainauth.RoleProveedor},
	{Path: "/select-role", RequiredRole: domainauth.RoleDefault},
}

// NewRouter builds the HTTP handler tree: auth endpoints, a health
// probe, and role-gated application prefixes.
func NewRouter(opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	handlers := &AuthHandlers{Svc: opts.Auth, Logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", handlers.Login)
	mux.HandleFunc("POST /auth/provider/login", handlers.ProviderLogin)
	mux.HandleFunc("POST /auth/register", handlers.Register)
	mux.HandleFunc("POST /auth/password-reset", handlers.PasswordReset)
	mux.HandleFunc("POST /auth/logout", handlers.Logout)

	// The session endpoint is gated by an empty rule: any authenticated
	// principal may read it, unauthenticated callers get the login
	// redirect decision.
	sessionRule := domainauth.Rule{Path: "/auth/session"}
	mux.Handle("GET /auth/session",
		Admission(opts.State, sessionRule, opts.Metrics)(http.HandlerFunc(handlers.Session)))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	for _, rule := range Rules {
		guarded := Admission(opts.State, rule, opts.Metrics)(placeholderHandler(rule))
		mux.Handle(rule.Path, guarded)
	}

	var handler http.Handler = mux
	handler = Logging(logger)(handler)
	handler = RequestID()(handler)
	handler = Recover(logger)(handler)
	return handler
}

// placeholderHandler answers for gated application prefixes. The real
// UI routes live in the front end; the gateway only demonstrates and
// enforces admission.
func placeholderHandler(rule domainauth.Rule) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, _ := GetIdentityFromContext(r.Context())
		WriteJSON(w, http.StatusOK, map[string]any{
			"path":    rule.Path,
			"allowed": true,
			"role":    identity.Role,
		})
	})
}
