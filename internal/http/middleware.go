package httpx

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/latamworkhub/workhub-auth/internal/domain/auth"
	"github.com/latamworkhub/workhub-auth/internal/observability/statsd"
	"github.com/latamworkhub/workhub-auth/internal/session"
)

// RequestID returns a middleware that tags every request with an ID.
// An inbound X-Request-ID is honored so upstream proxies can correlate.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", id)
			next.ServeHTTP(w, r.WithContext(SetRequestIDInContext(r.Context(), id)))
		})
	}
}

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.String("request_id", GetRequestIDFromContext(r.Context())),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Admission returns a middleware that gates a route with the given rule.
// The decision is evaluated once per request against the current session
// state: denied browser requests get a redirect to the decision's
// target, denied JSON requests get 401/403 bodies. Allowed requests
// carry the identity in the request context.
func Admission(state *session.State, rule domainauth.Rule, metrics statsd.Sink) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := state.Current()
			decision := domainauth.Decide(identity, rule)
			if decision.Allow {
				next.ServeHTTP(w, r.WithContext(SetIdentityInContext(r.Context(), identity)))
				return
			}

			if metrics != nil {
				metrics.Count("admission.denied", 1, map[string]string{
					"path":     rule.Path,
					"redirect": decision.RedirectTo,
				})
			}

			if wantsJSON(r) {
				writeAdmissionError(w, identity, decision)
				return
			}
			http.Redirect(w, r, decision.RedirectTo, http.StatusFound)
		})
	}
}

func writeAdmissionError(w http.ResponseWriter, identity *domainauth.Identity, decision domainauth.Decision) {
	code := http.StatusForbidden
	errCode := "insufficient_permissions"
	if identity == nil {
		code = http.StatusUnauthorized
		errCode = "authentication_required"
	}
	WriteJSON(w, code, map[string]string{
		"error":       errCode,
		"redirect_to": decision.RedirectTo,
	})
}

func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") ||
		strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest")
}
