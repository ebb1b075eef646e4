package httpx

import (
	"context"
	"log/slog"
	"net/http"

	domainauth "github.com/latamworkhub/workhub-auth/internal/domain/auth"
	apperrors "github.com/latamworkhub/workhub-auth/internal/errors"
	"github.com/latamworkhub/workhub-auth/internal/ports"
)

// AuthServiceInterface defines the gateway operations the handlers need.
type AuthServiceInterface interface {
	LoginWithPassword(ctx context.Context, email, password string, remember bool) (*domainauth.Identity, error)
	LoginWithProvider(ctx context.Context) (*domainauth.Identity, error)
	Register(ctx context.Context, email, password string) (*ports.RegisterResponse, error)
	RequestPasswordReset(ctx context.Context, email string) error
	Logout(ctx context.Context) error
	IsAuthenticated(ctx context.Context) bool
}

// AuthHandlers provides HTTP handlers for the session gateway.
type AuthHandlers struct {
	Svc    AuthServiceInterface
	Logger *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// identityView is the wire shape of an identity; token material never
// leaves the gateway.
type identityView struct {
	ID          string          `json:"id"`
	Email       string          `json:"email"`
	DisplayName string          `json:"display_name,omitempty"`
	Role        domainauth.Role `json:"role"`
}

func viewOf(identity *domainauth.Identity) identityView {
	return identityView{
		ID:          identity.ID,
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
		Role:        identity.Role,
	}
}

// Login handles password login.
// POST /auth/login {"email","password","remember"}.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Remember bool   `json:"remember"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	identity, err := h.Svc.LoginWithPassword(r.Context(), req.Email, req.Password, req.Remember)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, viewOf(identity))
}

// ProviderLogin runs the identity-provider flow.
// POST /auth/provider/login.
func (h *AuthHandlers) ProviderLogin(w http.ResponseWriter, r *http.Request) {
	identity, err := h.Svc.LoginWithProvider(r.Context())
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, viewOf(identity))
}

// Register creates an account without establishing a session.
// POST /auth/register {"email","password"}.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	resp, err := h.Svc.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]string{
		"confirmation_id": resp.ConfirmationID,
		"email":           resp.Email,
	})
}

// PasswordReset starts a password reset flow.
// POST /auth/password-reset {"email"}.
func (h *AuthHandlers) PasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := h.Svc.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, map[string]string{"status": "reset_requested"})
}

// Logout tears the session down. Always answers 200: local clearing is
// unconditional.
// POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Logout(r.Context()); err != nil {
		h.logger().WarnContext(r.Context(), "logout failed", "error", err)
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// Session reports the current session snapshot.
// GET /auth/session.
func (h *AuthHandlers) Session(w http.ResponseWriter, r *http.Request) {
	identity, ok := GetIdentityFromContext(r.Context())
	if !ok {
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"identity":      viewOf(identity),
	})
}

// writeAuthError maps taxonomy errors onto HTTP answers. Unauthorized
// and network failures carry a user-facing message; backend rejections
// and provider failures return the user to the login flow.
func (h *AuthHandlers) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case apperrors.IsUnauthorized(err):
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "invalid_credentials", Err: err})
	case apperrors.IsValidation(err):
		WriteError(w, ErrorParams{Code: http.StatusUnprocessableEntity, ErrCode: "validation_failed", Err: err})
	case apperrors.IsConflict(err):
		WriteError(w, ErrorParams{Code: http.StatusConflict, ErrCode: "conflict", Err: err})
	case apperrors.IsProvider(err), apperrors.IsBackendRejected(err):
		h.logger().WarnContext(r.Context(), "authentication attempt failed", "error", err)
		WriteJSON(w, http.StatusUnauthorized, map[string]string{
			"error":       "authentication_failed",
			"redirect_to": domainauth.LoginPath,
		})
	case apperrors.IsNetwork(err):
		h.logger().ErrorContext(r.Context(), "backend unavailable", "error", err)
		// Transport detail is not exposed to the user.
		WriteJSON(w, http.StatusBadGateway, map[string]string{
			"error":   "service_unavailable",
			"message": "please try again later",
		})
	default:
		h.logger().ErrorContext(r.Context(), "unexpected auth error", "error", err)
		WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
	}
}
