// Package apiclient is the HTTP client for the remote Work Hub API. It
// owns the wire shapes and maps transport and status failures into the
// internal/errors taxonomy so the service layer never sees raw HTTP.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/latamworkhub/workhub-auth/internal/errors"
	"github.com/latamworkhub/workhub-auth/internal/ports"
)

const defaultTimeout = 30 * time.Second

// Client calls the remote Work Hub API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Config holds configuration for the API client.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client // Optional, defaults to a 30s-timeout client
}

// NewClient creates an API client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: httpClient,
	}, nil
}

var _ ports.APIClient = (*Client)(nil)

// loginPayload is the wire shape shared by password login and
// provider-token exchange responses.
type loginPayload struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	Role         string `json:"role"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

func (p loginPayload) toResponse() ports.LoginResponse {
	return ports.LoginResponse{
		ID:           p.ID,
		Email:        p.Email,
		DisplayName:  p.DisplayName,
		Role:         p.Role,
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		ExpiresIn:    p.ExpiresIn,
	}
}

// LoginWithPassword sends credentials to the backend. A 401-class answer
// maps to Unauthorized; transport trouble maps to Network.
func (c *Client) LoginWithPassword(ctx context.Context, email, password string) (ports.LoginResponse, error) {
	body := map[string]string{"email": email, "password": password}
	var payload loginPayload
	if err := c.post(ctx, "/api/auth/login", body, &payload); err != nil {
		return ports.LoginResponse{}, err
	}
	return payload.toResponse(), nil
}

// Register creates a new account. It does not establish a session.
func (c *Client) Register(ctx context.Context, email, password string) (ports.RegisterResponse, error) {
	body := map[string]string{"email": email, "password": password}
	var payload struct {
		ConfirmationID string `json:"confirmationId"`
		Email          string `json:"email"`
	}
	if err := c.post(ctx, "/api/auth/register", body, &payload); err != nil {
		return ports.RegisterResponse{}, err
	}
	return ports.RegisterResponse{
		ConfirmationID: payload.ConfirmationID,
		Email:          payload.Email,
	}, nil
}

// ExchangeProviderToken trades a provider-issued token for an
// application identity with role and permissions.
func (c *Client) ExchangeProviderToken(ctx context.Context, providerToken string) (ports.LoginResponse, error) {
	body := map[string]string{"providerToken": providerToken}
	var payload loginPayload
	if err := c.post(ctx, "/api/auth/sso/exchange", body, &payload); err != nil {
		return ports.LoginResponse{}, err
	}
	return payload.toResponse(), nil
}

// RefreshToken requests replacement token material.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (ports.TokenResponse, error) {
	body := map[string]string{"refreshToken": refreshToken}
	var payload struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
		ExpiresIn    int64  `json:"expiresIn"`
	}
	if err := c.post(ctx, "/api/auth/refresh", body, &payload); err != nil {
		return ports.TokenResponse{}, err
	}
	return ports.TokenResponse{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		ExpiresIn:    payload.ExpiresIn,
	}, nil
}

// RequestPasswordReset asks the backend to start a reset flow. A 404 or
// 400 denotes an unknown or malformed email and maps to Validation.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	err := c.post(ctx, "/api/auth/password-reset", body, nil)
	if apperrors.IsNotFound(err) {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, "unknown email")
	}
	return err
}

// post issues a JSON POST and decodes the response into dst (when dst is
// non-nil and the response has a body).
func (c *Client) post(ctx context.Context, path string, body, dst any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeNetwork, "backend unreachable")
	}
	defer func() { _ = resp.Body.Close() }()

	if statusErr := mapStatus(resp); statusErr != nil {
		return statusErr
	}
	if dst == nil {
		return nil
	}
	if decodeErr := json.NewDecoder(resp.Body).Decode(dst); decodeErr != nil {
		return apperrors.Wrap(decodeErr, apperrors.ErrCodeBackendRejected, "undecodable backend response")
	}
	return nil
}

// mapStatus converts a non-2xx status into the error taxonomy. The body
// is drained so connections can be reused.
func mapStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	detail := readErrorDetail(resp.Body)
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.Unauthorized("invalid credentials")
	case http.StatusConflict:
		return apperrors.Conflict(orDefault(detail, "already exists"))
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperrors.Validation(orDefault(detail, "invalid request"))
	case http.StatusNotFound:
		return apperrors.NotFound(orDefault(detail, "not found"))
	default:
		return apperrors.Networkf("backend returned status %d", resp.StatusCode)
	}
}

func readErrorDetail(body io.Reader) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(body, 4096)).Decode(&payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
