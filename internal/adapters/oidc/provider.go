// Package oidc implements the identity-provider port against an
// OIDC/OAuth2 provider. The gateway exchanges the provider token with
// the Work Hub backend; this adapter only obtains and revokes it.
package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	apperrors "github.com/latamworkhub/workhub-auth/internal/errors"
	"github.com/latamworkhub/workhub-auth/internal/ports"
)

// Provider implements ports.IdentityProvider using OIDC discovery and
// the OAuth2 client-credentials grant.
type Provider struct {
	conf       *clientcredentials.Config
	revokeURL  string
	httpClient *http.Client

	oidcProvider *gooidc.Provider
	verifier     *gooidc.IDTokenVerifier

	// lastToken is the most recent provider token, kept so SignOut can
	// revoke it. The core runs on a single event loop, so no lock.
	lastToken string
}

// ProviderConfig holds configuration for the OIDC provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	Scope        string
	DiscoveryURL string
	RevokeURL    string       // optional; SignOut is a local no-op when empty
	HTTPClient   *http.Client // optional, defaults to a 30s-timeout client
}

// NewProvider creates an OIDC identity provider. A single discovery
// fetch resolves the token endpoint and the ID-token verifier.
func NewProvider(cfg ProviderConfig) (*Provider, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, errors.New("client secret is required")
	}
	if cfg.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
	issuer := strings.TrimSuffix(cfg.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	issuer = strings.TrimSuffix(issuer, ".well-known/openid-configuration")
	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}

	return &Provider{
		conf: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     op.Endpoint().TokenURL,
			Scopes:       strings.Fields(cfg.Scope),
		},
		revokeURL:    cfg.RevokeURL,
		httpClient:   httpClient,
		oidcProvider: op,
		verifier:     op.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

var _ ports.IdentityProvider = (*Provider)(nil)

// SignIn obtains a provider token. When the provider returns an ID
// token it is verified before use; otherwise the access token is handed
// to the backend exchange as-is.
func (p *Provider) SignIn(ctx context.Context) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	tok, err := p.conf.Token(ctx)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeProvider, "provider sign-in failed")
	}

	providerToken := tok.AccessToken
	if rawID, ok := tok.Extra("id_token").(string); ok && rawID != "" {
		if _, verifyErr := p.verifier.Verify(ctx, rawID); verifyErr != nil {
			return "", apperrors.Wrap(verifyErr, apperrors.ErrCodeProvider, "verify id_token")
		}
		providerToken = rawID
	}
	if providerToken == "" {
		return "", apperrors.Provider("provider returned an empty token")
	}

	p.lastToken = providerToken
	return providerToken, nil
}

// SignOut revokes the last provider token at the configured revocation
// endpoint. Without a revocation endpoint or a token there is nothing to
// do and SignOut succeeds.
func (p *Provider) SignOut(ctx context.Context) error {
	if p.revokeURL == "" || p.lastToken == "" {
		return nil
	}

	form := url.Values{}
	form.Set("token", p.lastToken)
	form.Set("client_id", p.conf.ClientID)
	form.Set("client_secret", p.conf.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeProvider, "build revocation request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeProvider, "provider revocation failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return apperrors.Provider(fmt.Sprintf("provider revocation returned status %d", resp.StatusCode))
	}

	p.lastToken = ""
	return nil
}
