// Package devauth provides a simple, config-driven identity provider
// for local development. SignIn returns a locally generated token the
// dev backend accepts without verification.
package devauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/latamworkhub/workhub-auth/internal/ports"
)

// Config controls the dev provider behavior.
type Config struct {
	// TokenPrefix distinguishes dev tokens in backend logs. Defaults to "dev".
	TokenPrefix string
}

// Provider implements ports.IdentityProvider for local development.
type Provider struct {
	prefix      string
	signedIn    bool
	signOutHook func() // test seam
}

// NewProvider constructs a dev identity provider.
func NewProvider(cfg Config) *Provider {
	prefix := cfg.TokenPrefix
	if prefix == "" {
		prefix = "dev"
	}
	return &Provider{prefix: prefix}
}

var _ ports.IdentityProvider = (*Provider)(nil)

// SignIn returns a fresh random token with the configured prefix.
func (p *Provider) SignIn(_ context.Context) (string, error) {
	suffix, err := randomString(24)
	if err != nil {
		return "", fmt.Errorf("generate dev token: %w", err)
	}
	p.signedIn = true
	return p.prefix + "-" + suffix, nil
}

// SignOut forgets the local sign-in marker. It never fails.
func (p *Provider) SignOut(_ context.Context) error {
	p.signedIn = false
	if p.signOutHook != nil {
		p.signOutHook()
	}
	return nil
}

// SignedIn reports whether SignIn ran since the last SignOut.
func (p *Provider) SignedIn() bool { return p.signedIn }

func randomString(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("length must be positive")
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
