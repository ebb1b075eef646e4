package config

import "time"

// SessionConfig contains session lifecycle configuration.
type SessionConfig struct {
	// RememberTTL is how long "remember me" sessions persist.
	RememberTTL time.Duration `env:"REMEMBER_TTL" envDefault:"168h"`

	// SessionTTL is how long session-only persistence lasts.
	SessionTTL time.Duration `env:"TTL" envDefault:"12h"`

	// RefreshMargin is how long before token expiry a refresh fires.
	RefreshMargin time.Duration `env:"REFRESH_MARGIN" envDefault:"5m"`
}

// Sanitize applies guardrails to session configuration values.
func (s *SessionConfig) Sanitize() {
	if s.RememberTTL <= 0 {
		s.RememberTTL = 168 * time.Hour
	}
	if s.SessionTTL <= 0 {
		s.SessionTTL = 12 * time.Hour
	}
	if s.RefreshMargin <= 0 {
		s.RefreshMargin = 5 * time.Minute
	}
	// A margin beyond the session TTL would refresh immediately forever.
	if s.RefreshMargin > s.SessionTTL {
		s.RefreshMargin = s.SessionTTL / 2
	}
}
