package config

import "time"

// APIConfig contains remote Work Hub API configuration.
type APIConfig struct {
	// BaseURL is the root of the remote API (e.g., "https://api.workhub.example").
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:3000"`

	// Timeout bounds each backend round-trip.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`
}
