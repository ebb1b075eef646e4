package config

// ObservabilityConfig groups metrics configuration.
type ObservabilityConfig struct {
	Metrics MetricsConfig `envPrefix:"METRICS_"`
}

// MetricsConfig controls StatsD metric emission.
type MetricsConfig struct {
	Enabled       bool   `env:"ENABLED"        envDefault:"false"`
	StatsdAddress string `env:"STATSD_ADDRESS" envDefault:"localhost:8125"`
	Prefix        string `env:"PREFIX"         envDefault:"workhub_auth"`
}

// IsEnabled reports whether metrics should be emitted.
func (m MetricsConfig) IsEnabled() bool {
	return m.Enabled && m.StatsdAddress != ""
}
