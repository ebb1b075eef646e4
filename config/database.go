package config

import (
	"fmt"
	"strings"
)

// StoreKind selects the credential store backend.
type StoreKind string

const (
	StoreKindMemory   StoreKind = "memory"
	StoreKindRedis    StoreKind = "redis"
	StoreKindPostgres StoreKind = "postgres"
)

// UnmarshalText implements encoding.TextUnmarshaler for StoreKind.
func (s *StoreKind) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "memory", "redis", "postgres":
		*s = StoreKind(v)
		return nil
	default:
		return fmt.Errorf("invalid StoreKind: %q (valid options: memory, redis, postgres)", v)
	}
}

// StoreConfig selects and scopes the credential store backend.
type StoreConfig struct {
	Kind StoreKind `env:"KIND" envDefault:"redis"`

	// KeyPrefix (Redis) / Scope (Postgres) isolates this deployment's
	// session artifacts.
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"workhub:session:"`
	Scope     string `env:"SCOPE"      envDefault:"workhub"`
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	Addr     string `env:"ADDR"     envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`
}

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"workhub"`
	Password string `env:"PASSWORD" envDefault:"workhub"`
	Name     string `env:"NAME"     envDefault:"workhub"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // 'disable' for local dev, 'require' for production
}
