package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// WithEnv reads the configuration from environment variables. Variables that
// are unset fall back to their env-default tag.
func WithEnv() Option {
	return func(c *ServerConfig) error {
		if err := cleanenv.ReadEnv(c); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		return nil
	}
}

// WithEnvironment sets the runtime environment
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		c.Environment = env
		return nil
	}
}

// WithDatabaseURL selects the repository backend
func WithDatabaseURL(databaseURL string) Option {
	return func(c *ServerConfig) error {
		c.DatabaseURL = databaseURL
		return nil
	}
}

// WithOwner sets the registry owner address
func WithOwner(owner string) Option {
	return func(c *ServerConfig) error {
		c.Owner = owner
		return nil
	}
}

// WithJWTSecret sets the token signing secret
func WithJWTSecret(secret string) Option {
	return func(c *ServerConfig) error {
		c.JWTSecret = secret
		return nil
	}
}

// WithLedgerSeed sets the initial balances of the in-memory ledger
func WithLedgerSeed(seed string) Option {
	return func(c *ServerConfig) error {
		c.LedgerSeed = seed
		return nil
	}
}

// WithEventSinkURL enables CloudEvents delivery to url
func WithEventSinkURL(url string) Option {
	return func(c *ServerConfig) error {
		c.EventSinkURL = url
		return nil
	}
}

// WithEventLogging toggles the logging event sink
func WithEventLogging(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.EnableEventLogging = enabled
		return nil
	}
}

// WithMetrics toggles the Prometheus event sink
func WithMetrics(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.EnableMetrics = enabled
		return nil
	}
}
