package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Database types derived from DatabaseURL
const (
	DatabaseMemory   = "memory"
	DatabasePostgres = "postgres"
	DatabaseSQLite   = "sqlite"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Environment:        "development",
		LogLevel:           "info",
		DatabaseURL:        DatabaseMemory,
		DBSchema:           "registry",
		EventSource:        "simple-registry",
		EventSinkTimeout:   5 * time.Second,
		EnableEventLogging: true,
		EnableMetrics:      true,
		CORSOrigins:        []string{"*"},
		MaxRequestBytes:    1 << 20,
	}
}

// ServerConfig represents server configuration for the registry service
type ServerConfig struct {
	Environment string `env:"ENVIRONMENT" env-default:"development"` // development, production, testing
	LogLevel    string `env:"LOG_LEVEL" env-default:"info"`

	// Database configuration: "memory", "postgres://...", "postgresql://..." or "sqlite://path"
	DatabaseURL string `env:"DATABASE_URL" env-default:"memory"`
	DBSchema    string `env:"DB_SCHEMA" env-default:"registry"` // Postgres schema to use

	// Registry
	Owner      string `env:"REGISTRY_OWNER"`
	JWTSecret  string `env:"JWT_SECRET"`
	LedgerSeed string `env:"LEDGER_SEED"` // addr:amount,addr:amount

	// Notifications
	EventSinkURL       string        `env:"EVENT_SINK_URL"`
	EventSource        string        `env:"EVENT_SOURCE" env-default:"simple-registry"`
	EventSinkTimeout   time.Duration `env:"EVENT_SINK_TIMEOUT" env-default:"5s"`
	EnableEventLogging bool          `env:"ENABLE_EVENT_LOGGING" env-default:"true"`
	EnableMetrics      bool          `env:"ENABLE_METRICS" env-default:"true"`

	CORSOrigins     []string `env:"CORS_ORIGINS" env-separator:"," env-default:"*"`
	MaxRequestBytes int64    `env:"MAX_REQUEST_BYTES" env-default:"1048576"`
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Environment, validation.Required, validation.In("development", "production", "testing")),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.DatabaseURL, validation.Required, validation.By(validateDatabaseURL)),
		validation.Field(&c.Owner, validation.Required, validation.By(validateAddress)),
		validation.Field(&c.JWTSecret,
			validation.When(c.Environment != "development", validation.Required, validation.Length(32, 0)),
		),
		validation.Field(&c.LedgerSeed, validation.By(func(value interface{}) error {
			_, err := ParseLedgerSeed(value.(string))
			return err
		})),
		validation.Field(&c.EventSinkURL, validation.By(validateHTTPURL)),
		validation.Field(&c.EventSinkTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.MaxRequestBytes, validation.Required, validation.Min(int64(1))),
	)
}

// IsDevelopment reports whether the server runs in development mode
func (c *ServerConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// DatabaseType returns the backend selected by DatabaseURL
func (c *ServerConfig) DatabaseType() string {
	switch {
	case c.DatabaseURL == "" || c.DatabaseURL == DatabaseMemory:
		return DatabaseMemory
	case strings.HasPrefix(c.DatabaseURL, "postgres://"), strings.HasPrefix(c.DatabaseURL, "postgresql://"):
		return DatabasePostgres
	case strings.HasPrefix(c.DatabaseURL, "sqlite://"):
		return DatabaseSQLite
	default:
		return ""
	}
}

// SQLitePath returns the file path of a sqlite:// DatabaseURL
func (c *ServerConfig) SQLitePath() string {
	return strings.TrimPrefix(c.DatabaseURL, "sqlite://")
}

// OwnerAddress returns the parsed registry owner
func (c *ServerConfig) OwnerAddress() common.Address {
	return common.HexToAddress(c.Owner)
}

// ParseLedgerSeed parses "addr:amount" pairs separated by commas. An empty
// string yields an empty seed.
func ParseLedgerSeed(raw string) (map[common.Address]uint64, error) {
	seed := make(map[common.Address]uint64)
	if strings.TrimSpace(raw) == "" {
		return seed, nil
	}

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		addr, amount, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("ledger seed entry %q must be address:amount", entry)
		}
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("ledger seed entry %q has an invalid address", entry)
		}
		n, err := strconv.ParseUint(amount, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ledger seed entry %q has an invalid amount: %w", entry, err)
		}
		seed[common.HexToAddress(addr)] += n
	}
	return seed, nil
}

func validateAddress(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if !common.IsHexAddress(s) {
		return errors.New("must be a hex address")
	}
	if common.HexToAddress(s) == (common.Address{}) {
		return errors.New("must not be the zero address")
	}
	return nil
}

func validateDatabaseURL(value interface{}) error {
	s, _ := value.(string)
	cfg := ServerConfig{DatabaseURL: s}
	switch cfg.DatabaseType() {
	case DatabaseMemory, DatabasePostgres:
		return nil
	case DatabaseSQLite:
		if cfg.SQLitePath() == "" {
			return errors.New("sqlite path cannot be empty")
		}
		return nil
	default:
		return fmt.Errorf("unsupported format %q (use 'memory', 'postgres://...' or 'sqlite://path')", s)
	}
}

func validateHTTPURL(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("must be an http or https URL")
	}
	if u.Host == "" {
		return errors.New("must include a host")
	}
	return nil
}
