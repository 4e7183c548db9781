package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-chi/jwtauth"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-registry/pkg/registry"
	"github.com/tendant/simple-registry/pkg/registry/api"
	"github.com/tendant/simple-registry/pkg/registry/events/cloudevents"
	ledgermemory "github.com/tendant/simple-registry/pkg/registry/ledger/memory"
	"github.com/tendant/simple-registry/pkg/registry/metrics"
	"github.com/tendant/simple-registry/pkg/registry/repo/memory"
	repopg "github.com/tendant/simple-registry/pkg/registry/repo/postgres"
	"github.com/tendant/simple-registry/pkg/registry/repo/sqlite"
)

// devJWTSecret signs tokens when no secret is configured in development.
const devJWTSecret = "simple-registry-development-secret"

// Components are the collaborators built from a ServerConfig
type Components struct {
	Service   registry.Service
	Ledger    *ledgermemory.Ledger
	Metrics   *metrics.Sink // nil when metrics are disabled
	TokenAuth *jwtauth.JWTAuth

	closers []func() error
}

// Close releases database connections
func (c *Components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Handler returns the HTTP handler for the built service
func (c *Components) Handler(logger *slog.Logger) *api.Handler {
	return api.NewHandler(c.Service, c.TokenAuth,
		api.WithBalanceReader(c.Ledger),
		api.WithLogger(logger),
	)
}

// BuildService creates the registry service and its collaborators from the
// server configuration
func (c *ServerConfig) BuildService(ctx context.Context, logger *slog.Logger) (*Components, error) {
	if logger == nil {
		logger = slog.Default()
	}
	components := &Components{}

	// Set up repository
	repo, err := c.buildRepository(ctx, components)
	if err != nil {
		_ = components.Close()
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}

	// Set up ledger
	seed, err := ParseLedgerSeed(c.LedgerSeed)
	if err != nil {
		_ = components.Close()
		return nil, err
	}
	components.Ledger = ledgermemory.New(seed)

	// Set up event sinks
	var sinks []registry.EventSink
	if c.EnableEventLogging {
		sinks = append(sinks, registry.NewLogEventSink(logger))
	}
	if c.EventSinkURL != "" {
		sink, err := cloudevents.New(c.EventSinkURL,
			cloudevents.WithSource(c.EventSource),
			cloudevents.WithTimeout(c.EventSinkTimeout))
		if err != nil {
			_ = components.Close()
			return nil, fmt.Errorf("failed to build event sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if c.EnableMetrics {
		components.Metrics = metrics.New()
		sinks = append(sinks, components.Metrics)
	}

	options := []registry.Option{
		registry.WithRepository(repo),
		registry.WithLedger(components.Ledger),
		registry.WithOwner(c.OwnerAddress()),
		registry.WithLogger(logger),
	}
	if len(sinks) > 0 {
		options = append(options, registry.WithEventSink(registry.NewMultiEventSink(sinks...)))
	}

	svc, err := registry.New(options...)
	if err != nil {
		_ = components.Close()
		return nil, err
	}
	components.Service = svc

	secret := c.JWTSecret
	if secret == "" {
		logger.Warn("JWT_SECRET not set, using the development secret")
		secret = devJWTSecret
	}
	components.TokenAuth = api.NewTokenAuth(secret)

	return components, nil
}

// buildRepository creates a Repository based on the configuration
func (c *ServerConfig) buildRepository(ctx context.Context, components *Components) (registry.Repository, error) {
	switch c.DatabaseType() {
	case DatabaseMemory:
		return memory.New(), nil
	case DatabasePostgres:
		cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		schema := c.DBSchema
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			if schema == "" {
				return nil
			}
			_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
			return err
		}
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		components.closers = append(components.closers, func() error {
			pool.Close()
			return nil
		})

		if schema != "" {
			if _, err := pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{schema}.Sanitize()); err != nil {
				return nil, fmt.Errorf("failed to create schema %s: %w", schema, err)
			}
		}
		if err := repopg.Migrate(ctx, pool); err != nil {
			return nil, err
		}
		return repopg.NewWithPool(pool), nil
	case DatabaseSQLite:
		repo, err := sqlite.Open(c.SQLitePath())
		if err != nil {
			return nil, err
		}
		components.closers = append(components.closers, repo.Close)
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseURL)
	}
}
