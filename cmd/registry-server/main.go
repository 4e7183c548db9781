package main

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/rs/cors"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/simple-registry/pkg/registry/api"
	"github.com/tendant/simple-registry/pkg/registry/config"
)

func newLogger(cfg *config.ServerConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	if cfg.IsDevelopment() {
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	// Load configuration from environment
	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		slog.Error("Failed to load configuration", "err", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	// Build service from configuration
	ctx := context.Background()
	components, err := cfg.BuildService(ctx, logger)
	if err != nil {
		slog.Error("Failed to build service", "err", err)
		os.Exit(1)
	}
	defer components.Close()

	slog.Info("Simple Registry starting",
		"env", cfg.Environment,
		"database", cfg.DatabaseType(),
		"owner", cfg.OwnerAddress().Hex(),
		"event_sink", cfg.EventSinkURL != "",
		"metrics", cfg.EnableMetrics)

	server := app.DefaultApp()

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	if components.Metrics != nil {
		server.R.Handle("/metrics", components.Metrics.Handler())
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: !containsWildcard(cfg.CORSOrigins),
		MaxAge:           300,
	})

	var collector api.MetricsCollector
	if components.Metrics != nil {
		collector = components.Metrics
	}

	handler := components.Handler(logger)
	server.R.Route("/api/v1", func(r chi.Router) {
		r.Use(corsHandler.Handler)
		r.Use(api.ServerMiddlewares(logger, cfg.MaxRequestBytes, collector)...)
		r.Mount("/", handler.Routes())
	})

	// Start server
	server.Run()
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}
