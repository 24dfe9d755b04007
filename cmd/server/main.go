/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the token reward ledger server. Handles
  configuration, dependency injection, the renewal schedule, and
  graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags, load TOML config (flags win)
  2. Initialize SQLite store
  3. Create API handler with metrics and logger
  4. Schedule the subscription renewal sweep (cron)
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  TOML config path (optional; defaults apply without it)
  -port    HTTP server port (overrides config)
  -db      SQLite database path (overrides config)
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the cron schedule
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close the database
  5. Exit

EXAMPLES:
  ./server -config=./token-engine.toml
  ./server -db=":memory:" -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: The TOML shape
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/solace/token-engine/api"
	"github.com/solace/token-engine/config"
	"github.com/solace/token-engine/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "TOML config path")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Storage.Path = *dbPath
	}

	// Initialize store
	store, err := sqlite.New(cfg.Storage.Path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Storage.Path).Msg("failed to initialize database")
	}
	defer store.Close()

	// Initialize handler
	metrics := api.NewMetrics(prometheus.DefaultRegisterer)
	handler := api.NewHandler(store, cfg, metrics, logger)

	// Subscription renewals: hourly sweep, same cadence a wallet would
	// see from a client-side timer but resilient to restarts.
	sched := cron.New()
	if _, err := sched.AddFunc("@hourly", func() {
		if _, err := handler.RenewalSweep(); err != nil {
			logger.Error().Err(err).Msg("renewal sweep failed")
		}
	}); err != nil {
		logger.Fatal().Err(err).Msg("failed to schedule renewal sweep")
	}
	sched.Start()

	// Create server
	router := api.NewRouter(handler)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("addr", server.Addr).
			Str("db", cfg.Storage.Path).
			Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	<-sched.Stop().Done()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("forced shutdown")
	}

	logger.Info().Msg("server stopped")
}
