/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the backoffice engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (env vars, then flags override)
  2. Build the zap logger
  3. Initialize SQLite store
  4. Create API handler with dependencies
  5. Configure HTTP router
  6. Start server with graceful shutdown

CONFIGURATION:
  Environment variables (prefix BACKOFFICE_):
    BACKOFFICE_PORT        HTTP server port (default: 8080)
    BACKOFFICE_DB_PATH     SQLite database path (default: backoffice.db)
    BACKOFFICE_LOG_LEVEL   zap level: debug, info, warn, error (default: info)
    BACKOFFICE_LOAD_DEMO   Seed demo fixtures on startup (default: false)
  Flags override the environment:
    -port, -db, -log-level, -demo

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/backoffice.db"

  # Run with in-memory database and demo data
  ./server -db=":memory:" -demo

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ferrex/backoffice-engine/api"
	"github.com/ferrex/backoffice-engine/store/sqlite"
)

// Config is populated from BACKOFFICE_* environment variables.
type Config struct {
	Port     int    `envconfig:"PORT" default:"8080"`
	DBPath   string `envconfig:"DB_PATH" default:"backoffice.db"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LoadDemo bool   `envconfig:"LOAD_DEMO" default:"false"`
}

func main() {
	var cfg Config
	if err := envconfig.Process("backoffice", &cfg); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Flags override the environment
	flag.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	flag.BoolVar(&cfg.LoadDemo, "demo", cfg.LoadDemo, "seed demo fixtures on startup")
	flag.Parse()

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	// Initialize handler
	handler := api.NewHandler(store, logger)

	if cfg.LoadDemo {
		if err := handler.SeedDemoData(context.Background()); err != nil {
			logger.Warn("failed to seed demo data", zap.Error(err))
		} else {
			logger.Info("demo data seeded")
		}
	}

	// Create router
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			zap.String("addr", fmt.Sprintf("http://localhost:%d", cfg.Port)),
			zap.String("db", cfg.DBPath),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
