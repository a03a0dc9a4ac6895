// Package main is the entry point for the beer rating API server.
// It wires together configuration, the store, the conversation registry and
// the HTTP router.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aoideee/beer-rating/internal/beers"
	"github.com/aoideee/beer-rating/internal/conversation"
	"github.com/aoideee/beer-rating/internal/data"

	_ "github.com/jackc/pgx/v5/stdlib" // Registers the "pgx" driver.
	_ "github.com/lib/pq"              // Registers the "postgres" driver.
	_ "modernc.org/sqlite"             // Registers the "sqlite" driver.
)

// appVersion is the current version of the API, shown in logs and the healthcheck.
const appVersion = "1.0.0"

// serverConfig holds every value that can be tweaked at startup through
// flags, BEER_* environment variables or a config file.
type serverConfig struct {
	port        int    // TCP port the HTTP server listens on
	environment string // development, staging or production
	logLevel    string // debug, info, warn or error
	db          struct {
		driver       string        // postgres, pgx, sqlite or memory
		dsn          string        // Data Source Name for the driver
		maxOpenConns int           // Upper bound on open connections
		maxIdleConns int           // Upper bound on idle connections
		maxIdleTime  time.Duration // How long an idle connection is kept
		migrate      bool          // Apply pending migrations on startup
	}
	conversation struct {
		timeout time.Duration // Idle timeout of a long-running conversation
	}
	limiter struct {
		rps     float64 // Requests per second allowed per client IP
		burst   int     // Bucket size per client IP
		enabled bool
	}
}

// applicationDependencies bundles every shared resource the HTTP handlers need.
type applicationDependencies struct {
	config        serverConfig
	logger        *slog.Logger
	models        data.Models
	conversations *beers.Conversations
	beers         *beers.Service
	metrics       *metrics
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// newApplication builds the dependency graph on top of an opened store.
func newApplication(settings serverConfig, logger *slog.Logger, models data.Models) *applicationDependencies {
	conversations := conversation.NewManager[*beers.Session](settings.conversation.timeout, logger)

	return &applicationDependencies{
		config:        settings,
		logger:        logger,
		models:        models,
		conversations: conversations,
		beers:         beers.NewService(models.Beers, conversations, logger),
		metrics:       newMetrics(conversations.Count),
	}
}

// newLogger creates a structured logger that writes human-readable text to stdout.
func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})), nil
}

// openModels opens the configured store. The returned function releases it.
func openModels(settings serverConfig, logger *slog.Logger) (data.Models, func(), error) {
	if settings.db.driver == "memory" {
		logger.Warn("using in-memory store; data is lost on exit")
		return data.NewMemoryModels(), func() {}, nil
	}

	dialect, err := data.DialectFor(settings.db.driver)
	if err != nil {
		return data.Models{}, nil, err
	}

	db, err := openDB(settings)
	if err != nil {
		return data.Models{}, nil, err
	}
	logger.Info("database connection pool established", "driver", settings.db.driver)

	if settings.db.migrate {
		if err := data.MigrateUp(db, dialect); err != nil {
			db.Close()
			return data.Models{}, nil, err
		}
		logger.Info("database migrations applied")
	}

	return data.NewModels(db, dialect), func() { db.Close() }, nil
}

// openDB opens a connection pool for the configured driver and pings it with
// a 5-second timeout to confirm it is reachable.
func openDB(settings serverConfig) (*sql.DB, error) {
	db, err := sql.Open(settings.db.driver, settings.db.dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(settings.db.maxOpenConns)
	db.SetMaxIdleConns(settings.db.maxIdleConns)
	db.SetConnMaxIdleTime(settings.db.maxIdleTime)
	if settings.db.driver == "sqlite" {
		// SQLite allows one writer at a time. The connection is also never
		// retired: closing the last connection to ":memory:" drops the database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxIdleTime(0)
		db.SetConnMaxLifetime(0)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = db.PingContext(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
