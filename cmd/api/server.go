// cmd/api/server.go
// This file contains the serve() method which starts the HTTP server and
// drains in-flight requests when the process is asked to stop.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// serve builds the HTTP server and blocks until SIGINT or SIGTERM arrives.
// On signal receipt the server stops accepting connections and in-flight
// requests get 20 seconds to finish before it is stopped for good.
func (app *applicationDependencies) serve() error {
	// Configure the HTTP server. Server-level errors go through our logger.
	apiServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", app.config.port),
		Handler:      app.routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelError),
	}

	// shutdownErr receives the result of Shutdown().
	shutdownErr := make(chan error)

	// Wait for a shutdown signal in the background, then stop gracefully.
	go func() {
		// Buffered so the signal package never blocks on send.
		quit := make(chan os.Signal, 1)

		// SIGINT is Ctrl+C; SIGTERM comes from kill or a container stop.
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		// Block until a signal arrives.
		s := <-quit
		app.logger.Info("shutting down server", "signal", s.String())

		// Active requests must complete inside this window.
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		// Shutdown refuses new connections and waits for active requests,
		// up to the context deadline. Open conversations are not persisted.
		shutdownErr <- apiServer.Shutdown(ctx)
	}()

	app.logger.Info("starting server", "address", apiServer.Addr, "environment", app.config.environment, "version", appVersion)

	// ListenAndServe always returns a non-nil error. ErrServerClosed is the
	// normal result of Shutdown being called.
	err := apiServer.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	// Wait for the shutdown goroutine and collect its error.
	err = <-shutdownErr
	if err != nil {
		return err
	}

	app.logger.Info("server stopped", "address", apiServer.Addr)
	return nil
}
