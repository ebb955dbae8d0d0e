// Package internal provides the main application initialization and runtime logic.
package internal

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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/tidy/internal/api"
	"github.com/starford/tidy/internal/apperr"
	"github.com/starford/tidy/internal/sse"
)

// NewLogger builds the structured JSON logger used by the server.
func NewLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = NewLogger(cfg.App.LogLevel)
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("rules_path", cfg.Rules.Path),
		slog.String("journal_path", cfg.Journal.Path),
		slog.String("organizer_path", cfg.Organizer.Path),
		slog.Duration("interval", cfg.Organizer.Interval),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker and the organizer reporter feeding it.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()
	reporter := sse.NewReporter(broker, NewCatalog(cfg))

	comps, err := Open(cfg, logger, reporter)
	if err != nil {
		return err
	}
	defer comps.Close()

	comps.Rules.OnChange(reporter.RulesChanged)

	logger.Info("Language selected", slog.String("lang", comps.Catalog.Lang()))

	apiRouter := api.NewRouter(comps.Service, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"status":"ok","organizer":%q,"sse_clients":%d}`,
			comps.Organizer.Status().State, broker.ClientCount())
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(runCtx)

	// Reload rules.json when it is edited by hand.
	g.Go(func() error {
		if err := comps.Rules.Watch(gCtx); err != nil {
			logger.Warn("rules watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

	if cfg.Organizer.AutoStart {
		// The loop lives as long as the server; Stop ends it on shutdown.
		if err := comps.Organizer.Start(context.WithoutCancel(gCtx), cfg.Organizer.Path); err != nil {
			logger.Error("organizer auto-start failed",
				slog.String("path", cfg.Organizer.Path),
				slog.String("error", err.Error()))
		}
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		// A running loop finishes the file it is moving before it exits.
		if err := comps.Organizer.Stop(); err != nil && !errors.Is(err, apperr.ErrNotRunning) {
			logger.Error("organizer stop error", slog.String("error", err.Error()))
		}

		logger.Info("Shutting down server...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		// SSE streams only end when the broker closes.
		broker.Close()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		cancel()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
