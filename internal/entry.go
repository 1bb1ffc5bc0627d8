// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/sitegen/internal/history"
	"github.com/starford/sitegen/internal/mcpserver"
	"github.com/starford/sitegen/internal/preview"
	"github.com/starford/sitegen/internal/site"
	"github.com/starford/sitegen/internal/sse"
	"github.com/starford/sitegen/internal/watcher"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{
		mode:         ModeBuild,
		historyLimit: 20,
		logOutput:    os.Stderr,
		stdout:       os.Stdout,
	}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config
	logger := newLogger(cfg.App, app.verbose, app.logOutput)
	slog.SetDefault(logger)

	logger.Debug("Configuration loaded",
		slog.String("mode", string(app.mode)),
		slog.String("source_dir", app.sourceDir),
		slog.String("output_dir", app.outputDir),
		slog.Bool("history", cfg.History.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if app.mode == ModeHistory {
		return printHistory(cfg.History.Path, app.historyLimit, app.stdout)
	}

	store, err := openHistory(cfg.History)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	b := &builder{
		sourceDir: app.sourceDir,
		outputDir: app.outputDir,
		settings:  cfg.Settings(),
		mode:      app.mode,
		keep:      cfg.History.Keep,
		history:   store,
		logger:    logger,
		stdout:    app.stdout,
	}

	switch app.mode {
	case ModeBuild:
		_, err := b.build(ctx, "")
		return err
	case ModeWatch:
		return runWatch(ctx, cfg, b)
	case ModeServe:
		return runServe(ctx, cfg, b)
	case ModeMCP:
		return runMCP(b)
	default:
		return fmt.Errorf("unknown mode %q", app.mode)
	}
}

func newLogger(cfg ApplicationConfig, verbose bool, w io.Writer) *slog.Logger {
	level := cfg.LogLevel
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func openHistory(cfg HistoryConfig) (history.Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	db, err := history.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("init history: %w", err)
	}
	return db, nil
}

// waitForSignal blocks until SIGINT/SIGTERM or ctx is done, then calls stop.
func waitForSignal(ctx context.Context, logger *slog.Logger, stop func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, initiating shutdown")
	}
	stop()
}

func runWatch(ctx context.Context, cfg *Config, b *builder) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// A broken initial build is reported and left for the next edit to fix.
	_, _ = b.build(ctx, "")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return watcher.Watch(gCtx, b.watchConfig(cfg), b.logger, func(ctx context.Context, reason string) {
			_, _ = b.build(ctx, reason)
		})
	})

	g.Go(func() error {
		waitForSignal(gCtx, b.logger, cancel)
		return nil
	})

	return g.Wait()
}

func runServe(ctx context.Context, cfg *Config, b *builder) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	broker := sse.NewBroker(cfg.Serve.ReloadThrottle)
	b.broker = broker
	b.status = &preview.Status{}

	_, _ = b.build(ctx, "")

	router := preview.NewRouter(preview.Options{
		OutputDir:  b.outputDir,
		Status:     b.status,
		Events:     broker,
		History:    b.history,
		LiveReload: cfg.Serve.LiveReload,
		Logger:     b.logger,
	})

	httpServer := &http.Server{
		Addr:              cfg.Serve.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return watcher.Watch(gCtx, b.watchConfig(cfg), b.logger, func(ctx context.Context, reason string) {
			_, _ = b.build(ctx, reason)
		})
	})

	g.Go(func() error {
		fmt.Fprintf(b.stdout, "Serving %s on http://localhost%s\n", b.outputDir, cfg.Serve.Address())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		waitForSignal(gCtx, b.logger, cancel)

		b.logger.Info("Shutting down server...")
		// Open event streams only end when the broker closes them.
		broker.Close()

		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			b.logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		b.logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	b.logger.Info("Server stopped successfully")
	return nil
}

func runMCP(b *builder) error {
	srv := mcpserver.New(mcpserver.Config{
		SourceDir: b.sourceDir,
		OutputDir: b.outputDir,
		Settings:  b.settings,
		History:   b.history,
		Logger:    b.logger,
		OnBuild: func(summary *site.Summary, err error) {
			b.observe(summary, err, "")
		},
	})
	return srv.ServeStdio()
}
