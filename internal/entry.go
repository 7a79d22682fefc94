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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/pagefs/internal/api"
	"github.com/starford/pagefs/internal/command"
	"github.com/starford/pagefs/internal/fileservice"
	"github.com/starford/pagefs/internal/importer"
	"github.com/starford/pagefs/internal/index"
	"github.com/starford/pagefs/internal/pagestore"
	"github.com/starford/pagefs/internal/snapshot"
	"github.com/starford/pagefs/internal/sse"
	"github.com/starford/pagefs/internal/storage"
)

// runtime is the wired object graph shared by every run mode.
type runtime struct {
	svc      *fileservice.Service
	cmd      *command.Interpreter
	importer *importer.Importer
	closers  []func() error
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		_ = rt.closers[i]()
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{in: os.Stdin, out: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// build wires storage, ledger, snapshots, the store, and the seed importer.
func build(ctx context.Context, cfg *Config, logger *slog.Logger, svcOpts ...fileservice.Option) (*runtime, error) {
	rt := &runtime{}

	// Ensure storage root exists.
	if err := os.MkdirAll(cfg.Storage.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	disk, err := storage.NewFS(cfg.Storage.Root)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	store, err := pagestore.New(cfg.Store.PageSize)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	svcOpts = append(svcOpts,
		fileservice.WithLogger(logger),
		fileservice.WithDumpDir(cfg.Storage.DumpDir),
	)

	if cfg.Ledger.Enabled() {
		db, err := index.Open(cfg.Ledger.Path)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("init ledger: %w", err)
		}
		rt.closers = append(rt.closers, db.Close)
		svcOpts = append(svcOpts, fileservice.WithLedger(db))
	}

	if cfg.Snapshot.Enabled() {
		snaps, err := snapshot.Open(snapshot.Options{Dir: cfg.Snapshot.Path})
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("init snapshots: %w", err)
		}
		rt.closers = append(rt.closers, snaps.Close)
		svcOpts = append(svcOpts, fileservice.WithSnapshots(snaps))
	}

	rt.svc = fileservice.NewService(store, disk, svcOpts...)
	rt.cmd = command.New(rt.svc, command.WithSurroundingChars(cfg.Store.SurroundingChars))

	if cfg.Import.Path != "" {
		src, err := storage.NewFS(cfg.Import.Path)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("init import source: %w", err)
		}
		rt.importer = importer.New(rt.svc, src, logger)
		// Run initial import.
		if err := rt.importer.Sync(ctx); err != nil {
			logger.Warn("initial import failed", slog.String("error", err.Error()))
		} else {
			logger.Info("initial import complete", slog.Int("files", rt.importer.Imported()))
		}
	}

	return rt, nil
}

// Run starts the HTTP server (and the import watcher, when enabled) with
// the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := newLogger(cfg, os.Stdout)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.Int("page_size", cfg.Store.PageSize),
		slog.String("storage_root", cfg.Storage.Root),
		slog.String("ledger_path", cfg.Ledger.Path),
		slog.String("snapshot_path", cfg.Snapshot.Path),
		slog.String("import_path", cfg.Import.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	rt, err := build(ctx, cfg, logger, fileservice.WithEvents(broker.PublishFileEvent))
	if err != nil {
		return err
	}
	defer rt.Close()

	apiRouter := api.NewRouter(rt.svc, rt.cmd, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gCtx := errgroup.WithContext(runCtx)

	// Start import watcher.
	if rt.importer != nil && cfg.Import.Watch {
		g.Go(func() error {
			if err := rt.importer.Watch(gCtx, cfg.Import.Path); err != nil {
				logger.Error("import watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
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

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		stop()

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
