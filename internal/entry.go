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

	"github.com/starford/siyuanflow/internal/api"
	"github.com/starford/siyuanflow/internal/batch"
	"github.com/starford/siyuanflow/internal/importer"
	"github.com/starford/siyuanflow/internal/journal"
	"github.com/starford/siyuanflow/internal/operation"
	"github.com/starford/siyuanflow/internal/siyuan"
	"github.com/starford/siyuanflow/internal/sse"
	"github.com/starford/siyuanflow/internal/storage"
)

// Run starts the gateway with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{version: "dev"}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("version", app.version),
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("siyuan_url", cfg.SiYuan.URL),
		slog.String("journal_path", cfg.Journal.Path),
		slog.String("vault_path", cfg.Importer.Vault),
		slog.String("log_level", cfg.App.LogLevel.String()))

	client, err := NewClient(cfg, logger)
	if err != nil {
		return err
	}
	catalog := NewCatalog(cfg)

	var j *journal.DB
	if cfg.Journal.Enabled() {
		j, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("init journal: %w", err)
		}
		defer j.Close()
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	var im *importer.Importer
	if cfg.Importer.Enabled() {
		im, err = NewImporter(cfg, client, j, logger, importer.WithReportHook(func(report *importer.Report) {
			publishReport(broker, report)
		}))
		if err != nil {
			return err
		}
	}

	recorders := []batch.Recorder{broker}
	hopts := []api.HandlerOption{api.WithLogger(logger), api.WithImporter(im)}
	if j != nil {
		recorders = append(recorders, j)
		hopts = append(hopts, api.WithJournal(j))
	}
	hopts = append(hopts, api.WithRecorder(batch.Recorders(recorders...)))

	h := api.NewHandler(catalog, client, hopts...)
	var gatewayToken string
	if cfg.Auth.AuthEnabled() {
		gatewayToken = cfg.Auth.Token
	}
	apiRouter := api.NewRouter(h, gatewayToken, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", api.Live)
	r.Get("/health/ready", api.Ready(client))

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start vault watcher; its passes publish through the report hook.
	if im != nil && cfg.Importer.Watch {
		g.Go(func() error {
			return im.Watch(gCtx, cfg.Importer.Debounce, nil)
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

		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// NewClient builds the kernel client from the configuration.
func NewClient(cfg *Config, logger *slog.Logger) (*siyuan.Client, error) {
	opts := []siyuan.Option{siyuan.WithLogger(logger)}
	if cfg.SiYuan.Timeout > 0 {
		opts = append(opts, siyuan.WithTimeout(cfg.SiYuan.Timeout))
	}
	client, err := siyuan.New(siyuan.Config{BaseURL: cfg.SiYuan.URL, Token: cfg.SiYuan.Token}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init client: %w", err)
	}
	return client, nil
}

// NewCatalog builds the operation catalog with the configured policy.
func NewCatalog(cfg *Config) *operation.Catalog {
	return operation.NewCatalog(operation.WithReadOnlySQL(cfg.Policy.ReadOnlySQL))
}

// NewImporter builds the vault importer. The vault directory is created when
// missing. Sync needs j; Export does not. opts come after the configured ones.
func NewImporter(cfg *Config, client *siyuan.Client, j *journal.DB, logger *slog.Logger, opts ...importer.Option) (*importer.Importer, error) {
	if err := os.MkdirAll(cfg.Importer.Vault, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Importer.Vault)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	base := []importer.Option{
		importer.WithPrune(cfg.Importer.Prune),
		importer.WithLogger(logger),
	}
	return importer.New(client, store, j, cfg.Importer.Notebook, append(base, opts...)...)
}

func publishReport(b *sse.Broker, report *importer.Report) {
	if report == nil {
		return
	}
	for _, p := range report.Created {
		b.PublishDocEvent(sse.DocCreated, p)
	}
	for _, p := range report.Updated {
		b.PublishDocEvent(sse.DocUpdated, p)
	}
	for _, p := range report.Removed {
		b.PublishDocEvent(sse.DocRemoved, p)
	}
}
