package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/middleware"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/server"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

const (
	renderTimeout = 10 * time.Second
	cacheMaxAge   = "no-cache"
)

// dashboardHandler serves the page shell. A dataset that fails to load still
// yields a page; the SSE refresh reports the error.
func dashboardHandler(dashboard *services.Dashboard, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		options, err := dashboard.FilterOptions(ctx)
		if err != nil {
			logger.Warn("filter options unavailable", "error", err)
			options = nil
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", cacheMaxAge)
		if err := templates.Dashboard(options).Render(ctx, w); err != nil {
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("failed to read .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"data_source", cfg.Data.Source,
		"data_file", cfg.Data.File,
		"lazy_load", cfg.Data.LazyLoad,
	)

	source, err := services.NewSource(cfg.Data)
	if err != nil {
		logger.Error("invalid data source", "error", err)
		os.Exit(1)
	}

	loader := services.NewLoader(logger)
	cache := services.NewDatasetCache(loader).WithLoadTimeout(cfg.Data.LoadTimeout)
	dashboard := services.NewDashboard(cache, source, logger)

	if !cfg.Data.LazyLoad {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Data.LoadTimeout)
		start := time.Now()
		ds, err := dashboard.Dataset(ctx)
		cancel()
		if err != nil {
			logger.Error("failed to load sales data", "error", err)
			os.Exit(1)
		}
		logger.Info("sales data loaded", "records", ds.Len(), "duration", time.Since(start))
	}

	templateHandlers := &server.TemplateHandlers{
		Dashboard: dashboardHandler(dashboard, logger),
	}

	srv := server.NewServer(dashboard, logger, templateHandlers)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)
	defer rateLimiter.Stop()

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      middlewareChain(srv),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook("dataset-cache", func(ctx context.Context) error {
		logger.Info("releasing dataset cache", "entries", cache.Size())
		cache.ResetAll()
		return nil
	})

	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
