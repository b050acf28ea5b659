package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/airwaves-fm/stationsearch/internal/api"
	"github.com/airwaves-fm/stationsearch/internal/api/handlers"
	"github.com/airwaves-fm/stationsearch/internal/app"
	"github.com/airwaves-fm/stationsearch/internal/auth"
	"github.com/airwaves-fm/stationsearch/internal/config"
	"github.com/airwaves-fm/stationsearch/internal/service"
	"github.com/airwaves-fm/stationsearch/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting station search server",
		"mode", cfg.Server.Mode,
		"content_source", cfg.Content.Source,
		"cache_backend", cfg.Cache.Backend,
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Initialize search engine
	engine, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize search engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	if err := engine.Watch(ctx); err != nil {
		log.Warn("Fixture watcher not started", "error", err)
	}

	// Warm the snapshot so the first request does not pay for the fetch
	go func() {
		stats, err := engine.Service.Refresh(ctx)
		if err != nil {
			log.Warn("Initial snapshot load failed", "error", err)
			return
		}
		log.Info("Initial snapshot loaded", "snapshot_id", stats.SnapshotID, "items", stats.Items)
	}()

	// Scheduled refresh
	var refresher *service.Refresher
	if cfg.Content.RefreshSchedule != "" {
		refresher, err = service.NewRefresher(engine.Service, cfg.Content.RefreshSchedule, log)
		if err != nil {
			log.Error("Failed to create refresher", "error", err)
			os.Exit(1)
		}
		refresher.Start()
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry)
	if !jwtManager.Enabled() {
		log.Warn("No JWT secret configured, admin endpoints are disabled")
	}

	// Initialize handlers
	searchHandler := handlers.NewSearchHandler(engine.Service, cfg.Search.DefaultLimit, log)
	liveHandler := handlers.NewLiveHandler(engine.Service, cfg.Search.Debounce, cfg.Search.DefaultLimit, cfg.CORS.AllowedOrigins, log)
	adminHandler := handlers.NewAdminHandler(engine.Service, log)
	var cacheHealth handlers.HealthChecker
	if hc, ok := engine.Store.(handlers.HealthChecker); ok {
		cacheHealth = hc
	}
	healthHandler := handlers.NewHealthHandler(engine.Service, cacheHealth, log)

	// Initialize router
	router := api.NewRouter(
		searchHandler,
		liveHandler,
		adminHandler,
		healthHandler,
		jwtManager,
		cfg,
		log,
	)
	engineHandler := router.Setup(ctx)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      engineHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info("HTTP server starting", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	// Stop background services
	if refresher != nil {
		refresher.Stop(shutdownCtx)
	}
	stop()

	log.Info("Server stopped gracefully")
}
