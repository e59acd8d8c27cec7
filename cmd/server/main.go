package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yegors/flightdesk/internal/api"
	"github.com/yegors/flightdesk/internal/config"
	"github.com/yegors/flightdesk/internal/controllers"
	"github.com/yegors/flightdesk/internal/flights"
	"github.com/yegors/flightdesk/internal/storage/sqlite"
	"github.com/yegors/flightdesk/internal/stream"
	"github.com/yegors/flightdesk/internal/websocket"
	"github.com/yegors/flightdesk/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	envFile := flag.String("env", ".env", "Path to an optional .env file")
	flag.Parse()

	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.ApplyEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error applying environment: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   cfg.Logging.Compress,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting flightdesk server",
		logger.String("version", Version),
		logger.String("config_path", *configPath),
		logger.String("stream_url", cfg.Stream.URL))

	if err := run(cfg, log); err != nil {
		log.Error("Server stopped with error", logger.Error(err))
		log.Sync()
		os.Exit(1)
	}
	log.Info("Server fully stopped")
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional plan cache
	var planCache flights.PlanCache
	if cfg.Storage.PlanCachePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.PlanCachePath), 0755); err != nil {
			return fmt.Errorf("failed to create plan cache directory: %w", err)
		}

		store, err := sqlite.NewPlanStorage(cfg.Storage.PlanCachePath, log)
		if err != nil {
			return fmt.Errorf("failed to open plan cache: %w", err)
		}
		defer store.Close()

		cutoff := time.Now().UTC().Add(-time.Duration(cfg.Staleness.RetentionMinutes) * time.Minute)
		if _, err := store.PurgeBefore(ctx, cutoff); err != nil {
			log.Warn("Failed to purge expired cached plans", logger.Error(err))
		}
		planCache = store
	} else {
		log.Info("Plan cache disabled")
	}

	wsServer := websocket.NewServer(log)

	flightService := flights.NewService(cfg, wsServer, planCache, log)
	wsServer.SetMessageHandler(flights.NewWebSocketHandler(flightService, log))

	controllerService := controllers.NewService(cfg.Controllers,
		controllers.AirportSourceFunc(func() []string {
			return flightService.ActiveAirports(flights.NamespaceStandard)
		}), log)

	streamClient := stream.NewClient(cfg.Stream, flightService, log)

	handler := api.NewHandler(flightService, controllerService, streamClient, wsServer, Version, log)
	router := api.NewRouter(handler, cfg, log)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}

	if err := flightService.Start(ctx); err != nil {
		return fmt.Errorf("failed to start flight service: %w", err)
	}
	defer flightService.Stop()

	if err := controllerService.Start(ctx); err != nil {
		return fmt.Errorf("failed to start controller service: %w", err)
	}
	defer controllerService.Stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		wsServer.Run(gctx)
		return nil
	})

	g.Go(func() error {
		return streamClient.Run(gctx)
	})

	g.Go(func() error {
		log.Info("Starting HTTP server", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", logger.Error(err))
		}
		return nil
	})

	return g.Wait()
}
