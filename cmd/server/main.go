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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/yegors/wxstack/internal/api"
	"github.com/yegors/wxstack/internal/config"
	"github.com/yegors/wxstack/internal/instrumentation"
	"github.com/yegors/wxstack/internal/validation"
	"github.com/yegors/wxstack/internal/weatherstack"
	"github.com/yegors/wxstack/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	flag.Parse()

	// Load configuration with fallback logic
	cfg, err := config.LoadWithFallback(*configPath)
	if errors.Is(err, config.ErrNotFound) && *configPath == "" {
		// No file anywhere: run on defaults plus environment
		fmt.Fprintf(os.Stderr, "No configuration file found, using defaults\n")
		cfg = config.Default()
		cfg.ApplyEnv()
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting wxstack server",
		logger.String("version", Version),
		logger.String("config_path", *configPath),
	)

	// Metrics registry shared by the client and the /metrics route
	var gatherer prometheus.Gatherer
	var registerer prometheus.Registerer
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		gatherer, registerer = reg, reg
	}

	// Create the weather client
	client, err := weatherstack.NewClient(
		cfg.Weatherstack.ClientConfig(),
		log,
		weatherstack.WithInstrumentation(instrumentation.New("client", registerer)),
	)
	if err != nil {
		log.Error("Failed to create weather client", logger.Error(err))
		os.Exit(1)
	}
	defer client.Close()

	// Create API router
	router := api.NewRouter(client, validation.NewValidator(log), gatherer, cfg.Metrics.Path, log)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal or a startup failure
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case err := <-serverErr:
		log.Error("HTTP server error on startup", logger.String("addr", server.Addr), logger.Error(err))
	}

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", logger.String("addr", server.Addr), logger.Error(err))
	} else {
		log.Info("HTTP server shutdown complete", logger.String("addr", server.Addr))
	}

	log.Info("Server fully stopped")
}
