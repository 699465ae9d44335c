package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/anc-caregap-server/internal/api"
	"github.com/anc-caregap-server/internal/config"
	"github.com/anc-caregap-server/internal/logging"
	"github.com/anc-caregap-server/internal/metrics"
	"github.com/anc-caregap-server/internal/outcome"
	"github.com/anc-caregap-server/internal/service"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	cfg := configManager.GetConfig()

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}
	if path := configManager.ConfigFileUsed(); path != "" {
		logger.WithField("config_file", path).Info("Loaded configuration")
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The configured scorer must load before the server accepts requests.
	scorers, err := service.NewScorers(cfg.Scoring, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build risk scorer")
	}

	m := metrics.New()
	cache := service.NewCacheFromConfig(cfg.Cache, m, logger)
	assessments := service.NewAssessmentServiceFromScorers(scorers, logger,
		service.WithCache(cache),
		service.WithMetrics(m),
	)

	store, err := outcome.NewStore(ctx, cfg.Storage, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open outcome store")
	}
	defer store.Close()
	outcomes := service.NewOutcomeService(store, assessments, logger)

	var serverMetrics *metrics.Metrics
	if cfg.Metrics.Enabled {
		serverMetrics = m
	}
	server := api.NewServer(configManager, assessments, outcomes, serverMetrics, logger)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.WithField("signal", sig.String()).Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	logger.WithFields(logrus.Fields{
		"host":   cfg.Server.Host,
		"port":   cfg.Server.Port,
		"scorer": assessments.ScorerInfo().Name,
	}).Info("Starting ANC care gap risk server")

	// Start server
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("Server failed")
		store.Close()
		os.Exit(1)
	}

	logger.Info("Server stopped")
}
