package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/anc-caregap-server/internal/config"
	"github.com/anc-caregap-server/internal/logging"
	"github.com/anc-caregap-server/internal/mcp"
	"github.com/anc-caregap-server/internal/outcome"
	"github.com/anc-caregap-server/internal/service"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		setupCmd.SetArgs(os.Args[2:])
		if err := setupCmd.Execute(); err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		return
	}

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

	// stdout carries the protocol
	logger, err := logging.ForStdio(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scorers, err := service.NewScorers(cfg.Scoring, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build risk scorer")
	}
	assessments := service.NewAssessmentServiceFromScorers(scorers, logger,
		service.WithCache(service.NewCacheFromConfig(cfg.Cache, nil, logger)),
	)

	// Outcome tools are optional; a store failure leaves assessment available.
	var outcomes *service.OutcomeService
	store, err := outcome.NewStore(ctx, cfg.Storage, logger)
	if err != nil {
		logger.WithError(err).Warn("Outcome store unavailable, outcome tools disabled")
	} else {
		defer store.Close()
		outcomes = service.NewOutcomeService(store, assessments, logger)
	}

	server := mcp.NewServer(cfg.MCP, assessments, outcomes, logger)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, stopping MCP server...")
		cancel()
	}()

	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		logger.WithError(err).Error("MCP server failed")
		os.Exit(1)
	}

	logger.Info("MCP server stopped")
}
