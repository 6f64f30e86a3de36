package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go-image-grader/internal/config"
	"go-image-grader/internal/container"
	"go-image-grader/internal/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)

	// Initialize dependency injection container
	c, err := container.NewContainer(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer c.Close()

	// Serve until an interrupt signal arrives, then shut down gracefully
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := c.Serve(ctx); err != nil {
		logger.WithError(err).Error("Server stopped")
	}
}
