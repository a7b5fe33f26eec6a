package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sundaylabs/sunday-digest/internal/config"
	"github.com/sundaylabs/sunday-digest/internal/core"
	"github.com/sundaylabs/sunday-digest/internal/di"
	"github.com/sundaylabs/sunday-digest/internal/ports"
	"github.com/sundaylabs/sunday-digest/internal/scheduler"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	cfg *config.Config,
	logger *zap.Logger,
	ingestServer ports.IngestServer,
	sched *scheduler.Scheduler,
	llmClient core.LLMClient,
	store core.Store,
) error {
	defer logger.Sync()

	if cfg.GetIngest().Enabled {
		if err := ingestServer.Start(); err != nil {
			logger.Fatal("Failed to start ingest server", zap.Error(err))
			return err
		}
	}

	if cfg.GetScheduler().Enabled {
		if err := sched.Start(); err != nil {
			logger.Fatal("Failed to start scheduler", zap.Error(err))
			return err
		}
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	if cfg.GetScheduler().Enabled {
		sched.Stop()
	}
	if cfg.GetIngest().Enabled {
		if err := ingestServer.Stop(); err != nil {
			logger.Error("Failed to stop ingest server", zap.Error(err))
		}
	}

	// Close any resources that need closing
	if closer, ok := llmClient.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close LLM client", zap.Error(err))
		}
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close store", zap.Error(err))
		}
	}

	return nil
}
