package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nemanja-m/mrsched/internal/coordinator/api/grpc"
	"github.com/nemanja-m/mrsched/internal/coordinator/api/rest"
	"github.com/nemanja-m/mrsched/internal/coordinator/core"
	"github.com/nemanja-m/mrsched/internal/coordinator/service"
	"github.com/nemanja-m/mrsched/internal/coordinator/storage"
	"github.com/nemanja-m/mrsched/internal/shared/config"
	"github.com/nemanja-m/mrsched/internal/shared/logging"
	"github.com/nemanja-m/mrsched/pkg/jobs"

	_ "github.com/nemanja-m/mrsched/examples/grep"
	_ "github.com/nemanja-m/mrsched/examples/wordcount"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.LoadCoordinator(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.Error("Failed to create logger", "error", err)
		os.Exit(1)
	}

	jobService := service.NewJobService(
		storage.NewInMemoryJobStore(),
		jobs.Default(),
		core.NewLocalDirProvisioner(),
		cfg.Scheduler.TaskTimeout,
		logger,
	)
	janitor := service.NewRetentionJanitor(cfg.Retention.CheckInterval, cfg.Retention.TTL, jobService, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Go(func() { janitor.Start(ctx) })

	grpcServer := grpc.NewServer(cfg.GRPC, jobService, logger)
	go func() {
		if err := grpcServer.Start(); err != nil {
			logger.Fatal("gRPC server error", "error", err)
		}
	}()

	restServer := rest.NewServer(cfg.REST, jobService, logger)
	go func() {
		logger.Info("Starting REST server", "addr", cfg.REST.Addr)
		if err := restServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("REST server error", "error", err)
		}
	}()

	logger.Info("Coordinator started",
		"apps", jobs.List(),
		"task_timeout", cfg.Scheduler.TaskTimeout.String(),
		"retention_ttl", cfg.Retention.TTL.String(),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down coordinator")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := restServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("REST server forced to shutdown", "error", err)
	}
	grpcServer.Stop()
	cancel()
	wg.Wait()

	logger.Info("Coordinator stopped")
}
