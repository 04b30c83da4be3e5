package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/nemanja-m/mrsched/internal/shared/config"
	"github.com/nemanja-m/mrsched/internal/shared/logging"
	"github.com/nemanja-m/mrsched/internal/worker/api/grpc"
	"github.com/nemanja-m/mrsched/internal/worker/service"
	"github.com/nemanja-m/mrsched/pkg/jobs"

	_ "github.com/nemanja-m/mrsched/examples/grep"
	_ "github.com/nemanja-m/mrsched/examples/wordcount"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.LoadWorker(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.Error("Failed to create logger", "error", err)
		os.Exit(1)
	}

	workerID := uuid.New()

	client, err := grpc.NewCoordinatorClient(cfg.Coordinator, workerID)
	if err != nil {
		logger.Fatal("Failed to create coordinator client", "error", err)
	}
	defer client.Close()

	executor := service.NewTaskExecutor(jobs.Default(), logger)
	workerService := service.NewWorkerService(client, executor, cfg.Worker, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Worker started",
		"worker_id", workerID.String(),
		"coordinator", cfg.Coordinator.Addr,
		"concurrency", cfg.Worker.Concurrency,
		"apps", jobs.List(),
	)

	if err := workerService.Run(ctx); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		return
	}

	logger.Info("Worker stopped", "worker_id", workerID.String())
}
