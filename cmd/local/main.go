package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nemanja-m/mrsched/internal/coordinator/core"
	"github.com/nemanja-m/mrsched/internal/coordinator/service"
	"github.com/nemanja-m/mrsched/internal/coordinator/storage"
	"github.com/nemanja-m/mrsched/internal/shared/config"
	"github.com/nemanja-m/mrsched/internal/shared/logging"
	"github.com/nemanja-m/mrsched/internal/worker/api/inproc"
	workerservice "github.com/nemanja-m/mrsched/internal/worker/service"
	"github.com/nemanja-m/mrsched/pkg/jobs"

	_ "github.com/nemanja-m/mrsched/examples/grep"
	_ "github.com/nemanja-m/mrsched/examples/wordcount"
)

func main() {
	var (
		input    = flag.String("input", "", "input files glob pattern")
		output   = flag.String("output", "", "output directory")
		reducers = flag.Int("reducers", 4, "number of reduce tasks")
		app      = flag.String("job", "", "job to run (e.g., wordcount, grep)")
		args     = flag.String("args", "", "opaque arguments passed to map and reduce")
		workers  = flag.Int("workers", 4, "number of concurrent task slots")
		timeout  = flag.Duration("task-timeout", 10*time.Second, "time after which a running task is reassigned")
		logLevel = flag.String("log-level", "info", "log level (debug, info, warn, error)")
	)
	flag.Parse()

	logger, err := logging.New(config.LoggingConfig{Level: *logLevel, Format: "text"})
	if err != nil {
		slog.Error("Failed to create logger", "error", err)
		os.Exit(1)
	}

	if *input == "" {
		logger.Fatal("Input pattern must be specified using the -input flag")
	}
	if *output == "" {
		logger.Fatal("Output directory must be specified using the -output flag")
	}
	if !jobs.Default().Has(*app) {
		logger.Fatal("Unknown job", "job", *app, "available", jobs.List())
	}

	inputFiles, err := core.FindLocalFiles([]string{*input})
	if err != nil {
		logger.Fatal("Failed to expand input pattern", "input", *input, "error", err)
	}
	outputDir, err := filepath.Abs(*output)
	if err != nil {
		logger.Fatal("Invalid output directory", "output", *output, "error", err)
	}

	jobService := service.NewJobService(
		storage.NewInMemoryJobStore(),
		jobs.Default(),
		core.NewLocalDirProvisioner(),
		*timeout,
		logger,
	)

	submission := core.JobSubmission{
		App:        *app,
		InputFiles: inputFiles,
		NReduce:    *reducers,
		OutputDir:  outputDir,
	}
	if *args != "" {
		submission.Args = []byte(*args)
	}

	jobID, err := jobService.SubmitJob(submission)
	if err != nil {
		logger.Fatal("Failed to submit job", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	workerCtx, cancelWorkers := context.WithCancel(ctx)

	worker := workerservice.NewWorkerService(
		inproc.NewCoordinatorClient(jobService),
		workerservice.NewTaskExecutor(jobs.Default(), logger),
		config.WorkerPoolConfig{
			Concurrency: *workers,
			MinBackoff:  10 * time.Millisecond,
			MaxBackoff:  200 * time.Millisecond,
		},
		logger,
	)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		_ = worker.Run(workerCtx)
	}()

	logger.Info("Starting job",
		"job", *app,
		"job_id", jobID,
		"input_files", len(inputFiles),
		"output", outputDir,
		"reducers", *reducers,
	)
	start := time.Now()

	result := waitForJob(ctx, jobService, jobID)
	cancelWorkers()
	<-workerDone

	switch {
	case ctx.Err() != nil:
		logger.Fatal("Job interrupted", "job_id", jobID)
	case result.Failed:
		job, err := jobService.GetJob(jobID)
		if err == nil && job.Failure != nil {
			logger.Fatal("Job failed", "job_id", jobID, "task_type", job.Failure.TaskType, "task_index", job.Failure.TaskIndex, "error", job.Failure.Error)
		}
		logger.Fatal("Job failed", "job_id", jobID)
	}

	logger.Info("Job completed successfully", "job_id", jobID, "duration", time.Since(start).String())
}

func waitForJob(ctx context.Context, jobService core.JobService, jobID int) core.PollResult {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if result := jobService.PollJob(jobID); result.Done {
			return result
		}
		select {
		case <-ctx.Done():
			return core.PollResult{}
		case <-ticker.C:
		}
	}
}
