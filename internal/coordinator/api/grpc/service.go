package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/nemanja-m/mrsched/internal/coordinator/core"
	"github.com/nemanja-m/mrsched/internal/shared/logging"
	"github.com/nemanja-m/mrsched/internal/shared/rpc"
)

// CoordinatorService adapts core.JobService to the rpc surface used by
// workers and mrctl.
type CoordinatorService struct {
	jobService core.JobService

	logger logging.Logger
}

func NewCoordinatorService(jobService core.JobService, logger logging.Logger) *CoordinatorService {
	return &CoordinatorService{
		jobService: jobService,
		logger:     logger,
	}
}

func (s *CoordinatorService) SubmitJob(
	ctx context.Context,
	req *rpc.SubmitJobRequest,
) (*rpc.SubmitJobResponse, error) {
	jobID, err := s.jobService.SubmitJob(core.JobSubmission{
		App:        req.App,
		InputFiles: req.Files,
		NReduce:    req.NReduce,
		OutputDir:  req.OutputDir,
		Args:       req.Args,
	})
	if err != nil {
		s.logger.Warn("Job submission rejected", "app", req.App, "error", err)
		return &rpc.SubmitJobResponse{JobID: -1}, submitError(err)
	}
	return &rpc.SubmitJobResponse{JobID: jobID}, nil
}

func submitError(err error) error {
	switch {
	case errors.Is(err, core.ErrUnknownApplication):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, core.ErrInvalidSubmission):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func (s *CoordinatorService) PollJob(
	ctx context.Context,
	req *rpc.PollJobRequest,
) (*rpc.PollJobResponse, error) {
	result := s.jobService.PollJob(req.JobID)
	return &rpc.PollJobResponse{
		Done:         result.Done,
		Failed:       result.Failed,
		InvalidJobID: result.InvalidJobID,
	}, nil
}

func (s *CoordinatorService) GetTask(
	ctx context.Context,
	req *rpc.GetTaskRequest,
) (*rpc.GetTaskResponse, error) {
	assignment, ok := s.jobService.GetTask()
	if !ok {
		return &rpc.GetTaskResponse{Wait: true, JobID: -1, Task: -1}, nil
	}

	s.logger.Debug(
		"Task handed out",
		"worker_id", req.WorkerID,
		"job_id", assignment.JobID,
		"task_type", core.TaskTypeFor(assignment.Reduce),
		"task_index", assignment.TaskIndex,
	)

	return &rpc.GetTaskResponse{
		JobID:     assignment.JobID,
		Task:      assignment.TaskIndex,
		Reduce:    assignment.Reduce,
		File:      assignment.InputFile,
		OutputDir: assignment.OutputDir,
		App:       assignment.App,
		NMap:      assignment.NMap,
		NReduce:   assignment.NReduce,
		Args:      assignment.Args,
		Attempt:   assignment.Attempt,
	}, nil
}

func (s *CoordinatorService) FinishTask(
	ctx context.Context,
	req *rpc.FinishTaskRequest,
) (*rpc.FinishTaskResponse, error) {
	s.jobService.FinishTask(core.TaskReport{
		JobID:     req.JobID,
		TaskIndex: req.Task,
		Reduce:    req.Reduce,
		Success:   req.Success,
		Error:     req.Error,
	})
	return &rpc.FinishTaskResponse{}, nil
}
