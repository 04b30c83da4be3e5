package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/nemanja-m/mrsched/internal/shared/logging"
	"github.com/nemanja-m/mrsched/internal/shared/rpc"
)

// Client submits and polls jobs over the coordinator rpc surface.
type Client struct {
	coordinator  rpc.CoordinatorClient
	pollInterval time.Duration
	logger       logging.Logger
}

func NewClient(coordinator rpc.CoordinatorClient, pollInterval time.Duration, logger logging.Logger) *Client {
	return &Client{
		coordinator:  coordinator,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

func (c *Client) Submit(ctx context.Context, req *rpc.SubmitJobRequest) (int, error) {
	resp, err := c.coordinator.SubmitJob(ctx, req)
	if err != nil {
		return -1, fmt.Errorf("failed to submit job: %w", err)
	}
	c.logger.Info("Job submitted", "job_id", resp.JobID, "app", req.App, "num_map_tasks", len(req.Files))
	return resp.JobID, nil
}

func (c *Client) Poll(ctx context.Context, jobID int) (*rpc.PollJobResponse, error) {
	resp, err := c.coordinator.PollJob(ctx, &rpc.PollJobRequest{JobID: jobID})
	if err != nil {
		return nil, fmt.Errorf("failed to poll job %d: %w", jobID, err)
	}
	if resp.InvalidJobID {
		return nil, fmt.Errorf("job %d is not known to the coordinator", jobID)
	}
	return resp, nil
}

// Wait polls until the job is done or ctx is cancelled. Transient poll
// errors are logged and retried.
func (c *Client) Wait(ctx context.Context, jobID int) (*rpc.PollJobResponse, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		resp, err := c.coordinator.PollJob(ctx, &rpc.PollJobRequest{JobID: jobID})
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("Failed to poll job", "job_id", jobID, "error", err)
		case resp.InvalidJobID:
			return nil, fmt.Errorf("job %d is not known to the coordinator", jobID)
		case resp.Done:
			return resp, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
