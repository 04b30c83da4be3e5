package grpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"

	"github.com/google/uuid"

	"github.com/nemanja-m/mrsched/internal/shared/config"
	"github.com/nemanja-m/mrsched/internal/shared/rpc"
	"github.com/nemanja-m/mrsched/internal/worker/core"
)

type CoordinatorClient struct {
	conn   *grpc.ClientConn
	client rpc.CoordinatorClient

	workerID   uuid.UUID
	rpcTimeout time.Duration
}

func NewCoordinatorClient(cfg config.CoordinatorConnConfig, workerID uuid.UUID) (*CoordinatorClient, error) {
	conn, err := rpc.Dial(cfg)
	if err != nil {
		return nil, err
	}
	return newCoordinatorClient(conn, rpc.NewCoordinatorClient(conn), workerID, cfg.RPCTimeout), nil
}

func newCoordinatorClient(
	conn *grpc.ClientConn,
	client rpc.CoordinatorClient,
	workerID uuid.UUID,
	rpcTimeout time.Duration,
) *CoordinatorClient {
	return &CoordinatorClient{
		conn:       conn,
		client:     client,
		workerID:   workerID,
		rpcTimeout: rpcTimeout,
	}
}

func (c *CoordinatorClient) PullTask(ctx context.Context) (*core.Task, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.GetTask(ctx, &rpc.GetTaskRequest{WorkerID: c.workerID.String()})
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if resp.Wait {
		return nil, nil
	}

	return &core.Task{
		JobID:     resp.JobID,
		Index:     resp.Task,
		Reduce:    resp.Reduce,
		InputFile: resp.File,
		OutputDir: resp.OutputDir,
		App:       resp.App,
		NMap:      resp.NMap,
		NReduce:   resp.NReduce,
		Args:      resp.Args,
		Attempt:   resp.Attempt,
	}, nil
}

func (c *CoordinatorClient) CompleteTask(ctx context.Context, task *core.Task) error {
	return c.finishTask(ctx, task, true, "")
}

func (c *CoordinatorClient) FailTask(ctx context.Context, task *core.Task, errMsg string) error {
	return c.finishTask(ctx, task, false, errMsg)
}

func (c *CoordinatorClient) finishTask(ctx context.Context, task *core.Task, success bool, errMsg string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	_, err := c.client.FinishTask(ctx, &rpc.FinishTaskRequest{
		JobID:   task.JobID,
		Task:    task.Index,
		Reduce:  task.Reduce,
		Success: success,
		Error:   errMsg,
	})
	if err != nil {
		return fmt.Errorf("failed to report %s: %w", task, err)
	}
	return nil
}

func (c *CoordinatorClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.rpcTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.rpcTimeout)
}

func (c *CoordinatorClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
