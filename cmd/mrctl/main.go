package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nemanja-m/mrsched/internal/cli"
	"github.com/nemanja-m/mrsched/internal/shared/config"
	"github.com/nemanja-m/mrsched/internal/shared/logging"
	"github.com/nemanja-m/mrsched/internal/shared/rpc"
)

const usage = `usage: mrctl <command> [flags]

commands:
  submit   submit a job from flags or a manifest file
  poll     report whether a job is done`

// patterns collects repeated or comma separated -input values.
type patterns []string

func (p *patterns) String() string { return strings.Join(*p, ",") }

func (p *patterns) Set(value string) error {
	for pattern := range strings.SplitSeq(value, ",") {
		if pattern = strings.TrimSpace(pattern); pattern != "" {
			*p = append(*p, pattern)
		}
	}
	return nil
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "submit":
		err = runSubmit(ctx, os.Args[2:])
	case "poll":
		err = runPoll(ctx, os.Args[2:])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "mrctl:", err)
		os.Exit(1)
	}
}

type connFlags struct {
	addr     *string
	timeout  *time.Duration
	logLevel *string
}

func registerConnFlags(fs *flag.FlagSet) connFlags {
	return connFlags{
		addr:     fs.String("addr", "localhost:9090", "coordinator gRPC address"),
		timeout:  fs.Duration("timeout", 5*time.Second, "per-call timeout"),
		logLevel: fs.String("log-level", "warn", "log level (debug, info, warn, error)"),
	}
}

func (f connFlags) client() (*cli.Client, func() error, error) {
	logger, err := logging.New(config.LoggingConfig{Level: *f.logLevel, Format: "text"})
	if err != nil {
		return nil, nil, err
	}
	conn, err := rpc.Dial(config.CoordinatorConnConfig{
		Addr:       *f.addr,
		RPCTimeout: *f.timeout,
		GRPC: config.WorkerGRPCConfig{
			KeepaliveTime:    30 * time.Second,
			KeepaliveTimeout: *f.timeout,
		},
	})
	if err != nil {
		return nil, nil, err
	}
	return cli.NewClient(rpc.NewCoordinatorClient(conn), time.Second, logger), conn.Close, nil
}

func runSubmit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	conn := registerConnFlags(fs)
	var inputs patterns
	fs.Var(&inputs, "input", "input glob pattern (repeatable or comma separated)")
	var (
		manifestPath = fs.String("f", "", "path to a job manifest (yaml)")
		app          = fs.String("app", "", "application name")
		reducers     = fs.Int("reducers", 1, "number of reduce tasks")
		output       = fs.String("output", "", "output directory")
		jobArgs      = fs.String("args", "", "opaque arguments passed to map and reduce")
		wait         = fs.Bool("wait", false, "poll until the job is done")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	var manifest *cli.Manifest
	if *manifestPath != "" {
		m, err := cli.LoadManifest(*manifestPath)
		if err != nil {
			return err
		}
		manifest = m
	} else {
		manifest = &cli.Manifest{
			App:      *app,
			Inputs:   inputs,
			Reducers: *reducers,
			Output:   *output,
			Args:     *jobArgs,
		}
	}

	req, err := manifest.SubmitRequest()
	if err != nil {
		return err
	}

	client, closeConn, err := conn.client()
	if err != nil {
		return err
	}
	defer closeConn()

	callCtx, cancel := context.WithTimeout(ctx, *conn.timeout)
	jobID, err := client.Submit(callCtx, req)
	cancel()
	if err != nil {
		return err
	}
	fmt.Printf("job %d submitted (%d map tasks, %d reduce tasks)\n", jobID, len(req.Files), req.NReduce)

	if !*wait {
		return nil
	}
	resp, err := client.Wait(ctx, jobID)
	if err != nil {
		return err
	}
	return report(jobID, resp)
}

func runPoll(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("poll", flag.ExitOnError)
	conn := registerConnFlags(fs)
	jobID := fs.Int("job", -1, "job id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *jobID < 0 {
		return fmt.Errorf("-job is required")
	}

	client, closeConn, err := conn.client()
	if err != nil {
		return err
	}
	defer closeConn()

	callCtx, cancel := context.WithTimeout(ctx, *conn.timeout)
	defer cancel()
	resp, err := client.Poll(callCtx, *jobID)
	if err != nil {
		return err
	}
	if !resp.Done {
		fmt.Printf("job %d running\n", *jobID)
		return nil
	}
	return report(*jobID, resp)
}

func report(jobID int, resp *rpc.PollJobResponse) error {
	if resp.Failed {
		return fmt.Errorf("job %d failed", jobID)
	}
	fmt.Printf("job %d done\n", jobID)
	return nil
}
