package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// WorkerConfig contains all configuration for the worker service.
type WorkerConfig struct {
	Worker      WorkerPoolConfig      `mapstructure:"worker"`
	Coordinator CoordinatorConnConfig `mapstructure:"coordinator"`
	Logging     LoggingConfig         `mapstructure:"logging"`
}

// WorkerPoolConfig controls how many tasks a worker runs at once and how it
// backs off when the coordinator has nothing to hand out.
type WorkerPoolConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	MinBackoff  time.Duration `mapstructure:"min_backoff"`
	MaxBackoff  time.Duration `mapstructure:"max_backoff"`
}

// CoordinatorConnConfig contains coordinator connection configuration.
type CoordinatorConnConfig struct {
	Addr       string           `mapstructure:"addr"`
	RPCTimeout time.Duration    `mapstructure:"rpc_timeout"`
	GRPC       WorkerGRPCConfig `mapstructure:"grpc"`
}

// WorkerGRPCConfig contains worker gRPC client configuration.
type WorkerGRPCConfig struct {
	KeepaliveTime    time.Duration `mapstructure:"keepalive_time"`
	KeepaliveTimeout time.Duration `mapstructure:"keepalive_timeout"`
}

// LoadWorker loads the worker configuration from the given path.
// If configPath is empty, it looks for worker.yaml in the config/ directory.
// Environment variables with MRSCHED_WORKER_ prefix override config file values.
func LoadWorker(configPath string) (*WorkerConfig, error) {
	v := viper.New()

	v.SetDefault("worker.concurrency", 1)
	v.SetDefault("worker.min_backoff", 100*time.Millisecond)
	v.SetDefault("worker.max_backoff", 5*time.Second)
	v.SetDefault("coordinator.addr", "localhost:9090")
	v.SetDefault("coordinator.rpc_timeout", 5*time.Second)
	v.SetDefault("coordinator.grpc.keepalive_time", 30*time.Second)
	v.SetDefault("coordinator.grpc.keepalive_timeout", 5*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	var cfg WorkerConfig
	if err := load(v, configPath, "worker", "MRSCHED_WORKER", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *WorkerConfig) Validate() error {
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("worker.concurrency must be at least 1, got %d", c.Worker.Concurrency)
	}
	if c.Worker.MinBackoff <= 0 || c.Worker.MaxBackoff < c.Worker.MinBackoff {
		return fmt.Errorf("worker backoff must satisfy 0 < min_backoff <= max_backoff, got %s..%s",
			c.Worker.MinBackoff, c.Worker.MaxBackoff)
	}
	return nil
}
