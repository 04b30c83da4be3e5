package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// CoordinatorConfig contains all configuration for the coordinator service.
type CoordinatorConfig struct {
	REST      RESTConfig      `mapstructure:"rest"`
	GRPC      GRPCConfig      `mapstructure:"grpc"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Retention RetentionConfig `mapstructure:"retention"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// RESTConfig contains REST API server configuration.
type RESTConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// GRPCConfig contains gRPC server configuration.
type GRPCConfig struct {
	Addr             string        `mapstructure:"addr"`
	KeepaliveMinTime time.Duration `mapstructure:"keepalive_min_time"`
}

// SchedulerConfig contains task scheduling configuration.
type SchedulerConfig struct {
	// TaskTimeout is how long a task may stay in progress before it is
	// handed out again.
	TaskTimeout time.Duration `mapstructure:"task_timeout"`
}

// RetentionConfig controls pruning of finished jobs. A zero TTL keeps jobs forever.
type RetentionConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	CheckInterval time.Duration `mapstructure:"check_interval"`
}

// LoadCoordinator loads the coordinator configuration from the given path.
// If configPath is empty, it looks for coordinator.yaml in the config/ directory.
// Environment variables with MRSCHED_COORDINATOR_ prefix override config file values.
func LoadCoordinator(configPath string) (*CoordinatorConfig, error) {
	v := viper.New()

	v.SetDefault("rest.addr", ":8080")
	v.SetDefault("rest.read_timeout", 15*time.Second)
	v.SetDefault("rest.write_timeout", 15*time.Second)
	v.SetDefault("rest.idle_timeout", 60*time.Second)
	v.SetDefault("grpc.addr", ":9090")
	v.SetDefault("grpc.keepalive_min_time", 5*time.Second)
	v.SetDefault("scheduler.task_timeout", 10*time.Second)
	v.SetDefault("retention.ttl", 24*time.Hour)
	v.SetDefault("retention.check_interval", time.Minute)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	var cfg CoordinatorConfig
	if err := load(v, configPath, "coordinator", "MRSCHED_COORDINATOR", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *CoordinatorConfig) Validate() error {
	if c.Scheduler.TaskTimeout <= 0 {
		return fmt.Errorf("scheduler.task_timeout must be positive, got %s", c.Scheduler.TaskTimeout)
	}
	if c.Retention.TTL < 0 {
		return fmt.Errorf("retention.ttl must not be negative, got %s", c.Retention.TTL)
	}
	if c.Retention.TTL > 0 && c.Retention.CheckInterval <= 0 {
		return fmt.Errorf("retention.check_interval must be positive, got %s", c.Retention.CheckInterval)
	}
	return nil
}
