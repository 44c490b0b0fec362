package config

import (
	"fmt"
	"time"

	"github.com/imamik/rosahcp/internal/graph"
	"github.com/imamik/rosahcp/internal/retry"
)

// Config holds the service configuration.
type Config struct {
	Server       ServerConfig       `mapstructure:"server" yaml:"server"`
	Store        StoreConfig        `mapstructure:"store" yaml:"store"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator" yaml:"orchestrator"`
	Retry        RetryConfig        `mapstructure:"retry" yaml:"retry"`
}

type ServerConfig struct {
	ListenAddr    string `mapstructure:"listen_addr" yaml:"listen_addr"`
	EnableMetrics bool   `mapstructure:"enable_metrics" yaml:"enable_metrics"`
}

// StoreConfig selects the persistence backend. Backend "file" uses Dir;
// backend "s3" uses the S3 fields; backend "none" disables durability.
type StoreConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	Dir     string `mapstructure:"dir" yaml:"dir"`

	S3Endpoint  string `mapstructure:"s3_endpoint" yaml:"s3_endpoint"`
	S3Region    string `mapstructure:"s3_region" yaml:"s3_region"`
	S3Bucket    string `mapstructure:"s3_bucket" yaml:"s3_bucket"`
	S3AccessKey string `mapstructure:"s3_access_key" yaml:"s3_access_key"`
	S3SecretKey string `mapstructure:"s3_secret_key" yaml:"s3_secret_key"`
}

type OrchestratorConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	CallTimeout  time.Duration `mapstructure:"call_timeout" yaml:"call_timeout"`
	PoolSize     int           `mapstructure:"pool_size" yaml:"pool_size"`
	EventBuffer  int           `mapstructure:"event_buffer" yaml:"event_buffer"`
}

// RetryConfig is the per-kind retry policy table. Kinds absent from PerKind
// fall back to Default.
type RetryConfig struct {
	Default retry.Policy            `mapstructure:"default" yaml:"default"`
	PerKind map[string]retry.Policy `mapstructure:"per_kind" yaml:"per_kind"`
}

// ApplyDefaults fills unset fields. Network and cluster kinds get long
// deadlines out of the box; secrets converge quickly or not at all.
func (c *Config) ApplyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "file"
	}
	if c.Store.Backend == "file" && c.Store.Dir == "" {
		c.Store.Dir = "jobs"
	}
	if c.Store.S3Region == "" {
		c.Store.S3Region = "us-east-1"
	}
	if c.Orchestrator.PollInterval <= 0 {
		c.Orchestrator.PollInterval = 15 * time.Second
	}
	if c.Orchestrator.CallTimeout <= 0 {
		c.Orchestrator.CallTimeout = 30 * time.Second
	}
	if c.Orchestrator.PoolSize <= 0 {
		c.Orchestrator.PoolSize = 8
	}
	if c.Orchestrator.EventBuffer <= 0 {
		c.Orchestrator.EventBuffer = 256
	}

	if c.Retry.Default == (retry.Policy{}) {
		c.Retry.Default = retry.Policy{
			MaxAttempts: 40,
			BaseDelay:   2 * time.Second,
			MaxDelay:    30 * time.Second,
			Jitter:      500 * time.Millisecond,
			Deadline:    10 * time.Minute,
		}
	}
	if c.Retry.PerKind == nil {
		c.Retry.PerKind = map[string]retry.Policy{}
	}
	defaults := map[string]retry.Policy{
		string(graph.KindNetwork): {
			MaxAttempts: 120,
			BaseDelay:   5 * time.Second,
			MaxDelay:    time.Minute,
			Jitter:      time.Second,
			Deadline:    45 * time.Minute,
		},
		string(graph.KindControlPlane): {
			MaxAttempts: 120,
			BaseDelay:   5 * time.Second,
			MaxDelay:    time.Minute,
			Jitter:      time.Second,
			Deadline:    40 * time.Minute,
		},
		string(graph.KindCluster): {
			MaxAttempts: 120,
			BaseDelay:   5 * time.Second,
			MaxDelay:    time.Minute,
			Jitter:      time.Second,
			Deadline:    40 * time.Minute,
		},
		string(graph.KindSecret): {
			MaxAttempts: 10,
			BaseDelay:   time.Second,
			MaxDelay:    10 * time.Second,
			Jitter:      200 * time.Millisecond,
			Deadline:    2 * time.Minute,
		},
	}
	for kind, policy := range defaults {
		if _, ok := c.Retry.PerKind[kind]; !ok {
			c.Retry.PerKind[kind] = policy
		}
	}
}

// Validate checks cross-field consistency after defaults were applied.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "file":
		if c.Store.Dir == "" {
			return fmt.Errorf("store.dir is required for the file backend")
		}
	case "s3":
		if c.Store.S3Bucket == "" {
			return fmt.Errorf("store.s3_bucket is required for the s3 backend")
		}
	case "none":
	default:
		return fmt.Errorf("unknown store backend %q (want file, s3 or none)", c.Store.Backend)
	}

	for kind := range c.Retry.PerKind {
		if !graph.NodeKind(kind).Valid() {
			return fmt.Errorf("retry.per_kind references unknown resource kind %q", kind)
		}
	}
	if c.Retry.Default.MaxAttempts <= 0 && c.Retry.Default.Deadline <= 0 {
		return fmt.Errorf("retry.default must bound attempts or set a deadline")
	}
	return nil
}
