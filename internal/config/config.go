package config

import "time"

// Config holds every runtime-tunable input enumerated for the server.
// Values are set via functional options over sensible defaults, grounded
// on the teacher's DatabaseOption pattern.
type Config struct {
	Port              int
	BufferSize        int
	QueryTimeout      time.Duration
	ConnectionTimeout time.Duration
	EvictionThreshold float64
	TargetUtilization float64
	EvictionInterval  time.Duration
	DataRoot          string
}

const (
	DefaultPort               = 5432
	DefaultBufferSize         = 128
	DefaultQueryTimeoutMS     = 30000
	DefaultConnTimeoutMS      = 10000
	DefaultEvictionThreshold  = 0.80
	DefaultTargetUtilization  = 0.60
	DefaultEvictionIntervalMS = 1000
	DefaultDataRoot           = "./data"
)

// New builds a Config from defaults, applying opts in order.
func New(opts ...Option) *Config {
	c := &Config{
		Port:              DefaultPort,
		BufferSize:        DefaultBufferSize,
		QueryTimeout:      DefaultQueryTimeoutMS * time.Millisecond,
		ConnectionTimeout: DefaultConnTimeoutMS * time.Millisecond,
		EvictionThreshold: DefaultEvictionThreshold,
		TargetUtilization: DefaultTargetUtilization,
		EvictionInterval:  DefaultEvictionIntervalMS * time.Millisecond,
		DataRoot:          DefaultDataRoot,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Option mutates a Config under construction.
type Option func(*Config)

func WithPort(port int) Option {
	return func(c *Config) {
		if port > 0 {
			c.Port = port
		}
	}
}

func WithBufferSize(pages int) Option {
	return func(c *Config) {
		if pages > 0 {
			c.BufferSize = pages
		}
	}
}

func WithQueryTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.QueryTimeout = d
		}
	}
}

func WithConnectionTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.ConnectionTimeout = d
		}
	}
}

func WithDataRoot(path string) Option {
	return func(c *Config) {
		if path != "" {
			c.DataRoot = path
		}
	}
}

func WithEvictionThreshold(threshold float64) Option {
	return func(c *Config) {
		if threshold > 0 && threshold <= 1 {
			c.EvictionThreshold = threshold
		}
	}
}

func WithTargetUtilization(target float64) Option {
	return func(c *Config) {
		if target > 0 && target <= 1 {
			c.TargetUtilization = target
		}
	}
}

func WithEvictionInterval(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.EvictionInterval = d
		}
	}
}
