package config

import (
	"strings"
	"time"
)

// StoreBackend selects which job store implementation the proxy runs with.
type StoreBackend string

// Supported job store backends.
const (
	StoreMemory   StoreBackend = "memory"
	StoreRedis    StoreBackend = "redis"
	StorePostgres StoreBackend = "postgres"
)

// StoreConfig selects and tunes the job store backend.
type StoreConfig struct {
	// Backend picks the store implementation: memory, redis, or postgres.
	// Memory is the default and keeps jobs only for the process lifetime.
	Backend StoreBackend `env:"JOB_STORE" envDefault:"memory"`

	// RedisPrefix namespaces job keys when the redis backend is selected.
	RedisPrefix string `env:"JOB_REDIS_PREFIX" envDefault:"job:"`
}

// Sanitize normalizes store configuration values. Unknown backends are left
// as-is so bootstrap can reject them with a clear error.
func (c *StoreConfig) Sanitize() {
	c.Backend = StoreBackend(strings.ToLower(strings.TrimSpace(string(c.Backend))))
	if c.RedisPrefix == "" {
		c.RedisPrefix = "job:"
	}
}

// SweeperConfig tunes the background loop that deletes terminal jobs after a
// retention window so the store does not grow without bound.
type SweeperConfig struct {
	// Interval is how often the sweep runs.
	Interval time.Duration `env:"JOB_SWEEP_INTERVAL" envDefault:"10m"`

	// Retention is how long terminal jobs are kept before deletion. The
	// redis store also uses this as the key TTL.
	Retention time.Duration `env:"JOB_RETENTION" envDefault:"24h"`
}

// Sanitize applies guardrails to sweeper configuration values.
func (c *SweeperConfig) Sanitize() {
	if c.Interval < time.Minute {
		c.Interval = 10 * time.Minute
	}
	if c.Retention < time.Hour {
		c.Retention = 24 * time.Hour
	}
}
