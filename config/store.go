package config

import (
	"net"
	"net/url"
	"strconv"
	"time"
)

// StoreBackend selects the job store and queue implementation.
type StoreBackend string

const (
	// StoreBackendMemory keeps jobs and the queue in process memory.
	StoreBackendMemory StoreBackend = "memory"
	// StoreBackendRedis keeps jobs and the queue in Redis.
	StoreBackendRedis StoreBackend = "redis"
	// StoreBackendPostgres keeps jobs in Postgres; the queue stays in Redis.
	StoreBackendPostgres StoreBackend = "postgres"
)

// StoreConfig selects and tunes the persistence backend.
type StoreConfig struct {
	Backend StoreBackend `env:"BACKEND" envDefault:"memory"`

	// CompletedTTL is how long terminal jobs stay queryable.
	CompletedTTL time.Duration `env:"COMPLETED_TTL" envDefault:"24h"`

	// ReapInterval is how often the reaper scans for expired jobs.
	ReapInterval time.Duration `env:"REAP_INTERVAL" envDefault:"5m"`

	// ReapBatchSize caps deletions per reap pass.
	ReapBatchSize int `env:"REAP_BATCH_SIZE" envDefault:"500"`
}

// Sanitize applies guardrails to store configuration.
func (c *StoreConfig) Sanitize() {
	if c.Backend == "" {
		c.Backend = StoreBackendMemory
	}
	if c.CompletedTTL <= 0 {
		c.CompletedTTL = 24 * time.Hour
	}
	if c.ReapInterval <= 0 {
		c.ReapInterval = 5 * time.Minute
	}
	if c.ReapBatchSize <= 0 {
		c.ReapBatchSize = 500
	}
}

// RedisConfig contains Redis connection configuration.
type RedisConfig struct {
	Addr     string `env:"ADDR"     envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`
}

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"publisher"`
	Password string `env:"PASSWORD" envDefault:"publisher"`
	Name     string `env:"NAME"     envDefault:"publisher"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"`
}

// DSN renders the config as a pgx connection URL. url.URL handles special
// characters in credentials.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	q := u.Query()
	q.Set("sslmode", c.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
