package config

import "time"

// PublisherConfig tunes dispatch, retry, and the queue loop.
type PublisherConfig struct {
	// MaxConcurrent bounds simultaneous platform attempts per job.
	MaxConcurrent int `env:"PUBLISHER_MAX_CONCURRENT" envDefault:"4"`

	// MaxRetries is the default per-platform retry budget when the submit
	// request does not set one.
	MaxRetries int `env:"PUBLISHER_MAX_RETRIES" envDefault:"3"`

	// RetryBaseDelay is the backoff delay after the first failure; each
	// subsequent failure doubles it.
	RetryBaseDelay time.Duration `env:"PUBLISHER_RETRY_BASE_DELAY" envDefault:"1m"`

	// RetryMaxDelay caps the backoff delay. Zero means uncapped.
	RetryMaxDelay time.Duration `env:"PUBLISHER_RETRY_MAX_DELAY" envDefault:"0"`

	// RateLimitWaitMax bounds how long one attempt waits for a platform
	// rate-limit window to reset.
	RateLimitWaitMax time.Duration `env:"PUBLISHER_RATE_LIMIT_WAIT_MAX" envDefault:"30s"`

	// QueueInterval is the poll interval of the queue dispatcher loop.
	QueueInterval time.Duration `env:"PUBLISHER_QUEUE_INTERVAL" envDefault:"1s"`

	// QueueBatchSize caps entries popped per queue loop tick.
	QueueBatchSize int `env:"PUBLISHER_QUEUE_BATCH_SIZE" envDefault:"50"`

	// ContentTTL is how long cached content for scheduled jobs is retained.
	ContentTTL time.Duration `env:"PUBLISHER_CONTENT_TTL" envDefault:"24h"`

	// NotifyTimeout bounds each status notification sink call.
	NotifyTimeout time.Duration `env:"PUBLISHER_NOTIFY_TIMEOUT" envDefault:"5s"`
}

// Sanitize applies guardrails to publisher configuration.
func (c *PublisherConfig) Sanitize() {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 4
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 3
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = time.Minute
	}
	if c.RateLimitWaitMax <= 0 {
		c.RateLimitWaitMax = 30 * time.Second
	}
	if c.QueueInterval <= 0 {
		c.QueueInterval = time.Second
	}
	if c.QueueBatchSize <= 0 {
		c.QueueBatchSize = 50
	}
	if c.ContentTTL <= 0 {
		c.ContentTTL = 24 * time.Hour
	}
	if c.NotifyTimeout <= 0 {
		c.NotifyTimeout = 5 * time.Second
	}
}
