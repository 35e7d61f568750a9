// Package config holds the environment-driven configuration of the
// publishing scheduler.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config files for
// the available variables:
//   - store.go: job store and queue backends
//   - publisher.go: dispatch, retry, and queue loop tuning
//   - platforms.go: per-platform credentials and endpoints
//   - http.go: HTTP server configuration
//   - observability.go: metrics configuration
package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct composing the
// domain-specific configs.
type AppConfig struct {
	// IsDev controls development mode behavior.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Services is the comma-delimited list of service modes to run.
	Services string `env:"SERVICES" envDefault:"api"`

	Store     StoreConfig    `envPrefix:"STORE_"`
	Redis     RedisConfig    `envPrefix:"REDIS_"`
	Postgres  DBConfig       `envPrefix:"DB_"`
	Publisher PublisherConfig
	Platforms PlatformsConfig
	HTTP      HTTPConfig

	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
func (c *AppConfig) Sanitize() {
	c.Store.Sanitize()
	c.Publisher.Sanitize()
	c.HTTP.Sanitize()
	c.Observability.Sanitize()
	c.detectDevMode()
}

func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		envName := strings.ToLower(os.Getenv("APP_ENV"))
		c.IsDev = envName == "development" || envName == "dev"
	}
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}
