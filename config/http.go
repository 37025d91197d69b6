package config

import "fmt"

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Port is the TCP port the HTTP server listens on.
	Port int `env:"PORT" envDefault:"8000"`
}

// Addr returns the listen address in host:port form.
func (c *HTTPConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Sanitize applies guardrails to HTTP configuration values.
func (c *HTTPConfig) Sanitize() {
	if c.Port < 1 || c.Port > 65535 {
		c.Port = 8000
	}
}
