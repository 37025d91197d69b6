package config

import (
	"strings"
	"time"
)

// DownstreamConfig holds settings for the Make.com webhook that performs the
// actual work once a job's payment is confirmed.
type DownstreamConfig struct {
	// WebhookURL is the Make.com scenario webhook to invoke.
	WebhookURL string `env:"MAKE_WEBHOOK_URL"`

	// Timeout bounds the whole webhook call. Make.com scenarios can run for
	// minutes, so the default is generous.
	Timeout time.Duration `env:"MAKE_WEBHOOK_TIMEOUT" envDefault:"5m"`

	// AllowedDomains optionally restricts which hosts the webhook URL may
	// point at. Empty means any host is accepted.
	AllowedDomains []string `env:"MAKE_ALLOWED_DOMAINS" envSeparator:","`
}

// Sanitize applies guardrails to downstream configuration values.
func (c *DownstreamConfig) Sanitize() {
	c.WebhookURL = strings.TrimSpace(c.WebhookURL)

	if c.Timeout < time.Second {
		c.Timeout = 5 * time.Minute
	}

	domains := make([]string, 0, len(c.AllowedDomains))
	for _, domain := range c.AllowedDomains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain != "" {
			domains = append(domains, domain)
		}
	}
	c.AllowedDomains = domains
}

// IsConfigured reports whether a webhook URL has been provided. Job creation
// is rejected and availability reports degraded when false.
func (c *DownstreamConfig) IsConfigured() bool {
	return c.WebhookURL != ""
}
