package config

import (
	"strings"
	"time"
)

// PaymentConfig holds connection settings for the Masumi payment service.
// The proxy refuses to create jobs until ServiceURL and APIKey are both set.
type PaymentConfig struct {
	// ServiceURL is the base URL of the payment service API.
	ServiceURL string `env:"PAYMENT_SERVICE_URL"`

	// APIKey authenticates requests to the payment service.
	APIKey string `env:"PAYMENT_API_KEY"`

	// AgentIdentifier names this agent on the payment network.
	AgentIdentifier string `env:"AGENT_IDENTIFIER" envDefault:"linkedin-outreach-generator"`

	// SellerVKey is the seller verification key included in payment requests.
	SellerVKey string `env:"SELLER_VKEY"`

	// Amount is the requested payment amount in the smallest unit of Unit.
	// Kept as a string because the payment service expects it verbatim.
	Amount string `env:"PAYMENT_AMOUNT" envDefault:"10000000"`

	// Unit is the currency unit for Amount.
	Unit string `env:"PAYMENT_UNIT" envDefault:"lovelace"`

	// StatusExpr is a JMESPath expression that extracts the payment status
	// from the payment service's status response.
	StatusExpr string `env:"PAYMENT_STATUS_EXPR" envDefault:"status"`

	// CreateTimeout bounds the payment request creation call.
	CreateTimeout time.Duration `env:"PAYMENT_CREATE_TIMEOUT" envDefault:"30s"`

	// ResolveTimeout bounds each payment status check.
	ResolveTimeout time.Duration `env:"PAYMENT_RESOLVE_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to payment configuration values.
func (c *PaymentConfig) Sanitize() {
	c.ServiceURL = strings.TrimSpace(c.ServiceURL)
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.AgentIdentifier = strings.TrimSpace(c.AgentIdentifier)
	c.SellerVKey = strings.TrimSpace(c.SellerVKey)
	c.Amount = strings.TrimSpace(c.Amount)
	c.Unit = strings.TrimSpace(c.Unit)
	c.StatusExpr = strings.TrimSpace(c.StatusExpr)

	if c.CreateTimeout < time.Second {
		c.CreateTimeout = 30 * time.Second
	}
	if c.ResolveTimeout < time.Second {
		c.ResolveTimeout = 10 * time.Second
	}
}

// IsConfigured reports whether the payment service can be reached at all.
// Job creation is rejected and availability reports degraded when false.
func (c *PaymentConfig) IsConfigured() bool {
	return c.ServiceURL != "" && c.APIKey != ""
}

// MonitorConfig tunes the payment polling loop that watches each job for
// payment confirmation before the downstream webhook fires.
type MonitorConfig struct {
	// PollInterval is the delay between payment status checks.
	PollInterval time.Duration `env:"PAYMENT_POLL_INTERVAL" envDefault:"5s"`

	// MaxAttempts caps the number of status checks before the job times out.
	// The default budget is 60 checks at 5s apart, five minutes total.
	MaxAttempts int `env:"PAYMENT_MAX_ATTEMPTS" envDefault:"60"`

	// FailFast stops polling early when the payment service reports one of
	// TerminalStatuses instead of consuming the remaining attempts.
	FailFast bool `env:"PAYMENT_FAIL_FAST" envDefault:"false"`

	// TerminalStatuses lists payment states treated as unrecoverable when
	// FailFast is enabled.
	TerminalStatuses []string `env:"PAYMENT_TERMINAL_STATUSES" envSeparator:"," envDefault:"expired,failed,refunded"`
}

// Sanitize applies guardrails to monitor configuration values.
func (c *MonitorConfig) Sanitize() {
	if c.PollInterval < 100*time.Millisecond {
		c.PollInterval = 5 * time.Second
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 60
	}

	statuses := make([]string, 0, len(c.TerminalStatuses))
	for _, status := range c.TerminalStatuses {
		status = strings.ToLower(strings.TrimSpace(status))
		if status != "" {
			statuses = append(statuses, status)
		}
	}
	c.TerminalStatuses = statuses
}
