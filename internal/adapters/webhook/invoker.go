// Package webhook delivers paid jobs to the configured Make.com webhook and
// captures the scenario output.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/core"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/domain/model"
)

const defaultInvokeTimeout = 5 * time.Minute

// StatusError is returned when the webhook responds with a non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return e.Status
	}
	return fmt.Sprintf("%s: %s", e.Status, body)
}

// RequestError is returned when the request never produced a response, e.g.
// connection refused or DNS failure. Timeouts are not RequestErrors; they
// unwrap to context.DeadlineExceeded instead.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string { return e.Err.Error() }
func (e *RequestError) Unwrap() error { return e.Err }

// Config holds settings for the webhook invoker.
type Config struct {
	// WebhookURL is the Make.com webhook endpoint.
	WebhookURL string
	// Timeout bounds the single delivery attempt. Defaults to 5m, matching
	// long-running downstream scenarios.
	Timeout time.Duration
	// AllowedDomains, when set, restricts the webhook host to the listed
	// registrable domains (eTLD+1), e.g. "make.com".
	AllowedDomains []string
	// Client overrides the HTTP client, mainly for tests.
	Client *http.Client
}

// Invoker performs the single downstream call for a paid job. It never
// retries; a failed delivery is terminal for the job.
type Invoker struct {
	webhookURL string
	timeout    time.Duration
	client     *http.Client
}

// NewInvoker builds a webhook invoker. The webhook URL must be absolute and,
// when a domain allowlist is configured, resolve to a permitted registrable
// domain.
func NewInvoker(cfg Config) (*Invoker, error) {
	webhookURL := strings.TrimSpace(cfg.WebhookURL)
	if webhookURL == "" {
		return nil, errors.New("webhook url is required")
	}

	parsed, err := url.Parse(webhookURL)
	if err != nil {
		return nil, fmt.Errorf("parse webhook url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("webhook url must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("webhook url is missing a host")
	}

	if len(cfg.AllowedDomains) > 0 {
		if err := checkAllowedDomain(parsed.Host, cfg.AllowedDomains); err != nil {
			return nil, err
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultInvokeTimeout
	}

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{}
	}

	return &Invoker{
		webhookURL: webhookURL,
		timeout:    timeout,
		client:     hc,
	}, nil
}

// Invoke posts the job's input data to the webhook and returns the response
// body. The payload is the flat key/value form Make.com scenarios consume,
// with job_id and identifier_from_purchaser appended for tracking.
func (i *Invoker) Invoke(ctx context.Context, job *model.Job) (json.RawMessage, error) {
	if job == nil {
		return nil, errors.New("job is required")
	}

	payload := make(map[string]string, len(job.InputData)+2)
	for _, item := range job.InputData {
		payload[item.Key] = item.Value
	}
	payload["job_id"] = job.ID
	payload["identifier_from_purchaser"] = job.PurchaserID

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode webhook payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.webhookURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("webhook request: %w", err)
		}
		return nil, &RequestError{Err: err}
	}

	respBody, readErr := io.ReadAll(resp.Body)
	closeErr := resp.Body.Close()
	if readErr != nil {
		if errors.Is(readErr, context.DeadlineExceeded) {
			return nil, errors.Join(fmt.Errorf("read webhook response: %w", readErr), closeErr)
		}
		return nil, &RequestError{Err: errors.Join(fmt.Errorf("read webhook response: %w", readErr), closeErr)}
	}
	if closeErr != nil {
		return nil, &RequestError{Err: fmt.Errorf("close webhook response: %w", closeErr)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(respBody),
		}
	}

	var output json.RawMessage
	if err := json.Unmarshal(respBody, &output); err != nil {
		return nil, fmt.Errorf("decode webhook response: %w", err)
	}
	return output, nil
}

func checkAllowedDomain(host string, allowed []string) error {
	hostname := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		hostname = h
	}
	hostname = strings.ToLower(hostname)

	registrable, err := publicsuffix.EffectiveTLDPlusOne(hostname)
	if err != nil {
		return fmt.Errorf("resolve registrable domain for %q: %w", hostname, err)
	}

	for _, domain := range allowed {
		if registrable == strings.ToLower(strings.TrimSpace(domain)) {
			return nil
		}
	}
	return fmt.Errorf("webhook host %q is not in the allowed domains", hostname)
}

var _ core.WebhookInvoker = (*Invoker)(nil)
