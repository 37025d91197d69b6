// Package payment provides the HTTP client for the Masumi payment service.
// It creates payment requests for new jobs and resolves the on-chain status
// of pending payments.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/core"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/domain/model"
)

const (
	defaultCreateTimeout  = 30 * time.Second
	defaultResolveTimeout = 10 * time.Second
	defaultStatusExpr     = "status"
)

// JMESPathEvaluator abstracts JMESPath operations for testability.
type JMESPathEvaluator interface {
	Validate(expr string) error
	Evaluate(expr string, data any) (any, error)
}

// jmespathLibEvaluator implements JMESPathEvaluator using go-jmespath.
type jmespathLibEvaluator struct{}

func (j jmespathLibEvaluator) Validate(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	_, err := jmespath.Compile(expr)
	return err
}

func (j jmespathLibEvaluator) Evaluate(expr string, data any) (any, error) {
	return jmespath.Search(expr, data)
}

// RejectionError carries a non-200 response from the payment service so
// callers can pass both the status code and the body through to their own
// clients.
type RejectionError struct {
	StatusCode int
	Body       string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("payment service returned %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Config holds settings for the payment service client.
type Config struct {
	// ServiceURL is the base URL of the payment service API.
	ServiceURL string
	// APIKey is sent as the x-api-key header on every request.
	APIKey string
	// AgentIdentifier names the agent registered with the payment service.
	AgentIdentifier string
	// SellerVKey is the seller verification key payments are addressed to.
	SellerVKey string
	// Amount is the requested amount in the smallest unit, as a string.
	Amount string
	// Unit is the currency unit, e.g. "lovelace".
	Unit string
	// StatusExpr is the JMESPath expression locating the payment status in
	// resolve responses. Defaults to "status".
	StatusExpr string
	// CreateTimeout bounds payment creation calls. Defaults to 30s.
	CreateTimeout time.Duration
	// ResolveTimeout bounds status resolution calls. Defaults to 10s.
	ResolveTimeout time.Duration
	// Client overrides the HTTP client, mainly for tests.
	Client *http.Client
	// Evaluator overrides the JMESPath evaluator, mainly for tests.
	Evaluator JMESPathEvaluator
}

// Client talks to the Masumi payment service over HTTP.
type Client struct {
	baseURL         string
	apiKey          string
	agentIdentifier string
	sellerVKey      string
	amount          string
	unit            string
	statusExpr      string
	createTimeout   time.Duration
	resolveTimeout  time.Duration
	client          *http.Client
	jems            JMESPathEvaluator
}

// NewClient builds a payment service client. Callers should pass a validated config.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.ServiceURL), "/")
	if baseURL == "" {
		return nil, errors.New("payment service url is required")
	}

	statusExpr := strings.TrimSpace(cfg.StatusExpr)
	if statusExpr == "" {
		statusExpr = defaultStatusExpr
	}

	jems := cfg.Evaluator
	if jems == nil {
		jems = jmespathLibEvaluator{}
	}
	if err := jems.Validate(statusExpr); err != nil {
		return nil, fmt.Errorf("invalid status expression %q: %w", statusExpr, err)
	}

	createTimeout := cfg.CreateTimeout
	if createTimeout <= 0 {
		createTimeout = defaultCreateTimeout
	}
	resolveTimeout := cfg.ResolveTimeout
	if resolveTimeout <= 0 {
		resolveTimeout = defaultResolveTimeout
	}

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{}
	}

	return &Client{
		baseURL:         baseURL,
		apiKey:          cfg.APIKey,
		agentIdentifier: cfg.AgentIdentifier,
		sellerVKey:      cfg.SellerVKey,
		amount:          cfg.Amount,
		unit:            cfg.Unit,
		statusExpr:      statusExpr,
		createTimeout:   createTimeout,
		resolveTimeout:  resolveTimeout,
		client:          hc,
		jems:            jems,
	}, nil
}

type amountEntry struct {
	Amount string `json:"amount"`
	Unit   string `json:"unit"`
}

type createRequest struct {
	AgentIdentifier         string            `json:"agentIdentifier"`
	SellerVKey              string            `json:"sellerVKey"`
	IdentifierFromPurchaser string            `json:"identifierFromPurchaser"`
	Amounts                 []amountEntry     `json:"amounts"`
	InputData               []model.InputItem `json:"inputData"`
}

type resolveRequest struct {
	BlockchainIdentifier string `json:"blockchainIdentifier"`
}

// Create registers a payment request for a new job and returns the payment
// terms. The raw response is preserved verbatim so it can be passed through
// to the purchaser.
func (c *Client) Create(ctx context.Context, purchaserID string, input []model.InputItem) (*model.PaymentRequest, error) {
	if input == nil {
		input = []model.InputItem{}
	}
	reqBody := createRequest{
		AgentIdentifier:         c.agentIdentifier,
		SellerVKey:              c.sellerVKey,
		IdentifierFromPurchaser: purchaserID,
		Amounts:                 []amountEntry{{Amount: c.amount, Unit: c.unit}},
		InputData:               input,
	}

	ctx, cancel := context.WithTimeout(ctx, c.createTimeout)
	defer cancel()

	body, err := c.post(ctx, c.baseURL+"/payment/", reqBody)
	if err != nil {
		return nil, err
	}

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("decode payment response: %w", err)
	}

	blockchainID, _ := fields["blockchainIdentifier"].(string)
	return &model.PaymentRequest{
		BlockchainID: blockchainID,
		Raw:          json.RawMessage(body),
	}, nil
}

// ResolveStatus fetches the current status of a payment. A response without
// a readable status yields an empty string, which callers treat as not yet
// paid.
func (c *Client) ResolveStatus(ctx context.Context, blockchainID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.resolveTimeout)
	defer cancel()

	body, err := c.post(ctx, c.baseURL+"/payment/resolve-blockchain-identifier", resolveRequest{
		BlockchainIdentifier: blockchainID,
	})
	if err != nil {
		return "", err
	}

	var fields any
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", fmt.Errorf("decode status response: %w", err)
	}

	value, err := c.jems.Evaluate(c.statusExpr, fields)
	if err != nil {
		return "", fmt.Errorf("evaluate status expression: %w", err)
	}

	status, _ := value.(string)
	return status, nil
}

// post sends a JSON request and returns the response body. Non-200 responses
// become a RejectionError carrying the status code and body.
func (c *Client) post(ctx context.Context, url string, payload any) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payment payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create payment request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment request failed: %w", err)
	}

	body, readErr := io.ReadAll(resp.Body)
	closeErr := resp.Body.Close()
	if readErr != nil {
		return nil, errors.Join(fmt.Errorf("read payment response: %w", readErr), closeErr)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("close payment response: %w", closeErr)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &RejectionError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

var _ core.PaymentGateway = (*Client)(nil)
