package paystack

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

	"github.com/velomart/velomart/internal/pkg/env"
)

const defaultAPIBaseURL = "https://api.paystack.co"

// Client talks to the Paystack transaction API. The webhook pipeline never
// calls out to Paystack; this client serves payment initialization and
// manual verification.
type Client struct {
	SecretKey  string
	APIBaseURL string

	HTTPClient *http.Client
}

// InitializeRequest starts a hosted checkout for a charge.
type InitializeRequest struct {
	Email     string                 `json:"email"`
	Amount    int64                  `json:"amount"` // smallest currency unit (kobo)
	Reference string                 `json:"reference"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Transaction is the subset of Paystack's transaction payload we consume.
type Transaction struct {
	Reference        string                 `json:"reference"`
	Amount           int64                  `json:"amount"`
	Currency         string                 `json:"currency"`
	Status           string                 `json:"status"`
	AuthorizationURL string                 `json:"authorization_url"`
	AccessCode       string                 `json:"access_code"`
	Metadata         map[string]interface{} `json:"metadata"`
}

type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// NewClientFromEnv builds a client from PAYSTACK_* environment variables.
func NewClientFromEnv() *Client {
	return &Client{
		SecretKey:  strings.TrimSpace(env.GetEnv("PAYSTACK_SECRET_KEY", "")),
		APIBaseURL: strings.TrimRight(env.GetEnv("PAYSTACK_API_BASE_URL", defaultAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// WebhookSecret returns the key used to sign webhook deliveries. Paystack
// signs with the account secret key.
func WebhookSecret() string {
	return strings.TrimSpace(env.GetEnv("PAYSTACK_SECRET_KEY", ""))
}

// InitializeTransaction creates a pending transaction and returns the hosted
// checkout data.
func (c *Client) InitializeTransaction(ctx context.Context, in InitializeRequest) (*Transaction, error) {
	if strings.TrimSpace(c.SecretKey) == "" {
		return nil, errors.New("PAYSTACK_SECRET_KEY is not configured")
	}
	if in.Amount <= 0 {
		return nil, errors.New("amount must be positive")
	}

	body, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	return c.do(req)
}

// VerifyTransaction fetches the provider-side state of a transaction.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*Transaction, error) {
	if strings.TrimSpace(c.SecretKey) == "" {
		return nil, errors.New("PAYSTACK_SECRET_KEY is not configured")
	}
	ref := strings.TrimSpace(reference)
	if ref == "" {
		return nil, errors.New("reference is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIBaseURL+"/transaction/verify/"+ref, nil)
	if err != nil {
		return nil, err
	}

	return c.do(req)
}

func (c *Client) do(req *http.Request) (*Transaction, error) {
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var envlp apiEnvelope
	if err := json.Unmarshal(raw, &envlp); err != nil {
		return nil, fmt.Errorf("paystack: invalid response (%d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !envlp.Status {
		return nil, fmt.Errorf("paystack: request failed (%d): %s", resp.StatusCode, envlp.Message)
	}

	var tx Transaction
	if err := json.Unmarshal(envlp.Data, &tx); err != nil {
		return nil, fmt.Errorf("paystack: invalid transaction data: %w", err)
	}
	return &tx, nil
}
