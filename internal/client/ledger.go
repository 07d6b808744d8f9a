package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"brokersync/internal/models"
)

// LedgerClient submits resolved transactions to the portfolio ledger API.
type LedgerClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewLedgerClient creates a new ledger client.
func NewLedgerClient(baseURL, apiKey string, httpClient *http.Client) *LedgerClient {
	return &LedgerClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// SubmitTransaction persists a single resolved transaction at the ledger.
// Any non-2xx response is an error; the ledger offers no idempotent retry,
// so callers must treat a failure as fatal for the remaining batch.
func (c *LedgerClient) SubmitTransaction(ctx context.Context, record models.TransactionRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding transaction: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/transactions", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("submitting transaction %s: %w", record.Symbol, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("submitting transaction %s: unexpected status %d", record.Symbol, resp.StatusCode)
	}
	return nil
}
