// Package client provides HTTP clients for the remote collaborators of the
// import workflow: the ticker reference catalog and the portfolio ledger.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"brokersync/internal/models"
)

// CatalogClient fetches the canonical ticker reference list.
type CatalogClient struct {
	url        string
	httpClient *http.Client
}

// NewCatalogClient creates a new catalog client for the given URL.
func NewCatalogClient(url string, httpClient *http.Client) *CatalogClient {
	return &CatalogClient{url: url, httpClient: httpClient}
}

// FetchEntries fetches the full catalog of {name, ticker} pairs.
func (c *CatalogClient) FetchEntries(ctx context.Context) ([]models.CatalogEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching catalog: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching catalog: unexpected status %d", resp.StatusCode)
	}

	var entries []models.CatalogEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decoding catalog response: %w", err)
	}
	return entries, nil
}
