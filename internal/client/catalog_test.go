package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetchEntries(t *testing.T) {
	t.Run("decodes_catalog", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				t.Errorf("expected GET, got %s", r.Method)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[
				{"ticker": "RELIANCE.NS", "name": "Reliance Industries Ltd"},
				{"ticker": "TCS.NS", "name": "Tata Consultancy Services Ltd"}
			]`))
		}))
		defer server.Close()

		c := NewCatalogClient(server.URL, server.Client())

		entries, err := c.FetchEntries(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(entries))
		}
		if entries[0].Ticker != "RELIANCE.NS" || entries[0].Name != "Reliance Industries Ltd" {
			t.Errorf("unexpected first entry: %+v", entries[0])
		}
	})

	t.Run("server_error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		c := NewCatalogClient(server.URL, server.Client())

		_, err := c.FetchEntries(context.Background())
		if err == nil {
			t.Fatal("expected error for 500 response")
		}
		if !strings.Contains(err.Error(), "unexpected status 500") {
			t.Errorf("unexpected error message: %v", err)
		}
	})

	t.Run("malformed_body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"not": "an array"}`))
		}))
		defer server.Close()

		c := NewCatalogClient(server.URL, server.Client())

		_, err := c.FetchEntries(context.Background())
		if err == nil {
			t.Fatal("expected decode error")
		}
	})

	t.Run("context_cancelled", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[]`))
		}))
		defer server.Close()

		c := NewCatalogClient(server.URL, server.Client())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.FetchEntries(ctx)
		if err == nil {
			t.Fatal("expected error for cancelled context")
		}
	})
}
