package services

import (
	"context"
	"sync"

	"brokersync/internal/logger"
	"brokersync/internal/models"
)

// CatalogFetcher fetches the ticker reference list from its remote source.
type CatalogFetcher interface {
	FetchEntries(ctx context.Context) ([]models.CatalogEntry, error)
}

// catalogService caches the ticker catalog in memory for the lifetime of the
// process. A failed load leaves the cache empty so the resolver degrades to
// its registry and manual tiers instead of failing the workflow.
type catalogService struct {
	fetcher CatalogFetcher

	mu      sync.RWMutex
	entries []models.CatalogEntry
	loaded  bool
}

// NewCatalogService creates a new CatalogServicer.
func NewCatalogService(fetcher CatalogFetcher) CatalogServicer {
	return &catalogService{fetcher: fetcher}
}

// Load fetches the catalog once. Subsequent calls refresh the cache.
func (s *catalogService) Load(ctx context.Context) {
	entries, err := s.fetcher.FetchEntries(ctx)
	if err != nil {
		logger.Get().Warnw("catalog load failed, resolver degrades to registry and manual tiers",
			"error", err.Error(),
		)
		entries = nil
	} else {
		logger.Get().Infow("catalog loaded", "entries", len(entries))
	}

	s.mu.Lock()
	s.entries = entries
	s.loaded = true
	s.mu.Unlock()
}

// Entries returns the cached catalog, loading it on first use.
func (s *catalogService) Entries() []models.CatalogEntry {
	s.mu.RLock()
	if s.loaded {
		defer s.mu.RUnlock()
		return s.entries
	}
	s.mu.RUnlock()

	s.Load(context.Background())

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries
}
