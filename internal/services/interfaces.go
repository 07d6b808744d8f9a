package services

import (
	"context"

	"brokersync/internal/models"
	"brokersync/internal/pagination"
)

// ParserServicer defines the contract for broker CSV parsing.
type ParserServicer interface {
	Parse(text string) ([]models.TransactionRecord, []models.ValidationError)
	Template() string
}

// CatalogServicer defines the contract for the cached ticker catalog.
type CatalogServicer interface {
	Load(ctx context.Context)
	Entries() []models.CatalogEntry
}

// RegistryServicer defines the contract for the durable mapping registry.
type RegistryServicer interface {
	Get(brokerSymbol string) (*models.SymbolMapping, error)
	Upsert(brokerSymbol, ticker string, source models.MappingSource, confidence int) (*models.SymbolMapping, error)
	List(page pagination.PageRequest) (*pagination.PageResponse[models.SymbolMapping], error)
	Delete(brokerSymbol string) error
}

// Resolution is the outcome of resolving one broker symbol.
type Resolution struct {
	Status       models.MappingStatus
	Source       models.MappingSource
	Proposed     *models.MappingCandidate
	Alternatives []models.MappingCandidate
	// Selected is non-empty only when the resolver accepted a ticker
	// without needing user input.
	Selected string
}

// ResolverServicer defines the contract for broker symbol resolution.
type ResolverServicer interface {
	Resolve(brokerSymbol string) Resolution
}

// ImportResult is the aggregate outcome of one executor run. Attempted
// counts submissions actually issued; records after a failure are never
// attempted.
type ImportResult struct {
	Attempted    int    `json:"attempted"`
	Succeeded    int    `json:"succeeded"`
	FailedSymbol string `json:"failed_symbol,omitempty"`
	Err          error  `json:"-"`
}

// ExecutorServicer defines the contract for the batch import executor.
type ExecutorServicer interface {
	Run(ctx context.Context, records []models.TransactionRecord) *ImportResult
}

// SessionServicer defines the contract for the import workflow orchestrator.
type SessionServicer interface {
	Open() *models.ImportSession
	Get(id string) (*models.ImportSession, error)
	Upload(id, text string) (*models.ImportSession, error)
	EditMapping(id, brokerSymbol, ticker string, fromAlternatives bool) (*models.SymbolMappingRow, error)
	ConfirmMappings(id string) (*models.ImportSession, error)
	Back(id string) (*models.ImportSession, error)
	Import(ctx context.Context, id string) (*ImportResult, error)
	Cancel(id string) error
}
