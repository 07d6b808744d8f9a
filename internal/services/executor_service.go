package services

import (
	"context"

	"brokersync/internal/models"
)

// LedgerSubmitter persists one transaction at the remote ledger.
type LedgerSubmitter interface {
	SubmitTransaction(ctx context.Context, record models.TransactionRecord) error
}

// executorService submits a resolved batch to the ledger one record at a
// time, in list order, awaiting each call before issuing the next. Ordering
// makes error attribution unambiguous and leaves a deterministic prefix
// persisted when a submission fails mid-batch.
type executorService struct {
	ledger LedgerSubmitter
}

// NewExecutorService creates a new ExecutorServicer.
func NewExecutorService(ledger LedgerSubmitter) ExecutorServicer {
	return &executorService{ledger: ledger}
}

// Run submits records sequentially and aborts on the first failure. Records
// already submitted stay persisted; records after the failure point are
// never attempted. The result carries attempted and succeeded counts plus
// the failing record's symbol.
func (s *executorService) Run(ctx context.Context, records []models.TransactionRecord) *ImportResult {
	result := &ImportResult{}
	for _, record := range records {
		result.Attempted++
		if err := s.ledger.SubmitTransaction(ctx, record); err != nil {
			result.FailedSymbol = record.Symbol
			result.Err = err
			return result
		}
		result.Succeeded++
	}
	return result
}
