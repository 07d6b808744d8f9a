package testutil

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"brokersync/internal/models"
)

// CreateTestMapping creates a registry mapping for a broker symbol.
func CreateTestMapping(t *testing.T, db *gorm.DB, brokerSymbol, ticker string) *models.SymbolMapping {
	t.Helper()
	return CreateTestMappingWithParams(t, db, brokerSymbol, ticker, models.MappingSourceCatalog, 95)
}

// CreateTestMappingWithParams creates a registry mapping with explicit
// source and confidence.
func CreateTestMappingWithParams(t *testing.T, db *gorm.DB, brokerSymbol, ticker string, source models.MappingSource, confidence int) *models.SymbolMapping {
	t.Helper()

	mapping := &models.SymbolMapping{
		BrokerSymbol: brokerSymbol,
		YahooTicker:  ticker,
		Source:       source,
		Confidence:   confidence,
	}
	if err := db.Create(mapping).Error; err != nil {
		t.Fatalf("failed to create test mapping: %v", err)
	}
	return mapping
}

// NSECatalog returns a small catalog of NSE-listed tickers used across
// resolver and session tests.
func NSECatalog() []models.CatalogEntry {
	return []models.CatalogEntry{
		{Ticker: "RELIANCE.NS", Name: "Reliance Industries Ltd"},
		{Ticker: "TCS.NS", Name: "Tata Consultancy Services Ltd"},
		{Ticker: "INFY.NS", Name: "Infosys Ltd"},
		{Ticker: "HDFCBANK.NS", Name: "HDFC Bank Ltd"},
		{Ticker: "SBIN.NS", Name: "State Bank of India"},
	}
}

// MakeRecord builds a BUY transaction record for a symbol.
func MakeRecord(symbol string) models.TransactionRecord {
	return models.TransactionRecord{
		TradeDate:     time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		Symbol:        symbol,
		Side:          models.TradeSideBuy,
		Quantity:      10,
		Price:         100.50,
		Fees:          5,
		TradeCurrency: "INR",
	}
}
