package models

import "time"

// MappingSource identifies which resolution tier produced a mapping.
type MappingSource string

const (
	MappingSourcePattern  MappingSource = "pattern"
	MappingSourceRegistry MappingSource = "registry"
	MappingSourceCatalog  MappingSource = "catalog"
	MappingSourceManual   MappingSource = "manual"
)

// SymbolMapping is a learned broker-symbol to canonical-ticker mapping.
// It persists across import sessions; broker_symbol is the upsert key and
// writes are last-write-wins.
type SymbolMapping struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	BrokerSymbol string        `gorm:"not null;uniqueIndex" json:"broker_symbol"`
	YahooTicker  string        `gorm:"not null" json:"yahoo_ticker"`
	Source       MappingSource `gorm:"not null" json:"source"`
	Confidence   int           `gorm:"not null" json:"confidence"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}
