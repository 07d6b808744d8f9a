package models

// CatalogEntry is one canonical ticker from the reference catalog.
type CatalogEntry struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
}
