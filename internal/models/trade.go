package models

import "time"

// TradeSide represents the kind of trade event in a broker export.
type TradeSide string

const (
	TradeSideBuy   TradeSide = "BUY"
	TradeSideSell  TradeSide = "SELL"
	TradeSideDiv   TradeSide = "DIV"
	TradeSideSplit TradeSide = "SPLIT"
	TradeSideBonus TradeSide = "BONUS"
	TradeSideFee   TradeSide = "FEE"
)

// Valid reports whether s is one of the supported trade sides.
func (s TradeSide) Valid() bool {
	switch s {
	case TradeSideBuy, TradeSideSell, TradeSideDiv, TradeSideSplit, TradeSideBonus, TradeSideFee:
		return true
	}
	return false
}

// TransactionRecord is one parsed row of a broker export. Symbol holds the
// raw broker symbol until mappings are confirmed, after which it holds the
// resolved canonical ticker.
type TransactionRecord struct {
	TradeDate     time.Time `json:"trade_date"`
	Symbol        string    `json:"symbol"`
	Side          TradeSide `json:"side"`
	Quantity      float64   `json:"quantity"`
	Price         float64   `json:"price"`
	Fees          float64   `json:"fees"`
	TradeCurrency string    `json:"trade_ccy"`
	FxRate        *float64  `json:"fx_rate,omitempty"`
}

// ValidationError describes a single problem found in one CSV row.
// RowIndex is 1-based over data rows; the header row is row 0.
type ValidationError struct {
	RowIndex int    `json:"row_index"`
	Message  string `json:"message"`
	Value    string `json:"offending_value,omitempty"`
}
