package models

// ImportStage is the current stage of an import session's workflow.
type ImportStage string

const (
	StageUpload    ImportStage = "upload"
	StageMap       ImportStage = "map"
	StagePreview   ImportStage = "preview"
	StageImporting ImportStage = "importing"
)

// MappingStatus classifies how a symbol mapping row was determined and
// whether it still needs human input.
type MappingStatus string

const (
	MappingStatusAuto       MappingStatus = "AUTO"
	MappingStatusReview     MappingStatus = "REVIEW"
	MappingStatusManual     MappingStatus = "MANUAL"
	MappingStatusUnresolved MappingStatus = "UNRESOLVED"
)

// MappingCandidate is one ranked canonical-ticker suggestion for a broker
// symbol. Score is a 0-100 confidence estimate.
type MappingCandidate struct {
	Ticker string `json:"ticker"`
	Label  string `json:"label"`
	Score  int    `json:"score"`
}

// SymbolMappingRow tracks the mapping decision for one unique broker symbol
// in the current batch. Selected is empty until a ticker has been chosen,
// either automatically or by the user.
type SymbolMappingRow struct {
	BrokerSymbol string             `json:"broker_symbol"`
	Proposed     *MappingCandidate  `json:"proposed,omitempty"`
	Alternatives []MappingCandidate `json:"alternatives"`
	Selected     string             `json:"selected,omitempty"`
	Status       MappingStatus      `json:"status"`
	Source       MappingSource      `json:"source"`
}

// ImportSession is the transient aggregate for one pass through the import
// workflow. It lives in memory only and is discarded when the workflow
// closes or completes.
type ImportSession struct {
	ID           string              `json:"id"`
	Stage        ImportStage         `json:"stage"`
	Transactions []TransactionRecord `json:"transactions"`
	Errors       []ValidationError   `json:"errors"`
	MappingRows  []*SymbolMappingRow `json:"mapping_rows"`
}
