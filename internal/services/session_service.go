package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	apperrors "brokersync/internal/errors"
	"brokersync/internal/logger"
	"brokersync/internal/models"
	"brokersync/internal/uuid"
)

// sessionService orchestrates the four-stage import workflow
// (upload, map, preview, import) over in-memory sessions. Sessions are
// transient: they are discarded on cancel and after import, and nothing
// about them is persisted except confirmed mappings, which go to the
// registry.
type sessionService struct {
	mu       sync.Mutex
	sessions map[string]*models.ImportSession

	parser   ParserServicer
	resolver ResolverServicer
	registry RegistryServicer
	executor ExecutorServicer
}

// NewSessionService creates a new SessionServicer.
func NewSessionService(parser ParserServicer, resolver ResolverServicer, registry RegistryServicer, executor ExecutorServicer) SessionServicer {
	return &sessionService{
		sessions: make(map[string]*models.ImportSession),
		parser:   parser,
		resolver: resolver,
		registry: registry,
		executor: executor,
	}
}

// Open starts a new import session at the upload stage.
func (s *sessionService) Open() *models.ImportSession {
	session := &models.ImportSession{
		ID:    uuid.New(),
		Stage: models.StageUpload,
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	return session
}

// Get returns the session with the given ID.
func (s *sessionService) Get(id string) (*models.ImportSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(id)
}

// Upload parses the pasted CSV text. With at least one record and zero
// validation errors the session advances to the map stage with one mapping
// row per unique broker symbol; otherwise it stays at upload with every
// collected error.
func (s *sessionService) Upload(id, text string) (*models.ImportSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if session.Stage != models.StageUpload {
		return nil, apperrors.ErrInvalidStage
	}

	records, parseErrs := s.parser.Parse(text)
	session.Transactions = records
	session.Errors = parseErrs

	if len(parseErrs) > 0 || len(records) == 0 {
		return session, nil
	}

	// Mapping rows mirror the unique symbols of the current batch. Rows
	// whose symbols survive a Back and re-upload are reused rather than
	// re-resolved; rows for symbols no longer present are dropped so a
	// stale row can neither block the confirm gate nor reach the registry.
	existing := make(map[string]*models.SymbolMappingRow, len(session.MappingRows))
	for _, row := range session.MappingRows {
		existing[row.BrokerSymbol] = row
	}

	rows := make([]*models.SymbolMappingRow, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, record := range records {
		if seen[record.Symbol] {
			continue
		}
		seen[record.Symbol] = true
		if row, ok := existing[record.Symbol]; ok {
			rows = append(rows, row)
			continue
		}
		rows = append(rows, s.buildRow(record.Symbol))
	}
	session.MappingRows = rows

	session.Stage = models.StageMap
	return session, nil
}

// EditMapping overwrites the selected ticker of one mapping row. A pick from
// the row's alternatives reclassifies it as REVIEW; free-text entry makes it
// MANUAL. A user edit can never produce AUTO.
func (s *sessionService) EditMapping(id, brokerSymbol, ticker string, fromAlternatives bool) (*models.SymbolMappingRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if session.Stage != models.StageMap {
		return nil, apperrors.ErrInvalidStage
	}

	row := s.findRow(session, brokerSymbol)
	if row == nil {
		return nil, apperrors.ErrMappingRowNotFound
	}

	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Ticker is required")
	}

	// The alternatives claim is not trusted as sent; a ticker that is not
	// among the row's candidates is a manual entry no matter what the
	// request says.
	row.Selected = ticker
	if fromAlternatives && rowHasCandidate(row, ticker) {
		row.Status = models.MappingStatusReview
		row.Source = models.MappingSourceCatalog
	} else {
		row.Status = models.MappingStatusManual
		row.Source = models.MappingSourceManual
	}
	return row, nil
}

// rowHasCandidate reports whether ticker is the row's proposed candidate or
// one of its alternatives.
func rowHasCandidate(row *models.SymbolMappingRow, ticker string) bool {
	if row.Proposed != nil && row.Proposed.Ticker == ticker {
		return true
	}
	for _, candidate := range row.Alternatives {
		if candidate.Ticker == ticker {
			return true
		}
	}
	return false
}

// ConfirmMappings gates the map-to-preview transition: every row must have a
// selected ticker. On success it rewrites each record's symbol to the
// resolved ticker and upserts every non-pattern mapping into the registry.
func (s *sessionService) ConfirmMappings(id string) (*models.ImportSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if session.Stage != models.StageMap {
		return nil, apperrors.ErrInvalidStage
	}

	var unresolved []string
	for _, row := range session.MappingRows {
		if row.Selected == "" {
			unresolved = append(unresolved, row.BrokerSymbol)
		}
	}
	if len(unresolved) > 0 {
		return nil, apperrors.WithMessage(apperrors.ErrMappingsIncomplete,
			fmt.Sprintf("Unmapped broker symbols: %s", strings.Join(unresolved, ", ")))
	}

	resolved := make(map[string]string, len(session.MappingRows))
	for _, row := range session.MappingRows {
		resolved[row.BrokerSymbol] = row.Selected

		// The pattern tier learned nothing; everything else is worth
		// remembering for the next session.
		if row.Source == models.MappingSourcePattern {
			continue
		}
		if _, err := s.registry.Upsert(row.BrokerSymbol, row.Selected, row.Source, selectedConfidence(row)); err != nil {
			return nil, err
		}
	}

	for i := range session.Transactions {
		if ticker, ok := resolved[session.Transactions[i].Symbol]; ok {
			session.Transactions[i].Symbol = ticker
		}
	}

	session.Stage = models.StagePreview
	return session, nil
}

// Back steps the workflow backwards: preview to map, or map to upload.
// Parsed records and mapping rows are kept so nothing is recomputed.
func (s *sessionService) Back(id string) (*models.ImportSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.find(id)
	if err != nil {
		return nil, err
	}

	switch session.Stage {
	case models.StagePreview:
		session.Stage = models.StageMap
	case models.StageMap:
		session.Stage = models.StageUpload
	default:
		return nil, apperrors.ErrInvalidStage
	}
	return session, nil
}

// Import runs the batch executor over the resolved records and closes the
// session regardless of the outcome. There is no cancellation once the
// import has begun; the batch runs to completion or first failure.
func (s *sessionService) Import(ctx context.Context, id string) (*ImportResult, error) {
	s.mu.Lock()
	session, err := s.find(id)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if session.Stage != models.StagePreview {
		s.mu.Unlock()
		return nil, apperrors.ErrInvalidStage
	}
	session.Stage = models.StageImporting
	records := session.Transactions
	s.mu.Unlock()

	result := s.executor.Run(ctx, records)

	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()

	if result.Err != nil {
		logger.Get().Errorw("batch import aborted",
			"session_id", id,
			"attempted", result.Attempted,
			"succeeded", result.Succeeded,
			"failed_symbol", result.FailedSymbol,
			"error", result.Err.Error(),
		)
	} else {
		logger.Get().Infow("batch import completed",
			"session_id", id,
			"succeeded", result.Succeeded,
		)
	}
	return result, nil
}

// Cancel discards a session and all its in-memory state. A session whose
// import is already running cannot be cancelled.
func (s *sessionService) Cancel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.find(id)
	if err != nil {
		return err
	}
	if session.Stage == models.StageImporting {
		return apperrors.ErrImportInProgress
	}
	delete(s.sessions, id)
	return nil
}

// find looks up a session while holding the lock.
func (s *sessionService) find(id string) (*models.ImportSession, error) {
	session, ok := s.sessions[id]
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	return session, nil
}

// findRow returns the mapping row for a broker symbol, or nil.
func (s *sessionService) findRow(session *models.ImportSession, brokerSymbol string) *models.SymbolMappingRow {
	brokerSymbol = strings.ToUpper(strings.TrimSpace(brokerSymbol))
	for _, row := range session.MappingRows {
		if row.BrokerSymbol == brokerSymbol {
			return row
		}
	}
	return nil
}

// buildRow resolves one broker symbol into its mapping row.
func (s *sessionService) buildRow(brokerSymbol string) *models.SymbolMappingRow {
	resolution := s.resolver.Resolve(brokerSymbol)

	alternatives := resolution.Alternatives
	if alternatives == nil {
		alternatives = []models.MappingCandidate{}
	}

	return &models.SymbolMappingRow{
		BrokerSymbol: brokerSymbol,
		Proposed:     resolution.Proposed,
		Alternatives: alternatives,
		Selected:     resolution.Selected,
		Status:       resolution.Status,
		Source:       resolution.Source,
	}
}

// selectedConfidence returns the score of the candidate matching the row's
// selected ticker, or full confidence for a manually entered ticker.
func selectedConfidence(row *models.SymbolMappingRow) int {
	if row.Proposed != nil && row.Proposed.Ticker == row.Selected {
		return row.Proposed.Score
	}
	for _, candidate := range row.Alternatives {
		if candidate.Ticker == row.Selected {
			return candidate.Score
		}
	}
	return 100
}
