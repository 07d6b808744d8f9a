package services

import (
	"context"
	"errors"
	"testing"

	"brokersync/internal/models"
	"brokersync/internal/testutil"
)

// countingResolver wraps a resolver and counts calls per symbol.
type countingResolver struct {
	inner ResolverServicer
	calls map[string]int
}

func newCountingResolver(inner ResolverServicer) *countingResolver {
	return &countingResolver{inner: inner, calls: make(map[string]int)}
}

func (r *countingResolver) Resolve(brokerSymbol string) Resolution {
	r.calls[brokerSymbol]++
	return r.inner.Resolve(brokerSymbol)
}

// stubExecutor captures the batch it was handed and returns a scripted result.
type stubExecutor struct {
	result  *ImportResult
	records []models.TransactionRecord
	runs    int
}

func (e *stubExecutor) Run(ctx context.Context, records []models.TransactionRecord) *ImportResult {
	e.runs++
	e.records = records
	if e.result != nil {
		return e.result
	}
	return &ImportResult{Attempted: len(records), Succeeded: len(records)}
}

type sessionFixture struct {
	svc      SessionServicer
	resolver *countingResolver
	registry RegistryServicer
	executor *stubExecutor
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	registry := NewRegistryService(db)
	resolver := newCountingResolver(NewResolverService(&stubCatalog{entries: nseCatalog()}, registry))
	executor := &stubExecutor{}
	svc := NewSessionService(NewParserService(), resolver, registry, executor)

	return &sessionFixture{svc: svc, resolver: resolver, registry: registry, executor: executor}
}

const suffixedCSV = `trade_date,symbol,side,quantity,price,fees,trade_ccy,fx_rate
2026-01-15,RELIANCE.NS,BUY,10,2850.50,20.00,INR,
2026-02-03,TCS.NS,BUY,5,4100.00,20.00,INR,
2026-03-20,RELIANCE.NS,DIV,0,95.00,0,INR,
`

const bareSymbolCSV = `trade_date,symbol,side,quantity,price,fees,trade_ccy,fx_rate
2026-01-15,RELIANCE,BUY,10,2850.50,20.00,INR,
2026-02-03,RELI,BUY,5,4100.00,20.00,INR,
`

func TestSessionLifecycle(t *testing.T) {
	t.Run("open_starts_at_upload", func(t *testing.T) {
		f := newSessionFixture(t)

		session := f.svc.Open()
		if session.ID == "" {
			t.Fatal("expected session ID")
		}
		if session.Stage != models.StageUpload {
			t.Errorf("expected upload stage, got %s", session.Stage)
		}

		got, err := f.svc.Get(session.ID)
		testutil.AssertNoError(t, err)
		if got.ID != session.ID {
			t.Errorf("expected same session back, got %s", got.ID)
		}
	})

	t.Run("get_unknown_session", func(t *testing.T) {
		f := newSessionFixture(t)
		_, err := f.svc.Get("missing")
		testutil.AssertAppError(t, err, "SESSION_NOT_FOUND")
	})

	t.Run("cancel_discards_state", func(t *testing.T) {
		f := newSessionFixture(t)
		session := f.svc.Open()

		testutil.AssertNoError(t, f.svc.Cancel(session.ID))

		_, err := f.svc.Get(session.ID)
		testutil.AssertAppError(t, err, "SESSION_NOT_FOUND")
	})
}

func TestSessionUpload(t *testing.T) {
	t.Run("clean_parse_advances_to_map", func(t *testing.T) {
		f := newSessionFixture(t)
		session := f.svc.Open()

		session, err := f.svc.Upload(session.ID, suffixedCSV)
		testutil.AssertNoError(t, err)

		if session.Stage != models.StageMap {
			t.Errorf("expected map stage, got %s", session.Stage)
		}
		if len(session.Transactions) != 3 {
			t.Errorf("expected 3 records, got %d", len(session.Transactions))
		}
		// Two unique symbols, both already suffixed: all AUTO.
		if len(session.MappingRows) != 2 {
			t.Fatalf("expected 2 mapping rows, got %d", len(session.MappingRows))
		}
		for _, row := range session.MappingRows {
			if row.Status != models.MappingStatusAuto {
				t.Errorf("expected AUTO for %s, got %s", row.BrokerSymbol, row.Status)
			}
			if row.Selected != row.BrokerSymbol {
				t.Errorf("pattern symbols must be accepted unchanged, got %s for %s", row.Selected, row.BrokerSymbol)
			}
		}
	})

	t.Run("parse_errors_keep_upload_stage", func(t *testing.T) {
		f := newSessionFixture(t)
		session := f.svc.Open()

		text := "trade_date,symbol,side,quantity,price,fees,trade_ccy,fx_rate\n" +
			"2026-01-15,RELIANCE.NS,HOLD,10,2850.50,20.00,INR,\n"

		session, err := f.svc.Upload(session.ID, text)
		testutil.AssertNoError(t, err)

		if session.Stage != models.StageUpload {
			t.Errorf("expected to stay at upload, got %s", session.Stage)
		}
		if len(session.Errors) != 1 {
			t.Errorf("expected the collected parse error, got %v", session.Errors)
		}
		if len(session.MappingRows) != 0 {
			t.Errorf("no mapping rows before a clean parse, got %d", len(session.MappingRows))
		}
	})

	t.Run("empty_input_is_not_failure_but_does_not_advance", func(t *testing.T) {
		f := newSessionFixture(t)
		session := f.svc.Open()

		session, err := f.svc.Upload(session.ID, "")
		testutil.AssertNoError(t, err)

		if session.Stage != models.StageUpload {
			t.Errorf("expected to stay at upload, got %s", session.Stage)
		}
		if len(session.Errors) != 0 {
			t.Errorf("empty input must yield zero errors, got %v", session.Errors)
		}
	})

	t.Run("wrong_stage", func(t *testing.T) {
		f := newSessionFixture(t)
		session := f.svc.Open()

		_, err := f.svc.Upload(session.ID, suffixedCSV)
		testutil.AssertNoError(t, err)

		_, err = f.svc.Upload(session.ID, suffixedCSV)
		testutil.AssertAppError(t, err, "INVALID_STAGE")
	})

	t.Run("resolver_called_once_per_unique_symbol", func(t *testing.T) {
		f := newSessionFixture(t)
		session := f.svc.Open()

		// RELIANCE.NS appears twice in the batch.
		_, err := f.svc.Upload(session.ID, suffixedCSV)
		testutil.AssertNoError(t, err)

		if f.resolver.calls["RELIANCE.NS"] != 1 {
			t.Errorf("expected 1 resolve call for RELIANCE.NS, got %d", f.resolver.calls["RELIANCE.NS"])
		}
		if f.resolver.calls["TCS.NS"] != 1 {
			t.Errorf("expected 1 resolve call for TCS.NS, got %d", f.resolver.calls["TCS.NS"])
		}

		// Back to upload and re-upload: surviving rows are not recomputed.
		_, err = f.svc.Back(session.ID)
		testutil.AssertNoError(t, err)
		_, err = f.svc.Upload(session.ID, suffixedCSV)
		testutil.AssertNoError(t, err)

		if f.resolver.calls["RELIANCE.NS"] != 1 {
			t.Errorf("re-upload must not re-resolve, got %d calls", f.resolver.calls["RELIANCE.NS"])
		}
	})

	t.Run("reupload_drops_rows_for_absent_symbols", func(t *testing.T) {
		f := newSessionFixture(t)
		session := f.svc.Open()

		// First batch leaves RELI at REVIEW with no selection.
		_, err := f.svc.Upload(session.ID, bareSymbolCSV)
		testutil.AssertNoError(t, err)

		_, err = f.svc.Back(session.ID)
		testutil.AssertNoError(t, err)

		// Second batch shares no symbols with the first.
		session, err = f.svc.Upload(session.ID, suffixedCSV)
		testutil.AssertNoError(t, err)

		if len(session.MappingRows) != 2 {
			t.Fatalf("expected rows only for the current batch, got %d", len(session.MappingRows))
		}
		for _, row := range session.MappingRows {
			if row.BrokerSymbol != "RELIANCE.NS" && row.BrokerSymbol != "TCS.NS" {
				t.Errorf("unexpected stale row %s", row.BrokerSymbol)
			}
		}

		// The unselected stale RELI row must no longer block the gate.
		session, err = f.svc.ConfirmMappings(session.ID)
		testutil.AssertNoError(t, err)
		if session.Stage != models.StagePreview {
			t.Errorf("expected preview, got %s", session.Stage)
		}

		// And nothing from the abandoned batch reached the registry.
		_, err = f.registry.Get("RELIANCE")
		testutil.AssertAppError(t, err, "MAPPING_NOT_FOUND")
		_, err = f.registry.Get("RELI")
		testutil.AssertAppError(t, err, "MAPPING_NOT_FOUND")
	})
}

func TestSessionMapping(t *testing.T) {
	t.Run("review_row_blocks_confirm", func(t *testing.T) {
		f := newSessionFixture(t)
		session := f.svc.Open()

		session, err := f.svc.Upload(session.ID, bareSymbolCSV)
		testutil.AssertNoError(t, err)

		// RELIANCE resolves AUTO from the catalog; RELI stays REVIEW.
		_, err = f.svc.ConfirmMappings(session.ID)
		testutil.AssertAppError(t, err, "MAPPINGS_INCOMPLETE")

		got, err := f.svc.Get(session.ID)
		testutil.AssertNoError(t, err)
		if got.Stage != models.StageMap {
			t.Errorf("refused confirm must keep the map stage, got %s", got.Stage)
		}
	})

	t.Run("edit_free_text_is_manual", func(t *testing.T) {
		f := newSessionFixture(t)
		session := f.svc.Open()

		_, err := f.svc.Upload(session.ID, bareSymbolCSV)
		testutil.AssertNoError(t, err)

		row, err := f.svc.EditMapping(session.ID, "RELI", "RELIANCE.NS", false)
		testutil.AssertNoError(t, err)

		if row.Status != models.MappingStatusManual {
			t.Errorf("expected MANUAL, got %s", row.Status)
		}
		if row.Selected != "RELIANCE.NS" {
			t.Errorf("expected selected RELIANCE.NS, got %s", row.Selected)
		}
	})

	t.Run("edit_from_alternatives_is_review", func(t *testing.T) {
		f := newSessionFixture(t)
		session := f.svc.Open()

		_, err := f.svc.Upload(session.ID, bareSymbolCSV)
		testutil.AssertNoError(t, err)

		row, err := f.svc.EditMapping(session.ID, "RELI", "INFY.NS", true)
		testutil.AssertNoError(t, err)

		if row.Status != models.MappingStatusReview {
			t.Errorf("expected REVIEW, got %s", row.Status)
		}
	})

	t.Run("alternatives_claim_is_verified", func(t *testing.T) {
		f := newSessionFixture(t)
		session := f.svc.Open()

		_, err := f.svc.Upload(session.ID, bareSymbolCSV)
		testutil.AssertNoError(t, err)

		// WIPRO.BO is not among RELI's candidates, so the claimed pick
		// from alternatives is really a manual entry.
		row, err := f.svc.EditMapping(session.ID, "RELI", "WIPRO.BO", true)
		testutil.AssertNoError(t, err)

		if row.Status != models.MappingStatusManual {
			t.Errorf("expected MANUAL for a ticker outside the candidates, got %s", row.Status)
		}
		if row.Source != models.MappingSourceManual {
			t.Errorf("expected source manual, got %s", row.Source)
		}
	})

	t.Run("edit_unknown_symbol", func(t *testing.T) {
		f := newSessionFixture(t)
		session := f.svc.Open()

		_, err := f.svc.Upload(session.ID, bareSymbolCSV)
		testutil.AssertNoError(t, err)

		_, err = f.svc.EditMapping(session.ID, "WIPRO", "WIPRO.NS", false)
		testutil.AssertAppError(t, err, "MAPPING_ROW_NOT_FOUND")
	})

	t.Run("confirm_rewrites_symbols_and_learns", func(t *testing.T) {
		f := newSessionFixture(t)
		session := f.svc.Open()

		_, err := f.svc.Upload(session.ID, bareSymbolCSV)
		testutil.AssertNoError(t, err)

		// RELIANCE.BO is not among the candidates, so this is a pure
		// free-text entry.
		_, err = f.svc.EditMapping(session.ID, "RELI", "RELIANCE.BO", false)
		testutil.AssertNoError(t, err)

		session, err = f.svc.ConfirmMappings(session.ID)
		testutil.AssertNoError(t, err)

		if session.Stage != models.StagePreview {
			t.Errorf("expected preview, got %s", session.Stage)
		}
		want := map[string]string{"2026-01-15": "RELIANCE.NS", "2026-02-03": "RELIANCE.BO"}
		for _, record := range session.Transactions {
			expected := want[record.TradeDate.Format("2006-01-02")]
			if record.Symbol != expected {
				t.Errorf("expected symbol rewritten to %s, got %s", expected, record.Symbol)
			}
		}

		// Catalog-resolved RELIANCE and manual RELI are both learned.
		auto, err := f.registry.Get("RELIANCE")
		testutil.AssertNoError(t, err)
		if auto.Source != models.MappingSourceCatalog {
			t.Errorf("expected source catalog, got %s", auto.Source)
		}
		if auto.Confidence != 100 {
			t.Errorf("expected exact-match confidence 100, got %d", auto.Confidence)
		}

		manual, err := f.registry.Get("RELI")
		testutil.AssertNoError(t, err)
		if manual.Source != models.MappingSourceManual {
			t.Errorf("expected source manual, got %s", manual.Source)
		}
		if manual.Confidence != 100 {
			t.Errorf("unlisted manual tickers are fully confident, got %d", manual.Confidence)
		}
	})

	t.Run("pattern_rows_never_persisted", func(t *testing.T) {
		f := newSessionFixture(t)
		session := f.svc.Open()

		_, err := f.svc.Upload(session.ID, suffixedCSV)
		testutil.AssertNoError(t, err)
		_, err = f.svc.ConfirmMappings(session.ID)
		testutil.AssertNoError(t, err)

		_, err = f.registry.Get("RELIANCE.NS")
		testutil.AssertAppError(t, err, "MAPPING_NOT_FOUND")
		_, err = f.registry.Get("TCS.NS")
		testutil.AssertAppError(t, err, "MAPPING_NOT_FOUND")
	})

	t.Run("learned_mapping_resolves_next_session", func(t *testing.T) {
		f := newSessionFixture(t)

		first := f.svc.Open()
		_, err := f.svc.Upload(first.ID, bareSymbolCSV)
		testutil.AssertNoError(t, err)
		_, err = f.svc.EditMapping(first.ID, "RELI", "RELIANCE.NS", false)
		testutil.AssertNoError(t, err)
		_, err = f.svc.ConfirmMappings(first.ID)
		testutil.AssertNoError(t, err)

		second := f.svc.Open()
		session, err := f.svc.Upload(second.ID, bareSymbolCSV)
		testutil.AssertNoError(t, err)

		for _, row := range session.MappingRows {
			if row.Status != models.MappingStatusAuto {
				t.Errorf("expected %s to auto-resolve from the registry, got %s", row.BrokerSymbol, row.Status)
			}
		}
		if f.resolver.calls["RELI"] != 2 {
			t.Errorf("expected a fresh resolve in the new session, got %d", f.resolver.calls["RELI"])
		}
	})
}

func TestSessionBack(t *testing.T) {
	t.Run("preview_to_map_to_upload", func(t *testing.T) {
		f := newSessionFixture(t)
		session := f.svc.Open()

		_, err := f.svc.Upload(session.ID, suffixedCSV)
		testutil.AssertNoError(t, err)
		_, err = f.svc.ConfirmMappings(session.ID)
		testutil.AssertNoError(t, err)

		session, err = f.svc.Back(session.ID)
		testutil.AssertNoError(t, err)
		if session.Stage != models.StageMap {
			t.Errorf("expected map, got %s", session.Stage)
		}

		session, err = f.svc.Back(session.ID)
		testutil.AssertNoError(t, err)
		if session.Stage != models.StageUpload {
			t.Errorf("expected upload, got %s", session.Stage)
		}

		_, err = f.svc.Back(session.ID)
		testutil.AssertAppError(t, err, "INVALID_STAGE")
	})
}

func TestSessionImport(t *testing.T) {
	t.Run("runs_executor_and_closes", func(t *testing.T) {
		f := newSessionFixture(t)
		session := f.svc.Open()

		_, err := f.svc.Upload(session.ID, suffixedCSV)
		testutil.AssertNoError(t, err)
		_, err = f.svc.ConfirmMappings(session.ID)
		testutil.AssertNoError(t, err)

		result, err := f.svc.Import(context.Background(), session.ID)
		testutil.AssertNoError(t, err)

		if result.Succeeded != 3 {
			t.Errorf("expected 3 succeeded, got %d", result.Succeeded)
		}
		if f.executor.runs != 1 {
			t.Errorf("expected exactly one executor run, got %d", f.executor.runs)
		}
		if len(f.executor.records) != 3 {
			t.Errorf("expected the 3 resolved records handed to the executor, got %d", len(f.executor.records))
		}

		_, err = f.svc.Get(session.ID)
		testutil.AssertAppError(t, err, "SESSION_NOT_FOUND")
	})

	t.Run("import_requires_preview", func(t *testing.T) {
		f := newSessionFixture(t)
		session := f.svc.Open()

		_, err := f.svc.Import(context.Background(), session.ID)
		testutil.AssertAppError(t, err, "INVALID_STAGE")
	})

	t.Run("failure_still_closes_session", func(t *testing.T) {
		f := newSessionFixture(t)
		f.executor.result = &ImportResult{
			Attempted:    2,
			Succeeded:    1,
			FailedSymbol: "TCS.NS",
			Err:          errors.New("ledger rejected record"),
		}

		session := f.svc.Open()
		_, err := f.svc.Upload(session.ID, suffixedCSV)
		testutil.AssertNoError(t, err)
		_, err = f.svc.ConfirmMappings(session.ID)
		testutil.AssertNoError(t, err)

		result, err := f.svc.Import(context.Background(), session.ID)
		testutil.AssertNoError(t, err)

		if result.Err == nil {
			t.Fatal("expected aggregate failure surfaced in the result")
		}
		if result.Attempted != 2 || result.Succeeded != 1 {
			t.Errorf("expected 1/2 outcome, got %d/%d", result.Succeeded, result.Attempted)
		}

		_, err = f.svc.Get(session.ID)
		testutil.AssertAppError(t, err, "SESSION_NOT_FOUND")
	})
}
