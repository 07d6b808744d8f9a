package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"brokersync/internal/models"
)

const dateLayout = "2006-01-02"

// requiredColumns is the canonical header set; fx_rate is optional.
var requiredColumns = []string{"trade_date", "symbol", "side", "quantity", "price", "fees", "trade_ccy"}

const fxRateColumn = "fx_rate"

// csvTemplate is the downloadable import template: the canonical header plus
// three example rows.
const csvTemplate = `trade_date,symbol,side,quantity,price,fees,trade_ccy,fx_rate
2026-01-15,RELIANCE.NS,BUY,10,2850.50,20.00,INR,
2026-02-03,TCS.NS,BUY,5,4100.00,20.00,INR,
2026-03-20,RELIANCE.NS,DIV,0,95.00,0,INR,
`

// parserService turns raw delimited text into transaction records plus a
// batch of row-level validation errors.
type parserService struct{}

// NewParserService creates a new ParserServicer.
func NewParserService() ParserServicer {
	return &parserService{}
}

// Parse reads broker-exported CSV text and returns the valid records along
// with every validation error found. Validation is batched: every row is
// checked in one pass so all problems surface at once. Empty input yields
// zero records and zero errors.
func (s *parserService) Parse(text string) ([]models.TransactionRecord, []models.ValidationError) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, []models.ValidationError{{RowIndex: 0, Message: "unreadable header row"}}
	}

	columns, missing := buildColumnIndex(header)
	if len(missing) > 0 {
		return nil, []models.ValidationError{{
			RowIndex: 0,
			Message:  fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")),
		}}
	}

	var records []models.TransactionRecord
	var errs []models.ValidationError

	rowIndex := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowIndex++
		if err != nil {
			errs = append(errs, models.ValidationError{RowIndex: rowIndex, Message: "malformed CSV row"})
			continue
		}
		if isBlankRow(row) {
			continue
		}

		record, rowErrs := parseRow(row, columns, rowIndex)
		if len(rowErrs) > 0 {
			errs = append(errs, rowErrs...)
			continue
		}
		records = append(records, record)
	}

	return records, errs
}

// Template returns the CSV template text for download.
func (s *parserService) Template() string {
	return csvTemplate
}

// buildColumnIndex resolves header names to field positions once, matching
// case-insensitively. It returns the index table and any required columns
// that are absent.
func buildColumnIndex(header []string) (map[string]int, []string) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	return columns, missing
}

func isBlankRow(row []string) bool {
	for _, field := range row {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// parseRow maps one data row to a record through the column index table and
// validates every field, collecting all errors rather than stopping at the
// first.
func parseRow(row []string, columns map[string]int, rowIndex int) (models.TransactionRecord, []models.ValidationError) {
	var errs []models.ValidationError

	field := func(name string) (string, bool) {
		idx := columns[name]
		if idx >= len(row) {
			return "", false
		}
		return strings.TrimSpace(row[idx]), true
	}

	for _, name := range requiredColumns {
		if _, ok := field(name); !ok {
			return models.TransactionRecord{}, []models.ValidationError{{
				RowIndex: rowIndex,
				Message:  fmt.Sprintf("row has too few columns for field %s", name),
			}}
		}
	}

	var record models.TransactionRecord

	dateStr, _ := field("trade_date")
	date, err := time.Parse(dateLayout, dateStr)
	if err != nil {
		errs = append(errs, models.ValidationError{
			RowIndex: rowIndex,
			Message:  fmt.Sprintf("invalid trade date %s", dateStr),
			Value:    dateStr,
		})
	} else {
		record.TradeDate = date
	}

	symbol, _ := field("symbol")
	if symbol == "" {
		errs = append(errs, models.ValidationError{RowIndex: rowIndex, Message: "symbol is required"})
	}
	record.Symbol = strings.ToUpper(symbol)

	sideStr, _ := field("side")
	side := models.TradeSide(strings.ToUpper(sideStr))
	if !side.Valid() {
		errs = append(errs, models.ValidationError{
			RowIndex: rowIndex,
			Message:  fmt.Sprintf("invalid side value %s", sideStr),
			Value:    sideStr,
		})
	}
	record.Side = side

	record.Quantity = parseNonNegative(field, "quantity", rowIndex, &errs)
	record.Price = parseNonNegative(field, "price", rowIndex, &errs)
	record.Fees = parseNonNegative(field, "fees", rowIndex, &errs)

	record.TradeCurrency, _ = field("trade_ccy")

	if fxIdx, ok := columns[fxRateColumn]; ok && fxIdx < len(row) {
		fxStr := strings.TrimSpace(row[fxIdx])
		if fxStr != "" {
			fx, err := strconv.ParseFloat(fxStr, 64)
			if err != nil || !isFiniteNonNegative(fx) {
				errs = append(errs, models.ValidationError{
					RowIndex: rowIndex,
					Message:  fmt.Sprintf("invalid fx_rate value %s", fxStr),
					Value:    fxStr,
				})
			} else {
				record.FxRate = &fx
			}
		}
	}

	if len(errs) > 0 {
		return models.TransactionRecord{}, errs
	}
	return record, nil
}

func parseNonNegative(field func(string) (string, bool), name string, rowIndex int, errs *[]models.ValidationError) float64 {
	raw, _ := field(name)
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || !isFiniteNonNegative(value) {
		*errs = append(*errs, models.ValidationError{
			RowIndex: rowIndex,
			Message:  fmt.Sprintf("invalid %s value %s", name, raw),
			Value:    raw,
		})
		return 0
	}
	return value
}

// isFiniteNonNegative rejects NaN and infinities, which strconv.ParseFloat
// accepts as spelled-out values.
func isFiniteNonNegative(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0) && value >= 0
}
