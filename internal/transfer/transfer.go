// Package transfer imports and exports a portfolio's holdings as CSV or
// XLSX. Import parses the whole file into a holdings set before anything
// is committed, so a malformed file never leaves partial state behind.
package transfer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/hyowon/folio/internal/accounting"
	"github.com/hyowon/folio/internal/contracts"
)

// Column names of the holdings file format, in output order
const (
	colSymbol       = "Symbol"
	colCurrentPrice = "Current Price"
	colTradeDate    = "Trade Date"
	colBuyPrice     = "Purchase Price"
	colQuantity     = "Quantity"
)

var exportHeader = []string{colSymbol, colCurrentPrice, colTradeDate, colBuyPrice, colQuantity}

// CSV import requires the full export header, so only files in the
// export format pass. Current Price is ignored after the check; Trade
// Date cells may be blank. XLSX import accepts any sheet carrying the
// three columns the parse actually needs.
var (
	csvRequiredColumns  = exportHeader
	xlsxRequiredColumns = []string{colSymbol, colBuyPrice, colQuantity}
)

const tradeDateLayout = "20060102"

// Holdings is the parsed result of one import: the accumulated position
// per symbol plus one synthetic BUY transaction per row.
type Holdings struct {
	Positions    map[string]contracts.Position
	Transactions []contracts.Transaction
}

// ImportCSV parses a holdings CSV. Rows become synthetic BUY transactions
// accumulated with the weighted-average rule; blank numeric cells read as
// zero, non-numeric cells fail the whole file. now stamps rows whose
// Trade Date is blank or malformed.
func ImportCSV(r io.Reader, now time.Time) (Holdings, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return Holdings{}, fmt.Errorf("read csv: %w", err)
	}
	note := fmt.Sprintf("Imported from CSV at %s", contracts.NewTimestamp(now))
	return fromRecords(records, csvRequiredColumns, note, now)
}

// ImportXLSX parses a holdings spreadsheet: first sheet, same columns and
// rules as ImportCSV.
func ImportXLSX(r io.Reader, now time.Time) (Holdings, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Holdings{}, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Holdings{}, fmt.Errorf("xlsx has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Holdings{}, fmt.Errorf("read xlsx rows: %w", err)
	}
	return fromRecords(rows, xlsxRequiredColumns, "Imported from XLSX", now)
}

// ImportFiles parses a batch of name/path pairs, one portfolio per file,
// detecting CSV vs XLSX by extension. Files that cannot be read or parsed
// are skipped and reported back; the batch continues.
func ImportFiles(paths map[string]string, now time.Time) (map[string]Holdings, []string) {
	imported := make(map[string]Holdings, len(paths))
	var skipped []string

	for name, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			skipped = append(skipped, path)
			continue
		}

		var holdings Holdings
		if strings.EqualFold(filepath.Ext(path), ".xlsx") {
			holdings, err = ImportXLSX(f, now)
		} else {
			holdings, err = ImportCSV(f, now)
		}
		f.Close()

		if err != nil {
			skipped = append(skipped, path)
			continue
		}
		imported[name] = holdings
	}
	return imported, skipped
}

func fromRecords(records [][]string, required []string, note string, now time.Time) (Holdings, error) {
	if len(records) == 0 {
		return Holdings{}, fmt.Errorf("file is empty")
	}

	index := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		index[strings.TrimSpace(name)] = i
	}
	for _, name := range required {
		if _, ok := index[name]; !ok {
			return Holdings{}, fmt.Errorf("missing required column %q", name)
		}
	}

	holdings := Holdings{Positions: make(map[string]contracts.Position)}
	for rowNum, record := range records[1:] {
		symbol := strings.ToUpper(strings.TrimSpace(cell(record, index[colSymbol])))
		if symbol == "" {
			continue
		}

		price, err := parseCell(cell(record, index[colBuyPrice]))
		if err != nil {
			return Holdings{}, fmt.Errorf("row %d: bad %s: %w", rowNum+2, colBuyPrice, err)
		}
		qty, err := parseCell(cell(record, index[colQuantity]))
		if err != nil {
			return Holdings{}, fmt.Errorf("row %d: bad %s: %w", rowNum+2, colQuantity, err)
		}

		when := now
		if dateCol, ok := index[colTradeDate]; ok {
			if parsed, err := time.ParseInLocation(tradeDateLayout, strings.TrimSpace(cell(record, dateCol)), time.Local); err == nil {
				when = parsed
			}
		}

		holdings.Positions[symbol] = accounting.ApplyBuy(holdings.Positions[symbol], qty, price)
		holdings.Transactions = append(holdings.Transactions, contracts.Transaction{
			Time:   contracts.NewTimestamp(when),
			Symbol: symbol,
			Action: contracts.ActionBuy,
			Qty:    qty,
			Price:  price,
			Note:   note,
		})
	}
	return holdings, nil
}

func cell(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

// parseCell reads a numeric cell, treating blank as zero
func parseCell(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", raw)
	}
	return v, nil
}

// ExportCSV writes the portfolio's current holdings: one row per held
// symbol, Current Price left blank, Trade Date set to the export date.
// The export is a snapshot of current state, not a ledger replay.
func ExportCSV(w io.Writer, pf *contracts.Portfolio, now time.Time) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range exportRows(pf, now) {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ExportXLSX writes the same snapshot as ExportCSV as a one-sheet
// spreadsheet.
func ExportXLSX(w io.Writer, pf *contracts.Portfolio, now time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows := append([][]string{exportHeader}, exportRows(pf, now)...)
	for i, row := range rows {
		addr, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("xlsx cell address: %w", err)
		}
		if err := f.SetSheetRow(sheet, addr, &row); err != nil {
			return fmt.Errorf("write xlsx row: %w", err)
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func exportRows(pf *contracts.Portfolio, now time.Time) [][]string {
	date := now.Format(tradeDateLayout)
	rows := make([][]string, 0, len(pf.Tickers))
	for _, symbol := range pf.Tickers {
		pos, ok := pf.Positions[symbol]
		if !ok {
			continue
		}
		rows = append(rows, []string{
			symbol,
			"",
			date,
			formatCell(pos.AvgCost),
			formatCell(pos.Qty),
		})
	}
	return rows
}

func formatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
