// Package valuation combines positions with fetched prices into per-symbol
// and per-portfolio figures. Prices may be missing for any symbol; rows keep
// "no data" explicit with nullable fields because a zero P/L is a valid
// result, not an absent one.
package valuation

import (
	"math"
	"sort"

	"github.com/hyowon/folio/internal/contracts"
)

// Row holds the computed figures for one symbol in one portfolio. Value
// fields are nil when the price is unknown or the position is incomplete.
type Row struct {
	Symbol       string   `json:"symbol"`
	Price        *float64 `json:"price"`
	Qty          *float64 `json:"qty"`
	AvgCost      *float64 `json:"buy"`
	CurrentValue *float64 `json:"currentValue"`
	CostBasis    *float64 `json:"costBasis"`
	PL           *float64 `json:"pl"`
	PLPct        *float64 `json:"plPct"`
	Note         string   `json:"note"`
}

// Totals aggregates a whole portfolio. Value falls back to cost basis for
// symbols without a live price.
type Totals struct {
	Value float64 `json:"value"`
	Cost  float64 `json:"cost"`
	PL    float64 `json:"pl"`
}

// BuildRows computes one row per tracked symbol and the total P/L over rows
// that have one. Each row also carries the most recent non-empty transaction
// note for its symbol.
func BuildRows(pf *contracts.Portfolio, prices map[string]float64) ([]Row, float64) {
	lastNote := lastNoteBySymbol(pf.Transactions)

	rows := make([]Row, 0, len(pf.Tickers))
	totalPL := 0.0

	for _, symbol := range pf.Tickers {
		pos := pf.Positions[symbol]
		row := Row{
			Symbol:  symbol,
			Qty:     pos.Qty,
			AvgCost: pos.AvgCost,
			Note:    lastNote[symbol],
		}
		if price, ok := prices[symbol]; ok {
			row.Price = contracts.Float(price)
		}

		if row.Price != nil && pos.Defined() {
			currentValue := *row.Price * pos.QtyValue()
			costBasis := pos.AvgCostValue() * pos.QtyValue()
			pl := currentValue - costBasis
			plPct := 0.0
			if costBasis != 0 {
				plPct = pl / costBasis * 100
			}

			row.CurrentValue = contracts.Float(currentValue)
			row.CostBasis = contracts.Float(costBasis)
			row.PL = contracts.Float(pl)
			row.PLPct = contracts.Float(plPct)
			totalPL += pl
		}

		rows = append(rows, row)
	}

	return rows, totalPL
}

// PortfolioTotals sums value and cost over all defined positions, falling
// back to cost basis where no live price is known.
func PortfolioTotals(pf *contracts.Portfolio, prices map[string]float64) Totals {
	var t Totals
	for _, symbol := range pf.Tickers {
		pos, ok := pf.Positions[symbol]
		if !ok || !pos.Defined() {
			continue
		}
		cost := pos.QtyValue() * pos.AvgCostValue()
		value := cost
		if price, known := prices[symbol]; known {
			value = price * pos.QtyValue()
		}
		t.Cost += cost
		t.Value += value
	}
	t.PL = t.Value - t.Cost
	return t
}

// SummaryCell is one (portfolio, symbol) cell of the cross-portfolio
// summary. Cells exist only where the portfolio holds a defined position;
// P/L fields additionally require a live price.
type SummaryCell struct {
	Qty       float64  `json:"qty"`
	AvgCost   float64  `json:"buy"`
	CostBasis float64  `json:"cost"`
	PL        *float64 `json:"pl"`
	PLPct     *float64 `json:"plPct"`
	Tag       *int     `json:"tag,omitempty"`
}

// SummaryRow is one symbol across every portfolio
type SummaryRow struct {
	Symbol string                  `json:"symbol"`
	Cells  map[string]*SummaryCell `json:"cells"`
}

// BuildSummary computes the aggregate view: every symbol tracked anywhere,
// against the given portfolio order. The per-cell computation is identical
// to BuildRows, performed independently per portfolio.
func BuildSummary(
	portfolios map[string]*contracts.Portfolio,
	order []string,
	pricesByPortfolio map[string]map[string]float64,
	tags map[string]map[string]int,
) []SummaryRow {
	symbolSet := make(map[string]bool)
	for _, pf := range portfolios {
		for _, symbol := range pf.Tickers {
			symbolSet[symbol] = true
		}
	}
	symbols := make([]string, 0, len(symbolSet))
	for symbol := range symbolSet {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	rows := make([]SummaryRow, 0, len(symbols))
	for _, symbol := range symbols {
		row := SummaryRow{Symbol: symbol, Cells: make(map[string]*SummaryCell)}
		for _, name := range order {
			pf, ok := portfolios[name]
			if !ok {
				continue
			}
			pos, ok := pf.Positions[symbol]
			if !ok || !pos.Defined() {
				continue
			}

			cell := &SummaryCell{
				Qty:       pos.QtyValue(),
				AvgCost:   pos.AvgCostValue(),
				CostBasis: pos.QtyValue() * pos.AvgCostValue(),
			}
			if price, known := pricesByPortfolio[name][symbol]; known {
				pl := price*cell.Qty - cell.CostBasis
				plPct := 0.0
				if cell.CostBasis != 0 {
					plPct = pl / cell.CostBasis * 100
				}
				cell.PL = contracts.Float(pl)
				cell.PLPct = contracts.Float(plPct)
			}
			if tag, ok := tags[name][symbol]; ok {
				cell.Tag = &tag
			}
			row.Cells[name] = cell
		}
		rows = append(rows, row)
	}

	return rows
}

// Valid sort fields for SortRows
var rowSortFields = map[string]func(Row) *float64{
	"price":  func(r Row) *float64 { return r.Price },
	"qty":    func(r Row) *float64 { return r.Qty },
	"buy":    func(r Row) *float64 { return r.AvgCost },
	"cost":   func(r Row) *float64 { return r.CostBasis },
	"pl":     func(r Row) *float64 { return r.PL },
	"pl_pct": func(r Row) *float64 { return r.PLPct },
}

// SortRows orders rows by the named field. Unknown fields fall back to
// symbol order and unknown directions to ascending; rows without data for
// the field sort as negative infinity so they land last in descending
// order.
func SortRows(rows []Row, by, dir string) {
	if dir != "asc" && dir != "desc" {
		dir = "asc"
	}
	desc := dir == "desc"

	key, numeric := rowSortFields[by]
	sort.SliceStable(rows, func(i, j int) bool {
		if numeric {
			a, b := numValue(key(rows[i])), numValue(key(rows[j]))
			if a != b {
				if desc {
					return a > b
				}
				return a < b
			}
			return rows[i].Symbol < rows[j].Symbol
		}
		if desc {
			return rows[i].Symbol > rows[j].Symbol
		}
		return rows[i].Symbol < rows[j].Symbol
	})
}

func numValue(v *float64) float64 {
	if v == nil {
		return math.Inf(-1)
	}
	return *v
}

func lastNoteBySymbol(transactions []contracts.Transaction) map[string]string {
	notes := make(map[string]string)
	for _, tx := range transactions {
		if tx.Symbol != "" && tx.Note != "" {
			notes[tx.Symbol] = tx.Note
		}
	}
	return notes
}
