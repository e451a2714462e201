package contracts

import "sort"

// Action represents the side of a recorded trade
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// Position is a holding in one symbol: quantity plus weighted average cost.
// Both fields are nullable so that "no data" stays distinguishable from a
// genuine zero; a snapshot restored from an older backup may carry positions
// with either field absent.
type Position struct {
	Qty     *float64 `json:"qty"`
	AvgCost *float64 `json:"buy"`
}

// Defined reports whether both quantity and average cost are present
func (p Position) Defined() bool {
	return p.Qty != nil && p.AvgCost != nil
}

// QtyValue returns the quantity, treating absent as zero
func (p Position) QtyValue() float64 {
	if p.Qty == nil {
		return 0
	}
	return *p.Qty
}

// AvgCostValue returns the average cost, treating absent as zero
func (p Position) AvgCostValue() float64 {
	if p.AvgCost == nil {
		return 0
	}
	return *p.AvgCost
}

// Float returns a pointer to v, for building nullable numeric fields
func Float(v float64) *float64 {
	return &v
}

// Transaction is an immutable record of a single buy or sell event
type Transaction struct {
	Time      Timestamp `json:"time"`
	Portfolio string    `json:"portfolio"`
	Symbol    string    `json:"symbol"`
	Action    Action    `json:"action"`
	Qty       float64   `json:"qty"`
	Price     float64   `json:"price"`
	Note      string    `json:"note"`
}

// Portfolio holds one named portfolio's tracked symbols, positions, and
// append-only transaction log. The ticker list is kept sorted and
// de-duplicated; its order carries no meaning beyond display.
type Portfolio struct {
	Tickers      []string            `json:"tickers"`
	Positions    map[string]Position `json:"positions"`
	Transactions []Transaction       `json:"transactions"`
}

// NewPortfolio creates an empty portfolio
func NewPortfolio() *Portfolio {
	return &Portfolio{
		Tickers:      []string{},
		Positions:    make(map[string]Position),
		Transactions: []Transaction{},
	}
}

// HasTicker reports whether symbol is tracked
func (p *Portfolio) HasTicker(symbol string) bool {
	for _, t := range p.Tickers {
		if t == symbol {
			return true
		}
	}
	return false
}

// AddTicker starts tracking symbol, keeping the list sorted and
// de-duplicated. Returns false if the symbol was already tracked.
func (p *Portfolio) AddTicker(symbol string) bool {
	if symbol == "" || p.HasTicker(symbol) {
		return false
	}
	p.Tickers = append(p.Tickers, symbol)
	sort.Strings(p.Tickers)
	return true
}

// RemoveTicker stops tracking symbol and drops its position
func (p *Portfolio) RemoveTicker(symbol string) {
	for i, t := range p.Tickers {
		if t == symbol {
			p.Tickers = append(p.Tickers[:i], p.Tickers[i+1:]...)
			break
		}
	}
	delete(p.Positions, symbol)
}

// Clone returns a deep copy
func (p *Portfolio) Clone() *Portfolio {
	c := &Portfolio{
		Tickers:      make([]string, len(p.Tickers)),
		Positions:    make(map[string]Position, len(p.Positions)),
		Transactions: make([]Transaction, len(p.Transactions)),
	}
	copy(c.Tickers, p.Tickers)
	copy(c.Transactions, p.Transactions)
	for sym, pos := range p.Positions {
		c.Positions[sym] = Position{Qty: cloneFloat(pos.Qty), AvgCost: cloneFloat(pos.AvgCost)}
	}
	return c
}

// Normalize fills nil collections after JSON decoding
func (p *Portfolio) Normalize() {
	if p.Tickers == nil {
		p.Tickers = []string{}
	}
	if p.Positions == nil {
		p.Positions = make(map[string]Position)
	}
	if p.Transactions == nil {
		p.Transactions = []Transaction{}
	}
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
