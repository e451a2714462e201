// Package store holds the process-wide portfolio state: every portfolio,
// its value history, per-symbol tags, and the default portfolio name. A
// single RWMutex serializes writers; readers get deep copies so nothing
// escaping the lock can observe a half-applied mutation.
package store

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hyowon/folio/internal/accounting"
	"github.com/hyowon/folio/internal/contracts"
	"github.com/hyowon/folio/internal/history"
)

var (
	ErrEmptyName         = errors.New("portfolio name must not be empty")
	ErrPortfolioExists   = errors.New("portfolio already exists")
	ErrPortfolioNotFound = errors.New("portfolio not found")
	ErrLastPortfolio     = errors.New("cannot remove the last portfolio")
	ErrInvalidTag        = errors.New("tag index out of range")
	ErrUnknownSymbol     = errors.New("symbol not tracked")
)

// Store is the single in-memory source of truth. Construct it once at
// startup and hand the same instance to every component that needs state.
type Store struct {
	mu sync.RWMutex

	portfolios  map[string]*contracts.Portfolio
	histories   map[string][]contracts.HistoryPoint
	tags        map[string]map[string]int
	defaultName string

	now func() time.Time
}

// New creates an empty store
func New() *Store {
	return &Store{
		portfolios: make(map[string]*contracts.Portfolio),
		histories:  make(map[string][]contracts.HistoryPoint),
		tags:       make(map[string]map[string]int),
		now:        time.Now,
	}
}

// Names returns every portfolio name in sorted order
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.namesLocked()
}

func (s *Store) namesLocked() []string {
	names := make([]string, 0, len(s.portfolios))
	for name := range s.portfolios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultName returns the designated default portfolio name
func (s *Store) DefaultName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaultName
}

// SetDefault designates an existing portfolio as the default
func (s *Store) SetDefault(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.portfolios[name]; !ok {
		return ErrPortfolioNotFound
	}
	s.defaultName = name
	return nil
}

// Resolve maps a caller-supplied portfolio name to the one the operation
// should act on: the explicit name if it exists, else the default, else
// the first portfolio in name order. If the store is empty a portfolio is
// created lazily under the fallback name.
func (s *Store) Resolve(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveLocked(name)
}

func (s *Store) resolveLocked(name string) string {
	if name != "" {
		if _, ok := s.portfolios[name]; ok {
			return name
		}
	}
	if _, ok := s.portfolios[s.defaultName]; ok {
		return s.defaultName
	}
	if names := s.namesLocked(); len(names) > 0 {
		return names[0]
	}
	s.portfolios[contracts.FallbackPortfolioName] = contracts.NewPortfolio()
	s.defaultName = contracts.FallbackPortfolioName
	return contracts.FallbackPortfolioName
}

// normalizeSymbol canonicalizes a caller-supplied symbol so "aapl" and
// "AAPL" address the same position.
func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ensureLocked resolves a name for a write: an explicit unknown name is
// created rather than redirected, so the first trade into a new name
// brings the portfolio into existence.
func (s *Store) ensureLocked(name string) string {
	if name == "" {
		return s.resolveLocked(name)
	}
	if _, ok := s.portfolios[name]; !ok {
		s.portfolios[name] = contracts.NewPortfolio()
		if s.defaultName == "" {
			s.defaultName = name
		}
	}
	return name
}

// Add creates a new empty portfolio under name
func (s *Store) Add(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.portfolios[name]; ok {
		return ErrPortfolioExists
	}
	s.portfolios[name] = contracts.NewPortfolio()
	if s.defaultName == "" {
		s.defaultName = name
	}
	return nil
}

// Rename moves a portfolio and all its side state (history, tags, the
// default designation) to a new name in one step.
func (s *Store) Rename(oldName, newName string) error {
	if newName == "" {
		return ErrEmptyName
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	pf, ok := s.portfolios[oldName]
	if !ok {
		return ErrPortfolioNotFound
	}
	if _, taken := s.portfolios[newName]; taken {
		return ErrPortfolioExists
	}

	s.portfolios[newName] = pf
	delete(s.portfolios, oldName)
	for i := range pf.Transactions {
		pf.Transactions[i].Portfolio = newName
	}
	if points, ok := s.histories[oldName]; ok {
		s.histories[newName] = points
		delete(s.histories, oldName)
	}
	if t, ok := s.tags[oldName]; ok {
		s.tags[newName] = t
		delete(s.tags, oldName)
	}
	if s.defaultName == oldName {
		s.defaultName = newName
	}
	return nil
}

// Remove deletes a portfolio and its side state. The last remaining
// portfolio cannot be removed; removing the default promotes another
// portfolio to default.
func (s *Store) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.portfolios[name]; !ok {
		return ErrPortfolioNotFound
	}
	if len(s.portfolios) <= 1 {
		return ErrLastPortfolio
	}

	delete(s.portfolios, name)
	delete(s.histories, name)
	delete(s.tags, name)
	if s.defaultName == name {
		s.defaultName = s.namesLocked()[0]
	}
	return nil
}

// Get returns a deep copy of the named portfolio
func (s *Store) Get(name string) (*contracts.Portfolio, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pf, ok := s.portfolios[name]
	if !ok {
		return nil, false
	}
	return pf.Clone(), true
}

// Portfolios returns a deep copy of every portfolio
func (s *Store) Portfolios() map[string]*contracts.Portfolio {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*contracts.Portfolio, len(s.portfolios))
	for name, pf := range s.portfolios {
		out[name] = pf.Clone()
	}
	return out
}

// Tickers returns the tracked symbols of the named portfolio
func (s *Store) Tickers(name string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pf, ok := s.portfolios[name]
	if !ok {
		return nil
	}
	out := make([]string, len(pf.Tickers))
	copy(out, pf.Tickers)
	return out
}

// AddTicker starts tracking symbol in the resolved portfolio and returns
// the portfolio name acted on.
func (s *Store) AddTicker(name, symbol string) (string, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return "", ErrUnknownSymbol
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	resolved := s.ensureLocked(name)
	s.portfolios[resolved].AddTicker(symbol)
	return resolved, nil
}

// RemoveTicker stops tracking symbol, drops its position and tag, and
// returns the portfolio name acted on. The transaction log is untouched.
func (s *Store) RemoveTicker(name, symbol string) string {
	symbol = normalizeSymbol(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()
	resolved := s.resolveLocked(name)
	s.portfolios[resolved].RemoveTicker(symbol)
	if t, ok := s.tags[resolved]; ok {
		delete(t, symbol)
	}
	return resolved
}

// Buy records a purchase: the position is updated with the weighted
// average cost rule, a BUY transaction is appended, and the portfolio's
// history is rebuilt from the ledger.
func (s *Store) Buy(name, symbol string, qty, price float64, note string) (string, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return "", ErrUnknownSymbol
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	resolved := s.ensureLocked(name)
	pf := s.portfolios[resolved]
	pf.AddTicker(symbol)
	pf.Positions[symbol] = accounting.ApplyBuy(pf.Positions[symbol], qty, price)
	pf.Transactions = append(pf.Transactions, contracts.Transaction{
		Time:      contracts.NewTimestamp(s.now()),
		Portfolio: resolved,
		Symbol:    symbol,
		Action:    contracts.ActionBuy,
		Qty:       qty,
		Price:     price,
		Note:      note,
	})
	s.histories[resolved] = history.Rebuild(pf.Transactions)
	return resolved, nil
}

// Sell records a sale: quantity is floored at zero, average cost is left
// alone, a SELL transaction is appended, and history is rebuilt. Selling
// a symbol with no prior position still records the trade and leaves a
// zero-quantity position behind.
func (s *Store) Sell(name, symbol string, qty, price float64, note string) (string, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return "", ErrUnknownSymbol
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	resolved := s.ensureLocked(name)
	pf := s.portfolios[resolved]
	pf.AddTicker(symbol)
	pf.Positions[symbol] = accounting.ApplySell(pf.Positions[symbol], qty)
	pf.Transactions = append(pf.Transactions, contracts.Transaction{
		Time:      contracts.NewTimestamp(s.now()),
		Portfolio: resolved,
		Symbol:    symbol,
		Action:    contracts.ActionSell,
		Qty:       qty,
		Price:     price,
		Note:      note,
	})
	s.histories[resolved] = history.Rebuild(pf.Transactions)
	return resolved, nil
}

// ReplaceHoldings swaps in a freshly imported position set: tickers,
// positions, and the transaction log are replaced wholesale, tags for the
// portfolio are cleared, and history is rebuilt from the new ledger.
func (s *Store) ReplaceHoldings(name string, positions map[string]contracts.Position, transactions []contracts.Transaction) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	resolved := s.ensureLocked(name)
	pf := contracts.NewPortfolio()
	for symbol, pos := range positions {
		pf.AddTicker(symbol)
		pf.Positions[symbol] = pos
	}
	pf.Transactions = append(pf.Transactions, transactions...)
	for i := range pf.Transactions {
		pf.Transactions[i].Portfolio = resolved
	}
	s.portfolios[resolved] = pf
	delete(s.tags, resolved)
	s.histories[resolved] = history.Rebuild(pf.Transactions)
	return resolved
}

// SetTag assigns a label index to a (portfolio, symbol) pair. Out-of-range
// indexes are rejected without touching any existing tag.
func (s *Store) SetTag(name, symbol string, tag int) error {
	symbol = normalizeSymbol(symbol)
	if !contracts.ValidTag(tag) {
		return ErrInvalidTag
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.portfolios[name]; !ok {
		return ErrPortfolioNotFound
	}
	if s.tags[name] == nil {
		s.tags[name] = make(map[string]int)
	}
	s.tags[name][symbol] = tag
	return nil
}

// ClearTag removes the tag on a (portfolio, symbol) pair, if any
func (s *Store) ClearTag(name, symbol string) {
	symbol = normalizeSymbol(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tags[name]; ok {
		delete(t, symbol)
	}
}

// Tags returns a copy of the tag map for one portfolio
func (s *Store) Tags(name string) map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.tags[name]))
	for symbol, tag := range s.tags[name] {
		out[symbol] = tag
	}
	return out
}

// AllTags returns a copy of every portfolio's tag map
func (s *Store) AllTags() map[string]map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]map[string]int, len(s.tags))
	for name, symbols := range s.tags {
		inner := make(map[string]int, len(symbols))
		for symbol, tag := range symbols {
			inner[symbol] = tag
		}
		out[name] = inner
	}
	return out
}

// History returns a copy of the named portfolio's value series
func (s *Store) History(name string) []contracts.HistoryPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	points := s.histories[name]
	out := make([]contracts.HistoryPoint, len(points))
	copy(out, points)
	return out
}

// AppendHistoryPoint adds one live valuation point to the named
// portfolio's series. Points are appended as observed, including repeats
// at the same timestamp.
func (s *Store) AppendHistoryPoint(name string, point contracts.HistoryPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.portfolios[name]; !ok {
		return ErrPortfolioNotFound
	}
	s.histories[name] = append(s.histories[name], point)
	return nil
}

// Snapshot captures the entire store as one document. The copy is deep,
// so serializing it later races with nothing.
func (s *Store) Snapshot() contracts.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := contracts.Snapshot{
		Portfolios:       make(map[string]*contracts.Portfolio, len(s.portfolios)),
		History:          make(map[string][]contracts.HistoryPoint, len(s.histories)),
		DefaultPortfolio: s.defaultName,
	}
	for name, pf := range s.portfolios {
		snap.Portfolios[name] = pf.Clone()
	}
	for name, points := range s.histories {
		copied := make([]contracts.HistoryPoint, len(points))
		copy(copied, points)
		snap.History[name] = copied
	}
	return snap
}

// Restore replaces the entire store with the snapshot's contents. The
// swap is all-or-nothing: nothing is touched until the snapshot has been
// normalized and copied. Tags are in-memory annotations, not part of the
// snapshot; entries for portfolios that no longer exist are dropped.
func (s *Store) Restore(snap contracts.Snapshot) {
	snap.Normalize()

	portfolios := make(map[string]*contracts.Portfolio, len(snap.Portfolios))
	for name, pf := range snap.Portfolios {
		portfolios[name] = pf.Clone()
	}
	histories := make(map[string][]contracts.HistoryPoint, len(snap.History))
	for name, points := range snap.History {
		copied := make([]contracts.HistoryPoint, len(points))
		copy(copied, points)
		histories[name] = copied
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.portfolios = portfolios
	s.histories = histories
	s.defaultName = snap.DefaultPortfolio
	for name := range s.tags {
		if _, ok := s.portfolios[name]; !ok {
			delete(s.tags, name)
		}
	}
}
