package handlers

import (
	"math"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/hyowon/folio/internal/contracts"
	"github.com/hyowon/folio/internal/history"
	"github.com/hyowon/folio/internal/prices"
	"github.com/hyowon/folio/internal/store"
	"github.com/hyowon/folio/internal/valuation"
	"github.com/hyowon/folio/pkg/logger"
)

// PortfolioHandler serves the portfolio view and every portfolio, ticker,
// trade, and tag mutation.
type PortfolioHandler struct {
	store  *store.Store
	prices *prices.Service
	logger *logger.Logger
}

// NewPortfolioHandler creates a portfolio handler
func NewPortfolioHandler(st *store.Store, priceSvc *prices.Service, log *logger.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		store:  st,
		prices: priceSvc,
		logger: log,
	}
}

// PortfolioResponse is the dashboard payload for one portfolio
type PortfolioResponse struct {
	Name      string                   `json:"name"`
	Names     []string                 `json:"names"`
	Default   string                   `json:"default"`
	Rows      []valuation.Row          `json:"rows"`
	TotalPL   float64                  `json:"totalPl"`
	Totals    valuation.Totals         `json:"totals"`
	Tags      map[string]int           `json:"tags"`
	TagLabels []string                 `json:"tagLabels"`
	History   []contracts.HistoryPoint `json:"history"`
}

// Get returns the resolved portfolio's valuation rows and totals.
// GET /api/portfolio?name=X&sort=pl&dir=desc
//
// Prices are fetched best-effort on every read, and each read appends one
// live mark-to-market point to the portfolio's history.
func (h *PortfolioHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := h.store.Resolve(r.URL.Query().Get("name"))
	pf, ok := h.store.Get(name)
	if !ok {
		respondError(w, http.StatusNotFound, "portfolio not found")
		return
	}

	quoted := h.prices.Fetch(r.Context(), pf.Tickers)

	rows, totalPL := valuation.BuildRows(pf, quoted)
	if by := r.URL.Query().Get("sort"); by != "" {
		valuation.SortRows(rows, by, r.URL.Query().Get("dir"))
	}

	point := history.LivePoint(pf, quoted, time.Now())
	if err := h.store.AppendHistoryPoint(name, point); err != nil {
		h.logger.WithError(err).WithField("portfolio", name).
			Warn("Failed to append history point")
	}

	respondJSON(w, http.StatusOK, PortfolioResponse{
		Name:      name,
		Names:     h.store.Names(),
		Default:   h.store.DefaultName(),
		Rows:      rows,
		TotalPL:   totalPL,
		Totals:    valuation.PortfolioTotals(pf, quoted),
		Tags:      h.store.Tags(name),
		TagLabels: contracts.TagLabels,
		History:   h.store.History(name),
	})
}

// NameRequest carries a single portfolio name
type NameRequest struct {
	Name string `json:"name"`
}

// Add creates a portfolio.
// POST /api/portfolio
func (h *PortfolioHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.store.Add(req.Name); err != nil {
		respondStoreError(w, err)
		return
	}
	h.logger.WithField("portfolio", req.Name).Info("Portfolio created")
	respondJSON(w, http.StatusCreated, map[string]string{"name": req.Name})
}

// RenameRequest carries a portfolio rename
type RenameRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Rename moves a portfolio and its side state to a new name.
// POST /api/portfolio/rename
func (h *PortfolioHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.store.Rename(req.From, req.To); err != nil {
		respondStoreError(w, err)
		return
	}
	h.logger.WithFields(map[string]interface{}{
		"from": req.From,
		"to":   req.To,
	}).Info("Portfolio renamed")
	respondJSON(w, http.StatusOK, map[string]string{"name": req.To})
}

// Remove deletes a portfolio; the last one is protected.
// POST /api/portfolio/remove
func (h *PortfolioHandler) Remove(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.store.Remove(req.Name); err != nil {
		respondStoreError(w, err)
		return
	}
	h.logger.WithField("portfolio", req.Name).Info("Portfolio removed")
	respondJSON(w, http.StatusOK, map[string]string{"default": h.store.DefaultName()})
}

// TickerRequest targets a symbol within a portfolio
type TickerRequest struct {
	Portfolio string `json:"portfolio"`
	Symbol    string `json:"symbol"`
}

// AddTicker starts tracking a symbol.
// POST /api/tickers/add
func (h *PortfolioHandler) AddTicker(w http.ResponseWriter, r *http.Request) {
	var req TickerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	name, err := h.store.AddTicker(req.Portfolio, req.Symbol)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"portfolio": name,
		"tickers":   h.store.Tickers(name),
	})
}

// RemoveTicker stops tracking a symbol and drops its position.
// POST /api/tickers/remove
func (h *PortfolioHandler) RemoveTicker(w http.ResponseWriter, r *http.Request) {
	var req TickerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	name := h.store.RemoveTicker(req.Portfolio, req.Symbol)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"portfolio": name,
		"tickers":   h.store.Tickers(name),
	})
}

// TradeRequest records one buy or sell
type TradeRequest struct {
	Portfolio string  `json:"portfolio"`
	Symbol    string  `json:"symbol"`
	Qty       float64 `json:"qty"`
	Price     float64 `json:"price"`
	Note      string  `json:"note"`
}

func (req *TradeRequest) valid() bool {
	return req.Qty >= 0 && req.Price >= 0 &&
		!math.IsNaN(req.Qty) && !math.IsInf(req.Qty, 0) &&
		!math.IsNaN(req.Price) && !math.IsInf(req.Price, 0)
}

// Buy records a purchase.
// POST /api/trade/buy
func (h *PortfolioHandler) Buy(w http.ResponseWriter, r *http.Request) {
	h.trade(w, r, h.store.Buy)
}

// Sell records a sale.
// POST /api/trade/sell
func (h *PortfolioHandler) Sell(w http.ResponseWriter, r *http.Request) {
	h.trade(w, r, h.store.Sell)
}

func (h *PortfolioHandler) trade(w http.ResponseWriter, r *http.Request, apply func(name, symbol string, qty, price float64, note string) (string, error)) {
	var req TradeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !req.valid() {
		respondError(w, http.StatusBadRequest, "qty and price must be non-negative numbers")
		return
	}

	name, err := apply(req.Portfolio, req.Symbol, req.Qty, req.Price, req.Note)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	pf, _ := h.store.Get(name)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"portfolio": name,
		"position":  pf.Positions[req.Symbol],
	})
}

// TagRequest sets or clears a tag; a null tag clears
type TagRequest struct {
	Portfolio string `json:"portfolio"`
	Symbol    string `json:"symbol"`
	Tag       *int   `json:"tag"`
}

// SetTag assigns or clears the label on a (portfolio, symbol) pair.
// POST /api/tags
func (h *PortfolioHandler) SetTag(w http.ResponseWriter, r *http.Request) {
	var req TagRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Tag == nil {
		h.store.ClearTag(req.Portfolio, req.Symbol)
		respondJSON(w, http.StatusOK, map[string]interface{}{"tags": h.store.Tags(req.Portfolio)})
		return
	}
	if err := h.store.SetTag(req.Portfolio, req.Symbol, *req.Tag); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"tags": h.store.Tags(req.Portfolio)})
}

// TagLabels returns the fixed label list, in index order.
// GET /api/tags/labels
func (h *PortfolioHandler) TagLabels(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{"labels": contracts.TagLabels})
}

// History returns the stored value series for one portfolio.
// GET /api/history/{portfolio}
func (h *PortfolioHandler) History(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["portfolio"]
	if _, ok := h.store.Get(name); !ok {
		respondError(w, http.StatusNotFound, "portfolio not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"portfolio": name,
		"history":   h.store.History(name),
	})
}
