package handlers

import (
	"net/http"

	"github.com/hyowon/folio/internal/contracts"
	"github.com/hyowon/folio/internal/prefs"
	"github.com/hyowon/folio/internal/prices"
	"github.com/hyowon/folio/internal/store"
	"github.com/hyowon/folio/internal/valuation"
	"github.com/hyowon/folio/pkg/logger"
)

// SummaryHandler serves the cross-portfolio summary view and its
// portfolio-order preference.
type SummaryHandler struct {
	store  *store.Store
	prices *prices.Service
	order  *prefs.SummaryOrder
	logger *logger.Logger
}

// NewSummaryHandler creates a summary handler
func NewSummaryHandler(st *store.Store, priceSvc *prices.Service, order *prefs.SummaryOrder, log *logger.Logger) *SummaryHandler {
	return &SummaryHandler{
		store:  st,
		prices: priceSvc,
		order:  order,
		logger: log,
	}
}

// SummaryResponse is the aggregate view payload
type SummaryResponse struct {
	Order     []string               `json:"order"`
	Rows      []valuation.SummaryRow `json:"rows"`
	TagLabels []string               `json:"tagLabels"`
}

// Get returns every symbol held anywhere, one cell per portfolio that
// holds it, in the preferred portfolio order.
// GET /api/summary
func (h *SummaryHandler) Get(w http.ResponseWriter, r *http.Request) {
	portfolios := h.store.Portfolios()
	order := h.order.Order(h.store.Names())

	pricesByPortfolio := make(map[string]map[string]float64, len(portfolios))
	for name, pf := range portfolios {
		pricesByPortfolio[name] = h.prices.Fetch(r.Context(), pf.Tickers)
	}

	rows := valuation.BuildSummary(portfolios, order, pricesByPortfolio, h.store.AllTags())

	respondJSON(w, http.StatusOK, SummaryResponse{
		Order:     order,
		Rows:      rows,
		TagLabels: contracts.TagLabels,
	})
}

// GetOrder returns the preferred portfolio order, reconciled against the
// live portfolio set.
// GET /api/summary/order
func (h *SummaryHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"order": h.order.Order(h.store.Names()),
	})
}

// OrderRequest carries a new preferred portfolio order
type OrderRequest struct {
	Order []string `json:"order"`
}

// PutOrder saves a new preferred portfolio order.
// PUT /api/summary/order
func (h *SummaryHandler) PutOrder(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.order.Save(req.Order); err != nil {
		h.logger.WithError(err).Error("Failed to save summary order")
		respondError(w, http.StatusInternalServerError, "Failed to save order")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"order": h.order.Order(h.store.Names()),
	})
}
