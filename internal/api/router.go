// Package api wires the HTTP surface: router, middleware, and server
// lifecycle.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/hyowon/folio/internal/api/handlers"
	"github.com/hyowon/folio/pkg/logger"
)

// Handlers groups the endpoint handlers the router mounts
type Handlers struct {
	Portfolio *handlers.PortfolioHandler
	Summary   *handlers.SummaryHandler
	Backup    *handlers.BackupHandler
	Transfer  *handlers.TransferHandler
}

// NewRouter creates and configures the HTTP router
func NewRouter(h Handlers, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Portfolio view and lifecycle
	api.HandleFunc("/portfolio", h.Portfolio.Get).Methods("GET")
	api.HandleFunc("/portfolio", h.Portfolio.Add).Methods("POST")
	api.HandleFunc("/portfolio/rename", h.Portfolio.Rename).Methods("POST")
	api.HandleFunc("/portfolio/remove", h.Portfolio.Remove).Methods("POST")

	// Tickers and trades
	api.HandleFunc("/tickers/add", h.Portfolio.AddTicker).Methods("POST")
	api.HandleFunc("/tickers/remove", h.Portfolio.RemoveTicker).Methods("POST")
	api.HandleFunc("/trade/buy", h.Portfolio.Buy).Methods("POST")
	api.HandleFunc("/trade/sell", h.Portfolio.Sell).Methods("POST")

	// Tags
	api.HandleFunc("/tags", h.Portfolio.SetTag).Methods("POST")
	api.HandleFunc("/tags/labels", h.Portfolio.TagLabels).Methods("GET")

	// History
	api.HandleFunc("/history/{portfolio}", h.Portfolio.History).Methods("GET")

	// Summary
	api.HandleFunc("/summary", h.Summary.Get).Methods("GET")
	api.HandleFunc("/summary/order", h.Summary.GetOrder).Methods("GET")
	api.HandleFunc("/summary/order", h.Summary.PutOrder).Methods("PUT")

	// Backup and restore
	api.HandleFunc("/backup", h.Backup.Create).Methods("POST")
	api.HandleFunc("/backup", h.Backup.List).Methods("GET")
	api.HandleFunc("/backup/latest", h.Backup.Latest).Methods("GET")
	api.HandleFunc("/restore", h.Backup.Restore).Methods("POST")

	// Holdings import/export
	api.HandleFunc("/import/csv", h.Transfer.ImportCSV).Methods("POST")
	api.HandleFunc("/import/csv/bulk", h.Transfer.ImportBulk).Methods("POST")
	api.HandleFunc("/import/xlsx", h.Transfer.ImportXLSX).Methods("POST")
	api.HandleFunc("/export/csv", h.Transfer.ExportCSV).Methods("GET")
	api.HandleFunc("/export/xlsx", h.Transfer.ExportXLSX).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "folio-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
